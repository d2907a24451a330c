package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type retentionTokens interface {
	DeleteExpiredVerification(ctx context.Context, now time.Time) (int64, error)
	DeleteStaleRefresh(ctx context.Context, now time.Time) (int64, error)
}

type retentionNotifications interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type retentionBriefings interface {
	DeleteStaleDrafts(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionPolicy sets how long read notifications and untouched drafts
// are kept, in days.
type RetentionPolicy struct {
	ReadNotificationDays int
	DraftBriefingDays    int
}

// RetentionStep is the outcome of one cleanup step.
type RetentionStep struct {
	Name    string `json:"name"`
	Deleted int64  `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// RetentionReport summarises one run.
type RetentionReport struct {
	Steps      []RetentionStep `json:"steps"`
	Failed     int             `json:"failed"`
	DurationMs int64           `json:"durationMs"`
}

// RetentionService deletes data that is no longer needed.
type RetentionService struct {
	tokens        retentionTokens
	notifications retentionNotifications
	briefings     retentionBriefings
	policy        RetentionPolicy
	log           *zap.Logger
	now           func() time.Time
}

func NewRetentionService(tokens retentionTokens, notifications retentionNotifications, briefings retentionBriefings, policy RetentionPolicy, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{
		tokens:        tokens,
		notifications: notifications,
		briefings:     briefings,
		policy:        policy,
		log:           logger.Named("retention"),
		now:           utcNow,
	}
}

// Run executes every step in order.  A failing step is recorded and the
// remaining steps still run.  Error details only go to the log.
func (s *RetentionService) Run(ctx context.Context) RetentionReport {
	start := time.Now()
	now := s.now()
	days := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	steps := []struct {
		name string
		run  func() (int64, error)
	}{
		{"expired_verification_tokens", func() (int64, error) { return s.tokens.DeleteExpiredVerification(ctx, now) }},
		{"stale_refresh_tokens", func() (int64, error) { return s.tokens.DeleteStaleRefresh(ctx, now) }},
		{"read_notifications", func() (int64, error) {
			return s.notifications.DeleteReadBefore(ctx, days(s.policy.ReadNotificationDays))
		}},
		{"draft_briefings", func() (int64, error) {
			return s.briefings.DeleteStaleDrafts(ctx, days(s.policy.DraftBriefingDays))
		}},
	}

	report := RetentionReport{Steps: make([]RetentionStep, 0, len(steps))}
	for _, st := range steps {
		n, err := st.run()
		step := RetentionStep{Name: st.name, Deleted: n}
		if err != nil {
			step.Deleted = 0
			step.Error = "cleanup failed"
			report.Failed++
			s.log.Error("retention step failed", zap.String("step", st.name), zap.Error(err))
		} else {
			s.log.Info("retention step done", zap.String("step", st.name), zap.Int64("deleted", n))
		}
		report.Steps = append(report.Steps, step)
	}
	report.DurationMs = time.Since(start).Milliseconds()
	return report
}
