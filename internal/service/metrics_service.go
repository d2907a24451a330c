package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
)

type clientCounter interface {
	ClientStats(ctx context.Context) (model.ClientStats, error)
}

type briefingCounter interface {
	CountByStatus(ctx context.Context) (map[model.BriefingStatus]int64, error)
}

type projectStatter interface {
	Stats(ctx context.Context) (model.ProjectStats, error)
}

type fileStatter interface {
	Stats(ctx context.Context) (model.FileStats, error)
}

// MetricsService builds the admin dashboard snapshot.
type MetricsService struct {
	clients   clientCounter
	briefings briefingCounter
	projects  projectStatter
	files     fileStatter
	now       func() time.Time
}

func NewMetricsService(clients clientCounter, briefings briefingCounter, projects projectStatter, files fileStatter) *MetricsService {
	return &MetricsService{clients: clients, briefings: briefings, projects: projects, files: files, now: utcNow}
}

// Metrics counts clients, briefings, projects and files.  Empty tables
// give zero counts.
func (s *MetricsService) Metrics(ctx context.Context, sess *auth.Session) (model.Metrics, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Metrics{}, err
	}
	m := model.Metrics{GeneratedAt: s.now()}
	var err error
	if m.Clients, err = s.clients.ClientStats(ctx); err != nil {
		return model.Metrics{}, fmt.Errorf("client stats: %w", err)
	}
	counts, err := s.briefings.CountByStatus(ctx)
	if err != nil {
		return model.Metrics{}, fmt.Errorf("briefing stats: %w", err)
	}
	m.Briefings = model.ZeroBriefingCounts()
	for k, v := range counts {
		m.Briefings[k] = v
	}
	m.PendingReview = m.Briefings[model.BriefingSubmitted] + m.Briefings[model.BriefingInReview]
	if m.Projects, err = s.projects.Stats(ctx); err != nil {
		return model.Metrics{}, fmt.Errorf("project stats: %w", err)
	}
	if m.Files, err = s.files.Stats(ctx); err != nil {
		return model.Metrics{}, fmt.Errorf("file stats: %w", err)
	}
	return m, nil
}
