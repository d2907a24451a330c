package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type briefingStore interface {
	Create(ctx context.Context, b model.Briefing) (model.Briefing, error)
	GetByID(ctx context.Context, id string) (model.Briefing, error)
	GetForOwner(ctx context.Context, id, userID string) (model.Briefing, error)
	UpdateDraft(ctx context.Context, b model.Briefing) (model.Briefing, error)
	Transition(ctx context.Context, id string, from, to model.BriefingStatus, submittedAt *time.Time) (model.Briefing, error)
	Reject(ctx context.Context, id string, from model.BriefingStatus, reason string) (model.Briefing, error)
	Approve(ctx context.Context, id string, from model.BriefingStatus, p model.Project, milestones []model.Milestone) (model.Project, error)
	ListForOwner(ctx context.Context, userID string, f model.ListFilter) ([]model.Briefing, int64, error)
	List(ctx context.Context, f model.ListFilter) ([]model.BriefingSummary, int64, error)
}

// BriefingService drives the briefing workflow:
//
//	RASCUNHO -> ENVIADO -> EM_ANALISE -> APROVADO | REJEITADO
//
// Clients own the first step, admins the rest.
type BriefingService struct {
	store    briefingStore
	notifier *Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewBriefingService(store briefingStore, notifier *Notifier, logger *zap.Logger) *BriefingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BriefingService{store: store, notifier: notifier, log: logger.Named("briefing"), now: utcNow}
}

func invalidTransition[S ~string](from, to S) error {
	return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, to)
}

// Create stores a new draft owned by the caller.
func (s *BriefingService) Create(ctx context.Context, sess *auth.Session, in validation.BriefingInput) (model.Briefing, error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Briefing{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.Briefing{}, err
	}
	return s.store.Create(ctx, model.Briefing{
		ID:          uuid.NewString(),
		UserID:      sess.UserID,
		ServiceType: in.ServiceType,
		CompanyName: in.CompanyName,
		Description: in.Description,
		Budget:      in.Budget,
		Deadline:    in.Deadline,
	})
}

// Update rewrites a draft of the caller.  Sent briefings are read-only.
func (s *BriefingService) Update(ctx context.Context, sess *auth.Session, id string, in validation.BriefingInput) (model.Briefing, error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Briefing{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.Briefing{}, err
	}
	b, err := s.store.GetForOwner(ctx, id, sess.UserID)
	if err != nil {
		return model.Briefing{}, err
	}
	if b.Status != model.BriefingDraft {
		return model.Briefing{}, fmt.Errorf("%w: only drafts can be edited", apperrors.ErrInvalidTransition)
	}
	b.ServiceType = in.ServiceType
	b.CompanyName = in.CompanyName
	b.Description = in.Description
	b.Budget = in.Budget
	b.Deadline = in.Deadline
	return s.store.UpdateDraft(ctx, b)
}

// Submit sends a draft of the caller for review.
func (s *BriefingService) Submit(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Briefing{}, err
	}
	b, err := s.store.GetForOwner(ctx, id, sess.UserID)
	if err != nil {
		return model.Briefing{}, err
	}
	if !b.Status.CanTransitionTo(model.BriefingSubmitted) {
		return model.Briefing{}, invalidTransition(b.Status, model.BriefingSubmitted)
	}
	now := s.now()
	return s.store.Transition(ctx, b.ID, b.Status, model.BriefingSubmitted, &now)
}

// ListOwn returns the caller's briefings.
func (s *BriefingService) ListOwn(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.Briefing], error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Page[model.Briefing]{}, err
	}
	items, total, err := s.store.ListForOwner(ctx, sess.UserID, f)
	if err != nil {
		return model.Page[model.Briefing]{}, err
	}
	return pageOf(items, total, f), nil
}

// GetOwn returns one of the caller's briefings.  Briefings of other users
// are reported as missing.
func (s *BriefingService) GetOwn(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error) {
	sess, err := auth.RequireRole(sess, model.RoleClient)
	if err != nil {
		return model.Briefing{}, err
	}
	return s.store.GetForOwner(ctx, id, sess.UserID)
}

// List returns briefings of every client.
func (s *BriefingService) List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.BriefingSummary], error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Page[model.BriefingSummary]{}, err
	}
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return model.Page[model.BriefingSummary]{}, err
	}
	return pageOf(items, total, f), nil
}

func (s *BriefingService) Get(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Briefing{}, err
	}
	return s.store.GetByID(ctx, id)
}

// Review moves a sent briefing into analysis.
func (s *BriefingService) Review(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Briefing{}, err
	}
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Briefing{}, err
	}
	if !b.Status.CanTransitionTo(model.BriefingInReview) {
		return model.Briefing{}, invalidTransition(b.Status, model.BriefingInReview)
	}
	b, err = s.store.Transition(ctx, id, b.Status, model.BriefingInReview, nil)
	if err != nil {
		return model.Briefing{}, err
	}
	s.notifier.Notify(ctx, b.UserID, model.NotifyBriefingInReview,
		"Briefing em análise",
		fmt.Sprintf("Seu briefing para %s está sendo analisado pela nossa equipe.", b.CompanyName),
		linkTo("/dashboard/briefings/"+b.ID))
	return b, nil
}

// Approve turns a briefing under analysis into a project with the default
// milestones.  The project, its milestones and the status flip are written
// in one transaction.
func (s *BriefingService) Approve(ctx context.Context, sess *auth.Session, id string) (model.Project, error) {
	sess, err := auth.RequireAdmin(sess)
	if err != nil {
		return model.Project{}, err
	}
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	if !b.Status.CanTransitionTo(model.BriefingApproved) {
		return model.Project{}, invalidTransition(b.Status, model.BriefingApproved)
	}

	p, ms := projectFromBriefing(b)
	p, err = s.store.Approve(ctx, b.ID, b.Status, p, ms)
	if err != nil {
		return model.Project{}, err
	}
	s.log.Info("briefing approved",
		zap.String("briefing_id", b.ID), zap.String("project_id", p.ID), zap.String("by", sess.UserID))
	s.notifier.Notify(ctx, b.UserID, model.NotifyBriefingApproved,
		"Briefing aprovado",
		fmt.Sprintf("Seu briefing para %s foi aprovado e o projeto foi criado.", b.CompanyName),
		linkTo("/dashboard/projects/"+p.ID))
	return p, nil
}

func projectFromBriefing(b model.Briefing) (model.Project, []model.Milestone) {
	p := model.Project{
		ID:          uuid.NewString(),
		UserID:      b.UserID,
		Name:        fmt.Sprintf("%s - %s", b.CompanyName, b.ServiceType.Label()),
		Description: b.Description,
		Status:      model.ProjectAwaitingApproval,
	}
	ms := make([]model.Milestone, 0, model.MilestoneCount)
	for i, title := range model.DefaultMilestoneTitles {
		ms = append(ms, model.Milestone{
			ID:           uuid.NewString(),
			ProjectID:    p.ID,
			Title:        title,
			DisplayOrder: i + 1,
		})
	}
	return p, ms
}

// Reject closes a briefing under analysis with a reason the client sees.
func (s *BriefingService) Reject(ctx context.Context, sess *auth.Session, id string, in validation.RejectBriefingInput) (model.Briefing, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Briefing{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.Briefing{}, err
	}
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Briefing{}, err
	}
	if !b.Status.CanTransitionTo(model.BriefingRejected) {
		return model.Briefing{}, invalidTransition(b.Status, model.BriefingRejected)
	}
	b, err = s.store.Reject(ctx, id, b.Status, in.Reason)
	if err != nil {
		return model.Briefing{}, err
	}
	s.notifier.Notify(ctx, b.UserID, model.NotifyBriefingRejected,
		"Briefing não aprovado",
		fmt.Sprintf("Seu briefing para %s não foi aprovado. Motivo: %s", b.CompanyName, in.Reason),
		linkTo("/dashboard/briefings/"+b.ID))
	return b, nil
}
