package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/repository"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type planStore interface {
	List(ctx context.Context, activeOnly bool) ([]model.PricingPlan, error)
	GetByID(ctx context.Context, id string) (model.PricingPlan, error)
	ServiceTypeTaken(ctx context.Context, st model.ServiceType, excludeID string) (bool, error)
	Create(ctx context.Context, p model.PricingPlan) (model.PricingPlan, error)
	Update(ctx context.Context, p model.PricingPlan) (model.PricingPlan, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
}

// CachePurger drops cached public responses after a plan changes.
type CachePurger interface {
	Purge(ctx context.Context, path string) error
}

// PublicPlansPath is the cached public listing.
const PublicPlansPath = "/plans"

// PlanService administers the pricing plans.
type PlanService struct {
	store planStore
	cache CachePurger
	log   *zap.Logger
}

func NewPlanService(store planStore, cache CachePurger, logger *zap.Logger) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{store: store, cache: cache, log: logger.Named("plan")}
}

// ListPublic returns the active plans in display order.  No session needed.
func (s *PlanService) ListPublic(ctx context.Context) ([]model.PricingPlan, error) {
	return s.store.List(ctx, true)
}

func (s *PlanService) ListAll(ctx context.Context, sess *auth.Session) ([]model.PricingPlan, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return nil, err
	}
	return s.store.List(ctx, false)
}

func (s *PlanService) Create(ctx context.Context, sess *auth.Session, in validation.PlanInput) (model.PricingPlan, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.PricingPlan{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.PricingPlan{}, err
	}
	taken, err := s.store.ServiceTypeTaken(ctx, in.ServiceType, "")
	if err != nil {
		return model.PricingPlan{}, err
	}
	if taken {
		return model.PricingPlan{}, repository.ErrServiceTypeTaken
	}
	p := planFromInput(in)
	p.ID = uuid.NewString()
	p, err = s.store.Create(ctx, p)
	if err != nil {
		return model.PricingPlan{}, err
	}
	s.purge(ctx)
	return p, nil
}

func (s *PlanService) Update(ctx context.Context, sess *auth.Session, id string, in validation.PlanInput) (model.PricingPlan, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.PricingPlan{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.PricingPlan{}, err
	}
	taken, err := s.store.ServiceTypeTaken(ctx, in.ServiceType, id)
	if err != nil {
		return model.PricingPlan{}, err
	}
	if taken {
		return model.PricingPlan{}, repository.ErrServiceTypeTaken
	}
	p := planFromInput(in)
	p.ID = id
	p, err = s.store.Update(ctx, p)
	if err != nil {
		return model.PricingPlan{}, err
	}
	s.purge(ctx)
	return p, nil
}

func planFromInput(in validation.PlanInput) model.PricingPlan {
	features := in.Features
	if features == nil {
		features = []string{}
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return model.PricingPlan{
		ServiceType:    in.ServiceType,
		Name:           in.Name,
		Description:    in.Description,
		PriceCents:     in.PriceCents,
		Features:       features,
		StorageLimitMB: in.StorageLimitMB,
		Active:         active,
	}
}

func (s *PlanService) Delete(ctx context.Context, sess *auth.Session, id string) error {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// Reorder assigns display positions 1..n in the given id order.  The list
// must name every plan exactly once; otherwise nothing changes.
func (s *PlanService) Reorder(ctx context.Context, sess *auth.Session, in validation.ReorderInput) ([]model.PricingPlan, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return nil, err
	}
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	if err := s.store.Reorder(ctx, in.IDs); err != nil {
		if errors.Is(err, repository.ErrPartialOrder) {
			return nil, apperrors.NewValidationError("ids", "must list every plan")
		}
		return nil, err
	}
	s.purge(ctx)
	return s.store.List(ctx, false)
}

func (s *PlanService) purge(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Purge(ctx, PublicPlansPath); err != nil {
		s.log.Warn("purge plan cache failed", zap.Error(err))
	}
}
