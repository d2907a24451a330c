package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/queue"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type clientStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	Deactivate(ctx context.Context, id string) (bool, error)
	SetRole(ctx context.Context, id string, role model.Role) error
	ListClients(ctx context.Context, f model.ListFilter) ([]model.ClientSummary, int64, error)
	ExportClients(ctx context.Context, f model.ListFilter) ([]model.ClientSummary, error)
}

type sessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

// ClientService is the admin view over client accounts.
type ClientService struct {
	users    clientStore
	sessions sessionRevoker
	notifier *Notifier
	pub      EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

func NewClientService(users clientStore, sessions sessionRevoker, notifier *Notifier, pub EventPublisher, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		pub:      pub,
		log:      logger.Named("client"),
		now:      utcNow,
	}
}

func (s *ClientService) List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ClientSummary], error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return model.Page[model.ClientSummary]{}, err
	}
	items, total, err := s.users.ListClients(ctx, f)
	if err != nil {
		return model.Page[model.ClientSummary]{}, err
	}
	return pageOf(items, total, f), nil
}

// Export returns every client matching f.  Paging fields are ignored.
func (s *ClientService) Export(ctx context.Context, sess *auth.Session, f model.ListFilter) ([]model.ClientSummary, error) {
	if _, err := auth.RequireAdmin(sess); err != nil {
		return nil, err
	}
	items, err := s.users.ExportClients(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.ClientSummary{}
	}
	return items, nil
}

// Deactivate switches a client account off.  Repeating the call is a
// no-op: sessions are revoked, the client notified and the event published
// only by the call that actually changed the row.  Projects and briefings
// of the client are left untouched.
func (s *ClientService) Deactivate(ctx context.Context, sess *auth.Session, id string) (bool, error) {
	sess, err := auth.RequireAdmin(sess)
	if err != nil {
		return false, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if u.Role != model.RoleClient {
		return false, fmt.Errorf("%w: only client accounts can be deactivated", apperrors.ErrForbidden)
	}
	changed, err := s.users.Deactivate(ctx, u.ID)
	if err != nil || !changed {
		return false, err
	}

	if err := s.sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		s.log.Error("revoke sessions of deactivated client failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	s.notifier.Notify(ctx, u.ID, model.NotifyAccountDeactivated,
		"Conta desativada",
		"Sua conta foi desativada por um administrador. Entre em contato com o suporte para mais informações.",
		nil)
	publish(ctx, s.pub, s.log, queue.QueueClientDeactivated, queue.ClientDeactivatedEvent{
		UserID:        u.ID,
		Email:         u.Email,
		DeactivatedBy: sess.UserID,
		DeactivatedAt: s.now(),
	})
	s.log.Info("client deactivated", zap.String("user_id", u.ID), zap.String("by", sess.UserID))
	return true, nil
}

// SetRole changes the role of an account.  Only a SUPER_ADMIN may do it
// and never on their own account.
func (s *ClientService) SetRole(ctx context.Context, sess *auth.Session, id string, in validation.RoleInput) (model.User, error) {
	sess, err := auth.RequireRole(sess, model.RoleSuperAdmin)
	if err != nil {
		return model.User{}, err
	}
	if err := validation.Validate(&in); err != nil {
		return model.User{}, err
	}
	if id == sess.UserID {
		return model.User{}, fmt.Errorf("%w: cannot change own role", apperrors.ErrForbidden)
	}
	if err := s.users.SetRole(ctx, id, in.Role); err != nil {
		return model.User{}, err
	}
	s.log.Info("role changed", zap.String("user_id", id), zap.String("role", string(in.Role)), zap.String("by", sess.UserID))
	return s.users.GetByID(ctx, id)
}
