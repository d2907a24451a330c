package service

import (
	"context"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type notificationStore interface {
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Preferences(ctx context.Context, userID string) ([]model.NotificationPreference, error)
	SavePreferences(ctx context.Context, userID string, prefs []model.NotificationPreference) error
}

// NotificationList is the caller's inbox.
type NotificationList struct {
	Items  []model.Notification `json:"items"`
	Unread int64                `json:"unread"`
}

const maxNotificationPage = 100

// NotificationService lets a user read their inbox and tune channels.
type NotificationService struct {
	store notificationStore
}

func NewNotificationService(store notificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, sess *auth.Session, unreadOnly bool, limit int) (NotificationList, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return NotificationList{}, err
	}
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	items, err := s.store.ListForUser(ctx, sess.UserID, unreadOnly, limit)
	if err != nil {
		return NotificationList{}, err
	}
	unread, err := s.store.CountUnread(ctx, sess.UserID)
	if err != nil {
		return NotificationList{}, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return NotificationList{Items: items, Unread: unread}, nil
}

// MarkRead marks one notification of the caller read.  Notifications of
// other users are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, sess *auth.Session, id string) error {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return err
	}
	return s.store.MarkRead(ctx, id, sess.UserID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, sess *auth.Session) (int64, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, sess.UserID)
}

// Preferences returns one entry per notification type.
func (s *NotificationService) Preferences(ctx context.Context, sess *auth.Session) ([]model.NotificationPreference, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return nil, err
	}
	return s.store.Preferences(ctx, sess.UserID)
}

func (s *NotificationService) SavePreferences(ctx context.Context, sess *auth.Session, in validation.PreferencesInput) ([]model.NotificationPreference, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return nil, err
	}
	if err := validation.Validate(&in); err != nil {
		return nil, err
	}
	prefs := make([]model.NotificationPreference, 0, len(in.Preferences))
	for _, p := range in.Preferences {
		prefs = append(prefs, model.NotificationPreference{
			UserID: sess.UserID,
			Type:   p.Type,
			Email:  p.Email,
			Push:   p.Push,
			InApp:  p.InApp,
		})
	}
	if err := s.store.SavePreferences(ctx, sess.UserID, prefs); err != nil {
		return nil, err
	}
	return s.store.Preferences(ctx, sess.UserID)
}
