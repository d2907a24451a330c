// Package service holds the workflow and reporting operations.  Every
// operation takes the caller's *auth.Session explicitly and runs the access
// guard before it reads or writes anything.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/queue"
)

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, payload any) error
}

type notificationWriter interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	Preference(ctx context.Context, userID string, t model.NotificationType) (model.NotificationPreference, error)
}

// Notifier records a notification for a user according to their channel
// preferences.  Delivery problems are logged and never fail the operation
// that triggered the notification.
type Notifier struct {
	store notificationWriter
	pub   EventPublisher
	log   *zap.Logger
	now   func() time.Time
}

func NewNotifier(store notificationWriter, pub EventPublisher, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{store: store, pub: pub, log: logger.Named("notifier"), now: utcNow}
}

// Notify stores an in-app row when the user keeps that channel on and
// publishes a notification.created event for the email and push channels.
func (n *Notifier) Notify(ctx context.Context, userID string, t model.NotificationType, title, message string, link *string) {
	if n == nil || userID == "" {
		return
	}
	pref, err := n.store.Preference(ctx, userID, t)
	if err != nil {
		n.log.Warn("load notification preference failed, using defaults",
			zap.String("user_id", userID), zap.String("type", string(t)), zap.Error(err))
		pref = model.DefaultPreference(userID, t)
	}

	ev := queue.NotificationCreatedEvent{
		UserID:    userID,
		Type:      string(t),
		Title:     title,
		Message:   message,
		Email:     pref.Email,
		Push:      pref.Push,
		CreatedAt: n.now(),
	}
	if link != nil {
		ev.Link = *link
	}

	if pref.InApp {
		saved, err := n.store.Create(ctx, model.Notification{
			ID:      uuid.NewString(),
			UserID:  userID,
			Type:    t,
			Title:   title,
			Message: message,
			Link:    link,
		})
		if err != nil {
			n.log.Error("store notification failed",
				zap.String("user_id", userID), zap.String("type", string(t)), zap.Error(err))
		} else {
			ev.NotificationID = saved.ID
		}
	}

	if !pref.Email && !pref.Push {
		return
	}
	publish(ctx, n.pub, n.log, queue.QueueNotificationCreated, ev)
}

// publish sends one event and logs the outcome.  A disabled publisher is
// expected in development and only logged at debug level.
func publish(ctx context.Context, pub EventPublisher, log *zap.Logger, queueName string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, queueName, payload); err != nil {
		if errors.Is(err, queue.ErrPublisherDisabled) {
			log.Debug("event not published, broker disabled", zap.String("queue", queueName))
			return
		}
		log.Warn("publish event failed", zap.String("queue", queueName), zap.Error(err))
	}
}

func utcNow() time.Time { return time.Now().UTC() }

func linkTo(path string) *string { return &path }
