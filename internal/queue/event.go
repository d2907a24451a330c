// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

import "time"

// Queue names.  Each event type has its own durable queue and the routing
// key equals the queue name on the default exchange.
const (
	QueueNotificationCreated  = "notification.created"
	QueueVerificationRequired = "email.verification_requested"
	QueueClientDeactivated    = "client.deactivated"
)

// NotificationCreatedEvent is published for every notification so that
// downstream workers can fan it out to the email and push channels the
// recipient has enabled.
type NotificationCreatedEvent struct {
	NotificationID string    `json:"notification_id,omitempty"` // empty when in-app is disabled
	UserID         string    `json:"user_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Link           string    `json:"link,omitempty"`
	Email          bool      `json:"email"`
	Push           bool      `json:"push"`
	CreatedAt      time.Time `json:"created_at"`
}

// VerificationRequestedEvent carries the one-time link a mailer should send
// to a freshly registered user.
type VerificationRequestedEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClientDeactivatedEvent is published once when a client account is
// switched off by an administrator.
type ClientDeactivatedEvent struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	DeactivatedBy string    `json:"deactivated_by"`
	DeactivatedAt time.Time `json:"deactivated_at"`
}
