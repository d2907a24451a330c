package model

import "time"

// NotificationType enumerates the events a user can be notified about.
type NotificationType string

const (
	NotifyProjectStatus      NotificationType = "PROJECT_STATUS_CHANGED"
	NotifyBriefingApproved   NotificationType = "BRIEFING_APPROVED"
	NotifyBriefingRejected   NotificationType = "BRIEFING_REJECTED"
	NotifyBriefingInReview   NotificationType = "BRIEFING_IN_REVIEW"
	NotifyMilestoneCompleted NotificationType = "MILESTONE_COMPLETED"
	NotifyNewComment         NotificationType = "NEW_COMMENT"
	NotifyAccountDeactivated NotificationType = "ACCOUNT_DEACTIVATED"
)

// AllNotificationTypes lists every notification type.
var AllNotificationTypes = []NotificationType{
	NotifyProjectStatus, NotifyBriefingApproved, NotifyBriefingRejected,
	NotifyBriefingInReview, NotifyMilestoneCompleted, NotifyNewComment,
	NotifyAccountDeactivated,
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	for _, v := range AllNotificationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Notification represents a row of `notifications`.
type Notification struct {
	ID        string           `json:"id"`             // notifications.id
	UserID    string           `json:"userId"`         // notifications.user_id
	Type      NotificationType `json:"type"`           // notifications.type
	Title     string           `json:"title"`          // notifications.title
	Message   string           `json:"message"`        // notifications.message
	Link      *string          `json:"link,omitempty"` // notifications.link (nullable)
	Read      bool             `json:"read"`           // notifications.is_read
	CreatedAt time.Time        `json:"createdAt"`      // notifications.created_at
}

// NotificationPreference holds the channel toggles of one user for one
// notification type.  A missing row means every channel is enabled.
type NotificationPreference struct {
	UserID string           `json:"-"`     // notification_preferences.user_id
	Type   NotificationType `json:"type"`  // notification_preferences.type
	Email  bool             `json:"email"` // notification_preferences.email
	Push   bool             `json:"push"`  // notification_preferences.push
	InApp  bool             `json:"inApp"` // notification_preferences.in_app
}

// DefaultPreference returns the all-enabled preference for a type.
func DefaultPreference(userID string, t NotificationType) NotificationPreference {
	return NotificationPreference{UserID: userID, Type: t, Email: true, Push: true, InApp: true}
}
