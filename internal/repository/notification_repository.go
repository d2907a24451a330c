package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/model"
)

type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts an unread notification.
func (r *NotificationRepo) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, link, is_read, created_at)
		VALUES (?,?,?,?,?,?,0,?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Link, n.CreatedAt)
	if err != nil {
		return model.Notification{}, err
	}
	n.Read = false
	return n, nil
}

// ListForUser returns a user's notifications newest first, at most limit.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := "SELECT id, user_id, type, title, message, link, is_read, created_at FROM notifications WHERE user_id=?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY created_at DESC, id LIMIT ?", userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n    model.Notification
			link sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Link = nullString(link)
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications of a user.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id=? AND is_read=0", userID).Scan(&n)
	return n, err
}

// MarkRead marks one notification read. Another user's notification is
// reported as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a user read and returns
// how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE user_id=? AND is_read=0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteReadBefore removes read notifications created before cutoff.
func (r *NotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE is_read=1 AND created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Preference returns the stored preference of a user for one type, or the
// all-enabled default when none is stored.
func (r *NotificationRepo) Preference(ctx context.Context, userID string, t model.NotificationType) (model.NotificationPreference, error) {
	p := model.NotificationPreference{UserID: userID, Type: t}
	err := r.db.QueryRowContext(ctx,
		"SELECT email, push, in_app FROM notification_preferences WHERE user_id=? AND type=?",
		userID, t).Scan(&p.Email, &p.Push, &p.InApp)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPreference(userID, t), nil
	}
	return p, err
}

// Preferences returns one preference per notification type, filling
// defaults for types without a stored row.
func (r *NotificationRepo) Preferences(ctx context.Context, userID string) ([]model.NotificationPreference, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT type, email, push, in_app FROM notification_preferences WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stored := map[model.NotificationType]model.NotificationPreference{}
	for rows.Next() {
		p := model.NotificationPreference{UserID: userID}
		if err := rows.Scan(&p.Type, &p.Email, &p.Push, &p.InApp); err != nil {
			return nil, err
		}
		stored[p.Type] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.NotificationPreference, 0, len(model.AllNotificationTypes))
	for _, t := range model.AllNotificationTypes {
		if p, ok := stored[t]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, model.DefaultPreference(userID, t))
	}
	return out, nil
}

// SavePreferences upserts the given preferences in one transaction.
func (r *NotificationRepo) SavePreferences(ctx context.Context, userID string, prefs []model.NotificationPreference) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, p := range prefs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO notification_preferences (user_id, type, email, push, in_app)
				VALUES (?,?,?,?,?)
				ON DUPLICATE KEY UPDATE email=VALUES(email), push=VALUES(push), in_app=VALUES(in_app)`,
				userID, p.Type, p.Email, p.Push, p.InApp); err != nil {
				return err
			}
		}
		return nil
	})
}
