package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/domain/notification"
)

var _ notification.LogRepo = (*NotificationLogRepo)(nil)

type NotificationLogRepo struct{ db *DB }

func NewNotificationLogRepo(db *DB) *NotificationLogRepo { return &NotificationLogRepo{db: db} }

const qNotifInsert = `
INSERT INTO notification_log (kind, recipient, subject, sent_at)
VALUES ($1, $2, $3, COALESCE($4, now()))
RETURNING id, sent_at;`

func (r *NotificationLogRepo) Create(ctx context.Context, e *notification.LogEntry) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qNotifInsert,
		string(e.Kind), e.Recipient, e.Subject, nullTime(e.SentAt),
	).Scan(&e.ID, &e.SentAt); err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
