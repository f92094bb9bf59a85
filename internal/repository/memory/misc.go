package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/outbox"
)

var _ audit.Repo = (*AuditRepo)(nil)

type AuditRepo struct{ s *Store }

func (r *AuditRepo) Create(ctx context.Context, e *audit.Event) error {
	defer r.s.lock(ctx)()
	r.s.d.audits = append(r.s.d.audits, *e)
	return nil
}

var _ notification.LogRepo = (*NotificationLogRepo)(nil)

type NotificationLogRepo struct{ s *Store }

func (r *NotificationLogRepo) Create(ctx context.Context, e *notification.LogEntry) error {
	defer r.s.lock(ctx)()
	r.s.d.seq++
	e.ID = r.s.d.seq
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	r.s.d.notifLog = append(r.s.d.notifLog, *e)
	return nil
}

var _ outbox.Repository = (*OutboxRepo)(nil)

type OutboxRepo struct{ s *Store }

func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.d.outbox[key]; ok {
		return nil
	}
	now := time.Now().UTC()
	r.s.d.outbox[key] = outbox.Message{
		IdempotencyKey: key,
		Kind:           kind,
		Data:           append([]byte(nil), data...),
		Status:         outbox.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("batch must be > 0")
	}
	defer r.s.lock(ctx)()

	now := time.Now().UTC()
	var cand []outbox.Message
	for _, m := range r.s.d.outbox {
		stale := m.Status == outbox.StatusInProgress && m.UpdatedAt.Before(now.Add(-inProgressTTL))
		if m.Status == outbox.StatusCreated || stale {
			cand = append(cand, m)
		}
	}
	sort.Slice(cand, func(i, j int) bool { return cand[i].CreatedAt.Before(cand[j].CreatedAt) })
	if len(cand) > batch {
		cand = cand[:batch]
	}
	for i := range cand {
		cand[i].Status = outbox.StatusInProgress
		cand[i].UpdatedAt = now
		r.s.d.outbox[cand[i].IdempotencyKey] = cand[i]
	}
	return cand, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	defer r.s.lock(ctx)()
	now := time.Now().UTC()
	for _, k := range keys {
		if m, ok := r.s.d.outbox[k]; ok {
			m.Status = outbox.StatusSuccess
			m.UpdatedAt = now
			r.s.d.outbox[k] = m
		}
	}
	return nil
}
