package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Warden/internal/domain/audit"
)

var _ audit.Repo = (*AuditRepo)(nil)

type AuditRepo struct{ db *DB }

func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

const qAuditInsert = `
INSERT INTO audit_logs (id, user_id, action, description, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7);`

func (r *AuditRepo) Create(ctx context.Context, e *audit.Event) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qAuditInsert,
		e.ID, e.UserID, string(e.Action), e.Description, e.IPAddress, e.UserAgent, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}
