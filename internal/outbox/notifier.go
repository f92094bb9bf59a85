package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/outbox"
)

var _ notification.Notifier = (*Notifier)(nil)

// Notifier hands emails to the outbox; the Runner delivers them.
type Notifier struct {
	repo outbox.Repository
}

func NewNotifier(repo outbox.Repository) *Notifier { return &Notifier{repo: repo} }

func (n *Notifier) Notify(ctx context.Context, e notification.Email) error {
	data, err := json.Marshal(EmailPayload{Kind: e.Kind, To: e.To, Name: e.Name, Token: e.Token, At: e.At})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	if err := n.repo.Enqueue(ctx, uuid.NewString(), outbox.KindEmailRequested, data); err != nil {
		return fmt.Errorf("enqueue %s email: %w", e.Kind, err)
	}
	return nil
}
