package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Warden/internal/domain/notification"
)

// EmailEvents publishes notification.Email as a structpb.Struct. The field names
// are the wire contract with the email-notifier.
type EmailEvents struct {
	p *Producer
}

func NewEmailEvents(p *Producer) *EmailEvents { return &EmailEvents{p: p} }

func (e *EmailEvents) PublishEmailRequested(ctx context.Context, key string, m notification.Email) error {
	msg, err := EncodeEmail(m)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, []byte(key), msg)
}

func EncodeEmail(m notification.Email) (*structpb.Struct, error) {
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}
	s, err := structpb.NewStruct(map[string]any{
		"kind":  string(m.Kind),
		"to":    m.To,
		"name":  m.Name,
		"token": m.Token,
		"at":    at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode email event: %w", err)
	}
	return s, nil
}

var ErrBadEmailEvent = errors.New("malformed email event")

func DecodeEmail(s *structpb.Struct) (notification.Email, error) {
	f := s.GetFields()
	m := notification.Email{
		Kind:  notification.Kind(f["kind"].GetStringValue()),
		To:    f["to"].GetStringValue(),
		Name:  f["name"].GetStringValue(),
		Token: f["token"].GetStringValue(),
	}
	if m.Kind == "" || m.To == "" {
		return notification.Email{}, ErrBadEmailEvent
	}
	if raw := f["at"].GetStringValue(); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return notification.Email{}, fmt.Errorf("%w: at: %v", ErrBadEmailEvent, err)
		}
		m.At = at
	}
	return m, nil
}
