package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindWelcome       Kind = "welcome"
)

// Email is a request to deliver one templated message. Token is empty for welcome mails.
type Email struct {
	Kind  Kind
	To    string
	Name  string
	Token string
	At    time.Time
}

// Notifier accepts emails for asynchronous delivery.
type Notifier interface {
	Notify(ctx context.Context, e Email) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}

// LogEntry records a delivered email.
type LogEntry struct {
	ID        int64
	Kind      Kind
	Recipient string
	Subject   string
	SentAt    time.Time
}
