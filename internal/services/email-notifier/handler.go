package notifier

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/obs"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

type message struct {
	subject string
	body    *template.Template
}

var templates = map[notification.Kind]message{
	notification.KindVerification: {
		subject: "Verify your email",
		body: template.Must(template.New("verification").Parse(`Hello{{with .Name}} {{.}}{{end}},

Please confirm your email address by opening the link below:

{{.Link}}

The link expires in 24 hours. If you did not create an account, ignore this email.
`)),
	},
	notification.KindPasswordReset: {
		subject: "Reset your password",
		body: template.Must(template.New("password_reset").Parse(`Hello{{with .Name}} {{.}}{{end}},

We received a request to reset your password. Open the link below to choose a new one:

{{.Link}}

This link will expire in 1 hour. If you did not request a reset, ignore this email.
`)),
	},
	notification.KindWelcome: {
		subject: "Welcome",
		body: template.Must(template.New("welcome").Parse(`Welcome{{with .Name}}, {{.}}{{end}}!

Your email address is verified and your account is ready:

{{.Link}}
`)),
	},
}

type view struct {
	Name string
	Link string
}

// Handler renders one notification.Email and delivers it.
type Handler struct {
	Sender notification.EmailSender
	Store  notification.LogRepo
	Clock  notification.Clock
	AppURL string
	Log    *zap.Logger
}

func (h *Handler) link(e notification.Email) string {
	base := strings.TrimRight(h.AppURL, "/")
	switch e.Kind {
	case notification.KindVerification:
		return base + "/verify-email/" + e.Token
	case notification.KindPasswordReset:
		return base + "/reset-password/" + e.Token
	default:
		return base + "/dashboard"
	}
}

// Render returns the subject and body for e. Unknown kinds and token mails without
// a token fail with retry.ErrPermanent.
func (h *Handler) Render(e notification.Email) (string, string, error) {
	tpl, ok := templates[e.Kind]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown email kind %q", retry.ErrPermanent, e.Kind)
	}
	if e.Kind != notification.KindWelcome && e.Token == "" {
		return "", "", fmt.Errorf("%w: %s email without token", retry.ErrPermanent, e.Kind)
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, view{Name: e.Name, Link: h.link(e)}); err != nil {
		return "", "", fmt.Errorf("render %s: %w", e.Kind, err)
	}
	return tpl.subject, buf.String(), nil
}

func (h *Handler) Handle(ctx context.Context, e notification.Email) error {
	log := obs.WithTrace(ctx, h.logger()).With(zap.String("kind", string(e.Kind)))

	subject, body, err := h.Render(e)
	if err != nil {
		mErrors.WithLabelValues("render").Inc()
		return err
	}

	start := time.Now()
	if err := h.Sender.Send(ctx, e.To, subject, body); err != nil {
		mErrors.WithLabelValues("send").Inc()
		return fmt.Errorf("send email: %w", err)
	}
	mSent.WithLabelValues(string(e.Kind)).Inc()
	mSendLatency.Observe(time.Since(start).Seconds())

	entry := &notification.LogEntry{
		Kind:      e.Kind,
		Recipient: e.To,
		Subject:   subject,
		SentAt:    h.now(),
	}
	if err := h.Store.Create(ctx, entry); err != nil {
		// the mail is out; redelivery would send it twice
		mErrors.WithLabelValues("log").Inc()
		log.Warn("notification log write failed", zap.Error(err))
	}
	return nil
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now().UTC()
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.L()
	}
	return h.Log
}
