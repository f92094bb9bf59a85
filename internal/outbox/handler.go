package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/NordCoder/Warden/internal/domain/notification"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

// EmailPayload is the outbox row body for KindEmailRequested.
type EmailPayload struct {
	Kind  notification.Kind `json:"kind"`
	To    string            `json:"to"`
	Name  string            `json:"name"`
	Token string            `json:"token,omitempty"`
	At    time.Time         `json:"at"`
}

func (p EmailPayload) Email() notification.Email {
	return notification.Email{Kind: p.Kind, To: p.To, Name: p.Name, Token: p.Token, At: p.At}
}

type EmailPublisher interface {
	PublishEmailRequested(ctx context.Context, key string, e notification.Email) error
}

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	retried := WrapKindHandler(h, pol)
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle "+kind)
		defer span.End()

		start := time.Now()
		err := retried(ctx, data)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

// MakeGlobalOutboxHandler routes outbox kinds to the kafka publisher. Messages
// are keyed by recipient so one user's emails keep their order.
func MakeGlobalOutboxHandler(pub EmailPublisher, pol retry.Policy) outbox.GlobalHandler {
	email := instrument("email_requested", func(ctx context.Context, data []byte) error {
		var p EmailPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal email payload: %w", err)
		}
		return pub.PublishEmailRequested(ctx, p.To, p.Email())
	}, pol)

	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindEmailRequested:
			return email, nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
