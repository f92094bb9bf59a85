// Package audit records security-relevant events. Recording never fails the
// operation that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/obs"
)

var (
	auditRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Audit events by action and write result.",
	}, []string{"action", "result"})
)

// Recorder is the sink the auth flows write to.
type Recorder interface {
	Record(ctx context.Context, e audit.Event)
}

type repoRecorder struct {
	repo    audit.Repo
	log     *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewRecorder(repo audit.Repo, log *zap.Logger) Recorder {
	return &repoRecorder{
		repo:    repo,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 2 * time.Second,
	}
}

func (r *repoRecorder) Record(ctx context.Context, e audit.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	// The write outlives a cancelled request; it is bounded by its own timeout.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.repo.Create(wctx, &e); err != nil {
		auditRecorded.WithLabelValues(string(e.Action), "error").Inc()
		obs.WithTrace(ctx, r.log).Warn("audit write failed",
			zap.String("action", string(e.Action)),
			zap.Error(err),
		)
		return
	}
	auditRecorded.WithLabelValues(string(e.Action), "ok").Inc()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, audit.Event) {}
