// Package ratelimit bounds repeated attempts per origin key with a fixed window.
//
// A window opens on the first attempt for a key. The first limit attempts inside
// it are allowed and every later one is limited, until an attempt arrives after
// the window has elapsed; that attempt opens a new window with a count of one.
// Limiters are best-effort and are not a security boundary on their own.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Limiter interface {
	IsLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_decisions_total",
	Help: "Rate limiter decisions by backend and result.",
}, []string{"backend", "result"})

func observe(backend string, limited bool) {
	result := "allowed"
	if limited {
		result = "limited"
	}
	decisions.WithLabelValues(backend, result).Inc()
}
