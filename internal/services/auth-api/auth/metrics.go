package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NordCoder/Warden/internal/apperr"
)

var (
	signups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_signups_total",
		Help: "Signup attempts by result.",
	}, []string{"result"})
	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
	refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_refresh_total",
		Help: "Refresh token rotations by result.",
	}, []string{"result"})
	emailFlows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_email_flows_total",
		Help: "Verification and password reset outcomes.",
	}, []string{"flow", "result"})
)

// outcome labels a result by its error kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}
