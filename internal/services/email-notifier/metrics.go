package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Email events consumed",
	})
	mSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent",
	}, []string{"kind"})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Errors",
	}, []string{"stage"})
	mSendLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "email_notifier_send_seconds",
		Help:    "SMTP delivery latency",
		Buckets: prometheus.DefBuckets,
	})
)
