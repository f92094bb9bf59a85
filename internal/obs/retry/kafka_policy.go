package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultKafkaPolicy retries broker publishes with exponential backoff.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	return DeliveryPolicy("kafka_publish", 6, log)
}

// DeliveryPolicy is the policy for at-least-once side effects such as
// publishing an event or handing a message to the SMTP relay.
func DeliveryPolicy(name string, attempts int, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, ErrPermanent)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("delivery retry", zap.String("op", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("delivery retries exhausted", zap.String("op", name), zap.Error(err))
			}
		},
	}
}
