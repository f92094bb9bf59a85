package notifier

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NordCoder/Warden/internal/obs/retry"
	kafkax "github.com/NordCoder/Warden/internal/repository/kafka"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

// Handle is the kafka handler. Malformed and permanently failing events are
// dropped so the consumer commits past them.
func (c *Controller) Handle(ctx context.Context, key []byte, s *structpb.Struct) error {
	mConsumed.Inc()
	ev, err := kafkax.DecodeEmail(s)
	if err != nil {
		mErrors.WithLabelValues("decode").Inc()
		c.Log.Warn("email event: malformed", zap.ByteString("key", key), zap.Error(err))
		return nil
	}
	if err := c.UC.Handle(ctx, ev); err != nil {
		if errors.Is(err, retry.ErrPermanent) {
			c.Log.Warn("email event: dropped", zap.ByteString("key", key), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}

func (c *Controller) Run(ctx context.Context) error {
	err := c.Sub.Consume(ctx, kafkax.StructHandler(c.Handle))
	if err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return nil
}
