package notification

import "context"

type LogRepo interface {
	Create(ctx context.Context, e *LogEntry) error
}
