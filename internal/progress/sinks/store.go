package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/progress"
)

// TaskApplier merges a task event into client state. It reports whether the
// event changed anything.
type TaskApplier interface {
	ApplyEvent(evt progress.Event) bool
}

// StoreSink merges events into the task container in arrival order.
type StoreSink struct {
	tasks  TaskApplier
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided container.
func NewStoreSink(tasks TaskApplier, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{tasks: tasks, logger: logger}
}

// Consume applies every event in order. Events the container ignores, such
// as progress for a task that already finished, are logged at debug.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.tasks == nil {
		return nil
	}
	for _, evt := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.tasks.ApplyEvent(evt) {
			s.logger.Debug("task event ignored",
				zap.String("task_id", evt.TaskID),
				zap.String("type", string(evt.Type)),
			)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
