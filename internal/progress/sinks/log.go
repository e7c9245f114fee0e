package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/progress"
)

// LogSink emits structured logs for task event streams. Status changes log at
// info; progress and log lines at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("task_id", evt.TaskID),
			zap.String("type", string(evt.Type)),
			zap.Time("ts", evt.TS),
		}
		switch {
		case evt.Type.ChangesStatus():
			fields = append(fields, zap.String("status", string(evt.Status)))
			if evt.Message != "" {
				fields = append(fields, zap.String("message", evt.Message))
			}
			s.logger.Info("task status event", fields...)
		case evt.Progress != nil:
			fields = append(fields,
				zap.Int("current", evt.Progress.Current),
				zap.Int("total", evt.Progress.Total),
				zap.Int("percentage", evt.Progress.Percentage),
			)
			s.logger.Debug("task progress event", fields...)
		case evt.Log != nil:
			fields = append(fields,
				zap.String("level", string(evt.Log.Level)),
				zap.String("message", evt.Log.Message),
			)
			s.logger.Debug("task log event", fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
