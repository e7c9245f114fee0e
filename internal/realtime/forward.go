package realtime

import (
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/clock/system"
	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/metrics"
	"github.com/JakeFAU/crawler-console/internal/progress"
)

// Forwarder decodes inbound frames and emits the resulting task events. Its
// Handle method is meant to be used as a Channel's OnMessage callback.
type Forwarder struct {
	emitter    progress.Emitter
	connTaskID string
	clock      crawler.Clock
	logger     *zap.Logger
}

// NewForwarder builds a Forwarder. connTaskID is the task of a per-task
// connection and may be empty for a feed carrying many tasks.
func NewForwarder(emitter progress.Emitter, connTaskID string, clock crawler.Clock, logger *zap.Logger) *Forwarder {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		emitter:    emitter,
		connTaskID: connTaskID,
		clock:      clock,
		logger:     logger.Named("realtime"),
	}
}

// Handle decodes raw and emits it. Malformed frames are logged and dropped.
func (f *Forwarder) Handle(raw []byte) {
	evt, err := DecodeEvent(raw, f.connTaskID, f.clock.Now())
	switch {
	case errors.Is(err, ErrNotTaskEvent):
		f.logger.Debug("control frame received")
		return
	case err != nil:
		metrics.ObserveFrame("in", "invalid")
		f.logger.Warn("dropping invalid task event", zap.Error(err))
		return
	}
	f.emitter.Emit(evt)
}
