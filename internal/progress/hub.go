package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Hub.
//   - BufferSize: capacity of the inbound queue (default 256).
//   - MaxBatchEvents: a batch is delivered once it holds this many events (default 64).
//   - MaxBatchWait: a batch is delivered this long after its first event at the latest (default 50ms).
//   - SinkTimeout: deadline for one sink call (default 10s).
//   - CoalesceProgress: within one batch, a progress event replaces the
//     task's previous progress event when nothing else arrived for that task
//     in between.
//   - BaseContext: parent of every sink call context (default context.Background()).
//   - Logger: optional structured logger.
type Config struct {
	BufferSize       int
	MaxBatchEvents   int
	MaxBatchWait     time.Duration
	SinkTimeout      time.Duration
	CoalesceProgress bool
	BaseContext      context.Context
	Logger           *zap.Logger
}

const (
	defaultBufferSize     = 256
	defaultMaxBatchEvents = 64
	defaultMaxBatchWait   = 50 * time.Millisecond
	defaultSinkTimeout    = 10 * time.Second
	stallLogInterval      = 5 * time.Second
)

// Hub delivers task events to its sinks from a single goroutine, in the order
// they were emitted per task. Emit is safe for concurrent use. When the queue
// is full Emit waits for room, so a slow sink slows the producer instead of
// losing events.
type Hub struct {
	cfg    Config
	sinks  []Sink
	events chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	stalls       atomic.Int64
	unreported   atomic.Int64
	lastStallLog atomic.Int64

	closed    atomic.Bool
	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub applies defaults to cfg and starts the delivery goroutine.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatchEvents <= 0 {
		cfg.MaxBatchEvents = defaultMaxBatchEvents
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  live,
		events: make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.Named("events"),
	}
	go h.run()
	return h
}

// Emit validates evt and queues it. Invalid events and events emitted after
// Close are discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid task event", zap.Error(err))
		return
	}
	select {
	case h.events <- evt:
		return
	default:
	}
	h.noteStall(time.Now())
	select {
	case h.events <- evt:
	case <-h.stop:
		h.logger.Debug("task event discarded at shutdown", zap.String("task_id", evt.TaskID), zap.String("type", string(evt.Type)))
	}
}

// Stalls returns how many Emit calls found the queue full and had to wait.
func (h *Hub) Stalls() int64 {
	return h.stalls.Load()
}

func (h *Hub) noteStall(now time.Time) {
	h.stalls.Add(1)
	h.unreported.Add(1)
	last := h.lastStallLog.Load()
	if now.UnixNano()-last < stallLogInterval.Nanoseconds() {
		return
	}
	if !h.lastStallLog.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	h.logger.Warn("task event queue full, applying backpressure", zap.Int64("stalls", h.unreported.Swap(0)))
}

// Close stops intake, delivers everything still queued, closes the sinks and
// waits for the delivery goroutine. Later calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)
	batch := newPending(h.cfg.MaxBatchEvents, h.cfg.CoalesceProgress)
	timer := time.NewTimer(h.cfg.MaxBatchWait)
	timer.Stop()
	var deadline <-chan time.Time
	for {
		select {
		case evt := <-h.events:
			if batch.len() == 0 {
				timer.Reset(h.cfg.MaxBatchWait)
				deadline = timer.C
			}
			batch.add(evt)
			if batch.len() >= h.cfg.MaxBatchEvents {
				timer.Stop()
				deadline = nil
				h.deliver(batch.take())
			}
		case <-deadline:
			deadline = nil
			h.deliver(batch.take())
		case <-h.stop:
			timer.Stop()
			h.drain(batch)
			h.closeSinks()
			return
		}
	}
}

// drain delivers whatever is queued without waiting for more.
func (h *Hub) drain(batch *pending) {
	for {
		select {
		case evt := <-h.events:
			batch.add(evt)
			if batch.len() >= h.cfg.MaxBatchEvents {
				h.deliver(batch.take())
			}
		default:
			h.deliver(batch.take())
			return
		}
	}
}

func (h *Hub) deliver(batch []Event) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		err := sink.Consume(ctx, batch)
		cancel()
		if err != nil {
			h.logger.Warn("event sink consume failed", zap.Error(err), zap.Int("batch", len(batch)))
		}
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("event sink close failed", zap.Error(err))
		}
	}
}

// pending is the batch under assembly. latest maps a task id to the index of
// its most recent event in events.
type pending struct {
	events   []Event
	latest   map[string]int
	coalesce bool
}

func newPending(size int, coalesce bool) *pending {
	return &pending{
		events:   make([]Event, 0, size),
		latest:   make(map[string]int),
		coalesce: coalesce,
	}
}

func (p *pending) len() int { return len(p.events) }

func (p *pending) add(evt Event) {
	if p.coalesce && evt.Type == TypeProgress {
		if i, ok := p.latest[evt.TaskID]; ok && p.events[i].Type == TypeProgress {
			p.events[i] = evt
			return
		}
	}
	p.latest[evt.TaskID] = len(p.events)
	p.events = append(p.events, evt)
}

// take hands the batch to the caller and starts a fresh one.
func (p *pending) take() []Event {
	out := p.events
	p.events = make([]Event, 0, cap(out))
	clear(p.latest)
	return out
}
