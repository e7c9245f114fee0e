package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/progress"
	"github.com/JakeFAU/crawler-console/internal/progress/sinks"
	"github.com/JakeFAU/crawler-console/internal/realtime"
	"github.com/JakeFAU/crawler-console/internal/state"
)

// WatchConfig configures a Watcher.
type WatchConfig struct {
	PushRoot          string
	Reconnect         bool
	ReconnectInterval time.Duration
	ReconnectAttempts int
	EventBuffer       int
	Dialer            realtime.Dialer
	Clock             crawler.Clock
	// Sinks receive every decoded task event after the task container.
	Sinks  []progress.Sink
	Logger *zap.Logger
}

// Watcher keeps one push channel per watched task and merges their events
// into the task container through a single event hub.
type Watcher struct {
	cfg    WatchConfig
	hub    *progress.Hub
	logger *zap.Logger

	mu       sync.Mutex
	channels map[string]*realtime.Channel
	changed  chan struct{}
	closed   bool
}

// NewWatcher starts the event hub. Events reach the task container first,
// then the log sink, then cfg.Sinks.
func NewWatcher(cfg WatchConfig, tasks *state.TaskStore) (*Watcher, error) {
	if cfg.PushRoot == "" {
		return nil, errors.New("push root is required")
	}
	if cfg.Dialer == nil {
		return nil, errors.New("realtime dialer is required")
	}
	if tasks == nil {
		return nil, errors.New("task container is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	all := []progress.Sink{
		sinks.NewStoreSink(tasks, logger.Named("tasks")),
		sinks.NewLogSink(logger.Named("events")),
	}
	all = append(all, cfg.Sinks...)
	hub := progress.NewHub(progress.Config{
		BufferSize:       cfg.EventBuffer,
		CoalesceProgress: true,
		Logger:           logger,
	}, all...)
	return &Watcher{
		cfg:      cfg,
		hub:      hub,
		logger:   logger.Named("watch"),
		channels: make(map[string]*realtime.Channel),
		changed:  make(chan struct{}),
	}, nil
}

// Watch opens the push channel for taskID. Watching a task twice returns the
// existing channel. A failed first dial still leaves the channel registered
// so its reconnect schedule can run.
func (w *Watcher) Watch(ctx context.Context, taskID string) (*realtime.Channel, error) {
	if taskID == "" {
		return nil, errors.New("task id is required")
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, realtime.ErrClosed
	}
	if ch, ok := w.channels[taskID]; ok {
		w.mu.Unlock()
		return ch, nil
	}
	logger := w.logger.With(zap.String("task_id", taskID))
	fwd := realtime.NewForwarder(w.hub, taskID, w.cfg.Clock, w.logger)
	ch, err := realtime.New(realtime.Options{
		URL:               realtime.BuildURL(w.cfg.PushRoot, realtime.TaskPath(taskID)),
		Reconnect:         w.cfg.Reconnect,
		ReconnectInterval: w.cfg.ReconnectInterval,
		ReconnectAttempts: w.cfg.ReconnectAttempts,
		Dialer:            w.cfg.Dialer,
		Logger:            w.logger,
		OnOpen:            func() { logger.Info("watching task") },
		OnMessage:         fwd.Handle,
		OnError:           func(err error) { logger.Warn("push channel error", zap.Error(err)) },
		OnClose: func(s realtime.State) {
			logger.Debug("push channel closed", zap.String("state", string(s)))
			w.notifyChanged()
		},
	})
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.channels[taskID] = ch
	w.mu.Unlock()

	if err := ch.Connect(ctx); err != nil {
		return ch, fmt.Errorf("watch task %s: %w", taskID, err)
	}
	return ch, nil
}

// Unwatch closes the channel for taskID. Unknown ids are ignored.
func (w *Watcher) Unwatch(taskID string) error {
	w.mu.Lock()
	ch, ok := w.channels[taskID]
	delete(w.channels, taskID)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return ch.Close()
}

// Watching returns the watched task ids in sorted order.
func (w *Watcher) Watching() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.channels))
	for id := range w.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// States reports the connection state of every watched task.
func (w *Watcher) States() map[string]realtime.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]realtime.State, len(w.channels))
	for id, ch := range w.channels {
		out[id] = ch.State()
	}
	return out
}

// Changed returns a channel that is closed the next time any watched
// channel closes. Callers re-read States and call Changed again.
func (w *Watcher) Changed() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changed
}

func (w *Watcher) notifyChanged() {
	w.mu.Lock()
	close(w.changed)
	w.changed = make(chan struct{})
	w.mu.Unlock()
}

// Close closes every channel, then drains the hub so events already received
// reach the task container.
func (w *Watcher) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	channels := w.channels
	w.channels = make(map[string]*realtime.Channel)
	w.mu.Unlock()

	var errs []error
	for id, ch := range channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %s: %w", id, err))
		}
	}
	if err := w.hub.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
