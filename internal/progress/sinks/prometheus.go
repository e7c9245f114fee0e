package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/crawler-console/internal/progress"
)

// PrometheusSink exports task event metrics via Prometheus. It owns all
// collectors for tasks started/finished/running and per-type event counters.
type PrometheusSink struct {
	events        *prometheus.CounterVec
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	tasksRunning  prometheus.Gauge
	taskRuntime   *prometheus.HistogramVec
	itemsReported prometheus.Gauge

	tracker *taskTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_task_events_total",
			Help: "Task events received, partitioned by type.",
		}, []string{"type"}),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_tasks_started_total",
			Help: "Tasks observed entering running.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_tasks_finished_total",
			Help: "Tasks observed reaching a terminal status, partitioned by status.",
		}, []string{"status"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_tasks_running",
			Help: "Tasks currently running as seen by this console.",
		}),
		taskRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_task_runtime_seconds",
			Help:    "Wall time between a task's started and terminal events.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"status"}),
		itemsReported: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_task_items_reported",
			Help: "Sum of the latest item counts reported by running tasks.",
		}),
		tracker: newTaskTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.events,
		s.tasksStarted,
		s.tasksFinished,
		s.tasksRunning,
		s.taskRuntime,
		s.itemsReported,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register task event collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	s.events.WithLabelValues(string(evt.Type)).Inc()
	switch evt.Type {
	case progress.TypeStarted:
		s.tasksStarted.Inc()
		if s.tracker.start(evt.TaskID, evt.TS) {
			s.tasksRunning.Inc()
		}
	case progress.TypeCompleted, progress.TypeError:
		status := string(evt.Status)
		s.tasksFinished.WithLabelValues(status).Inc()
		started, items, ok := s.tracker.complete(evt.TaskID)
		if !ok {
			return
		}
		s.tasksRunning.Dec()
		s.itemsReported.Sub(float64(items))
		if runtime := evt.TS.Sub(started); runtime > 0 {
			s.taskRuntime.WithLabelValues(status).Observe(runtime.Seconds())
		}
	case progress.TypeProgress:
		if delta, ok := s.tracker.items(evt.TaskID, evt.Progress.Current); ok {
			s.itemsReported.Add(float64(delta))
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type trackedTask struct {
	started time.Time
	items   int
}

type taskTracker struct {
	mu      sync.Mutex
	running map[string]*trackedTask
}

func newTaskTracker() *taskTracker {
	return &taskTracker{running: make(map[string]*trackedTask)}
}

func (t *taskTracker) start(id string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = &trackedTask{started: at}
	return true
}

func (t *taskTracker) items(id string, current int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.running[id]
	if !ok {
		return 0, false
	}
	delta := current - task.items
	task.items = current
	return delta, true
}

func (t *taskTracker) complete(id string) (time.Time, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.running[id]
	if !ok {
		return time.Time{}, 0, false
	}
	delete(t.running, id)
	return task.started, task.items, true
}
