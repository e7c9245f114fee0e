package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/realtime"
	"github.com/JakeFAU/crawler-console/internal/state"
)

// errFeedsExhausted is returned by follow when every push channel has given up
// while some task is still running.
var errFeedsExhausted = errors.New("push channels exhausted before tasks finished")

// exhaustGrace is how long follow keeps waiting for queued events after the
// last push channel gave up.
var exhaustGrace = time.Second

// follow opens a push channel per task and prints progress lines to w until
// every task is terminal, every channel of an unfinished task has given up,
// or ctx ends. It returns the final task records.
func follow(ctx context.Context, a App, w io.Writer, ids []string) ([]crawler.Task, error) {
	tasks := a.GetStores().Tasks
	p := &progressPrinter{w: w, last: make(map[string]string), ids: ids}
	done := make(chan struct{})
	var once sync.Once
	onChange := func(s state.TaskSnapshot) {
		p.print(s)
		if allTerminal(s, ids) {
			once.Do(func() { close(done) })
		}
	}
	unsubscribe := tasks.Subscribe(onChange)
	defer func() {
		unsubscribe()
		p.stop()
	}()
	onChange(tasks.Snapshot())

	watcher := a.GetWatcher()
	for _, id := range ids {
		ch, err := watcher.Watch(ctx, id)
		if err == nil {
			continue
		}
		if ch == nil || ch.State() == realtime.StateExhausted {
			return nil, err
		}
		a.GetLogger().Warn("push channel not open yet, retrying", zap.String("task_id", id), zap.Error(err))
	}

	// Events already read from a closed channel may still be in the hub, so
	// exhaustion is only reported once it has held for exhaustGrace.
	var grace <-chan time.Time
	for {
		changed := watcher.Changed()
		if len(exhausted(tasks.Snapshot(), watcher.States(), ids)) == 0 {
			grace = nil
		} else if grace == nil {
			grace = time.After(exhaustGrace)
		}
		select {
		case <-done:
			return selectTasks(tasks.Snapshot(), ids), nil
		case <-ctx.Done():
			return selectTasks(tasks.Snapshot(), ids), nil
		case <-changed:
		case <-grace:
			snap := tasks.Snapshot()
			if stuck := exhausted(snap, watcher.States(), ids); len(stuck) > 0 {
				return selectTasks(snap, ids), fmt.Errorf("%w: %v", errFeedsExhausted, stuck)
			}
			grace = nil
		}
	}
}

// exhausted returns the unfinished tasks whose channels gave up, but only once
// no unfinished task has a live or retrying channel left.
func exhausted(s state.TaskSnapshot, states map[string]realtime.State, ids []string) []string {
	var stuck []string
	for _, id := range ids {
		if task, ok := s.Task(id); ok && task.Status.Terminal() {
			continue
		}
		st, watched := states[id]
		if watched && st != realtime.StateExhausted {
			return nil
		}
		stuck = append(stuck, id)
	}
	return stuck
}

func allTerminal(s state.TaskSnapshot, ids []string) bool {
	for _, id := range ids {
		task, ok := s.Task(id)
		if !ok || !task.Status.Terminal() {
			return false
		}
	}
	return true
}

func selectTasks(s state.TaskSnapshot, ids []string) []crawler.Task {
	out := make([]crawler.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := s.Task(id); ok {
			out = append(out, task)
		}
	}
	return out
}

// progressPrinter writes one line per task whenever its status or progress
// changes.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	ids     []string
	last    map[string]string
	stopped bool
}

func (p *progressPrinter) print(s state.TaskSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	for _, id := range p.ids {
		task, ok := s.Task(id)
		if !ok {
			continue
		}
		line := progressLine(task)
		if p.last[id] == line {
			continue
		}
		p.last[id] = line
		_, _ = fmt.Fprintln(p.w, line)
	}
}

func (p *progressPrinter) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func progressLine(t crawler.Task) string {
	line := fmt.Sprintf("%s  %s  %d/%d (%d%%)", t.ID, t.Status, t.Progress.Current, t.Progress.Total, t.Progress.Percentage)
	if t.ErrorMessage != "" {
		line += "  " + t.ErrorMessage
	}
	return line
}
