package sinks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/progress"
)

// TestStoreSinkAppliesInOrder ensures events reach the container in batch order.
func TestStoreSinkAppliesInOrder(t *testing.T) {
	t.Parallel()

	tasks := &fakeApplier{}
	sink := NewStoreSink(tasks, nil)
	now := time.Now()
	p1, p2 := crawler.NewProgress(1, 4), crawler.NewProgress(2, 4)
	batch := []progress.Event{
		{Type: progress.TypeStarted, TaskID: "t1", TS: now, Status: crawler.StatusRunning},
		{Type: progress.TypeProgress, TaskID: "t1", TS: now, Progress: &p1},
		{Type: progress.TypeProgress, TaskID: "t1", TS: now, Progress: &p2},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Equal(t, []progress.Type{progress.TypeStarted, progress.TypeProgress, progress.TypeProgress}, tasks.types())
	require.NoError(t, sink.Close(context.Background()))
}

// TestStoreSinkLogsIgnoredEvents surfaces refused merges at debug level.
func TestStoreSinkLogsIgnoredEvents(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewStoreSink(&fakeApplier{refuse: true}, zap.New(core))
	p := crawler.NewProgress(1, 2)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Type: progress.TypeProgress, TaskID: "t9", TS: time.Now(), Progress: &p},
	}))
	require.Equal(t, 1, logs.FilterMessage("task event ignored").Len())
}

func TestStoreSinkHonorsContext(t *testing.T) {
	t.Parallel()

	tasks := &fakeApplier{}
	sink := NewStoreSink(tasks, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := crawler.NewProgress(1, 2)
	err := sink.Consume(ctx, []progress.Event{{Type: progress.TypeProgress, TaskID: "t", TS: time.Now(), Progress: &p}})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, tasks.types())
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))
	p := crawler.NewProgress(1, 2)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Type: progress.TypeError, TaskID: "t", TS: time.Now(), Status: crawler.StatusFailed, Message: "boom"},
		{Type: progress.TypeProgress, TaskID: "t", TS: time.Now(), Progress: &p},
		{Type: progress.TypeLog, TaskID: "t", TS: time.Now(), Log: &crawler.TaskLog{Level: crawler.LogInfo, Message: "page 2"}},
	}))
	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "boom", entries[0].ContextMap()["message"])
	require.Equal(t, zapcore.DebugLevel, entries[1].Level)
	require.Equal(t, zapcore.DebugLevel, entries[2].Level)
}

type fakeApplier struct {
	mu     sync.Mutex
	refuse bool
	seen   []progress.Type
}

func (f *fakeApplier) ApplyEvent(evt progress.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false
	}
	f.seen = append(f.seen, evt.Type)
	return true
}

func (f *fakeApplier) types() []progress.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progress.Type(nil), f.seen...)
}
