package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms follow a task's lifecycle.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	start := time.Now()
	half := crawler.NewProgress(25, 50)
	batch := []progress.Event{
		{Type: progress.TypeStarted, TaskID: "t1", TS: start, Status: crawler.StatusRunning},
		{Type: progress.TypeProgress, TaskID: "t1", TS: start.Add(5 * time.Second), Progress: &half},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksRunning))
	require.Equal(t, 25.0, testutil.ToFloat64(sink.itemsReported))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Type: progress.TypeCompleted, TaskID: "t1", TS: start.Add(15 * time.Second), Status: crawler.StatusCompleted},
	}))

	require.Equal(t, 0.0, testutil.ToFloat64(sink.tasksRunning))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.itemsReported))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksFinished.WithLabelValues("completed")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.tasksFinished.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues(string(progress.TypeProgress))))
	require.Equal(t, 1, testutil.CollectAndCount(sink.taskRuntime, "console_task_runtime_seconds"))
}

func TestPrometheusSinkDuplicateStart(t *testing.T) {
	t.Parallel()

	sink, err := NewPrometheusSink(prometheus.NewRegistry())
	require.NoError(t, err)

	evt := progress.Event{Type: progress.TypeStarted, TaskID: "t1", TS: time.Now(), Status: crawler.StatusRunning}
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{evt, evt}))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.tasksStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.tasksRunning))
}

func TestPrometheusSinkRegisterConflict(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
