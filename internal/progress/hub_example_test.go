package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

type exampleCountingSink struct {
	total int
}

func (s *exampleCountingSink) Consume(_ context.Context, batch []Event) error {
	s.total += len(batch)
	return nil
}

func (s *exampleCountingSink) Close(context.Context) error {
	return nil
}

// ExampleHub_Emit demonstrates emitting an event and flushing via Close.
func ExampleHub_Emit() {
	sink := &exampleCountingSink{}
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, sink)

	hub.Emit(Event{
		Type:   TypeStarted,
		TaskID: "task-1",
		TS:     time.Unix(0, 1),
		Status: crawler.StatusRunning,
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("events forwarded: %d\n", sink.total)
	// Output:
	// events forwarded: 1
}

// ExampleSink implements a custom Sink that tracks the latest percentage.
func ExampleSink() {
	var latest int
	capture := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			if evt.Progress != nil {
				latest = evt.Progress.Percentage
			}
		}
		return nil
	})
	hub := NewHub(Config{
		BufferSize:     2,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, capture)

	p := crawler.NewProgress(25, 50)
	hub.Emit(Event{Type: TypeProgress, TaskID: "task-1", TS: time.Unix(0, 1), Progress: &p})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("percentage: %d\n", latest)
	// Output:
	// percentage: 50
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
