package progress

import "context"

// Sink consumes batches of task events. Implementations must be safe for
// repeated calls and honor ctx deadlines. Batches arrive in emission order.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// realtime channel can remain agnostic about how events are consumed.
type Emitter interface {
	Emit(evt Event)
}
