// Package progress provides the task event primitives and the hub that
// carries realtime task events from the push channels to their consumers.
// A single goroutine delivers batches to pluggable sinks such as the task
// container, Prometheus metrics or a structured log, keeping each task's
// events in arrival order.
package progress
