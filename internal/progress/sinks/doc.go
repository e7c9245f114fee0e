// Package sinks implements concrete task event consumers: the task container
// merge, Prometheus metrics and structured logging. Each sink satisfies the
// progress.Sink interface and is safe for repeated Consume/Close cycles.
package sinks
