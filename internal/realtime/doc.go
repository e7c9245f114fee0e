// Package realtime maintains the console's push connection to the crawler
// backend and decodes the task events it delivers.
//
// A Channel owns at most one websocket at a time. It reconnects after
// unexpected closes on a fixed interval until a bounded number of attempts
// is spent, and it never queues outbound messages while disconnected.
package realtime
