// Package crawler holds the console's view of the crawling backend: the
// platform catalog, crawl drafts and their validation, the task state machine,
// results, pagination math and statistics shapes. It has no I/O.
package crawler
