// Package state holds the console's client-side truth in four observable
// containers: the crawler config draft, the result page with its selection,
// the task list with its progress map, and the UI chrome.
//
// Every container is mutated only through its named setters. Setters never
// validate their arguments. After each effective mutation the container
// stamps a new version and invokes subscribers synchronously, in the calling
// goroutine, with a deep-copied snapshot.
package state
