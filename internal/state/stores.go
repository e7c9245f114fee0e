package state

import "github.com/JakeFAU/crawler-console/internal/crawler"

// Stores groups the four containers of one console session.
type Stores struct {
	Crawler *CrawlerConfigStore
	Results *ResultStore
	Tasks   *TaskStore
	UI      *UIStore
}

// NewStores builds a fresh set of containers.
func NewStores(ids crawler.IDGenerator) *Stores {
	return &Stores{
		Crawler: NewCrawlerConfigStore(),
		Results: NewResultStore(),
		Tasks:   NewTaskStore(),
		UI:      NewUIStore(ids),
	}
}
