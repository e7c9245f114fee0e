package service

import (
	"context"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// CrawlerService starts crawls and controls running tasks.
type CrawlerService struct {
	client *transport.Client
}

// PlatformStatus is one entry of GET /crawler/platforms.
type PlatformStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Supported   bool   `json:"supported"`
}

// ConfigUpdate is a partial crawler configuration for PUT /crawler/config.
// Nil fields are omitted.
type ConfigUpdate struct {
	Platforms      []crawler.Platform     `json:"platforms,omitempty"`
	Keywords       *string                `json:"keywords,omitempty"`
	CrawlerType    *crawler.CrawlerType   `json:"crawlerType,omitempty"`
	Limit          *int                   `json:"limit,omitempty"`
	Filters        *crawler.FilterOptions `json:"filters,omitempty"`
	Priority       *crawler.Priority      `json:"priority,omitempty"`
	EnableProxy    *bool                  `json:"enableProxy,omitempty"`
	EnableComments *bool                  `json:"enableComments,omitempty"`
}

// Start launches a crawl and returns the task the backend created.
func (s *CrawlerService) Start(ctx context.Context, req crawler.StartRequest) (crawler.Task, error) {
	env, err := transport.Post[crawler.Task](ctx, s.client, "/crawler/start", req)
	return env.Data, err
}

// Pause asks the backend to pause a running task.
func (s *CrawlerService) Pause(ctx context.Context, taskID string) (crawler.TaskActionResponse, error) {
	return s.action(ctx, "pause", taskID)
}

// Resume asks the backend to resume a paused task.
func (s *CrawlerService) Resume(ctx context.Context, taskID string) (crawler.TaskActionResponse, error) {
	return s.action(ctx, "resume", taskID)
}

// Cancel asks the backend to cancel a running or paused task.
func (s *CrawlerService) Cancel(ctx context.Context, taskID string) (crawler.TaskActionResponse, error) {
	return s.action(ctx, "cancel", taskID)
}

func (s *CrawlerService) action(ctx context.Context, verb, taskID string) (crawler.TaskActionResponse, error) {
	id, err := segment("task id", taskID)
	if err != nil {
		return crawler.TaskActionResponse{}, err
	}
	env, err := transport.Post[crawler.TaskActionResponse](ctx, s.client, "/crawler/"+verb+"/"+id, nil)
	return env.Data, err
}

// Platforms lists the platforms the backend can crawl.
func (s *CrawlerService) Platforms(ctx context.Context) ([]PlatformStatus, error) {
	env, err := transport.Get[struct {
		Platforms []PlatformStatus `json:"platforms"`
	}](ctx, s.client, "/crawler/platforms")
	return env.Data.Platforms, err
}

// Config returns the backend's stored crawler configuration.
func (s *CrawlerService) Config(ctx context.Context) (crawler.Config, error) {
	env, err := transport.Get[crawler.Config](ctx, s.client, "/crawler/config")
	return env.Data, err
}

// UpdateConfig stores a partial crawler configuration and returns the result.
func (s *CrawlerService) UpdateConfig(ctx context.Context, update ConfigUpdate) (crawler.Config, error) {
	env, err := transport.Put[crawler.Config](ctx, s.client, "/crawler/config", update)
	return env.Data, err
}
