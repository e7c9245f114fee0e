package service

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// ErrEmptyIDs is returned by batch operations called with no ids. Nothing is
// sent to the backend.
var ErrEmptyIDs = errors.New("no ids given")

// Services bundles the four domain services over one transport.
type Services struct {
	Crawler    *CrawlerService
	Tasks      *TaskService
	Results    *ResultService
	Statistics *StatisticsService
}

// New builds every service on top of client.
func New(client *transport.Client) *Services {
	return &Services{
		Crawler:    &CrawlerService{client: client},
		Tasks:      &TaskService{client: client},
		Results:    &ResultService{client: client},
		Statistics: &StatisticsService{client: client},
	}
}

// segment escapes a path parameter, refusing empty values before any
// request is built.
func segment(name, value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", transport.ErrRequestBuild, name)
	}
	return url.PathEscape(value), nil
}

func pageOptions(page, pageSize int) []transport.RequestOption {
	return []transport.RequestOption{
		transport.WithQueryInt("page", page),
		transport.WithQueryInt("pageSize", pageSize),
	}
}

func filterOptions(f crawler.ResultsFilter) []transport.RequestOption {
	opts := []transport.RequestOption{
		transport.WithQuery("platform", string(f.Platform)),
		transport.WithQuery("keyword", f.Keyword),
		transport.WithQuery("startDate", f.StartDate),
		transport.WithQuery("endDate", f.EndDate),
		transport.WithQuery("sortBy", f.SortBy),
		transport.WithQuery("sortOrder", string(f.SortOrder)),
	}
	if f.MinLikes != nil {
		opts = append(opts, transport.WithQuery("minLikes", fmt.Sprint(*f.MinLikes)))
	}
	if f.MaxLikes != nil {
		opts = append(opts, transport.WithQuery("maxLikes", fmt.Sprint(*f.MaxLikes)))
	}
	return opts
}
