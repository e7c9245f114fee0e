package service

import (
	"context"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// StatisticsService reads aggregate statistics.
type StatisticsService struct {
	client *transport.Client
}

// TimelineParams narrows GET /statistics/timeline.
type TimelineParams struct {
	StartDate   string
	EndDate     string
	Granularity crawler.Granularity
}

// EngagementParams narrows GET /statistics/engagement.
type EngagementParams struct {
	Platform  crawler.Platform
	StartDate string
	EndDate   string
}

// Summary returns overall totals and distributions.
func (s *StatisticsService) Summary(ctx context.Context) (crawler.StatisticsSummary, error) {
	env, err := transport.Get[crawler.StatisticsSummary](ctx, s.client, "/statistics/summary")
	return env.Data, err
}

// Platforms returns per-platform counts and averages.
func (s *StatisticsService) Platforms(ctx context.Context) ([]crawler.PlatformStatistics, error) {
	env, err := transport.Get[[]crawler.PlatformStatistics](ctx, s.client, "/statistics/platform")
	return env.Data, err
}

// Timeline returns counts bucketed by p.Granularity.
func (s *StatisticsService) Timeline(ctx context.Context, p TimelineParams) ([]crawler.TimelineStatistics, error) {
	env, err := transport.Get[[]crawler.TimelineStatistics](ctx, s.client, "/statistics/timeline",
		transport.WithQuery("startDate", p.StartDate),
		transport.WithQuery("endDate", p.EndDate),
		transport.WithQuery("granularity", string(p.Granularity)),
	)
	return env.Data, err
}

// Keywords returns keyword frequencies.
func (s *StatisticsService) Keywords(ctx context.Context, limit, minCount int) ([]crawler.KeywordStatistics, error) {
	env, err := transport.Get[[]crawler.KeywordStatistics](ctx, s.client, "/statistics/keywords",
		transport.WithQueryInt("limit", limit),
		transport.WithQueryInt("minCount", minCount),
	)
	return env.Data, err
}

// TopAuthors returns the most prolific authors, optionally for one platform.
func (s *StatisticsService) TopAuthors(ctx context.Context, limit int, platform crawler.Platform) ([]crawler.AuthorStatistics, error) {
	env, err := transport.Get[[]crawler.AuthorStatistics](ctx, s.client, "/statistics/top-authors",
		transport.WithQueryInt("limit", limit),
		transport.WithQuery("platform", string(platform)),
	)
	return env.Data, err
}

// Engagement returns engagement totals and averages.
func (s *StatisticsService) Engagement(ctx context.Context, p EngagementParams) (crawler.EngagementStatistics, error) {
	env, err := transport.Get[crawler.EngagementStatistics](ctx, s.client, "/statistics/engagement",
		transport.WithQuery("platform", string(p.Platform)),
		transport.WithQuery("startDate", p.StartDate),
		transport.WithQuery("endDate", p.EndDate),
	)
	return env.Data, err
}
