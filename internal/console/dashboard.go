package console

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/service"
	"github.com/JakeFAU/crawler-console/internal/state"
)

// Dashboard defaults.
const (
	DefaultKeywordLimit = 20
	DefaultAuthorLimit  = 10
)

// DashboardParams narrows the statistics shown on the dashboard.
type DashboardParams struct {
	Platform    crawler.Platform
	StartDate   string
	EndDate     string
	Granularity crawler.Granularity
}

// Dashboard is everything the statistics view renders.
type Dashboard struct {
	Tasks      crawler.TaskStatistics       `json:"tasks" yaml:"tasks"`
	Summary    crawler.StatisticsSummary    `json:"summary" yaml:"summary"`
	Platforms  []crawler.PlatformStatistics `json:"platforms" yaml:"platforms"`
	Timeline   []crawler.TimelineStatistics `json:"timeline" yaml:"timeline"`
	Keywords   []crawler.KeywordStatistics  `json:"keywords" yaml:"keywords"`
	TopAuthors []crawler.AuthorStatistics   `json:"topAuthors" yaml:"top_authors"`
	Engagement crawler.EngagementStatistics `json:"engagement" yaml:"engagement"`
}

// Dashboard loads every statistics view concurrently. The first failure
// cancels the remaining requests.
func (c *Controller) Dashboard(ctx context.Context, p DashboardParams) (Dashboard, error) {
	if p.Granularity == "" {
		p.Granularity = crawler.GranularityDay
	}
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	stats := c.services.Statistics

	g.Go(func() error {
		var err error
		d.Tasks, err = c.services.Tasks.Statistics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Summary, err = stats.Summary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Platforms, err = stats.Platforms(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Timeline, err = stats.Timeline(gctx, service.TimelineParams{
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Granularity: p.Granularity,
		})
		return err
	})
	g.Go(func() error {
		var err error
		d.Keywords, err = stats.Keywords(gctx, DefaultKeywordLimit, 0)
		return err
	})
	g.Go(func() error {
		var err error
		d.TopAuthors, err = stats.TopAuthors(gctx, DefaultAuthorLimit, p.Platform)
		return err
	})
	g.Go(func() error {
		var err error
		d.Engagement, err = stats.Engagement(gctx, service.EngagementParams{
			Platform:  p.Platform,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		c.logger.Warn("dashboard load failed", zap.Error(err))
		c.stores.UI.AddNotification(state.NotifyError, msgStatsFailed)
		return Dashboard{}, err
	}
	return d, nil
}
