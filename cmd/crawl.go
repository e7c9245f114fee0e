package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand, which fills the crawl draft
// from a preset and flags and starts one task per selected platform.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Starts crawl tasks on the backend",
		Long: `Builds a crawl configuration from an optional preset and the flags given,
validates it and starts one task per selected platform. With --follow the
command stays attached to the push channel until every task finishes.`,
		Example: `  crawler-console crawl -p xiaohongshu -p douyin -k coffee --limit 50
  crawler-console crawl --preset trending --follow`,
		RunE: runCrawlCommand,
	}
	f := cmd.Flags()
	f.StringSliceP("platform", "p", nil, "platforms to crawl (repeatable)")
	f.StringP("keywords", "k", "", "search keywords")
	f.StringP("type", "t", "", "crawl type: search, detail, creator, video, note or comment")
	f.Int("limit", 0, "maximum number of items per task")
	f.String("priority", "", "task priority: low, medium or high")
	f.String("preset", "", "named preset from the config file")
	f.Bool("proxy", false, "route requests through the proxy pool")
	f.Bool("comments", false, "also collect comments")
	f.Bool("follow", false, "follow task progress until completion")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, appInstance); err != nil {
		return err
	}

	tasks, err := appInstance.GetController().StartCrawl(cmd.Context())
	if len(tasks) == 0 {
		if err == nil {
			err = fmt.Errorf("no task started")
		}
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "some platforms failed to start: %v\n", err)
	}

	if follow, _ := cmd.Flags().GetBool("follow"); follow {
		ids := make([]string, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		final, ferr := followTasks(cmd, appInstance, ids)
		if ferr != nil {
			return ferr
		}
		tasks = final
	}
	return renderTasks(cmd, tasks, len(tasks))
}

func applyCrawlFlags(cmd *cobra.Command, a App) error {
	f := cmd.Flags()
	draft := a.GetStores().Crawler
	if preset, _ := f.GetString("preset"); preset != "" {
		if err := a.ApplyPreset(preset); err != nil {
			return err
		}
	}
	if f.Changed("platform") {
		raw, _ := f.GetStringSlice("platform")
		platforms := make([]crawler.Platform, 0, len(raw))
		for _, r := range raw {
			p, err := crawler.ParsePlatform(r)
			if err != nil {
				return err
			}
			platforms = append(platforms, p)
		}
		draft.SetSelectedPlatforms(platforms)
	}
	if f.Changed("keywords") {
		kw, _ := f.GetString("keywords")
		draft.SetKeywords(kw)
	}
	if f.Changed("type") {
		raw, _ := f.GetString("type")
		t := crawler.CrawlerType(raw)
		if !t.Valid() {
			return fmt.Errorf("unknown crawl type %q", raw)
		}
		draft.SetCrawlerType(t)
	}
	if f.Changed("limit") {
		limit, _ := f.GetInt("limit")
		draft.SetLimit(limit)
	}
	if f.Changed("priority") {
		raw, _ := f.GetString("priority")
		p := crawler.Priority(raw)
		switch p {
		case crawler.PriorityLow, crawler.PriorityMedium, crawler.PriorityHigh:
		default:
			return fmt.Errorf("unknown priority %q", raw)
		}
		draft.SetPriority(p)
	}
	if f.Changed("proxy") {
		on, _ := f.GetBool("proxy")
		draft.SetEnableProxy(on)
	}
	if f.Changed("comments") {
		on, _ := f.GetBool("comments")
		draft.SetEnableComments(on)
	}
	return nil
}

func followTasks(cmd *cobra.Command, a App, ids []string) ([]crawler.Task, error) {
	return follow(cmd.Context(), a, cmd.ErrOrStderr(), ids)
}

func renderTasks(cmd *cobra.Command, tasks []crawler.Task, total int) error {
	payload := map[string]any{"tasks": tasks, "total": total}
	return render(cmd, payload, func(w io.Writer) error {
		rows := make([]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s\t%d/%d\t%d%%",
				t.ID, t.Platform, t.CrawlerType, t.Status, t.Progress.Current, t.Progress.Total, t.Progress.Percentage))
		}
		return table(w, "ID\tPLATFORM\tTYPE\tSTATUS\tITEMS\tPROGRESS", rows)
	})
}
