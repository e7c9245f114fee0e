package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawler-console/internal/console"
	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// newStatsCmd creates the 'stats' subcommand, which loads the statistics
// dashboard.
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Shows the statistics dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCommand,
	}
	cmd.Flags().String("platform", "", "narrow authors and engagement to one platform")
	cmd.Flags().String("start", "", "timeline start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "timeline end date (YYYY-MM-DD)")
	cmd.Flags().String("granularity", string(crawler.GranularityDay), "timeline buckets: day, week or month")
	return cmd
}

func runStatsCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	f := cmd.Flags()
	var params console.DashboardParams
	if raw, _ := f.GetString("platform"); raw != "" {
		p, err := crawler.ParsePlatform(raw)
		if err != nil {
			return err
		}
		params.Platform = p
	}
	params.StartDate, _ = f.GetString("start")
	params.EndDate, _ = f.GetString("end")
	raw, _ := f.GetString("granularity")
	params.Granularity = crawler.Granularity(raw)
	switch params.Granularity {
	case crawler.GranularityDay, crawler.GranularityWeek, crawler.GranularityMonth:
	default:
		return fmt.Errorf("unknown granularity %q", raw)
	}

	d, err := appInstance.GetController().Dashboard(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("load statistics: %w", err)
	}
	return render(cmd, d, func(w io.Writer) error {
		rows := []string{
			fmt.Sprintf("tasks\t%d", d.Tasks.TotalTasks),
			fmt.Sprintf("running\t%d", d.Tasks.RunningTasks),
			fmt.Sprintf("completed\t%d", d.Tasks.CompletedTasks),
			fmt.Sprintf("failed\t%d", d.Tasks.FailedTasks),
			fmt.Sprintf("pending\t%d", d.Tasks.PendingTasks),
			fmt.Sprintf("results\t%d", d.Summary.TotalResults),
			fmt.Sprintf("comments\t%d", d.Summary.TotalComments),
		}
		if err := table(w, "METRIC\tVALUE", rows); err != nil {
			return err
		}
		if len(d.Platforms) == 0 {
			return nil
		}
		rows = rows[:0]
		for _, p := range d.Platforms {
			rows = append(rows, fmt.Sprintf("%s\t%d\t%.1f%%", p.Platform, p.Count, p.Percentage))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return table(w, "PLATFORM\tCOUNT\tSHARE", rows)
	})
}
