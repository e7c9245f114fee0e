package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JakeFAU/crawler-console/internal/crawler"
)

// newResultsCmd creates the 'results' command group.
func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Browses, deletes and exports crawl results",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lists one page of results",
		Args:  cobra.NoArgs,
		RunE:  runResultsList,
	}
	addFilterFlags(list.Flags())
	list.Flags().Int("page", 1, "page number")
	list.Flags().Int("page-size", 0, "results per page (default from config)")

	del := &cobra.Command{
		Use:   "delete RESULT_ID...",
		Short: "Deletes results",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runResultsDelete,
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Exports the results matching the filters",
		Args:  cobra.NoArgs,
		RunE:  runResultsExport,
	}
	addFilterFlags(export.Flags())
	export.Flags().String("format", string(crawler.ExportJSON), "export format: json, csv or excel")

	cmd.AddCommand(list, del, export)
	return cmd
}

func addFilterFlags(f *pflag.FlagSet) {
	f.String("platform", "", "only results from this platform")
	f.String("keyword", "", "full-text keyword")
	f.Int("min-likes", 0, "minimum likes")
	f.Int("max-likes", 0, "maximum likes")
	f.String("start", "", "published on or after (YYYY-MM-DD)")
	f.String("end", "", "published on or before (YYYY-MM-DD)")
	f.String("sort", "", "sort field")
	f.String("order", "", "sort order: asc or desc")
}

// applyFilterFlags writes the filter flags into the result container.
func applyFilterFlags(cmd *cobra.Command, a App) error {
	f := cmd.Flags()
	var filter crawler.ResultsFilter
	if raw, _ := f.GetString("platform"); raw != "" {
		p, err := crawler.ParsePlatform(raw)
		if err != nil {
			return err
		}
		filter.Platform = p
	}
	filter.Keyword, _ = f.GetString("keyword")
	filter.StartDate, _ = f.GetString("start")
	filter.EndDate, _ = f.GetString("end")
	if f.Changed("min-likes") {
		v, _ := f.GetInt("min-likes")
		filter.MinLikes = &v
	}
	if f.Changed("max-likes") {
		v, _ := f.GetInt("max-likes")
		filter.MaxLikes = &v
	}
	results := a.GetStores().Results
	results.SetFilters(filter)

	sortField, _ := f.GetString("sort")
	order, _ := f.GetString("order")
	if sortField != "" || order != "" {
		o := crawler.SortOrder(strings.ToLower(order))
		if o == "" {
			o = crawler.SortDesc
		}
		if o != crawler.SortAsc && o != crawler.SortDesc {
			return fmt.Errorf("unknown sort order %q", order)
		}
		results.SetSorting(sortField, o)
	}
	return nil
}

func runResultsList(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := applyFilterFlags(cmd, appInstance); err != nil {
		return err
	}
	results := appInstance.GetStores().Results
	if size, _ := cmd.Flags().GetInt("page-size"); size > 0 {
		results.SetPageSize(size)
	}
	page, _ := cmd.Flags().GetInt("page")
	results.SetPage(max(page, 1))
	if err := appInstance.GetController().LoadResults(cmd.Context()); err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	snap := results.Snapshot()
	payload := map[string]any{
		"results":  snap.Results,
		"total":    snap.Total,
		"page":     snap.Page,
		"pageSize": snap.PageSize,
	}
	return render(cmd, payload, func(w io.Writer) error {
		rows := make([]string, 0, len(snap.Results))
		for _, r := range snap.Results {
			rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d",
				r.ID, r.Platform, truncate(r.Title, 40), r.Author, r.Likes, r.Comments))
		}
		if err := table(w, "ID\tPLATFORM\tTITLE\tAUTHOR\tLIKES\tCOMMENTS", rows); err != nil {
			return err
		}
		pg := snap.Pagination()
		_, err := fmt.Fprintf(w, "page %d/%d, %d results\n", snap.Page, pg.TotalPages(), snap.Total)
		return err
	})
}

func runResultsDelete(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := appInstance.GetController().DeleteResults(cmd.Context(), args); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return render(cmd, map[string]any{"deleted": args}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "deleted %d results\n", len(args))
		return err
	})
}

func runResultsExport(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := applyFilterFlags(cmd, appInstance); err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	saved, err := appInstance.GetController().Export(cmd.Context(), crawler.ExportFormat(format))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	return render(cmd, saved, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "saved %s (%d bytes) to %s\n", saved.Filename, saved.Bytes, saved.URI)
		return err
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
