package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newWatchCmd creates the 'watch' subcommand, which follows the push feed of
// existing tasks.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch TASK_ID...",
		Short: "Follows task progress until the tasks finish",
		Long: `Fetches each task, opens its push channel and prints a line whenever its
status or progress changes. Returns once every task is completed, failed or
cancelled, or on interrupt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatchCommand,
	}
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	for _, id := range args {
		if _, err := appInstance.GetController().RefreshTask(cmd.Context(), id); err != nil {
			return fmt.Errorf("watch task %s: %w", id, err)
		}
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if format != formatText {
		w = cmd.ErrOrStderr()
	}
	final, err := follow(cmd.Context(), appInstance, w, args)
	if err != nil {
		return err
	}
	if format == formatText {
		return nil
	}
	return renderTasks(cmd, final, len(final))
}
