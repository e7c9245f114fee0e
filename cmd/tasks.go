package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawler-console/internal/console"
	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/service"
)

// newTasksCmd creates the 'tasks' command group.
func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Lists and controls crawl tasks",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "Lists one page of tasks",
		Args:  cobra.NoArgs,
		RunE:  runTasksList,
	}
	list.Flags().String("status", "", "only tasks with this status")
	list.Flags().Int("page", 1, "page number")
	list.Flags().Int("page-size", crawler.DefaultPageSize, "tasks per page")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show TASK_ID",
			Short: "Shows one task",
			Args:  cobra.ExactArgs(1),
			RunE:  runTasksShow,
		},
		newTaskActionCmd("pause", "Pauses a running task", (*console.Controller).Pause),
		newTaskActionCmd("resume", "Resumes a paused task", (*console.Controller).Resume),
		newTaskActionCmd("cancel", "Cancels a pending, running or paused task", (*console.Controller).Cancel),
		newTaskActionCmd("delete", "Deletes a finished task", (*console.Controller).DeleteTask),
	)
	return cmd
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	f := cmd.Flags()
	params := service.ListTasksParams{}
	params.Page, _ = f.GetInt("page")
	params.PageSize, _ = f.GetInt("page-size")
	if raw, _ := f.GetString("status"); raw != "" {
		params.Status = crawler.TaskStatus(strings.ToLower(raw))
		if !params.Status.Valid() {
			return fmt.Errorf("unknown task status %q", raw)
		}
	}
	if err := appInstance.GetController().LoadTasks(cmd.Context(), params); err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	snap := appInstance.GetStores().Tasks.Snapshot()
	return renderTasks(cmd, snap.Tasks, snap.Total)
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	task, err := appInstance.GetController().RefreshTask(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("show task: %w", err)
	}
	return render(cmd, task, func(w io.Writer) error {
		rows := []string{
			"id\t" + task.ID,
			"name\t" + task.Name,
			"platform\t" + string(task.Platform),
			"type\t" + string(task.CrawlerType),
			"status\t" + string(task.Status),
			fmt.Sprintf("progress\t%d/%d (%d%%)", task.Progress.Current, task.Progress.Total, task.Progress.Percentage),
		}
		if task.ErrorMessage != "" {
			rows = append(rows, "error\t"+task.ErrorMessage)
		}
		return table(w, "FIELD\tVALUE", rows)
	})
}

type taskAction func(c *console.Controller, ctx context.Context, taskID string) error

// newTaskActionCmd builds a subcommand that refreshes the task and then
// applies action to it, so the local state machine can refuse illegal
// transitions before anything is sent.
func newTaskActionCmd(name, short string, action taskAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " TASK_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctrl := appInstance.GetController()
			if _, err := ctrl.RefreshTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s task: %w", name, err)
			}
			if err := action(ctrl, cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s task: %w", name, err)
			}
			task, found := appInstance.GetStores().Tasks.Snapshot().Task(args[0])
			if !found {
				return render(cmd, map[string]string{"id": args[0], "action": name}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s: %s\n", args[0], name)
					return err
				})
			}
			return render(cmd, task, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", task.ID, task.Status)
				return err
			})
		},
	}
}
