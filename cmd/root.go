// Package cmd defines and implements the CLI commands for the crawler console.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/app"
	"github.com/JakeFAU/crawler-console/internal/config"
	"github.com/JakeFAU/crawler-console/internal/console"
	"github.com/JakeFAU/crawler-console/internal/state"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows tests to inject an app wired to fake collaborators.
type App interface {
	Close(ctx context.Context) error
	Ready(ctx context.Context) error
	ApplyPreset(name string) error
	GetLogger() *zap.Logger
	GetConfig() config.Config
	GetController() *console.Controller
	GetStores() *state.Stores
	GetWatcher() *console.Watcher
}

// newApp is the application factory. It's a variable so tests can replace
// it.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(a.Logger)
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawler-console",
		Short: "Operator console for the social media crawler backend.",
		Long: `crawler-console drives a remote crawler backend: it starts crawl tasks,
follows their progress over the push channel, browses and exports results,
and serves the console state locally for dashboards.`,
		SilenceUsage: true,

		// Build the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := outputFormat(cmd); err != nil {
				return err
			}
			cfgPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("read config flag: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfgPath)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Shut services down once the subcommand is done.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				_ = appInstance.Close(context.WithoutCancel(cmd.Context()))
			}
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default is ./console.yaml or $HOME/.crawler-console/console.yaml)")
	cmd.PersistentFlags().StringP("output", "o", formatText, "output format: text, json or yaml")

	cmd.AddCommand(
		newCrawlCmd(),
		newTasksCmd(),
		newResultsCmd(),
		newStatsCmd(),
		newWatchCmd(),
		newServeCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
