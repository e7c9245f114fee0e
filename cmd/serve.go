package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/api"
	"github.com/JakeFAU/crawler-console/internal/service"
)

const shutdownTimeout = 10 * time.Second

// newServeCmd creates the 'serve' subcommand, which exposes the console
// state over HTTP while following the given tasks.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [TASK_ID...]",
		Short: "Serves console state and metrics over HTTP",
		Long: `Loads the task list, opens push channels for the given tasks and serves
/healthz, /readyz, /metrics and read-only /v1/state snapshots until
interrupted.`,
		RunE: runServeCommand,
	}
	cmd.Flags().Int("port", 0, "listen port (default from config)")
	return cmd
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := appInstance.GetLogger()

	if err := appInstance.GetController().LoadTasks(ctx, service.ListTasksParams{}); err != nil {
		logger.Warn("initial task load failed", zap.Error(err))
	}
	for _, id := range args {
		if _, err := appInstance.GetController().RefreshTask(ctx, id); err != nil {
			logger.Warn("refresh task failed", zap.String("task_id", id), zap.Error(err))
		}
		if _, err := appInstance.GetWatcher().Watch(ctx, id); err != nil {
			logger.Warn("watch task failed", zap.String("task_id", id), zap.Error(err))
		}
	}

	port := appInstance.GetConfig().Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	apiServer := api.NewServer(appInstance.GetStores(), api.Options{
		Channels: appInstance.GetWatcher(),
		Ready:    appInstance.Ready,
		Logger:   logger,
	})
	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("http server error", zap.Error(serveErr))
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}
