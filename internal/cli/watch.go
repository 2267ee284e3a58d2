package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reconciler/internal/api"
	"reconciler/internal/websocket"
	"reconciler/pkg/utils"
)

// WatchOptions - флаги команды watch
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
	NoServer bool
}

// NewWatchCommand создаёт команду watch: проходы по расписанию и HTTP оператора
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run reconciliation passes on an interval and serve the operator API",
		Long: `Run a pass immediately and then every WATCH_INTERVAL. Two passes never overlap:
a tick that arrives while a pass is running is skipped.

The operator HTTP server exposes /health, /metrics, /api/v1/runs,
/api/v1/balances/{userId}, /api/v1/orders/{id} and the /ws/stream websocket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "override WATCH_INTERVAL")
	cmd.Flags().BoolVar(&opts.NoServer, "no-server", false, "do not start the operator HTTP server")

	return cmd
}

func watch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg := opts.Config
	interval := cfg.Run.WatchInterval
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	logger := utils.L().WithComponent("watch")

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(cfg.Server.AllowedOrigins)
	go hub.Run()
	defer hub.Stop()

	a, err := newApp(ctx, cfg, hub)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to initialize", err)
	}
	defer a.Close()

	serverErr := make(chan error, 1)
	var server *http.Server
	if !opts.NoServer {
		router := api.SetupRoutes(&api.Dependencies{
			Runner:         a.runner,
			Runs:           a.runs,
			Balances:       a.balances,
			Orders:         a.orders,
			Hub:            hub,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Context:        ctx,
		})

		server = &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			logger.Info("starting operator server", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	scheduleDone := make(chan struct{})
	go func() {
		defer close(scheduleDone)
		logger.Info("watching pending orders", zap.Duration("interval", interval))
		a.runner.Schedule(ctx, interval)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		runErr = WrapExitError(ExitFailure, "operator server failed", err)
		stop()
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server forced to shutdown", zap.Error(err))
		}
	}

	// текущие проходы прерываются по ctx, дожидаемся записи итога
	<-scheduleDone
	a.runner.Wait()
	logger.Info("watch stopped")
	return runErr
}
