package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/algointent/walletcore/internal/api"
	"github.com/algointent/walletcore/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveAddr string

// serveCmd runs the HTTP API.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for chat frontends",
	Long: `Serve the wallet API over HTTP until interrupted.

Operations staged without a password wait for POST .../operations/approve.
A background sweeper drops expired pending operations and idle sessions.`,
	Example: `  walletcore serve
  walletcore serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.GroupID = "server"
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(func(a *app) error {
		srv := a.server(cfg, logger)
		output.Info(cmd.ErrOrStderr(), "Serving the wallet API on http://%s", cfg.Server.Addr)
		interval := time.Duration(cfg.Server.SweepIntervalSeconds) * time.Second

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
		g.Go(func() error {
			runSweeper(ctx, a, srv, interval)
			return nil
		})
		return g.Wait()
	})
}

// runSweeper expires pending operations and sessions until ctx is done.
func runSweeper(ctx context.Context, a *app, srv *api.Server, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, sessions, err := a.sweep(ctx)
			if err != nil {
				logger.Warn("sweep failed", zap.Error(err))
			}
			limiters := srv.Throttle().Prune(10 * interval)
			if pending+sessions+limiters > 0 {
				logger.Info("swept",
					zap.Int("pending", pending), zap.Int("sessions", sessions), zap.Int("limiters", limiters))
			}
		}
	}
}
