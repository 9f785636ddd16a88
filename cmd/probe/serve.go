package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/internal/cli"
	"github.com/aretw0/probe/internal/logging"
	"github.com/aretw0/probe/internal/presentation/tui"
	httpAdapter "github.com/aretw0/probe/pkg/adapters/http"
	"github.com/aretw0/probe/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP inspection server",
	Long: `Serves POST /inspect (JSON document in, analysed tree out), GET /events
for live diffs of a named session, GET /settings, GET /healthz and the
Prometheus metrics on GET /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		opts := cliOptions(cmd)
		logger := logging.NewJSON(logging.Level(opts.Debug))

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		inspector, closer, err := cli.NewInspector(cmd.Context(), opts, logger,
			probe.WithLifecycleHooks(metrics.Hooks()),
			probe.WithLifecycleHooks(observability.LogHooks(logger)),
		)
		defer closer()
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(inspector,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(observability.Handler(reg)),
		)
		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		tui.PrintBanner(os.Stderr, probe.Version)
		interrupted, stop := cli.Interrupted(cmd.Context())
		defer stop()

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting probe server", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-interrupted.Done():
			logger.Info("Start shutdown", "cause", context.Cause(interrupted))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("Probe server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
