package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/compresr/sherlock/internal/adapters"
	"github.com/compresr/sherlock/internal/archive"
	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/gateway"
	"github.com/compresr/sherlock/internal/monitoring"
	"github.com/compresr/sherlock/internal/tokens"
	"github.com/compresr/sherlock/internal/tui"
)

const shutdownTimeout = 10 * time.Second

func startCmd(opts *cliOptions) *cobra.Command {
	var (
		port  int
		limit uint64
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the proxy server and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg = cfg.WithOverrides(port, limit)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, opts.debug, cfg.Dashboard.Enabled && tui.Interactive())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override proxy port")
	cmd.Flags().Uint64VarP(&limit, "limit", "l", 0, "override token limit for the fuel gauge")
	return cmd
}

// runServer runs the proxy, aggregator, archive writer, optional admin
// server, and optional dashboard until ctx is cancelled or the dashboard
// exits.
//
// Shutdown order: stop accepting requests, then stop the aggregator, which
// drains queued events into the archive queue and closes it; the archive
// writer finishes once that queue is empty.
func runServer(ctx context.Context, cfg *config.Config, debug, dashboard bool) error {
	logCloser, err := setupLogging(cfg.Logging, debug, dashboard)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	if cfg.Dashboard.Enabled && !dashboard {
		log.Warn().Msg("terminal not interactive, running without dashboard")
	}

	counter, err := tokens.New(tokens.DefaultEncoding)
	if err != nil {
		return fmt.Errorf("token counter unavailable: %w", err)
	}

	metrics := monitoring.NewMetricsCollector()
	pipeline := monitoring.NewPipeline(cfg.Pipeline.EventQueueSize, cfg.Pipeline.ArchiveQueueSize, metrics)
	aggregator := monitoring.NewAggregator(pipeline, cfg.Dashboard.MaxLogEntries)

	archiver, err := archive.NewWriter(cfg.Archive, metrics)
	if err != nil {
		return err
	}

	gw := gateway.New(cfg, adapters.NewNormalizer(nil, counter), pipeline, metrics)
	if err := gw.Listen(); err != nil {
		return err
	}

	var admin *gateway.AdminServer
	if cfg.Admin.Enabled {
		admin = gateway.NewAdminServer(cfg.AdminAddr(), metrics, aggregator)
		if err := admin.Listen(); err != nil {
			_ = gw.Shutdown(context.Background())
			return err
		}
	}

	if !dashboard {
		printSuccess(fmt.Sprintf("Proxy listening on %s", cfg.ProxyURL()))
		printInfo(fmt.Sprintf("Token counter: %s", counter.Encoding()))
		if admin != nil {
			printInfo(fmt.Sprintf("Admin: http://%s/stats", admin.Addr()))
		}
	}

	aggCtx, stopAggregator := context.WithCancel(context.Background())
	defer stopAggregator()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gw.Serve)
	g.Go(func() error { return aggregator.Run(aggCtx) })
	g.Go(func() error { return archiver.Run(pipeline.Archive()) })
	if admin != nil {
		g.Go(admin.Serve)
	}

	uiDone := make(chan struct{})
	if dashboard {
		g.Go(func() error {
			defer close(uiDone)
			return tui.Run(gctx, cfg.Dashboard, aggregator)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-uiDone:
		}
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if err := gw.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("proxy shutdown: %w", err))
		}
		if admin != nil {
			if err := admin.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
			}
		}
		queued, archiving := pipeline.Pending()
		log.Debug().Int("events", queued).Int("archive", archiving).Msg("draining event queues")
		stopAggregator()
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	snap := aggregator.Snapshot()
	log.Info().
		Uint64("requests", snap.Requests).
		Uint64("total_tokens", snap.TotalTokens).
		Float64("estimated_cost_usd", snap.EstimatedCostUSD).
		Msg("sherlock stopped")
	return nil
}
