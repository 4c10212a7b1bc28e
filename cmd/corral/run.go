package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meerkat-commensal/corral/pkg/config"
	"github.com/meerkat-commensal/corral/pkg/coordinator"
	"github.com/meerkat-commensal/corral/pkg/eventbus"
	"github.com/meerkat-commensal/corral/pkg/gateway"
	"github.com/meerkat-commensal/corral/pkg/health"
	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metadata"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/reconciler"
	"github.com/meerkat-commensal/corral/pkg/store"
	"github.com/meerkat-commensal/corral/pkg/types"
)

const proxyChannel = "chat-proxy"

func runE(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("main")

	cfgPath, _ := cmd.Flags().GetString("config")
	triggerModeFlag, _ := cmd.Flags().GetString("triggermode")
	metricsAddrFlag, _ := cmd.Flags().GetString("metrics-addr")

	triggerMode, err := types.ParseTriggerMode(triggerModeFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfgPath).Msg("failed to load config file; continuing with defaults")
		} else {
			cfg = loaded
		}
	}
	if metricsAddrFlag != "" {
		cfg.MetricsAddr = metricsAddrFlag
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.NATSURL = fmt.Sprintf("nats://127.0.0.1:%d", port)
	}

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if count, err := db.CountSubarrays(); err != nil {
		logger.Warn().Err(err).Msg("failed to read subarray count; assuming first startup")
	} else if count == 0 {
		if err := db.InitPool(cfg.ProcessingNodes); err != nil {
			logger.Warn().Err(err).Msg("failed to seed processing node pool")
		}
	}

	bus, err := eventbus.Dial(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect to event bus: %w", err)
	}
	defer bus.Close()

	gw := gateway.New(bus, db, cfg.GatewayDomain)
	checker := health.NewChecker(db, cfg.GatewayDomain)
	notifier := coordinator.BusNotifier{Bus: bus, Subject: proxyChannel}

	coordCfg := coordinator.DefaultConfig()
	coordCfg.GatewayDomain = cfg.GatewayDomain
	coordCfg.StreamsPerInstance = cfg.StreamsPerInstance
	coordCfg.TotalNodes = len(cfg.ProcessingNodes)

	coord, err := coordinator.New(coordCfg, bus, db, checker, gw, notifier, triggerMode)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}

	fetcher := metadata.NewFetcher(cfg.MetadataConfig(), &metadata.GorillaDialer{}, db, bus)

	recon := reconciler.NewReconciler(db)
	recon.Start()
	defer recon.Stop()

	collector := metrics.NewCollector(db, db)
	collector.Start()
	defer collector.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("received shutdown signal")
		cancel()
	}()

	group, gctx := errgroup.WithContext(ctx)

	doctor := metrics.NewDoctor()
	doctor.Register("store", func() error {
		_, err := db.CountSubarrays()
		return err
	})
	doctor.Register("eventbus", bus.Healthy)
	doctor.Register("coordinator", func() error {
		if err := gctx.Err(); err != nil {
			return fmt.Errorf("event loop stopped: %w", err)
		}
		return nil
	})

	group.Go(func() error { return coord.Run(gctx) })
	group.Go(func() error { return fetcher.Run(gctx) })
	group.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr, doctor) })

	logger.Info().Str("metrics_addr", cfg.MetricsAddr).Msg("corral started")

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		return err
	}

	logger.Info().Msg("corral stopped")
	return nil
}

// serveMetrics runs the Prometheus metrics and health HTTP endpoints
// until ctx is cancelled, at which point the server is shut down.
func serveMetrics(ctx context.Context, addr string, doctor *metrics.Doctor) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", doctor.Handler())
	mux.Handle("/live", doctor.LivenessHandler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
