package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"extid/internal/externalid/handler"
	extidmetrics "extid/internal/externalid/metrics"
	"extid/internal/externalid/service"
	"extid/internal/externalid/throttle"
	"extid/internal/platform/config"
	"extid/internal/platform/httpserver"
	"extid/internal/platform/logger"
	"extid/internal/platform/metrics"
	"extid/internal/platform/otel"
	httptransport "extid/internal/transport/http"
	audit "extid/pkg/platform/audit"
)

// main wires dependencies and keeps the process lifecycle small. Directory
// logic lives in internal/externalid.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "extid: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dirMetrics := extidmetrics.New(reg)
	httpMetrics := metrics.New(reg)

	backend, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close(log)

	sink, err := openAuditSink(ctx, cfg, backend, log)
	if err != nil {
		return err
	}
	defer sink.Close(log)

	th, err := throttle.New(cfg.Directory.GetRate, throttle.WithRecorder(dirMetrics))
	if err != nil {
		return fmt.Errorf("create throttle: %w", err)
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(dirMetrics),
		service.WithConfig(service.Config{
			MaxPageSize:     cfg.Directory.MaxPageSize,
			DefaultPageSize: cfg.Directory.DefaultPageSize,
			ScanLimit:       cfg.Directory.ScanLimit,
		}),
	}
	if sink.worker != nil {
		opts = append(opts, service.WithAuditPublisher(audit.NewPublisher(sink.worker)))
	}
	svc, err := service.New(backend.store, th, opts...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:   log,
		Gatherer: reg,
		Checks:   backend.checks,
		Handlers: []httptransport.RouteRegistrar{
			handler.New(svc, log, httpMetrics, svc.Config().DefaultPageSize),
		},
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting extid",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Backend,
		"get_rate", cfg.Directory.GetRate,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.ListenAndServe(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if sink.worker != nil {
		g.Go(func() error {
			return sink.worker.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("extid stopped")
	return nil
}

func closeQuietly(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("close failed", "resource", name, "error", err)
	}
}
