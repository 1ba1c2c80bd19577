package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"go-query-coordinator/internal/api"
	"go-query-coordinator/internal/api/handler"
	"go-query-coordinator/internal/config"
	"go-query-coordinator/internal/coordinator"
	"go-query-coordinator/internal/metrics"
	"go-query-coordinator/internal/model"
	"go-query-coordinator/internal/report"
	"go-query-coordinator/internal/store"
	"go-query-coordinator/pkg/router"
)

const shutdownTimeout = 30 * time.Second

var (
	configFiles = pflag.StringSlice("config", []string{}, "Path to a configuration file (repeat the flag or separate paths with commas to merge several)")

	errStopSignal = errors.New("stop signal received")
)

// @title Query Coordinator API
// @version 1.0
// @description Batches predefined analytics queries, tracks their performance and recommends optimizations.
// @BasePath /api/v1
func main() {
	pflag.Parse()

	cfg, err := config.Load(*configFiles...)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if err := config.ConfigureLogging(cfg.Logging); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("coordinator exited with error")
	}
}

func run(cfg model.CoordinatorConfig) error {
	journalDB, err := store.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer journalDB.Close()

	target, err := store.OpenTarget(cfg.Target.Driver, cfg.Target.DSN)
	if err != nil {
		return err
	}
	defer target.Close()

	c, err := coordinator.New(cfg, store.NewSQLAccessor(target, cfg.Target.Retry),
		coordinator.WithJournal(store.NewJournal(journalDB)))
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewCollector(c.Registry()),
	)

	r := router.New()
	api.RegisterRoutes(r, handler.New(c, journalDB))
	r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	g, ctx := errgroup.WithContext(context.Background())

	// Cancel the errgroup context on SIGINT and SIGTERM,
	// which shuts everything down gracefully.
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-stopSignal:
			log.WithField("signal", sig.String()).Info("shutting down")
			return errStopSignal
		}
	})

	c.Start(ctx)

	httpDone := make(chan struct{})
	g.Go(func() error {
		defer close(httpDone)
		return r.Start(ctx, cfg.HTTP.Address)
	})

	// The coordinator stops after the HTTP server so no request submits into a
	// stopped scheduler.
	g.Go(func() error {
		<-ctx.Done()
		<-httpDone
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := c.Shutdown(shutdownCtx)
		if cfg.Report.Dir != "" {
			writeFinalReport(c, cfg.Report.Dir)
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errStopSignal) {
		return err
	}
	return nil
}

func writeFinalReport(c *coordinator.Coordinator, dir string) {
	rep := report.Build(c.MetricsSnapshot(), c.AnalyzeAll(), time.Now())
	path, err := report.NewExporter(dir).Export(uuid.NewString(), report.FormatJSON, rep)
	if err != nil {
		log.WithError(err).Error("failed to write final report")
		return
	}
	log.WithField("path", path).Info("final report written")
}
