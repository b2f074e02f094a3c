package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cartera/internal/backend"
	"cartera/internal/cli"
	apphttp "cartera/internal/http"
	"cartera/internal/ledger"
	applog "cartera/internal/log"
	"cartera/internal/salary"
	"cartera/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	storage, bcfg := cli.InitStorage(ctx, logger, cfg)
	defer func() {
		if err := storage.Cleanup(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	store, err := ledger.Open(ctx, storage.KV, cfg.LedgerKey,
		ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Logger))
	if err != nil {
		logger.Error("Failed to load ledger", "error", err, "key", cfg.LedgerKey)
		os.Exit(1)
	}
	calc, err := salary.Open(ctx, storage.KV, cfg.SalaryKey,
		salary.WithLogger(logger.WithComponent(applog.ComponentSalary).Logger))
	if err != nil {
		logger.Error("Failed to load salary", "error", err, "key", cfg.SalaryKey)
		os.Exit(1)
	}

	evs, err := backend.NewFactory(logger.Logger).CreateEvents(ctx, bcfg, false)
	if err != nil {
		logger.Error("Failed to initialize change events", "error", err, "events", bcfg.Events)
		os.Exit(1)
	}
	if evs.Cleanup != nil {
		defer func() {
			if err := evs.Cleanup(); err != nil {
				logger.Error("Failed to close change events", "error", err)
			}
		}()
	}

	srv := apphttp.NewServer(":"+cfg.Port,
		services.NewLedgerService(store, evs.Publisher),
		services.NewSalaryService(calc, evs.Publisher),
		apphttp.Options{
			Logger:             logger,
			Pinger:             storage.KV,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		})

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("Starting cartera server",
			"port", cfg.Port,
			"backend", bcfg.Type,
			"events", bcfg.Events,
			"entries", len(store.Snapshot().Entries))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.Info("Server stopped gracefully")
}
