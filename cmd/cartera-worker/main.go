package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cartera/internal/backend"
	"cartera/internal/cli"
	applog "cartera/internal/log"
	"cartera/internal/storage/file"
	"cartera/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting cartera-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	source, bcfg := cli.InitStorage(ctx, logger, cfg)
	defer source.Cleanup()

	mirror, err := file.New(cfg.MirrorDir)
	if err != nil {
		logger.Error("Failed to initialize mirror directory", "error", err, "dir", cfg.MirrorDir)
		os.Exit(1)
	}
	defer mirror.Close()

	evs, err := backend.NewFactory(logger.Logger).CreateEvents(ctx, bcfg, true)
	if err != nil {
		logger.Error("Failed to initialize change events", "error", err, "events", bcfg.Events)
		os.Exit(1)
	}
	if evs.Cleanup != nil {
		defer evs.Cleanup()
	}

	w := worker.NewMirrorWorker(source.KV, mirror, cfg.Keys(), cfg.MirrorInterval)

	sigCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := w.Start(sigCtx); err != nil {
		logger.Error("Failed to start mirror worker", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(sigCtx)
	if evs.Consumer != nil {
		g.Go(func() error {
			err := evs.Consumer.ConsumeStateChanged(gctx, w.HandleStateChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume state changes: %w", err)
			}
			return nil
		})
	} else {
		logger.Info("Change events disabled, mirroring on interval only", "interval", cfg.MirrorInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		return w.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(sigCtx, done)
	logger.Info("Worker shutdown complete")
}
