package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cartera/internal/events"
	"cartera/internal/storage"
)

// MirrorWorker copies persisted blobs from the primary backend to a mirror
// backend. Messages trigger an immediate copy; a periodic reconcile covers
// lost messages and worker downtime.
type MirrorWorker struct {
	source   storage.Reader
	mirror   storage.KV
	keys     []string
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMirrorWorker(source storage.Reader, mirror storage.KV, keys []string, interval time.Duration) *MirrorWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MirrorWorker{
		source:   source,
		mirror:   mirror,
		keys:     keys,
		interval: interval,
	}
}

// HandleStateChanged copies the current source blob for msg.Key. Revisions
// restart with the publishing process and are only logged.
func (w *MirrorWorker) HandleStateChanged(ctx context.Context, msg *events.StateChanged) error {
	if err := w.copyKey(ctx, msg.Key); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Mirrored blob",
		"key", msg.Key,
		"source", msg.Component,
		"operation", msg.Operation,
		"revision", msg.Revision)
	return nil
}

// Reconcile copies every configured key whose mirror copy differs.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	var copied, failed int
	for _, key := range w.keys {
		src, err := w.source.Get(ctx, key)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read source blob", "key", key, "error", err)
			failed++
			continue
		}
		dst, err := w.mirror.Get(ctx, key)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read mirror blob", "key", key, "error", err)
			failed++
			continue
		}
		if src == dst {
			continue
		}
		if err := w.mirror.Set(ctx, key, src); err != nil {
			slog.ErrorContext(ctx, "Failed to write mirror blob", "key", key, "error", err)
			failed++
			continue
		}
		copied++
	}

	slog.InfoContext(ctx, "Mirror reconcile completed",
		"keys", len(w.keys),
		"copied", copied,
		"errors", failed)
	if failed > 0 {
		return fmt.Errorf("reconcile: %d keys failed", failed)
	}
	return nil
}

func (w *MirrorWorker) copyKey(ctx context.Context, key string) error {
	value, err := w.source.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read source blob %s: %w", key, err)
	}
	if value == "" {
		slog.WarnContext(ctx, "Source blob is empty, nothing to mirror", "key", key)
		return nil
	}
	if err := w.mirror.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write mirror blob %s: %w", key, err)
	}
	return nil
}

// Start runs a reconcile immediately and then on every interval. Returns an
// error if already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("mirror worker is already running")
	}
	w.running = true
	stop, done := make(chan struct{}), make(chan struct{})
	w.stopCh, w.doneCh = stop, done
	w.mu.Unlock()

	go w.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Mirror worker started", "interval", w.interval, "keys", w.keys)
	return nil
}

// Stop signals the loop and waits for it to finish or ctx to expire. Only
// the first of concurrent calls signals; later calls return nil at once.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}
}

func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MirrorWorker) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	_ = w.Reconcile(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.Reconcile(ctx)
		}
	}
}
