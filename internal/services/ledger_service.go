package services

import (
	"context"
	"fmt"
	"log/slog"

	"cartera/internal/core"
	"cartera/internal/events"
	"cartera/internal/ledger"
)

// LedgerService applies ledger mutations and announces them once persisted.
type LedgerService struct {
	store     *ledger.Store
	publisher events.Publisher
}

func NewLedgerService(store *ledger.Store, publisher events.Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// Store exposes the read side for handlers.
func (s *LedgerService) Store() *ledger.Store {
	return s.store
}

// AddEntry saves a record and publishes a change message
func (s *LedgerService) AddEntry(ctx context.Context, kind core.Kind, in core.EntryInput) (ledger.Record, error) {
	rec, err := s.store.AddEntry(ctx, kind, in)
	if err != nil {
		return rec, fmt.Errorf("add %s entry: %w", kind, err)
	}
	s.publish(ctx, "add", kind, rec.ID)
	return rec, nil
}

func (s *LedgerService) EditEntry(ctx context.Context, kind core.Kind, id string, in core.EntryInput) (bool, error) {
	changed, err := s.store.EditEntry(ctx, kind, id, in)
	if err != nil {
		return false, fmt.Errorf("edit %s entry: %w", kind, err)
	}
	if !changed {
		slog.DebugContext(ctx, "Edit ignored, record not found", "kind", kind, "id", id)
		return false, nil
	}
	s.publish(ctx, "edit", kind, id)
	return true, nil
}

func (s *LedgerService) RemoveEntry(ctx context.Context, kind core.Kind, id string) (bool, error) {
	changed, err := s.store.RemoveEntry(ctx, kind, id)
	if err != nil {
		return false, fmt.Errorf("remove %s entry: %w", kind, err)
	}
	if !changed {
		slog.DebugContext(ctx, "Remove ignored, record not found", "kind", kind, "id", id)
		return false, nil
	}
	s.publish(ctx, "remove", kind, id)
	return true, nil
}

func (s *LedgerService) MarkPendingPaid(ctx context.Context, id string) (bool, error) {
	changed, err := s.store.MarkPendingPaid(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark pending paid: %w", err)
	}
	if !changed {
		slog.DebugContext(ctx, "Mark paid ignored", "id", id)
		return false, nil
	}
	s.publish(ctx, "mark_paid", core.Pending, id)
	return true, nil
}

func (s *LedgerService) publish(ctx context.Context, op string, kind core.Kind, id string) {
	if s.publisher == nil {
		return
	}
	msg := events.NewStateChanged(s.store.Key(), events.ComponentLedger, op, s.store.Revision())
	msg.Kind = kind.String()
	msg.ID = id

	// Don't fail the request - the mutation is already persisted
	if err := s.publisher.PublishStateChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish state changed message",
			"operation", op,
			"id", id,
			"error", err)
	}
}
