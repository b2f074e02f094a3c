package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

func (s *Store) prepare(kind core.Kind, in core.EntryInput) (core.EntryInput, error) {
	if !kind.IsValid() {
		return in, core.ErrUnknownKind
	}
	in = in.Normalized(s.now())
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

// AddEntry validates in and appends a new record to the kind's collection.
// For pending receivables the associated expense name is snapshotted.
func (s *Store) AddEntry(ctx context.Context, kind core.Kind, in core.EntryInput) (Record, error) {
	in, err := s.prepare(kind, in)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := core.Entry{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
		CreatedAt:   s.now().UTC(),
	}

	rec := Record{Kind: kind, Entry: entry}
	if kind == core.Pending {
		p := core.PendingReceivable{
			Entry:            entry,
			AssociatedTo:     in.AssociatedTo,
			AssociatedToName: s.expenseName(in.AssociatedTo),
		}
		s.state.Pendings = append(s.state.Pendings, p)
		rec.AssociatedTo = p.AssociatedTo
		rec.AssociatedToName = p.AssociatedToName
	} else {
		list := s.entriesLocked(kind)
		*list = append(*list, entry)
	}

	s.logger.InfoContext(ctx, "Ledger record added",
		"kind", kind,
		"id", entry.ID,
		"amount", entry.Amount.String())
	return rec, s.flushLocked(ctx)
}

// EditEntry overwrites the mutable fields of the record with the given id.
// It reports false without error when the id is not in the collection.
func (s *Store) EditEntry(ctx context.Context, kind core.Kind, id string, in core.EntryInput) (bool, error) {
	in, err := s.prepare(kind, in)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == core.Pending {
		idx := s.indexOfPending(id)
		if idx < 0 {
			return false, nil
		}
		p := &s.state.Pendings[idx]
		p.Name = in.Name
		p.Description = in.Description
		p.Amount = in.Amount
		p.Date = in.Date
		// An unchanged association keeps its snapshot once the expense is gone.
		name := s.expenseName(in.AssociatedTo)
		if name != "" || in.AssociatedTo != p.AssociatedTo {
			p.AssociatedToName = name
		}
		p.AssociatedTo = in.AssociatedTo
	} else {
		list := s.entriesLocked(kind)
		idx := indexOfEntry(*list, id)
		if idx < 0 {
			return false, nil
		}
		e := &(*list)[idx]
		e.Name = in.Name
		e.Description = in.Description
		e.Amount = in.Amount
		e.Date = in.Date
	}

	s.logger.InfoContext(ctx, "Ledger record edited", "kind", kind, "id", id)
	return true, s.flushLocked(ctx)
}

// RemoveEntry drops the record with the given id. Removing an expense leaves
// pending receivables that reference it untouched.
func (s *Store) RemoveEntry(ctx context.Context, kind core.Kind, id string) (bool, error) {
	if !kind.IsValid() {
		return false, core.ErrUnknownKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == core.Pending {
		idx := s.indexOfPending(id)
		if idx < 0 {
			return false, nil
		}
		s.state.Pendings = append(s.state.Pendings[:idx], s.state.Pendings[idx+1:]...)
	} else {
		list := s.entriesLocked(kind)
		idx := indexOfEntry(*list, id)
		if idx < 0 {
			return false, nil
		}
		*list = append((*list)[:idx], (*list)[idx+1:]...)
	}

	s.logger.InfoContext(ctx, "Ledger record removed", "kind", kind, "id", id)
	return true, s.flushLocked(ctx)
}

// MarkPendingPaid flags the receivable as collected and nets its amount off
// the associated expense, never below zero. A receivable that is already paid
// is left as is.
func (s *Store) MarkPendingPaid(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfPending(id)
	if idx < 0 || s.state.Pendings[idx].Paid {
		return false, nil
	}
	p := &s.state.Pendings[idx]
	p.Paid = true

	if p.AssociatedTo != "" {
		if j := indexOfEntry(s.state.Expenses, p.AssociatedTo); j >= 0 {
			exp := &s.state.Expenses[j]
			exp.Amount = decimal.Max(exp.Amount.Sub(p.Amount), decimal.Zero)
			s.logger.InfoContext(ctx, "Expense netted by collected receivable",
				"expense_id", exp.ID,
				"pending_id", p.ID,
				"amount", exp.Amount.String())
		}
	}

	s.logger.InfoContext(ctx, "Pending receivable marked paid", "id", id)
	return true, s.flushLocked(ctx)
}
