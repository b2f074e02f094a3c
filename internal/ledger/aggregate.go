package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// ComputeTotals sums every income and expense record regardless of date.
func (s *Store) ComputeTotals() core.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	income := sumEntries(s.state.Entries, nil)
	expenses := sumEntries(s.state.Expenses, nil)
	return core.Totals{
		Income:   income,
		Expenses: expenses,
		Net:      income.Sub(expenses),
	}
}

// ComputeMonthlyComparison buckets income and expenses by month, ascending.
// Records whose month cannot be determined are skipped.
func (s *Store) ComputeMonthlyComparison() []core.MonthComparison {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[core.MonthKey]*core.MonthComparison)
	bucket := func(k core.MonthKey) *core.MonthComparison {
		b, ok := buckets[k]
		if !ok {
			b = &core.MonthComparison{
				Month:    k,
				Key:      k.String(),
				Label:    k.Label(),
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			}
			buckets[k] = b
		}
		return b
	}

	for _, e := range s.state.Entries {
		if k, ok := e.Month(); ok {
			b := bucket(k)
			b.Income = b.Income.Add(e.Amount)
		}
	}
	for _, e := range s.state.Expenses {
		if k, ok := e.Month(); ok {
			b := bucket(k)
			b.Expenses = b.Expenses.Add(e.Amount)
		}
	}

	out := make([]core.MonthComparison, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ComputeCurrentMonthBreakdown sums income, expenses and unpaid receivables
// of one month. A nil filter selects the current calendar month.
func (s *Store) ComputeCurrentMonthBreakdown(filter *core.MonthKey) core.MonthBreakdown {
	month := core.MonthKeyOf(s.now())
	if filter != nil {
		month = *filter
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := decimal.Zero
	for _, p := range s.state.Pendings {
		if !p.Paid && month.Includes(p.Entry) {
			pending = pending.Add(p.Amount)
		}
	}
	return core.MonthBreakdown{
		Month:    month,
		Key:      month.String(),
		Income:   sumEntries(s.state.Entries, &month),
		Expenses: sumEntries(s.state.Expenses, &month),
		Pending:  pending,
	}
}

// List returns the records of one kind, newest first, optionally restricted
// to a month. Association names are resolved against the current expenses and
// fall back to the stored snapshot when the expense is gone.
func (s *Store) List(kind core.Kind, month *core.MonthKey) ([]Record, error) {
	if !kind.IsValid() {
		return nil, core.ErrUnknownKind
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	if kind == core.Pending {
		out = make([]Record, 0, len(s.state.Pendings))
		for _, p := range s.state.Pendings {
			if month != nil && !month.Includes(p.Entry) {
				continue
			}
			name := s.expenseName(p.AssociatedTo)
			if name == "" {
				name = p.AssociatedToName
			}
			out = append(out, Record{
				Kind:             kind,
				Entry:            p.Entry,
				Paid:             p.Paid,
				AssociatedTo:     p.AssociatedTo,
				AssociatedToName: name,
			})
		}
	} else {
		list := *s.entriesLocked(kind)
		out = make([]Record, 0, len(list))
		for _, e := range list {
			if month != nil && !month.Includes(e) {
				continue
			}
			out = append(out, Record{Kind: kind, Entry: e})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Entry, out[j].Entry) })
	return out, nil
}

func newer(a, b core.Entry) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func sumEntries(list []core.Entry, month *core.MonthKey) decimal.Decimal {
	total := decimal.Zero
	for _, e := range list {
		if month != nil && !month.Includes(e) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}
