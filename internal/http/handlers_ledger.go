package http

import (
	"net/http"

	"cartera/internal/cache"
	"cartera/internal/core"
	applog "cartera/internal/log"
)

// handleListEntries returns one collection, newest first, optionally
// filtered with ?month=YYYY-MM.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.fail(w, r, "list", err)
		return
	}
	month, err := ParseMonthFilter(r)
	if err != nil {
		s.fail(w, r, "list", err)
		return
	}

	store := s.ledger.Store()
	filter := ""
	if month != nil {
		filter = month.String()
	}
	key := cache.RevisionKey("list", store.Revision(), kind.String(), filter)

	records, ok := s.listCache.Get(key)
	if !ok {
		records, err = store.List(kind, month)
		if err != nil {
			s.fail(w, r, "list", err)
			return
		}
		s.listCache.Set(key, records)
	}
	NewJSONResponse().Body(records).Write(w)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.fail(w, r, "add", err)
		return
	}
	in, err := ParseEntryInput(r)
	if err != nil {
		s.fail(w, r, "add", err)
		return
	}

	rec, err := s.ledger.AddEntry(r.Context(), kind, in)
	if err != nil {
		s.fail(w, r, "add", err)
		return
	}
	s.logRecordChanged(r, "add", rec.Kind, rec.ID, rec.Amount.String())
	NewJSONResponse().Status(http.StatusCreated).Body(rec).Write(w)
}

// handleEditEntry replaces the editable fields of a record. An unknown id
// answers like a hit.
func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.fail(w, r, "edit", err)
		return
	}
	in, err := ParseEntryInput(r)
	if err != nil {
		s.fail(w, r, "edit", err)
		return
	}

	id := pathID(r)
	changed, err := s.ledger.EditEntry(r.Context(), kind, id, in)
	if err != nil {
		s.fail(w, r, "edit", err)
		return
	}
	if changed {
		s.logRecordChanged(r, "edit", kind, id, in.Amount.String())
	}
	NoContent().Write(w)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		s.fail(w, r, "remove", err)
		return
	}

	id := pathID(r)
	changed, err := s.ledger.RemoveEntry(r.Context(), kind, id)
	if err != nil {
		s.fail(w, r, "remove", err)
		return
	}
	if changed {
		s.logRecordChanged(r, "remove", kind, id, "")
	}
	NoContent().Write(w)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	changed, err := s.ledger.MarkPendingPaid(r.Context(), id)
	if err != nil {
		s.fail(w, r, applog.OpMarkPaid, err)
		return
	}
	if changed {
		s.logRecordChanged(r, applog.OpMarkPaid, core.Pending, id, "")
	}
	NoContent().Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	store := s.ledger.Store()
	totals := cache.GetOrCompute[core.Totals](s.totalsCache,
		cache.RevisionKey("totals", store.Revision()),
		store.ComputeTotals)
	NewJSONResponse().Body(totals).Write(w)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	store := s.ledger.Store()
	months := cache.GetOrCompute[[]core.MonthComparison](s.monthlyCache,
		cache.RevisionKey("monthly", store.Revision()),
		store.ComputeMonthlyComparison)
	NewJSONResponse().Body(months).Write(w)
}

// handleBreakdown sums one month, the current one unless ?month is given.
// Only explicit months are cached since "current" moves with the clock.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthFilter(r)
	if err != nil {
		s.fail(w, r, "breakdown", err)
		return
	}

	store := s.ledger.Store()
	var out core.MonthBreakdown
	if month == nil {
		out = store.ComputeCurrentMonthBreakdown(nil)
	} else {
		out = cache.GetOrCompute[core.MonthBreakdown](s.breakdownCache,
			cache.RevisionKey("breakdown", store.Revision(), month.String()),
			func() core.MonthBreakdown { return store.ComputeCurrentMonthBreakdown(month) })
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) logRecordChanged(r *http.Request, op string, kind core.Kind, id, amount string) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogRecordChanged(r.Context(), op, kind.String(), id, amount, s.ledger.Store().Key(), s.ledger.Store().Revision())
}
