package http

import (
	"net/http"

	"cartera/internal/cache"
	"cartera/internal/salary"
)

// salaryView is the body of GET and PUT /api/salary.
type salaryView struct {
	State     salary.State     `json:"state"`
	Breakdown salary.Breakdown `json:"breakdown"`
}

func (s *Server) salaryView() salaryView {
	calc := s.salary.Calculator()
	return salaryView{
		State: calc.State(),
		Breakdown: cache.GetOrCompute[salary.Breakdown](s.salaryCache,
			cache.RevisionKey("salary", calc.Revision()),
			calc.ComputeBreakdown),
	}
}

func (s *Server) handleGetSalary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.salaryView()).Write(w)
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	v, err := ParseMonthlySalary(r)
	if err != nil {
		s.fail(w, r, "set_salary", err)
		return
	}
	if err := s.salary.SetMonthlySalary(r.Context(), v); err != nil {
		s.fail(w, r, "set_salary", err)
		return
	}
	NewJSONResponse().Body(s.salaryView()).Write(w)
}

// handleAddExtra creates a deduction, applying the optional name and amount
// through the same coercion as later updates.
func (s *Server) handleAddExtra(w http.ResponseWriter, r *http.Request) {
	fields, err := ParseExtraFields(r)
	if err != nil {
		s.fail(w, r, "add_extra", err)
		return
	}
	extra, err := s.salary.AddExtra(r.Context(), fields.Name, fields.Amount)
	if err != nil {
		s.fail(w, r, "add_extra", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(extra).Write(w)
}

func (s *Server) handleUpdateExtra(w http.ResponseWriter, r *http.Request) {
	field, value, err := ParseExtraUpdate(r)
	if err != nil {
		s.fail(w, r, "update_extra", err)
		return
	}
	if _, err := s.salary.UpdateExtra(r.Context(), pathID(r), field, value); err != nil {
		s.fail(w, r, "update_extra", err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleRemoveExtra(w http.ResponseWriter, r *http.Request) {
	if _, err := s.salary.RemoveExtra(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, "remove_extra", err)
		return
	}
	NoContent().Write(w)
}
