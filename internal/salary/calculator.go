// Package salary projects a monthly salary into statutory deductions, custom
// extra deductions and net pay.
package salary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cartera/internal/core"
	"cartera/internal/storage"
)

// DefaultKey is the namespace the salary blob is stored under.
const DefaultKey = "cuentas_dashboard_v1"

// Statutory rates applied to the monthly salary.
var (
	AnnualMonths        = decimal.NewFromInt(13)
	SocialInsuranceRate = decimal.RequireFromString("0.095")
	EducationalRate     = decimal.RequireFromString("0.025")
	MiddleTaxRate       = decimal.RequireFromString("0.15")
	TopTaxRate          = decimal.RequireFromString("0.25")

	// Annual income thresholds. Both bounds belong to the middle tier.
	TaxFreeBelow  = decimal.NewFromInt(11000)
	MiddleTierMax = decimal.NewFromInt(50000)
)

// Extra deduction fields accepted by UpdateExtra.
const (
	FieldName   = "name"
	FieldAmount = "amount"
)

type Backend interface {
	storage.Reader
	storage.Writer
}

// State is the persisted salary blob. A null monthlySalary means unset.
type State struct {
	MonthlySalary decimal.NullDecimal   `json:"monthlySalary"`
	Extras        []core.ExtraDeduction `json:"extras"`
}

// Breakdown is the derived salary schedule. Every amount is zero when
// Available is false.
type Breakdown struct {
	Available            bool            `json:"available"`
	Monthly              decimal.Decimal `json:"monthly"`
	Biweekly             decimal.Decimal `json:"biweekly"`
	Annual               decimal.Decimal `json:"annual"`
	SocialInsurance      decimal.Decimal `json:"socialInsurance"`
	EducationalInsurance decimal.Decimal `json:"educationalInsurance"`
	IncomeTax            decimal.Decimal `json:"incomeTax"`
	ExtrasTotal          decimal.Decimal `json:"extrasTotal"`
	NetMonthly           decimal.Decimal `json:"netMonthly"`
}

type Calculator struct {
	mu       sync.RWMutex
	backend  Backend
	key      string
	state    State
	revision uint64
	// other holds top-level blob keys this package does not model, such as
	// the dashboard's userName. They are written back unchanged.
	other map[string]json.RawMessage

	newID  func() string
	logger *slog.Logger
}

type Option func(*Calculator)

func WithIDGenerator(fn func() string) Option {
	return func(c *Calculator) { c.newID = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// Open loads the blob stored under key, falling back to an empty state when
// it is missing or malformed.
func Open(ctx context.Context, backend Backend, key string, opts ...Option) (*Calculator, error) {
	if key == "" {
		key = DefaultKey
	}
	c := &Calculator{
		backend: backend,
		key:     key,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	raw, err := backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load salary %s: %w", key, err)
	}
	if raw != "" {
		state, other, err := decodeBlob(raw)
		if err != nil {
			c.logger.WarnContext(ctx, "Discarding unreadable salary blob", "key", key, "error", err)
		} else {
			c.state, c.other = state, other
		}
	}
	if c.state.Extras == nil {
		c.state.Extras = []core.ExtraDeduction{}
	}
	return c, nil
}

func (c *Calculator) Key() string { return c.key }

func (c *Calculator) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// State returns a copy of the salary and extras.
func (c *Calculator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		MonthlySalary: c.state.MonthlySalary,
		Extras:        append([]core.ExtraDeduction{}, c.state.Extras...),
	}
}

func decodeBlob(raw string) (State, map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return State{}, nil, err
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, nil, err
	}
	delete(fields, "monthlySalary")
	delete(fields, "extras")
	return state, fields, nil
}

func (c *Calculator) encodeLocked() ([]byte, error) {
	if len(c.other) == 0 {
		return json.Marshal(c.state)
	}
	salary, err := json.Marshal(c.state.MonthlySalary)
	if err != nil {
		return nil, err
	}
	extras, err := json.Marshal(c.state.Extras)
	if err != nil {
		return nil, err
	}
	blob := make(map[string]json.RawMessage, len(c.other)+2)
	for k, v := range c.other {
		blob[k] = v
	}
	blob["monthlySalary"] = salary
	blob["extras"] = extras
	return json.Marshal(blob)
}

func (c *Calculator) flushLocked(ctx context.Context) error {
	c.revision++
	data, err := c.encodeLocked()
	if err != nil {
		return fmt.Errorf("encode salary: %w", err)
	}
	if err := c.backend.Set(ctx, c.key, string(data)); err != nil {
		return fmt.Errorf("persist salary %s: %w", c.key, err)
	}
	return nil
}

// SetMonthlySalary stores v. NaN, infinities and negative values are rejected
// and the previous salary is kept.
func (c *Calculator) SetMonthlySalary(ctx context.Context, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return core.ErrInvalidSalary
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.MonthlySalary = decimal.NewNullDecimal(decimal.NewFromFloat(v))
	c.logger.InfoContext(ctx, "Monthly salary set", "monthly_salary", c.state.MonthlySalary.Decimal.String())
	return c.flushLocked(ctx)
}

// AddExtra appends an unnamed zero deduction and returns it.
func (c *Calculator) AddExtra(ctx context.Context) (core.ExtraDeduction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	extra := core.ExtraDeduction{ID: c.newID(), Amount: decimal.Zero}
	c.state.Extras = append(c.state.Extras, extra)
	c.logger.InfoContext(ctx, "Extra deduction added", "id", extra.ID)
	return extra, c.flushLocked(ctx)
}

// UpdateExtra sets one field of the deduction with the given id. Amounts that
// are not non-negative numbers become zero. An unknown id is a no-op.
func (c *Calculator) UpdateExtra(ctx context.Context, id, field, value string) (bool, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if field != FieldName && field != FieldAmount {
		return false, core.ErrUnknownField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	extra := &c.state.Extras[idx]
	switch field {
	case FieldName:
		extra.Name = value
	case FieldAmount:
		extra.Amount = core.ParseLooseAmount(value)
	}

	c.logger.InfoContext(ctx, "Extra deduction updated", "id", id, "field", field)
	return true, c.flushLocked(ctx)
}

func (c *Calculator) RemoveExtra(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	c.state.Extras = append(c.state.Extras[:idx], c.state.Extras[idx+1:]...)
	c.logger.InfoContext(ctx, "Extra deduction removed", "id", id)
	return true, c.flushLocked(ctx)
}

func (c *Calculator) indexOf(id string) int {
	for i := range c.state.Extras {
		if c.state.Extras[i].ID == id {
			return i
		}
	}
	return -1
}

// ComputeBreakdown derives the deduction schedule from the current state.
func (c *Calculator) ComputeBreakdown() Breakdown {
	c.mu.RLock()
	defer c.mu.RUnlock()

	extras := make([]decimal.Decimal, 0, len(c.state.Extras))
	for _, e := range c.state.Extras {
		extras = append(extras, e.Amount)
	}
	if !c.state.MonthlySalary.Valid {
		return Breakdown{}
	}
	return Compute(c.state.MonthlySalary.Decimal, core.Sum(extras...))
}

// Compute derives the schedule for monthly salary m. A non-positive m yields
// an unavailable breakdown.
func Compute(m, extrasTotal decimal.Decimal) Breakdown {
	if !m.IsPositive() {
		return Breakdown{}
	}
	annual := m.Mul(AnnualMonths)
	social := m.Mul(SocialInsuranceRate)
	educational := m.Mul(EducationalRate)
	tax := m.Mul(IncomeTaxRate(annual))

	return Breakdown{
		Available:            true,
		Monthly:              m,
		Biweekly:             m.Div(decimal.NewFromInt(2)),
		Annual:               annual,
		SocialInsurance:      social,
		EducationalInsurance: educational,
		IncomeTax:            tax,
		ExtrasTotal:          extrasTotal,
		NetMonthly:           m.Sub(core.Sum(social, educational, tax, extrasTotal)),
	}
}

// IncomeTaxRate returns the rate applied to the monthly salary for the given
// annual income.
func IncomeTaxRate(annual decimal.Decimal) decimal.Decimal {
	switch {
	case annual.GreaterThan(MiddleTierMax):
		return TopTaxRate
	case annual.GreaterThanOrEqual(TaxFreeBelow):
		return MiddleTaxRate
	default:
		return decimal.Zero
	}
}
