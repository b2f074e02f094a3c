package salary

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartera/internal/core"
	"cartera/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestCalculator(t *testing.T, kv Backend) *Calculator {
	t.Helper()
	if kv == nil {
		kv = memory.New()
	}
	n := 0
	c, err := Open(context.Background(), kv, DefaultKey, WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("x-%d", n)
	}))
	require.NoError(t, err)
	return c
}

func TestBreakdownScenario(t *testing.T) {
	c := newTestCalculator(t, nil)
	require.NoError(t, c.SetMonthlySalary(context.Background(), 45000))

	b := c.ComputeBreakdown()
	require.True(t, b.Available)

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"biweekly", b.Biweekly, "22500"},
		{"annual", b.Annual, "585000"},
		{"social", b.SocialInsurance, "4275"},
		{"educational", b.EducationalInsurance, "1125"},
		{"income tax", b.IncomeTax, "11250"},
		{"extras", b.ExtrasTotal, "0"},
		{"net", b.NetMonthly, "28350"},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.got.Equal(dec(tc.want)), "got %s want %s", tc.got, tc.want)
		})
	}

	again := c.ComputeBreakdown()
	assert.True(t, again.NetMonthly.Equal(b.NetMonthly), "breakdown is pure")
}

func TestIncomeTaxRateTiers(t *testing.T) {
	tests := []struct {
		annual string
		want   string
	}{
		{"0", "0"},
		{"10999.99", "0"},
		{"11000", "0.15"},
		{"30000", "0.15"},
		{"50000", "0.15"},
		{"50000.01", "0.25"},
		{"585000", "0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.annual, func(t *testing.T) {
			got := IncomeTaxRate(dec(tt.annual))
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestComputeTierBoundaries(t *testing.T) {
	// 1000 * 13 = 13000 falls in the middle tier.
	b := Compute(dec("1000"), decimal.Zero)
	assert.True(t, b.IncomeTax.Equal(dec("150")))

	// 800 * 13 = 10400 is tax free.
	b = Compute(dec("800"), decimal.Zero)
	assert.True(t, b.IncomeTax.IsZero())

	// 4000 * 13 = 52000 is in the top tier.
	b = Compute(dec("4000"), decimal.Zero)
	assert.True(t, b.IncomeTax.Equal(dec("1000")))
}

func TestBreakdownUnavailable(t *testing.T) {
	c := newTestCalculator(t, nil)
	assert.False(t, c.ComputeBreakdown().Available, "unset salary")

	require.NoError(t, c.SetMonthlySalary(context.Background(), 0))
	assert.False(t, c.ComputeBreakdown().Available, "zero salary")
}

func TestSetMonthlySalaryRejectsInvalid(t *testing.T) {
	c := newTestCalculator(t, nil)
	ctx := context.Background()
	require.NoError(t, c.SetMonthlySalary(ctx, 2500))

	for _, v := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := c.SetMonthlySalary(ctx, v)
		require.ErrorIs(t, err, core.ErrInvalidSalary)
		assert.True(t, core.IsValidation(err))
	}

	st := c.State()
	require.True(t, st.MonthlySalary.Valid)
	assert.True(t, st.MonthlySalary.Decimal.Equal(dec("2500")))
	assert.Equal(t, uint64(1), c.Revision())
}

func TestExtrasLifecycle(t *testing.T) {
	c := newTestCalculator(t, nil)
	ctx := context.Background()
	require.NoError(t, c.SetMonthlySalary(ctx, 45000))

	a, err := c.AddExtra(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x-1", a.ID)
	assert.True(t, a.Amount.IsZero())

	b, err := c.AddExtra(ctx)
	require.NoError(t, err)

	ok, err := c.UpdateExtra(ctx, a.ID, "name", "gym")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = c.UpdateExtra(ctx, a.ID, "amount", "350")
	require.NoError(t, err)
	_, err = c.UpdateExtra(ctx, b.ID, "amount", "1000,5")
	require.NoError(t, err)

	bd := c.ComputeBreakdown()
	assert.True(t, bd.ExtrasTotal.Equal(dec("1350.5")))
	assert.True(t, bd.NetMonthly.Equal(dec("26999.5")), bd.NetMonthly.String())

	removed, err := c.RemoveExtra(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	st := c.State()
	require.Len(t, st.Extras, 1)
	assert.Equal(t, "gym", st.Extras[0].Name)

	removed, err = c.RemoveExtra(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUpdateExtraCoercesAmount(t *testing.T) {
	c := newTestCalculator(t, nil)
	ctx := context.Background()
	e, err := c.AddExtra(ctx)
	require.NoError(t, err)

	for _, v := range []string{"abc", "", "-20", "1e3"} {
		_, err := c.UpdateExtra(ctx, e.ID, "amount", "10")
		require.NoError(t, err)
		_, err = c.UpdateExtra(ctx, e.ID, "amount", v)
		require.NoError(t, err, v)
		assert.True(t, c.State().Extras[0].Amount.IsZero(), "value %q", v)
	}

	_, err = c.UpdateExtra(ctx, e.ID, "colour", "red")
	assert.ErrorIs(t, err, core.ErrUnknownField)

	ok, err := c.UpdateExtra(ctx, "missing", "name", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNetMayGoNegative(t *testing.T) {
	b := Compute(dec("100"), dec("500"))
	assert.True(t, b.NetMonthly.IsNegative())
	assert.True(t, b.NetMonthly.Equal(dec("-412")), b.NetMonthly.String())
}

func TestPersistenceFormat(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()

	c := newTestCalculator(t, kv)
	raw, _ := kv.Get(ctx, DefaultKey)
	assert.Empty(t, raw)

	require.NoError(t, c.SetMonthlySalary(ctx, 1234.5))
	e, err := c.AddExtra(ctx)
	require.NoError(t, err)
	_, err = c.UpdateExtra(ctx, e.ID, "amount", "12")
	require.NoError(t, err)

	raw, err = kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"monthlySalary":1234.5,"extras":[{"id":"x-1","name":"","amount":12}]}`, raw)

	reopened := newTestCalculator(t, kv)
	assert.True(t, reopened.ComputeBreakdown().NetMonthly.Equal(c.ComputeBreakdown().NetMonthly))
}

func TestFlushKeepsDashboardFields(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, DefaultKey,
		`{"userName":"Ana","monthlySalary":1000,"extras":[],"theme":{"dark":true}}`))

	c := newTestCalculator(t, kv)
	require.NoError(t, c.SetMonthlySalary(ctx, 2000))

	raw, err := kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userName":"Ana","monthlySalary":2000,"extras":[],"theme":{"dark":true}}`, raw)
}

func TestOpenNullSalaryAndCorruptBlob(t *testing.T) {
	kv := memory.New()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, DefaultKey, `{"monthlySalary":null,"extras":[]}`))
	c := newTestCalculator(t, kv)
	assert.False(t, c.State().MonthlySalary.Valid)

	require.NoError(t, kv.Set(ctx, DefaultKey, `[[[`))
	c = newTestCalculator(t, kv)
	assert.False(t, c.State().MonthlySalary.Valid)
	assert.NotNil(t, c.State().Extras)
}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) (string, error) { return "", errors.New("offline") }
func (brokenBackend) Set(context.Context, string, string) error  { return errors.New("offline") }

func TestOpenBackendError(t *testing.T) {
	_, err := Open(context.Background(), brokenBackend{}, "")
	assert.Error(t, err)
}
