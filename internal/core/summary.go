package core

import "github.com/shopspring/decimal"

// Totals sums every income and expense record regardless of date.
type Totals struct {
	Income   decimal.Decimal `json:"totalEntries"`
	Expenses decimal.Decimal `json:"totalExpenses"`
	Net      decimal.Decimal `json:"netTotal"`
}

// MonthComparison is one bar group of the monthly income/expense chart.
type MonthComparison struct {
	Month    MonthKey        `json:"-"`
	Key      string          `json:"month"`
	Label    string          `json:"label"`
	Income   decimal.Decimal `json:"entries"`
	Expenses decimal.Decimal `json:"expenses"`
}

// MonthBreakdown is the category split of a single month. Paid receivables
// are not part of Pending.
type MonthBreakdown struct {
	Month    MonthKey        `json:"-"`
	Key      string          `json:"month"`
	Income   decimal.Decimal `json:"entries"`
	Expenses decimal.Decimal `json:"expenses"`
	Pending  decimal.Decimal `json:"pendings"`
}
