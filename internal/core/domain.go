package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
	Pending Kind = "pending"
)

// DateLayout is the calendar date format stored in records.
const DateLayout = "2006-01-02"

func init() {
	// Persisted blobs carry amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	// Kind selects one of the three ledger collections.
	Kind string

	// Entry is an income or expense record. Both collections share the shape.
	Entry struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// PendingReceivable is money expected to be collected, optionally tied to
	// the expense it offsets once paid.
	PendingReceivable struct {
		Entry
		Paid             bool   `json:"paid"`
		AssociatedTo     string `json:"associatedTo,omitempty"`
		AssociatedToName string `json:"associatedToName,omitempty"`
	}

	// EntryInput carries the user-editable fields of any ledger record.
	EntryInput struct {
		Name         string
		Description  string
		Amount       decimal.Decimal
		Date         string
		AssociatedTo string // pending only
	}

	// ExtraDeduction is a named monthly deduction applied to the salary.
	ExtraDeduction struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}
)

// Kinds lists every ledger collection in display order.
func Kinds() []Kind {
	return []Kind{Income, Expense, Pending}
}

// ParseKind maps a path segment to a Kind. "entry" is accepted as an alias of
// income since stored blobs call that collection "entries".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "entry", "entries":
		return Income, nil
	case "expense", "expenses":
		return Expense, nil
	case "pending", "pendings":
		return Pending, nil
	default:
		return "", ErrUnknownKind
	}
}

func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether k names a ledger collection.
func (k Kind) IsValid() bool {
	switch k {
	case Income, Expense, Pending:
		return true
	default:
		return false
	}
}

// Validate checks the fields every ledger record requires.
func (in EntryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.Date != "" {
		if _, err := time.Parse(DateLayout, in.Date); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Normalized trims the text fields and fills an empty date with today's date.
func (in EntryInput) Normalized(now time.Time) EntryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	in.AssociatedTo = strings.TrimSpace(in.AssociatedTo)
	if in.Date == "" {
		in.Date = now.Format(DateLayout)
	}
	return in
}

// Month returns the month bucket of the record: its date, or its creation
// time when the date is missing. ok is false when neither parses.
func (e Entry) Month() (MonthKey, bool) {
	return MonthOf(e.Date, e.CreatedAt)
}
