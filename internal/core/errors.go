package core

import "errors"

var (
	ErrEmptyName     = NewValidationError("name is required")
	ErrInvalidAmount = NewValidationError("amount must be a positive number")
	ErrInvalidDate   = NewValidationError("date must be formatted as YYYY-MM-DD")
	ErrInvalidMonth  = NewValidationError("month must be formatted as YYYY-MM")
	ErrInvalidSalary = NewValidationError("monthly salary must be a finite, non-negative number")
	ErrUnknownKind   = NewValidationError("kind must be one of income, expense, pending")
	ErrUnknownField  = NewValidationError("field must be one of name, amount")
)

// ValidationError rejects a user submission. State is left unchanged
// whenever an operation returns one.
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
