// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON objects or form-encoded; both are read through the same
// key lookup so handlers never care which one the client sent.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// maxBodyBytes caps request bodies; no legitimate payload comes close.
const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// MalformedRequestError reports a body or query that could not be read at
// all, as opposed to readable input that breaks a domain rule.
type MalformedRequestError struct {
	err error
}

func (e *MalformedRequestError) Error() string {
	return "malformed request: " + e.err.Error()
}

func (e *MalformedRequestError) Unwrap() error {
	return e.err
}

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body, even if empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to the string a form would carry.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads and parses the request body, reporting failures as
// malformed requests.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, &MalformedRequestError{err: err}
	}
	return p, nil
}

type entryRequest struct {
	Name         string `validate:"required"`
	Description  string
	Amount       string `validate:"required"`
	Date         string `validate:"omitempty,datetime=2006-01-02"`
	AssociatedTo string
}

// ParseEntryInput reads a ledger record submission.
func ParseEntryInput(r *http.Request) (core.EntryInput, error) {
	p, err := parseBody(r)
	if err != nil {
		return core.EntryInput{}, err
	}

	req := entryRequest{
		Name:         p.Get("name"),
		Description:  p.Get("description"),
		Amount:       p.Get("amount"),
		Date:         p.Get("date"),
		AssociatedTo: p.Get("associatedTo"),
	}
	if err := validate.Struct(req); err != nil {
		return core.EntryInput{}, toValidationError(err)
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.EntryInput{}, err
	}
	return core.EntryInput{
		Name:         req.Name,
		Description:  req.Description,
		Amount:       amount,
		Date:         req.Date,
		AssociatedTo: req.AssociatedTo,
	}, nil
}

type salaryRequest struct {
	MonthlySalary string `validate:"required"`
}

// ParseMonthlySalary reads the monthly salary of a PUT /api/salary body.
func ParseMonthlySalary(r *http.Request) (float64, error) {
	p, err := parseBody(r)
	if err != nil {
		return 0, err
	}

	req := salaryRequest{MonthlySalary: p.Get("monthlySalary")}
	if err := validate.Struct(req); err != nil {
		return 0, toValidationError(err)
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(req.MonthlySalary, ",", "."))
	if err != nil {
		return 0, core.ErrInvalidSalary
	}
	return d.InexactFloat64(), nil
}

// ExtraFields carries the optional initial values of a new extra deduction.
type ExtraFields struct {
	Name   string
	Amount string
}

// ParseExtraFields reads the body of POST /api/salary/extras. An empty body
// creates a blank deduction.
func ParseExtraFields(r *http.Request) (ExtraFields, error) {
	p, err := parseBody(r)
	if err != nil {
		return ExtraFields{}, err
	}
	return ExtraFields{Name: p.Get("name"), Amount: p.Get("amount")}, nil
}

type extraUpdateRequest struct {
	Field string `validate:"required,oneof=name amount"`
	Value string
}

// ParseExtraUpdate reads the field and value of PATCH /api/salary/extras/{id}.
func ParseExtraUpdate(r *http.Request) (field, value string, err error) {
	p, err := parseBody(r)
	if err != nil {
		return "", "", err
	}

	req := extraUpdateRequest{Field: p.Get("field"), Value: p.Get("value")}
	if err := validate.Struct(req); err != nil {
		return "", "", toValidationError(err)
	}
	return req.Field, req.Value, nil
}

// ParseMonthFilter reads the optional ?month=YYYY-MM query parameter.
func ParseMonthFilter(r *http.Request) (*core.MonthKey, error) {
	v := r.URL.Query().Get("month")
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	k, err := core.ParseMonthKey(v)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// toValidationError maps the first failed struct rule to the domain error
// the same input would get from the ledger or the calculator.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &MalformedRequestError{err: err}
	}

	fe := verrs[0]
	switch fe.StructField() {
	case "Name":
		return core.ErrEmptyName
	case "Amount":
		return core.ErrInvalidAmount
	case "Date":
		return core.ErrInvalidDate
	case "MonthlySalary":
		return core.ErrInvalidSalary
	case "Field":
		return core.ErrUnknownField
	default:
		return core.NewValidationError(strings.ToLower(fe.StructField()) + " is invalid")
	}
}
