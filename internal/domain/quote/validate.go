package quote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("quote not found")
	ErrNumberConflict = errors.New("quote number already exists")
)

const msgItemsRequired = "at least one item required"

// Bounds for client-supplied amounts. Checked from coefficient and exponent
// so a value like 1e8000000 is rejected without being expanded.
const (
	maxIntegerDigits  = 12
	maxFractionDigits = 6
)

func withinBounds(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	exp := int(d.Exponent())
	if exp < -maxFractionDigits {
		return false
	}
	return d.NumDigits()+exp <= maxIntegerDigits
}

func boundsMessage(field string) string {
	return fmt.Sprintf("%s must have at most %d integer and %d decimal digits", field, maxIntegerDigits, maxFractionDigits)
}

// FieldError describes one invalid field. Row is the item index, or -1 for
// header fields.
type FieldError struct {
	Row     int
	Field   string
	Message string
}

func (f FieldError) Path() string {
	if f.Row < 0 {
		return f.Field
	}
	return fmt.Sprintf("items[%d].%s", f.Row, f.Field)
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid quote"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path()+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

// RowErrors groups the item errors by row index.
func (e *ValidationError) RowErrors() map[int][]FieldError {
	out := map[int][]FieldError{}
	for _, f := range e.Fields {
		if f.Row >= 0 {
			out[f.Row] = append(out[f.Row], f)
		}
	}
	return out
}

// CustomerNotFound is reported when customer_id does not name one of the
// caller's customers.
func CustomerNotFound() error {
	return &ValidationError{Fields: []FieldError{{Row: -1, Field: "customer_id", Message: "customer not found"}}}
}

func (e *ValidationError) add(row int, field, msg string) {
	e.Fields = append(e.Fields, FieldError{Row: row, Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateItems checks every row and reports all failures at once.
func ValidateItems(items []Item) error {
	verr := &ValidationError{}
	validateItems(verr, items)
	return verr.orNil()
}

func validateItems(verr *ValidationError, items []Item) {
	for i, it := range items {
		if strings.TrimSpace(it.Description) == "" {
			verr.add(i, "description", "description is required")
		}
		if !it.Quantity.IsPositive() {
			verr.add(i, "quantity", "quantity must be > 0")
		} else if !withinBounds(it.Quantity) {
			verr.add(i, "quantity", boundsMessage("quantity"))
		}
		if it.UnitPrice.IsNegative() {
			verr.add(i, "unit_price", "unit_price must be >= 0")
		} else if !withinBounds(it.UnitPrice) {
			verr.add(i, "unit_price", boundsMessage("unit_price"))
		}
	}
}

func validateTaxRate(verr *ValidationError, rate decimal.Decimal) {
	if rate.IsNegative() {
		verr.add(-1, "tax_rate", "tax_rate must be >= 0")
	} else if !withinBounds(rate) {
		verr.add(-1, "tax_rate", boundsMessage("tax_rate"))
	}
}

// ValidateTotalsInput checks what ComputeTotals needs: every row and the tax
// rate. An empty item list is accepted.
func ValidateTotalsInput(items []Item, taxRatePercent decimal.Decimal) error {
	verr := &ValidationError{}
	validateItems(verr, items)
	validateTaxRate(verr, taxRatePercent)
	return verr.orNil()
}

// Validate is the submit-time check: header fields, a non-empty item list and
// every row.
func (q *Quote) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(q.CustomerRef) == "" {
		verr.add(-1, "customer_id", "customer is required")
	}
	if strings.TrimSpace(q.Number) == "" {
		verr.add(-1, "quote_number", "quote number is required")
	}
	if !q.Status.Valid() {
		verr.add(-1, "status", fmt.Sprintf("unknown status %q", q.Status))
	}
	validateTaxRate(verr, q.TaxRatePercent)
	if q.IssueDate.IsZero() {
		verr.add(-1, "issue_date", "issue_date is required")
	}
	if !q.ExpiryDate.IsZero() && !q.IssueDate.IsZero() && q.ExpiryDate.Before(q.IssueDate) {
		verr.add(-1, "expiry_date", "expiry_date must not be before issue_date")
	}
	if len(q.Items) == 0 {
		verr.add(-1, "items", msgItemsRequired)
	}
	validateItems(verr, q.Items)
	return verr.orNil()
}

func (f ListFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return &ValidationError{Fields: []FieldError{{Row: -1, Field: "status", Message: fmt.Sprintf("unknown status %q", f.Status)}}}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return &ValidationError{Fields: []FieldError{{Row: -1, Field: "from", Message: "from must not be after to"}}}
	}
	return nil
}
