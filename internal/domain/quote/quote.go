package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusConverted:
		return true
	}
	return false
}

type Quote struct {
	ID           string
	OwnerID      string
	CustomerRef  string
	CustomerName string // joined on load, never written
	Number       string
	IssueDate    time.Time
	ExpiryDate   time.Time
	Status       Status
	Notes        string
	Items        []Item

	TaxRatePercent decimal.Decimal
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Item struct {
	ProductRef  *string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Recalculate refreshes every line amount and the quote totals from the
// current items. Totals sent by clients are never trusted.
func (q *Quote) Recalculate() {
	for i := range q.Items {
		q.Items[i].Amount = q.Items[i].LineAmount()
	}
	t := ComputeTotals(q.Items, q.TaxRatePercent)
	q.Subtotal = t.Subtotal
	q.TaxAmount = t.TaxAmount
	q.Total = t.Total
}

// ListFilter narrows a quote listing. Date bounds are inclusive and apply to
// the issue date.
type ListFilter struct {
	From        *time.Time
	To          *time.Time
	Status      Status
	CustomerRef string
}

const DateLayout = "2006-01-02"
