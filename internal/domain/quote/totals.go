package quote

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

func (it Item) LineAmount() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

// ComputeTotals is pure. An empty item list yields zero totals; rejecting it
// is Validate's job.
func ComputeTotals(items []Item, taxRatePercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineAmount())
	}
	// Shift(-2) divides by 100 without the precision cap of Div.
	tax := subtotal.Mul(taxRatePercent).Shift(-2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}

// FormatMoney rounds for display only.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
