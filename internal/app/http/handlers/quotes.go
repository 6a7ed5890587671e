package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crm-billing/go_backend/internal/app/http/middleware"
	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/quote"
)

type itemRequest struct {
	ProductID   *string         `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type quoteRequest struct {
	CustomerID  string          `json:"customer_id"`
	QuoteNumber string          `json:"quote_number"`
	IssueDate   string          `json:"issue_date"`
	ExpiryDate  string          `json:"expiry_date"`
	Status      quote.Status    `json:"status"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Notes       string          `json:"notes"`
	Items       []itemRequest   `json:"items"`
}

type totalsRequest struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
	Items   []itemRequest   `json:"items"`
}

type itemResponse struct {
	ProductID   *string         `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

type quoteResponse struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	QuoteNumber  string          `json:"quote_number"`
	IssueDate    string          `json:"issue_date"`
	ExpiryDate   string          `json:"expiry_date,omitempty"`
	Status       quote.Status    `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Items        []itemResponse  `json:"items,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toItems(in []itemRequest, verr *quote.ValidationError) []quote.Item {
	items := make([]quote.Item, 0, len(in))
	for i, it := range in {
		if it.ProductID != nil {
			if *it.ProductID == "" {
				it.ProductID = nil
			} else if _, err := uuid.Parse(*it.ProductID); err != nil {
				verr.Fields = append(verr.Fields, quote.FieldError{Row: i, Field: "product_id", Message: "product_id must be a uuid"})
			}
		}
		items = append(items, quote.Item{
			ProductRef:  it.ProductID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items
}

func toItemResponses(items []quote.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{
			ProductID:   it.ProductRef,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		})
	}
	return out
}

func toQuoteResponse(q *quote.Quote) quoteResponse {
	resp := quoteResponse{
		ID:           q.ID,
		CustomerID:   q.CustomerRef,
		CustomerName: q.CustomerName,
		QuoteNumber:  q.Number,
		IssueDate:    q.IssueDate.Format(quote.DateLayout),
		Status:       q.Status,
		Notes:        q.Notes,
		TaxRate:      q.TaxRatePercent,
		Subtotal:     q.Subtotal,
		TaxAmount:    q.TaxAmount,
		TotalAmount:  q.Total,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
	if !q.ExpiryDate.IsZero() {
		resp.ExpiryDate = q.ExpiryDate.Format(quote.DateLayout)
	}
	if len(q.Items) > 0 {
		resp.Items = toItemResponses(q.Items)
	}
	return resp
}

// buildQuote turns a request into a recalculated, validated quote. Request
// format problems and domain rule failures are reported together.
func (h *Handlers) buildQuote(req quoteRequest) (*quote.Quote, error) {
	verr := &quote.ValidationError{}
	q := &quote.Quote{
		CustomerRef:    strings.TrimSpace(req.CustomerID),
		Number:         strings.TrimSpace(req.QuoteNumber),
		Status:         req.Status,
		Notes:          strings.TrimSpace(req.Notes),
		TaxRatePercent: req.TaxRate,
		Items:          toItems(req.Items, verr),
	}
	if q.Status == "" {
		q.Status = quote.StatusDraft
	}
	if q.CustomerRef != "" {
		if _, err := uuid.Parse(q.CustomerRef); err != nil {
			verr.Fields = append(verr.Fields, quote.FieldError{Row: -1, Field: "customer_id", Message: "customer_id must be a uuid"})
		}
	}

	issue := strings.TrimSpace(req.IssueDate)
	if issue == "" {
		q.IssueDate = dateOnly(h.Now())
	} else if d, err := time.Parse(quote.DateLayout, issue); err == nil {
		q.IssueDate = d
	} else {
		verr.Fields = append(verr.Fields, quote.FieldError{Row: -1, Field: "issue_date", Message: "issue_date must be YYYY-MM-DD"})
	}
	if expiry := strings.TrimSpace(req.ExpiryDate); expiry != "" {
		if d, err := time.Parse(quote.DateLayout, expiry); err == nil {
			q.ExpiryDate = d
		} else {
			verr.Fields = append(verr.Fields, quote.FieldError{Row: -1, Field: "expiry_date", Message: "expiry_date must be YYYY-MM-DD"})
		}
	}

	if err := q.Validate(); err != nil {
		if ve, ok := err.(*quote.ValidationError); ok {
			verr.Fields = append(verr.Fields, withoutReported(verr, ve.Fields)...)
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	// Totals only after the amounts passed their bounds.
	q.Recalculate()
	return q, nil
}

// withoutReported drops rule errors on fields that already failed to parse,
// so an unreadable issue_date is not also reported as missing.
func withoutReported(verr *quote.ValidationError, fields []quote.FieldError) []quote.FieldError {
	seen := make(map[string]bool, len(verr.Fields))
	for _, f := range verr.Fields {
		seen[f.Path()] = true
	}
	out := fields[:0:0]
	for _, f := range fields {
		if !seen[f.Path()] {
			out = append(out, f)
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const maxQuoteBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuoteBody)).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// owner is set by middleware.Authenticate on every quote route.
func owner(r *http.Request) identity.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

// quoteID returns the route id, or false when it cannot name a stored quote.
func quoteID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// QuoteTotals previews totals without storing anything. An empty item list
// is allowed and yields zero totals.
func (h *Handlers) QuoteTotals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	verr := &quote.ValidationError{}
	items := toItems(req.Items, verr)
	if err := quote.ValidateTotalsInput(items, req.TaxRate); err != nil {
		verr.Fields = append(verr.Fields, err.(*quote.ValidationError).Fields...)
	}
	if len(verr.Fields) > 0 {
		h.writeQuoteError(w, r, verr)
		return
	}

	for i := range items {
		items[i].Amount = items[i].LineAmount()
	}
	t := quote.ComputeTotals(items, req.TaxRate)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"items":        toItemResponses(items),
		"subtotal":     t.Subtotal,
		"tax_amount":   t.TaxAmount,
		"total_amount": t.Total,
		"formatted": map[string]string{
			"subtotal":     quote.FormatMoney(t.Subtotal),
			"tax_amount":   quote.FormatMoney(t.TaxAmount),
			"total_amount": quote.FormatMoney(t.Total),
		},
	})
}

func (h *Handlers) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.QuoteNumber) == "" {
		req.QuoteNumber = quote.GenerateNumber(h.Cfg.QuoteNumberPrefix, h.Now())
	}
	q, err := h.buildQuote(req)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	if err := h.Quotes.Create(r.Context(), owner(r), q); err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	h.Log.InfoContext(r.Context(), "quote created", "quote_id", q.ID, "number", q.Number, "total", q.Total.String())
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "quote": toQuoteResponse(q)})
}

func (h *Handlers) UpdateQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(r)
	if !ok {
		h.writeQuoteError(w, r, quote.ErrNotFound)
		return
	}
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := h.buildQuote(req)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	q.ID = id
	if err := h.Quotes.Update(r.Context(), owner(r), q); err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "quote": toQuoteResponse(q)})
}

func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuote(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "quote": toQuoteResponse(q)})
}

func (h *Handlers) loadQuote(w http.ResponseWriter, r *http.Request) (*quote.Quote, bool) {
	id, ok := quoteID(r)
	if !ok {
		h.writeQuoteError(w, r, quote.ErrNotFound)
		return nil, false
	}
	q, err := h.Quotes.Get(r.Context(), owner(r), id)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return nil, false
	}
	return q, true
}

func (h *Handlers) ListQuotes(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	quotes, err := h.Quotes.List(r.Context(), owner(r), f)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	out := make([]quoteResponse, 0, len(quotes))
	for i := range quotes {
		out = append(out, toQuoteResponse(&quotes[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "quotes": out})
}

func parseListFilter(v url.Values) (quote.ListFilter, error) {
	f := quote.ListFilter{
		Status:      quote.Status(strings.TrimSpace(v.Get("status"))),
		CustomerRef: strings.TrimSpace(v.Get("customer")),
	}
	verr := &quote.ValidationError{}
	parse := func(key string) *time.Time {
		raw := strings.TrimSpace(v.Get(key))
		if raw == "" {
			return nil
		}
		d, err := time.Parse(quote.DateLayout, raw)
		if err != nil {
			verr.Fields = append(verr.Fields, quote.FieldError{Row: -1, Field: key, Message: key + " must be YYYY-MM-DD"})
			return nil
		}
		return &d
	}
	f.From = parse("from")
	f.To = parse("to")
	if f.CustomerRef != "" {
		if _, err := uuid.Parse(f.CustomerRef); err != nil {
			verr.Fields = append(verr.Fields, quote.FieldError{Row: -1, Field: "customer", Message: "customer must be a uuid"})
		}
	}
	if len(verr.Fields) > 0 {
		return f, verr
	}
	return f, f.Validate()
}

func (h *Handlers) QuotePDF(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuote(w, r)
	if !ok {
		return
	}
	b, err := h.PDF.Generate(*q)
	if err != nil {
		h.Log.ErrorContext(r.Context(), "quote pdf failed", "quote_id", q.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "pdf generation failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, pdfFileName(q.Number)))
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func pdfFileName(number string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, number)
	if name == "" {
		return "quote"
	}
	return name
}

func (h *Handlers) ShareQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuote(w, r)
	if !ok {
		return
	}
	link, err := quote.WhatsAppLink(q, r.URL.Query().Get("phone"), h.Cfg.PhoneRegion)
	if err != nil {
		h.writeQuoteError(w, r, &quote.ValidationError{Fields: []quote.FieldError{
			{Row: -1, Field: "phone", Message: "phone must be a valid phone number"},
		}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "url": link, "text": quote.ShareText(q)})
}
