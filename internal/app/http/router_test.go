package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-billing/go_backend/internal/app/config"
	"crm-billing/go_backend/internal/app/http/handlers"
	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/quote"
	"crm-billing/go_backend/internal/domain/ticket"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, bearer string) (identity.Identity, error) {
	if strings.HasPrefix(bearer, "user-") {
		return identity.Identity{UserID: bearer}, nil
	}
	return identity.Identity{}, identity.ErrUnauthorized
}

// memQuotes enforces owner scoping and number uniqueness like the real store.
type memQuotes struct {
	mu     sync.Mutex
	quotes map[string]quote.Quote
}

func newMemQuotes() *memQuotes { return &memQuotes{quotes: map[string]quote.Quote{}} }

func (m *memQuotes) numberTaken(number, exceptID string) bool {
	for id, q := range m.quotes {
		if q.Number == number && id != exceptID {
			return true
		}
	}
	return false
}

func (m *memQuotes) Create(_ context.Context, owner identity.Identity, q *quote.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.CustomerRef != customerID {
		return quote.CustomerNotFound()
	}
	if m.numberTaken(q.Number, "") {
		return fmt.Errorf("%w: %s", quote.ErrNumberConflict, q.Number)
	}
	q.ID = uuid.NewString()
	q.CustomerName = "Acme Turizm"
	q.OwnerID = owner.UserID
	q.CreatedAt = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	q.UpdatedAt = q.CreatedAt
	m.quotes[q.ID] = *q
	return nil
}

func (m *memQuotes) Update(_ context.Context, owner identity.Identity, q *quote.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.quotes[q.ID]
	if !ok || cur.OwnerID != owner.UserID {
		return quote.ErrNotFound
	}
	if q.CustomerRef != customerID {
		return quote.CustomerNotFound()
	}
	if m.numberTaken(q.Number, q.ID) {
		return quote.ErrNumberConflict
	}
	q.CustomerName = "Acme Turizm"
	q.OwnerID = owner.UserID
	q.CreatedAt = cur.CreatedAt
	m.quotes[q.ID] = *q
	return nil
}

func (m *memQuotes) Get(_ context.Context, owner identity.Identity, id string) (*quote.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.OwnerID != owner.UserID {
		return nil, quote.ErrNotFound
	}
	q.CustomerName = "Acme Turizm"
	return &q, nil
}

func (m *memQuotes) List(_ context.Context, owner identity.Identity, f quote.ListFilter) ([]quote.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []quote.Quote
	for _, q := range m.quotes {
		if q.OwnerID != owner.UserID {
			continue
		}
		if f.From != nil && q.IssueDate.Before(*f.From) || f.To != nil && q.IssueDate.After(*f.To) {
			continue
		}
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		q.Items = nil
		out = append(out, q)
	}
	return out, nil
}

type fakePDF struct{ err error }

func (f fakePDF) Generate(q quote.Quote) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.3 " + q.Number), nil
}

type fakeModel struct{ out string }

func (f fakeModel) Generate(context.Context, string) (string, error) { return f.out, nil }

type fakeTicketStore struct{ saved int }

func (f *fakeTicketStore) CreateBundle(context.Context, identity.Identity, ticket.Bundle) (string, error) {
	f.saved++
	return "0d5a3d0e-5a43-4c8e-9d4f-0f2b7f6b9e11", nil
}

const customerID = "7b0c7c59-1f51-4a43-9a0e-2f1f6c8b9d10"

type testServer struct {
	srv     *httptest.Server
	quotes  *memQuotes
	tickets *fakeTicketStore
	pipe    *ticket.Pipeline
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{CORSAllowOrigin: "*", QuoteNumberPrefix: "TKL", PhoneRegion: "TR"}
	ts := &testServer{quotes: newMemQuotes(), tickets: &fakeTicketStore{}}
	ts.pipe = &ticket.Pipeline{
		Auth:     fakeResolver{},
		Model:    fakeModel{out: "```json\n{\"airline\":\"Pegasus\",\"pnr\":\"ab12cd\",\"flight_date\":\"2025-03-10\",\"flight_time\":\"14:30\",\"origin\":\"SAW\",\"destination\":\"ADB\",\"passenger_name\":\"Ali Veli\"}\n```"},
		Store:    ts.tickets,
		Location: time.UTC,
		Log:      log,
	}
	h := handlers.New(cfg, log, ts.quotes, fakePDF{}, ts.pipe)
	h.Now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	ts.srv = httptest.NewServer(NewRouter(h, fakeResolver{}, log))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	} else {
		out = map[string]any{"raw": string(raw)}
	}
	return res, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	res, body := ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["raw"])
}

func TestExtractTicket(t *testing.T) {
	ts := newTestServer(t)

	res, body := ts.do(t, http.MethodPost, "/v1/tickets/extract", "user-1", `{"emailText":"Rezervasyon kodunuz AB12CD"}`)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "0d5a3d0e-5a43-4c8e-9d4f-0f2b7f6b9e11", body["ticket_id"])
	assert.Equal(t, "2025-03-09T14:30:00Z", body["check_in_open_at"])
	extracted := body["extracted"].(map[string]any)
	assert.Equal(t, "AB12CD", extracted["pnr"])
	assert.Equal(t, "14:30", extracted["flight_time"])
	assert.Equal(t, 1, ts.tickets.saved)
}

func TestExtractTicketErrors(t *testing.T) {
	testCases := []struct {
		name    string
		token   string
		body    string
		missing []string
		status  int
		msg     string
	}{
		{name: "empty text", token: "user-1", body: `{"emailText":"   "}`, status: http.StatusBadRequest, msg: "emailText zorunludur"},
		{name: "no body", token: "user-1", status: http.StatusBadRequest, msg: "emailText zorunludur"},
		{name: "broken json", token: "user-1", body: `{"emailText":`, status: http.StatusBadRequest, msg: "invalid JSON body"},
		{name: "unauthorized is 500", token: "nobody", body: `{"emailText":"mail"}`, status: http.StatusInternalServerError, msg: "unauthorized"},
		{name: "no token", body: `{"emailText":"mail"}`, status: http.StatusInternalServerError, msg: "unauthorized"},
		{
			name: "missing configuration", token: "user-1", body: `{"emailText":"mail"}`,
			missing: []string{"SUPABASE_URL", "GEMINI_API_KEY"},
			status:  http.StatusInternalServerError, msg: "missing configuration: SUPABASE_URL, GEMINI_API_KEY",
		},
		{
			name: "empty text wins over missing configuration", token: "user-1", body: `{"emailText":""}`,
			missing: []string{"GEMINI_API_KEY"},
			status:  http.StatusBadRequest, msg: "emailText zorunludur",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.pipe.MissingConfig = tc.missing

			res, body := ts.do(t, http.MethodPost, "/v1/tickets/extract", tc.token, tc.body)
			assert.Equal(t, tc.status, res.StatusCode)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.msg, body["error"])
			assert.Zero(t, ts.tickets.saved)
		})
	}
}

func TestExtractTicketPreflight(t *testing.T) {
	ts := newTestServer(t)
	res, body := ts.do(t, http.MethodOptions, "/v1/tickets/extract", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "", body["raw"])
	assert.Equal(t, "POST, OPTIONS", res.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", res.Header.Get("Access-Control-Allow-Headers"))
}

const createBody = `{
	"customer_id": "` + customerID + `",
	"issue_date": "2025-03-01",
	"expiry_date": "2025-03-15",
	"tax_rate": "20",
	"subtotal": "1",
	"total_amount": "1",
	"items": [
		{"description": "Transfer", "quantity": 2, "unit_price": "150.50"},
		{"description": "Hotel", "quantity": "1", "unit_price": 900}
	]
}`

func createQuote(t *testing.T, ts *testServer, token, body string) map[string]any {
	t.Helper()
	res, out := ts.do(t, http.MethodPost, "/v1/quotes", token, body)
	require.Equal(t, http.StatusCreated, res.StatusCode, out)
	return out["quote"].(map[string]any)
}

func TestQuoteLifecycle(t *testing.T) {
	ts := newTestServer(t)

	q := createQuote(t, ts, "user-1", createBody)
	assert.Regexp(t, `^TKL-2025-\d{4}$`, q["quote_number"])
	assert.Equal(t, "Acme Turizm", q["customer_name"])
	assert.Equal(t, "draft", q["status"])
	assert.Equal(t, "1201", q["subtotal"])
	assert.Equal(t, "240.2", q["tax_amount"])
	assert.Equal(t, "1441.2", q["total_amount"])
	id := q["id"].(string)

	res, out := ts.do(t, http.MethodGet, "/v1/quotes/"+id, "user-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := out["quote"].(map[string]any)
	assert.Equal(t, "Acme Turizm", got["customer_name"])
	assert.Len(t, got["items"], 2)

	res, _ = ts.do(t, http.MethodGet, "/v1/quotes/"+id, "user-2", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	update := strings.Replace(createBody, `"issue_date"`, `"quote_number": "TKL-2025-0001", "status": "sent", "issue_date"`, 1)
	res, out = ts.do(t, http.MethodPut, "/v1/quotes/"+id, "user-1", update)
	require.Equal(t, http.StatusOK, res.StatusCode, out)
	assert.Equal(t, "sent", out["quote"].(map[string]any)["status"])
	assert.Equal(t, "Acme Turizm", out["quote"].(map[string]any)["customer_name"])

	res, out = ts.do(t, http.MethodGet, "/v1/quotes?from=2025-03-01&to=2025-03-31&status=sent", "user-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, out["quotes"], 1)

	res, out = ts.do(t, http.MethodGet, "/v1/quotes?from=2025-04-01", "user-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, out["quotes"])

	res, out = ts.do(t, http.MethodGet, "/v1/quotes/"+id+"/pdf", "user-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="TKL-2025-0001.pdf"`, res.Header.Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 TKL-2025-0001", out["raw"])

	res, out = ts.do(t, http.MethodGet, "/v1/quotes/"+id+"/share?phone=0532%20123%2045%2067", "user-1", "")
	require.Equal(t, http.StatusOK, res.StatusCode, out)
	assert.True(t, strings.HasPrefix(out["url"].(string), "https://wa.me/905321234567?text="), out["url"])

	res, out = ts.do(t, http.MethodGet, "/v1/quotes/"+id+"/share?phone=12", "user-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, out["fields"], "phone")
}

func TestQuoteNumberConflict(t *testing.T) {
	ts := newTestServer(t)
	body := strings.Replace(createBody, `"issue_date"`, `"quote_number": "TKL-2025-1234", "issue_date"`, 1)
	createQuote(t, ts, "user-1", body)

	res, out := ts.do(t, http.MethodPost, "/v1/quotes", "user-1", body)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, out["error"], "quote number already exists")
}

func TestQuoteValidation(t *testing.T) {
	ts := newTestServer(t)
	body := `{
		"customer_id": "` + customerID + `",
		"tax_rate": -1,
		"status": "archived",
		"items": [
			{"description": "", "quantity": 0, "unit_price": -5},
			{"description": "ok", "quantity": 1, "unit_price": 1, "product_id": "not-a-uuid"}
		]
	}`
	res, out := ts.do(t, http.MethodPost, "/v1/quotes", "user-1", body)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, false, out["ok"])
	fields := out["fields"].(map[string]any)
	for _, key := range []string{"tax_rate", "status", "items[0].description", "items[0].quantity", "items[0].unit_price", "items[1].product_id"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "quantity must be > 0", fields["items[0].quantity"])

	res, out = ts.do(t, http.MethodPost, "/v1/quotes", "user-1", `{"customer_id":"`+customerID+`","items":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "at least one item required", out["fields"].(map[string]any)["items"])
	assert.Empty(t, ts.quotes.quotes)
}

func TestQuoteTotals(t *testing.T) {
	ts := newTestServer(t)
	res, out := ts.do(t, http.MethodPost, "/v1/quotes/totals", "user-1",
		`{"tax_rate":"18","items":[{"description":"Tur","quantity":"3","unit_price":"33.33"}]}`)
	require.Equal(t, http.StatusOK, res.StatusCode, out)
	assert.Equal(t, "99.99", out["subtotal"])
	assert.Equal(t, "17.9982", out["tax_amount"])
	assert.Equal(t, "117.9882", out["total_amount"])
	assert.Equal(t, "117.99", out["formatted"].(map[string]any)["total_amount"])

	res, out = ts.do(t, http.MethodPost, "/v1/quotes/totals", "user-1", `{"tax_rate":"18","items":[]}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "0", out["total_amount"])
}

func TestQuoteOversizedAmounts(t *testing.T) {
	ts := newTestServer(t)
	items := `"items":[{"description":"Tur","quantity":"1e8000000","unit_price":"1"}]`

	res, out := ts.do(t, http.MethodPost, "/v1/quotes/totals", "user-1", `{"tax_rate":"18",`+items+`}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, out)
	assert.Equal(t, "quantity must have at most 12 integer and 6 decimal digits", out["fields"].(map[string]any)["items[0].quantity"])

	res, out = ts.do(t, http.MethodPost, "/v1/quotes", "user-1", `{"customer_id":"`+customerID+`",`+items+`}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, out)
	assert.Contains(t, out["fields"], "items[0].quantity")

	res, out = ts.do(t, http.MethodPost, "/v1/quotes/totals", "user-1", `{"tax_rate":"1e400","items":[]}`)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, out)
	assert.Contains(t, out["fields"], "tax_rate")
	assert.Empty(t, ts.quotes.quotes)
}

func TestQuoteBodyTooLarge(t *testing.T) {
	ts := newTestServer(t)
	body := `{"notes":"` + strings.Repeat("x", 2<<20) + `"}`
	res, out := ts.do(t, http.MethodPost, "/v1/quotes", "user-1", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
	assert.Equal(t, "request body too large", out["error"])
}

func TestQuoteUnknownCustomer(t *testing.T) {
	ts := newTestServer(t)
	body := strings.Replace(createBody, customerID, uuid.NewString(), 1)
	res, out := ts.do(t, http.MethodPost, "/v1/quotes", "user-1", body)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, out)
	assert.Equal(t, "customer not found", out["fields"].(map[string]any)["customer_id"])
	assert.Empty(t, ts.quotes.quotes)
}

func TestQuoteRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/v1/quotes", "/v1/quotes/" + uuid.NewString()} {
		res, out := ts.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "unauthorized", out["error"])
	}

	res, _ := ts.do(t, http.MethodOptions, "/v1/quotes/"+uuid.NewString()+"/pdf", "", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestQuoteBadID(t *testing.T) {
	ts := newTestServer(t)
	res, _ := ts.do(t, http.MethodGet, "/v1/quotes/42", "user-1", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestQuoteListRejectsReversedRange(t *testing.T) {
	ts := newTestServer(t)
	res, out := ts.do(t, http.MethodGet, "/v1/quotes?from=2025-03-10&to=2025-03-01", "user-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, out["fields"], "from")
}
