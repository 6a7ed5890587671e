package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/quote"
)

type QuoteRepository struct {
	DB *DB
}

var _ quote.Repository = (*QuoteRepository)(nil)

func NewQuoteRepository(db *DB) *QuoteRepository { return &QuoteRepository{DB: db} }

const quoteColumns = `q.id::text, q.owner_id::text, q.customer_id::text, coalesce(c.name, ''),
	q.quote_number, q.issue_date, q.expiry_date, q.status, coalesce(q.notes, ''),
	q.tax_rate, q.subtotal, q.tax_amount, q.total_amount, q.created_at, q.updated_at`

// ownedCustomerName loads the customer's name, failing with a customer_id
// validation error when the customer does not belong to owner.
func ownedCustomerName(ctx context.Context, tx pgx.Tx, owner identity.Identity, customerID string) (string, error) {
	var name string
	err := tx.QueryRow(ctx,
		`SELECT name FROM customers WHERE id = $1 AND owner_id = $2`,
		customerID, owner.UserID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", quote.CustomerNotFound()
	}
	return name, err
}

func (r *QuoteRepository) Create(ctx context.Context, owner identity.Identity, q *quote.Quote) error {
	q.OwnerID = owner.UserID
	err := r.DB.InTx(ctx, func(tx pgx.Tx) error {
		name, err := ownedCustomerName(ctx, tx, owner, q.CustomerRef)
		if err != nil {
			return err
		}
		q.CustomerName = name

		err = tx.QueryRow(ctx, `
			INSERT INTO quotes (owner_id, customer_id, quote_number, issue_date, expiry_date, status,
				notes, tax_rate, subtotal, tax_amount, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id::text, created_at, updated_at`,
			owner.UserID, q.CustomerRef, q.Number, q.IssueDate, nullDate(q.ExpiryDate), string(q.Status),
			nullString(q.Notes), q.TaxRatePercent, q.Subtotal, q.TaxAmount, q.Total,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, q.ID, q.Items)
	})
	return mapQuoteWriteError(err)
}

// Update rewrites the header and replaces the whole item set.
func (r *QuoteRepository) Update(ctx context.Context, owner identity.Identity, q *quote.Quote) error {
	q.OwnerID = owner.UserID
	err := r.DB.InTx(ctx, func(tx pgx.Tx) error {
		name, err := ownedCustomerName(ctx, tx, owner, q.CustomerRef)
		if err != nil {
			return err
		}
		q.CustomerName = name

		err = tx.QueryRow(ctx, `
			UPDATE quotes SET customer_id = $3, quote_number = $4, issue_date = $5, expiry_date = $6,
				status = $7, notes = $8, tax_rate = $9, subtotal = $10, tax_amount = $11,
				total_amount = $12, updated_at = now()
			WHERE id = $1 AND owner_id = $2
			RETURNING created_at, updated_at`,
			q.ID, owner.UserID, q.CustomerRef, q.Number, q.IssueDate, nullDate(q.ExpiryDate), string(q.Status),
			nullString(q.Notes), q.TaxRatePercent, q.Subtotal, q.TaxAmount, q.Total,
		).Scan(&q.CreatedAt, &q.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return quote.ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, q.ID); err != nil {
			return err
		}
		return insertItems(ctx, tx, q.ID, q.Items)
	})
	return mapQuoteWriteError(err)
}

func insertItems(ctx context.Context, tx pgx.Tx, quoteID string, items []quote.Item) error {
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO quote_items (quote_id, position, product_id, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			quoteID, i, it.ProductRef, it.Description, it.Quantity, it.UnitPrice, it.Amount)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *QuoteRepository) Get(ctx context.Context, owner identity.Identity, id string) (*quote.Quote, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes q LEFT JOIN customers c ON c.id = q.customer_id AND c.owner_id = q.owner_id
		WHERE q.id = $1 AND q.owner_id = $2`, id, owner.UserID)
	if err != nil {
		return nil, err
	}
	q, err := pgx.CollectExactlyOneRow(rows, scanQuote)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, quote.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err = r.DB.Pool.Query(ctx, `
		SELECT product_id::text, description, quantity, unit_price, amount
		FROM quote_items WHERE quote_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	q.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (quote.Item, error) {
		var it quote.Item
		err := row.Scan(&it.ProductRef, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount)
		return it, err
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns quote headers with their stored totals; items are not loaded.
func (r *QuoteRepository) List(ctx context.Context, owner identity.Identity, f quote.ListFilter) ([]quote.Quote, error) {
	where, args := listConditions(owner, f)
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes q LEFT JOIN customers c ON c.id = q.customer_id AND c.owner_id = q.owner_id
		WHERE `+where+`
		ORDER BY q.issue_date DESC, q.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuote)
}

func listConditions(owner identity.Identity, f quote.ListFilter) (string, []interface{}) {
	conds := []string{"q.owner_id = $1"}
	args := []interface{}{owner.UserID}
	add := func(expr string, v interface{}) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(expr, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.From != nil {
		add("q.issue_date >= ?", *f.From)
	}
	if f.To != nil {
		add("q.issue_date <= ?", *f.To)
	}
	if f.Status != "" {
		add("q.status = ?", string(f.Status))
	}
	if f.CustomerRef != "" {
		add("q.customer_id = ?", f.CustomerRef)
	}
	return strings.Join(conds, " AND "), args
}

func scanQuote(row pgx.CollectableRow) (quote.Quote, error) {
	var q quote.Quote
	var status string
	var expiry *time.Time
	err := row.Scan(&q.ID, &q.OwnerID, &q.CustomerRef, &q.CustomerName,
		&q.Number, &q.IssueDate, &expiry, &status, &q.Notes,
		&q.TaxRatePercent, &q.Subtotal, &q.TaxAmount, &q.Total, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return q, err
	}
	q.Status = quote.Status(status)
	if expiry != nil {
		q.ExpiryDate = *expiry
	}
	return q, nil
}

func mapQuoteWriteError(err error) error {
	if err == nil {
		return nil
	}
	if c, ok := uniqueViolation(err); ok && (c == "" || c == "quotes_quote_number_key") {
		return fmt.Errorf("%w: %v", quote.ErrNumberConflict, err)
	}
	// The customer was removed between the ownership check and the write.
	if c, ok := foreignKeyViolation(err); ok && c == "quotes_customer_id_fkey" {
		return quote.CustomerNotFound()
	}
	return err
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
