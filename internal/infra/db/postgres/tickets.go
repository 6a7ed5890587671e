package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/ticket"
)

// TicketStore inserts ticket, passenger and segment in one transaction.
type TicketStore struct {
	DB *DB
}

var _ ticket.Store = (*TicketStore)(nil)

func NewTicketStore(db *DB) *TicketStore { return &TicketStore{DB: db} }

func (s *TicketStore) CreateBundle(ctx context.Context, owner identity.Identity, b ticket.Bundle) (string, error) {
	flightDate, err := time.Parse("2006-01-02", b.Segment.FlightDate)
	if err != nil {
		return "", fmt.Errorf("segment flight date: %w", err)
	}

	var id string
	err = s.DB.InTx(ctx, func(tx pgx.Tx) error {
		t := b.Ticket
		err := tx.QueryRow(ctx, `
			INSERT INTO tickets (owner_id, pnr, airline, status, invoice_status,
				base_fare, taxes, service_fee, total_fare, check_in_open_at, source_text)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id::text`,
			owner.UserID, t.PNR, nullString(t.Airline), t.Status, t.InvoiceStatus,
			t.BaseFare, t.Taxes, t.ServiceFee, t.TotalFare, t.CheckInOpenAt.UTC(), t.SourceText,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_passengers (ticket_id, full_name) VALUES ($1, $2)`,
			id, b.Passenger.FullName); err != nil {
			return fmt.Errorf("insert passenger: %w", err)
		}

		seg := b.Segment
		if _, err := tx.Exec(ctx, `
			INSERT INTO ticket_segments (ticket_id, origin, destination, flight_date, flight_time, airline)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, seg.Origin, seg.Destination, flightDate, seg.FlightTime, nullString(seg.Airline)); err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
