package supabase

import (
	"context"
	"errors"
	"time"

	"crm-billing/go_backend/internal/domain/identity"
	"crm-billing/go_backend/internal/domain/ticket"
)

// TicketStore writes extraction bundles through the create_ticket_bundle
// function (migrations/0001_init.sql), so the three inserts share one
// server-side transaction.
type TicketStore struct {
	Client *Client
}

var _ ticket.Store = (*TicketStore)(nil)

type ticketBundleArgs struct {
	OwnerID       string `json:"p_owner_id"`
	PNR           string `json:"p_pnr"`
	Airline       string `json:"p_airline"`
	Status        string `json:"p_status"`
	InvoiceStatus string `json:"p_invoice_status"`
	CheckInOpenAt string `json:"p_check_in_open_at"`
	SourceText    string `json:"p_source_text"`
	PassengerName string `json:"p_passenger_name"`
	Origin        string `json:"p_origin"`
	Destination   string `json:"p_destination"`
	FlightDate    string `json:"p_flight_date"`
	FlightTime    string `json:"p_flight_time"`
}

func (s *TicketStore) CreateBundle(ctx context.Context, owner identity.Identity, b ticket.Bundle) (string, error) {
	args := ticketBundleArgs{
		OwnerID:       owner.UserID,
		PNR:           b.Ticket.PNR,
		Airline:       b.Ticket.Airline,
		Status:        b.Ticket.Status,
		InvoiceStatus: b.Ticket.InvoiceStatus,
		CheckInOpenAt: b.Ticket.CheckInOpenAt.UTC().Format(time.RFC3339),
		SourceText:    b.Ticket.SourceText,
		PassengerName: b.Passenger.FullName,
		Origin:        b.Segment.Origin,
		Destination:   b.Segment.Destination,
		FlightDate:    b.Segment.FlightDate,
		FlightTime:    b.Segment.FlightTime,
	}
	var id string
	if err := s.Client.RPC(ctx, "create_ticket_bundle", args, &id); err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("create_ticket_bundle returned no id")
	}
	return id, nil
}
