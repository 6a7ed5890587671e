package ticket

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusSaleRecorded   = "sale_recorded"
	InvoiceStatusPending = "pending"

	DefaultFlightTime = "00:00"
	CheckInWindow     = 24 * time.Hour
)

// ExtractedFlight is the normalised model output. It is returned to the
// caller and split into ticket, passenger and segment rows; it is never
// stored as-is.
type ExtractedFlight struct {
	Airline       string `json:"airline"`
	PNR           string `json:"pnr"`
	FlightDate    string `json:"flight_date"`
	FlightTime    string `json:"flight_time"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	PassengerName string `json:"passenger_name"`
}

type Ticket struct {
	ID            string
	OwnerID       string
	PNR           string
	Airline       string
	Status        string
	InvoiceStatus string
	BaseFare      decimal.Decimal
	Taxes         decimal.Decimal
	ServiceFee    decimal.Decimal
	TotalFare     decimal.Decimal
	CheckInOpenAt time.Time
	SourceText    string
}

type Passenger struct {
	TicketID string
	FullName string
}

type Segment struct {
	TicketID    string
	Origin      string
	Destination string
	FlightDate  string
	FlightTime  string
	Airline     string
}

// Bundle is written as one unit: either all three records exist afterwards
// or none does.
type Bundle struct {
	Ticket    Ticket
	Passenger Passenger
	Segment   Segment
}

// NewBundle builds the rows for a fresh extraction. Fares stay zero until the
// pricing workflow fills them in.
func NewBundle(ownerID string, f ExtractedFlight, checkInOpenAt time.Time, sourceText string) Bundle {
	return Bundle{
		Ticket: Ticket{
			OwnerID:       ownerID,
			PNR:           f.PNR,
			Airline:       f.Airline,
			Status:        StatusSaleRecorded,
			InvoiceStatus: InvoiceStatusPending,
			BaseFare:      decimal.Zero,
			Taxes:         decimal.Zero,
			ServiceFee:    decimal.Zero,
			TotalFare:     decimal.Zero,
			CheckInOpenAt: checkInOpenAt.UTC(),
			SourceText:    sourceText,
		},
		Passenger: Passenger{FullName: f.PassengerName},
		Segment: Segment{
			Origin:      f.Origin,
			Destination: f.Destination,
			FlightDate:  f.FlightDate,
			FlightTime:  f.FlightTime,
			Airline:     f.Airline,
		},
	}
}

type Result struct {
	TicketID      string
	Extracted     ExtractedFlight
	CheckInOpenAt time.Time
}
