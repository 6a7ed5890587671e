package ticket

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"crm-billing/go_backend/internal/domain/identity"
)

// Model is the text-generation service. Generate must pin sampling to be as
// deterministic as the service allows.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store writes a Bundle atomically and returns the new ticket id.
type Store interface {
	CreateBundle(ctx context.Context, owner identity.Identity, b Bundle) (string, error)
}

const msgTextRequired = "emailText zorunludur"

// Pipeline runs one extraction: validate input, authenticate, call the model,
// parse, derive the check-in instant, persist. It never retries and stops at
// the first failure.
type Pipeline struct {
	Auth     identity.Resolver
	Model    Model
	Store    Store
	Location *time.Location
	Log      *slog.Logger

	// MissingConfig names unset settings; a non-empty list fails every
	// request with a non-empty text before authentication.
	MissingConfig []string
}

type Request struct {
	Bearer    string
	EmailText string
	ReqID     string
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("req_id", req.ReqID)

	if strings.TrimSpace(req.EmailText) == "" {
		return nil, newError(KindBadRequest, msgTextRequired, nil)
	}

	if len(p.MissingConfig) > 0 {
		log.Error("ticket extract: not configured", "missing", p.MissingConfig)
		return nil, newError(KindConfig, "missing configuration: "+strings.Join(p.MissingConfig, ", "), nil)
	}

	if req.Bearer == "" {
		return nil, newError(KindUnauthorized, "unauthorized", identity.ErrUnauthorized)
	}
	owner, err := p.Auth.Resolve(ctx, req.Bearer)
	if err != nil {
		log.Warn("ticket extract: auth failed", "err", err)
		return nil, newError(KindUnauthorized, "unauthorized", err)
	}

	start := time.Now()
	text, err := p.Model.Generate(ctx, BuildPrompt(req.EmailText))
	if err != nil {
		log.Error("ticket extract: model call failed", "took", time.Since(start), "err", err)
		return nil, newError(KindUpstream, upstreamMessage(err), err)
	}
	log.Info("ticket extract: model ok", "took", time.Since(start), "output_len", len(text))

	flight, err := ParseExtraction(text)
	if err != nil {
		log.Warn("ticket extract: unusable model output", "kind", KindOf(err), "err", err)
		return nil, err
	}

	checkIn, err := CheckInOpensAt(flight.FlightDate, flight.FlightTime, p.Location)
	if err != nil {
		log.Warn("ticket extract: bad date", "flight_date", flight.FlightDate, "flight_time", flight.FlightTime)
		return nil, err
	}

	id, err := p.Store.CreateBundle(ctx, owner, NewBundle(owner.UserID, flight, checkIn, req.EmailText))
	if err != nil {
		log.Error("ticket extract: persist failed", "pnr", flight.PNR, "err", err)
		return nil, newError(KindPersistence, "saving ticket failed", err)
	}
	log.Info("ticket extract: saved", "ticket_id", id, "pnr", flight.PNR, "user_id", owner.UserID)

	return &Result{TicketID: id, Extracted: flight, CheckInOpenAt: checkIn}, nil
}

// upstreamMessage keeps the upstream status/message visible to the caller.
func upstreamMessage(err error) string {
	var se interface{ UpstreamMessage() string }
	if errors.As(err, &se) {
		return se.UpstreamMessage()
	}
	return "model request failed: " + err.Error()
}
