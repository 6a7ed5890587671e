package handlers

import (
	"log/slog"
	"time"

	"crm-billing/go_backend/internal/app/config"
	"crm-billing/go_backend/internal/domain/quote"
	"crm-billing/go_backend/internal/domain/quote/pdf"
	"crm-billing/go_backend/internal/domain/ticket"
)

type Handlers struct {
	Cfg     config.Config
	Log     *slog.Logger
	Quotes  quote.Repository
	PDF     pdf.Generator
	Tickets *ticket.Pipeline
	Now     func() time.Time
}

func New(cfg config.Config, log *slog.Logger, quotes quote.Repository, gen pdf.Generator, tickets *ticket.Pipeline) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		Cfg:     cfg,
		Log:     log,
		Quotes:  quotes,
		PDF:     gen,
		Tickets: tickets,
		Now:     time.Now,
	}
}
