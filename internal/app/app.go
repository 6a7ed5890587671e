package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"crm-billing/go_backend/internal/app/config"
	apphttp "crm-billing/go_backend/internal/app/http"
	"crm-billing/go_backend/internal/app/http/handlers"
	"crm-billing/go_backend/internal/domain/quote/pdf/gofpdf"
	"crm-billing/go_backend/internal/domain/ticket"
	"crm-billing/go_backend/internal/infra/db/postgres"
	"crm-billing/go_backend/internal/infra/gemini"
	"crm-billing/go_backend/internal/infra/supabase"
)

func Run() error {
	cfg := config.MustLoad()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.TicketTimezone)
	if err != nil {
		return fmt.Errorf("ticket timezone %q: %w", cfg.TicketTimezone, err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	sb := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceRoleKey, httpClient)
	model := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, httpClient)

	var store ticket.Store
	switch cfg.TicketStore {
	case config.TicketStoreSupabase:
		store = &supabase.TicketStore{Client: sb}
	case config.TicketStorePostgres:
		store = postgres.NewTicketStore(db)
	default:
		return fmt.Errorf("unknown TICKET_STORE %q", cfg.TicketStore)
	}

	if missing := cfg.MissingTicketEnv(); len(missing) > 0 {
		log.Warn("ticket extraction not configured", "missing", missing)
	}
	pipeline := &ticket.Pipeline{
		Auth:          sb,
		Model:         model,
		Store:         store,
		Location:      loc,
		Log:           log,
		MissingConfig: cfg.MissingTicketEnv(),
	}

	pdf := gofpdf.New(gofpdf.ResolveFontDir(cfg.PDFFontDir))
	if !pdf.UnicodeFonts() {
		log.Warn("quote pdf: DejaVu fonts not found, using Helvetica; characters outside cp1252 such as ş, ğ and ı will not render",
			"pdf_font_dir", cfg.PDFFontDir, "default", gofpdf.DefaultFontDir)
	}
	h := handlers.New(cfg, log, postgres.NewQuoteRepository(db), pdf, pipeline)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apphttp.NewRouter(h, sb, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "ticket_store", cfg.TicketStore)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
