package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	CORSAllowOrigin string
	LogLevel        string

	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string

	GeminiBaseURL string
	GeminiAPIKey  string
	GeminiModel   string

	TicketStore    string
	TicketTimezone string

	QuoteNumberPrefix string
	PhoneRegion       string
	PDFFontDir        string
}

const (
	TicketStorePostgres = "postgres"
	TicketStoreSupabase = "supabase"
)

func MustLoad() Config {
	return Config{
		HTTPAddr:               env("HTTP_ADDR", ":8080"),
		DatabaseURL:            mustEnv("DATABASE_URL"),
		CORSAllowOrigin:        env("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:               env("LOG_LEVEL", "info"),
		SupabaseURL:            env("SUPABASE_URL", ""),
		SupabaseAnonKey:        env("SUPABASE_ANON_KEY", ""),
		SupabaseServiceRoleKey: env("SUPABASE_SERVICE_ROLE_KEY", ""),
		GeminiBaseURL:          env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiAPIKey:           env("GEMINI_API_KEY", ""),
		GeminiModel:            env("GEMINI_MODEL", "gemini-1.5-flash"),
		TicketStore:            strings.ToLower(env("TICKET_STORE", TicketStorePostgres)),
		TicketTimezone:         env("TICKET_TIMEZONE", "UTC"),
		QuoteNumberPrefix:      env("QUOTE_NUMBER_PREFIX", "TKL"),
		PhoneRegion:            strings.ToUpper(env("PHONE_REGION", "TR")),
		PDFFontDir:             env("PDF_FONT_DIR", ""),
	}
}

// MissingTicketEnv lists the settings the ticket extraction endpoint needs
// but that are not configured. Names match the environment variables.
func (c Config) MissingTicketEnv() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("SUPABASE_URL", c.SupabaseURL)
	check("SUPABASE_ANON_KEY", c.SupabaseAnonKey)
	check("SUPABASE_SERVICE_ROLE_KEY", c.SupabaseServiceRoleKey)
	check("GEMINI_API_KEY", c.GeminiAPIKey)
	return missing
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}
