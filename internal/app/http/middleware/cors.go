package middleware

import (
	"net/http"
	"strings"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type"

// CORS sets the browser access headers for the wrapped routes and answers
// preflight OPTIONS requests with 200 and an empty body.
func CORS(origin string, methods ...string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	allowMethods := strings.Join(methods, ", ")
	if allowMethods == "" {
		allowMethods = "POST, OPTIONS"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
