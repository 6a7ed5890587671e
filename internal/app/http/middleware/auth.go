package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"crm-billing/go_backend/internal/domain/identity"
)

type identityKey struct{}

// Authenticate resolves the bearer token and stores the caller's identity in
// the request context. Unresolvable callers get 401.
func Authenticate(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := identity.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}
			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				slog.WarnContext(r.Context(), "auth rejected", "path", r.URL.Path, "err", err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity.Identity)
	return id, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
}
