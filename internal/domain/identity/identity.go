package identity

import (
	"context"
	"errors"
	"strings"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated caller. It is handed to every operation that
// writes or reads owned records.
type Identity struct {
	UserID string
	Email  string
}

// Resolver turns a bearer credential into an Identity. Implementations
// return an error wrapping ErrUnauthorized for missing, malformed, expired or
// rejected credentials.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(header[7:])
	return tok, tok != ""
}
