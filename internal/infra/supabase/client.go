package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crm-billing/go_backend/internal/domain/identity"
)

// Client talks to the Supabase auth and PostgREST APIs. The anon key is used
// to resolve end-user tokens, the service-role key for privileged writes.
type Client struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	HTTP           *http.Client
	Now            func() time.Time
}

func New(url, anonKey, serviceRoleKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{URL: url, AnonKey: anonKey, ServiceRoleKey: serviceRoleKey, HTTP: httpClient, Now: time.Now}
}

var _ identity.Resolver = (*Client)(nil)

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Resolve validates the access token with the auth server. Tokens that are
// not JWTs or that have already expired are rejected without a round-trip.
func (c *Client) Resolve(ctx context.Context, bearer string) (identity.Identity, error) {
	if err := c.precheck(bearer); err != nil {
		return identity.Identity{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/auth/v1/user"), nil)
	if err != nil {
		return identity.Identity{}, err
	}
	req.Header.Set("apikey", c.AnonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return identity.Identity{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return identity.Identity{}, fmt.Errorf("supabase auth status %d: %w", resp.StatusCode, identity.ErrUnauthorized)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return identity.Identity{}, fmt.Errorf("supabase status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var u authUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return identity.Identity{}, err
	}
	if u.ID == "" {
		return identity.Identity{}, fmt.Errorf("supabase auth: empty user: %w", identity.ErrUnauthorized)
	}
	return identity.Identity{UserID: u.ID, Email: u.Email}, nil
}

func (c *Client) precheck(bearer string) error {
	if strings.TrimSpace(bearer) == "" {
		return identity.ErrUnauthorized
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, &claims); err != nil {
		return fmt.Errorf("malformed token: %w", identity.ErrUnauthorized)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now()) {
		return fmt.Errorf("token expired: %w", identity.ErrUnauthorized)
	}
	return nil
}

// RPC calls a Postgres function through PostgREST with the service-role key.
// A function runs in one transaction, which makes it the unit for atomic
// multi-row writes.
func (c *Client) RPC(ctx context.Context, fn string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	urlStr := c.endpoint("/rest/v1/rpc/" + fn)
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return errors.New("invalid supabase url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.ServiceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceRoleKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("supabase status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.URL, "/") + path
}
