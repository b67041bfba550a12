// internal/auth/auth.go
//
// One-shot sign-in against the identity provider's REST endpoint. The
// terminal authenticates once at startup with credentials from process
// configuration; there is no interactive login and no token refresh — a
// failed sign-in is fatal to the session.

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SignInRequest is the provider's email/password payload.
type SignInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// Session is the authenticated identity returned by the provider.
type Session struct {
	Token     string `json:"idToken"`
	Email     string `json:"email"`
	ExpiresIn string `json:"expiresIn"`
}

// Client signs in against a fixed endpoint URL.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for the provider endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// SignIn performs the startup authentication.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(SignInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("auth: sign in rejected (%d): %s", resp.StatusCode, bytes.TrimSpace(payload))
	}
	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("auth: decode response: %w", err)
	}
	if session.Token == "" {
		return nil, fmt.Errorf("auth: provider returned no token")
	}
	return &session, nil
}
