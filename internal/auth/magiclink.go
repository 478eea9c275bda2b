package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrIdentityNotConfigured = errors.New("identity provider is not configured")

// IdentityClient talks to the hosted identity provider's passwordless
// sign-in endpoint.
type IdentityClient struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewIdentityClient(baseURL, anonKey string) *IdentityClient {
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMagicLink asks the provider to email a one-time sign-in link.
func (c *IdentityClient) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	if c.baseURL == "" || c.anonKey == "" {
		return ErrIdentityNotConfigured
	}

	body, err := json.Marshal(map[string]any{
		"email":       email,
		"create_user": true,
	})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/auth/v1/otp"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("magic link request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("magic link request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
