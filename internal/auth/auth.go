package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is the outcome of an authentication attempt. The scan runner
// requires a successful Result before contacting any remote source.
type Result struct {
	OK     bool
	Token  string
	Tenant string
	Err    string
}

// Config configures token acquisition.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Tenant       string
	StaticToken  string
	Timeout      time.Duration
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate acquires a bearer token for the configured tenant. A static
// token bypasses the network call. Any failure yields a non-OK Result with a
// human-readable message; Authenticate never returns an error.
func Authenticate(ctx context.Context, cfg Config) Result {
	if cfg.StaticToken != "" {
		return Result{OK: true, Token: cfg.StaticToken, Tenant: cfg.Tenant}
	}
	if cfg.TokenURL == "" {
		return Result{Tenant: cfg.Tenant, Err: "no token endpoint configured"}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Tenant: cfg.Tenant, Err: fmt.Sprintf("failed to build token request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return Result{Tenant: cfg.Tenant, Err: fmt.Sprintf("token endpoint unreachable: %v", err)}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return Result{Tenant: cfg.Tenant, Err: fmt.Sprintf("token request rejected with status %s", resp.Status)}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return Result{Tenant: cfg.Tenant, Err: fmt.Sprintf("failed to decode token response: %v", err)}
	}
	if tok.AccessToken == "" {
		return Result{Tenant: cfg.Tenant, Err: "token response carried no access token"}
	}

	return Result{OK: true, Token: tok.AccessToken, Tenant: cfg.Tenant}
}
