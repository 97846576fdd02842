package verification

import (
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

var (
	// ErrMissingSecret is returned when no server-side secret is configured
	ErrMissingSecret = errors.New("turnstile secret key is required")

	// ErrRequestFailed is returned when the siteverify call cannot be completed
	ErrRequestFailed = errors.New("turnstile request failed")

	// ErrUnexpectedStatus is returned for non-2xx siteverify responses
	ErrUnexpectedStatus = errors.New("turnstile returned unexpected status")

	// ErrInvalidResponse is returned when the siteverify body cannot be decoded
	ErrInvalidResponse = errors.New("turnstile returned an invalid response")
)

// maxResponseBytes bounds how much of the siteverify body is read
const maxResponseBytes = 1 << 20

// Verifier checks a human-challenge token against an external service
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*Outcome, error)
}

// Response is the siteverify JSON body
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	Action      string   `json:"action,omitempty"`
	CData       string   `json:"cdata,omitempty"`
}

// Outcome is the per-request verification result. It is never cached or stored.
type Outcome struct {
	Success bool
	Raw     Response
}

// Config holds configuration for TurnstileVerifier
type Config struct {
	SecretKey   string
	VerifyURL   string
	HTTPTimeout time.Duration
}

// TurnstileVerifier validates Cloudflare Turnstile tokens
type TurnstileVerifier struct {
	secretKey  string
	verifyURL  string
	httpClient *http.Client
}

// NewTurnstileVerifier creates a new Turnstile verifier
func NewTurnstileVerifier(config Config) *TurnstileVerifier {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	if config.VerifyURL == "" {
		config.VerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	}

	return &TurnstileVerifier{
		secretKey: config.SecretKey,
		verifyURL: config.VerifyURL,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Verify posts the token to siteverify. A decoded response is returned as an
// Outcome even when Success is false; transport, status and decoding problems
// are returned as errors. No retries.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (*Outcome, error) {
	if v.secretKey == "" {
		return nil, ErrMissingSecret
	}

	form := url.Values{}
	form.Set("secret", v.secretKey)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &Outcome{Success: body.Success, Raw: body}, nil
}
