// Package payments talks to the external payout processor that disburses
// withdrawals. The processor is a collaborator, not part of the reward core:
// when disabled, requests are accepted locally and left pending.
package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrDisabled indicates the processor integration is switched off.
var ErrDisabled = errors.New("payout integration is disabled")

// Config holds processor credentials.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Enabled  bool
}

// Client is an authenticated HTTP client for the payout processor. Access
// tokens are cached until shortly before expiry.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient constructs a Client.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the integration is switched on.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// PayoutRequest describes a disbursement to a bank account.
type PayoutRequest struct {
	Reference     string `json:"reference"`
	AmountKobo    int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

type payoutResponse struct {
	Success  bool   `json:"success"`
	PayoutID string `json:"payout_id"`
	Message  string `json:"message"`
}

// Dispatch submits the payout to the processor and returns its payout ID.
func (c *Client) Dispatch(req PayoutRequest) (string, error) {
	if !c.cfg.Enabled {
		return "", ErrDisabled
	}

	token, err := c.getToken(false)
	if err != nil {
		return "", err
	}

	body, resp, err := c.post("/payouts", token, req)
	if err != nil {
		return "", err
	}

	// Retry once with a fresh token on auth failure.
	if resp.StatusCode == http.StatusUnauthorized {
		token, err = c.getToken(true)
		if err != nil {
			return "", err
		}
		body, resp, err = c.post("/payouts", token, req)
		if err != nil {
			return "", err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payout request failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed payoutResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("payout response decode: %w", err)
	}
	if !parsed.Success {
		return "", fmt.Errorf("payout rejected: %s", parsed.Message)
	}
	return parsed.PayoutID, nil
}

func (c *Client) post(path, token string, payload interface{}) ([]byte, *http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("payout request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("payout request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return body, resp, nil
}

func (c *Client) getToken(force bool) (string, error) {
	if !force {
		c.mu.RLock()
		if c.token != "" && time.Now().Before(c.tokenExpiry) {
			t := c.token
			c.mu.RUnlock()
			return t, nil
		}
		c.mu.RUnlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock.
	if !force && c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("payout auth request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout auth request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payout auth failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed authResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("payout auth decode: %w", err)
	}
	if parsed.Token == "" {
		return "", errors.New("payout auth returned empty token")
	}

	ttl := time.Duration(parsed.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	c.token = parsed.Token
	c.tokenExpiry = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}
