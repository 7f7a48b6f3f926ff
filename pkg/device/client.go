package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Operation codes understood by the vendor API.
const (
	opShock   = 0
	opVibrate = 1
	opSound   = 2
)

// Client sends commands to devices through the vendor cloud API.
// Zero value is not usable; use NewClient.
type Client struct {
	endpoint string
	username string
	apiKey   string
	appName  string
	client   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. Nil is ignored.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfiguration)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidConfiguration)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/operate",
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		appName:  cfg.AppName,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type operateRequest struct {
	Username   string `json:"username"`
	APIKey     string `json:"apikey"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Op         int    `json:"op"`
	Intensity  int    `json:"intensity"`
	DurationMs int64  `json:"duration_ms"`
}

func (c *Client) Shock(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return c.operate(ctx, opShock, deviceID, intensity, duration)
}

func (c *Client) Vibrate(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return c.operate(ctx, opVibrate, deviceID, intensity, duration)
}

func (c *Client) Sound(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return c.operate(ctx, opSound, deviceID, intensity, duration)
}

func (c *Client) operate(ctx context.Context, op int, deviceID string, intensity int, duration time.Duration) error {
	payload, err := json.Marshal(operateRequest{
		Username:   c.username,
		APIKey:     c.apiKey,
		Code:       deviceID,
		Name:       c.appName,
		Op:         op,
		Intensity:  intensity,
		DurationMs: duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal device request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create device request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hapticqueue/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 4KB is plenty for the vendor's plain-text status messages
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.ReplaceAll(strings.TrimSpace(string(body)), "\n", " ")
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg)
	}

	return nil
}

var _ Sender = (*Client)(nil)
