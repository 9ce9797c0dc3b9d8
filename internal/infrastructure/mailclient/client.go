package mailclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

// Client posts email jobs to the email microservice.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient gets a default with timeout.
func New(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SendOTP(ctx context.Context, msg domain.OTPEmail) error {
	return c.post(ctx, "/api/email/send-otp", msg)
}

func (c *Client) SendPasswordReset(ctx context.Context, msg domain.ResetEmail) error {
	return c.post(ctx, "/api/email/send-reset", msg)
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode email request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("email service %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Message != "" {
		return fmt.Errorf("email service %s: %d %s", path, resp.StatusCode, env.Message)
	}
	return fmt.Errorf("email service %s: status %d", path, resp.StatusCode)
}
