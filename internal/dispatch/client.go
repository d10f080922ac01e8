package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client dispatches generation requests to the external workflow webhook.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string {
	return "webhook"
}

// Send performs the single request/response exchange with the workflow. A
// non-2xx reply is a hard failure carrying the status and body verbatim.
func (c *Client) Send(ctx context.Context, p Payload) (*Ack, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach generation webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	preview := string(body)
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	log.Printf("[Dispatch] Webhook replied in %v with status %d: %s", time.Since(start), resp.StatusCode, preview)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var ack Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("failed to parse webhook response: %w", err)
	}
	if err := validateAck(&ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
