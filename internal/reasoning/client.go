// Package reasoning is the HTTP client for the hosted reasoning service used
// by the delegated risk scorer. It only moves bytes; interpreting the reply
// is the scorer's job.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-escrow-reconciler/internal/risk"
)

const maxReplyBytes = 64 << 10

type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func New(url, apiKey string) *Client {
	return &Client{
		URL:    url,
		APIKey: apiKey,
		// batas atas; timeout per-booking diatur scorer lewat ctx
		HTTP: &http.Client{Timeout: 60 * time.Second},
	}
}

// Assess posts the summary and returns the raw reply body.
func (c *Client) Assess(ctx context.Context, s risk.Summary) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("reasoning service status %d", resp.StatusCode)
	}
	return raw, nil
}
