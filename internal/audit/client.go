package audit

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
)

// Client posts journal activity to an external webhook. Everything about it
// is best-effort; callers decide whether a failed send matters.
type Client struct {
	WebhookURL string
	Token      string
	Agent      string

	HTTP *http.Client
}

type Event struct {
	Agent   string         `json:"agent"`
	Action  string         `json:"action"`
	Level   string         `json:"level"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

func (c *Client) Send(ctx context.Context, ev Event) error {
	url := strings.TrimRight(strings.TrimSpace(c.WebhookURL), "/")
	if url == "" {
		return errors.New("audit webhook url is empty")
	}
	if strings.TrimSpace(ev.Agent) == "" {
		ev.Agent = c.agent()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(c.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("audit webhook http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

func (c *Client) agent() string {
	if agent := strings.TrimSpace(c.Agent); agent != "" {
		return agent
	}
	return "riskjournal"
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
