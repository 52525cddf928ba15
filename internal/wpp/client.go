// Package wpp is the outbound delivery adapter for a WPPConnect server.
// It sends text and voice replies to WhatsApp numbers over the
// WPPConnect HTTP API.
package wpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a WPPConnect server session.
type Client struct {
	baseURL string
	session string
	token   string
	client  *http.Client
}

// New creates a WPPConnect client for one session.
func New(baseURL, session, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether the client has everything needed to send.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.session != "" && c.token != ""
}

// SendText sends a plain text message to a phone number.
func (c *Client) SendText(ctx context.Context, text, phone string) error {
	if phone == "" {
		return fmt.Errorf("wpp: missing phone number")
	}

	payload := map[string]interface{}{
		"phone":   phone,
		"message": text,
	}
	return c.post(ctx, "/send-message", payload)
}

// SendVoice sends audio bytes as a WhatsApp voice note (PTT).
func (c *Client) SendVoice(ctx context.Context, audio []byte, phone string) error {
	if phone == "" {
		return fmt.Errorf("wpp: missing phone number")
	}
	if len(audio) == 0 {
		return fmt.Errorf("wpp: empty audio payload")
	}

	payload := map[string]interface{}{
		"phone":     phone,
		"isGroup":   false,
		"base64Ptt": "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio),
	}
	return c.post(ctx, "/send-voice-base64", payload)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	if !c.Configured() {
		return fmt.Errorf("wpp: channel not configured (set AGRIBOT_WPP_BASE_URL, AGRIBOT_WPP_SESSION, AGRIBOT_WPP_TOKEN)")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wpp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s%s", c.baseURL, c.session, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("wpp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wpp: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("wpp: %s HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// PhoneFromSenderID extracts the phone number from a WPPConnect sender
// identity like "5511999999999@c.us". An identity without "@" is used
// as-is.
func PhoneFromSenderID(senderID string) string {
	if idx := strings.IndexByte(senderID, '@'); idx >= 0 {
		return senderID[:idx]
	}
	return senderID
}
