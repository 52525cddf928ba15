// Package sarvam wraps the Sarvam AI language APIs: language detection,
// translation, and text-to-speech. Every call degrades gracefully —
// detection falls back to a local script heuristic, translation falls
// back to the untranslated text — so the conversation pipeline never
// blocks on this collaborator.
package sarvam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client talks to the Sarvam AI HTTP API.
type Client struct {
	apiKey   string
	apiBase  string
	speaker  string
	ttsModel string
	client   *http.Client
}

// NewClient creates a Sarvam client. An empty apiKey is allowed: calls
// then use their local fallbacks (detection) or no-ops (translation).
func NewClient(apiKey, apiBase, speaker, ttsModel string) *Client {
	if apiBase == "" {
		apiBase = "https://api.sarvam.ai"
	}
	if speaker == "" {
		speaker = "meera"
	}
	if ttsModel == "" {
		ttsModel = "bulbul:v1"
	}
	return &Client{
		apiKey:   apiKey,
		apiBase:  strings.TrimRight(apiBase, "/"),
		speaker:  speaker,
		ttsModel: ttsModel,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// DetectLanguage returns the Sarvam language code of text. It never
// fails: API errors or a missing key fall back to script detection,
// which itself defaults to en-IN.
func (c *Client) DetectLanguage(ctx context.Context, text string) string {
	if c.apiKey == "" {
		return detectByScript(text)
	}

	var result struct {
		LanguageCode string `json:"language_code"`
	}
	err := c.postJSON(ctx, "/detect-language", map[string]interface{}{"text": text}, &result)
	if err != nil || result.LanguageCode == "" {
		slog.Error("sarvam language detection failed, using script fallback", "error", err)
		return detectByScript(text)
	}

	return result.LanguageCode
}

// Translate converts text from source to target language. Identical
// codes are a no-op; any failure returns the input unchanged so the
// pipeline keeps moving with untranslated text.
func (c *Client) Translate(ctx context.Context, text, target, source string) string {
	if source == "" || source == "auto" {
		source = c.DetectLanguage(ctx, text)
	}
	if source == target {
		return text
	}
	if c.apiKey == "" {
		slog.Error("sarvam translation unavailable: AGRIBOT_SARVAM_API_KEY is not set")
		return text
	}

	payload := map[string]interface{}{
		"input":                text,
		"source_language_code": source,
		"target_language_code": target,
		"mode":                 "formal",
		"enable_preprocessing": true,
		"numerals_format":      "international",
	}

	var result struct {
		TranslatedText string `json:"translated_text"`
	}
	if err := c.postJSON(ctx, "/translate", payload, &result); err != nil {
		slog.Error("sarvam translation failed", "source", source, "target", target, "error", err)
		return text
	}
	if result.TranslatedText == "" {
		return text
	}

	slog.Debug("translated", "source", source, "target", target)
	return result.TranslatedText
}

// TextToSpeech synthesizes text in the given language and returns WAV
// bytes. A nil slice with an error means the caller should fall back to
// a text reply.
func (c *Client) TextToSpeech(ctx context.Context, text, languageCode string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("tts unavailable: AGRIBOT_SARVAM_API_KEY is not set")
	}

	payload := map[string]interface{}{
		"inputs":               []string{text},
		"target_language_code": languageCode,
		"speaker":              c.speaker,
		"pitch":                0.0,
		"pace":                 1.0,
		"loudness":             1.0,
		"speech_sample_rate":   22050,
		"model":                c.ttsModel,
	}

	var result struct {
		Audios []string `json:"audios"`
	}
	if err := c.postJSON(ctx, "/text-to-speech", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Audios) == 0 {
		return nil, fmt.Errorf("tts: no audio in response")
	}

	audio, err := base64.StdEncoding.DecodeString(result.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}

	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sarvam: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("sarvam: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sarvam: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sarvam: %s HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sarvam: decode %s response: %w", path, err)
	}

	return nil
}
