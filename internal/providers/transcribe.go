package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// transcriptionResponse is the expected JSON from /audio/transcriptions.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions
// endpoint (Groq's hosted Whisper) with raw audio bytes.
type WhisperTranscriber struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

// NewWhisperTranscriber creates a transcriber against an
// OpenAI-compatible audio endpoint.
func NewWhisperTranscriber(apiKey, apiBase, model string, client *http.Client) *WhisperTranscriber {
	apiBase = strings.TrimRight(apiBase, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &WhisperTranscriber{
		apiKey:  apiKey,
		apiBase: apiBase,
		model:   model,
		client:  client,
	}
}

// Transcribe uploads the audio as multipart/form-data and returns the
// transcript. A hard failure here propagates to the caller: the webhook
// pipeline treats a failed transcription as a pipeline-level error.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("transcription unavailable: AGRIBOT_GROQ_API_KEY is not set")
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio payload")
	}
	if filename == "" {
		filename = "voice.ogg"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: create form file field: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("transcribe: write audio bytes to form: %w", err)
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("transcribe: write model field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close multipart writer: %w", err)
	}

	url := t.apiBase + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcribe: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}

	return parsed.Text, nil
}
