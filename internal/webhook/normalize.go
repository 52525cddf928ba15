// Package webhook is the inbound HTTP surface: it accepts WPPConnect
// event callbacks, filters them down to genuinely new chat and voice
// messages, and feeds them to the per-sender debouncer. Processing
// outcomes never surface as HTTP errors; the channel retries 5xx
// deliveries and a retry of a processing failure would double-handle
// the message.
package webhook

import "strings"

// Payload is the recognized subset of a WPPConnect webhook event.
// Everything else in the body is ignored.
type Payload struct {
	Event    string `json:"event"`
	Session  string `json:"session,omitempty"`
	ID       string `json:"id,omitempty"`
	Body     string `json:"body,omitempty"`
	Type     string `json:"type,omitempty"`
	IsNewMsg bool   `json:"isNewMsg,omitempty"`
	Sender   struct {
		ID string `json:"id"`
	} `json:"sender,omitempty"`
}

// Classification of a webhook payload.
type Kind int

const (
	// KindSkip marks events that are not new user messages.
	KindSkip Kind = iota
	// KindText marks a plain chat message; Body is the text.
	KindText
	// KindVoice marks a voice note; Body is base64-encoded audio.
	KindVoice
)

// Classify decides what to do with a payload. Skips carry a reason for
// the response body and logs; they are never errors.
func Classify(p *Payload) (Kind, string) {
	if p.Event != "onmessage" {
		return KindSkip, "event is not onmessage"
	}
	if !p.IsNewMsg {
		return KindSkip, "not a new message"
	}
	if p.Sender.ID == "" {
		return KindSkip, "missing sender"
	}
	switch p.Type {
	case "chat":
		if strings.TrimSpace(p.Body) == "" {
			return KindSkip, "empty message body"
		}
		return KindText, ""
	case "ptt":
		if p.Body == "" {
			return KindSkip, "empty voice payload"
		}
		return KindVoice, ""
	default:
		return KindSkip, "unsupported message type: " + p.Type
	}
}
