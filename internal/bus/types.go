// Package bus carries inbound messages from the webhook surface to the
// conversation pipeline. Its main job is the per-sender debouncer that
// coalesces rapid-fire message fragments into one logical request.
package bus

// InboundMessage is one accepted webhook event, normalized.
// Text messages carry the raw body; voice notes carry the transcript.
type InboundMessage struct {
	SenderID  string `json:"sender_id"`            // WPPConnect sender identity, e.g. "5511999999999@c.us"
	Text      string `json:"text"`                 // chat body or voice transcript
	IsVoice   bool   `json:"is_voice"`             // reply should be synthesized speech when possible
	MessageID string `json:"message_id,omitempty"` // platform message ID, used for dedupe
}

// OutboundReply is the pipeline's answer, ready for delivery.
type OutboundReply struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
	AsVoice  bool   `json:"as_voice"`           // attempt TTS delivery
	Language string `json:"language,omitempty"` // Sarvam language code for TTS
}

// Event is a server-side notification broadcast to WebSocket observers.
type Event struct {
	Name    string      `json:"name"` // e.g. "message.received", "flush.started", "reply.sent"
	Payload interface{} `json:"payload,omitempty"`
}

// FlushFunc processes one merged message after the debounce window closes.
// It runs on the flush task's goroutine and may block for the whole
// pipeline; the debouncer keeps the sender's pending entry alive until
// it returns.
type FlushFunc func(msg InboundMessage)

// EventPublisher abstracts event broadcast for observers.
type EventPublisher interface {
	Broadcast(event Event)
}
