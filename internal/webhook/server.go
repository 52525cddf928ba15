package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nextharvest/agribot/internal/bus"
	"github.com/nextharvest/agribot/internal/pipeline"
	"github.com/nextharvest/agribot/internal/wpp"
)

// Pusher feeds accepted messages into the aggregation buffer.
type Pusher interface {
	Push(msg bus.InboundMessage)
}

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Deliverer sends the apology when a message fails before it reaches
// the pipeline; the sender must never be left without some response.
type Deliverer interface {
	SendText(ctx context.Context, text, phone string) error
}

// Server is the webhook HTTP server.
type Server struct {
	host        string
	port        int
	debouncer   Pusher
	transcriber Transcriber
	deliverer   Deliverer
	dedupe      *bus.DedupeCache
	limiter     *senderLimiter
	events      *EventHub

	httpServer *http.Server
	mux        *http.ServeMux
}

// ServerConfig configures a new Server.
type ServerConfig struct {
	Host         string
	Port         int
	Debouncer    Pusher
	Transcriber  Transcriber      // nil disables voice notes
	Deliverer    Deliverer        // nil disables failure apologies
	Dedupe       *bus.DedupeCache // nil disables message-ID dedupe
	RateLimitRPM int              // per sender; <= 0 disables
	Events       *EventHub        // nil disables /ws
}

func NewServer(cfg ServerConfig) *Server {
	return &Server{
		host:        cfg.Host,
		port:        cfg.Port,
		debouncer:   cfg.Debouncer,
		transcriber: cfg.Transcriber,
		deliverer:   cfg.Deliverer,
		dedupe:      cfg.Dedupe,
		limiter:     newSenderLimiter(cfg.RateLimitRPM, 5),
		events:      cfg.Events,
	}
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.events != nil {
		mux.Handle("/ws", s.events)
	}

	s.mux = mux
	return mux
}

// Start begins listening and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("webhook server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// webhookResponse is the body of every POST /webhook answer. The
// status code is always 200: the channel treats non-2xx as delivery
// failure and retries, which would double-handle the message.
type webhookResponse struct {
	Status string `json:"status"` // "aggregating", "skipped", "error"
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Debug("webhook payload not parseable", "error", err)
		writeJSON(w, webhookResponse{Status: "skipped", Reason: "malformed payload"})
		return
	}

	kind, reason := Classify(&payload)
	if kind == KindSkip {
		slog.Debug("webhook event skipped", "event", payload.Event, "type", payload.Type, "reason", reason)
		writeJSON(w, webhookResponse{Status: "skipped", Reason: reason})
		return
	}

	if s.dedupe != nil && payload.ID != "" && s.dedupe.IsDuplicate(payload.ID) {
		slog.Debug("duplicate message dropped", "id", payload.ID, "sender", payload.Sender.ID)
		writeJSON(w, webhookResponse{Status: "skipped", Reason: "duplicate message"})
		return
	}

	if !s.limiter.Allow(payload.Sender.ID) {
		slog.Warn("sender rate limited", "sender", payload.Sender.ID)
		writeJSON(w, webhookResponse{Status: "skipped", Reason: "rate limited"})
		return
	}

	text := payload.Body
	isVoice := kind == KindVoice
	if isVoice {
		transcript, err := s.transcribeVoice(r.Context(), payload.Body)
		if err != nil {
			slog.Error("voice transcription failed", "sender", payload.Sender.ID, "error", err)
			// Release the message ID so a channel retry of the same
			// voice note gets another transcription attempt.
			if s.dedupe != nil && payload.ID != "" {
				s.dedupe.Forget(payload.ID)
			}
			s.apologize(r.Context(), payload.Sender.ID)
			writeJSON(w, webhookResponse{Status: "error", Detail: "transcription failed"})
			return
		}
		text = transcript
	}

	if strings.TrimSpace(text) == "" {
		writeJSON(w, webhookResponse{Status: "skipped", Reason: "empty message body"})
		return
	}

	s.debouncer.Push(bus.InboundMessage{
		SenderID:  payload.Sender.ID,
		Text:      text,
		IsVoice:   isVoice,
		MessageID: payload.ID,
	})

	if s.events != nil {
		s.events.Broadcast(bus.Event{Name: "message.received", Payload: map[string]interface{}{
			"sender": payload.Sender.ID,
			"voice":  isVoice,
		}})
	}

	writeJSON(w, webhookResponse{Status: "aggregating"})
}

// transcribeVoice decodes the base64 audio body and runs it through
// the transcription collaborator.
func (s *Server) transcribeVoice(ctx context.Context, body string) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("no transcriber configured")
	}

	// WPPConnect may prefix the payload with a data URI header.
	if idx := strings.Index(body, "base64,"); idx != -1 {
		body = body[idx+len("base64,"):]
	}
	audio, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}

	return s.transcriber.Transcribe(ctx, audio, "voice_note.ogg")
}

// apologize makes a best-effort attempt to tell the sender their
// message could not be processed. Delivery errors are logged only.
func (s *Server) apologize(ctx context.Context, senderID string) {
	if s.deliverer == nil {
		return
	}
	phone := wpp.PhoneFromSenderID(senderID)
	if err := s.deliverer.SendText(ctx, pipeline.ApologyText, phone); err != nil {
		slog.Error("apology delivery failed", "phone", phone, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
