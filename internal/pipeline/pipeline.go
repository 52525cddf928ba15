// Package pipeline runs the conversation flow for one aggregated
// message: detect the language, translate into the working language,
// reason over it, translate the answer back, and deliver it over
// WhatsApp. The pipeline is the debouncer's flush target.
package pipeline

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nextharvest/agribot/internal/bus"
	"github.com/nextharvest/agribot/internal/sessions"
	"github.com/nextharvest/agribot/internal/wpp"
)

// ApologyText is sent verbatim when processing fails after a message
// has been accepted. It is deliberately in the working language;
// translation is part of what may have failed. The webhook surface
// sends the same text when transcription fails before a voice note
// reaches the buffer.
const ApologyText = "Sorry, an internal error occurred. Please try again."

// processTimeout bounds one end-to-end run. The debouncer has already
// decoupled us from the webhook request, so this is generous.
const processTimeout = 3 * time.Minute

// Translator is the language collaborator: detection, translation in
// both directions, and speech synthesis.
type Translator interface {
	DetectLanguage(ctx context.Context, text string) string
	Translate(ctx context.Context, text, target, source string) string
	TextToSpeech(ctx context.Context, text, languageCode string) ([]byte, error)
}

// Reasoner produces an answer for a question on a conversation thread.
type Reasoner interface {
	Run(ctx context.Context, threadKey, question string) (string, error)
}

// Deliverer sends replies to the farmer's phone.
type Deliverer interface {
	SendText(ctx context.Context, text, phone string) error
	SendVoice(ctx context.Context, audio []byte, phone string) error
}

// Pipeline wires the collaborators together.
type Pipeline struct {
	translator  Translator
	reasoner    Reasoner
	deliverer   Deliverer
	events      bus.EventPublisher
	workingLang string
}

// Config configures a new Pipeline.
type Config struct {
	Translator  Translator
	Reasoner    Reasoner
	Deliverer   Deliverer
	Events      bus.EventPublisher // optional
	WorkingLang string             // language the reasoner operates in, e.g. "en-IN"
}

func New(cfg Config) *Pipeline {
	if cfg.WorkingLang == "" {
		cfg.WorkingLang = "en-IN"
	}
	return &Pipeline{
		translator:  cfg.Translator,
		reasoner:    cfg.Reasoner,
		deliverer:   cfg.Deliverer,
		events:      cfg.Events,
		workingLang: cfg.WorkingLang,
	}
}

// Process handles one aggregated message. It never returns an error
// and never panics outward: the debouncer's flush goroutine must stay
// alive whatever happens in here. Hard failures are reported to the
// farmer as an apology text.
func (p *Pipeline) Process(msg bus.InboundMessage) {
	runID := uuid.NewString()
	phone := wpp.PhoneFromSenderID(msg.SenderID)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic", "run_id", runID, "sender", msg.SenderID,
				"panic", r, "stack", string(debug.Stack()))
			p.apologize(phone, runID)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	start := time.Now()
	slog.Info("pipeline start", "run_id", runID, "sender", msg.SenderID,
		"voice", msg.IsVoice, "chars", len(msg.Text))
	p.broadcast("pipeline.started", map[string]interface{}{
		"run_id": runID, "sender": msg.SenderID, "voice": msg.IsVoice,
	})

	lang := p.translator.DetectLanguage(ctx, msg.Text)

	question := msg.Text
	if lang != p.workingLang {
		question = p.translator.Translate(ctx, msg.Text, p.workingLang, lang)
	}

	threadKey := sessions.ThreadKey(msg.SenderID)
	answer, err := p.reasoner.Run(ctx, threadKey, question)
	if err != nil {
		slog.Error("pipeline reasoning failed", "run_id", runID, "thread", threadKey, "error", err)
		p.apologize(phone, runID)
		p.broadcast("pipeline.failed", map[string]interface{}{"run_id": runID, "error": err.Error()})
		return
	}

	reply := answer
	if lang != p.workingLang {
		reply = p.translator.Translate(ctx, answer, lang, p.workingLang)
	}

	p.deliver(ctx, runID, phone, reply, lang, msg.IsVoice)

	slog.Info("pipeline done", "run_id", runID, "sender", msg.SenderID,
		"lang", lang, "duration", time.Since(start).Round(time.Millisecond))
	p.broadcast("pipeline.completed", map[string]interface{}{
		"run_id": runID, "sender": msg.SenderID, "lang": lang,
	})
}

// deliver sends the reply in the modality the farmer used. A voice
// request degrades to text when synthesis or voice delivery fails;
// delivery errors are logged, never propagated.
func (p *Pipeline) deliver(ctx context.Context, runID, phone, reply, lang string, asVoice bool) {
	if asVoice {
		audio, err := p.translator.TextToSpeech(ctx, reply, lang)
		if err != nil {
			slog.Warn("voice synthesis failed, degrading to text", "run_id", runID, "error", err)
		} else if err := p.deliverer.SendVoice(ctx, audio, phone); err != nil {
			slog.Warn("voice delivery failed, degrading to text", "run_id", runID, "error", err)
		} else {
			return
		}
	}

	if err := p.deliverer.SendText(ctx, reply, phone); err != nil {
		slog.Error("text delivery failed", "run_id", runID, "phone", phone, "error", err)
	}
}

// apologize makes a best-effort attempt to tell the farmer something
// went wrong. A fresh context: the run context may already be dead.
func (p *Pipeline) apologize(phone, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := p.deliverer.SendText(ctx, ApologyText, phone); err != nil {
		slog.Error("apology delivery failed", "run_id", runID, "phone", phone, "error", err)
	}
}

func (p *Pipeline) broadcast(name string, payload map[string]interface{}) {
	if p.events == nil {
		return
	}
	p.events.Broadcast(bus.Event{Name: name, Payload: payload})
}
