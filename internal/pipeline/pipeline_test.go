package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nextharvest/agribot/internal/bus"
)

// fakeTranslator maps whole strings; unmapped text passes through.
type fakeTranslator struct {
	lang         string
	translations map[string]string
	ttsErr       error
	ttsCalls     int
}

func (f *fakeTranslator) DetectLanguage(ctx context.Context, text string) string {
	if f.lang == "" {
		return "en-IN"
	}
	return f.lang
}

func (f *fakeTranslator) Translate(ctx context.Context, text, target, source string) string {
	if out, ok := f.translations[text]; ok {
		return out
	}
	return text
}

func (f *fakeTranslator) TextToSpeech(ctx context.Context, text, languageCode string) ([]byte, error) {
	f.ttsCalls++
	if f.ttsErr != nil {
		return nil, f.ttsErr
	}
	return []byte("audio:" + text), nil
}

type fakeReasoner struct {
	answer   string
	err      error
	panics   bool
	lastKey  string
	lastText string
}

func (f *fakeReasoner) Run(ctx context.Context, threadKey, question string) (string, error) {
	if f.panics {
		panic("reasoner exploded")
	}
	f.lastKey = threadKey
	f.lastText = question
	return f.answer, f.err
}

type fakeDeliverer struct {
	mu       sync.Mutex
	texts    []string
	voices   [][]byte
	phones   []string
	textErr  error
	voiceErr error
}

func (f *fakeDeliverer) SendText(ctx context.Context, text, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, text)
	f.phones = append(f.phones, phone)
	return nil
}

func (f *fakeDeliverer) SendVoice(ctx context.Context, audio []byte, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voiceErr != nil {
		return f.voiceErr
	}
	f.voices = append(f.voices, audio)
	f.phones = append(f.phones, phone)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recordingPublisher) Broadcast(e bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func TestProcess_EnglishTextRoundTrip(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN"}
	re := &fakeReasoner{answer: "Sow wheat in November."}
	de := &fakeDeliverer{}
	pub := &recordingPublisher{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de, Events: pub})
	p.Process(bus.InboundMessage{SenderID: "919876543210@c.us", Text: "when to sow wheat"})

	if len(de.texts) != 1 || de.texts[0] != "Sow wheat in November." {
		t.Fatalf("delivered texts = %v", de.texts)
	}
	if de.phones[0] != "919876543210" {
		t.Errorf("phone = %q, want bare number", de.phones[0])
	}
	if re.lastKey != "whatsapp_919876543210" {
		t.Errorf("thread key = %q", re.lastKey)
	}
	names := pub.names()
	if len(names) < 2 || names[0] != "pipeline.started" || names[len(names)-1] != "pipeline.completed" {
		t.Errorf("event names = %v", names)
	}
}

func TestProcess_TranslatesBothWays(t *testing.T) {
	tr := &fakeTranslator{
		lang: "hi-IN",
		translations: map[string]string{
			"gehu kab boye":          "when to sow wheat",
			"Sow wheat in November.": "नवंबर में गेहूं बोएं।",
		},
	}
	re := &fakeReasoner{answer: "Sow wheat in November."}
	de := &fakeDeliverer{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de, WorkingLang: "en-IN"})
	p.Process(bus.InboundMessage{SenderID: "91888@c.us", Text: "gehu kab boye"})

	if re.lastText != "when to sow wheat" {
		t.Errorf("reasoner saw %q, want translated question", re.lastText)
	}
	if len(de.texts) != 1 || de.texts[0] != "नवंबर में गेहूं बोएं।" {
		t.Errorf("delivered %v, want reply translated back", de.texts)
	}
}

func TestProcess_WorkingLanguageSkipsTranslation(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN", translations: map[string]string{
		"hello": "SHOULD NOT BE USED",
	}}
	re := &fakeReasoner{answer: "Hi!"}
	de := &fakeDeliverer{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de, WorkingLang: "en-IN"})
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "hello"})

	if re.lastText != "hello" {
		t.Errorf("question should pass through untranslated, got %q", re.lastText)
	}
}

func TestProcess_VoiceReplyUsesTTS(t *testing.T) {
	tr := &fakeTranslator{lang: "hi-IN"}
	re := &fakeReasoner{answer: "answer"}
	de := &fakeDeliverer{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de})
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "sawaal", IsVoice: true})

	if len(de.voices) != 1 {
		t.Fatalf("expected 1 voice delivery, got %d (texts: %v)", len(de.voices), de.texts)
	}
	if len(de.texts) != 0 {
		t.Errorf("voice success should not also send text, got %v", de.texts)
	}
}

func TestProcess_TTSFailureDegradesToText(t *testing.T) {
	tr := &fakeTranslator{lang: "hi-IN", ttsErr: fmt.Errorf("no voice configured")}
	re := &fakeReasoner{answer: "answer"}
	de := &fakeDeliverer{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de})
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "sawaal", IsVoice: true})

	if len(de.texts) != 1 || de.texts[0] != "answer" {
		t.Fatalf("expected text fallback, got texts=%v voices=%d", de.texts, len(de.voices))
	}
}

func TestProcess_VoiceDeliveryFailureDegradesToText(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN"}
	re := &fakeReasoner{answer: "answer"}
	de := &fakeDeliverer{voiceErr: fmt.Errorf("session closed")}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de})
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "question", IsVoice: true})

	if len(de.texts) != 1 {
		t.Fatalf("expected text fallback after voice delivery failure, got %v", de.texts)
	}
}

func TestProcess_ReasonerErrorSendsApology(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN"}
	re := &fakeReasoner{err: fmt.Errorf("model overloaded")}
	de := &fakeDeliverer{}
	pub := &recordingPublisher{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de, Events: pub})
	p.Process(bus.InboundMessage{SenderID: "919876543210@c.us", Text: "q"})

	if len(de.texts) != 1 || !strings.Contains(de.texts[0], "internal error") {
		t.Fatalf("expected apology text, got %v", de.texts)
	}
	found := false
	for _, name := range pub.names() {
		if name == "pipeline.failed" {
			found = true
		}
	}
	if !found {
		t.Error("expected pipeline.failed event")
	}
}

func TestProcess_PanicIsContainedAndApologizes(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN"}
	re := &fakeReasoner{panics: true}
	de := &fakeDeliverer{}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de})

	// Must not panic outward.
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "q"})

	if len(de.texts) != 1 || !strings.Contains(de.texts[0], "internal error") {
		t.Fatalf("expected apology after panic, got %v", de.texts)
	}
}

func TestProcess_DeliveryErrorDoesNotPanic(t *testing.T) {
	tr := &fakeTranslator{lang: "en-IN"}
	re := &fakeReasoner{answer: "fine"}
	de := &fakeDeliverer{textErr: fmt.Errorf("gateway 502")}

	p := New(Config{Translator: tr, Reasoner: re, Deliverer: de})
	p.Process(bus.InboundMessage{SenderID: "1@c.us", Text: "q"})
	// Nothing to assert beyond "returned without panicking"; the error
	// path is log-only.
}
