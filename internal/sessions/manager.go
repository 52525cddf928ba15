package sessions

import (
	"sync"
	"time"

	"github.com/nextharvest/agribot/internal/providers"
)

// maxThreadMessages caps history per thread so long-running
// conversations don't grow prompts without bound. Oldest turns are
// dropped first.
const maxThreadMessages = 40

// Thread stores the conversation history for one farmer.
type Thread struct {
	Key      string              `json:"key"`
	Messages []providers.Message `json:"messages"`
	Created  time.Time           `json:"created"`
	Updated  time.Time           `json:"updated"`
}

// Manager holds conversation threads in memory. Threads do not survive
// a restart; a fresh process starts every conversation over.
type Manager struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

func NewManager() *Manager {
	return &Manager{threads: make(map[string]*Thread)}
}

// AddMessage appends a message to a thread, creating it on first use.
// When the thread exceeds the history cap, the oldest messages are
// dropped.
func (m *Manager) AddMessage(key string, msg providers.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[key]
	if !ok {
		t = &Thread{Key: key, Created: time.Now()}
		m.threads[key] = t
	}

	t.Messages = append(t.Messages, msg)
	if len(t.Messages) > maxThreadMessages {
		t.Messages = t.Messages[len(t.Messages)-maxThreadMessages:]
	}
	t.Updated = time.Now()
}

// History returns a copy of a thread's messages, oldest first. A
// missing thread returns nil.
func (m *Manager) History(key string) []providers.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[key]
	if !ok {
		return nil
	}
	msgs := make([]providers.Message, len(t.Messages))
	copy(msgs, t.Messages)
	return msgs
}

// Len reports the number of live threads.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.threads)
}

// Clear removes a thread's history.
func (m *Manager) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, key)
}
