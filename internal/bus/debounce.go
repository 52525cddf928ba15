package bus

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// senderBuffer accumulates message fragments for one sender between
// flushes. Voice and message ID are taken from the fragment that
// created the buffer; later fragments only extend the text.
type senderBuffer struct {
	fragments []string
	isVoice   bool
	messageID string
}

// InboundDebouncer merges rapid messages from the same sender before
// processing. Each sender gets at most one live flush task: the first
// fragment arms a fixed-deadline timer, later fragments within the
// window join the same buffer without re-arming it, so worst-case
// latency stays bounded by the delay regardless of arrival rate.
//
// The flush task drains the buffer atomically when the timer fires,
// runs the flush callback with the merged message, and only then clears
// its pending entry. Fragments arriving while the callback is still
// running start a fresh buffer; the finishing task re-arms itself for
// them in the same critical section, so no fragment is lost and no two
// tasks ever own the same sender at once.
type InboundDebouncer struct {
	delay time.Duration
	flush FlushFunc

	mu      sync.Mutex
	buffers map[string]*senderBuffer
	pending map[string]struct{}
	stopped bool
	stopCh  chan struct{}
}

// NewInboundDebouncer creates a debouncer that merges fragments per
// sender for the given delay and hands the merged message to flush.
func NewInboundDebouncer(delay time.Duration, flush FlushFunc) *InboundDebouncer {
	return &InboundDebouncer{
		delay:   delay,
		flush:   flush,
		buffers: make(map[string]*senderBuffer),
		pending: make(map[string]struct{}),
		stopCh:  make(chan struct{}),
	}
}

// Push appends a fragment to the sender's buffer, creating the buffer
// and arming a flush task if none is live for this sender. Never blocks.
func (d *InboundDebouncer) Push(msg InboundMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	buf, ok := d.buffers[msg.SenderID]
	if !ok {
		buf = &senderBuffer{isVoice: msg.IsVoice, messageID: msg.MessageID}
		d.buffers[msg.SenderID] = buf
	}
	buf.fragments = append(buf.fragments, msg.Text)

	if _, live := d.pending[msg.SenderID]; !live {
		d.arm(msg.SenderID)
	}
}

// arm records a pending flush task for the sender and starts it.
// Caller must hold d.mu.
func (d *InboundDebouncer) arm(senderID string) {
	d.pending[senderID] = struct{}{}
	go d.runFlushTask(senderID)
}

// runFlushTask waits out the debounce delay, drains the sender's buffer
// and processes it. Clearing the pending entry is the final step, after
// the callback returns (or panics), so a second task can never be armed
// while this one owns the sender.
func (d *InboundDebouncer) runFlushTask(senderID string) {
	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-d.stopCh:
		d.mu.Lock()
		delete(d.pending, senderID)
		d.mu.Unlock()
		return
	case <-timer.C:
	}

	defer d.finishFlushTask(senderID)

	d.mu.Lock()
	buf := d.buffers[senderID]
	delete(d.buffers, senderID)
	d.mu.Unlock()

	if buf == nil || len(buf.fragments) == 0 {
		return
	}

	merged := InboundMessage{
		SenderID:  senderID,
		Text:      strings.Join(buf.fragments, " "),
		IsVoice:   buf.isVoice,
		MessageID: buf.messageID,
	}

	d.flush(merged)
}

// finishFlushTask removes the sender's pending entry. If fragments
// accumulated while the flush callback was running, it re-arms a fresh
// task instead, so those fragments get their own full debounce window.
func (d *InboundDebouncer) finishFlushTask(senderID string) {
	if r := recover(); r != nil {
		slog.Error("flush task panicked", "sender_id", senderID, "panic", r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.pending, senderID)

	if d.stopped {
		return
	}
	if buf, ok := d.buffers[senderID]; ok && len(buf.fragments) > 0 {
		d.arm(senderID)
	}
}

// Stop prevents new buffers and abandons timers that have not fired.
// A flush whose pipeline is already running is left to finish on its own.
func (d *InboundDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.buffers = make(map[string]*senderBuffer)
}

// PendingSenders reports how many senders currently have a live flush task.
func (d *InboundDebouncer) PendingSenders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
