package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// collectFlushes is a FlushFunc that records every merged message.
type collectFlushes struct {
	mu     sync.Mutex
	msgs   []InboundMessage
	signal chan struct{}
}

func newCollectFlushes() *collectFlushes {
	return &collectFlushes{signal: make(chan struct{}, 64)}
}

func (c *collectFlushes) flush(msg InboundMessage) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collectFlushes) all() []InboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]InboundMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// waitFlushes blocks until n flushes happened or the deadline passes.
func (c *collectFlushes) waitFlushes(t *testing.T, n int, deadline time.Duration) {
	t.Helper()
	timeout := time.After(deadline)
	for i := 0; i < n; i++ {
		select {
		case <-c.signal:
		case <-timeout:
			t.Fatalf("timed out waiting for flush %d of %d", i+1, n)
		}
	}
}

// TestPush_MergesFragmentsInArrivalOrder verifies that N fragments
// pushed within one debounce window produce exactly one flush whose
// text is the fragments joined by single spaces.
func TestPush_MergesFragmentsInArrivalOrder(t *testing.T) {
	got := newCollectFlushes()
	d := NewInboundDebouncer(50*time.Millisecond, got.flush)
	defer d.Stop()

	d.Push(InboundMessage{SenderID: "1@c.us", Text: "potato price"})
	time.Sleep(10 * time.Millisecond)
	d.Push(InboundMessage{SenderID: "1@c.us", Text: "in lucknow"})

	got.waitFlushes(t, 1, time.Second)

	msgs := got.all()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one flush, got %d", len(msgs))
	}
	if msgs[0].Text != "potato price in lucknow" {
		t.Fatalf("unexpected merged text: %q", msgs[0].Text)
	}
	if msgs[0].SenderID != "1@c.us" {
		t.Fatalf("unexpected sender: %q", msgs[0].SenderID)
	}

	// No stray second flush.
	time.Sleep(120 * time.Millisecond)
	if n := len(got.all()); n != 1 {
		t.Fatalf("expected no further flushes, got %d total", n)
	}
}

// TestPush_FixedDeadlineNotSlidingWindow verifies the timer is not
// re-armed by later fragments: a steady drip of fragments still flushes
// at the original deadline with everything accumulated so far.
func TestPush_FixedDeadlineNotSlidingWindow(t *testing.T) {
	got := newCollectFlushes()
	d := NewInboundDebouncer(100*time.Millisecond, got.flush)
	defer d.Stop()

	start := time.Now()
	for i := 0; i < 4; i++ {
		d.Push(InboundMessage{SenderID: "s", Text: fmt.Sprintf("f%d", i)})
		time.Sleep(30 * time.Millisecond)
	}

	got.waitFlushes(t, 1, time.Second)
	elapsed := time.Since(start)

	// A sliding window would have pushed the flush past 4*30+100ms.
	if elapsed > 200*time.Millisecond {
		t.Fatalf("flush fired too late (%v), timer was re-armed", elapsed)
	}

	msgs := got.all()
	if len(msgs) != 1 {
		t.Fatalf("expected one flush, got %d", len(msgs))
	}
	if msgs[0].Text != "f0 f1 f2 f3" {
		t.Fatalf("unexpected merged text: %q", msgs[0].Text)
	}
}

// TestPush_DuringFlushStartsNewBuffer verifies that a fragment arriving
// while a flush's callback is still running lands in a fresh buffer and
// gets its own flush: nothing processed twice, nothing dropped.
func TestPush_DuringFlushStartsNewBuffer(t *testing.T) {
	var d *InboundDebouncer

	got := newCollectFlushes()
	inFirstFlush := make(chan struct{})
	releaseFirst := make(chan struct{})
	var firstDone sync.Once

	d = NewInboundDebouncer(20*time.Millisecond, func(msg InboundMessage) {
		first := false
		firstDone.Do(func() { first = true })
		if first {
			close(inFirstFlush)
			<-releaseFirst
		}
		got.flush(msg)
	})
	defer d.Stop()

	d.Push(InboundMessage{SenderID: "s", Text: "one"})

	<-inFirstFlush
	// First flush has drained its buffer and is mid-pipeline.
	d.Push(InboundMessage{SenderID: "s", Text: "two"})
	close(releaseFirst)

	got.waitFlushes(t, 2, 2*time.Second)

	msgs := got.all()
	if len(msgs) != 2 {
		t.Fatalf("expected two flushes, got %d", len(msgs))
	}
	if msgs[0].Text != "one" || msgs[1].Text != "two" {
		t.Fatalf("unexpected flush contents: %q, %q", msgs[0].Text, msgs[1].Text)
	}
}

// TestPush_AtMostOneLiveTaskPerSender hammers concurrent bursts and
// checks the pending-task invariant plus exactly-once processing of
// every fragment.
func TestPush_AtMostOneLiveTaskPerSender(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	got := newCollectFlushes()
	d := NewInboundDebouncer(10*time.Millisecond, func(msg InboundMessage) {
		n := inFlight.Add(1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		got.flush(msg)
	})
	defer d.Stop()

	const fragments = 40
	var wg sync.WaitGroup
	for i := 0; i < fragments; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Push(InboundMessage{SenderID: "burst", Text: fmt.Sprintf("m%d", i)})
		}(i)
	}
	wg.Wait()

	// Drain until every fragment reached a flush.
	deadline := time.After(3 * time.Second)
	for {
		total := 0
		for _, m := range got.all() {
			total += len(splitWords(m.Text))
		}
		if total == fragments {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d of %d fragments flushed", total, fragments)
		case <-time.After(10 * time.Millisecond):
		}
	}

	if maxInFlight.Load() > 1 {
		t.Fatalf("observed %d concurrent flush tasks for one sender", maxInFlight.Load())
	}

	// Each fragment appears exactly once across all flushes.
	seen := make(map[string]int)
	for _, m := range got.all() {
		for _, w := range splitWords(m.Text) {
			seen[w]++
		}
	}
	for i := 0; i < fragments; i++ {
		key := fmt.Sprintf("m%d", i)
		if seen[key] != 1 {
			t.Fatalf("fragment %s flushed %d times", key, seen[key])
		}
	}
}

// TestPush_IndependentSendersFlushConcurrently verifies senders do not
// serialize behind each other.
func TestPush_IndependentSendersFlushConcurrently(t *testing.T) {
	got := newCollectFlushes()
	d := NewInboundDebouncer(20*time.Millisecond, got.flush)
	defer d.Stop()

	d.Push(InboundMessage{SenderID: "a", Text: "hello"})
	d.Push(InboundMessage{SenderID: "b", Text: "namaste"})

	got.waitFlushes(t, 2, time.Second)

	bySender := make(map[string]string)
	for _, m := range got.all() {
		bySender[m.SenderID] = m.Text
	}
	if bySender["a"] != "hello" || bySender["b"] != "namaste" {
		t.Fatalf("unexpected per-sender flushes: %v", bySender)
	}
}

// TestFlush_PanicStillClearsPendingEntry verifies a panicking pipeline
// does not wedge the sender: the pending entry is cleared and the next
// message gets a fresh task.
func TestFlush_PanicStillClearsPendingEntry(t *testing.T) {
	var calls atomic.Int32

	got := newCollectFlushes()
	d := NewInboundDebouncer(10*time.Millisecond, func(msg InboundMessage) {
		if calls.Add(1) == 1 {
			panic("pipeline exploded")
		}
		got.flush(msg)
	})
	defer d.Stop()

	d.Push(InboundMessage{SenderID: "s", Text: "boom"})

	// Wait for the panicking flush to complete its cleanup.
	waitFor(t, time.Second, func() bool { return d.PendingSenders() == 0 })

	d.Push(InboundMessage{SenderID: "s", Text: "again"})
	got.waitFlushes(t, 1, time.Second)

	if msgs := got.all(); len(msgs) != 1 || msgs[0].Text != "again" {
		t.Fatalf("expected recovery flush with 'again', got %v", msgs)
	}
}

// TestPush_VoiceFlagFromFirstFragment verifies the merged message keeps
// the voice flag of the fragment that opened the buffer.
func TestPush_VoiceFlagFromFirstFragment(t *testing.T) {
	got := newCollectFlushes()
	d := NewInboundDebouncer(20*time.Millisecond, got.flush)
	defer d.Stop()

	d.Push(InboundMessage{SenderID: "s", Text: "voice part", IsVoice: true, MessageID: "m1"})
	d.Push(InboundMessage{SenderID: "s", Text: "typed part", IsVoice: false, MessageID: "m2"})

	got.waitFlushes(t, 1, time.Second)

	msgs := got.all()
	if !msgs[0].IsVoice {
		t.Fatal("expected merged message to keep IsVoice from first fragment")
	}
	if msgs[0].MessageID != "m1" {
		t.Fatalf("expected first fragment's message ID, got %q", msgs[0].MessageID)
	}
}

// TestStop_AbandonsUnfiredTimers verifies Stop drops buffered fragments
// whose timers have not fired, without flushing them.
func TestStop_AbandonsUnfiredTimers(t *testing.T) {
	got := newCollectFlushes()
	d := NewInboundDebouncer(time.Hour, got.flush)

	d.Push(InboundMessage{SenderID: "s", Text: "never flushed"})
	d.Stop()

	waitFor(t, time.Second, func() bool { return d.PendingSenders() == 0 })

	if n := len(got.all()); n != 0 {
		t.Fatalf("expected no flushes after Stop, got %d", n)
	}

	// Push after Stop is a no-op.
	d.Push(InboundMessage{SenderID: "s", Text: "late"})
	if d.PendingSenders() != 0 {
		t.Fatal("Push after Stop should not arm a task")
	}
}

func splitWords(s string) []string {
	var out []string
	word := ""
	for _, r := range s {
		if r == ' ' {
			if word != "" {
				out = append(out, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	if word != "" {
		out = append(out, word)
	}
	return out
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
