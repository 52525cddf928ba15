package bus

import (
	"fmt"
	"testing"
	"time"
)

func TestDedupeCache_FirstSeenIsNotDuplicate(t *testing.T) {
	c := NewDedupeCache(time.Minute, 100)

	if c.IsDuplicate("k1") {
		t.Fatal("first sighting reported as duplicate")
	}
	if !c.IsDuplicate("k1") {
		t.Fatal("second sighting not reported as duplicate")
	}
}

func TestDedupeCache_ExpiredKeyIsFreshAgain(t *testing.T) {
	c := NewDedupeCache(10*time.Millisecond, 100)

	c.IsDuplicate("k1")
	time.Sleep(20 * time.Millisecond)

	if c.IsDuplicate("k1") {
		t.Fatal("expired key still reported as duplicate")
	}
}

func TestDedupeCache_EvictsWhenFull(t *testing.T) {
	c := NewDedupeCache(time.Minute, 10)

	for i := 0; i < 50; i++ {
		c.IsDuplicate(fmt.Sprintf("k%d", i))
	}

	if c.Len() > 10 {
		t.Fatalf("cache grew past capacity: %d entries", c.Len())
	}
}

func TestDedupeCache_ForgetAllowsRetry(t *testing.T) {
	c := NewDedupeCache(time.Minute, 10)

	if c.IsDuplicate("msg-77") {
		t.Fatal("first sighting must not be a duplicate")
	}
	c.Forget("msg-77")
	if c.IsDuplicate("msg-77") {
		t.Fatal("forgotten key must be fresh again")
	}
}
