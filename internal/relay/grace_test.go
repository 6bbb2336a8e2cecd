package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/domain"
)

type expiryRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{ch: make(chan string, 8)}
}

func (e *expiryRecorder) onExpire(connectionID, meetingCode string) {
	e.mu.Lock()
	e.fired = append(e.fired, connectionID+"@"+meetingCode)
	e.mu.Unlock()

	e.ch <- connectionID
}

func (e *expiryRecorder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.fired)
}

func TestGraceExpiryFiresCallback(t *testing.T) {
	rec := newExpiryRecorder()
	tracker := NewGraceTracker(10*time.Millisecond, rec.onExpire)

	tracker.Begin("c1", "alpha", domain.Participant{ConnectionID: "c1"})

	select {
	case id := <-rec.ch:
		if id != "c1" {
			t.Fatalf("expired wrong connection: %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expiry callback never fired")
	}

	if tracker.Len() != 0 {
		t.Fatalf("expired entry still pending, len=%d", tracker.Len())
	}

	rec.mu.Lock()
	got := rec.fired[0]
	rec.mu.Unlock()
	if got != "c1@alpha" {
		t.Fatalf("callback got wrong room: %s", got)
	}
}

func TestGraceCancelReturnsSnapshotAndStopsTimer(t *testing.T) {
	rec := newExpiryRecorder()
	tracker := NewGraceTracker(10*time.Millisecond, rec.onExpire)

	snapshot := domain.Participant{ConnectionID: "c1", DisplayName: "Alice", IsHost: true}
	tracker.Begin("c1", "alpha", snapshot)

	got, code, ok := tracker.Cancel("c1")
	if !ok {
		t.Fatal("cancel of pending entry failed")
	}
	if code != "alpha" || got.DisplayName != "Alice" || !got.IsHost {
		t.Fatalf("snapshot not returned intact: %+v in %s", got, code)
	}

	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatal("cancelled timer still fired")
	}
}

func TestGraceCancelWithoutEntry(t *testing.T) {
	tracker := NewGraceTracker(time.Minute, func(string, string) {})

	if _, _, ok := tracker.Cancel("ghost"); ok {
		t.Fatal("cancel of unknown connection should report no match")
	}
}

func TestGraceDuplicateBeginIgnored(t *testing.T) {
	tracker := NewGraceTracker(time.Minute, func(string, string) {})

	if !tracker.Begin("c1", "alpha", domain.Participant{}) {
		t.Fatal("first begin should succeed")
	}
	if tracker.Begin("c1", "alpha", domain.Participant{}) {
		t.Fatal("duplicate begin should be ignored")
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected one pending entry, got %d", tracker.Len())
	}
}

func TestGraceExpiryFiresAtMostOncePerEntry(t *testing.T) {
	rec := newExpiryRecorder()
	tracker := NewGraceTracker(5*time.Millisecond, rec.onExpire)

	tracker.Begin("c1", "alpha", domain.Participant{})
	<-rec.ch

	// Cancel after the fact must not resurrect or re-fire anything.
	if _, _, ok := tracker.Cancel("c1"); ok {
		t.Fatal("cancel should lose the race once the timer claimed the entry")
	}

	time.Sleep(20 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("expected exactly one expiry, got %d", rec.count())
	}
}
