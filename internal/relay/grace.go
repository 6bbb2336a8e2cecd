package relay

import (
	"sync"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/domain"
)

// GraceTracker holds connections that dropped without an explicit leave,
// each with a pending eviction timer and a snapshot of their last-known
// presence. The pending map is the single source of truth for the
// cancel-vs-fire race: whichever side removes the entry first wins, and the
// loser becomes a no-op.
type GraceTracker struct {
	window   time.Duration
	onExpire func(connectionID, meetingCode string)

	mu      sync.Mutex
	pending map[string]*pendingDisconnect
}

type pendingDisconnect struct {
	meetingCode string
	participant domain.Participant
	timer       *time.Timer
}

// NewGraceTracker schedules onExpire for every entry whose window elapses
// without a cancel. Room cleanup is the caller's business; the tracker only
// owns the bookkeeping.
func NewGraceTracker(window time.Duration, onExpire func(connectionID, meetingCode string)) *GraceTracker {
	return &GraceTracker{
		window:   window,
		onExpire: onExpire,
		pending:  make(map[string]*pendingDisconnect),
	}
}

// Begin records a pending disconnect and arms its eviction timer. Duplicate
// disconnect events for an already-pending connection are ignored.
func (g *GraceTracker) Begin(connectionID, meetingCode string, snapshot domain.Participant) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.pending[connectionID]; exists {
		return false
	}

	entry := &pendingDisconnect{
		meetingCode: meetingCode,
		participant: snapshot,
	}
	entry.timer = time.AfterFunc(g.window, func() {
		g.expire(connectionID)
	})
	g.pending[connectionID] = entry

	return true
}

// Cancel removes a pending entry and returns its presence snapshot, so a
// rejoining connection can resume its prior identity. If the timer already
// fired and claimed the entry, Cancel reports no match.
func (g *GraceTracker) Cancel(connectionID string) (domain.Participant, string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.pending[connectionID]
	if !ok {
		return domain.Participant{}, "", false
	}

	delete(g.pending, connectionID)
	entry.timer.Stop()

	return entry.participant, entry.meetingCode, true
}

// Len reports the number of connections currently waiting out their window.
func (g *GraceTracker) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.pending)
}

func (g *GraceTracker) expire(connectionID string) {
	g.mu.Lock()
	entry, ok := g.pending[connectionID]
	if ok {
		delete(g.pending, connectionID)
	}
	g.mu.Unlock()

	// Lost the race against Cancel: a reconnection got here first.
	if !ok {
		return
	}

	g.onExpire(connectionID, entry.meetingCode)
}
