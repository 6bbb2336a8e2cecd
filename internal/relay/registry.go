package relay

import (
	"sync"

	"github.com/pulsemeet/pulsemeet/internal/domain"
)

// Registry is the combined room directory and connection registry: meeting
// code → room state, plus a reverse index connection id → meeting code kept in
// lockstep with every join, leave and rename. A room exists iff its occupant
// list is non-empty; the last occupant leaving deletes the room together with
// its participant set and transcript.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*roomState
	byConn map[string]string // connection id -> meeting code
}

type roomState struct {
	occupants    []string // join order, used for peer-bootstrap fan-out
	participants map[string]*domain.Participant
	transcript   []domain.ChatMessage
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*roomState),
		byConn: make(map[string]string),
	}
}

// Join adds the connection to the room, creating the room on first join.
// It returns the occupant snapshot taken before the join (for peer-connection
// bootstrap), the stored participant record, whether the room was created by
// this call, and whether the connection was already a member (duplicate joins
// never produce duplicate entries).
func (r *Registry) Join(meetingCode, connectionID string, p *domain.Participant) (existing []string, joined *domain.Participant, created, already bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		room = &roomState{
			participants: make(map[string]*domain.Participant),
		}
		r.rooms[meetingCode] = room
		created = true
	}

	existing = make([]string, 0, len(room.occupants))
	for _, id := range room.occupants {
		if id != connectionID {
			existing = append(existing, id)
		}
	}

	if prior, ok := room.participants[connectionID]; ok {
		r.byConn[connectionID] = meetingCode
		return existing, prior, created, true
	}

	room.occupants = append(room.occupants, connectionID)
	room.participants[connectionID] = p
	r.byConn[connectionID] = meetingCode

	return existing, p, created, false
}

// Leave removes the connection from the room. When the last occupant leaves,
// the whole room is deleted. The returned occupant list reflects the state
// after removal; ok is false when the room or membership did not exist.
func (r *Registry) Leave(meetingCode, connectionID string) (remaining []string, removed *domain.Participant, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, found := r.rooms[meetingCode]
	if !found {
		return nil, nil, false
	}

	idx := -1
	for i, id := range room.occupants {
		if id == connectionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil, false
	}

	room.occupants = append(room.occupants[:idx], room.occupants[idx+1:]...)
	removed = room.participants[connectionID]
	delete(room.participants, connectionID)
	delete(r.byConn, connectionID)

	if len(room.occupants) == 0 {
		delete(r.rooms, meetingCode)
		return []string{}, removed, true
	}

	remaining = append([]string(nil), room.occupants...)
	return remaining, removed, true
}

// Rename swaps a connection id in place, preserving join order and the
// participant record (with its name, host flag and join time). Used by the
// reconnection path; this is not a new join.
func (r *Registry) Rename(meetingCode, oldID, newID string) (*domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, found := r.rooms[meetingCode]
	if !found {
		return nil, false
	}

	p, ok := room.participants[oldID]
	if !ok {
		return nil, false
	}

	for i, id := range room.occupants {
		if id == oldID {
			room.occupants[i] = newID
			break
		}
	}

	delete(room.participants, oldID)
	p.ConnectionID = newID
	room.participants[newID] = p

	delete(r.byConn, oldID)
	r.byConn[newID] = meetingCode

	return p, true
}

// RoomOf resolves the room a connection currently occupies via the reverse
// index. Connections are in at most one room at a time.
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.byConn[connectionID]
	return code, ok
}

// Occupants returns a copy of the room's occupant list in join order.
func (r *Registry) Occupants(meetingCode string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return nil
	}

	return append([]string(nil), room.occupants...)
}

// Participant returns the presence record stored for a room member.
func (r *Registry) Participant(meetingCode, connectionID string) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return domain.Participant{}, false
	}

	p, ok := room.participants[connectionID]
	if !ok {
		return domain.Participant{}, false
	}

	return *p, true
}

// Participants returns the roster in join order.
func (r *Registry) Participants(meetingCode string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return nil
	}

	roster := make([]domain.Participant, 0, len(room.occupants))
	for _, id := range room.occupants {
		if p, ok := room.participants[id]; ok {
			roster = append(roster, *p)
		}
	}

	return roster
}

// AppendChat appends to the room's in-memory transcript. Transcripts are
// unbounded by design and die with their room.
func (r *Registry) AppendChat(meetingCode string, msg domain.ChatMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return false
	}

	room.transcript = append(room.transcript, msg)
	return true
}

// Transcript returns a copy of the room's chat transcript.
func (r *Registry) Transcript(meetingCode string) []domain.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return nil
	}

	return append([]domain.ChatMessage(nil), room.transcript...)
}

// Info builds a read-only snapshot for the inspection API.
func (r *Registry) Info(meetingCode string) (domain.RoomInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[meetingCode]
	if !ok {
		return domain.RoomInfo{}, false
	}

	roster := make([]domain.Participant, 0, len(room.occupants))
	for _, id := range room.occupants {
		if p, ok := room.participants[id]; ok {
			roster = append(roster, *p)
		}
	}

	return domain.RoomInfo{
		MeetingCode:   meetingCode,
		OccupantCount: len(room.occupants),
		Participants:  roster,
	}, true
}

// Counts reports the number of live rooms and registered connections.
func (r *Registry) Counts() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), len(r.byConn)
}
