package domain

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("connection is not in a room")
)

// RoomInfo is a read-only snapshot of a room's presence state, served by the
// inspection API and published with lifecycle events. It is derived from relay
// state and never written back.
type RoomInfo struct {
	MeetingCode   string        `json:"meetingCode"`
	OccupantCount int           `json:"occupantCount"`
	Participants  []Participant `json:"participants"`
}

// ChatMessage is one entry of a room's in-memory transcript. The payload is
// opaque to the server; transcripts live exactly as long as their room.
type ChatMessage struct {
	ConnectionID string          `json:"connectionId"`
	Sender       string          `json:"sender"`
	Payload      json.RawMessage `json:"payload"`
	SentAt       time.Time       `json:"sentAt"`
}
