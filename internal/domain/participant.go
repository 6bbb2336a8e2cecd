package domain

import (
	"strings"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/infrastructure/validate"
)

const maxDisplayNameLength = 64

// PresenceInput is the identity a connection claims when it joins a meeting.
// It is handed to the relay by an already-authenticated client; the relay
// never verifies it beyond the host lookup.
type PresenceInput struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Participant is the presence record kept for each occupant of a room. The
// host flag is resolved once at join time and never recomputed.
type Participant struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"name"`
	IsHost       bool      `json:"isHost"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// NewParticipant builds a presence record for a freshly joined connection.
// Display names are sanitized, never rejected: a join must not fail because
// of a bad name.
func NewParticipant(connectionID string, in PresenceInput, isHost bool) *Participant {
	return &Participant{
		ConnectionID: connectionID,
		DisplayName:  SanitizeDisplayName(in.UserName),
		IsHost:       isHost,
		JoinedAt:     time.Now().UTC(),
	}
}

// SanitizeDisplayName trims and clips a claimed display name. An empty result
// is allowed; clients render their own placeholder.
func SanitizeDisplayName(raw string) string {
	name := strings.TrimSpace(raw)

	if err := validate.MaxLength(maxDisplayNameLength)(name); err != nil {
		runes := []rune(name)
		for len(string(runes)) > maxDisplayNameLength {
			runes = runes[:len(runes)-1]
		}
		name = strings.TrimSpace(string(runes))
	}

	return name
}
