package rooms

import "time"

// participantResponse represents one room member
type participantResponse struct {
	ConnectionID string    `json:"connectionId"` // Server-minted connection identifier
	Name         string    `json:"name"`         // Display name, may be empty
	IsHost       bool      `json:"isHost"`       // Whether the directory confirmed this member as host
	JoinedAt     time.Time `json:"joinedAt"`     // Join timestamp
}

// roomResponse represents a point-in-time room snapshot
type roomResponse struct {
	MeetingCode   string                `json:"meetingCode"`
	OccupantCount int                   `json:"occupantCount"`
	Participants  []participantResponse `json:"participants"` // Roster in join order
}

// statsResponse represents relay-wide occupancy counters
type statsResponse struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}
