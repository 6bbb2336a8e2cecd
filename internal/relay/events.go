package relay

import (
	"encoding/json"

	"github.com/pulsemeet/pulsemeet/internal/domain"
)

// Inbound event types, as sent by browser clients.
const (
	EventJoinCall            = "join-call"
	EventSignal              = "signal"
	EventMediaStatus         = "media-status"
	EventChatMessage         = "chat-message"
	EventLeaveCall           = "leave-call"
	EventReconnectionAttempt = "reconnection-attempt"
)

// Outbound event types. Signal, media-status and chat-message reuse their
// inbound names on the way out.
const (
	EventUserJoined             = "user-joined"
	EventParticipantList        = "participant-list"
	EventUserLeft               = "user-left"
	EventUserConnectionLost     = "user-connection-lost"
	EventUserReconnected        = "user-reconnected"
	EventReconnectionSuccessful = "reconnection-successful"
	EventLeaveAck               = "leave-ack"
)

// UserPayload is the presence summary attached to join and reconnect
// notifications.
type UserPayload struct {
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// UserJoinedPayload tells a connection about a peer it should hold a link
// with. For the joining connection Occupants is the pre-join occupant list;
// for everyone else it is the refreshed full list.
type UserJoinedPayload struct {
	ConnectionID string      `json:"connectionId"`
	Occupants    []string    `json:"occupants"`
	User         UserPayload `json:"user"`
}

type ParticipantListPayload struct {
	Participants []domain.Participant `json:"participants"`
}

type SignalPayload struct {
	ConnectionID string          `json:"connectionId"`
	Payload      json.RawMessage `json:"payload"`
}

type MediaStatusPayload struct {
	ConnectionID string          `json:"connectionId"`
	Payload      json.RawMessage `json:"payload"`
}

type ChatMessagePayload struct {
	Payload      json.RawMessage `json:"payload"`
	Sender       string          `json:"sender"`
	ConnectionID string          `json:"connectionId"`
}

type UserLeftPayload struct {
	ConnectionID string `json:"connectionId"`
}

type ConnectionLostPayload struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
}

type UserReconnectedPayload struct {
	OldConnectionID string      `json:"oldConnectionId"`
	NewConnectionID string      `json:"newConnectionId"`
	User            UserPayload `json:"user"`
}

type ReconnectionSuccessfulPayload struct {
	NewConnectionID string      `json:"newConnectionId"`
	MeetingCode     string      `json:"meetingCode"`
	OtherUsers      []string    `json:"otherUsers"`
	User            UserPayload `json:"user"`
}

type LeaveAckPayload struct {
	MeetingCode string `json:"meetingCode"`
}
