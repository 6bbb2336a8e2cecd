package ws

import "encoding/json"

// Envelope is the wire frame in both directions: a type tag plus an
// event-specific data object. Unknown inbound types are dropped.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OutboundMessage is an envelope on its way out, data not yet serialized.
type OutboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Inbound payloads
type joinCallData struct {
	MeetingCode string `json:"meetingCode"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
}

type signalData struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type mediaStatusData struct {
	Payload json.RawMessage `json:"payload"`
}

type chatMessageData struct {
	Payload json.RawMessage `json:"payload"`
	Sender  string          `json:"sender"`
}

type leaveCallData struct {
	MeetingCode string `json:"meetingCode"`
}

type reconnectionAttemptData struct {
	OldConnectionID string `json:"oldConnectionId"`
	MeetingCode     string `json:"meetingCode"`
}
