package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	MeetingCode string `json:"meetingCode"`
	Data        []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventRoomCreated            = "room.created"
	EventRoomClosed             = "room.closed"
	EventParticipantJoined      = "participant.joined"
	EventParticipantLeft        = "participant.left"
	EventParticipantReconnected = "participant.reconnected"
	EventGraceExpired           = "grace.expired"
)
