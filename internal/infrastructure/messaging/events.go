package messaging

import "github.com/pulsemeet/pulsemeet/internal/domain"

const (
	RoomEventsQueue = "room_events"
	DeadLetterQueue = "dead_letter_queue"
)

type RoomEventData struct {
	Event domain.RoomAuditLog `json:"event"`
}
