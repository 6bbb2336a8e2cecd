package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/contracts"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/messaging"
)

// RoomPublisher forwards room lifecycle records to the meeting exchange, one
// routing key per event type.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) Publish(ctx context.Context, event *domain.RoomAuditLog) error {
	routingKey, err := routingKeyFor(event.EventType)
	if err != nil {
		return err
	}

	payload := messaging.RoomEventData{Event: *event}
	eventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	body, err := json.Marshal(contracts.AmqpMessage{
		MeetingCode: event.MeetingCode,
		Data:        eventJSON,
	})
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, body)
}

func routingKeyFor(eventType domain.RoomEventType) (string, error) {
	switch eventType {
	case domain.EventRoomCreated:
		return contracts.EventRoomCreated, nil
	case domain.EventRoomClosed:
		return contracts.EventRoomClosed, nil
	case domain.EventParticipantJoined:
		return contracts.EventParticipantJoined, nil
	case domain.EventParticipantLeft:
		return contracts.EventParticipantLeft, nil
	case domain.EventParticipantReconnected:
		return contracts.EventParticipantReconnected, nil
	case domain.EventGraceExpired:
		return contracts.EventGraceExpired, nil
	}

	return "", fmt.Errorf("no routing key for event type %q", eventType)
}
