package events

import (
	"context"
	"encoding/json"

	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/contracts"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// roomConsumer drains the room events queue into the audit repository. When
// the consumer runs, it is the sole audit writer; the relay then only
// publishes.
type roomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository, logger logging.Logger) *roomConsumer {
	return &roomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *roomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomEventsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			c.logger.Warn(logging.RabbitMQ, logging.RoomLifecycle, "failed to unmarshal amqp message", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		var payload messaging.RoomEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			c.logger.Warn(logging.RabbitMQ, logging.RoomLifecycle, "failed to unmarshal room event", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return err
		}

		if c.audit == nil {
			c.logger.Debug(logging.RabbitMQ, logging.RoomLifecycle, "room event received", map[logging.ExtraKey]any{
				logging.MeetingCode: payload.Event.MeetingCode,
				"eventType":         string(payload.Event.EventType),
			})
			return nil
		}

		return c.audit.Log(ctx, &payload.Event)
	})
}
