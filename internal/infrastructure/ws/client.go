package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/relay"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10 // signaling frames carry SDP blobs, allow 64 KiB
)

// Dispatcher is the slice of the relay the transport needs.
type Dispatcher interface {
	Join(ctx context.Context, connectionID string, req relay.JoinRequest)
	Signal(fromConnectionID, toConnectionID string, payload json.RawMessage)
	MediaStatus(fromConnectionID string, payload json.RawMessage)
	Chat(fromConnectionID, senderLabel string, payload json.RawMessage)
	Leave(connectionID, meetingCode string)
	Disconnect(connectionID string)
	Reconnect(ctx context.Context, oldConnectionID, newConnectionID, meetingCode string)
}

type Client struct {
	ID string

	conn       *connWrapper
	hub        *Hub
	dispatcher Dispatcher
	logger     logging.Logger

	send      chan *OutboundMessage
	closeOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn, hub *Hub, dispatcher Dispatcher, logger logging.Logger) *Client {
	return &Client{
		ID:         id,
		conn:       newConnWrapper(conn),
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		send:       make(chan *OutboundMessage, 64), // buffered to avoid dead-locks on slow clients
	}
}

// Send queues a message for the write pump. When the buffer is full the
// message is dropped rather than blocking the relay.
func (c *Client) Send(msg *OutboundMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump consumes inbound envelopes until the connection dies, then tells
// the relay about the abrupt disconnect. An explicit leave-call has already
// cleared the relay state by then, making the disconnect a no-op.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.dispatcher.Disconnect(c.ID)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn(logging.Signaling, logging.Transport, "read error", map[logging.ExtraKey]any{
					logging.ConnectionId: c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Debug(logging.Signaling, logging.Transport, "malformed envelope dropped", map[logging.ExtraKey]any{
				logging.ConnectionId: c.ID,
			})
			continue
		}

		c.dispatch(ctx, env)
	}
}

func (c *Client) dispatch(ctx context.Context, env Envelope) {
	switch env.Type {
	case relay.EventJoinCall:
		var d joinCallData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.MeetingCode == "" {
			return
		}
		c.dispatcher.Join(ctx, c.ID, relay.JoinRequest{
			MeetingCode: d.MeetingCode,
			Presence:    domain.PresenceInput{UserID: d.UserID, UserName: d.UserName},
		})

	case relay.EventSignal:
		var d signalData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.To == "" {
			return
		}
		c.dispatcher.Signal(c.ID, d.To, d.Payload)

	case relay.EventMediaStatus:
		var d mediaStatusData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		c.dispatcher.MediaStatus(c.ID, d.Payload)

	case relay.EventChatMessage:
		var d chatMessageData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		c.dispatcher.Chat(c.ID, d.Sender, d.Payload)

	case relay.EventLeaveCall:
		var d leaveCallData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return
		}
		c.dispatcher.Leave(c.ID, d.MeetingCode)

	case relay.EventReconnectionAttempt:
		var d reconnectionAttemptData
		if err := json.Unmarshal(env.Data, &d); err != nil || d.OldConnectionID == "" {
			return
		}
		c.dispatcher.Reconnect(ctx, d.OldConnectionID, c.ID, d.MeetingCode)

	default:
		c.logger.Debug(logging.Signaling, logging.Transport, "unknown event type dropped", map[logging.ExtraKey]any{
			logging.ConnectionId: c.ID,
			"type":               env.Type,
		})
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteClose()
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn(logging.Signaling, logging.Transport, "write error", map[logging.ExtraKey]any{
					logging.ConnectionId: c.ID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}

		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
