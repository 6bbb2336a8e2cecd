package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated            RoomEventType = "room_created"
	EventRoomClosed             RoomEventType = "room_closed"
	EventParticipantJoined      RoomEventType = "participant_joined"
	EventParticipantLeft        RoomEventType = "participant_left"
	EventParticipantReconnected RoomEventType = "participant_reconnected"
	EventGraceExpired           RoomEventType = "grace_expired"
)

// RoomAuditLog is an append-only operational record of room lifecycle events.
// It is an ops trail, not room-state persistence: the relay never reads it
// back, and chat transcripts are never written to it.
type RoomAuditLog struct {
	ID          string         `bson:"_id" json:"id"`
	MeetingCode string         `bson:"meeting_code" json:"meetingCode"`
	EventType   RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp   time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata    map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByMeetingCode(ctx context.Context, meetingCode string, limit int) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoomCreatedLog(meetingCode string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventRoomCreated,
		Timestamp:   time.Now(),
		Metadata:    map[string]any{},
	}
}

func NewRoomClosedLog(meetingCode string, reason string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventRoomClosed,
		Timestamp:   time.Now(),
		Metadata: map[string]any{
			"reason": reason, // "last_leave", "grace_expired"
		},
	}
}

func NewParticipantJoinedLog(meetingCode string, connectionID string, isHost bool, occupantCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventParticipantJoined,
		Timestamp:   time.Now(),
		Metadata: map[string]any{
			"connection_id":  connectionID,
			"is_host":        isHost,
			"occupant_count": occupantCount,
		},
	}
}

func NewParticipantLeftLog(meetingCode string, connectionID string, occupantCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventParticipantLeft,
		Timestamp:   time.Now(),
		Metadata: map[string]any{
			"connection_id":  connectionID,
			"occupant_count": occupantCount,
		},
	}
}

func NewParticipantReconnectedLog(meetingCode string, oldConnectionID, newConnectionID string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventParticipantReconnected,
		Timestamp:   time.Now(),
		Metadata: map[string]any{
			"old_connection_id": oldConnectionID,
			"new_connection_id": newConnectionID,
		},
	}
}

func NewGraceExpiredLog(meetingCode string, connectionID string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:          uuid.NewString(),
		MeetingCode: meetingCode,
		EventType:   EventGraceExpired,
		Timestamp:   time.Now(),
		Metadata: map[string]any{
			"connection_id": connectionID,
		},
	}
}
