package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/metrics"
)

const DefaultGraceWindow = 30 * time.Second

// Emitter delivers an event to a single transport connection. Delivery is
// best-effort: if the target is gone the event is silently dropped.
type Emitter interface {
	Emit(connectionID string, event string, data any)
}

// HostResolver answers "is this claimed user the host of this meeting?"
// against the external Meeting Directory.
type HostResolver interface {
	ResolveHost(ctx context.Context, meetingCode, claimedUserID string) (bool, error)
}

// LifecyclePublisher forwards room lifecycle records to a broker. May be nil.
type LifecyclePublisher interface {
	Publish(ctx context.Context, event *domain.RoomAuditLog) error
}

// JoinRequest carries the identity a connection claims when joining.
type JoinRequest struct {
	MeetingCode string
	Presence    domain.PresenceInput
}

// Per-connection lifecycle. Absent from the map means unjoined or gone.
type connState int

const (
	stateJoined connState = iota + 1
	statePendingGrace
)

// Relay is the signaling orchestrator: it owns all room, registry and grace
// state, reacts to transport lifecycle and payload events, and fans out
// notifications through the Emitter. One mutex serializes every mutating
// operation across all rooms; host lookups happen before it is taken.
type Relay struct {
	emitter   Emitter
	hosts     HostResolver
	logger    logging.Logger
	metrics   *metrics.Signaling
	audit     domain.RoomAuditRepository
	publisher LifecyclePublisher

	mu       sync.Mutex
	registry *Registry
	grace    *GraceTracker
	states   map[string]connState

	lifecycle chan *domain.RoomAuditLog
}

type Config struct {
	GraceWindow time.Duration
	Emitter     Emitter
	Hosts       HostResolver
	Logger      logging.Logger
	Metrics     *metrics.Signaling // optional
	Audit       domain.RoomAuditRepository // optional
	Publisher   LifecyclePublisher // optional
}

func New(cfg Config) *Relay {
	window := cfg.GraceWindow
	if window <= 0 {
		window = DefaultGraceWindow
	}

	r := &Relay{
		emitter:   cfg.Emitter,
		hosts:     cfg.Hosts,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		audit:     cfg.Audit,
		publisher: cfg.Publisher,
		registry:  NewRegistry(),
		states:    make(map[string]connState),
	}
	r.grace = NewGraceTracker(window, r.handleGraceExpiry)

	if r.audit != nil || r.publisher != nil {
		r.lifecycle = make(chan *domain.RoomAuditLog, 256)
		go r.drainLifecycle()
	}

	return r
}

// Registry exposes read-only room snapshots to the inspection API.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Join resolves the host flag (outside the relay lock, best-effort: a failed
// directory lookup degrades to non-host and never rejects the join), adds the
// connection to the room and fans out. The joiner always receives its roster
// and pre-join occupant snapshot before anyone else learns of its arrival.
func (r *Relay) Join(ctx context.Context, connectionID string, req JoinRequest) {
	r.countEvent(EventJoinCall)

	isHost := false
	if r.hosts != nil {
		resolved, err := r.hosts.ResolveHost(ctx, req.MeetingCode, req.Presence.UserID)
		if err != nil {
			r.logger.Warn(logging.Directory, logging.ExternalService, "host lookup failed, defaulting to non-host", map[logging.ExtraKey]any{
				logging.MeetingCode:  req.MeetingCode,
				logging.ErrorMessage: err.Error(),
			})
		} else {
			isHost = resolved
		}
	}

	r.mu.Lock()

	// A connection occupies at most one room. Joining a different room is an
	// implicit departure from the previous one, so the old room's occupant
	// list and the reverse index never disagree.
	if prior, inRoom := r.registry.RoomOf(connectionID); inRoom && prior != req.MeetingCode {
		r.grace.Cancel(connectionID)
		r.departAndRecord(connectionID, prior)
	}

	p := domain.NewParticipant(connectionID, req.Presence, isHost)
	existing, joined, created, already := r.registry.Join(req.MeetingCode, connectionID, p)
	r.states[connectionID] = stateJoined

	roster := r.registry.Participants(req.MeetingCode)
	user := UserPayload{Name: joined.DisplayName, IsHost: joined.IsHost}

	r.emitter.Emit(connectionID, EventParticipantList, ParticipantListPayload{Participants: roster})
	r.emitter.Emit(connectionID, EventUserJoined, UserJoinedPayload{
		ConnectionID: connectionID,
		Occupants:    existing,
		User:         user,
	})

	if !already {
		full := r.registry.Occupants(req.MeetingCode)
		for _, peer := range existing {
			r.emitter.Emit(peer, EventUserJoined, UserJoinedPayload{
				ConnectionID: connectionID,
				Occupants:    full,
				User:         user,
			})
			r.emitter.Emit(peer, EventParticipantList, ParticipantListPayload{Participants: roster})
		}
	}

	occupantCount := len(existing) + 1
	r.updateGauges()
	r.mu.Unlock()

	r.logger.Info(logging.Signaling, logging.Presence, "connection joined room", map[logging.ExtraKey]any{
		logging.MeetingCode:  req.MeetingCode,
		logging.ConnectionId: connectionID,
	})

	if created {
		r.recordLifecycle(domain.NewRoomCreatedLog(req.MeetingCode))
	}
	if !already {
		r.recordLifecycle(domain.NewParticipantJoinedLog(req.MeetingCode, connectionID, joined.IsHost, occupantCount))
	}
}

// Signal forwards an opaque payload to one target connection. Pure
// pass-through: no room validation, no mutation, at-most-once delivery.
func (r *Relay) Signal(fromConnectionID, toConnectionID string, payload json.RawMessage) {
	r.countEvent(EventSignal)

	r.emitter.Emit(toConnectionID, EventSignal, SignalPayload{
		ConnectionID: fromConnectionID,
		Payload:      payload,
	})
}

// MediaStatus broadcasts a media-state payload to every other occupant of the
// sender's room. No-op when the sender is in no room.
func (r *Relay) MediaStatus(fromConnectionID string, payload json.RawMessage) {
	r.countEvent(EventMediaStatus)

	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.registry.RoomOf(fromConnectionID)
	if !ok {
		return
	}

	data := MediaStatusPayload{ConnectionID: fromConnectionID, Payload: payload}
	for _, peer := range r.registry.Occupants(code) {
		if peer != fromConnectionID {
			r.emitter.Emit(peer, EventMediaStatus, data)
		}
	}
}

// Chat appends to the room transcript and fans the message out to every
// occupant, the sender included (shared-transcript semantics).
func (r *Relay) Chat(fromConnectionID, senderLabel string, payload json.RawMessage) {
	r.countEvent(EventChatMessage)

	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.registry.RoomOf(fromConnectionID)
	if !ok {
		return
	}

	r.registry.AppendChat(code, domain.ChatMessage{
		ConnectionID: fromConnectionID,
		Sender:       senderLabel,
		Payload:      payload,
		SentAt:       time.Now().UTC(),
	})

	data := ChatMessagePayload{
		Payload:      payload,
		Sender:       senderLabel,
		ConnectionID: fromConnectionID,
	}
	for _, peer := range r.registry.Occupants(code) {
		r.emitter.Emit(peer, EventChatMessage, data)
	}
}

// Leave is the explicit, user-initiated exit. It always wins over a stale
// disconnect race, so any pending grace entry is cancelled first. The leaver
// gets an ack once server-side state is consistent, so it can safely tear
// down its transport link.
func (r *Relay) Leave(connectionID, meetingCode string) {
	r.countEvent(EventLeaveCall)

	r.mu.Lock()

	r.grace.Cancel(connectionID)

	remaining, _, ok := r.registry.Leave(meetingCode, connectionID)
	delete(r.states, connectionID)

	if ok && len(remaining) > 0 {
		roster := r.registry.Participants(meetingCode)
		for _, peer := range remaining {
			r.emitter.Emit(peer, EventUserLeft, UserLeftPayload{ConnectionID: connectionID})
			r.emitter.Emit(peer, EventParticipantList, ParticipantListPayload{Participants: roster})
		}
	}

	r.emitter.Emit(connectionID, EventLeaveAck, LeaveAckPayload{MeetingCode: meetingCode})
	r.updateGauges()
	r.mu.Unlock()

	if !ok {
		return
	}

	r.recordLifecycle(domain.NewParticipantLeftLog(meetingCode, connectionID, len(remaining)))
	if len(remaining) == 0 {
		r.recordLifecycle(domain.NewRoomClosedLog(meetingCode, "last_leave"))
	}
}

// Disconnect handles abrupt transport loss. The connection stays counted as
// present for the grace window: peers get a transient connection-lost notice
// and nothing is torn down yet, so a quick reconnect avoids renegotiation.
func (r *Relay) Disconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.states[connectionID] != stateJoined {
		return
	}

	code, ok := r.registry.RoomOf(connectionID)
	if !ok {
		return
	}

	snapshot, ok := r.registry.Participant(code, connectionID)
	if !ok {
		return
	}

	if !r.grace.Begin(connectionID, code, snapshot) {
		return
	}
	r.states[connectionID] = statePendingGrace

	for _, peer := range r.registry.Occupants(code) {
		if peer != connectionID {
			r.emitter.Emit(peer, EventUserConnectionLost, ConnectionLostPayload{
				ConnectionID: connectionID,
				Name:         snapshot.DisplayName,
			})
		}
	}

	r.updateGauges()

	r.logger.Info(logging.Signaling, logging.GracePeriod, "connection lost, grace window started", map[logging.ExtraKey]any{
		logging.MeetingCode:  code,
		logging.ConnectionId: connectionID,
	})
}

// Reconnect resumes a prior participant identity under a new connection id if
// a grace entry is still pending. Otherwise the attempt is treated as a fresh
// join with empty presence (the grace already expired, or never began).
func (r *Relay) Reconnect(ctx context.Context, oldConnectionID, newConnectionID, meetingCode string) {
	r.countEvent(EventReconnectionAttempt)

	r.mu.Lock()

	snapshot, pendingCode, ok := r.grace.Cancel(oldConnectionID)
	if ok && pendingCode != meetingCode {
		// Claimed the wrong room; finalize the old identity and fall through
		// to a fresh join below.
		r.departAndRecord(oldConnectionID, pendingCode)
		ok = false
	}

	if !ok {
		r.mu.Unlock()
		r.Join(ctx, newConnectionID, JoinRequest{MeetingCode: meetingCode})
		return
	}

	_, renamed := r.registry.Rename(meetingCode, oldConnectionID, newConnectionID)
	if !renamed {
		// Pending entry outlived its room state; nothing left to resume.
		delete(r.states, oldConnectionID)
		r.mu.Unlock()
		r.Join(ctx, newConnectionID, JoinRequest{MeetingCode: meetingCode})
		return
	}

	delete(r.states, oldConnectionID)
	r.states[newConnectionID] = stateJoined

	user := UserPayload{Name: snapshot.DisplayName, IsHost: snapshot.IsHost}

	others := make([]string, 0)
	for _, peer := range r.registry.Occupants(meetingCode) {
		if peer != newConnectionID {
			others = append(others, peer)
		}
	}

	r.emitter.Emit(newConnectionID, EventReconnectionSuccessful, ReconnectionSuccessfulPayload{
		NewConnectionID: newConnectionID,
		MeetingCode:     meetingCode,
		OtherUsers:      others,
		User:            user,
	})

	for _, peer := range others {
		r.emitter.Emit(peer, EventUserReconnected, UserReconnectedPayload{
			OldConnectionID: oldConnectionID,
			NewConnectionID: newConnectionID,
			User:            user,
		})
	}

	if r.metrics != nil {
		r.metrics.ReconnectionsTotal.Inc()
	}
	r.updateGauges()
	r.mu.Unlock()

	r.logger.Info(logging.Signaling, logging.GracePeriod, "connection resumed within grace window", map[logging.ExtraKey]any{
		logging.MeetingCode:  meetingCode,
		logging.ConnectionId: newConnectionID,
	})

	r.recordLifecycle(domain.NewParticipantReconnectedLog(meetingCode, oldConnectionID, newConnectionID))
}

// handleGraceExpiry runs on the tracker's timer goroutine once a grace window
// elapses uncancelled. Same departure tail as an explicit leave, minus the
// ack: the connection is already gone.
func (r *Relay) handleGraceExpiry(connectionID, meetingCode string) {
	r.mu.Lock()

	if r.states[connectionID] != statePendingGrace {
		r.mu.Unlock()
		return
	}

	remaining, closed := r.finalizeDeparture(connectionID, meetingCode)

	if r.metrics != nil {
		r.metrics.GraceExpiriesTotal.Inc()
	}
	r.updateGauges()
	r.mu.Unlock()

	r.logger.Info(logging.Signaling, logging.GracePeriod, "grace window expired, connection evicted", map[logging.ExtraKey]any{
		logging.MeetingCode:  meetingCode,
		logging.ConnectionId: connectionID,
	})

	r.recordLifecycle(domain.NewGraceExpiredLog(meetingCode, connectionID))
	r.recordLifecycle(domain.NewParticipantLeftLog(meetingCode, connectionID, remaining))
	if closed {
		r.recordLifecycle(domain.NewRoomClosedLog(meetingCode, "grace_expired"))
	}
}

// finalizeDeparture removes the connection and notifies survivors. Caller
// holds the relay mutex.
func (r *Relay) finalizeDeparture(connectionID, meetingCode string) (remaining int, closed bool) {
	left, _, ok := r.registry.Leave(meetingCode, connectionID)
	delete(r.states, connectionID)
	if !ok {
		return 0, false
	}

	if len(left) > 0 {
		roster := r.registry.Participants(meetingCode)
		for _, peer := range left {
			r.emitter.Emit(peer, EventUserLeft, UserLeftPayload{ConnectionID: connectionID})
			r.emitter.Emit(peer, EventParticipantList, ParticipantListPayload{Participants: roster})
		}
	}

	return len(left), len(left) == 0
}

// departAndRecord is finalizeDeparture plus the lifecycle records an implicit
// departure owes the ops trail. Caller holds the relay mutex.
func (r *Relay) departAndRecord(connectionID, meetingCode string) {
	remaining, closed := r.finalizeDeparture(connectionID, meetingCode)
	if remaining == 0 && !closed {
		return
	}

	r.recordLifecycle(domain.NewParticipantLeftLog(meetingCode, connectionID, remaining))
	if closed {
		r.recordLifecycle(domain.NewRoomClosedLog(meetingCode, "last_leave"))
	}
}

func (r *Relay) countEvent(event string) {
	if r.metrics != nil {
		r.metrics.EventsTotal.WithLabelValues(event).Inc()
	}
}

// updateGauges refreshes presence gauges. Caller holds the relay mutex.
func (r *Relay) updateGauges() {
	if r.metrics == nil {
		return
	}

	rooms, conns := r.registry.Counts()
	r.metrics.ActiveRooms.Set(float64(rooms))
	r.metrics.ActiveConnections.Set(float64(conns))
	r.metrics.PendingGrace.Set(float64(r.grace.Len()))
}

// recordLifecycle hands a lifecycle record to the drain goroutine, off the
// event path. Non-blocking: if the buffer is full the record is dropped with
// a warning, the relay never stalls on its sinks.
func (r *Relay) recordLifecycle(entry *domain.RoomAuditLog) {
	if r.lifecycle == nil {
		return
	}

	select {
	case r.lifecycle <- entry:
	default:
		r.logger.Warn(logging.General, logging.RoomLifecycle, "lifecycle buffer full, record dropped", map[logging.ExtraKey]any{
			logging.MeetingCode: entry.MeetingCode,
		})
	}
}

// drainLifecycle ships queued records to the audit log and the broker one at
// a time, so sinks observe events in the order they were recorded. Failures
// are logged and swallowed.
func (r *Relay) drainLifecycle() {
	for entry := range r.lifecycle {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if r.audit != nil {
			if err := r.audit.Log(ctx, entry); err != nil {
				r.logger.Warn(logging.Mongo, logging.RoomLifecycle, "failed to write audit log", map[logging.ExtraKey]any{
					logging.MeetingCode:  entry.MeetingCode,
					logging.ErrorMessage: err.Error(),
				})
			}
		}

		if r.publisher != nil {
			if err := r.publisher.Publish(ctx, entry); err != nil {
				r.logger.Warn(logging.RabbitMQ, logging.RoomLifecycle, "failed to publish lifecycle event", map[logging.ExtraKey]any{
					logging.MeetingCode:  entry.MeetingCode,
					logging.ErrorMessage: err.Error(),
				})
			}
		}

		cancel()
	}
}
