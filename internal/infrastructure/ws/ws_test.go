package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
	"github.com/pulsemeet/pulsemeet/internal/relay"
)

type nopLogger struct{}

func (nopLogger) Init() {}

func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                                         {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                          {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                          {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                                         {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                                         {}

type call struct {
	op   string
	args []string
}

type fakeDispatcher struct {
	calls []call
}

func (f *fakeDispatcher) Join(_ context.Context, connectionID string, req relay.JoinRequest) {
	f.calls = append(f.calls, call{"join", []string{connectionID, req.MeetingCode, req.Presence.UserID, req.Presence.UserName}})
}

func (f *fakeDispatcher) Signal(from, to string, payload json.RawMessage) {
	f.calls = append(f.calls, call{"signal", []string{from, to, string(payload)}})
}

func (f *fakeDispatcher) MediaStatus(from string, payload json.RawMessage) {
	f.calls = append(f.calls, call{"media", []string{from, string(payload)}})
}

func (f *fakeDispatcher) Chat(from, sender string, payload json.RawMessage) {
	f.calls = append(f.calls, call{"chat", []string{from, sender, string(payload)}})
}

func (f *fakeDispatcher) Leave(connectionID, meetingCode string) {
	f.calls = append(f.calls, call{"leave", []string{connectionID, meetingCode}})
}

func (f *fakeDispatcher) Disconnect(connectionID string) {
	f.calls = append(f.calls, call{"disconnect", []string{connectionID}})
}

func (f *fakeDispatcher) Reconnect(_ context.Context, oldID, newID, meetingCode string) {
	f.calls = append(f.calls, call{"reconnect", []string{oldID, newID, meetingCode}})
}

func newTestClient(dispatcher Dispatcher) *Client {
	return NewClient("c1", nil, NewHub(nopLogger{}), dispatcher, nopLogger{})
}

func envelope(t *testing.T, typ, data string) Envelope {
	t.Helper()

	var env Envelope
	if err := json.Unmarshal([]byte(`{"type":"`+typ+`","data":`+data+`}`), &env); err != nil {
		t.Fatalf("bad test envelope: %v", err)
	}

	return env
}

func TestDispatchJoinCall(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestClient(d)

	c.dispatch(context.Background(), envelope(t, "join-call", `{"meetingCode":"alpha","userId":"u-1","userName":"Alice"}`))

	if len(d.calls) != 1 || d.calls[0].op != "join" {
		t.Fatalf("unexpected calls: %+v", d.calls)
	}
	want := []string{"c1", "alpha", "u-1", "Alice"}
	for i, arg := range want {
		if d.calls[0].args[i] != arg {
			t.Fatalf("join args = %v, want %v", d.calls[0].args, want)
		}
	}
}

func TestDispatchJoinWithoutMeetingCodeDropped(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestClient(d)

	c.dispatch(context.Background(), envelope(t, "join-call", `{"userName":"Alice"}`))

	if len(d.calls) != 0 {
		t.Fatalf("join without meeting code should be dropped, got %+v", d.calls)
	}
}

func TestDispatchSignalKeepsPayloadOpaque(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestClient(d)

	c.dispatch(context.Background(), envelope(t, "signal", `{"to":"c2","payload":{"sdp":"x","nested":[1,2]}}`))

	if len(d.calls) != 1 || d.calls[0].op != "signal" {
		t.Fatalf("unexpected calls: %+v", d.calls)
	}
	if d.calls[0].args[1] != "c2" {
		t.Fatalf("wrong target: %v", d.calls[0].args)
	}
	if d.calls[0].args[2] != `{"sdp":"x","nested":[1,2]}` {
		t.Fatalf("payload not passed through verbatim: %s", d.calls[0].args[2])
	}
}

func TestDispatchReconnectionAttempt(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestClient(d)

	c.dispatch(context.Background(), envelope(t, "reconnection-attempt", `{"oldConnectionId":"c0","meetingCode":"alpha"}`))

	if len(d.calls) != 1 || d.calls[0].op != "reconnect" {
		t.Fatalf("unexpected calls: %+v", d.calls)
	}
	want := []string{"c0", "c1", "alpha"}
	for i, arg := range want {
		if d.calls[0].args[i] != arg {
			t.Fatalf("reconnect args = %v, want %v", d.calls[0].args, want)
		}
	}
}

func TestDispatchUnknownTypeIgnored(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestClient(d)

	c.dispatch(context.Background(), envelope(t, "no-such-event", `{}`))

	if len(d.calls) != 0 {
		t.Fatalf("unknown type should be ignored, got %+v", d.calls)
	}
}

func TestHubEmitToRegisteredClient(t *testing.T) {
	hub := NewHub(nopLogger{})
	c := NewClient("c1", nil, hub, &fakeDispatcher{}, nopLogger{})
	hub.Register(c)

	hub.Emit("c1", "chat-message", map[string]string{"k": "v"})

	select {
	case msg := <-c.send:
		if msg.Type != "chat-message" {
			t.Fatalf("wrong type queued: %s", msg.Type)
		}
	default:
		t.Fatal("nothing queued for registered client")
	}
}

func TestHubEmitToUnknownConnectionIsDropped(t *testing.T) {
	hub := NewHub(nopLogger{})

	// Must not panic or block.
	hub.Emit("ghost", "chat-message", nil)
}

func TestHubUnregisterOnlyRemovesOwnSlot(t *testing.T) {
	hub := NewHub(nopLogger{})
	old := NewClient("c1", nil, hub, &fakeDispatcher{}, nopLogger{})
	hub.Register(old)

	// A replacement with the same id wins the slot; the old client's
	// deferred unregister must not evict it.
	replacement := NewClient("c1", nil, hub, &fakeDispatcher{}, nopLogger{})
	hub.Register(replacement)
	hub.unregister(old)

	if hub.Len() != 1 {
		t.Fatalf("replacement client lost, len=%d", hub.Len())
	}
}

func TestOutboundEnvelopeShape(t *testing.T) {
	raw, err := json.Marshal(&OutboundMessage{
		Type: "user-joined",
		Data: relay.UserJoinedPayload{
			ConnectionID: "c1",
			Occupants:    []string{},
			User:         relay.UserPayload{Name: "Alice"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			ConnectionID string   `json:"connectionId"`
			Occupants    []string `json:"occupants"`
			User         struct {
				Name   string `json:"name"`
				IsHost bool   `json:"isHost"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != "user-joined" || decoded.Data.ConnectionID != "c1" || decoded.Data.User.Name != "Alice" {
		t.Fatalf("unexpected wire shape: %s", raw)
	}
}
