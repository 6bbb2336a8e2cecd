package rooms

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pulsemeet/pulsemeet/internal/domain"
	"github.com/pulsemeet/pulsemeet/internal/relay"
)

func newTestRouter(registry *relay.Registry) http.Handler {
	h := NewHandler(registry)

	r := chi.NewRouter()
	r.Get("/api/rooms/stats", h.GetStatsHandler)
	r.Get("/api/rooms/{meetingCode}", h.GetRoomHandler)

	return r
}

func TestGetRoomSnapshot(t *testing.T) {
	registry := relay.NewRegistry()
	registry.Join("alpha", "c1", domain.NewParticipant("c1", domain.PresenceInput{UserName: "Alice"}, true))
	registry.Join("alpha", "c2", domain.NewParticipant("c2", domain.PresenceInput{UserName: "Bob"}, false))

	rec := httptest.NewRecorder()
	newTestRouter(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/api/rooms/alpha", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		MeetingCode   string `json:"meetingCode"`
		OccupantCount int    `json:"occupantCount"`
		Participants  []struct {
			ConnectionID string `json:"connectionId"`
			Name         string `json:"name"`
			IsHost       bool   `json:"isHost"`
		} `json:"participants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if resp.MeetingCode != "alpha" || resp.OccupantCount != 2 {
		t.Fatalf("unexpected snapshot: %+v", resp)
	}
	if len(resp.Participants) != 2 || resp.Participants[0].Name != "Alice" || !resp.Participants[0].IsHost {
		t.Fatalf("unexpected roster: %+v", resp.Participants)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(relay.NewRegistry()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/rooms/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	registry := relay.NewRegistry()
	registry.Join("alpha", "c1", domain.NewParticipant("c1", domain.PresenceInput{}, false))
	registry.Join("beta", "c2", domain.NewParticipant("c2", domain.PresenceInput{}, false))
	registry.Join("beta", "c3", domain.NewParticipant("c3", domain.PresenceInput{}, false))

	rec := httptest.NewRecorder()
	newTestRouter(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/api/rooms/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Rooms != 2 || resp.Connections != 3 {
		t.Fatalf("stats = %+v, want 2 rooms / 3 connections", resp)
	}
}
