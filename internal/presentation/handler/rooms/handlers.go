package rooms

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulsemeet/pulsemeet/internal/infrastructure/json"
	"github.com/pulsemeet/pulsemeet/internal/relay"
)

// Handler serves the read-only room inspection API. It never mutates relay
// state; everything it returns is a snapshot.
type Handler struct {
	registry *relay.Registry
}

func NewHandler(registry *relay.Registry) *Handler {
	return &Handler{
		registry: registry,
	}
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	meetingCode := chi.URLParam(r, "meetingCode")
	if meetingCode == "" {
		json.WriteBadRequestError(w, "meeting code is required")
		return
	}

	info, ok := h.registry.Info(meetingCode)
	if !ok {
		json.WriteNotFoundError(w, "no active room for this meeting code")
		return
	}

	resp := roomResponse{
		MeetingCode:   info.MeetingCode,
		OccupantCount: info.OccupantCount,
		Participants:  make([]participantResponse, 0, len(info.Participants)),
	}
	for _, p := range info.Participants {
		resp.Participants = append(resp.Participants, participantResponse{
			ConnectionID: p.ConnectionID,
			Name:         p.DisplayName,
			IsHost:       p.IsHost,
			JoinedAt:     p.JoinedAt,
		})
	}

	json.Write(w, http.StatusOK, resp)
}

func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	roomCount, connectionCount := h.registry.Counts()

	json.Write(w, http.StatusOK, statsResponse{
		Rooms:       roomCount,
		Connections: connectionCount,
	})
}
