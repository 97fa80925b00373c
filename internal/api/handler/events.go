package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dicearena/dicearena/internal/api/middleware"
	"github.com/dicearena/dicearena/internal/events"
	"github.com/dicearena/dicearena/internal/model"
)

// keepalivePeriod is how often an SSE comment is sent to hold the
// connection open through proxies
const keepalivePeriod = 15 * time.Second

// EventsHandler streams engine events over SSE
type EventsHandler struct {
	bus *events.Bus
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// wireEvent is the SSE payload shape
type wireEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"room_id,omitempty"`
	MatchID   string    `json:"match_id,omitempty"`
	PlayerID  string    `json:"player_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// Stream handles GET /api/v1/events. Query parameters room_id and
// match_id narrow the stream; without them the subscriber gets events
// addressed to their own player id.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	player := middleware.MustGetPlayer(r.Context())

	var filters []events.Filter
	if roomID := r.URL.Query().Get("room_id"); roomID != "" {
		filters = append(filters, events.ForRoom(model.RoomID(roomID)))
	}
	if matchID := r.URL.Query().Get("match_id"); matchID != "" {
		filters = append(filters, events.ForMatch(model.MatchID(matchID)))
	}
	if len(filters) == 0 {
		filters = append(filters, events.ForPlayer(player.ID))
	}

	sub := h.bus.Subscribe(events.Any(filters...))
	defer h.bus.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event model.Event) error {
	data, err := json.Marshal(wireEvent{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		RoomID:    string(event.RoomID),
		MatchID:   string(event.MatchID),
		PlayerID:  string(event.PlayerID),
		Payload:   event.Payload,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
