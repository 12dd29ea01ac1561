package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/skillpath/skillpath/internal/events"
)

// EventHandler streams session-change events over SSE so clients can
// react to sign-ins, sign-outs, and refreshes without polling.
type EventHandler struct {
	bus       *events.Bus
	keepalive time.Duration
}

// NewEventHandler creates a new SSE event handler
func NewEventHandler(bus *events.Bus) *EventHandler {
	return &EventHandler{bus: bus, keepalive: 15 * time.Second}
}

// Stream subscribes the client to session events. Each event becomes a
// named SSE message with a JSON payload.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, stop := h.bus.Subscribe()
	defer stop()

	// Confirm the stream is live before the first event
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			w.Write([]byte("event: " + string(ev.Type) + "\n"))
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()

		case <-keepalive.C:
			w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
