package handlers

import (
	"drift-spot-service/internal/adapters/events"
	"fmt"
	"log"
	"net/http"
	"time"
)

const keepAliveInterval = 25 * time.Second

// EventsHandler streams spot_created notifications as server-sent events.
type EventsHandler struct {
	Hub *events.Hub
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("events: clear write deadline: %v", err)
	}

	// Subscribe before the headers go out so a client that has seen the
	// response cannot miss an event.
	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Printf("events: streaming unsupported: %v", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, ok := <-sub.Events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: spot_created\ndata: %s\n\n", payload); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
