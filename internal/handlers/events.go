package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/httpx"
	"github.com/tarikbs/repairdesk/internal/feed"
)

// EventsHandler streams job changes to the browser as server-sent events.
// Each client gets its own feed subscription; a heartbeat keeps proxies
// from closing idle connections.
type EventsHandler struct {
	feed *feed.Feed
}

func NewEventsHandler(f *feed.Feed) *EventsHandler {
	return &EventsHandler{feed: f}
}

const heartbeatInterval = 25 * time.Second

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.JSONError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	ch, cancel := h.feed.Subscribe(userID)
	defer cancel()

	// Long-lived stream: lift the server write deadline for this response.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case change, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(map[string]string{
				"op":     string(change.Op),
				"job_id": change.JobID.String(),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: job\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
