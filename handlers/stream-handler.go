package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"taskboard/sync-service/logging"
	"taskboard/sync-service/realtime"
)

type StreamHandler struct{}

// Stream pushes every snapshot delivery to the client as a server-sent event,
// starting with the current materialized lists so a reconnecting view does
// not wait for the next store change.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	cs := SessionFromRequest(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Buffered so a slow client drops intermediate snapshots instead of
	// blocking the subscription manager's delivery path. The next snapshot is
	// always a full replacement, so dropping one loses nothing final.
	events := make(chan realtime.Event, 8)
	remove := cs.Manager.OnSnapshot(func(e realtime.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer remove()

	send := func(e realtime.Event) bool {
		payload, err := json.Marshal(e)
		if err != nil {
			logging.Logger.Warnf("Event ID: STREAM_ENCODE_FAILED, Description: Dropping snapshot event: %v", err)
			return true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(realtime.Event{Scope: "membership", Projects: cs.Manager.Projects()}) {
		return
	}
	if cs.Manager.ProjectID() != "" {
		if !send(realtime.Event{Scope: "tasks", Tasks: cs.Manager.Tasks()}) {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if !send(e) {
				return
			}
		}
	}
}
