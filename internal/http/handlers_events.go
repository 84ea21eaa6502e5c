package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"budget/internal/log"
	"budget/internal/services"
)

const keepAliveInterval = 25 * time.Second

type snapshotEvent struct {
	Version uint64 `json:"version"`
	Count   int    `json:"count"`
}

// handleEvents streams one server-sent event per store snapshot. Slow
// clients skip intermediate versions and always receive the newest.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := s.store.Subscribe()
	defer cancel()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	logger := log.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshotEvent(w, snap); err != nil {
				logger.DebugContext(ctx, "Event stream closed", log.FieldError, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap services.Snapshot) error {
	data, err := json.Marshal(snapshotEvent{Version: snap.Version, Count: len(snap.Transactions)})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", snap.Version, data)
	return err
}
