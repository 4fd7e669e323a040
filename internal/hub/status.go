package hub

import (
	"encoding/json"
	"net/http"
	"time"
)

// SessionStatus describes one connected monitor for the status endpoint.
type SessionStatus struct {
	ID          string    `json:"id"`
	Addr        string    `json:"addr"`
	Source      string    `json:"source,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Status is the hub's observable state.
type Status struct {
	StartedAt    time.Time       `json:"started_at"`
	Sessions     []SessionStatus `json:"sessions"`
	LatestSource string          `json:"latest_source,omitempty"`
	LatestID     string          `json:"latest_id,omitempty"`
	LatestMIMEs  []string        `json:"latest_mimes,omitempty"`
}

// Status returns a snapshot of the hub's sessions and latest bundle metadata.
// Bundle contents are deliberately absent; this is for operators, not paste.
func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Status{
		StartedAt:    h.started,
		Sessions:     make([]SessionStatus, 0, len(h.sessions)),
		LatestSource: h.latestSource,
		LatestID:     h.latestID,
	}
	if len(h.latest) > 0 {
		st.LatestMIMEs = h.latest.MIMEs()
	}
	for _, s := range h.sessions {
		st.Sessions = append(st.Sessions, SessionStatus{
			ID:          s.id,
			Addr:        s.addr,
			Source:      s.getSource(),
			ConnectedAt: s.connectedAt,
			LastSeen:    time.Unix(0, s.lastSeen.Load()),
		})
	}
	return st
}

// HTTPHandler serves the status endpoint, multiplexed onto the hub's TCP
// listener by the serve command.
func (h *Hub) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(h.Status())
	})
	return mux
}
