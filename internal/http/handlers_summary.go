package http

import (
	"net/http"
	"strings"
	"time"
)

// handleSummary serves the dashboard figures. An optional month=YYYY-MM
// query selects another reference month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ref := s.dashboard.Now()
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		t, err := time.Parse("2006-01", v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid month: expected YYYY-MM")
			return
		}
		ref = t
	}

	sum := s.dashboard.SummaryAt(r.Context(), ref)
	writeJSON(w, r, http.StatusOK, s.summaryView(sum))
}
