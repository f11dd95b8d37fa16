package handlers

import (
	"net/http"
	"sync/atomic"
)

// generateCounters tallies /api/generate results since start.
type generateCounters struct {
	success atomic.Int64
	noImage atomic.Int64
	fail    atomic.Int64
}

// Stats is GET /v1/stats.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"generate_success":  a.counters.success.Load(),
		"generate_no_image": a.counters.noImage.Load(),
		"generate_fail":     a.counters.fail.Load(),
	}
	if a.Sessions != nil {
		st := a.Sessions.Stats()
		body["sessions"] = st.Sessions
		body["styles_pending"] = st.Pending
		body["styles_done"] = st.Done
		body["styles_failed"] = st.Failed
	}
	a.json(w, http.StatusOK, body)
}
