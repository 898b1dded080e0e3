package handlers

import (
	"net/http"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/metrics"
)

type serviceMetrics struct {
	Name            string  `json:"name"`
	State           string  `json:"state"`
	WakeCount       int64   `json:"wake_count"`
	TotalSleepSec   float64 `json:"total_sleep_seconds"`
	ActiveRequests  int     `json:"active_requests"`
	SecondsSinceUse float64 `json:"seconds_since_last_access"`
}

type metricsResponse struct {
	Aggregate metrics.Snapshot `json:"aggregate"`
	Services  []serviceMetrics `json:"services"`
}

// Metrics exposes the aggregate sleep/wake counters plus per-service
// lifecycle counters as JSON.
func Metrics(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if d.TimeNow != nil {
			now = d.TimeNow()
		}

		statuses := d.StatusStore.List()
		out := make([]serviceMetrics, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, serviceMetrics{
				Name:            st.Name,
				State:           string(st.State),
				WakeCount:       st.WakeCount,
				TotalSleepSec:   st.TotalSleep.Seconds(),
				ActiveRequests:  st.ActiveRequests,
				SecondsSinceUse: now.Sub(st.LastAccessed).Seconds(),
			})
		}

		writeJSON(w, http.StatusOK, metricsResponse{
			Aggregate: d.Metrics.Snapshot(),
			Services:  out,
		})
	}
}
