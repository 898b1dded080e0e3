package handlers

import (
	"net/http"
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
)

type healthResponse struct {
	Status                string `json:"status"` // "healthy" | "degraded"
	Uptime                string `json:"uptime"`
	Version               string `json:"version"`
	DockerConnection      bool   `json:"docker_connection"`
	ServicesRunning       int    `json:"services_running"`
	ServicesSleeping      int    `json:"services_sleeping"`
	ServicesTotal         int    `json:"services_total"`
	TotalMemoryReservedMB int64  `json:"total_memory_reserved_mb"`
}

// Health reports fleet-level health: daemon reachability, aggregate
// resource reservations and a coarse status. The gateway stays
// "healthy" with individual services in ERROR; it is "degraded" when
// the daemon is unreachable or a majority of services are in ERROR.
func Health(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		if d.TimeNow != nil {
			now = d.TimeNow()
		}

		dockerOK := d.Runtime != nil && d.Runtime.Ping(r.Context()) == nil
		sum := d.Accountant.Summary()

		errored := 0
		statuses := d.StatusStore.List()
		for _, st := range statuses {
			if st.State == domain.StateError {
				errored++
			}
		}

		status := "healthy"
		if !dockerOK || (len(statuses) > 0 && errored > len(statuses)/2) {
			status = "degraded"
		}

		code := http.StatusOK
		if status != "healthy" {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, healthResponse{
			Status:                status,
			Uptime:                now.Sub(d.StartTime).Round(time.Second).String(),
			Version:               d.Version,
			DockerConnection:      dockerOK,
			ServicesRunning:       sum.ServicesRunning,
			ServicesSleeping:      sum.ServicesSleeping,
			ServicesTotal:         sum.ServicesTotal,
			TotalMemoryReservedMB: sum.TotalMemoryReservedMB,
		})
	}
}
