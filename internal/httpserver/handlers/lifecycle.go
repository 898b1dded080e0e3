package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
)

type lifecycleResponse struct {
	Service string               `json:"service"`
	Status  domain.ServiceStatus `json:"status"`
}

// Sleep pauses a running service's container.
func Sleep(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		st, err := d.Controller.Sleep(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lifecycleResponse{Service: name, Status: st})
	}
}

// Wake brings a service back to RUNNING. Concurrent wakes for the same
// service coalesce through the coordinator, and callers give up after
// the wake timeout while the container start continues in background.
func Wake(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		st, err := d.Coordinator.Wake(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lifecycleResponse{Service: name, Status: st})
	}
}

// Start is the administrative path from STOPPED or ERROR to RUNNING.
func Start(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		st, err := d.Controller.Start(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lifecycleResponse{Service: name, Status: st})
	}
}

// Stop takes a service to STOPPED, resuming it first if it sleeps.
func Stop(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		st, err := d.Controller.Stop(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lifecycleResponse{Service: name, Status: st})
	}
}

// Reset clears a service's bookkeeping back to STOPPED without touching
// the container runtime. Operator escape hatch for a wedged entry.
func Reset(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		st, err := d.Controller.Reset(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lifecycleResponse{Service: name, Status: st})
	}
}
