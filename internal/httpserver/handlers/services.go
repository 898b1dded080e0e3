package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/domain"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
)

// serviceView joins a service's static definition with its live status.
type serviceView struct {
	Name        string               `json:"name"`
	Image       string               `json:"image"`
	Port        int                  `json:"port"`
	SleepPolicy domain.SleepPolicy   `json:"sleep_policy"`
	Status      domain.ServiceStatus `json:"status"`
}

type listServicesResponse struct {
	Services []serviceView `json:"services"`
	Count    int           `json:"count"`
}

func view(def *domain.ServiceDefinition, st domain.ServiceStatus) serviceView {
	return serviceView{
		Name:        def.Name,
		Image:       def.Image,
		Port:        def.Port,
		SleepPolicy: def.SleepPolicy,
		Status:      st,
	}
}

// ListServices returns every registered service in registration order.
func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs := d.Registry.List()
		out := make([]serviceView, 0, len(defs))
		for _, def := range defs {
			st, _ := d.StatusStore.Snapshot(def.Name)
			out = append(out, view(def, st))
		}
		writeJSON(w, http.StatusOK, listServicesResponse{Services: out, Count: len(out)})
	}
}

// GetService returns one service by name.
func GetService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		def, err := d.Registry.Get(name)
		if err != nil {
			writeError(w, err)
			return
		}
		st, _ := d.StatusStore.Snapshot(name)
		writeJSON(w, http.StatusOK, view(def, st))
	}
}
