package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/handlers"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/mw"
)

func init() { Register(registerMetrics) }

func registerMetrics(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)).Get("/metrics", handlers.Metrics(d))
}
