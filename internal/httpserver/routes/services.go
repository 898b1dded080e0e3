package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/handlers"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/mw"
)

func init() { Register(registerServices) }

func registerServices(r chi.Router, d deps.Deps) {
	r.Route("/services", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))

		r.Get("/", handlers.ListServices(d))
		r.Get("/{name}", handlers.GetService(d))

		// Mutating lifecycle endpoints get a modest per-IP rate limit:
		// a misbehaving client hammering wake/sleep must not be able to
		// thrash containers.
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(mw.RateLimitConfig{
				Burst:             10,
				RefillPerIPPerMin: 60,
				MaxEntries:        4096,
				SweepInterval:     time.Minute,
				IdleTTL:           15 * time.Minute,
				TrustProxy:        d.TrustProxy,
			}))

			r.Post("/{name}/sleep", handlers.Sleep(d))
			r.Post("/{name}/wake", handlers.Wake(d))
			r.Post("/{name}/start", handlers.Start(d))
			r.Post("/{name}/stop", handlers.Stop(d))
			r.Post("/{name}/reset", handlers.Reset(d))
		})
	})
}
