package deps

import (
	"time"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/accountant"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/controller"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/metrics"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/wake"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access health endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy

	Registry    *registry.ServiceRegistry      // service definitions
	StatusStore *statestore.StatusStore        // live fleet status
	Controller  *controller.ContainerController // lifecycle state machine
	Coordinator *wake.Coordinator              // coalesced wake entry point
	Accountant  *accountant.Accountant         // memory reservation totals
	Metrics     *metrics.Recorder              // sleep/wake counters
	Runtime     runtime.ContainerRuntime       // used by /health to ping the daemon
}
