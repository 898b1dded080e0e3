package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 30s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ServiceFile string // path to the services.yaml definition file

	SleepScanInterval time.Duration // auto-sleep scan interval (default: 30s)
	SleepWorkers      int           // max concurrent sleep operations (default: 4)
	WakeTimeout       time.Duration // how long a caller waits for a wake (default: 5s)
	WakeRetries       int           // wake/start attempts before ERROR (default: 3)
	WakeBackoff       time.Duration // initial retry backoff, doubles per attempt (default: 500ms)
	WakeBackoffCap    time.Duration // retry backoff ceiling (default: 5s)
	RuntimeTimeout    time.Duration // per container runtime call timeout (default: 10s)
	MemoryCeilingMB   int64         // hard admission ceiling in MB (0 = reporting only)

	// Redis snapshot store (optional; empty addr disables persistence)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MCPGW_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MCPGW_SHUTDOWN_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("MCPGW_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MCPGW_PRETTY_LOG", false),

		// Service definitions
		ServiceFile: getenv("MCPGW_SERVICE_FILE", "/etc/mcp-gateway/services.yaml"),

		// Lifecycle tuning
		SleepScanInterval: mustDuration("MCPGW_SLEEP_SCAN_INTERVAL", 30*time.Second),
		SleepWorkers:      getenvInt("MCPGW_SLEEP_WORKERS", 4),
		WakeTimeout:       mustDuration("MCPGW_WAKE_TIMEOUT", 5*time.Second),
		WakeRetries:       getenvInt("MCPGW_WAKE_RETRIES", 3),
		WakeBackoff:       mustDuration("MCPGW_WAKE_BACKOFF", 500*time.Millisecond),
		WakeBackoffCap:    mustDuration("MCPGW_WAKE_BACKOFF_CAP", 5*time.Second),
		RuntimeTimeout:    mustDuration("MCPGW_RUNTIME_TIMEOUT", 10*time.Second),
		MemoryCeilingMB:   int64(getenvInt("MCPGW_MEMORY_CEILING_MB", 0)),

		// Redis settings (optional)
		RedisAddr:           getenv("MCPGW_REDIS_ADDR", ""),
		RedisUser:           getenv("MCPGW_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("MCPGW_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MCPGW_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MCPGW_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("MCPGW_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MCPGW_TRUST_PROXY", false),
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
