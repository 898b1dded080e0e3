package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/accountant"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/config"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/controller"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/httpserver/deps"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/logger"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/metrics"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/redis"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/registry"
	dockerruntime "github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/runtime/docker"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/scheduler"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/sources/servicefile"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/statestore"
	redisstore "github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/store/redis"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/version"
	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/wake"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sleeper     *scheduler.AutoSleepScheduler
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it the gateway simply loses status
	// persistence across restarts.
	var redisClient *goredis.Client
	var snapshots *redisstore.Store
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		snapshots = redisstore.NewStore(client)
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("Redis not configured, status snapshots disabled")
	}

	// Load service definitions. A bad entry is skipped, not fatal: one
	// typo in services.yaml must not take down the whole fleet.
	reg := registry.New(loggerClient)
	statuses := statestore.New()

	file, err := servicefile.NewLoader(cfg.ServiceFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load service file %s: %v", cfg.ServiceFile, err)
		os.Exit(1)
	}
	mapper := servicefile.NewMapper()
	for _, entry := range file.Services {
		def, err := mapper.Map(entry)
		if err != nil {
			loggerClient.Warn("skipping invalid service entry",
				logger.String("service", entry.Name),
				logger.Error(err))
			continue
		}
		if err := reg.Register(def); err != nil {
			loggerClient.Warn("skipping invalid service entry",
				logger.String("service", def.Name),
				logger.Error(err))
			continue
		}
		statuses.Register(def.Name)
	}
	loggerClient.Info("service registry loaded",
		logger.Int("services", reg.Count()),
		logger.String("file", cfg.ServiceFile))

	// Container runtime - fail fast if the daemon is unreachable.
	rt, err := dockerruntime.New(loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to container runtime: %v", err)
		os.Exit(1)
	}
	if err := rt.Ping(context.Background()); err != nil {
		loggerClient.Errorf("Container runtime not responding: %v", err)
		os.Exit(1)
	}

	recorder := metrics.New()
	ctrl := controller.New(reg, statuses, rt, snapshots, recorder, loggerClient, controller.Options{
		WakeRetries:    cfg.WakeRetries,
		WakeBackoff:    cfg.WakeBackoff,
		WakeBackoffCap: cfg.WakeBackoffCap,
		CallTimeout:    cfg.RuntimeTimeout,
	})

	acct := accountant.New(reg, statuses, cfg.MemoryCeilingMB)
	if cfg.MemoryCeilingMB > 0 {
		ctrl.SetAdmission(acct)
		loggerClient.Info("memory admission control enabled",
			logger.Int64("ceiling_mb", cfg.MemoryCeilingMB))
	}

	// Re-adopt containers from a previous gateway run.
	if snapshots != nil {
		syncer := scheduler.NewStateSyncer(snapshots, statuses, reg, rt, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to restore status snapshots, all services start stopped",
				logger.Error(err))
		}
	}

	coord := wake.New(ctrl, statuses, loggerClient, cfg.WakeTimeout)
	sleeper := scheduler.NewAutoSleepScheduler(reg, statuses, ctrl, loggerClient, cfg.SleepScanInterval, cfg.SleepWorkers)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Registry:     reg,
		StatusStore:  statuses,
		Controller:   ctrl,
		Coordinator:  coord,
		Accountant:   acct,
		Metrics:      recorder,
		Runtime:      rt,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		sleeper:     sleeper,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting MCP gateway v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("mcp-gateway %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.sleeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start auto-sleep scheduler: %w", err)
	}
	a.logger.Info("auto-sleep scheduler started",
		logger.Duration("interval", a.cfg.SleepScanInterval),
		logger.Int("workers", a.cfg.SleepWorkers))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Scheduler first: it drains in-flight sleeps and wakes every
	// sleeping service, so no paused container outlives the gateway.
	a.sleeper.Shutdown(shutdownCtx)

	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ MCP gateway stopped cleanly")
	return nil
}
