package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/db"
	"github.com/lyzr/flowengine/common/logger"
	"github.com/lyzr/flowengine/common/middleware"
	"github.com/lyzr/flowengine/common/ratelimit"
	redisclient "github.com/lyzr/flowengine/common/redis"
	"github.com/lyzr/flowengine/common/server"
	"github.com/lyzr/flowengine/common/telemetry"
	"github.com/lyzr/flowengine/internal/builtinnodes"
	"github.com/lyzr/flowengine/internal/executor"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/persistence"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/usage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("flowengine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	log.Info("starting flowengine", "environment", cfg.Service.Environment)

	database, err := db.New(ctx, cfg, log)
	if err != nil {
		log.Warn("database unreachable, falling back to in-memory persistence", "error", err)
	} else {
		defer database.Close()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	redisWrapper := redisclient.NewClient(rdb, redisLoggerAdapter{log})

	signKey := make([]byte, 32)
	if _, err := rand.Read(signKey); err != nil {
		log.Error("failed to generate object store sign key", "error", err)
		os.Exit(1)
	}

	eng := &Engine{
		Persistence: choosePersistence(ctx, cfg, database, log),
		Objects:     objectstore.NewRedisStore(redisWrapper, signKey),
		Accounter:   usage.NewRedisAccounter(redisWrapper, cfg.Runtime.MonthlyOrgBudgetDefault),
		Registry:    registry.New(),
		RateLimiter: ratelimit.New(rdb, redisLoggerAdapter{log}),
		Config:      cfg,
		Log:         log,
	}
	builtinnodes.Register(eng.Registry)
	eng.Executor = &executor.Executor{
		Registry:     eng.Registry,
		Store:        eng.Objects,
		Accounter:    eng.Accounter,
		NodeDeadline: cfg.Runtime.NodeDeadline,
	}

	if cfg.Telemetry.EnablePprof {
		t := telemetry.New(cfg.Telemetry.PprofPort, log)
		if err := t.Start(ctx); err != nil {
			log.Warn("telemetry failed to start", "error", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/health", echo.WrapHandler(server.HealthHandler()))
	registerRoutes(e, eng)

	srv := server.New("flowengine", cfg.Service.Port, e, log)
	if err := srv.Start(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// choosePersistence prefers Postgres but degrades to an in-memory adapter
// when no pool is available or its schema can't be applied, so local/dev
// runs without Postgres configured can still boot. database is nil when
// db.New itself failed to connect.
func choosePersistence(ctx context.Context, cfg *config.Config, database *db.DB, log *logger.Logger) persistence.Adapter {
	if database == nil {
		return persistence.NewMemoryAdapter(nil)
	}
	if _, err := database.Exec(ctx, persistence.Schema); err != nil {
		log.Warn("failed to apply schema, falling back to in-memory persistence", "error", err)
		return persistence.NewMemoryAdapter(nil)
	}
	return persistence.NewPostgresAdapter(database)
}

// redisLoggerAdapter bridges common/logger.Logger to the common/redis
// Logger interface.
type redisLoggerAdapter struct {
	log *logger.Logger
}

func (a redisLoggerAdapter) Info(msg string, kv ...interface{})  { a.log.Info(msg, kv...) }
func (a redisLoggerAdapter) Error(msg string, kv ...interface{}) { a.log.Error(msg, kv...) }
func (a redisLoggerAdapter) Warn(msg string, kv ...interface{})  { a.log.Warn(msg, kv...) }
func (a redisLoggerAdapter) Debug(msg string, kv ...interface{}) { a.log.Debug(msg, kv...) }
