package main

import (
	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/logger"
	"github.com/lyzr/flowengine/common/ratelimit"
	"github.com/lyzr/flowengine/internal/executor"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/persistence"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/usage"
)

// Engine bundles the components the HTTP handlers need to validate,
// schedule, and execute workflows.
type Engine struct {
	Persistence persistence.Adapter
	Objects     objectstore.Store
	Accounter   usage.Accounter
	Registry    *registry.Registry
	Executor    *executor.Executor
	RateLimiter *ratelimit.Limiter
	Config      *config.Config
	Log         *logger.Logger
}
