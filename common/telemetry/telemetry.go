// Package telemetry exposes the process's pprof endpoint when enabled.
// Metrics export is out of scope for this engine (spec.md Non-goals), but
// the ambient observability toggle the rest of the service family carries
// is kept regardless.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/lyzr/flowengine/common/logger"
)

// Telemetry owns the pprof debug listener.
type Telemetry struct {
	log       *logger.Logger
	pprofAddr string
}

// New creates a telemetry component bound to localhost:pprofPort.
func New(pprofPort int, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:       log,
		pprofAddr: fmt.Sprintf("localhost:%d", pprofPort),
	}
}

// Start launches the pprof server in the background. A failure here never
// aborts startup; it's a debug aid, not a load-bearing dependency.
func (t *Telemetry) Start(ctx context.Context) error {
	go func() {
		t.log.Info("pprof server starting", "addr", t.pprofAddr)
		if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
			t.log.Error("pprof server error", "error", err)
		}
	}()
	return nil
}
