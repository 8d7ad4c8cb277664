// Package observability provides hooks for instrumenting the recipe
// pipeline.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about per-package stage execution;
// the default implementations do nothing.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    // ... run application
//	}
//
// The orchestrator calls the hooks as each package moves through its
// stages:
//
//	observability.Pipeline().OnStageStart(ctx, pkg, stage)
//	// ... run stage ...
//	observability.Pipeline().OnStageComplete(ctx, pkg, stage, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from per-package pipeline execution.
type PipelineHooks interface {
	// OnPackageStart records a package entering its pipeline.
	OnPackageStart(ctx context.Context, pkg string)

	// OnStageStart records a stage beginning for a package.
	OnStageStart(ctx context.Context, pkg, stage string)

	// OnStageComplete records a stage finishing; err is nil on success.
	OnStageComplete(ctx context.Context, pkg, stage string, duration time.Duration, err error)

	// OnPackageComplete records the package's terminal outcome.
	OnPackageComplete(ctx context.Context, pkg string, duration time.Duration, err error)
}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnPackageStart(context.Context, string)                               {}
func (NoopPipelineHooks) OnStageStart(context.Context, string, string)                         {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {
}
func (NoopPipelineHooks) OnPackageComplete(context.Context, string, time.Duration, error) {}

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline
// operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Reset restores the no-op default hooks.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
}
