// Package pipeline drives the per-package recipe generation pipeline.
//
// Each requested package moves through a fixed sequence of stages:
//
//	Parsed → Resolving → Fetching → Extracting → LicenseLookup → Emitting → Done
//
// Any stage failure moves the package to Failed; failures are isolated,
// so one broken package never stops the others. Packages are processed
// concurrently by a bounded worker pool.
//
// Create a Runner and execute a run:
//
//	runner, err := pipeline.NewRunner(pipeline.Options{
//	    RecipesDir:  "recipes",
//	    ArtifactDir: filepath.Join(cacheDir, "artifacts"),
//	})
//	results, summary, err := runner.Run(ctx, requests)
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/yoctoforge/pipbake/pkg/cache"
	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/spec"
)

const (
	// DefaultConcurrency is the worker pool size when none is configured.
	// Recipe generation is network-bound, so a small pool keeps PyPI
	// traffic polite without serializing the run.
	DefaultConcurrency = 4

	// DefaultMetadataTTL is how long cached PyPI metadata stays fresh.
	DefaultMetadataTTL = 24 * time.Hour
)

// State names the stage a package is currently in, or ended in.
type State string

const (
	StateParsed        State = "parsed"
	StateResolving     State = "resolving"
	StateFetching      State = "fetching"
	StateExtracting    State = "extracting"
	StateLicenseLookup State = "license"
	StateEmitting      State = "emitting"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Options contains all configuration for a pipeline run.
type Options struct {
	// RecipesDir is where generated .bb files are written.
	RecipesDir string

	// ArtifactDir is the append-only sdist cache directory.
	ArtifactDir string

	// IndexURL overrides the package index endpoint. Empty means PyPI.
	IndexURL string

	// Concurrency bounds the worker pool. Zero means DefaultConcurrency.
	Concurrency int

	// MetadataTTL bounds the freshness of cached index metadata.
	// Zero means DefaultMetadataTTL.
	MetadataTTL time.Duration

	// Refresh bypasses cached index metadata. Cached artifacts are
	// still trusted; sdists are immutable once released.
	Refresh bool

	// MetadataCache backs the index metadata cache. Nil disables
	// metadata caching.
	MetadataCache cache.Cache

	// Logger receives per-stage progress. Nil means log.Default().
	Logger *log.Logger
}

// ValidateAndSetDefaults checks required fields and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.RecipesDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "recipes directory is required")
	}
	if o.ArtifactDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "artifact directory is required")
	}
	if o.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "concurrency must be positive")
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MetadataTTL == 0 {
		o.MetadataTTL = DefaultMetadataTTL
	}
	if o.MetadataCache == nil {
		o.MetadataCache = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}

// Result records the outcome for a single requested package.
type Result struct {
	Request    spec.Request
	State      State
	RecipePath string // set when State is StateDone
	Err        error  // set when State is StateFailed
}

// Failed reports whether the package ended in the Failed state.
func (r Result) Failed() bool { return r.State == StateFailed }

// Summary aggregates the outcome of a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}
