package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yoctoforge/pipbake/pkg/archive"
	"github.com/yoctoforge/pipbake/pkg/checksum"
	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/fetch"
	"github.com/yoctoforge/pipbake/pkg/license"
	"github.com/yoctoforge/pipbake/pkg/observability"
	"github.com/yoctoforge/pipbake/pkg/pypi"
	"github.com/yoctoforge/pipbake/pkg/recipe"
	"github.com/yoctoforge/pipbake/pkg/spec"
)

// Runner executes recipe generation runs. It holds the index client,
// artifact cache, and recipe emitter; per-run state lives on the stack
// of Run, so a single Runner can serve multiple sequential runs.
type Runner struct {
	Client  *pypi.Client
	Fetcher *fetch.Fetcher
	Emitter *recipe.Emitter
	Logger  *log.Logger

	opts Options
}

// NewRunner validates opts and wires up a ready-to-use Runner.
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	client := pypi.NewClient(opts.MetadataCache, opts.MetadataTTL)
	if opts.IndexURL != "" {
		client = client.WithBaseURL(opts.IndexURL)
	}

	fetcher, err := fetch.New(client, opts.ArtifactDir)
	if err != nil {
		return nil, err
	}
	emitter, err := recipe.NewEmitter(opts.RecipesDir)
	if err != nil {
		return nil, err
	}

	return &Runner{
		Client:  client,
		Fetcher: fetcher,
		Emitter: emitter,
		Logger:  opts.Logger,
		opts:    opts,
	}, nil
}

// Run processes all requests through the pipeline and returns one Result
// per request, in request order. The returned error covers run setup
// only; per-package failures land in their Result and never abort the
// run.
func (r *Runner) Run(ctx context.Context, reqs []spec.Request) ([]Result, Summary, error) {
	start := time.Now()

	runID := uuid.NewString()
	scratch := filepath.Join(os.TempDir(), "pipbake-"+runID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, Summary{}, errors.Wrap(errors.ErrCodeWrite, err, "create scratch directory")
	}
	defer os.RemoveAll(scratch)

	r.Logger.Info("starting run",
		"run_id", runID[:8],
		"packages", len(reqs),
		"workers", r.opts.Concurrency)

	results := make([]Result, len(reqs))
	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req spec.Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.process(ctx, req, scratch)
		}(i, req)
	}
	wg.Wait()

	summary := Summary{Total: len(reqs), Elapsed: time.Since(start)}
	for _, res := range results {
		if res.Failed() {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	r.Logger.Info("run complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", summary.Elapsed)

	return results, summary, nil
}

// process moves one package through the full stage sequence. A stage
// failure stops that package immediately; a missing license file is
// advisory and the recipe is still emitted with an UNKNOWN license.
func (r *Runner) process(ctx context.Context, req spec.Request, scratch string) Result {
	pkgStart := time.Now()
	hooks := observability.Pipeline()
	hooks.OnPackageStart(ctx, req.Key())

	res := Result{Request: req, State: StateParsed}
	logger := r.Logger.With("package", req.String())

	fail := func(state State, err error) Result {
		res.State = StateFailed
		res.Err = err
		logger.Error("package failed", "stage", state, "error", errors.UserMessage(err))
		hooks.OnPackageComplete(ctx, req.Key(), time.Since(pkgStart), err)
		return res
	}

	stage := func(state State, fn func() error) error {
		res.State = state
		stageStart := time.Now()
		hooks.OnStageStart(ctx, req.Key(), string(state))
		err := fn()
		hooks.OnStageComplete(ctx, req.Key(), string(state), time.Since(stageStart), err)
		return err
	}

	// Resolving and Fetching. A cached artifact skips both; released
	// sdists are immutable so the cache is never revalidated.
	art := &pypi.Artifact{Name: req.Name, Version: req.Version}
	if path, ok := r.Fetcher.Cached(req.Name, req.Version); ok {
		art.CachePath = path
		logger.Debug("artifact cache hit", "path", path)
	} else {
		err := stage(StateResolving, func() error {
			resolved, err := r.Client.Resolve(ctx, req.Name, req.Version, r.opts.Refresh)
			if err != nil {
				return err
			}
			art = resolved
			return nil
		})
		if err != nil {
			return fail(StateResolving, err)
		}

		err = stage(StateFetching, func() error {
			return r.Fetcher.Download(ctx, art)
		})
		if err != nil {
			return fail(StateFetching, err)
		}
		logger.Debug("downloaded artifact", "url", art.URL)
	}

	var sums checksum.Set
	workDir := filepath.Join(scratch, req.Key())
	err := stage(StateExtracting, func() error {
		var err error
		sums, err = checksum.File(art.CachePath)
		if err != nil {
			return err
		}
		return archive.Extract(art.CachePath, workDir)
	})
	if err != nil {
		return fail(StateExtracting, err)
	}

	var lic license.Info
	err = stage(StateLicenseLookup, func() error {
		label := r.Client.License(ctx, req.Name, r.opts.Refresh)
		info, err := license.Locate(workDir, label)
		if err != nil {
			if errors.GetCode(err) == errors.ErrCodeLicenseNotFound {
				logger.Warn("no license file found", "assumed", info.Type)
				lic = info
				return nil
			}
			return err
		}
		lic = info
		return nil
	})
	if err != nil {
		return fail(StateLicenseLookup, err)
	}

	err = stage(StateEmitting, func() error {
		path, err := r.Emitter.Emit(recipe.Recipe{
			Name:      req.Name,
			Version:   req.Version,
			Checksums: sums,
			License:   lic,
		})
		if err != nil {
			return err
		}
		res.RecipePath = path
		return nil
	})
	if err != nil {
		return fail(StateEmitting, err)
	}

	res.State = StateDone
	logger.Info("recipe written",
		"file", filepath.Base(res.RecipePath),
		"license", lic.Type,
		"duration", time.Since(pkgStart))
	hooks.OnPackageComplete(ctx, req.Key(), time.Since(pkgStart), nil)
	return res
}

// RunFile parses a requirements file and runs the pipeline over it.
// Malformed specifier lines become failed results alongside their
// siblings' outcomes; only an unreadable or empty file is an error.
func (r *Runner) RunFile(ctx context.Context, path string) ([]Result, Summary, error) {
	entries, err := spec.ParseFile(path)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(entries) == 0 {
		return nil, Summary{}, errors.New(errors.ErrCodeInvalidInput, "no requirements found in %s", path)
	}

	results := make([]Result, len(entries))
	var reqs []spec.Request
	var slots []int
	for i, e := range entries {
		if e.Err != nil {
			results[i] = Result{State: StateFailed, Err: e.Err}
			r.Logger.Error("bad specifier", "line", e.Raw, "error", errors.UserMessage(e.Err))
			continue
		}
		reqs = append(reqs, e.Request)
		slots = append(slots, i)
	}

	ran, summary, err := r.Run(ctx, reqs)
	if err != nil {
		return nil, Summary{}, err
	}
	for j, res := range ran {
		results[slots[j]] = res
	}

	summary.Total = len(entries)
	summary.Failed = 0
	for _, res := range results {
		if res.Failed() {
			summary.Failed++
		}
	}
	summary.Succeeded = summary.Total - summary.Failed
	return results, summary, nil
}

// Close releases resources held by the runner (primarily the metadata
// cache backend).
func (r *Runner) Close() error {
	if r.opts.MetadataCache != nil {
		return r.opts.MetadataCache.Close()
	}
	return nil
}
