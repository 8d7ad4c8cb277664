package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yoctoforge/pipbake/pkg/cache"
	"github.com/yoctoforge/pipbake/pkg/config"
	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/pipeline"
)

// newGenerateCmd creates the generate command, the main entry point of
// the tool.
func newGenerateCmd() *cobra.Command {
	var (
		configPath  string
		recipesDir  string
		cacheDir    string
		indexURL    string
		concurrency int
		refresh     bool
	)

	cmd := &cobra.Command{
		Use:   "generate <requirements-file>",
		Short: "Generate BitBake recipes from a pip requirements file",
		Long: `Generate reads pinned requirement lines (name==version) and writes one
python3-<name>_<version>.bb recipe per package. Each package is resolved
against the index, its source distribution downloaded and checksummed,
and its license determined from metadata and the extracted tree.

Failures are isolated: a package that cannot be processed is reported
and skipped while the rest of the run continues. Only run-wide setup
problems (unreadable requirements file, bad config) abort the command.`,
		Example: `  pipbake generate requirements.txt
  pipbake generate -o meta-python/recipes requirements.txt
  pipbake generate --refresh -j 8 requirements.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override config file values.
			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.RecipesDir = recipesDir
			}
			if flags.Changed("cache-dir") {
				cfg.CacheDir = cacheDir
			}
			if flags.Changed("index-url") {
				cfg.IndexURL = indexURL
			}
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}

			return runGenerate(cmd.Context(), cfg, args[0], refresh)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: pipbake.toml if present)")
	cmd.Flags().StringVarP(&recipesDir, "output", "o", "", "directory for generated recipes")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "root directory for artifact and metadata caches")
	cmd.Flags().StringVar(&indexURL, "index-url", "", "package index JSON API base URL")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "max packages processed in parallel")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached index metadata")

	return cmd
}

func runGenerate(ctx context.Context, cfg config.Config, reqFile string, refresh bool) error {
	logger := loggerFromContext(ctx)

	backend, err := metadataBackend(ctx, cfg)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		RecipesDir:    cfg.RecipesDir,
		ArtifactDir:   cfg.ArtifactDir(),
		IndexURL:      cfg.IndexURL,
		Concurrency:   cfg.Concurrency,
		MetadataTTL:   cfg.MetadataTTL.Duration,
		Refresh:       refresh,
		MetadataCache: backend,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer runner.Close()

	results, summary, err := runner.RunFile(ctx, reqFile)
	if err != nil {
		return err
	}

	printNewline()
	for _, res := range results {
		if res.Failed() {
			// A malformed line never got a Request; its error already
			// names the offending specifier and line.
			if res.Request.Name == "" {
				printError("%s", errors.UserMessage(res.Err))
			} else {
				printError("%s: %s", res.Request, errors.UserMessage(res.Err))
			}
			continue
		}
		printSuccess("%s", res.Request)
		printFile(res.RecipePath)
	}

	printNewline()
	printSummary(summary)

	// Per-package failures were reported above; only run-wide setup
	// errors abort the command.
	return nil
}

// metadataBackend selects the metadata cache backend: Redis when an
// address is configured, otherwise a file cache under the cache dir.
func metadataBackend(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.Redis.Addr != "" {
		return cache.NewRedisCache(ctx, cfg.Redis.Addr, "pipbake")
	}
	return cache.NewFileCache(cfg.MetadataDir())
}

// printSummary prints the run totals.
func printSummary(s pipeline.Summary) {
	if s.Failed == 0 {
		printSuccess("Generated %d recipes in %s", s.Succeeded, s.Elapsed.Round(time.Millisecond))
	} else {
		printWarning("%d succeeded, %d failed (%s)", s.Succeeded, s.Failed, s.Elapsed.Round(time.Millisecond))
	}
}
