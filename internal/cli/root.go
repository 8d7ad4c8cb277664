// Package cli implements the pipbake command-line interface.
//
// The main command is generate, which turns a pip requirements file into
// BitBake recipes. The cache subcommands maintain the local metadata and
// artifact caches.
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context so the pipeline can log structured
// progress.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/yoctoforge/pipbake/pkg/buildinfo"
)

// Execute runs the pipbake CLI and returns an error if any command
// fails. ctx should carry cancellation from signal handling so a Ctrl-C
// stops in-flight downloads.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "pipbake",
		Short:        "pipbake turns pip requirements into BitBake recipes",
		Long:         `pipbake reads pinned pip requirement lines, fetches each package's source distribution from the index, and writes a python3-<name>_<version>.bb recipe with verified checksums and license facts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(ctx)
}
