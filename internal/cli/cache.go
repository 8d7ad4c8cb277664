package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yoctoforge/pipbake/pkg/config"
)

// newCacheCmd creates the cache maintenance command.
func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local metadata and artifact caches",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: pipbake.toml if present)")

	cmd.AddCommand(newCacheClearCmd(&configPath))
	cmd.AddCommand(newCachePathCmd(&configPath))

	return cmd
}

// newCacheClearCmd creates the "cache clear" subcommand. It removes
// cached index metadata but keeps downloaded sdists; artifacts are
// immutable and expensive to refetch, use --all to drop them too.
func newCacheClearCmd(configPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached index metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			count, err := clearDir(cfg.MetadataDir())
			if err != nil {
				return fmt.Errorf("clear metadata cache: %w", err)
			}
			printSuccess("Cleared %d metadata entries", count)

			if all {
				n, err := clearDir(cfg.ArtifactDir())
				if err != nil {
					return fmt.Errorf("clear artifact cache: %w", err)
				}
				printSuccess("Cleared %d cached artifacts", n)
			}

			printDetail("Directory: %s", cfg.CacheDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also remove downloaded source distributions")
	return cmd
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Println(cfg.CacheDir)
			return nil
		},
	}
}

// clearDir removes every regular file under dir and prunes the emptied
// subdirectories, returning the number of files removed. A missing dir
// counts as empty.
func clearDir(dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if !info.IsDir() {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if info.IsDir() {
			os.Remove(path)
		}
		return nil
	})

	return count, nil
}
