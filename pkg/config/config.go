// Package config loads pipbake settings from an optional TOML file.
//
// Settings resolve in three layers: built-in defaults, the config file,
// then command-line flags (applied by the CLI). A missing config file is
// not an error; the defaults are enough for normal use.
//
// Example pipbake.toml:
//
//	recipes_dir = "recipes"
//	cache_dir = "/var/cache/pipbake"
//	concurrency = 8
//	metadata_ttl = "24h"
//
//	[redis]
//	addr = "localhost:6379"
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/pypi"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "pipbake.toml"

// Duration wraps time.Duration so TOML files can use "24h" notation.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Redis holds the optional Redis metadata-cache backend settings.
// An empty Addr selects the file backend.
type Redis struct {
	Addr string `toml:"addr"`
}

// Config is the resolved pipbake configuration.
type Config struct {
	RecipesDir  string   `toml:"recipes_dir"`  // recipe output directory
	CacheDir    string   `toml:"cache_dir"`    // root for artifact + metadata caches
	IndexURL    string   `toml:"index_url"`    // package index JSON API base
	Concurrency int      `toml:"concurrency"`  // max simultaneous package pipelines
	MetadataTTL Duration `toml:"metadata_ttl"` // metadata cache freshness window
	Redis       Redis    `toml:"redis"`
}

// ArtifactDir returns the source distribution cache directory.
func (c Config) ArtifactDir() string {
	return filepath.Join(c.CacheDir, "sdists")
}

// MetadataDir returns the metadata cache directory (file backend only).
func (c Config) MetadataDir() string {
	return filepath.Join(c.CacheDir, "metadata")
}

// Default returns the built-in configuration.
func Default() Config {
	cacheDir := ".pipbake-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".cache", "pipbake")
	}
	return Config{
		RecipesDir:  "recipes",
		CacheDir:    cacheDir,
		IndexURL:    pypi.DefaultBaseURL,
		Concurrency: 4,
		MetadataTTL: Duration{24 * time.Hour},
	}
}

// Load reads configuration from path, layered over the defaults.
//
// With an empty path, DefaultFileName is tried in the working directory
// and silently skipped when absent. An explicit path that does not exist
// is an error; pointing at a config on purpose should not quietly fall
// back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "load config %s", path)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s has unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.validate(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate(path string) error {
	if c.Concurrency < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: concurrency must be at least 1", path)
	}
	if c.RecipesDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: recipes_dir cannot be empty", path)
	}
	if c.CacheDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: cache_dir cannot be empty", path)
	}
	if c.IndexURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "config %s: index_url cannot be empty", path)
	}
	return nil
}
