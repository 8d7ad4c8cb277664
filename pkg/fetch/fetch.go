// Package fetch maintains the on-disk source distribution cache and
// downloads artifacts into it.
//
// The cache is append-only and keyed by package name and version: one
// file per `<name>-<version>` key with a fixed extension, trusted as-is
// once present. There is no staleness check; released sdists never
// change. Re-running the tool is the retry mechanism, and the cache
// keeps repeat runs from re-downloading anything.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/pypi"
)

// Ext is the fixed extension for cached artifact files. Container format
// is detected from content on extraction, so the extension stays honest
// for both tarballs and zips.
const Ext = ".sdist"

// Resolver is the index-facing surface the fetcher needs. *pypi.Client
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, name, version string, refresh bool) (*pypi.Artifact, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

// Fetcher downloads source distributions into the artifact cache
// directory. Safe for concurrent use: duplicate requests for the same
// key each write to a unique temporary file and rename, so the final
// cache file is always complete.
type Fetcher struct {
	resolver Resolver
	dir      string
}

// New creates a Fetcher caching into dir, creating it if needed.
func New(resolver Resolver, dir string) (*Fetcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWrite, err, "create cache directory %s", dir)
	}
	return &Fetcher{resolver: resolver, dir: dir}, nil
}

// Dir returns the artifact cache directory.
func (f *Fetcher) Dir() string { return f.dir }

// Path returns the cache file path for a name-version key.
func (f *Fetcher) Path(name, version string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s-%s%s", name, version, Ext))
}

// Cached reports whether the artifact for a name-version key is already
// in the cache, returning its path on a hit. The cache is trusted as-is;
// released sdists are immutable.
func (f *Fetcher) Cached(name, version string) (string, bool) {
	path := f.Path(name, version)
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	return "", false
}

// Download streams the resolved artifact into the cache and fills its
// CachePath.
func (f *Fetcher) Download(ctx context.Context, art *pypi.Artifact) error {
	path := f.Path(art.Name, art.Version)
	if err := f.download(ctx, art.URL, path); err != nil {
		return err
	}
	art.CachePath = path
	return nil
}

// Fetch returns the cached artifact for the package, resolving and
// downloading it first if absent. On a cache hit no network access
// happens at all. The returned artifact always has CachePath set.
func (f *Fetcher) Fetch(ctx context.Context, name, version string, refresh bool) (*pypi.Artifact, error) {
	if path, ok := f.Cached(name, version); ok {
		return &pypi.Artifact{Name: name, Version: version, CachePath: path}, nil
	}

	art, err := f.resolver.Resolve(ctx, name, version, refresh)
	if err != nil {
		return nil, err
	}
	if err := f.Download(ctx, art); err != nil {
		return nil, err
	}
	return art, nil
}

// download streams the artifact into a uniquely named partial file and
// renames it into place on success, so a crashed or concurrent download
// can never be mistaken for a complete cache entry.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	tmp, err := os.CreateTemp(f.dir, filepath.Base(dest)+".partial-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "create partial file in %s", f.dir)
	}
	tmpName := tmp.Name()

	if err := f.resolver.Download(ctx, url, tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeWrite, err, "flush partial file %s", tmpName)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeWrite, err, "finalize cache file %s", dest)
	}
	return nil
}
