package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/pypi"
)

// fakeResolver serves a fixed payload and counts calls.
type fakeResolver struct {
	mu        sync.Mutex
	resolves  int
	downloads int
	payload   string
	fail      error
}

func (r *fakeResolver) Resolve(ctx context.Context, name, version string, refresh bool) (*pypi.Artifact, error) {
	r.mu.Lock()
	r.resolves++
	r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	return &pypi.Artifact{Name: name, Version: version, URL: "https://files.example/" + name + ".tar.gz"}, nil
}

func (r *fakeResolver) Download(ctx context.Context, url string, w io.Writer) error {
	r.mu.Lock()
	r.downloads++
	r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	_, err := io.Copy(w, strings.NewReader(r.payload))
	return err
}

func TestFetcher_Fetch(t *testing.T) {
	resolver := &fakeResolver{payload: "sdist bytes"}
	f, err := New(resolver, filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	art, err := f.Fetch(context.Background(), "requests", "2.31.0", false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if art.CachePath != f.Path("requests", "2.31.0") {
		t.Errorf("unexpected cache path: %s", art.CachePath)
	}
	data, err := os.ReadFile(art.CachePath)
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != "sdist bytes" {
		t.Errorf("unexpected cached content: %s", data)
	}
}

func TestFetcher_Cached(t *testing.T) {
	resolver := &fakeResolver{payload: "sdist bytes"}
	f, _ := New(resolver, t.TempDir())

	if _, ok := f.Cached("requests", "2.31.0"); ok {
		t.Fatal("empty cache reported a hit")
	}
	if _, err := f.Fetch(context.Background(), "requests", "2.31.0", false); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	path, ok := f.Cached("requests", "2.31.0")
	if !ok {
		t.Fatal("fetched artifact not reported as cached")
	}
	if path != f.Path("requests", "2.31.0") {
		t.Errorf("Cached path = %s", path)
	}
}

func TestFetcher_CacheHitSkipsNetwork(t *testing.T) {
	resolver := &fakeResolver{payload: "sdist bytes"}
	f, _ := New(resolver, t.TempDir())

	ctx := context.Background()
	if _, err := f.Fetch(ctx, "requests", "2.31.0", false); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := f.Fetch(ctx, "requests", "2.31.0", false); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}

	if resolver.resolves != 1 || resolver.downloads != 1 {
		t.Errorf("expected exactly one resolve/download, got %d/%d", resolver.resolves, resolver.downloads)
	}
}

func TestFetcher_FailedDownloadLeavesNoCacheEntry(t *testing.T) {
	resolver := &fakeResolver{fail: errors.New(errors.ErrCodeDownload, "status 502")}
	f, _ := New(resolver, t.TempDir())

	_, err := f.Fetch(context.Background(), "requests", "2.31.0", false)
	if !errors.Is(err, errors.ErrCodeDownload) {
		t.Fatalf("expected DOWNLOAD_ERROR, got %v", err)
	}

	if _, statErr := os.Stat(f.Path("requests", "2.31.0")); !os.IsNotExist(statErr) {
		t.Error("failed download must not leave a cache file")
	}

	// No stray partial files either.
	entries, _ := os.ReadDir(f.Dir())
	if len(entries) != 0 {
		t.Errorf("expected empty cache dir, found %d entries", len(entries))
	}
}

func TestFetcher_ConcurrentSameKey(t *testing.T) {
	resolver := &fakeResolver{payload: "sdist bytes"}
	f, _ := New(resolver, t.TempDir())

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.Fetch(context.Background(), "requests", "2.31.0", false)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("fetch %d: %v", i, err)
		}
	}
	data, err := os.ReadFile(f.Path("requests", "2.31.0"))
	if err != nil {
		t.Fatalf("reading cached file: %v", err)
	}
	if string(data) != "sdist bytes" {
		t.Error("concurrent fetches corrupted the cache file")
	}
}
