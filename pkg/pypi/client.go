// Package pypi queries the PyPI JSON API for package metadata and
// downloads source distributions.
//
// Package names are normalized by the specifier parser before they reach
// this package. Metadata documents are cached through a cache.Cache
// backend under "pypi:"-prefixed keys; artifact downloads are never
// cached here (the fetch package owns the artifact store).
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yoctoforge/pipbake/pkg/cache"
	"github.com/yoctoforge/pipbake/pkg/errors"
)

// DefaultBaseURL is the production PyPI JSON API endpoint.
const DefaultBaseURL = "https://pypi.org/pypi"

const (
	httpTimeout = 30 * time.Second

	// maxLicenseLabel bounds the metadata license field length. Anything
	// longer is assumed to be a full license text rather than a label.
	maxLicenseLabel = 80

	// sdistType is the packagetype of source distributions in release
	// file descriptors.
	sdistType = "sdist"

	cachePrefix = "pypi:"
)

// LicenseUnknown is the label used when no license can be determined.
const LicenseUnknown = "UNKNOWN"

// Artifact describes the source distribution selected for a package
// release. CachePath is filled by the fetcher once the file is on disk.
type Artifact struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	URL       string `json:"url"`
	CachePath string `json:"cache_path,omitempty"`
}

// Client provides access to the PyPI JSON API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	baseURL string
}

// NewClient creates a PyPI client with the given metadata cache backend.
// Use cache.NewNullCache() to disable metadata caching. ttl controls how
// long metadata documents stay fresh (typical: 1-24 hours).
func NewClient(backend cache.Cache, ttl time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		cache:   backend,
		ttl:     ttl,
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL overrides the index endpoint, for alternate index hosts
// and tests. Returns the client for chaining.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// Resolve looks up the source distribution for an exact package version.
//
// Returns:
//   - PACKAGE_NOT_FOUND if the index does not answer with success for name
//   - VERSION_NOT_FOUND if version is not a key in the release map
//   - NO_SOURCE_DISTRIBUTION if the release only has binary files
//
// If refresh is true the metadata cache is bypassed.
func (c *Client) Resolve(ctx context.Context, name, version string, refresh bool) (*Artifact, error) {
	doc, err := c.metadata(ctx, name, refresh)
	if err != nil {
		return nil, err
	}

	files, ok := doc.Releases[version]
	if !ok {
		return nil, errors.New(errors.ErrCodeVersionNotFound, "version %s not found for package %s", version, name)
	}

	for _, f := range files {
		if f.PackageType == sdistType && f.URL != "" {
			return &Artifact{Name: name, Version: version, URL: f.URL}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNoSourceDist, "no source distribution for %s %s", name, version)
}

// License returns a short license label from the index metadata.
//
// The info.license field is used when it looks like a label (non-empty,
// single line, at most 80 characters). Otherwise the classifiers are
// scanned for an OSI-approved entry and its trailing segment is taken.
// Returns LicenseUnknown when neither source yields a label; lookup
// failures also degrade to LicenseUnknown since license metadata is
// advisory.
func (c *Client) License(ctx context.Context, name string, refresh bool) string {
	doc, err := c.metadata(ctx, name, refresh)
	if err != nil {
		return LicenseUnknown
	}
	return extractLicenseLabel(doc.Info.License, doc.Info.Classifiers)
}

// Download streams the artifact at url into w.
// Any non-success transfer status is a DOWNLOAD_ERROR.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDownload, err, "bad download URL %s", url)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDownload, err, "download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeDownload, "download %s: status %d", url, resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrap(errors.ErrCodeDownload, err, "download %s", url)
	}
	return nil
}

// metadata fetches the index JSON document for a package, consulting the
// cache first unless refresh is set.
func (c *Client) metadata(ctx context.Context, name string, refresh bool) (*apiResponse, error) {
	key := cachePrefix + name

	if !refresh {
		if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
			var doc apiResponse
			if err := json.Unmarshal(data, &doc); err == nil {
				return &doc, nil
			}
			// Corrupt entry: fall through to a fresh fetch.
		}
	}

	url := fmt.Sprintf("%s/%s/json", c.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "bad index URL %s", url)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "query index for %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodePackageNotFound, "package %s not found on index (status %d)", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read index response for %s", name)
	}

	var doc apiResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decode index response for %s", name)
	}

	_ = c.cache.Set(ctx, key, data, c.ttl)
	return &doc, nil
}

type apiResponse struct {
	Info     apiInfo              `json:"info"`
	Releases map[string][]apiFile `json:"releases"`
}

type apiInfo struct {
	Name        string   `json:"name"`
	License     string   `json:"license"`
	Classifiers []string `json:"classifiers"`
}

type apiFile struct {
	PackageType string `json:"packagetype"`
	URL         string `json:"url"`
}

const osiPrefix = "License :: OSI Approved ::"

// extractLicenseLabel implements the metadata labeling policy: prefer a
// short info.license label, fall back to the OSI classifier's trailing
// segment, otherwise UNKNOWN.
func extractLicenseLabel(license string, classifiers []string) string {
	license = strings.TrimSpace(license)
	if license != "" && len(license) <= maxLicenseLabel && !strings.Contains(license, "\n") {
		return license
	}

	for _, c := range classifiers {
		if strings.HasPrefix(c, osiPrefix) {
			parts := strings.Split(c, "::")
			label := strings.TrimSpace(parts[len(parts)-1])
			if label != "" {
				return label
			}
		}
	}

	return LicenseUnknown
}
