// Package license locates and classifies license files in extracted
// source trees.
package license

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yoctoforge/pipbake/pkg/checksum"
	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/pypi"
)

// Info describes the license facts recorded in a recipe. A zero FileName
// means no license file was found anywhere in the tree; Type still
// carries a metadata-derived label when one exists.
type Info struct {
	Type     string `json:"type"`      // SPDX-like label or "UNKNOWN"
	FileName string `json:"file_name"` // base name of the found file, "" if none
	FileMD5  string `json:"file_md5"`  // md5 of the found file, "" if none
}

// wellKnownNames are checked case-sensitively before the loose pattern,
// in this order.
var wellKnownNames = []string{"LICENSE", "LICENSE.txt", "LICENSE.md", "COPYING", "COPYRIGHT"}

var looseNameRE = regexp.MustCompile(`(?i)licen[cs]e`)

// classifications maps content keywords to license family labels,
// checked in precedence order.
var classifications = []struct {
	keyword string
	label   string
}{
	{"mit", "MIT"},
	{"gpl", "GPL"},
	{"apache", "Apache-2.0"},
	{"bsd", "BSD"},
}

// Locate walks root for a license file and returns its Info. The first
// directory containing a match wins; within a directory the well-known
// names take precedence over the loose pattern.
//
// When a file is found its md5 digest is recorded and, if metadataLabel
// is UNKNOWN, the file contents are classified. A missing file is not an
// error: the returned Info degrades to empty fields and the metadata
// label (or UNKNOWN).
func Locate(root, metadataLabel string) (Info, error) {
	info := Info{Type: metadataLabel}
	if info.Type == "" {
		info.Type = pypi.LicenseUnknown
	}

	path := findFile(root)
	if path == "" {
		return info, errors.New(errors.ErrCodeLicenseNotFound, "no license file under %s", root)
	}

	info.FileName = filepath.Base(path)

	sum, err := checksum.MD5File(path)
	if err != nil {
		return info, err
	}
	info.FileMD5 = sum

	if info.Type == pypi.LicenseUnknown {
		if data, err := os.ReadFile(path); err == nil {
			info.Type = Classify(string(data))
		}
	}

	return info, nil
}

// findFile returns the path of the first license file in a lexical
// top-down walk of root, or "" when none exists.
func findFile(root string) string {
	var found string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil
		}
		names := make(map[string]bool, len(entries))
		var files []string
		for _, e := range entries {
			if !e.IsDir() {
				names[e.Name()] = true
				files = append(files, e.Name())
			}
		}

		for _, want := range wellKnownNames {
			if names[want] {
				found = filepath.Join(path, want)
				return filepath.SkipAll
			}
		}

		sort.Strings(files)
		for _, name := range files {
			if looseNameRE.MatchString(name) {
				found = filepath.Join(path, name)
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}

// Classify guesses the license family from file contents. Keywords are
// matched case-insensitively in precedence order: mit, gpl, apache, bsd.
func Classify(contents string) string {
	lower := strings.ToLower(contents)
	for _, c := range classifications {
		if strings.Contains(lower, c.keyword) {
			return c.label
		}
	}
	return pypi.LicenseUnknown
}
