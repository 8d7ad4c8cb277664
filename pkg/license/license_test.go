package license

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yoctoforge/pipbake/pkg/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestLocate_WellKnownName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg-1.0/LICENSE":  "MIT License\n\nPermission is hereby granted...",
		"pkg-1.0/setup.py": "setup()",
	})

	info, err := Locate(root, "UNKNOWN")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if info.FileName != "LICENSE" {
		t.Errorf("expected LICENSE, got %s", info.FileName)
	}
	if info.FileMD5 == "" {
		t.Error("expected md5 of license file")
	}
	if info.Type != "MIT" {
		t.Errorf("expected content classification MIT, got %s", info.Type)
	}
}

func TestLocate_WellKnownBeatsLoosePattern(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg-1.0/COPYING":     "GNU GPL v3",
		"pkg-1.0/licence.rst": "something else",
	})

	info, err := Locate(root, "UNKNOWN")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if info.FileName != "COPYING" {
		t.Errorf("expected COPYING to win, got %s", info.FileName)
	}
}

func TestLocate_LoosePatternFallback(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg-1.0/Licence.md": "Apache License, Version 2.0",
	})

	info, err := Locate(root, "UNKNOWN")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if info.FileName != "Licence.md" {
		t.Errorf("expected Licence.md, got %s", info.FileName)
	}
	if info.Type != "Apache-2.0" {
		t.Errorf("expected Apache-2.0, got %s", info.Type)
	}
}

func TestLocate_MetadataLabelWins(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg-1.0/LICENSE": "Apache License, Version 2.0",
	})

	// A label from index metadata is not overridden by content guessing.
	info, err := Locate(root, "BSD-3-Clause")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if info.Type != "BSD-3-Clause" {
		t.Errorf("expected metadata label to win, got %s", info.Type)
	}
	if info.FileMD5 == "" {
		t.Error("file digest should be computed regardless of label source")
	}
}

func TestLocate_NoFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pkg-1.0/setup.py": "setup()",
	})

	info, err := Locate(root, "UNKNOWN")
	if !errors.Is(err, errors.ErrCodeLicenseNotFound) {
		t.Fatalf("expected LICENSE_NOT_FOUND, got %v", err)
	}
	if info.FileName != "" || info.FileMD5 != "" {
		t.Errorf("expected empty file fields, got %+v", info)
	}
	if info.Type != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %s", info.Type)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		expected string
	}{
		{"mit", "The MIT License", "MIT"},
		{"mit lowercase", "permission granted under the mit terms", "MIT"},
		{"gpl", "GNU GENERAL PUBLIC LICENSE", "GPL"},
		{"apache", "Apache License Version 2.0", "Apache-2.0"},
		{"bsd", "BSD 3-Clause License", "BSD"},
		{"precedence mit over gpl", "MIT license, compatible with GPL", "MIT"},
		{"unknown", "all rights reserved", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.contents); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
