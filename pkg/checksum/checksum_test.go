package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.sdist")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFile(t *testing.T) {
	// Known digests for "hello world\n".
	path := writeFile(t, []byte("hello world\n"))

	set, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	if set.MD5 != "6f5902ac237024bdd0c176cb93063dc4" {
		t.Errorf("unexpected md5: %s", set.MD5)
	}
	if set.SHA256 != "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447" {
		t.Errorf("unexpected sha256: %s", set.SHA256)
	}
}

func TestFile_Deterministic(t *testing.T) {
	path := writeFile(t, []byte("some artifact content"))

	first, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("digests differ between passes: %+v vs %+v", first, second)
	}
}

func TestFile_LargerThanBuffer(t *testing.T) {
	// Content spanning multiple read chunks exercises the rolling update.
	content := make([]byte, 3*bufSize+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeFile(t, content)

	set, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(set.MD5) != 32 || len(set.SHA256) != 64 {
		t.Errorf("unexpected digest lengths: md5=%d sha256=%d", len(set.MD5), len(set.SHA256))
	}
}

func TestMD5File(t *testing.T) {
	path := writeFile(t, []byte("hello world\n"))

	sum, err := MD5File(path)
	if err != nil {
		t.Fatalf("MD5File: %v", err)
	}
	if sum != "6f5902ac237024bdd0c176cb93063dc4" {
		t.Errorf("unexpected md5: %s", sum)
	}
}

func TestFile_Missing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
