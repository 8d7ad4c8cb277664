// Package archive extracts source distribution containers.
//
// Format is detected from file content, never from the extension: a
// cached artifact keeps a neutral name regardless of whether the index
// served a tarball or a zip. Gzip-compressed tar, plain tar and zip are
// supported; anything else is UNSUPPORTED_ARCHIVE_FORMAT.
//
// Entry paths are confined to the destination directory. An entry that
// would escape it causes the whole archive to be refused.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/yoctoforge/pipbake/pkg/errors"
)

type format int

const (
	formatUnknown format = iota
	formatGzip
	formatTar
	formatZip
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	tarMagic  = []byte("ustar") // at offset 257 of the first header block
)

// Extract unpacks the archive at src into dest, creating dest if needed.
func Extract(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "open archive %s", src)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(errors.ErrCodeInternal, err, "read archive header %s", src)
	}
	head = head[:n]

	if err := os.MkdirAll(dest, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "create extraction directory %s", dest)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "rewind archive %s", src)
	}

	switch sniff(head) {
	case formatGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(errors.ErrCodeUnsupportedArchive, err, "decompress %s", src)
		}
		defer gz.Close()
		return extractTar(gz, dest)
	case formatTar:
		return extractTar(f, dest)
	case formatZip:
		return extractZip(src, dest)
	default:
		return errors.New(errors.ErrCodeUnsupportedArchive, "%s is neither a tar nor a zip archive", src)
	}
}

// sniff identifies the container format from the first header block.
func sniff(head []byte) format {
	if len(head) >= len(gzipMagic) && bytes.Equal(head[:len(gzipMagic)], gzipMagic) {
		return formatGzip
	}
	if len(head) >= len(zipMagic) && bytes.Equal(head[:len(zipMagic)], zipMagic) {
		return formatZip
	}
	if len(head) >= 262 && bytes.Equal(head[257:262], tarMagic) {
		return formatTar
	}
	return formatUnknown
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeUnsupportedArchive, err, "read tar entry")
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrap(errors.ErrCodeWrite, err, "create directory %s", target)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		default:
			// Symlinks and special files are skipped; sdists don't need
			// them and link targets can't be confined safely.
		}
	}
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnsupportedArchive, err, "open zip %s", src)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := entryPath(dest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrap(errors.ErrCodeWrite, err, "create directory %s", target)
			}
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return errors.Wrap(errors.ErrCodeUnsupportedArchive, err, "read zip entry %s", entry.Name)
		}
		err = writeEntry(target, rc, entry.FileInfo().Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// entryPath joins an archive entry name onto dest, refusing entries that
// would land outside it.
func entryPath(dest, name string) (string, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return "", errors.New(errors.ErrCodeInvalidPath, "archive entry %q escapes extraction directory", name)
	}
	return filepath.Join(dest, name), nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "create directory for %s", target)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errors.Wrap(errors.ErrCodeWrite, err, "create file %s", target)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.Wrap(errors.ErrCodeWrite, err, "write file %s", target)
	}
	return out.Close()
}
