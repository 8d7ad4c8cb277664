// Package checksum computes artifact integrity digests.
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/yoctoforge/pipbake/pkg/errors"
)

// bufSize is the streaming chunk size. 8 KiB keeps memory flat while
// staying large enough that hashing is not syscall-bound.
const bufSize = 8 * 1024

// Set holds the digests recorded in a recipe. Both are lowercase hex.
// BitBake's SRC_URI checksum fields require both algorithms, which is the
// only reason md5 is still here.
type Set struct {
	MD5    string `json:"md5"`
	SHA256 string `json:"sha256"`
}

// File computes both digests over the file in a single streamed pass.
// Deterministic, pure function of the file bytes.
func File(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, errors.Wrap(errors.ErrCodeInternal, err, "open %s for checksum", path)
	}
	defer f.Close()

	md5h := md5.New()
	sha256h := sha256.New()

	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(io.MultiWriter(md5h, sha256h), f, buf); err != nil {
		return Set{}, errors.Wrap(errors.ErrCodeInternal, err, "checksum %s", path)
	}

	return Set{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
	}, nil
}

// MD5File computes only the md5 digest of a file. Used for the
// LIC_FILES_CHKSUM recipe field.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "open %s for checksum", path)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, bufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "checksum %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
