// Package spec parses pip requirement specifiers into package requests.
//
// A specifier line has the form
//
//	name[extras]<op>version
//
// where extras are ignored and <op> is one of ==, ~=, >= or <=. The
// operator is stripped; the pipeline resolves the bare version against
// the index. Names are normalized following PEP 503 (lowercase,
// underscores and dots become hyphens).
package spec

import (
	"bufio"
	"os"
	"strings"

	"github.com/yoctoforge/pipbake/pkg/errors"
)

// Request identifies one package to process. Immutable once parsed.
type Request struct {
	Name    string // normalized package name
	Version string // exact version, comparison operator already stripped
}

// Key returns the name-version cache key for this request.
func (r Request) Key() string {
	return r.Name + "-" + r.Version
}

// String returns the canonical name==version form.
func (r Request) String() string {
	return r.Name + "==" + r.Version
}

// operators are the accepted version comparison prefixes.
var operators = []string{"==", "~=", ">=", "<="}

// Normalize converts a package name to its canonical form following
// PEP 503: lowercase, with runs of `-`, `_` and `.` treated as `-`.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			if !prevSep {
				b.WriteByte('-')
			}
			prevSep = true
			continue
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// ParseLine parses a single specifier into a Request.
//
// The line must name an exact version; a bare name or an operator other
// than the four accepted ones is rejected with an INVALID_INPUT error.
// Bracketed extras are accepted and discarded, since they do not change
// which source distribution is fetched.
func ParseLine(line string) (Request, error) {
	// Inline comments end the specifier.
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	s := strings.TrimSpace(line)
	if s == "" {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "empty specifier")
	}

	name, rest := scanName(s)
	if name == "" {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "specifier %q has no package name", s)
	}

	rest, err := skipExtras(s, rest)
	if err != nil {
		return Request{}, err
	}

	version, err := scanVersion(s, rest)
	if err != nil {
		return Request{}, err
	}

	// Validate the raw name: normalization collapses separator runs, so
	// a traversal sequence like ".." must be caught before it is folded
	// into a harmless-looking hyphen.
	if err := errors.ValidatePackageName(name); err != nil {
		return Request{}, err
	}
	req := Request{Name: Normalize(name), Version: version}
	if strings.Trim(req.Name, "-") == "" {
		return Request{}, errors.New(errors.ErrCodeInvalidInput, "specifier %q has no package name", s)
	}
	if err := errors.ValidateVersion(req.Version); err != nil {
		return Request{}, err
	}
	return req, nil
}

// scanName consumes the leading package name and returns it with the
// unconsumed remainder.
func scanName(s string) (string, string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '[' || c == '=' || c == '<' || c == '>' || c == '~' || c == '!' || c == ' ' || c == '\t' {
			break
		}
		i++
	}
	return s[:i], s[i:]
}

// skipExtras consumes a bracketed extras group if present.
func skipExtras(full, rest string) (string, error) {
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, "[") {
		return rest, nil
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", errors.New(errors.ErrCodeInvalidInput, "specifier %q has unterminated extras", full)
	}
	return rest[end+1:], nil
}

// scanVersion consumes the comparison operator and returns the bare
// version string.
func scanVersion(full, rest string) (string, error) {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "specifier %q has no version (exact version required)", full)
	}
	for _, op := range operators {
		if v, ok := strings.CutPrefix(rest, op); ok {
			v = strings.TrimSpace(v)
			if v == "" {
				return "", errors.New(errors.ErrCodeInvalidInput, "specifier %q has operator but no version", full)
			}
			return v, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "specifier %q has unsupported version constraint (want ==, ~=, >= or <=)", full)
}

// Entry is one specifier line read from a requirements file. A
// malformed line carries its parse error instead of a Request, so the
// caller can fail that entry without discarding its siblings.
type Entry struct {
	Raw     string  // trimmed specifier text as it appeared in the file
	Request Request // valid only when Err is nil
	Err     error   // INVALID_INPUT for a malformed line
}

// ParseFile reads a requirements-style file and returns one Entry per
// specifier line, in file order. Blank lines, comment lines and pip
// option lines (starting with `-`) are skipped; duplicate valid
// specifiers are dropped. A malformed specifier does not fail the
// parse — it becomes an Entry with Err set. Only an unreadable file is
// an error.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot open input file %s", path)
	}
	defer f.Close()

	var entries []Entry
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '-' {
			continue
		}
		req, err := ParseLine(line)
		if err != nil {
			entries = append(entries, Entry{
				Raw: line,
				Err: errors.Wrap(errors.ErrCodeInvalidInput, err, "%s:%d", path, lineno),
			})
			continue
		}
		if seen[req.Key()] {
			continue
		}
		seen[req.Key()] = true
		entries = append(entries, Entry{Raw: line, Request: req})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", path)
	}
	return entries, nil
}
