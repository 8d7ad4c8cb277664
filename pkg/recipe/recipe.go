// Package recipe renders BitBake recipe files from collected package
// facts.
package recipe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/yoctoforge/pipbake/pkg/checksum"
	"github.com/yoctoforge/pipbake/pkg/errors"
	"github.com/yoctoforge/pipbake/pkg/license"
)

// Recipe holds everything a rendered .bb file needs. Write-once: build
// it fully, then emit it.
type Recipe struct {
	Name      string       `json:"name"`
	Version   string       `json:"version"`
	Checksums checksum.Set `json:"checksums"`
	License   license.Info `json:"license"`
}

// FileName returns the deterministic output name for this recipe.
func (r Recipe) FileName() string {
	return fmt.Sprintf("python3-%s_%s.bb", r.Name, r.Version)
}

// tmpl is the fixed recipe body. The SRC_URI follows the pythonhosted
// source layout; the pypi bbclass re-derives the real URL at build time,
// so the line mostly documents provenance.
var tmpl = template.Must(template.New("recipe").
	Funcs(template.FuncMap{
		"firstLetter": func(s string) string {
			if s == "" {
				return ""
			}
			return s[:1]
		},
	}).
	Parse(`SUMMARY = "Python package {{.Name}}"
HOMEPAGE = "https://pypi.org/project/{{.Name}}/"
LICENSE = "{{.License.Type}}"
LIC_FILES_CHKSUM = "file://{{.License.FileName}};md5={{.License.FileMD5}}"

SRC_URI = "https://files.pythonhosted.org/packages/source/{{firstLetter .Name}}/{{.Name}}/{{.Name}}-{{.Version}}.tar.gz"

inherit pypi setuptools3

SRC_URI[md5sum] = "{{.Checksums.MD5}}"
SRC_URI[sha256sum] = "{{.Checksums.SHA256}}"
`))

// Render returns the recipe text.
func Render(r Recipe) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Emitter writes rendered recipes into an output directory.
type Emitter struct {
	dir string
}

// NewEmitter creates an Emitter targeting dir, creating it if absent.
func NewEmitter(dir string) (*Emitter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWrite, err, "create recipes directory %s", dir)
	}
	return &Emitter{dir: dir}, nil
}

// Dir returns the recipes output directory.
func (e *Emitter) Dir() string { return e.dir }

// Emit renders r and writes it to its deterministic file name,
// overwriting any previous version. Returns the written path.
func (e *Emitter) Emit(r Recipe) (string, error) {
	text, err := Render(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, r.FileName())
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", errors.Wrap(errors.ErrCodeWrite, err, "write recipe %s", path)
	}
	return path, nil
}
