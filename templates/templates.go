/*
Package templates holds the license-dependent text templates of the build:
license texts, WOFF metadata and stylesheet headers, plus the `@font-face`
fragments shared by all licenses.

The default set is embedded into the binary. A custom directory with the same
layout may be used instead:

	licenses/{license}.txt      LICENSE file of the archive
	metadata/{license}.yml      WOFF extended metadata, as YAML
	stylesheets/{license}.css   header wrapped around minified stylesheets
	stylesheets/base.css        @font-face fragment for webfonts
	stylesheets/fallback.css    @font-face fragment for local fallbacks

Templates use `text/template` syntax. Beside the standard functions, `yaml`
quotes a string as a YAML scalar and `css` escapes a string for use within a
single-quoted CSS string.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"text/template"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

//go:embed files
var embedded embed.FS

// Set is a set of templates read from a file system. Parsed templates are
// cached; a Set is safe for concurrent use.
type Set struct {
	fsys  fs.FS
	mu    sync.Mutex
	cache map[string]*template.Template
}

// New creates a template set for fsys.
func New(fsys fs.FS) *Set {
	return &Set{fsys: fsys, cache: make(map[string]*template.Template)}
}

var defaultSet = sync.OnceValue(func() *Set {
	sub, err := fs.Sub(embedded, "files")
	if err != nil {
		panic(err)
	}
	return New(sub)
})

// Default returns the template set built into the binary.
func Default() *Set {
	return defaultSet()
}

var funcs = template.FuncMap{
	"yaml": yamlQuote,
	"css":  cssEscape,
}

// yamlQuote renders s as a double-quoted YAML scalar. JSON strings are valid
// YAML flow scalars.
func yamlQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func cssEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\a `)
	return r.Replace(s)
}

// lookup parses and caches the template at path. A missing file is reported
// as fs.ErrNotExist.
func (s *Set) lookup(path string) (*template.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.cache[path]; ok {
		return t, nil
	}
	src, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return nil, err
	}
	t, err := template.New(path).Funcs(funcs).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	s.cache[path] = t
	return t, nil
}

func (s *Set) licensed(dir string, l fontpack.License, ext string) (*template.Template, error) {
	if !l.IsValid() {
		return nil, fontpack.InvalidLicense(l)
	}
	t, err := s.lookup(dir + "/" + string(l) + ext)
	if errors.Is(err, fs.ErrNotExist) {
		tracer().Errorf("no %s template for license %s", dir, l)
		return nil, fontpack.InvalidLicense(l)
	}
	return t, err
}

func execute(t *template.Template, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckLicense verifies that all templates for l are present. Generators call
// it before touching any font, so an unsupported license fails early.
func (s *Set) CheckLicense(l fontpack.License) error {
	for _, p := range [...][2]string{{"licenses", ".txt"}, {"metadata", ".yml"}, {"stylesheets", ".css"}} {
		if _, err := s.licensed(p[0], l, p[1]); err != nil {
			return err
		}
	}
	return nil
}

// License renders the license text for pkg.
func (s *Set) License(pkg *fontpack.Package) ([]byte, error) {
	t, err := s.licensed("licenses", pkg.License, ".txt")
	if err != nil {
		return nil, err
	}
	return execute(t, pkg)
}

// Metadata renders the YAML source of the WOFF metadata for pkg.
func (s *Set) Metadata(pkg *fontpack.Package) ([]byte, error) {
	t, err := s.licensed("metadata", pkg.License, ".yml")
	if err != nil {
		return nil, err
	}
	return execute(t, pkg)
}

// WrapStylesheet puts the license header of pkg around a minified
// stylesheet.
func (s *Set) WrapStylesheet(pkg *fontpack.Package, css []byte) ([]byte, error) {
	t, err := s.licensed("stylesheets", pkg.License, ".css")
	if err != nil {
		return nil, err
	}
	return execute(t, struct {
		Package *fontpack.Package
		CSS     string
	}{pkg, string(css)})
}

// FontFace is the data of one `@font-face` fragment.
type FontFace struct {
	Family       string
	Weight       int      // CSS font-weight
	LocalNames   []string // local() sources, in order
	Path         string   // webfont URL without extension
	UnicodeRange string
}

// Fragment kinds.
const (
	BaseFragment     = "base"
	FallbackFragment = "fallback"
)

// Fragment renders the `@font-face` fragment of the given kind.
func (s *Set) Fragment(kind string, face FontFace) ([]byte, error) {
	t, err := s.lookup("stylesheets/" + kind + ".css")
	if err != nil {
		return nil, err
	}
	return execute(t, face)
}
