/*
Package locate finds the font files of a package below the directory its
sources have been extracted to.

Archives of font vendors nest their files in arbitrary directory structures.
A package description therefore names font files by file name only (or by a
trailing part of their path), and the locator searches for them. Every
filename has to match exactly one file: none or more than one is an error.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package locate

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Locator searches for font files below a root directory.
type Locator struct {
	Root string
}

// New creates a locator for root.
func New(root string) *Locator {
	return &Locator{Root: root}
}

// Find returns the single file below the root whose path ends in filename.
// Errors are FontNotFound for zero matches and FontAmbiguous for more than
// one.
func (l *Locator) Find(filename string) (string, error) {
	suffix := "/" + strings.TrimPrefix(path.Clean(filepath.ToSlash(filename)), "/")
	var matches []string
	err := filepath.WalkDir(l.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix("/"+filepath.ToSlash(p), suffix) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return "", fontpack.WrapError(err, fontpack.EMISSING, "cannot search %s", l.Root)
	}
	switch len(matches) {
	case 0:
		tracer().Errorf("no match for %s below %s", filename, l.Root)
		return "", fontpack.FontNotFound(filename)
	case 1:
		return matches[0], nil
	}
	sort.Strings(matches)
	tracer().Errorf("%d matches for %s: %v", len(matches), filename, matches)
	return "", fontpack.FontAmbiguous(filename)
}

// Fonts maps font filenames of a package description to resolved paths.
type Fonts map[string]string

// Path returns the resolved path of f, or "" if f has not been resolved.
func (fonts Fonts) Path(f *fontpack.Font) string {
	return fonts[f.Filename]
}

// Resolve finds all font files of pkg. It fails on the first filename
// which cannot be resolved unambiguously.
func (l *Locator) Resolve(pkg *fontpack.Package) (Fonts, error) {
	fonts := make(Fonts)
	for _, wf := range pkg.Fonts() {
		if _, done := fonts[wf.Font.Filename]; done {
			continue
		}
		p, err := l.Find(wf.Font.Filename)
		if err != nil {
			return nil, err
		}
		tracer().Debugf("font %s for weight %s is %s", wf.Font.Filename, wf.Weight, p)
		fonts[wf.Font.Filename] = p
	}
	return fonts, nil
}
