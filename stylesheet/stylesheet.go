/*
Package stylesheet generates the CSS of a font package.

Three stylesheets are written to the package's webfonts directory:

▪︎ style.min.css declares one `@font-face` per weight and partition,
referencing the webfonts by URL only.

▪︎ local-first.min.css declares the same faces, but lets browsers use an
installed copy of the original font first. The `local()` names are probed
from the font's name table.

▪︎ fallback.min.css, written only for packages naming a fallback font,
declares one `@font-face` per weight referencing the fallback font by
`local()` only.

The first two carry the license header of the package's license. Faces are
ordered by ascending font weight, then by partition in catalog order.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package stylesheet

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/emirpasic/gods/sets/treeset"
	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	xsfnt "golang.org/x/image/font/sfnt"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Names of the generated stylesheets.
const (
	DefaultSheet  = "style.min.css"
	LocalSheet    = "local-first.min.css"
	FallbackSheet = "fallback.min.css"
)

// LocalNameIDs are the name ids probed for `local()` font names.
var LocalNameIDs = []sfnt.NameID{
	xsfnt.NameIDFamily,
	xsfnt.NameIDPostScript,
	xsfnt.NameIDTypographicFamily,
}

// Generator generates the stylesheets of a package.
type Generator struct {
	Templates *templates.Set     // defaults to templates.Default()
	Catalog   *partition.Catalog // defaults to partition.Default()
	Fonts     locate.Fonts       // resolved font files
	Output    string             // webfonts directory of the package
}

// bodies accumulates the unminified stylesheets.
type bodies struct {
	dflt, local, fallback bytes.Buffer
}

// Generate writes the stylesheets of pkg. It fails before reading any font
// if the license of pkg has no templates.
func (g *Generator) Generate(ctx context.Context, pkg *fontpack.Package) error {
	set := g.Templates
	if set == nil {
		set = templates.Default()
	}
	if err := set.CheckLicense(pkg.License); err != nil {
		return err
	}
	catalog := g.Catalog
	if catalog == nil {
		catalog = partition.Default()
	}
	partitions, err := catalog.Partitions()
	if err != nil {
		return fontpack.WrapError(err, fontpack.EINVALID, "cannot load partition catalog")
	}
	var b bodies
	for _, wf := range pkg.FontsByWeight() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := g.Fonts.Path(wf.Font)
		if p == "" {
			return fontpack.FontNotFound(wf.Font.Filename)
		}
		names, err := LocalNames(p, wf.Font.Number)
		if err != nil {
			return fontpack.WrapError(err, fontpack.EINVALID, "cannot read names of %s", wf.Font.Filename)
		}
		if err := b.weight(set, pkg, wf.Weight, names, partitions); err != nil {
			return err
		}
	}
	return g.write(set, pkg, &b)
}

// weight appends the fragments of one weight to the bodies.
func (b *bodies) weight(set *templates.Set, pkg *fontpack.Package, w fontpack.Weight,
	names []string, partitions []partition.Partition) error {
	if pkg.Fallback != "" {
		frag, err := set.Fragment(templates.FallbackFragment, templates.FontFace{
			Family:     pkg.Name,
			Weight:     w.CSSWeight(),
			LocalNames: []string{pkg.Fallback},
		})
		if err != nil {
			return err
		}
		b.fallback.Write(frag)
	}
	for _, p := range partitions {
		face := templates.FontFace{
			Family:       pkg.Name,
			Weight:       w.CSSWeight(),
			Path:         "./" + path.Join(pkg.Version, w.String(), p.Index),
			UnicodeRange: p.UnicodeRange(),
		}
		frag, err := set.Fragment(templates.BaseFragment, face)
		if err != nil {
			return err
		}
		b.dflt.Write(frag)
		face.LocalNames = names
		if frag, err = set.Fragment(templates.BaseFragment, face); err != nil {
			return err
		}
		b.local.Write(frag)
	}
	tracer().Debugf("stylesheet fragments for weight %s, local names %v", w, names)
	return nil
}

func (g *Generator) write(set *templates.Set, pkg *fontpack.Package, b *bodies) error {
	type sheet struct {
		name    string
		body    *bytes.Buffer
		license bool
	}
	sheets := []sheet{{DefaultSheet, &b.dflt, true}, {LocalSheet, &b.local, true}}
	if pkg.Fallback != "" {
		sheets = append(sheets, sheet{FallbackSheet, &b.fallback, false})
	}
	if err := os.MkdirAll(g.Output, 0o755); err != nil {
		return fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", g.Output)
	}
	for _, s := range sheets {
		out, err := Minify(s.body.Bytes())
		if err != nil {
			return fontpack.WrapError(err, fontpack.EINTERNAL, "cannot minify %s", s.name)
		}
		if s.license {
			if out, err = set.WrapStylesheet(pkg, out); err != nil {
				return err
			}
		}
		if err := os.WriteFile(filepath.Join(g.Output, s.name), out, 0o644); err != nil {
			return err
		}
		tracer().Infof("wrote %s (%d bytes)", s.name, len(out))
	}
	return nil
}

// verbatimDecl matches the descriptors Minify keeps as they are. The
// minifier lowercases and unquotes family names and rewrites unicode ranges.
var verbatimDecl = regexp.MustCompile(`(?i)(font-family|unicode-range)(\s*:\s*)([^;}]+)`)

var placeholder = regexp.MustCompile(`fontpack-verbatim-([0-9]+)`)

// Minify minifies a stylesheet. Values of `font-family` and `unicode-range`
// are copied unchanged, apart from surrounding white space.
func Minify(src []byte) ([]byte, error) {
	var kept [][]byte
	src = verbatimDecl.ReplaceAllFunc(src, func(decl []byte) []byte {
		m := verbatimDecl.FindSubmatch(decl)
		kept = append(kept, bytes.TrimSpace(m[3]))
		return fmt.Appendf(nil, "%s%sfontpack-verbatim-%d", m[1], m[2], len(kept)-1)
	})
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	out, err := m.Bytes("text/css", src)
	if err != nil {
		return nil, err
	}
	return placeholder.ReplaceAllFunc(out, func(ph []byte) []byte {
		n, err := strconv.Atoi(string(placeholder.FindSubmatch(ph)[1]))
		if err != nil || n >= len(kept) {
			return ph
		}
		return kept[n]
	}), nil
}

// LocalNames returns the sorted, distinct Windows English names of face
// `face` of a font file for the name ids of LocalNameIDs.
func LocalNames(p string, face int) ([]string, error) {
	f, err := sfnt.Load(p, face)
	if err != nil {
		return nil, err
	}
	nt, err := f.Names()
	if err != nil {
		return nil, err
	}
	set := treeset.NewWithStringComparator()
	for _, id := range LocalNameIDs {
		rec, ok := nt.Lookup(sfnt.NameKey{
			Platform: sfnt.PlatformIDWindows,
			Encoding: sfnt.EncodingIDWindowsBMP,
			Language: sfnt.LanguageIDWindowsEnglish,
			Name:     id,
		})
		if !ok {
			continue
		}
		s, err := rec.String()
		if err != nil {
			return nil, err
		}
		if s != "" {
			set.Add(s)
		}
	}
	names := make([]string, 0, set.Size())
	for _, v := range set.Values() {
		names = append(names, v.(string))
	}
	return names, nil
}
