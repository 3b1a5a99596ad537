/*
Package fontpack turns a declarative font-package description into a set of
distributable web assets.

A package description names a license, one or more source archives and, for
each of nine CSS font weights, the font file to use. From this, fontpack
produces

▪︎ a licensed archive of the original font files,

▪︎ subsetted WOFF/WOFF2 webfonts, split into Unicode-range partitions,

▪︎ CSS stylesheets referencing these webfonts.

This package holds the data model shared by all generators: Package, Source,
FontWeights and Font, together with the closed enumerations for licenses,
weights, categories and characters. Sub-packages implement the individual
generators (`webfont`, `stylesheet`, `archive`) and their collaborators.
Package `pipeline` wires everything together.

All outputs are deterministic: running the pipeline twice on identical input
yields byte-identical artifacts.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package fontpack

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Package is the validated, immutable root entity of a font package
// description.
type Package struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description,omitempty"`
	Homepage    string      `json:"homepage"`
	License     License     `json:"license"`
	Authors     []string    `json:"authors"`
	Copyrights  []string    `json:"copyrights"`
	Category    Category    `json:"category"`
	Characters  []Character `json:"characters"`
	Features    Features    `json:"features"`
	Sources     []Source    `json:"sources"`
	Fallback    string      `json:"fallback,omitempty"` // local font used by fallback.min.css
}

// Features lists optional OpenType features a package declares.
type Features struct {
	Vert bool `json:"vert"`
}

// Source is one downloadable archive (or bare font file) and the fonts it
// provides, per weight.
type Source struct {
	URL   string      `json:"url"`
	Fonts FontWeights `json:"fonts"`
}

// Font references a font file inside an extracted source.
type Font struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
	Number   int    `json:"number"` // face index within a collection
}

// WeightedFont pairs a weight slot with the font assigned to it.
type WeightedFont struct {
	Weight Weight
	Font   *Font
}

// Fonts returns every (weight, font) pair of all sources with a non-null
// font, in source order and ascending weight within a source.
func (pkg *Package) Fonts() []WeightedFont {
	var fonts []WeightedFont
	for _, src := range pkg.Sources {
		for _, w := range Weights() {
			if f := src.Fonts.Get(w); f != nil {
				fonts = append(fonts, WeightedFont{Weight: w, Font: f})
			}
		}
	}
	return fonts
}

// FontsByWeight returns the (weight, font) pairs ordered by ascending CSS
// font-weight. If more than one source sets a weight, the first one wins.
func (pkg *Package) FontsByWeight() []WeightedFont {
	var fonts []WeightedFont
	for _, w := range Weights() {
		for _, src := range pkg.Sources {
			if f := src.Fonts.Get(w); f != nil {
				fonts = append(fonts, WeightedFont{Weight: w, Font: f})
				break
			}
		}
	}
	return fonts
}

var packageIDPattern = regexp.MustCompile(`^[a-z][a-z-]*$`)
var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Validate checks the invariants of the data model. It returns an error with
// code EINVALID for the first violation found.
func (pkg *Package) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return WrapError(nil, EINVALID, format, args...)
	}
	if !packageIDPattern.MatchString(pkg.ID) {
		return invalid("package id %q must match %s", pkg.ID, packageIDPattern)
	}
	if strings.TrimSpace(pkg.Name) == "" {
		return invalid("package %s has no name", pkg.ID)
	}
	if strings.TrimSpace(pkg.Version) == "" || strings.ContainsAny(pkg.Version, `/\`) {
		return invalid("package %s has invalid version %q", pkg.ID, pkg.Version)
	}
	if !pkg.License.IsValid() {
		return InvalidLicense(pkg.License)
	}
	if _, err := url.Parse(pkg.Homepage); err != nil || pkg.Homepage == "" {
		return invalid("package %s has invalid homepage %q", pkg.ID, pkg.Homepage)
	}
	if len(pkg.Authors) == 0 {
		return invalid("package %s must name at least one author", pkg.ID)
	}
	if len(pkg.Copyrights) == 0 {
		return invalid("package %s must have at least one copyright", pkg.ID)
	}
	if !pkg.Category.IsValid() {
		return invalid("package %s has unknown category %q", pkg.ID, pkg.Category)
	}
	if len(pkg.Characters) == 0 {
		return invalid("package %s must list at least one character set", pkg.ID)
	}
	for _, c := range pkg.Characters {
		if !c.IsValid() {
			return invalid("package %s has unknown character set %q", pkg.ID, c)
		}
	}
	if len(pkg.Sources) == 0 {
		return invalid("package %s has no sources", pkg.ID)
	}
	for i, src := range pkg.Sources {
		if u, err := url.Parse(src.URL); err != nil || u.Scheme == "" {
			return invalid("source #%d of package %s has invalid url %q", i, pkg.ID, src.URL)
		}
		for _, w := range Weights() {
			f := src.Fonts.Get(w)
			if f == nil {
				continue
			}
			if f.Filename == "" {
				return invalid("font %s of source #%d has no filename", w, i)
			}
			if !sha256Pattern.MatchString(f.SHA256) {
				return invalid("font %s has malformed sha256 %q", f.Filename, f.SHA256)
			}
			if f.Number < 0 {
				return invalid("font %s has negative face number %d", f.Filename, f.Number)
			}
		}
	}
	if len(pkg.Fonts()) == 0 {
		return invalid("package %s does not set a font for any weight", pkg.ID)
	}
	tracer().Debugf("package %s validated", pkg.ID)
	return nil
}

func (pkg *Package) String() string {
	return fmt.Sprintf("%s@%s (%s)", pkg.ID, pkg.Version, pkg.License)
}
