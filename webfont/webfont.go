/*
Package webfont generates the subsetted WOFF and WOFF2 webfonts of a font
package.

For every weight of a package and every partition of the catalog, the
generator cuts the glyphs of the partition's codepoints out of the weight's
font, renames the result and writes it in both webfont flavors:

	{output}/{version}/{weight}/{index}.woff
	{output}/{version}/{weight}/{index}.woff2

Family-related names of a subset are replaced by an obfuscated name derived
from the package id (see package identity), so a webfont cannot be installed
as a stand-in for the original font. The copyright notice is replaced by the
package's copyright lines. Both flavors embed the package metadata rendered
by package metadata.

Weights are processed concurrently, with a configurable limit. Partitions of
a weight are processed one after the other, each on a freshly parsed font.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package webfont

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/convert"
	"github.com/npillmayer/fontpack/identity"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/fontpack/metadata"
	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing"
	xsfnt "golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// FamilyRelated lists the name ids which are replaced by the subset name.
var FamilyRelated = []sfnt.NameID{
	xsfnt.NameIDFamily,
	xsfnt.NameIDUniqueIdentifier,
	xsfnt.NameIDFull,
	xsfnt.NameIDPostScript,
	xsfnt.NameIDTypographicFamily,
	xsfnt.NameIDWWSFamily,
}

// DefaultWorkers is the number of weights processed in parallel if not
// configured otherwise.
const DefaultWorkers = 2

// Generator generates the webfonts of a package.
type Generator struct {
	Templates *templates.Set     // defaults to templates.Default()
	Catalog   *partition.Catalog // defaults to partition.Default()
	Fonts     locate.Fonts       // resolved font files
	Converter convert.Converter  // defaults to FontForge
	Output    string             // webfonts directory of the package
	Workers   int                // weights in parallel, defaults to DefaultWorkers
}

func (g *Generator) templates() *templates.Set {
	if g.Templates == nil {
		return templates.Default()
	}
	return g.Templates
}

func (g *Generator) catalog() *partition.Catalog {
	if g.Catalog == nil {
		return partition.Default()
	}
	return g.Catalog
}

func (g *Generator) converter() convert.Converter {
	if g.Converter == nil {
		return convert.FontForge{}
	}
	return g.Converter
}

// job is the shared, read-only input of all weights.
type job struct {
	pkg        *fontpack.Package
	name       string
	meta       []byte
	partitions []partition.Partition
}

// Generate writes the webfonts of pkg. It fails before reading any font if
// the license of pkg has no templates.
func (g *Generator) Generate(ctx context.Context, pkg *fontpack.Package) error {
	set := g.templates()
	if err := set.CheckLicense(pkg.License); err != nil {
		return err
	}
	meta, err := metadata.Render(set, pkg)
	if err != nil {
		return err
	}
	partitions, err := g.catalog().Partitions()
	if err != nil {
		return fontpack.WrapError(err, fontpack.EINVALID, "cannot load partition catalog")
	}
	j := &job{
		pkg:        pkg,
		name:       identity.SubsetName(pkg.ID),
		meta:       meta,
		partitions: partitions,
	}
	tracer().Infof("generating webfonts for %s as %q", pkg.ID, j.name)
	workers := g.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, wf := range pkg.FontsByWeight() {
		group.Go(func() error {
			return g.weight(ctx, j, wf)
		})
	}
	return group.Wait()
}

// weight generates all partitions of a single weight.
func (g *Generator) weight(ctx context.Context, j *job, wf fontpack.WeightedFont) error {
	path := g.Fonts.Path(wf.Font)
	if path == "" {
		return fontpack.FontNotFound(wf.Font.Filename)
	}
	path, face, release, err := convert.Prepare(ctx, g.converter(), path, wf.Font.Number)
	defer release()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fontpack.WrapError(err, fontpack.EMISSING, "cannot read %s", path)
	}
	dir := filepath.Join(g.Output, j.pkg.Version, wf.Weight.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", dir)
	}
	for _, p := range j.partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.partition(data, face, p, filepath.Join(dir, p.Index)); err != nil {
			return fmt.Errorf("weight %s, partition %s: %w", wf.Weight, p.Index, err)
		}
	}
	tracer().Infof("webfonts for weight %s done (%d partitions)", wf.Weight, len(j.partitions))
	return nil
}

// partition subsets a fresh copy of the font to p and writes both flavors
// to base + ".woff" and base + ".woff2".
func (j *job) partition(data []byte, face int, p partition.Partition, base string) error {
	f, err := sfnt.Parse(data, face)
	if err != nil {
		return fontpack.WrapError(err, fontpack.EINVALID, "cannot parse font: %v", err)
	}
	err = sfnt.Subset(f, sfnt.Request{
		Runes:          p.Runes(),
		DropFeatures:   sfnt.DefaultDropFeatures,
		Desubroutinize: true,
		DropTables:     sfnt.DefaultDropTables,
	})
	if err != nil {
		return err
	}
	if err := Rename(f, j.name, j.pkg.Copyrights); err != nil {
		return err
	}
	major, minor := FlavorVersion(j.pkg.Version)
	woff, err := sfnt.EncodeWOFF(f, sfnt.FlavorData{Metadata: j.meta, MajorVersion: major, MinorVersion: minor})
	if err != nil {
		return err
	}
	woff2, err := sfnt.EncodeWOFF2(f, sfnt.FlavorData{Metadata: j.meta, MajorVersion: major, MinorVersion: minor})
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".woff", woff, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(base+".woff2", woff2, 0o644); err != nil {
		return err
	}
	tracer().Debugf("%s: %d bytes woff, %d bytes woff2", filepath.Base(base), len(woff), len(woff2))
	return nil
}

// Rename sets the copyright notice of f to the newline-joined copyright
// lines and every family-related name to name. All other name records stay
// untouched.
func Rename(f *sfnt.Font, name string, copyrights []string) error {
	nt, err := f.Names()
	if err != nil {
		return err
	}
	if _, err := nt.SetString(xsfnt.NameIDCopyright, strings.Join(copyrights, "\n")); err != nil {
		return err
	}
	for _, id := range FamilyRelated {
		if _, err := nt.SetString(id, name); err != nil {
			return err
		}
	}
	f.SetNames(nt)
	return nil
}

// FlavorVersion derives the WOFF major and minor version from a package
// version "major.minor[.patch]". Missing or invalid parts are 0.
func FlavorVersion(version string) (uint16, uint16) {
	parts := strings.SplitN(strings.TrimPrefix(version, "v"), ".", 3)
	var v [2]uint16
	for i := 0; i < 2 && i < len(parts); i++ {
		if n, err := strconv.ParseUint(parts[i], 10, 16); err == nil {
			v[i] = uint16(n)
		}
	}
	return v[0], v[1]
}
