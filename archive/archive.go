/*
Package archive generates the distributable archive of a font package.

The archive is a gzip-compressed tar file `{id}.tar.gz` holding the license
text of the package as `LICENSE` and each of the package's original font
files, renamed to `{id}-{weight}{ext}`. There is one member per weight
set in the package; a font file serving several weights is included once
for each of them.

Archives are reproducible: members are sorted by name and carry fixed
metadata (modification time at the Unix epoch, mode 0644, owner 0), and the
gzip header carries neither a file name nor a time stamp.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// LicenseMember is the archive member holding the license text.
const LicenseMember = "LICENSE"

const memberMode = 0o644

var epoch = time.Unix(0, 0).UTC()

// Generator generates the archive of a package.
type Generator struct {
	Templates *templates.Set // defaults to templates.Default()
	Fonts     locate.Fonts   // resolved font files
	Output    string         // archives directory
}

// member is an archive entry, either in memory or backed by a file.
type member struct {
	name string
	data []byte
	path string
}

// Path returns the path of the archive of pkg.
func (g *Generator) Path(pkg *fontpack.Package) string {
	return filepath.Join(g.Output, pkg.ID+".tar.gz")
}

// Generate writes the archive of pkg. It fails before reading any font if
// the license of pkg has no templates.
func (g *Generator) Generate(ctx context.Context, pkg *fontpack.Package) error {
	set := g.Templates
	if set == nil {
		set = templates.Default()
	}
	if err := set.CheckLicense(pkg.License); err != nil {
		return err
	}
	license, err := set.License(pkg)
	if err != nil {
		return err
	}
	members, err := g.members(pkg, license)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(g.Output, 0o755); err != nil {
		return fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", g.Output)
	}
	target := g.Path(pkg)
	out, err := os.Create(target)
	if err != nil {
		return fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create %s", target)
	}
	if err = write(ctx, out, members); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	tracer().Infof("wrote archive %s with %d members", filepath.Base(target), len(members))
	return nil
}

// members lists the archive members of pkg, sorted by name.
func (g *Generator) members(pkg *fontpack.Package, license []byte) ([]member, error) {
	members := []member{{name: LicenseMember, data: license}}
	for _, wf := range pkg.FontsByWeight() {
		p := g.Fonts.Path(wf.Font)
		if p == "" {
			return nil, fontpack.FontNotFound(wf.Font.Filename)
		}
		members = append(members, member{
			name: pkg.ID + "-" + wf.Weight.String() + filepath.Ext(p),
			path: p,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })
	return members, nil
}

// write streams members as a tar.gz to w.
func write(ctx context.Context, w io.Writer, members []member) error {
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.write(tw); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func (m member) write(tw *tar.Writer) error {
	var r io.Reader = bytes.NewReader(m.data)
	size := int64(len(m.data))
	if m.path != "" {
		f, err := os.Open(m.path)
		if err != nil {
			return fontpack.WrapError(err, fontpack.EMISSING, "cannot read %s", m.path)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		r, size = f, info.Size()
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     m.name,
		Size:     size,
		Mode:     memberMode,
		ModTime:  epoch,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, r)
	return err
}
