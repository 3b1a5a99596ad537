/*
Package pipeline builds a font package end to end.

A build runs in two phases. The preparation phase loads and validates the
package descriptor, downloads and unpacks its sources, resolves every font
file and verifies its checksum. Only then does the generation phase run the
webfont, stylesheet and archive generators concurrently:

	{output}/webfonts/{id}/{version}/{weight}/{index}.woff(2)
	{output}/webfonts/{id}/*.min.css
	{output}/archives/{id}.tar.gz

The first failing generator cancels the others. Builds are configured by a
schuko.Configuration, see Options for the keys read.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package pipeline

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/archive"
	"github.com/npillmayer/fontpack/convert"
	"github.com/npillmayer/fontpack/fetch"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/stylesheet"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/fontpack/webfont"
	"github.com/npillmayer/schuko"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/errgroup"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Configuration keys.
const (
	KeyOutput       = "output"
	KeyWorkdir      = "workdir"
	KeyGroups       = "groups"
	KeyTemplates    = "templates"
	KeyFontForge    = "fontforge"
	KeyWorkers      = "workers"
	KeyOnlyCSS      = "only-css"
	KeySkipDownload = "skip-download"
)

// DefaultOutput is the output root if none is configured.
const DefaultOutput = "./dist"

// Options are the settings of a build.
type Options struct {
	Output       string // output root
	Workdir      string // download and extraction directory, a temp dir if empty
	Groups       string // partition directory, embedded catalog if empty
	Templates    string // template directory, embedded templates if empty
	FontForge    string // FontForge executable
	Workers      int    // weights converted in parallel
	OnlyCSS      bool   // generate stylesheets only
	SkipDownload bool   // Workdir already holds the extracted sources
}

// OptionsFrom reads build options from conf.
func OptionsFrom(conf schuko.Configuration) Options {
	opts := Options{
		Output:       conf.GetString(KeyOutput),
		Workdir:      conf.GetString(KeyWorkdir),
		Groups:       conf.GetString(KeyGroups),
		Templates:    conf.GetString(KeyTemplates),
		FontForge:    conf.GetString(KeyFontForge),
		Workers:      conf.GetInt(KeyWorkers),
		OnlyCSS:      conf.GetBool(KeyOnlyCSS),
		SkipDownload: conf.GetBool(KeySkipDownload),
	}
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}
	if opts.Workers <= 0 {
		opts.Workers = webfont.DefaultWorkers
	}
	return opts
}

// Pipeline builds font packages.
type Pipeline struct {
	Options
	Client    *http.Client       // used for downloads, defaults to http.DefaultClient
	Converter convert.Converter  // defaults to FontForge
	Catalog   *partition.Catalog // set up from Options.Groups
	Templates *templates.Set     // set up from Options.Templates
}

// New creates a pipeline configured by conf.
func New(conf schuko.Configuration) *Pipeline {
	return NewWithOptions(OptionsFrom(conf))
}

// NewWithOptions creates a pipeline for opts.
func NewWithOptions(opts Options) *Pipeline {
	p := &Pipeline{Options: opts}
	if opts.Groups != "" {
		p.Catalog = partition.New(os.DirFS(opts.Groups))
	} else {
		p.Catalog = partition.Default()
	}
	if opts.Templates != "" {
		p.Templates = templates.New(os.DirFS(opts.Templates))
	} else {
		p.Templates = templates.Default()
	}
	p.Converter = convert.FontForge{Executable: opts.FontForge}
	return p
}

// WebfontDir is the directory of the webfonts and stylesheets of pkg.
func (p *Pipeline) WebfontDir(pkg *fontpack.Package) string {
	return filepath.Join(p.Output, "webfonts", pkg.ID)
}

// ArchiveDir is the directory of the archives.
func (p *Pipeline) ArchiveDir() string {
	return filepath.Join(p.Output, "archives")
}

// Run builds the package described by the descriptor file at path.
func (p *Pipeline) Run(ctx context.Context, path string) error {
	pkg, err := fontpack.LoadDescriptor(path)
	if err != nil {
		return err
	}
	return p.Build(ctx, pkg)
}

// Build builds pkg. Nothing is generated unless every font of pkg is found
// exactly once and matches its checksum.
func (p *Pipeline) Build(ctx context.Context, pkg *fontpack.Package) error {
	tracer().Infof("building package %s", pkg)
	root, cleanup, err := p.sources(ctx, pkg)
	if err != nil {
		return err
	}
	defer cleanup()
	fonts, err := locate.New(root).Resolve(pkg)
	if err != nil {
		return err
	}
	if err := fetch.Verify(pkg, fonts); err != nil {
		return err
	}
	return p.generate(ctx, pkg, fonts)
}

// sources provides the extraction root of pkg and a func to clean up
// temporary downloads.
func (p *Pipeline) sources(ctx context.Context, pkg *fontpack.Package) (string, func(), error) {
	noop := func() {}
	if p.SkipDownload {
		if p.Workdir == "" {
			return "", noop, fontpack.WrapError(nil, fontpack.EINVALID,
				"%s requires %s to be set", KeySkipDownload, KeyWorkdir)
		}
		tracer().Debugf("using sources in %s", p.Workdir)
		return p.Workdir, noop, nil
	}
	dir, cleanup := p.Workdir, noop
	if dir == "" {
		tmp, err := os.MkdirTemp("", "fontpack-")
		if err != nil {
			return "", noop, fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create work directory")
		}
		dir, cleanup = tmp, func() { os.RemoveAll(tmp) }
	}
	f := fetch.New(dir)
	f.Client = p.Client
	root, err := f.Fetch(ctx, pkg)
	if err != nil {
		cleanup()
		return "", noop, err
	}
	return root, cleanup, nil
}

func (p *Pipeline) generate(ctx context.Context, pkg *fontpack.Package, fonts locate.Fonts) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return (&stylesheet.Generator{
			Templates: p.Templates,
			Catalog:   p.Catalog,
			Fonts:     fonts,
			Output:    p.WebfontDir(pkg),
		}).Generate(ctx, pkg)
	})
	if !p.OnlyCSS {
		g.Go(func() error {
			return (&webfont.Generator{
				Templates: p.Templates,
				Catalog:   p.Catalog,
				Fonts:     fonts,
				Converter: p.Converter,
				Output:    p.WebfontDir(pkg),
				Workers:   p.Workers,
			}).Generate(ctx, pkg)
		})
		g.Go(func() error {
			return (&archive.Generator{
				Templates: p.Templates,
				Fonts:     fonts,
				Output:    p.ArchiveDir(),
			}).Generate(ctx, pkg)
		})
	}
	if err := g.Wait(); err != nil {
		tracer().Errorf("build of %s failed: %v", pkg.ID, err)
		return err
	}
	tracer().Infof("package %s built into %s", pkg.ID, p.Output)
	return nil
}
