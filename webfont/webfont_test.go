package webfont

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/identity"
	"github.com/npillmayer/fontpack/internal/packtest"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type WebfontTestEnviron struct {
	suite.Suite
	fonts locate.Fonts
}

// listen for 'go test' command --> run test methods
func TestWebfontFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	suite.Run(t, new(WebfontTestEnviron))
}

// run once, before test suite methods
func (env *WebfontTestEnviron) SetupSuite() {
	tracing.Select("fontpack.build").SetTraceLevel(tracing.LevelInfo)
	tracing.Select("fontpack.fonts").SetTraceLevel(tracing.LevelInfo)
	fonts, err := locate.New(packtest.WriteFonts(env.T())).Resolve(packtest.Package())
	env.Require().NoError(err)
	env.fonts = fonts
}

func (env *WebfontTestEnviron) generator(conv *packtest.Converter) (*Generator, string) {
	out := filepath.Join(env.T().TempDir(), "webfonts")
	return &Generator{
		Catalog:   packtest.Catalog(),
		Fonts:     env.fonts,
		Converter: conv,
		Output:    out,
	}, out
}

func (env *WebfontTestEnviron) load(path string) *sfnt.Font {
	f, err := sfnt.Load(path, 0)
	env.Require().NoError(err, "generated webfont must load")
	return f
}

func (env *WebfontTestEnviron) name(f *sfnt.Font, id sfnt.NameID) (string, bool) {
	nt, err := f.Names()
	env.Require().NoError(err)
	rec, ok := nt.Lookup(sfnt.NameKey{
		Platform: sfnt.PlatformIDWindows,
		Encoding: sfnt.EncodingIDWindowsBMP,
		Language: sfnt.LanguageIDWindowsEnglish,
		Name:     id,
	})
	if !ok {
		return "", false
	}
	s, err := rec.String()
	env.Require().NoError(err)
	return s, true
}

func (env *WebfontTestEnviron) requireName(f *sfnt.Font, id sfnt.NameID) string {
	s, ok := env.name(f, id)
	env.Require().True(ok, "name id %d", id)
	return s
}

// --- Tests -----------------------------------------------------------------

func (env *WebfontTestEnviron) TestGenerate() {
	conv := &packtest.Converter{Dir: env.T().TempDir()}
	g, out := env.generator(conv)
	pkg := packtest.Package()
	env.Require().NoError(g.Generate(context.Background(), pkg))
	env.Equal([]string{"TestSans-Bold.ttf"}, conv.Calls(), "only the TrueType font is converted")
	_, err := os.Stat(filepath.Join(conv.Dir, "converted-1.otf"))
	env.True(os.IsNotExist(err), "converted font is released")
	//
	want := map[string]map[rune]uint16{
		"0": {'A': 1, 'B': 2, 'a': 3, 'z': 4},
		"1": {'あ': 1, 'い': 2, 'ア': 3}, // glyphs are renumbered
	}
	for _, weight := range []string{"normal", "bold"} {
		for index, runes := range want {
			base := filepath.Join(out, pkg.Version, weight, index)
			for _, ext := range []string{".woff", ".woff2"} {
				info, err := os.Stat(base + ext)
				env.Require().NoError(err)
				env.NotZero(info.Size())
			}
			f := env.load(base + ".woff")
			m, err := f.RuneMap()
			env.Require().NoError(err)
			env.Equal(runes, m, "partition %s of %s", index, weight)
		}
	}
}

func (env *WebfontTestEnviron) TestNames() {
	g, out := env.generator(&packtest.Converter{Dir: env.T().TempDir()})
	pkg := packtest.Package()
	env.Require().NoError(g.Generate(context.Background(), pkg))
	f := env.load(filepath.Join(out, pkg.Version, "normal", "0.woff"))
	subset := identity.SubsetName(pkg.ID)
	env.Equal(strings.Join(pkg.Copyrights, "\n"), env.requireName(f, 0))
	renamed := 0
	for _, id := range FamilyRelated {
		if s, ok := env.name(f, id); ok {
			env.Equal(subset, s, "name id %d", id)
			renamed++
		}
	}
	env.Equal(5, renamed)
	env.Equal("Regular", env.requireName(f, 2), "subfamily is kept")
	env.Equal("Version 1.000", env.requireName(f, 5), "version is kept")
	nt, err := f.Names()
	env.Require().NoError(err)
	jp, ok := nt.Lookup(sfnt.NameKey{Platform: sfnt.PlatformIDWindows, Encoding: 1, Language: 0x411, Name: 2})
	env.Require().True(ok)
	s, err := jp.String()
	env.Require().NoError(err)
	env.Equal("標準", s)
}

func (env *WebfontTestEnviron) TestReproducible() {
	pkg := packtest.Package()
	g1, out1 := env.generator(&packtest.Converter{Dir: env.T().TempDir()})
	g2, out2 := env.generator(&packtest.Converter{Dir: env.T().TempDir()})
	g2.Workers = 1
	env.Require().NoError(g1.Generate(context.Background(), pkg))
	env.Require().NoError(g2.Generate(context.Background(), pkg))
	for _, name := range []string{"normal/0.woff", "normal/1.woff2", "bold/1.woff", "bold/0.woff2"} {
		a, err := os.ReadFile(filepath.Join(out1, pkg.Version, name))
		env.Require().NoError(err)
		b, err := os.ReadFile(filepath.Join(out2, pkg.Version, name))
		env.Require().NoError(err)
		env.True(bytes.Equal(a, b), "%s differs between runs", name)
	}
}

func (env *WebfontTestEnviron) TestInvalidLicense() {
	conv := &packtest.Converter{Dir: env.T().TempDir()}
	for _, set := range []*templates.Set{nil, templates.New(fstest.MapFS{})} {
		g, out := env.generator(conv)
		g.Templates = set
		pkg := packtest.Package()
		if set == nil {
			pkg.License = "WTFPL"
		}
		err := g.Generate(context.Background(), pkg)
		env.Require().Error(err)
		env.Equal(fontpack.EINVALID, fontpack.Code(err))
		env.Equal(fmt.Sprintf("%s is invalid license id.", pkg.License), fontpack.UserMessage(err))
		_, err = os.Stat(out)
		env.True(os.IsNotExist(err), "nothing is written")
	}
	env.Empty(conv.Calls(), "no font is touched")
}

func (env *WebfontTestEnviron) TestConverterFails() {
	g, _ := env.generator(&packtest.Converter{Dir: env.T().TempDir(), Fail: true})
	err := g.Generate(context.Background(), packtest.Package())
	env.Require().Error(err)
	env.Equal(fontpack.EEXTERNAL, fontpack.Code(err))
}

func (env *WebfontTestEnviron) TestFontNotResolved() {
	g, _ := env.generator(&packtest.Converter{Dir: env.T().TempDir()})
	g.Fonts = locate.Fonts{}
	err := g.Generate(context.Background(), packtest.Package())
	env.Require().Error(err)
	env.Equal(fontpack.EMISSING, fontpack.Code(err))
}

func (env *WebfontTestEnviron) TestFlavorVersion() {
	for version, want := range map[string][2]uint16{
		"1.0.0":   {1, 0},
		"2.13":    {2, 13},
		"v3.1.4":  {3, 1},
		"7":       {7, 0},
		"x.y":     {0, 0},
		"1.70000": {1, 0},
	} {
		major, minor := FlavorVersion(version)
		env.Equal(want, [2]uint16{major, minor}, version)
	}
}
