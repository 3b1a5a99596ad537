package stylesheet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/internal/packtest"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type StylesheetTestEnviron struct {
	suite.Suite
	root  string
	fonts locate.Fonts
}

// listen for 'go test' command --> run test methods
func TestStylesheetFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	suite.Run(t, new(StylesheetTestEnviron))
}

// run once, before test suite methods
func (env *StylesheetTestEnviron) SetupSuite() {
	tracing.Select("fontpack.build").SetTraceLevel(tracing.LevelInfo)
	env.root = packtest.WriteFonts(env.T())
	fonts, err := locate.New(env.root).Resolve(packtest.Package())
	env.Require().NoError(err)
	env.fonts = fonts
}

func (env *StylesheetTestEnviron) generate(pkg *fontpack.Package) string {
	out := filepath.Join(env.T().TempDir(), "webfonts", pkg.ID)
	g := &Generator{Catalog: packtest.Catalog(), Fonts: env.fonts, Output: out}
	env.Require().NoError(g.Generate(context.Background(), pkg))
	return out
}

func (env *StylesheetTestEnviron) read(p string) string {
	data, err := os.ReadFile(p)
	env.Require().NoError(err)
	return string(data)
}

// faces parses a stylesheet and returns the declarations of its
// `@font-face` rules.
func (env *StylesheetTestEnviron) faces(src string) []map[string]string {
	sheet, err := parser.Parse(src)
	env.Require().NoError(err)
	var faces []map[string]string
	for _, rule := range sheet.Rules {
		env.Require().Equal(css.AtRule, rule.Kind)
		env.Require().Equal("@font-face", rule.Name)
		decls := make(map[string]string)
		for _, d := range rule.Declarations {
			decls[d.Property] = d.Value
		}
		faces = append(faces, decls)
	}
	return faces
}

// --- Tests -----------------------------------------------------------------

func (env *StylesheetTestEnviron) TestLocalNames() {
	names, err := LocalNames(filepath.Join(env.root, packtest.RegularFile), 0)
	env.Require().NoError(err)
	env.Equal([]string{"Test Sans", "TestSans-Regular"}, names)
}

func (env *StylesheetTestEnviron) TestDefaultSheet() {
	pkg := packtest.Package()
	out := env.generate(pkg)
	src := env.read(filepath.Join(out, DefaultSheet))
	env.True(strings.HasPrefix(src, "/*! Test Font 1.0.0 | OFL-1.1 |"), "license header")
	faces := env.faces(src)
	env.Require().Len(faces, 4, "2 weights x 2 partitions")
	for i, weight := range []string{"400", "400", "700", "700"} {
		env.Equal(weight, faces[i]["font-weight"], "face %d", i)
		env.NotContains(faces[i]["src"], "local(")
		env.Contains(faces[i]["font-family"], "Test Font")
	}
	env.Contains(faces[0]["src"], "1.0.0/normal/0.woff2")
	env.Contains(faces[1]["src"], "1.0.0/normal/1.woff")
	env.Contains(faces[3]["src"], "1.0.0/bold/1.woff2")
	env.Equal(faces[0]["unicode-range"], faces[2]["unicode-range"], "unicode-range is the same for all weights")
	env.Equal(faces[1]["unicode-range"], faces[3]["unicode-range"])
	env.NotEqual(faces[0]["unicode-range"], faces[1]["unicode-range"])
	env.Equal("U+3040-309F,U+30A0-30FF", faces[1]["unicode-range"])
	env.Contains(src, "@font-face{font-family:'Test Font';")
	env.Contains(src, "unicode-range:U+3040-309F,U+30A0-30FF}")
	_, err := os.Stat(filepath.Join(out, FallbackSheet))
	env.True(os.IsNotExist(err), "no fallback sheet without fallback font")
}

func (env *StylesheetTestEnviron) TestLocalFirstSheet() {
	out := env.generate(packtest.Package())
	faces := env.faces(env.read(filepath.Join(out, LocalSheet)))
	env.Require().Len(faces, 4)
	for _, face := range faces {
		src := face["src"]
		env.True(strings.HasPrefix(src, "local("), "local() comes first: %s", src)
		env.Contains(src, "TestSans-Regular")
		env.Contains(src, "woff2")
	}
}

func (env *StylesheetTestEnviron) TestFallbackSheet() {
	pkg := packtest.Package()
	pkg.Fallback = "Hiragino Sans"
	out := env.generate(pkg)
	src := env.read(filepath.Join(out, FallbackSheet))
	env.False(strings.HasPrefix(src, "/*!"), "fallback sheet has no license header")
	faces := env.faces(src)
	env.Require().Len(faces, 2, "one face per weight")
	for _, face := range faces {
		env.Contains(face["src"], "Hiragino Sans")
		env.NotContains(face["src"], "url(")
		env.NotContains(face, "unicode-range")
	}
}

func (env *StylesheetTestEnviron) TestReproducible() {
	a := env.generate(packtest.Package())
	b := env.generate(packtest.Package())
	for _, name := range []string{DefaultSheet, LocalSheet} {
		env.Equal(env.read(filepath.Join(a, name)), env.read(filepath.Join(b, name)), name)
	}
}

func (env *StylesheetTestEnviron) TestInvalidLicense() {
	pkg := packtest.Package()
	pkg.License = "Proprietary"
	out := filepath.Join(env.T().TempDir(), "webfonts")
	g := &Generator{Catalog: packtest.Catalog(), Fonts: env.fonts, Output: out}
	err := g.Generate(context.Background(), pkg)
	env.Require().Error(err)
	env.Equal("Proprietary is invalid license id.", fontpack.UserMessage(err))
	_, err = os.Stat(out)
	env.True(os.IsNotExist(err), "nothing is written")
}

func (env *StylesheetTestEnviron) TestMinify() {
	out, err := Minify([]byte("a {\n  color: red;\n}\n"))
	env.Require().NoError(err)
	env.Equal("a{color:red}", string(out))
}

func (env *StylesheetTestEnviron) TestMinifyKeepsFaceDescriptors() {
	src := "@font-face {\n  font-family: 'Test Font';\n  font-weight: 700;\n" +
		"  unicode-range: U+0041-005A, U+0061-007A;\n}\n"
	out, err := Minify([]byte(src))
	env.Require().NoError(err)
	env.Equal("@font-face{font-family:'Test Font';font-weight:700;unicode-range:U+0041-005A, U+0061-007A}",
		string(out))
}
