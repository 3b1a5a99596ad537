package query

import (
	"testing"

	"github.com/npillmayer/fontpack/internal/packtest"
	"github.com/npillmayer/fontpack/internal/sfnttest"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type QueryTestEnviron struct {
	suite.Suite
	ttf, cff *sfnt.Font
}

// listen for 'go test' command --> run test methods
func TestQueryFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.fonts")
	defer teardown()
	suite.Run(t, new(QueryTestEnviron))
}

// run once, before test suite methods
func (env *QueryTestEnviron) SetupSuite() {
	tracing.Select("fontpack.fonts").SetTraceLevel(tracing.LevelInfo)
	var err error
	env.ttf, err = sfnt.Parse(sfnttest.TrueType(packtest.Spec), 0)
	env.Require().NoError(err)
	env.cff, err = sfnt.Parse(sfnttest.CFF(packtest.Spec), 0)
	env.Require().NoError(err)
}

// --- Tests -----------------------------------------------------------------

func (env *QueryTestEnviron) TestFontType() {
	env.Equal("TrueType", FontType(env.ttf))
	env.Equal("CFF", FontType(env.cff))
}

func (env *QueryTestEnviron) TestNameInfo() {
	info := NameInfo(env.cff)
	env.Equal("Test Sans", info["family"])
	env.Equal(sfnttest.Subfamily, info["subfamily"])
	env.Equal(sfnttest.Version, info["version"])
	env.Equal("TestSans-Regular", info["postscript"])
	env.Equal("Test Sans", info["typographic-family"])
}

func (env *QueryTestEnviron) TestNamesRangeStops() {
	n := 0
	for range NamesRange(env.ttf) {
		n++
		if n == 2 {
			break
		}
	}
	env.Equal(2, n)
	japanese := false
	for key, s := range NamesRange(env.ttf) {
		if key.Language == 0x411 && key.Name == 2 {
			env.Equal("標準", s)
			japanese = true
		}
	}
	env.True(japanese)
}

func (env *QueryTestEnviron) TestHeadInfo() {
	h, ok := HeadInfo(env.ttf)
	env.Require().True(ok)
	env.Equal(uint16(1000), h.UnitsPerEm)
	env.Equal(int16(1), h.IndexToLocFormat)
	env.Equal(1.0, h.Revision())
	_, ok = HeadInfo(sfnt.New(sfnt.T("OTTO"), nil))
	env.False(ok)
}

func (env *QueryTestEnviron) TestCoverage() {
	partitions, err := packtest.Catalog().Partitions()
	env.Require().NoError(err)
	cov, err := Coverage(env.ttf, partitions)
	env.Require().NoError(err)
	env.Require().Len(cov, 2)
	env.Equal(PartitionCoverage{Index: "0", Covered: 4, Total: 52}, cov[0])
	env.Equal("1", cov[1].Index)
	env.Equal(3, cov[1].Covered)
	env.Equal(0x60+0x60, cov[1].Total)
	env.False(cov[1].Empty())
}
