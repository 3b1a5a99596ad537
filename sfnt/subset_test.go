package sfnt

import (
	"testing"

	"github.com/go-text/typesetting/font/cff"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/npillmayer/fontpack/internal/sfnttest"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type SubsetTestEnviron struct {
	suite.Suite
	req Request
}

// listen for 'go test' command --> run test methods
func TestSubsetFunctions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.fonts")
	defer teardown()
	suite.Run(t, new(SubsetTestEnviron))
}

// run once, before test suite methods
func (env *SubsetTestEnviron) SetupSuite() {
	tracing.Select("fontpack.fonts").SetTraceLevel(tracing.LevelInfo)
	env.req = Request{
		Runes:          []rune{'A', 'B', 'あ', 'ん'},
		DropFeatures:   DefaultDropFeatures,
		Desubroutinize: true,
		DropTables:     DefaultDropTables,
	}
}

func (env *SubsetTestEnviron) subset(f *Font, req Request) *Font {
	env.Require().NoError(Subset(f, req))
	g, err := Parse(f.Bytes(), 0)
	env.Require().NoError(err, "subset font must load")
	return g
}

// coverageGlyphs lists the glyphs of a coverage table in coverage order.
func coverageGlyphs(cov tables.Coverage) []uint16 {
	var glyphs []uint16
	forCoverage(cov, func(g tables.GlyphID, _ int) {
		glyphs = append(glyphs, g)
	})
	return glyphs
}

// lookup returns the subtables of a GSUB or GPOS lookup, with extension
// subtables resolved.
func (env *SubsetTestEnviron) lookup(f *Font, table Tag, index int) []any {
	layout, _, err := tables.ParseLayout(f.Table(table))
	env.Require().NoError(err)
	env.Require().Greater(len(layout.LookupList.Lookups), index)
	lk := layout.LookupList.Lookups[index]
	var subs []any
	if table == tagGSUB {
		gsub, err := lk.AsGSUBLookups()
		env.Require().NoError(err)
		for _, sub := range gsub {
			if ext, ok := sub.(tables.ExtensionSubs); ok {
				sub, err = ext.Resolve()
				env.Require().NoError(err)
			}
			subs = append(subs, sub)
		}
		return subs
	}
	gpos, err := lk.AsGPOSLookups()
	env.Require().NoError(err)
	for _, sub := range gpos {
		if ext, ok := sub.(tables.ExtensionPos); ok {
			sub, err = ext.Resolve()
			env.Require().NoError(err)
		}
		subs = append(subs, sub)
	}
	return subs
}

// --- Tests -----------------------------------------------------------------

func (env *SubsetTestEnviron) TestCharMap() {
	g := env.subset(loadTrueType(env.T()), env.req)
	m, err := g.RuneMap()
	env.Require().NoError(err)
	env.Equal(map[rune]uint16{'A': 1, 'B': 2, 'あ': 3}, m, "'ん' is not in the font")
	os2 := g.Table(tagOS2)
	env.Equal(uint16('A'), u16(os2[os2FirstCharIndex:]))
	env.Equal(uint16('あ'), u16(os2[os2LastCharIndex:]))
}

func (env *SubsetTestEnviron) TestCharMapSupplementary() {
	req := env.req
	req.Runes = []rune{'C', 0x20B9F}
	g := env.subset(loadTrueType(env.T()), req)
	m, err := g.RuneMap()
	env.Require().NoError(err)
	// retained: 0, 3 'C', 6 U+20B9F, 7 and 8 components of 'C'
	env.Equal(map[rune]uint16{'C': 1, 0x20B9F: 2}, m)
	os2 := g.Table(tagOS2)
	env.Equal(uint16(0xFFFF), u16(os2[os2LastCharIndex:]))
}

func (env *SubsetTestEnviron) TestGlyphsRenumbered() {
	g := env.subset(loadTrueType(env.T()), env.req)
	// retained: 0, 1 'A', 2 'B', 4 'あ', 9 vertical 'あ', 11 ligature 'AB';
	// 10 is reachable through 'locl' only
	old := []uint16{0, 1, 2, 4, 9, 11}
	n, err := g.NumGlyphs()
	env.Require().NoError(err)
	env.Equal(len(old), n)
	glyphs, err := g.glyphData()
	env.Require().NoError(err)
	env.Require().Len(glyphs, len(old))
	for gid, glyph := range glyphs {
		env.NotEmpty(glyph, "glyph %d", gid)
	}
	vm, err := VerticalMetrics(g)
	env.Require().NoError(err)
	env.Require().Len(vm, len(old))
	for gid, o := range old {
		adv, tsb := testSpec.VerticalMetric(o)
		env.Equal(VerticalMetric{AdvanceHeight: adv, TopSideBearing: tsb}, vm[gid], "glyph %d (was %d)", gid, o)
	}
	hm, err := g.readMetrics(tagHhea, tagHmtx)
	env.Require().NoError(err)
	env.Len(hm, len(old))
	post := g.Table(tagPost)
	env.Equal(uint32(postVersion3), u32(post))
	env.Len(post, postHeaderSize)
	env.Less(len(g.Table(tagGlyf)), len(loadTrueType(env.T()).Table(tagGlyf)))
}

func (env *SubsetTestEnviron) TestCompositeClosure() {
	req := env.req
	req.Runes = []rune{'C'}
	g := env.subset(loadTrueType(env.T()), req)
	glyphs, err := g.glyphData()
	env.Require().NoError(err)
	env.Require().Len(glyphs, 4, "0, 'C' and its components")
	env.Equal([]uint16{2, 3}, components(glyphs[1]))
	env.NotEmpty(glyphs[2])
	env.NotEmpty(glyphs[3])
}

func (env *SubsetTestEnviron) TestInstructionsStripped() {
	g := env.subset(loadTrueType(env.T()), env.req)
	glyphs, err := g.glyphData()
	env.Require().NoError(err)
	simple := glyphs[1]
	env.Equal(uint16(0), u16(simple[glyphHeaderSize+2:]), "instructionLength")
	orig := testSpec.GlyphData(1)
	env.Equal(orig[16:], simple[14:14+len(orig)-16], "flags and coordinates follow")
	for _, tag := range []string{"fpgm", "prep", "cvt ", "gasp", "DSIG"} {
		env.False(g.HasTable(T(tag)), "table %q should be dropped", tag)
	}
	env.Equal(int16(0), i16(g.Table(tagHead)[50:]), "short loca")
}

func (env *SubsetTestEnviron) TestHintingKept() {
	req := env.req
	req.Hinting = true
	req.DropTables = nil
	g := env.subset(loadTrueType(env.T()), req)
	glyphs, err := g.glyphData()
	env.Require().NoError(err)
	env.Equal(testSpec.GlyphData(1), glyphs[1])
	env.True(g.HasTable(T("fpgm")))
	env.False(g.HasTable(tagDSIG))
}

func (env *SubsetTestEnviron) TestFeaturesDropped() {
	g := env.subset(loadTrueType(env.T()), env.req)
	gsub, err := g.LayoutFeatures(tagGSUB)
	env.Require().NoError(err)
	env.Equal(map[string]int{"liga": 1, "locl": 0, "vert": 1}, gsub)
	gpos, err := g.LayoutFeatures(tagGPOS)
	env.Require().NoError(err)
	env.Equal(map[string]int{"kern": 1, "locl": 0}, gpos)
}

func (env *SubsetTestEnviron) TestNoFeaturesDropped() {
	req := env.req
	req.DropFeatures = nil
	g := env.subset(loadTrueType(env.T()), req)
	glyphs, err := g.glyphData()
	env.Require().NoError(err)
	env.Require().Len(glyphs, 7)
	env.NotEmpty(glyphs[5], "'locl' substitution of 'A' is retained")
	// lookups are ordered by feature tag: liga, locl, vert
	subs := env.lookup(g, tagGSUB, 1)
	env.Require().Len(subs, 1)
	single, ok := subs[0].(tables.SingleSubs)
	env.Require().True(ok)
	data, ok := single.Data.(tables.SingleSubstData2)
	env.Require().True(ok)
	env.Equal([]uint16{1}, coverageGlyphs(data.Coverage))
	env.Equal([]uint16{5}, data.SubstituteGlyphIDs)
}

func (env *SubsetTestEnviron) TestGSUBRemapped() {
	g := env.subset(loadTrueType(env.T()), env.req)
	subs := env.lookup(g, tagGSUB, 0)
	env.Require().Len(subs, 1)
	liga, ok := subs[0].(tables.LigatureSubs)
	env.Require().True(ok)
	env.Equal([]uint16{1}, coverageGlyphs(liga.Coverage))
	env.Require().Len(liga.LigatureSets, 1)
	env.Require().Len(liga.LigatureSets[0].Ligatures, 1)
	env.Equal(uint16(5), liga.LigatureSets[0].Ligatures[0].LigatureGlyph)
	env.Equal([]uint16{2}, liga.LigatureSets[0].Ligatures[0].ComponentGlyphIDs)
	env.Empty(env.lookup(g, tagGSUB, 1), "'locl' output is not retained")
	subs = env.lookup(g, tagGSUB, 2)
	env.Require().Len(subs, 1)
	vert, ok := subs[0].(tables.SingleSubs)
	env.Require().True(ok)
	data, ok := vert.Data.(tables.SingleSubstData2)
	env.Require().True(ok)
	env.Equal([]uint16{3}, coverageGlyphs(data.Coverage))
	env.Equal([]uint16{4}, data.SubstituteGlyphIDs)
}

func (env *SubsetTestEnviron) TestGPOSRemapped() {
	g := env.subset(loadTrueType(env.T()), env.req)
	subs := env.lookup(g, tagGPOS, 0)
	env.Require().Len(subs, 1)
	kern, ok := subs[0].(tables.SinglePos)
	env.Require().True(ok)
	data, ok := kern.Data.(tables.SinglePosData1)
	env.Require().True(ok)
	env.Equal([]uint16{1, 2, 3}, coverageGlyphs(data.Cov()))
	env.Equal(tables.XAdvance, data.ValueFormat)
	env.Equal(int16(-50), data.ValueRecord.XAdvance)
}

func (env *SubsetTestEnviron) TestKernRemapped() {
	spec := testSpec
	spec.ExtraTables = map[string][]byte{
		"kern": kernTable([]tables.Kernx0Record{
			{Left: 1, Right: 2, Value: -80},
			{Left: 1, Right: 5, Value: -30},
			{Left: 2, Right: 4, Value: -40},
			{Left: 4, Right: 9, Value: -10},
		}),
	}
	f, err := Parse(sfnttest.TrueType(spec), 0)
	env.Require().NoError(err)
	g := env.subset(f, env.req)
	kern, _, err := tables.ParseKern(g.Table(tagKern))
	env.Require().NoError(err)
	env.Require().Len(kern.Tables, 1)
	header, ok := kern.Tables[0].(tables.OTKernSubtableHeader)
	env.Require().True(ok)
	pairs, ok := header.Data().(tables.KernData0)
	env.Require().True(ok)
	env.Equal([]tables.Kernx0Record{
		{Left: 1, Right: 2, Value: -80},
		{Left: 2, Right: 3, Value: -40},
		{Left: 3, Right: 4, Value: -10},
	}, pairs.Pairs, "pair with 'い' is dropped")
}

func (env *SubsetTestEnviron) TestEmptySubset() {
	req := env.req
	req.Runes = nil
	g := env.subset(loadTrueType(env.T()), req)
	n, err := g.NumGlyphs()
	env.Require().NoError(err)
	env.Equal(1, n, ".notdef only")
	m, err := g.RuneMap()
	env.Require().NoError(err)
	env.Empty(m)
	os2 := g.Table(tagOS2)
	env.Equal(uint16(0xFFFF), u16(os2[os2FirstCharIndex:]))
	env.Equal(uint16(0), u16(os2[os2LastCharIndex:]))
}

func (env *SubsetTestEnviron) TestCFF() {
	f := loadCFF(env.T())
	orig, err := cff.Parse(f.Table(tagCFF))
	env.Require().NoError(err)
	g := env.subset(f, env.req)
	font, err := cff.Parse(g.Table(tagCFF))
	env.Require().NoError(err)
	old := []uint16{0, 1, 2, 4, 9, 11}
	env.Require().Len(font.Charstrings, len(old))
	for gid, o := range old {
		want, _, err := orig.LoadGlyph(o)
		env.Require().NoError(err)
		got, _, err := font.LoadGlyph(uint16(gid))
		env.Require().NoError(err)
		env.Equal(want, got, "outline of glyph %d (was %d)", gid, o)
	}
	n, err := g.NumGlyphs()
	env.Require().NoError(err)
	env.Equal(len(old), n)
	m, err := g.RuneMap()
	env.Require().NoError(err)
	env.Equal(map[rune]uint16{'A': 1, 'B': 2, 'あ': 3}, m)
}

func (env *SubsetTestEnviron) TestCFFWithoutDesubroutinize() {
	f := loadCFF(env.T())
	orig := f.Table(tagCFF)
	req := env.req
	req.Desubroutinize = false
	g := env.subset(f, req)
	env.Equal(orig, g.Table(tagCFF))
	m, err := g.RuneMap()
	env.Require().NoError(err)
	env.Equal(map[rune]uint16{'A': 1, 'B': 2, 'あ': 4}, m, "glyph ids are kept")
}

func (env *SubsetTestEnviron) TestCFF2Rejected() {
	f := loadCFF(env.T())
	f.SetTable(tagCFF2, []byte{2, 0, 5, 0, 0})
	env.Error(Subset(f, env.req))
}

func (env *SubsetTestEnviron) TestSubsetsAreIndependent() {
	f := loadTrueType(env.T())
	a, b := f.Clone(), f.Clone()
	env.Require().NoError(Subset(a, env.req))
	req := env.req
	req.Runes = []rune{'い'}
	env.Require().NoError(Subset(b, req))
	ma, _ := a.RuneMap()
	mb, _ := b.RuneMap()
	env.Len(ma, 3)
	env.Equal(map[rune]uint16{'い': 1}, mb)
	mf, _ := f.RuneMap()
	env.Len(mf, len(testSpec.Runes), "original is untouched")
}

// kernTable writes a Microsoft 'kern' table with a single format 0 subtable.
// Pairs must be sorted.
func kernTable(pairs []tables.Kernx0Record) []byte {
	n := len(pairs)
	b := appendU16(appendU16(nil, 0), 1)
	b = appendU16(b, 0)
	b = appendU16(b, uint16(14+6*n))
	b = appendU16(b, 1) // horizontal
	b = appendU16(b, uint16(n))
	b = appendU16(b, 24) // searchRange for 4 pairs
	b = appendU16(b, 2)
	b = appendU16(b, uint16(6*n-24))
	for _, p := range pairs {
		b = appendU16(b, p.Left)
		b = appendU16(b, p.Right)
		b = appendU16(b, uint16(p.Value))
	}
	return b
}
