package sfnt

import (
	"slices"

	"github.com/go-text/typesetting/font/opentype/tables"
)

// glyphMap assigns compact glyph ids to the retained glyphs. New ids keep
// the order of the old ones; glyph 0 stays glyph 0.
type glyphMap struct {
	old   []uint16          // old glyph id by new id
	index map[uint16]uint16 // new glyph id by old id
}

func newGlyphMap(keep map[uint16]bool) *glyphMap {
	gm := &glyphMap{index: make(map[uint16]uint16, len(keep))}
	for gid := range keep {
		gm.old = append(gm.old, gid)
	}
	slices.Sort(gm.old)
	for n, gid := range gm.old {
		gm.index[gid] = uint16(n)
	}
	return gm
}

// get returns the new id of an old glyph id.
func (gm *glyphMap) get(gid uint16) (uint16, bool) {
	n, ok := gm.index[gid]
	return n, ok
}

func (gm *glyphMap) numGlyphs() int {
	return len(gm.old)
}

// all maps a sequence of glyph ids. It fails if one of them is not retained.
func (gm *glyphMap) all(gids []uint16) ([]uint16, bool) {
	out := make([]uint16, len(gids))
	for i, g := range gids {
		n, ok := gm.index[g]
		if !ok {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// glyphIndexedTables reference glyphs by id in ways we do not rewrite. They
// are dropped when glyph ids are renumbered.
var glyphIndexedTables = []string{
	"hdmx", "LTSH", "VORG", "MATH", "JSTF", "COLR", "SVG", "gvar", "HVAR", "VVAR",
	"EBLC", "EBDT", "EBSC", "CBLC", "CBDT", "sbix", "BASE",
	"morx", "mort", "kerx", "feat", "ankr", "opbd", "lcar", "prop", "just", "trak",
}

// remapGlyphs renumbers the glyph ids of every table indexed by glyph id,
// except for the outline tables and 'cmap'.
func (f *Font) remapGlyphs(gm *glyphMap) error {
	for _, metrics := range [][2]Tag{{tagHhea, tagHmtx}, {tagVhea, tagVmtx}} {
		if !f.HasTable(metrics[0]) || !f.HasTable(metrics[1]) {
			continue
		}
		if err := f.remapMetrics(metrics[0], metrics[1], gm); err != nil {
			return err
		}
	}
	if err := f.remapKern(gm); err != nil {
		return err
	}
	for _, table := range []Tag{tagGSUB, tagGPOS} {
		if err := f.remapLayout(table, gm); err != nil {
			return err
		}
	}
	if err := f.remapGDEF(gm); err != nil {
		return err
	}
	f.setPostFormat3()
	for _, t := range glyphIndexedTables {
		if f.HasTable(T(t)) {
			tracer().Debugf("dropping table %s, it is indexed by glyph id", t)
			f.DropTable(T(t))
		}
	}
	return f.setNumGlyphs(gm.numGlyphs())
}

func (f *Font) remapMetrics(hea, mtx Tag, gm *glyphMap) error {
	metrics, err := f.readMetrics(hea, mtx)
	if err != nil {
		return err
	}
	out := make([]longMetric, gm.numGlyphs())
	for n, gid := range gm.old {
		if int(gid) < len(metrics) {
			out[n] = metrics[gid]
		}
	}
	return f.writeMetrics(hea, mtx, out)
}

const maxpNumGlyphs = 4

func (f *Font) setNumGlyphs(n int) error {
	maxp := f.Table(tagMaxp)
	if len(maxp) < maxpNumGlyphs+2 {
		return errTable(tagMaxp, "header", "table missing or too short")
	}
	maxp = append([]byte(nil), maxp...)
	putU16(maxp[maxpNumGlyphs:], uint16(n))
	f.SetTable(tagMaxp, maxp)
	return nil
}

const (
	postHeaderSize = 32
	postVersion3   = 0x00030000
)

// setPostFormat3 drops the glyph names of table 'post'.
func (f *Font) setPostFormat3() {
	post := f.Table(tagPost)
	if len(post) < postHeaderSize {
		return
	}
	if u32(post) == postVersion3 && len(post) == postHeaderSize {
		return
	}
	post = append([]byte(nil), post[:postHeaderSize]...)
	putU32(post, postVersion3)
	f.SetTable(tagPost, post)
}

const (
	kernSubheaderSize = 6
	kernPairsHeader   = 8
	kernPairSize      = 6
)

// remapKern rewrites the format 0 subtables of a Microsoft 'kern' table.
// Pairs with a glyph not retained are removed. Other formats and Apple
// tables are dropped.
func (f *Font) remapKern(gm *glyphMap) error {
	data := f.Table(tagKern)
	if data == nil {
		return nil
	}
	kern, _, err := tables.ParseKern(data)
	if err != nil {
		return errTablef(tagKern, "header", "%v", err)
	}
	if u16(data) != 0 {
		tracer().Infof("dropping Apple kern table")
		f.DropTable(tagKern)
		return nil
	}
	var subtables [][]byte
	for _, sub := range kern.Tables {
		header, ok := sub.(tables.OTKernSubtableHeader)
		if !ok {
			continue
		}
		pairs, ok := header.Data().(tables.KernData0)
		if !ok {
			tracer().Debugf("dropping kern subtable, only format 0 is supported")
			continue
		}
		subtables = append(subtables, encodeKern0(header.Coverage, pairs.Pairs, gm))
	}
	if len(subtables) == 0 {
		f.DropTable(tagKern)
		return nil
	}
	out := appendU16(appendU16(nil, 0), uint16(len(subtables)))
	for _, sub := range subtables {
		out = append(out, sub...)
	}
	f.SetTable(tagKern, out)
	return nil
}

func encodeKern0(coverage byte, pairs []tables.Kernx0Record, gm *glyphMap) []byte {
	kept := make([]tables.Kernx0Record, 0, len(pairs))
	for _, p := range pairs {
		left, okl := gm.get(p.Left)
		right, okr := gm.get(p.Right)
		if okl && okr {
			kept = append(kept, tables.Kernx0Record{Left: left, Right: right, Value: p.Value})
		}
	}
	slices.SortFunc(kept, func(a, b tables.Kernx0Record) int {
		return int(uint32(a.Left)<<16|uint32(a.Right)) - int(uint32(b.Left)<<16|uint32(b.Right))
	})
	n := len(kept)
	length := kernSubheaderSize + kernPairsHeader + kernPairSize*n
	out := make([]byte, 0, length)
	out = appendU16(out, 0)              // version
	out = appendU16(out, uint16(length)) // wraps above 10920 pairs
	out = appendU16(out, uint16(coverage))
	searchRange, entrySelector := 1, 0
	for searchRange*2 <= n {
		searchRange *= 2
		entrySelector++
	}
	if n == 0 {
		searchRange = 0
	}
	out = appendU16(out, uint16(n))
	out = appendU16(out, uint16(kernPairSize*searchRange))
	out = appendU16(out, uint16(entrySelector))
	out = appendU16(out, uint16(kernPairSize*(n-searchRange)))
	for _, p := range kept {
		out = appendU16(out, p.Left)
		out = appendU16(out, p.Right)
		out = appendU16(out, uint16(p.Value))
	}
	return out
}
