/*
Package sfnttest builds small synthetic fonts for tests.

The fonts are complete enough to be loaded by github.com/go-text/typesetting
and to exercise every editing operation of package sfnt: character maps,
composite glyphs, hinting instructions, CFF subroutines, GSUB and GPOS
features, name records and vertical metrics.

Glyph 0 is .notdef. Glyph i+1 is mapped from Spec.Runes[i]. Unmapped glyphs
follow the mapped ones.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package sfnttest

import (
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"
)

// Spec describes a synthetic font.
type Spec struct {
	Family        string
	Runes         []rune
	Unmapped      int
	Composite     map[uint16][]uint16          // composite glyph → components (TrueType only)
	Substitutions map[string]map[uint16]uint16 // feature tag → single substitutions
	Ligatures     map[uint16][]uint16          // ligature glyph → components, feature 'liga'
	Vertical      bool                         // add 'vhea' and 'vmtx'
	VerticalBase  uint16                       // advance height of glyph 0
	ExtraTables   map[string][]byte
}

// NumGlyphs is the glyph count of the font built from s.
func (s Spec) NumGlyphs() int {
	return 1 + len(s.Runes) + s.Unmapped
}

// VerticalMetric is the 'vmtx' entry written for a glyph.
func (s Spec) VerticalMetric(gid uint16) (advance uint16, tsb int16) {
	return s.VerticalBase + gid, int16(gid)
}

// Glyph returns the glyph id mapped from r, or 0.
func (s Spec) Glyph(r rune) uint16 {
	for i, x := range s.Runes {
		if x == r {
			return uint16(i + 1)
		}
	}
	return 0
}

// Names used for the name records.
const (
	Copyright = "Copyright (c) fontpack test"
	Subfamily = "Regular"
	Version   = "Version 1.000"
)

// TrueType builds a font with TrueType outlines. It carries hinting tables
// and instructions in every glyph.
func TrueType(s Spec) []byte {
	n := s.NumGlyphs()
	glyf, loca := glyphs(s)
	tables := s.common(maxp10(n))
	tables["glyf"] = glyf
	tables["loca"] = loca
	tables["fpgm"] = []byte{0xB0, 0x00, 0x2C, 0x00} // PUSHB 0, FDEF
	tables["prep"] = []byte{0xB0, 0x01}
	tables["cvt "] = []byte{0, 0, 0, 100}
	tables["gasp"] = []byte{0, 1, 0, 1, 0xFF, 0xFF, 0, 0x0F}
	return assemble(0x00010000, tables)
}

// CFF builds a font with a 'CFF ' table. Every charstring calls a local and
// a global subroutine; glyph 1 also carries a hint mask.
func CFF(s Spec) []byte {
	tables := s.common(maxp05(s.NumGlyphs()))
	tables["CFF "] = cffTable(s)
	return assemble(0x4F54544F, tables)
}

func (s Spec) common(maxp []byte) map[string][]byte {
	n := s.NumGlyphs()
	tables := map[string][]byte{
		"head": head(),
		"hhea": hhea(n),
		"hmtx": hmtx(n),
		"maxp": maxp,
		"OS/2": os2(s.Runes),
		"post": post(),
		"name": name(s.Family),
		"cmap": cmap(s.Runes),
		"GPOS": gpos(s),
		"DSIG": {0, 0, 0, 1, 0, 0, 0, 0},
	}
	if gsub := gsub(s); gsub != nil {
		tables["GSUB"] = gsub
	}
	if s.Vertical {
		tables["vhea"] = vhea(n)
		tables["vmtx"] = s.vmtx()
	}
	for tag, data := range s.ExtraTables {
		tables[tag] = data
	}
	return tables
}

// --- Binary helpers --------------------------------------------------------

type buf []byte

func (b buf) u16(v uint16) buf { return binary.BigEndian.AppendUint16(b, v) }
func (b buf) i16(v int16) buf  { return b.u16(uint16(v)) }
func (b buf) u32(v uint32) buf { return binary.BigEndian.AppendUint32(b, v) }
func (b buf) tag(t string) buf { return append(b, (t + "    ")[:4]...) }

func putU16(b []byte, at int, v uint16) {
	binary.BigEndian.PutUint16(b[at:], v)
}

func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}

// assemble writes an SFNT with tables sorted by tag.
func assemble(scaler uint32, tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	n := len(tags)
	sel := 0
	for 1<<(sel+1) <= n {
		sel++
	}
	out := buf(nil).u32(scaler).u16(uint16(n)).u16(uint16(16 << sel)).u16(uint16(sel)).u16(uint16(16*n - 16<<sel))
	offset := 12 + 16*n
	var body []byte
	for _, tag := range tags {
		data := tables[tag]
		out = out.tag(tag).u32(checksum(data)).u32(uint32(offset + len(body))).u32(uint32(len(data)))
		body = append(body, data...)
		for len(body)%4 != 0 {
			body = append(body, 0)
		}
	}
	return append(out, body...)
}

// --- Tables ----------------------------------------------------------------

func head() []byte {
	b := make([]byte, 54)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	binary.BigEndian.PutUint32(b[4:], 0x00010000)
	binary.BigEndian.PutUint32(b[12:], 0x5F0F3CF5)
	putU16(b, 16, 0x000B)
	putU16(b, 18, 1000)
	putU16(b, 40, 500)
	putU16(b, 42, 500)
	putU16(b, 48, 2)
	putU16(b, 50, 1) // long loca
	return b
}

func hhea(n int) []byte {
	b := make([]byte, 36)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	putU16(b, 4, 800)
	putU16(b, 6, uint16(0xFFFF-199)) // -200
	putU16(b, 10, 1000)
	putU16(b, 16, 500)
	putU16(b, 18, 1)
	putU16(b, 34, uint16(n))
	return b
}

func hmtx(n int) []byte {
	var b buf
	for range n {
		b = b.u16(1000).i16(0)
	}
	return b
}

func maxp10(n int) []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	putU16(b, 4, uint16(n))
	putU16(b, 6, 4)  // maxPoints
	putU16(b, 8, 1)  // maxContours
	putU16(b, 14, 2) // maxZones
	return b
}

func maxp05(n int) []byte {
	return buf(nil).u32(0x00005000).u16(uint16(n))
}

func os2(runes []rune) []byte {
	b := make([]byte, 96)
	putU16(b, 0, 4)
	putU16(b, 2, 1000)
	putU16(b, 4, 400)
	putU16(b, 6, 5)
	copy(b[58:], "TEST")
	putU16(b, 62, 0x40)
	first, last := rune(0xFFFF), rune(0)
	for _, r := range runes {
		first, last = min(first, r), max(last, r)
	}
	if len(runes) == 0 {
		first = 0
	}
	putU16(b, 64, uint16(min(first, 0xFFFF)))
	putU16(b, 66, uint16(min(last, 0xFFFF)))
	putU16(b, 68, 800)
	return b
}

func post() []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint32(b[0:], 0x00030000)
	return b
}

type nameRecord struct {
	platform, encoding, language, id uint16
	value                            []byte
}

func utf16be(s string) []byte {
	var b buf
	for _, u := range utf16.Encode([]rune(s)) {
		b = b.u16(u)
	}
	return b
}

// name writes records for platform 3 (English and Japanese) and for the
// Macintosh platform. The Japanese family name is kept in UTF-16.
func name(family string) []byte {
	ps := strings.ReplaceAll(family, " ", "")
	strs := map[uint16]string{
		0:  Copyright,
		1:  family,
		2:  Subfamily,
		3:  family + ";1.000",
		4:  family + " " + Subfamily,
		5:  Version,
		6:  ps + "-" + Subfamily,
		16: family,
	}
	var recs []nameRecord
	for _, id := range []uint16{1, 2, 4} {
		recs = append(recs, nameRecord{1, 0, 0, id, []byte(strs[id])})
	}
	for _, id := range []uint16{0, 1, 2, 3, 4, 5, 6, 16} {
		recs = append(recs, nameRecord{3, 1, 0x409, id, utf16be(strs[id])})
	}
	recs = append(recs, nameRecord{3, 1, 0x411, 1, utf16be(family + "ゴシック")})
	recs = append(recs, nameRecord{3, 1, 0x411, 2, utf16be("標準")})
	header := buf(nil).u16(0).u16(uint16(len(recs))).u16(uint16(6 + 12*len(recs)))
	var storage []byte
	for _, r := range recs {
		header = header.u16(r.platform).u16(r.encoding).u16(r.language).u16(r.id).
			u16(uint16(len(r.value))).u16(uint16(len(storage)))
		storage = append(storage, r.value...)
	}
	return append(header, storage...)
}

func cmap(runes []rune) []byte {
	type pair struct {
		r   rune
		gid uint16
	}
	var bmp, all []pair
	for i, r := range runes {
		p := pair{r, uint16(i + 1)}
		all = append(all, p)
		if r < 0xFFFF {
			bmp = append(bmp, p)
		}
	}
	less := func(ps []pair) func(i, j int) bool {
		return func(i, j int) bool { return ps[i].r < ps[j].r }
	}
	sort.Slice(bmp, less(bmp))
	sort.Slice(all, less(all))
	segCount := len(bmp) + 1
	sel := 0
	for 1<<(sel+1) <= segCount {
		sel++
	}
	sub4 := buf(nil).u16(4).u16(uint16(16 + 8*segCount)).u16(0).u16(uint16(2 * segCount)).
		u16(uint16(2 << sel)).u16(uint16(sel)).u16(uint16(2*segCount - 2<<sel))
	for _, p := range bmp {
		sub4 = sub4.u16(uint16(p.r))
	}
	sub4 = sub4.u16(0xFFFF).u16(0)
	for _, p := range bmp {
		sub4 = sub4.u16(uint16(p.r))
	}
	sub4 = sub4.u16(0xFFFF)
	for _, p := range bmp {
		sub4 = sub4.u16(p.gid - uint16(p.r))
	}
	sub4 = sub4.u16(1)
	for range segCount {
		sub4 = sub4.u16(0)
	}
	full := len(all) > len(bmp)
	numTables := 1
	if full {
		numTables = 2
	}
	out := buf(nil).u16(0).u16(uint16(numTables))
	out = out.u16(3).u16(1).u32(uint32(4 + 8*numTables))
	if full {
		out = out.u16(3).u16(10).u32(uint32(4 + 8*numTables + len(sub4)))
	}
	out = append(out, sub4...)
	if full {
		out = out.u16(12).u16(0).u32(uint32(16 + 12*len(all))).u32(0).u32(uint32(len(all)))
		for _, p := range all {
			out = out.u32(uint32(p.r)).u32(uint32(p.r)).u32(uint32(p.gid))
		}
	}
	return out
}

// Instructions of every glyph.
var instructions = []byte{0xB0, 0x00} // PUSHB[0] 0

func simpleGlyph() []byte {
	b := buf(nil).i16(1).i16(0).i16(0).i16(500).i16(500)
	b = b.u16(3) // endPtsOfContours
	b = b.u16(uint16(len(instructions)))
	b = append(b, instructions...)
	b = append(b, 1, 1, 1, 1)
	b = b.i16(0).i16(500).i16(0).i16(-500)
	b = b.i16(0).i16(0).i16(500).i16(0)
	return b
}

func compositeGlyph(components []uint16) []byte {
	b := buf(nil).i16(-1).i16(0).i16(0).i16(500).i16(500)
	for i, c := range components {
		flags := uint16(0x0001 | 0x0002) // ARG_1_AND_2_ARE_WORDS, ARGS_ARE_XY_VALUES
		if i < len(components)-1 {
			flags |= 0x0020
		} else {
			flags |= 0x0100
		}
		b = b.u16(flags).u16(c).i16(int16(100 * i)).i16(0)
	}
	b = b.u16(uint16(len(instructions)))
	return append(b, instructions...)
}

// GlyphData is the 'glyf' entry written for gid.
func (s Spec) GlyphData(gid uint16) []byte {
	if comps, ok := s.Composite[gid]; ok {
		return compositeGlyph(comps)
	}
	return simpleGlyph()
}

func glyphs(s Spec) (glyf, loca []byte) {
	var l buf
	for gid := range s.NumGlyphs() {
		l = l.u32(uint32(len(glyf)))
		glyf = append(glyf, s.GlyphData(uint16(gid))...)
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
	}
	return glyf, l.u32(uint32(len(glyf)))
}

func vhea(n int) []byte {
	b := make([]byte, 36)
	binary.BigEndian.PutUint32(b[0:], 0x00011000)
	putU16(b, 4, 500)
	putU16(b, 34, uint16(n))
	return b
}

func (s Spec) vmtx() []byte {
	var b buf
	for gid := range s.NumGlyphs() {
		adv, tsb := s.VerticalMetric(uint16(gid))
		b = b.u16(adv).i16(tsb)
	}
	return b
}

// --- Layout tables ---------------------------------------------------------

type feature struct {
	tag        string
	lookupType uint16
	subtable   []byte
}

func coverage(glyphs []uint16) []byte {
	b := buf(nil).u16(1).u16(uint16(len(glyphs)))
	for _, g := range glyphs {
		b = b.u16(g)
	}
	return b
}

func sortedKeys[V any](m map[uint16]V) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// singleSubst writes a format 2 single substitution.
func singleSubst(m map[uint16]uint16) []byte {
	from := sortedKeys(m)
	b := buf(nil).u16(2).u16(uint16(6 + 2*len(from))).u16(uint16(len(from)))
	for _, g := range from {
		b = b.u16(m[g])
	}
	return append(b, coverage(from)...)
}

// ligatureSubst writes a format 1 ligature substitution with one ligature
// set per first component.
func ligatureSubst(ligs map[uint16][]uint16) []byte {
	byFirst := make(map[uint16][]uint16) // first component → ligature glyphs
	for lig, comps := range ligs {
		byFirst[comps[0]] = append(byFirst[comps[0]], lig)
	}
	firsts := sortedKeys(byFirst)
	headerSize := 6 + 2*len(firsts)
	var sets []byte
	setOffsets := make([]uint16, len(firsts))
	for i, first := range firsts {
		setOffsets[i] = uint16(headerSize + len(sets))
		lg := byFirst[first]
		sort.Slice(lg, func(i, j int) bool { return lg[i] < lg[j] })
		set := buf(nil).u16(uint16(len(lg)))
		var body buf
		for _, l := range lg {
			set = set.u16(uint16(2 + 2*len(lg) + len(body)))
			comps := ligs[l]
			body = body.u16(l).u16(uint16(len(comps)))
			for _, c := range comps[1:] {
				body = body.u16(c)
			}
		}
		sets = append(sets, append(set, body...)...)
	}
	b := buf(nil).u16(1).u16(uint16(headerSize + len(sets))).u16(uint16(len(firsts)))
	for _, off := range setOffsets {
		b = b.u16(off)
	}
	b = append(b, sets...)
	return append(b, coverage(firsts)...)
}

// singlePos writes a format 1 single adjustment of the x advance.
func singlePos(glyphs []uint16, xAdvance int16) []byte {
	b := buf(nil).u16(1).u16(8).u16(0x0004).i16(xAdvance)
	return append(b, coverage(glyphs)...)
}

// layout writes a 'GSUB' or 'GPOS' table with a single DFLT script. Every
// feature gets a lookup of its own.
func layout(features []feature) []byte {
	sort.SliceStable(features, func(i, j int) bool { return features[i].tag < features[j].tag })
	n := len(features)
	// ScriptList: one record, Script, default LangSys
	scripts := buf(nil).u16(1).tag("DFLT").u16(8)
	scripts = scripts.u16(4).u16(0)
	scripts = scripts.u16(0).u16(0xFFFF).u16(uint16(n))
	for i := range features {
		scripts = scripts.u16(uint16(i))
	}
	featureList := buf(nil).u16(uint16(n))
	for i, f := range features {
		featureList = featureList.tag(f.tag).u16(uint16(2 + 6*n + 6*i))
	}
	for i := range features {
		featureList = featureList.u16(0).u16(1).u16(uint16(i))
	}
	lookupList := buf(nil).u16(uint16(n))
	var lookups []byte
	for _, f := range features {
		lookupList = lookupList.u16(uint16(2 + 2*n + len(lookups)))
		lk := buf(nil).u16(f.lookupType).u16(0).u16(1).u16(8)
		lookups = append(lookups, append(lk, f.subtable...)...)
	}
	lookupList = append(lookupList, lookups...)
	out := buf(nil).u32(0x00010000).u16(10).u16(uint16(10 + len(scripts))).
		u16(uint16(10 + len(scripts) + len(featureList)))
	out = append(out, scripts...)
	out = append(out, featureList...)
	return append(out, lookupList...)
}

func gsub(s Spec) []byte {
	var features []feature
	for tag, m := range s.Substitutions {
		features = append(features, feature{tag, 1, singleSubst(m)})
	}
	if len(s.Ligatures) > 0 {
		features = append(features, feature{"liga", 4, ligatureSubst(s.Ligatures)})
	}
	if len(features) == 0 {
		return nil
	}
	return layout(features)
}

func gpos(s Spec) []byte {
	glyphs := make([]uint16, 0, len(s.Runes))
	for i := range s.Runes {
		glyphs = append(glyphs, uint16(i+1))
	}
	sort.Slice(glyphs, func(i, j int) bool { return glyphs[i] < glyphs[j] })
	return layout([]feature{
		{"kern", 1, singlePos(glyphs, -50)},
		{"locl", 1, singlePos(glyphs, 10)},
	})
}

// --- CFF -------------------------------------------------------------------

var (
	localSubr  = []byte{139, 239, 5, 239, 139, 5, 11} // 0 100 rlineto 100 0 rlineto return
	globalSubr = []byte{39, 139, 5, 11}              // -100 0 rlineto return
	// 50 50 rmoveto, call local 0, call global 0, endchar
	plainCharstring = []byte{189, 189, 21, 32, 10, 32, 29, 14}
	// 0 10 hstemhm 0 10 vstemhm hintmask 50 50 rmoveto, call local 0, endchar
	hintedCharstring = []byte{139, 149, 18, 139, 149, 23, 19, 0xC0, 189, 189, 21, 32, 10, 14}
)

// Charstring is the charstring written for gid.
func (s Spec) Charstring(gid uint16) []byte {
	if gid == 1 {
		return hintedCharstring
	}
	return plainCharstring
}

func index(items ...[]byte) []byte {
	if len(items) == 0 {
		return []byte{0, 0}
	}
	size := 1
	for _, it := range items {
		size += len(it)
	}
	offSize := 1
	for size >= 1<<(8*offSize) {
		offSize++
	}
	b := buf(nil).u16(uint16(len(items)))
	b = append(b, byte(offSize))
	off := 1
	for i := 0; i <= len(items); i++ {
		for j := offSize - 1; j >= 0; j-- {
			b = append(b, byte(off>>(8*j)))
		}
		if i < len(items) {
			off += len(items[i])
		}
	}
	for _, it := range items {
		b = append(b, it...)
	}
	return b
}

func dictInt(v int) []byte {
	return buf{29}.u32(uint32(int32(v)))
}

func cffTable(s Spec) []byte {
	n := s.NumGlyphs()
	charset := []byte{0}
	for gid := 1; gid < n; gid++ {
		charset = buf(charset).u16(uint16(gid))
	}
	charstrings := make([][]byte, n)
	for gid := range charstrings {
		charstrings[gid] = s.Charstring(uint16(gid))
	}
	csIndex := index(charstrings...)
	private := append(dictInt(6), 19) // Subrs
	top := func(charsetOff, csOff, privOff int) []byte {
		var d []byte
		d = append(append(d, dictInt(charsetOff)...), 15)
		d = append(append(d, dictInt(csOff)...), 17)
		d = append(append(append(d, dictInt(len(private))...), dictInt(privOff)...), 18)
		return d
	}
	header := []byte{1, 0, 4, 1}
	names := index([]byte(strings.ReplaceAll(s.Family, " ", "")))
	strs := index()
	gsubrs := index(globalSubr)
	pos := len(header) + len(names) + len(index(top(0, 0, 0))) + len(strs) + len(gsubrs)
	charsetOff := pos
	csOff := charsetOff + len(charset)
	privOff := csOff + len(csIndex)
	var out []byte
	out = append(out, header...)
	out = append(out, names...)
	out = append(out, index(top(charsetOff, csOff, privOff))...)
	out = append(out, strs...)
	out = append(out, gsubrs...)
	out = append(out, charset...)
	out = append(out, csIndex...)
	out = append(out, private...)
	return append(out, index(localSubr)...)
}
