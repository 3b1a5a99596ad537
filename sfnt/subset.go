package sfnt

import (
	"slices"
)

// Tables dropped from webfonts unless configured otherwise.
var DefaultDropTables = []string{
	"FFTM", "PfEd", "TeX", "BDF", "cvt", "fpgm", "prep", "gasp", "VORG",
	"CBDT", "CBLC", "sbix", "EBDT", "EBLC", "EBSC",
}

// Layout features dropped from webfonts unless configured otherwise.
var DefaultDropFeatures = []string{"rvrn", "locl"}

// hintingTables are removed whenever hinting is not requested.
var hintingTables = []string{"cvt", "fpgm", "prep", "hdmx", "LTSH", "VDMX"}

// Request configures Subset.
type Request struct {
	Runes          []rune   // codepoints to retain
	DropFeatures   []string // GSUB/GPOS feature tags to disable
	Hinting        bool     // keep TrueType instructions and hinting tables
	Desubroutinize bool     // rewrite CFF outlines without subroutines, dropping unused glyphs
	DropTables     []string // table tags to remove
}

// Subset reduces f to the glyphs needed for req.Runes. The retained set
// consists of
//
// ▪︎ glyph 0,
//
// ▪︎ the glyphs mapped from requested codepoints,
//
// ▪︎ the glyphs reachable from those through GSUB lookups of features not
// dropped,
//
// ▪︎ the components of retained composite glyphs.
//
// Retained glyphs are renumbered consecutively, keeping their order. Tables
// indexed by glyph id are rewritten for the new ids: outlines, metrics,
// 'kern', 'GSUB', 'GPOS' and 'GDEF'. Glyph names are dropped ('post' format
// 3), as are tables we do not know how to renumber.
//
// A font with CFF outlines is only reduced if req.Desubroutinize is set;
// otherwise glyph ids and table 'CFF ' are kept as they are. CFF2 fonts are
// not supported. The character map is rebuilt for the requested codepoints
// only.
func Subset(f *Font, req Request) error {
	if f.HasTable(tagCFF2) {
		return errTable(tagCFF2, "header", "variable CFF2 outlines are not supported")
	}
	n, err := f.NumGlyphs()
	if err != nil {
		return err
	}
	runes, err := f.RuneMap()
	if err != nil {
		return err
	}
	keep := map[uint16]bool{0: true}
	mapped := make(map[rune]uint16, len(req.Runes))
	for _, r := range req.Runes {
		if gid, ok := runes[r]; ok && int(gid) < n {
			keep[gid] = true
			mapped[r] = gid
		}
	}
	dropped := make(map[string]bool, len(req.DropFeatures))
	for _, feat := range req.DropFeatures {
		dropped[feat] = true
	}
	if err := f.gsubClosure(keep, dropped); err != nil {
		return err
	}
	var glyphs [][]byte
	if f.HasTable(tagGlyf) {
		if glyphs, err = f.glyphData(); err != nil {
			return err
		}
		compositeClosure(glyphs, keep)
	}
	for gid := range keep {
		if int(gid) >= n {
			delete(keep, gid)
		}
	}
	for _, table := range []Tag{tagGSUB, tagGPOS} {
		count, err := f.dropFeatures(table, dropped)
		if err != nil {
			return err
		}
		if count > 0 {
			tracer().Debugf("%s: disabled %d feature records", table, count)
		}
	}
	if f.HasTable(tagCFF) && !req.Desubroutinize {
		tracer().Debugf("subset: keeping CFF outlines and glyph ids")
	} else {
		gm := newGlyphMap(keep)
		if glyphs != nil {
			if err := f.rewriteGlyf(glyphs, gm, !req.Hinting); err != nil {
				return err
			}
		}
		if f.HasTable(tagCFF) {
			if err := f.rewriteCFF(gm.old); err != nil {
				return err
			}
		}
		if err := f.remapGlyphs(gm); err != nil {
			return err
		}
		for r, gid := range mapped {
			mapped[r], _ = gm.get(gid)
		}
	}
	f.SetTable(tagCmap, encodeCmap(mapped))
	f.updateCharIndex(mapped)
	drop := slices.Clone(req.DropTables)
	if !req.Hinting {
		drop = append(drop, hintingTables...)
	}
	drop = append(drop, "DSIG")
	for _, t := range drop {
		f.DropTable(T(t))
	}
	tracer().Debugf("subset: %d of %d codepoints mapped, %d of %d glyphs retained",
		len(mapped), len(req.Runes), len(keep), n)
	return nil
}

const (
	os2FirstCharIndex = 64
	os2LastCharIndex  = 66
)

// updateCharIndex sets 'OS/2' usFirstCharIndex and usLastCharIndex. An empty
// map gives 0xFFFF and 0.
func (f *Font) updateCharIndex(m map[rune]uint16) {
	os2 := f.Table(tagOS2)
	if len(os2) < os2LastCharIndex+2 {
		return
	}
	first, last := rune(0xFFFF), rune(0)
	for r := range m {
		first, last = min(first, r), max(last, r)
	}
	os2 = append([]byte(nil), os2...)
	putU16(os2[os2FirstCharIndex:], uint16(min(first, 0xFFFF)))
	putU16(os2[os2LastCharIndex:], uint16(min(last, 0xFFFF)))
	f.SetTable(tagOS2, os2)
}
