package sfnt

import (
	"slices"
	"unicode"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyph"
)

// CharMap returns the best Unicode character map of f.
func (f *Font) CharMap() (font.Cmap, error) {
	data := f.Table(tagCmap)
	if data == nil {
		return nil, errTable(tagCmap, "header", "font has no cmap table")
	}
	cmap, _, err := tables.ParseCmap(data)
	if err != nil {
		return nil, err
	}
	cm, _, err := font.ProcessCmap(cmap, tables.FPNone)
	if err != nil {
		return nil, err
	}
	return cm, nil
}

// RuneMap returns the mapping of codepoints to glyph ids of f's best
// Unicode character map. Mappings to glyph 0 are omitted.
func (f *Font) RuneMap() (map[rune]uint16, error) {
	cm, err := f.CharMap()
	if err != nil {
		return nil, err
	}
	m := make(map[rune]uint16)
	it := cm.Iter()
	for it.Next() {
		r, gid := it.Char()
		if gid != 0 && gid <= 0xFFFF {
			m[r] = uint16(gid)
		}
	}
	return m, nil
}

// ReverseRuneMap maps each glyph id to the lowest codepoint mapped to it.
func ReverseRuneMap(m map[rune]uint16) map[uint16]rune {
	rev := make(map[uint16]rune, len(m))
	for r, gid := range m {
		if prev, ok := rev[gid]; !ok || r < prev {
			rev[gid] = r
		}
	}
	return rev
}

// Unicode encodings of platform 3 (Windows).
const (
	encodingUnicodeBMP  = 1
	encodingUnicodeFull = 10
)

// maxFormat4Length is the largest subtable a format 4 length field can
// describe.
const maxFormat4Length = 0xFFFF

// encodeCmap builds a 'cmap' table for m with a format 4 subtable for the
// BMP (platform 3, encoding 1). If m maps supplementary codepoints, or the
// BMP part of m does not fit into format 4, a format 12 subtable with the
// complete mapping (platform 3, encoding 10) is added and format 4 keeps the
// lowest BMP codepoints it can hold. U+FFFF and mappings to glyph 0 are
// left out.
func encodeCmap(m map[rune]uint16) []byte {
	runes := make([]rune, 0, len(m))
	for r, gid := range m {
		if gid != 0 && r != 0xFFFF && r >= 0 && r <= unicode.MaxRune {
			runes = append(runes, r)
		}
	}
	slices.Sort(runes)
	bmp := runes
	for len(bmp) > 0 && bmp[len(bmp)-1] > 0xFFFF {
		bmp = bmp[:len(bmp)-1]
	}
	sub4, n := encodeFormat4(bmp, m)
	table := cmap.Table{
		{PlatformID: uint16(PlatformIDWindows), EncodingID: encodingUnicodeBMP}: sub4,
	}
	if n < len(bmp) {
		tracer().Infof("cmap: format 4 subtable holds %d of %d BMP codepoints", n, len(bmp))
	}
	if n < len(runes) {
		sub12 := make(cmap.Format12, len(runes))
		for _, r := range runes {
			sub12[uint32(r)] = glyph.ID(m[r])
		}
		table[cmap.Key{PlatformID: uint16(PlatformIDWindows), EncodingID: encodingUnicodeFull}] = sub12.Encode(0)
	}
	return table.Encode()
}

// encodeFormat4 encodes the longest prefix of the sorted BMP codepoints bmp
// which fits into a format 4 subtable. It returns the subtable and the
// length of the prefix.
func encodeFormat4(bmp []rune, m map[rune]uint16) ([]byte, int) {
	if data, ok := format4(bmp, m); ok {
		return data, len(bmp)
	}
	lo, hi := 0, len(bmp) // bmp[:lo] fits, bmp[:hi] does not
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if _, ok := format4(bmp[:mid], m); ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	data, _ := format4(bmp[:lo], m)
	return data, lo
}

// format4 encodes a format 4 subtable for runes and reports whether its
// size stays within the 16-bit length field.
func format4(runes []rune, m map[rune]uint16) (data []byte, ok bool) {
	defer func() {
		// the encoder panics if glyphIdArray offsets overflow
		if recover() != nil {
			data, ok = nil, false
		}
	}()
	sub := make(cmap.Format4, len(runes))
	for _, r := range runes {
		sub[uint16(r)] = glyph.ID(m[r])
	}
	data = sub.Encode(0)
	return data, len(data) <= maxFormat4Length
}
