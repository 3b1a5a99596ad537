package sfnt

import (
	"bytes"

	"seehuhn.de/go/sfnt/cff"
	"seehuhn.de/go/sfnt/glyph"
)

// rewriteCFF replaces table 'CFF ' by a font holding the glyphs gids, in
// this order. Charstrings are written without subroutines.
func (f *Font) rewriteCFF(gids []uint16) error {
	font, err := cff.Read(bytes.NewReader(f.Table(tagCFF)))
	if err != nil {
		return errTablef(tagCFF, "header", "%v", err)
	}
	n := font.Outlines.NumGlyphs()
	ids := make([]glyph.ID, len(gids))
	for i, gid := range gids {
		if int(gid) >= n {
			return errTablef(tagCFF, "CharStrings", "glyph %d out of range (%d glyphs)", gid, n)
		}
		ids[i] = glyph.ID(gid)
	}
	font.Outlines = font.Outlines.Subset(ids)
	var buf bytes.Buffer
	if err := font.Write(&buf); err != nil {
		return errTablef(tagCFF, "CharStrings", "%v", err)
	}
	tracer().Debugf("CFF: %d of %d glyphs, %d bytes", len(ids), n, buf.Len())
	f.SetTable(tagCFF, buf.Bytes())
	return nil
}
