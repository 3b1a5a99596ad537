/*
Package sfnt is a font table editor for OpenType and TrueType fonts.

It is not a general purpose font library. Table parsing is left to
github.com/go-text/typesetting and table encoding, where a ready encoder
exists, to seehuhn.de/go/sfnt. This package implements the handful of editing
operations needed to turn a font into a webfont subset:

▪︎ loading a face from a font file or collection into an editable table map,

▪︎ subsetting to a set of codepoints (see Subset),

▪︎ reading and rewriting 'name' records,

▪︎ reading and writing vertical metrics,

▪︎ serializing to SFNT, WOFF or WOFF2.

A Font is a plain value: a scaler type and a map from table tags to table
bytes. Editing operations replace whole tables. A Font must not be shared
between goroutines while it is being edited; use Clone to hand out copies.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package sfnt

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/go-text/typesetting/font/opentype"
	"github.com/npillmayer/fontpack/internal/fontload"
	"github.com/npillmayer/schuko/tracing"
	"seehuhn.de/go/sfnt/header"
)

// tracer traces with key 'fontpack.fonts'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.fonts")
}

// Tag is a 4-byte OpenType table tag.
type Tag = opentype.Tag

// T returns a Tag from a (4-letter) string.
// If t is shorter or longer, it will be silently extended or cut as appropriate
func T(t string) Tag {
	t = (t + "    ")[:4]
	return opentype.NewTag(t[0], t[1], t[2], t[3])
}

var (
	tagHead = T("head")
	tagMaxp = T("maxp")
	tagCmap = T("cmap")
	tagName = T("name")
	tagOS2  = T("OS/2")
	tagGlyf = T("glyf")
	tagLoca = T("loca")
	tagCFF  = T("CFF ")
	tagCFF2 = T("CFF2")
	tagGSUB = T("GSUB")
	tagGPOS = T("GPOS")
	tagVhea = T("vhea")
	tagVmtx = T("vmtx")
	tagHhea = T("hhea")
	tagHmtx = T("hmtx")
	tagPost = T("post")
	tagKern = T("kern")
	tagGDEF = T("GDEF")
	tagDSIG = T("DSIG")
)

// Scaler types of an SFNT header.
var (
	ScalerTrueType = opentype.TrueType
	ScalerCFF      = opentype.OpenType
)

// Font is an editable font: a scaler type and its tables.
type Font struct {
	Scaler Tag
	tables map[Tag][]byte
}

// Load loads face number `face` of a font file. Collections (TTC), plain
// SFNT files and WOFF files are accepted.
func Load(path string, face int) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, face)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse reads face number `face` from font data.
func Parse(data []byte, face int) (*Font, error) {
	sf, err := fontload.ParseOpenTypeFont(data, face)
	if err != nil {
		return nil, err
	}
	f := &Font{
		Scaler: sf.Loader.Type,
		tables: make(map[Tag][]byte),
	}
	for _, tag := range sf.Loader.Tables() {
		raw, err := sf.Loader.RawTable(tag)
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", tag, err)
		}
		f.tables[tag] = bytes.Clone(raw)
	}
	tracer().Debugf("loaded font %q (face %d) with %d tables", sf.Fontname, face, len(f.tables))
	return f, nil
}

// New creates a font from a set of tables. Tables are not copied.
func New(scaler Tag, tables map[Tag][]byte) *Font {
	f := &Font{Scaler: scaler, tables: make(map[Tag][]byte, len(tables))}
	for tag, data := range tables {
		f.tables[tag] = data
	}
	return f
}

// Clone returns a deep copy of f.
func (f *Font) Clone() *Font {
	c := &Font{Scaler: f.Scaler, tables: make(map[Tag][]byte, len(f.tables))}
	for tag, data := range f.tables {
		c.tables[tag] = bytes.Clone(data)
	}
	return c
}

// Table returns the bytes of a table, or nil if the font lacks it.
// The returned slice must not be modified.
func (f *Font) Table(tag Tag) []byte {
	return f.tables[tag]
}

// HasTable reports whether f contains a table.
func (f *Font) HasTable(tag Tag) bool {
	_, ok := f.tables[tag]
	return ok
}

// SetTable replaces or adds a table.
func (f *Font) SetTable(tag Tag, data []byte) {
	f.tables[tag] = data
}

// DropTable removes a table, if present.
func (f *Font) DropTable(tag Tag) {
	delete(f.tables, tag)
}

// Tags returns the tags of all tables, sorted.
func (f *Font) Tags() []Tag {
	tags := make([]Tag, 0, len(f.tables))
	for tag := range f.tables {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// NumGlyphs returns the glyph count from table 'maxp'.
func (f *Font) NumGlyphs() (int, error) {
	maxp := f.tables[tagMaxp]
	if len(maxp) < 6 {
		return 0, errTable(tagMaxp, "header", "table missing or too short")
	}
	return int(u16(maxp[4:])), nil
}

// IsCFF reports whether f has PostScript outlines.
func (f *Font) IsCFF() bool {
	return f.HasTable(tagCFF) || f.HasTable(tagCFF2)
}

const (
	sfntHeaderSize   = 12
	tableRecordSize  = 16
	headAdjustOffset = 8
)

// Bytes serializes f to an SFNT binary. Tables are 4-byte aligned and zero
// padded. Table checksums and the checksum adjustment of table 'head' are
// recomputed.
func (f *Font) Bytes() []byte {
	tables := make(map[string][]byte, len(f.tables))
	for tag, data := range f.tables {
		if data == nil {
			data = []byte{}
		}
		tables[tag.String()] = data
	}
	if head, ok := tables["head"]; ok {
		// header.Write patches checkSumAdjustment in place
		head = bytes.Clone(head)
		if len(head) < headAdjustOffset+4 {
			head = append(head, make([]byte, headAdjustOffset+4-len(head))...)
		}
		tables["head"] = head
	}
	var buf bytes.Buffer
	if _, err := header.Write(&buf, uint32(f.Scaler), tables); err != nil {
		tracer().Errorf("serializing font: %v", err)
	}
	return buf.Bytes()
}
