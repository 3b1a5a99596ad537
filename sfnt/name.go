package sfnt

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

const (
	nameHeaderSize = 6
	nameRecordSize = 12
)

// NameID identifies a name table entry.
type NameID = sfnt.NameID

// PlatformID is the platform of a name record.
type PlatformID uint16

// Platforms
const (
	PlatformIDUnicode   PlatformID = 0
	PlatformIDMacintosh PlatformID = 1
	PlatformIDISO       PlatformID = 2
	PlatformIDWindows   PlatformID = 3
)

// Frequently used encoding and language ids.
const (
	EncodingIDWindowsBMP     uint16 = 1
	LanguageIDWindowsEnglish uint16 = 0x409
)

// NameKey identifies a NameRecord entry in OpenType table 'name'.
// The key follows the OpenType NameRecord fields directly.
type NameKey struct {
	Platform PlatformID
	Encoding uint16
	Language uint16
	Name     NameID
}

// NameRecord is a name record with its raw, encoded string.
type NameRecord struct {
	NameKey
	Value []byte
}

// NameTable is a decoded 'name' table of format 0 or 1.
type NameTable struct {
	Format   uint16
	Records  []NameRecord
	LangTags [][]byte // format 1 only, UTF-16BE
}

// ParseNameTable decodes a 'name' table. Records pointing outside of the
// string storage are an error.
func ParseNameTable(data []byte) (*NameTable, error) {
	if len(data) < nameHeaderSize {
		return nil, errTable(tagName, "header", "table too short")
	}
	nt := &NameTable{Format: u16(data)}
	if nt.Format > 1 {
		return nil, errTablef(tagName, "header", "unsupported format %d", nt.Format)
	}
	count := int(u16(data[2:]))
	storage := int(u16(data[4:]))
	recordsEnd := nameHeaderSize + count*nameRecordSize
	if recordsEnd > len(data) || storage > len(data) {
		return nil, errTablef(tagName, "NameRecord", "%d records out of bounds", count)
	}
	str := func(length, offset int) ([]byte, error) {
		start := storage + offset
		if start+length > len(data) {
			return nil, errTablef(tagName, "storage", "string at %d+%d out of bounds", offset, length)
		}
		return bytes.Clone(data[start : start+length]), nil
	}
	for i := range count {
		rec := data[nameHeaderSize+i*nameRecordSize:]
		value, err := str(int(u16(rec[8:])), int(u16(rec[10:])))
		if err != nil {
			return nil, err
		}
		nt.Records = append(nt.Records, NameRecord{
			NameKey: NameKey{
				Platform: PlatformID(u16(rec[0:])),
				Encoding: u16(rec[2:]),
				Language: u16(rec[4:]),
				Name:     NameID(u16(rec[6:])),
			},
			Value: value,
		})
	}
	if nt.Format == 1 {
		if recordsEnd+2 > len(data) {
			return nil, errTable(tagName, "LangTagRecord", "missing count")
		}
		n := int(u16(data[recordsEnd:]))
		if recordsEnd+2+4*n > len(data) {
			return nil, errTable(tagName, "LangTagRecord", "records out of bounds")
		}
		for i := range n {
			rec := data[recordsEnd+2+4*i:]
			tag, err := str(int(u16(rec[0:])), int(u16(rec[2:])))
			if err != nil {
				return nil, err
			}
			nt.LangTags = append(nt.LangTags, tag)
		}
	}
	return nt, nil
}

// Encode serializes the table. Records are sorted by key, identical strings
// share storage.
func (nt *NameTable) Encode() []byte {
	records := append([]NameRecord(nil), nt.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].NameKey, records[j].NameKey
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.Encoding != b.Encoding {
			return a.Encoding < b.Encoding
		}
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		return a.Name < b.Name
	})
	var storage []byte
	offsets := make(map[string]int)
	add := func(s []byte) int {
		if off, ok := offsets[string(s)]; ok {
			return off
		}
		off := len(storage)
		offsets[string(s)] = off
		storage = append(storage, s...)
		return off
	}
	headerSize := nameHeaderSize + nameRecordSize*len(records)
	if nt.Format == 1 {
		headerSize += 2 + 4*len(nt.LangTags)
	}
	out := make([]byte, 0, headerSize)
	out = appendU16(out, nt.Format)
	out = appendU16(out, uint16(len(records)))
	out = appendU16(out, uint16(headerSize))
	for _, r := range records {
		out = appendU16(out, uint16(r.Platform))
		out = appendU16(out, r.Encoding)
		out = appendU16(out, r.Language)
		out = appendU16(out, uint16(r.Name))
		out = appendU16(out, uint16(len(r.Value)))
		out = appendU16(out, uint16(add(r.Value)))
	}
	if nt.Format == 1 {
		out = appendU16(out, uint16(len(nt.LangTags)))
		for _, tag := range nt.LangTags {
			out = appendU16(out, uint16(len(tag)))
			out = appendU16(out, uint16(add(tag)))
		}
	}
	return append(out, storage...)
}

// Lookup finds the record for a key.
func (nt *NameTable) Lookup(key NameKey) (NameRecord, bool) {
	for _, r := range nt.Records {
		if r.NameKey == key {
			return r, true
		}
	}
	return NameRecord{}, false
}

// SetString replaces the string of every record with name id `id`,
// encoding s as required by each record's platform and encoding.
// It returns the number of records changed.
func (nt *NameTable) SetString(id NameID, s string) (int, error) {
	n := 0
	for i := range nt.Records {
		r := &nt.Records[i]
		if r.Name != id {
			continue
		}
		value, err := encodeName(r.NameKey, s)
		if err != nil {
			return n, fmt.Errorf("name record %v: %w", r.NameKey, err)
		}
		r.Value = value
		n++
	}
	return n, nil
}

// String decodes the record's value.
func (r NameRecord) String() (string, error) {
	enc := nameEncoding(r.NameKey)
	if enc == nil {
		if isASCII(r.Value) {
			return string(r.Value), nil
		}
		return "", fmt.Errorf("unsupported encoding %d/%d", r.Platform, r.Encoding)
	}
	s, err := enc.NewDecoder().Bytes(r.Value)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

func encodeName(key NameKey, s string) ([]byte, error) {
	enc := nameEncoding(key)
	if enc == nil {
		if isASCII([]byte(s)) {
			return []byte(s), nil
		}
		return nil, fmt.Errorf("cannot encode non-ASCII text for encoding %d/%d", key.Platform, key.Encoding)
	}
	return encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// nameEncoding returns the text encoding of a name record, or nil for
// encodings without a codec.
func nameEncoding(key NameKey) encoding.Encoding {
	switch key.Platform {
	case PlatformIDUnicode:
		return utf16be
	case PlatformIDMacintosh:
		switch key.Encoding {
		case 0:
			return charmap.Macintosh
		case 1:
			return japanese.ShiftJIS
		case 2:
			return traditionalchinese.Big5
		case 3:
			return korean.EUCKR
		case 25:
			return simplifiedchinese.GBK
		}
	case PlatformIDISO:
		switch key.Encoding {
		case 1:
			return utf16be
		case 2:
			return charmap.ISO8859_1
		}
	case PlatformIDWindows:
		switch key.Encoding {
		case 0, 1, 10:
			return utf16be
		case 2:
			return japanese.ShiftJIS
		case 3:
			return simplifiedchinese.GBK
		case 4:
			return traditionalchinese.Big5
		case 5:
			return korean.EUCKR
		}
	}
	return nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Names decodes the 'name' table of f.
func (f *Font) Names() (*NameTable, error) {
	data := f.Table(tagName)
	if data == nil {
		return nil, errTable(tagName, "header", "font has no name table")
	}
	return ParseNameTable(data)
}

// SetNames replaces the 'name' table of f.
func (f *Font) SetNames(nt *NameTable) {
	f.SetTable(tagName, nt.Encode())
}
