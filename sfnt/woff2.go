package sfnt

import (
	"bytes"
	"fmt"

	"github.com/andybalholm/brotli"
)

const (
	woff2Signature  = 0x774F4632 // 'wOF2'
	woff2HeaderSize = 48
	woff2ArbTag     = 63
	// transform version 3 is the null transform for 'glyf' and 'loca'
	woff2NullGlyf = 3 << 6
)

// woff2KnownTags is the table of tags with a one-byte encoding in a WOFF2
// table directory.
var woff2KnownTags = []string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS", "GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL", "SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar", "fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar", "mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

func woff2TagIndex(tag Tag) int {
	for i, known := range woff2KnownTags {
		if T(known) == tag {
			return i
		}
	}
	return woff2ArbTag
}

// EncodeWOFF2 serializes f as a WOFF 2.0 file. No table is transformed: the
// null transform is signalled for 'glyf' and 'loca'. All table data is
// compressed as a single Brotli stream.
func EncodeWOFF2(f *Font, fd FlavorData) ([]byte, error) {
	records := directory(f.Bytes())
	n := len(records)
	totalSfntSize := sfntHeaderSize + tableRecordSize*n
	var dir, stream []byte
	for _, rec := range records {
		flags := byte(woff2TagIndex(rec.tag))
		if rec.tag == tagGlyf || rec.tag == tagLoca {
			flags |= woff2NullGlyf
		}
		dir = append(dir, flags)
		if flags&woff2ArbTag == woff2ArbTag {
			dir = appendU32(dir, uint32(rec.tag))
		}
		dir = appendUIntBase128(dir, uint32(len(rec.data)))
		stream = append(stream, rec.data...)
		totalSfntSize += pad4(len(rec.data))
	}
	compressed, err := compressBrotli(stream)
	if err != nil {
		return nil, fmt.Errorf("compressing font data: %w", err)
	}
	header := make([]byte, woff2HeaderSize)
	putU32(header[0:], woff2Signature)
	putU32(header[4:], uint32(f.Scaler))
	putU16(header[12:], uint16(n))
	putU32(header[16:], uint32(totalSfntSize))
	putU32(header[20:], uint32(len(compressed)))
	putU16(header[24:], fd.MajorVersion)
	putU16(header[26:], fd.MinorVersion)
	out := make([]byte, 0, woff2HeaderSize+len(dir)+len(compressed))
	out = append(out, header...)
	out = append(out, dir...)
	out = append(out, compressed...)
	if len(fd.Metadata) > 0 {
		meta, err := compressBrotli(fd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("compressing metadata: %w", err)
		}
		out = append(out, make([]byte, pad4(len(out))-len(out))...)
		putU32(out[28:], uint32(len(out)))
		putU32(out[32:], uint32(len(meta)))
		putU32(out[36:], uint32(len(fd.Metadata)))
		out = append(out, meta...)
	}
	putU32(out[8:], uint32(len(out)))
	tracer().Debugf("WOFF2: %d tables, %d → %d bytes", n, totalSfntSize, len(out))
	return out, nil
}

func compressBrotli(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendUIntBase128 appends v in the variable-length encoding of WOFF2:
// 7 bits per byte, most significant first, high bit set on all but the last
// byte.
func appendUIntBase128(out []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
	}
	return append(out, tmp[i:]...)
}
