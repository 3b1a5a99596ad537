package sfnt

import (
	"bytes"
	"compress/zlib"
	"fmt"
)

// FlavorData holds the extended metadata and version of a WOFF or WOFF2
// file.
type FlavorData struct {
	Metadata     []byte // uncompressed XML, optional
	MajorVersion uint16
	MinorVersion uint16
}

const (
	woffSignature       = 0x774F4646 // 'wOFF'
	woffHeaderSize      = 44
	woffTableRecordSize = 20
)

// EncodeWOFF serializes f as a WOFF 1.0 file. Tables are zlib compressed
// unless compression does not make them smaller.
func EncodeWOFF(f *Font, fd FlavorData) ([]byte, error) {
	records := directory(f.Bytes())
	n := len(records)
	totalSfntSize := sfntHeaderSize + tableRecordSize*n
	dir := make([]byte, woffTableRecordSize*n)
	var body []byte
	offset := woffHeaderSize + len(dir)
	for i, rec := range records {
		tag, data := rec.tag, rec.data
		totalSfntSize += pad4(len(data))
		comp, err := deflate(data)
		if err != nil {
			return nil, fmt.Errorf("compressing table %s: %w", tag, err)
		}
		if len(comp) >= len(data) {
			comp = data
		}
		entry := dir[woffTableRecordSize*i:]
		putU32(entry[0:], uint32(tag))
		putU32(entry[4:], uint32(offset+len(body)))
		putU32(entry[8:], uint32(len(comp)))
		putU32(entry[12:], uint32(len(data)))
		putU32(entry[16:], rec.checksum)
		body = append(body, comp...)
		body = append(body, make([]byte, pad4(len(body))-len(body))...)
	}
	header := make([]byte, woffHeaderSize)
	putU32(header[0:], woffSignature)
	putU32(header[4:], uint32(f.Scaler))
	putU16(header[12:], uint16(n))
	putU32(header[16:], uint32(totalSfntSize))
	putU16(header[20:], fd.MajorVersion)
	putU16(header[22:], fd.MinorVersion)
	if len(fd.Metadata) > 0 {
		meta, err := deflate(fd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("compressing metadata: %w", err)
		}
		putU32(header[24:], uint32(offset+len(body)))
		putU32(header[28:], uint32(len(meta)))
		putU32(header[32:], uint32(len(fd.Metadata)))
		body = append(body, meta...)
	}
	putU32(header[8:], uint32(offset+len(body)))
	out := make([]byte, 0, offset+len(body))
	out = append(out, header...)
	out = append(out, dir...)
	return append(out, body...), nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type tableRecord struct {
	tag      Tag
	checksum uint32
	data     []byte
}

// directory reads back the table records of an SFNT produced by Bytes. It
// is used by the WOFF encoders, which need 'head' with its final checksum
// adjustment.
func directory(sfnt []byte) []tableRecord {
	n := int(u16(sfnt[4:]))
	records := make([]tableRecord, n)
	for i := range records {
		rec := sfnt[sfntHeaderSize+tableRecordSize*i:]
		offset, length := int(u32(rec[8:])), int(u32(rec[12:]))
		records[i] = tableRecord{
			tag:      Tag(u32(rec)),
			checksum: u32(rec[4:]),
			data:     sfnt[offset : offset+length],
		}
	}
	return records
}
