package sfnt

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"

	"github.com/dsnet/compress/brotli"
	"github.com/go-text/typesetting/font/opentype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFlavor = FlavorData{
	Metadata:     []byte(`<?xml version="1.0" encoding="UTF-8"?><metadata version="1.0"></metadata>`),
	MajorVersion: 1,
	MinorVersion: 2,
}

func TestEncodeWOFF(t *testing.T) {
	f := loadTrueType(t)
	want, err := Parse(f.Bytes(), 0)
	require.NoError(t, err)
	data, err := EncodeWOFF(f, testFlavor)
	require.NoError(t, err)
	//
	assert.Equal(t, "wOFF", string(data[:4]))
	assert.Equal(t, uint32(ScalerTrueType), u32(data[4:]))
	assert.Equal(t, uint32(len(data)), u32(data[8:]))
	assert.Equal(t, uint32(len(f.Bytes())), u32(data[16:]), "totalSfntSize")
	assert.Equal(t, uint16(1), u16(data[20:]))
	assert.Equal(t, uint16(2), u16(data[22:]))
	//
	loaders, err := opentype.NewLoaders(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, loaders, 1)
	require.Equal(t, want.Tags(), loaders[0].Tables())
	for _, tag := range want.Tags() {
		raw, err := loaders[0].RawTable(tag)
		require.NoError(t, err)
		assert.Equal(t, want.Table(tag), raw, "table %s", tag)
	}
	//
	metaOffset, metaLength := u32(data[24:]), u32(data[28:])
	assert.Zero(t, metaOffset%4)
	assert.Equal(t, uint32(len(testFlavor.Metadata)), u32(data[32:]))
	r, err := zlib.NewReader(bytes.NewReader(data[metaOffset : metaOffset+metaLength]))
	require.NoError(t, err)
	meta, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, testFlavor.Metadata, meta)
}

func TestEncodeWOFFWithoutMetadata(t *testing.T) {
	data, err := EncodeWOFF(loadCFF(t), FlavorData{})
	require.NoError(t, err)
	assert.Equal(t, uint32(ScalerCFF), u32(data[4:]))
	assert.Zero(t, u32(data[24:]))
	assert.Zero(t, u32(data[28:]))
	again, err := EncodeWOFF(loadCFF(t), FlavorData{})
	require.NoError(t, err)
	assert.Equal(t, data, again, "output is reproducible")
}

type woff2Entry struct {
	flags  byte
	tag    Tag
	length int
}

func readUIntBase128(b []byte) (uint32, int) {
	var v uint32
	for i := range 5 {
		v = v<<7 | uint32(b[i]&0x7F)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

func TestUIntBase128(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 16383, 16384, 0xFFFFFFFF} {
		enc := appendUIntBase128(nil, v)
		dec, n := readUIntBase128(enc)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, v, dec)
	}
	assert.Equal(t, []byte{0x3F}, appendUIntBase128(nil, 63))
	assert.Equal(t, []byte{0x81, 0x00}, appendUIntBase128(nil, 128))
}

func TestEncodeWOFF2(t *testing.T) {
	f := loadTrueType(t)
	want, err := Parse(f.Bytes(), 0)
	require.NoError(t, err)
	data, err := EncodeWOFF2(f, testFlavor)
	require.NoError(t, err)
	//
	assert.Equal(t, "wOF2", string(data[:4]))
	assert.Equal(t, uint32(len(data)), u32(data[8:]))
	n := int(u16(data[12:]))
	require.Equal(t, len(want.Tags()), n)
	assert.Equal(t, uint32(len(f.Bytes())), u32(data[16:]), "totalSfntSize")
	p := woff2HeaderSize
	entries := make([]woff2Entry, n)
	for i := range entries {
		e := woff2Entry{flags: data[p]}
		p++
		if e.flags&0x3F == woff2ArbTag {
			e.tag = Tag(u32(data[p:]))
			p += 4
		} else {
			e.tag = T(woff2KnownTags[e.flags&0x3F])
		}
		length, m := readUIntBase128(data[p:])
		e.length, p = int(length), p+m
		entries[i] = e
	}
	compressed := data[p : p+int(u32(data[20:]))]
	r, err := brotli.NewReader(bytes.NewReader(compressed), nil)
	require.NoError(t, err)
	stream, err := io.ReadAll(r)
	require.NoError(t, err)
	for _, e := range entries {
		if e.tag == tagGlyf || e.tag == tagLoca {
			assert.Equal(t, byte(0xC0), e.flags&0xC0, "null transform for %s", e.tag)
		} else {
			assert.Zero(t, e.flags&0xC0, "table %s", e.tag)
		}
		require.LessOrEqual(t, e.length, len(stream))
		assert.Equal(t, want.Table(e.tag), stream[:e.length], "table %s", e.tag)
		stream = stream[e.length:]
	}
	assert.Empty(t, stream)
	//
	metaOffset, metaLength := u32(data[28:]), u32(data[32:])
	assert.Zero(t, metaOffset%4)
	assert.Equal(t, uint32(len(data)), metaOffset+metaLength, "metadata is last")
	r, err = brotli.NewReader(bytes.NewReader(data[metaOffset:]), nil)
	require.NoError(t, err)
	meta, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, testFlavor.Metadata, meta)
}

func TestWOFF2ArbitraryTag(t *testing.T) {
	f := New(ScalerTrueType, map[Tag][]byte{T("zzzz"): {1, 2, 3, 4, 5}, T("cmap"): {0, 0, 0, 0}})
	data, err := EncodeWOFF2(f, FlavorData{})
	require.NoError(t, err)
	assert.Equal(t, byte(0), data[woff2HeaderSize], "cmap has index 0")
	assert.Equal(t, byte(woff2ArbTag), data[woff2HeaderSize+2])
	assert.Equal(t, "zzzz", string(data[woff2HeaderSize+3:woff2HeaderSize+7]))
}
