package partition

import (
	"testing"
	"testing/fstest"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRanges(t *testing.T) {
	text := "# Latin\n0041-005A  # capitals\n\nU+0061-007a\n3042\n   \n"
	ranges, err := ParseRanges(text)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0x41, 0x5A}, {0x61, 0x7A}, {0x3042, 0x3042}}, ranges)
}

func TestParseRangesMalformed(t *testing.T) {
	for _, text := range []string{"00G1", "005A-0041", "0041-", "1234567", "0041-005A-0061"} {
		_, err := ParseRanges(text)
		assert.Error(t, err, "expected %q to be rejected", text)
	}
}

func TestUnicodeRange(t *testing.T) {
	p := Partition{Index: "0", Ranges: []Range{{0x41, 0x5A}, {0x3042, 0x3042}}}
	assert.Equal(t, "U+0041-005A,U+3042", p.UnicodeRange())
	assert.True(t, p.Contains('Q'))
	assert.False(t, p.Contains('q'))
	assert.Len(t, p.Runes(), 27)
}

func TestRunesSkipSurrogates(t *testing.T) {
	p := Partition{Ranges: []Range{{0xD7FF, 0xE000}}}
	assert.Equal(t, []rune{0xD7FF, 0xE000}, p.Runes())
}

func TestCatalogOrderAndMemo(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	fsys := fstest.MapFS{
		"1.txt":      {Data: []byte("3041-3096\n")},
		"0.txt":      {Data: []byte("0041-005A # A-Z\n")},
		"notes.md":   {Data: []byte("not a partition")},
		"sub/2.txt":  {Data: []byte("4E00\n")},
		"sub/readme": {Data: []byte("ignored")},
	}
	cat := New(fsys)
	parts, err := cat.Partitions()
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "0", parts[0].Index)
	assert.Equal(t, "1", parts[1].Index)
	assert.Equal(t, "2", parts[2].Index)
	assert.Equal(t, "U+0041-005A", parts[0].UnicodeRange())
	assert.Equal(t, "U+3041-3096", parts[1].UnicodeRange())
	//
	delete(fsys, "0.txt")
	again, err := cat.Partitions()
	require.NoError(t, err)
	assert.Len(t, again, 3, "catalog must be memoized")
}

func TestCatalogFailsAsAWhole(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	cat := New(fstest.MapFS{
		"0.txt": {Data: []byte("0041-005A\n")},
		"1.txt": {Data: []byte("zzzz\n")},
	})
	parts, err := cat.Partitions()
	assert.Error(t, err)
	assert.Nil(t, parts)
}

func TestDefaultCatalog(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	parts, err := Default().Partitions()
	require.NoError(t, err)
	require.NotEmpty(t, parts)
	assert.Equal(t, "0", parts[0].Index)
	assert.True(t, parts[0].Contains('A'))
	hiragana := false
	for _, p := range parts {
		if p.Contains('あ') {
			hiragana = true
		}
	}
	assert.True(t, hiragana, "default catalog should cover hiragana")
}
