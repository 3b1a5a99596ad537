package fontpack

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

const testDescriptor = `{
  "$schema": "../schema.json",
  "id": "test-font",
  "name": "Test Font",
  "version": "1.0.0",
  "homepage": "https://example.com/test-font",
  "license": "OFL-1.1",
  "authors": ["Test Foundry"],
  "copyrights": ["(c) Test"],
  "category": "Gothic",
  "characters": ["Alphabet", "Hiragana"],
  "features": {"vert": false},
  "sources": [{
    "url": "https://example.com/test-font.zip",
    "fonts": {
      "normal": {"filename": "Test-Regular.ttf", "sha256": "` + testHash + `"},
      "bold": {"filename": "Test-Bold.ttf", "sha256": "` + testHash + `", "number": 1}
    }
  }]
}`

func TestParseDescriptor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	pkg, err := ParseDescriptor([]byte(testDescriptor))
	require.NoError(t, err)
	assert.Equal(t, "test-font", pkg.ID)
	assert.Equal(t, LicenseOFL11, pkg.License)
	require.Len(t, pkg.Sources, 1)
	normal := pkg.Sources[0].Fonts.Get(Normal)
	require.NotNil(t, normal)
	assert.Equal(t, "Test-Regular.ttf", normal.Filename)
	assert.Equal(t, 0, normal.Number)
	assert.Equal(t, 1, pkg.Sources[0].Fonts.Get(Bold).Number)
	assert.Nil(t, pkg.Sources[0].Fonts.Get(Thin))
}

func TestFontsOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	pkg, err := ParseDescriptor([]byte(testDescriptor))
	require.NoError(t, err)
	fonts := pkg.FontsByWeight()
	require.Len(t, fonts, 2)
	assert.Equal(t, Normal, fonts[0].Weight)
	assert.Equal(t, Bold, fonts[1].Weight)
	assert.Equal(t, 400, fonts[0].Weight.CSSWeight())
	assert.Equal(t, 700, fonts[1].Weight.CSSWeight())
}

func TestWeightNumbers(t *testing.T) {
	want := []int{100, 200, 300, 400, 500, 600, 700, 800, 900}
	for i, w := range Weights() {
		assert.Equal(t, want[i], w.CSSWeight(), "weight %s", w)
		parsed, err := ParseWeight(w.String())
		require.NoError(t, err)
		assert.Equal(t, w, parsed)
	}
	_, err := ParseWeight("heavy")
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	cases := map[string]func(string) string{
		"bad id":        func(s string) string { return strings.Replace(s, `"test-font"`, `"Test_Font"`, 1) },
		"no copyrights": func(s string) string { return strings.Replace(s, `["(c) Test"]`, `[]`, 1) },
		"no characters": func(s string) string { return strings.Replace(s, `["Alphabet", "Hiragana"]`, `[]`, 1) },
		"bad category":  func(s string) string { return strings.Replace(s, `"Gothic"`, `"Serif"`, 1) },
		"unknown key":   func(s string) string { return strings.Replace(s, `"name":`, `"nom": 1, "name":`, 1) },
		"bad hash":      func(s string) string { return strings.Replace(s, testHash, "abc", 1) },
	}
	for name, mutate := range cases {
		_, err := ParseDescriptor([]byte(mutate(testDescriptor)))
		require.Error(t, err, name)
		assert.Equal(t, EINVALID, Code(err), name)
	}
}

func TestInvalidLicense(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	_, err := ParseDescriptor([]byte(strings.Replace(testDescriptor, `"OFL-1.1"`, `"GPL-3.0"`, 1)))
	require.Error(t, err)
	assert.Equal(t, "GPL-3.0 is invalid license id.", err.Error())
	assert.Equal(t, EINVALID, Code(err))
}

func TestErrorTaxonomy(t *testing.T) {
	assert.Equal(t, "a.ttf is not found.", FontNotFound("a.ttf").Error())
	assert.Equal(t, EMISSING, Code(FontNotFound("a.ttf")))
	assert.Equal(t, "2 or more files with same name as a.ttf are found.", FontAmbiguous("a.ttf").Error())
	assert.Equal(t, EAMBIGUOUS, Code(FontAmbiguous("a.ttf")))
	assert.Equal(t, `SHA256 of "a.ttf" is not matched.`, ChecksumMismatch("a.ttf").Error())
	assert.Equal(t, EINTEGRITY, Code(ChecksumMismatch("a.ttf")))
	assert.Equal(t, NOERROR, Code(nil))
}

func TestWrappedErrorKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := WrapError(cause, EINVALID, "cannot parse font")
	assert.Equal(t, "cannot parse font: unexpected EOF", err.Error())
	assert.Equal(t, "cannot parse font", UserMessage(err))
	assert.ErrorIs(t, err, cause)
	tool := ToolFailed(cause, "fontforge")
	assert.Equal(t, "fontforge failed: unexpected EOF", tool.Error(), "cause is not repeated")
	assert.Equal(t, "unexpected EOF", ErrorWithCode(cause, EINTERNAL).Error())
}
