package metadata

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/templates"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
metadata:
  _attributes:
    version: "1.0"
  vendor:
    _attributes:
      name: Vendor & Co
      url: https://example.com
  credits:
    credit:
      - _attributes:
          name: A
      - _attributes:
          name: B
  description:
    text:
      _attributes:
        "xml:lang": en
      _text: Some <text>
  empty:
`

func TestFromYAML(t *testing.T) {
	tag, root, err := FromYAML([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "metadata", tag)
	want := &Element{
		Attributes: []Attr{{"version", "1.0"}},
		Children: []Child{
			{"vendor", &Element{Attributes: []Attr{{"name", "Vendor & Co"}, {"url", "https://example.com"}}}},
			{"credits", &Element{Children: []Child{
				{"credit", &Element{Attributes: []Attr{{"name", "A"}}}},
				{"credit", &Element{Attributes: []Attr{{"name", "B"}}}},
			}}},
			{"description", &Element{Children: []Child{
				{"text", &Element{Attributes: []Attr{{"xml:lang", "en"}}, Text: "Some <text>"}},
			}}},
			{"empty", &Element{}},
		},
	}
	if diff := cmp.Diff(Node(want), root); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestFromYAMLRejectsMultipleRoots(t *testing.T) {
	_, _, err := FromYAML([]byte("a: x\nb: y\n"))
	assert.Error(t, err)
	_, _, err = FromYAML([]byte("- a\n- b\n"))
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	tag, root, err := FromYAML([]byte(sample))
	require.NoError(t, err)
	out, err := Marshal(tag, root)
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, Header+"\n<metadata version=\"1.0\">"))
	assert.Contains(t, s, `<vendor name="Vendor &amp; Co" url="https://example.com"></vendor>`)
	assert.Contains(t, s, `<text xml:lang="en">Some &lt;text&gt;</text>`)
	assert.Equal(t, 2, strings.Count(s, "<credit "))
	assertWellFormed(t, out)
}

func TestRender(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	pkg := &fontpack.Package{
		ID:          "test-font",
		Name:        "Test Font",
		Version:     "1.0.0",
		Description: "Fonts for testing",
		Homepage:    "https://example.com",
		License:     fontpack.LicenseOFL11,
		Authors:     []string{"Jane Doe"},
		Copyrights:  []string{"(c) 2020 Jane", "(c) 2021 John"},
	}
	out, err := Render(templates.Default(), pkg)
	require.NoError(t, err)
	again, err := Render(templates.Default(), pkg)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assertWellFormed(t, out)
	s := string(out)
	assert.Contains(t, s, `<uniqueid id="test-font.1.0.0">`)
	assert.Contains(t, s, `<license url="https://openfontlicense.org" id="OFL-1.1">`)
	assert.Contains(t, s, "<text>(c) 2020 Jane</text>")
	// copyright is the last child of the root element
	i := strings.Index(s, "<copyright>")
	require.Greater(t, i, strings.Index(s, "</license>"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(s), "</copyright>\n</metadata>"))
}

func TestRenderInvalidLicense(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	_, err := Render(templates.Default(), &fontpack.Package{License: "WTFPL"})
	require.Error(t, err)
	assert.Equal(t, "WTFPL is invalid license id.", err.Error())
}

func assertWellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if err != nil {
			assert.Equal(t, "EOF", err.Error(), "metadata is not well-formed")
			return
		}
	}
}
