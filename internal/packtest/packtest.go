// Package packtest provides a small font package with synthetic fonts for
// the tests of the generators and the pipeline.
package packtest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/internal/sfnttest"
	"github.com/npillmayer/fontpack/partition"
)

// Spec is the glyph repertoire of the test fonts.
var Spec = sfnttest.Spec{
	Family:       "Test Sans",
	Runes:        []rune{'A', 'B', 'a', 'z', 'あ', 'い', 'ア'},
	Unmapped:     2,
	Vertical:     true,
	VerticalBase: 1000,
	Substitutions: map[string]map[uint16]uint16{
		"vert": {5: 8},
	},
}

// Font files of the test package, relative to the extraction root.
const (
	RegularFile = "test-font/fonts/TestSans-Regular.otf"
	BoldFile    = "test-font/fonts/TestSans-Bold.ttf"
)

// Fonts returns the test fonts by relative path.
func Fonts() map[string][]byte {
	return map[string][]byte{
		RegularFile: sfnttest.CFF(Spec),
		BoldFile:    sfnttest.TrueType(Spec),
	}
}

// Hash returns the hex encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Package returns a fresh copy of the test package, with the regular weight
// set to the CFF test font and the bold weight to the TrueType test font.
func Package() *fontpack.Package {
	fonts := Fonts()
	src := fontpack.Source{URL: "https://example.com/test-font.zip"}
	src.Fonts.Set(fontpack.Normal, &fontpack.Font{
		Filename: filepath.Base(RegularFile),
		SHA256:   Hash(fonts[RegularFile]),
	})
	src.Fonts.Set(fontpack.Bold, &fontpack.Font{
		Filename: filepath.Base(BoldFile),
		SHA256:   Hash(fonts[BoldFile]),
	})
	return &fontpack.Package{
		ID:         "test-font",
		Name:       "Test Font",
		Version:    "1.0.0",
		Homepage:   "https://example.com/test-font",
		License:    fontpack.LicenseOFL11,
		Authors:    []string{"Test Foundry"},
		Copyrights: []string{"Copyright (c) Test Foundry", "Copyright (c) Someone Else"},
		Category:   fontpack.Gothic,
		Characters: []fontpack.Character{fontpack.Alphabet, fontpack.Hiragana},
		Sources:    []fontpack.Source{src},
	}
}

// WriteFonts writes the test fonts below a fresh temporary directory and
// returns its path.
func WriteFonts(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range Fonts() {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Catalog is a two-partition catalog: Latin letters in partition "0",
// kana in partition "1".
func Catalog() *partition.Catalog {
	return partition.New(fstest.MapFS{
		"0.txt": {Data: []byte("# Latin\nU+0041-005A\n0061-007A\n")},
		"1.txt": {Data: []byte("3040-309F\n30A0-30FF # Katakana\n")},
	})
}

// Converter stands in for FontForge by copying the source font into Dir.
type Converter struct {
	Dir  string
	Fail bool // fail every conversion

	mu    sync.Mutex
	calls []string
}

// Convert copies path to a new file in Dir.
func (c *Converter) Convert(ctx context.Context, path string, face int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, filepath.Base(path))
	if c.Fail {
		return "", fontpack.ToolFailed(errors.New("exit status 1"), "fontforge")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	out := filepath.Join(c.Dir, fmt.Sprintf("converted-%d.otf", len(c.calls)))
	return out, os.WriteFile(out, data, 0o644)
}

// Calls returns the base names of the fonts converted so far.
func (c *Converter) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}
