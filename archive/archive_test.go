package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/internal/packtest"
	"github.com/npillmayer/fontpack/locate"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T) locate.Fonts {
	fonts, err := locate.New(packtest.WriteFonts(t)).Resolve(packtest.Package())
	require.NoError(t, err)
	return fonts
}

// readArchive returns the headers and contents of a tar.gz file.
func readArchive(t *testing.T, path string) ([]*tar.Header, map[string][]byte) {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	assert.Empty(t, zr.Name)
	assert.True(t, zr.ModTime.IsZero())
	tr := tar.NewReader(zr)
	var headers []*tar.Header
	contents := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		headers = append(headers, hdr)
		contents[hdr.Name] = data
	}
	return headers, contents
}

func TestArchiveRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	g := &Generator{Fonts: resolve(t), Output: filepath.Join(t.TempDir(), "archives")}
	pkg := packtest.Package()
	require.NoError(t, g.Generate(context.Background(), pkg))
	assert.Equal(t, "test-font.tar.gz", filepath.Base(g.Path(pkg)))
	headers, contents := readArchive(t, g.Path(pkg))
	//
	var names []string
	for _, hdr := range headers {
		names = append(names, hdr.Name)
		assert.Equal(t, int64(0o644), hdr.Mode, hdr.Name)
		assert.Zero(t, hdr.ModTime.Unix(), hdr.Name)
		assert.Zero(t, hdr.Uid)
		assert.Zero(t, hdr.Gid)
	}
	assert.Equal(t, []string{"LICENSE", "test-font-bold.ttf", "test-font-normal.otf"}, names)
	fonts := packtest.Fonts()
	assert.True(t, bytes.Equal(fonts[packtest.BoldFile], contents["test-font-bold.ttf"]))
	assert.True(t, bytes.Equal(fonts[packtest.RegularFile], contents["test-font-normal.otf"]))
	license := string(contents["LICENSE"])
	assert.Contains(t, license, "Copyright (c) Test Foundry\nCopyright (c) Someone Else\n")
	assert.Contains(t, license, "SIL OPEN FONT LICENSE")
}

func TestArchiveReproducible(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	fonts := resolve(t)
	pkg := packtest.Package()
	var archives [][]byte
	for range 2 {
		g := &Generator{Fonts: fonts, Output: t.TempDir()}
		require.NoError(t, g.Generate(context.Background(), pkg))
		data, err := os.ReadFile(g.Path(pkg))
		require.NoError(t, err)
		archives = append(archives, data)
	}
	assert.Equal(t, archives[0], archives[1])
}

func TestSharedFontFile(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	fonts := resolve(t)
	pkg := packtest.Package()
	regular := pkg.Sources[0].Fonts.Get(fontpack.Normal)
	pkg.Sources[0].Fonts.Set(fontpack.Light, regular)
	g := &Generator{Fonts: fonts, Output: t.TempDir()}
	require.NoError(t, g.Generate(context.Background(), pkg))
	headers, files := readArchive(t, g.Path(pkg))
	require.Len(t, headers, 4, "one member per weight")
	assert.Equal(t, "test-font-light.otf", headers[2].Name)
	assert.Equal(t, "test-font-normal.otf", headers[3].Name)
	assert.Equal(t, files["test-font-normal.otf"], files["test-font-light.otf"])
}

func TestArchiveInvalidLicense(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	pkg := packtest.Package()
	pkg.License = "CC0"
	out := filepath.Join(t.TempDir(), "archives")
	err := (&Generator{Fonts: resolve(t), Output: out}).Generate(context.Background(), pkg)
	require.Error(t, err)
	assert.Equal(t, fontpack.EINVALID, fontpack.Code(err))
	assert.Equal(t, "CC0 is invalid license id.", fontpack.UserMessage(err))
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestArchiveFontMissing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontpack.build")
	defer teardown()
	//
	out := t.TempDir()
	err := (&Generator{Fonts: locate.Fonts{}, Output: out}).Generate(context.Background(), packtest.Package())
	require.Error(t, err)
	assert.Equal(t, fontpack.EMISSING, fontpack.Code(err))
	_, err = os.Stat(filepath.Join(out, "test-font.tar.gz"))
	assert.True(t, os.IsNotExist(err))
}
