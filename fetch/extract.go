package fetch

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/fontpack"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/japanese"
)

// zipUTF8Flag is bit 11 of the general purpose flags of a zip entry.
const zipUTF8Flag = 0x800

// Extract unpacks the file at src into dir. Bare font files are copied.
func Extract(src, dir string) error {
	var err error
	switch KindOf(filepath.Base(src)) {
	case Zip:
		err = extractZip(src, dir)
	case TarXz:
		err = extractTarXz(src, dir)
	case FontFile:
		err = copyFile(src, filepath.Join(dir, filepath.Base(src)))
	default:
		return fontpack.WrapError(nil, fontpack.EINVALID, "%s is unsupported file.", filepath.Base(src))
	}
	if err != nil {
		tracer().Errorf("extracting %s: %v", src, err)
		var aerr fontpack.AppError
		if errors.As(err, &aerr) {
			return err
		}
		return fontpack.WrapError(err, fontpack.EINVALID, "cannot extract %s: %v", filepath.Base(src), err)
	}
	tracer().Debugf("extracted %s", filepath.Base(src))
	return nil
}

// targetPath joins an archive member name to dir, rejecting names which
// would escape dir.
func targetPath(dir, name string) (string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("member %q escapes the extraction directory", name)
	}
	return filepath.Join(dir, rel), nil
}

// zipName returns the name of a zip member, decoding legacy names as
// Shift-JIS.
func zipName(f *zip.File) string {
	if f.Flags&zipUTF8Flag != 0 || isASCII(f.Name) {
		return f.Name
	}
	dec, err := japanese.ShiftJIS.NewDecoder().String(f.Name)
	if err != nil || !utf8.ValidString(dec) {
		return f.Name
	}
	return dec
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func extractZip(src, dir string) error {
	archive, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer archive.Close()
	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := zipName(f)
		target, err := targetPath(dir, name)
		if err != nil {
			return err
		}
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		err = writeFile(target, r)
		r.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarXz(src, dir string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()
	xzr, err := xz.NewReader(file)
	if err != nil {
		return err
	}
	tr := tar.NewReader(xzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target, err := targetPath(dir, hdr.Name)
		if err != nil {
			return err
		}
		if err := writeFile(target, tr); err != nil {
			return err
		}
	}
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyFile(src, target string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(target, in)
}
