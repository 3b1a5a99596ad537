package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/locate"
)

// FileHash returns the hex encoded SHA-256 of a file.
func FileHash(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks every font of pkg against the SHA-256 of its descriptor.
// The first mismatch is reported as ChecksumMismatch.
func Verify(pkg *fontpack.Package, fonts locate.Fonts) error {
	for _, wf := range pkg.Fonts() {
		p := fonts.Path(wf.Font)
		if p == "" {
			return fontpack.FontNotFound(wf.Font.Filename)
		}
		sum, err := FileHash(p)
		if err != nil {
			return fontpack.WrapError(err, fontpack.EMISSING, "cannot read %s", p)
		}
		if sum != wf.Font.SHA256 {
			tracer().Errorf("%s: expected SHA-256 %s, have %s", wf.Font.Filename, wf.Font.SHA256, sum)
			return fontpack.ChecksumMismatch(wf.Font.Filename)
		}
	}
	tracer().Debugf("checksums of %d fonts verified", len(pkg.Fonts()))
	return nil
}
