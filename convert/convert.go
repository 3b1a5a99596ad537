/*
Package convert brings source fonts into the OpenType form the subsetter
works on.

Fonts other than `.otf` files are compiled by an external tool, FontForge by
default. FontForge does not preserve vertical metrics reliably, so after
compilation the `vmtx` entries of the result are copied over from the source
face, matching glyphs by the characters they represent.

Converted fonts are written to a private temporary directory. Callers own the
result and must hand it to Release when done:

	path, face, release, err := convert.Prepare(ctx, conv, src, 0)
	if err != nil {
		return err
	}
	defer release()

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.fonts'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.fonts")
}

// Converter compiles face number `face` of the font at path into an
// OpenType file and returns the path of the result. The result is owned by
// the caller and has to be passed to Release.
type Converter interface {
	Convert(ctx context.Context, path string, face int) (string, error)
}

// FontForge is a Converter running the FontForge script interpreter.
type FontForge struct {
	Executable string // defaults to "fontforge"
}

const convertedName = "converted.otf"

const fontforgeScript = "Open($1);Generate($2);"

var _ Converter = FontForge{}

// Convert runs FontForge on face `face` of the font at path and fixes the
// vertical metrics of the result.
func (ff FontForge) Convert(ctx context.Context, path string, face int) (string, error) {
	exe := ff.Executable
	if exe == "" {
		exe = "fontforge"
	}
	dir, err := os.MkdirTemp("", "fontpack-convert-")
	if err != nil {
		return "", fontpack.WrapError(err, fontpack.EINTERNAL, "cannot create temporary directory")
	}
	out := filepath.Join(dir, convertedName)
	if err = ff.run(ctx, exe, path, face, out); err == nil {
		err = fixFile(path, face, out)
	}
	if err != nil {
		Release(out)
		return "", err
	}
	return out, nil
}

func (ff FontForge) run(ctx context.Context, exe, path string, face int, out string) error {
	input := fmt.Sprintf("%s(%d)", path, face)
	cmd := exec.CommandContext(ctx, exe, "-lang=ff", "-c", fontforgeScript, input, out)
	tracer().Debugf("running %s", strings.Join(cmd.Args, " "))
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tracer().Errorf("%s failed for %s: %s", exe, input, strings.TrimSpace(string(output)))
		return fontpack.ToolFailed(err, exe)
	}
	if _, err := os.Stat(out); err != nil {
		return fontpack.ToolFailed(fmt.Errorf("no output generated: %w", err), exe)
	}
	return nil
}

// fixFile copies vertical metrics from the source face into the font file
// at target, rewriting it in place.
func fixFile(source string, face int, target string) error {
	src, err := sfnt.Load(source, face)
	if err != nil {
		return err
	}
	dst, err := sfnt.Load(target, 0)
	if err != nil {
		return err
	}
	changed, err := FixVerticalMetrics(src, dst)
	if err != nil || !changed {
		return err
	}
	return os.WriteFile(target, dst.Bytes(), 0o644)
}

// FixVerticalMetrics copies the vertical metrics of source into target.
// For every glyph of target, the corresponding source glyph is the one the
// source's character map assigns to the lowest codepoint mapped to the
// target glyph. Unmapped glyphs correspond by glyph id.
//
// Fonts without vertical metrics are left alone; the return value tells if
// target has been changed.
func FixVerticalMetrics(source, target *sfnt.Font) (bool, error) {
	if !source.HasVerticalMetrics() || !target.HasVerticalMetrics() {
		return false, nil
	}
	from, err := sfnt.VerticalMetrics(source)
	if err != nil {
		return false, err
	}
	to, err := sfnt.VerticalMetrics(target)
	if err != nil {
		return false, err
	}
	cmap, err := source.CharMap()
	if err != nil {
		return false, err
	}
	runes, err := target.RuneMap()
	if err != nil {
		return false, err
	}
	reverse := sfnt.ReverseRuneMap(runes)
	for gid := range to {
		srcGID := gid
		if r, ok := reverse[uint16(gid)]; ok {
			if g, found := cmap.Lookup(r); found {
				srcGID = int(g)
			}
		}
		if srcGID < len(from) {
			to[gid] = from[srcGID]
		}
	}
	if err := sfnt.SetVerticalMetrics(target, to); err != nil {
		return false, err
	}
	tracer().Debugf("copied vertical metrics of %d glyphs", len(to))
	return true, nil
}

// NeedsConversion is true for every font file which is not an `.otf` file.
func NeedsConversion(path string) bool {
	return !strings.EqualFold(filepath.Ext(path), ".otf")
}

// Release removes a font produced by a Converter, together with its
// temporary directory.
func Release(path string) {
	if path == "" {
		return
	}
	dir := filepath.Dir(path)
	if filepath.Base(path) != convertedName || !strings.HasPrefix(filepath.Base(dir), "fontpack-convert-") {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			tracer().Errorf("cannot remove %s: %v", path, err)
		}
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		tracer().Errorf("cannot remove %s: %v", dir, err)
	}
}

// Prepare returns the path and face number of an OpenType rendition of face
// `face` of the font at path, converting it if necessary. The returned
// release function must be called when the font is no longer needed; it is
// never nil.
func Prepare(ctx context.Context, conv Converter, path string, face int) (string, int, func(), error) {
	if !NeedsConversion(path) {
		return path, face, func() {}, nil
	}
	out, err := conv.Convert(ctx, path, face)
	if err != nil {
		return "", 0, func() {}, err
	}
	tracer().Infof("converted %s(%d)", filepath.Base(path), face)
	return out, 0, func() { Release(out) }, nil
}
