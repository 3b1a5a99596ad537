// Package fontload loads single faces from font files and font collections.
package fontload

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ScalableFont is a parsed scalable font face with the original bytes of its
// file.
type ScalableFont struct {
	Fontname string // full font name, if available
	Face     int    // face index within a collection
	Faces    int    // number of faces in the file
	Binary   []byte
	Loader   *opentype.Loader
	SFNT     *sfnt.Font // nil if the face is not accepted by x/image
}

// LoadOpenTypeFont loads face number `face` of an OpenType font (TTF, OTF,
// TTC or WOFF) from a file.
func LoadOpenTypeFont(fontfile string, face int) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	return ParseOpenTypeFont(bytez, face)
}

// ParseOpenTypeFont loads face number `face` of an OpenType font from memory.
func ParseOpenTypeFont(fbytes []byte, face int) (*ScalableFont, error) {
	loaders, err := opentype.NewLoaders(bytes.NewReader(fbytes))
	if err != nil {
		return nil, err
	}
	if face < 0 || face >= len(loaders) {
		return nil, fmt.Errorf("face %d out of range, font has %d face(s)", face, len(loaders))
	}
	f := &ScalableFont{
		Face:   face,
		Faces:  len(loaders),
		Binary: fbytes,
		Loader: loaders[face],
	}
	// x/image is stricter than go-text; a missing name is not an error
	if coll, err := sfnt.ParseCollection(fbytes); err == nil && face < coll.NumFonts() {
		if f.SFNT, err = coll.Font(face); err == nil {
			f.Fontname, _ = f.SFNT.Name(nil, sfnt.NameIDFull)
		}
	}
	return f, nil
}

// CountFaces returns the number of faces in font data.
func CountFaces(fbytes []byte) (int, error) {
	loaders, err := opentype.NewLoaders(bytes.NewReader(fbytes))
	if err != nil {
		return 0, err
	}
	return len(loaders), nil
}
