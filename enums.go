package fontpack

import (
	"encoding/json"
	"fmt"
)

// License is the closed set of supported license ids. Every license has a
// matching license text, metadata template and CSS template.
type License string

// Supported licenses.
const (
	LicenseMIT        License = "MIT"
	LicenseIPA        License = "IPA"
	LicenseOFL11      License = "OFL-1.1"
	LicenseApache20   License = "Apache-2.0"
	LicenseBSD3Clause License = "BSD-3-Clause"
	LicenseMplus      License = "Mplus"
)

var licenses = []License{
	LicenseMIT, LicenseIPA, LicenseOFL11, LicenseApache20, LicenseBSD3Clause, LicenseMplus,
}

// Licenses returns all supported licenses.
func Licenses() []License {
	return append([]License(nil), licenses...)
}

// IsValid reports whether l is one of the supported license ids.
func (l License) IsValid() bool {
	for _, known := range licenses {
		if l == known {
			return true
		}
	}
	return false
}

func (l License) String() string {
	return string(l)
}

// Weight is one of the nine named font-weight slots.
type Weight uint8

// Weight slots, in ascending CSS font-weight order.
const (
	Thin Weight = iota
	ExtraLight
	Light
	Normal
	Medium
	SemiBold
	Bold
	ExtraBold
	Black
)

var weightNames = [...]string{
	"thin", "extraLight", "light", "normal", "medium", "semiBold", "bold", "extraBold", "black",
}

// Weights returns all weight slots in ascending order.
func Weights() []Weight {
	return []Weight{Thin, ExtraLight, Light, Normal, Medium, SemiBold, Bold, ExtraBold, Black}
}

// String returns the slot name as used in descriptors and output paths.
func (w Weight) String() string {
	if int(w) < len(weightNames) {
		return weightNames[w]
	}
	return fmt.Sprintf("weight(%d)", uint8(w))
}

// CSSWeight returns the numeric CSS font-weight, 100 to 900.
func (w Weight) CSSWeight() int {
	return (int(w) + 1) * 100
}

// ParseWeight maps a slot name to its Weight.
func ParseWeight(name string) (Weight, error) {
	for i, n := range weightNames {
		if n == name {
			return Weight(i), nil
		}
	}
	return 0, fmt.Errorf("unknown font weight %q", name)
}

// FontWeights maps each weight slot to an optional font.
type FontWeights struct {
	Thin       *Font `json:"thin,omitempty"`
	ExtraLight *Font `json:"extraLight,omitempty"`
	Light      *Font `json:"light,omitempty"`
	Normal     *Font `json:"normal,omitempty"`
	Medium     *Font `json:"medium,omitempty"`
	SemiBold   *Font `json:"semiBold,omitempty"`
	Bold       *Font `json:"bold,omitempty"`
	ExtraBold  *Font `json:"extraBold,omitempty"`
	Black      *Font `json:"black,omitempty"`
}

func (fw *FontWeights) slots() [9]**Font {
	return [9]**Font{
		&fw.Thin, &fw.ExtraLight, &fw.Light, &fw.Normal, &fw.Medium,
		&fw.SemiBold, &fw.Bold, &fw.ExtraBold, &fw.Black,
	}
}

// Get returns the font for weight w, or nil if the slot is unset.
func (fw FontWeights) Get(w Weight) *Font {
	if int(w) >= len(weightNames) {
		return nil
	}
	return *fw.slots()[w]
}

// Set assigns f to slot w.
func (fw *FontWeights) Set(w Weight, f *Font) {
	if int(w) < len(weightNames) {
		*fw.slots()[w] = f
	}
}

// Category classifies a font package.
type Category string

// Known categories.
const (
	Mincho      Category = "Mincho"
	Gothic      Category = "Gothic"
	MaruGothic  Category = "MaruGothic"
	Brash       Category = "Brash"
	HandWriting Category = "HandWriting"
	Artistic    Category = "Artistic"
	Others      Category = "Others"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case Mincho, Gothic, MaruGothic, Brash, HandWriting, Artistic, Others:
		return true
	}
	return false
}

// Character names a character repertoire a package covers.
type Character string

// Known character repertoires.
const (
	Alphabet Character = "Alphabet"
	Hiragana Character = "Hiragana"
	Katakana Character = "Katakana"
	Kanji    Character = "Kanji"
)

// IsValid reports whether c is a known character repertoire.
func (c Character) IsValid() bool {
	switch c {
	case Alphabet, Hiragana, Katakana, Kanji:
		return true
	}
	return false
}

// MarshalJSON writes the slot name.
func (w Weight) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}

// UnmarshalJSON reads a slot name.
func (w *Weight) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseWeight(name)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
