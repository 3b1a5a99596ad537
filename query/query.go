/*
Package query answers diagnostic questions about fonts: outline type, name
records, table 'head' and the coverage of the partition catalog.

The command line tools use it to inspect source fonts and generated
webfonts.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package query

import (
	"iter"

	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/schuko/tracing"
	xsfnt "golang.org/x/image/font/sfnt"
)

// tracer traces with key 'fontpack.fonts'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.fonts")
}

// FontType returns "CFF" for fonts with PostScript outlines and "TrueType"
// otherwise.
func FontType(f *sfnt.Font) string {
	if f.IsCFF() {
		return "CFF"
	}
	return "TrueType"
}

// NamesRange yields the decoded name records of a font in table order.
// Records with an undecodable string are skipped.
func NamesRange(f *sfnt.Font) iter.Seq2[sfnt.NameKey, string] {
	return func(yield func(sfnt.NameKey, string) bool) {
		nt, err := f.Names()
		if err != nil {
			tracer().Debugf("no usable name table: %v", err)
			return
		}
		for _, r := range nt.Records {
			s, err := r.String()
			if err != nil {
				tracer().Debugf("skipping name record %v: %v", r.NameKey, err)
				continue
			}
			if !yield(r.NameKey, s) {
				return
			}
		}
	}
}

var infoKeys = map[sfnt.NameID]string{
	xsfnt.NameIDFamily:            "family",
	xsfnt.NameIDSubfamily:         "subfamily",
	xsfnt.NameIDVersion:           "version",
	xsfnt.NameIDPostScript:        "postscript",
	xsfnt.NameIDTypographicFamily: "typographic-family",
}

// NameInfo returns the Windows English family, subfamily, version,
// PostScript and typographic family names of a font.
func NameInfo(f *sfnt.Font) map[string]string {
	info := make(map[string]string)
	for key, s := range NamesRange(f) {
		if key.Platform != sfnt.PlatformIDWindows || key.Language != sfnt.LanguageIDWindowsEnglish {
			continue
		}
		if k, ok := infoKeys[key.Name]; ok && s != "" {
			info[k] = s
		}
	}
	return info
}

// PartitionCoverage is the number of codepoints of a partition a font maps.
type PartitionCoverage struct {
	Index   string
	Covered int
	Total   int
}

// Empty reports whether the font maps no codepoint of the partition.
// Generated webfonts for such a partition are empty.
func (c PartitionCoverage) Empty() bool {
	return c.Covered == 0
}

// Coverage counts the codepoints of every partition mapped by f.
func Coverage(f *sfnt.Font, partitions []partition.Partition) ([]PartitionCoverage, error) {
	m, err := f.RuneMap()
	if err != nil {
		return nil, err
	}
	cov := make([]PartitionCoverage, len(partitions))
	for i, p := range partitions {
		cov[i].Index = p.Index
		for _, r := range p.Runes() {
			cov[i].Total++
			if _, ok := m[r]; ok {
				cov[i].Covered++
			}
		}
	}
	return cov, nil
}
