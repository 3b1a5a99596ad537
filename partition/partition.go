/*
Package partition implements the catalog of Unicode-range partitions used to
split a font into lazily loadable subsets.

A catalog is a directory of text files, one partition per file. Each line of a
file holds either a codepoint range `start-end` or a single codepoint, both in
hexadecimal with an optional `U+` prefix. Everything after a `#` is a comment.
The file stem is the partition's index; it becomes the filename stem of the
generated webfonts and orders partitions within a stylesheet.

	# Hiragana
	3041-3096
	U+3099-309F

Catalogs are loaded once and are read-only afterwards, hence safe for
concurrent use.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package partition

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'fontpack.build'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.build")
}

// Range is an inclusive range of codepoints.
type Range struct {
	Lo, Hi rune
}

// Contains reports whether r is within the range.
func (rg Range) Contains(r rune) bool {
	return rg.Lo <= r && r <= rg.Hi
}

// String renders the range in CSS unicode-range notation.
func (rg Range) String() string {
	if rg.Lo == rg.Hi {
		return fmt.Sprintf("U+%04X", rg.Lo)
	}
	return fmt.Sprintf("U+%04X-%04X", rg.Lo, rg.Hi)
}

// Partition is one entry of the catalog.
type Partition struct {
	Index  string  // stable id, derived from the filename stem
	Ranges []Range // in file order
}

// Contains reports whether r is covered by any range of the partition.
func (p Partition) Contains(r rune) bool {
	for _, rg := range p.Ranges {
		if rg.Contains(r) {
			return true
		}
	}
	return false
}

// Runes returns all codepoints of the partition, in range order.
// Surrogates are skipped.
func (p Partition) Runes() []rune {
	var runes []rune
	for _, rg := range p.Ranges {
		for r := rg.Lo; r <= rg.Hi; r++ {
			if utf8.ValidRune(r) {
				runes = append(runes, r)
			}
		}
	}
	return runes
}

// UnicodeRange renders the partition's ranges as the value of a CSS
// `unicode-range` descriptor.
func (p Partition) UnicodeRange() string {
	parts := make([]string, len(p.Ranges))
	for i, rg := range p.Ranges {
		parts[i] = rg.String()
	}
	return strings.Join(parts, ",")
}

// ParseRanges parses the textual representation of a partition. Blank lines
// and comments are skipped. A malformed line makes the whole text invalid.
func ParseRanges(text string) ([]Range, error) {
	var ranges []Range
	for lineno, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rg, err := parseRange(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno+1, err)
		}
		ranges = append(ranges, rg)
	}
	return ranges, nil
}

func parseRange(s string) (Range, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	start, err := parseCodepoint(lo)
	if err != nil {
		return Range{}, err
	}
	if !isRange {
		return Range{Lo: start, Hi: start}, nil
	}
	end, err := parseCodepoint(hi)
	if err != nil {
		return Range{}, err
	}
	if end < start {
		return Range{}, fmt.Errorf("range %q is reversed", s)
	}
	return Range{Lo: start, Hi: end}, nil
}

func parseCodepoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && (s[0] == 'U' || s[0] == 'u') && s[1] == '+' {
		s = s[2:]
	}
	if s == "" || len(s) > 6 {
		return 0, fmt.Errorf("malformed codepoint %q", s)
	}
	var r rune
	for _, c := range s {
		var d rune
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'f':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, fmt.Errorf("malformed codepoint %q", s)
		}
		r = r<<4 | d
	}
	if r > utf8.MaxRune {
		return 0, fmt.Errorf("codepoint %q out of range", s)
	}
	return r, nil
}
