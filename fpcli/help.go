package main

import (
	"strings"

	"github.com/pterm/pterm"
)

func helpOp(intp *Intp, op *Op) (error, bool) {
	topic := ""
	if len(op.args) > 0 {
		topic = op.args[0]
	}
	help(topic)
	return nil, false
}

func help(topic string) {
	tracer().Debugf("help %v", topic)
	switch strings.ToLower(topic) {
	case "cmap":
		pterm.Info.Println("cmap U+XXXX ...")
		pterm.Println(`
	Looks up codepoints in the best Unicode subtable of table 'cmap'.
	Codepoints are given as U+XXXX, 0xXXXX, bare hex digits or a single
	character. Unmapped codepoints are rendered by glyph 0 (.notdef).
	`)
	case "cover", "coverage":
		pterm.Info.Println("cover [all]")
		pterm.Println(`
	Counts the codepoints of every partition of the catalog the font maps.
	Each partition becomes one pair of webfonts per weight, so partitions
	with low coverage produce small files. Partitions without any coverage
	are hidden unless 'all' is given.
	`)
	case "local":
		pterm.Info.Println("local")
		pterm.Println(`
	Shows the names the local-first stylesheet references by local().
	They are read from the Windows English name records for family,
	PostScript name and typographic family.
	`)
	default:
		pterm.Info.Println("Commands")
		pterm.Println(`
	load <path> [face]   load a font file
	tables               list tables and their sizes
	names                list decoded name records
	cmap U+XXXX ...      look up codepoints
	cover [all]          partition coverage
	local                local() names of the local-first stylesheet
	help [topic]         help on cmap, cover or local
	quit                 leave (or <ctrl>D)
	`)
	}
}
