package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/npillmayer/fontpack/query"
	"github.com/npillmayer/fontpack/stylesheet"
	"github.com/pterm/pterm"
)

// Op is a single command with its arguments.
type Op struct {
	code int
	args []string
}

const (
	QUIT int = iota
	HELP
	LOAD
	TABLES
	NAMES
	CMAP
	COVER
	LOCAL
)

var opMap = map[string]int{
	"quit":   QUIT,
	"help":   HELP,
	"load":   LOAD,
	"tables": TABLES,
	"names":  NAMES,
	"cmap":   CMAP,
	"cover":  COVER,
	"local":  LOCAL,
}

var ErrNoFont = errors.New("no font loaded")

// parseCommand splits a command line into the command word and its
// arguments. Arguments may be separated by blanks or colons, e.g.
// "cmap U+3042" or "cmap:U+3042".
func parseCommand(line string) (*Op, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ':'
	})
	if len(fields) == 0 {
		return nil, errors.New("empty command")
	}
	code, ok := opMap[strings.ToLower(fields[0])]
	if !ok {
		return nil, fmt.Errorf("unknown command %q, try 'help'", fields[0])
	}
	tracer().Debugf("parsed command: %v", fields)
	return &Op{code: code, args: fields[1:]}, nil
}

var commandFn = map[int]func(*Intp, *Op) (error, bool){
	QUIT:   quitOp,
	HELP:   helpOp,
	LOAD:   loadOp,
	TABLES: tablesOp,
	NAMES:  namesOp,
	CMAP:   cmapOp,
	COVER:  coverOp,
	LOCAL:  localOp,
}

func (intp *Intp) execute(op *Op) (err error, stop bool) {
	f, ok := commandFn[op.code]
	if !ok {
		return fmt.Errorf("unknown command code: %d", op.code), false
	}
	if op.code > LOAD && intp.font == nil {
		return ErrNoFont, false
	}
	return f(intp, op)
}

func quitOp(intp *Intp, op *Op) (error, bool) {
	pterm.Println("Goodbye!")
	return nil, true
}

func loadOp(intp *Intp, op *Op) (error, bool) {
	if len(op.args) == 0 {
		return errors.New("usage: load <path> [face]"), false
	}
	face := 0
	if len(op.args) > 1 {
		n, err := strconv.Atoi(op.args[1])
		if err != nil {
			return fmt.Errorf("invalid face index %q", op.args[1]), false
		}
		face = n
	}
	return intp.loadFont(op.args[0], face), false
}

func tablesOp(intp *Intp, op *Op) (error, bool) {
	data := pterm.TableData{{"Tag", "Size"}}
	for _, tag := range intp.font.Tags() {
		data = append(data, []string{tag.String(), strconv.Itoa(len(intp.font.Table(tag)))})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render(), false
}

func namesOp(intp *Intp, op *Op) (error, bool) {
	data := pterm.TableData{{"Platform", "Encoding", "Language", "ID", "Value"}}
	for key, s := range query.NamesRange(intp.font) {
		data = append(data, []string{
			strconv.Itoa(int(key.Platform)),
			strconv.Itoa(int(key.Encoding)),
			fmt.Sprintf("0x%04x", key.Language),
			strconv.Itoa(int(key.Name)),
			s,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render(), false
}

func cmapOp(intp *Intp, op *Op) (error, bool) {
	if len(op.args) == 0 {
		return errors.New("usage: cmap U+XXXX ..."), false
	}
	for _, arg := range op.args {
		r, err := parseCodepoint(arg)
		if err != nil {
			return err, false
		}
		gid, ok, err := intp.lookup(r)
		if err != nil {
			return err, false
		}
		if ok {
			pterm.Printf("U+%04X %q -> glyph %d\n", r, r, gid)
		} else {
			pterm.Printf("U+%04X %q -> not mapped\n", r, r)
		}
	}
	return nil, false
}

func (intp *Intp) lookup(r rune) (uint32, bool, error) {
	cmap, err := intp.font.CharMap()
	if err != nil {
		return 0, false, err
	}
	gid, ok := cmap.Lookup(r)
	return uint32(gid), ok, nil
}

func coverOp(intp *Intp, op *Op) (error, bool) {
	cov, err := intp.coverage()
	if err != nil {
		return err, false
	}
	data := pterm.TableData{{"Partition", "Covered", "Total"}}
	for _, pc := range cov {
		if pc.Empty() && (len(op.args) == 0 || op.args[0] != "all") {
			continue
		}
		data = append(data, []string{pc.Index, strconv.Itoa(pc.Covered), strconv.Itoa(pc.Total)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render(), false
}

func (intp *Intp) coverage() ([]query.PartitionCoverage, error) {
	partitions, err := intp.catalog.Partitions()
	if err != nil {
		return nil, err
	}
	return query.Coverage(intp.font, partitions)
}

func localOp(intp *Intp, op *Op) (error, bool) {
	names, err := stylesheet.LocalNames(intp.path, intp.face)
	if err != nil {
		return err, false
	}
	for _, name := range names {
		pterm.Printf("local('%s')\n", name)
	}
	return nil, false
}

func parseCodepoint(token string) (rune, error) {
	token = strings.TrimSpace(token)
	hex := token
	switch {
	case strings.HasPrefix(hex, "U+"), strings.HasPrefix(hex, "u+"):
		hex = hex[2:]
	case strings.HasPrefix(hex, "0x"), strings.HasPrefix(hex, "0X"):
		hex = hex[2:]
	default:
		if r := []rune(token); len(r) == 1 {
			return r[0], nil
		}
	}
	u, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || u > 0x10FFFF {
		return 0, fmt.Errorf("invalid codepoint %q", token)
	}
	return rune(u), nil
}
