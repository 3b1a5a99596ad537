package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/npillmayer/fontpack"
	"github.com/npillmayer/fontpack/pipeline"
	"github.com/npillmayer/fontpack/webfont"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
	"golang.org/x/term"
)

func main() {
	commando.
		SetExecutableName("fontpack-tools").
		SetVersion("v0.1.0").
		SetDescription("Build webfont packages and inspect their fonts.")

	commando.
		Register(nil).
		AddFlag("verbose,V", "display additional output", commando.Bool, nil)

	commando.
		Register("build").
		SetDescription("Build webfonts, stylesheets and the archive of font packages.").
		SetShortDescription("build font packages").
		AddArgument("descriptors...", "package descriptor files (JSON)", "").
		AddFlag("output,o", "output root", commando.String, pipeline.DefaultOutput).
		AddFlag("workdir,w", "download and extraction directory", commando.String, "-").
		AddFlag("groups,g", "partition directory (default: built-in catalog)", commando.String, "-").
		AddFlag("templates", "template directory (default: built-in templates)", commando.String, "-").
		AddFlag("fontforge", "FontForge executable", commando.String, "fontforge").
		AddFlag("workers,j", "weights converted in parallel", commando.Int, webfont.DefaultWorkers).
		AddFlag("only-css", "generate stylesheets only", commando.Bool, nil).
		AddFlag("skip-download", "use --workdir as already extracted sources", commando.Bool, nil).
		AddFlag("trace,T", "trace level [Debug|Info|Error]", commando.String, "Info").
		SetAction(runBuildCommand)

	commando.
		Register("font").
		SetDescription("Print diagnostics, name records and partition coverage of a font file.").
		SetShortDescription("font diagnostics").
		AddArgument("font", "font file path", "").
		AddArgument("tables...", "optional list of table tags (e.g. GSUB,name,vmtx)", "").
		AddFlag("face,n", "face index within a font collection", commando.Int, 0).
		AddFlag("groups,g", "partition directory (default: built-in catalog)", commando.String, "-").
		AddFlag("names,N", "print all name records", commando.Bool, nil).
		SetAction(runFontCommand)

	commando.Parse(nil)
}

// setupTracing routes tracing through the Go logger at the given level.
func setupTracing(level string) {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":      "go",
		"trace.fontpack.build": level,
		"trace.fontpack.fonts": level,
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fatalf("error configuring tracing: %v", err)
	}
	tracing.SetTraceSelector(trace2go.Selector())
}

// We use pterm for moderately fancy output, unless stdout is redirected.
func initDisplay() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		pterm.DisableStyling()
	}
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func mustFlagString(flag commando.FlagValue, name string) string {
	s, err := flag.GetString()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	if s = strings.TrimSpace(s); s == "-" {
		return ""
	}
	return s
}

func mustFlagInt(flag commando.FlagValue, name string) int {
	n, err := flag.GetInt()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return n
}

func mustFlagBool(flag commando.FlagValue, name string) bool {
	b, err := flag.GetBool()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return b
}

func splitCSVSpace(spec string) []string {
	return strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func fatalf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, "fontpack-tools: "+format+"\n", args...)
	os.Exit(1)
}

// fatal reports err with its user message and exits.
func fatal(err error) {
	fatalf("%s", fontpack.UserMessage(err))
}
