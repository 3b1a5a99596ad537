package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// tracer traces with key 'fontpack.fonts'
func tracer() tracing.Trace {
	return tracing.Select("fontpack.fonts")
}

func main() {
	initDisplay()

	// set up logging
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":      "go",
		"trace.fontpack.fonts": "Info",
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font to load")
	face := flag.Int("face", 0, "Face index within a font collection")
	groups := flag.String("groups", "", "Partition directory (default: built-in catalog)")
	flag.Parse()
	tracer().SetTraceLevel(tracing.LevelError)   // will set the correct level later
	pterm.Info.Println("Welcome to fontpack CLI") // colored welcome message
	//
	// set up REPL
	repl, err := readline.New("fp > ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{repl: repl, catalog: partition.Default()}
	if *groups != "" {
		intp.catalog = partition.New(os.DirFS(*groups))
	}
	//
	// load font to use
	if err := intp.loadFont(*fontname, *face); err != nil {
		tracer().Errorf(err.Error())
		os.Exit(4)
	}
	//
	// start receiving commands
	pterm.Info.Println("Quit with <ctrl>D") // inform user how to stop the CLI
	switch *tlevel {
	case "Debug":
		tracer().SetTraceLevel(tracing.LevelDebug)
	case "Info":
		tracer().SetTraceLevel(tracing.LevelInfo)
	case "Error":
		tracer().SetTraceLevel(tracing.LevelError)
	default:
		tracer().Errorf("Invalid trace level: %s", *tlevel)
		os.Exit(5)
	}
	tracer().Infof("Trace level is %s", *tlevel)
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		pterm.DisableStyling()
	}
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object
type Intp struct {
	path    string
	face    int
	font    *sfnt.Font
	catalog *partition.Catalog
	repl    *readline.Instance
}

func (intp *Intp) String() string {
	if intp == nil || intp.font == nil {
		return "()"
	}
	return fmt.Sprintf("( font=%s#%d )", intp.path, intp.face)
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		pterm.Println(intp.String())
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		err, quit := intp.execute(cmd)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		if quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

// --- Font Loading -----------------------------------------------------

func (intp *Intp) loadFont(path string, face int) error {
	if path == "" {
		return fmt.Errorf("no font given, use -font")
	}
	f, err := sfnt.Load(path, face)
	if err != nil {
		tracer().Errorf("cannot load font %s: %s", path, err)
		return err
	}
	intp.path, intp.face, intp.font = path, face, f
	tracer().Infof("loaded font %s with %d tables", path, len(f.Tags()))
	return nil
}
