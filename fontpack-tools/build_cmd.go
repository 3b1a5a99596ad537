package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/npillmayer/fontpack/pipeline"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
)

func runBuildCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	initDisplay()
	setupTracing(mustFlagString(flags["trace"], "trace"))
	descriptors := splitCSVSpace(args["descriptors"].Value)
	if len(descriptors) == 0 {
		fatalf("at least one package descriptor is required")
	}
	conf := buildConfig(flags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	p := pipeline.New(conf)
	for _, d := range descriptors {
		pterm.Info.Printfln("building %s", d)
		if err := p.Run(ctx, strings.TrimSpace(d)); err != nil {
			stop()
			fatal(err)
		}
		pterm.Success.Printfln("%s done", d)
	}
}

// buildConfig collects the build flags into a configuration.
func buildConfig(flags map[string]commando.FlagValue) testconfig.Conf {
	conf := testconfig.Conf{
		pipeline.KeyOutput:       mustFlagString(flags["output"], "output"),
		pipeline.KeyWorkdir:      mustFlagString(flags["workdir"], "workdir"),
		pipeline.KeyGroups:       mustFlagString(flags["groups"], "groups"),
		pipeline.KeyTemplates:    mustFlagString(flags["templates"], "templates"),
		pipeline.KeyFontForge:    mustFlagString(flags["fontforge"], "fontforge"),
		pipeline.KeyWorkers:      mustFlagInt(flags["workers"], "workers"),
		pipeline.KeyOnlyCSS:      mustFlagBool(flags["only-css"], "only-css"),
		pipeline.KeySkipDownload: mustFlagBool(flags["skip-download"], "skip-download"),
	}
	return conf
}
