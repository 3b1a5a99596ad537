package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/npillmayer/fontpack/partition"
	"github.com/npillmayer/fontpack/query"
	"github.com/npillmayer/fontpack/sfnt"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
)

func runFontCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	initDisplay()
	fontPath := strings.TrimSpace(args["font"].Value)
	if fontPath == "" {
		fatalf("font path is required")
	}
	f, err := sfnt.Load(fontPath, mustFlagInt(flags["face"], "face"))
	if err != nil {
		fatalf("cannot load font %s: %v", fontPath, err)
	}

	fmt.Printf("Path: %s\n", fontPath)
	fmt.Printf("Type: %s\n", query.FontType(f))
	names := query.NameInfo(f)
	for _, key := range []string{"family", "subfamily", "version", "postscript"} {
		if s := names[key]; s != "" {
			fmt.Printf("%s: %s\n", strings.ToUpper(key[:1])+key[1:], s)
		}
	}
	if n, err := f.NumGlyphs(); err == nil {
		fmt.Printf("Glyphs: %d\n", n)
	}
	if head, ok := query.HeadInfo(f); ok {
		fmt.Printf("Units per em: %d, revision %.3f\n", head.UnitsPerEm, head.Revision())
	}
	fmt.Printf("Vertical metrics: %v\n", f.HasVerticalMetrics())

	tags := f.Tags()
	fmt.Printf("Tables (%d):", len(tags))
	for _, tag := range tags {
		fmt.Printf(" %s", tag.String())
	}
	fmt.Println()
	for _, table := range []string{"GSUB", "GPOS"} {
		if features, err := f.LayoutFeatures(sfnt.T(table)); err == nil && len(features) > 0 {
			fmt.Printf("%s features: %s\n", table, featureList(features))
		}
	}

	if len(args["tables"].Value) > 0 {
		printSelectedTables(f, args["tables"].Value)
	}
	if mustFlagBool(flags["names"], "names") {
		for key, s := range query.NamesRange(f) {
			fmt.Printf("name %d/%d/0x%04x #%d: %q\n", key.Platform, key.Encoding, key.Language, key.Name, s)
		}
	}
	printCoverage(f, catalog(mustFlagString(flags["groups"], "groups")))
}

func catalog(dir string) *partition.Catalog {
	if dir == "" {
		return partition.Default()
	}
	return partition.New(os.DirFS(dir))
}

func featureList(features map[string]int) string {
	tags := make([]string, 0, len(features))
	for tag := range features {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

func printSelectedTables(f *sfnt.Font, raw string) {
	for _, t := range splitCSVSpace(raw) {
		tagName := strings.TrimSpace(t)
		if tagName == "" {
			continue
		}
		tag := sfnt.T(tagName)
		if !f.HasTable(tag) {
			fmt.Printf("table %s: missing\n", tagName)
			continue
		}
		fmt.Printf("table %s: size=%d\n", tagName, len(f.Table(tag)))
	}
}

// printCoverage prints a table of the codepoints a font covers per
// partition, skipping partitions the font does not touch.
func printCoverage(f *sfnt.Font, c *partition.Catalog) {
	partitions, err := c.Partitions()
	if err != nil {
		fatalf("cannot load partition catalog: %v", err)
	}
	cov, err := query.Coverage(f, partitions)
	if err != nil {
		fatalf("cannot read cmap: %v", err)
	}
	data := pterm.TableData{{"Partition", "Covered", "Total"}}
	empty := 0
	for _, pc := range cov {
		if pc.Empty() {
			empty++
			continue
		}
		data = append(data, []string{pc.Index, strconv.Itoa(pc.Covered), strconv.Itoa(pc.Total)})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("%d of %d partitions not covered\n", empty, len(cov))
}
