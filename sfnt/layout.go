package sfnt

import (
	"fmt"
	"sort"

	"github.com/go-text/typesetting/font/opentype/tables"
)

// LayoutFeatures returns the feature tags of a 'GSUB' or 'GPOS' table
// together with the number of lookups each feature references. A tag
// appearing in several feature records has its counts summed.
func (f *Font) LayoutFeatures(table Tag) (map[string]int, error) {
	data := f.Table(table)
	if data == nil {
		return nil, nil
	}
	layout, _, err := tables.ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table, err)
	}
	features := make(map[string]int, len(layout.FeatureList.Records))
	for i, rec := range layout.FeatureList.Records {
		features[rec.Tag.String()] += len(layout.FeatureList.Features[i].LookupListIndices)
	}
	return features, nil
}

// gsubClosure adds to keep every glyph which may be produced by a GSUB
// substitution of a retained feature. Contextual lookups are not evaluated;
// the lookups they call are applied to all kept glyphs instead.
func (f *Font) gsubClosure(keep map[uint16]bool, dropped map[string]bool) error {
	data := f.Table(tagGSUB)
	if data == nil {
		return nil
	}
	layout, _, err := tables.ParseLayout(data)
	if err != nil {
		return fmt.Errorf("GSUB: %w", err)
	}
	lookups := layout.LookupList.Lookups
	subtables := make(map[int][]tables.GSUBLookup)
	var queue []int
	enqueue := func(index int) {
		if _, seen := subtables[index]; seen || index >= len(lookups) {
			return
		}
		subtables[index] = nil
		queue = append(queue, index)
	}
	for i, rec := range layout.FeatureList.Records {
		if dropped[rec.Tag.String()] {
			continue
		}
		for _, index := range layout.FeatureList.Features[i].LookupListIndices {
			enqueue(int(index))
		}
	}
	for len(queue) > 0 {
		index := queue[0]
		queue = queue[1:]
		subs, err := lookups[index].AsGSUBLookups()
		if err != nil {
			return fmt.Errorf("GSUB lookup %d: %w", index, err)
		}
		for i, sub := range subs {
			if ext, ok := sub.(tables.ExtensionSubs); ok {
				if subs[i], err = ext.Resolve(); err != nil {
					return fmt.Errorf("GSUB lookup %d: %w", index, err)
				}
			}
			for _, nested := range nestedLookups(subs[i]) {
				enqueue(int(nested))
			}
		}
		subtables[index] = subs
	}
	order := make([]int, 0, len(subtables))
	for index := range subtables {
		order = append(order, index)
	}
	sort.Ints(order)
	before := len(keep)
	for changed := true; changed; {
		changed = false
		for _, index := range order {
			for _, sub := range subtables[index] {
				if applySubstitution(sub, keep) {
					changed = true
				}
			}
		}
	}
	tracer().Debugf("GSUB closure: %d lookups, %d → %d glyphs", len(order), before, len(keep))
	return nil
}

// forCoverage calls fn for every glyph of a coverage table and its coverage
// index.
func forCoverage(cov tables.Coverage, fn func(gid tables.GlyphID, index int)) {
	switch c := cov.(type) {
	case tables.Coverage1:
		for i, g := range c.Glyphs {
			fn(g, i)
		}
	case tables.Coverage2:
		for _, r := range c.Ranges {
			for g := int(r.StartGlyphID); g <= int(r.EndGlyphID); g++ {
				fn(tables.GlyphID(g), int(r.StartCoverageIndex)+g-int(r.StartGlyphID))
			}
		}
	}
}

// applySubstitution adds the output glyphs of a substitution subtable for
// all input glyphs in keep. It reports whether keep changed.
func applySubstitution(sub tables.GSUBLookup, keep map[uint16]bool) bool {
	changed := false
	add := func(gids ...tables.GlyphID) {
		for _, g := range gids {
			if !keep[g] {
				keep[g] = true
				changed = true
			}
		}
	}
	switch s := sub.(type) {
	case tables.SingleSubs:
		switch d := s.Data.(type) {
		case tables.SingleSubstData1:
			forCoverage(d.Coverage, func(g tables.GlyphID, _ int) {
				if keep[g] {
					add(tables.GlyphID(int(g) + int(d.DeltaGlyphID)))
				}
			})
		case tables.SingleSubstData2:
			forCoverage(d.Coverage, func(g tables.GlyphID, i int) {
				if keep[g] && i < len(d.SubstituteGlyphIDs) {
					add(d.SubstituteGlyphIDs[i])
				}
			})
		}
	case tables.MultipleSubs:
		forCoverage(s.Coverage, func(g tables.GlyphID, i int) {
			if keep[g] && i < len(s.Sequences) {
				add(s.Sequences[i].SubstituteGlyphIDs...)
			}
		})
	case tables.AlternateSubs:
		forCoverage(s.Coverage, func(g tables.GlyphID, i int) {
			if keep[g] && i < len(s.AlternateSets) {
				add(s.AlternateSets[i].AlternateGlyphIDs...)
			}
		})
	case tables.LigatureSubs:
		forCoverage(s.Coverage, func(g tables.GlyphID, i int) {
			if !keep[g] || i >= len(s.LigatureSets) {
				return
			}
		ligatures:
			for _, lig := range s.LigatureSets[i].Ligatures {
				for _, c := range lig.ComponentGlyphIDs {
					if !keep[c] {
						continue ligatures
					}
				}
				add(lig.LigatureGlyph)
			}
		})
	case tables.ReverseChainSingleSubs:
		forCoverage(s.Cov(), func(g tables.GlyphID, i int) {
			if keep[g] && i < len(s.SubstituteGlyphIDs) {
				add(s.SubstituteGlyphIDs[i])
			}
		})
	}
	return changed
}

// nestedLookups returns the lookup indices called by a contextual
// substitution.
func nestedLookups(sub tables.GSUBLookup) []uint16 {
	var nested []uint16
	records := func(recs []tables.SequenceLookupRecord) {
		for _, r := range recs {
			nested = append(nested, r.LookupListIndex)
		}
	}
	switch s := sub.(type) {
	case tables.ContextualSubs:
		switch d := s.Data.(type) {
		case tables.ContextualSubs1:
			for _, set := range d.SeqRuleSet {
				for _, rule := range set.SeqRule {
					records(rule.SeqLookupRecords)
				}
			}
		case tables.ContextualSubs2:
			for _, set := range d.ClassSeqRuleSet {
				for _, rule := range set.SeqRule {
					records(rule.SeqLookupRecords)
				}
			}
		case tables.ContextualSubs3:
			records(d.SeqLookupRecords)
		}
	case tables.ChainedContextualSubs:
		switch d := s.Data.(type) {
		case tables.ChainedContextualSubs1:
			for _, set := range d.ChainedSeqRuleSet {
				for _, rule := range set.ChainedSeqRules {
					records(rule.SeqLookupRecords)
				}
			}
		case tables.ChainedContextualSubs2:
			for _, set := range d.ChainedClassSeqRuleSet {
				for _, rule := range set.ChainedSeqRules {
					records(rule.SeqLookupRecords)
				}
			}
		case tables.ChainedContextualSubs3:
			records(d.SeqLookupRecords)
		}
	}
	return nested
}

// dropFeatures empties the lookup lists of features in a 'GSUB' or 'GPOS'
// table. Feature tables shared with a retained feature record are left
// alone. It returns the number of feature records neutralized.
func (f *Font) dropFeatures(table Tag, dropped map[string]bool) (int, error) {
	data := f.Table(table)
	if data == nil || len(dropped) == 0 {
		return 0, nil
	}
	if len(data) < 10 {
		return 0, errTable(table, "header", "table too short")
	}
	listOffset := int(u16(data[6:]))
	if listOffset+2 > len(data) {
		return 0, errTable(table, "FeatureList", "offset out of bounds")
	}
	count := int(u16(data[listOffset:]))
	if listOffset+2+6*count > len(data) {
		return 0, errTable(table, "FeatureList", "records out of bounds")
	}
	type record struct {
		tag    string
		offset int
	}
	records := make([]record, count)
	retained := make(map[int]bool)
	for i := range records {
		rec := data[listOffset+2+6*i:]
		records[i] = record{tag: Tag(u32(rec)).String(), offset: listOffset + int(u16(rec[4:]))}
		if !dropped[records[i].tag] {
			retained[records[i].offset] = true
		}
	}
	out := append([]byte(nil), data...)
	n := 0
	for _, rec := range records {
		if !dropped[rec.tag] || retained[rec.offset] {
			continue
		}
		if rec.offset+4 > len(out) {
			return 0, errTablef(table, "Feature", "feature %q out of bounds", rec.tag)
		}
		putU16(out[rec.offset+2:], 0) // lookupIndexCount
		n++
	}
	if n > 0 {
		f.SetTable(table, out)
	}
	return n, nil
}
