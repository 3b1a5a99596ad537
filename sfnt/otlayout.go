package sfnt

import (
	"errors"
	"slices"

	"github.com/go-text/typesetting/font/opentype/tables"
)

// Rewriting of the OpenType layout tables 'GSUB', 'GPOS' and 'GDEF' for
// renumbered glyphs. Tables are decoded by go-text and encoded again from
// scratch. Coverage entries of glyphs not retained are removed together with
// the data attached to them; glyph based rules referring to such glyphs are
// removed as a whole. Device tables and variation data are not written.

var errOffsetOverflow = errors.New("offset overflow")

// otBlob is a table under construction. Offsets written by link point to
// children appended after the fixed part, in the order they were linked.
// Identical children are stored once.
type otBlob struct {
	data  []byte
	links []otLink
}

type otLink struct {
	at    int
	wide  bool
	child []byte
}

func (b *otBlob) u16(values ...uint16) {
	for _, v := range values {
		b.data = appendU16(b.data, v)
	}
}

func (b *otBlob) i16(v int16) {
	b.data = appendU16(b.data, uint16(v))
}

func (b *otBlob) tag(t tables.Tag) {
	b.data = appendU32(b.data, uint32(t))
}

// link writes a 16-bit offset to child. A nil child gives a NULL offset.
func (b *otBlob) link(child []byte) {
	if child != nil {
		b.links = append(b.links, otLink{at: len(b.data), child: child})
	}
	b.data = appendU16(b.data, 0)
}

// link32 writes a 32-bit offset to child.
func (b *otBlob) link32(child []byte) {
	if child != nil {
		b.links = append(b.links, otLink{at: len(b.data), wide: true, child: child})
	}
	b.data = appendU32(b.data, 0)
}

func (b *otBlob) records(recs []tables.SequenceLookupRecord) {
	for _, r := range recs {
		b.u16(r.SequenceIndex, r.LookupListIndex)
	}
}

func (b *otBlob) value(vf tables.ValueFormat, v tables.ValueRecord) {
	if vf&tables.XPlacement != 0 {
		b.i16(v.XPlacement)
	}
	if vf&tables.YPlacement != 0 {
		b.i16(v.YPlacement)
	}
	if vf&tables.XAdvance != 0 {
		b.i16(v.XAdvance)
	}
	if vf&tables.YAdvance != 0 {
		b.i16(v.YAdvance)
	}
}

func (b *otBlob) bytes() ([]byte, error) {
	out := b.data
	seen := make(map[string]int, len(b.links))
	for _, l := range b.links {
		off, ok := seen[string(l.child)]
		if !ok {
			off = len(out)
			seen[string(l.child)] = off
			out = append(out, l.child...)
		}
		if l.wide {
			putU32(out[l.at:], uint32(off))
			continue
		}
		if off > 0xFFFF {
			return nil, errOffsetOverflow
		}
		putU16(out[l.at:], uint16(off))
	}
	return out, nil
}

// layoutWriter encodes layout subtables for the glyphs of gm. The first
// encoding error sticks until reset.
type layoutWriter struct {
	gm  *glyphMap
	err error
}

func (w *layoutWriter) finish(b *otBlob) []byte {
	data, err := b.bytes()
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return nil
	}
	return data
}

// coverage maps a coverage table. It returns the retained glyphs in new ids,
// sorted, and for each of them its index in the old coverage.
func (gm *glyphMap) coverage(cov tables.Coverage) ([]uint16, []int) {
	type entry struct {
		gid   uint16
		index int
	}
	var entries []entry
	forCoverage(cov, func(g tables.GlyphID, index int) {
		if n, ok := gm.get(g); ok {
			entries = append(entries, entry{gid: n, index: index})
		}
	})
	slices.SortFunc(entries, func(a, b entry) int { return int(a.gid) - int(b.gid) })
	glyphs := make([]uint16, len(entries))
	indices := make([]int, len(entries))
	for i, e := range entries {
		glyphs[i], indices[i] = e.gid, e.index
	}
	return glyphs, indices
}

// encodeCoverage writes a coverage table for sorted glyphs, in whichever
// format is smaller.
func encodeCoverage(glyphs []uint16) []byte {
	type glyphRange struct{ first, last, index uint16 }
	var ranges []glyphRange
	for i, g := range glyphs {
		if n := len(ranges); n > 0 && ranges[n-1].last+1 == g {
			ranges[n-1].last = g
			continue
		}
		ranges = append(ranges, glyphRange{first: g, last: g, index: uint16(i)})
	}
	var b otBlob
	if 6*len(ranges) < 2*len(glyphs) {
		b.u16(2, uint16(len(ranges)))
		for _, r := range ranges {
			b.u16(r.first, r.last, r.index)
		}
		return b.data
	}
	b.u16(1, uint16(len(glyphs)))
	b.u16(glyphs...)
	return b.data
}

// classDef maps a class definition. Class values are kept.
func (w *layoutWriter) classDef(cd tables.ClassDef) []byte {
	type entry struct{ gid, class uint16 }
	var entries []entry
	add := func(g int, class uint16) {
		if n, ok := w.gm.get(uint16(g)); ok && class != 0 {
			entries = append(entries, entry{gid: n, class: class})
		}
	}
	switch c := cd.(type) {
	case tables.ClassDef1:
		for i, class := range c.ClassValueArray {
			add(int(c.StartGlyphID)+i, class)
		}
	case tables.ClassDef2:
		for _, r := range c.ClassRangeRecords {
			for g := int(r.StartGlyphID); g <= int(r.EndGlyphID); g++ {
				add(g, r.Class)
			}
		}
	}
	slices.SortFunc(entries, func(a, b entry) int { return int(a.gid) - int(b.gid) })
	type classRange struct{ first, last, class uint16 }
	var ranges []classRange
	for _, e := range entries {
		if n := len(ranges); n > 0 && ranges[n-1].last+1 == e.gid && ranges[n-1].class == e.class {
			ranges[n-1].last = e.gid
			continue
		}
		ranges = append(ranges, classRange{first: e.gid, last: e.gid, class: e.class})
	}
	var b otBlob
	b.u16(2, uint16(len(ranges)))
	for _, r := range ranges {
		b.u16(r.first, r.last, r.class)
	}
	return b.data
}

func (w *layoutWriter) optionalClassDef(cd tables.ClassDef) []byte {
	if cd == nil {
		return nil
	}
	return w.classDef(cd)
}

// coverages maps a sequence of coverage tables. It fails if one of them
// ends up empty, as the sequence could never match.
func (w *layoutWriter) coverages(covs []tables.Coverage) ([][]byte, bool) {
	out := make([][]byte, len(covs))
	for i, cov := range covs {
		glyphs, _ := w.gm.coverage(cov)
		if len(glyphs) == 0 {
			return nil, false
		}
		out[i] = encodeCoverage(glyphs)
	}
	return out, true
}

// list writes a count followed by offsets to items.
func (w *layoutWriter) list(items [][]byte) []byte {
	var b otBlob
	b.u16(uint16(len(items)))
	for _, item := range items {
		b.link(item)
	}
	return w.finish(&b)
}

func anchor(a tables.Anchor) []byte {
	var b otBlob
	switch a := a.(type) {
	case tables.AnchorFormat1:
		b.u16(1)
		b.i16(a.XCoordinate)
		b.i16(a.YCoordinate)
	case tables.AnchorFormat2:
		b.u16(2)
		b.i16(a.XCoordinate)
		b.i16(a.YCoordinate)
		b.u16(a.AnchorPoint)
	case tables.AnchorFormat3:
		b.u16(1)
		b.i16(a.XCoordinate)
		b.i16(a.YCoordinate)
	default:
		return nil
	}
	return b.data
}

// matrixAnchor returns an anchor of an anchor matrix, or nil for indices out
// of range.
func matrixAnchor(m tables.AnchorMatrix, index, class int) (a tables.Anchor) {
	if index >= m.Len() {
		return nil
	}
	defer func() {
		// the matrix does not check the class against its row length
		if recover() != nil {
			a = nil
		}
	}()
	return m.Anchor(index, class)
}

// --- Contextual lookups ----------------------------------------------------

func (w *layoutWriter) seqRule(input []uint16, recs []tables.SequenceLookupRecord) []byte {
	var b otBlob
	b.u16(uint16(len(input)+1), uint16(len(recs)))
	b.u16(input...)
	b.records(recs)
	return b.data
}

func (w *layoutWriter) chainedRule(back, input, ahead []uint16, recs []tables.SequenceLookupRecord) []byte {
	var b otBlob
	b.u16(uint16(len(back)))
	b.u16(back...)
	b.u16(uint16(len(input) + 1))
	b.u16(input...)
	b.u16(uint16(len(ahead)))
	b.u16(ahead...)
	b.u16(uint16(len(recs)))
	b.records(recs)
	return b.data
}

// context1 encodes a glyph based sequence context.
func (w *layoutWriter) context1(cov tables.Coverage, sets []tables.SequenceRuleSet) []byte {
	glyphs, indices := w.gm.coverage(cov)
	var covered []uint16
	var ruleSets [][]byte
	for k, i := range indices {
		if i >= len(sets) {
			continue
		}
		var rules [][]byte
		for _, rule := range sets[i].SeqRule {
			if input, ok := w.gm.all(rule.InputSequence); ok {
				rules = append(rules, w.seqRule(input, rule.SeqLookupRecords))
			}
		}
		if len(rules) > 0 {
			covered = append(covered, glyphs[k])
			ruleSets = append(ruleSets, w.list(rules))
		}
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(ruleSets)))
	for _, set := range ruleSets {
		b.link(set)
	}
	return w.finish(&b)
}

// context2 encodes a class based sequence context. Rules refer to classes
// and are kept as they are.
func (w *layoutWriter) context2(cov tables.Coverage, cd tables.ClassDef, sets []tables.SequenceRuleSet) []byte {
	glyphs, _ := w.gm.coverage(cov)
	if len(glyphs) == 0 {
		return nil
	}
	var b otBlob
	b.u16(2)
	b.link(encodeCoverage(glyphs))
	b.link(w.classDef(cd))
	b.u16(uint16(len(sets)))
	for _, set := range sets {
		if len(set.SeqRule) == 0 {
			b.link(nil)
			continue
		}
		rules := make([][]byte, len(set.SeqRule))
		for i, rule := range set.SeqRule {
			rules[i] = w.seqRule(rule.InputSequence, rule.SeqLookupRecords)
		}
		b.link(w.list(rules))
	}
	return w.finish(&b)
}

// context3 encodes a coverage based sequence context.
func (w *layoutWriter) context3(covs []tables.Coverage, recs []tables.SequenceLookupRecord) []byte {
	input, ok := w.coverages(covs)
	if !ok {
		return nil
	}
	var b otBlob
	b.u16(3, uint16(len(input)), uint16(len(recs)))
	for _, cov := range input {
		b.link(cov)
	}
	b.records(recs)
	return w.finish(&b)
}

func (w *layoutWriter) chained1(cov tables.Coverage, sets []tables.ChainedSequenceRuleSet) []byte {
	glyphs, indices := w.gm.coverage(cov)
	var covered []uint16
	var ruleSets [][]byte
	for k, i := range indices {
		if i >= len(sets) {
			continue
		}
		var rules [][]byte
		for _, rule := range sets[i].ChainedSeqRules {
			back, ok1 := w.gm.all(rule.BacktrackSequence)
			input, ok2 := w.gm.all(rule.InputSequence)
			ahead, ok3 := w.gm.all(rule.LookaheadSequence)
			if ok1 && ok2 && ok3 {
				rules = append(rules, w.chainedRule(back, input, ahead, rule.SeqLookupRecords))
			}
		}
		if len(rules) > 0 {
			covered = append(covered, glyphs[k])
			ruleSets = append(ruleSets, w.list(rules))
		}
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(ruleSets)))
	for _, set := range ruleSets {
		b.link(set)
	}
	return w.finish(&b)
}

func (w *layoutWriter) chained2(cov tables.Coverage, back, input, ahead tables.ClassDef,
	sets []tables.ChainedSequenceRuleSet) []byte {
	glyphs, _ := w.gm.coverage(cov)
	if len(glyphs) == 0 {
		return nil
	}
	var b otBlob
	b.u16(2)
	b.link(encodeCoverage(glyphs))
	b.link(w.classDef(back))
	b.link(w.classDef(input))
	b.link(w.classDef(ahead))
	b.u16(uint16(len(sets)))
	for _, set := range sets {
		if len(set.ChainedSeqRules) == 0 {
			b.link(nil)
			continue
		}
		rules := make([][]byte, len(set.ChainedSeqRules))
		for i, rule := range set.ChainedSeqRules {
			rules[i] = w.chainedRule(rule.BacktrackSequence, rule.InputSequence,
				rule.LookaheadSequence, rule.SeqLookupRecords)
		}
		b.link(w.list(rules))
	}
	return w.finish(&b)
}

func (w *layoutWriter) chained3(back, input, ahead []tables.Coverage, recs []tables.SequenceLookupRecord) []byte {
	backCovs, ok1 := w.coverages(back)
	inputCovs, ok2 := w.coverages(input)
	aheadCovs, ok3 := w.coverages(ahead)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	var b otBlob
	b.u16(3)
	for _, covs := range [][][]byte{backCovs, inputCovs, aheadCovs} {
		b.u16(uint16(len(covs)))
		for _, cov := range covs {
			b.link(cov)
		}
	}
	b.u16(uint16(len(recs)))
	b.records(recs)
	return w.finish(&b)
}

// --- GSUB ------------------------------------------------------------------

// gsubSubtable encodes a substitution subtable. It returns the lookup type
// and nil if nothing is left of the subtable.
func (w *layoutWriter) gsubSubtable(sub tables.GSUBLookup) (uint16, []byte) {
	switch s := sub.(type) {
	case tables.SingleSubs:
		return 1, w.singleSubst(s)
	case tables.MultipleSubs:
		seqs := make([][]uint16, len(s.Sequences))
		for i, seq := range s.Sequences {
			seqs[i] = seq.SubstituteGlyphIDs
		}
		return 2, w.glyphSequences(s.Coverage, seqs, false)
	case tables.AlternateSubs:
		seqs := make([][]uint16, len(s.AlternateSets))
		for i, set := range s.AlternateSets {
			seqs[i] = set.AlternateGlyphIDs
		}
		return 3, w.glyphSequences(s.Coverage, seqs, true)
	case tables.LigatureSubs:
		return 4, w.ligatureSubst(s)
	case tables.ContextualSubs:
		switch d := s.Data.(type) {
		case tables.ContextualSubs1:
			return 5, w.context1(d.Cov(), d.SeqRuleSet)
		case tables.ContextualSubs2:
			return 5, w.context2(d.Cov(), d.ClassDef, d.ClassSeqRuleSet)
		case tables.ContextualSubs3:
			return 5, w.context3(d.Coverages, d.SeqLookupRecords)
		}
	case tables.ChainedContextualSubs:
		switch d := s.Data.(type) {
		case tables.ChainedContextualSubs1:
			return 6, w.chained1(d.Cov(), d.ChainedSeqRuleSet)
		case tables.ChainedContextualSubs2:
			return 6, w.chained2(d.Cov(), d.BacktrackClassDef, d.InputClassDef, d.LookaheadClassDef,
				d.ChainedClassSeqRuleSet)
		case tables.ChainedContextualSubs3:
			return 6, w.chained3(d.BacktrackCoverages, d.InputCoverages, d.LookaheadCoverages,
				d.SeqLookupRecords)
		}
	case tables.ReverseChainSingleSubs:
		return 8, w.reverseChainSubst(s)
	}
	return 0, nil
}

// singleSubst always writes format 2, as deltas do not survive renumbering.
func (w *layoutWriter) singleSubst(s tables.SingleSubs) []byte {
	glyphs, indices := w.gm.coverage(s.Cov())
	var in, out []uint16
	for k, i := range indices {
		var sub uint16
		switch d := s.Data.(type) {
		case tables.SingleSubstData1:
			sub = uint16(int(w.gm.old[glyphs[k]]) + int(d.DeltaGlyphID))
		case tables.SingleSubstData2:
			if i >= len(d.SubstituteGlyphIDs) {
				continue
			}
			sub = d.SubstituteGlyphIDs[i]
		}
		if n, ok := w.gm.get(sub); ok {
			in, out = append(in, glyphs[k]), append(out, n)
		}
	}
	if len(in) == 0 {
		return nil
	}
	var b otBlob
	b.u16(2)
	b.link(encodeCoverage(in))
	b.u16(uint16(len(out)))
	b.u16(out...)
	return w.finish(&b)
}

// glyphSequences encodes multiple and alternate substitutions. With partial
// set, glyphs not retained are removed from a sequence; otherwise the
// sequence is removed.
func (w *layoutWriter) glyphSequences(cov tables.Coverage, seqs [][]uint16, partial bool) []byte {
	glyphs, indices := w.gm.coverage(cov)
	var covered []uint16
	var items [][]byte
	for k, i := range indices {
		if i >= len(seqs) {
			continue
		}
		var out []uint16
		if partial {
			for _, g := range seqs[i] {
				if n, ok := w.gm.get(g); ok {
					out = append(out, n)
				}
			}
			if len(out) == 0 {
				continue
			}
		} else {
			var ok bool
			if out, ok = w.gm.all(seqs[i]); !ok {
				continue
			}
		}
		var seq otBlob
		seq.u16(uint16(len(out)))
		seq.u16(out...)
		covered = append(covered, glyphs[k])
		items = append(items, seq.data)
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(items)))
	for _, item := range items {
		b.link(item)
	}
	return w.finish(&b)
}

func (w *layoutWriter) ligatureSubst(s tables.LigatureSubs) []byte {
	glyphs, indices := w.gm.coverage(s.Coverage)
	var covered []uint16
	var sets [][]byte
	for k, i := range indices {
		if i >= len(s.LigatureSets) {
			continue
		}
		var ligs [][]byte
		for _, lig := range s.LigatureSets[i].Ligatures {
			g, ok1 := w.gm.get(lig.LigatureGlyph)
			comps, ok2 := w.gm.all(lig.ComponentGlyphIDs)
			if !ok1 || !ok2 {
				continue
			}
			var b otBlob
			b.u16(g, uint16(len(comps)+1))
			b.u16(comps...)
			ligs = append(ligs, b.data)
		}
		if len(ligs) > 0 {
			covered = append(covered, glyphs[k])
			sets = append(sets, w.list(ligs))
		}
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(sets)))
	for _, set := range sets {
		b.link(set)
	}
	return w.finish(&b)
}

func (w *layoutWriter) reverseChainSubst(s tables.ReverseChainSingleSubs) []byte {
	back, ok1 := w.coverages(s.BacktrackCoverages)
	ahead, ok2 := w.coverages(s.LookaheadCoverages)
	if !ok1 || !ok2 {
		return nil
	}
	glyphs, indices := w.gm.coverage(s.Cov())
	var in, out []uint16
	for k, i := range indices {
		if i >= len(s.SubstituteGlyphIDs) {
			continue
		}
		if n, ok := w.gm.get(s.SubstituteGlyphIDs[i]); ok {
			in, out = append(in, glyphs[k]), append(out, n)
		}
	}
	if len(in) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(in))
	for _, covs := range [][][]byte{back, ahead} {
		b.u16(uint16(len(covs)))
		for _, cov := range covs {
			b.link(cov)
		}
	}
	b.u16(uint16(len(out)))
	b.u16(out...)
	return w.finish(&b)
}

// --- GPOS ------------------------------------------------------------------

// gposSubtable encodes a positioning subtable. It returns the lookup type
// and nil if nothing is left of the subtable.
func (w *layoutWriter) gposSubtable(sub tables.GPOSLookup) (uint16, []byte) {
	switch s := sub.(type) {
	case tables.SinglePos:
		return 1, w.singlePos(s)
	case tables.PairPos:
		switch d := s.Data.(type) {
		case tables.PairPosData1:
			return 2, w.pairPos1(d)
		case tables.PairPosData2:
			return 2, w.pairPos2(d)
		}
	case tables.CursivePos:
		return 3, w.cursivePos(s)
	case tables.MarkBasePos:
		return 4, w.markAttach(s.Cov(), s.MarkArray, s.BaseCoverage, s.BaseArray.Anchors(),
			markClassCount(s.MarkArray))
	case tables.MarkLigPos:
		return 5, w.markLigPos(s)
	case tables.MarkMarkPos:
		return 6, w.markAttach(s.Mark1Coverage, s.Mark1Array, s.Mark2Coverage, s.Mark2Array.Anchors(),
			int(s.MarkClassCount))
	case tables.ContextualPos:
		switch d := s.Data.(type) {
		case tables.ContextualPos1:
			return 7, w.context1(d.Cov(), d.SeqRuleSet)
		case tables.ContextualPos2:
			return 7, w.context2(d.Cov(), d.ClassDef, d.ClassSeqRuleSet)
		case tables.ContextualPos3:
			return 7, w.context3(d.Coverages, d.SeqLookupRecords)
		}
	case tables.ChainedContextualPos:
		switch d := s.Data.(type) {
		case tables.ChainedContextualPos1:
			return 8, w.chained1(d.Cov(), d.ChainedSeqRuleSet)
		case tables.ChainedContextualPos2:
			return 8, w.chained2(d.Cov(), d.BacktrackClassDef, d.InputClassDef, d.LookaheadClassDef,
				d.ChainedClassSeqRuleSet)
		case tables.ChainedContextualPos3:
			return 8, w.chained3(d.BacktrackCoverages, d.InputCoverages, d.LookaheadCoverages,
				d.SeqLookupRecords)
		}
	}
	return 0, nil
}

// noDevices masks device table offsets out of a value format.
func noDevices(vf tables.ValueFormat) tables.ValueFormat {
	return vf &^ tables.Devices
}

func (w *layoutWriter) singlePos(s tables.SinglePos) []byte {
	glyphs, indices := w.gm.coverage(s.Cov())
	var b otBlob
	switch d := s.Data.(type) {
	case tables.SinglePosData1:
		if len(glyphs) == 0 {
			return nil
		}
		vf := noDevices(d.ValueFormat)
		b.u16(1)
		b.link(encodeCoverage(glyphs))
		b.u16(uint16(vf))
		b.value(vf, d.ValueRecord)
	case tables.SinglePosData2:
		var covered []uint16
		var values []tables.ValueRecord
		for k, i := range indices {
			if i < len(d.ValueRecords) {
				covered = append(covered, glyphs[k])
				values = append(values, d.ValueRecords[i])
			}
		}
		if len(covered) == 0 {
			return nil
		}
		vf := noDevices(d.ValueFormat)
		b.u16(2)
		b.link(encodeCoverage(covered))
		b.u16(uint16(vf), uint16(len(values)))
		for _, v := range values {
			b.value(vf, v)
		}
	default:
		return nil
	}
	return w.finish(&b)
}

func (w *layoutWriter) pairPos1(d tables.PairPosData1) []byte {
	vf1, vf2 := noDevices(d.ValueFormat1), noDevices(d.ValueFormat2)
	glyphs, indices := w.gm.coverage(d.Cov())
	var covered []uint16
	var sets [][]byte
	for k, i := range indices {
		if i >= len(d.PairSets) {
			continue
		}
		var recs otBlob
		count := 0
		for second, old := range w.gm.old {
			rec, ok := d.PairSets[i].FindGlyph(old)
			if !ok {
				continue
			}
			recs.u16(uint16(second))
			recs.value(vf1, rec.ValueRecord1)
			recs.value(vf2, rec.ValueRecord2)
			count++
		}
		if count == 0 {
			continue
		}
		covered = append(covered, glyphs[k])
		sets = append(sets, append(appendU16(nil, uint16(count)), recs.data...))
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(vf1), uint16(vf2), uint16(len(sets)))
	for _, set := range sets {
		b.link(set)
	}
	return w.finish(&b)
}

// pairPos2 keeps the class matrix as it is.
func (w *layoutWriter) pairPos2(d tables.PairPosData2) []byte {
	glyphs, _ := w.gm.coverage(d.Cov())
	if len(glyphs) == 0 || d.ClassDef1 == nil || d.ClassDef2 == nil {
		return nil
	}
	vf1, vf2 := noDevices(d.ValueFormat1), noDevices(d.ValueFormat2)
	count1, count2 := d.ClassDef1.Extent(), d.ClassDef2.Extent()
	var b otBlob
	b.u16(2)
	b.link(encodeCoverage(glyphs))
	b.u16(uint16(vf1), uint16(vf2))
	b.link(w.classDef(d.ClassDef1))
	b.link(w.classDef(d.ClassDef2))
	b.u16(uint16(count1), uint16(count2))
	for c1 := range count1 {
		for c2 := range count2 {
			rec := d.Record(uint16(c1), uint16(c2))
			b.value(vf1, rec.ValueRecord1)
			b.value(vf2, rec.ValueRecord2)
		}
	}
	return w.finish(&b)
}

func (w *layoutWriter) cursivePos(s tables.CursivePos) []byte {
	glyphs, indices := w.gm.coverage(s.Cov())
	var covered []uint16
	var entries []tables.EntryExit
	for k, i := range indices {
		if i < len(s.EntryExits) {
			covered = append(covered, glyphs[k])
			entries = append(entries, s.EntryExits[i])
		}
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(entries)))
	for _, e := range entries {
		b.link(anchor(e.EntryAnchor))
		b.link(anchor(e.ExitAnchor))
	}
	return w.finish(&b)
}

// markClassCount derives the number of mark classes from the mark records.
func markClassCount(ma tables.MarkArray) int {
	count := 0
	for _, rec := range ma.MarkRecords {
		count = max(count, int(rec.MarkClass)+1)
	}
	return count
}

// markArray maps the marks of a mark coverage and returns the retained marks
// together with their mark array.
func (w *layoutWriter) markArray(cov tables.Coverage, ma tables.MarkArray) ([]uint16, []byte) {
	glyphs, indices := w.gm.coverage(cov)
	var marks []uint16
	var b otBlob
	b.u16(0)
	for k, i := range indices {
		if i >= len(ma.MarkRecords) || i >= len(ma.MarkAnchors) {
			continue
		}
		marks = append(marks, glyphs[k])
		b.u16(ma.MarkRecords[i].MarkClass)
		b.link(anchor(ma.MarkAnchors[i]))
	}
	putU16(b.data, uint16(len(marks)))
	return marks, w.finish(&b)
}

// markAttach encodes mark-to-base and mark-to-mark attachments, which share
// their layout.
func (w *layoutWriter) markAttach(markCov tables.Coverage, ma tables.MarkArray,
	baseCov tables.Coverage, bases tables.AnchorMatrix, classCount int) []byte {
	marks, markArray := w.markArray(markCov, ma)
	glyphs, indices := w.gm.coverage(baseCov)
	if len(marks) == 0 || len(glyphs) == 0 {
		return nil
	}
	var baseArray otBlob
	baseArray.u16(uint16(len(glyphs)))
	for _, i := range indices {
		for class := range classCount {
			baseArray.link(anchor(matrixAnchor(bases, i, class)))
		}
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(marks))
	b.link(encodeCoverage(glyphs))
	b.u16(uint16(classCount))
	b.link(markArray)
	b.link(w.finish(&baseArray))
	return w.finish(&b)
}

func (w *layoutWriter) markLigPos(s tables.MarkLigPos) []byte {
	marks, markArray := w.markArray(s.MarkCoverage, s.MarkArray)
	glyphs, indices := w.gm.coverage(s.LigatureCoverage)
	var ligs []uint16
	var attachs [][]byte
	for k, i := range indices {
		if i >= len(s.LigatureArray.LigatureAttachs) {
			continue
		}
		rows := s.LigatureArray.LigatureAttachs[i].Anchors()
		var attach otBlob
		attach.u16(uint16(rows.Len()))
		for comp := range rows.Len() {
			for class := range int(s.MarkClassCount) {
				attach.link(anchor(matrixAnchor(rows, comp, class)))
			}
		}
		ligs = append(ligs, glyphs[k])
		attachs = append(attachs, w.finish(&attach))
	}
	if len(marks) == 0 || len(ligs) == 0 {
		return nil
	}
	var b otBlob
	b.u16(1)
	b.link(encodeCoverage(marks))
	b.link(encodeCoverage(ligs))
	b.u16(s.MarkClassCount)
	b.link(markArray)
	b.link(w.list(attachs))
	return w.finish(&b)
}

// --- Lookup lists ----------------------------------------------------------

// Extension lookup types
const (
	gsubExtension = 7
	gposExtension = 9
)

const useMarkFilteringSet = 0x0010

type otSubtable struct {
	kind uint16 // lookup type
	data []byte
}

type otLookup struct {
	flag      uint16
	markSet   uint16
	subtables []otSubtable
}

// remapLayout rewrites a 'GSUB' or 'GPOS' table for the glyphs of gm. Every
// lookup keeps its index and is written as an extension lookup. Feature
// parameters and feature variations are dropped.
func (f *Font) remapLayout(table Tag, gm *glyphMap) error {
	data := f.Table(table)
	if data == nil {
		return nil
	}
	layout, _, err := tables.ParseLayout(data)
	if err != nil {
		return errTablef(table, "header", "%v", err)
	}
	w := &layoutWriter{gm: gm}
	lookups := make([]otLookup, len(layout.LookupList.Lookups))
	dropped := 0
	for i, lk := range layout.LookupList.Lookups {
		lookups[i] = otLookup{flag: lk.LookupFlag, markSet: lk.MarkFilteringSet}
		var subs []otSubtable
		if table == tagGSUB {
			subs, err = w.gsubLookup(lk)
		} else {
			subs, err = w.gposLookup(lk)
		}
		if err != nil {
			return errTablef(table, "LookupList", "lookup %d: %v", i, err)
		}
		lookups[i].subtables = subs
		if len(subs) == 0 {
			dropped++
		}
	}
	if layout.FeatureVariations != nil {
		tracer().Infof("%s: dropping feature variations", table)
	}
	ext := uint16(gsubExtension)
	if table == tagGPOS {
		ext = gposExtension
	}
	out, err := w.encodeLayout(layout, lookups, ext)
	if err != nil {
		return errTablef(table, "header", "%v", err)
	}
	tracer().Debugf("%s: %d lookups, %d of them empty, %d → %d bytes", table, len(lookups), dropped,
		len(data), len(out))
	f.SetTable(table, out)
	return nil
}

func (w *layoutWriter) gsubLookup(lk tables.Lookup) ([]otSubtable, error) {
	subs, err := lk.AsGSUBLookups()
	if err != nil {
		return nil, err
	}
	var out []otSubtable
	for _, sub := range subs {
		if ext, ok := sub.(tables.ExtensionSubs); ok {
			if sub, err = ext.Resolve(); err != nil {
				return nil, err
			}
		}
		w.err = nil
		kind, data := w.gsubSubtable(sub)
		if w.err != nil {
			tracer().Infof("GSUB: dropping subtable of type %d: %v", kind, w.err)
			continue
		}
		if data != nil {
			out = append(out, otSubtable{kind: kind, data: data})
		}
	}
	return out, nil
}

func (w *layoutWriter) gposLookup(lk tables.Lookup) ([]otSubtable, error) {
	subs, err := lk.AsGPOSLookups()
	if err != nil {
		return nil, err
	}
	var out []otSubtable
	for _, sub := range subs {
		if ext, ok := sub.(tables.ExtensionPos); ok {
			if sub, err = ext.Resolve(); err != nil {
				return nil, err
			}
		}
		w.err = nil
		kind, data := w.gposSubtable(sub)
		if w.err != nil {
			tracer().Infof("GPOS: dropping subtable of type %d: %v", kind, w.err)
			continue
		}
		if data != nil {
			out = append(out, otSubtable{kind: kind, data: data})
		}
	}
	return out, nil
}

func (w *layoutWriter) langSys(ls *tables.LangSys) []byte {
	if ls == nil {
		return nil
	}
	var b otBlob
	b.u16(0, ls.RequiredFeatureIndex, uint16(len(ls.FeatureIndices)))
	b.u16(ls.FeatureIndices...)
	return b.data
}

func (w *layoutWriter) scriptList(sl tables.ScriptList) []byte {
	var b otBlob
	b.u16(uint16(len(sl.Records)))
	for i, rec := range sl.Records {
		if i >= len(sl.Scripts) {
			break
		}
		script := sl.Scripts[i]
		var s otBlob
		s.link(w.langSys(script.DefaultLangSys))
		s.u16(uint16(len(script.LangSysRecords)))
		for j, lrec := range script.LangSysRecords {
			s.tag(lrec.Tag)
			if j < len(script.LangSys) {
				s.link(w.langSys(&script.LangSys[j]))
			} else {
				s.link(w.langSys(&tables.LangSys{RequiredFeatureIndex: 0xFFFF}))
			}
		}
		b.tag(rec.Tag)
		b.link(w.finish(&s))
	}
	return w.finish(&b)
}

func (w *layoutWriter) featureList(fl tables.FeatureList) []byte {
	var b otBlob
	b.u16(uint16(len(fl.Records)))
	for i, rec := range fl.Records {
		var feat otBlob
		if i < len(fl.Features) {
			indices := fl.Features[i].LookupListIndices
			feat.u16(0, uint16(len(indices)))
			feat.u16(indices...)
		} else {
			feat.u16(0, 0)
		}
		b.tag(rec.Tag)
		b.link(feat.data)
	}
	return w.finish(&b)
}

// lookupList encodes lookups as extension lookups. It returns the list and,
// for every extension subtable, its position in the list and the subtable
// it refers to.
func lookupList(lookups []otLookup, ext uint16) ([]byte, []int, [][]byte, error) {
	out := appendU16(nil, uint16(len(lookups)))
	out = append(out, make([]byte, 2*len(lookups))...)
	var positions []int
	var payloads [][]byte
	for i, lk := range lookups {
		start := len(out)
		if start > 0xFFFF {
			return nil, nil, nil, errOffsetOverflow
		}
		putU16(out[2+2*i:], uint16(start))
		out = appendU16(out, ext)
		out = appendU16(out, lk.flag)
		out = appendU16(out, uint16(len(lk.subtables)))
		offsets := len(out)
		out = append(out, make([]byte, 2*len(lk.subtables))...)
		if lk.flag&useMarkFilteringSet != 0 {
			out = appendU16(out, lk.markSet)
		}
		for j, sub := range lk.subtables {
			putU16(out[offsets+2*j:], uint16(len(out)-start))
			positions = append(positions, len(out))
			payloads = append(payloads, sub.data)
			out = appendU16(out, 1)
			out = appendU16(out, sub.kind)
			out = appendU32(out, 0)
		}
	}
	return out, positions, payloads, nil
}

// encodeLayout writes a version 1.0 layout table. Extension subtables are
// placed after the lookup list.
func (w *layoutWriter) encodeLayout(layout tables.Layout, lookups []otLookup, ext uint16) ([]byte, error) {
	w.err = nil
	scripts := w.scriptList(layout.ScriptList)
	features := w.featureList(layout.FeatureList)
	if w.err != nil {
		return nil, w.err
	}
	list, positions, payloads, err := lookupList(lookups, ext)
	if err != nil {
		return nil, err
	}
	const headerSize = 10
	scriptsAt := headerSize
	featuresAt := scriptsAt + len(scripts)
	lookupsAt := featuresAt + len(features)
	if lookupsAt > 0xFFFF {
		return nil, errOffsetOverflow
	}
	out := make([]byte, 0, lookupsAt+len(list))
	out = appendU16(out, 1)
	out = appendU16(out, 0)
	out = appendU16(out, uint16(scriptsAt))
	out = appendU16(out, uint16(featuresAt))
	out = appendU16(out, uint16(lookupsAt))
	out = append(out, scripts...)
	out = append(out, features...)
	out = append(out, list...)
	for i, payload := range payloads {
		at := lookupsAt + positions[i]
		putU32(out[at+4:], uint32(len(out)-at))
		out = append(out, payload...)
	}
	return out, nil
}

// --- GDEF ------------------------------------------------------------------

// remapGDEF rewrites table 'GDEF' for the glyphs of gm. The item variation
// store is dropped.
func (f *Font) remapGDEF(gm *glyphMap) error {
	data := f.Table(tagGDEF)
	if data == nil {
		return nil
	}
	gdef, _, err := tables.ParseGDEF(data)
	if err != nil {
		return errTablef(tagGDEF, "header", "%v", err)
	}
	w := &layoutWriter{gm: gm}
	sets := gdef.MarkGlyphSetsDef.Coverages
	var b otBlob
	if len(sets) > 0 {
		b.u16(1, 2)
	} else {
		b.u16(1, 0)
	}
	b.link(w.optionalClassDef(gdef.GlyphClassDef))
	b.link(w.attachList(gdef.AttachList))
	b.link(w.ligCaretList(gdef.LigCaretList))
	b.link(w.optionalClassDef(gdef.MarkAttachClass))
	if len(sets) > 0 {
		var m otBlob
		m.u16(1, uint16(len(sets)))
		for _, cov := range sets {
			glyphs, _ := gm.coverage(cov)
			m.link32(encodeCoverage(glyphs))
		}
		b.link(w.finish(&m))
	}
	out := w.finish(&b)
	if w.err != nil {
		return errTablef(tagGDEF, "header", "%v", w.err)
	}
	f.SetTable(tagGDEF, out)
	return nil
}

func (w *layoutWriter) attachList(al tables.AttachList) []byte {
	glyphs, indices := w.gm.coverage(al.Coverage)
	var covered []uint16
	var points [][]byte
	for k, i := range indices {
		if i >= len(al.AttachPoints) {
			continue
		}
		var p otBlob
		p.u16(uint16(len(al.AttachPoints[i].PointIndices)))
		p.u16(al.AttachPoints[i].PointIndices...)
		covered = append(covered, glyphs[k])
		points = append(points, p.data)
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(points)))
	for _, p := range points {
		b.link(p)
	}
	return w.finish(&b)
}

func (w *layoutWriter) ligCaretList(lc tables.LigCaretList) []byte {
	glyphs, indices := w.gm.coverage(lc.Coverage)
	var covered []uint16
	var ligs [][]byte
	for k, i := range indices {
		if i >= len(lc.LigGlyphs) {
			continue
		}
		carets := make([][]byte, 0, len(lc.LigGlyphs[i].CaretValues))
		for _, cv := range lc.LigGlyphs[i].CaretValues {
			var c otBlob
			switch cv := cv.(type) {
			case tables.CaretValue1:
				c.u16(1)
				c.i16(cv.Coordinate)
			case tables.CaretValue2:
				c.u16(2, cv.CaretValuePointIndex)
			case tables.CaretValue3:
				c.u16(1)
				c.i16(cv.Coordinate)
			default:
				continue
			}
			carets = append(carets, c.data)
		}
		covered = append(covered, glyphs[k])
		ligs = append(ligs, w.list(carets))
	}
	if len(covered) == 0 {
		return nil
	}
	var b otBlob
	b.link(encodeCoverage(covered))
	b.u16(uint16(len(ligs)))
	for _, lig := range ligs {
		b.link(lig)
	}
	return w.finish(&b)
}
