package sfnt

import (
	"testing"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutFeatures(t *testing.T) {
	f := loadTrueType(t)
	feats, err := f.LayoutFeatures(tagGSUB)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"liga": 1, "locl": 1, "vert": 1}, feats)
	f.DropTable(tagGSUB)
	feats, err = f.LayoutFeatures(tagGSUB)
	require.NoError(t, err)
	assert.Nil(t, feats)
}

func TestGSUBClosure(t *testing.T) {
	f := loadTrueType(t)
	keep := map[uint16]bool{0: true, 1: true, 4: true}
	require.NoError(t, f.gsubClosure(keep, map[string]bool{"vert": true}))
	assert.Equal(t, map[uint16]bool{0: true, 1: true, 4: true, 10: true}, keep,
		"'locl' applies to 'A', 'liga' needs 'B', 'vert' is dropped")
}

func TestApplySubstitution(t *testing.T) {
	keep := map[uint16]bool{5: true, 20: true}
	delta := tables.SingleSubs{Data: tables.SingleSubstData1{
		Coverage:     tables.Coverage2{Ranges: []tables.RangeRecord{{StartGlyphID: 4, EndGlyphID: 6}}},
		DeltaGlyphID: 100,
	}}
	assert.True(t, applySubstitution(delta, keep))
	assert.True(t, keep[105])
	assert.False(t, keep[104])
	assert.False(t, applySubstitution(delta, keep), "fixpoint")
	//
	multi := tables.MultipleSubs{
		Coverage:  tables.Coverage1{Glyphs: []tables.GlyphID{3, 20}},
		Sequences: []tables.Sequence{{SubstituteGlyphIDs: []tables.GlyphID{30}}, {SubstituteGlyphIDs: []tables.GlyphID{31, 32}}},
	}
	assert.True(t, applySubstitution(multi, keep))
	assert.True(t, keep[31] && keep[32])
	assert.False(t, keep[30])
	//
	alt := tables.AlternateSubs{
		Coverage:      tables.Coverage1{Glyphs: []tables.GlyphID{31}},
		AlternateSets: []tables.AlternateSet{{AlternateGlyphIDs: []tables.GlyphID{40, 41}}},
	}
	assert.True(t, applySubstitution(alt, keep))
	assert.True(t, keep[40] && keep[41])
}

func TestNestedLookups(t *testing.T) {
	ctx := tables.ContextualSubs{Data: tables.ContextualSubs3{
		SeqLookupRecords: []tables.SequenceLookupRecord{{LookupListIndex: 3}, {LookupListIndex: 5}},
	}}
	assert.Equal(t, []uint16{3, 5}, nestedLookups(ctx))
	chained := tables.ChainedContextualSubs{Data: tables.ChainedContextualSubs1{
		ChainedSeqRuleSet: []tables.ChainedSequenceRuleSet{{
			ChainedSeqRules: []tables.ChainedSequenceRule{{
				SeqLookupRecords: []tables.SequenceLookupRecord{{LookupListIndex: 7}},
			}},
		}},
	}}
	assert.Equal(t, []uint16{7}, nestedLookups(chained))
	assert.Nil(t, nestedLookups(tables.SingleSubs{}))
}

func TestDropFeatures(t *testing.T) {
	f := loadTrueType(t)
	n, err := f.dropFeatures(tagGPOS, map[string]bool{"kern": true, "size": true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	feats, err := f.LayoutFeatures(tagGPOS)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"kern": 0, "locl": 1}, feats)
	//
	n, err = f.dropFeatures(tagGPOS, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = (&Font{tables: map[Tag][]byte{tagGSUB: {0, 1}}}).dropFeatures(tagGSUB, map[string]bool{"x": true})
	assert.Error(t, err)
}
