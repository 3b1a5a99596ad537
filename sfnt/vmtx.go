package sfnt

// VerticalMetric is the vertical advance and top side bearing of a glyph.
type VerticalMetric struct {
	AdvanceHeight  uint16
	TopSideBearing int16
}

// HasVerticalMetrics reports whether f carries both 'vhea' and 'vmtx'.
func (f *Font) HasVerticalMetrics() bool {
	return f.HasTable(tagVhea) && f.HasTable(tagVmtx)
}

// VerticalMetrics decodes 'vmtx' into one entry per glyph. Glyphs past
// numOfLongVerMetrics share the last advance height.
func VerticalMetrics(f *Font) ([]VerticalMetric, error) {
	long, err := f.readMetrics(tagVhea, tagVmtx)
	if err != nil {
		return nil, err
	}
	metrics := make([]VerticalMetric, len(long))
	for gid, m := range long {
		metrics[gid] = VerticalMetric{AdvanceHeight: m.advance, TopSideBearing: m.bearing}
	}
	return metrics, nil
}

// SetVerticalMetrics replaces 'vmtx' and updates the metric fields of
// 'vhea'. A trailing run of glyphs with the same advance height is stored in
// short form.
func SetVerticalMetrics(f *Font, metrics []VerticalMetric) error {
	long := make([]longMetric, len(metrics))
	for gid, m := range metrics {
		long[gid] = longMetric{advance: m.AdvanceHeight, bearing: m.TopSideBearing}
	}
	return f.writeMetrics(tagVhea, tagVmtx, long)
}
