package sfnt

// 'hhea' and 'vhea' share their layout, as do 'hmtx' and 'vmtx'.
const (
	heaSize              = 36
	heaAdvanceMax        = 10
	heaNumOfLongMetrics  = 34
	longMetricRecordSize = 4
)

// longMetric is an advance and a side bearing.
type longMetric struct {
	advance uint16
	bearing int16
}

// readMetrics decodes a metrics table into one entry per glyph. Glyphs past
// the long metrics share the last advance.
func (f *Font) readMetrics(hea, mtx Tag) ([]longMetric, error) {
	header, data := f.Table(hea), f.Table(mtx)
	if len(header) < heaSize {
		return nil, errTable(hea, "header", "table missing or too short")
	}
	if data == nil {
		return nil, errTablef(mtx, "header", "font has no %s table", mtx)
	}
	n, err := f.NumGlyphs()
	if err != nil {
		return nil, err
	}
	long := int(u16(header[heaNumOfLongMetrics:]))
	if long == 0 || long > n {
		return nil, errTablef(hea, "numberOfLongMetrics", "invalid value %d for %d glyphs", long, n)
	}
	if len(data) < longMetricRecordSize*long+2*(n-long) {
		return nil, errTable(mtx, "metrics", "table too short")
	}
	metrics := make([]longMetric, n)
	for gid := range metrics {
		if gid < long {
			rec := data[longMetricRecordSize*gid:]
			metrics[gid] = longMetric{advance: u16(rec), bearing: i16(rec[2:])}
			continue
		}
		metrics[gid] = longMetric{
			advance: metrics[long-1].advance,
			bearing: i16(data[longMetricRecordSize*long+2*(gid-long):]),
		}
	}
	return metrics, nil
}

// writeMetrics replaces a metrics table and updates the header fields
// depending on it. A trailing run of glyphs with the same advance is stored
// in short form.
func (f *Font) writeMetrics(hea, mtx Tag, metrics []longMetric) error {
	header := f.Table(hea)
	if len(header) < heaSize {
		return errTable(hea, "header", "table missing or too short")
	}
	if len(metrics) == 0 {
		return errTable(mtx, "metrics", "no metrics")
	}
	long := len(metrics)
	for long > 1 && metrics[long-2].advance == metrics[long-1].advance {
		long--
	}
	var maxAdvance uint16
	data := make([]byte, 0, longMetricRecordSize*long+2*(len(metrics)-long))
	for gid, m := range metrics {
		if gid < long {
			data = appendU16(data, m.advance)
		}
		data = appendU16(data, uint16(m.bearing))
		maxAdvance = max(maxAdvance, m.advance)
	}
	header = append([]byte(nil), header...)
	putU16(header[heaAdvanceMax:], maxAdvance)
	putU16(header[heaNumOfLongMetrics:], uint16(long))
	f.SetTable(hea, header)
	f.SetTable(mtx, data)
	return nil
}
