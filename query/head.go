package query

import (
	"encoding/binary"

	"github.com/npillmayer/fontpack/sfnt"
)

// HeadTableInfo is a typed view of the fields of table 'head' that matter
// for diagnostics.
type HeadTableInfo struct {
	MajorVersion     uint16
	MinorVersion     uint16
	FontRevision     uint32
	Flags            uint16
	UnitsPerEm       uint16
	XMin, YMin       int16
	XMax, YMax       int16
	MacStyle         uint16
	IndexToLocFormat int16
}

const headTableSize = 54

// HeadInfo decodes table 'head'. It returns false if the table is missing or
// too short.
func HeadInfo(f *sfnt.Font) (HeadTableInfo, bool) {
	var info HeadTableInfo
	if f == nil {
		return info, false
	}
	b := f.Table(sfnt.T("head"))
	if len(b) < headTableSize {
		return info, false
	}
	info.MajorVersion = binary.BigEndian.Uint16(b[0:2])
	info.MinorVersion = binary.BigEndian.Uint16(b[2:4])
	info.FontRevision = binary.BigEndian.Uint32(b[4:8])
	info.Flags = binary.BigEndian.Uint16(b[16:18])
	info.UnitsPerEm = binary.BigEndian.Uint16(b[18:20])
	info.XMin = int16(binary.BigEndian.Uint16(b[36:38]))
	info.YMin = int16(binary.BigEndian.Uint16(b[38:40]))
	info.XMax = int16(binary.BigEndian.Uint16(b[40:42]))
	info.YMax = int16(binary.BigEndian.Uint16(b[42:44]))
	info.MacStyle = binary.BigEndian.Uint16(b[44:46])
	info.IndexToLocFormat = int16(binary.BigEndian.Uint16(b[50:52]))
	return info, true
}

// Revision converts the 16.16 fixed-point font revision.
func (h HeadTableInfo) Revision() float64 {
	return float64(h.FontRevision) / 65536
}
