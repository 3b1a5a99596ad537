package sfnt

import "encoding/binary"

// Reading and writing bytes of a font's binary representation

func u16(b []byte) uint16 {
	_ = b[1] // Bounds check hint to compiler
	return uint16(b[0])<<8 | uint16(b[1])<<0
}

func i16(b []byte) int16 {
	return int16(u16(b))
}

func u32(b []byte) uint32 {
	_ = b[3] // Bounds check hint to compiler
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])<<0
}

func putU16(b []byte, v uint16) {
	binary.BigEndian.PutUint16(b, v)
}

func putU32(b []byte, v uint32) {
	binary.BigEndian.PutUint32(b, v)
}

func appendU16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
