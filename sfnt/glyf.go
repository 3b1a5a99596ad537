package sfnt

// Composite glyph flags
const (
	compArgsAreWords     = 0x0001
	compHaveScale        = 0x0008
	compMoreComponents   = 0x0020
	compHaveXYScale      = 0x0040
	compHaveTwoByTwo     = 0x0080
	compHaveInstructions = 0x0100
)

const glyphHeaderSize = 10

// locaFormat returns 'head.indexToLocFormat'.
func (f *Font) locaFormat() (int, error) {
	head := f.Table(tagHead)
	if len(head) < 54 {
		return 0, errTable(tagHead, "header", "table missing or too short")
	}
	return int(i16(head[50:])), nil
}

// glyphOffsets decodes table 'loca' into numGlyphs+1 offsets into 'glyf'.
func (f *Font) glyphOffsets(numGlyphs int) ([]int, error) {
	format, err := f.locaFormat()
	if err != nil {
		return nil, err
	}
	loca, glyf := f.Table(tagLoca), f.Table(tagGlyf)
	offs := make([]int, numGlyphs+1)
	switch format {
	case 0:
		if len(loca) < 2*(numGlyphs+1) {
			return nil, errTable(tagLoca, "offsets", "table too short")
		}
		for i := range offs {
			offs[i] = 2 * int(u16(loca[2*i:]))
		}
	case 1:
		if len(loca) < 4*(numGlyphs+1) {
			return nil, errTable(tagLoca, "offsets", "table too short")
		}
		for i := range offs {
			offs[i] = int(u32(loca[4*i:]))
		}
	default:
		return nil, errTablef(tagHead, "indexToLocFormat", "invalid value %d", format)
	}
	for i := 1; i < len(offs); i++ {
		if offs[i] < offs[i-1] || offs[i] > len(glyf) {
			return nil, errTablef(tagLoca, "offsets", "invalid offset %d for glyph %d", offs[i], i-1)
		}
	}
	return offs, nil
}

// glyphData splits 'glyf' into per-glyph slices.
func (f *Font) glyphData() ([][]byte, error) {
	n, err := f.NumGlyphs()
	if err != nil {
		return nil, err
	}
	offs, err := f.glyphOffsets(n)
	if err != nil {
		return nil, err
	}
	glyf := f.Table(tagGlyf)
	glyphs := make([][]byte, n)
	for i := range glyphs {
		glyphs[i] = glyf[offs[i]:offs[i+1]]
	}
	return glyphs, nil
}

// components returns the glyph ids referenced by a composite glyph. It
// returns nil for simple and empty glyphs.
func components(glyph []byte) []uint16 {
	if len(glyph) < glyphHeaderSize || i16(glyph) >= 0 {
		return nil
	}
	var comps []uint16
	p := glyph[glyphHeaderSize:]
	for len(p) >= 4 {
		flags := u16(p)
		comps = append(comps, u16(p[2:]))
		size := componentSize(flags)
		if flags&compMoreComponents == 0 || size > len(p) {
			break
		}
		p = p[size:]
	}
	return comps
}

// componentSize is the size of a component record, including flags and
// glyph index.
func componentSize(flags uint16) int {
	size := 4 + 2
	if flags&compArgsAreWords != 0 {
		size += 2
	}
	switch {
	case flags&compHaveScale != 0:
		size += 2
	case flags&compHaveXYScale != 0:
		size += 4
	case flags&compHaveTwoByTwo != 0:
		size += 8
	}
	return size
}

// stripInstructions returns a copy of a glyph without TrueType
// instructions. Empty glyphs stay empty.
func stripInstructions(glyph []byte) ([]byte, error) {
	if len(glyph) == 0 {
		return nil, nil
	}
	if len(glyph) < glyphHeaderSize {
		return nil, errTable(tagGlyf, "header", "glyph too short")
	}
	contours := i16(glyph)
	if contours >= 0 {
		// header, endPtsOfContours, instructionLength, instructions, flags+coordinates
		p := glyphHeaderSize + 2*int(contours)
		if p+2 > len(glyph) {
			return nil, errTable(tagGlyf, "SimpleGlyph", "truncated glyph")
		}
		n := int(u16(glyph[p:]))
		if p+2+n > len(glyph) {
			return nil, errTable(tagGlyf, "SimpleGlyph", "instructions out of bounds")
		}
		out := make([]byte, 0, len(glyph)-n)
		out = append(out, glyph[:p]...)
		out = appendU16(out, 0)
		return append(out, glyph[p+2+n:]...), nil
	}
	out := append([]byte(nil), glyph[:glyphHeaderSize]...)
	p := glyphHeaderSize
	for {
		if p+4 > len(glyph) {
			return nil, errTable(tagGlyf, "CompositeGlyph", "truncated component")
		}
		flags := u16(glyph[p:])
		size := componentSize(flags)
		if p+size > len(glyph) {
			return nil, errTable(tagGlyf, "CompositeGlyph", "truncated component")
		}
		start := len(out)
		out = append(out, glyph[p:p+size]...)
		putU16(out[start:], flags&^compHaveInstructions)
		p += size
		if flags&compMoreComponents == 0 {
			break
		}
	}
	return out, nil
}

// compositeClosure adds all components, recursively, of glyphs in keep.
func compositeClosure(glyphs [][]byte, keep map[uint16]bool) {
	queue := make([]uint16, 0, len(keep))
	for gid := range keep {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if int(gid) >= len(glyphs) {
			continue
		}
		for _, c := range components(glyphs[gid]) {
			if !keep[c] && int(c) < len(glyphs) {
				keep[c] = true
				queue = append(queue, c)
			}
		}
	}
}

// renumberComponents returns a copy of a composite glyph with its component
// glyph ids mapped by gm. Other glyphs are returned unchanged.
func renumberComponents(glyph []byte, gm *glyphMap) ([]byte, error) {
	if len(glyph) < glyphHeaderSize || i16(glyph) >= 0 {
		return glyph, nil
	}
	out := append([]byte(nil), glyph...)
	p := glyphHeaderSize
	for {
		if p+4 > len(out) {
			return nil, errTable(tagGlyf, "CompositeGlyph", "truncated component")
		}
		flags := u16(out[p:])
		gid, ok := gm.get(u16(out[p+2:]))
		if !ok {
			return nil, errTablef(tagGlyf, "CompositeGlyph", "component %d not retained", u16(out[p+2:]))
		}
		putU16(out[p+2:], gid)
		p += componentSize(flags)
		if flags&compMoreComponents == 0 {
			break
		}
	}
	return out, nil
}

// rewriteGlyf replaces 'glyf' and 'loca' by the glyphs of gm, in their new
// order. With strip set, instructions are removed.
func (f *Font) rewriteGlyf(glyphs [][]byte, gm *glyphMap, strip bool) error {
	var glyf []byte
	offs := make([]int, gm.numGlyphs()+1)
	for n, gid := range gm.old {
		offs[n] = len(glyf)
		if int(gid) >= len(glyphs) || len(glyphs[gid]) == 0 {
			continue
		}
		g, err := renumberComponents(glyphs[gid], gm)
		if err != nil {
			return err
		}
		if strip {
			if g, err = stripInstructions(g); err != nil {
				return err
			}
		}
		glyf = append(glyf, g...)
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
	}
	offs[len(offs)-1] = len(glyf)
	var loca []byte
	var format int16
	if len(glyf) <= 0x1FFFE {
		loca = make([]byte, 0, 2*len(offs))
		for _, off := range offs {
			loca = appendU16(loca, uint16(off/2))
		}
	} else {
		format = 1
		loca = make([]byte, 0, 4*len(offs))
		for _, off := range offs {
			loca = appendU32(loca, uint32(off))
		}
	}
	head := append([]byte(nil), f.Table(tagHead)...)
	putU16(head[50:], uint16(format))
	f.SetTable(tagHead, head)
	f.SetTable(tagGlyf, glyf)
	f.SetTable(tagLoca, loca)
	return nil
}
