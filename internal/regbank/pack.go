package regbank

import "math"

// putInt32 packs v into two consecutive registers, high word first — the
// same word order int32_to_regs uses in the original implementation.
func putInt32(words []uint16, off int, v int32) {
	u := uint32(v)
	words[off] = uint16(u >> 16)
	words[off+1] = uint16(u)
}

func getInt32(words []uint16, off int) int32 {
	u := uint32(words[off])<<16 | uint32(words[off+1])
	return int32(u)
}

// putFloat32 packs v's IEEE-754 bit pattern into two consecutive registers,
// high word first, mirroring float_to_regs.
func putFloat32(words []uint16, off int, v float64) {
	bits := math.Float32bits(float32(v))
	words[off] = uint16(bits >> 16)
	words[off+1] = uint16(bits)
}

func getFloat32(words []uint16, off int) float64 {
	bits := uint32(words[off])<<16 | uint32(words[off+1])
	return float64(math.Float32frombits(bits))
}

// SetInt32/GetInt32/SetFloat32/GetFloat32 expose the packing helpers for
// regions outside the canonical int/float parameter blocks (results, phase
// snapshots, chemistry results) that also use the same big-endian word-pair
// convention.
func (b *Bank) SetInt32(off int, v int32)      { putInt32(b.Words[:], off, v) }
func (b *Bank) GetInt32(off int) int32         { return getInt32(b.Words[:], off) }
func (b *Bank) SetFloat32(off int, v float64)  { putFloat32(b.Words[:], off, v) }
func (b *Bank) GetFloat32(off int) float64     { return getFloat32(b.Words[:], off) }
