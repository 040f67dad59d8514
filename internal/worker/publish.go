package worker

import "math"

// packFloat32Pairs packs each value as a big-endian IEEE-754 float32
// word pair, the same convention the Register Bank's int/float blocks
// use (internal/regbank/pack.go) — duplicated here in miniature because
// the Worker only ever writes flat word runs over the loopback client,
// never a *regbank.Bank directly.
func packFloat32Pairs(vals []float64) []uint16 {
	out := make([]uint16, 0, len(vals)*2)
	for _, v := range vals {
		bits := math.Float32bits(float32(v))
		out = append(out, uint16(bits>>16), uint16(bits))
	}
	return out
}
