package regbank

import "math"

const controlTolerance = 0.001

// DecodeControl reads the two control-word registers and returns the
// command they encode. Two encodings are accepted, mirroring
// control_bits_to_float / poll_control_commands in the original firmware:
// a float32 "command number" (1.0=start, 2.0=stop, 3.0=restart) is tried
// first; if that decodes to zero but the raw first register is non-zero,
// the word is reinterpreted as a bitmask (bit0=start, bit1=stop,
// bit2=restart), so either an HMI that writes floats or one that writes
// raw bits is understood.
func (b *Bank) DecodeControl() Command {
	return decodeControl(b.Words[ControlBase], b.Words[ControlBase+1])
}

// DecodeControlWords decodes a raw two-word control pair read directly off
// the wire (e.g. by the Worker's loopback client), without needing a Bank.
func DecodeControlWords(words []uint16) Command {
	return decodeControl(words[0], words[1])
}

// EncodeControlWords is the inverse of DecodeControlWords: it produces the
// canonical two-word wire form for cmd, for a caller that only has a raw
// register slice rather than a Bank.
func EncodeControlWords(cmd Command) [2]uint16 {
	var b Bank
	b.EncodeControl(cmd)
	return [2]uint16{b.Words[ControlBase], b.Words[ControlBase+1]}
}

func decodeControl(hi, lo uint16) Command {
	f := getFloat32([]uint16{hi, lo}, 0)
	switch {
	case math.Abs(f-1.0) < controlTolerance:
		return CmdStart
	case math.Abs(f-2.0) < controlTolerance:
		return CmdStop
	case math.Abs(f-3.0) < controlTolerance:
		return CmdRestart
	}
	if math.Abs(f) < controlTolerance && hi != 0 {
		switch {
		case hi&cmdStartBit != 0:
			return CmdStart
		case hi&cmdStopBit != 0:
			return CmdStop
		case hi&cmdRestartBit != 0:
			return CmdRestart
		}
	}
	return CmdNone
}

// ClearControl zeroes the control word. The Worker clears the word over its
// loopback link after consuming a command it polled, so a command fires
// exactly once; the Broker only rewrites it to the canonical form.
func (b *Bank) ClearControl() {
	b.Words[ControlBase] = 0
	b.Words[ControlBase+1] = 0
}

// EncodeControl rewrites the control word in canonical float form, used
// when the Broker normalises an incoming bitmask write back to the form a
// float-reading client expects to see.
func (b *Bank) EncodeControl(cmd Command) {
	var v float64
	switch cmd {
	case CmdStart:
		v = 1.0
	case CmdStop:
		v = 2.0
	case CmdRestart:
		v = 3.0
	default:
		v = 0.0
	}
	putFloat32(b.Words[:], ControlBase, v)
}
