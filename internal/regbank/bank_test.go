package regbank

import (
	"testing"

	"iterctl/internal/params"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestProjectReflectRoundTrip(t *testing.T) {
	p := params.Defaults()
	p.Repeats = 4
	p.NumPhases = 3
	p.Phases[1].StartMV = -2500
	p.Phases[1].StepMV = 50
	p.ChannelScale[2].K = 1.5
	p.Chemistry.PHNeutral = 6.8

	b := New(p)
	got := Reflect(b)

	assert(t, got.Repeats == p.Repeats, "repeats: got %d want %d", got.Repeats, p.Repeats)
	assert(t, got.NumPhases == p.NumPhases, "num_phases: got %d want %d", got.NumPhases, p.NumPhases)
	assert(t, got.Phases[1].StartMV == p.Phases[1].StartMV, "phase2 start_mV mismatch")
	assert(t, got.Phases[1].StepMV == p.Phases[1].StepMV, "phase2 step_mV mismatch")
	assert(t, got.ChannelScale[2].K == 1.5, "ch3_k mismatch: %v", got.ChannelScale[2].K)
	assert(t, got.Chemistry.PHNeutral == float64(float32(6.8)), "ph_neutral mismatch: %v", got.Chemistry.PHNeutral)
}

func TestIntAndFloatViewsAgree(t *testing.T) {
	p := params.Defaults()
	p.Phases[0].StartMV = -3300
	p.Phases[0].EndMV = 4400
	b := New(p)

	intOff := phaseOff(IntBase, 0)
	floatOff := phaseOff(FloatBase, 0)
	assert(t, getInt32(b.Words[:], intOff) == int32(-3300), "int view start_mV mismatch")
	assert(t, int32(getFloat32(b.Words[:], floatOff)) == int32(-3300), "float view start_mV mismatch")
	assert(t, getInt32(b.Words[:], intOff+2) == int32(4400), "int view end_mV mismatch")
	assert(t, int32(getFloat32(b.Words[:], floatOff+2)) == int32(4400), "float view end_mV mismatch")
}

func TestLegacyAliasCoherenceChemistry(t *testing.T) {
	p := params.Defaults()
	b := New(p)

	var words [2]uint16
	putFloat32(words[:], 0, 1.25)
	ok := b.WriteLegacy(0x4045, words[:])
	assert(t, ok, "write to legacy 0x4045 should succeed")

	assert(t, getFloat32(b.Words[:], 402) == 1.25, "canonical offset 402 should decode to 1.25, got %v", getFloat32(b.Words[:], 402))

	r := Reflect(b)
	assert(t, r.Chemistry.BSum == 1.25, "calc_b_sum should reflect the legacy write, got %v", r.Chemistry.BSum)

	readBack, ok := b.ReadLegacy(0x4045, 2)
	assert(t, ok, "read back of 0x4045 should succeed")
	assert(t, getFloat32(readBack, 0) == 1.25, "legacy read-back mismatch")
}

func TestLegacyAliasChannel3Resolution(t *testing.T) {
	p := params.Defaults()
	b := New(p)

	var words [2]uint16
	putFloat32(words[:], 0, 2.5)
	ok := b.WriteLegacy(0x4049, words[:])
	assert(t, ok, "write to legacy 0x4049 should succeed")

	r := Reflect(b)
	assert(t, r.ChannelScale[2].B == 2.5, "legacy 0x4049 should alias channel 3 (index 2) b, got %v", r.ChannelScale[2].B)
}

func TestControlWordFloatAndBitmaskAgree(t *testing.T) {
	var b Bank
	b.EncodeControl(CmdStart)
	assert(t, b.DecodeControl() == CmdStart, "float-encoded start should decode as start")

	b.Words[ControlBase] = cmdStartBit
	b.Words[ControlBase+1] = 0
	assert(t, b.DecodeControl() == CmdStart, "raw bitmask start should decode as start")

	b.EncodeControl(CmdStop)
	assert(t, b.DecodeControl() == CmdStop, "float-encoded stop should decode as stop")

	b.EncodeControl(CmdRestart)
	assert(t, b.DecodeControl() == CmdRestart, "float-encoded restart should decode as restart")
}

func TestControlWordClearIsIdempotent(t *testing.T) {
	var b Bank
	b.EncodeControl(CmdStart)
	assert(t, b.DecodeControl() == CmdStart, "sanity: start before clear")
	b.ClearControl()
	assert(t, b.DecodeControl() == CmdNone, "cleared control word should decode as none")
	b.ClearControl()
	assert(t, b.DecodeControl() == CmdNone, "second clear should remain none")
}

func TestProjectPreservesControlAndResultRegions(t *testing.T) {
	p := params.Defaults()
	b := New(p)
	b.EncodeControl(CmdStop)
	b.SetFloat32(ResultsBase, 3.14)
	b.SetFloat32(PhaseSnapshotBase, 2.71)
	b.SetFloat32(ChemResultsBase, 9.81)

	p.Repeats = 9
	Project(p, b)

	assert(t, b.DecodeControl() == CmdStop, "control word should survive re-projection")
	assert(t, b.GetFloat32(ResultsBase) == float64(float32(3.14)), "results region should survive re-projection")
	assert(t, b.GetFloat32(PhaseSnapshotBase) == float64(float32(2.71)), "phase snapshot region should survive re-projection")
	assert(t, b.GetFloat32(ChemResultsBase) == float64(float32(9.81)), "chemistry results region should survive re-projection")

	r := Reflect(b)
	assert(t, r.Repeats == 9, "repeats should reflect the new projection")
}

func TestDispatchWriteDetectsParameterBlocks(t *testing.T) {
	p := params.Defaults()
	b := New(p)

	var fw [2]uint16
	putFloat32(fw[:], 0, 3.5)
	res := b.DispatchWrite(ChemistryBase, fw[:])
	assert(t, res.Source == SourceFloat, "chemistry block write should be reported as the float view")
	assert(t, res.NeedsReload, "chemistry block write should require a reload")

	res = b.DispatchWrite(ControlBase, []uint16{0x0002, 0}) // raw bitmask stop
	assert(t, !res.NeedsReload, "control word write should not require a parameter reload")
	assert(t, res.Command == CmdStop, "control word write should decode as stop")

	res = b.DispatchWrite(ResultsBase, []uint16{0, 0})
	assert(t, !res.NeedsReload, "results region write should not require a parameter reload")
}

func TestDispatchWriteLegacyRedirect(t *testing.T) {
	p := params.Defaults()
	b := New(p)

	var words [2]uint16
	putFloat32(words[:], 0, 0.75)
	res := b.DispatchWrite(0x4000, words[:])
	assert(t, res.Source == SourceLegacy, "legacy-range write should be reported as legacy")
	assert(t, res.NeedsReload, "legacy write should require a reload")

	r := Reflect(b)
	assert(t, r.Chemistry.KSum == 0.75, "legacy 0x4000 should alias calc_k_sum, got %v", r.Chemistry.KSum)
}
