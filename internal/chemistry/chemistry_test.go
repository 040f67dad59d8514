package chemistry

import (
	"math"
	"testing"

	"iterctl/internal/params"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func twoPhaseChem() params.Chemistry {
	return params.Chemistry{
		KSum: 1, BSum: 0,
		AlphaC:         0,
		DeadbandAcid:   0.05,
		DeadbandAlkali: 0.05,
		PHNeutral:      7,
		KAcid:          -1,
		BAcid:          7,
		KAlkali:        1,
		BAlkali:        7,
		AlphaRedox1:    0.5,
		AlphaRedox2:    0.5,
		Tok1K:          1,
		Tok2K:          1,
	}
}

// snapshots with channel-1 samples s1 (phase1) and s2 (phase2).
func snapshotsFor(s1, s2 float64) [][]float64 {
	return [][]float64{
		{0, s1, 0, 0, 0, 0, 0, 0},
		{0, s2, 0, 0, 0, 0, 0, 0},
	}
}

func TestPHAcidWorkedExample(t *testing.T) {
	var e Engine
	c := twoPhaseChem()
	r := e.Perform(snapshotsFor(-0.3, -0.2), c, 2)

	assert(t, r.PHValid, "pH should be computed with 2 phases")
	assert(t, almostEqual(r.CRaw, -0.5, 1e-9), "C_raw mismatch: %v", r.CRaw)
	assert(t, almostEqual(r.CFilt, -0.5, 1e-9), "C_filtered mismatch: %v", r.CFilt)
	assert(t, almostEqual(r.CAcid, 0.5, 1e-9), "C_acid mismatch: %v", r.CAcid)
	assert(t, almostEqual(r.PH, 8.301, 1e-3), "pH mismatch: got %v want ~8.301", r.PH)
}

func TestPHDeadbandWorkedExample(t *testing.T) {
	var e Engine
	c := twoPhaseChem()
	r := e.Perform(snapshotsFor(0.02, 0.01), c, 2)

	assert(t, r.PHValid, "pH should be computed with 2 phases")
	assert(t, almostEqual(r.CRaw, 0.03, 1e-9), "C_raw mismatch: %v", r.CRaw)
	assert(t, r.PH == 7.0, "pH should equal ph_neutral exactly inside the dead-band, got %v", r.PH)
}

func TestPHRequiresTwoPhases(t *testing.T) {
	var e Engine
	c := twoPhaseChem()
	r := e.Perform(snapshotsFor(-1, -1), c, 1)
	assert(t, !r.PHValid, "pH must not be computed with fewer than 2 phases")
	assert(t, r.RedoxValid, "redox only needs 1 phase")
}

func TestRedoxRequiresAtLeastOnePhase(t *testing.T) {
	var e Engine
	c := twoPhaseChem()
	r := e.Perform(snapshotsFor(0, 0), c, 0)
	assert(t, !r.RedoxValid, "redox must not be computed with zero phases")
	assert(t, !r.PHValid, "pH must not be computed with zero phases")
}

func TestEMAIdentityAlphaOne(t *testing.T) {
	y := EMA(10, 5, 1.0)
	assert(t, y == 5, "alpha=1 should hold the previous value forever, got %v", y)
}

func TestEMAIdentityAlphaZero(t *testing.T) {
	y := EMA(10, 5, 0.0)
	assert(t, y == 10, "alpha=0 should track the latest sample exactly, got %v", y)
}

func TestEMAAlphaClamped(t *testing.T) {
	assert(t, EMA(1, 2, -5) == EMA(1, 2, 0), "negative alpha should clamp to 0")
	assert(t, EMA(1, 2, 5) == EMA(1, 2, 1), "alpha>1 should clamp to 1")
}

func TestValueToMAClampsAndInverts(t *testing.T) {
	assert(t, ValueToMA(-100, 0, 100) == 4.0, "below range should clamp to 4mA")
	assert(t, ValueToMA(200, 0, 100) == 20.0, "above range should clamp to 20mA")
	assert(t, ValueToMA(50, 0, 100) == 12.0, "midpoint should be 12mA, got %v", ValueToMA(50, 0, 100))

	// Inverted range (min > max): same input should yield the mirrored mA.
	assert(t, ValueToMA(0, 100, 0) == 20.0, "inverted range should flip the mapping")
	assert(t, ValueToMA(100, 100, 0) == 4.0, "inverted range should flip the mapping")
}

func TestValueToMADegenerateRange(t *testing.T) {
	assert(t, ValueToMA(42, 5, 5) == 4.0, "degenerate span should fall back to 4mA")
}

func TestMAToCodeRange(t *testing.T) {
	assert(t, MAToCode(4.0) == 0, "4mA should map to code 0")
	assert(t, MAToCode(20.0) == 4095, "20mA should map to code 4095, got %d", MAToCode(20.0))
	assert(t, MAToCode(2.0) == 0, "below 4mA should clamp to code 0")
	assert(t, MAToCode(30.0) == 4095, "above 20mA should clamp to code 4095")
}

func TestProjectAOOff(t *testing.T) {
	mA, off := ProjectAO(params.AOOff, 0, 100, LastValues{PH: 9})
	assert(t, off, "AOOff should report off")
	assert(t, mA == 0, "AOOff should project to 0")
}

func TestProjectAOSourcesSelectCorrectField(t *testing.T) {
	last := LastValues{PH: 8, CFilt: 2, Redox1: 50, Redox2: 75}
	mA, off := ProjectAO(params.AOpH, 0, 10, last)
	assert(t, !off, "pH source should not be off")
	assert(t, almostEqual(mA, ValueToMA(8, 0, 10), 1e-9), "pH projection mismatch")

	mA, _ = ProjectAO(params.AORedox1, 0, 100, last)
	assert(t, almostEqual(mA, ValueToMA(50, 0, 100), 1e-9), "redox1 projection mismatch")
}
