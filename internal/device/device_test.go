package device

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestVoltageToCodeRange(t *testing.T) {
	assert(t, VoltageToCode(-5.0) == 0, "min voltage should map to code 0")
	assert(t, VoltageToCode(5.0) == 4095, "max voltage should map to code 4095, got %d", VoltageToCode(5.0))
	assert(t, VoltageToCode(0.0) == 2048, "0V should map to mid-code ~2048, got %d", VoltageToCode(0.0))
}

func TestVoltageToCodeClampsOutOfRange(t *testing.T) {
	assert(t, VoltageToCode(-10) == VoltageToCode(-5), "below-range voltage should clamp")
	assert(t, VoltageToCode(10) == VoltageToCode(5), "above-range voltage should clamp")
}

func TestCodeToVoltageRoundTrip(t *testing.T) {
	for _, v := range []float64{-5, -2.5, 0, 2.5, 5} {
		code := VoltageToCode(v)
		back := CodeToVoltage(code)
		if back < v-0.01 || back > v+0.01 {
			t.Fatalf("round trip for %v gave %v (code %d)", v, back, code)
		}
	}
}

func TestCodeToVoltageClampsOverflow(t *testing.T) {
	assert(t, CodeToVoltage(9000) == CodeToVoltage(4095), "an out-of-range code should clamp to the max")
}
