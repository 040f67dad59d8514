package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"iterctl/internal/params"
)

func openTestSink(t *testing.T) *csvSink {
	t.Helper()
	sink, err := openCSVSink(filepath.Join(t.TempDir(), "iter_current.csv"))
	assert(t, err == nil, "unexpected error opening csv sink: %v", err)
	return sink
}

// TestRunPhasePauseZeroFastForwardsWithoutIO exercises the documented
// diagnostic mode: pause_ms==0 skips every step's DAC write, ADC read, and
// settle/period sleep entirely, just walking iter_mV across the range.
func TestRunPhasePauseZeroFastForwardsWithoutIO(t *testing.T) {
	w, dac, adc, loop := testWorker()
	w.params.Phases[0] = params.Phase{StartMV: 0, EndMV: 2000, StepMV: 1000, PeriodMS: 100, SettleMS: 10, PauseMS: 0}

	sink := openTestSink(t)
	deadline := time.Now()
	origin := time.Now()

	ok := w.runPhase(context.Background(), 0, sink, &deadline, &origin)

	assert(t, ok, "runPhase should complete successfully")
	assert(t, dac.writeCalls == 0, "pause_ms=0 must skip every DAC write, got %d calls", dac.writeCalls)
	assert(t, adc.readCalls == 0, "pause_ms=0 must skip every ADC read, got %d calls", adc.readCalls)
	assert(t, len(loop.writes) == 0, "pause_ms=0 must publish nothing over the loopback link")
	assert(t, w.run.PhaseSnapshots[0] == [params.Channels]float64{}, "pause_ms=0 must leave the phase snapshot untouched")
}

// TestRunPhaseNormalOperationTakesMidPauseSnapshot runs a one-step phase
// with a real pause and checks that the mid-pause ADC sample overwrites the
// last step's snapshot rather than averaging with it.
func TestRunPhaseNormalOperationTakesMidPauseSnapshot(t *testing.T) {
	w, dac, adc, loop := testWorker()
	w.params.Phases[0] = params.Phase{StartMV: 0, EndMV: 0, StepMV: 1000, PeriodMS: 1, SettleMS: 0, PauseMS: 2}
	// First ReadChannel call (the last step's sample) sees 5.0; the second
	// (the mid-pause sample) sees 8.0 — distinct values so the test can
	// confirm the mid-pause sample overwrites rather than averages in.
	adc.seq = map[int][]float64{0: {5.0, 8.0}}

	sink := openTestSink(t)
	deadline := time.Now().Add(-time.Second)
	origin := time.Now().Add(-time.Second)

	ok := w.runPhase(context.Background(), 0, sink, &deadline, &origin)
	assert(t, ok, "runPhase should complete successfully")
	assert(t, dac.writeCalls == 1, "expected exactly one step, got %d dac writes", dac.writeCalls)

	midPauseSnapshot := w.params.ChannelScale[0].K*8.0 + w.params.ChannelScale[0].B
	assert(t, w.run.PhaseSnapshots[0][0] == midPauseSnapshot, "the mid-pause sample must overwrite the last step's snapshot, got %v want %v", w.run.PhaseSnapshots[0][0], midPauseSnapshot)
	assert(t, adc.readCalls == 2*params.Channels, "expected one per-step read and one mid-pause read of every channel, got %d", adc.readCalls)
	assert(t, len(loop.writes) >= 2, "expected both a step publish and a mid-pause-snapshot publish, got %d writes", len(loop.writes))
}

func TestRunPhaseStopRequestAbortsImmediately(t *testing.T) {
	w, dac, _, _ := testWorker()
	w.params.Phases[0] = params.Phase{StartMV: 0, EndMV: 1000, StepMV: 1000, PeriodMS: 10, SettleMS: 1, PauseMS: 5}
	w.run.State = StateStopped

	sink := openTestSink(t)
	deadline := time.Now()
	origin := time.Now()

	ok := w.runPhase(context.Background(), 0, sink, &deadline, &origin)
	assert(t, !ok, "a STOPPED worker should abort the phase immediately")
	assert(t, dac.writeCalls == 0, "a stopped phase must not perform any DAC writes")
}
