package worker

import (
	"context"
	"log"
	"time"

	"iterctl/internal/device"
	"iterctl/internal/params"
	"iterctl/internal/regbank"
)

// runPhase drives one monotone voltage ramp: DAC write, settle, ADC
// sample, scale, publish, log — strictly sequential per spec.md ยง5 — for
// every step from start_mV to end_mV, then (unless pause_ms==0 skipped
// every step entirely) takes the phase's mid-pause snapshot.
//
// nextDeadline and origin are threaded through by pointer: both the
// per-step absolute deadline and the cycle's time-origin shift during a
// DAC outage so later timestamps stay monotone without ever jumping
// backward.
func (w *Worker) runPhase(ctx context.Context, phaseIdx int, sink *csvSink, nextDeadline, origin *time.Time) bool {
	phase := w.params.Phases[phaseIdx]
	dir := 1
	if phase.StepMV < 0 {
		dir = -1
	}

	inRange := func(mV int) bool {
		if dir > 0 {
			return mV <= phase.EndMV
		}
		return mV >= phase.EndMV
	}

	iterMV := phase.StartMV
	idx := 0
	phaseHadSteps := false
	lastStepValid := false
	var lastCalc [params.Channels]float64

	for inRange(iterMV) {
		if w.stopOrRestart() {
			return false
		}
		w.applyCommand(w.pollControl())
		if w.stopOrRestart() {
			return false
		}

		// Degenerate case: pause_ms==0 fast-forwards the whole phase as a
		// diagnostic traversal, with no real DAC/ADC I/O at all.
		if phase.PauseMS == 0 {
			iterMV += phase.StepMV
			continue
		}

		if phaseHadSteps {
			*nextDeadline = nextDeadline.Add(time.Duration(phase.PeriodMS) * time.Millisecond)
		}
		if !sleepAbsolute(ctx, *nextDeadline) {
			return false
		}
		phaseHadSteps = true

		volts := float64(iterMV) / 1000.0
		outage, abort := w.writeSweepWithReconnect(ctx, volts)
		if outage > 0 {
			*nextDeadline = nextDeadline.Add(outage)
			*origin = origin.Add(outage)
		}
		if abort {
			return false
		}

		settleDeadline := nextDeadline.Add(time.Duration(phase.SettleMS) * time.Millisecond)
		if !sleepAbsolute(ctx, settleDeadline) {
			return false
		}

		ai := w.readAllChannels()
		calc := scaleChannels(ai, w.params.ChannelScale)

		if err := w.loop.WriteWords(regbank.ResultsBase, packFloat32Pairs(calc[:])); err != nil {
			log.Printf("worker: publish step results: %v", err)
		}

		tMS := time.Since(*origin).Seconds() * 1000.0
		sink.writeStep(w.run.CurrentCycle, phaseIdx, idx, tMS, iterMV, device.CodeToVoltage(device.VoltageToCode(volts)), ai, calc)
		log.Printf("c=%d p=%d i=%d mV=%d AI0=%.4f", w.run.CurrentCycle+1, phaseIdx+1, idx, iterMV, ai[0])

		lastCalc = calc
		lastStepValid = true
		idx++
		iterMV += phase.StepMV
	}

	if lastStepValid {
		w.run.PhaseSnapshots[phaseIdx] = lastCalc
	}

	if phase.PauseMS > 0 && lastStepValid {
		half := phase.PauseMS / 2
		remaining := phase.PauseMS - half

		midDeadline := nextDeadline.Add(time.Duration(half) * time.Millisecond)
		if !sleepAbsolute(ctx, midDeadline) {
			return false
		}

		aiMid := w.readAllChannels()
		calcMid := scaleChannels(aiMid, w.params.ChannelScale)
		w.run.PhaseSnapshots[phaseIdx] = calcMid

		if err := w.loop.WriteWords(regbank.PhaseSnapshotBase+phaseIdx*regbank.PhaseSnapshotWordsEach, packFloat32Pairs(calcMid[:])); err != nil {
			log.Printf("worker: publish phase snapshot: %v", err)
		}

		tMidMS := time.Since(*origin).Seconds() * 1000.0
		sink.writeMidPause(w.run.CurrentCycle, phaseIdx, idx, tMidMS, aiMid, calcMid)

		remainingDeadline := midDeadline.Add(time.Duration(remaining) * time.Millisecond)
		if !sleepAbsolute(ctx, remainingDeadline) {
			return false
		}
		*nextDeadline = remainingDeadline
	}

	return true
}
