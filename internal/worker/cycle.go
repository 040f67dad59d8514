package worker

import (
	"context"
	"log"
	"path/filepath"
	"time"
)

// runCycle runs one pass through all configured phases plus, on success,
// the chemistry derivation and analog-output projection. The CSV sink
// and the per-cycle log are rewritten from scratch at the start, promoted
// to "previous" on success, and discarded on abort.
func (w *Worker) runCycle(ctx context.Context, nextDeadline, origin *time.Time) bool {
	csvCurrent := filepath.Join(w.cfg.CSVDir, "iter_current.csv")
	csvPrevious := filepath.Join(w.cfg.CSVDir, "iter_prev_full.csv")
	logCurrent := filepath.Join(w.cfg.LogDir, "worker_out_current.log")
	logPrevious := filepath.Join(w.cfg.LogDir, "worker_out_prev.log")

	sink, err := openCSVSink(csvCurrent)
	if err != nil {
		log.Printf("worker: open csv sink: %v", err)
		return false
	}

	logFile, err := openRotating(logCurrent)
	if err != nil {
		log.Printf("worker: open log sink: %v", err)
		sink.Discard()
		return false
	}
	restoreOutput := redirectLogOutput(logFile)
	defer restoreOutput()

	success := true
	for ph := 0; ph < w.params.NumPhases; ph++ {
		w.run.CurrentPhase = ph
		if w.stopOrRestart() {
			success = false
			break
		}
		if !w.runPhase(ctx, ph, sink, nextDeadline, origin) {
			success = false
			break
		}
	}

	if success {
		if err := sink.Promote(csvPrevious); err != nil {
			log.Printf("worker: promote csv sink: %v", err)
		}
		restoreOutput()
		if err := logFile.Promote(logPrevious); err != nil {
			log.Printf("worker: promote log sink: %v", err)
		}
		w.performChemistry()
		w.publishAnalogOutputs()
	} else {
		if err := sink.Discard(); err != nil {
			log.Printf("worker: discard csv sink: %v", err)
		}
		restoreOutput()
		if err := logFile.Discard(); err != nil {
			log.Printf("worker: discard log sink: %v", err)
		}
	}

	return success
}
