package worker

import (
	"log"

	"iterctl/internal/regbank"
)

// performChemistry runs the once-per-cycle pH/redox derivation over this
// cycle's phase snapshots and publishes the result to the chemistry
// results region (4000: pH path, 4010: redox path).
func (w *Worker) performChemistry() {
	snaps := make([][]float64, w.params.NumPhases)
	for i := 0; i < w.params.NumPhases; i++ {
		snaps[i] = w.run.PhaseSnapshots[i][:]
	}

	result := w.chem.Perform(snaps, w.params.Chemistry, w.params.NumPhases)
	w.run.LastChemistry = result

	if result.PHValid {
		words := packFloat32Pairs([]float64{result.CRaw, result.CFilt, result.CAcid, result.CAlkali, result.PH})
		if err := w.loop.WriteWords(regbank.ChemResultsBase, words); err != nil {
			log.Printf("worker: publish ph chemistry: %v", err)
		}
		log.Printf("chemistry: C_raw=%.4f C_filt=%.4f pH=%.3f", result.CRaw, result.CFilt, result.PH)
	} else {
		log.Printf("chemistry: pH skipped, need >=2 phases, got %d", w.params.NumPhases)
	}

	if result.RedoxValid {
		words := packFloat32Pairs([]float64{result.R1Raw, result.R1Avg, result.R2Raw, result.R2Avg})
		if err := w.loop.WriteWords(regbank.ChemResultsBase+10, words); err != nil {
			log.Printf("worker: publish redox chemistry: %v", err)
		}
		log.Printf("chemistry: redox1=%.3f/%.3f redox2=%.3f/%.3f", result.R1Raw, result.R1Avg, result.R2Raw, result.R2Avg)
	}
}
