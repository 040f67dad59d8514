package worker

import (
	"log"

	"iterctl/internal/chemistry"
)

// publishAnalogOutputs projects the latest chemistry readings onto
// AO1..AO3 once per completed cycle, per each channel's configured
// source and range.
func (w *Worker) publishAnalogOutputs() {
	last := chemistry.LastValues{
		PH:     w.run.LastChemistry.PH,
		CFilt:  w.run.LastChemistry.CFilt,
		Redox1: w.run.LastChemistry.R1Avg,
		Redox2: w.run.LastChemistry.R2Avg,
	}

	for i, ao := range w.params.AOMap {
		channel := i + 1 // AO1..AO3
		mA, off := chemistry.ProjectAO(ao.Source, ao.MinVal, ao.MaxVal, last)
		if off {
			mA = 0 // WriteCurrentLoop clamps this to 4mA (code 0)
		}
		if err := w.dac.WriteCurrentLoop(channel, mA); err != nil {
			log.Printf("worker: ao%d write failed: %v", channel, err)
		}
	}
}
