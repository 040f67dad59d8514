package worker

import (
	"time"

	"iterctl/internal/chemistry"
	"iterctl/internal/params"
)

// State is the Sweep Worker's control-word state machine: RUNNING (the
// default) drives the sweep; STOPPED holds position, polling the control
// word every stoppedPollInterval for a Start.
type State int

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	if s == StateStopped {
		return "STOPPED"
	}
	return "RUNNING"
}

// RunState is the Worker's exclusively-owned mutable state for one run
// (a bounded or infinite series of cycles bounded by Repeats). It is
// reset wholesale on Restart.
type RunState struct {
	State            State
	RestartRequested bool

	CurrentCycle   int64
	CurrentPhase   int
	CurrentStepIdx int
	NextDeadline   time.Time

	// PrevAI holds the last valid sample for each ADC channel, used for
	// hold-last-value recovery when a channel read errors.
	PrevAI [params.Channels]float64

	// PhaseSnapshots[p] is phase p's representative reading, settled by
	// the mid-pause sample. With pause_ms==0 no sample is taken and the
	// entry keeps its previous value.
	PhaseSnapshots [params.MaxPhases][params.Channels]float64

	LastChemistry chemistry.Result
}

// resetForNewSeries clears everything that must not leak across a
// restart or the start of a fresh repeat series: sample holds, phase
// snapshots, and the cycle counter. The EMA filters live in
// chemistry.Engine and are cleared by its Reset, which Run calls alongside
// this.
func (rs *RunState) resetForNewSeries() {
	rs.CurrentCycle = 0
	rs.PrevAI = [params.Channels]float64{}
	rs.PhaseSnapshots = [params.MaxPhases][params.Channels]float64{}
}
