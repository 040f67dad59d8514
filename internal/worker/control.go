package worker

import "iterctl/internal/regbank"

// pollControl reads the control word over the loopback client and clears
// it immediately once a command is recognised, so the same command never
// fires twice. A link error (the loopback client returns CmdNone on any
// failure) simply means no command was observed this poll — it never
// interrupts the sweep.
func (w *Worker) pollControl() regbank.Command {
	cmd := w.loop.PollControl()
	if cmd != regbank.CmdNone {
		w.loop.ClearControl()
	}
	return cmd
}

// applyCommand updates run state for a decoded control-word command.
// Restart takes effect at the next cycle/phase boundary the caller
// checks stopOrRestart against; Stop holds the Worker in STOPPED until a
// Start is observed.
func (w *Worker) applyCommand(cmd regbank.Command) {
	switch cmd {
	case regbank.CmdStart:
		w.run.State = StateRunning
	case regbank.CmdStop:
		w.run.State = StateStopped
	case regbank.CmdRestart:
		w.run.RestartRequested = true
		w.run.State = StateRunning
	}
}

// stopOrRestart reports whether the current cycle/phase must break out
// immediately: either state has become STOPPED or a Restart landed.
func (w *Worker) stopOrRestart() bool {
	return w.run.State == StateStopped || w.run.RestartRequested
}
