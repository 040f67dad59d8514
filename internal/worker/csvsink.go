package worker

import (
	"fmt"
	"io"
)

const csvHeader = "cycle;phase;idx;time_ms;iter_mV;ao_V;AI0;AI1;AI2;AI3;AI4;AI5;AI6;AI7;Calc0;Calc1;Calc2;Calc3;Calc4;Calc5;Calc6;Calc7\n"

// csvSink is the per-cycle CSV sink (spec's External Interfaces, "CSV
// sink"): semicolon-separated, locale-independent '.' decimals, one row
// per step and one row per phase's mid-pause snapshot.
type csvSink struct {
	rf *rotatingFile
}

func openCSVSink(currentPath string) (*csvSink, error) {
	rf, err := openRotating(currentPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(rf, csvHeader); err != nil {
		rf.f.Close()
		return nil, err
	}
	return &csvSink{rf: rf}, nil
}

// writeStep appends one per-step row.
func (s *csvSink) writeStep(cycle int64, phase, idx int, tMS float64, iterMV int, aoV float64, ai, calc [8]float64) {
	fmt.Fprintf(s.rf, "%d;%d;%d;%.3f;%d;%.3f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f;%.4f\n",
		cycle+1, phase+1, idx, tMS, iterMV, aoV,
		ai[0], ai[1], ai[2], ai[3], ai[4], ai[5], ai[6], ai[7],
		calc[0], calc[1], calc[2], calc[3], calc[4], calc[5], calc[6], calc[7])
}

// writeMidPause appends a phase's mid-pause-snapshot row. iter_mV and
// ao_V are reported as 0, matching the original firmware: the midpoint
// sample has no associated DAC code, it is a pure ADC read.
func (s *csvSink) writeMidPause(cycle int64, phase, idx int, tMS float64, ai, calc [8]float64) {
	s.writeStep(cycle, phase, idx, tMS, 0, 0.0, ai, calc)
}

func (s *csvSink) Promote(previousPath string) error { return s.rf.Promote(previousPath) }
func (s *csvSink) Discard() error                    { return s.rf.Discard() }
