// Package params implements the on-disk parameter store: a tolerant
// key=value loader, an atomic writer, and change detection, matching the
// "human-editable key=value text file" described for the instrument's
// iteration parameters.
package params

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	MaxPhases = 5
	Channels  = 8
)

// AOSource selects what an analog output channel mirrors.
type AOSource int

const (
	AOOff AOSource = iota
	AOpH
	AOConcentration
	AORedox1
	AORedox2
)

// Phase is one monotone voltage ramp within a cycle.
type Phase struct {
	StartMV  int
	EndMV    int
	StepMV   int
	PeriodMS int
	SettleMS int
	PauseMS  int
}

// ChannelScale is the linear scaling applied to one ADC channel.
type ChannelScale struct {
	K float64
	B float64
}

// Chemistry holds the pH/redox derivation coefficients.
type Chemistry struct {
	KSum           float64
	BSum           float64
	AlphaC         float64
	DeadbandAcid   float64
	DeadbandAlkali float64
	PHNeutral      float64
	KAcid          float64
	BAcid          float64
	KAlkali        float64
	BAlkali        float64
	AlphaRedox1    float64
	AlphaRedox2    float64
	Tok1K          float64
	Tok2K          float64
}

// AOMap describes one 4-20mA analog output channel (AO1..AO3).
type AOMap struct {
	Source AOSource
	MinVal float64
	MaxVal float64
}

// DACLink is the Modbus/TCP link to the analog-output module.
type DACLink struct {
	IP      string
	Port    int
	SlaveID int
}

// RTULink is the serial configuration for the Broker's RTU endpoint.
type RTULink struct {
	Device   string
	Baud     int
	Parity   byte // 'N', 'E', or 'O'
	DataBits int
	StopBits int
	SlaveID  int
}

// Params is the canonical in-memory representation of the iteration
// parameters. It is always fully populated: Load applies defaults before
// parsing, so a missing or empty file still yields a usable Params.
type Params struct {
	Phases       [MaxPhases]Phase
	NumPhases    int
	Repeats      int64 // 0 or -1 both mean "infinite"
	ChannelScale [Channels]ChannelScale
	Chemistry    Chemistry
	AOMap        [3]AOMap
	DACLink      DACLink
	RTULink      RTULink
}

var (
	ErrInvalidPhase = errors.New("params: invalid phase")
)

// Defaults returns a Params populated with the firmware's default values,
// matching init_iter_params in the original implementation.
func Defaults() Params {
	var p Params
	p.NumPhases = 1
	p.Repeats = 1
	for i := range p.Phases {
		p.Phases[i] = Phase{
			StartMV:  -5000,
			EndMV:    5000,
			StepMV:   100,
			PeriodMS: 100,
			SettleMS: 50,
			PauseMS:  0,
		}
	}
	for i := range p.ChannelScale {
		p.ChannelScale[i] = ChannelScale{K: 1, B: 0}
	}
	p.Chemistry = Chemistry{
		KSum:           1,
		BSum:           0,
		AlphaC:         0.5,
		DeadbandAcid:   0.1,
		DeadbandAlkali: 0.1,
		PHNeutral:      7,
		KAcid:          1,
		BAcid:          0,
		KAlkali:        1,
		BAlkali:        0,
		AlphaRedox1:    0.5,
		AlphaRedox2:    0.5,
		Tok1K:          1,
		Tok2K:          1,
	}
	for i := range p.AOMap {
		p.AOMap[i] = AOMap{Source: AOOff, MinVal: 0, MaxVal: 100}
	}
	p.DACLink = DACLink{IP: "192.168.2.2", Port: 502, SlaveID: 1}
	p.RTULink = RTULink{Device: "/dev/ttyAP0", Baud: 9600, Parity: 'N', DataBits: 8, StopBits: 1, SlaveID: 1}
	return p
}

// normalizePhase clamps/validates one phase in place:
//   - step_mV==0 is a hard rejection
//   - end-start and step must agree in sign (degenerates to a single point
//     otherwise, by setting end_mV to start_mV)
//   - period_ms<1 is clamped to 1
//   - settle_ms is clamped into [0, period_ms-1]
func normalizePhase(ph *Phase) error {
	if ph.StepMV == 0 {
		return fmt.Errorf("%w: step_mV must not be zero", ErrInvalidPhase)
	}
	if ph.PeriodMS < 1 {
		ph.PeriodMS = 1
	}
	diff := ph.EndMV - ph.StartMV
	if diff != 0 {
		sameSign := (diff > 0) == (ph.StepMV > 0)
		if !sameSign {
			// Degenerate to a single point: collapse the ramp to start==end.
			ph.EndMV = ph.StartMV
		}
	}
	if ph.SettleMS < 0 {
		ph.SettleMS = 0
	}
	if ph.SettleMS > ph.PeriodMS-1 {
		ph.SettleMS = ph.PeriodMS - 1
	}
	if ph.SettleMS < 0 {
		ph.SettleMS = 0
	}
	if ph.PauseMS < 0 {
		ph.PauseMS = 0
	}
	return nil
}

// normalizeRepeats canonicalises the repeats sentinel: 0 and -1 both mean
// infinite, any other negative value normalises to 1.
func normalizeRepeats(r int64) int64 {
	if r == 0 || r == -1 {
		return r
	}
	if r < 0 {
		return 1
	}
	return r
}

// Normalize clamps num_phases into [1,5], normalises repeats, and validates
// every configured phase. It is applied on load and before accepting any
// write: a write is only accepted if the post-write struct satisfies every
// invariant checked here.
func (p *Params) Normalize() error {
	if p.NumPhases < 1 {
		p.NumPhases = 1
	}
	if p.NumPhases > MaxPhases {
		p.NumPhases = MaxPhases
	}
	p.Repeats = normalizeRepeats(p.Repeats)
	for i := range p.Phases {
		if err := normalizePhase(&p.Phases[i]); err != nil {
			return fmt.Errorf("phase %d: %w", i+1, err)
		}
	}
	return nil
}

// Mtime returns the last modification time of path.
func Mtime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Changed reports whether path's mtime differs from cached.
func Changed(path string, cached time.Time) (bool, time.Time, error) {
	mt, err := Mtime(path)
	if err != nil {
		return false, cached, err
	}
	return !mt.Equal(cached), mt, nil
}
