// Package chemistry derives pH and redox readings from per-phase channel
// snapshots, and projects those readings onto the instrument's 4-20mA
// analog outputs. The math is carried over unchanged from
// PerformChemistryCalculation/value_to_mA/mA_to_code in the original
// firmware; only the EMA filter's state ownership moves into a Go value
// the Worker can reset between cycle series.
package chemistry

import (
	"math"

	"iterctl/internal/params"
)

// EMA computes one step of the exponential moving average used for both
// the pH concentration and the two redox channels:
//
//	ema = prev*alpha + new*(1-alpha)
//
// alpha is clamped into [0,1] before use.
func EMA(newVal, prev, alpha float64) float64 {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return prev*alpha + newVal*(1-alpha)
}

// Result is one cycle's chemistry derivation. PHValid/RedoxValid report
// whether enough phases were configured to compute that half — pH needs
// at least two phases, redox needs at least one.
type Result struct {
	PHValid  bool
	CRaw     float64
	CFilt    float64
	CAcid    float64
	CAlkali  float64
	PH       float64

	RedoxValid bool
	R1Raw      float64
	R1Avg      float64
	R2Raw      float64
	R2Avg      float64
}

// Engine owns the EMA filter state across cycles within one run. A new
// Engine (or a call to Reset) must be used at the start of every cycle
// series, matching the firmware's "reset filters before a new series of
// measurements" comment.
type Engine struct {
	initialized bool
	prevC       float64
	prevRedox1  float64
	prevRedox2  float64
}

// Reset clears the EMA filter state. Call it whenever a new repeat series
// begins (first cycle, or after a restart command).
func (e *Engine) Reset() {
	*e = Engine{}
}

// Perform derives pH and redox readings from snapshots, a per-phase,
// per-channel table of settled ADC readings recorded at the end of each
// phase (snapshots[phase][channel], channel 0-based). numPhases is the
// number of phases actually configured this cycle.
func (e *Engine) Perform(snapshots [][]float64, c params.Chemistry, numPhases int) Result {
	var r Result

	if numPhases >= 2 {
		iPh1 := snapshots[0][1]
		iPh2 := snapshots[1][1]
		cRaw := (iPh1*c.Tok1K+iPh2*c.Tok2K)*c.KSum + c.BSum

		var cFilt float64
		if !e.initialized {
			e.prevC = cRaw
		} else {
			e.prevC = EMA(cRaw, e.prevC, c.AlphaC)
		}
		cFilt = e.prevC

		ph := c.PHNeutral
		var cAcid, cAlkali float64
		switch {
		case cFilt < -math.Abs(c.DeadbandAcid):
			cAcid = math.Abs(cFilt)
			if arg := cAcid / 10.0; arg > 1e-6 {
				ph = c.KAcid*math.Log10(arg) + c.BAcid
			}
		case cFilt > math.Abs(c.DeadbandAlkali):
			cAlkali = cFilt
			if arg := cAlkali / 100.0; arg > 1e-6 {
				ph = c.KAlkali*math.Log10(arg) + c.BAlkali
			}
		}

		r.PHValid = true
		r.CRaw = cRaw
		r.CFilt = cFilt
		r.CAcid = cAcid
		r.CAlkali = cAlkali
		r.PH = ph
	}

	if numPhases > 0 {
		last := numPhases - 1
		r1Raw := snapshots[last][2]
		r2Raw := snapshots[last][3]

		if !e.initialized {
			e.prevRedox1 = r1Raw
			e.prevRedox2 = r2Raw
			e.initialized = true
		} else {
			e.prevRedox1 = EMA(r1Raw, e.prevRedox1, c.AlphaRedox1)
			e.prevRedox2 = EMA(r2Raw, e.prevRedox2, c.AlphaRedox2)
		}

		r.RedoxValid = true
		r.R1Raw = r1Raw
		r.R1Avg = e.prevRedox1
		r.R2Raw = r2Raw
		r.R2Avg = e.prevRedox2
	}

	return r
}

// ValueToMA projects value in [minVal,maxVal] onto the 4-20mA range. A
// degenerate (near-zero) span returns the floor, 4mA, matching the
// original's "protection against division by zero".
func ValueToMA(value, minVal, maxVal float64) float64 {
	if math.Abs(maxVal-minVal) < 0.0001 {
		return 4.0
	}
	ratio := (value - minVal) / (maxVal - minVal)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return 4.0 + ratio*16.0
}

// MAToCode converts a 4-20mA value into the 0-4095 DAC code the ADAM-6224
// expects in 4-20mA output mode.
func MAToCode(mA float64) uint16 {
	if mA < 4.0 {
		mA = 4.0
	}
	if mA > 20.0 {
		mA = 20.0
	}
	ratio := (mA - 4.0) / 16.0
	return uint16(ratio*4095.0 + 0.5)
}

// LastValues is the set of computed readings an analog output can mirror,
// indexed the same way AOSource does: [0]=off/zero, [1]=pH,
// [2]=concentration (CFilt), [3]=redox1, [4]=redox2.
type LastValues struct {
	PH     float64
	CFilt  float64
	Redox1 float64
	Redox2 float64
}

// ProjectAO returns the mA value for one analog output given its
// configured source and the most recently computed readings. AOOff and any
// unrecognised or out-of-range source return 0mA with off=true. MAToCode
// clamps 0mA to code 0, the same code as 4mA, so an off channel drives
// 4mA; there is no code below the 4mA floor.
func ProjectAO(src params.AOSource, minVal, maxVal float64, last LastValues) (mA float64, off bool) {
	var val float64
	switch src {
	case params.AOpH:
		val = last.PH
	case params.AOConcentration:
		val = last.CFilt
	case params.AORedox1:
		val = last.Redox1
	case params.AORedox2:
		val = last.Redox2
	default:
		return 0, true
	}
	return ValueToMA(val, minVal, maxVal), false
}
