package regbank

import "iterctl/internal/params"

// Header word offsets within the int/float blocks (relative to IntBase /
// FloatBase). Each is a 32-bit value packed as a word pair.
const (
	headerReservedOff  = 0
	headerRepeatsOff   = 2
	headerNumPhasesOff = 4
)

func phaseOff(base, phase int) int {
	return base + IntHeaderWords + phase*IntPhaseWordsEach
}

// Project writes p into every view of b: the int block, the float block,
// the channel-scale block, and the chemistry-settings block. The control
// word and the results/phase-snapshot/chemistry-results regions are
// preserved across re-projection — they are Worker-published state, not
// parameters, and a parameter write must never clobber the last published
// reading (mirrors params_to_registers backing up and restoring those
// regions around a full re-zero of the bank).
func Project(p params.Params, b *Bank) {
	var saved [ControlWords + ResultWords + params.MaxPhases*PhaseSnapshotWordsEach + ChemResultWords]uint16
	n := copy(saved[:], b.Words[ControlBase:ControlBase+ControlWords])
	n += copy(saved[n:], b.Words[ResultsBase:ResultsBase+ResultWords])
	n += copy(saved[n:], b.Words[PhaseSnapshotBase:PhaseSnapshotBase+params.MaxPhases*PhaseSnapshotWordsEach])
	n += copy(saved[n:], b.Words[ChemResultsBase:ChemResultsBase+ChemResultWords])

	b.Words = [TotalWords]uint16{}

	putInt32(b.Words[:], IntBase+headerRepeatsOff, int32(p.Repeats))
	putInt32(b.Words[:], IntBase+headerNumPhasesOff, int32(p.NumPhases))
	putFloat32(b.Words[:], FloatBase+headerRepeatsOff, float64(p.Repeats))
	putFloat32(b.Words[:], FloatBase+headerNumPhasesOff, float64(p.NumPhases))

	for i := 0; i < params.MaxPhases; i++ {
		ph := p.Phases[i]
		io := phaseOff(IntBase, i)
		fo := phaseOff(FloatBase, i)
		putInt32(b.Words[:], io+0, int32(ph.StartMV))
		putInt32(b.Words[:], io+2, int32(ph.EndMV))
		putInt32(b.Words[:], io+4, int32(ph.StepMV))
		putInt32(b.Words[:], io+6, int32(ph.PeriodMS))
		putInt32(b.Words[:], io+8, int32(ph.SettleMS))
		putInt32(b.Words[:], io+10, int32(ph.PauseMS))

		putFloat32(b.Words[:], fo+0, float64(ph.StartMV))
		putFloat32(b.Words[:], fo+2, float64(ph.EndMV))
		putFloat32(b.Words[:], fo+4, float64(ph.StepMV))
		putFloat32(b.Words[:], fo+6, float64(ph.PeriodMS))
		putFloat32(b.Words[:], fo+8, float64(ph.SettleMS))
		putFloat32(b.Words[:], fo+10, float64(ph.PauseMS))
	}

	for i := 0; i < params.Channels; i++ {
		putFloat32(b.Words[:], ChannelScaleBase+i*2, p.ChannelScale[i].K)
		putFloat32(b.Words[:], ChannelScaleBase+16+i*2, p.ChannelScale[i].B)
	}

	c := p.Chemistry
	putFloat32(b.Words[:], ChemistryBase+0, c.KSum)
	putFloat32(b.Words[:], ChemistryBase+2, c.BSum)
	putFloat32(b.Words[:], ChemistryBase+4, c.AlphaC)
	putFloat32(b.Words[:], ChemistryBase+6, c.DeadbandAcid)
	putFloat32(b.Words[:], ChemistryBase+8, c.DeadbandAlkali)
	putFloat32(b.Words[:], ChemistryBase+10, c.PHNeutral)
	putFloat32(b.Words[:], ChemistryBase+12, c.KAcid)
	putFloat32(b.Words[:], ChemistryBase+14, c.BAcid)
	putFloat32(b.Words[:], ChemistryBase+16, c.KAlkali)
	putFloat32(b.Words[:], ChemistryBase+18, c.BAlkali)
	putFloat32(b.Words[:], ChemistryBase+20, c.AlphaRedox1)
	putFloat32(b.Words[:], ChemistryBase+22, c.AlphaRedox2)

	n = 0
	n += copy(b.Words[ControlBase:ControlBase+ControlWords], saved[n:n+ControlWords])
	n += copy(b.Words[ResultsBase:ResultsBase+ResultWords], saved[n:n+ResultWords])
	n += copy(b.Words[PhaseSnapshotBase:PhaseSnapshotBase+params.MaxPhases*PhaseSnapshotWordsEach], saved[n:n+params.MaxPhases*PhaseSnapshotWordsEach])
	copy(b.Words[ChemResultsBase:ChemResultsBase+ChemResultWords], saved[n:n+ChemResultWords])
}

// Reflect is the inverse of Project: it derives a Params from the current
// contents of the float block, the channel-scale block, and the
// chemistry-settings block. The int block is not consulted — by
// convention the float view is authoritative once both have been written
// in the same pass, matching registers_to_params reading only one side.
// Fields Project does not write (the AO map, the DAC and RTU links,
// tok1_k and tok2_k) are returned at their defaults.
func Reflect(b *Bank) params.Params {
	p := params.Defaults()

	p.Repeats = int64(getFloat32(b.Words[:], FloatBase+headerRepeatsOff))
	p.NumPhases = int(getFloat32(b.Words[:], FloatBase+headerNumPhasesOff))

	for i := 0; i < params.MaxPhases; i++ {
		fo := phaseOff(FloatBase, i)
		p.Phases[i] = params.Phase{
			StartMV:  int(getFloat32(b.Words[:], fo+0)),
			EndMV:    int(getFloat32(b.Words[:], fo+2)),
			StepMV:   int(getFloat32(b.Words[:], fo+4)),
			PeriodMS: int(getFloat32(b.Words[:], fo+6)),
			SettleMS: int(getFloat32(b.Words[:], fo+8)),
			PauseMS:  int(getFloat32(b.Words[:], fo+10)),
		}
	}

	for i := 0; i < params.Channels; i++ {
		p.ChannelScale[i].K = getFloat32(b.Words[:], ChannelScaleBase+i*2)
		p.ChannelScale[i].B = getFloat32(b.Words[:], ChannelScaleBase+16+i*2)
	}

	c := &p.Chemistry
	c.KSum = getFloat32(b.Words[:], ChemistryBase+0)
	c.BSum = getFloat32(b.Words[:], ChemistryBase+2)
	c.AlphaC = getFloat32(b.Words[:], ChemistryBase+4)
	c.DeadbandAcid = getFloat32(b.Words[:], ChemistryBase+6)
	c.DeadbandAlkali = getFloat32(b.Words[:], ChemistryBase+8)
	c.PHNeutral = getFloat32(b.Words[:], ChemistryBase+10)
	c.KAcid = getFloat32(b.Words[:], ChemistryBase+12)
	c.BAcid = getFloat32(b.Words[:], ChemistryBase+14)
	c.KAlkali = getFloat32(b.Words[:], ChemistryBase+16)
	c.BAlkali = getFloat32(b.Words[:], ChemistryBase+18)
	c.AlphaRedox1 = getFloat32(b.Words[:], ChemistryBase+20)
	c.AlphaRedox2 = getFloat32(b.Words[:], ChemistryBase+22)

	_ = p.Normalize()
	return p
}

// writeHitsBlock reports whether a write touching [addr, addr+count) lands
// in a region that should trigger a re-projection and a parameter-file
// save — the int block, the float block, the channel-scale block, or the
// chemistry-settings block. Writes landing only in the control word or the
// Worker-published regions never trigger a save.
func writeHitsBlock(addr, count int) bool {
	end := addr + count
	inRange := func(base, width int) bool { return addr < base+width && end > base }
	return inRange(IntBase, IntBlockWords) ||
		inRange(FloatBase, FloatBlockWords) ||
		inRange(ChannelScaleBase, 32) ||
		inRange(ChemistryBase, 24)
}
