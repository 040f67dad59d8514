package regbank

// WriteResult describes the effect of a holding-register write so the
// Broker knows what else it needs to do: persist the parameter file,
// re-run Project/Reflect, or just let the write stand.
type WriteResult struct {
	Source      Source
	NeedsReload bool // a parameter block or its legacy alias was touched
	Command     Command
}

const legacyBase = 0x4000

// DispatchWrite applies a write of data starting at addr to b, resolving
// legacy-alias addresses to their canonical location first. It reports
// which view was touched and whether the write lands in a region that
// should trigger Reflect + save-to-disk, mirroring check_and_save_changes'
// write_hits_block test.
func (b *Bank) DispatchWrite(addr int, data []uint16) WriteResult {
	if addr >= legacyBase {
		ok := b.WriteLegacy(uint16(addr), data)
		if !ok {
			return WriteResult{Source: SourceNone}
		}
		return WriteResult{Source: SourceLegacy, NeedsReload: true}
	}

	copy(b.Words[addr:addr+len(data)], data)

	if addr < ControlBase+ControlWords && addr+len(data) > ControlBase {
		cmd := b.DecodeControl()
		if cmd != CmdNone {
			// Rewrite the pair to the canonical normalised form immediately
			// so a float-writing HMI and a bitmask-writing HMI observe the
			// same bits after acceptance.
			b.EncodeControl(cmd)
		}
		return WriteResult{Source: SourceNone, Command: cmd}
	}

	if !writeHitsBlock(addr, len(data)) {
		return WriteResult{Source: SourceNone}
	}

	src := SourceFloat
	if addr < FloatBase {
		src = SourceInt
	}
	return WriteResult{Source: src, NeedsReload: true}
}

// ReadWords reads count words starting at addr, resolving legacy
// addresses the same way DispatchWrite does.
func (b *Bank) ReadWords(addr, count int) ([]uint16, bool) {
	if addr >= legacyBase {
		return b.ReadLegacy(uint16(addr), count)
	}
	if addr < 0 || addr+count > TotalWords {
		return nil, false
	}
	out := make([]uint16, count)
	copy(out, b.Words[addr:addr+count])
	return out, true
}
