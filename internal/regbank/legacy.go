package regbank

import (
	_ "embed"
	"encoding/csv"
	"strconv"
	"strings"
)

// legacyTableCSV holds the fixed mapping from historical single-float HMI
// addresses (the 0x40xx range) to their canonical float-block offset. The
// assignment is historical, not computable from any formula — the C
// source's register map grew these addresses one panel screen at a time —
// so it is data, not code, per the open question this resolves: ship the
// table as an embedded file rather than hard-coding address arithmetic.
//
//go:embed legacy_table.csv
var legacyTableCSV string

type legacyEntry struct {
	legacyOffset uint16
	canonical    int
	length       int
}

var legacyTable = parseLegacyTable(legacyTableCSV)

func parseLegacyTable(csvText string) []legacyEntry {
	r := csv.NewReader(strings.NewReader(csvText))
	records, err := r.ReadAll()
	if err != nil {
		panic("regbank: malformed legacy table: " + err.Error())
	}
	entries := make([]legacyEntry, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 3 {
			continue // header row
		}
		off, err := strconv.ParseUint(strings.TrimSpace(rec[0]), 0, 16)
		if err != nil {
			continue
		}
		canon, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			continue
		}
		length, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			continue
		}
		entries = append(entries, legacyEntry{legacyOffset: uint16(off), canonical: canon, length: length})
	}
	return entries
}

func lookupLegacy(addr uint16) (canonical, length int, ok bool) {
	for _, e := range legacyTable {
		if e.legacyOffset == addr {
			return e.canonical, e.length, true
		}
	}
	return 0, 0, false
}

// ReadLegacy reads count words starting at the legacy address addr. Legacy
// registers are pure aliases: the words returned come straight out of the
// canonical float block, so a write through either view is immediately
// visible through the other.
func (b *Bank) ReadLegacy(addr uint16, count int) ([]uint16, bool) {
	canon, length, ok := lookupLegacy(addr)
	if !ok || count > length {
		return nil, false
	}
	out := make([]uint16, count)
	copy(out, b.Words[canon:canon+count])
	return out, true
}

// WriteLegacy writes data into the canonical float-block location aliased
// by the legacy address addr.
func (b *Bank) WriteLegacy(addr uint16, data []uint16) bool {
	canon, length, ok := lookupLegacy(addr)
	if !ok || len(data) > length {
		return false
	}
	copy(b.Words[canon:canon+len(data)], data)
	return true
}
