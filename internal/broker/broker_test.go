package broker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/params"
	"iterctl/internal/regbank"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newTestLoop(t *testing.T) (*Loop, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iter_params.txt")
	p := params.Defaults()
	if err := params.SaveAtomic(path, p); err != nil {
		t.Fatal(err)
	}
	return NewLoop(path, p, "127.0.0.1:0"), path
}

func floatWords(v float64) []uint16 {
	var b regbank.Bank
	b.SetFloat32(0, v)
	return []uint16{b.Words[0], b.Words[1]}
}

func TestHandlerWriteReconcilesViewsAndMarksDirty(t *testing.T) {
	l, _ := newTestLoop(t)
	h := &handler{l: l}

	req := &modbus.HoldingRegistersRequest{
		Addr:     regbank.ChemistryBase,
		Quantity: 2,
		IsWrite:  true,
		Args:     floatWords(3.5),
	}
	_, err := h.HandleHoldingRegisters(req)
	assert(t, err == nil, "unexpected error: %v", err)

	l.mu.Lock()
	gotK := l.params.Chemistry.KSum
	dirty := l.dirty
	l.mu.Unlock()
	assert(t, gotK == 3.5, "calc_k_sum should reflect the write, got %v", gotK)
	assert(t, dirty, "a parameter write should mark the loop dirty")

	readReq := &modbus.HoldingRegistersRequest{Addr: regbank.IntBase, Quantity: 2}
	_, err = h.HandleHoldingRegisters(readReq)
	assert(t, err == nil, "read should succeed: %v", err)
}

func TestHandlerRejectsInvalidAddress(t *testing.T) {
	l, _ := newTestLoop(t)
	h := &handler{l: l}

	_, err := h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		Addr:     regbank.TotalWords + 100,
		Quantity: 2,
	})
	assert(t, err == modbus.ErrIllegalDataAddress, "expected illegal data address, got %v", err)
}

func TestHandlerControlWriteNormalisesBitmaskToFloat(t *testing.T) {
	l, _ := newTestLoop(t)
	h := &handler{l: l}

	_, err := h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		Addr:     regbank.ControlBase,
		Quantity: 2,
		IsWrite:  true,
		Args:     []uint16{0x0001, 0},
	})
	assert(t, err == nil, "unexpected error: %v", err)

	assert(t, l.bank.DecodeControl() == regbank.CmdStart, "bitmask write should decode as start")
	assert(t, l.bank.Words[regbank.ControlBase] != 0x0001 || l.bank.Words[regbank.ControlBase+1] != 0,
		"control word should have been rewritten to the canonical float form")
}

func TestHandlerCoilsAndInputRegistersUnsupported(t *testing.T) {
	l, _ := newTestLoop(t)
	h := &handler{l: l}

	_, err := h.HandleCoils(&modbus.CoilsRequest{})
	assert(t, err == modbus.ErrIllegalFunction, "coils should be unsupported")

	_, err = h.HandleDiscreteInputs(&modbus.DiscreteInputsRequest{})
	assert(t, err == modbus.ErrIllegalFunction, "discrete inputs should be unsupported")

	_, err = h.HandleInputRegisters(&modbus.InputRegistersRequest{})
	assert(t, err == modbus.ErrIllegalFunction, "input registers should be unsupported")
}

func TestPersisterDebouncesWrites(t *testing.T) {
	l, path := newTestLoop(t)
	h := &handler{l: l}

	_, err := h.HandleHoldingRegisters(&modbus.HoldingRegistersRequest{
		Addr:     regbank.ChemistryBase,
		Quantity: 2,
		IsWrite:  true,
		Args:     floatWords(9.0),
	})
	assert(t, err == nil, "unexpected error: %v", err)

	l.tickPersister()
	l.mu.Lock()
	stillDirty := l.dirty
	l.mu.Unlock()
	assert(t, stillDirty, "a fresh write should not flush before the debounce window elapses")

	l.mu.Lock()
	l.lastChange = time.Now().Add(-2 * persistDebounce)
	l.mu.Unlock()
	l.tickPersister()

	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()
	assert(t, !dirty, "the dirty bit should clear once the debounce window has elapsed")

	reloaded, parsed, err := params.Load(path)
	assert(t, err == nil, "unexpected error reloading: %v", err)
	assert(t, parsed > 0, "expected the flushed file to parse")
	assert(t, reloaded.Chemistry.KSum == 9.0, "flushed file should contain the new value, got %v", reloaded.Chemistry.KSum)
}

func TestFlushPendingIsUnconditional(t *testing.T) {
	l, path := newTestLoop(t)
	l.mu.Lock()
	l.params.Chemistry.BSum = 42
	l.dirty = true
	l.lastChange = time.Now()
	l.mu.Unlock()

	l.flushPending()

	reloaded, _, err := params.Load(path)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, reloaded.Chemistry.BSum == 42, "flushPending should save regardless of debounce timing")
}

func TestExternalChangeIgnoredWhenDirty(t *testing.T) {
	l, path := newTestLoop(t)
	l.mu.Lock()
	l.dirty = true
	l.mu.Unlock()

	p := params.Defaults()
	p.Chemistry.KSum = 77
	if err := params.SaveAtomic(path, p); err != nil {
		t.Fatal(err)
	}

	l.tickExternalChange()

	l.mu.Lock()
	got := l.params.Chemistry.KSum
	l.mu.Unlock()
	assert(t, got != 77, "an external change should be ignored while a local write is pending")
}

func TestExternalChangeUnusableFileIsNotAdopted(t *testing.T) {
	l, path := newTestLoop(t)
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	before := l.params
	l.tickExternalChange()

	l.mu.Lock()
	after := l.params
	l.mu.Unlock()
	assert(t, after == before, "an empty/unusable file must never overwrite the in-memory params")
}
