package broker

import (
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/regbank"
)

// handler implements modbus.RequestHandler, shared unmodified across the
// TCP and RTU servers — both transports answer from the same bank through
// the same reconcile-then-project path, so a panel connected over RTU and
// one connected over TCP always see a consistent register map.
type handler struct {
	l *Loop
}

func (h *handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

// HandleHoldingRegisters answers function codes 3 (read), 6 (write
// single) and 16 (write multiple) — the library dispatches all three to
// this one method, distinguishing them via req.IsWrite and req.Quantity.
func (h *handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()

	addr := int(req.Addr)
	count := int(req.Quantity)

	if req.IsWrite {
		res := h.l.bank.DispatchWrite(addr, req.Args)
		h.l.applyWriteResultLocked(res)
		out := make([]uint16, count)
		copy(out, req.Args)
		return out, nil
	}

	words, ok := h.l.bank.ReadWords(addr, count)
	if !ok {
		return nil, modbus.ErrIllegalDataAddress
	}
	return words, nil
}

// applyWriteResultLocked harvests a write's effect on the canonical
// struct. Call only with l.mu held. Write-visibility ordering: (i) raw
// words already landed via DispatchWrite, (ii) reconcile + harvest here,
// (iii) re-project every view, (iv) mark dirty — closed before this
// method returns, so no reader observes a torn write.
func (l *Loop) applyWriteResultLocked(res regbank.WriteResult) {
	if !res.NeedsReload {
		return
	}

	if res.Source == regbank.SourceInt {
		// Reflect reads the float block, so carry the int view into it first.
		for off := 0; off < regbank.IntBlockWords; off += 2 {
			l.bank.SetFloat32(regbank.FloatBase+off, float64(l.bank.GetInt32(regbank.IntBase+off)))
		}
	}

	reflected := regbank.Reflect(l.bank)
	// The bank does not carry these fields; keep the last-accepted values.
	reflected.Chemistry.Tok1K = l.params.Chemistry.Tok1K
	reflected.Chemistry.Tok2K = l.params.Chemistry.Tok2K
	reflected.AOMap = l.params.AOMap
	reflected.DACLink = l.params.DACLink
	reflected.RTULink = l.params.RTULink
	if err := reflected.Normalize(); err != nil {
		// Reject: the post-write struct violates an invariant, so discard
		// it and re-project the last-accepted params to erase the
		// rejected write from every view.
		regbank.Project(l.params, l.bank)
		return
	}

	l.params = reflected
	regbank.Project(l.params, l.bank)
	l.dirty = true
	l.lastChange = time.Now()
}
