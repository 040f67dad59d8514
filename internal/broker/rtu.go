package broker

import (
	"log"
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/params"
)

// rtuState is the RTU endpoint's lifecycle: open and serving, or closed
// and either about to retry immediately (after a config change) or
// sitting out its backoff window after a failed open.
type rtuState int

const (
	rtuClosed rtuState = iota
	rtuOpen
	rtuCoolingDown
)

const (
	rtuReconnectBackoff = 1 * time.Second
	rtuDiagInterval     = 5 * time.Second
)

// rtuLink tracks the one serial Modbus/RTU server endpoint. Reconfiguring
// the RTU link (port/baud/parity/...) only takes effect the next time this
// reaches rtuClosed and successfully reopens.
type rtuLink struct {
	server      *modbus.ModbusServer
	state       rtuState
	cfg         params.RTULink
	configured  bool
	lastAttempt time.Time
	lastDiag    time.Time
}

func (r *rtuLink) close() {
	if r.server != nil {
		r.server.Stop()
		r.server = nil
	}
	r.state = rtuClosed
	r.configured = false
}

func rtuParity(p byte) uint {
	switch p {
	case 'E', 'e':
		return modbus.PARITY_EVEN
	case 'O', 'o':
		return modbus.PARITY_ODD
	default:
		return modbus.PARITY_NONE
	}
}

// tickRTU (re)opens the RTU endpoint whenever it is absent at the start of
// a housekeeping tick, using the current RTU parameters. At most one
// diagnostic line is printed per rtuDiagInterval while it keeps failing.
func (l *Loop) tickRTU(h *handler) {
	l.mu.Lock()
	cfg := l.params.RTULink
	l.mu.Unlock()

	r := l.rtu

	if r.server != nil && r.configured && r.cfg != cfg {
		r.close()
	}

	if r.server != nil {
		return
	}
	if r.state == rtuCoolingDown && time.Since(r.lastAttempt) < rtuReconnectBackoff {
		return
	}

	r.lastAttempt = time.Now()
	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:      "rtu://" + cfg.Device,
		Speed:    uint(cfg.Baud),
		DataBits: uint(cfg.DataBits),
		StopBits: uint(cfg.StopBits),
		Parity:   rtuParity(cfg.Parity),
		Timeout:  2 * time.Second,
	}, h)
	if err == nil {
		err = srv.Start()
	}
	if err != nil {
		r.state = rtuCoolingDown
		if time.Since(r.lastDiag) >= rtuDiagInterval {
			log.Printf("broker: rtu open %s failed: %v", cfg.Device, err)
			r.lastDiag = time.Now()
		}
		return
	}

	r.server = srv
	r.cfg = cfg
	r.configured = true
	r.state = rtuOpen
	log.Printf("broker: rtu listening on %s", cfg.Device)
}
