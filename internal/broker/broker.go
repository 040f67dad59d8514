// Package broker implements the Register Broker: a single-owner event
// loop that serves the shared register bank over Modbus/TCP and
// Modbus/RTU, reconciles the bank's aliased parameter views on every
// write, and persists parameter changes to disk with a debounced,
// coalesced flush.
//
// The teacher (KTStephano-GVM) has no networking code to generalise here,
// so the transport shape follows simonvetter/modbus's own server model
// instead: one RequestHandler invoked from per-connection goroutines, the
// shared *regbank.Bank guarded by a mutex rather than the single-threaded
// select() loop the original C implementation used. Every handler call
// holds that lock for its full read-reconcile-project sequence, so a
// client still only ever observes a bank state from before or after a
// write, never a torn one — see HandleHoldingRegisters in handler.go.
package broker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/simonvetter/modbus"

	"iterctl/internal/params"
	"iterctl/internal/regbank"
)

const (
	// MaxTCPClients bounds concurrent operator-panel connections.
	MaxTCPClients = 10
	// housekeepingInterval is how often the persister, the mtime poll,
	// and the RTU lifecycle state machine get a tick, independent of
	// client traffic.
	housekeepingInterval = 100 * time.Millisecond
	persistDebounce      = 3 * time.Second
)

// Loop owns every piece of shared Broker state: the register bank, the
// canonical parameters it was last projected from, the dirty/debounce
// bookkeeping for the persister, and the RTU link's lifecycle. All of it
// is mutated only while holding mu, so the many goroutines the Modbus
// library spawns per client connection see one consistent owner.
type Loop struct {
	mu         sync.Mutex
	bank       *regbank.Bank
	params     params.Params
	paramsPath string

	dirty       bool
	lastChange  time.Time
	cachedMtime time.Time

	tcpAddr   string
	tcpServer *modbus.ModbusServer

	rtu *rtuLink
}

// NewLoop constructs a Loop already projected from p.
func NewLoop(paramsPath string, p params.Params, tcpAddr string) *Loop {
	l := &Loop{
		bank:       regbank.New(p),
		params:     p,
		paramsPath: paramsPath,
		tcpAddr:    tcpAddr,
		rtu:        &rtuLink{},
	}
	if mt, err := params.Mtime(paramsPath); err == nil {
		l.cachedMtime = mt
	}
	return l
}

// Run starts the TCP server, then loops housekeeping (persister tick,
// external-change poll, RTU lifecycle) until ctx is cancelled or SIGINT/
// SIGTERM is received. SIGPIPE is ignored globally so a panel that drops
// its connection mid-write never kills the process.
func (l *Loop) Run(ctx context.Context) error {
	signal.Ignore(syscall.SIGPIPE)

	h := &handler{l: l}

	srv, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + l.tcpAddr,
		Timeout:    30 * time.Second,
		MaxClients: MaxTCPClients,
	}, h)
	if err != nil {
		return fmt.Errorf("broker: create tcp server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("broker: start tcp server on %s: %w", l.tcpAddr, err)
	}
	l.tcpServer = srv
	log.Printf("broker: listening on tcp://%s", l.tcpAddr)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()

	shutdown := func() {
		l.flushPending()
		l.rtu.close()
		srv.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return nil
		case <-sigc:
			log.Printf("broker: shutting down")
			shutdown()
			return nil
		case <-ticker.C:
			l.tickPersister()
			l.tickExternalChange()
			l.tickRTU(h)
		}
	}
}
