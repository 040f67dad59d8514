// Package worker implements the Sweep Worker: the hard-real-time
// periodic controller that drives the DAC through a multi-phase voltage
// sweep, samples the ADC, derives chemistry, and publishes every
// intermediate and derived value to the Register Broker over a Modbus/
// TCP loopback link.
package worker

import (
	"context"
	"log"
	"time"

	"iterctl/internal/chemistry"
	"iterctl/internal/device"
	"iterctl/internal/params"
	"iterctl/internal/regbank"
	"iterctl/internal/worker/loopback"
)

// loopbackClient is the narrow surface the Worker needs from its Modbus/
// TCP link to the Broker. *loopback.Client implements it; tests supply a
// fake so runPhase/runCycle can be exercised without a real listener.
type loopbackClient interface {
	WriteWords(addr int, words []uint16) error
	PollControl() regbank.Command
	ClearControl() error
	Close()
}

const (
	connectRetryInterval = 1 * time.Second
	connectLogEvery      = 5
	stoppedPollInterval  = 100 * time.Millisecond
)

// Config is everything the Worker needs to start that is not itself a
// sweep parameter: file locations and the two out-of-scope device links
// (the DAC link doubles as params.DACLink; the ADC link has no on-disk
// representation because spec.md treats the vendor ADC driver as an
// external collaborator specified only at its interface).
type Config struct {
	ParamsPath   string
	LoopbackAddr string
	CSVDir       string
	LogDir       string
	ADCIP        string
	ADCPort      int
	ADCSlaveID   int
}

// Worker owns its RunState exclusively, per spec.md ยง5 — nothing outside
// this package ever touches it.
type Worker struct {
	cfg     Config
	loop    loopbackClient
	dac     device.AnalogOutput
	adc     device.AnalogInput
	dialDAC func() (device.AnalogOutput, error)

	params      params.Params
	cachedMtime time.Time

	run  RunState
	chem chemistry.Engine
}

// New constructs a Worker. Nothing is dialled until Run is called.
func New(cfg Config) *Worker {
	return &Worker{cfg: cfg, loop: loopback.New(cfg.LoopbackAddr)}
}

// Run loads the initial parameters, connects to the DAC and ADC
// (retrying indefinitely, like the original firmware waiting for its
// vendor driver and Modbus link to come up), then runs the outer
// RUNNING/STOPPED cycle loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	p, parsed, err := params.Load(w.cfg.ParamsPath)
	if parsed == 0 {
		log.Printf("worker: params file %s unusable (%v); starting from defaults", w.cfg.ParamsPath, err)
	}
	w.params = p
	if mt, err := params.Mtime(w.cfg.ParamsPath); err == nil {
		w.cachedMtime = mt
	}

	w.dialDAC = func() (device.AnalogOutput, error) {
		return device.DialDAC(w.params.DACLink.IP, w.params.DACLink.Port, w.params.DACLink.SlaveID)
	}

	log.Printf("worker: connecting to dac at %s:%d", w.params.DACLink.IP, w.params.DACLink.Port)
	dac, err := connectLoop(ctx, "dac", w.dialDAC)
	if err != nil {
		return err
	}
	w.dac = dac
	defer w.dac.Close()

	log.Printf("worker: connecting to adc at %s:%d", w.cfg.ADCIP, w.cfg.ADCPort)
	adc, err := connectLoop(ctx, "adc", func() (device.AnalogInput, error) {
		return device.DialADC(w.cfg.ADCIP, w.cfg.ADCPort, w.cfg.ADCSlaveID)
	})
	if err != nil {
		return err
	}
	w.adc = adc
	defer w.adc.Close()
	defer w.loop.Close()

	w.run.State = StateRunning

	// Mirrors the original firmware's outer `while (!g_stop)`: every new
	// series — whether reached via an explicit restart command or simply
	// by falling through after a finite `repeats` count completes — gets
	// an unconditional EMA-filter reset before anything else, and the
	// loop itself only ever ends when ctx is cancelled (SIGINT/SIGTERM).
	for ctx.Err() == nil {
		w.chem.Reset()
		w.run.resetForNewSeries()

		if w.run.RestartRequested {
			w.reloadParams("restart command")
			w.run.RestartRequested = false
		} else {
			w.autoReloadIfChanged()
		}

		log.Printf("worker: starting sweep series (repeats=%d, phases=%d)", w.params.Repeats, w.params.NumPhases)
		origin := time.Now()
		nextDeadline := origin
		w.run.CurrentCycle = 0

		infinite := w.params.Repeats <= 0
		for (infinite || w.run.CurrentCycle < w.params.Repeats) && ctx.Err() == nil {
			w.applyCommand(w.pollControl())
			if w.stopOrRestart() {
				break
			}

			w.runCycle(ctx, &nextDeadline, &origin)
			w.run.CurrentCycle++
			w.autoReloadIfChanged()
		}

		if w.run.State == StateStopped {
			sleepAbsolute(ctx, time.Now().Add(stoppedPollInterval))
		}
	}
	return nil
}

// connectLoop retries dial indefinitely (bounded only by ctx
// cancellation), logging a diagnostic every connectLogEvery attempts —
// the Go shape of the original's "Waiting for ADAM IO driver..." retry
// loop at startup.
func connectLoop[T any](ctx context.Context, name string, dial func() (T, error)) (T, error) {
	var zero T
	attempt := 0
	for {
		v, err := dial()
		if err == nil {
			log.Printf("worker: %s connected", name)
			return v, nil
		}
		if attempt%connectLogEvery == 0 {
			log.Printf("worker: waiting for %s: %v", name, err)
		}
		attempt++
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(connectRetryInterval):
		}
	}
}

// reloadParams reloads the parameter file, adopting it only if it parsed
// usefully — the same parsed>0 gate the Broker's external-change
// detection uses, so a transient read failure never wipes the Worker's
// in-memory params back to defaults.
func (w *Worker) reloadParams(reason string) {
	p, parsed, err := params.Load(w.cfg.ParamsPath)
	if err != nil || parsed == 0 {
		log.Printf("worker: %s: params file unusable (parsed=%d, err=%v); keeping current params", reason, parsed, err)
		return
	}
	w.params = p
	log.Printf("worker: reloaded params (%s)", reason)
}

func (w *Worker) autoReloadIfChanged() {
	changed, mt, err := params.Changed(w.cfg.ParamsPath, w.cachedMtime)
	if err != nil {
		return
	}
	if !changed {
		w.cachedMtime = mt
		return
	}
	w.reloadParams("file changed")
	w.cachedMtime = mt
}
