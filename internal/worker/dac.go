package worker

import (
	"context"
	"log"
	"time"

	"iterctl/internal/params"
)

const dacReconnectBackoff = 1 * time.Second

// writeSweepWithReconnect writes the sweep channel's target voltage,
// reconnecting on a transient link error and measuring the outage so the
// caller can shift its time origin forward by exactly that long (the
// experiment's time axis pauses during an outage but never jumps
// backward). It returns abort=true only for a persistent (non-transient)
// error, which breaks the current cycle per spec.md ยง7.
func (w *Worker) writeSweepWithReconnect(ctx context.Context, volts float64) (outage time.Duration, abort bool) {
	err := w.dac.WriteSweepVoltage(volts)
	if err == nil {
		return 0, false
	}
	if !isTransientLinkError(err) {
		log.Printf("worker: persistent dac error, aborting cycle: %v", err)
		return 0, true
	}

	start := time.Now()
	w.dac.Close()
	for {
		select {
		case <-ctx.Done():
			return time.Since(start), true
		default:
		}

		dac, derr := w.dialDAC()
		if derr == nil {
			w.dac = dac
			if werr := dac.WriteSweepVoltage(volts); werr == nil {
				return time.Since(start), false
			}
			dac.Close()
		}

		select {
		case <-ctx.Done():
			return time.Since(start), true
		case <-time.After(dacReconnectBackoff):
		}
	}
}

// readAllChannels samples the 8 ADC channels, holding the previous valid
// sample for any channel that errors (a cold-start channel that has
// never sampled successfully reads 0, per spec.md's documented
// hold-last-value cold start).
func (w *Worker) readAllChannels() [params.Channels]float64 {
	var ai [params.Channels]float64
	for i := 0; i < params.Channels; i++ {
		v, err := w.adc.ReadChannel(i)
		if err != nil {
			ai[i] = w.run.PrevAI[i]
			continue
		}
		ai[i] = v
		w.run.PrevAI[i] = v
	}
	return ai
}

func scaleChannels(ai [params.Channels]float64, scale [params.Channels]params.ChannelScale) [params.Channels]float64 {
	var calc [params.Channels]float64
	for i := range ai {
		calc[i] = scale[i].K*ai[i] + scale[i].B
	}
	return calc
}
