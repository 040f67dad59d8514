// Command worker runs the Sweep Worker: the hard-real-time voltage-sweep
// controller. It talks to the DAC over the parameter file's configured
// link, to the ADC at the flags below, and to the Register Broker over a
// Modbus/TCP loopback connection. See internal/worker for the control
// loop itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"iterctl/internal/worker"
)

func main() {
	paramsPath := flag.String("params", "iter_params.txt", "path to the shared parameter file")
	loopback := flag.String("loopback", "127.0.0.1:502", "tcp address of the register broker")
	csvDir := flag.String("csv-dir", ".", "directory for the per-cycle sweep csv sink")
	logDir := flag.String("log-dir", ".", "directory for the per-cycle rotated log")
	adcIP := flag.String("adc-ip", "127.0.0.1", "analog-input module ip address")
	adcPort := flag.Int("adc-port", 502, "analog-input module modbus/tcp port")
	adcSlave := flag.Int("adc-slave", 1, "analog-input module modbus slave id")
	flag.Parse()

	cfg := worker.Config{
		ParamsPath:   *paramsPath,
		LoopbackAddr: *loopback,
		CSVDir:       *csvDir,
		LogDir:       *logDir,
		ADCIP:        *adcIP,
		ADCPort:      *adcPort,
		ADCSlaveID:   *adcSlave,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.New(cfg).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}
