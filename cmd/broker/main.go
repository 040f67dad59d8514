// Command broker runs the Register Broker: the multi-transport Modbus
// server that owns the shared register bank and the on-disk parameter
// file. See internal/broker for the event loop itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"iterctl/internal/broker"
	"iterctl/internal/params"
)

func main() {
	paramsPath := flag.String("params", "iter_params.txt", "path to the shared parameter file")
	tcpAddr := flag.String("listen", ":502", "tcp address to serve Modbus/TCP on")
	flag.Parse()

	p, parsed, err := params.Load(*paramsPath)
	if parsed == 0 {
		fmt.Fprintf(os.Stderr, "broker: %s unusable (%v); starting from defaults\n", *paramsPath, err)
	}

	loop := broker.NewLoop(*paramsPath, p, *tcpAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "broker: %v\n", err)
		os.Exit(1)
	}
}
