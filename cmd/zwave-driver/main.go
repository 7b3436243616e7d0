// zwave-driver is a minimal host example: it opens a Z-Wave serial
// controller, runs the startup handshake, interviews each node in the
// driver's store after startup and each node it later learns of from a
// Node Information Frame, and logs value changes until interrupted.
//
// Usage:
//
//	zwave-driver -port /dev/ttyACM0 -baud 115200
//
// Options:
//
//	-port         serial device path (default: /dev/ttyACM0)
//	-baud         serial baud rate (default: 115200)
//	-network-key  hex-encoded 16-byte Z-Wave network key
//	-verbose      enable debug logging
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/pion/logging"

	"github.com/gozwave/core/pkg/driver"
	"github.com/gozwave/core/pkg/transport"
)

func main() {
	opts := parseFlags()

	networkKey, err := opts.networkKeyBytes()
	if err != nil {
		log.Fatalf("zwave-driver: %v", err)
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	if opts.Verbose {
		loggerFactory.DefaultLogLevel = logging.LogLevelDebug
	}

	var d *driver.Driver
	d, err = driver.New(driver.Config{
		Transport:     transport.NewSerial(opts.Port, opts.Baud),
		Storage:       driver.NewMemoryStorage(),
		NetworkKey:    networkKey,
		LoggerFactory: loggerFactory,

		OnReady: func() {
			log.Printf("controller ready: home id %08x", d.HomeID())
		},
		OnError: func(err error) {
			log.Printf("driver error: %v", err)
		},
		OnNodeAdded: func(nodeID uint8) {
			log.Printf("node %d discovered, starting interview", nodeID)
			go interviewNode(d, nodeID)
		},
		OnStageChanged: func(nodeID uint8, from, to string) {
			log.Printf("node %d: %s -> %s", nodeID, from, to)
		},
		OnValueChanged: func(ev driver.ValueEvent) {
			log.Printf("node %d value cc=%#04x %s = %v", ev.ValueID.NodeID, uint16(ev.ValueID.CCID), ev.ValueID.Property, ev.Value)
		},
	})
	if err != nil {
		log.Fatalf("zwave-driver: configure: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("zwave-driver: start: %v", err)
	}
	log.Printf("zwave-driver: running as node %d, home id %08x", d.ControllerNodeID(), d.HomeID())

	for _, n := range d.Nodes().All() {
		go interviewNode(d, n.ID())
	}

	<-ctx.Done()
	log.Println("zwave-driver: shutting down")
	if err := d.Stop(); err != nil {
		log.Fatalf("zwave-driver: stop: %v", err)
	}
}

func interviewNode(d *driver.Driver, nodeID uint8) {
	if err := d.Interview(context.Background(), nodeID); err != nil {
		log.Printf("node %d: interview failed: %v", nodeID, err)
	}
}
