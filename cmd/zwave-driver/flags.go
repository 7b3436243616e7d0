package main

import (
	"encoding/hex"
	"flag"
	"fmt"
)

// options holds the CLI flags for the zwave-driver example binary.
type options struct {
	Port       string
	Baud       int
	NetworkKey string
	Verbose    bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.Port, "port", "/dev/ttyACM0", "serial device path")
	flag.IntVar(&o.Baud, "baud", 115200, "serial baud rate")
	flag.StringVar(&o.NetworkKey, "network-key", "", "hex-encoded 16-byte Z-Wave network key")
	flag.BoolVar(&o.Verbose, "verbose", false, "enable debug logging")
	flag.Parse()
	return o
}

func (o options) networkKeyBytes() ([]byte, error) {
	if o.NetworkKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(o.NetworkKey)
	if err != nil {
		return nil, fmt.Errorf("network-key: %w", err)
	}
	if len(key) != 16 {
		return nil, fmt.Errorf("network-key: want 16 bytes, got %d", len(key))
	}
	return key, nil
}
