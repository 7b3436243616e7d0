package driver

import (
	"time"

	"github.com/pion/logging"

	"github.com/gozwave/core/pkg/transport"
)

// Config holds all configuration for a Driver. Unknown options are
// ignored by construction: Config only exposes the fields this
// package actually consumes.
type Config struct {
	// Transport is the duplex byte stream to the controller. Required.
	Transport transport.Transport

	// Storage is the persistent, keyed store. Required.
	Storage Storage

	// NetworkKey is the pre-shared Z-Wave network key used to derive
	// both the S0 encryption/MAC keys and the S2 per-pair SPAN keys.
	// Security-encapsulated traffic is unavailable until this is set;
	// nodes that never negotiate a security class beyond None work
	// without it.
	NetworkKey []byte

	// PreserveUnknownValues keeps ValueDB entries for CCs/properties
	// the core doesn't recognize instead of discarding them.
	PreserveUnknownValues bool

	// DisableOptimisticValueUpdate turns off optimistic ValueDB writes
	// entirely: SendCC normally arms a verification poll after a Set
	// command and, for a Supervised Set whose Supervision Report
	// reports success, applies the target value and cancels that poll
	// rather than waiting on the node's own Report. With this set it
	// does neither.
	DisableOptimisticValueUpdate bool

	// AttemptsController is attempts.controller: retries for
	// controller-addressed (non-SendData) transactions.
	AttemptsController int

	// AttemptsSendData is attempts.sendData: retries for node-addressed
	// SendData transactions.
	AttemptsSendData int

	// TimeoutACK is timeouts.ack, defaulting to 1600ms.
	TimeoutACK time.Duration

	// TimeoutResponse is timeouts.response, defaulting to 10s.
	TimeoutResponse time.Duration

	// TimeoutSendDataCallback is timeouts.sendDataCallback, defaulting
	// to 65s.
	TimeoutSendDataCallback time.Duration

	// TimeoutNonce is timeouts.nonce, the S0 nonce exchange budget.
	TimeoutNonce time.Duration

	// LoggerFactory threads a pion/logging LoggerFactory through every
	// subsystem that logs (frame, queue, interview and the driver
	// itself); nil
	// falls back to the default factory.
	LoggerFactory logging.LoggerFactory

	// Callbacks, invoked synchronously on whichever driver goroutine
	// raises the event; OnReady runs on the goroutine that called Start.
	OnReady          func()
	OnError          func(error)
	OnNodeAdded      func(nodeID uint8)
	OnNodeRemoved    func(nodeID uint8)
	OnStageChanged   func(nodeID uint8, from, to string)
	OnValueChanged   func(ValueEvent)
}

// Validate checks the configuration for the required fields: Transport
// and Storage are non-optional.
func (c *Config) Validate() error {
	if c.Transport == nil {
		return ErrTransportRequired
	}
	if c.Storage == nil {
		return ErrStorageRequired
	}
	return nil
}

// applyDefaults fills in the default timeouts/attempts for any
// zero-valued field.
func (c *Config) applyDefaults() {
	if c.AttemptsController <= 0 {
		c.AttemptsController = 3
	}
	if c.AttemptsSendData <= 0 {
		c.AttemptsSendData = 3
	}
	if c.TimeoutACK <= 0 {
		c.TimeoutACK = 1600 * time.Millisecond
	}
	if c.TimeoutResponse <= 0 {
		c.TimeoutResponse = 10 * time.Second
	}
	if c.TimeoutSendDataCallback <= 0 {
		c.TimeoutSendDataCallback = 65 * time.Second
	}
	if c.TimeoutNonce <= 0 {
		c.TimeoutNonce = 5 * time.Second
	}
}
