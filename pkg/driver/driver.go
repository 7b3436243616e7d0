// Package driver wires the link, message, Command Class, send-queue,
// node and interview layers into one running host driver: Start opens
// the transport and identifies the controller; Interview runs the
// staged interview of one known node; SendCC enqueues an application
// command against a node;
// value changes and lifecycle events reach the caller through Config's
// callbacks.
package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/gozwave/core/pkg/cc"
	"github.com/gozwave/core/pkg/frame"
	"github.com/gozwave/core/pkg/interview"
	"github.com/gozwave/core/pkg/message"
	"github.com/gozwave/core/pkg/node"
	"github.com/gozwave/core/pkg/queue"
	"github.com/gozwave/core/pkg/security"
)

// txOptionsDefault requests an explicit ACK and auto-routing, the
// conventional SendData TXOptions for application traffic.
const txOptionsDefault = 0x25

// txOptionsRouteReset adds NoRoute to txOptionsDefault, discarding any
// cached route so the controller rediscovers one from scratch. Used
// only for a transaction's single NoAck retry.
const txOptionsRouteReset = txOptionsDefault | 0x10

// Driver is the top-level orchestrator. Construct with New, then Start
// before issuing any command.
type Driver struct {
	cfg Config

	frameCodec *frame.Codec
	msgCodec   *message.Codec
	ccCodec    *cc.Codec
	ccRegistry *cc.Registry

	queueMgr *queue.Manager
	io       *ioAdapter

	nodes  *node.Store
	values *node.ValueDB

	interview *interview.Driver
	nifs      *nifWaiters
	security  *security.Provider

	log logging.LeveledLogger

	supMu      sync.Mutex
	supPending map[int]*pendingSupervisedWrite
	pollTimers map[node.ValueID]*time.Timer

	mu               sync.Mutex
	state            State
	homeID           uint32
	controllerNodeID uint8

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates cfg, applies its defaults, and assembles a Driver
// ready to Start. The CC registry is pre-seeded with every Command
// Class this module implements.
func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	loggerFactory := cfg.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	msgRegistry := message.NewRegistry()
	message.RegisterDefaults(msgRegistry)

	ccRegistry := cc.NewRegistry()
	cc.RegisterAll(ccRegistry)

	d := &Driver{
		cfg:        cfg,
		frameCodec: frame.NewCodec(cfg.Transport, loggerFactory),
		msgCodec:   message.NewCodec(msgRegistry),
		ccRegistry: ccRegistry,
		queueMgr:   queue.NewManager(loggerFactory),
		nodes:      node.NewStore(),
		values:     node.NewValueDB(),
		log:        loggerFactory.NewLogger("driver"),
		state:      StateUninitialized,
		nifs:       newNIFWaiters(),
	}
	if len(cfg.NetworkKey) > 0 {
		s0, err := security.NewS0Engine(cfg.NetworkKey)
		if err != nil {
			return nil, fmt.Errorf("derive S0 keys: %w", err)
		}
		s2 := security.NewS2Engine(cfg.NetworkKey)
		d.security = security.NewProvider(s0, s2)
	}
	d.ccCodec = cc.NewCodec(ccRegistry, d.securityProvider(), cc.NewReassembler())
	d.io = newIOAdapter(d)
	d.values.AddListener(d)

	d.interview = interview.NewDriver(interview.Config{
		Registry:      d.buildInterviewRegistry(),
		Store:         cfg.Storage,
		LoggerFactory: loggerFactory,
	})

	if cfg.OnNodeAdded != nil || cfg.OnNodeRemoved != nil {
		d.nodes.AddListener(nodeEventForwarder{d})
	}

	return d, nil
}

// securityProvider returns d.security as a cc.SecurityProvider, or a
// true nil interface when no network key was configured — returning
// the *security.Provider directly would produce a non-nil interface
// wrapping a nil pointer, which the codec's nil checks would miss.
func (d *Driver) securityProvider() cc.SecurityProvider {
	if d.security == nil {
		return nil
	}
	return d.security
}

type nodeEventForwarder struct{ d *Driver }

func (f nodeEventForwarder) OnNodeAdded(n *node.Node) {
	if f.d.cfg.OnNodeAdded != nil {
		f.d.cfg.OnNodeAdded(n.ID())
	}
}

func (f nodeEventForwarder) OnNodeRemoved(id uint8) {
	if f.d.cfg.OnNodeRemoved != nil {
		f.d.cfg.OnNodeRemoved(id)
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Nodes returns the node registry, for callers that want to enumerate
// or look up nodes directly.
func (d *Driver) Nodes() *node.Store { return d.nodes }

// Values returns the shared ValueDB.
func (d *Driver) Values() *node.ValueDB { return d.values }

// Interview runs the staged interview for nodeID, resuming from its
// current stage. Callers typically invoke this
// asynchronously once a node is known (e.g. from an OnNodeAdded
// callback); RunNode itself blocks until the node reaches Complete,
// fails a stage permanently, or ctx is cancelled.
func (d *Driver) Interview(ctx context.Context, nodeID uint8) error {
	n := d.nodes.Get(nodeID)
	if n == nil {
		return ErrNodeNotFound
	}
	return d.interview.RunNode(ctx, n)
}

// InterviewDead reports whether nodeID's interview has exhausted its
// retry budget and needs a user-initiated Revive.
func (d *Driver) InterviewDead(nodeID uint8) bool { return d.interview.IsDead(nodeID) }

// Revive clears a node's interview retry/dead state for a fresh
// attempt.
func (d *Driver) Revive(nodeID uint8) { d.interview.Revive(nodeID) }

// Start opens the transport, begins the link-layer read loop and the
// send-queue dispatcher, and learns the controller's own identity —
// the ProtocolInfo interview stage assumes a known home/controller ID.
func (d *Driver) Start(ctx context.Context) error {
	if d.State() != StateUninitialized && d.State() != StateStopped {
		return ErrAlreadyStarted
	}
	d.setState(StateStarting)

	if err := d.cfg.Transport.Open(ctx); err != nil {
		d.setState(StateError)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(2)
	go d.readLoop(runCtx)
	go d.dispatchLoop(runCtx)

	if err := d.identifyController(ctx); err != nil {
		d.setState(StateError)
		if d.cfg.OnError != nil {
			d.cfg.OnError(err)
		}
		return err
	}

	d.setState(StateReady)
	if d.cfg.OnReady != nil {
		d.cfg.OnReady()
	}
	return nil
}

// Stop halts the read/dispatch loops and closes the transport.
func (d *Driver) Stop() error {
	if d.State() == StateUninitialized {
		return ErrNotStarted
	}
	d.setState(StateStopping)
	if d.cancel != nil {
		d.cancel()
	}
	d.queueMgr.Close()
	d.stopPendingPolls()
	err := d.cfg.Transport.Close()
	d.wg.Wait()
	d.setState(StateStopped)
	return err
}

// stopPendingPolls cancels every verification poll timer armed by an
// optimistic write, so Stop doesn't leave them to fire against a
// closed queue after the driver has gone away.
func (d *Driver) stopPendingPolls() {
	d.supMu.Lock()
	defer d.supMu.Unlock()
	for id, t := range d.pollTimers {
		t.Stop()
		delete(d.pollTimers, id)
	}
}

func (d *Driver) identifyController(ctx context.Context) error {
	resp, err := d.requestController(ctx, message.FuncMemoryGetID, nil, queue.PriorityController, true, false)
	if err != nil {
		return fmt.Errorf("identify controller: %w", err)
	}
	id, ok := resp.(*message.MemoryGetIDResponse)
	if !ok {
		return fmt.Errorf("identify controller: unexpected response type %T", resp)
	}
	d.mu.Lock()
	d.homeID = id.HomeID
	d.controllerNodeID = id.NodeID
	d.mu.Unlock()
	return nil
}

// HomeID returns the controller's home ID, valid once Start succeeds.
func (d *Driver) HomeID() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.homeID
}

// ControllerNodeID returns the controller's own node ID.
func (d *Driver) ControllerNodeID() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.controllerNodeID
}

// readLoop owns the single reader of the physical link: it decodes
// frames, ACKs/NAKs them at the link layer, and routes DATA frames to
// whichever waiter (or unsolicited handler) they belong to (spec
// §4.1, §4.5).
func (d *Driver) readLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		f, err := d.frameCodec.Next()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			d.log.Warnf("frame read error: %v", err)
			continue
		}

		if f.Kind == frame.KindData {
			d.acknowledgeData(f)
		}
		d.io.deliverFrame(f)
	}
}

// acknowledgeData ACKs a DATA frame once its message layer has parsed
// cleanly, and NAKs it otherwise so the controller may retransmit.
func (d *Driver) acknowledgeData(f frame.Frame) {
	reply := frame.NewACK()
	if _, err := d.msgCodec.Parse(f.Type, message.Function(f.Function), 0, f.Payload); err != nil {
		d.log.Warnf("message parse error for function %s: %v", message.Function(f.Function), err)
		reply = frame.NewNAK()
	}
	wire, err := reply.Encode()
	if err != nil {
		return
	}
	if _, err := d.cfg.Transport.Write(wire); err != nil {
		d.log.Warnf("ack/nak write error: %v", err)
	}
}

// interpretCallback decodes a Request-type DATA frame believed to be
// the in-flight transaction's terminal callback.
func (d *Driver) interpretCallback(f frame.Frame) (bool, error) {
	msg, err := d.msgCodec.Parse(f.Type, message.Function(f.Function), 0, f.Payload)
	if err != nil {
		return false, err
	}
	if sdc, ok := msg.Payload.(*message.SendDataCallback); ok {
		if sdc.Status == message.TransmitStatusNoAck {
			return false, queue.ErrNoAck
		}
		return sdc.Status == message.TransmitStatusOK, nil
	}
	// A callback whose payload type we don't specifically interpret is
	// treated as success; the message layer already validated it parses.
	return true, nil
}

// dispatchLoop drains the Manager's ready queue one transaction at a
// time, honoring the single-in-flight invariant the send FSM assumes.
func (d *Driver) dispatchLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		tx, ok := d.queueMgr.Pop()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		timeouts := queue.Timeouts{
			ACK:         d.cfg.TimeoutACK,
			Response:    d.cfg.TimeoutResponse,
			Callback:    d.cfg.TimeoutSendDataCallback,
			MaxAttempts: d.attemptsFor(tx),
			IsListening: d.isNodeListening,
		}
		_ = d.queueMgr.Run(tx, d.io, timeouts)
	}
}

// isNodeListening reports a node's listening state for the NoAck
// retry-vs-park decision. An unregistered node defaults to listening:
// there's no wake-up trigger to ever unpark it otherwise.
func (d *Driver) isNodeListening(nodeID uint8) bool {
	n := d.nodes.Get(nodeID)
	if n == nil {
		return true
	}
	return n.IsListening()
}

func (d *Driver) attemptsFor(tx *queue.Transaction) int {
	if tx.ExpectsCallback {
		return d.cfg.AttemptsSendData
	}
	return d.cfg.AttemptsController
}

// requestController enqueues a controller-addressed (non-SendData)
// transaction and blocks for its outcome, returning the parsed
// Response payload.
func (d *Driver) requestController(ctx context.Context, fn message.Function, payload any, priority queue.Priority, expectsResponse, expectsCallback bool) (any, error) {
	raw, err := d.msgCodec.Serialize(message.Message{Type: message.Request, Function: fn, Payload: payload})
	if err != nil {
		return nil, err
	}
	wire, err := frame.NewData(frame.TypeRequest, uint8(fn), raw).Encode()
	if err != nil {
		return nil, err
	}

	tx := queue.NewTransaction(0, priority, [][]byte{wire})
	tx.ExpectsResponse = expectsResponse
	tx.ExpectsCallback = expectsCallback

	if err := d.queueMgr.Enqueue(tx); err != nil {
		return nil, err
	}

	select {
	case <-tx.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := tx.Err(); err != nil {
		return nil, err
	}
	return d.io.takeResponse(), nil
}

// versionOf reports the negotiated version of ccid for the given node,
// or 0 if unknown (Codec.Encode then assumes the newest registered
// version).
func (d *Driver) versionOf(n *node.Node, endpointIndex uint8, ccid cc.CCID) uint8 {
	ep := n.Endpoint(endpointIndex)
	if ep == nil {
		return 0
	}
	if s, ok := ep.SupportsCC(ccid); ok {
		return s.Version
	}
	return 0
}

// encodeSendData serializes payload as a SendData request with the
// given TXOptions and wraps it in a link-layer DATA frame.
func encodeSendData(msgCodec *message.Codec, nodeID uint8, payload []byte, txOptions uint8) ([]byte, error) {
	sdReq := &message.SendDataRequest{NodeID: nodeID, CCPayload: payload, TXOptions: txOptions}
	raw, err := msgCodec.Serialize(message.Message{Type: message.Request, Function: message.FuncSendData, Payload: sdReq})
	if err != nil {
		return nil, err
	}
	return frame.NewData(frame.TypeRequest, uint8(message.FuncSendData), raw).Encode()
}

// SendCC encodes and sends one application Command Class command to a
// node, waiting for the full send FSM (ACK, Response, and — if the
// command expects one — callback) to settle. requestSupervision wraps
// the command in a Supervision encapsulation so the node replies with
// an explicit success/fail Supervision Report instead of leaving the
// core to infer the outcome from the Report alone.
func (d *Driver) SendCC(ctx context.Context, nodeID, endpointIndex uint8, ccid cc.CCID, cmd cc.CommandID, value any, priority queue.Priority, requestSupervision bool) error {
	n := d.nodes.Get(nodeID)
	var version uint8
	if n != nil {
		version = d.versionOf(n, endpointIndex, ccid)
	}

	req := cc.EncodeRequest{
		NodeID:             nodeID,
		EndpointIndex:      endpointIndex,
		CCID:               ccid,
		CommandID:          cmd,
		Value:              value,
		RequestSupervision: requestSupervision,
	}
	if n != nil {
		req.SecurityClass = n.SecurityClass()
	}

	fragments, supervisionSessionID, err := d.ccCodec.Encode(req, func(id cc.CCID) uint8 {
		if id == ccid {
			return version
		}
		return 0
	})
	if err != nil {
		return err
	}

	frames := make([][]byte, 0, len(fragments))
	retryFrames := make([][]byte, 0, len(fragments))
	for _, payload := range fragments {
		wire, err := encodeSendData(d.msgCodec, nodeID, payload, txOptionsDefault)
		if err != nil {
			return err
		}
		frames = append(frames, wire)

		retryWire, err := encodeSendData(d.msgCodec, nodeID, payload, txOptionsRouteReset)
		if err != nil {
			return err
		}
		retryFrames = append(retryFrames, retryWire)
	}

	if !d.cfg.DisableOptimisticValueUpdate {
		if property, target, pollCmd, duration, ok := optimisticWriteTarget(ccid, cmd, value); ok {
			w := &pendingSupervisedWrite{
				valueID:       node.ValueID{NodeID: nodeID, EndpointIndex: endpointIndex, CCID: ccid, Property: property},
				targetValue:   target,
				pollCCID:      ccid,
				pollCmd:       pollCmd,
				endpointIndex: endpointIndex,
			}
			if requestSupervision && supervisionSessionID >= 0 {
				d.trackSupervisedWrite(supervisionSessionID, w)
			}
			d.scheduleVerificationPoll(w, duration)
		}
	}

	tx := queue.NewTransaction(nodeID, priority, frames)
	tx.RetryFrames = retryFrames
	tx.ExpectsResponse = true
	tx.ExpectsCallback = true

	if err := d.queueMgr.Enqueue(tx); err != nil {
		return err
	}

	select {
	case <-tx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return tx.Err()
}

// handleApplicationCommand decodes an unsolicited CC report and
// applies it to the ValueDB.
func (d *Driver) handleApplicationCommand(req *message.ApplicationCommandHandlerRequest) {
	inst, err := d.ccCodec.Decode(req.NodeID, req.CCPayload, func(id cc.CCID) uint8 {
		n := d.nodes.Get(req.NodeID)
		if n == nil {
			return 0
		}
		return d.versionOf(n, 0, id)
	})
	if err != nil {
		d.log.Warnf("node %d: failed to decode command class report: %v", req.NodeID, err)
		return
	}
	if inst == nil {
		// A Transport Service segment that isn't the datagram's last
		// piece; the reassembler is still waiting on the rest.
		return
	}
	d.applyReport(inst)
}

// handleApplicationUpdate applies an unsolicited NIF/routing-change
// notification to the node model, recording both the Command Classes
// the node implements and the ones it can itself send as a controller
// (e.g. an Association-capable node sending a Basic Set on event).
func (d *Driver) handleApplicationUpdate(req *message.ApplicationUpdateRequest) {
	n := d.nodes.Get(req.NodeID)
	if n == nil {
		var err error
		n, err = node.New(req.NodeID)
		if err != nil {
			d.log.Warnf("node %d: cannot register from NIF: %v", req.NodeID, err)
			return
		}
		if err := d.registerNode(n); err != nil {
			d.log.Warnf("node %d: %v", req.NodeID, err)
			return
		}
	}

	root := n.RootEndpoint()
	for _, id := range req.SupportedCCs {
		root.AddSupportedCC(node.CCSupport{CCID: cc.CCID(id)})
	}
	for _, id := range req.ControlledCCs {
		root.AddControlledCC(node.CCSupport{CCID: cc.CCID(id)})
	}
	d.signalNIF(req.NodeID)
}
