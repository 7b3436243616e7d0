package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pion/logging"

	"github.com/gozwave/core/pkg/node"
)

const (
	// defaultStageTimeout is the per-stage exchange timeout for
	// non-listening nodes.
	defaultStageTimeout = 30 * time.Second

	// maxStageAttempts is how many failed stage attempts a node's
	// interview gets, across sessions, before the node is marked dead.
	maxStageAttempts = 5
)

// WakeUpWaiter lets the driver suspend a non-listening node's stage
// until its next Wake Up Notification.
type WakeUpWaiter interface {
	WaitForWakeUp(ctx context.Context, nodeID uint8, timeout time.Duration) error
}

// noWakeUpWaiter is used for listening nodes, which never suspend.
type noWakeUpWaiter struct{}

func (noWakeUpWaiter) WaitForWakeUp(ctx context.Context, nodeID uint8, timeout time.Duration) error {
	return nil
}

// nodeProgress tracks one node's retry state across RunNode calls.
type nodeProgress struct {
	mu          sync.Mutex
	attempts    int
	dead        bool
	nextRetryAt time.Time
	backoff     *backoff.ExponentialBackOff
}

func newNodeProgress() *nodeProgress {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Minute
	b.MaxInterval = 2 * time.Hour
	b.MaxElapsedTime = 0 // never give up on elapsed time; maxStageAttempts bounds retries instead
	b.Reset()
	return &nodeProgress{backoff: b}
}

// Driver runs the staged interview for each node in a node.Store,
// resuming from the first incomplete stage and retrying failed stages
// with exponential backoff before marking a node dead.
type Driver struct {
	registry *Registry
	store    Store
	waiter   WakeUpWaiter
	log      logging.LeveledLogger

	stageTimeout time.Duration

	mu       sync.Mutex
	progress map[uint8]*nodeProgress
}

// Config configures a Driver. Store and Waiter may be nil, defaulting
// to an in-memory store and a no-op (always-ready) waiter suitable for
// listening-only deployments or tests.
type Config struct {
	Registry     *Registry
	Store        Store
	Waiter       WakeUpWaiter
	StageTimeout time.Duration
	LoggerFactory logging.LoggerFactory
}

// NewDriver creates a Driver from cfg.
func NewDriver(cfg Config) *Driver {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	waiter := cfg.Waiter
	if waiter == nil {
		waiter = noWakeUpWaiter{}
	}
	timeout := cfg.StageTimeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("interview")
	} else {
		log = logging.NewDefaultLoggerFactory().NewLogger("interview")
	}
	return &Driver{
		registry:     cfg.Registry,
		store:        store,
		waiter:       waiter,
		log:          log,
		stageTimeout: timeout,
		progress:     make(map[uint8]*nodeProgress),
	}
}

func (d *Driver) progressFor(nodeID uint8) *nodeProgress {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.progress[nodeID]
	if !ok {
		p = newNodeProgress()
		d.progress[nodeID] = p
	}
	return p
}

// IsDead reports whether nodeID's interview has exhausted its retry
// budget.
func (d *Driver) IsDead(nodeID uint8) bool {
	p := d.progressFor(nodeID)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dead
}

// Revive clears a node's dead/backoff state for a user-initiated
// re-interview.
func (d *Driver) Revive(nodeID uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress[nodeID] = newNodeProgress()
}

// RunNode drives n from its current InterviewStage through to
// Complete, one stage at a time. It returns ErrNodeDead if the node's
// retry budget is exhausted, or ErrNotReadyToRetry if called before a
// prior failure's backoff interval has elapsed.
func (d *Driver) RunNode(ctx context.Context, n *node.Node) error {
	progress := d.progressFor(n.ID())

	progress.mu.Lock()
	if progress.dead {
		progress.mu.Unlock()
		return ErrNodeDead
	}
	if !progress.nextRetryAt.IsZero() && time.Now().Before(progress.nextRetryAt) {
		progress.mu.Unlock()
		return ErrNotReadyToRetry
	}
	progress.mu.Unlock()

	for _, stage := range Stages {
		if !n.InterviewStage().Before(stage) {
			continue // already completed, idempotent skip
		}
		if err := d.runStage(ctx, n, stage); err != nil {
			return d.recordFailure(n.ID(), stage, err)
		}
		if err := n.AdvanceInterviewStage(stage); err != nil {
			return err
		}
		if persisted(stage) {
			d.persistStage(n.ID(), stage)
		}
	}

	if err := n.AdvanceInterviewStage(node.InterviewStageComplete); err != nil && !errors.Is(err, node.ErrStageRegression) {
		return err
	}
	d.persistStage(n.ID(), node.InterviewStageComplete)
	d.resetProgress(n.ID())
	return nil
}

func (d *Driver) runStage(ctx context.Context, n *node.Node, stage node.InterviewStage) error {
	handler, ok := d.registry.handler(stage)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}

	if !n.IsListening() {
		if err := d.waiter.WaitForWakeUp(ctx, n.ID(), d.stageTimeout); err != nil {
			return err
		}
	}

	stageCtx, cancel := context.WithTimeout(ctx, d.stageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- handler(stageCtx, n) }()

	select {
	case err := <-done:
		return err
	case <-stageCtx.Done():
		return ErrStageTimeout
	}
}

func (d *Driver) recordFailure(nodeID uint8, stage node.InterviewStage, cause error) error {
	p := d.progressFor(nodeID)
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++
	if p.attempts >= maxStageAttempts {
		p.dead = true
		d.log.Errorf("node %d: stage %s failed %d times, marking dead: %v", nodeID, stage, p.attempts, cause)
		return ErrNodeDead
	}
	delay := p.backoff.NextBackOff()
	p.nextRetryAt = time.Now().Add(delay)
	d.log.Warnf("node %d: stage %s failed (attempt %d/%d), retrying in %s: %v",
		nodeID, stage, p.attempts, maxStageAttempts, delay, cause)
	return cause
}

func (d *Driver) resetProgress(nodeID uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.progress, nodeID)
}

func (d *Driver) persistStage(nodeID uint8, stage node.InterviewStage) {
	key := fmt.Sprintf("node/%d/interviewStage", nodeID)
	d.store.Set(key, []byte(stage.String()))
	if err := d.store.Flush(); err != nil {
		d.log.Warnf("node %d: failed to persist interview stage %s: %v", nodeID, stage, err)
	}
}
