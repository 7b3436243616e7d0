package interview

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gozwave/core/pkg/node"
)

func newTestNode(t *testing.T, id uint8) *node.Node {
	t.Helper()
	n, err := node.New(id)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func okRegistry() *Registry {
	r := NewRegistry()
	for _, s := range Stages {
		r.Register(s, func(ctx context.Context, n *node.Node) error { return nil })
	}
	return r
}

func TestDriver_RunsAllStagesToComplete(t *testing.T) {
	n := newTestNode(t, 1)
	d := NewDriver(Config{Registry: okRegistry()})

	if err := d.RunNode(context.Background(), n); err != nil {
		t.Fatalf("RunNode() error = %v", err)
	}
	if n.InterviewStage() != node.InterviewStageComplete {
		t.Fatalf("stage = %v, want Complete", n.InterviewStage())
	}
}

func TestDriver_ResumesFromIncompleteStage(t *testing.T) {
	n := newTestNode(t, 1)
	n.AdvanceInterviewStage(node.InterviewStageProtocolInfo)
	n.AdvanceInterviewStage(node.InterviewStageNodeInfo)

	var ran []node.InterviewStage
	r := NewRegistry()
	for _, s := range Stages {
		stage := s
		r.Register(stage, func(ctx context.Context, n *node.Node) error {
			ran = append(ran, stage)
			return nil
		})
	}
	d := NewDriver(Config{Registry: r})
	if err := d.RunNode(context.Background(), n); err != nil {
		t.Fatal(err)
	}

	want := []node.InterviewStage{
		node.InterviewStageCommandClasses,
		node.InterviewStageEndpoints,
		node.InterviewStageStatic,
		node.InterviewStageCache,
		node.InterviewStageDynamic,
	}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i, w := range want {
		if ran[i] != w {
			t.Errorf("ran[%d] = %v, want %v", i, ran[i], w)
		}
	}
}

func TestDriver_StageFailureRetriesWithBackoff(t *testing.T) {
	n := newTestNode(t, 1)
	r := NewRegistry()
	var calls int32
	r.Register(node.InterviewStageProtocolInfo, func(ctx context.Context, n *node.Node) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("no response")
	})
	d := NewDriver(Config{Registry: r})

	err := d.RunNode(context.Background(), n)
	if err == nil {
		t.Fatal("RunNode() should fail when the first stage handler errors")
	}
	if n.InterviewStage() != node.InterviewStageNone {
		t.Fatalf("stage = %v, want None (failed stage must not advance)", n.InterviewStage())
	}

	// Retrying immediately should be refused: backoff hasn't elapsed.
	if err := d.RunNode(context.Background(), n); err != ErrNotReadyToRetry {
		t.Fatalf("err = %v, want ErrNotReadyToRetry", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1 (a too-early retry must not re-invoke the handler)", calls)
	}
}

func TestDriver_MarksNodeDeadAfterMaxAttempts(t *testing.T) {
	n := newTestNode(t, 1)
	r := NewRegistry()
	r.Register(node.InterviewStageProtocolInfo, func(ctx context.Context, n *node.Node) error {
		return errors.New("permanently unreachable")
	})
	d := NewDriver(Config{Registry: r})

	p := d.progressFor(n.ID())
	for i := 0; i < maxStageAttempts; i++ {
		p.mu.Lock()
		p.nextRetryAt = time.Time{}
		p.mu.Unlock()
		err := d.RunNode(context.Background(), n)
		if i < maxStageAttempts-1 {
			if err == nil || errors.Is(err, ErrNodeDead) {
				t.Fatalf("attempt %d: err = %v, want a non-dead failure", i, err)
			}
		}
	}
	if !d.IsDead(n.ID()) {
		t.Fatal("node should be marked dead after exhausting its retry budget")
	}
	if err := d.RunNode(context.Background(), n); err != ErrNodeDead {
		t.Fatalf("err = %v, want ErrNodeDead", err)
	}
}

func TestDriver_Revive_ClearsDeadState(t *testing.T) {
	n := newTestNode(t, 1)
	r := NewRegistry()
	r.Register(node.InterviewStageProtocolInfo, func(ctx context.Context, n *node.Node) error {
		return errors.New("fail")
	})
	d := NewDriver(Config{Registry: r})
	p := d.progressFor(n.ID())
	for i := 0; i < maxStageAttempts; i++ {
		p.mu.Lock()
		p.nextRetryAt = time.Time{}
		p.mu.Unlock()
		d.RunNode(context.Background(), n)
	}
	if !d.IsDead(n.ID()) {
		t.Fatal("precondition: node should be dead")
	}
	d.Revive(n.ID())
	if d.IsDead(n.ID()) {
		t.Fatal("Revive() should clear dead state")
	}
}

type blockingWaiter struct {
	waited chan struct{}
}

func (w *blockingWaiter) WaitForWakeUp(ctx context.Context, nodeID uint8, timeout time.Duration) error {
	close(w.waited)
	<-ctx.Done()
	return ErrStageTimeout
}

func TestDriver_NonListeningNodeWaitsForWakeUp(t *testing.T) {
	n := newTestNode(t, 1)
	n.SetListening(false, false)
	waiter := &blockingWaiter{waited: make(chan struct{})}
	d := NewDriver(Config{Registry: okRegistry(), Waiter: waiter, StageTimeout: 20 * time.Millisecond})

	err := d.RunNode(context.Background(), n)
	select {
	case <-waiter.waited:
	default:
		t.Fatal("WaitForWakeUp was not called for a non-listening node")
	}
	if err == nil {
		t.Fatal("expected a timeout error since the waiter never completes")
	}
}

func TestDriver_StageTimeout(t *testing.T) {
	n := newTestNode(t, 1)
	r := NewRegistry()
	r.Register(node.InterviewStageProtocolInfo, func(ctx context.Context, n *node.Node) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDriver(Config{Registry: r, StageTimeout: 10 * time.Millisecond})

	err := d.RunNode(context.Background(), n)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestDriver_PersistsCompletedStages(t *testing.T) {
	n := newTestNode(t, 9)
	store := NewMemoryStore()
	d := NewDriver(Config{Registry: okRegistry(), Store: store})

	if err := d.RunNode(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	v, ok := store.Get("node/9/interviewStage")
	if !ok {
		t.Fatal("expected the final stage to be persisted")
	}
	if string(v) != node.InterviewStageComplete.String() {
		t.Fatalf("persisted stage = %q, want %q", v, node.InterviewStageComplete.String())
	}
}

func TestDriver_UnknownStageErrors(t *testing.T) {
	n := newTestNode(t, 1)
	d := NewDriver(Config{Registry: NewRegistry()})
	err := d.RunNode(context.Background(), n)
	if !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("err = %v, want ErrUnknownStage", err)
	}
}
