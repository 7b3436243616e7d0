package interview

import (
	"context"
	"testing"

	"github.com/gozwave/core/pkg/node"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.handler(node.InterviewStageProtocolInfo); ok {
		t.Fatal("unregistered stage should not resolve a handler")
	}
	r.Register(node.InterviewStageProtocolInfo, func(ctx context.Context, n *node.Node) error { return nil })
	if _, ok := r.handler(node.InterviewStageProtocolInfo); !ok {
		t.Fatal("registered stage should resolve a handler")
	}
}

func TestPersisted_CacheAndDynamicAreNotPersisted(t *testing.T) {
	if persisted(node.InterviewStageCache) {
		t.Fatal("Cache stage should not be persisted")
	}
	if persisted(node.InterviewStageDynamic) {
		t.Fatal("Dynamic stage should not be persisted")
	}
	if !persisted(node.InterviewStageStatic) {
		t.Fatal("Static stage should be persisted")
	}
}

func TestStages_MatchesSpecOrder(t *testing.T) {
	want := []node.InterviewStage{
		node.InterviewStageProtocolInfo,
		node.InterviewStageNodeInfo,
		node.InterviewStageCommandClasses,
		node.InterviewStageEndpoints,
		node.InterviewStageStatic,
		node.InterviewStageCache,
		node.InterviewStageDynamic,
	}
	if len(Stages) != len(want) {
		t.Fatalf("len(Stages) = %d, want %d", len(Stages), len(want))
	}
	for i, s := range want {
		if Stages[i] != s {
			t.Errorf("Stages[%d] = %v, want %v", i, Stages[i], s)
		}
	}
}
