package interview

import (
	"context"

	"github.com/gozwave/core/pkg/node"
)

// Stages lists the fixed interview order, aliasing node.InterviewStage
// so callers don't need to import both packages to build a Driver.
var Stages = []node.InterviewStage{
	node.InterviewStageProtocolInfo,
	node.InterviewStageNodeInfo,
	node.InterviewStageCommandClasses,
	node.InterviewStageEndpoints,
	node.InterviewStageStatic,
	node.InterviewStageCache,
	node.InterviewStageDynamic,
}

// persisted reports whether a stage's completion must survive driver
// restart; Cache and Dynamic re-run every session instead.
func persisted(stage node.InterviewStage) bool {
	return stage != node.InterviewStageCache && stage != node.InterviewStageDynamic
}

// StageFunc runs one interview stage against a single node. It must
// be idempotent: re-running a stage that already succeeded should be
// a safe no-op or reconfirmation.
type StageFunc func(ctx context.Context, n *node.Node) error

// Registry maps each stage to its handler.
type Registry struct {
	handlers map[node.InterviewStage]StageFunc
}

// NewRegistry creates an empty stage Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[node.InterviewStage]StageFunc)}
}

// Register installs fn as the handler for stage.
func (r *Registry) Register(stage node.InterviewStage, fn StageFunc) {
	r.handlers[stage] = fn
}

func (r *Registry) handler(stage node.InterviewStage) (StageFunc, bool) {
	fn, ok := r.handlers[stage]
	return fn, ok
}
