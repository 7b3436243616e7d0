package driver

import "github.com/gozwave/core/pkg/node"

// stageForwarder implements node.StageListener, relaying interview
// stage transitions to Config.OnStageChanged.
type stageForwarder struct{ d *Driver }

func (f stageForwarder) OnInterviewStageChanged(nodeID uint8, from, to node.InterviewStage) {
	if f.d.cfg.OnStageChanged != nil {
		f.d.cfg.OnStageChanged(nodeID, from.String(), to.String())
	}
}

// registerNode adds n to the node store and wires it to the driver's
// stage-change callback. Both entry points that learn of a node
// (handleApplicationUpdate's NIF, and an application adding a node
// after inclusion) go through this so every node gets the same
// instrumentation.
func (d *Driver) registerNode(n *node.Node) error {
	if n.ExtendedID() {
		d.log.Warnf("node %d: id exceeds classic controller range [1, 232]", n.ID())
	}
	n.AddStageListener(stageForwarder{d})
	return d.nodes.Add(n)
}

// AddNode registers a newly included node and returns it, for callers
// driving inclusion themselves — the core doesn't run inclusion or
// exclusion, only what happens to a node once it's known.
func (d *Driver) AddNode(id uint8) (*node.Node, error) {
	n, err := node.New(id)
	if err != nil {
		return nil, err
	}
	if err := d.registerNode(n); err != nil {
		return nil, err
	}
	return n, nil
}
