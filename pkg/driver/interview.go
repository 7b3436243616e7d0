package driver

import (
	"context"

	"github.com/gozwave/core/pkg/cc"
	"github.com/gozwave/core/pkg/interview"
	"github.com/gozwave/core/pkg/message"
	"github.com/gozwave/core/pkg/node"
	"github.com/gozwave/core/pkg/queue"
)

// buildInterviewRegistry wires the staged interview to live
// controller/node exchanges: each stage's handler is a thin adapter
// over requestController/SendCC, so the interview driver's
// retry/backoff/persistence logic stays entirely generic.
func (d *Driver) buildInterviewRegistry() *interview.Registry {
	r := interview.NewRegistry()
	r.Register(node.InterviewStageProtocolInfo, d.interviewProtocolInfo)
	r.Register(node.InterviewStageNodeInfo, d.interviewNodeInfo)
	r.Register(node.InterviewStageCommandClasses, d.interviewCommandClasses)
	r.Register(node.InterviewStageEndpoints, d.interviewEndpoints)
	r.Register(node.InterviewStageStatic, d.interviewStatic)
	r.Register(node.InterviewStageCache, d.interviewCache)
	r.Register(node.InterviewStageDynamic, d.interviewDynamic)
	return r
}

// interviewProtocolInfo queries GetNodeProtocolInfo and fills in the
// node's listening/routing/baud-rate/device-class fields.
func (d *Driver) interviewProtocolInfo(ctx context.Context, n *node.Node) error {
	resp, err := d.requestController(ctx, message.FuncGetNodeProtocolInfo,
		&message.GetNodeProtocolInfoRequest{NodeID: n.ID()}, queue.PriorityNodeQuery, true, false)
	if err != nil {
		return err
	}
	info, ok := resp.(*message.GetNodeProtocolInfoResponse)
	if !ok {
		return ErrNodeNotFound
	}
	if err := n.SetListening(info.IsListening, info.IsFrequentListening); err != nil {
		return err
	}
	n.SetRouting(info.IsRouting)
	n.SetBeaming(info.IsBeaming)
	n.SetMaxBaudRate(info.MaxBaudRate)
	n.SetProtocolVersion(info.ProtocolVersion)
	n.SetDeviceClass(node.DeviceClass{Generic: info.DeviceClassGeneric, Specific: info.DeviceClassSpecific})
	return nil
}

// interviewNodeInfo requests the node's NIF and waits for it to arrive
// as an ApplicationUpdate callback, recording the advertised supported
// Command Classes on the root endpoint.
func (d *Driver) interviewNodeInfo(ctx context.Context, n *node.Node) error {
	waitCh := d.nifs.register(n.ID())
	_, err := d.requestController(ctx, message.FuncRequestNodeInfo,
		&message.RequestNodeInfoRequest{NodeID: n.ID()}, queue.PriorityNodeQuery, true, false)
	if err != nil {
		return err
	}
	return d.waitForNIF(ctx, waitCh)
}

// interviewCommandClasses queries the Version CC for each supported CC
// the NodeInfo stage discovered, recording the node's implemented
// version for each.
func (d *Driver) interviewCommandClasses(ctx context.Context, n *node.Node) error {
	root := n.RootEndpoint()
	for _, support := range root.SupportedCCs() {
		if support.CCID == cc.CCIDVersion {
			continue
		}
		if err := d.SendCC(ctx, n.ID(), 0, cc.CCIDVersion, cc.CmdVersionCCGet,
			&cc.VersionCCGet{RequestedCCID: support.CCID}, queue.PriorityNodeQuery, false); err != nil {
			return err
		}
		if v, ok := d.values.Get(node.ValueID{NodeID: n.ID(), CCID: cc.CCIDVersion, Property: "ccVersion", PropertyKey: fmtCCID(support.CCID), HasKey: true}); ok {
			if version, ok := v.(uint8); ok {
				root.AddSupportedCC(node.CCSupport{CCID: support.CCID, Version: version})
			}
		}
	}
	return nil
}

// interviewEndpoints queries Multi Channel endpoint discovery when the
// node supports it, creating the additional endpoints the root
// reports.
func (d *Driver) interviewEndpoints(ctx context.Context, n *node.Node) error {
	root := n.RootEndpoint()
	if _, ok := root.SupportsCC(cc.CCIDMultiChannel); !ok {
		return nil
	}
	if err := d.SendCC(ctx, n.ID(), 0, cc.CCIDMultiChannel, cc.CmdMultiChannelEndPointGet, struct{}{}, queue.PriorityNodeQuery, false); err != nil {
		return err
	}
	v, ok := d.values.Get(node.ValueID{NodeID: n.ID(), CCID: cc.CCIDMultiChannel, Property: "endpointCount"})
	if !ok {
		return nil
	}
	count, ok := v.(uint8)
	if !ok {
		return nil
	}
	for i := uint8(1); i <= count; i++ {
		if n.Endpoint(i) != nil {
			continue
		}
		if err := n.AddEndpoint(node.NewEndpoint(i)); err != nil {
			return err
		}
	}
	return nil
}

// interviewStatic queries the current value of each endpoint's Binary
// Switch and Multilevel Switch CCs, the same refresh interviewDynamic
// runs; other CCs are left for the application layer to query
// explicitly.
func (d *Driver) interviewStatic(ctx context.Context, n *node.Node) error {
	return d.refreshKnownValues(ctx, n)
}

// interviewCache restores values this core already learned in a prior
// session straight from Storage, with no network round-trip at all. A
// value Cache never persisted for falls through untouched; it'll get
// its first live read from the Dynamic stage instead.
func (d *Driver) interviewCache(ctx context.Context, n *node.Node) error {
	for _, ep := range n.Endpoints() {
		for _, support := range ep.SupportedCCs() {
			property, ok := cachedValueProperty(support.CCID)
			if !ok {
				continue
			}
			d.restoreKnownValue(node.ValueID{NodeID: n.ID(), EndpointIndex: ep.Index(), CCID: support.CCID, Property: property})
		}
	}
	return nil
}

// cachedValueProperty names the property interviewCache restores for
// a given CC, for the CCs this core maps onto a single scalar value.
func cachedValueProperty(ccid cc.CCID) (string, bool) {
	switch ccid {
	case cc.CCIDBinarySwitch, cc.CCIDMultilevelSwitch:
		return "currentValue", true
	default:
		return "", false
	}
}

// interviewDynamic re-polls the same current values as
// interviewStatic. The Dynamic stage is not persisted as complete, so
// it runs again every session.
func (d *Driver) interviewDynamic(ctx context.Context, n *node.Node) error {
	return d.refreshKnownValues(ctx, n)
}

func (d *Driver) refreshKnownValues(ctx context.Context, n *node.Node) error {
	for _, ep := range n.Endpoints() {
		for _, support := range ep.SupportedCCs() {
			switch support.CCID {
			case cc.CCIDBinarySwitch:
				if err := d.SendCC(ctx, n.ID(), ep.Index(), cc.CCIDBinarySwitch, cc.CmdBinarySwitchGet, struct{}{}, queue.PriorityNodeQuery, false); err != nil {
					return err
				}
			case cc.CCIDMultilevelSwitch:
				if err := d.SendCC(ctx, n.ID(), ep.Index(), cc.CCIDMultilevelSwitch, cc.CmdMultilevelSwitchGet, struct{}{}, queue.PriorityNodeQuery, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func fmtCCID(id cc.CCID) string {
	const hex = "0123456789abcdef"
	v := uint16(id)
	return string([]byte{'0', 'x', hex[(v>>12)&0xF], hex[(v>>8)&0xF], hex[(v>>4)&0xF], hex[v&0xF]})
}
