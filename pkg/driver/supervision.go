package driver

import (
	"context"
	"time"

	"github.com/gozwave/core/pkg/cc"
	"github.com/gozwave/core/pkg/node"
	"github.com/gozwave/core/pkg/queue"
)

// pendingSupervisedWrite tracks one write of a target value so the
// eventual confirmation — a Supervision Report, an ordinary Report,
// or (failing both) a verification poll — can settle the ValueDB
// exactly once.
type pendingSupervisedWrite struct {
	valueID       node.ValueID
	targetValue   any
	pollCCID      cc.CCID
	pollCmd       cc.CommandID
	endpointIndex uint8
	timer         *time.Timer
}

// optimisticWriteTarget reports the ValueDB property a Set command's
// value writes to, the value to apply optimistically, and the Get
// command used to verify it, for the CCs the core knows how to treat
// this way. duration is the CC's own notion of transition time (0 if
// it has none), used to size the verification poll's delay.
func optimisticWriteTarget(ccid cc.CCID, cmd cc.CommandID, value any) (property string, targetValue any, pollCmd cc.CommandID, duration uint8, ok bool) {
	switch ccid {
	case cc.CCIDBinarySwitch:
		if cmd != cc.CmdBinarySwitchSet {
			return "", nil, 0, 0, false
		}
		s, isSet := value.(*cc.BinarySwitchSet)
		if !isSet {
			return "", nil, 0, 0, false
		}
		return "currentValue", s.TargetValue, cc.CmdBinarySwitchGet, 0, true
	case cc.CCIDMultilevelSwitch:
		if cmd != cc.CmdMultilevelSwitchSet {
			return "", nil, 0, 0, false
		}
		s, isSet := value.(*cc.MultilevelSwitchSet)
		if !isSet {
			return "", nil, 0, 0, false
		}
		return "currentValue", s.TargetValue, cc.CmdMultilevelSwitchGet, s.Duration, true
	default:
		return "", nil, 0, 0, false
	}
}

// durationToDelay converts a Multilevel Switch Set Duration byte to a
// wait time: 0 is instant, 1-127 are seconds, 128-254 are minutes,
// 0xFF (factory default) is treated as instant since the actual ramp
// time isn't known to the core.
func durationToDelay(d uint8) time.Duration {
	switch {
	case d == 0xFF:
		return 0
	case d <= 127:
		return time.Duration(d) * time.Second
	default:
		return time.Duration(d-127) * time.Minute
	}
}

// trackSupervisedWrite records sessionID as belonging to w so the
// matching Supervision Report can be correlated back to the write
// that requested it.
func (d *Driver) trackSupervisedWrite(sessionID int, w *pendingSupervisedWrite) {
	d.supMu.Lock()
	defer d.supMu.Unlock()
	if d.supPending == nil {
		d.supPending = make(map[int]*pendingSupervisedWrite)
	}
	d.supPending[sessionID] = w
}

func (d *Driver) takeSupervisedWrite(sessionID int) (*pendingSupervisedWrite, bool) {
	d.supMu.Lock()
	defer d.supMu.Unlock()
	w, ok := d.supPending[sessionID]
	if ok {
		delete(d.supPending, sessionID)
	}
	return w, ok
}

// handleSupervisionReport settles the write the report's session ID
// was opened for. A Success status applies the target value to the
// ValueDB immediately and cancels the write's verification poll; any
// other status leaves the poll armed to confirm the real state once
// it fires.
func (d *Driver) handleSupervisionReport(rep *cc.SupervisionReport) {
	w, ok := d.takeSupervisedWrite(rep.SessionID)
	if !ok {
		return
	}
	if rep.Status == cc.SupervisionStatusSuccess {
		d.cancelVerificationPoll(w.valueID)
		d.values.Set(w.valueID, w.targetValue)
	}
}

// scheduleVerificationPoll arms a one-shot Get at queue.PriorityPoll
// for w.valueID, duration+1s out. It is cancelled early by either a
// successful Supervision Report or an ordinary unsolicited Report for
// the same value arriving first.
func (d *Driver) scheduleVerificationPoll(w *pendingSupervisedWrite, duration uint8) {
	delay := durationToDelay(duration) + time.Second

	d.supMu.Lock()
	if d.pollTimers == nil {
		d.pollTimers = make(map[node.ValueID]*time.Timer)
	}
	if existing, ok := d.pollTimers[w.valueID]; ok {
		existing.Stop()
	}
	w.timer = time.AfterFunc(delay, func() { d.runVerificationPoll(w) })
	d.pollTimers[w.valueID] = w.timer
	d.supMu.Unlock()
}

func (d *Driver) cancelVerificationPoll(id node.ValueID) {
	d.supMu.Lock()
	defer d.supMu.Unlock()
	if t, ok := d.pollTimers[id]; ok {
		t.Stop()
		delete(d.pollTimers, id)
	}
}

func (d *Driver) runVerificationPoll(w *pendingSupervisedWrite) {
	d.supMu.Lock()
	t, ok := d.pollTimers[w.valueID]
	if !ok || t != w.timer {
		d.supMu.Unlock()
		return
	}
	delete(d.pollTimers, w.valueID)
	d.supMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.TimeoutResponse)
	defer cancel()
	if err := d.SendCC(ctx, w.valueID.NodeID, w.endpointIndex, w.pollCCID, w.pollCmd, nil, queue.PriorityPoll, false); err != nil {
		d.log.Warnf("node %d: verification poll failed: %v", w.valueID.NodeID, err)
	}
}
