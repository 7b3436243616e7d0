package driver

import (
	"fmt"

	"github.com/gozwave/core/pkg/cc"
	"github.com/gozwave/core/pkg/node"
)

// applyReport projects one decoded Command Class instance onto the
// ValueDB, updating whichever ValueID the innermost CC corresponds to.
// Supervision Report, Binary Switch Report and Set, Multilevel Switch
// Report, Version Report, Version CC Report and Multi Channel End
// Point Report are mapped; anything else is recorded under a
// generic "value" property so it is still observable, unless
// PreserveUnknownValues is false, in which case it is dropped.
func (d *Driver) applyReport(inst *cc.Instance) {
	id := node.ValueID{
		NodeID:        inst.NodeID,
		EndpointIndex: inst.EndpointIndex,
		CCID:          inst.Inner.CCID,
	}

	switch v := inst.Value.(type) {
	case *cc.SupervisionReport:
		d.handleSupervisionReport(v)
		return
	case *cc.BinarySwitchReport:
		id.Property = "currentValue"
		d.cancelVerificationPoll(id)
		d.values.Set(id, v.CurrentValue)
	case *cc.BinarySwitchSet:
		id.Property = "targetValue"
		d.values.Set(id, v.TargetValue)
	case *cc.MultilevelSwitchReport:
		id.Property = "currentValue"
		d.cancelVerificationPoll(id)
		d.values.Set(id, v.CurrentValue)
	case *cc.VersionReport:
		id.Property = "firmwareVersion"
		d.values.Set(id, v.FirmwareVersion)
	case *cc.VersionCCReport:
		id.Property = "ccVersion"
		id.PropertyKey = fmtCCID(v.RequestedCCID)
		id.HasKey = true
		d.values.Set(id, v.Version)
	case *cc.MultiChannelEndPointReport:
		id.Property = "endpointCount"
		d.values.Set(id, v.EndpointCount)
	default:
		if !d.cfg.PreserveUnknownValues {
			return
		}
		id.Property = "value"
		id.PropertyKey = fmt.Sprintf("cmd-%#02x", uint8(inst.Inner.CommandID))
		id.HasKey = true
		d.values.Notify(id, inst.Value)
	}
}

func (d *Driver) fireValueCallback(c node.Change) {
	if d.cfg.OnValueChanged == nil {
		return
	}
	d.cfg.OnValueChanged(valueEventFrom(c))
}

// OnValueChange implements node.ChangeListener, forwarding ValueDB
// events to the configured callback and, for an ordinary update,
// write-through persisting the new value so a later session's Cache
// interview stage can restore it without a live query.
func (d *Driver) OnValueChange(c node.Change) {
	d.fireValueCallback(c)
	if c.Kind == node.ChangeUpdated {
		d.persistValue(c.ValueID, c.Value)
	}
}

var _ node.ChangeListener = (*Driver)(nil)

const (
	storedValueTagBool  = 0x01
	storedValueTagUint8 = 0x02
)

// encodeStoredValue packs a ValueDB scalar into a tagged byte pair for
// Storage. Only the scalar types the registered CCs actually produce
// are supported; anything else is left unpersisted.
func encodeStoredValue(v any) ([]byte, bool) {
	switch x := v.(type) {
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return []byte{storedValueTagBool, b}, true
	case uint8:
		return []byte{storedValueTagUint8, x}, true
	default:
		return nil, false
	}
}

func decodeStoredValue(raw []byte) (any, bool) {
	if len(raw) < 2 {
		return nil, false
	}
	switch raw[0] {
	case storedValueTagBool:
		return raw[1] != 0, true
	case storedValueTagUint8:
		return raw[1], true
	default:
		return nil, false
	}
}

// valueStorageKey is the Storage key a ValueID's last-known value is
// kept under, partitioned by node and endpoint the way every other
// per-node key in Storage is.
func valueStorageKey(id node.ValueID) string {
	key := fmt.Sprintf("node/%d/value/%d/%#04x/%s", id.NodeID, id.EndpointIndex, uint16(id.CCID), id.Property)
	if id.HasKey {
		key += "/" + id.PropertyKey
	}
	return key
}

func (d *Driver) persistValue(id node.ValueID, value any) {
	raw, ok := encodeStoredValue(value)
	if !ok {
		return
	}
	d.cfg.Storage.Set(valueStorageKey(id), raw)
	if err := d.cfg.Storage.Flush(); err != nil {
		d.log.Warnf("node %d: failed to persist value %s: %v", id.NodeID, id.Property, err)
	}
}

// restoreKnownValue reads id's last persisted value back into the
// ValueDB, applying nothing if Storage never saw a write for it.
func (d *Driver) restoreKnownValue(id node.ValueID) {
	raw, ok := d.cfg.Storage.Get(valueStorageKey(id))
	if !ok {
		return
	}
	v, ok := decodeStoredValue(raw)
	if !ok {
		return
	}
	d.values.Set(id, v)
}
