package node

import (
	"reflect"
	"sync"

	"github.com/gozwave/core/pkg/cc"
)

// ValueID identifies one piece of state exposed by a node's Command
// Classes: (nodeId, endpointIndex, ccId, property, propertyKey?).
// PropertyKey distinguishes sub-values within a property (e.g. one
// scene's level vs its dimming duration) and is absent for most CCs.
type ValueID struct {
	NodeID        uint8
	EndpointIndex uint8
	CCID          cc.CCID
	Property      string
	PropertyKey   string
	HasKey        bool
}

// Metadata describes a ValueID's schema, independent of any value
// currently stored for it: metadata is kept separate from values so
// that a value can be removed while its schema is preserved.
type Metadata struct {
	Readable bool
	Writable bool
	Type     ValueType
	Min      float64
	Max      float64
	HasRange bool
	Label    string
	Units    string
	Stateful bool
}

// ChangeKind identifies what kind of change a Change event reports.
type ChangeKind int

const (
	ChangeUpdated ChangeKind = iota
	ChangeRemoved
	ChangeNotification
	ChangeMetadataUpdated
)

// Change is emitted by the ValueDB for value updated/removed and
// metadata-updated events.
type Change struct {
	ValueID  ValueID
	Kind     ChangeKind
	Value    any
	Previous any
	Metadata *Metadata
}

// ChangeListener receives ValueDB change events. The driver's
// scheduler is the only writer; listeners must not block it.
type ChangeListener interface {
	OnValueChange(Change)
}

// ValueDB is the authoritative per-driver store of node values (spec
// §4.6). Its zero value is not usable; construct with NewValueDB.
type ValueDB struct {
	mu        sync.RWMutex
	values    map[ValueID]any
	metadata  map[ValueID]Metadata
	listeners []ChangeListener
}

// NewValueDB creates an empty ValueDB.
func NewValueDB() *ValueDB {
	return &ValueDB{
		values:   make(map[ValueID]any),
		metadata: make(map[ValueID]Metadata),
	}
}

// AddListener registers a ChangeListener for future change events.
func (db *ValueDB) AddListener(l ChangeListener) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.listeners = append(db.listeners, l)
}

// Get returns the stored value for id and whether it was present.
func (db *ValueDB) Get(id ValueID) (any, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.values[id]
	return v, ok
}

// Has reports whether id currently has a stored value.
func (db *ValueDB) Has(id ValueID) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.values[id]
	return ok
}

// Set stores value for id, emitting ChangeUpdated. Setting a value
// with an unchanged payload does not emit.
func (db *ValueDB) Set(id ValueID, value any) {
	db.mu.Lock()
	prev, existed := db.values[id]
	if existed && reflect.DeepEqual(prev, value) {
		db.mu.Unlock()
		return
	}
	db.values[id] = value
	listeners := db.snapshotListeners()
	db.mu.Unlock()

	change := Change{ValueID: id, Kind: ChangeUpdated, Value: value}
	if existed {
		change.Previous = prev
	}
	db.notify(listeners, change)
}

// Notify reports an event-style value (e.g. a CC Notification report)
// that always emits regardless of whether it matches the prior value.
func (db *ValueDB) Notify(id ValueID, value any) {
	db.mu.Lock()
	db.values[id] = value
	listeners := db.snapshotListeners()
	db.mu.Unlock()
	db.notify(listeners, Change{ValueID: id, Kind: ChangeNotification, Value: value})
}

// Remove deletes id's stored value (but not its metadata) and emits
// ChangeRemoved. No-op if id had no value.
func (db *ValueDB) Remove(id ValueID) {
	db.mu.Lock()
	prev, existed := db.values[id]
	if !existed {
		db.mu.Unlock()
		return
	}
	delete(db.values, id)
	listeners := db.snapshotListeners()
	db.mu.Unlock()
	db.notify(listeners, Change{ValueID: id, Kind: ChangeRemoved, Previous: prev})
}

// SetMetadata stores id's schema and emits ChangeMetadataUpdated.
func (db *ValueDB) SetMetadata(id ValueID, md Metadata) {
	db.mu.Lock()
	db.metadata[id] = md
	listeners := db.snapshotListeners()
	db.mu.Unlock()
	db.notify(listeners, Change{ValueID: id, Kind: ChangeMetadataUpdated, Metadata: &md})
}

// GetMetadata returns id's schema and whether it is known.
func (db *ValueDB) GetMetadata(id ValueID) (Metadata, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	md, ok := db.metadata[id]
	return md, ok
}

// All returns every ValueID currently holding a value, for snapshot
// consumers (e.g. a persistence flush).
func (db *ValueDB) All() []ValueID {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := make([]ValueID, 0, len(db.values))
	for id := range db.values {
		ids = append(ids, id)
	}
	return ids
}

func (db *ValueDB) snapshotListeners() []ChangeListener {
	return append([]ChangeListener(nil), db.listeners...)
}

func (db *ValueDB) notify(listeners []ChangeListener, c Change) {
	for _, l := range listeners {
		l.OnValueChange(c)
	}
}
