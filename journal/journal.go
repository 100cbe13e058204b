// Package journal implements the change journal of a topology: an append-only
// queue of change records with one dirty marker per level, and the ordered list
// of consumers a propagation pass walks.
//
// Two consumer contracts exist. A Subscriber receives every record of its
// levels it has not seen yet. An Engine is a lazy recomputation hook: it gets
// no records and runs at most once per journal epoch, only if one of its
// levels is dirty. Consumers run synchronously in registration order.
package journal

import (
	"github.com/soypat/meshtopo"
)

// Subscriber consumes change records.
type Subscriber interface {
	Update(changes []meshtopo.Change)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(changes []meshtopo.Change)

func (f SubscriberFunc) Update(changes []meshtopo.Change) { f(changes) }

// Engine recomputes derived data from the current container state.
type Engine interface {
	Update()
}

// EngineFunc adapts a function to Engine.
type EngineFunc func()

func (f EngineFunc) Update() { f() }

// levelMask selects levels by bit.
type levelMask uint32

func maskOf(levels []meshtopo.Level) levelMask {
	if len(levels) == 0 {
		return ^levelMask(0)
	}
	var m levelMask
	for _, l := range levels {
		m |= 1 << l
	}
	return m
}

func (m levelMask) has(l meshtopo.Level) bool { return m&(1<<l) != 0 }

// handle is the journal side of a registered consumer.
type handle struct {
	sub    Subscriber
	engine Engine
	levels levelMask
	cursor int    // records already delivered to sub.
	epoch  uint64 // last epoch engine ran for.
	gone   bool
}

func (h *handle) isDirty(j *Journal) bool {
	if h.gone {
		return false
	}
	if h.engine != nil {
		if h.epoch == j.epoch {
			return false
		}
		for l := meshtopo.Level(0); l < meshtopo.NumLevels; l++ {
			if j.dirty[l] && h.levels.has(l) {
				return true
			}
		}
		return false
	}
	for _, c := range j.records[h.cursor:] {
		if h.levels.has(c.Level()) {
			return true
		}
	}
	return false
}

func (h *handle) update(j *Journal) {
	if h.engine != nil {
		h.epoch = j.epoch
		h.engine.Update()
		return
	}
	end := len(j.records)
	var pending []meshtopo.Change
	for _, c := range j.records[h.cursor:end] {
		if h.levels.has(c.Level()) {
			pending = append(pending, c)
		}
	}
	h.cursor = end
	if len(pending) > 0 {
		h.sub.Update(pending)
	}
}

// Registration is returned by Register and RegisterEngine.
type Registration struct {
	j *Journal
	h *handle
}

// Unregister removes the consumer. It is safe to call more than once.
func (r *Registration) Unregister() {
	if r == nil || r.h.gone {
		return
	}
	r.h.gone = true
	hs := r.j.handles
	for i, h := range hs {
		if h == r.h {
			r.j.handles = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
}

// Journal is the change journal of one topology. It is not safe for concurrent use.
type Journal struct {
	records     []meshtopo.Change
	dirty       [meshtopo.NumLevels]bool
	epoch       uint64
	handles     []*handle
	propagating bool
	deferred    []func()
	log         *meshtopo.Logger
}

// New returns an empty journal. A nil logger discards output.
func New(log *meshtopo.Logger) *Journal {
	if log == nil {
		log = meshtopo.NoopLogger()
	}
	return &Journal{log: log}
}

// Register appends s to the consumer list. With no levels given, s receives
// records of every level.
func (j *Journal) Register(s Subscriber, levels ...meshtopo.Level) *Registration {
	// A new subscriber only sees records enqueued after registration.
	h := &handle{sub: s, levels: maskOf(levels), cursor: len(j.records)}
	j.handles = append(j.handles, h)
	return &Registration{j: j, h: h}
}

// RegisterEngine appends e to the consumer list. With no levels given, e runs
// whenever any level is dirty.
func (j *Journal) RegisterEngine(e Engine, levels ...meshtopo.Level) *Registration {
	h := &handle{engine: e, levels: maskOf(levels), epoch: j.epoch}
	j.handles = append(j.handles, h)
	return &Registration{j: j, h: h}
}

// Enqueue appends c, marks its level dirty and starts a new epoch.
// It fails with ErrReentrant while the journal is propagating.
func (j *Journal) Enqueue(c meshtopo.Change) error {
	if j.propagating {
		return meshtopo.ErrReentrant
	}
	j.records = append(j.records, c)
	j.dirty[c.Level()] = true
	j.epoch++
	return nil
}

// IsDirty reports whether a record of level l is pending.
func (j *Journal) IsDirty(l meshtopo.Level) bool { return j.dirty[l] }

// Epoch returns the number of records enqueued over the journal's lifetime.
func (j *Journal) Epoch() uint64 { return j.epoch }

// Pending returns the records enqueued since the last clear. The slice must
// not be modified.
func (j *Journal) Pending() []meshtopo.Change { return j.records }

// Propagating reports whether a propagation pass is running.
func (j *Journal) Propagating() bool { return j.propagating }

// Defer runs fn once the current propagation pass completes, or immediately
// when no pass is running. Consumers use it to request edits of their own topology.
func (j *Journal) Defer(fn func()) {
	if !j.propagating {
		fn()
		return
	}
	j.deferred = append(j.deferred, fn)
}

// Propagate delivers pending records to every consumer, then clears the journal.
// It does nothing when called from a consumer.
func (j *Journal) Propagate() {
	if j.propagating {
		return
	}
	j.deliver()
	j.reset()
	j.runDeferred()
}

// PropagateWithoutReset delivers pending records but keeps them queryable
// until the next Clear or Propagate. Consumers are not asked twice.
func (j *Journal) PropagateWithoutReset() {
	if j.propagating {
		return
	}
	j.deliver()
	j.runDeferred()
}

// Clear delivers whatever a consumer has not seen yet, then drops all records
// and dirty markers.
func (j *Journal) Clear() {
	j.Propagate()
}

func (j *Journal) deliver() {
	j.propagating = true
	defer func() { j.propagating = false }()
	ran := 0
	// Consumers registered during the pass are not visited until the next one.
	handles := append([]*handle(nil), j.handles...)
	for _, h := range handles {
		if h.isDirty(j) {
			h.update(j)
			ran++
		}
	}
	j.log.LogPropagate(len(j.records), ran)
}

func (j *Journal) reset() {
	for i := range j.records {
		j.records[i] = nil
	}
	j.records = j.records[:0]
	j.dirty = [meshtopo.NumLevels]bool{}
	for _, h := range j.handles {
		h.cursor = 0
	}
}

func (j *Journal) runDeferred() {
	for len(j.deferred) > 0 {
		fns := j.deferred
		j.deferred = nil
		for _, fn := range fns {
			fn()
		}
	}
}
