// Package topology implements the edit operations of a mesh: adding, removing,
// renumbering and moving points, and adding or removing elements of any level,
// plus splitting, fusing and swapping edges.
//
// Every edit follows a fixed protocol against the topology's change journal.
// Additions are processed first, then warned and propagated, so consumers can
// query what was added. Removals are warned and propagated first, then
// processed, so consumers can still read what is about to disappear. The
// phases are exposed separately for callers batching several warnings before a
// single propagation.
//
// Malformed items in a batch are skipped, logged at Warn and returned joined
// in the error while the rest of the batch is applied.
package topology

import (
	"errors"
	"fmt"
	"slices"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/journal"
	"github.com/soypat/meshtopo/store"
)

type Index = meshtopo.Index

// level is the point-facing side of an element level.
type level interface {
	Level() meshtopo.Level
	addPoints(n int)
	removePoint(i Index) error
	renumberPoints(index, inverse []Index) error
	inUse(pt Index) bool
	around(pts []Index) []Index
	enqueueMovedRemoving(idx []Index) error
	enqueueMovedAdding(idx []Index) error
	check() error
}

// Topology owns a point range, its element levels and their change journal.
// It is not safe for concurrent use.
type Topology struct {
	npoints   int
	journal   *journal.Journal
	log       *meshtopo.Logger
	check     bool
	edges     *EdgeSet
	triangles *Elements[meshtopo.Triangle]
	tetras    *Elements[meshtopo.Tetra]
	hexas     *Elements[meshtopo.Hexa]
	levels    []level
	create    []meshtopo.Level
}

// Option configures a Topology.
type Option func(*Topology)

// WithLogger sets the logger for skipped items and propagation. Defaults to NoopLogger.
func WithLogger(l *meshtopo.Logger) Option {
	return func(t *Topology) { t.log = l }
}

// WithCheck enables consistency-check mode: degenerate and duplicate elements
// are rejected, renumberings are validated and every composed edit ends with
// a full Check.
func WithCheck(check bool) Option {
	return func(t *Topology) { t.check = check }
}

// WithLevels creates the given element levels up front. Levels are otherwise
// created on first access.
func WithLevels(levels ...meshtopo.Level) Option {
	return func(t *Topology) { t.create = append(t.create, levels...) }
}

// New returns a topology over npoints points.
func New(npoints int, opts ...Option) *Topology {
	t := &Topology{npoints: npoints}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = meshtopo.NoopLogger()
	}
	t.journal = journal.New(t.log)
	for _, l := range t.create {
		switch l {
		case meshtopo.LevelEdge:
			t.Edges()
		case meshtopo.LevelTriangle:
			t.Triangles()
		case meshtopo.LevelTetra:
			t.Tetras()
		case meshtopo.LevelHexa:
			t.Hexas()
		}
	}
	return t
}

// Journal returns the change journal consumers register with.
func (t *Topology) Journal() *journal.Journal { return t.journal }

// Logger returns the topology's logger.
func (t *Topology) Logger() *meshtopo.Logger { return t.log }

// NumPoints returns the number of points.
func (t *Topology) NumPoints() int { return t.npoints }

// Edges returns the edge level, creating it if needed.
func (t *Topology) Edges() *EdgeSet {
	if t.edges == nil {
		t.edges = &EdgeSet{Elements: newElements[meshtopo.Edge](t)}
		t.levels = append(t.levels, t.edges.Elements)
	}
	return t.edges
}

// Triangles returns the triangle level, creating it if needed.
func (t *Topology) Triangles() *Elements[meshtopo.Triangle] {
	if t.triangles == nil {
		t.triangles = newElements[meshtopo.Triangle](t)
		t.levels = append(t.levels, t.triangles)
	}
	return t.triangles
}

// Tetras returns the tetrahedron level, creating it if needed.
func (t *Topology) Tetras() *Elements[meshtopo.Tetra] {
	if t.tetras == nil {
		t.tetras = newElements[meshtopo.Tetra](t)
		t.levels = append(t.levels, t.tetras)
	}
	return t.tetras
}

// Hexas returns the hexahedron level, creating it if needed.
func (t *Topology) Hexas() *Elements[meshtopo.Hexa] {
	if t.hexas == nil {
		t.hexas = newElements[meshtopo.Hexa](t)
		t.levels = append(t.levels, t.hexas)
	}
	return t.hexas
}

// Check verifies every level against the point range and its shells.
func (t *Topology) Check() error {
	var errs []error
	for _, l := range t.levels {
		errs = append(errs, l.check())
	}
	return errors.Join(errs...)
}

// InUse reports whether any element of any level references pt.
func (t *Topology) InUse(pt Index) bool {
	for _, l := range t.levels {
		if l.inUse(pt) {
			return true
		}
	}
	return false
}

// AddPoints appends n points and propagates a PointsAdded record. ancestors is
// either empty or holds one entry per point; points with an ancestry breaking
// the weight law are skipped. It returns the indices of the new points.
func (t *Topology) AddPoints(n int, ancestors []meshtopo.Ancestry) ([]Index, error) {
	if t.journal.Propagating() {
		return nil, meshtopo.ErrReentrant
	}
	if n < 0 {
		return nil, t.finish([]error{fmt.Errorf("add %d points: %w", n, meshtopo.ErrIndexOutOfRange)})
	}
	if len(ancestors) != 0 && len(ancestors) != n {
		return nil, fmt.Errorf("%w: %d ancestries for %d points", meshtopo.ErrAncestry, len(ancestors), n)
	}
	var errs []error
	if len(ancestors) != 0 {
		kept := ancestors[:0:0]
		for i, a := range ancestors {
			if err := a.Validate(); err != nil {
				errs = append(errs, meshtopo.ItemError("AddPoints", meshtopo.LevelPoint, Index(t.npoints+i), err))
				continue
			}
			kept = append(kept, a)
		}
		ancestors = kept
		n = len(kept)
	}
	idx := t.AddPointsProcess(n)
	if err := t.AddPointsWarning(idx, ancestors); err != nil {
		errs = append(errs, err)
	}
	t.journal.Propagate()
	return idx, t.finish(errs)
}

// AddPointsProcess grows the point range by n and returns the new indices.
// It does nothing for n <= 0.
func (t *Topology) AddPointsProcess(n int) []Index {
	if n <= 0 {
		return nil
	}
	idx := make([]Index, n)
	for i := range idx {
		idx[i] = Index(t.npoints + i)
	}
	t.npoints += n
	for _, l := range t.levels {
		l.addPoints(n)
	}
	return idx
}

// AddPointsWarning enqueues a PointsAdded record.
func (t *Topology) AddPointsWarning(idx []Index, ancestors []meshtopo.Ancestry) error {
	return t.journal.Enqueue(meshtopo.PointsAdded{Count: len(idx), Indices: idx, Ancestors: ancestors})
}

// RemovePoints removes points no element references. Out of range, repeated
// and still referenced points are skipped. Consumers are warned before removal.
func (t *Topology) RemovePoints(idx []Index) error {
	if t.journal.Propagating() {
		return meshtopo.ErrReentrant
	}
	var errs []error
	seen := make(map[Index]struct{}, len(idx))
	filtered := make([]Index, 0, len(idx))
	for _, i := range idx {
		switch _, dup := seen[i]; {
		case int(i) >= t.npoints:
			errs = append(errs, meshtopo.ItemError("RemovePoints", meshtopo.LevelPoint, i, meshtopo.ErrIndexOutOfRange))
		case dup:
			errs = append(errs, meshtopo.ItemError("RemovePoints", meshtopo.LevelPoint, i, meshtopo.ErrDuplicate))
		case t.InUse(i):
			errs = append(errs, meshtopo.ItemError("RemovePoints", meshtopo.LevelPoint, i, meshtopo.ErrInUse))
		default:
			seen[i] = struct{}{}
			filtered = append(filtered, i)
		}
	}
	if len(filtered) == 0 {
		return t.finish(errs)
	}
	if err := t.RemovePointsWarning(filtered); err != nil {
		return t.finish(append(errs, err))
	}
	t.journal.Propagate()
	errs = append(errs, t.RemovePointsProcess(filtered))
	return t.finish(errs)
}

// RemovePointsWarning sorts idx in descending order in place and enqueues a
// PointsRemoved record.
func (t *Topology) RemovePointsWarning(idx []Index) error {
	sortDescending(idx)
	return t.journal.Enqueue(meshtopo.PointsRemoved{Indices: idx})
}

// RemovePointsProcess removes points given in descending order, moving the
// last point into each freed slot. Points out of range or still referenced
// are skipped on every level.
func (t *Topology) RemovePointsProcess(idx []Index) error {
	var errs []error
	for _, i := range idx {
		if int(i) >= t.npoints {
			errs = append(errs, meshtopo.ItemError("RemovePointsProcess", meshtopo.LevelPoint, i, meshtopo.ErrIndexOutOfRange))
			continue
		}
		if t.InUse(i) {
			errs = append(errs, meshtopo.ItemError("RemovePointsProcess", meshtopo.LevelPoint, i, meshtopo.ErrInUse))
			continue
		}
		for _, l := range t.levels {
			if err := l.removePoint(i); err != nil {
				errs = append(errs, err)
			}
		}
		t.npoints--
	}
	return errors.Join(errs...)
}

// RenumberPoints applies a permutation where index[new] is the old index of a
// point and inverse[old] its new index. The permutation is only validated in
// check mode.
func (t *Topology) RenumberPoints(index, inverse []Index) error {
	if t.journal.Propagating() {
		return meshtopo.ErrReentrant
	}
	if len(index) != t.npoints || len(inverse) != t.npoints {
		return t.finish([]error{fmt.Errorf("%w: permutation of %d for %d points", meshtopo.ErrNotBijection, len(index), t.npoints)})
	}
	if t.check {
		if err := store.ValidatePermutation(index, inverse); err != nil {
			return t.finish([]error{err})
		}
	}
	if err := t.journal.Enqueue(meshtopo.PointsRenumbered{Index: index, Inverse: inverse}); err != nil {
		return err
	}
	t.journal.Propagate()
	var errs []error
	for _, l := range t.levels {
		errs = append(errs, l.renumberPoints(index, inverse))
	}
	return t.finish(errs)
}

// MovePoints redefines points as combinations of ancestors. Elements around
// the moving points are announced in an ElementsMovedRemoving record that is
// propagated before the move. The PointsMoved record and the matching
// ElementsMovedAdding records stay queued for the next propagation.
func (t *Topology) MovePoints(idx []Index, ancestors []meshtopo.Ancestry) error {
	if t.journal.Propagating() {
		return meshtopo.ErrReentrant
	}
	if len(ancestors) != len(idx) {
		return fmt.Errorf("%w: %d ancestries for %d points", meshtopo.ErrAncestry, len(ancestors), len(idx))
	}
	var errs []error
	var pts []Index
	var anc []meshtopo.Ancestry
	for k, i := range idx {
		if int(i) >= t.npoints {
			errs = append(errs, meshtopo.ItemError("MovePoints", meshtopo.LevelPoint, i, meshtopo.ErrIndexOutOfRange))
			continue
		}
		if err := ancestors[k].Validate(); err != nil {
			errs = append(errs, meshtopo.ItemError("MovePoints", meshtopo.LevelPoint, i, err))
			continue
		}
		pts = append(pts, i)
		anc = append(anc, ancestors[k])
	}
	if len(pts) == 0 {
		return t.finish(errs)
	}
	moving := make([][]Index, len(t.levels))
	for k, l := range t.levels {
		moving[k] = l.around(pts)
		if len(moving[k]) > 0 {
			errs = append(errs, l.enqueueMovedRemoving(moving[k]))
		}
	}
	t.journal.Propagate()
	errs = append(errs, t.journal.Enqueue(meshtopo.PointsMoved{Indices: pts, Ancestors: anc}))
	for k, l := range t.levels {
		if len(moving[k]) > 0 {
			errs = append(errs, l.enqueueMovedAdding(moving[k]))
		}
	}
	return t.finish(errs)
}

// finish runs the consistency check in check mode, logs and joins errs.
func (t *Topology) finish(errs []error) error {
	if t.check {
		errs = append(errs, t.Check())
	}
	err := errors.Join(errs...)
	t.log.LogFiltered(err)
	return err
}

func sortDescending(idx []Index) {
	slices.SortFunc(idx, func(a, b Index) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
}
