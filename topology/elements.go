package topology

import (
	"errors"
	"fmt"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/store"
)

// Elements is one element level of a Topology. Queries read the incidence
// store; edits go through the journal protocol.
type Elements[P meshtopo.Element[P]] struct {
	t  *Topology
	st *store.Store[P]
}

func newElements[P meshtopo.Element[P]](t *Topology) *Elements[P] {
	return &Elements[P]{
		t:  t,
		st: store.New[P](t.npoints, store.WithCheck(t.check)),
	}
}

// Level returns the level of the elements.
func (s *Elements[P]) Level() meshtopo.Level { return s.st.Level() }

// Topology returns the owning topology.
func (s *Elements[P]) Topology() *Topology { return s.t }

// Len returns the number of elements.
func (s *Elements[P]) Len() int { return s.st.Len() }

// At returns element i. It panics if i is out of range.
func (s *Elements[P]) At(i Index) P { return s.st.At(i) }

// Get returns element i or an error wrapping ErrIndexOutOfRange.
func (s *Elements[P]) Get(i Index) (P, error) { return s.st.Get(i) }

// All returns the element array. It must not be modified.
func (s *Elements[P]) All() []P { return s.st.Elements() }

// HasShell reports whether the point to element lookup has been built.
func (s *Elements[P]) HasShell() bool { return s.st.HasShell() }

// ShellOf returns the elements incident to point pt. It must not be modified.
func (s *Elements[P]) ShellOf(pt Index) []Index { return s.st.ShellOf(pt) }

// IndexOf returns the index of the element with the same vertices as p, or InvalidIndex.
func (s *Elements[P]) IndexOf(p P) Index { return s.st.IndexOf(p) }

// Add appends elems, then propagates an ElementsAdded record. ancestors is
// either empty or holds one entry per element. Rejected elements are skipped.
// It returns the indices of the added elements.
func (s *Elements[P]) Add(elems []P, ancestors []meshtopo.Ancestry) ([]Index, error) {
	if s.t.journal.Propagating() {
		return nil, meshtopo.ErrReentrant
	}
	if len(ancestors) != 0 && len(ancestors) != len(elems) {
		return nil, s.t.finish([]error{fmt.Errorf("%w: %d ancestries for %d %ss", meshtopo.ErrAncestry, len(ancestors), len(elems), s.Level())})
	}
	var errs []error
	if len(ancestors) != 0 {
		keptE := elems[:0:0]
		keptA := ancestors[:0:0]
		for i, a := range ancestors {
			if err := a.Validate(); err != nil {
				errs = append(errs, meshtopo.ItemError("Add", s.Level(), Index(i), err))
				continue
			}
			keptE = append(keptE, elems[i])
			keptA = append(keptA, a)
		}
		elems, ancestors = keptE, keptA
	}
	idx, err := s.AddProcess(elems)
	errs = append(errs, err)
	elems, idx, ancestors = compact(elems, idx, ancestors)
	if len(idx) == 0 {
		return nil, s.t.finish(errs)
	}
	errs = append(errs, s.AddWarning(elems, idx, ancestors))
	s.t.journal.Propagate()
	return idx, s.t.finish(errs)
}

// AddProcess appends elems to the store. The result holds one index per
// element, InvalidIndex for rejected ones.
func (s *Elements[P]) AddProcess(elems []P) ([]Index, error) {
	var errs []error
	idx := make([]Index, len(elems))
	for i, p := range elems {
		var err error
		idx[i], err = s.st.Add(p)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return idx, errors.Join(errs...)
}

// AddWarning enqueues an ElementsAdded record.
func (s *Elements[P]) AddWarning(elems []P, idx []Index, ancestors []meshtopo.Ancestry) error {
	return s.t.journal.Enqueue(meshtopo.ElementsAdded[P]{
		Count:     len(idx),
		Elements:  elems,
		Indices:   idx,
		Ancestors: ancestors,
	})
}

// Remove removes the elements at idx. Out of range and repeated indices are
// skipped. Consumers are warned while the elements still exist. With
// removeIsolatedPoints, points no longer referenced by any element are removed
// in a second warn, propagate and process cycle and returned.
func (s *Elements[P]) Remove(idx []Index, removeIsolatedPoints bool) ([]Index, error) {
	if s.t.journal.Propagating() {
		return nil, meshtopo.ErrReentrant
	}
	if s.Len() == 0 {
		return nil, s.t.finish([]error{fmt.Errorf("remove %ss: %w", s.Level(), meshtopo.ErrEmpty)})
	}
	filtered, errs := s.filter("Remove", idx)
	if len(filtered) == 0 {
		return nil, s.t.finish(errs)
	}
	if err := s.RemoveWarning(filtered); err != nil {
		return nil, s.t.finish(append(errs, err))
	}
	s.t.journal.Propagate()
	isolated, err := s.RemoveProcess(filtered, removeIsolatedPoints)
	return isolated, s.t.finish(append(errs, err))
}

// RemoveWarning sorts idx in descending order in place and enqueues an
// ElementsRemoved record. The descending order keeps every pending index valid
// while RemoveProcess compacts the store.
func (s *Elements[P]) RemoveWarning(idx []Index) error {
	sortDescending(idx)
	return s.t.journal.Enqueue(meshtopo.ElementsRemoved[P]{Indices: idx})
}

// RemoveProcess removes elements given in descending order. With
// removeIsolatedPoints, points left unreferenced are removed afterwards
// through RemovePoints and returned.
func (s *Elements[P]) RemoveProcess(idx []Index, removeIsolatedPoints bool) ([]Index, error) {
	if s.Len() == 0 {
		return nil, fmt.Errorf("remove %ss: %w", s.Level(), meshtopo.ErrEmpty)
	}
	if removeIsolatedPoints && !s.st.HasShell() {
		s.st.BuildShell()
	}
	var errs []error
	var isolated []Index
	for _, i := range idx {
		removed, err := s.st.RemoveAt(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !removeIsolatedPoints {
			continue
		}
		for k := 0; k < removed.Len(); k++ {
			v := removed.At(k)
			if !s.t.InUse(v) && !containsIndex(isolated, v) {
				isolated = append(isolated, v)
			}
		}
	}
	if len(isolated) > 0 {
		if err := s.t.RemovePointsWarning(isolated); err != nil {
			return nil, errors.Join(append(errs, err)...)
		}
		s.t.journal.Propagate()
		errs = append(errs, s.t.RemovePointsProcess(isolated))
	}
	return isolated, errors.Join(errs...)
}

// filter drops out of range and repeated indices, returning a fresh slice.
func (s *Elements[P]) filter(op string, idx []Index) ([]Index, []error) {
	var errs []error
	n := s.Len()
	seen := make(map[Index]struct{}, len(idx))
	filtered := make([]Index, 0, len(idx))
	for _, i := range idx {
		if int(i) >= n {
			errs = append(errs, meshtopo.ItemError(op, s.Level(), i, meshtopo.ErrIndexOutOfRange))
			continue
		}
		if _, dup := seen[i]; dup {
			errs = append(errs, meshtopo.ItemError(op, s.Level(), i, meshtopo.ErrDuplicate))
			continue
		}
		seen[i] = struct{}{}
		filtered = append(filtered, i)
	}
	return filtered, errs
}

func (s *Elements[P]) addPoints(n int) { s.st.AddPoints(n) }

func (s *Elements[P]) removePoint(i Index) error { return s.st.RemovePoint(i) }

func (s *Elements[P]) renumberPoints(index, inverse []Index) error {
	return s.st.RenumberPoints(index, inverse)
}

func (s *Elements[P]) inUse(pt Index) bool {
	return s.st.Len() > 0 && len(s.st.ShellOf(pt)) > 0
}

// around returns the elements incident to any of pts in descending order.
func (s *Elements[P]) around(pts []Index) []Index {
	if s.st.Len() == 0 {
		return nil
	}
	var idx []Index
	for _, pt := range pts {
		for _, e := range s.st.ShellOf(pt) {
			if !containsIndex(idx, e) {
				idx = append(idx, e)
			}
		}
	}
	sortDescending(idx)
	return idx
}

func (s *Elements[P]) enqueueMovedRemoving(idx []Index) error {
	return s.t.journal.Enqueue(meshtopo.ElementsMovedRemoving[P]{Indices: idx})
}

func (s *Elements[P]) enqueueMovedAdding(idx []Index) error {
	elems := make([]P, len(idx))
	for k, i := range idx {
		elems[k] = s.st.At(i)
	}
	return s.t.journal.Enqueue(meshtopo.ElementsMovedAdding[P]{Indices: idx, Elements: elems})
}

func (s *Elements[P]) check() error {
	if s.st.NumPoints() != s.t.npoints {
		return meshtopo.Invariantf("%s level tracks %d points, topology has %d", s.Level(), s.st.NumPoints(), s.t.npoints)
	}
	return s.st.Check()
}

// compact drops entries whose index is InvalidIndex.
func compact[P any](elems []P, idx []Index, ancestors []meshtopo.Ancestry) ([]P, []Index, []meshtopo.Ancestry) {
	outE := make([]P, 0, len(idx))
	outI := make([]Index, 0, len(idx))
	var outA []meshtopo.Ancestry
	for k, i := range idx {
		if i == meshtopo.InvalidIndex {
			continue
		}
		outE = append(outE, elems[k])
		outI = append(outI, i)
		if len(ancestors) != 0 {
			outA = append(outA, ancestors[k])
		}
	}
	return outE, outI, outA
}

func containsIndex(idx []Index, v Index) bool {
	for _, i := range idx {
		if i == v {
			return true
		}
	}
	return false
}
