// Package store implements the incidence store of one mesh level: a dense
// element array plus an optional point to incident-element lookup (the shell).
//
// Removal swaps the removed element with the last one and shrinks the array,
// so the last element changes index. Shells are fixed up before the shrink.
// A built shell mirrors the element array exactly between mutations.
package store

import (
	"fmt"

	"github.com/soypat/meshtopo"
)

type Index = meshtopo.Index

// Store holds the elements of one level. It is not safe for concurrent use.
type Store[P meshtopo.Element[P]] struct {
	elems   []P
	shell   [][]Index // nil until built.
	npoints int
	check   bool
}

type config struct {
	check    bool
	capacity int
}

// Option configures a Store.
type Option func(*config)

// WithCheck enables consistency-check mode: degenerate elements and, once a
// shell exists, duplicate elements are rejected.
func WithCheck(check bool) Option {
	return func(c *config) { c.check = check }
}

// WithCapacity preallocates room for n elements.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// New returns an empty store over npoints points.
func New[P meshtopo.Element[P]](npoints int, opts ...Option) *Store[P] {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return &Store[P]{
		elems:   make([]P, 0, c.capacity),
		npoints: npoints,
		check:   c.check,
	}
}

// Level returns the level of the stored elements.
func (s *Store[P]) Level() meshtopo.Level {
	var zero P
	return zero.Level()
}

// Len returns the number of elements.
func (s *Store[P]) Len() int { return len(s.elems) }

// NumPoints returns the number of points the store's elements may reference.
func (s *Store[P]) NumPoints() int { return s.npoints }

// Checking reports whether consistency-check mode is on.
func (s *Store[P]) Checking() bool { return s.check }

// At returns element i. It panics if i is out of range.
func (s *Store[P]) At(i Index) P { return s.elems[i] }

// Get returns element i or ErrIndexOutOfRange.
func (s *Store[P]) Get(i Index) (P, error) {
	if int(i) >= len(s.elems) {
		var zero P
		return zero, meshtopo.ItemError("Get", s.Level(), i, meshtopo.ErrIndexOutOfRange)
	}
	return s.elems[i], nil
}

// Elements returns the element array. The slice must not be modified and is
// invalidated by the next mutation.
func (s *Store[P]) Elements() []P { return s.elems }

// HasShell reports whether the shell has been built.
func (s *Store[P]) HasShell() bool { return s.shell != nil }

// BuildShell rebuilds the shell from the element array.
func (s *Store[P]) BuildShell() {
	s.shell = make([][]Index, s.npoints)
	for i, p := range s.elems {
		s.shellAdd(p, Index(i))
	}
}

// ShellOf returns the indices of elements incident to point pt, building the
// shell on first use. The slice must not be modified.
func (s *Store[P]) ShellOf(pt Index) []Index {
	if !s.HasShell() {
		s.BuildShell()
	}
	if int(pt) >= len(s.shell) {
		return nil
	}
	return s.shell[pt]
}

// IndexOf returns the index of the element with the same vertices as p in any
// order, or InvalidIndex. It builds the shell on first use.
func (s *Store[P]) IndexOf(p P) Index {
	for _, e := range s.ShellOf(p.At(0)) {
		if meshtopo.SameVertices(s.elems[e], p) {
			return e
		}
	}
	return meshtopo.InvalidIndex
}

// Add appends p and returns its index. Elements referencing points out of
// range are always rejected; degenerate and duplicate elements only in check mode.
func (s *Store[P]) Add(p P) (Index, error) {
	idx := Index(len(s.elems))
	for i := 0; i < p.Len(); i++ {
		if int(p.At(i)) >= s.npoints {
			return meshtopo.InvalidIndex, meshtopo.ItemError("Add", s.Level(), idx,
				fmt.Errorf("vertex %d: %w", p.At(i), meshtopo.ErrIndexOutOfRange))
		}
	}
	if s.check {
		if meshtopo.Degenerate(p) {
			return meshtopo.InvalidIndex, meshtopo.ItemError("Add", s.Level(), idx, meshtopo.ErrDegenerate)
		}
		if s.HasShell() {
			if dup := s.IndexOf(p); dup != meshtopo.InvalidIndex {
				return meshtopo.InvalidIndex, meshtopo.ItemError("Add", s.Level(), dup, meshtopo.ErrDuplicate)
			}
		}
	}
	if s.HasShell() {
		s.shellAdd(p, idx)
	}
	s.elems = append(s.elems, p)
	return idx, nil
}

// RemoveAt removes element i by moving the last element into its slot and
// returns the removed element.
func (s *Store[P]) RemoveAt(i Index) (P, error) {
	if int(i) >= len(s.elems) {
		var zero P
		return zero, meshtopo.ItemError("RemoveAt", s.Level(), i, meshtopo.ErrIndexOutOfRange)
	}
	last := Index(len(s.elems) - 1)
	removed := s.elems[i]
	if s.HasShell() {
		s.shellRemove(removed, i)
		if i < last {
			s.shellReplace(s.elems[last], last, i)
		}
	}
	s.elems[i] = s.elems[last]
	s.elems = s.elems[:last]
	return removed, nil
}

// AddPoints grows the point range by n.
func (s *Store[P]) AddPoints(n int) {
	s.npoints += n
	if s.HasShell() {
		s.shell = append(s.shell, make([][]Index, n)...)
	}
}

// RemovePoint removes point i by moving the last point into its slot: every
// element referencing the last point is rewritten to reference i. A point
// still referenced by an element is rejected with ErrInUse.
func (s *Store[P]) RemovePoint(i Index) error {
	if int(i) >= s.npoints {
		return meshtopo.ItemError("RemovePoint", meshtopo.LevelPoint, i, meshtopo.ErrIndexOutOfRange)
	}
	if !s.HasShell() {
		s.BuildShell()
	}
	if len(s.shell[i]) != 0 {
		return meshtopo.ItemError("RemovePoint", meshtopo.LevelPoint, i, meshtopo.ErrInUse)
	}
	last := Index(s.npoints - 1)
	if i < last {
		for _, e := range s.shell[last] {
			s.elems[e] = s.elems[e].Remap(func(v Index) Index {
				if v == last {
					return i
				}
				return v
			})
		}
		s.shell[i] = s.shell[last]
	}
	s.shell[last] = nil
	s.shell = s.shell[:last]
	s.npoints--
	return nil
}

// RenumberPoints applies a point permutation where index[new] is the old index
// and inverse[old] the new one. Shells are permuted, not rebuilt.
func (s *Store[P]) RenumberPoints(index, inverse []Index) error {
	if len(index) != s.npoints || len(inverse) != s.npoints {
		return fmt.Errorf("%w: permutation of %d for %d points", meshtopo.ErrNotBijection, len(index), s.npoints)
	}
	if s.check {
		if err := ValidatePermutation(index, inverse); err != nil {
			return err
		}
	}
	if s.HasShell() {
		old := s.shell
		s.shell = make([][]Index, len(old))
		for i := range s.shell {
			s.shell[i] = old[index[i]]
		}
	}
	for i, p := range s.elems {
		s.elems[i] = p.Remap(func(v Index) Index { return inverse[v] })
	}
	return nil
}

// ValidatePermutation checks that index is a bijection over [0, len(index))
// and inverse its inverse.
func ValidatePermutation(index, inverse []Index) error {
	n := len(index)
	if len(inverse) != n {
		return fmt.Errorf("%w: length %d and inverse length %d", meshtopo.ErrNotBijection, n, len(inverse))
	}
	seen := make([]bool, n)
	for newIdx, old := range index {
		if int(old) >= n || seen[old] {
			return fmt.Errorf("%w: old index %d at %d", meshtopo.ErrNotBijection, old, newIdx)
		}
		seen[old] = true
		if inverse[old] != Index(newIdx) {
			return fmt.Errorf("%w: inverse[%d]=%d, want %d", meshtopo.ErrNotBijection, old, inverse[old], newIdx)
		}
	}
	return nil
}

// Check verifies that every element references points in range and, when
// built, that the shell mirrors the element array.
func (s *Store[P]) Check() error {
	for e, p := range s.elems {
		for k := 0; k < p.Len(); k++ {
			if int(p.At(k)) >= s.npoints {
				return meshtopo.Invariantf("%s %d references point %d of %d", s.Level(), e, p.At(k), s.npoints)
			}
		}
	}
	if !s.HasShell() {
		return nil
	}
	if len(s.shell) != s.npoints {
		return meshtopo.Invariantf("%s shell covers %d of %d points", s.Level(), len(s.shell), s.npoints)
	}
	entries := 0
	for pt, sh := range s.shell {
		for _, e := range sh {
			if int(e) >= len(s.elems) || !meshtopo.Contains(s.elems[e], Index(pt)) {
				return meshtopo.Invariantf("%s shell of point %d holds stale element %d", s.Level(), pt, e)
			}
		}
		entries += len(sh)
	}
	want := 0
	for _, p := range s.elems {
		want += distinct(p)
	}
	if entries != want {
		return meshtopo.Invariantf("%s shell holds %d entries, want %d", s.Level(), entries, want)
	}
	return nil
}

// shellAdd appends idx to the shell of every distinct vertex of p.
func (s *Store[P]) shellAdd(p P, idx Index) {
	for k := 0; k < p.Len(); k++ {
		if repeated(p, k) {
			continue
		}
		v := p.At(k)
		s.shell[v] = append(s.shell[v], idx)
	}
}

func (s *Store[P]) shellRemove(p P, idx Index) {
	for k := 0; k < p.Len(); k++ {
		if repeated(p, k) {
			continue
		}
		v := p.At(k)
		sh := s.shell[v]
		for j, e := range sh {
			if e == idx {
				sh[j] = sh[len(sh)-1]
				s.shell[v] = sh[:len(sh)-1]
				break
			}
		}
	}
}

func (s *Store[P]) shellReplace(p P, from, to Index) {
	for k := 0; k < p.Len(); k++ {
		if repeated(p, k) {
			continue
		}
		sh := s.shell[p.At(k)]
		for j, e := range sh {
			if e == from {
				sh[j] = to
				break
			}
		}
	}
}

// repeated reports whether vertex k of p already appeared at a lower position.
func repeated[P meshtopo.Element[P]](p P, k int) bool {
	v := p.At(k)
	for j := 0; j < k; j++ {
		if p.At(j) == v {
			return true
		}
	}
	return false
}

func distinct[P meshtopo.Element[P]](p P) (n int) {
	for k := 0; k < p.Len(); k++ {
		if !repeated(p, k) {
			n++
		}
	}
	return n
}
