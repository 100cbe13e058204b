// Package data stores values attached to the points or elements of a
// topology and keeps them aligned with it as the topology is edited.
//
// Values follow the index of their item: added items are initialized by
// interpolating the values of their ancestors, removed items are dropped by
// moving the last value into the freed slot, and renumbering permutes the
// values. Removals are applied when the record is received, before the
// topology compacts its own arrays.
package data

import (
	"fmt"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/journal"
	"github.com/soypat/meshtopo/topology"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

type Index = meshtopo.Index

// Interpolator combines ancestor values with the ancestry coefficients.
type Interpolator[T any] func(values []T, coefs []float64) T

// LerpFloat is the weighted sum of values.
func LerpFloat(values []float64, coefs []float64) float64 {
	return floats.Dot(values, coefs)
}

// LerpVec is the weighted sum of vectors.
func LerpVec(values []r3.Vec, coefs []float64) r3.Vec {
	var sum r3.Vec
	for i, v := range values {
		sum = r3.Add(sum, r3.Scale(coefs[i], v))
	}
	return sum
}

// array is the index aligned storage shared by point and element data.
type array[T any] struct {
	values []T
	interp Interpolator[T]
	level  meshtopo.Level
	reg    *journal.Registration
}

func newArray[T any](level meshtopo.Level, n int, initial []T, interp Interpolator[T]) (array[T], error) {
	a := array[T]{level: level, interp: interp}
	switch {
	case initial == nil:
		a.values = make([]T, n)
	case len(initial) != n:
		return a, fmt.Errorf("%w: %d initial values for %d %ss", meshtopo.ErrIndexOutOfRange, len(initial), n, level)
	default:
		a.values = append([]T(nil), initial...)
	}
	return a, nil
}

// Len returns the number of values.
func (a *array[T]) Len() int { return len(a.values) }

// At returns the value of item i.
func (a *array[T]) At(i Index) T { return a.values[i] }

// Set sets the value of item i.
func (a *array[T]) Set(i Index, v T) { a.values[i] = v }

// Values returns the value array. It may be modified in place.
func (a *array[T]) Values() []T { return a.values }

// Close stops following the topology.
func (a *array[T]) Close() { a.reg.Unregister() }

// derive interpolates the values of anc, weighting ancestors evenly when
// anc has no coefficients. Ancestries of another level, or naming items out
// of range, give the zero value.
func (a *array[T]) derive(anc meshtopo.Ancestry) T {
	var zero T
	if anc.Level != a.level || a.interp == nil || len(anc.Indices) == 0 {
		return zero
	}
	vals := make([]T, len(anc.Indices))
	for k, i := range anc.Indices {
		if int(i) >= len(a.values) {
			return zero
		}
		vals[k] = a.values[i]
	}
	coefs := anc.Coefs
	if len(coefs) == 0 {
		coefs = meshtopo.Even(anc.Level, anc.Indices...).Coefs
	}
	return a.interp(vals, coefs)
}

func (a *array[T]) add(n int, ancestors []meshtopo.Ancestry) {
	for k := 0; k < n; k++ {
		var v T
		if k < len(ancestors) {
			v = a.derive(ancestors[k])
		}
		a.values = append(a.values, v)
	}
}

// remove drops the values at idx, given in descending order.
func (a *array[T]) remove(idx []Index) {
	for _, i := range idx {
		if int(i) >= len(a.values) {
			continue
		}
		last := len(a.values) - 1
		a.values[i] = a.values[last]
		a.values = a.values[:last]
	}
}

// Points holds one value per point of a topology.
type Points[T any] struct {
	array[T]
}

// NewPoints attaches values to the points of t. initial is either nil, giving
// zero values, or holds one value per point. interp derives values of added
// and moved points; with a nil interp they get the zero value.
func NewPoints[T any](t *topology.Topology, initial []T, interp Interpolator[T]) (*Points[T], error) {
	a, err := newArray(meshtopo.LevelPoint, t.NumPoints(), initial, interp)
	if err != nil {
		return nil, err
	}
	p := &Points[T]{array: a}
	p.reg = t.Journal().Register(journal.SubscriberFunc(p.update), meshtopo.LevelPoint)
	return p, nil
}

func (p *Points[T]) update(changes []meshtopo.Change) {
	for _, c := range changes {
		switch c := c.(type) {
		case meshtopo.PointsAdded:
			p.add(c.Count, c.Ancestors)
		case meshtopo.PointsRemoved:
			p.remove(c.Indices)
		case meshtopo.PointsRenumbered:
			if len(c.Index) != len(p.values) {
				continue
			}
			renumbered := make([]T, len(p.values))
			for newIdx, old := range c.Index {
				renumbered[newIdx] = p.values[old]
			}
			p.values = renumbered
		case meshtopo.PointsMoved:
			// Ancestors are read before any moved value is rewritten.
			moved := make([]T, len(c.Indices))
			for k := range c.Indices {
				moved[k] = p.derive(c.Ancestors[k])
			}
			for k, i := range c.Indices {
				if int(i) < len(p.values) {
					p.values[i] = moved[k]
				}
			}
		}
	}
}

// Elements holds one value per element of a level.
type Elements[P meshtopo.Element[P], T any] struct {
	array[T]
	// OnMoveRemoving and OnMoveAdding, when set, are called with the elements
	// around moving points, before and after the move.
	OnMoveRemoving func(idx []Index)
	OnMoveAdding   func(idx []Index)
}

// NewElements attaches values to the elements of level s. initial is either
// nil, giving zero values, or holds one value per element. interp derives
// values of elements added with same-level ancestors.
func NewElements[P meshtopo.Element[P], T any](s *topology.Elements[P], initial []T, interp Interpolator[T]) (*Elements[P, T], error) {
	a, err := newArray(s.Level(), s.Len(), initial, interp)
	if err != nil {
		return nil, err
	}
	e := &Elements[P, T]{array: a}
	e.reg = s.Topology().Journal().Register(journal.SubscriberFunc(e.update), s.Level())
	return e, nil
}

func (e *Elements[P, T]) update(changes []meshtopo.Change) {
	for _, c := range changes {
		switch c := c.(type) {
		case meshtopo.ElementsAdded[P]:
			e.add(c.Count, c.Ancestors)
		case meshtopo.ElementsRemoved[P]:
			e.remove(c.Indices)
		case meshtopo.ElementsMovedRemoving[P]:
			if e.OnMoveRemoving != nil {
				e.OnMoveRemoving(c.Indices)
			}
		case meshtopo.ElementsMovedAdding[P]:
			if e.OnMoveAdding != nil {
				e.OnMoveAdding(c.Indices)
			}
		}
	}
}
