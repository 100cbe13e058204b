package meshtopo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ChangeKind tags a Change record.
type ChangeKind uint8

const (
	KindPointsAdded ChangeKind = iota + 1
	KindPointsRemoved
	KindPointsRenumbered
	KindPointsMoved
	KindElementsAdded
	KindElementsRemoved
	KindElementsMovedRemoving
	KindElementsMovedAdding
)

func (k ChangeKind) String() string {
	switch k {
	case KindPointsAdded:
		return "PointsAdded"
	case KindPointsRemoved:
		return "PointsRemoved"
	case KindPointsRenumbered:
		return "PointsRenumbered"
	case KindPointsMoved:
		return "PointsMoved"
	case KindElementsAdded:
		return "ElementsAdded"
	case KindElementsRemoved:
		return "ElementsRemoved"
	case KindElementsMovedRemoving:
		return "ElementsMovedRemoving"
	case KindElementsMovedAdding:
		return "ElementsMovedAdding"
	}
	return fmt.Sprintf("ChangeKind(%d)", uint8(k))
}

// Change is a record queued in a change journal. Records and the slices they
// hold must be treated as read-only and must not be retained after the
// propagation cycle that delivered them.
type Change interface {
	Kind() ChangeKind
	Level() Level
}

// Ancestry describes the items a new point or element was derived from.
// Coefs, when non-empty, has the same length as Indices, holds non-negative
// weights and sums to 1.
type Ancestry struct {
	Level   Level
	Indices []Index
	Coefs   []float64
}

// coefTolerance is the allowed deviation of a coefficient sum from 1.
const coefTolerance = 1e-9

// Even returns an ancestry giving equal weight to every index.
func Even(level Level, indices ...Index) Ancestry {
	a := Ancestry{Level: level, Indices: indices}
	if len(indices) > 0 {
		a.Coefs = make([]float64, len(indices))
		floats.AddConst(1/float64(len(indices)), a.Coefs)
	}
	return a
}

// Validate checks the weight law of a.
func (a Ancestry) Validate() error {
	if len(a.Coefs) == 0 {
		return nil
	}
	if len(a.Coefs) != len(a.Indices) {
		return fmt.Errorf("%w: %d coefficients for %d ancestors", ErrAncestry, len(a.Coefs), len(a.Indices))
	}
	if floats.Min(a.Coefs) < 0 {
		return fmt.Errorf("%w: negative coefficient", ErrAncestry)
	}
	if sum := floats.Sum(a.Coefs); math.Abs(sum-1) > coefTolerance {
		return fmt.Errorf("%w: coefficients sum to %g", ErrAncestry, sum)
	}
	return nil
}

// PointsAdded reports Count points appended at Indices.
// Ancestors is either empty or has one entry per new point.
type PointsAdded struct {
	Count     int
	Indices   []Index
	Ancestors []Ancestry
}

// PointsRemoved reports points about to be removed, in descending order.
type PointsRemoved struct {
	Indices []Index
}

// PointsRenumbered reports a point permutation about to be applied.
// Index[new] is the old index of a point and Inverse[old] its new index.
type PointsRenumbered struct {
	Index   []Index
	Inverse []Index
}

// PointsMoved reports points redefined as combinations of Ancestors.
type PointsMoved struct {
	Indices   []Index
	Ancestors []Ancestry
}

// ElementsAdded reports Count elements appended at Indices. The elements
// already exist in the store when this record is delivered.
type ElementsAdded[P Element[P]] struct {
	Count     int
	Elements  []P
	Indices   []Index
	Ancestors []Ancestry
}

// ElementsRemoved reports elements about to be removed, in descending order.
// The elements still exist in the store when this record is delivered.
type ElementsRemoved[P Element[P]] struct {
	Indices []Index
}

// ElementsMovedRemoving precedes a point move. Indices are the elements
// around the moving points, in descending order.
type ElementsMovedRemoving[P Element[P]] struct {
	Indices []Index
}

// ElementsMovedAdding follows a point move with the same Indices as the
// matching ElementsMovedRemoving record.
type ElementsMovedAdding[P Element[P]] struct {
	Indices  []Index
	Elements []P
}

func (PointsAdded) Kind() ChangeKind      { return KindPointsAdded }
func (PointsRemoved) Kind() ChangeKind    { return KindPointsRemoved }
func (PointsRenumbered) Kind() ChangeKind { return KindPointsRenumbered }
func (PointsMoved) Kind() ChangeKind      { return KindPointsMoved }

func (PointsAdded) Level() Level      { return LevelPoint }
func (PointsRemoved) Level() Level    { return LevelPoint }
func (PointsRenumbered) Level() Level { return LevelPoint }
func (PointsMoved) Level() Level      { return LevelPoint }

func (ElementsAdded[P]) Kind() ChangeKind         { return KindElementsAdded }
func (ElementsRemoved[P]) Kind() ChangeKind       { return KindElementsRemoved }
func (ElementsMovedRemoving[P]) Kind() ChangeKind { return KindElementsMovedRemoving }
func (ElementsMovedAdding[P]) Kind() ChangeKind   { return KindElementsMovedAdding }

func (ElementsAdded[P]) Level() Level         { return levelOf[P]() }
func (ElementsRemoved[P]) Level() Level       { return levelOf[P]() }
func (ElementsMovedRemoving[P]) Level() Level { return levelOf[P]() }
func (ElementsMovedAdding[P]) Level() Level   { return levelOf[P]() }

func levelOf[P Element[P]]() Level {
	var zero P
	return zero.Level()
}
