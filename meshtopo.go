// Package meshtopo defines the index, primitive and change-record types shared by
// the incidence store, change journal, edit operations and cross-level mappings.
//
// A primitive is identified only by its index in a dense array. Indices are
// rewritten synchronously whenever a primitive or point is removed or renumbered,
// so consumers must re-resolve any index they hold after a removal event.
package meshtopo

import (
	"math"
	"strconv"
)

// Index identifies a point or element within its level. Indices of a level
// always span [0, count) without gaps.
type Index uint32

// InvalidIndex is returned by lookups that find nothing.
const InvalidIndex Index = math.MaxUint32

// Level identifies a level of a mesh hierarchy.
type Level uint8

const (
	LevelPoint Level = iota
	LevelEdge
	LevelTriangle
	LevelTetra
	LevelHexa
	// NumLevels is the number of defined levels.
	NumLevels
)

func (l Level) String() string {
	switch l {
	case LevelPoint:
		return "point"
	case LevelEdge:
		return "edge"
	case LevelTriangle:
		return "triangle"
	case LevelTetra:
		return "tetrahedron"
	case LevelHexa:
		return "hexahedron"
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// Element is the constraint satisfied by all element kinds. Vertex order is
// owned by the caller: nothing in this module reorders the vertices of an element.
type Element[P any] interface {
	comparable
	Edge | Triangle | Tetra | Hexa
	// Level returns the level elements of this kind live on.
	Level() Level
	// Len returns the number of vertices.
	Len() int
	// At returns the i'th vertex.
	At(i int) Index
	// Remap returns a copy with every vertex replaced by f(vertex).
	Remap(f func(Index) Index) P
}

// Edge is an ordered pair of point indices.
type Edge [2]Index

// Triangle references three point indices.
type Triangle [3]Index

// Tetra references four point indices.
type Tetra [4]Index

// Hexa references eight point indices in the order
// 000, x00, xy0, 0y0, 00z, x0z, xyz, 0yz.
type Hexa [8]Index

func (Edge) Level() Level     { return LevelEdge }
func (Triangle) Level() Level { return LevelTriangle }
func (Tetra) Level() Level    { return LevelTetra }
func (Hexa) Level() Level     { return LevelHexa }

func (e Edge) Len() int     { return len(e) }
func (t Triangle) Len() int { return len(t) }
func (t Tetra) Len() int    { return len(t) }
func (h Hexa) Len() int     { return len(h) }

func (e Edge) At(i int) Index     { return e[i] }
func (t Triangle) At(i int) Index { return t[i] }
func (t Tetra) At(i int) Index    { return t[i] }
func (h Hexa) At(i int) Index     { return h[i] }

func (e Edge) Remap(f func(Index) Index) Edge {
	return Edge{f(e[0]), f(e[1])}
}

func (t Triangle) Remap(f func(Index) Index) Triangle {
	for i := range t {
		t[i] = f(t[i])
	}
	return t
}

func (t Tetra) Remap(f func(Index) Index) Tetra {
	for i := range t {
		t[i] = f(t[i])
	}
	return t
}

func (h Hexa) Remap(f func(Index) Index) Hexa {
	for i := range h {
		h[i] = f(h[i])
	}
	return h
}

// Degenerate reports whether p references the same point twice.
func Degenerate[P Element[P]](p P) bool {
	n := p.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if p.At(i) == p.At(j) {
				return true
			}
		}
	}
	return false
}

// SameVertices reports whether a and b reference the same set of points
// regardless of vertex order.
func SameVertices[P Element[P]](a, b P) bool {
	n := a.Len()
outer:
	for i := 0; i < n; i++ {
		v := a.At(i)
		for j := 0; j < n; j++ {
			if b.At(j) == v {
				continue outer
			}
		}
		return false
	}
	return true
}

// Contains reports whether p references point v.
func Contains[P Element[P]](p P, v Index) bool {
	for i := 0; i < p.Len(); i++ {
		if p.At(i) == v {
			return true
		}
	}
	return false
}

// Local edge tables. Hexahedron edges follow the corner ordering of Hexa.
var (
	triangleEdges = [...][2]int{{0, 1}, {1, 2}, {2, 0}}
	tetraEdges    = [...][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}
	hexaEdges     = [...][2]int{
		{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom
		{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // vertical
	}
)

// EdgesOf returns the edges of p following its kind's local edge table.
func EdgesOf[P Element[P]](p P) []Edge {
	var table [][2]int
	switch p.Level() {
	case LevelEdge:
		return []Edge{{p.At(0), p.At(1)}}
	case LevelTriangle:
		table = triangleEdges[:]
	case LevelTetra:
		table = tetraEdges[:]
	case LevelHexa:
		table = hexaEdges[:]
	}
	edges := make([]Edge, len(table))
	for i, le := range table {
		edges[i] = Edge{p.At(le[0]), p.At(le[1])}
	}
	return edges
}

// UniqueEdges returns every distinct edge of elems in order of first appearance.
// Two edges are the same when they join the same pair of points.
func UniqueEdges[P Element[P]](elems []P) []Edge {
	seen := make(map[Edge]struct{}, len(elems))
	var edges []Edge
	for _, p := range elems {
		for _, e := range EdgesOf(p) {
			key := e
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}
