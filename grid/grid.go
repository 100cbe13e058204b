// Package grid builds structured hexahedral meshes over a box.
package grid

import (
	"errors"
	"fmt"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/internal/d3"
	"github.com/soypat/meshtopo/topology"
	"gonum.org/v1/gonum/spatial/r3"
)

type Index = meshtopo.Index

// Mesh is a lattice of hexahedral cells sharing their nodes. Nodes and
// cells are both numbered x fastest, then y, then z.
type Mesh struct {
	Nodes []r3.Vec
	Hexas []meshtopo.Hexa
	// div is the number of cells along each axis.
	div        [3]int
	resolution float64
}

// Lattice covers box with cubic cells of side resolution, starting at
// box.Min. The lattice may overshoot box.Max by less than one cell.
func Lattice(box r3.Box, resolution float64) (*Mesh, error) {
	if resolution <= 0 {
		return nil, errors.New("grid: resolution must be positive")
	}
	sz := d3.Box(box).Size()
	if d3.LTEZero(sz) {
		return nil, fmt.Errorf("grid: box has empty size %v", sz)
	}
	cells := d3.CeilElem(d3.DivElem(sz, d3.Elem(resolution)))
	div := [3]int{int(cells.X), int(cells.Y), int(cells.Z)}
	if div[0] < 1 || div[1] < 1 || div[2] < 1 {
		return nil, fmt.Errorf("grid: resolution too low for box %v", sz)
	}
	m := &Mesh{
		div:        div,
		resolution: resolution,
		Nodes:      make([]r3.Vec, 0, (div[0]+1)*(div[1]+1)*(div[2]+1)),
		Hexas:      make([]meshtopo.Hexa, 0, div[0]*div[1]*div[2]),
	}
	for k := 0; k <= div[2]; k++ {
		z := float64(k)*resolution + box.Min.Z
		for j := 0; j <= div[1]; j++ {
			y := float64(j)*resolution + box.Min.Y
			for i := 0; i <= div[0]; i++ {
				x := float64(i)*resolution + box.Min.X
				m.Nodes = append(m.Nodes, r3.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	for k := 0; k < div[2]; k++ {
		for j := 0; j < div[1]; j++ {
			for i := 0; i < div[0]; i++ {
				m.Hexas = append(m.Hexas, meshtopo.Hexa{
					m.Node(i, j, k),
					m.Node(i+1, j, k),
					m.Node(i+1, j+1, k),
					m.Node(i, j+1, k),
					m.Node(i, j, k+1),
					m.Node(i+1, j, k+1),
					m.Node(i+1, j+1, k+1),
					m.Node(i, j+1, k+1),
				})
			}
		}
	}
	return m, nil
}

// Dims returns the number of cells along x, y and z.
func (m *Mesh) Dims() (nx, ny, nz int) { return m.div[0], m.div[1], m.div[2] }

// Resolution returns the cell side.
func (m *Mesh) Resolution() float64 { return m.resolution }

// Node returns the index of the node at lattice coordinates i, j, k.
// Coordinates are not checked.
func (m *Mesh) Node(i, j, k int) Index {
	nx, ny := m.div[0]+1, m.div[1]+1
	return Index(i + nx*(j+ny*k))
}

// Cell returns the index of the cell at i, j, k.
func (m *Mesh) Cell(i, j, k int) (Index, bool) {
	if i < 0 || j < 0 || k < 0 || i >= m.div[0] || j >= m.div[1] || k >= m.div[2] {
		return meshtopo.InvalidIndex, false
	}
	return Index(i + m.div[0]*(j+m.div[1]*k)), true
}

// CellBox returns the bounds of hexahedron h.
func (m *Mesh) CellBox(h Index) r3.Box {
	c := m.Hexas[h]
	return r3.Box{Min: m.Nodes[c[0]], Max: m.Nodes[c[6]]}
}

// CellAt returns the cell containing p. Points on a shared face belong to the
// cell with the higher coordinates.
func (m *Mesh) CellAt(p r3.Vec) (Index, bool) {
	b := d3.Box(m.Bounds())
	if !b.Contains(p) {
		return meshtopo.InvalidIndex, false
	}
	rel := d3.DivElem(r3.Sub(p, b.Min), d3.Elem(m.resolution))
	i := min(int(rel.X), m.div[0]-1)
	j := min(int(rel.Y), m.div[1]-1)
	k := min(int(rel.Z), m.div[2]-1)
	return m.Cell(i, j, k)
}

// Bounds returns the box spanned by the nodes.
func (m *Mesh) Bounds() r3.Box {
	return r3.Box(d3.BoundsOf(m.Nodes))
}

// Topology returns a topology holding the lattice nodes and hexahedra.
func (m *Mesh) Topology(opts ...topology.Option) (*topology.Topology, error) {
	t := topology.New(len(m.Nodes), append(opts, topology.WithLevels(meshtopo.LevelHexa))...)
	_, err := t.Hexas().Add(m.Hexas, nil)
	return t, err
}
