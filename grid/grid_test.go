package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/topology"
)

var unit = r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

func TestLattice(t *testing.T) {
	m, err := Lattice(unit, 0.5)
	require.NoError(t, err)
	nx, ny, nz := m.Dims()
	assert.Equal(t, [3]int{2, 2, 2}, [3]int{nx, ny, nz})
	assert.Len(t, m.Nodes, 27)
	assert.Len(t, m.Hexas, 8)
	assert.Equal(t, 0.5, m.Resolution())
	assert.Equal(t, unit, m.Bounds())

	assert.Equal(t, r3.Vec{X: 0.5, Y: 1, Z: 0}, m.Nodes[m.Node(1, 2, 0)])
	h, ok := m.Cell(1, 0, 1)
	require.True(t, ok)
	assert.Equal(t, Index(5), h)
	assert.Equal(t, r3.Box{Min: r3.Vec{X: 0.5, Z: 0.5}, Max: r3.Vec{X: 1, Y: 0.5, Z: 1}}, m.CellBox(h))
	_, ok = m.Cell(2, 0, 0)
	assert.False(t, ok)

	// Corners follow the 000, x00, xy0, 0y0, 00z, x0z, xyz, 0yz order.
	box := m.CellBox(h)
	for c, v := range m.Hexas[h] {
		p := m.Nodes[v]
		x, y, z := p.X == box.Max.X, p.Y == box.Max.Y, p.Z == box.Max.Z
		want := [8][3]bool{
			{false, false, false}, {true, false, false}, {true, true, false}, {false, true, false},
			{false, false, true}, {true, false, true}, {true, true, true}, {false, true, true},
		}[c]
		assert.Equal(t, want, [3]bool{x, y, z}, "corner %d", c)
	}
}

func TestLatticeOvershoot(t *testing.T) {
	box := r3.Box{Min: r3.Vec{X: -1, Y: 0, Z: 0}, Max: r3.Vec{X: 0, Y: 0.3, Z: 0.5}}
	m, err := Lattice(box, 0.4)
	require.NoError(t, err)
	nx, ny, nz := m.Dims()
	assert.Equal(t, [3]int{3, 1, 2}, [3]int{nx, ny, nz})
	assert.Len(t, m.Nodes, 4*2*3)
	assert.Equal(t, box.Min, m.Bounds().Min)
	assert.InDelta(t, 0.2, m.Bounds().Max.X, 1e-12)
}

func TestCellAt(t *testing.T) {
	m, err := Lattice(unit, 0.5)
	require.NoError(t, err)
	for _, test := range []struct {
		p    r3.Vec
		want Index
		ok   bool
	}{
		{r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0, true},
		{r3.Vec{X: 0.7, Y: 0.1, Z: 0.1}, 1, true},
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 7, true},
		{r3.Vec{X: 1, Y: 1, Z: 1}, 7, true},
		{r3.Vec{X: 0.1, Y: 0.9, Z: 0.1}, 2, true},
		{r3.Vec{X: 1.1}, meshtopo.InvalidIndex, false},
	} {
		got, ok := m.CellAt(test.p)
		assert.Equal(t, test.ok, ok, "%v", test.p)
		assert.Equal(t, test.want, got, "%v", test.p)
	}
}

func TestLatticeErrors(t *testing.T) {
	_, err := Lattice(unit, 0)
	assert.Error(t, err)
	_, err = Lattice(r3.Box{Min: r3.Vec{X: 1}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}, 0.5)
	assert.Error(t, err)
}

func TestTopology(t *testing.T) {
	m, err := Lattice(unit, 0.5)
	require.NoError(t, err)
	topo, err := m.Topology(topology.WithCheck(true))
	require.NoError(t, err)
	assert.Equal(t, 27, topo.NumPoints())
	assert.Equal(t, m.Hexas, topo.Hexas().All())
	// The center node is shared by all cells.
	assert.Len(t, topo.Hexas().ShellOf(m.Node(1, 1, 1)), 8)
	require.NoError(t, topo.Check())
}
