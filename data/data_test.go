package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/topology"
)

func path(t *testing.T) *topology.Topology {
	t.Helper()
	topo := topology.New(3, topology.WithCheck(true))
	_, err := topo.Edges().Add([]meshtopo.Edge{{0, 1}, {1, 2}}, nil)
	require.NoError(t, err)
	return topo
}

func TestSplitInterpolates(t *testing.T) {
	topo := path(t)
	pts, err := NewPoints(topo, []float64{0, 10, 20}, LerpFloat)
	require.NoError(t, err)
	edges, err := NewElements(topo.Edges().Elements, []float64{1, 2}, LerpFloat)
	require.NoError(t, err)

	newPts, err := topo.Edges().Split([]Index{0}, [][]float64{{0.25, 0.75}})
	require.NoError(t, err)
	require.Equal(t, []Index{3}, newPts)
	assert.Equal(t, []float64{0, 10, 20, 7.5}, pts.Values())

	// Both halves inherit the value of the split edge.
	require.Equal(t, topo.Edges().Len(), edges.Len())
	for i, e := range topo.Edges().All() {
		want := 2.0
		if meshtopo.Contains(e, 3) {
			want = 1
		}
		assert.Equal(t, want, edges.At(Index(i)), "edge %v", e)
	}

	// Default split weights are even.
	_, err = topo.Edges().Split([]Index{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 15.0, pts.At(4))
}

func TestFuseInterpolates(t *testing.T) {
	topo := path(t)
	pts, err := NewPoints(topo, []float64{0, 1, 2}, nil)
	require.NoError(t, err)
	edges, err := NewElements(topo.Edges().Elements, []float64{4, 6}, LerpFloat)
	require.NoError(t, err)
	require.NoError(t, topo.Edges().Fuse([][2]Index{{0, 1}}, true))
	// Point 1 was left isolated and point 2 took its slot.
	assert.Equal(t, []meshtopo.Edge{{0, 1}}, topo.Edges().All())
	assert.Equal(t, []float64{5}, edges.Values())
	assert.Equal(t, []float64{0, 2}, pts.Values())
}

func TestPointsVec(t *testing.T) {
	topo := path(t)
	pts, err := NewPoints(topo, []r3.Vec{{X: 0}, {X: 2, Y: 2}, {X: 4}}, LerpVec)
	require.NoError(t, err)
	_, err = topo.AddPoints(1, []meshtopo.Ancestry{meshtopo.Even(meshtopo.LevelPoint, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, pts.At(3))

	// Ancestors of another level give the zero value.
	_, err = topo.AddPoints(1, []meshtopo.Ancestry{{Level: meshtopo.LevelEdge, Indices: []Index{0}, Coefs: []float64{1}}})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{}, pts.At(4))
	_, err = topo.AddPoints(1, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, pts.Len())
}

func TestPointsRemoveRenumber(t *testing.T) {
	topo := topology.New(4)
	pts, err := NewPoints(topo, []int{0, 1, 2, 3}, nil)
	require.NoError(t, err)
	require.NoError(t, topo.RemovePoints([]Index{1}))
	assert.Equal(t, []int{0, 3, 2}, pts.Values())

	require.NoError(t, topo.RenumberPoints([]Index{2, 0, 1}, []Index{1, 2, 0}))
	assert.Equal(t, []int{2, 0, 3}, pts.Values())

	pts.Set(0, 9)
	assert.Equal(t, 9, pts.At(0))
	pts.Close()
	require.NoError(t, topo.RemovePoints([]Index{0}))
	assert.Equal(t, 3, pts.Len(), "closed data no longer follows")
}

func TestMove(t *testing.T) {
	topo := path(t)
	pts, err := NewPoints(topo, []float64{0, 10, 20}, LerpFloat)
	require.NoError(t, err)
	edges, err := NewElements[meshtopo.Edge, string](topo.Edges().Elements, nil, nil)
	require.NoError(t, err)
	var removing, adding []Index
	edges.OnMoveRemoving = func(idx []Index) { removing = append(removing, idx...) }
	edges.OnMoveAdding = func(idx []Index) { adding = append(adding, idx...) }

	require.NoError(t, topo.MovePoints([]Index{0, 1}, []meshtopo.Ancestry{
		meshtopo.Even(meshtopo.LevelPoint, 1, 2),
		{Level: meshtopo.LevelPoint, Indices: []Index{0}, Coefs: []float64{1}},
	}))
	assert.Equal(t, []Index{1, 0}, removing)
	assert.Empty(t, adding, "adding is announced on the next propagation")
	assert.Equal(t, []float64{0, 10, 20}, pts.Values())

	topo.Journal().Propagate()
	assert.Equal(t, []Index{1, 0}, adding)
	// Both moves read the values from before the move.
	assert.Equal(t, []float64{15, 0, 20}, pts.Values())
	assert.Equal(t, []string{"", ""}, edges.Values())
}

func TestInitialLength(t *testing.T) {
	topo := path(t)
	_, err := NewPoints(topo, []float64{1}, LerpFloat)
	assert.ErrorIs(t, err, meshtopo.ErrIndexOutOfRange)
	_, err = NewElements(topo.Edges().Elements, []float64{1, 2, 3}, LerpFloat)
	assert.ErrorIs(t, err, meshtopo.ErrIndexOutOfRange)

	pts, err := NewPoints[float64](topo, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, pts.Values())
}

func TestTetraData(t *testing.T) {
	topo := topology.New(5, topology.WithLevels(meshtopo.LevelTetra))
	tets := topo.Tetras()
	vals, err := NewElements(tets, []float64{}, LerpFloat)
	require.NoError(t, err)
	_, err = tets.Add([]meshtopo.Tetra{{0, 1, 2, 3}, {1, 2, 3, 4}}, nil)
	require.NoError(t, err)
	vals.Set(0, 2)
	vals.Set(1, 4)
	_, err = tets.Add([]meshtopo.Tetra{{0, 1, 2, 4}}, []meshtopo.Ancestry{meshtopo.Even(meshtopo.LevelTetra, 0, 1)})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 3}, vals.Values())
	_, err = tets.Remove([]Index{0}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, vals.Values())
}
