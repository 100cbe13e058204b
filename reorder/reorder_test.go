package reorder

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/store"
	"github.com/soypat/meshtopo/topology"
)

func shuffledPath(n int, seed uint64) []meshtopo.Edge {
	perm := rand.New(rand.NewPCG(seed, 1)).Perm(n)
	edges := make([]meshtopo.Edge, n-1)
	for i := range edges {
		edges[i] = meshtopo.Edge{Index(perm[i]), Index(perm[i+1])}
	}
	return edges
}

func TestCuthillMcKeePath(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		edges := shuffledPath(10, seed)
		o := CuthillMcKee(10, edges)
		require.NoError(t, store.ValidatePermutation(o.Index, o.Inverse))
		assert.Equal(t, 1, Bandwidth(edges, o.Inverse), "seed %d", seed)
	}
}

func TestCuthillMcKeeApply(t *testing.T) {
	edges := shuffledPath(10, 7)
	topo := topology.New(10, topology.WithCheck(true))
	_, err := topo.Edges().Add(edges, nil)
	require.NoError(t, err)

	o := CuthillMcKee(topo.NumPoints(), topo.Edges().All())
	require.NoError(t, topo.RenumberPoints(o.Index, o.Inverse))
	assert.Equal(t, 1, Bandwidth(topo.Edges().All(), nil))
}

func TestCuthillMcKeeComponents(t *testing.T) {
	// Two paths and an isolated point 4.
	edges := []meshtopo.Edge{{0, 5}, {5, 2}, {1, 6}, {6, 3}, {3, 7}}
	o := CuthillMcKee(8, edges)
	require.Equal(t, 8, o.Len())
	require.NoError(t, store.ValidatePermutation(o.Index, o.Inverse))
	assert.Equal(t, 1, Bandwidth(edges, o.Inverse))
	// Out of range edges and self loops are ignored.
	o = CuthillMcKee(3, []meshtopo.Edge{{0, 9}, {1, 1}, {0, 2}})
	require.NoError(t, store.ValidatePermutation(o.Index, o.Inverse))
}

func TestElementsGrid(t *testing.T) {
	// 4x4 quads split into triangles, with rows numbered out of order.
	const n = 5
	at := func(i, j int) Index { return Index(((i*7)%n)*n + j) }
	var tris []meshtopo.Triangle
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-1; j++ {
			tris = append(tris,
				meshtopo.Triangle{at(i, j), at(i+1, j), at(i+1, j+1)},
				meshtopo.Triangle{at(i, j), at(i+1, j+1), at(i, j+1)},
			)
		}
	}
	edges := meshtopo.UniqueEdges(tris)
	o := Elements(n*n, tris)
	require.NoError(t, store.ValidatePermutation(o.Index, o.Inverse))
	assert.Less(t, Bandwidth(edges, o.Inverse), Bandwidth(edges, nil))
}

func TestIdentity(t *testing.T) {
	o := Identity(4)
	assert.Equal(t, []Index{0, 1, 2, 3}, o.Index)
	assert.Equal(t, o.Index, o.Inverse)
	assert.Equal(t, 3, Bandwidth([]meshtopo.Edge{{0, 3}}, o.Inverse))
}
