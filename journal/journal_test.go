package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/meshtopo"
)

type recorder struct {
	batches [][]meshtopo.Change
}

func (r *recorder) Update(changes []meshtopo.Change) {
	r.batches = append(r.batches, append([]meshtopo.Change(nil), changes...))
}

func (r *recorder) kinds() []meshtopo.ChangeKind {
	var kinds []meshtopo.ChangeKind
	for _, b := range r.batches {
		for _, c := range b {
			kinds = append(kinds, c.Kind())
		}
	}
	return kinds
}

func TestSubscriberOrder(t *testing.T) {
	j := New(nil)
	all, edges := &recorder{}, &recorder{}
	j.Register(all)
	j.Register(edges, meshtopo.LevelEdge)

	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 2}))
	require.NoError(t, j.Enqueue(meshtopo.ElementsAdded[meshtopo.Edge]{Count: 1}))
	require.NoError(t, j.Enqueue(meshtopo.ElementsRemoved[meshtopo.Edge]{Indices: []Index{0}}))
	assert.True(t, j.IsDirty(meshtopo.LevelPoint))
	assert.Len(t, j.Pending(), 3)
	j.Propagate()

	assert.Equal(t, []meshtopo.ChangeKind{meshtopo.KindPointsAdded, meshtopo.KindElementsAdded, meshtopo.KindElementsRemoved}, all.kinds())
	assert.Equal(t, []meshtopo.ChangeKind{meshtopo.KindElementsAdded, meshtopo.KindElementsRemoved}, edges.kinds())
	assert.Len(t, all.batches, 1)
	assert.Empty(t, j.Pending())
	assert.False(t, j.IsDirty(meshtopo.LevelPoint))

	// Nothing pending: nobody is called.
	j.Propagate()
	assert.Len(t, all.batches, 1)
}

type Index = meshtopo.Index

func TestRegisterSeesOnlyLaterRecords(t *testing.T) {
	j := New(nil)
	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 1}))
	late := &recorder{}
	j.Register(late)
	require.NoError(t, j.Enqueue(meshtopo.PointsRemoved{Indices: []Index{0}}))
	j.Propagate()
	assert.Equal(t, []meshtopo.ChangeKind{meshtopo.KindPointsRemoved}, late.kinds())
}

func TestEngineOncePerEpoch(t *testing.T) {
	j := New(nil)
	runs := 0
	j.RegisterEngine(EngineFunc(func() { runs++ }), meshtopo.LevelTetra)

	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 1}))
	j.Propagate()
	assert.Equal(t, 0, runs, "engine ran for a level it does not follow")

	require.NoError(t, j.Enqueue(meshtopo.ElementsAdded[meshtopo.Tetra]{Count: 1}))
	require.NoError(t, j.Enqueue(meshtopo.ElementsRemoved[meshtopo.Tetra]{Indices: []Index{0}}))
	j.PropagateWithoutReset()
	assert.Equal(t, 1, runs)
	// Same epoch: the engine is up to date.
	j.PropagateWithoutReset()
	assert.Equal(t, 1, runs)
	assert.Len(t, j.Pending(), 2)
	j.Clear()
	assert.Equal(t, 1, runs)
	assert.Empty(t, j.Pending())
	assert.Equal(t, uint64(3), j.Epoch())
}

func TestPropagateWithoutResetNoRedelivery(t *testing.T) {
	j := New(nil)
	r := &recorder{}
	j.Register(r)
	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 1}))
	j.PropagateWithoutReset()
	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 2}))
	j.Propagate()
	require.Len(t, r.batches, 2)
	assert.Len(t, r.batches[0], 1)
	assert.Len(t, r.batches[1], 1)
	assert.Equal(t, 2, r.batches[1][0].(meshtopo.PointsAdded).Count)
}

func TestReentrantEnqueue(t *testing.T) {
	j := New(nil)
	var inside error
	var deferred []string
	j.Register(SubscriberFunc(func(changes []meshtopo.Change) {
		inside = j.Enqueue(meshtopo.PointsAdded{Count: 1})
		assert.True(t, j.Propagating())
		j.Defer(func() {
			deferred = append(deferred, "after")
			assert.False(t, j.Propagating())
		})
		// A nested propagate is ignored.
		j.Propagate()
		deferred = append(deferred, "during")
	}), meshtopo.LevelPoint)

	require.NoError(t, j.Enqueue(meshtopo.PointsRemoved{Indices: []Index{0}}))
	j.Propagate()
	assert.ErrorIs(t, inside, meshtopo.ErrReentrant)
	assert.Equal(t, []string{"during", "after"}, deferred)
	assert.Empty(t, j.Pending())

	ran := false
	j.Defer(func() { ran = true })
	assert.True(t, ran)
}

func TestUnregister(t *testing.T) {
	j := New(nil)
	a, b := &recorder{}, &recorder{}
	ra := j.Register(a)
	j.Register(b)
	ra.Unregister()
	ra.Unregister()
	require.NoError(t, j.Enqueue(meshtopo.PointsAdded{Count: 1}))
	j.Propagate()
	assert.Empty(t, a.batches)
	assert.Len(t, b.batches, 1)
}

func TestConsumersRunInRegistrationOrder(t *testing.T) {
	j := New(nil)
	var order []string
	j.Register(SubscriberFunc(func([]meshtopo.Change) { order = append(order, "first") }))
	j.RegisterEngine(EngineFunc(func() { order = append(order, "engine") }))
	j.Register(SubscriberFunc(func([]meshtopo.Change) { order = append(order, "last") }))
	require.NoError(t, j.Enqueue(meshtopo.ElementsAdded[meshtopo.Hexa]{Count: 1}))
	j.Propagate()
	assert.Equal(t, []string{"first", "engine", "last"}, order)
}
