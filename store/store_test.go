package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/meshtopo"
)

func TestStoreDensity(t *testing.T) {
	s := New[meshtopo.Triangle](5, WithCapacity(4))
	for _, tri := range []meshtopo.Triangle{{0, 1, 2}, {1, 2, 3}, {2, 3, 4}, {0, 2, 4}} {
		_, err := s.Add(tri)
		require.NoError(t, err)
	}
	s.BuildShell()
	removed, err := s.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, meshtopo.Triangle{1, 2, 3}, removed)
	// Last element moved into the freed slot.
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, meshtopo.Triangle{0, 2, 4}, s.At(1))
	assert.ElementsMatch(t, []Index{2, 1}, s.ShellOf(4))
	assert.ElementsMatch(t, []Index{0, 2, 1}, s.ShellOf(2))
	require.NoError(t, s.Check())

	_, err = s.RemoveAt(9)
	assert.ErrorIs(t, err, meshtopo.ErrIndexOutOfRange)
	_, err = s.Get(3)
	assert.ErrorIs(t, err, meshtopo.ErrIndexOutOfRange)
}

func TestStoreAddRejects(t *testing.T) {
	s := New[meshtopo.Edge](3, WithCheck(true))
	_, err := s.Add(meshtopo.Edge{0, 3})
	assert.ErrorIs(t, err, meshtopo.ErrIndexOutOfRange)
	_, err = s.Add(meshtopo.Edge{1, 1})
	assert.ErrorIs(t, err, meshtopo.ErrDegenerate)

	_, err = s.Add(meshtopo.Edge{0, 1})
	require.NoError(t, err)
	s.BuildShell()
	_, err = s.Add(meshtopo.Edge{1, 0})
	assert.ErrorIs(t, err, meshtopo.ErrDuplicate)
	assert.Equal(t, 1, s.Len())

	lax := New[meshtopo.Edge](3)
	_, err = lax.Add(meshtopo.Edge{1, 1})
	assert.NoError(t, err)
	assert.False(t, lax.Checking())
}

func TestStoreShellLazy(t *testing.T) {
	s := New[meshtopo.Edge](4)
	for _, e := range []meshtopo.Edge{{0, 1}, {1, 2}, {2, 3}} {
		_, err := s.Add(e)
		require.NoError(t, err)
	}
	assert.False(t, s.HasShell())
	assert.Equal(t, Index(1), s.IndexOf(meshtopo.Edge{2, 1}))
	assert.True(t, s.HasShell())
	assert.Equal(t, meshtopo.InvalidIndex, s.IndexOf(meshtopo.Edge{0, 3}))

	// Additions after the build keep the shell in step.
	_, err := s.Add(meshtopo.Edge{3, 0})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Index{0, 3}, s.ShellOf(0))
	require.NoError(t, s.Check())
}

func TestStoreRemovePoint(t *testing.T) {
	s := New[meshtopo.Edge](4)
	for _, e := range []meshtopo.Edge{{0, 3}, {3, 2}} {
		_, err := s.Add(e)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, s.RemovePoint(3), meshtopo.ErrInUse)
	require.NoError(t, s.RemovePoint(1))
	// Point 3 is now point 1.
	assert.Equal(t, 3, s.NumPoints())
	assert.Equal(t, meshtopo.Edge{0, 1}, s.At(0))
	assert.Equal(t, meshtopo.Edge{1, 2}, s.At(1))
	assert.ElementsMatch(t, []Index{0, 1}, s.ShellOf(1))
	require.NoError(t, s.Check())

	s.AddPoints(2)
	assert.Equal(t, 5, s.NumPoints())
	assert.Empty(t, s.ShellOf(4))
	require.NoError(t, s.Check())
}

func TestStoreRenumberPoints(t *testing.T) {
	s := New[meshtopo.Triangle](4, WithCheck(true))
	_, err := s.Add(meshtopo.Triangle{0, 1, 2})
	require.NoError(t, err)
	_, err = s.Add(meshtopo.Triangle{1, 2, 3})
	require.NoError(t, err)
	s.BuildShell()

	// Reverse the numbering: index[new] = old, inverse[old] = new.
	index := []Index{3, 2, 1, 0}
	inverse := []Index{3, 2, 1, 0}
	require.NoError(t, s.RenumberPoints(index, inverse))
	assert.Equal(t, meshtopo.Triangle{3, 2, 1}, s.At(0))
	assert.Equal(t, meshtopo.Triangle{2, 1, 0}, s.At(1))
	assert.ElementsMatch(t, []Index{1}, s.ShellOf(0))
	require.NoError(t, s.Check())

	err = s.RenumberPoints([]Index{0, 0, 1, 2}, []Index{0, 1, 2, 3})
	assert.ErrorIs(t, err, meshtopo.ErrNotBijection)
	err = s.RenumberPoints([]Index{0, 1}, []Index{0, 1})
	assert.ErrorIs(t, err, meshtopo.ErrNotBijection)
}

func TestValidatePermutation(t *testing.T) {
	assert.NoError(t, ValidatePermutation([]Index{2, 0, 1}, []Index{1, 2, 0}))
	assert.ErrorIs(t, ValidatePermutation([]Index{2, 0, 1}, []Index{2, 0, 1}), meshtopo.ErrNotBijection)
	assert.ErrorIs(t, ValidatePermutation([]Index{0, 3}, []Index{0, 1}), meshtopo.ErrNotBijection)
}
