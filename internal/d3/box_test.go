package d3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoundsOf(t *testing.T) {
	pts := []r3.Vec{{X: 1, Y: -1, Z: 2}, {X: -3, Y: 4, Z: 0}, {X: 0, Y: 0, Z: 5}}
	b := BoundsOf(pts)
	assert.Equal(t, Box{Min: r3.Vec{X: -3, Y: -1, Z: 0}, Max: r3.Vec{X: 1, Y: 4, Z: 5}}, b)
	assert.Equal(t, r3.Vec{X: 4, Y: 5, Z: 5}, b.Size())
	for _, p := range pts {
		assert.True(t, b.Contains(p))
	}
	assert.False(t, b.Contains(r3.Vec{X: 2}))
	assert.Equal(t, Box{}, BoundsOf(nil))
}

func TestElementwise(t *testing.T) {
	assert.True(t, LTEZero(r3.Vec{X: 1, Y: 0, Z: 1}))
	assert.False(t, LTEZero(Elem(1e-9)))
	assert.Equal(t, r3.Vec{X: 3, Y: 1, Z: -1}, CeilElem(r3.Vec{X: 2.5, Y: 1, Z: -1.5}))
	assert.Equal(t, r3.Vec{X: 2, Y: 0.5, Z: -4}, DivElem(r3.Vec{X: 1, Y: 1, Z: -2}, r3.Vec{X: 0.5, Y: 2, Z: 0.5}))
}
