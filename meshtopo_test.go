package meshtopo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementHelpers(t *testing.T) {
	assert.True(t, Degenerate(Triangle{1, 2, 1}))
	assert.False(t, Degenerate(Tetra{0, 1, 2, 3}))
	assert.True(t, SameVertices(Triangle{0, 1, 2}, Triangle{2, 0, 1}))
	assert.False(t, SameVertices(Triangle{0, 1, 2}, Triangle{0, 1, 3}))
	assert.True(t, Contains(Hexa{0, 1, 2, 3, 4, 5, 6, 7}, 6))
	assert.False(t, Contains(Edge{0, 1}, 2))

	shifted := Tetra{0, 1, 2, 3}.Remap(func(v Index) Index { return v + 10 })
	assert.Equal(t, Tetra{10, 11, 12, 13}, shifted)

	assert.Equal(t, LevelHexa, Hexa{}.Level())
	assert.Equal(t, "tetrahedron", LevelTetra.String())
}

func TestUniqueEdges(t *testing.T) {
	tests := []struct {
		name string
		got  []Edge
		want int
	}{
		{"triangle", UniqueEdges([]Triangle{{0, 1, 2}}), 3},
		{"two triangles", UniqueEdges([]Triangle{{0, 1, 2}, {2, 1, 3}}), 5},
		{"tetra", UniqueEdges([]Tetra{{0, 1, 2, 3}}), 6},
		{"hexa", UniqueEdges([]Hexa{{0, 1, 2, 3, 4, 5, 6, 7}}), 12},
		{"edges", UniqueEdges([]Edge{{0, 1}, {1, 0}, {1, 2}}), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.got, tt.want)
		})
	}
}

func TestAncestryValidate(t *testing.T) {
	tests := []struct {
		name    string
		anc     Ancestry
		wantErr bool
	}{
		{"no coefficients", Ancestry{Level: LevelPoint, Indices: []Index{1, 2}}, false},
		{"even", Even(LevelPoint, 1, 2, 3), false},
		{"weighted", Ancestry{Level: LevelEdge, Indices: []Index{0, 1}, Coefs: []float64{0.25, 0.75}}, false},
		{"length mismatch", Ancestry{Indices: []Index{0}, Coefs: []float64{0.5, 0.5}}, true},
		{"negative", Ancestry{Indices: []Index{0, 1}, Coefs: []float64{1.5, -0.5}}, true},
		{"sum", Ancestry{Indices: []Index{0, 1}, Coefs: []float64{0.5, 0.4}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.anc.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAncestry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIndexError(t *testing.T) {
	err := ItemError("Remove", LevelEdge, 7, ErrIndexOutOfRange)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, Index(7), ie.Index)
	assert.Equal(t, "Remove: edge 7: index out of range", err.Error())
	assert.ErrorIs(t, Invariantf("shell of %d", 3), ErrInvariant)
}

func TestChangeLevels(t *testing.T) {
	changes := []Change{
		PointsAdded{Count: 1},
		ElementsAdded[Edge]{},
		ElementsRemoved[Triangle]{},
		ElementsMovedRemoving[Tetra]{},
		ElementsMovedAdding[Hexa]{},
	}
	wantLevels := []Level{LevelPoint, LevelEdge, LevelTriangle, LevelTetra, LevelHexa}
	wantKinds := []ChangeKind{KindPointsAdded, KindElementsAdded, KindElementsRemoved, KindElementsMovedRemoving, KindElementsMovedAdding}
	for i, c := range changes {
		assert.Equal(t, wantLevels[i], c.Level())
		assert.Equal(t, wantKinds[i], c.Kind())
	}
}

func TestLogFiltered(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, slog.LevelWarn)
	err := errors.Join(
		ItemError("Add", LevelTetra, 3, ErrDegenerate),
		errors.Join(ItemError("Add", LevelTetra, 5, ErrDuplicate)),
		fmt.Errorf("remove: %w", ErrEmpty),
	)
	log.LogFiltered(err)
	log.LogFiltered(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "item skipped", rec["msg"])
	assert.Equal(t, "tetrahedron", rec["mesh_level"])
	assert.EqualValues(t, 5, rec["index"])
	assert.Contains(t, lines[2], "operation rejected")
}

func TestNoopLogger(t *testing.T) {
	log := NoopLogger().WithLevel(LevelEdge)
	log.LogFiltered(ErrEmpty)
	log.LogPropagate(1, 1)
}
