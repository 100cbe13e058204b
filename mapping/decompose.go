package mapping

import "github.com/soypat/meshtopo"

// TetrasPerHexa is the number of tetrahedra a hexahedron is split into.
const TetrasPerHexa = 6

// Hexahedron corners are ordered 000, x00, xy0, 0y0, 00z, x0z, xyz, 0yz.
var (
	// split06 fans six tetrahedra around the 0-6 diagonal.
	split06 = [TetrasPerHexa][4]int{
		{0, 1, 2, 6}, {0, 2, 3, 6}, {0, 3, 7, 6},
		{0, 7, 4, 6}, {0, 4, 5, 6}, {0, 5, 1, 6},
	}
	cornerBits = [8][3]int{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	cornerAt = [2][2][2]int{
		{{0, 4}, {3, 7}},
		{{1, 5}, {2, 6}},
	}
)

// Mirror selects the axes a decomposition is reflected across.
type Mirror [3]bool

// Decompose returns the six tetrahedra of h fanned around its 0-6 diagonal,
// after reflecting the corners across the axes set in mirror. Mirroring in y
// alone fans around the 3-5 diagonal. Lattice cells mirrored by the parity of
// their coordinates share face diagonals with all their neighbors.
func Decompose(h meshtopo.Hexa, mirror Mirror) [TetrasPerHexa]meshtopo.Tetra {
	var corner [8]int
	for c, b := range cornerBits {
		for axis, m := range mirror {
			if m {
				b[axis] ^= 1
			}
		}
		corner[c] = cornerAt[b[0]][b[1]][b[2]]
	}
	var tets [TetrasPerHexa]meshtopo.Tetra
	for k, tab := range split06 {
		tets[k] = meshtopo.Tetra{h[corner[tab[0]]], h[corner[tab[1]]], h[corner[tab[2]]], h[corner[tab[3]]]}
	}
	return tets
}

// mirror returns the reflection hexahedron h is decomposed with.
func (m *HexaToTetra) mirror(h Index) Mirror {
	if !m.swapping {
		return Mirror{}
	}
	if m.dims == [3]int{} {
		return Mirror{false, h%2 == 1, false}
	}
	nx, ny := m.dims[0], m.dims[1]
	i, j, k := int(h)%nx, int(h)/nx%ny, int(h)/(nx*ny)
	return Mirror{i%2 == 1, j%2 == 1, k%2 == 1}
}
