// Package mapping keeps a tetrahedral topology derived from a hexahedral one.
// Every hexahedron of the coarse topology is split into six tetrahedra of the
// fine topology, and coarse edits are translated into fine edits as they are
// propagated. Both topologies share point indices.
package mapping

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/soypat/meshtopo"
	"github.com/soypat/meshtopo/journal"
	"github.com/soypat/meshtopo/topology"
)

type Index = meshtopo.Index

// HexaToTetra maps the hexahedra of a coarse topology to the tetrahedra of a
// fine topology. It is not safe for concurrent use.
type HexaToTetra struct {
	coarse, fine *topology.Topology
	log          *meshtopo.Logger
	swapping     bool
	dims         [3]int

	// in holds the coarse hexahedron of every fine tetrahedron, InvalidIndex
	// for tetrahedra the mapping did not create.
	in []Index
	// out is the reverse of in, rebuilt on demand.
	out      [][]Index
	outStale bool
	nCoarse  int

	// origins of the tetrahedra being added by the mapping, matched in order
	// against the fine ElementsAdded record.
	pending     []meshtopo.Tetra
	pendingFrom []Index

	errs      []error
	coarseSub *journal.Registration
	fineSub   *journal.Registration
}

// Option configures a HexaToTetra.
type Option func(*HexaToTetra)

// WithSwapping alternates the decomposition between neighboring cells.
func WithSwapping(swap bool) Option {
	return func(m *HexaToTetra) { m.swapping = swap }
}

// WithLattice declares the coarse hexahedra as an nx by ny by nz lattice in
// x-fastest order. Swapping then mirrors each cell by the parity of its
// lattice coordinates instead of its index.
func WithLattice(nx, ny, nz int) Option {
	return func(m *HexaToTetra) { m.dims = [3]int{nx, ny, nz} }
}

// WithLogger sets the mapping's logger. Defaults to the coarse topology's logger.
func WithLogger(l *meshtopo.Logger) Option {
	return func(m *HexaToTetra) { m.log = l }
}

// New links coarse to fine. fine receives the coarse points it lacks and the
// decomposition of every coarse hexahedron. Tetrahedra already in fine stay
// unmapped.
func New(coarse, fine *topology.Topology, opts ...Option) (*HexaToTetra, error) {
	if coarse == fine {
		return nil, errors.New("mapping: coarse and fine topologies must differ")
	}
	m := &HexaToTetra{coarse: coarse, fine: fine, outStale: true}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = coarse.Logger()
	}
	m.log = m.log.WithLevel(meshtopo.LevelHexa)
	if d := m.dims; d != [3]int{} {
		if d[0] <= 0 || d[1] <= 0 || d[2] <= 0 {
			return nil, fmt.Errorf("mapping: invalid lattice %dx%dx%d", d[0], d[1], d[2])
		}
		if n := d[0] * d[1] * d[2]; n != coarse.Hexas().Len() {
			return nil, fmt.Errorf("mapping: lattice %dx%dx%d holds %d cells, coarse has %d hexahedra", d[0], d[1], d[2], n, coarse.Hexas().Len())
		}
	}
	if coarse.Journal().Propagating() || fine.Journal().Propagating() {
		return nil, meshtopo.ErrReentrant
	}
	if fine.NumPoints() > coarse.NumPoints() {
		return nil, fmt.Errorf("mapping: fine topology has %d points, coarse %d", fine.NumPoints(), coarse.NumPoints())
	}
	if n := coarse.NumPoints() - fine.NumPoints(); n > 0 {
		if _, err := fine.AddPoints(n, nil); err != nil {
			return nil, err
		}
	}
	tets := fine.Tetras()
	m.in = make([]Index, tets.Len())
	for i := range m.in {
		m.in[i] = meshtopo.InvalidIndex
	}
	m.fineSub = fine.Journal().Register(journal.SubscriberFunc(m.updateFine), meshtopo.LevelTetra)

	hexas := coarse.Hexas()
	m.nCoarse = hexas.Len()
	all := make([]Index, m.nCoarse)
	for i := range all {
		all[i] = Index(i)
	}
	err := m.addHexas(all)
	m.coarseSub = coarse.Journal().Register(journal.SubscriberFunc(m.updateCoarse), meshtopo.LevelPoint, meshtopo.LevelHexa)
	return m, err
}

// Close stops following both topologies.
func (m *HexaToTetra) Close() {
	m.coarseSub.Unregister()
	m.fineSub.Unregister()
}

// Coarse returns the hexahedral topology.
func (m *HexaToTetra) Coarse() *topology.Topology { return m.coarse }

// Fine returns the tetrahedral topology.
func (m *HexaToTetra) Fine() *topology.Topology { return m.fine }

// Len returns the number of fine tetrahedra tracked.
func (m *HexaToTetra) Len() int { return len(m.in) }

// FromIndex returns the hexahedron fine tetrahedron i was derived from.
func (m *HexaToTetra) FromIndex(i Index) (Index, error) {
	if int(i) >= len(m.in) {
		return meshtopo.InvalidIndex, meshtopo.ItemError("FromIndex", meshtopo.LevelTetra, i, meshtopo.ErrIndexOutOfRange)
	}
	if m.in[i] == meshtopo.InvalidIndex {
		return meshtopo.InvalidIndex, meshtopo.ItemError("FromIndex", meshtopo.LevelTetra, i, meshtopo.ErrStale)
	}
	return m.in[i], nil
}

// ToIndices returns the fine tetrahedra derived from hexahedron h in
// ascending order. The slice must not be modified.
func (m *HexaToTetra) ToIndices(h Index) ([]Index, error) {
	if int(h) >= m.nCoarse {
		return nil, meshtopo.ItemError("ToIndices", meshtopo.LevelHexa, h, meshtopo.ErrIndexOutOfRange)
	}
	m.buildOut()
	return m.out[h], nil
}

// Err returns the errors raised while translating the last coarse records
// and clears them.
func (m *HexaToTetra) Err() error {
	err := errors.Join(m.errs...)
	m.errs = m.errs[:0]
	return err
}

// Check verifies the correspondence: one entry per fine tetrahedron, every
// entry naming an existing hexahedron holding all the tetrahedron's points.
func (m *HexaToTetra) Check() error {
	tets, hexas := m.fine.Tetras(), m.coarse.Hexas()
	if len(m.in) != tets.Len() {
		return meshtopo.Invariantf("mapping tracks %d tetrahedra, fine topology has %d", len(m.in), tets.Len())
	}
	if m.nCoarse != hexas.Len() {
		return meshtopo.Invariantf("mapping tracks %d hexahedra, coarse topology has %d", m.nCoarse, hexas.Len())
	}
	var errs []error
	for i, h := range m.in {
		if h == meshtopo.InvalidIndex {
			continue
		}
		if int(h) >= m.nCoarse {
			errs = append(errs, meshtopo.Invariantf("tetra %d maps to hexahedron %d out of %d", i, h, m.nCoarse))
			continue
		}
		t, hx := tets.At(Index(i)), hexas.At(h)
		for _, v := range t {
			if !meshtopo.Contains(hx, v) {
				errs = append(errs, meshtopo.Invariantf("tetra %d point %d not in hexahedron %d", i, v, h))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (m *HexaToTetra) buildOut() {
	if !m.outStale && len(m.out) == m.nCoarse {
		return
	}
	m.out = make([][]Index, m.nCoarse)
	for i, h := range m.in {
		if h != meshtopo.InvalidIndex && int(h) < m.nCoarse {
			m.out[h] = append(m.out[h], Index(i))
		}
	}
	m.outStale = false
}

// addHexas adds the decomposition of coarse hexahedra idx to the fine topology.
func (m *HexaToTetra) addHexas(idx []Index) error {
	if len(idx) == 0 {
		return nil
	}
	hexas := m.coarse.Hexas()
	tets := make([]meshtopo.Tetra, 0, TetrasPerHexa*len(idx))
	anc := make([]meshtopo.Ancestry, 0, cap(tets))
	from := make([]Index, 0, cap(tets))
	for _, h := range idx {
		parent := meshtopo.Ancestry{Level: meshtopo.LevelHexa, Indices: []Index{h}, Coefs: []float64{1}}
		for _, t := range Decompose(hexas.At(h), m.mirror(h)) {
			tets = append(tets, t)
			anc = append(anc, parent)
			from = append(from, h)
		}
	}
	m.pending, m.pendingFrom = tets, from
	_, err := m.fine.Tetras().Add(tets, anc)
	m.pending, m.pendingFrom = nil, nil
	return err
}

// updateFine keeps in aligned with the fine tetrahedron array.
func (m *HexaToTetra) updateFine(changes []meshtopo.Change) {
	for _, c := range changes {
		switch c := c.(type) {
		case meshtopo.ElementsAdded[meshtopo.Tetra]:
			for k, i := range c.Indices {
				if int(i) != len(m.in) {
					m.errs = append(m.errs, meshtopo.Invariantf("tetra %d added at %d", i, len(m.in)))
				}
				m.in = append(m.in, m.origin(c.Elements[k]))
			}
		case meshtopo.ElementsRemoved[meshtopo.Tetra]:
			// Mirrors the swap with last the store performs after propagation.
			for _, i := range c.Indices {
				last := len(m.in) - 1
				m.in[i] = m.in[last]
				m.in = m.in[:last]
			}
		default:
			continue
		}
		m.outStale = true
	}
}

// origin pops the pending hexahedron of t, skipping pending tetrahedra the
// fine topology rejected.
func (m *HexaToTetra) origin(t meshtopo.Tetra) Index {
	for len(m.pending) > 0 {
		p, from := m.pending[0], m.pendingFrom[0]
		m.pending, m.pendingFrom = m.pending[1:], m.pendingFrom[1:]
		if p == t {
			return from
		}
	}
	return meshtopo.InvalidIndex
}

// updateCoarse translates coarse records into fine edits.
func (m *HexaToTetra) updateCoarse(changes []meshtopo.Change) {
	for _, c := range changes {
		var err error
		switch c := c.(type) {
		case meshtopo.PointsAdded:
			_, err = m.fine.AddPoints(c.Count, c.Ancestors)
		case meshtopo.PointsRemoved:
			err = m.fine.RemovePoints(append([]Index(nil), c.Indices...))
		case meshtopo.PointsRenumbered:
			err = m.fine.RenumberPoints(c.Index, c.Inverse)
		case meshtopo.PointsMoved:
			err = m.fine.MovePoints(c.Indices, c.Ancestors)
		case meshtopo.ElementsAdded[meshtopo.Hexa]:
			m.nCoarse += len(c.Indices)
			m.outStale = true
			err = m.addHexas(c.Indices)
		case meshtopo.ElementsRemoved[meshtopo.Hexa]:
			err = m.removeHexas(c.Indices)
		}
		if err != nil {
			m.log.Debug("fine edit failed", "change", c.Kind().String(), "error", err)
			m.errs = append(m.errs, err)
		}
	}
}

// removeHexas removes the fine tetrahedra of hexahedra idx, given in
// descending order, then renames the remaining entries the way the coarse
// store compacts its array.
func (m *HexaToTetra) removeHexas(idx []Index) error {
	removed := roaring.New()
	for _, h := range idx {
		removed.Add(uint32(h))
	}
	var doomed []Index
	for i, h := range m.in {
		if h != meshtopo.InvalidIndex && removed.Contains(uint32(h)) {
			doomed = append(doomed, Index(i))
		}
	}
	var err error
	if len(doomed) > 0 {
		_, err = m.fine.Tetras().Remove(doomed, false)
	}
	m.buildOut()
	for _, h := range idx {
		last := Index(m.nCoarse - 1)
		if h != last {
			m.out[h] = m.out[last]
			for _, t := range m.out[h] {
				m.in[t] = h
			}
		}
		m.out = m.out[:last]
		m.nCoarse--
	}
	return err
}
