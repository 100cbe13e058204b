package topology

import (
	"fmt"

	"github.com/soypat/meshtopo"
)

// EdgeSet is the edge level of a Topology. Besides the generic element
// operations it splits, fuses and swaps edges.
type EdgeSet struct {
	*Elements[meshtopo.Edge]
}

// Split splits every edge at idx in two at a new point. Edge (p1,p2) becomes
// (p1,n) and (n,p2) where n is a new point. coefs is either nil, giving every
// new point weights 0.5/0.5 on p1 and p2, or holds one coefficient pair per
// edge. The original edges are removed afterwards; their endpoints stay
// referenced by the new edges, so no point is left isolated. It returns the
// new points; new edges are found through the shell of their point.
func (s *EdgeSet) Split(idx []Index, coefs [][]float64) ([]Index, error) {
	const op = "Split"
	t := s.t
	if t.journal.Propagating() {
		return nil, meshtopo.ErrReentrant
	}
	if s.Len() == 0 {
		return nil, t.finish([]error{fmt.Errorf("split edges: %w", meshtopo.ErrEmpty)})
	}
	if coefs != nil && len(coefs) != len(idx) {
		return nil, t.finish([]error{fmt.Errorf("%w: %d coefficient lists for %d edges", meshtopo.ErrAncestry, len(coefs), len(idx))})
	}
	filtered, errs := s.filter(op, idx)
	var (
		split     []Index
		pointAnc  []meshtopo.Ancestry
		edges     []meshtopo.Edge
		edgeAnc   []meshtopo.Ancestry
		nextPoint = Index(t.npoints)
	)
	for _, i := range filtered {
		e := s.At(i)
		anc := meshtopo.Even(meshtopo.LevelPoint, e[0], e[1])
		if coefs != nil {
			anc.Coefs = coefs[indexOf(idx, i)]
			if err := anc.Validate(); err != nil {
				errs = append(errs, meshtopo.ItemError(op, meshtopo.LevelEdge, i, err))
				continue
			}
		}
		n := nextPoint
		nextPoint++
		split = append(split, i)
		pointAnc = append(pointAnc, anc)
		edges = append(edges, meshtopo.Edge{e[0], n}, meshtopo.Edge{n, e[1]})
		parent := meshtopo.Ancestry{Level: meshtopo.LevelEdge, Indices: []Index{i}, Coefs: []float64{1}}
		edgeAnc = append(edgeAnc, parent, parent)
	}
	if len(split) == 0 {
		return nil, t.finish(errs)
	}
	points := t.AddPointsProcess(len(split))
	eidx, err := s.AddProcess(edges)
	errs = append(errs, err)
	edges, eidx, edgeAnc = compact(edges, eidx, edgeAnc)
	errs = append(errs,
		t.AddPointsWarning(points, pointAnc),
		s.AddWarning(edges, eidx, edgeAnc),
		s.RemoveWarning(split),
	)
	t.journal.Propagate()
	_, err = s.RemoveProcess(split, false)
	errs = append(errs, err)
	return points, t.finish(errs)
}

// Fuse replaces each pair of edges sharing an endpoint by one edge joining
// their other endpoints: (a,b)+(b,c) gives (a,c), and when the second edge
// ends where the first starts, (b,c)+(a,b) gives (a,c) as well. Pairs without
// a shared endpoint are skipped. With removeIsolatedPoints, the shared points
// left without edges are removed.
func (s *EdgeSet) Fuse(pairs [][2]Index, removeIsolatedPoints bool) error {
	const op = "Fuse"
	t := s.t
	if t.journal.Propagating() {
		return meshtopo.ErrReentrant
	}
	if s.Len() == 0 {
		return t.finish([]error{fmt.Errorf("fuse edges: %w", meshtopo.ErrEmpty)})
	}
	valid, errs := s.filterPairs(op, pairs)
	var (
		groups [][]meshtopo.Edge
		anc    []meshtopo.Ancestry
		kept   [][2]Index
	)
	for _, pair := range valid {
		e1, e2 := s.At(pair[0]), s.At(pair[1])
		var fused meshtopo.Edge
		switch {
		case e1[1] == e2[0]:
			fused = meshtopo.Edge{e1[0], e2[1]}
		case e2[1] == e1[0]:
			fused = meshtopo.Edge{e2[0], e1[1]}
		default:
			errs = append(errs, meshtopo.ItemError(op, meshtopo.LevelEdge, pair[1], meshtopo.ErrNoSharedVertex))
			continue
		}
		if fused[0] == fused[1] {
			errs = append(errs, meshtopo.ItemError(op, meshtopo.LevelEdge, pair[1], meshtopo.ErrDegenerate))
			continue
		}
		groups = append(groups, []meshtopo.Edge{fused})
		anc = append(anc, meshtopo.Even(meshtopo.LevelEdge, pair[0], pair[1]))
		kept = append(kept, pair)
	}
	if len(groups) == 0 {
		return t.finish(errs)
	}
	return s.replace(groups, anc, kept, removeIsolatedPoints, errs)
}

// Swap recombines the endpoints of each pair of edges: (p11,p12) and (p21,p22)
// are replaced by (p11,p21) and (p12,p22), each derived from both originals.
func (s *EdgeSet) Swap(pairs [][2]Index) error {
	const op = "Swap"
	t := s.t
	if t.journal.Propagating() {
		return meshtopo.ErrReentrant
	}
	if s.Len() == 0 {
		return t.finish([]error{fmt.Errorf("swap edges: %w", meshtopo.ErrEmpty)})
	}
	valid, errs := s.filterPairs(op, pairs)
	var (
		groups [][]meshtopo.Edge
		anc    []meshtopo.Ancestry
		kept   [][2]Index
	)
	for _, pair := range valid {
		e1, e2 := s.At(pair[0]), s.At(pair[1])
		a, b := meshtopo.Edge{e1[0], e2[0]}, meshtopo.Edge{e1[1], e2[1]}
		if a[0] == a[1] || b[0] == b[1] {
			errs = append(errs, meshtopo.ItemError(op, meshtopo.LevelEdge, pair[1], meshtopo.ErrDegenerate))
			continue
		}
		groups = append(groups, []meshtopo.Edge{a, b})
		anc = append(anc, meshtopo.Even(meshtopo.LevelEdge, pair[0], pair[1]))
		kept = append(kept, pair)
	}
	if len(groups) == 0 {
		return t.finish(errs)
	}
	return s.replace(groups, anc, kept, false, errs)
}

// replace adds groups[k], all derived from anc[k], in place of the edge pair
// pairs[k]. A group is accepted whole or not at all: when the store rejects
// one of its edges the pair is kept. It then warns about the accepted edges
// and the removal of their pairs, propagates once and removes.
func (s *EdgeSet) replace(groups [][]meshtopo.Edge, anc []meshtopo.Ancestry, pairs [][2]Index, removeIsolatedPoints bool, errs []error) error {
	var (
		edges   []meshtopo.Edge
		idx     []Index
		ancs    []meshtopo.Ancestry
		removed []Index
	)
	for k, group := range groups {
		added, err := s.addGroup(group)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for range group {
			ancs = append(ancs, anc[k])
		}
		edges = append(edges, group...)
		idx = append(idx, added...)
		removed = append(removed, pairs[k][0], pairs[k][1])
	}
	if len(removed) == 0 {
		return s.t.finish(errs)
	}
	errs = append(errs,
		s.AddWarning(edges, idx, ancs),
		s.RemoveWarning(removed),
	)
	s.t.journal.Propagate()
	_, err := s.RemoveProcess(removed, removeIsolatedPoints)
	errs = append(errs, err)
	return s.t.finish(errs)
}

// addGroup appends every edge of group or none. Edges added before a rejected
// one are the last of the store and are taken back without moving others.
func (s *EdgeSet) addGroup(group []meshtopo.Edge) ([]Index, error) {
	idx := make([]Index, 0, len(group))
	for _, e := range group {
		i, err := s.st.Add(e)
		if err != nil {
			for k := len(idx) - 1; k >= 0; k-- {
				s.st.RemoveAt(idx[k])
			}
			return nil, err
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// filterPairs drops pairs with out of range indices, pairs of an edge with
// itself and pairs reusing an edge of an earlier pair.
func (s *EdgeSet) filterPairs(op string, pairs [][2]Index) ([][2]Index, []error) {
	var errs []error
	n := Index(s.Len())
	used := make(map[Index]struct{}, 2*len(pairs))
	valid := make([][2]Index, 0, len(pairs))
	for _, pair := range pairs {
		var err error
		var bad Index
		switch {
		case pair[0] >= n:
			err, bad = meshtopo.ErrIndexOutOfRange, pair[0]
		case pair[1] >= n:
			err, bad = meshtopo.ErrIndexOutOfRange, pair[1]
		case pair[0] == pair[1]:
			err, bad = meshtopo.ErrDuplicate, pair[1]
		}
		if err == nil {
			for _, i := range pair {
				if _, ok := used[i]; ok {
					err, bad = meshtopo.ErrDuplicate, i
				}
			}
		}
		if err != nil {
			errs = append(errs, meshtopo.ItemError(op, meshtopo.LevelEdge, bad, err))
			continue
		}
		used[pair[0]] = struct{}{}
		used[pair[1]] = struct{}{}
		valid = append(valid, pair)
	}
	return valid, errs
}

// indexOf returns the position of v in idx or -1.
func indexOf(idx []Index, v Index) int {
	for k, i := range idx {
		if i == v {
			return k
		}
	}
	return -1
}
