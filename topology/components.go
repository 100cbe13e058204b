package topology

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/soypat/meshtopo"
)

// ConnectedComponent returns, in ascending order, every element reachable
// from seed through shared points.
func (s *Elements[P]) ConnectedComponent(seed Index) ([]Index, error) {
	if int(seed) >= s.Len() {
		return nil, meshtopo.ItemError("ConnectedComponent", s.Level(), seed, meshtopo.ErrIndexOutOfRange)
	}
	return toIndices(s.component(seed)), nil
}

func (s *Elements[P]) component(seed Index) *roaring.Bitmap {
	visited := roaring.New()
	visited.Add(uint32(seed))
	queue := []Index{seed}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		p := s.st.At(e)
		for k := 0; k < p.Len(); k++ {
			for _, nb := range s.st.ShellOf(p.At(k)) {
				if visited.CheckedAdd(uint32(nb)) {
					queue = append(queue, nb)
				}
			}
		}
	}
	return visited
}

// ElementsAroundElement returns, in ascending order, the elements sharing at
// least one point with element i, i excluded.
func (s *Elements[P]) ElementsAroundElement(i Index) ([]Index, error) {
	if int(i) >= s.Len() {
		return nil, meshtopo.ItemError("ElementsAroundElement", s.Level(), i, meshtopo.ErrIndexOutOfRange)
	}
	around := roaring.New()
	p := s.st.At(i)
	for k := 0; k < p.Len(); k++ {
		for _, nb := range s.st.ShellOf(p.At(k)) {
			around.Add(uint32(nb))
		}
	}
	around.Remove(uint32(i))
	return toIndices(around), nil
}

// RemoveConnectedComponent removes the connected component containing seed
// and the points it leaves isolated.
func (s *Elements[P]) RemoveConnectedComponent(seed Index) error {
	comp, err := s.ConnectedComponent(seed)
	if err != nil {
		return s.t.finish([]error{err})
	}
	_, err = s.Remove(comp, true)
	return err
}

// RemoveConnectedElements removes seed and every element sharing a point with
// it, then the points they leave isolated.
func (s *Elements[P]) RemoveConnectedElements(seed Index) error {
	around, err := s.ElementsAroundElement(seed)
	if err != nil {
		return s.t.finish([]error{err})
	}
	_, err = s.Remove(append(around, seed), true)
	return err
}

// Components partitions the level into connected components, each listed in
// ascending order. Components are ordered by their lowest element.
func (s *Elements[P]) Components() [][]Index {
	n := s.Len()
	visited := roaring.New()
	var comps [][]Index
	for seed := 0; seed < n; seed++ {
		if visited.Contains(uint32(seed)) {
			continue
		}
		comp := s.component(Index(seed))
		visited.Or(comp)
		comps = append(comps, toIndices(comp))
	}
	return comps
}

// RemoveIsolatedElements removes every connected component holding at most
// minSize elements, except the largest one which is always kept. minSize 0
// removes everything but the largest component. When several components share
// the largest size the one containing the lowest element index is kept.
// Points left isolated are removed as well. It returns the number of
// elements removed.
func (s *Elements[P]) RemoveIsolatedElements(minSize int) (int, error) {
	if s.t.journal.Propagating() {
		return 0, meshtopo.ErrReentrant
	}
	if s.Len() == 0 {
		return 0, s.t.finish([]error{fmt.Errorf("remove isolated %ss: %w", s.Level(), meshtopo.ErrEmpty)})
	}
	comps := s.Components()
	if len(comps) < 2 {
		return 0, nil
	}
	largest := 0
	for k, c := range comps {
		if len(c) > len(comps[largest]) {
			largest = k
		}
	}
	if minSize <= 0 {
		minSize = s.Len()
	}
	var doomed []Index
	for k, c := range comps {
		if k != largest && len(c) <= minSize {
			doomed = append(doomed, c...)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	_, err := s.Remove(doomed, true)
	return len(doomed), err
}

func toIndices(bm *roaring.Bitmap) []Index {
	idx := make([]Index, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		idx = append(idx, Index(it.Next()))
	}
	return idx
}
