// Package reorder computes point renumberings that reduce the bandwidth of a
// mesh's point adjacency, using the reverse Cuthill-McKee ordering. It only
// reads the mesh; apply the result with topology.RenumberPoints.
package reorder

import (
	"slices"

	"github.com/soypat/meshtopo"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

type Index = meshtopo.Index

// Ordering is a point permutation. Index[new] is the old index of a point,
// Inverse[old] its new index.
type Ordering struct {
	Index   []Index
	Inverse []Index
}

// Len returns the number of points in the ordering.
func (o Ordering) Len() int { return len(o.Index) }

// Identity returns the ordering that keeps every point in place.
func Identity(n int) Ordering {
	o := Ordering{Index: make([]Index, n), Inverse: make([]Index, n)}
	for i := range o.Index {
		o.Index[i] = Index(i)
		o.Inverse[i] = Index(i)
	}
	return o
}

// CuthillMcKee returns the reverse Cuthill-McKee ordering of nPoints points
// connected by edges. Each connected component starts at a pseudo-peripheral
// point; points without edges are components of their own. Edges referencing
// points outside [0,nPoints) and self loops are ignored.
func CuthillMcKee(nPoints int, edges []meshtopo.Edge) Ordering {
	g := buildGraph(nPoints, func(yield func(a, b Index)) {
		for _, e := range edges {
			yield(e[0], e[1])
		}
	})
	return order(g, nPoints)
}

// Elements returns the reverse Cuthill-McKee ordering of the point adjacency
// induced by elems: two points are adjacent when an element holds both.
func Elements[P meshtopo.Element[P]](nPoints int, elems []P) Ordering {
	g := buildGraph(nPoints, func(yield func(a, b Index)) {
		for _, p := range elems {
			for i := 0; i < p.Len(); i++ {
				for j := i + 1; j < p.Len(); j++ {
					yield(p.At(i), p.At(j))
				}
			}
		}
	})
	return order(g, nPoints)
}

// Bandwidth returns the largest index difference between the endpoints of an
// edge once renumbered by inverse. A nil inverse measures the current numbering.
func Bandwidth(edges []meshtopo.Edge, inverse []Index) int {
	bw := 0
	for _, e := range edges {
		a, b := int(e[0]), int(e[1])
		if inverse != nil {
			a, b = int(inverse[a]), int(inverse[b])
		}
		d := a - b
		if d < 0 {
			d = -d
		}
		bw = max(bw, d)
	}
	return bw
}

func buildGraph(nPoints int, pairs func(yield func(a, b Index))) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < nPoints; i++ {
		g.AddNode(simple.Node(i))
	}
	pairs(func(a, b Index) {
		if a == b || int(a) >= nPoints || int(b) >= nPoints {
			return
		}
		g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
	})
	return g
}

func order(g *simple.UndirectedGraph, nPoints int) Ordering {
	comps := topo.ConnectedComponents(g)
	for _, c := range comps {
		slices.SortFunc(c, byID)
	}
	// Node iteration order of the graph is unspecified.
	slices.SortFunc(comps, func(a, b []graph.Node) int { return byID(a[0], b[0]) })

	seq := make([]Index, 0, nPoints)
	visited := make([]bool, nPoints)
	for _, c := range comps {
		start := peripheral(g, c)
		seq = cuthillMcKee(g, start, visited, seq)
	}
	slices.Reverse(seq)

	o := Ordering{Index: seq, Inverse: make([]Index, nPoints)}
	for newIdx, old := range seq {
		o.Inverse[old] = Index(newIdx)
	}
	return o
}

// cuthillMcKee appends the breadth first order of start's component to seq,
// visiting neighbors by ascending degree.
func cuthillMcKee(g *simple.UndirectedGraph, start graph.Node, visited []bool, seq []Index) []Index {
	visited[start.ID()] = true
	queue := []graph.Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		seq = append(seq, Index(n.ID()))
		nbs := graph.NodesOf(g.From(n.ID()))
		slices.SortFunc(nbs, byDegree(g))
		for _, nb := range nbs {
			if !visited[nb.ID()] {
				visited[nb.ID()] = true
				queue = append(queue, nb)
			}
		}
	}
	return seq
}

// peripheral finds a pseudo-peripheral node of component comp: starting from a
// node of minimum degree, it hops to a minimum degree node of the farthest
// level set while that increases the eccentricity.
func peripheral(g *simple.UndirectedGraph, comp []graph.Node) graph.Node {
	start := slices.MinFunc(comp, byDegree(g))
	if len(comp) < 3 {
		return start
	}
	ecc, last := levels(g, start)
	for {
		cand := slices.MinFunc(last, byDegree(g))
		e, l := levels(g, cand)
		if e <= ecc {
			return start
		}
		start, ecc, last = cand, e, l
	}
}

// levels walks g breadth first from n and returns its eccentricity and the
// nodes at that depth.
func levels(g *simple.UndirectedGraph, n graph.Node) (int, []graph.Node) {
	var bf traverse.BreadthFirst
	depth := 0
	var last []graph.Node
	bf.Walk(g, n, func(v graph.Node, d int) bool {
		if d > depth {
			depth = d
			last = last[:0]
		}
		if d == depth {
			last = append(last, v)
		}
		return false
	})
	return depth, last
}

func byID(a, b graph.Node) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	}
	return 0
}

func byDegree(g *simple.UndirectedGraph) func(a, b graph.Node) int {
	return func(a, b graph.Node) int {
		da, db := g.From(a.ID()).Len(), g.From(b.ID()).Len()
		if da != db {
			return da - db
		}
		return byID(a, b)
	}
}
