package analysis

import (
	"github.com/willf/bitset"

	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// computeReachability populates both reachability variants named in
// spec.md §4.3: reachability_without_back_edges (used for loop-body
// membership and post-dominance filtering) and
// reachability_through_back_edges (used for "does this exit eventually
// cycle back" checks in the loop engine). Both are N×⌈N/64⌉ bitsets via
// github.com/willf/bitset, the same library godoctor's extras/cfg/df.go
// uses for its per-block gen/kill/def/use sets.
func (a *Analyses) computeReachability() {
	n := len(a.order)
	a.reachNoBack = make([]*bitset.BitSet, n)
	a.reachWithBack = make([]*bitset.BitSet, n)
	for i := range a.reachNoBack {
		a.reachNoBack[i] = bitset.New(uint(n))
		a.reachWithBack[i] = bitset.New(uint(n))
	}

	succsNoBack := func(node *cfgir.Node) []*cfgir.Node {
		out := make([]*cfgir.Node, 0, len(node.Succs))
		for _, s := range node.Succs {
			if !a.backEdges[edge{node, s}] {
				out = append(out, s)
			}
		}
		return out
	}
	succsAll := func(node *cfgir.Node) []*cfgir.Node { return node.Succs }

	fixpointUnion(a.order, a.index, a.reachNoBack, succsNoBack)
	fixpointUnion(a.order, a.index, a.reachWithBack, succsAll)
}

// fixpointUnion computes reach(n) = {n} ∪ ⋃ reach(s) for s in succsOf(n),
// iterating to a fixed point. A single postorder pass suffices when
// succsOf excludes back edges (every successor is already finished); with
// back edges included it may take a few extra passes, bounded by the
// number of nodes.
func fixpointUnion(order []*cfgir.Node, index map[*cfgir.Node]int, reach []*bitset.BitSet, succsOf func(*cfgir.Node) []*cfgir.Node) {
	changed := true
	for pass := 0; changed && pass <= len(order)+1; pass++ {
		changed = false
		for _, n := range order {
			i := index[n]
			before := reach[i].Count()
			reach[i].Set(uint(i))
			for _, s := range succsOf(n) {
				j, ok := index[s]
				if !ok {
					continue
				}
				reach[i] = reach[i].Union(reach[j])
			}
			if reach[i].Count() != before {
				changed = true
			}
		}
	}
}

// QueryReachability reports whether to is reachable from from without
// following any back edge.
func (a *Analyses) QueryReachability(from, to *cfgir.Node) bool {
	return a.queryIn(a.reachNoBack, from, to)
}

// QueryReachabilityThroughBackEdges reports whether to is reachable from
// from, allowing back edges.
func (a *Analyses) QueryReachabilityThroughBackEdges(from, to *cfgir.Node) bool {
	return a.queryIn(a.reachWithBack, from, to)
}

func (a *Analyses) queryIn(reach []*bitset.BitSet, from, to *cfgir.Node) bool {
	i, ok := a.index[from]
	if !ok {
		return false
	}
	j, ok := a.index[to]
	if !ok {
		return false
	}
	return reach[i].Test(uint(j))
}

// ExistsPathWithoutIntermediate reports whether end is reachable from
// start via some path that never passes through stop (stop may equal
// start or end, in which case the answer is false unless start == end !=
// stop). Implemented with a bounded local DFS rather than the cached
// bitsets, since "remove stop" changes the graph per query.
func (a *Analyses) ExistsPathWithoutIntermediate(start, end, stop *cfgir.Node) bool {
	if start == stop || end == stop {
		return false
	}
	if start == end {
		return true
	}
	seen := map[*cfgir.Node]bool{start: true, stop: true}
	stack := []*cfgir.Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range n.Succs {
			if s == end {
				return true
			}
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return false
}

// IsOrdered reports whether a reaches b and b reaches c, without the b->c
// leg passing back through a (spec.md §4.3).
func (a *Analyses) IsOrdered(x, y, z *cfgir.Node) bool {
	if !a.QueryReachability(x, y) {
		return false
	}
	return a.ExistsPathWithoutIntermediate(y, z, x)
}
