// Package analysis implements the dominance, post-dominance and
// reachability queries of spec.md §4.3 (C3). Results are read-only caches,
// invalidated explicitly by recomputing rather than reacting to edits
// (spec.md §5 "invalidation is explicit").
package analysis

import (
	"github.com/willf/bitset"

	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// Analyses is the read-only bundle produced by Compute. Callers must call
// Compute again after any edit that changes edges (the driver does this
// between passes, per spec.md §2/§5).
type Analyses struct {
	pool  *cfgir.Pool
	entry *cfgir.Node

	order     []*cfgir.Node // forward postorder
	index     map[*cfgir.Node]int
	backEdges map[edge]bool

	reachNoBack   []*bitset.BitSet // reachability_without_back_edges, indexed by index[n]
	reachWithBack []*bitset.BitSet // reachability_through_back_edges

	sparse *sparseTree

	// domFrontier/pdomFrontier are computed lazily on first access (most
	// passes never need them) and cached for the lifetime of this
	// Analyses snapshot; see frontier.go.
	domFrontier  map[*cfgir.Node][]*cfgir.Node
	pdomFrontier map[*cfgir.Node][]*cfgir.Node
}

// Compute runs the forward and backward post-order traversals and builds
// dominance, post-dominance, reachability and the LCA sparse tree. It must
// be re-run (via the driver's reset_traversal, spec.md §5) after any edge
// rewrite.
func Compute(pool *cfgir.Pool, entry *cfgir.Node) *Analyses {
	a := &Analyses{pool: pool, entry: entry}

	a.order, a.backEdges = postorder(entry, func(n *cfgir.Node) []*cfgir.Node { return n.Succs })
	a.index = make(map[*cfgir.Node]int, len(a.order))
	for i, n := range a.order {
		n.FwdPostVisit = int32(i)
		a.index[n] = i
	}

	fwdRPO := reverseOf(a.order)
	idom := computeIdom(fwdRPO, func(n *cfgir.Node) []*cfgir.Node {
		return reachablePreds(n, a.index)
	})
	for n, d := range idom {
		if d == n {
			n.IDom = nil // root has no strict dominator
		} else {
			n.IDom = d
		}
	}
	assignDepths(entry, idom)

	a.computePostDominance(idom)
	a.computeReachability()
	a.sparse = buildSparseTree(entry)

	return a
}

// reachablePreds filters n.Preds down to predecessors that are themselves
// reachable (appear in the postorder index), matching the teacher's
// "valid blocks" filtering in poWithNumberingForValidBlocks.
func reachablePreds(n *cfgir.Node, index map[*cfgir.Node]int) []*cfgir.Node {
	preds := n.Preds
	out := make([]*cfgir.Node, 0, len(preds))
	for _, p := range preds {
		if _, ok := index[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func assignDepths(entry *cfgir.Node, idom map[*cfgir.Node]*cfgir.Node) {
	var depthOf func(n *cfgir.Node) int
	memo := map[*cfgir.Node]int{}
	depthOf = func(n *cfgir.Node) int {
		if n == entry || n.IDom == nil {
			return 0
		}
		if d, ok := memo[n]; ok {
			return d
		}
		d := depthOf(n.IDom) + 1
		memo[n] = d
		return d
	}
	for n := range idom {
		n.Depth = depthOf(n)
	}
}

// computePostDominance mirrors computeIdom's forward pass over a reversed
// CFG rooted at a virtual exit joining every Return/Unreachable/Kill node
// (spec.md §4.3 "virtual exit joining all Return/Kill/Unreachable nodes").
func (a *Analyses) computePostDominance(fwdIdom map[*cfgir.Node]*cfgir.Node) {
	virtual := &cfgir.Node{ID: -1, Name: "<virtual-exit>"}
	var exits []*cfgir.Node
	for n := range fwdIdom { // only reachable nodes participate
		if cfgir.IsExit(n.Terminator) {
			exits = append(exits, n)
		}
	}
	// A reducible function always has at least one exit reachable from
	// entry under normal circumstances; an infinite loop has none, in
	// which case post-dominance degenerates to "nothing post-dominates
	// anything but itself" and the loop engine synthesizes a merge
	// instead (spec.md §4.4 "infinite loop").
	if len(exits) == 0 {
		return
	}

	succsOf := func(n *cfgir.Node) []*cfgir.Node {
		if n == virtual {
			return exits
		}
		return n.Preds
	}
	predsOf := func(n *cfgir.Node) []*cfgir.Node {
		if n == virtual {
			return nil
		}
		preds := append([]*cfgir.Node(nil), n.Succs...)
		for _, e := range exits {
			if e == n {
				preds = append(preds, virtual)
				break
			}
		}
		return preds
	}

	order, _ := postorder(virtual, succsOf)
	rpo := reverseOf(order)
	for i, n := range rpo {
		n.BackPostVisit = int32(i)
	}
	pdom := computeIdom(rpo, predsOf)
	for n, d := range pdom {
		if n == virtual {
			continue
		}
		if d == virtual || d == n {
			n.IPDom = nil
		} else {
			n.IPDom = d
		}
	}
}

// Dominates/PostDominates forward to Node's O(depth) chain walk — kept on
// Analyses too so callers that only hold an *Analyses (not a *Node) have a
// uniform query surface, matching spec.md §4.2's operation list.
func (a *Analyses) Dominates(n, other *cfgir.Node) bool     { return n.Dominates(other) }
func (a *Analyses) PostDominates(n, other *cfgir.Node) bool { return n.PostDominates(other) }

// IsBackEdge reports whether u->v was classified as a back edge during the
// forward DFS (spec.md §4.4).
func (a *Analyses) IsBackEdge(u, v *cfgir.Node) bool {
	return a.backEdges[edge{u, v}]
}

// Postorder returns the forward postorder used to build dominance; index 0
// is the first-completed (innermost) node, the last entry is the entry
// block itself.
func (a *Analyses) Postorder() []*cfgir.Node { return a.order }

// LCA returns the nearest common dominator of x and y via the Euler-tour
// sparse table (O(1) after O(n log n) preprocessing), ported from
// wazevo/pass_cfg.go's dominatorSparseTree.
func (a *Analyses) LCA(x, y *cfgir.Node) *cfgir.Node {
	if a.sparse == nil {
		return nil
	}
	return a.sparse.findLCA(x, y)
}
