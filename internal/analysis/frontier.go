package analysis

import "github.com/a2flo/floor-llvm/internal/cfgir"

// frontier.go restores the dominance/post-dominance frontier queries
// (Cytron, Ferrante, Rosen & Wegman) that spec.md §4.3 and §4.6 name
// directly — phi_frontier_makes_forward_progress walks the post-dominance
// frontier from a definition, and the selection engine's legality check
// (spec.md §4.5) consults it to decide whether an escape crosses an
// enclosing loop's choke point legitimately. Grounded on the same
// algorithm tmc-mirror-go.tools/ssa/lift.go uses to place phis: for every
// node n with two or more predecessors, walk each predecessor up its
// idom chain, recording n into every node visited strictly before
// idom(n).

// DominanceFrontier returns the set of nodes in n's dominance frontier:
// every node m such that n dominates a predecessor of m but does not
// strictly dominate m itself.
func (a *Analyses) DominanceFrontier(n *cfgir.Node) []*cfgir.Node {
	a.ensureFrontiers()
	return a.domFrontier[n]
}

// PostDominanceFrontier is the dual computed over the reversed graph
// (Succs/IPDom in place of Preds/IDom).
func (a *Analyses) PostDominanceFrontier(n *cfgir.Node) []*cfgir.Node {
	a.ensureFrontiers()
	return a.pdomFrontier[n]
}

func (a *Analyses) ensureFrontiers() {
	if a.domFrontier != nil {
		return
	}
	a.domFrontier = computeFrontier(a.order, func(n *cfgir.Node) []*cfgir.Node { return n.Preds }, func(n *cfgir.Node) *cfgir.Node { return n.IDom })
	a.pdomFrontier = computeFrontier(a.order, func(n *cfgir.Node) []*cfgir.Node { return n.Succs }, func(n *cfgir.Node) *cfgir.Node { return n.IPDom })
}

// computeFrontier implements the classic O(E) frontier algorithm: for
// every node n with >=2 "predecessors" (predsOf, which is Preds for the
// dominance frontier and Succs for the post-dominance frontier), walk
// each predecessor p up its idom chain (idomOf), adding n to every node
// visited up to but not including idom(n).
func computeFrontier(order []*cfgir.Node, predsOf func(*cfgir.Node) []*cfgir.Node, idomOf func(*cfgir.Node) *cfgir.Node) map[*cfgir.Node][]*cfgir.Node {
	out := make(map[*cfgir.Node][]*cfgir.Node)
	seen := make(map[*cfgir.Node]map[*cfgir.Node]bool)
	add := func(runner, n *cfgir.Node) {
		s, ok := seen[runner]
		if !ok {
			s = make(map[*cfgir.Node]bool)
			seen[runner] = s
		}
		if !s[n] {
			s[n] = true
			out[runner] = append(out[runner], n)
		}
	}

	for _, n := range order {
		preds := predsOf(n)
		if len(preds) < 2 {
			continue
		}
		idomN := idomOf(n)
		for _, p := range preds {
			runner := p
			for runner != nil && runner != idomN {
				add(runner, n)
				nextIdom := idomOf(runner)
				if nextIdom == runner {
					break
				}
				runner = nextIdom
			}
		}
	}
	return out
}
