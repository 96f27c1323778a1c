// Package rewriter implements the Rewriter (C6): node duplication, helper
// block insertion, phi insertion/repair, degenerate-block elimination and
// dead-predecessor pruning from spec.md §4.6.
package rewriter

import (
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// CanDuplicatePhis reports whether n's phis may be cloned onto a duplicate
// of n. Disallowed when a phi's target value is itself one of the
// incoming values on a self edge — cloning would require renaming the
// cycle through the new node, which duplicate_node does not attempt
// (spec.md §4.6 "only when the node's phis have no cycle with values
// defined in n itself").
func CanDuplicatePhis(n *cfgir.Node) bool {
	for _, ph := range n.Phis {
		for _, in := range ph.Incoming {
			if in.Pred == n && in.Value.ValueName() == ph.Target.ValueName() {
				return false
			}
		}
	}
	return true
}

// DuplicateNode clones n's operations and terminator into a fresh node,
// rewires the given subset of n's predecessors onto the clone, and clones
// n's phis (dropping the incoming entries that now belong to the clone's
// predecessor subset away from n and vice versa) when CanDuplicatePhis
// allows it. Used to resolve "impossible merge constructs" where two
// structured constructs would otherwise have to share one merge block
// (spec.md §4.6).
func DuplicateNode(pool *cfgir.Pool, n *cfgir.Node, rewire []*cfgir.Node) *cfgir.Node {
	clone := pool.CreateNode(n.Name+".dup", true)
	clone.Ops = append(clone.Ops, n.Ops...)
	clone.Terminator = n.Terminator
	for _, s := range cfgir.TerminatorTargets(n.Terminator) {
		clone.AddBranch(s)
	}

	rewireSet := make(map[*cfgir.Node]bool, len(rewire))
	for _, p := range rewire {
		rewireSet[p] = true
	}

	canClonePhis := CanDuplicatePhis(n)
	if canClonePhis {
		for _, ph := range n.Phis {
			cp := &cfgir.Phi{Target: ph.Target}
			for _, in := range ph.Incoming {
				if rewireSet[in.Pred] {
					cp.Incoming = append(cp.Incoming, in)
				}
			}
			clone.Phis = append(clone.Phis, cp)
		}
	}

	for _, p := range rewire {
		p.RetargetBranch(n, clone)
		if canClonePhis {
			for _, ph := range n.Phis {
				ph.RemoveIncoming(p)
			}
		}
	}
	return clone
}
