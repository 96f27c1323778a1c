package loopengine

import (
	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// ExitKind tags one edge leaving a loop body per spec.md §4.4's taxonomy.
type ExitKind uint8

const (
	DominatedExit ExitKind = iota
	InnerDominatedExit
	NonDominatedExit
	DominatedContinueExit
)

func (k ExitKind) String() string {
	switch k {
	case InnerDominatedExit:
		return "InnerDominatedExit"
	case NonDominatedExit:
		return "NonDominatedExit"
	case DominatedContinueExit:
		return "DominatedContinueExit"
	default:
		return "DominatedExit"
	}
}

// LoopExit is one classified edge leaving the body of a loop.
type LoopExit struct {
	From *cfgir.Node
	To   *cfgir.Node
	Kind ExitKind
}

// computeBody returns the set of nodes dominated by header that can reach
// header through a back edge (spec.md §4.4 "nodes dominated by H that can
// reach H"). header itself is always a member.
func computeBody(header, continueNode *cfgir.Node, an *analysis.Analyses, pool *cfgir.Pool) map[*cfgir.Node]bool {
	body := map[*cfgir.Node]bool{header: true}
	pool.ForEach(func(n *cfgir.Node) bool {
		if n == header {
			return true
		}
		if header.Dominates(n) && an.QueryReachabilityThroughBackEdges(n, header) {
			body[n] = true
		}
		return true
	})
	return body
}

// classifyExits walks every edge leaving the loop body and tags it.
// Continue-reaching exits are identified first since they are excluded from
// merge selection (spec.md §4.4 "computed with the continue block
// ignored"); the rest are tagged dominated/inner-dominated/non-dominated.
// The selection engine does not read these finer tags, and merge
// selection itself consumes every remaining exit target regardless of
// them.
func classifyExits(header, continueNode *cfgir.Node, body map[*cfgir.Node]bool, otherHeaders []*cfgir.Node, an *analysis.Analyses) []LoopExit {
	var exits []LoopExit
	type key struct{ from, to *cfgir.Node }
	seen := map[key]bool{}
	for n := range body {
		for _, s := range n.Succs {
			if body[s] {
				continue
			}
			k := key{n, s}
			if seen[k] {
				continue
			}
			seen[k] = true
			exits = append(exits, LoopExit{From: n, To: s, Kind: classifyExitTarget(header, continueNode, s, otherHeaders, an)})
		}
	}
	return exits
}

func classifyExitTarget(header, continueNode, target *cfgir.Node, otherHeaders []*cfgir.Node, an *analysis.Analyses) ExitKind {
	if continueNode != nil && (target == continueNode || an.QueryReachability(target, continueNode)) {
		return DominatedContinueExit
	}
	if !header.Dominates(target) {
		return NonDominatedExit
	}
	for _, h2 := range otherHeaders {
		if h2 == header {
			continue
		}
		if header.StrictlyDominates(h2) && h2.Dominates(target) {
			return InnerDominatedExit
		}
	}
	return DominatedExit
}
