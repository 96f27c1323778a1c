// Package selection implements the Selection Engine (C5): selection-merge
// and switch-merge detection, and the break/ladder construction that keeps
// a construct's merge block a single choke point, from spec.md §4.5. It
// builds on C3's post-dominance (the natural merge candidate for a header
// is simply its immediate post-dominator — already the common
// post-dominator of every one of its successors, Condition or Switch alike,
// since post-dominance is computed once over the whole function) and on
// C6's CreateLadderBlock for the cases where that natural candidate isn't
// legal within the enclosing construct.
package selection

import (
	"sort"

	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/loopengine"
	"github.com/a2flo/floor-llvm/internal/rewriter"
)

// Selection is one header classified by FindSelections.
type Selection struct {
	Header   *cfgir.Node
	Merge    *cfgir.Node
	IsSwitch bool
	Ladder   bool // true if Merge is a synthesized fake_merge ladder
}

// FindSelections walks every Condition/Switch header that isn't already a
// loop header and assigns it a selection merge, stamping MergeSelection and
// MergeInfo.SelectionMergeBlock directly on the node (spec.md §4.5/§3).
func FindSelections(pool *cfgir.Pool, an *analysis.Analyses, nest *loopengine.Nest) []*Selection {
	var out []*Selection
	pool.ForEach(func(n *cfgir.Node) bool {
		if n.Merge == cfgir.MergeLoop {
			return true
		}
		switch n.Terminator.(type) {
		case cfgir.Condition, cfgir.Switch:
			out = append(out, resolveSelection(pool, an, nest, n))
		}
		return true
	})
	return out
}

func resolveSelection(pool *cfgir.Pool, an *analysis.Analyses, nest *loopengine.Nest, header *cfgir.Node) *Selection {
	_, isSwitch := header.Terminator.(cfgir.Switch)
	candidate := header.IPDom

	var mergeBlock *cfgir.Node
	ladder := false
	switch {
	case candidate == nil:
		// No common post-dominator: every arm dead-ends (return, infinite
		// loop, discard) without reconverging. Mirrors the loop engine's
		// infinite-loop handling (spec.md §4.4) — synthesize an unreachable
		// placeholder so I3's "merge block set" still holds.
		mergeBlock = pool.CreateNode(header.Name+".unreachable", true)
		mergeBlock.Terminator = cfgir.Unreachable{}
	case legalMerge(an, nest, header, candidate):
		mergeBlock = candidate
	default:
		mergeBlock = rewriter.CreateLadderBlock(pool, header, candidate, header.Name+".fake_merge")
		ladder = true
	}

	header.Merge = cfgir.MergeSelection
	header.MergeInfo.SelectionMergeBlock = mergeBlock
	return &Selection{Header: header, Merge: mergeBlock, IsSwitch: isSwitch, Ladder: ladder}
}

// legalMerge reports whether candidate is reachable from header's arms
// without the natural merge escaping an enclosing loop except through that
// loop's own merge or continue block (spec.md §4.5 "filtered": must not
// cross an enclosing loop's merge or continue except legally).
//
// The exact-equality check against the loop's own merge/continue handles
// the common case (a selection inside the loop body whose natural
// post-dominator is that same choke point). The post-dominance frontier
// closure generalizes it: a candidate that reconverges with merge or
// continue a few blocks further out — without first crossing back into
// the loop body — still flows through that same choke point and is legal
// to use directly, rather than forcing a ladder the loop's own merge
// already provides.
func legalMerge(an *analysis.Analyses, nest *loopengine.Nest, header, candidate *cfgir.Node) bool {
	enclosing := nest.InnermostLoop(header)
	if enclosing == nil {
		return true
	}
	if enclosing.Contains(candidate) {
		return true
	}
	if candidate == enclosing.Merge || candidate == enclosing.Continue {
		return true
	}
	if enclosing.Merge != nil && reachesViaPostDominanceFrontier(an, enclosing.Merge, candidate) {
		return true
	}
	if enclosing.Continue != nil && reachesViaPostDominanceFrontier(an, enclosing.Continue, candidate) {
		return true
	}
	return false
}

// reachesViaPostDominanceFrontier reports whether target is reachable from
// def by repeatedly stepping through the post-dominance frontier relation
// (spec.md §4.6's phi_frontier_makes_forward_progress, applied here to the
// same "does this choke point still govern that block" question).
func reachesViaPostDominanceFrontier(an *analysis.Analyses, def, target *cfgir.Node) bool {
	visited := map[*cfgir.Node]bool{def: true}
	queue := []*cfgir.Node{def}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, f := range an.PostDominanceFrontier(cur) {
			if f == target {
				return true
			}
			if !visited[f] {
				visited[f] = true
				queue = append(queue, f)
			}
		}
	}
	return false
}

// TieBreak picks the deterministic winner among competing merge candidates
// per spec.md §4.5: smallest forward post-visit index first, then name as
// the stable secondary key (spec.md §9 "every tie-break must consult a
// stable secondary key").
func TieBreak(candidates []*cfgir.Node) *cfgir.Node {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*cfgir.Node(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].FwdPostVisit != sorted[j].FwdPostVisit {
			return sorted[i].FwdPostVisit < sorted[j].FwdPostVisit
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted[0]
}
