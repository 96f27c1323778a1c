package loopengine

import (
	"sort"

	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
)

// FindLoops implements the bulk of C4 (spec.md §4.4): back-edge-derived
// header discovery, body/exit classification and merge/continue
// assignment, finished with a Bourdoncle-style nesting pass (depth, outer)
// ported from the teacher's loopnest shape (regalloc_scc.go / likelyadjust.go
// loopnestfor) — same tree structure, new payload: merge/continue targets
// instead of live-range info.
//
// Callers should have already run RewriteMultipleBackEdges so each header
// has at most one back-edge predecessor (P3); FindLoops tolerates more than
// one defensively by picking the source with the lowest forward-post-visit
// index as the continue candidate, but the driver never relies on that
// fallback in ordinary operation.
func FindLoops(pool *cfgir.Pool, an *analysis.Analyses) *Nest {
	backEdgesByHeader := map[*cfgir.Node][]*cfgir.Node{}
	pool.ForEach(func(n *cfgir.Node) bool {
		for _, s := range n.Succs {
			if an.IsBackEdge(n, s) {
				backEdgesByHeader[s] = append(backEdgesByHeader[s], n)
			}
		}
		return true
	})

	headers := make([]*cfgir.Node, 0, len(backEdgesByHeader))
	for h := range backEdgesByHeader {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].FwdPostVisit < headers[j].FwdPostVisit })

	nest := &Nest{ByHeader: map[*cfgir.Node]*Loop{}}
	for _, header := range headers {
		sources := backEdgesByHeader[header]
		continueNode := sources[0]
		for _, s := range sources[1:] {
			if s.FwdPostVisit < continueNode.FwdPostVisit {
				continueNode = s
			}
		}

		body := computeBody(header, continueNode, an, pool)
		exits := classifyExits(header, continueNode, body, headers, an)
		merge, infinite := selectMerge(pool, header, exits)

		loop := &Loop{
			Header:   header,
			Continue: continueNode,
			Merge:    merge,
			Infinite: infinite,
			State:    MergeChosen,
			body:     body,
		}
		nest.Loops = append(nest.Loops, loop)
		nest.ByHeader[header] = loop
	}

	assignNesting(nest)
	return nest
}

// assignNesting sets Depth/Outer by finding, for each loop, the other loop
// whose body contains this loop's header — the tightest one, i.e. the
// candidate whose own header sits deepest in the dominator tree — as the
// immediate enclosing loop. This is Bourdoncle's "innermost enclosing SCC"
// relation restated over the body sets this package already computes,
// rather than the teacher's own SCC-partition construction (regalloc_scc.go
// processLoop), since body membership here already comes from dominance and
// back-edge reachability instead of an explicit SCC pass.
func assignNesting(nest *Nest) {
	for _, l := range nest.Loops {
		var outer *Loop
		for _, candidate := range nest.Loops {
			if candidate == l {
				continue
			}
			if candidate.body[l.Header] && (outer == nil || candidate.Header.Depth > outer.Header.Depth) {
				outer = candidate
			}
		}
		l.Outer = outer
	}

	memo := map[*Loop]int{}
	var depthOf func(l *Loop) int
	depthOf = func(l *Loop) int {
		if l.Outer == nil {
			return 0
		}
		if d, ok := memo[l]; ok {
			return d
		}
		d := depthOf(l.Outer) + 1
		memo[l] = d
		return d
	}
	for _, l := range nest.Loops {
		l.Depth = depthOf(l)
	}
}

// ApplyAnnotations stamps each loop's header with MergeLoop and its chosen
// merge/continue targets (spec.md §3 merge_info), satisfying I3. The driver
// calls this right after FindLoops (spec.md §2 step 2), and again on the
// recomputed nest when RewriteTransposedLoops has changed the graph.
func (n *Nest) ApplyAnnotations() {
	for _, l := range n.Loops {
		l.Header.Merge = cfgir.MergeLoop
		l.Header.MergeInfo.MergeBlock = l.Merge
		l.Header.MergeInfo.ContinueBlock = l.Continue
		l.State = Finalized
	}
}
