package loopengine

import "github.com/a2flo/floor-llvm/internal/cfgir"

// selectMerge picks the loop merge per spec.md §4.4: the common
// post-dominator of every non-continue exit target. If no such node exists
// — including the "zero exits" case of scenario S4 — the loop is infinite
// and a synthetic unreachable merge is created, preserving I3's "or has one
// fake block synthesized" escape hatch.
func selectMerge(pool *cfgir.Pool, header *cfgir.Node, exits []LoopExit) (merge *cfgir.Node, infinite bool) {
	seen := map[*cfgir.Node]bool{}
	var targets []*cfgir.Node
	for _, e := range exits {
		if e.Kind == DominatedContinueExit {
			continue
		}
		if !seen[e.To] {
			seen[e.To] = true
			targets = append(targets, e.To)
		}
	}
	if len(targets) == 0 {
		return synthesizeUnreachableMerge(pool, header), true
	}
	if m := commonPostDom(targets); m != nil {
		return m, false
	}
	return synthesizeUnreachableMerge(pool, header), true
}

func synthesizeUnreachableMerge(pool *cfgir.Pool, header *cfgir.Node) *cfgir.Node {
	m := pool.CreateNode(header.Name+".unreachable", true)
	m.Terminator = cfgir.Unreachable{}
	return m
}

// commonPostDom folds pairwise post-dominator-chain intersection over the
// whole set, mirroring the teacher's dom.go intersect idiom but walking
// IPDom chains ordered by BackPostVisit instead of IDom chains ordered by
// forward post-visit index.
func commonPostDom(nodes []*cfgir.Node) *cfgir.Node {
	if len(nodes) == 0 {
		return nil
	}
	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = pdIntersect(acc, n)
		if acc == nil {
			return nil
		}
	}
	return acc
}

func pdIntersect(a, b *cfgir.Node) *cfgir.Node {
	for a != nil && b != nil && a != b {
		for a != nil && b != nil && a.BackPostVisit > b.BackPostVisit {
			a = a.IPDom
		}
		for a != nil && b != nil && b.BackPostVisit > a.BackPostVisit {
			b = b.IPDom
		}
	}
	if a == nil || b == nil {
		return nil
	}
	return a
}
