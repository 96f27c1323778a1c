package analysis

import "github.com/a2flo/floor-llvm/internal/cfgir"

// postorder computes a DFS postorder traversal from root using succsOf,
// along with the set of back edges discovered along the way (an edge u->v
// is a back edge iff v is on the DFS recursion stack when u is explored,
// i.e. v is an ancestor of u in the DFS tree — spec.md §4.4).
//
// Ported from the teacher's iterative postorderWithNumbering (dom.go),
// generalized to an arbitrary successor function so it can drive both the
// forward dominance pass and the reverse (post-dominance) pass.
func postorder(root *cfgir.Node, succsOf func(*cfgir.Node) []*cfgir.Node) (order []*cfgir.Node, backEdges map[edge]bool) {
	const (
		unseen = iota
		onStack
		done
	)
	state := map[*cfgir.Node]int{}
	backEdges = map[edge]bool{}

	type frame struct {
		n   *cfgir.Node
		idx int
	}
	stack := []frame{{n: root}}
	state[root] = onStack

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := succsOf(top.n)
		if top.idx < len(succs) {
			s := succs[top.idx]
			top.idx++
			switch state[s] {
			case unseen:
				state[s] = onStack
				stack = append(stack, frame{n: s})
			case onStack:
				backEdges[edge{top.n, s}] = true
			case done:
				// cross/forward edge, nothing to record here.
			}
			continue
		}
		state[top.n] = done
		order = append(order, top.n)
		stack = stack[:len(stack)-1]
	}
	return order, backEdges
}

type edge struct{ from, to *cfgir.Node }

// computeIdom computes the immediate dominator of every node in rpo (the
// reverse postorder with rpo[0] == root) using Cooper–Harvey–Kennedy
// iterative intersection. Ported from wazevo's calculateDominators /
// intersect (other_examples pass_cfg.go), itself the same algorithm as the
// teacher's dom.go intersect but phrased over reverse-postorder index
// comparison instead of plain postorder.
func computeIdom(rpo []*cfgir.Node, predsOf func(*cfgir.Node) []*cfgir.Node) map[*cfgir.Node]*cfgir.Node {
	rpoIndex := make(map[*cfgir.Node]int, len(rpo))
	for i, n := range rpo {
		rpoIndex[n] = i
	}
	doms := make(map[*cfgir.Node]*cfgir.Node, len(rpo))
	root := rpo[0]
	doms[root] = root

	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom *cfgir.Node
			for _, p := range predsOf(b) {
				if doms[p] == nil {
					continue // predecessor not yet processed this pass
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(doms, rpoIndex, newIdom, p)
			}
			if newIdom != nil && doms[b] != newIdom {
				doms[b] = newIdom
				changed = true
			}
		}
	}
	return doms
}

func intersect(doms map[*cfgir.Node]*cfgir.Node, rpoIndex map[*cfgir.Node]int, a, b *cfgir.Node) *cfgir.Node {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = doms[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = doms[b]
		}
	}
	return a
}

func reverseOf(order []*cfgir.Node) []*cfgir.Node {
	rpo := make([]*cfgir.Node, len(order))
	for i, n := range order {
		rpo[len(order)-1-i] = n
	}
	return rpo
}
