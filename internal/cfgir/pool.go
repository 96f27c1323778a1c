package cfgir

import "fmt"

// Pool owns every Node in a function's CFG. All other components hold
// non-owning *Node references; removal is only legal through the pool
// (spec.md §3 "Ownership").
type Pool struct {
	nodes  []*Node
	byName map[string]int // base name -> times requested so far, for disambiguation
	nextID int
}

// NewPool returns an empty node pool.
func NewPool() *Pool {
	return &Pool{byName: make(map[string]int)}
}

// CreateNode allocates and registers a new node. synthetic blocks created
// by the rewriter/loop engine pass synthetic=true, which IsSynthetic
// reports back to tell them apart from imported blocks.
func (p *Pool) CreateNode(name string, synthetic bool) *Node {
	n := &Node{
		ID:        p.nextID,
		Name:      uniqueName(p, name),
		synthetic: synthetic,
	}
	p.nextID++
	p.nodes = append(p.nodes, n)
	return n
}

func uniqueName(p *Pool, base string) string {
	n, ok := p.byName[base]
	p.byName[base]++
	if !ok || n == 0 {
		return base
	}
	return fmt.Sprintf("%s.%d", base, n)
}

// RemoveNode unlinks n from the pool. The caller must have already severed
// n's predecessor/successor edges on both sides (I1 must hold for the
// surviving graph before removal).
func (p *Pool) RemoveNode(n *Node) error {
	if len(n.Preds) != 0 || len(n.Succs) != 0 {
		return fmt.Errorf("cfgir: cannot remove node %s with dangling edges (preds=%d succs=%d)",
			n.Name, len(n.Preds), len(n.Succs))
	}
	for i, b := range p.nodes {
		if b == n {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cfgir: node %s not registered in this pool", n.Name)
}

// ForEach iterates all live nodes in stable creation order. fn returning
// false stops the iteration early.
func (p *Pool) ForEach(fn func(*Node) bool) {
	for _, n := range p.nodes {
		if !fn(n) {
			return
		}
	}
}

// Nodes returns a snapshot slice of all live nodes in stable order.
func (p *Pool) Nodes() []*Node {
	out := make([]*Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Len reports the number of live nodes.
func (p *Pool) Len() int { return len(p.nodes) }

// NodeByName returns the first live node with the given name, or nil.
func (p *Pool) NodeByName(name string) *Node {
	for _, n := range p.nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// PruneUnreachable removes every node not present in reachable, severing
// its edges first. Used by the rewriter's dead-predecessor pruning (C6)
// and by the driver's final cleanup pass.
func (p *Pool) PruneUnreachable(reachable map[*Node]bool) {
	var dead []*Node
	p.ForEach(func(n *Node) bool {
		if !reachable[n] {
			dead = append(dead, n)
		}
		return true
	})
	for _, n := range dead {
		for _, s := range append([]*Node(nil), n.Succs...) {
			n.removeSucc(s)
			s.removePred(n)
		}
		for _, pr := range append([]*Node(nil), n.Preds...) {
			pr.removeSucc(n)
			n.removePred(pr)
		}
		for _, live := range p.nodes {
			for _, ph := range live.Phis {
				ph.RemoveIncoming(n)
			}
		}
		_ = p.RemoveNode(n)
	}
}
