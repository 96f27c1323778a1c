// Package cfgir is the node pool (C1) and per-block data model (C2) the
// rest of the structurizer operates on. It owns every node; every other
// package holds non-owning references (*Node) into a Pool.
package cfgir

// Value is an opaque host-IR value (an SSA operand, a constant, whatever
// the front end produced). The structurizer never inspects it — it only
// threads it through phi incoming pairs and condition/switch selectors.
type Value interface {
	ValueName() string
}

// SyntheticValue is a Value minted by the structurizer itself — e.g. a
// fresh phi target introduced on a synthesized continue or ladder block —
// rather than one that came from the host IR. It lets packages other than
// the IR translator mint valid Values without depending on a concrete
// host-IR type.
type SyntheticValue string

// ValueName implements Value.
func (s SyntheticValue) ValueName() string { return string(s) }

// Instruction is an opaque host-IR instruction. The structurizer preserves
// and rewires these without understanding their semantics.
type Instruction interface {
	InstructionName() string
}

// MergeKind classifies how a node's outgoing control flow is annotated.
type MergeKind uint8

const (
	MergeNone MergeKind = iota
	MergeSelection
	MergeLoop
)

func (k MergeKind) String() string {
	switch k {
	case MergeSelection:
		return "Selection"
	case MergeLoop:
		return "Loop"
	default:
		return "None"
	}
}

// MergeInfo carries the merge/continue targets for an annotated header.
// Only the fields relevant to the node's MergeKind are meaningful.
type MergeInfo struct {
	// Loop
	MergeBlock    *Node
	ContinueBlock *Node

	// Selection
	SelectionMergeBlock *Node
	SelectionMergeExit  bool
}

// PhiIncoming is one (predecessor, value) pair of a phi record.
type PhiIncoming struct {
	Pred  *Node
	Value Value
}

// Phi is a phi record: a target value defined by merging incoming values
// from predecessors.
type Phi struct {
	Target   Value
	Incoming []PhiIncoming
}

// IncomingFor returns the incoming pair for pred, and whether it exists.
func (p *Phi) IncomingFor(pred *Node) (PhiIncoming, bool) {
	for _, in := range p.Incoming {
		if in.Pred == pred {
			return in, true
		}
	}
	return PhiIncoming{}, false
}

// RemoveIncoming drops the incoming entry for pred, if present.
func (p *Phi) RemoveIncoming(pred *Node) {
	out := p.Incoming[:0]
	for _, in := range p.Incoming {
		if in.Pred != pred {
			out = append(out, in)
		}
	}
	p.Incoming = out
}

// Node represents one basic block in the CFG being structurized.
type Node struct {
	ID   int
	Name string

	Preds []*Node
	Succs []*Node

	Ops         []Instruction
	Phis        []*Phi
	Terminator  Terminator
	PhiOverride *Node // replacement predecessor used when split; consulted at emission

	Merge     MergeKind
	MergeInfo MergeInfo

	IDom  *Node // immediate dominator
	IPDom *Node // immediate post-dominator
	Depth int   // depth in the dominator tree, root = 0

	// forward/backward post-visit ranks, assigned by the analysis pass;
	// used for deterministic tie-breaks (spec.md §4.5) and for ordering
	// the post-dominator intersection walk. Dominates/PostDominates do not
	// read them; they walk the IDom/IPDom chain.
	FwdPostVisit  int32
	BackPostVisit int32

	synthetic bool // true for ladder/fake_*/merge/continue helper blocks
}

// IsSynthetic reports whether this node was inserted by the structurizer
// rather than imported from the host IR.
func (n *Node) IsSynthetic() bool { return n.synthetic }

// AddBranch appends target to n.Succs and n to target.Preds, maintaining I1.
func (n *Node) AddBranch(target *Node) {
	n.Succs = append(n.Succs, target)
	target.Preds = append(target.Preds, n)
}

// RetargetBranch replaces old with newT in n.Succs, fixing up both sides'
// pred/succ lists, and rewrites n.Terminator's own target field(s) to
// match — Succs is derived bookkeeping, but Terminator is what Emit
// actually reads (irtranslate/emit.go's exportTerminator), so the two must
// never be allowed to drift apart. All occurrences of old are replaced (a
// node may branch to the same target twice only via Switch cases, each
// handled by the caller individually).
func (n *Node) RetargetBranch(old, newT *Node) {
	for i, s := range n.Succs {
		if s == old {
			n.Succs[i] = newT
		}
	}
	old.removePred(n)
	newT.Preds = append(newT.Preds, n)
	n.retargetTerminator(old, newT)
}

// retargetTerminator rewrites n.Terminator's concrete target field(s) from
// old to newT, mirroring the Succs edit RetargetBranch just made.
func (n *Node) retargetTerminator(old, newT *Node) {
	switch t := n.Terminator.(type) {
	case Branch:
		if t.Target == old {
			t.Target = newT
			n.Terminator = t
		}
	case Condition:
		if t.True == old {
			t.True = newT
		}
		if t.False == old {
			t.False = newT
		}
		n.Terminator = t
	case Switch:
		for i, c := range t.Cases {
			if c.Target == old {
				t.Cases[i].Target = newT
			}
		}
		n.Terminator = t
	}
}

// ReplacePred replaces old with newP in n.Preds. Does not touch newP's
// successor list; callers that want a consistent I1 must also call
// newP.AddBranch or equivalent on the other side.
func (n *Node) ReplacePred(old, newP *Node) {
	for i, p := range n.Preds {
		if p == old {
			n.Preds[i] = newP
		}
	}
}

// ReplaceSucc replaces old with newS in n.Succs, without touching preds.
func (n *Node) ReplaceSucc(old, newS *Node) {
	for i, s := range n.Succs {
		if s == old {
			n.Succs[i] = newS
		}
	}
}

// SeverSucc removes the n->s edge on both sides, without introducing a
// replacement. Used when a node is being folded away entirely (e.g.
// MergeToSucc) rather than retargeted.
func (n *Node) SeverSucc(s *Node) {
	n.removeSucc(s)
	s.removePred(n)
}

// SeverPred removes the p->n edge on both sides.
func (n *Node) SeverPred(p *Node) {
	n.removePred(p)
	p.removeSucc(n)
}

func (n *Node) removePred(p *Node) {
	out := n.Preds[:0]
	for _, pr := range n.Preds {
		if pr != p {
			out = append(out, pr)
		}
	}
	n.Preds = out
}

func (n *Node) removeSucc(s *Node) {
	out := n.Succs[:0]
	for _, sc := range n.Succs {
		if sc != s {
			out = append(out, sc)
		}
	}
	n.Succs = out
}

// Dominates reports whether n dominates other, using the immediate
// dominator chain populated by the analysis pass. O(depth) — the same
// complexity class as the teacher's dom-chain intersect walk in dom.go,
// adequate since CFG depth is bounded by function size.
func (n *Node) Dominates(other *Node) bool {
	if other.IDom == nil && other != n {
		return false // unreachable node: dominated by nothing
	}
	cur := other
	for {
		if cur == n {
			return true
		}
		if cur.IDom == nil || cur.IDom == cur {
			return cur == n
		}
		cur = cur.IDom
	}
}

// PostDominates reports whether n post-dominates other, via the immediate
// post-dominator chain.
func (n *Node) PostDominates(other *Node) bool {
	cur := other
	for {
		if cur == n {
			return true
		}
		if cur.IPDom == nil || cur.IPDom == cur {
			return cur == n
		}
		cur = cur.IPDom
	}
}

// StrictlyDominates reports whether n dominates other and n != other.
func (n *Node) StrictlyDominates(other *Node) bool {
	return n != other && n.Dominates(other)
}

// EffectivePreds returns n's predecessors, substituting a predecessor's
// PhiOverride target when set (spec.md §9 phi-override map). This is the
// domain every phi on n must match exactly once the CFG stabilizes (I5).
func EffectivePreds(n *Node) []*Node {
	out := make([]*Node, 0, len(n.Preds))
	for _, p := range n.Preds {
		if p.PhiOverride != nil {
			out = append(out, p.PhiOverride)
		} else {
			out = append(out, p)
		}
	}
	return out
}
