package structurize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a2flo/floor-llvm/internal/hostir"
)

func blockByName(t *testing.T, fn *hostir.Function, name string) hostir.BasicBlock {
	t.Helper()
	b, ok := fn.BlockByName(name)
	if !ok {
		t.Fatalf("expected output function to still contain block %q", name)
	}
	return b
}

// diamondFunction is scenario S1: a plain if/else with no loop involved.
func diamondFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "diamond",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c"}, True: "then", False: "else"}},
			{Name: "then", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "merge"}},
			{Name: "else", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "merge"}},
			{Name: "merge", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeDiamondAnnotatesSelectionMerge(t *testing.T) {
	res, err := Structurize(diamondFunction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := blockByName(t, res.Function, "entry")
	if entry.SelectionMerge != "merge" {
		t.Fatalf("expected entry's selection_merge to be merge, got %q", entry.SelectionMerge)
	}
	if len(res.Function.Blocks) != 4 {
		t.Fatalf("a plain diamond should need no synthesized blocks, got %d blocks", len(res.Function.Blocks))
	}
	if res.Passes < 1 {
		t.Fatalf("expected at least one completed pass")
	}
}

// simpleLoopFunction is a while-style loop: header conditionally enters the
// body (back edge to header) or falls through to the exit.
func simpleLoopFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "simple_loop",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "header"}},
			{Name: "header", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c"}, True: "body", False: "exit"}},
			{Name: "body", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "header"}},
			{Name: "exit", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeSimpleLoopAnnotatesLoopMergeAndContinue(t *testing.T) {
	res, err := Structurize(simpleLoopFunction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	header := blockByName(t, res.Function, "header")
	if header.LoopMerge != "exit" {
		t.Fatalf("expected header's loop_merge to be exit, got %q", header.LoopMerge)
	}
	if header.LoopContinue != "body" {
		t.Fatalf("expected header's loop_continue to be body, got %q", header.LoopContinue)
	}
}

// infiniteLoopFunction is scenario S4: a single self-looping block with no
// exit at all, and the entry block is the loop header itself.
func infiniteLoopFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "infinite_loop",
		Entry: "header",
		Blocks: []hostir.BasicBlock{
			{Name: "header", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "header"}},
		},
	}
}

func TestStructurizeInfiniteLoopSynthesizesUnreachableMerge(t *testing.T) {
	res, err := Structurize(infiniteLoopFunction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	header := blockByName(t, res.Function, "header")
	if header.LoopMerge == "" {
		t.Fatalf("expected a synthesized loop_merge for an infinite loop, got none")
	}
	merge := blockByName(t, res.Function, header.LoopMerge)
	if merge.Terminator.Kind != hostir.TermUnreachable {
		t.Fatalf("expected the synthesized merge to terminate in Unreachable, got %q", merge.Terminator.Kind)
	}
}

// switchFunction is scenario S6: a multi-way switch whose cases converge on
// one merge block.
func switchFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "switch_fn",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{
				Kind:     hostir.TermSwitch,
				Selector: hostir.Value{Name: "sel"},
				Cases: []hostir.SwitchArm{
					{Value: hostir.Value{Name: "0"}, Target: "case0"},
					{Value: hostir.Value{Name: "1"}, Target: "case1"},
					{IsDefault: true, Target: "default"},
				},
			}},
			{Name: "case0", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "merge"}},
			{Name: "case1", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "merge"}},
			{Name: "default", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "merge"}},
			{Name: "merge", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeSwitchSharesOneSelectionMerge(t *testing.T) {
	res, err := Structurize(switchFunction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := blockByName(t, res.Function, "entry")
	if entry.SelectionMerge != "merge" {
		t.Fatalf("expected entry's selection_merge to be merge, got %q", entry.SelectionMerge)
	}
}

// malformedPhiFunction exercises phi repair: a join block's phi is missing
// an incoming entry for one of its two real predecessors.
func malformedPhiFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "malformed_phi",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c"}, True: "a", False: "b"}},
			{Name: "a", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "join"}},
			{Name: "b", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "join"}},
			{
				Name: "join",
				Phis: []hostir.PhiRecord{{
					Target:   hostir.Value{Name: "v"},
					Incoming: []hostir.PhiIncoming{{Pred: "a", Value: hostir.Value{Name: "from_a"}}},
				}},
				Terminator: hostir.Terminator{Kind: hostir.TermReturn},
			},
		},
	}
}

func TestStructurizeRepairsMissingPhiIncomingWithWarning(t *testing.T) {
	res, err := Structurize(malformedPhiFunction(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.PhiWarnings) == 0 {
		t.Fatalf("expected at least one phi warning for the missing incoming entry")
	}
	join := blockByName(t, res.Function, "join")
	if len(join.Phis) != 1 || len(join.Phis[0].Incoming) != 2 {
		t.Fatalf("expected join's phi to have both incoming entries after repair, got %+v", join.Phis)
	}
}

// earlyExitLoopFunction is scenario S2: a loop header h unconditionally
// enters body header s, which either continues the loop (back edge via l)
// or escapes early via om; the loop's own normal exit (from h) goes
// through m2. Both early-exit (om) and normal-exit (m2) paths funnel into
// g, the loop's single post-dominating merge — so s's natural selection
// merge and the loop's own merge coincide, exercising a selection header
// living inside a loop body for the first time.
func earlyExitLoopFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "early_exit_loop",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "h"}},
			{Name: "h", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c1"}, True: "s", False: "m2"}},
			{Name: "s", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c2"}, True: "l", False: "om"}},
			{Name: "l", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "h"}},
			{Name: "m2", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "g"}},
			{Name: "om", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "g"}},
			{Name: "g", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeEarlyExitLoopSharesMergeWithNestedSelection(t *testing.T) {
	res, err := Structurize(earlyExitLoopFunction(), Options{})
	require.NoError(t, err)
	h := blockByName(t, res.Function, "h")
	if h.LoopMerge != "g" {
		t.Fatalf("expected h's loop_merge to be g, got %q", h.LoopMerge)
	}
	if h.LoopContinue != "l" {
		t.Fatalf("expected h's loop_continue to be l, got %q", h.LoopContinue)
	}
	s := blockByName(t, res.Function, "s")
	if s.SelectionMerge != "g" {
		t.Fatalf("expected s's selection_merge to resolve to the loop's own merge g, got %q", s.SelectionMerge)
	}
}

// irreducibleSharedMergeFunction is scenario S3, adapted: two Condition
// headers x and y with no dominance relationship between them, each of
// whose arms reconverge independently at the same post-dominator (shared).
// Since x and y can't legally share one physical merge, resolveImpossible-
// MergeConstructs must duplicate it for the header that loses the
// tie-break.
func irreducibleSharedMergeFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "irreducible_shared_merge",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c0"}, True: "x", False: "y"}},
			{Name: "x", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c1"}, True: "xa", False: "xb"}},
			{Name: "xa", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "shared"}},
			{Name: "xb", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "shared"}},
			{Name: "y", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c2"}, True: "ya", False: "yb"}},
			{Name: "ya", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "shared"}},
			{Name: "yb", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "shared"}},
			{Name: "shared", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeIrreducibleTwoHeadersDuplicateSharedMerge(t *testing.T) {
	res, err := Structurize(irreducibleSharedMergeFunction(), Options{})
	require.NoError(t, err)
	x := blockByName(t, res.Function, "x")
	y := blockByName(t, res.Function, "y")
	if x.SelectionMerge == "" || y.SelectionMerge == "" {
		t.Fatalf("expected both x and y to resolve a selection merge, got x=%q y=%q", x.SelectionMerge, y.SelectionMerge)
	}
	if x.SelectionMerge == y.SelectionMerge {
		t.Fatalf("expected x and y to resolve to distinct merge blocks after duplication, both got %q", x.SelectionMerge)
	}
	returns := 0
	for _, b := range res.Function.Blocks {
		if b.Terminator.Kind == hostir.TermReturn {
			returns++
		}
	}
	if returns != 2 {
		t.Fatalf("expected the shared merge to have been duplicated into exactly 2 Return blocks, got %d", returns)
	}
}

// transposedLoopFunction is a loop whose body contains two sibling headers
// (a and b) that each branch directly to the loop's merge, in addition to
// continuing the loop — the "transposed loop" shape RewriteTransposedLoops
// funnels through a single ladder before selection/merge resolution runs.
func transposedLoopFunction() *hostir.Function {
	return &hostir.Function{
		Name:  "transposed_loop",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "h"}},
			{Name: "h", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c0"}, True: "a", False: "b"}},
			{Name: "a", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c1"}, True: "m", False: "l"}},
			{Name: "b", Terminator: hostir.Terminator{Kind: hostir.TermCondition, Cond: hostir.Value{Name: "c2"}, True: "m", False: "l"}},
			{Name: "l", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "h"}},
			{Name: "m", Terminator: hostir.Terminator{Kind: hostir.TermReturn}},
		},
	}
}

func TestStructurizeTransposedLoopFunnelsBothDirectExitsThroughLadder(t *testing.T) {
	res, err := Structurize(transposedLoopFunction(), Options{})
	require.NoError(t, err)
	h := blockByName(t, res.Function, "h")
	if h.LoopContinue != "l" {
		t.Fatalf("expected h's loop_continue to be l, got %q", h.LoopContinue)
	}
	if h.LoopMerge == "" {
		t.Fatalf("expected h's loop_merge to be set")
	}
	merge := blockByName(t, res.Function, h.LoopMerge)
	directPreds := 0
	for _, b := range res.Function.Blocks {
		switch b.Terminator.Kind {
		case hostir.TermBranch:
			if b.Terminator.Target == merge.Name {
				directPreds++
			}
		case hostir.TermCondition:
			if b.Terminator.True == merge.Name {
				directPreds++
			}
			if b.Terminator.False == merge.Name {
				directPreds++
			}
		}
	}
	if directPreds > 1 {
		t.Fatalf("expected at most one direct branch into the loop merge after the transpose rewrite, got %d", directPreds)
	}
}

func TestStructurizeRejectsUnknownTerminatorTarget(t *testing.T) {
	fn := &hostir.Function{
		Name:  "broken",
		Entry: "entry",
		Blocks: []hostir.BasicBlock{
			{Name: "entry", Terminator: hostir.Terminator{Kind: hostir.TermBranch, Target: "nowhere"}},
		},
	}
	if _, err := Structurize(fn, Options{}); err == nil {
		t.Fatalf("expected an error for a branch target that doesn't exist among the function's blocks")
	}
}
