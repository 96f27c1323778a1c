// Package structurize implements the fixed-point driver of spec.md §2: the
// bounded pass loop that repeatedly runs the loop engine (C4), selection
// engine (C5) and rewriter (C6) over the analyses (C3) until the CFG shape
// stabilizes, then hands off to the IR translator (C7) for emission.
// Grounded on the teacher's regalloc_scc.go dispatch-by-CFG-shape style:
// where the teacher picks a code path per call based on loop nesting shape,
// this driver re-derives that shape every pass and decides whether another
// pass is needed from the dirty bit each step reports.
package structurize

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/a2flo/floor-llvm/internal/analysis"
	"github.com/a2flo/floor-llvm/internal/cfgir"
	"github.com/a2flo/floor-llvm/internal/hostir"
	"github.com/a2flo/floor-llvm/internal/irtranslate"
	"github.com/a2flo/floor-llvm/internal/loopengine"
	"github.com/a2flo/floor-llvm/internal/rewriter"
	"github.com/a2flo/floor-llvm/internal/selection"
)

// DefaultMaxPasses is spec.md §4's recommended MAX_PASSES.
const DefaultMaxPasses = 16

// Options configures a Structurize run. The zero value uses DefaultMaxPasses
// and a disabled logger.
type Options struct {
	MaxPasses int
	Logger    zerolog.Logger
}

// Result is the outcome of a successful Structurize call.
type Result struct {
	Function    *hostir.Function
	Passes      int
	PhiWarnings []rewriter.PhiWarning
}

// Structurize is the API surface named in spec.md §6:
// structurize(function, pool, entry) -> Result, modeled here as a plain
// function over the opaque host function since Import/Emit already own the
// pool-and-entry bookkeeping on the caller's behalf.
func Structurize(fn *hostir.Function, opts Options) (Result, error) {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	log := opts.Logger

	pool, entry, err := irtranslate.Import(fn)
	if err != nil {
		return Result{}, errors.Wrap(err, "structurize: import")
	}

	var warnings []rewriter.PhiWarning
	pass := 0
	for ; pass < maxPasses; pass++ {
		an := analysis.Compute(pool, entry)
		dirty := false

		// Step 1: rewrite multiple back-edges (P3).
		if loopengine.RewriteMultipleBackEdges(pool, an) {
			dirty = true
			an = analysis.Compute(pool, entry)
		}

		// Step 2: find loops, assign merge/continue (C4).
		nest := loopengine.FindLoops(pool, an)
		nest.ApplyAnnotations()

		// Step 3: rewrite transposed loops.
		if loopengine.RewriteTransposedLoops(pool, nest) {
			dirty = true
			an = analysis.Compute(pool, entry)
			nest = loopengine.FindLoops(pool, an)
			nest.ApplyAnnotations()
		}

		// Step 4: find selection merges and switch blocks (C5).
		selection.FindSelections(pool, an, nest)

		// Step 5: duplicate impossible merge constructs (C6).
		if resolveImpossibleMergeConstructs(pool) {
			dirty = true
			an = analysis.Compute(pool, entry)
		}

		// Step 6/7: rewrite invalid breaks is folded into step 4's ladder
		// construction; merge scopes are not split here, only degenerate
		// blocks are eliminated.
		if rewriter.EliminateDegenerate(pool, entry) {
			dirty = true
			an = analysis.Compute(pool, entry)
		}

		// Step 8: insert/repair phi nodes for freshly created control flow.
		warnings = rewriter.RepairPhis(pool, an)

		log.Debug().
			Int("pass", pass).
			Int("nodes", pool.Len()).
			Bool("dirty", dirty).
			Msg("structurize: pass complete")

		if !dirty {
			break
		}
	}
	if pass >= maxPasses {
		return Result{}, errors.Wrap(ErrNonConvergent, "structurize")
	}

	rewriter.PruneDeadPredecessors(pool, entry)
	irtranslate.WrapFakeSelections(pool)

	if errs := cfgir.Validate(pool, entry); len(errs) > 0 {
		log.Error().Errs("violations", errs).Msg("structurize: invariants failed after stabilization")
		return Result{}, errors.Wrapf(ErrIrreducibleRemainder, "%d invariant violations, first: %v", len(errs), errs[0])
	}

	out := irtranslate.Emit(pool, entry)
	return Result{Function: out, Passes: pass + 1, PhiWarnings: warnings}, nil
}
