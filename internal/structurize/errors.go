package structurize

import (
	"github.com/pkg/errors"

	"github.com/a2flo/floor-llvm/internal/irtranslate"
)

// Error kinds from spec.md §7. ErrUnsupportedTerminator is irtranslate's own
// sentinel re-exported here since import-time translation is where it's
// actually raised; the other two are specific to the fixed-point driver.
var (
	ErrUnsupportedTerminator = irtranslate.ErrUnsupportedTerminator

	// ErrNonConvergent is returned when the CFG has not stabilized within
	// MaxPasses iterations.
	ErrNonConvergent = errors.New("structurize: CFG did not stabilize within the pass budget")

	// ErrIrreducibleRemainder is returned when invariant checking after
	// stabilization still finds violations — spec.md §7 treats a remaining
	// irreducible SCC as NonConvergent, so this wraps the same sentinel
	// family rather than introducing a fourth independent condition to check.
	ErrIrreducibleRemainder = errors.WithMessage(ErrNonConvergent, "structurize: irreducible control flow remained after back-edge and transposed-loop rewriting")
)
