package sweep

import (
	"context"

	"showsweep/internal/actions"
)

// Chooser picks the disposition for an eligible series.
type Chooser interface {
	Choose(ctx context.Context, decision Decision) (actions.Disposition, error)
}

// FixedChooser applies the same disposition to every series.
type FixedChooser actions.Disposition

// Choose returns the fixed disposition, or keep when unset.
func (f FixedChooser) Choose(context.Context, Decision) (actions.Disposition, error) {
	if f == "" {
		return actions.Keep, nil
	}
	return actions.Disposition(f), nil
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, decision Decision) (actions.Disposition, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, decision Decision) (actions.Disposition, error) {
	return f(ctx, decision)
}
