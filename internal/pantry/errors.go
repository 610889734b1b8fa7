package pantry

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/larder/internal/shopping"
)

// storeErr marks err as a store outage. Cancellation and deadlines belong to
// the caller and pass through unmarked.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, shopping.ErrStoreUnavailable, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{shopping.ErrInvalidInput}, args...)...)
}
