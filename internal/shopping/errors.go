package shopping

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means the call carried no user. Nothing was written.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrStoreUnavailable wraps every failure of the backing store. The caller
	// decides whether to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// storeErr marks err as a store outage. Cancellation and deadlines belong to
// the caller and pass through unmarked.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
