// Package predict turns scan history into restock predictions. Everything
// here is a pure function of its inputs; callers supply the clock.
package predict

import (
	"fmt"
	"time"
)

// Policy holds the tunable constants of the restock heuristic.
type Policy struct {
	// SuggestRatio is the fraction of the average repurchase interval after
	// which an item is suggested.
	SuggestRatio float64
	// SaturationCount is the number of scan-ins at which confidence reaches 1.
	SaturationCount int
}

func DefaultPolicy() Policy {
	return Policy{SuggestRatio: 0.7, SaturationCount: 5}
}

func (p Policy) Validate() error {
	if p.SuggestRatio <= 0 {
		return fmt.Errorf("suggest ratio must be positive, got %v", p.SuggestRatio)
	}
	if p.SaturationCount < 1 {
		return fmt.Errorf("saturation count must be at least 1, got %d", p.SaturationCount)
	}
	return nil
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
