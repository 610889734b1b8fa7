package predict

import (
	"time"

	"github.com/dukerupert/larder/internal/model"
)

// ShouldSuggestRestock reports whether the item has passed SuggestRatio of
// its average repurchase interval since it was last used up.
func (p Policy) ShouldSuggestRestock(r Record) bool {
	return r.DaysSinceLastScanOut >= r.AverageIntervalDays*p.SuggestRatio
}

// DaysUntilRestock is negative once the average repurchase point has passed.
func DaysUntilRestock(r Record) float64 {
	return r.AverageIntervalDays - r.DaysSinceLastScanOut
}

// NoRestockDays stands in for "never" when nothing is being consumed.
const NoRestockDays = 999

// ConsumptionRate is units scanned out per day between the first and last
// scan-out of identity. The span is floored at one day.
func ConsumptionRate(events []model.ScanEvent, identity string) (float64, bool) {
	var first, last time.Time
	total, n := 0, 0
	for _, e := range events {
		if e.ItemIdentity != identity || e.Action != model.ScanOut {
			continue
		}
		if n == 0 || e.CreatedAt.Before(first) {
			first = e.CreatedAt
		}
		if n == 0 || e.CreatedAt.After(last) {
			last = e.CreatedAt
		}
		total += e.Quantity
		n++
	}
	if n < 2 {
		return 0, false
	}
	span := days(last.Sub(first))
	if span < 1 {
		span = 1
	}
	return float64(total) / span, true
}

// DaysUntilEmpty projects how long quantity lasts at rate.
func DaysUntilEmpty(quantity int, rate float64) float64 {
	if rate <= 0 {
		return NoRestockDays
	}
	return float64(quantity) / rate
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting, most urgent first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// ClassifyStock grades display urgency from current stock. daysUntilRestock
// is nil when the item has no consumption history.
func ClassifyStock(quantity, threshold int, daysUntilRestock *float64) Priority {
	switch {
	case quantity == 0, quantity <= threshold:
		return PriorityHigh
	case daysUntilRestock != nil && *daysUntilRestock <= 3:
		return PriorityHigh
	case daysUntilRestock != nil && *daysUntilRestock <= 7:
		return PriorityMedium
	case quantity <= 2*threshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
