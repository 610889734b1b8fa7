package predict

import (
	"math"
	"sort"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

// Record is the prediction for one item identity.
type Record struct {
	Identity             string    `json:"identity"`
	ItemName             string    `json:"item_name"`
	Category             string    `json:"category,omitempty"`
	ScanIns              int       `json:"scan_ins"`
	AverageIntervalDays  float64   `json:"average_interval_days"`
	Confidence           float64   `json:"confidence"`
	LastScanOutAt        time.Time `json:"last_scan_out_at"`
	DaysSinceLastScanOut float64   `json:"days_since_last_scan_out"`
}

// Estimate builds the record for identity from the user's events. It reports
// false when the item has fewer than two scan-ins or two scan-outs.
func (p Policy) Estimate(events []model.ScanEvent, identity string, now time.Time) (Record, bool) {
	var matching []model.ScanEvent
	for _, e := range events {
		if e.ItemIdentity == identity {
			matching = append(matching, e)
		}
	}
	return p.estimate(identity, chronological(matching), now)
}

// EstimateAll returns a record for every identity with enough history,
// ordered by identity.
func (p Policy) EstimateAll(events []model.ScanEvent, now time.Time) []Record {
	groups := make(map[string][]model.ScanEvent)
	for _, e := range chronological(events) {
		groups[e.ItemIdentity] = append(groups[e.ItemIdentity], e)
	}

	identities := make([]string, 0, len(groups))
	for id := range groups {
		identities = append(identities, id)
	}
	sort.Strings(identities)

	var records []Record
	for _, id := range identities {
		if r, ok := p.estimate(id, groups[id], now); ok {
			records = append(records, r)
		}
	}
	return records
}

// estimate expects events for a single identity in time order.
func (p Policy) estimate(identity string, events []model.ScanEvent, now time.Time) (Record, bool) {
	var ins, outs []model.ScanEvent
	for _, e := range events {
		switch e.Action {
		case model.ScanIn:
			ins = append(ins, e)
		case model.ScanOut:
			outs = append(outs, e)
		}
	}
	if len(ins) < 2 || len(outs) < 2 {
		return Record{}, false
	}

	var total float64
	gaps := 0
	for i := 1; i < len(ins); i++ {
		total += days(ins[i].CreatedAt.Sub(ins[i-1].CreatedAt))
		gaps++
	}
	if gaps == 0 {
		return Record{}, false
	}

	saturation := p.SaturationCount
	if saturation < 1 {
		saturation = 1
	}

	lastOut := outs[len(outs)-1].CreatedAt
	r := Record{
		Identity:             identity,
		ScanIns:              len(ins),
		AverageIntervalDays:  total / float64(gaps),
		Confidence:           math.Min(1, float64(len(ins))/float64(saturation)),
		LastScanOutAt:        lastOut,
		DaysSinceLastScanOut: days(now.Sub(lastOut)),
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ItemName != "" {
			r.ItemName = events[i].ItemName
			r.Category = events[i].Category
			break
		}
	}
	if r.ItemName == "" {
		r.ItemName = identity
	}
	return r, true
}

func chronological(events []model.ScanEvent) []model.ScanEvent {
	sorted := make([]model.ScanEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}
