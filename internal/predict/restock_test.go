package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/larder/internal/model"
)

func TestShouldSuggestRestock(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, p.ShouldSuggestRestock(Record{AverageIntervalDays: 10, DaysSinceLastScanOut: 8}))
	assert.True(t, p.ShouldSuggestRestock(Record{AverageIntervalDays: 10, DaysSinceLastScanOut: 7}))
	assert.False(t, p.ShouldSuggestRestock(Record{AverageIntervalDays: 10, DaysSinceLastScanOut: 6}))
}

func TestShouldSuggestRestockCustomRatio(t *testing.T) {
	p := Policy{SuggestRatio: 1.0, SaturationCount: 5}
	assert.False(t, p.ShouldSuggestRestock(Record{AverageIntervalDays: 10, DaysSinceLastScanOut: 8}))
	assert.True(t, p.ShouldSuggestRestock(Record{AverageIntervalDays: 10, DaysSinceLastScanOut: 10}))
}

func TestEggsScenario(t *testing.T) {
	p := DefaultPolicy()
	events := history("eggs", []float64{0, 12}, []float64{1, 13})

	r, ok := p.Estimate(events, "eggs", day(22))
	require.True(t, ok)
	assert.InDelta(t, 12.0, r.AverageIntervalDays, 1e-9)
	assert.InDelta(t, 0.4, r.Confidence, 1e-9)
	assert.InDelta(t, 9.0, r.DaysSinceLastScanOut, 1e-9)
	assert.True(t, p.ShouldSuggestRestock(r))
	assert.InDelta(t, 3.0, DaysUntilRestock(r), 1e-9)
}

func TestEggsScenarioBelowThreshold(t *testing.T) {
	p := DefaultPolicy()
	events := history("eggs", []float64{0, 12}, []float64{1, 13})

	for _, at := range []float64{20, 21} {
		r, ok := p.Estimate(events, "eggs", day(at))
		require.True(t, ok)
		assert.Less(t, r.DaysSinceLastScanOut, 8.4)
		assert.False(t, p.ShouldSuggestRestock(r), "day %v is under the 8.4 day threshold", at)
	}
}

func TestConsumptionRate(t *testing.T) {
	events := []model.ScanEvent{
		{ItemIdentity: "milk", Action: model.ScanOut, Quantity: 2, CreatedAt: day(0)},
		{ItemIdentity: "milk", Action: model.ScanIn, Quantity: 6, CreatedAt: day(1)},
		{ItemIdentity: "milk", Action: model.ScanOut, Quantity: 4, CreatedAt: day(3)},
		{ItemIdentity: "eggs", Action: model.ScanOut, Quantity: 12, CreatedAt: day(2)},
	}
	rate, ok := ConsumptionRate(events, "milk")
	require.True(t, ok)
	assert.InDelta(t, 2.0, rate, 1e-9)

	_, ok = ConsumptionRate(events, "eggs")
	assert.False(t, ok)
}

func TestConsumptionRateFloorsSpan(t *testing.T) {
	events := []model.ScanEvent{
		{ItemIdentity: "milk", Action: model.ScanOut, Quantity: 1, CreatedAt: day(0)},
		{ItemIdentity: "milk", Action: model.ScanOut, Quantity: 1, CreatedAt: day(0.25)},
	}
	rate, ok := ConsumptionRate(events, "milk")
	require.True(t, ok)
	assert.InDelta(t, 2.0, rate, 1e-9)
}

func TestDaysUntilEmpty(t *testing.T) {
	assert.InDelta(t, 3.0, DaysUntilEmpty(6, 2), 1e-9)
	assert.Equal(t, float64(NoRestockDays), DaysUntilEmpty(6, 0))
}

func TestClassifyStock(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		name      string
		quantity  int
		threshold int
		days      *float64
		want      Priority
	}{
		{"empty", 0, 0, nil, PriorityHigh},
		{"at threshold", 2, 2, nil, PriorityHigh},
		{"runs out soon", 10, 2, f(3), PriorityHigh},
		{"runs out this week", 10, 2, f(7), PriorityMedium},
		{"under double threshold", 4, 2, nil, PriorityMedium},
		{"plenty", 10, 2, f(20), PriorityLow},
		{"plenty without history", 10, 2, nil, PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStock(tt.quantity, tt.threshold, tt.days))
		})
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{SuggestRatio: 0, SaturationCount: 5}.Validate())
	assert.Error(t, Policy{SuggestRatio: 0.7, SaturationCount: 0}.Validate())
}
