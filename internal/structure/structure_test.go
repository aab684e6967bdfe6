package structure_test

import (
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/structure"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func makeBars(prices []float64) []types.Bar {
	t := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		bars[i] = types.Bar{
			Time: t.Add(time.Duration(i) * time.Minute),
			Open: p, Close: p, High: p + 0.5, Low: p - 0.5, Volume: 1000,
		}
	}
	return bars
}

func TestFindSwingPointsBoundary(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100
	}
	prices[10] = 110 // a clear swing high
	bars := makeBars(prices)
	highs, _ := structure.FindSwingPoints(bars, 4)
	for _, h := range highs {
		if h.Index < 4 || h.Index >= len(bars)-4 {
			t.Errorf("swing at boundary index %d should be excluded", h.Index)
		}
	}
	found := false
	for _, h := range highs {
		if h.Index == 10 {
			found = true
		}
	}
	if !found {
		t.Error("expected swing high at index 10")
	}
}

func TestZoneOrderingAndBounds(t *testing.T) {
	points := []types.SwingPoint{
		{Index: 10, Price: 100.0}, {Index: 20, Price: 100.1}, {Index: 30, Price: 105.0},
	}
	zones := structure.ClusterZones(points, 1.0, types.Timeframe1m, 5, 40, types.ZoneSideResistance)
	for i := 1; i < len(zones); i++ {
		if zones[i].Score > zones[i-1].Score {
			t.Error("zones must be sorted by score descending")
		}
	}
	for _, z := range zones {
		if z.Low >= z.High {
			t.Errorf("zone has Low >= High: %+v", z)
		}
	}
	if len(zones) > 5 {
		t.Errorf("expected at most 5 zones, got %d", len(zones))
	}
}

func TestClassifyRegimeFewSwings(t *testing.T) {
	ms := structure.ClassifyRegime(nil, nil, 6)
	if ms.Regime != types.RegimeRange || ms.Confidence != 0.5 {
		t.Errorf("expected (range, 0.5) for too few swings, got %+v", ms)
	}
}

func TestClassifyRegimeUptrend(t *testing.T) {
	highs := []types.SwingPoint{
		{Index: 1, Price: 100}, {Index: 2, Price: 102}, {Index: 3, Price: 104},
	}
	lows := []types.SwingPoint{
		{Index: 1, Price: 98}, {Index: 2, Price: 99}, {Index: 3, Price: 101},
	}
	ms := structure.ClassifyRegime(highs, lows, 6)
	if ms.Regime != types.RegimeUptrend {
		t.Errorf("expected uptrend, got %+v", ms)
	}
	if ms.Confidence < 0.6 {
		t.Errorf("expected confidence >= 0.6, got %v", ms.Confidence)
	}
}
