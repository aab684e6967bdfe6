package gateway_test

import (
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
	"github.com/songzhiyuan98/klinelens-go/internal/simtrader"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func bar(minute int, close float64) types.Bar {
	t := time.Date(2024, 1, 15, 9, 30+minute, 0, 0, time.UTC)
	return types.Bar{Time: t, Open: close, High: close + 0.1, Low: close - 0.1, Close: close, Volume: 1000}
}

func TestBuildSnapshotLevelsNearestToPrice(t *testing.T) {
	bars := make([]types.Bar, 0, 40)
	for i := 0; i < 40; i++ {
		bars = append(bars, bar(i, 624.0))
	}
	report := &types.AnalysisReport{
		MarketState: types.MarketState{Regime: types.RegimeUptrend, Confidence: 0.8},
		Resistance: []types.Zone{
			{Low: 625.9, High: 626.1}, // mid 626.0, farther
			{Low: 624.9, High: 625.1}, // mid 625.0, nearest
		},
		Support: []types.Zone{
			{Low: 622.9, High: 623.1}, // mid 623.0, nearest
			{Low: 621.9, High: 622.1}, // mid 622.0, farther
		},
		Behavior: types.Behavior{Dominant: types.PhaseAccumulation},
	}

	snap, err := gateway.BuildSnapshot("QQQ", bars, report, types.Timeframe1m, simtrader.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildSnapshot error: %v", err)
	}
	if snap.Levels.R1 != 625.0 {
		t.Errorf("R1 = %v, want 625.0", snap.Levels.R1)
	}
	if snap.Levels.R2 != 626.0 {
		t.Errorf("R2 = %v, want 626.0", snap.Levels.R2)
	}
	if snap.Levels.S1 != 623.0 {
		t.Errorf("S1 = %v, want 623.0", snap.Levels.S1)
	}
	if snap.Levels.S2 != 622.0 {
		t.Errorf("S2 = %v, want 622.0", snap.Levels.S2)
	}
	if snap.Derived.Behavior != types.SimBehaviorAccumulation {
		t.Errorf("Behavior = %v, want accumulation", snap.Derived.Behavior)
	}
	if snap.Derived.Trend1m != types.TrendUp {
		t.Errorf("Trend1m = %v, want up", snap.Derived.Trend1m)
	}
}

func TestBuildSnapshotHODLODFromBars(t *testing.T) {
	bars := make([]types.Bar, 0, 20)
	for i := 0; i < 20; i++ {
		bars = append(bars, bar(i, 622.0))
	}
	bars[5].High = 625
	bars[12].Low = 618
	report := &types.AnalysisReport{
		MarketState: types.MarketState{Regime: types.RegimeDowntrend},
		Behavior:    types.Behavior{Dominant: types.PhaseMarkdown},
	}

	snap, err := gateway.BuildSnapshot("QQQ", bars, report, types.Timeframe1m, simtrader.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildSnapshot error: %v", err)
	}
	if snap.Levels.HOD != 625 {
		t.Errorf("HOD = %v, want 625", snap.Levels.HOD)
	}
	if snap.Levels.LOD != 618 {
		t.Errorf("LOD = %v, want 618", snap.Levels.LOD)
	}
	if snap.Derived.Behavior != types.SimBehaviorMarkdown {
		t.Errorf("Behavior = %v, want markdown", snap.Derived.Behavior)
	}
}

func TestBuildSnapshotPullsEHLevelsWhenPresent(t *testing.T) {
	bars := make([]types.Bar, 0, 20)
	for i := 0; i < 20; i++ {
		bars = append(bars, bar(i, 624.0))
	}
	report := &types.AnalysisReport{
		MarketState: types.MarketState{Regime: types.RegimeUptrend},
		Behavior:    types.Behavior{Dominant: types.PhaseAccumulation},
		EHContext: &types.EHContext{
			Levels: types.EHLevels{YC: 620, YH: 628, YL: 615, PMH: 625, PML: 619},
		},
	}

	snap, err := gateway.BuildSnapshot("QQQ", bars, report, types.Timeframe1m, simtrader.DefaultConfig())
	if err != nil {
		t.Fatalf("BuildSnapshot error: %v", err)
	}
	if snap.Levels.YC != 620 || snap.Levels.YH != 628 || snap.Levels.YL != 615 {
		t.Errorf("YC/YH/YL = %v/%v/%v, want 620/628/615", snap.Levels.YC, snap.Levels.YH, snap.Levels.YL)
	}
	if snap.Levels.PMH != 625 || snap.Levels.PML != 619 {
		t.Errorf("PMH/PML = %v/%v, want 625/619", snap.Levels.PMH, snap.Levels.PML)
	}
}

func TestBuildSnapshotEmptyBarsErrors(t *testing.T) {
	report := &types.AnalysisReport{}
	if _, err := gateway.BuildSnapshot("QQQ", nil, report, types.Timeframe1m, simtrader.DefaultConfig()); err == nil {
		t.Fatal("expected error for empty bars")
	}
}
