package features_test

import (
	"math"
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
	"github.com/songzhiyuan98/klinelens-go/pkg/utils"
)

func flatBars(n int, price, volume float64) []types.Bar {
	bars := make([]types.Bar, n)
	t := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = types.Bar{
			Time: t.Add(time.Duration(i) * time.Minute),
			Open: price, High: price + 1, Low: price - 1, Close: price,
			Volume: volume,
		}
	}
	return bars
}

func TestInsufficientData(t *testing.T) {
	bars := flatBars(5, 100, 1000)
	_, err := features.CalculateFeatures(bars, 14, 30)
	if err == nil {
		t.Fatal("expected InsufficientDataError")
	}
	if _, ok := err.(*types.InsufficientDataError); !ok {
		t.Fatalf("expected *InsufficientDataError, got %T", err)
	}
}

func TestATRWarmupIsNaN(t *testing.T) {
	bars := flatBars(20, 100, 1000)
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 14; i++ {
		if !math.IsNaN(f.ATR[i]) {
			t.Errorf("ATR[%d] = %v, want NaN", i, f.ATR[i])
		}
	}
	if math.IsNaN(f.ATR[14]) {
		t.Error("ATR[14] should be seeded (index p)")
	}
}

func TestATRSeedExcludesTR0(t *testing.T) {
	bars := flatBars(20, 100, 1000)
	for i := range bars {
		bars[i].High += float64(i) * 0.1
	}
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	want := utils.Mean(f.TR[1:15])
	if math.Abs(f.ATR[14]-want) > 1e-9 {
		t.Errorf("ATR[14] = %v, want mean(TR[1..14]) = %v", f.ATR[14], want)
	}
}

func TestATRIdentity(t *testing.T) {
	// ATR_i*p - ATR_{i-1}*(p-1) = TR_i for i > p
	bars := flatBars(40, 100, 1000)
	// perturb to avoid a degenerate all-equal series
	for i := range bars {
		bars[i].High += float64(i%5) * 0.1
	}
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	for i := 15; i < len(bars); i++ {
		got := f.ATR[i]*14 - f.ATR[i-1]*13
		want := f.TR[i]
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("index %d: ATR identity violated: got %v want %v", i, got, want)
		}
	}
}

func TestRVOLNaNOnZeroVolume(t *testing.T) {
	bars := flatBars(40, 100, 1000)
	bars[35].Volume = 0
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(f.RVOL[35]) {
		t.Errorf("RVOL[35] = %v, want NaN for zero current volume", f.RVOL[35])
	}
}

func TestWickRatiosDegenerateRange(t *testing.T) {
	bars := flatBars(20, 100, 1000)
	bars[10].High = 100
	bars[10].Low = 100
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	if f.UpperWick[10] != 0.5 || f.LowerWick[10] != 0.5 {
		t.Errorf("degenerate range wick ratios = (%v, %v), want (0.5, 0.5)", f.UpperWick[10], f.LowerWick[10])
	}
}

func TestDirectionalEfficiencyZeroVolume(t *testing.T) {
	bars := flatBars(20, 100, 1000)
	bars[5].Volume = 0
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	if f.UpEff[5] != 0 || f.DownEff[5] != 0 {
		t.Errorf("zero-volume efficiency = (%v, %v), want (0, 0)", f.UpEff[5], f.DownEff[5])
	}
}

func TestVolumeQualityReliable(t *testing.T) {
	bars := flatBars(100, 100, 1000)
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	if f.VolumeQuality != types.VolumeQualityReliable {
		t.Errorf("VolumeQuality = %v, want reliable", f.VolumeQuality)
	}
}

func TestAbsorptionPredicate(t *testing.T) {
	bars := flatBars(40, 100, 1000)
	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	f.Effort[30] = 2.0
	f.Result[30] = 0.4
	if !f.AbsorptionAt(30) {
		t.Error("expected absorption predicate true")
	}
	f.Result[30] = 0.9
	if f.AbsorptionAt(30) {
		t.Error("expected absorption predicate false")
	}
}
