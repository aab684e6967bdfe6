package extendedhours_test

import (
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/extendedhours"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func etBar(y, m, d, hh, mm int, o, h, l, c, v float64) types.Bar {
	return types.Bar{
		Time: time.Date(y, time.Month(m), d, hh, mm, 0, 0, time.UTC),
		Open: o, High: h, Low: l, Close: c, Volume: v,
	}
}

func buildCompleteDataset() []types.Bar {
	var bars []types.Bar
	// yesterday regular 9:30-16:00
	for h, mi := 9, 30; h < 16; {
		bars = append(bars, etBar(2024, 1, 10, h, mi, 149, 150.5, 148.5, 150, 1e6))
		mi += 30
		if mi >= 60 {
			mi -= 60
			h++
		}
	}
	// yesterday afterhours, 6 bars
	for i := 0; i < 6; i++ {
		bars = append(bars, etBar(2024, 1, 10, 16, 10+i*10, 150, 150.5, 149.5, 150.2, 5e5))
	}
	// today premarket, 10 bars, closing at 154 (gap = +4)
	for i := 0; i < 10; i++ {
		bars = append(bars, etBar(2024, 1, 11, 5, i*10, 152, 154.5, 151.5, 154, 3e5))
	}
	return bars
}

// TestEHLevelPresence checks all three EH level groups populate together
// at complete data quality.
func TestEHLevelPresence(t *testing.T) {
	bars := buildCompleteDataset()
	ctx := extendedhours.BuildContext(bars, 154, time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC))

	if ctx.DataQuality != types.EHQualityComplete {
		t.Fatalf("expected complete quality, got %v", ctx.DataQuality)
	}
	if !ctx.Levels.HasYesterday {
		t.Error("expected yesterday levels present")
	}
	if !ctx.Levels.HasPM {
		t.Error("expected premarket levels present")
	}
	if !ctx.Levels.HasAH {
		t.Error("expected afterhours levels present")
	}
	if ctx.Levels.YC != 150 {
		t.Errorf("YC = %v, want 150", ctx.Levels.YC)
	}
	if !ctx.Levels.HasGap {
		t.Error("expected gap present at complete quality")
	}
}

// TestGapFillScenario exercises a premarket gap that fills back toward
// yesterday's close.
func TestGapFillScenario(t *testing.T) {
	var bars []types.Bar
	for h, mi := 9, 30; h < 16; {
		bars = append(bars, etBar(2024, 1, 10, h, mi, 149.5, 150.5, 149, 150, 1e6))
		mi += 30
		if mi >= 60 {
			mi -= 60
			h++
		}
	}
	for i := 0; i < 10; i++ {
		bars = append(bars, etBar(2024, 1, 11, 5, i*10, 154, 154.2, 153.8, 154, 2e5))
	}
	ctx := extendedhours.BuildContext(bars, 154, time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC))
	if ctx.Levels.Gap <= 0 {
		t.Fatalf("expected a positive gap, got %v", ctx.Levels.Gap)
	}
	if ctx.PremarketRegime != types.PremarketGapFillBias {
		t.Errorf("premarket_regime = %v, want gap_fill_bias", ctx.PremarketRegime)
	}
}

func TestMinimalQualityWhenTooFewDates(t *testing.T) {
	bars := []types.Bar{etBar(2024, 1, 10, 10, 0, 100, 101, 99, 100, 1e5)}
	ctx := extendedhours.BuildContext(bars, 100, time.Now())
	if ctx.DataQuality != types.EHQualityMinimal {
		t.Errorf("expected minimal quality for a single date, got %v", ctx.DataQuality)
	}
	if ctx.PremarketRegime != types.PremarketUnavailable {
		t.Errorf("expected unavailable premarket regime, got %v", ctx.PremarketRegime)
	}
}
