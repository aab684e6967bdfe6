package breakout_test

import (
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/breakout"
	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func defaultParams() breakout.Params {
	return breakout.ParamsFromAnalysis(types.DefaultAnalysisParams())
}

func bar(t time.Time, o, h, l, c, v float64) types.Bar {
	return types.Bar{Time: t, Open: o, High: h, Low: l, Close: c, Volume: v}
}

// TestConfirmedBreakdown drives a support breakdown through to confirmation.
func TestConfirmedBreakdown(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	var bars []types.Bar
	for i := 0; i < 30; i++ {
		price := 99.0 + float64(i%3)*0.5
		bars = append(bars, bar(base.Add(time.Duration(i)*time.Minute), price, price+1, price-1, price, 1e6))
	}
	closes := []float64{98.2, 98.0, 97.8, 97.5, 97.0}
	for i, c := range closes {
		tm := base.Add(time.Duration(30+i) * time.Minute)
		bars = append(bars, bar(tm, c+0.3, c+0.5, c-0.5, c, 2.5e6))
	}

	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}

	support := []types.Zone{{Low: 98.5, High: 99.5, Side: types.ZoneSideSupport}}

	fsm := breakout.NewFSM(defaultParams())
	var confirmed *types.Signal
	for i := range bars {
		sig, _ := fsm.Update(bars, i, nil, support, f)
		if sig != nil && sig.Type == types.SignalBreakoutConfirmed {
			confirmed = sig
			break
		}
	}
	if confirmed == nil {
		t.Fatal("expected a breakout_confirmed signal")
	}
	if confirmed.Direction != types.DirectionDown {
		t.Errorf("direction = %v, want down", confirmed.Direction)
	}
	if confirmed.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", confirmed.Confidence)
	}
}

// TestFakeoutDetection drives an attempt that reverses into a fakeout.
func TestFakeoutDetection(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	var bars []types.Bar
	for i := 0; i < 30; i++ {
		price := 99.0 + float64(i%3)*0.6
		bars = append(bars, bar(base.Add(time.Duration(i)*time.Minute), price, price+0.8, price-0.8, price, 1e6))
	}
	bars = append(bars, bar(base.Add(30*time.Minute), 101.0, 101.6, 100.5, 101.4, 2e6))
	bars = append(bars, bar(base.Add(31*time.Minute), 101.3, 101.5, 100.2, 100.5, 1e6))
	bars = append(bars, bar(base.Add(32*time.Minute), 100.4, 100.6, 100.0, 100.3, 1e6))

	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	resistance := []types.Zone{{Low: 99.8, High: 101.0, Side: types.ZoneSideResistance}}

	fsm := breakout.NewFSM(defaultParams())
	var attempt, fakeout *types.Signal
	for i := range bars {
		sig, _ := fsm.Update(bars, i, resistance, nil, f)
		if sig == nil {
			continue
		}
		switch sig.Type {
		case types.SignalBreakoutAttempt:
			if attempt == nil {
				attempt = sig
			}
		case types.SignalFakeout:
			fakeout = sig
		}
		if fakeout != nil {
			break
		}
	}
	if attempt == nil {
		t.Fatal("expected a breakout_attempt signal")
	}
	if fakeout == nil {
		t.Fatal("expected a fakeout signal")
	}
	if fakeout.Confidence != 0.75 {
		t.Errorf("fakeout confidence = %v, want 0.75", fakeout.Confidence)
	}
	if fsm.State() != breakout.StateFakeout {
		t.Fatalf("state after fakeout = %v, want FAKEOUT", fsm.State())
	}

	// terminal state lasts exactly one update.
	sig, _ := fsm.Update(bars, len(bars)-1, resistance, nil, f)
	if sig != nil {
		t.Errorf("expected no signal on the reset tick, got %+v", sig)
	}
	if fsm.State() != breakout.StateIdle {
		t.Errorf("state after reset tick = %v, want IDLE", fsm.State())
	}
}

// TestConfidenceMonotonicity checks that once an attempt's running max
// RVOL or max result increases, the confidence of any signal it goes on to
// emit never decreases relative to the attempt signal's own confidence.
func TestConfidenceMonotonicity(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	var bars []types.Bar
	for i := 0; i < 30; i++ {
		price := 100.0 + float64(i%3)*0.4
		bars = append(bars, bar(base.Add(time.Duration(i)*time.Minute), price, price+0.6, price-0.6, price, 1e6))
	}
	closes := []float64{101.2, 101.6, 102.0}
	for i, c := range closes {
		tm := base.Add(time.Duration(30+i) * time.Minute)
		bars = append(bars, bar(tm, c-0.3, c+0.3, c-0.5, c, 3e6))
	}

	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		t.Fatal(err)
	}
	resistance := []types.Zone{{Low: 99.5, High: 100.5, Side: types.ZoneSideResistance}}

	fsm := breakout.NewFSM(defaultParams())
	var attemptConfidence float64
	var sawAttempt bool
	for i := range bars {
		sig, _ := fsm.Update(bars, i, resistance, nil, f)
		if sig == nil {
			continue
		}
		switch sig.Type {
		case types.SignalBreakoutAttempt:
			attemptConfidence = sig.Confidence
			sawAttempt = true
		case types.SignalBreakoutConfirmed, types.SignalFakeout:
			if sawAttempt && sig.Confidence < attemptConfidence {
				t.Errorf("terminal confidence %v fell below attempt confidence %v", sig.Confidence, attemptConfidence)
			}
		}
	}
	if !sawAttempt {
		t.Fatal("expected a breakout_attempt signal")
	}
}
