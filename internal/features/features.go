// Package features computes the per-bar indicator arrays every other
// component reads from: ATR, RVOL, VSA effort/result, wick ratios, and
// directional efficiency.
package features

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
	"github.com/songzhiyuan98/klinelens-go/pkg/utils"
)

// Features holds named parallel arrays, one entry per input bar. Indices
// before a component's warmup window are NaN, never zero — callers must
// branch on math.IsNaN rather than treat NaN as 0 or 1.
type Features struct {
	TR     []float64
	ATR    []float64
	RVOL   []float64
	Effort []float64 // == RVOL, copied not re-derived
	Result []float64
	UpperWick []float64
	LowerWick []float64
	UpEff     []float64
	DownEff   []float64

	VolumeQuality types.VolumeQuality
}

// CalculateFeatures computes Features for bars using the given periods.
// Fails with InsufficientDataError when len(bars) < atrPeriod+1.
func CalculateFeatures(bars []types.Bar, atrPeriod, volumePeriod int) (*Features, error) {
	n := len(bars)
	if n < atrPeriod+1 {
		return nil, types.NewInsufficientDataError(n, atrPeriod+1, "atr warmup")
	}

	f := &Features{
		TR:        make([]float64, n),
		ATR:       make([]float64, n),
		RVOL:      make([]float64, n),
		Effort:    make([]float64, n),
		Result:    make([]float64, n),
		UpperWick: make([]float64, n),
		LowerWick: make([]float64, n),
		UpEff:     make([]float64, n),
		DownEff:   make([]float64, n),
	}

	computeTRAndATR(bars, atrPeriod, f)
	computeRVOL(bars, volumePeriod, f)
	computeEffortResult(f)
	computeResultFromRange(bars, f)
	computeWickRatios(bars, f)
	computeDirectionalEfficiency(bars, f)

	f.VolumeQuality = classifyVolumeQuality(f.RVOL)

	return f, nil
}

// computeTRAndATR applies Wilder smoothing:
// TR_i = max(h-l, |h-c_prev|, |l-c_prev|); ATR_p = mean(TR_1..p);
// ATR_i = (ATR_{i-1}*(p-1) + TR_i)/p for i > p. Indices < p are NaN.
// TR_0 has no previous close and is excluded from the ATR seed.
func computeTRAndATR(bars []types.Bar, period int, f *Features) {
	n := len(bars)
	for i := 0; i < n; i++ {
		if i == 0 {
			f.TR[i] = bars[i].High - bars[i].Low
		} else {
			prevClose := bars[i-1].Close
			hl := bars[i].High - bars[i].Low
			hc := math.Abs(bars[i].High - prevClose)
			lc := math.Abs(bars[i].Low - prevClose)
			f.TR[i] = math.Max(hl, math.Max(hc, lc))
		}
	}

	f.ATR[0] = math.NaN()
	smoother := utils.NewWilderSmoother(period)
	for i := 1; i < n; i++ {
		f.ATR[i] = smoother.Add(f.TR[i])
	}
}

// computeRVOL: for i >= p-1, let W be the strictly
// positive volumes in the trailing window of size p; require |W| >= p/2
// and mean(W) > 0, else NaN. Otherwise RVOL_i = v_i / mean(W).
func computeRVOL(bars []types.Bar, period int, f *Features) {
	n := len(bars)
	for i := 0; i < n; i++ {
		f.RVOL[i] = math.NaN()
		if i < period-1 {
			continue
		}
		start := i - period + 1
		var positive []float64
		for j := start; j <= i; j++ {
			if bars[j].Volume > 0 {
				positive = append(positive, bars[j].Volume)
			}
		}
		if len(positive) < period/2 {
			continue
		}
		m := utils.Mean(positive)
		if m <= 0 {
			continue
		}
		if bars[i].Volume <= 0 {
			continue // zero/missing current volume propagates NaN, not 0
		}
		f.RVOL[i] = bars[i].Volume / m
	}
}

// computeEffortResult fills the effort half of the VSA pair:
// effort = RVOL (copied). The result half is computed by
// computeResultFromRange.
func computeEffortResult(f *Features) {
	copy(f.Effort, f.RVOL)
}

func computeResultFromRange(bars []types.Bar, f *Features) {
	for i := range bars {
		atr := f.ATR[i]
		if math.IsNaN(atr) || atr <= 0 || math.IsInf(atr, 0) {
			f.Result[i] = math.NaN()
			continue
		}
		f.Result[i] = (bars[i].High - bars[i].Low) / atr
	}
}

// computeWickRatios: for range <= 0 returns
// (0.5, 0.5); otherwise splits by close direction.
func computeWickRatios(bars []types.Bar, f *Features) {
	for i, b := range bars {
		rng := b.High - b.Low
		if rng <= 0 {
			f.UpperWick[i] = 0.5
			f.LowerWick[i] = 0.5
			continue
		}
		var upper, lower float64
		if b.Close >= b.Open {
			upper = b.High - b.Close
			lower = b.Open - b.Low
		} else {
			upper = b.High - b.Open
			lower = b.Close - b.Low
		}
		f.UpperWick[i] = upper / rng
		f.LowerWick[i] = lower / rng
	}
}

// computeDirectionalEfficiency: with volume v,
// if v <= 0, (0, 0); else up_eff = max(c-o,0)/v, down_eff = max(o-c,0)/v.
func computeDirectionalEfficiency(bars []types.Bar, f *Features) {
	for i, b := range bars {
		if b.Volume <= 0 {
			f.UpEff[i] = 0
			f.DownEff[i] = 0
			continue
		}
		f.UpEff[i] = math.Max(b.Close-b.Open, 0) / b.Volume
		f.DownEff[i] = math.Max(b.Open-b.Close, 0) / b.Volume
	}
}

// classifyVolumeQuality tiers data quality: reliable when
// non-NaN fraction >= 0.7, partial when >= 0.5, unavailable otherwise.
func classifyVolumeQuality(rvol []float64) types.VolumeQuality {
	if len(rvol) == 0 {
		return types.VolumeQualityUnavailable
	}
	valid := 0
	for _, v := range rvol {
		if !math.IsNaN(v) {
			valid++
		}
	}
	frac := float64(valid) / float64(len(rvol))
	switch {
	case frac >= 0.7:
		return types.VolumeQualityReliable
	case frac >= 0.5:
		return types.VolumeQualityPartial
	default:
		return types.VolumeQualityUnavailable
	}
}

// AbsorptionAt reports the absorption predicate at index i:
// effort >= 1.5 AND result <= 0.6.
func (f *Features) AbsorptionAt(i int) bool {
	if i < 0 || i >= len(f.Effort) {
		return false
	}
	e, r := f.Effort[i], f.Result[i]
	if math.IsNaN(e) || math.IsNaN(r) {
		return false
	}
	return e >= 1.5 && r <= 0.6
}
