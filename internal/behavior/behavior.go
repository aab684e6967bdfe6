// Package behavior scores the five Wyckoff participant-behavior phases
// from the current feature window and zone geometry, softmax-normalizes
// them into a probability simplex, and attaches supporting evidence.
package behavior

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

const shakeoutLookback = 10

// Classify evaluates the five phase scorers over the last lookback bars
// ending at index i, softmax-normalizes them, and generates up to three
// evidence items for the dominant phase.
func Classify(bars []types.Bar, i int, f *features.Features, support, resistance []types.Zone, market types.MarketState, lookback int, signal *types.Signal) types.Behavior {
	scores := map[types.PhaseName]float64{
		types.PhaseAccumulation: scoreAccumulation(bars, i, f, support, lookback),
		types.PhaseShakeout:     scoreShakeout(bars, i, f, support),
		types.PhaseMarkup:       scoreMarkup(bars, i, f, market, lookback, signal),
		types.PhaseDistribution: scoreDistribution(bars, i, f, resistance, lookback),
		types.PhaseMarkdown:     scoreMarkdown(bars, i, f, market, lookback, signal),
	}

	probs := softmax(scores)
	dominant := argmax(probs)

	return types.Behavior{
		Probabilities: probs,
		Dominant:      dominant,
		Evidence:      buildEvidence(bars, i, f, support, resistance, dominant),
	}
}

func window(i, lookback int) (start int) {
	start = i - lookback + 1
	if start < 0 {
		start = 0
	}
	return start
}

func nearZone(price float64, zones []types.Zone, atr float64) (near bool, z types.Zone) {
	for _, zz := range zones {
		if zz.DistanceTo(price) <= 0.25*atr {
			return true, zz
		}
	}
	return false, types.Zone{}
}

func globalMean(vals []float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// scoreAccumulation weighs: near
// support (+0.25), RVOL>=1.5 near support for >=2 bars (+0.20), absorption
// near support for >=1 bar (+0.25), suppressed down-efficiency (+0.15),
// lower wick > 0.3 on average (+0.15).
func scoreAccumulation(bars []types.Bar, i int, f *features.Features, support []types.Zone, lookback int) float64 {
	if i >= len(bars) {
		return 0
	}
	start := window(i, lookback)
	atr := f.ATR[i]
	var score float64

	near, _ := nearZone(bars[i].Close, support, atr)
	if near {
		score += 0.25
	}

	volNearSupport := 0
	absorbNearSupport := 0
	for j := start; j <= i; j++ {
		nearJ, _ := nearZone(bars[j].Close, support, atr)
		if !nearJ {
			continue
		}
		if !math.IsNaN(f.RVOL[j]) && f.RVOL[j] >= 1.5 {
			volNearSupport++
		}
		if f.AbsorptionAt(j) {
			absorbNearSupport++
		}
	}
	if volNearSupport >= 2 {
		score += 0.20
	}
	if absorbNearSupport >= 1 {
		score += 0.25
	}

	globalDown := globalMean(f.DownEff)
	windowDown := globalMean(f.DownEff[start : i+1])
	if globalDown > 0 && windowDown < 0.5*globalDown {
		score += 0.15
	}

	if globalMean(f.LowerWick[start:i+1]) > 0.3 {
		score += 0.15
	}
	return score
}

// scoreShakeout weighs: wick-then-reclaim below support
// within 3 bars (+0.35), long lower wick at the sweep bar (+0.20), RVOL>=1.5
// at the sweep (+0.20), reclaim within 2 bars (+0.15), absorption at the
// sweep (+0.10).
func scoreShakeout(bars []types.Bar, i int, f *features.Features, support []types.Zone) float64 {
	start := window(i, shakeoutLookback)
	var score float64

	sweepIdx := -1
	for j := start; j <= i; j++ {
		for _, z := range support {
			if bars[j].Low < z.Low && bars[j].Close >= z.Low {
				sweepIdx = j
				break
			}
		}
		if sweepIdx >= 0 {
			break
		}
	}
	if sweepIdx < 0 {
		return 0
	}
	if i-sweepIdx <= 3 {
		score += 0.35
	}
	if f.LowerWick[sweepIdx] >= 0.4 {
		score += 0.20
	}
	if !math.IsNaN(f.RVOL[sweepIdx]) && f.RVOL[sweepIdx] >= 1.5 {
		score += 0.20
	}
	reclaimed := false
	for j := sweepIdx; j <= min(sweepIdx+2, i); j++ {
		if bars[j].Close > bars[sweepIdx].Low {
			reclaimed = true
			break
		}
	}
	if reclaimed {
		score += 0.15
	}
	if f.AbsorptionAt(sweepIdx) {
		score += 0.10
	}
	return score
}

// scoreMarkup weighs: a confirmed up-breakout present
// (+0.35), regime=uptrend scaled by confidence (+0.20*conf), pullback RVOL
// suppressed below 0.8x advance RVOL (+0.20), mean up-efficiency scaled and
// capped at 1 (+0.25*min(.,1)).
func scoreMarkup(bars []types.Bar, i int, f *features.Features, market types.MarketState, lookback int, signal *types.Signal) float64 {
	start := window(i, lookback)
	var score float64

	if signal != nil && signal.Type == types.SignalBreakoutConfirmed && signal.Direction == types.DirectionUp {
		score += 0.35
	}
	if market.Regime == types.RegimeUptrend {
		score += 0.20 * market.Confidence
	}

	advanceRVOL, pullbackRVOL := splitRVOLByDirection(bars, f, start, i, true)
	if advanceRVOL > 0 && pullbackRVOL < 0.8*advanceRVOL {
		score += 0.20
	}

	meanUpEff := globalMean(f.UpEff[start : i+1])
	score += 0.25 * math.Min(meanUpEff*1000, 1)
	return score
}

// scoreDistribution mirrors scoreAccumulation at resistance with upper
// wicks and suppressed up-efficiency.
func scoreDistribution(bars []types.Bar, i int, f *features.Features, resistance []types.Zone, lookback int) float64 {
	if i >= len(bars) {
		return 0
	}
	start := window(i, lookback)
	atr := f.ATR[i]
	var score float64

	near, _ := nearZone(bars[i].Close, resistance, atr)
	if near {
		score += 0.25
	}

	volNearResistance := 0
	absorbNearResistance := 0
	for j := start; j <= i; j++ {
		nearJ, _ := nearZone(bars[j].Close, resistance, atr)
		if !nearJ {
			continue
		}
		if !math.IsNaN(f.RVOL[j]) && f.RVOL[j] >= 1.5 {
			volNearResistance++
		}
		if f.AbsorptionAt(j) {
			absorbNearResistance++
		}
	}
	if volNearResistance >= 2 {
		score += 0.20
	}
	if absorbNearResistance >= 1 {
		score += 0.25
	}

	globalUp := globalMean(f.UpEff)
	windowUp := globalMean(f.UpEff[start : i+1])
	if globalUp > 0 && windowUp < 0.5*globalUp {
		score += 0.15
	}

	if globalMean(f.UpperWick[start:i+1]) > 0.3 {
		score += 0.15
	}
	return score
}

// scoreMarkdown mirrors scoreMarkup for down-breakouts, downtrend, and
// suppressed bounce volume.
func scoreMarkdown(bars []types.Bar, i int, f *features.Features, market types.MarketState, lookback int, signal *types.Signal) float64 {
	start := window(i, lookback)
	var score float64

	if signal != nil && signal.Type == types.SignalBreakoutConfirmed && signal.Direction == types.DirectionDown {
		score += 0.35
	}
	if market.Regime == types.RegimeDowntrend {
		score += 0.20 * market.Confidence
	}

	declineRVOL, bounceRVOL := splitRVOLByDirection(bars, f, start, i, false)
	if declineRVOL > 0 && bounceRVOL < 0.8*declineRVOL {
		score += 0.20
	}

	meanDownEff := globalMean(f.DownEff[start : i+1])
	score += 0.25 * math.Min(meanDownEff*1000, 1)
	return score
}

// splitRVOLByDirection buckets mean RVOL by whether the bar closed with or
// against the given trendUp direction, used to detect pullback/bounce
// volume suppression.
func splitRVOLByDirection(bars []types.Bar, f *features.Features, start, end int, trendUp bool) (withTrend, counterTrend float64) {
	var withVals, counterVals []float64
	for j := start; j <= end; j++ {
		if math.IsNaN(f.RVOL[j]) {
			continue
		}
		up := bars[j].Close >= bars[j].Open
		if up == trendUp {
			withVals = append(withVals, f.RVOL[j])
		} else {
			counterVals = append(counterVals, f.RVOL[j])
		}
	}
	return globalMean(withVals), globalMean(counterVals)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// softmax is a numerically stabilized softmax: subtract
// the max raw score before exponentiating.
func softmax(scores map[types.PhaseName]float64) map[types.PhaseName]float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	exps := make(map[types.PhaseName]float64, len(scores))
	for _, p := range types.Phases {
		e := math.Exp(scores[p] - maxScore)
		exps[p] = e
		sum += e
	}
	probs := make(map[types.PhaseName]float64, len(scores))
	for _, p := range types.Phases {
		probs[p] = exps[p] / sum
	}
	return probs
}

func argmax(probs map[types.PhaseName]float64) types.PhaseName {
	var best types.PhaseName
	bestVal := math.Inf(-1)
	for _, p := range types.Phases {
		if probs[p] > bestVal {
			bestVal = probs[p]
			best = p
		}
	}
	return best
}
