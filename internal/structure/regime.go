package structure

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// ClassifyRegime over the last m swings on each side, counts HH/LH among
// highs and HL/LL among lows. up = HH+HL,
// down = LL+LH, T = total comparisons. Fewer than 2 swings on either side
// yields (range, 0.5).
func ClassifyRegime(highs, lows []types.SwingPoint, m int) types.MarketState {
	recentHighs := lastN(highs, m)
	recentLows := lastN(lows, m)

	if len(recentHighs) < 2 || len(recentLows) < 2 {
		return types.MarketState{Regime: types.RegimeRange, Confidence: 0.5}
	}

	hh, lh := countTransitions(recentHighs)
	hl, ll := countTransitions(recentLows)

	up := float64(hh + hl)
	down := float64(ll + lh)
	T := up + down

	if T == 0 {
		return types.MarketState{Regime: types.RegimeRange, Confidence: 0.5}
	}

	switch {
	case up/T >= 0.6:
		return types.MarketState{Regime: types.RegimeUptrend, Confidence: up / T}
	case down/T >= 0.6:
		return types.MarketState{Regime: types.RegimeDowntrend, Confidence: down / T}
	default:
		return types.MarketState{Regime: types.RegimeRange, Confidence: 1 - math.Abs(up-down)/T}
	}
}

func lastN(points []types.SwingPoint, n int) []types.SwingPoint {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

// countTransitions counts "higher than previous" vs "lower than previous"
// across consecutive, time-ordered points. For highs these are HH/LH; for
// lows these are interpreted by the caller as HL/LL (same comparison
// shape, different label).
func countTransitions(points []types.SwingPoint) (higher, lower int) {
	for i := 1; i < len(points); i++ {
		switch {
		case points[i].Price > points[i-1].Price:
			higher++
		case points[i].Price < points[i-1].Price:
			lower++
		}
	}
	return higher, lower
}
