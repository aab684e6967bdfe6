package extendedhours

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
	"github.com/songzhiyuan98/klinelens-go/pkg/utils"
)

const lateWindowBars = 30

// computeAHRisk is the closing-behavior heuristic, using
// only yesterday's regular session: close position within the day's
// range, relative volume in the last 30 regular bars versus the session
// average, and directional consistency of bar closes.
func computeAHRisk(regular []types.Bar) types.AHRisk {
	if len(regular) == 0 {
		return types.AHRisk{Risk: types.AHRiskLow, LikelyBehavior: types.AHBehaviorDrift}
	}

	high, low := highLow(regular)
	last := regular[len(regular)-1]
	closePosition := 0.5
	if high > low {
		closePosition = (last.Close - low) / (high - low)
	}

	lateStart := len(regular) - lateWindowBars
	if lateStart < 0 {
		lateStart = 0
	}
	late := regular[lateStart:]
	lateVolume := totalVolume(late)
	sessionAvgVolume := totalVolume(regular) / float64(len(regular)) * float64(len(late))
	lateRVOL := 1.0
	if sessionAvgVolume > 0 {
		lateRVOL = lateVolume / sessionAvgVolume
	}

	upCloses, downCloses := 0, 0
	for i := 1; i < len(regular); i++ {
		if regular[i].Close > regular[i-1].Close {
			upCloses++
		} else if regular[i].Close < regular[i-1].Close {
			downCloses++
		}
	}
	total := upCloses + downCloses
	consistency := 0.0
	if total > 0 {
		consistency = math.Abs(float64(upCloses-downCloses)) / float64(total)
	}
	isTrendDay := consistency >= 0.5

	risk := types.AHRiskLow
	switch {
	case closePosition >= 0.85 || closePosition <= 0.15:
		if lateRVOL >= 1.5 {
			risk = types.AHRiskHigh
		} else {
			risk = types.AHRiskMed
		}
	case lateRVOL >= 1.5:
		risk = types.AHRiskMed
	}

	var behavior types.AHLikelyBehavior
	switch {
	case isTrendDay && (closePosition >= 0.8 || closePosition <= 0.2):
		behavior = types.AHBehaviorContinuation
	case !isTrendDay && (closePosition >= 0.8 || closePosition <= 0.2):
		behavior = types.AHBehaviorMeanRevert
	default:
		behavior = types.AHBehaviorDrift
	}

	return types.AHRisk{
		Risk: risk, LikelyBehavior: behavior,
		ClosePosition: closePosition, LateRVOL: lateRVOL, IsTrendDay: isTrendDay,
	}
}

func totalVolume(bars []types.Bar) float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return utils.Mean(vols) * float64(len(vols))
}

// classifyPremarketRegime labels the overnight setup from the gap and
// premarket bar behavior, only ever called at EHQualityComplete.
func classifyPremarketRegime(lv types.EHLevels, premarket []types.Bar) (types.PremarketRegime, string) {
	if !lv.HasGap || len(premarket) == 0 {
		return types.PremarketUnavailable, "eh.neutral"
	}

	atrProxy := rangeATRProxy(premarket)
	absGap := math.Abs(lv.Gap)
	trending := isTrendingSameDirection(premarket, lv.Gap)

	switch {
	case absGap > 0.5*atrProxy && !trending:
		return types.PremarketGapFillBias, "eh.gap_fill_bias"
	case absGap > atrProxy && trending:
		if lv.Gap > 0 {
			return types.PremarketGapAndGo, "eh.gap_and_go_up"
		}
		return types.PremarketGapAndGo, "eh.gap_and_go_down"
	case trending:
		return types.PremarketTrendContinuation, "eh.trend_continuation"
	default:
		return types.PremarketRangeDaySetup, "eh.range_day_setup"
	}
}

func rangeATRProxy(bars []types.Bar) float64 {
	high, low := highLow(bars)
	if high <= low {
		return 1
	}
	return high - low
}

func isTrendingSameDirection(bars []types.Bar, gap float64) bool {
	if len(bars) < 2 {
		return false
	}
	delta := bars[len(bars)-1].Close - bars[0].Close
	return (gap > 0 && delta > 0) || (gap < 0 && delta < 0)
}
