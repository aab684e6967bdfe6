package gateway

import (
	"math"
	"sort"

	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/internal/simtrader"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// recentWindow is how many trailing bars feed AnalysisSnapshot's
// RecentCloses/Highs/Lows, matching the ten-bar window the original
// service carried into the sim-trader.
const recentWindow = 10

// RVOL bucket thresholds: below low is "low", at or above high is "high".
const (
	lowRVOLThreshold  = 0.8
	highRVOLThreshold = 1.5
)

// BuildSnapshot converts one AnalysisReport plus its input bars into the
// sim-trader's per-update input, the gateway's equivalent of the original
// service's convert_analysis_to_snapshot: R1/R2/S1/S2 come from the
// zones nearest today's close, YC/YH/YL/PMH/PML from the EH context when
// present, HOD/LOD from the extremes of all bars passed in.
func BuildSnapshot(ticker string, bars []types.Bar, report *types.AnalysisReport, tf types.Timeframe, cfg simtrader.Config) (types.AnalysisSnapshot, error) {
	if len(bars) == 0 {
		return types.AnalysisSnapshot{}, types.NewInsufficientDataError(0, 1, "build_snapshot")
	}

	last := bars[len(bars)-1]

	levels := levelsFromReport(report, last.Close)
	levels.HOD, levels.LOD = highLow(bars)
	if report.EHContext != nil {
		levels.YC = report.EHContext.Levels.YC
		levels.YH = report.EHContext.Levels.YH
		levels.YL = report.EHContext.Levels.YL
		levels.PMH = report.EHContext.Levels.PMH
		levels.PML = report.EHContext.Levels.PML
	}

	derived, err := derivedSignals(bars, report, tf, cfg)
	if err != nil {
		return types.AnalysisSnapshot{}, err
	}

	return types.AnalysisSnapshot{
		Time:         last.Time,
		Ticker:       ticker,
		Interval:     tf,
		Price:        types.OHLC{Open: last.Open, High: last.High, Low: last.Low, Close: last.Close},
		Levels:       levels,
		Derived:      derived,
		Confidence:   report.MarketState.Confidence,
		RecentCloses: trailing(bars, recentWindow, func(b types.Bar) float64 { return b.Close }),
		RecentHighs:  trailing(bars, recentWindow, func(b types.Bar) float64 { return b.High }),
		RecentLows:   trailing(bars, recentWindow, func(b types.Bar) float64 { return b.Low }),
	}, nil
}

// levelsFromReport sorts the report's zones into resistances/supports
// relative to the current price and takes the nearest one/two of each.
func levelsFromReport(report *types.AnalysisReport, currentPrice float64) types.PriceLevels {
	var resistances, supports []float64
	for _, z := range report.Resistance {
		if mid := z.Mid(); mid > currentPrice {
			resistances = append(resistances, mid)
		}
	}
	for _, z := range report.Support {
		if mid := z.Mid(); mid < currentPrice {
			supports = append(supports, mid)
		}
	}
	sort.Float64s(resistances)
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))

	var levels types.PriceLevels
	if len(resistances) > 0 {
		levels.R1 = resistances[0]
	}
	if len(resistances) > 1 {
		levels.R2 = resistances[1]
	}
	if len(supports) > 0 {
		levels.S1 = supports[0]
	}
	if len(supports) > 1 {
		levels.S2 = supports[1]
	}
	return levels
}

func highLow(bars []types.Bar) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}

// derivedSignals maps the report's regime/behavior/breakout state and a
// freshly-computed RVOL reading into the sim-trader's coarser vocabulary,
// following the original service's regime/behavior/breakout_state maps.
func derivedSignals(bars []types.Bar, report *types.AnalysisReport, tf types.Timeframe, cfg simtrader.Config) (types.DerivedSignals, error) {
	trend := trendFromRegime(report.MarketState.Regime)

	f, err := features.CalculateFeatures(bars, 14, 30)
	if err != nil {
		return types.DerivedSignals{}, err
	}
	rvol := f.RVOL[len(f.RVOL)-1]

	d := types.DerivedSignals{
		Trend1m:         trend,
		Behavior:        simBehaviorFromPhase(report.Behavior.Dominant),
		BreakoutQuality: breakoutQualityFromSignals(report.Signals),
		RVOLState:       rvolState(rvol),
	}
	if tf == types.Timeframe5m {
		d.Trend5m = trend
	}
	d.OpeningProtection = cfg.OpeningRequireHighRVOL && isOpeningWindow(bars[len(bars)-1], cfg)
	return d, nil
}

func trendFromRegime(r types.Regime) types.Trend {
	switch r {
	case types.RegimeUptrend:
		return types.TrendUp
	case types.RegimeDowntrend:
		return types.TrendDown
	default:
		return types.TrendFlat
	}
}

// simBehaviorFromPhase maps the five-phase Wyckoff dominant phase down to
// the sim-trader's looser behavior vocabulary: shakeout->wash,
// markup->rally, markdown->markdown.
func simBehaviorFromPhase(phase types.PhaseName) types.SimBehavior {
	switch phase {
	case types.PhaseAccumulation:
		return types.SimBehaviorAccumulation
	case types.PhaseDistribution:
		return types.SimBehaviorDistribution
	case types.PhaseShakeout:
		return types.SimBehaviorWash
	case types.PhaseMarkup:
		return types.SimBehaviorRally
	case types.PhaseMarkdown:
		return types.SimBehaviorMarkdown
	default:
		return types.SimBehaviorNeutral
	}
}

// breakoutQualityFromSignals reads the most recent signal's type as a
// pass/fail/none verdict, following the original service's
// breakout_state -> breakout_quality map.
func breakoutQualityFromSignals(signals []types.Signal) types.BreakoutQuality {
	if len(signals) == 0 {
		return types.BreakoutQualityNone
	}
	switch signals[len(signals)-1].Type {
	case types.SignalBreakoutConfirmed:
		return types.BreakoutQualityPass
	case types.SignalFakeout:
		return types.BreakoutQualityFail
	default:
		return types.BreakoutQualityNone
	}
}

func rvolState(rvol float64) types.RVOLState {
	if math.IsNaN(rvol) {
		return types.RVOLStateNorm
	}
	switch {
	case rvol < lowRVOLThreshold:
		return types.RVOLStateLow
	case rvol > highRVOLThreshold:
		return types.RVOLStateHigh
	default:
		return types.RVOLStateNorm
	}
}

// isOpeningWindow reports whether bar falls in the configured
// opening-protection minutes after the trading start time.
func isOpeningWindow(bar types.Bar, cfg simtrader.Config) bool {
	h, m, _ := bar.Time.Clock()
	minutes := h*60 + m
	start := cfg.TradeStartHour*60 + cfg.TradeStartMinute
	return minutes >= start && minutes < start+cfg.OpeningProtectionMinutes
}

func trailing(bars []types.Bar, n int, pick func(types.Bar) float64) []float64 {
	if len(bars) < n {
		n = len(bars)
	}
	out := make([]float64, n)
	for i, b := range bars[len(bars)-n:] {
		out[i] = pick(b)
	}
	return out
}
