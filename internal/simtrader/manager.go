package simtrader

import (
	"fmt"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// ManageAdvice is the position-management verdict for a HOLD/TRIM plan.
type ManageAdvice struct {
	Action  types.TradeStatus // HOLD, TRIM, or EXIT
	Reasons []string
	Urgent  bool
}

// checkExitConditions fires EXIT the instant any hard stop trips:
// invalidation breached, trend reversed against the position, or
// behavior flipped to the opposing side.
func checkExitConditions(s types.AnalysisSnapshot, plan types.TradePlanRow, cfg Config) (ManageAdvice, bool) {
	var reasons []string
	price := s.Price.Close

	if plan.InvalidationLevel > 0 {
		switch plan.SetupType {
		case types.SetupR1Breakout, types.SetupYCReclaim:
			if price < plan.KeyLevel-cfg.buffer(price) {
				reasons = append(reasons, fmt.Sprintf("Price below key level %.2f", plan.KeyLevel))
			}
		case types.SetupS1Breakdown, types.SetupR1Reject:
			if price > plan.KeyLevel+cfg.buffer(price) {
				reasons = append(reasons, fmt.Sprintf("Price above key level %.2f", plan.KeyLevel))
			}
		}
	}

	switch plan.Direction {
	case types.TradeDirectionCall:
		if s.Derived.Trend1m == types.TrendDown {
			reasons = append(reasons, "Trend 1m reversed to down")
		}
		if s.Derived.Behavior == types.SimBehaviorDistribution || s.Derived.Behavior == types.SimBehaviorWash {
			reasons = append(reasons, fmt.Sprintf("Behavior turned %s", s.Derived.Behavior))
		}
	case types.TradeDirectionPut:
		if s.Derived.Trend1m == types.TrendUp {
			reasons = append(reasons, "Trend 1m reversed to up")
		}
		if s.Derived.Behavior == types.SimBehaviorAccumulation || s.Derived.Behavior == types.SimBehaviorRally {
			reasons = append(reasons, fmt.Sprintf("Behavior turned %s", s.Derived.Behavior))
		}
	}

	if len(reasons) == 0 {
		return ManageAdvice{}, false
	}
	return ManageAdvice{Action: types.StatusExit, Reasons: reasons, Urgent: true}, true
}

// checkTrimConditions fires TRIM on a soft stop: a time stop with no
// progress, repeated failed target tests, or fading momentum.
func checkTrimConditions(s types.AnalysisSnapshot, plan types.TradePlanRow, cfg Config) (ManageAdvice, bool) {
	var reasons []string

	if plan.BarsSinceEntry >= cfg.TimeStopMinutes && plan.EntryPrice > 0 {
		price := s.Price.Close
		var progress float64
		switch plan.Direction {
		case types.TradeDirectionCall:
			progress = (price - plan.EntryPrice) / plan.EntryPrice * 100
		case types.TradeDirectionPut:
			progress = (plan.EntryPrice - price) / plan.EntryPrice * 100
		}
		if progress < 0.1 {
			reasons = append(reasons, fmt.Sprintf("Time stop: %d bars, no progress", plan.BarsSinceEntry))
		}
	}

	if plan.TargetAttempts >= cfg.MaxTargetAttempts {
		reasons = append(reasons, fmt.Sprintf("Target tested %dx without breaking", plan.TargetAttempts))
	}

	if s.Derived.RVOLState == types.RVOLStateLow && s.Derived.Behavior == types.SimBehaviorNeutral {
		reasons = append(reasons, "Momentum fading: low RVOL + chop")
	}

	if len(reasons) == 0 {
		return ManageAdvice{}, false
	}
	return ManageAdvice{Action: types.StatusTrim, Reasons: reasons}, true
}

// checkHoldConditions is the fallback verdict: structure intact, still
// progressing, breakout quality still valid.
func checkHoldConditions(s types.AnalysisSnapshot, plan types.TradePlanRow) ManageAdvice {
	var reasons []string
	price := s.Price.Close

	switch plan.Direction {
	case types.TradeDirectionCall:
		if s.Derived.Trend1m == types.TrendUp || s.Derived.Trend1m == types.TrendFlat {
			reasons = append(reasons, fmt.Sprintf("Structure intact: trend %s", s.Derived.Trend1m))
		}
	case types.TradeDirectionPut:
		if s.Derived.Trend1m == types.TrendDown || s.Derived.Trend1m == types.TrendFlat {
			reasons = append(reasons, fmt.Sprintf("Structure intact: trend %s", s.Derived.Trend1m))
		}
	}

	if plan.EntryPrice > 0 {
		var progress float64
		switch plan.Direction {
		case types.TradeDirectionCall:
			progress = (price - plan.EntryPrice) / plan.EntryPrice * 100
		case types.TradeDirectionPut:
			progress = (plan.EntryPrice - price) / plan.EntryPrice * 100
		}
		if progress > 0 {
			reasons = append(reasons, fmt.Sprintf("Progressing toward target: +%.2f%%", progress))
		}
	}

	if s.Derived.BreakoutQuality == types.BreakoutQualityPass {
		reasons = append(reasons, "Breakout quality: pass")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "No adverse conditions detected")
	}

	return ManageAdvice{Action: types.StatusHold, Reasons: reasons}
}

// managePosition checks EXIT, then TRIM, then defaults to HOLD.
func managePosition(s types.AnalysisSnapshot, plan types.TradePlanRow, cfg Config) ManageAdvice {
	if advice, ok := checkExitConditions(s, plan, cfg); ok {
		return advice
	}
	if advice, ok := checkTrimConditions(s, plan, cfg); ok {
		return advice
	}
	return checkHoldConditions(s, plan)
}

// updateTargetAttempts increments the target-test counter when a bar
// wicks into the target without closing past it.
func updateTargetAttempts(s types.AnalysisSnapshot, plan types.TradePlanRow) int {
	if plan.TargetLevel <= 0 {
		return plan.TargetAttempts
	}
	high, low, close := s.Price.High, s.Price.Low, s.Price.Close
	switch plan.Direction {
	case types.TradeDirectionCall:
		if high >= plan.TargetLevel*0.999 && close < plan.TargetLevel {
			return plan.TargetAttempts + 1
		}
	case types.TradeDirectionPut:
		if low <= plan.TargetLevel*1.001 && close > plan.TargetLevel {
			return plan.TargetAttempts + 1
		}
	}
	return plan.TargetAttempts
}
