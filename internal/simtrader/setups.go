package simtrader

import (
	"fmt"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// SetupResult is one detector's verdict for the current bar.
type SetupResult struct {
	Detected  bool
	SetupType types.SetupType
	Direction types.TradeDirection
	Status    types.TradeStatus

	KeyLevel          float64
	KeyLevelName      string
	TargetLevel       float64
	TargetName        string
	InvalidationLevel float64

	Risk    types.RiskLevel
	Reasons []string

	ConfirmCount int
}

func waitResult() SetupResult {
	return SetupResult{Detected: false, Direction: types.TradeDirectionNone, Status: types.StatusWait}
}

func orLevel(primary, fallback float64) float64 {
	if primary > 0 {
		return primary
	}
	return fallback
}

// detectR1Breakout grounds the CALL breakout setup: price clears R1 with
// trend/breakout-quality/RVOL confirmation.
func detectR1Breakout(s types.AnalysisSnapshot, confirmCount int, cfg Config) SetupResult {
	r1 := s.Levels.R1
	if r1 <= 0 {
		return waitResult()
	}

	price := s.Price.Close
	buffer := cfg.buffer(price)
	armedDist := cfg.armedDistance(price)
	distance := r1 - price
	distancePct := distance / price * 100

	trendOK := s.Derived.Trend1m == types.TrendUp
	breakoutOK := s.Derived.BreakoutQuality == types.BreakoutQualityPass || s.Derived.BreakoutQuality == types.BreakoutQualityNone
	rvolOK := s.Derived.RVOLState != types.RVOLStateLow
	risk := types.RiskMedium

	var reasons []string
	if s.Derived.OpeningProtection && cfg.OpeningRequireHighRVOL {
		rvolOK = s.Derived.RVOLState == types.RVOLStateHigh
		if !rvolOK {
			reasons = append(reasons, "Opening protection: requires high RVOL")
		}
	}
	if trendOK {
		reasons = append(reasons, "Trend 1m: up")
	} else {
		reasons = append(reasons, fmt.Sprintf("Trend 1m: %s (not ideal)", s.Derived.Trend1m))
		risk = types.RiskHigh
	}
	if breakoutOK {
		reasons = append(reasons, fmt.Sprintf("Breakout quality: %s", orUnknown(s.Derived.BreakoutQuality)))
	} else {
		reasons = append(reasons, "Breakout quality: fail")
		risk = types.RiskHigh
	}
	if s.Derived.RVOLState != "" {
		reasons = append(reasons, fmt.Sprintf("RVOL: %s", s.Derived.RVOLState))
	}

	target, targetName := orLevel(s.Levels.R2, s.Levels.HOD), "R2"
	if s.Levels.R2 <= 0 {
		targetName = "HOD"
	}

	switch {
	case price > r1+buffer:
		newConfirm := 0
		if price > r1 {
			newConfirm = confirmCount + 1
		}
		status := types.StatusArmed
		lead := fmt.Sprintf("Price above R1 (%.2f), %d/%d confirms", r1, newConfirm, cfg.ConfirmBars)
		if newConfirm >= cfg.ConfirmBars && trendOK && breakoutOK && rvolOK {
			status = types.StatusEnter
			lead = fmt.Sprintf("%d consecutive closes above R1 (%.2f)", newConfirm, r1)
		}
		return SetupResult{
			Detected: true, SetupType: types.SetupR1Breakout, Direction: types.TradeDirectionCall, Status: status,
			KeyLevel: r1, KeyLevelName: "R1", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: r1 - buffer, Risk: risk, Reasons: prepend(lead, reasons), ConfirmCount: newConfirm,
		}
	case distance <= armedDist:
		lead := fmt.Sprintf("Price %.2f%% from R1 (%.2f)", distancePct, r1)
		return SetupResult{
			Detected: true, SetupType: types.SetupR1Breakout, Direction: types.TradeDirectionCall, Status: types.StatusArmed,
			KeyLevel: r1, KeyLevelName: "R1", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: r1 - buffer, Risk: risk, Reasons: prepend(lead, reasons),
		}
	case distance <= price*cfg.WatchDistancePct:
		lead := fmt.Sprintf("Price %.2f%% from R1 (%.2f)", distancePct, r1)
		return SetupResult{
			Detected: true, SetupType: types.SetupR1Breakout, Direction: types.TradeDirectionCall, Status: types.StatusWatch,
			KeyLevel: r1, KeyLevelName: "R1", TargetLevel: target, TargetName: targetName,
			Risk: risk, Reasons: prepend(lead, reasons),
		}
	default:
		return waitResult()
	}
}

// detectS1Breakdown mirrors detectR1Breakout for the PUT breakdown setup.
func detectS1Breakdown(s types.AnalysisSnapshot, confirmCount int, cfg Config) SetupResult {
	s1 := s.Levels.S1
	if s1 <= 0 {
		return waitResult()
	}

	price := s.Price.Close
	buffer := cfg.buffer(price)
	armedDist := cfg.armedDistance(price)
	distance := price - s1
	distancePct := distance / price * 100

	trendOK := s.Derived.Trend1m == types.TrendDown
	breakoutOK := s.Derived.BreakoutQuality == types.BreakoutQualityPass || s.Derived.BreakoutQuality == types.BreakoutQualityNone
	rvolOK := s.Derived.RVOLState != types.RVOLStateLow
	risk := types.RiskMedium

	var reasons []string
	if s.Derived.OpeningProtection && cfg.OpeningRequireHighRVOL {
		rvolOK = s.Derived.RVOLState == types.RVOLStateHigh
		if !rvolOK {
			reasons = append(reasons, "Opening protection: requires high RVOL")
		}
	}
	if trendOK {
		reasons = append(reasons, "Trend 1m: down")
	} else {
		reasons = append(reasons, fmt.Sprintf("Trend 1m: %s (not ideal)", s.Derived.Trend1m))
		risk = types.RiskHigh
	}
	if !breakoutOK {
		risk = types.RiskHigh
	}
	if s.Derived.RVOLState != "" {
		reasons = append(reasons, fmt.Sprintf("RVOL: %s", s.Derived.RVOLState))
	}

	target, targetName := orLevel(s.Levels.S2, s.Levels.LOD), "S2"
	if s.Levels.S2 <= 0 {
		targetName = "LOD"
	}

	switch {
	case price < s1-buffer:
		newConfirm := 0
		if price < s1 {
			newConfirm = confirmCount + 1
		}
		status := types.StatusArmed
		lead := fmt.Sprintf("Price below S1 (%.2f), %d/%d confirms", s1, newConfirm, cfg.ConfirmBars)
		if newConfirm >= cfg.ConfirmBars && trendOK && breakoutOK && rvolOK {
			status = types.StatusEnter
			lead = fmt.Sprintf("%d consecutive closes below S1 (%.2f)", newConfirm, s1)
		}
		return SetupResult{
			Detected: true, SetupType: types.SetupS1Breakdown, Direction: types.TradeDirectionPut, Status: status,
			KeyLevel: s1, KeyLevelName: "S1", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: s1 + buffer, Risk: risk, Reasons: prepend(lead, reasons), ConfirmCount: newConfirm,
		}
	case distance <= armedDist:
		lead := fmt.Sprintf("Price %.2f%% from S1 (%.2f)", distancePct, s1)
		return SetupResult{
			Detected: true, SetupType: types.SetupS1Breakdown, Direction: types.TradeDirectionPut, Status: types.StatusArmed,
			KeyLevel: s1, KeyLevelName: "S1", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: s1 + buffer, Risk: risk, Reasons: prepend(lead, reasons),
		}
	case distance <= price*cfg.WatchDistancePct:
		lead := fmt.Sprintf("Price %.2f%% from S1 (%.2f)", distancePct, s1)
		return SetupResult{
			Detected: true, SetupType: types.SetupS1Breakdown, Direction: types.TradeDirectionPut, Status: types.StatusWatch,
			KeyLevel: s1, KeyLevelName: "S1", TargetLevel: target, TargetName: targetName,
			Risk: risk, Reasons: prepend(lead, reasons),
		}
	default:
		return waitResult()
	}
}

// detectYCReclaim fires once price, having previously dipped below
// yesterday's close, closes back above it for confirmBars in a row.
func detectYCReclaim(s types.AnalysisSnapshot, confirmCount int, wasBelowYC bool, cfg Config) SetupResult {
	yc := s.Levels.YC
	if yc <= 0 {
		return waitResult()
	}

	price := s.Price.Close
	buffer := cfg.buffer(price)

	if price < yc {
		return SetupResult{
			Detected: false, SetupType: types.SetupYCReclaim, Direction: types.TradeDirectionNone, Status: types.StatusWatch,
			KeyLevel: yc, KeyLevelName: "YC", Reasons: []string{"Price below YC, watching for reclaim"},
		}
	}
	if !wasBelowYC {
		return waitResult()
	}

	trendOK := s.Derived.Trend1m != types.TrendDown
	risk := types.RiskMedium
	var reasons []string
	if trendOK {
		reasons = append(reasons, fmt.Sprintf("Trend 1m: %s", s.Derived.Trend1m))
	} else {
		reasons = append(reasons, "Trend 1m: down (caution)")
		risk = types.RiskHigh
	}
	if s.Derived.RVOLState != "" {
		reasons = append(reasons, fmt.Sprintf("RVOL: %s", s.Derived.RVOLState))
	}

	target, targetName := orLevel(s.Levels.R1, s.Levels.PMH), "R1"
	if s.Levels.R1 <= 0 {
		targetName = "PMH"
	}

	distancePct := (price - yc) / price * 100
	if price > yc+buffer {
		newConfirm := confirmCount + 1
		status := types.StatusArmed
		lead := fmt.Sprintf("Reclaiming YC (%.2f), %d/%d confirms", yc, newConfirm, cfg.ConfirmBars)
		if newConfirm >= cfg.ConfirmBars && trendOK {
			status = types.StatusEnter
			lead = fmt.Sprintf("YC reclaim confirmed: %d closes above YC (%.2f)", newConfirm, yc)
		}
		return SetupResult{
			Detected: true, SetupType: types.SetupYCReclaim, Direction: types.TradeDirectionCall, Status: status,
			KeyLevel: yc, KeyLevelName: "YC", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: yc - buffer, Risk: risk, Reasons: prepend(lead, reasons), ConfirmCount: newConfirm,
		}
	}
	lead := fmt.Sprintf("Price %.2f%% above YC (%.2f)", distancePct, yc)
	return SetupResult{
		Detected: true, SetupType: types.SetupYCReclaim, Direction: types.TradeDirectionCall, Status: types.StatusWatch,
		KeyLevel: yc, KeyLevelName: "YC", TargetLevel: target, TargetName: targetName,
		Risk: risk, Reasons: prepend(lead, reasons),
	}
}

// detectR1Reject fires once price has touched R1 and then closes back
// below it for confirmBars in a row, with trend or behavior confirming.
func detectR1Reject(s types.AnalysisSnapshot, confirmCount int, touchedR1 bool, cfg Config) SetupResult {
	r1 := s.Levels.R1
	if r1 <= 0 {
		return waitResult()
	}

	price := s.Price.Close
	high := s.Price.High
	buffer := cfg.buffer(price)

	if high >= r1-buffer {
		touchedR1 = true
	}
	if !touchedR1 {
		return waitResult()
	}

	rejected := price < r1-buffer
	trendOK := s.Derived.Trend1m == types.TrendDown
	behaviorOK := s.Derived.Behavior == types.SimBehaviorDistribution || s.Derived.Behavior == types.SimBehaviorWash
	risk := types.RiskMedium

	var reasons []string
	switch {
	case trendOK:
		reasons = append(reasons, "Trend 1m: down")
	case behaviorOK:
		reasons = append(reasons, fmt.Sprintf("Behavior: %s", s.Derived.Behavior))
	default:
		reasons = append(reasons, "Trend/behavior not confirming rejection")
		risk = types.RiskHigh
	}
	if s.Derived.RVOLState != "" {
		reasons = append(reasons, fmt.Sprintf("RVOL: %s", s.Derived.RVOLState))
	}

	target, targetName := orLevel(s.Levels.YC, s.Levels.S1), "YC"
	if s.Levels.YC <= 0 {
		targetName = "S1"
	}

	if rejected {
		newConfirm := confirmCount + 1
		status := types.StatusArmed
		lead := fmt.Sprintf("R1 (%.2f) rejection, %d/%d confirms", r1, newConfirm, cfg.ConfirmBars)
		if newConfirm >= cfg.ConfirmBars && (trendOK || behaviorOK) {
			status = types.StatusEnter
			lead = fmt.Sprintf("R1 rejection confirmed: %d closes below R1 (%.2f)", newConfirm, r1)
		}
		return SetupResult{
			Detected: true, SetupType: types.SetupR1Reject, Direction: types.TradeDirectionPut, Status: status,
			KeyLevel: r1, KeyLevelName: "R1", TargetLevel: target, TargetName: targetName,
			InvalidationLevel: r1 + buffer, Risk: risk, Reasons: prepend(lead, reasons), ConfirmCount: newConfirm,
		}
	}

	lead := fmt.Sprintf("Touched R1 (%.2f), watching for rejection", r1)
	return SetupResult{
		Detected: true, SetupType: types.SetupR1Reject, Direction: types.TradeDirectionPut, Status: types.StatusWatch,
		KeyLevel: r1, KeyLevelName: "R1", TargetLevel: target, TargetName: targetName,
		Risk: risk, Reasons: prepend(lead, reasons),
	}
}

var statusPriority = map[types.TradeStatus]int{
	types.StatusEnter: 0,
	types.StatusArmed: 1,
	types.StatusWatch: 2,
	types.StatusWait:  3,
}

// detectBestSetup runs all four detectors and keeps the highest-priority
// result (ENTER beats ARMED beats WATCH), breaking ties by risk label
// sorted ascending as a string (so "high" sorts before "low" and "medium").
func detectBestSetup(s types.AnalysisSnapshot, c types.SetupConfirmCounters, cfg Config) SetupResult {
	results := []SetupResult{
		detectR1Breakout(s, c.R1Confirm, cfg),
		detectS1Breakdown(s, c.S1Confirm, cfg),
		detectYCReclaim(s, c.YCConfirm, c.WasBelowYC, cfg),
		detectR1Reject(s, c.R1RejectConfirm, c.TouchedR1, cfg),
	}

	var detected []SetupResult
	for _, r := range results {
		if r.Detected {
			detected = append(detected, r)
		}
	}
	if len(detected) == 0 {
		return SetupResult{Detected: false, Direction: types.TradeDirectionNone, Status: types.StatusWait, Reasons: []string{"No setup detected"}}
	}

	best := detected[0]
	for _, r := range detected[1:] {
		if betterSetup(r, best) {
			best = r
		}
	}
	return best
}

func betterSetup(a, b SetupResult) bool {
	pa, pb := statusPriority[a.Status], statusPriority[b.Status]
	if pa != pb {
		return pa < pb
	}
	return string(a.Risk) < string(b.Risk)
}

func prepend(lead string, rest []string) []string {
	return append([]string{lead}, rest...)
}

func orUnknown(q types.BreakoutQuality) string {
	if q == "" {
		return "unknown"
	}
	return string(q)
}
