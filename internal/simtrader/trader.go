package simtrader

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

const planHistoryCap = 100

// Trader runs the WAIT/WATCH/ARMED/ENTER/HOLD/TRIM/EXIT state machine
// for one ticker, owning the plan history and trade review log for the
// life of the session.
type Trader struct {
	logger *zap.Logger
	ticker string
	cfg    Config

	plan        types.TradePlanRow
	tradesToday int
	history     []types.TradePlanRow
	reviews     []types.TradeReview
	counters    types.SetupConfirmCounters
}

// NewTrader returns a trader in WAIT, holding no setup.
func NewTrader(logger *zap.Logger, ticker string, cfg Config) *Trader {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Trader{logger: logger.Named("simtrader"), ticker: ticker, cfg: cfg}
	t.resetState()
	return t
}

func (t *Trader) resetState() {
	t.plan = waitPlan([]string{"No setup detected"})
	t.tradesToday = 0
	t.history = nil
	t.reviews = nil
	t.counters = types.SetupConfirmCounters{}
}

// ResetDaily clears the plan, trade count, history, and reviews for a
// new trading day.
func (t *Trader) ResetDaily() {
	t.resetState()
}

// GetState snapshots the trader's full visible state.
func (t *Trader) GetState() types.SimTradeState {
	plan := t.plan
	return types.SimTradeState{
		Ticker:      t.ticker,
		CurrentPlan: &plan,
		TradesToday: t.tradesToday,
		PlanHistory: append([]types.TradePlanRow{}, t.history...),
		Reviews:     append([]types.TradeReview{}, t.reviews...),
		Counters:    t.counters,
	}
}

// Update is the state machine's single entry point, called once per bar.
func (t *Trader) Update(s types.AnalysisSnapshot) types.TradePlanRow {
	if !t.isTradingTime(s) {
		t.plan = waitPlan([]string{"Outside trading hours"})
		return t.plan
	}

	if t.tradesToday >= t.cfg.MaxTradesPerDay && t.plan.Status != types.StatusHold && t.plan.Status != types.StatusTrim {
		t.plan = waitPlan([]string{fmt.Sprintf("Daily trade limit reached (%d/%d)", t.tradesToday, t.cfg.MaxTradesPerDay)})
		return t.plan
	}

	switch t.plan.Status {
	case types.StatusWait:
		t.handleWait(s)
	case types.StatusWatch:
		t.handleWatch(s)
	case types.StatusArmed:
		t.handleArmed(s)
	case types.StatusEnter:
		t.handleEnter(s)
	case types.StatusHold, types.StatusTrim:
		t.handlePosition(s)
	case types.StatusExit:
		t.handleExit(s)
	}
	return t.plan
}

func (t *Trader) handleWait(s types.AnalysisSnapshot) {
	result := detectBestSetup(s, t.counters, t.cfg)
	t.updateCounters(s, result)

	if result.Detected {
		t.plan = planFromSetup(s.Time, result, t.cfg)
		t.addToHistory()
		return
	}
	t.plan = waitPlan(result.Reasons)
}

func (t *Trader) handleWatch(s types.AnalysisSnapshot) {
	result := detectBestSetup(s, t.counters, t.cfg)
	t.updateCounters(s, result)

	switch {
	case !result.Detected:
		t.plan = waitPlan([]string{"Setup invalidated"})
		t.addToHistory()
	case result.Status == types.StatusArmed || result.Status == types.StatusEnter:
		t.plan = planFromSetup(s.Time, result, t.cfg)
		t.addToHistory()
	default:
		t.plan = planFromSetup(s.Time, result, t.cfg)
	}
}

func (t *Trader) handleArmed(s types.AnalysisSnapshot) {
	result := detectBestSetup(s, t.counters, t.cfg)
	t.updateCounters(s, result)

	switch {
	case !result.Detected:
		t.plan = waitPlan([]string{"Setup invalidated"})
		t.addToHistory()
	case result.Status == types.StatusEnter:
		t.plan = planFromSetup(s.Time, result, t.cfg)
		t.plan.EntryPrice = s.Price.Close
		t.plan.EntryTime = s.Time
		t.addToHistory()
	case result.Status == types.StatusWatch:
		t.plan = planFromSetup(s.Time, result, t.cfg)
		t.addToHistory()
	default:
		t.plan = planFromSetup(s.Time, result, t.cfg)
	}
}

func (t *Trader) handleEnter(s types.AnalysisSnapshot) {
	t.plan.Status = types.StatusHold
	t.plan.Time = s.Time
	t.plan.BarsSinceEntry = 1
	t.tradesToday++
	t.addToHistory()
}

func (t *Trader) handlePosition(s types.AnalysisSnapshot) {
	t.plan.BarsSinceEntry++
	t.plan.Time = s.Time
	t.plan.TargetAttempts = updateTargetAttempts(s, t.plan)

	advice := managePosition(s, t.plan, t.cfg)
	switch advice.Action {
	case types.StatusExit:
		t.plan.Status = types.StatusExit
		t.plan.Reasons = advice.Reasons
		t.addToHistory()
		t.recordReview(s)
	case types.StatusTrim:
		t.plan.Status = types.StatusTrim
		t.plan.Reasons = advice.Reasons
	default:
		t.plan.Status = types.StatusHold
		t.plan.Reasons = advice.Reasons
	}
}

func (t *Trader) handleExit(s types.AnalysisSnapshot) {
	t.plan = waitPlan([]string{"Trade completed, watching for next setup"})
	t.plan.Time = s.Time
	t.addToHistory()
}

func waitPlan(reasons []string) types.TradePlanRow {
	return types.TradePlanRow{
		Status:    types.StatusWait,
		Direction: types.TradeDirectionNone,
		Risk:      types.RiskMedium,
		Reasons:   reasons,
	}
}

// planFromSetup builds the trade plan row a setup detector's verdict
// implies: entry/target/invalidation strings, a watchlist hint for
// ARMED/ENTER, and the setup's numeric levels for position management.
func planFromSetup(ts time.Time, result SetupResult, cfg Config) types.TradePlanRow {
	var watchlistHint string
	if result.Status == types.StatusArmed || result.Status == types.StatusEnter {
		switch result.Direction {
		case types.TradeDirectionCall:
			watchlistHint = "Watch 0DTE ATM +1 strike CALL"
		case types.TradeDirectionPut:
			watchlistHint = "Watch 0DTE ATM +1 strike PUT"
		}
	}

	var entryUnderlying, targetUnderlying, invalidation string
	if result.KeyLevel > 0 {
		switch result.Direction {
		case types.TradeDirectionCall:
			entryUnderlying = fmt.Sprintf(">= %.2f (%d closes)", result.KeyLevel, cfg.ConfirmBars)
			if result.InvalidationLevel > 0 {
				invalidation = fmt.Sprintf("< %.2f (%d bars)", result.InvalidationLevel, cfg.InvalidateBars)
			}
		case types.TradeDirectionPut:
			entryUnderlying = fmt.Sprintf("<= %.2f (%d closes)", result.KeyLevel, cfg.ConfirmBars)
			if result.InvalidationLevel > 0 {
				invalidation = fmt.Sprintf("> %.2f (%d bars)", result.InvalidationLevel, cfg.InvalidateBars)
			}
		}
	}
	if result.TargetLevel > 0 {
		targetUnderlying = fmt.Sprintf("%s %.2f", result.TargetName, result.TargetLevel)
	}

	var entryZone string
	if result.SetupType != "" {
		entryZone = fmt.Sprintf("%s %s", result.KeyLevelName, strings.ToLower(strings.ReplaceAll(string(result.SetupType), "_", " ")))
	}

	return types.TradePlanRow{
		Time:              ts,
		Status:            result.Status,
		Direction:         result.Direction,
		EntryZone:         entryZone,
		EntryUnderlying:   entryUnderlying,
		TargetUnderlying:  targetUnderlying,
		Invalidation:      invalidation,
		Risk:              result.Risk,
		WatchlistHint:     watchlistHint,
		Reasons:           result.Reasons,
		SetupType:         result.SetupType,
		KeyLevel:          result.KeyLevel,
		TargetLevel:       result.TargetLevel,
		InvalidationLevel: result.InvalidationLevel,
	}
}

func (t *Trader) addToHistory() {
	t.history = append(t.history, t.plan)
	if len(t.history) > planHistoryCap {
		t.history = t.history[len(t.history)-planHistoryCap:]
	}
}

func (t *Trader) updateCounters(s types.AnalysisSnapshot, result SetupResult) {
	price := s.Price.Close

	switch result.SetupType {
	case types.SetupR1Breakout:
		t.counters.R1Confirm = result.ConfirmCount
	case types.SetupS1Breakdown:
		t.counters.S1Confirm = result.ConfirmCount
	case types.SetupYCReclaim:
		t.counters.YCConfirm = result.ConfirmCount
	case types.SetupR1Reject:
		t.counters.R1RejectConfirm = result.ConfirmCount
	}

	if s.Levels.YC > 0 && price < s.Levels.YC {
		t.counters.WasBelowYC = true
	}
	if s.Levels.R1 > 0 && s.Price.High >= s.Levels.R1 {
		t.counters.TouchedR1 = true
	}
}

func (t *Trader) recordReview(s types.AnalysisSnapshot) {
	if t.plan.EntryTime.IsZero() || t.plan.EntryPrice <= 0 {
		return
	}
	exitPrice := s.Price.Close

	var pnlPct float64
	if t.plan.Direction == types.TradeDirectionCall {
		pnlPct = (exitPrice - t.plan.EntryPrice) / t.plan.EntryPrice * 100
	} else {
		pnlPct = (t.plan.EntryPrice - exitPrice) / t.plan.EntryPrice * 100
	}

	outcome := types.OutcomeBreakeven
	switch {
	case pnlPct > 0.1:
		outcome = types.OutcomeWin
	case pnlPct < -0.1:
		outcome = types.OutcomeLoss
	}

	failureNote := ""
	if outcome == types.OutcomeLoss {
		failureNote = fmt.Sprintf("%s: %.2f%% against entry %s",
			t.plan.SetupType, pnlPct,
			decimal.NewFromFloat(t.plan.EntryPrice).StringFixed(2))
	}

	t.reviews = append(t.reviews, types.TradeReview{
		ID:          uuid.NewString(),
		EntryTime:   t.plan.EntryTime,
		ExitTime:    s.Time,
		EntryPrice:  t.plan.EntryPrice,
		ExitPrice:   exitPrice,
		Outcome:     outcome,
		PnLPct:      pnlPct,
		SetupType:   t.plan.SetupType,
		FailureNote: failureNote,
	})
}

func (t *Trader) isTradingTime(s types.AnalysisSnapshot) bool {
	h, m, _ := s.Time.Clock()
	minutes := h*60 + m
	start := t.cfg.TradeStartHour*60 + t.cfg.TradeStartMinute
	end := t.cfg.TradeEndHour*60 + t.cfg.TradeEndMinute
	return minutes >= start && minutes <= end
}
