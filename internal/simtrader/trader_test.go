package simtrader_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/simtrader"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func snapshotAt(hh, mm int, close float64, r1 float64) types.AnalysisSnapshot {
	return types.AnalysisSnapshot{
		Time:   time.Date(2024, 1, 15, hh, mm, 0, 0, time.UTC),
		Ticker: "QQQ",
		Price:  types.OHLC{Open: close, High: close, Low: close, Close: close},
		Levels: types.PriceLevels{R1: r1},
		Derived: types.DerivedSignals{
			Trend1m:         types.TrendUp,
			BreakoutQuality: types.BreakoutQualityPass,
			RVOLState:       types.RVOLStateHigh,
		},
	}
}

// TestArmedToEnterTransition drives a rising price series
// through R1 produces ARMED, ARMED, ARMED, ENTER, then HOLD with
// trades_today incrementing exactly once.
func TestArmedToEnterTransition(t *testing.T) {
	tr := simtrader.NewTrader(zap.NewNop(), "QQQ", simtrader.DefaultConfig())

	closes := []float64{623.80, 623.95, 624.40, 624.60}
	wantStatus := []types.TradeStatus{types.StatusArmed, types.StatusArmed, types.StatusArmed, types.StatusEnter}

	for i, c := range closes {
		plan := tr.Update(snapshotAt(9, 45+i, c, 624.00))
		if plan.Status != wantStatus[i] {
			t.Fatalf("bar %d: status = %v, want %v", i, plan.Status, wantStatus[i])
		}
	}

	if state := tr.GetState(); state.TradesToday != 0 {
		t.Fatalf("trades_today = %d before HOLD, want 0", state.TradesToday)
	}

	plan := tr.Update(snapshotAt(9, 49, 624.70, 624.00))
	if plan.Status != types.StatusHold {
		t.Fatalf("status after ENTER = %v, want HOLD", plan.Status)
	}
	if state := tr.GetState(); state.TradesToday != 1 {
		t.Fatalf("trades_today = %d after ENTER->HOLD, want 1", state.TradesToday)
	}
}

// TestDailyTradeLimitForcesWait checks that once trades_today hits
// max_trades_per_day and no position is held, further updates return WAIT.
func TestDailyTradeLimitForcesWait(t *testing.T) {
	cfg := simtrader.DefaultConfig()
	cfg.MaxTradesPerDay = 1
	tr := simtrader.NewTrader(zap.NewNop(), "QQQ", cfg)

	closes := []float64{623.80, 623.95, 624.40, 624.60}
	for i, c := range closes {
		tr.Update(snapshotAt(9, 45+i, c, 624.00))
	}
	plan := tr.Update(snapshotAt(9, 49, 624.70, 624.00))
	if plan.Status != types.StatusHold {
		t.Fatalf("expected HOLD after ENTER, got %v", plan.Status)
	}

	// Force an EXIT by flipping the trend against the CALL position.
	exitSnap := snapshotAt(9, 50, 624.80, 624.00)
	exitSnap.Derived.Trend1m = types.TrendDown
	plan = tr.Update(exitSnap)
	if plan.Status != types.StatusExit {
		t.Fatalf("expected EXIT on trend reversal, got %v: %v", plan.Status, plan.Reasons)
	}

	// EXIT always rolls to WAIT on the following bar.
	plan = tr.Update(snapshotAt(9, 51, 624.00, 624.00))
	if plan.Status != types.StatusWait {
		t.Fatalf("expected WAIT after EXIT, got %v", plan.Status)
	}

	// The daily cap is now reached with no position held: any further
	// setup must not be allowed to re-enter.
	plan = tr.Update(snapshotAt(9, 52, 623.80, 624.00))
	if plan.Status != types.StatusWait {
		t.Fatalf("expected WAIT at daily trade cap, got %v", plan.Status)
	}
	if state := tr.GetState(); state.TradesToday != 1 {
		t.Fatalf("trades_today = %d, want 1", state.TradesToday)
	}
}

// TestOutsideTradingHoursIsWait checks the trading-window gate.
func TestOutsideTradingHoursIsWait(t *testing.T) {
	tr := simtrader.NewTrader(zap.NewNop(), "QQQ", simtrader.DefaultConfig())
	plan := tr.Update(snapshotAt(9, 31, 624.00, 624.50))
	if plan.Status != types.StatusWait {
		t.Fatalf("status = %v, want WAIT before the trading window opens", plan.Status)
	}
	if len(plan.Reasons) == 0 || plan.Reasons[0] != "Outside trading hours" {
		t.Fatalf("reasons = %v, want a trading-hours reason", plan.Reasons)
	}
}

// TestResetDailyClearsState verifies ResetDaily wipes the plan, trade
// count, history, and reviews.
func TestResetDailyClearsState(t *testing.T) {
	tr := simtrader.NewTrader(zap.NewNop(), "QQQ", simtrader.DefaultConfig())
	closes := []float64{623.80, 623.95, 624.40, 624.60}
	for i, c := range closes {
		tr.Update(snapshotAt(9, 45+i, c, 624.00))
	}
	tr.Update(snapshotAt(9, 49, 624.70, 624.00))

	tr.ResetDaily()
	state := tr.GetState()
	if state.TradesToday != 0 || len(state.PlanHistory) != 0 || state.CurrentPlan.Status != types.StatusWait {
		t.Fatalf("ResetDaily left state = %+v", state)
	}
}
