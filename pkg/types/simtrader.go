package types

import "time"

// PriceLevels is the set of key levels the sim-trader reasons about
//.
type PriceLevels struct {
	R1, R2   float64
	S1, S2   float64
	YC       float64
	HOD, LOD float64
	YH, YL   float64
	PMH, PML float64
}

// DerivedSignals is the sim-trader's coarse view of market context,
// computed upstream by the caller from an AnalysisReport.
type DerivedSignals struct {
	Trend1m          Trend
	Trend5m          Trend
	Behavior         SimBehavior
	BreakoutQuality  BreakoutQuality
	RVOLState        RVOLState
	OpeningProtection bool
}

// OHLC is the current bar's price quad, without volume (sim-trader
// snapshots reason about price only).
type OHLC struct {
	Open, High, Low, Close float64
}

// AnalysisSnapshot is the sim-trader's per-update input.
type AnalysisSnapshot struct {
	Time     time.Time
	Ticker   string
	Interval Timeframe
	Price    OHLC
	Levels   PriceLevels
	Derived  DerivedSignals

	Confidence float64 // optional; 0 means "not supplied"

	RecentCloses []float64
	RecentHighs  []float64
	RecentLows   []float64
}

// TradePlanRow is the sim-trader's per-update output.
type TradePlanRow struct {
	Time   time.Time
	Status TradeStatus

	Direction TradeDirection
	EntryZone string // setup description

	EntryUnderlying  string // e.g. ">= 624.30 (2 closes)"
	TargetUnderlying string // e.g. "R2 626.10"
	Invalidation     string // e.g. "< 624.00 (2 bars)"
	Risk             RiskLevel
	WatchlistHint    string // e.g. "Watch 0DTE ATM +1 CALL"
	Reasons          []string

	SetupType          SetupType
	KeyLevel           float64
	TargetLevel        float64
	InvalidationLevel  float64
	EntryPrice         float64
	EntryTime          time.Time
	BarsSinceEntry     int
	TargetAttempts     int
}

// TradeReview is an append-only record of one closed trade.
type TradeReview struct {
	ID          string
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Outcome     TradeOutcome
	PnLPct      float64
	SetupType   SetupType
	FailureNote string // empty unless Outcome == OutcomeLoss
}

// SetupConfirmCounters is the sim-trader's per-ticker bookkeeping,
// tracking consecutive confirming closes for each setup detector.
type SetupConfirmCounters struct {
	R1Confirm       int
	S1Confirm       int
	YCConfirm       int
	R1RejectConfirm int
	WasBelowYC      bool
	TouchedR1       bool
}

// SimTradeState is the sim-trader's per-ticker state, owned by the trader
// for the life of the session.
type SimTradeState struct {
	Ticker      string
	CurrentPlan *TradePlanRow
	TradesToday int
	PlanHistory []TradePlanRow // capped at 100
	Reviews     []TradeReview  // append-only

	Counters SetupConfirmCounters
}
