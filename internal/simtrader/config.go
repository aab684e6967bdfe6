// Package simtrader implements the 0DTE options trade-plan state machine:
// four setup detectors feeding a WAIT/WATCH/ARMED/ENTER/HOLD/TRIM/EXIT
// state graph, with daily trade accounting and append-only trade review.
package simtrader

// Config holds every tunable threshold for setup detection, position
// management, and trading-hours gating. All times assume the caller has
// already localized AnalysisSnapshot.Time to US/Eastern wall clock.
type Config struct {
	BufferPct       float64 // fraction of price treated as noise around a level
	ConfirmBars     int     // consecutive closes required to confirm ENTER
	InvalidateBars  int     // consecutive closes required to confirm invalidation

	ArmedDistancePct float64 // distance to a level that triggers ARMED
	WatchDistancePct float64 // distance to a level that triggers WATCH

	TimeStopMinutes   int // bars-since-entry with no progress before TRIM
	MaxTargetAttempts int // target tests without a break before TRIM
	MaxTradesPerDay   int

	OpeningProtectionMinutes int  // minutes after the open requiring high RVOL
	OpeningRequireHighRVOL   bool

	TradeStartHour, TradeStartMinute int
	TradeEndHour, TradeEndMinute     int

	DefaultTargetATRMultiple float64
	DefaultStopATRMultiple   float64
}

// DefaultConfig returns the stock parameter set.
func DefaultConfig() Config {
	return Config{
		BufferPct:                0.0005,
		ConfirmBars:              2,
		InvalidateBars:           2,
		ArmedDistancePct:         0.003,
		WatchDistancePct:         0.01,
		TimeStopMinutes:          10,
		MaxTargetAttempts:        3,
		MaxTradesPerDay:          1,
		OpeningProtectionMinutes: 10,
		OpeningRequireHighRVOL:   true,
		TradeStartHour:           9,
		TradeStartMinute:         40,
		TradeEndHour:             15,
		TradeEndMinute:           0,
		DefaultTargetATRMultiple: 1.5,
		DefaultStopATRMultiple:   0.5,
	}
}

func (c Config) buffer(price float64) float64 {
	return price * c.BufferPct
}

func (c Config) armedDistance(price float64) float64 {
	return price * c.ArmedDistancePct
}

func (c Config) watchDistance(price float64) float64 {
	return price * c.WatchDistancePct
}
