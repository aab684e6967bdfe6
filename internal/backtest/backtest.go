// Package backtest slides a fixed-size window of bars across a ticker's
// history, runs the analysis orchestrator on each window, and scores
// every emitted signal against a truth rule evaluated on the bars that
// follow it.
package backtest

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/analysis"
	"github.com/songzhiyuan98/klinelens-go/internal/workers"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
	"github.com/songzhiyuan98/klinelens-go/pkg/utils"
)

const (
	windowSize = 100
	stepSize   = 20
	minBars    = 50

	breakoutLookahead    = 10
	breakoutThresholdPct = 0.005
	fakeoutLookahead     = 5
	fakeoutThresholdPct  = 0.01
	targetLookahead      = 20
	targetThresholdPct   = 0.02
)

// TickerResult is one ticker's scored run.
type TickerResult struct {
	Ticker               string
	SignalsEvaluated     int
	BreakoutAccuracy     float64
	FakeoutDetectionRate float64
	HitRate              float64
	TimelinePrecision    float64
}

// AggregateMetrics summarizes TickerResults across a universe of tickers.
type AggregateMetrics struct {
	BreakoutAccuracyMean, BreakoutAccuracyStdDev         float64
	FakeoutDetectionRateMean, FakeoutDetectionRateStdDev float64
	HitRateMean, HitRateStdDev                           float64
	TimelinePrecisionMean, TimelinePrecisionStdDev       float64
	TickerResults                                        []TickerResult
}

// Harness runs the sliding-window evaluator, optionally fanning out
// across tickers via a worker pool.
type Harness struct {
	logger *zap.Logger
	engine *analysis.Engine
}

// NewHarness wires a fresh analysis engine for the evaluator to drive.
func NewHarness(logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{logger: logger.Named("backtest"), engine: analysis.NewEngine(logger)}
}

// RunTicker slides windowSize-bar windows (stepping by stepSize) across
// bars, scoring every signal the orchestrator emits per window.
func (h *Harness) RunTicker(ticker string, bars []types.Bar, tf types.Timeframe, params types.AnalysisParams) (TickerResult, error) {
	if len(bars) < minBars {
		return TickerResult{}, fmt.Errorf("backtest: %s has %d bars, need at least %d", ticker, len(bars), minBars)
	}

	var (
		breakoutTotal, breakoutTrue int
		fakeoutTotal, fakeoutTrue   int
		targetTotal, targetTrue     int
		eventTotal, eventSignal     int
	)

	for start := 0; ; start += stepSize {
		end := start + windowSize
		if end > len(bars) {
			end = len(bars)
		}
		window := bars[start:end]
		if len(window) < params.ATRPeriod+1 {
			break
		}

		report, err := h.engine.AnalyzeMarket(window, ticker, tf, params, nil, nil)
		if err != nil {
			return TickerResult{}, err
		}

		for _, sig := range report.Signals {
			absIndex := start + sig.BarIndex
			switch sig.Type {
			case types.SignalBreakoutAttempt, types.SignalBreakoutConfirmed:
				breakoutTotal++
				if breakoutTruth(bars, absIndex, sig) {
					breakoutTrue++
				}
			case types.SignalFakeout:
				fakeoutTotal++
				if fakeoutTruth(bars, absIndex, sig) {
					fakeoutTrue++
				}
			}
			targetTotal++
			if targetTruth(bars, absIndex, sig) {
				targetTrue++
			}
		}

		for _, ev := range report.Timeline {
			eventTotal++
			if isSignalEvent(ev.Type) {
				eventSignal++
			}
		}

		if end == len(bars) {
			break
		}
	}

	result := TickerResult{Ticker: ticker, SignalsEvaluated: targetTotal}
	if breakoutTotal > 0 {
		result.BreakoutAccuracy = float64(breakoutTrue) / float64(breakoutTotal)
	}
	if fakeoutTotal > 0 {
		result.FakeoutDetectionRate = float64(fakeoutTrue) / float64(fakeoutTotal)
	}
	if targetTotal > 0 {
		result.HitRate = float64(targetTrue) / float64(targetTotal)
	}
	if eventTotal > 0 {
		result.TimelinePrecision = float64(eventSignal) / float64(eventTotal)
	}

	h.logger.Debug("backtest run",
		zap.String("ticker", ticker), zap.Int("signals", result.SignalsEvaluated),
		zap.Float64("breakout_accuracy", result.BreakoutAccuracy), zap.Float64("hit_rate", result.HitRate))

	return result, nil
}

func isSignalEvent(t types.EventType) bool {
	switch t {
	case types.EventBreakoutAttempt, types.EventBreakoutConfirmed, types.EventFakeoutDetected, types.EventRegimeChange:
		return true
	default:
		return false
	}
}

// breakoutTruth holds when the extremum on the breakout side exceeds the
// signal's level by breakoutThresholdPct within breakoutLookahead bars.
func breakoutTruth(bars []types.Bar, signalIdx int, sig types.Signal) bool {
	for i := signalIdx + 1; i <= signalIdx+breakoutLookahead && i < len(bars); i++ {
		if sig.Direction == types.DirectionUp {
			if bars[i].High >= sig.Level*(1+breakoutThresholdPct) {
				return true
			}
		} else {
			if bars[i].Low <= sig.Level*(1-breakoutThresholdPct) {
				return true
			}
		}
	}
	return false
}

// fakeoutTruth holds when the close crosses to the opposite side by
// fakeoutThresholdPct within fakeoutLookahead bars.
func fakeoutTruth(bars []types.Bar, signalIdx int, sig types.Signal) bool {
	for i := signalIdx + 1; i <= signalIdx+fakeoutLookahead && i < len(bars); i++ {
		if sig.Direction == types.DirectionUp {
			if bars[i].Close <= sig.Level*(1-fakeoutThresholdPct) {
				return true
			}
		} else {
			if bars[i].Close >= sig.Level*(1+fakeoutThresholdPct) {
				return true
			}
		}
	}
	return false
}

// targetTruth holds when price reaches targetThresholdPct from the
// level in the signal's direction within targetLookahead bars.
func targetTruth(bars []types.Bar, signalIdx int, sig types.Signal) bool {
	for i := signalIdx + 1; i <= signalIdx+targetLookahead && i < len(bars); i++ {
		if sig.Direction == types.DirectionUp {
			if bars[i].High >= sig.Level*(1+targetThresholdPct) {
				return true
			}
		} else {
			if bars[i].Low <= sig.Level*(1-targetThresholdPct) {
				return true
			}
		}
	}
	return false
}

// TickerBars is one ticker's bar history, the unit of work RunUniverse
// fans out across the worker pool.
type TickerBars struct {
	Ticker string
	Bars   []types.Bar
}

// RunUniverse runs RunTicker for every entry concurrently on pool
// (already started by the caller) and aggregates the results.
func (h *Harness) RunUniverse(tickers []TickerBars, tf types.Timeframe, params types.AnalysisParams, pool *workers.Pool) (AggregateMetrics, []error) {
	var (
		mu      sync.Mutex
		results []TickerResult
		errs    []error
		wg      sync.WaitGroup
	)

	for _, tb := range tickers {
		tb := tb
		wg.Add(1)
		go func() {
			defer wg.Done()
			var result TickerResult
			err := pool.SubmitWait(workers.TaskFunc(func() error {
				r, runErr := h.RunTicker(tb.Ticker, tb.Bars, tf, params)
				result = r
				return runErr
			}))
			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			} else {
				results = append(results, result)
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return Aggregate(results), errs
}

// Aggregate computes cross-ticker mean/stddev from a set of per-ticker
// results, preserving the individual rows for inspection.
func Aggregate(results []TickerResult) AggregateMetrics {
	breakout := make([]float64, len(results))
	fakeout := make([]float64, len(results))
	hit := make([]float64, len(results))
	precision := make([]float64, len(results))
	for i, r := range results {
		breakout[i] = r.BreakoutAccuracy
		fakeout[i] = r.FakeoutDetectionRate
		hit[i] = r.HitRate
		precision[i] = r.TimelinePrecision
	}

	return AggregateMetrics{
		BreakoutAccuracyMean: utils.Mean(breakout), BreakoutAccuracyStdDev: utils.StdDev(breakout),
		FakeoutDetectionRateMean: utils.Mean(fakeout), FakeoutDetectionRateStdDev: utils.StdDev(fakeout),
		HitRateMean: utils.Mean(hit), HitRateStdDev: utils.StdDev(hit),
		TimelinePrecisionMean: utils.Mean(precision), TimelinePrecisionStdDev: utils.StdDev(precision),
		TickerResults: results,
	}
}
