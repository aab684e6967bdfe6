// Package analysis implements the synchronous orchestrator that sequences
// feature extraction, structure detection, breakout tracking, behavior
// inference, timeline bookkeeping, and playbook generation into a single
// AnalysisReport.
package analysis

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/behavior"
	"github.com/songzhiyuan98/klinelens-go/internal/breakout"
	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/internal/playbook"
	"github.com/songzhiyuan98/klinelens-go/internal/structure"
	"github.com/songzhiyuan98/klinelens-go/internal/timeline"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// AnalysisState is the mutable surface callers may carry across
// successive AnalyzeMarket calls for incremental mode: a
// breakout FSM and a timeline manager, and nothing else.
type AnalysisState struct {
	fsm      *breakout.FSM
	timeline *timeline.Manager
}

// NewAnalysisState returns a fresh, idle state for the given params.
func NewAnalysisState(params types.AnalysisParams) *AnalysisState {
	return &AnalysisState{
		fsm:      breakout.NewFSM(breakout.ParamsFromAnalysis(params)),
		timeline: timeline.NewManager(),
	}
}

// Engine wires a logger into the orchestrator via a constructor-injected
// *zap.Logger.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an Engine bound to the given logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("analysis")}
}

// AnalyzeMarket is the analyze_market entrypoint. params,
// state, and ehContext are all optional; a nil state runs in one-shot
// mode (an internal throwaway FSM/timeline is created per call).
func (e *Engine) AnalyzeMarket(bars []types.Bar, ticker string, tf types.Timeframe, params types.AnalysisParams, state *AnalysisState, ehContext *types.EHContext) (*types.AnalysisReport, error) {
	if !tf.Valid() {
		return nil, types.NewInvalidTimeframeError(string(tf))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < params.ATRPeriod+1 {
		return nil, types.NewInsufficientDataError(len(bars), params.ATRPeriod+1, "analyze_market")
	}

	if state == nil {
		state = NewAnalysisState(params)
	}

	f, err := features.CalculateFeatures(bars, params.ATRPeriod, params.VolumePeriod)
	if err != nil {
		return nil, err
	}

	n := len(bars)
	last := n - 1
	atr := f.ATR[last]

	highs, lows := structure.FindSwingPoints(bars, params.SwingN)
	market := structure.ClassifyRegime(highs, lows, params.RegimeM)

	var structuralSupport, structuralResistance []types.Zone
	if atr > 0 {
		structuralSupport = structure.ClusterZones(lows, atr, tf, params.MaxZones, last, types.ZoneSideSupport)
		structuralResistance = structure.ClusterZones(highs, atr, tf, params.MaxZones, last, types.ZoneSideResistance)
	}

	support, resistance := structuralSupport, structuralResistance
	if ehContext != nil {
		ehSupport, ehResistance := structure.InjectEHZones(ehContext, bars[last].Close)
		support = structure.MergeZones(structuralSupport, ehSupport, params.MaxZones)
		resistance = structure.MergeZones(structuralResistance, ehResistance, params.MaxZones)
	}

	signals := replaySignals(state.fsm, bars, resistance, support, f)
	var latestSignal *types.Signal
	if len(signals) > 0 {
		latestSignal = &signals[len(signals)-1]
	}

	b := behavior.Classify(bars, last, f, support, resistance, market, params.BehaviorLookback, latestSignal)

	prevClose := bars[last].Close
	if last > 0 {
		prevClose = bars[last-1].Close
	}
	tl := state.timeline.Update(timeline.Input{
		Bar: bars[last], PrevClose: prevClose, BarIndex: last,
		Market: market, Behavior: b, BreakoutState: string(state.fsm.State()),
		Signal: latestSignal, Highs: highs, Lows: lows,
		Support: support, Resistance: resistance,
		RVOL: f.RVOL[last], LowerWick: f.LowerWick[last], UpperWick: f.UpperWick[last],
		Effort: f.Effort[last], Result: f.Result[last], ATR: atr,
		ProbabilityThreshold: params.ProbabilityThreshold,
	})

	plans := playbook.Generate(market.Regime, append(append([]types.Zone{}, support...), resistance...), atr, bars[last].Close, ehContext)

	report := &types.AnalysisReport{
		Ticker:        strings.ToUpper(strings.TrimSpace(ticker)),
		Timeframe:     tf,
		GeneratedAt:   time.Now().UTC(),
		BarCount:      n,
		DataGaps:      types.DetectDataGap(bars, tf),
		VolumeQuality: f.VolumeQuality,
		MarketState:   market,
		Support:       support,
		Resistance:    resistance,
		Signals:       signals,
		Behavior:      b,
		Timeline:      tl,
		Playbook:      plans,
		EHContext:     ehContext,
	}

	e.logger.Debug("analyzed market",
		zap.String("ticker", report.Ticker), zap.Int("bars", n),
		zap.String("regime", string(market.Regime)), zap.String("behavior", string(b.Dominant)))

	return report, nil
}

// replaySignals feeds bars[0:] into fsm in order, collecting every signal
// it emits, ordered by bar_index. Earlier bars replay the FSM's
// own history; when fed a fresh state this simply establishes it.
func replaySignals(fsm *breakout.FSM, bars []types.Bar, resistance, support []types.Zone, f *features.Features) []types.Signal {
	var signals []types.Signal
	for i := range bars {
		sig, _ := fsm.Update(bars, i, resistance, support, f)
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}
