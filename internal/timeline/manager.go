// Package timeline maintains the bounded event log a Manager carries
// across successive analysis calls, and emits the hard/soft events each
// new bar generates.
package timeline

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

const (
	maxEvents            = 50
	reportedCount        = 10
	topUpMinimum         = 5
	defaultProbMoveDelta = 0.12
)

// Manager holds the previous call's (regime, dominant behavior,
// probabilities, breakout state, swing indices) and a capacity-50 ring
// buffer of emitted events.
type Manager struct {
	initialized bool

	prevRegime        types.Regime
	prevDominant      types.PhaseName
	prevProbabilities map[types.PhaseName]float64
	prevBreakoutState string
	lastSwingHighIdx  int
	lastSwingLowIdx   int

	events []types.TimelineEvent // ring buffer, oldest overwritten first
	head   int
	count  int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{events: make([]types.TimelineEvent, maxEvents)}
}

// Input bundles the per-bar facts the manager needs to decide what
// changed since the previous call.
type Input struct {
	Bar               types.Bar
	PrevClose         float64
	BarIndex          int
	Market            types.MarketState
	Behavior          types.Behavior
	BreakoutState     string
	Signal            *types.Signal
	Highs, Lows       []types.SwingPoint
	Support           []types.Zone
	Resistance        []types.Zone
	RVOL, LowerWick   float64
	UpperWick, Effort float64
	Result            float64
	ATR               float64

	// ProbabilityThreshold is the minimum behavior-probability swing that
	// triggers a phase_prob_up/down event. Zero means "use the documented
	// default" (AnalysisParams.ProbabilityThreshold, normally 0.12).
	ProbabilityThreshold float64
}

// Update advances the manager by one bar, appending any hard or soft
// events to the ring buffer, and returns the latest <=10 events newest
// first.
func (m *Manager) Update(in Input) []types.TimelineEvent {
	hard := m.emitHardEvents(in)

	if len(hard) == 0 {
		soft := m.emitSoftEvents(in)
		for _, e := range soft {
			m.push(e)
		}
	}
	for _, e := range hard {
		m.push(e)
	}

	m.prevRegime = in.Market.Regime
	m.prevDominant = in.Behavior.Dominant
	m.prevProbabilities = copyProbs(in.Behavior.Probabilities)
	m.prevBreakoutState = in.BreakoutState
	if len(in.Highs) > 0 {
		m.lastSwingHighIdx = in.Highs[len(in.Highs)-1].Index
	}
	if len(in.Lows) > 0 {
		m.lastSwingLowIdx = in.Lows[len(in.Lows)-1].Index
	}
	m.initialized = true

	return m.topUpAndReport(in)
}

func copyProbs(p map[types.PhaseName]float64) map[types.PhaseName]float64 {
	c := make(map[types.PhaseName]float64, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

func (m *Manager) push(e types.TimelineEvent) {
	m.events[m.head] = e
	m.head = (m.head + 1) % maxEvents
	if m.count < maxEvents {
		m.count++
	}
}

// emitHardEvents runs the hard-event rules.
func (m *Manager) emitHardEvents(in Input) []types.TimelineEvent {
	var out []types.TimelineEvent

	if !m.initialized {
		out = append(out, types.TimelineEvent{
			Time: in.Bar.Time, Type: types.EventInitialized, BarIndex: in.BarIndex,
			Severity: types.TimelineInfo, Reason: "timeline.initialized",
		})
		return out
	}

	if in.Market.Regime != m.prevRegime {
		out = append(out, types.TimelineEvent{
			Time: in.Bar.Time, Type: types.EventRegimeChange, BarIndex: in.BarIndex,
			Severity: types.TimelineCritical, Reason: "timeline.regime_change",
		})
	}

	if in.Behavior.Dominant != m.prevDominant {
		out = append(out, types.TimelineEvent{
			Time: in.Bar.Time, Type: types.EventBehaviorShift, BarIndex: in.BarIndex,
			Severity: types.TimelineWarning, Reason: "timeline.behavior_shift",
		})
	}

	threshold := in.ProbabilityThreshold
	if threshold <= 0 {
		threshold = defaultProbMoveDelta
	}
	for _, p := range types.Phases {
		prev, ok := m.prevProbabilities[p]
		if !ok {
			continue
		}
		cur := in.Behavior.Probabilities[p]
		delta := cur - prev
		if delta >= threshold {
			out = append(out, types.TimelineEvent{
				Time: in.Bar.Time, Type: types.EventPhaseProbUp, Delta: delta,
				BarIndex: in.BarIndex, Severity: types.TimelineInfo,
				Reason: "timeline.phase_prob_up." + string(p),
			})
		} else if delta <= -threshold {
			out = append(out, types.TimelineEvent{
				Time: in.Bar.Time, Type: types.EventPhaseProbDown, Delta: delta,
				BarIndex: in.BarIndex, Severity: types.TimelineInfo,
				Reason: "timeline.phase_prob_down." + string(p),
			})
		}
	}

	if in.Signal != nil {
		switch in.Signal.Type {
		case types.SignalBreakoutAttempt:
			out = append(out, types.TimelineEvent{
				Time: in.Bar.Time, Type: types.EventBreakoutAttempt, BarIndex: in.BarIndex,
				Severity: types.TimelineInfo, Reason: "timeline.breakout_attempt",
			})
		case types.SignalBreakoutConfirmed:
			out = append(out, types.TimelineEvent{
				Time: in.Bar.Time, Type: types.EventBreakoutConfirmed, BarIndex: in.BarIndex,
				Severity: types.TimelineCritical, Reason: "timeline.breakout_confirmed",
			})
		case types.SignalFakeout:
			out = append(out, types.TimelineEvent{
				Time: in.Bar.Time, Type: types.EventFakeoutDetected, BarIndex: in.BarIndex,
				Severity: types.TimelineWarning, Reason: "timeline.fakeout_detected",
			})
		}
	}

	return out
}

// emitSoftEvents runs the soft-event rules, capped at two
// per bar, only consulted when no hard event fired this bar.
func (m *Manager) emitSoftEvents(in Input) []types.TimelineEvent {
	var out []types.TimelineEvent
	add := func(e types.TimelineEvent) bool {
		out = append(out, e)
		return len(out) >= 2
	}

	atr := effectiveATR(in)
	scanZones := make([]types.Zone, 0, 4)
	scanZones = append(scanZones, topN(in.Support, 2)...)
	scanZones = append(scanZones, topN(in.Resistance, 2)...)
	for _, z := range scanZones {
		d := z.DistanceTo(in.Bar.Close)
		wasInside := z.Contains(in.PrevClose)

		switch {
		case wasInside && !z.Contains(in.Bar.Close) && brokeThroughFarSide(z, in.Bar.Close):
			if add(zoneEvent(types.EventZoneAccepted, in, z)) {
				return out
			}
		case wasInside && !z.Contains(in.Bar.Close):
			if add(zoneEvent(types.EventZoneRejected, in, z)) {
				return out
			}
		case d <= 0.15*atr:
			if add(zoneEvent(types.EventZoneTested, in, z)) {
				return out
			}
		case d <= 0.5*atr:
			if add(zoneEvent(types.EventZoneApproached, in, z)) {
				return out
			}
		}
	}

	if spring, z := detectSpring(in); spring {
		if add(eventAt(types.EventSpring, in, types.TimelineCritical, "timeline.spring", z)) {
			return out
		}
	}
	if upthrust, z := detectUpthrust(in); upthrust {
		if add(eventAt(types.EventUpthrust, in, types.TimelineCritical, "timeline.upthrust", z)) {
			return out
		}
	}

	if !math.IsNaN(in.Effort) && !math.IsNaN(in.Result) && in.Effort >= 1.5 && in.Result <= 0.6 {
		if add(eventAt(types.EventAbsorptionClue, in, types.TimelineWarning, "timeline.absorption_clue", types.Zone{})) {
			return out
		}
	}
	if !math.IsNaN(in.RVOL) && in.RVOL >= 1.5 {
		if add(eventAt(types.EventVolumeSpike, in, types.TimelineWarning, "timeline.volume_spike", types.Zone{})) {
			return out
		}
	}
	if !math.IsNaN(in.RVOL) && in.RVOL <= 0.5 {
		if add(eventAt(types.EventVolumeDryup, in, types.TimelineInfo, "timeline.volume_dryup", types.Zone{})) {
			return out
		}
	}

	if len(in.Highs) > 0 && in.Highs[len(in.Highs)-1].Index > m.lastSwingHighIdx {
		if add(eventAt(types.EventNewSwingHigh, in, types.TimelineInfo, "timeline.new_swing_high", types.Zone{})) {
			return out
		}
	}
	if len(in.Lows) > 0 && in.Lows[len(in.Lows)-1].Index > m.lastSwingLowIdx {
		if add(eventAt(types.EventNewSwingLow, in, types.TimelineInfo, "timeline.new_swing_low", types.Zone{})) {
			return out
		}
	}

	return out
}

// brokeThroughFarSide reports whether close exited a zone on the side
// opposite its usual defended side: below a support zone's low, or above
// a resistance zone's high.
func brokeThroughFarSide(z types.Zone, close float64) bool {
	if z.Side == types.ZoneSideSupport {
		return close < z.Low
	}
	return close > z.High
}

// effectiveATR falls back to 1 when ATR is unavailable (pre-warmup or
// missing), so the distance thresholds degrade to a fixed band rather
// than firing on every bar.
func effectiveATR(in Input) float64 {
	if in.ATR <= 0 || math.IsNaN(in.ATR) {
		return 1
	}
	return in.ATR
}

// topN returns the first min(n, len(zones)) zones, relying on the
// caller having already sorted zones score-descending.
func topN(zones []types.Zone, n int) []types.Zone {
	if len(zones) < n {
		n = len(zones)
	}
	return zones[:n]
}

func zoneEvent(t types.EventType, in Input, z types.Zone) types.TimelineEvent {
	sev := types.TimelineInfo
	if t == types.EventZoneAccepted {
		sev = types.TimelineCritical
	} else if t == types.EventZoneRejected {
		sev = types.TimelineInfo
	}
	return types.TimelineEvent{
		Time: in.Bar.Time, Type: t, BarIndex: in.BarIndex, Severity: sev,
		Reason: "timeline." + string(t),
	}
}

func eventAt(t types.EventType, in Input, sev types.TimelineSeverity, reason string, _ types.Zone) types.TimelineEvent {
	return types.TimelineEvent{Time: in.Bar.Time, Type: t, BarIndex: in.BarIndex, Severity: sev, Reason: reason}
}

// detectSpring finds a single-bar Wyckoff micro-pattern: a
// pierce below support that closes back above it, with a lower wick at
// least 40% of the bar's range.
func detectSpring(in Input) (bool, types.Zone) {
	for _, z := range in.Support {
		if in.Bar.Low < z.Low && in.Bar.Close >= z.Low {
			rng := in.Bar.High - in.Bar.Low
			if rng > 0 && in.LowerWick >= 0.4 {
				return true, z
			}
		}
	}
	return false, types.Zone{}
}

// detectUpthrust mirrors detectSpring at resistance.
func detectUpthrust(in Input) (bool, types.Zone) {
	for _, z := range in.Resistance {
		if in.Bar.High > z.High && in.Bar.Close <= z.High {
			rng := in.Bar.High - in.Bar.Low
			if rng > 0 && in.UpperWick >= 0.4 {
				return true, z
			}
		}
	}
	return false, types.Zone{}
}

// topUpAndReport returns the latest <=10 events newest-first, topping up
// to a minimum of 5 diverse (deduped by event type) entries via a
// heuristic re-scan of the current bar's soft events when fewer than 5
// events have accumulated.
func (m *Manager) topUpAndReport(in Input) []types.TimelineEvent {
	latest := m.latest(reportedCount)
	if len(latest) >= topUpMinimum {
		return latest
	}

	seen := make(map[types.EventType]bool, len(latest))
	for _, e := range latest {
		seen[e.Type] = true
	}

	candidates := m.emitSoftEvents(in)
	for _, c := range candidates {
		if len(latest) >= topUpMinimum {
			break
		}
		if seen[c.Type] {
			continue
		}
		seen[c.Type] = true
		latest = append(latest, c)
	}
	return latest
}

// latest returns up to n most recently pushed events, newest first.
func (m *Manager) latest(n int) []types.TimelineEvent {
	if n > m.count {
		n = m.count
	}
	out := make([]types.TimelineEvent, n)
	idx := m.head
	for i := 0; i < n; i++ {
		idx = (idx - 1 + maxEvents) % maxEvents
		out[i] = m.events[idx]
	}
	return out
}
