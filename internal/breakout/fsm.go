// Package breakout implements the 3-factor breakout/fakeout finite-state
// machine.
package breakout

import (
	"math"

	"github.com/songzhiyuan98/klinelens-go/internal/features"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// State is one of the FSM's four nodes.
type State string

const (
	StateIdle      State = "IDLE"
	StateAttempt   State = "ATTEMPT"
	StateConfirmed State = "CONFIRMED"
	StateFakeout   State = "FAKEOUT"
)

// FSM is the breakout/fakeout detector, fed bars one at a time in order.
// It is the mutable surface an AnalysisState borrows across calls.
type FSM struct {
	state State

	direction        types.Direction
	zone             types.Zone
	attemptBarIndex  int
	consecutiveCloses int
	maxRVOL          float64
	maxResult        float64

	params Params
}

// Params mirrors the subset of AnalysisParams the FSM consults.
type Params struct {
	VolumeThreshold float64
	ResultThreshold float64
	ConfirmCloses   int
	FakeoutBars     int
}

// ParamsFromAnalysis builds FSM Params from AnalysisParams.
func ParamsFromAnalysis(p types.AnalysisParams) Params {
	return Params{
		VolumeThreshold: p.VolumeThreshold,
		ResultThreshold: p.ResultThreshold,
		ConfirmCloses:   p.ConfirmCloses,
		FakeoutBars:     p.FakeoutBars,
	}
}

// NewFSM creates an idle FSM with the given parameters.
func NewFSM(params Params) *FSM {
	return &FSM{state: StateIdle, params: params}
}

// State returns the FSM's current state.
func (m *FSM) State() State { return m.state }

// Update feeds bar i, consulting resistance/support zones and the feature
// set, and returns at most one Signal; the bool reports whether a signal
// was emitted.
func (m *FSM) Update(bars []types.Bar, i int, resistance, support []types.Zone, f *features.Features) (*types.Signal, bool) {
	switch m.state {
	case StateIdle:
		return m.updateIdle(bars, i, resistance, support, f)
	case StateAttempt:
		return m.updateAttempt(bars, i, f)
	case StateConfirmed, StateFakeout:
		m.reset()
		return nil, false
	default:
		m.reset()
		return nil, false
	}
}

func (m *FSM) reset() {
	m.state = StateIdle
	m.direction = ""
	m.zone = types.Zone{}
	m.attemptBarIndex = 0
	m.consecutiveCloses = 0
	m.maxRVOL = 0
	m.maxResult = 0
}

func (m *FSM) updateIdle(bars []types.Bar, i int, resistance, support []types.Zone, f *features.Features) (*types.Signal, bool) {
	b := bars[i]
	for _, z := range resistance {
		if b.High > z.High {
			m.enterAttempt(types.DirectionUp, z, i, b.Close > z.High, f)
			return m.emitAttemptSignal(bars, i, f), true
		}
	}
	for _, z := range support {
		if b.Low < z.Low {
			m.enterAttempt(types.DirectionDown, z, i, b.Close < z.Low, f)
			return m.emitAttemptSignal(bars, i, f), true
		}
	}
	return nil, false
}

func (m *FSM) enterAttempt(dir types.Direction, zone types.Zone, i int, closedOutside bool, f *features.Features) {
	m.state = StateAttempt
	m.direction = dir
	m.zone = zone
	m.attemptBarIndex = i
	if closedOutside {
		m.consecutiveCloses = 1
	} else {
		m.consecutiveCloses = 0
	}
	m.maxRVOL = 0
	m.maxResult = 0
	m.trackMax(i, f)
}

func (m *FSM) trackMax(i int, f *features.Features) {
	if f == nil || i < 0 || i >= len(f.RVOL) {
		return
	}
	if !math.IsNaN(f.RVOL[i]) && f.RVOL[i] > m.maxRVOL {
		m.maxRVOL = f.RVOL[i]
	}
	if !math.IsNaN(f.Result[i]) && f.Result[i] > m.maxResult {
		m.maxResult = f.Result[i]
	}
}

func (m *FSM) factorCount() int {
	factors := 0
	if m.consecutiveCloses >= m.params.ConfirmCloses {
		factors++
	}
	if m.maxRVOL >= m.params.VolumeThreshold {
		factors++
	}
	if m.maxResult >= m.params.ResultThreshold {
		factors++
	}
	return factors
}

func (m *FSM) volumeQuality() types.SignalVolumeQuality {
	switch {
	case m.maxRVOL >= m.params.VolumeThreshold:
		return types.SignalVolumeConfirmed
	case m.maxRVOL > 0:
		return types.SignalVolumePending
	default:
		return types.SignalVolumeUnavailable
	}
}

func (m *FSM) emitAttemptSignal(bars []types.Bar, i int, f *features.Features) *types.Signal {
	factors := m.factorCount()
	confidence := 0.45
	if factors >= 2 {
		confidence = 0.65
	}
	return &types.Signal{
		Type: types.SignalBreakoutAttempt, Direction: m.direction,
		Level: zoneLevel(m.zone, m.direction), Confidence: confidence,
		BarTime: bars[i].Time, BarIndex: i, VolumeQuality: m.volumeQuality(),
	}
}

func zoneLevel(z types.Zone, dir types.Direction) float64 {
	if dir == types.DirectionUp {
		return z.High
	}
	return z.Low
}

func (m *FSM) updateAttempt(bars []types.Bar, i int, f *features.Features) (*types.Signal, bool) {
	b := bars[i]
	m.updateConsecutiveCloses(b)
	m.trackMax(i, f)

	structureOK := m.consecutiveCloses >= m.params.ConfirmCloses
	volumeOK := m.maxRVOL >= m.params.VolumeThreshold
	resultOK := m.maxResult >= m.params.ResultThreshold
	factors := 0
	if structureOK {
		factors++
	}
	if volumeOK {
		factors++
	}
	if resultOK {
		factors++
	}

	if factors == 3 || (factors == 2 && structureOK) {
		sig := &types.Signal{
			Type: types.SignalBreakoutConfirmed, Direction: m.direction,
			Level: zoneLevel(m.zone, m.direction), Confidence: 0.85,
			BarTime: b.Time, BarIndex: i, VolumeQuality: m.volumeQuality(),
		}
		m.state = StateConfirmed
		return sig, true
	}

	if m.hasReturnedInside(b) && i-m.attemptBarIndex <= m.params.FakeoutBars {
		sig := &types.Signal{
			Type: types.SignalFakeout, Direction: m.direction,
			Level: zoneLevel(m.zone, m.direction), Confidence: 0.75,
			BarTime: b.Time, BarIndex: i, VolumeQuality: m.volumeQuality(),
		}
		m.state = StateFakeout
		return sig, true
	}

	if i-m.attemptBarIndex > 6 {
		m.reset()
		return nil, false
	}

	return nil, false
}

func (m *FSM) updateConsecutiveCloses(b types.Bar) {
	outside := (m.direction == types.DirectionUp && b.Close > m.zone.High) ||
		(m.direction == types.DirectionDown && b.Close < m.zone.Low)
	if outside {
		m.consecutiveCloses++
	} else {
		m.consecutiveCloses = 0
	}
}

func (m *FSM) hasReturnedInside(b types.Bar) bool {
	if m.direction == types.DirectionUp {
		return b.Close <= m.zone.High
	}
	return b.Close >= m.zone.Low
}
