package types

// Regime is the three-way market-state classification.
type Regime string

const (
	RegimeUptrend   Regime = "uptrend"
	RegimeDowntrend Regime = "downtrend"
	RegimeRange     Regime = "range"
)

// Direction is the side of a breakout, signal, or trade plan.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// VolumeQuality labels how much of the RVOL series is usable.
type VolumeQuality string

const (
	VolumeQualityReliable    VolumeQuality = "reliable"
	VolumeQualityPartial     VolumeQuality = "partial"
	VolumeQualityUnavailable VolumeQuality = "unavailable"
)

// SignalType is the closed set of events the breakout FSM can emit.
type SignalType string

const (
	SignalBreakoutAttempt   SignalType = "breakout_attempt"
	SignalBreakoutConfirmed SignalType = "breakout_confirmed"
	SignalFakeout           SignalType = "fakeout"
)

// SignalVolumeQuality is the per-signal volume-confidence tag
// ("confirmed"/"pending"/"unavailable"), distinct from the report-level
// VolumeQuality, with which it shares only "unavailable".
type SignalVolumeQuality string

const (
	SignalVolumeConfirmed   SignalVolumeQuality = "confirmed"
	SignalVolumePending     SignalVolumeQuality = "pending"
	SignalVolumeUnavailable SignalVolumeQuality = "unavailable"
)

// EvidenceType is the closed set of Wyckoff evidence kinds.
type EvidenceType string

const (
	EvidenceVolumeSpike EvidenceType = "VOLUME_SPIKE"
	EvidenceRejection   EvidenceType = "REJECTION"
	EvidenceSweep       EvidenceType = "SWEEP"
	EvidenceAbsorption  EvidenceType = "ABSORPTION"
	EvidenceBreakout    EvidenceType = "BREAKOUT"
)

// Severity is the three-level evidence severity scale.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityMed  Severity = "med"
	SeverityHigh Severity = "high"
)

// TimelineSeverity is the three-level timeline event severity scale.
type TimelineSeverity string

const (
	TimelineInfo     TimelineSeverity = "info"
	TimelineWarning  TimelineSeverity = "warning"
	TimelineCritical TimelineSeverity = "critical"
)

// PhaseName is one of the five Wyckoff phases scored by the behavior
// inferencer. Order here is the canonical iteration order
// used when breaking softmax ties deterministically.
type PhaseName string

const (
	PhaseAccumulation PhaseName = "accumulation"
	PhaseShakeout     PhaseName = "shakeout"
	PhaseMarkup       PhaseName = "markup"
	PhaseDistribution PhaseName = "distribution"
	PhaseMarkdown     PhaseName = "markdown"
)

// Phases is the canonical, ordered phase list.
var Phases = []PhaseName{
	PhaseAccumulation, PhaseShakeout, PhaseMarkup, PhaseDistribution, PhaseMarkdown,
}

// ZoneSide distinguishes support from resistance zones.
type ZoneSide string

const (
	ZoneSideSupport    ZoneSide = "support"
	ZoneSideResistance ZoneSide = "resistance"
)

// EHDataQuality is the extended-hours data-completeness tier.
type EHDataQuality string

const (
	EHQualityComplete EHDataQuality = "complete"
	EHQualityPartial  EHDataQuality = "partial"
	EHQualityMinimal  EHDataQuality = "minimal"
)

// PremarketRegime is the premarket behavioral classification.
type PremarketRegime string

const (
	PremarketTrendContinuation PremarketRegime = "trend_continuation"
	PremarketGapAndGo          PremarketRegime = "gap_and_go"
	PremarketGapFillBias       PremarketRegime = "gap_fill_bias"
	PremarketRangeDaySetup     PremarketRegime = "range_day_setup"
	PremarketUnavailable       PremarketRegime = "unavailable"
)

// AHRiskLevel is the closing-behavior risk tag.
type AHRiskLevel string

const (
	AHRiskLow    AHRiskLevel = "low"
	AHRiskMed    AHRiskLevel = "med"
	AHRiskHigh   AHRiskLevel = "high"
)

// AHLikelyBehavior is the predicted afterhours/overnight behavior.
type AHLikelyBehavior string

const (
	AHBehaviorContinuation AHLikelyBehavior = "continuation"
	AHBehaviorMeanRevert   AHLikelyBehavior = "mean_revert"
	AHBehaviorDrift        AHLikelyBehavior = "drift"
)

// ZoneRole labels how an EH level relates to the current price.
type ZoneRole string

const (
	ZoneRoleMagnet         ZoneRole = "magnet"
	ZoneRoleMajorResist    ZoneRole = "major_resistance"
	ZoneRoleConquered      ZoneRole = "conquered"
	ZoneRoleMajorSupport   ZoneRole = "major_support"
	ZoneRoleBreached       ZoneRole = "breached"
	ZoneRoleBreakoutTrig   ZoneRole = "breakout_trigger"
	ZoneRoleSupportFlip    ZoneRole = "support_flip"
	ZoneRoleStatic         ZoneRole = "static"
)

// EventType is the closed set of timeline event kinds,
// covering both hard (state-change) and soft (contextual) events.
type EventType string

const (
	EventInitialized       EventType = "initialized"
	EventRegimeChange      EventType = "regime_change"
	EventBehaviorShift     EventType = "behavior_shift"
	EventPhaseProbUp       EventType = "phase_prob_up"
	EventPhaseProbDown     EventType = "phase_prob_down"
	EventBreakoutAttempt   EventType = "breakout_attempt"
	EventBreakoutConfirmed EventType = "breakout_confirmed"
	EventFakeoutDetected   EventType = "fakeout_detected"

	EventZoneApproached EventType = "zone_approached"
	EventZoneTested     EventType = "zone_tested"
	EventZoneRejected   EventType = "zone_rejected"
	EventZoneAccepted   EventType = "zone_accepted"
	EventSpring         EventType = "spring"
	EventUpthrust       EventType = "upthrust"
	EventAbsorptionClue EventType = "absorption_clue"
	EventVolumeSpike    EventType = "volume_spike"
	EventVolumeDryup    EventType = "volume_dryup"
	EventNewSwingHigh   EventType = "new_swing_high"
	EventNewSwingLow    EventType = "new_swing_low"
)

// TradeStatus is the sim-trader's state-graph node.
type TradeStatus string

const (
	StatusWait  TradeStatus = "WAIT"
	StatusWatch TradeStatus = "WATCH"
	StatusArmed TradeStatus = "ARMED"
	StatusEnter TradeStatus = "ENTER"
	StatusHold  TradeStatus = "HOLD"
	StatusTrim  TradeStatus = "TRIM"
	StatusExit  TradeStatus = "EXIT"
)

// TradeDirection is the sim-trader's option-side bias.
type TradeDirection string

const (
	TradeDirectionCall TradeDirection = "CALL"
	TradeDirectionPut  TradeDirection = "PUT"
	TradeDirectionNone TradeDirection = ""
)

// SetupType is the closed set of sim-trader setup detectors.
type SetupType string

const (
	SetupR1Breakout  SetupType = "R1_BREAKOUT"
	SetupS1Breakdown SetupType = "S1_BREAKDOWN"
	SetupYCReclaim   SetupType = "YC_RECLAIM"
	SetupR1Reject    SetupType = "R1_REJECT"
	SetupNone        SetupType = ""
)

// RiskLevel is a coarse risk label surfaced on the trade plan row.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// TradeOutcome classifies a closed trade for TradeReview.
type TradeOutcome string

const (
	OutcomeWin       TradeOutcome = "WIN"
	OutcomeLoss      TradeOutcome = "LOSS"
	OutcomeBreakeven TradeOutcome = "BREAKEVEN"
)

// Trend is a short-horizon directional read fed into the sim-trader snapshot.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// BreakoutQuality labels the health of the most recent breakout signal as
// seen by the sim-trader.
type BreakoutQuality string

const (
	BreakoutQualityPass BreakoutQuality = "pass"
	BreakoutQualityFail BreakoutQuality = "fail"
	BreakoutQualityNone BreakoutQuality = "none"
)

// RVOLState is a coarse relative-volume bucket fed into the sim-trader snapshot.
type RVOLState string

const (
	RVOLStateHigh RVOLState = "high"
	RVOLStateNorm RVOLState = "normal"
	RVOLStateLow  RVOLState = "low"
)

// SimBehavior is the coarser behavior vocabulary consumed by the sim-trader:
// "accumulation", "distribution", "rally", "wash", "markup", "markdown"
// and "neutral", a looser set than the
// five-phase Behavior.Dominant used by the core. Kept as a distinct closed
// tag set rather than overloading PhaseName, since "wash" and "rally" have
// no Wyckoff-phase equivalent.
type SimBehavior string

const (
	SimBehaviorAccumulation SimBehavior = "accumulation"
	SimBehaviorDistribution SimBehavior = "distribution"
	SimBehaviorRally        SimBehavior = "rally"
	SimBehaviorWash         SimBehavior = "wash"
	SimBehaviorMarkup       SimBehavior = "markup"
	SimBehaviorMarkdown     SimBehavior = "markdown"
	SimBehaviorNeutral      SimBehavior = "neutral"
)
