package types

import "time"

// EHLevels holds the extended-hours reference prices.
// YC/YH/YL are present whenever yesterday-regular bars exist; PMH/PML
// whenever today-premarket bars exist; AHH/AHL whenever yesterday-
// afterhours bars exist, independent of the data-quality tier.
type EHLevels struct {
	YC, YH, YL   float64
	HasYesterday bool

	PMH, PML  float64
	HasPM     bool

	AHH, AHL  float64
	HasAH     bool

	Gap      float64 // today premarket close - YC, when both exist
	HasGap   bool
}

// AHRisk is the closing-behavior heuristic output.
type AHRisk struct {
	Risk           AHRiskLevel
	LikelyBehavior AHLikelyBehavior
	ClosePosition  float64 // 0 = at low, 1 = at high of day's range
	LateRVOL       float64
	IsTrendDay     bool
}

// EHZoneRole pairs an EH level name with its assigned role relative to the
// current price.
type EHZoneRole struct {
	Label string // "YC" / "YH" / "YL" / "PMH" / "PML" / "AHH" / "AHL"
	Role  ZoneRole
	Price float64
}

// EHContext is the full extended-hours analysis artifact consumed by C2
// (zone injection) and C6 (playbook modulation).
type EHContext struct {
	Levels          EHLevels
	PremarketRegime PremarketRegime
	Bias            string // i18n key
	ZoneRoles       []EHZoneRole
	AHRisk          AHRisk
	DataQuality     EHDataQuality
	GeneratedAt     time.Time
}
