package types

import "time"

// Evidence supports a behavior-inference conclusion with a concrete bar
// reference. At most 3 per report.
type Evidence struct {
	Type     EvidenceType
	Behavior PhaseName
	Severity Severity
	BarTime  time.Time
	BarIndex int
	Metrics  map[string]float64
	Note     string // i18n key
}
