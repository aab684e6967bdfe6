package types

import "time"

// TimelineEvent is one hard or soft event in the update history
//.
type TimelineEvent struct {
	Time     time.Time
	Type     EventType
	Delta    float64
	Reason   string // i18n key
	BarIndex int
	Severity TimelineSeverity
}
