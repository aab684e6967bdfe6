package types

import "time"

// Signal is emitted by the breakout FSM. At most one
// signal is produced per FSM transition.
type Signal struct {
	Type          SignalType
	Direction     Direction
	Level         float64
	Confidence    float64
	BarTime       time.Time
	BarIndex      int
	VolumeQuality SignalVolumeQuality
}
