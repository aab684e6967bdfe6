package types

// AnalysisParams is a plain record of recognized analysis parameters.
// Every field has a documented default; unknown fields passed through the
// gateway's JSON decoding are rejected by the caller before AnalysisParams
// is ever constructed — this type has no "extra fields" bag by design.
type AnalysisParams struct {
	ATRPeriod            int
	VolumePeriod         int
	SwingN               int
	RegimeM              int
	MaxZones             int
	VolumeThreshold      float64
	ResultThreshold      float64
	ConfirmCloses        int
	FakeoutBars          int
	BehaviorLookback     int
	ProbabilityThreshold float64
}

// DefaultAnalysisParams returns the documented default parameter set.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		ATRPeriod:            14,
		VolumePeriod:         30,
		SwingN:               4,
		RegimeM:              6,
		MaxZones:             5,
		VolumeThreshold:      1.8,
		ResultThreshold:      0.6,
		ConfirmCloses:        2,
		FakeoutBars:          3,
		BehaviorLookback:     20,
		ProbabilityThreshold: 0.12,
	}
}

// Validate checks the parameter bounds the orchestrator is responsible for
// enforcing, returning an InvalidParamError for the first field out of range.
func (p AnalysisParams) Validate() error {
	switch {
	case p.ATRPeriod < 1:
		return NewInvalidParamError("atr_period", "must be >= 1")
	case p.VolumePeriod < 1:
		return NewInvalidParamError("volume_period", "must be >= 1")
	case p.SwingN < 1:
		return NewInvalidParamError("swing_n", "must be >= 1")
	case p.RegimeM < 2:
		return NewInvalidParamError("regime_m", "must be >= 2")
	case p.MaxZones < 1:
		return NewInvalidParamError("max_zones", "must be >= 1")
	case p.VolumeThreshold <= 0:
		return NewInvalidParamError("volume_threshold", "must be > 0")
	case p.ResultThreshold <= 0:
		return NewInvalidParamError("result_threshold", "must be > 0")
	case p.ConfirmCloses < 1:
		return NewInvalidParamError("confirm_closes", "must be >= 1")
	case p.FakeoutBars < 1:
		return NewInvalidParamError("fakeout_bars", "must be >= 1")
	case p.BehaviorLookback < 1:
		return NewInvalidParamError("behavior_lookback", "must be >= 1")
	case p.ProbabilityThreshold <= 0 || p.ProbabilityThreshold >= 1:
		return NewInvalidParamError("probability_threshold", "must be in (0,1)")
	}
	return nil
}
