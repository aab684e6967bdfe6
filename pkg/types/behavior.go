package types

// Behavior is the Wyckoff-phase inference result.
// Probabilities sums to 1 within 1e-6; Dominant is the argmax.
type Behavior struct {
	Probabilities map[PhaseName]float64
	Dominant      PhaseName
	Evidence      []Evidence
}
