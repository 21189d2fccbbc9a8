package fairness

import "github.com/ippan-network/dlc-core/fixedpoint"

// ScaleRep is the reputation scale: a normalized score of 10000 means
// "100% reputation".
const ScaleRep = 10000

// ReputationScore is the raw, wide-scale score produced by D-GBDT
// inference, in [0, 10000*ScaleRep].
type ReputationScore struct {
	Raw int64
}

// NewReputationScore clamps a raw D-GBDT output into the valid
// reputation range: raw in [0, 10000*SCALE].
func NewReputationScore(rawScore int64) ReputationScore {
	return ReputationScore{Raw: fixedpoint.Clamp(rawScore, 0, 10_000*ScaleRep)}
}

// NormalizedScaled returns the score normalized into [0, 10000] basis
// points. Raw == normalized * ScaleRep by construction, so this is
// simply Raw / ScaleRep, truncated toward zero.
func (r ReputationScore) NormalizedScaled() int64 {
	v, err := fixedpoint.MulDivI64(r.Raw, 1, ScaleRep)
	if err != nil {
		// ScaleRep is a fixed non-zero constant; unreachable in
		// practice. Fall back to the clamp-safe floor rather than
		// panicking in the hot path.
		return 0
	}
	return v
}
