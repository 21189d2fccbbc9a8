package gbdt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/ids"
)

// ErrInferenceFailed covers malformed trees discovered at traversal
// time, missing features, and arithmetic overflow while accumulating
// leaf contributions. Any failure here aborts inference for the round;
// no partial scores are ever committed.
var ErrInferenceFailed = errors.New("gbdt: inference failed")

// Score evaluates every tree in the model against features, summing
// leaf contributions with saturating addition, then returns
// mul_div(sum+bias, post_scale, scale) truncated toward zero.
func Score(m *Model, features []int64) (int64, error) {
	var sum int64
	for ti, tree := range m.Trees {
		v, err := traverse(tree, features)
		if err != nil {
			return 0, fmt.Errorf("%w: tree %d: %v", ErrInferenceFailed, ti, err)
		}
		sum = fixedpoint.SaturatingAddI64(sum, v)
	}
	withBias := fixedpoint.SaturatingAddI64(sum, m.Bias)
	out, err := fixedpoint.MulDivI64(withBias, m.PostScale, m.Scale)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}
	return out, nil
}

func traverse(tree Tree, features []int64) (int64, error) {
	idx := uint32(0)
	for {
		if int(idx) >= len(tree.Nodes) {
			return 0, fmt.Errorf("node index %d out of range", idx)
		}
		n := tree.Nodes[idx]
		if n.IsLeaf {
			return n.Value, nil
		}
		if int(n.FeatureIdx) >= len(features) {
			return 0, fmt.Errorf("missing feature %d", n.FeatureIdx)
		}
		// Tie-break: equal treats as left ("<=" goes left).
		if features[n.FeatureIdx] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// ScoredValidator pairs a validator with its computed score, used by
// ComputeScores to return a deterministically ordered result.
type ScoredValidator struct {
	ValidatorID ids.ValidatorID
	Score       int64
}

// ComputeScores evaluates the model for every validator's feature
// vector and returns results ordered by ascending ValidatorID for
// deterministic downstream iteration. Any single failure aborts the
// whole batch — no partial scores are returned.
func ComputeScores(m *Model, featuresPerValidator map[ids.ValidatorID][]int64) ([]ScoredValidator, error) {
	validatorIDs := make([]ids.ValidatorID, 0, len(featuresPerValidator))
	for id := range featuresPerValidator {
		validatorIDs = append(validatorIDs, id)
	}
	sort.Slice(validatorIDs, func(i, j int) bool {
		return ids.Less(validatorIDs[i], validatorIDs[j])
	})

	out := make([]ScoredValidator, 0, len(validatorIDs))
	for _, id := range validatorIDs {
		s, err := Score(m, featuresPerValidator[id])
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredValidator{ValidatorID: id, Score: s})
	}
	return out, nil
}
