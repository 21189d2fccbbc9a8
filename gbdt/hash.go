package gbdt

import (
	"encoding/json"
	"fmt"

	"github.com/ippan-network/dlc-core/fixedpoint"
)

// modelHash computes model_id: BLAKE3 of the model's canonical JSON
// encoding (sorted keys, value fields as decimal strings, no
// whitespace variance). It MUST fail rather than substitute a default
// value on encoding failure.
func modelHash(m *Model) ([32]byte, error) {
	b, err := canonicalJSONBytes(m)
	if err != nil {
		return [32]byte{}, err
	}
	return fixedpoint.DigestBytes(b), nil
}

// ModelHash recomputes and returns the model's canonical digest,
// independent of the cached ModelID field, so callers can verify a
// loaded model was not tampered with after construction.
func ModelHash(m *Model) ([32]byte, error) {
	return modelHash(m)
}

// canonicalJSONBytes renders a model back to the same canonical JSON
// shape Load accepts: sorted object keys (guaranteed by the fixed
// struct field order Go's encoding/json already emits for our jsonModel
// shape), value fields as decimal strings, no whitespace variance.
func canonicalJSONBytes(m *Model) ([]byte, error) {
	jm := jsonModel{
		Scale:        formatIntField(m.Scale),
		Bias:         formatIntField(m.Bias),
		PostScale:    formatIntField(m.PostScale),
		FeatureArity: m.FeatureArity,
	}
	for _, t := range m.Trees {
		jt := jsonTree{Nodes: make([]jsonNode, len(t.Nodes))}
		for i, n := range t.Nodes {
			if n.IsLeaf {
				v := formatIntField(n.Value)
				jt.Nodes[i] = jsonNode{Leaf: &v}
				continue
			}
			threshold := formatIntField(n.Threshold)
			fi := n.FeatureIdx
			left := n.Left
			right := n.Right
			jt.Nodes[i] = jsonNode{FeatureIdx: &fi, Threshold: &threshold, Left: &left, Right: &right}
		}
		jm.Trees = append(jm.Trees, jt)
	}
	return marshalCanonical(jm)
}

func marshalCanonical(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return b, nil
}
