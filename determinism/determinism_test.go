package determinism

import (
	"testing"

	"github.com/ippan-network/dlc-core/gbdt"
	"github.com/stretchr/testify/require"
)

// twoTreeModel builds a small two-tree model for cross-package
// conformance testing of the batch harness.
func twoTreeModel(t *testing.T) *gbdt.Model {
	t.Helper()
	modelJSON := []byte(`{
		"scale": "1000000",
		"bias": "0",
		"post_scale": "1000000",
		"feature_arity": 2,
		"trees": [
			{"nodes": [
				{"feature_idx": 0, "threshold": "50000000", "left": 1, "right": 2},
				{"leaf": "8500000000"},
				{"leaf": "5000000000"}
			]},
			{"nodes": [
				{"feature_idx": 1, "threshold": "100000000", "left": 1, "right": 2},
				{"leaf": "-500000000"},
				{"leaf": "500000000"}
			]}
		]
	}`)
	m, err := gbdt.Load(modelJSON)
	require.NoError(t, err)
	return m
}

func TestRunBatchDeterministicAcrossCalls(t *testing.T) {
	m := twoTreeModel(t)
	batch := []LabeledFeatures{
		{Label: []byte("validator-a"), Features: []int64{95_000_000, 10_000_000}},
		{Label: []byte("validator-b"), Features: []int64{50_000_000, 200_000_000}},
	}
	r1, err := RunBatch(m, batch)
	require.NoError(t, err)
	r2, err := RunBatch(m, batch)
	require.NoError(t, err)
	require.Equal(t, r1.Digest, r2.Digest)
	require.Equal(t, r1.Scores, r2.Scores)
}

func TestRunBatchMatchesGoldenScoreS1(t *testing.T) {
	m := twoTreeModel(t)
	batch := []LabeledFeatures{{Label: []byte("v1"), Features: []int64{95_000_000, 10_000_000}}}
	r, err := RunBatch(m, batch)
	require.NoError(t, err)
	require.Equal(t, int64(4_500_000_000), r.Scores[0].Score)
}

func TestRunBatchOrderSensitiveDigest(t *testing.T) {
	m := twoTreeModel(t)
	a := []LabeledFeatures{
		{Label: []byte("x"), Features: []int64{95_000_000, 10_000_000}},
		{Label: []byte("y"), Features: []int64{50_000_000, 200_000_000}},
	}
	b := []LabeledFeatures{a[1], a[0]}

	ra, err := RunBatch(m, a)
	require.NoError(t, err)
	rb, err := RunBatch(m, b)
	require.NoError(t, err)
	require.NotEqual(t, ra.Digest, rb.Digest, "label order is part of the digest")
}

func TestRunBatchRejectsEmpty(t *testing.T) {
	m := twoTreeModel(t)
	_, err := RunBatch(m, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestRunBatchPropagatesScoreFailure(t *testing.T) {
	m := twoTreeModel(t)
	batch := []LabeledFeatures{{Label: []byte("bad"), Features: []int64{1}}}
	_, err := RunBatch(m, batch)
	require.Error(t, err)
}
