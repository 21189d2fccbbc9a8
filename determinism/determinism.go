// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package determinism implements a batch-inference conformance
// harness: score a pinned model over an ordered batch of labeled
// feature vectors and produce a single digest that must be
// bit-identical across every supported platform for the same inputs.
package determinism

import (
	"encoding/binary"
	"errors"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/gbdt"
)

// ErrEmptyBatch is returned by RunBatch when given no inputs; an empty
// digest would be indistinguishable from a real all-zero-score batch,
// so this is rejected rather than silently producing BLAKE3("").
var ErrEmptyBatch = errors.New("determinism: batch is empty")

// LabeledFeatures is one batch entry: an opaque label (e.g. a
// validator id or test-vector name, encoded as bytes) and its feature
// vector.
type LabeledFeatures struct {
	Label    []byte
	Features []int64
}

// ScoredLabel is one batch output: the label paired with its D-GBDT
// score.
type ScoredLabel struct {
	Label []byte
	Score int64
}

// Report is the full result of a conformance run: per-input scores in
// input order, plus the cross-platform digest.
type Report struct {
	Scores []ScoredLabel
	Digest [32]byte
}

// RunBatch scores every entry against model in input order (never
// reordered — label order is part of the digest) and folds label
// bytes || score_i64_le for every entry into a single BLAKE3 digest.
// This digest is deliberately its own flat concatenation with
// little-endian scores, not the fixedpoint canonical encoder's TLV
// format, which is used for HashTimer digests, round seeds and
// persisted records. Any single scoring failure aborts the whole batch; no partial
// digest is ever produced.
func RunBatch(m *gbdt.Model, batch []LabeledFeatures) (*Report, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	var buf []byte
	scores := make([]ScoredLabel, 0, len(batch))
	for _, entry := range batch {
		score, err := gbdt.Score(m, entry.Features)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ScoredLabel{Label: entry.Label, Score: score})

		buf = append(buf, entry.Label...)
		var sb [8]byte
		binary.LittleEndian.PutUint64(sb[:], uint64(score))
		buf = append(buf, sb[:]...)
	}

	digest := fixedpoint.DigestBytes(buf)
	return &Report{Scores: scores, Digest: digest}, nil
}
