// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fairness implements the fairness/reputation engine:
// telemetry -> feature vector -> score -> deterministic weighted
// selection. No value here is ever a floating-point number.
package fairness

import "github.com/ippan-network/dlc-core/fixedpoint"

// FeatureCount is the fixed arity of the feature vector built from
// ValidatorMetrics + stake.
const FeatureCount = 7

// Metrics is the read-only integer telemetry snapshot (ValidatorMetrics).
// It is updated only at round finalization and never mutated mid-round.
type Metrics struct {
	UptimeBPS         uint16
	LatencyUS         uint32
	HonestyBPS        uint16
	BlocksProposed    uint64
	BlocksVerified    uint64
	Inconsistencies   uint64
	RoundsSinceActive uint64
}

// BuildFeatures computes the canonical-order feature vector for one
// validator from its telemetry and stake. The model's feature SCALE is
// 1_000_000.
func BuildFeatures(m Metrics, stakeMicro uint64) ([]int64, error) {
	const modelScale = 1_000_000

	uptimeScaled, err := fixedpoint.MulDivI64(int64(m.UptimeBPS), modelScale, int64(fixedpoint.BPSDenominator))
	if err != nil {
		return nil, err
	}

	latency := int64(m.LatencyUS)
	if latency < 1 {
		latency = 1
	}
	inverseLatency, err := fixedpoint.MulDivI64(1_000_000_000, 1, latency)
	if err != nil {
		return nil, err
	}

	honestyScaled, err := fixedpoint.MulDivI64(int64(m.HonestyBPS), modelScale, int64(fixedpoint.BPSDenominator))
	if err != nil {
		return nil, err
	}

	stakeLog := fixedpoint.ILog2Floor(stakeMicro+1) * modelScale

	recentContribution, err := fixedpoint.MulDivI64(
		int64(m.BlocksProposed+m.BlocksVerified), modelScale, int64(m.RoundsSinceActive+1))
	if err != nil {
		return nil, err
	}

	verified := int64(m.BlocksVerified)
	if verified < 1 {
		verified = 1
	}
	inconsistencyPenalty, err := fixedpoint.MulDivI64(int64(m.Inconsistencies), modelScale, verified)
	if err != nil {
		return nil, err
	}

	activityRate, err := fixedpoint.MulDivI64(1_000_000, 1, int64(m.RoundsSinceActive+1))
	if err != nil {
		return nil, err
	}

	return []int64{
		uptimeScaled,
		inverseLatency,
		honestyScaled,
		stakeLog,
		recentContribution,
		inconsistencyPenalty,
		activityRate,
	}, nil
}
