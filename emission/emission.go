// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package emission implements per-round base reward scheduling, fee
// capping/recycling, participation-weighted distribution, and
// supply-cap tracking. All arithmetic is integer, built entirely on
// fixedpoint's saturating/mul_div primitives.
package emission

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/ids"
)

// MaxSupplyMicro is the hard emission cap: 21e15 micro-units.
var MaxSupplyMicro = new(big.Int).SetUint64(21_000_000_000_000_000)

// initialBaseMicro and halvingIntervalMicro parameterize the halving
// schedule: per_round_base_micro(supply) = initial_base >> (supply /
// halving_interval), a pure function of supply alone.
var (
	initialBaseMicro      = big.NewInt(50 * 1_000_000)
	halvingIntervalMicro  = new(big.Int).SetUint64(1_050_000_000_000) // 1.05e12 micro (0.005% of max supply)
)

// ErrInvariantViolated is returned if the distribution invariant
// (shares + excess fees + remainder == base + collected fees) is violated —
// this can only happen from a programming error, never from valid
// input, but is surfaced rather than silently tolerated.
var ErrInvariantViolated = errors.New("emission: distribution invariant violated")

// PerRoundBaseMicro computes the halving-schedule base reward for the
// current supply. Returns zero once supply has reached the cap.
func PerRoundBaseMicro(supplyMicro *big.Int) *big.Int {
	if supplyMicro.Cmp(MaxSupplyMicro) >= 0 {
		return big.NewInt(0)
	}
	halvings := new(big.Int).Div(supplyMicro, halvingIntervalMicro)
	if !halvings.IsInt64() || halvings.Int64() > 63 {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(initialBaseMicro, uint(halvings.Int64()))
}

// Participant is one validator's input to a round's distribution: its
// participation score, used as its distribution weight.
type Participant struct {
	ValidatorID        ids.ValidatorID
	ParticipationScore int64
}

// Share is one validator's resulting per-round emission share.
type Share struct {
	ValidatorID ids.ValidatorID
	AmountMicro *big.Int
}

// Distribution is the full result of one round's emission distribution:
// everything the orchestrator needs to apply to validator balances and
// the ledger.
type Distribution struct {
	BaseRewardMicro     *big.Int
	CollectedFeesMicro  *big.Int
	CappedFeesMicro     *big.Int
	ExcessFeesMicro     *big.Int
	DistributableMicro  *big.Int
	Shares              []Share // ordered by validator_id
	RemainderMicro      *big.Int
}

// ParticipationScore computes a validator's per-round weight as a
// blend of four signals:
//
//	block_score = blocks_in_round * SCALE_REP
//	participation_score = (block_score*4 + reputation_score*3 + stake_score*2 + uptime_weight*1) / 10
func ParticipationScore(blocksInRound int64, reputationNormalizedScaled int64, stakeMicro uint64, uptimeBPS uint16) (int64, error) {
	const scaleRep = 10000
	blockScore := fixedpoint.SaturatingMulI64(blocksInRound, scaleRep)
	stakeScore := fixedpoint.ILog2Floor(stakeMicro+1) * scaleRep
	uptimeWeight := int64(uptimeBPS)

	weighted := fixedpoint.SaturatingMulI64(blockScore, 4)
	t := fixedpoint.SaturatingMulI64(reputationNormalizedScaled, 3)
	weighted = fixedpoint.SaturatingAddI64(weighted, t)
	t = fixedpoint.SaturatingMulI64(stakeScore, 2)
	weighted = fixedpoint.SaturatingAddI64(weighted, t)
	weighted = fixedpoint.SaturatingAddI64(weighted, uptimeWeight)

	return weighted / 10, nil
}

// Distribute runs the full per-round distribution algorithm: it caps
// and recycles excess fees, splits the distributable amount across
// participants by weight, and checks the no-lost-tokens invariant
// (shares + excess fees + remainder == base + collected fees) before
// returning.
func Distribute(supplyMicro *big.Int, collectedFeesMicro *big.Int, feeCapBPS uint32, participants []Participant) (*Distribution, error) {
	base := PerRoundBaseMicro(supplyMicro)

	feeCapMicro, err := fixedpoint.ApplyBPSU128(base, feeCapBPS)
	if err != nil {
		return nil, err
	}
	cappedFees := collectedFeesMicro
	if collectedFeesMicro.Cmp(feeCapMicro) > 0 {
		cappedFees = feeCapMicro
	}
	excessFees := fixedpoint.SaturatingSubU128(collectedFeesMicro, cappedFees)
	distributable := fixedpoint.SaturatingAddU128(base, cappedFees)

	ordered := make([]Participant, len(participants))
	copy(ordered, participants)
	sort.Slice(ordered, func(i, j int) bool { return ids.Less(ordered[i].ValidatorID, ordered[j].ValidatorID) })

	totalWeight := new(big.Int)
	for _, p := range ordered {
		w := p.ParticipationScore
		if w < 0 {
			w = 0
		}
		totalWeight = fixedpoint.SaturatingAddU128(totalWeight, big.NewInt(w))
	}

	shares := make([]Share, 0, len(ordered))
	sumShares := new(big.Int)
	if totalWeight.Sign() > 0 {
		for _, p := range ordered {
			w := p.ParticipationScore
			if w < 0 {
				w = 0
			}
			share, err := fixedpoint.MulDivU128(distributable, big.NewInt(w), totalWeight)
			if err != nil {
				return nil, err
			}
			shares = append(shares, Share{ValidatorID: p.ValidatorID, AmountMicro: share})
			sumShares = fixedpoint.SaturatingAddU128(sumShares, share)
		}
	}

	remainder := fixedpoint.SaturatingSubU128(distributable, sumShares)

	check := fixedpoint.SaturatingAddU128(sumShares, excessFees)
	check = fixedpoint.SaturatingAddU128(check, remainder)
	want := fixedpoint.SaturatingAddU128(base, collectedFeesMicro)
	if check.Cmp(want) != 0 {
		return nil, ErrInvariantViolated
	}

	return &Distribution{
		BaseRewardMicro:    base,
		CollectedFeesMicro: collectedFeesMicro,
		CappedFeesMicro:    cappedFees,
		ExcessFeesMicro:    excessFees,
		DistributableMicro: distributable,
		Shares:             shares,
		RemainderMicro:     remainder,
	}, nil
}

// Ledger tracks aggregate supply and emission progress across rounds,
// owned exclusively by the consensus core.
type Ledger struct {
	mu               sync.Mutex
	supplyMicro      *big.Int
}

// NewLedger creates an emission ledger starting at the given supply
// (zero for genesis).
func NewLedger(initialSupplyMicro *big.Int) *Ledger {
	return &Ledger{supplyMicro: new(big.Int).Set(initialSupplyMicro)}
}

// Apply commits a round's distribution to the tracked supply: supply
// += Σshares + excess_fees + remainder, capped at MaxSupplyMicro.
func (l *Ledger) Apply(d *Distribution) {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := new(big.Int)
	for _, s := range d.Shares {
		total = fixedpoint.SaturatingAddU128(total, s.AmountMicro)
	}
	total = fixedpoint.SaturatingAddU128(total, d.ExcessFeesMicro)
	total = fixedpoint.SaturatingAddU128(total, d.RemainderMicro)

	l.supplyMicro = fixedpoint.SaturatingAddU128(l.supplyMicro, total)
	if l.supplyMicro.Cmp(MaxSupplyMicro) > 0 {
		l.supplyMicro = new(big.Int).Set(MaxSupplyMicro)
	}
}

// SupplyMicro returns the current tracked supply.
func (l *Ledger) SupplyMicro() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.supplyMicro)
}

// EmissionProgressBPS returns floor(supply_micro * 10000 / max_supply_micro),
// in [0, 10000].
func (l *Ledger) EmissionProgressBPS() (uint32, error) {
	l.mu.Lock()
	supply := new(big.Int).Set(l.supplyMicro)
	l.mu.Unlock()

	bps, err := fixedpoint.MulDivU128(supply, big.NewInt(10000), MaxSupplyMicro)
	if err != nil {
		return 0, err
	}
	if bps.Cmp(big.NewInt(10000)) > 0 {
		bps = big.NewInt(10000)
	}
	return uint32(bps.Uint64()), nil
}
