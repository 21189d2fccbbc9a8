// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bonding implements the validator bonding & slashing ledger:
// bond/unbond accounting, active-validator tracking, and idempotent
// per-round slash events.
package bonding

import (
	"errors"
	"math/big"
	"sort"
	"sync"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/ids"
)

// MinBondMicro is the minimum active bond: 10 IPN.
var MinBondMicro = big.NewInt(10 * 1_000_000)

var (
	// ErrInsufficientBond is returned when an operation would leave a
	// validator's effective bond below MinBondMicro while still marked
	// active, or when a candidate fails the MIN_BOND check at round
	// open.
	ErrInsufficientBond = errors.New("bonding: insufficient bond")
	// ErrUnknownValidator means the validator has no bond record.
	ErrUnknownValidator = errors.New("bonding: unknown validator")
	// ErrCooldownActive names an unbond cooldown that has not elapsed.
	// Unbond does not return it: Unbond only records the release round
	// (atRound + cooldown).
	ErrCooldownActive = errors.New("bonding: unbond cooldown active")
	// ErrAlreadySlashed means the same (round_id, validator_id, reason)
	// infraction was already recorded — slashing is idempotent.
	ErrAlreadySlashed = errors.New("bonding: infraction already slashed")
)

// SlashReason names the infraction a slash event is for; combined with
// round_id and validator_id it forms the idempotency key.
type SlashReason uint8

const (
	SlashReasonDoubleSign SlashReason = iota + 1
	SlashReasonInvalidBlock
)

// Bond is the per-validator bond record.
type Bond struct {
	ValidatorID      ids.ValidatorID
	AmountMicro      *big.Int
	SlashedMicro     *big.Int
	LockedSinceRound uint64
	Active           bool
	unbondAtRound    uint64 // set once Unbond is requested; 0 means not requested
}

// EffectiveMicro returns amount - slashed, the bond actually backing
// the validator's candidacy.
func (b Bond) EffectiveMicro() *big.Int {
	return fixedpoint.SaturatingSubU128(b.AmountMicro, b.SlashedMicro)
}

// SlashEvent is the structured record emitted on every slash, consumed
// by the emission ledger as a treasury-bound amount.
type SlashEvent struct {
	RoundID     uint64
	ValidatorID ids.ValidatorID
	Reason      SlashReason
	BPS         uint32
	SlashedNow  *big.Int
}

type infractionKey struct {
	round       uint64
	validatorID ids.ValidatorID
	reason      SlashReason
}

// Ledger is the consensus core's exclusive owner of ValidatorBond
// state. Mutations happen only at round open/finalize.
type Ledger struct {
	mu            sync.Mutex
	unbondCooldown uint64
	bonds         map[ids.ValidatorID]*Bond
	slashed       map[infractionKey]struct{}
}

// NewLedger creates an empty bonding ledger. unbondCooldownRounds is the
// number of rounds an Unbond request must wait before the bond is
// released.
func NewLedger(unbondCooldownRounds uint64) *Ledger {
	return &Ledger{
		unbondCooldown: unbondCooldownRounds,
		bonds:          make(map[ids.ValidatorID]*Bond),
		slashed:        make(map[infractionKey]struct{}),
	}
}

// Bond records a new or additional bond for a validator, activating it
// if the effective bond now meets MinBondMicro.
func (l *Ledger) Bond(validatorID ids.ValidatorID, amountMicro *big.Int, atRound uint64) *Bond {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bonds[validatorID]
	if !ok {
		b = &Bond{
			ValidatorID:      validatorID,
			AmountMicro:      big.NewInt(0),
			SlashedMicro:     big.NewInt(0),
			LockedSinceRound: atRound,
		}
		l.bonds[validatorID] = b
	}
	b.AmountMicro = fixedpoint.SaturatingAddU128(b.AmountMicro, amountMicro)
	if b.EffectiveMicro().Cmp(MinBondMicro) >= 0 {
		b.Active = true
	}
	return cloneBond(b)
}

// Unbond requests withdrawal and records the release round as atRound
// plus the ledger's cooldown. The bond becomes inactive immediately (it can no longer be selected) but
// EffectiveMicro is unaffected until governance-level fund release,
// which is outside this module's scope.
func (l *Ledger) Unbond(validatorID ids.ValidatorID, atRound uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.bonds[validatorID]
	if !ok {
		return ErrUnknownValidator
	}
	b.unbondAtRound = atRound + l.unbondCooldown
	b.Active = false
	return nil
}

// IsActive reports whether the validator can currently be a candidate.
func (l *Ledger) IsActive(validatorID ids.ValidatorID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bonds[validatorID]
	return ok && b.Active
}

// EffectiveBond returns the validator's effective (amount - slashed)
// bond, or zero if unknown.
func (l *Ledger) EffectiveBond(validatorID ids.ValidatorID) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bonds[validatorID]
	if !ok {
		return big.NewInt(0)
	}
	return b.EffectiveMicro()
}

// ActiveValidators returns every validator currently marked active, in
// canonical ascending validator_id order — the candidate pool the core
// orchestrator filters further by reputation at round open.
func (l *Ledger) ActiveValidators() []ids.ValidatorID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ids.ValidatorID, 0, len(l.bonds))
	for id, b := range l.bonds {
		if b.Active {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return ids.Less(out[i], out[j]) })
	return out
}

// Get returns a copy of the validator's bond record.
func (l *Ledger) Get(validatorID ids.ValidatorID) (Bond, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bonds[validatorID]
	if !ok {
		return Bond{}, false
	}
	return *cloneBond(b), true
}

// Slash applies a basis-point slash to a validator's bond for a given
// round and reason, idempotently: the same (round, validator, reason)
// triple is only ever applied once. Returns the resulting SlashEvent,
// or ErrAlreadySlashed if this exact infraction was already recorded.
func (l *Ledger) Slash(roundID uint64, validatorID ids.ValidatorID, reason SlashReason, bps uint32) (SlashEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := infractionKey{round: roundID, validatorID: validatorID, reason: reason}
	if _, done := l.slashed[key]; done {
		return SlashEvent{}, ErrAlreadySlashed
	}

	b, ok := l.bonds[validatorID]
	if !ok {
		return SlashEvent{}, ErrUnknownValidator
	}

	amount, err := fixedpoint.ApplyBPSU128(b.AmountMicro, bps)
	if err != nil {
		return SlashEvent{}, err
	}
	b.SlashedMicro = fixedpoint.SaturatingAddU128(b.SlashedMicro, amount)
	if b.SlashedMicro.Cmp(b.AmountMicro) > 0 {
		b.SlashedMicro = new(big.Int).Set(b.AmountMicro)
	}
	if b.EffectiveMicro().Cmp(MinBondMicro) < 0 {
		b.Active = false
	}
	l.slashed[key] = struct{}{}

	return SlashEvent{
		RoundID:     roundID,
		ValidatorID: validatorID,
		Reason:      reason,
		BPS:         bps,
		SlashedNow:  amount,
	}, nil
}

func cloneBond(b *Bond) *Bond {
	out := *b
	out.AmountMicro = new(big.Int).Set(b.AmountMicro)
	out.SlashedMicro = new(big.Int).Set(b.SlashedMicro)
	return &out
}
