// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package persist defines the *shape* of the persisted-state layout
// (RoundFinalizationRecord, EmissionSnapshot, BondSnapshot) as plain
// structs with a CanonicalBytes() method built on fixedpoint's
// canonical encoder. The on-disk storage engine itself is an external
// collaborator outside this package's scope; this package only
// guarantees that every record has one unambiguous, cross-platform
// byte encoding a collaborator can hash or write.
package persist

import (
	"sort"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/ids"
)

// RoundWindow mirrors roundstate.Window's persisted shape.
type RoundWindow struct {
	RoundID uint64
	StartUS int64
	EndUS   int64
}

// Certificate mirrors roundstate.RoundCertificate's persisted shape.
type Certificate struct {
	RoundID  uint64
	BlockIDs [][32]byte
	AggSig   []byte
}

// RoundFinalizationRecord is the full on-disk record of one finalized
// round: the round's window, its terminal certificate, the
// transaction ids it finalized in canonical order, any block ids
// dropped as losing forks, and the resulting state root.
type RoundFinalizationRecord struct {
	Round         RoundWindow
	Cert          Certificate
	OrderedTxIDs  [][32]byte
	ForkDropIDs   [][32]byte
	StateRoot     [32]byte
}

// CanonicalBytes returns the record's canonical byte encoding.
func (r RoundFinalizationRecord) CanonicalBytes() ([]byte, error) {
	enc := fixedpoint.NewEncoder()
	enc.PutU64(r.Round.RoundID)
	enc.PutI64(r.Round.StartUS)
	enc.PutI64(r.Round.EndUS)

	enc.PutU64(r.Cert.RoundID)
	enc.PutU64(uint64(len(r.Cert.BlockIDs)))
	for _, id := range r.Cert.BlockIDs {
		enc.PutBytes(id[:])
	}
	enc.PutBytes(r.Cert.AggSig)

	enc.PutU64(uint64(len(r.OrderedTxIDs)))
	for _, id := range r.OrderedTxIDs {
		enc.PutBytes(id[:])
	}

	enc.PutU64(uint64(len(r.ForkDropIDs)))
	for _, id := range r.ForkDropIDs {
		enc.PutBytes(id[:])
	}

	enc.PutBytes(r.StateRoot[:])

	return enc.Bytes()
}

// Digest returns BLAKE3-256 of the record's canonical encoding.
func (r RoundFinalizationRecord) Digest() ([32]byte, error) {
	b, err := r.CanonicalBytes()
	if err != nil {
		return [32]byte{}, err
	}
	return fixedpoint.DigestBytes(b), nil
}

// EmissionSnapshot is the persisted shape of emission.Ledger state.
type EmissionSnapshot struct {
	SupplyMicro         []byte // big-endian magnitude of supply_micro
	EmissionProgressBPS uint32
}

// CanonicalBytes returns the snapshot's canonical byte encoding.
func (s EmissionSnapshot) CanonicalBytes() ([]byte, error) {
	enc := fixedpoint.NewEncoder()
	enc.PutBytes(s.SupplyMicro)
	enc.PutU32(s.EmissionProgressBPS)
	return enc.Bytes()
}

// BondEntry is one validator's persisted bond record.
type BondEntry struct {
	ValidatorID      ids.ValidatorID
	AmountMicro      []byte // big-endian magnitude
	SlashedMicro     []byte // big-endian magnitude
	LockedSinceRound uint64
	Active           bool
}

// BondSnapshot is the persisted shape of bonding.Ledger state: every
// validator's bond entry in canonical validator-id order.
type BondSnapshot struct {
	Entries []BondEntry
}

// CanonicalBytes returns the snapshot's canonical byte encoding. It
// sorts a copy of Entries by validator_id first so a caller need not
// pre-sort; the resulting bytes are ordering-independent of the input.
func (s BondSnapshot) CanonicalBytes() ([]byte, error) {
	ordered := make([]BondEntry, len(s.Entries))
	copy(ordered, s.Entries)
	sort.Slice(ordered, func(i, j int) bool {
		return ids.Less(ordered[i].ValidatorID, ordered[j].ValidatorID)
	})

	enc := fixedpoint.NewEncoder()
	enc.PutU64(uint64(len(ordered)))
	for _, e := range ordered {
		enc.PutBytes(e.ValidatorID[:])
		enc.PutBytes(e.AmountMicro)
		enc.PutBytes(e.SlashedMicro)
		enc.PutU64(e.LockedSinceRound)
		if e.Active {
			enc.PutU8(1)
		} else {
			enc.PutU8(0)
		}
	}
	return enc.Bytes()
}
