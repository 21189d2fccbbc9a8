// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"github.com/ippan-network/dlc-core/bonding"
	"github.com/ippan-network/dlc-core/emission"
	"github.com/ippan-network/dlc-core/fairness"
	"github.com/ippan-network/dlc-core/gbdt"
	"github.com/ippan-network/dlc-core/ids"
	"github.com/ippan-network/dlc-core/roundstate"
)

// Clock supplies the orchestrator's single source of wall-clock time,
// injected so tests can drive time deterministically instead of
// reading the real clock.
type Clock interface {
	NowUS() int64
}

// ModelLoader supplies the pinned D-GBDT reputation model. Model
// distribution/pinning is an external collaborator's concern, outside
// this package's scope.
type ModelLoader interface {
	LoadModel() (*gbdt.Model, error)
}

// SignatureVerifier verifies a validator's signature over an arbitrary
// message. Key management is an external collaborator's concern.
type SignatureVerifier interface {
	VerifySignature(validatorID ids.ValidatorID, message []byte, signature [64]byte) bool
}

// PubKeyRegistry resolves a validator's registered Ed25519 public key,
// needed internally to hand roundstate.OpenRound the primary's pinned
// key once selection has predicted who the primary will be.
type PubKeyRegistry interface {
	PublicKey(validatorID ids.ValidatorID) ([32]byte, bool)
}

// TelemetrySource supplies one validator's externally observed
// operational metrics (uptime, latency, honesty, block counts).
// rounds_since_active is NOT sourced from here: the core orchestrator
// owns that counter outright, so Core.GetTelemetry overlays its own
// tracked value onto whatever this collaborator returns.
type TelemetrySource interface {
	GetTelemetry(validatorID ids.ValidatorID) fairness.Metrics
}

// Events carries the orchestrator's outbound notifications: OpenRound,
// OnFinalize, OnSlash, DeterminismDigest. Any field may be left nil;
// Core checks before calling.
type Events struct {
	OnOpenRound         func(*roundstate.RoundState)
	OnFinalize          func(*roundstate.Outcome, *emission.Distribution)
	OnSlash             func(bonding.SlashEvent)
	OnDeterminismDigest func(roundID uint64, digest [32]byte)
}
