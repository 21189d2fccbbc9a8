// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package core implements the consensus orchestrator: the single-owner
// façade wiring the round, bonding, emission, fairness, and shadow
// verification components behind one command surface. It holds the
// only mutable handles to roundstate.RoundState, emission.Ledger,
// bonding.Ledger, and the rounds_since_active/reputation table; every
// other package in this module is a leaf that returns directives for
// Core to apply rather than mutating shared state itself.
//
// Collaborators the orchestrator cannot resolve on its own (wall clock,
// model distribution, signature verification, telemetry) are injected
// as narrow interfaces rather than imported as concrete dependencies.
package core

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ippan-network/dlc-core/bonding"
	"github.com/ippan-network/dlc-core/config"
	"github.com/ippan-network/dlc-core/corelog"
	"github.com/ippan-network/dlc-core/determinism"
	"github.com/ippan-network/dlc-core/emission"
	"github.com/ippan-network/dlc-core/fairness"
	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/gbdt"
	"github.com/ippan-network/dlc-core/ids"
	"github.com/ippan-network/dlc-core/roundstate"
	"github.com/ippan-network/dlc-core/shadowset"

	"github.com/luxfi/log"
)

var (
	// ErrNoModel is returned when the injected ModelLoader fails.
	ErrNoModel = errors.New("core: reputation model unavailable")
	// ErrNoActiveRound is returned by round commands issued with no
	// round currently open.
	ErrNoActiveRound = errors.New("core: no round is open")
	// ErrUnknownPubKey is returned when OpenRound's predicted primary
	// has no registered public key.
	ErrUnknownPubKey = errors.New("core: validator has no registered public key")
)

// Core is the consensus orchestrator: the only component that ever
// advances a round, applies a slash, or credits an emission share.
type Core struct {
	cfg    config.Config
	clock  Clock
	models ModelLoader
	keys   PubKeyRegistry
	sigs   SignatureVerifier
	tsrc   TelemetrySource
	events Events
	log    log.Logger

	bonds    *bonding.Ledger
	emission *emission.Ledger

	mu               sync.Mutex
	roundsSinceActive map[ids.ValidatorID]uint64
	reputationBPS    map[ids.ValidatorID]int64
	round            *roundstate.RoundState
}

// New constructs an orchestrator. bonds and em must already be
// initialized by the caller (e.g. restored from a persist.BondSnapshot
// / persist.EmissionSnapshot at startup); Core never constructs its own
// ledgers so restart/restore stays entirely the caller's concern.
func New(cfg config.Config, clock Clock, models ModelLoader, keys PubKeyRegistry, sigs SignatureVerifier, tsrc TelemetrySource, bonds *bonding.Ledger, em *emission.Ledger, events Events) *Core {
	return &Core{
		cfg:               cfg,
		clock:             clock,
		models:            models,
		keys:              keys,
		sigs:              sigs,
		tsrc:              tsrc,
		events:            events,
		log:               corelog.New(),
		bonds:             bonds,
		emission:          em,
		roundsSinceActive: make(map[ids.ValidatorID]uint64),
		reputationBPS:     make(map[ids.ValidatorID]int64),
	}
}

// NowUS returns the orchestrator's current time.
func (c *Core) NowUS() int64 { return c.clock.NowUS() }

// VerifySignature verifies a validator's signature, delegated entirely
// to the injected SignatureVerifier.
func (c *Core) VerifySignature(validatorID ids.ValidatorID, message []byte, signature [64]byte) bool {
	return c.sigs.VerifySignature(validatorID, message, signature)
}

// GetValidatorSet returns every currently active (sufficiently bonded)
// validator, canonical order.
func (c *Core) GetValidatorSet() []ids.ValidatorID {
	return c.bonds.ActiveValidators()
}

// GetTelemetry returns the TelemetrySource's externally observed
// metrics for validatorID, overlaid with Core's own tracked
// rounds_since_active counter.
func (c *Core) GetTelemetry(validatorID ids.ValidatorID) fairness.Metrics {
	m := c.tsrc.GetTelemetry(validatorID)
	c.mu.Lock()
	m.RoundsSinceActive = c.roundsSinceActive[validatorID]
	c.mu.Unlock()
	return m
}

// CurrentRound returns the round currently open, if any.
func (c *Core) CurrentRound() (*roundstate.RoundState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round, c.round != nil
}

// OpenRound gathers active, sufficiently-bonded and sufficiently-reputed
// validators, scores them with the pinned D-GBDT model, predicts the
// deterministic primary the same way roundstate.OpenRound will,
// resolves its registered public key, and hands off to
// roundstate.OpenRound. Candidate filtering and D-GBDT scoring live
// here, exactly as roundstate's package doc reserves them to the
// orchestrator.
func (c *Core) OpenRound(parentRoundID uint64, parentHashTimerDigest [32]byte) (*roundstate.RoundState, error) {
	model, err := c.models.LoadModel()
	if err != nil {
		return nil, errors.Join(ErrNoModel, err)
	}

	eligible, weighted, err := c.scoreCandidates(model)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, roundstate.ErrNoCandidates
	}

	seed, err := predictSeed(parentHashTimerDigest, parentRoundID+1)
	if err != nil {
		return nil, err
	}
	primaryPicks := fairness.Select(seed, weighted, 1)
	primaryPubKey, ok := c.keys.PublicKey(primaryPicks[0])
	if !ok {
		return nil, ErrUnknownPubKey
	}

	nowUS := c.clock.NowUS()
	rs, err := roundstate.OpenRound(parentRoundID, parentHashTimerDigest, eligible, primaryPubKey, int(c.cfg.ShadowCount), c.cfg.FinalityMS, nowUS)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.round = rs
	c.mu.Unlock()

	c.log.Info("round opened", corelog.RoundID(rs.RoundID), corelog.ValidatorID("primary", rs.Primary))
	if c.events.OnOpenRound != nil {
		c.events.OnOpenRound(rs)
	}
	return rs, nil
}

// scoreCandidates builds this round's eligible candidate list (both the
// roundstate.Candidate shape and the fairness.Candidate weighted shape
// Select needs) from the active bond set, current telemetry, and a
// fresh D-GBDT scoring pass. Reputation scores are cached so Finalize's
// emission distribution can reuse them without re-scoring.
func (c *Core) scoreCandidates(model *gbdt.Model) ([]roundstate.Candidate, []fairness.Candidate, error) {
	active := c.bonds.ActiveValidators()

	eligible := make([]roundstate.Candidate, 0, len(active))
	weighted := make([]fairness.Candidate, 0, len(active))
	reputations := make(map[ids.ValidatorID]int64, len(active))

	for _, v := range active {
		bond, ok := c.bonds.Get(v)
		if !ok || bond.EffectiveMicro().Cmp(c.cfg.MinBondMicroBig()) < 0 {
			continue
		}

		m := c.GetTelemetry(v)
		features, err := fairness.BuildFeatures(m, bond.EffectiveMicro().Uint64())
		if err != nil {
			return nil, nil, err
		}
		raw, err := gbdt.Score(model, features)
		if err != nil {
			return nil, nil, err
		}
		rep := fairness.NewReputationScore(raw)
		normalized := rep.NormalizedScaled()
		if normalized < int64(c.cfg.MinReputationBPS) {
			continue
		}

		reputations[v] = normalized
		eligible = append(eligible, roundstate.Candidate{ValidatorID: v, Score: normalized})
		weight := normalized
		if weight < 1 {
			weight = 1
		}
		weighted = append(weighted, fairness.Candidate{ValidatorID: v, Weight: weight})
	}

	c.mu.Lock()
	for v, bps := range reputations {
		c.reputationBPS[v] = bps
	}
	c.mu.Unlock()

	return eligible, weighted, nil
}

// predictSeed reproduces roundstate.OpenRound's seed derivation
// (BLAKE3(canonical_encode(parent_digest || round_id))) so Core can
// learn, ahead of calling OpenRound, which validator fairness.Select
// will deterministically pick as primary — and thus which public key to
// pass in.
func predictSeed(parentHashTimerDigest [32]byte, roundID uint64) ([32]byte, error) {
	enc := fixedpoint.NewEncoder()
	enc.PutBytes(parentHashTimerDigest[:])
	enc.PutU64(roundID)
	return fixedpoint.Digest(enc)
}

// SubmitBlock forwards to the current round and, on a detected
// double-sign, slashes the primary immediately.
func (c *Core) SubmitBlock(b roundstate.Block) error {
	rs, ok := c.CurrentRound()
	if !ok {
		return ErrNoActiveRound
	}

	err := rs.SubmitBlock(b)
	if errors.Is(err, roundstate.ErrDoubleSign) {
		c.applySlash(rs.RoundID, rs.DoubleSignSlash(c.cfg.SlashDoubleSignBPS))
	}
	return err
}

// ReportVerification forwards a shadow's verification result to the
// current round.
func (c *Core) ReportVerification(shadowID ids.ValidatorID, result shadowset.VerificationResult, signature [64]byte) error {
	rs, ok := c.CurrentRound()
	if !ok {
		return ErrNoActiveRound
	}
	return rs.ReportVerification(shadowID, result, signature)
}

// TimeoutAcceptingBlock drives the round's AcceptingBlock deadline,
// applying metrics and emitting OnFinalize if the round aborts.
func (c *Core) TimeoutAcceptingBlock() *roundstate.Outcome {
	rs, ok := c.CurrentRound()
	if !ok {
		return nil
	}
	outcome := rs.TimeoutAcceptingBlock(c.clock.NowUS())
	c.applyOutcome(outcome, nil)
	return outcome
}

// CancelRound drives the external-cancel path.
func (c *Core) CancelRound() *roundstate.Outcome {
	rs, ok := c.CurrentRound()
	if !ok {
		return nil
	}
	outcome := rs.Cancel()
	c.applyOutcome(outcome, nil)
	return outcome
}

// Finalize drives the round's ShadowVerifying -> {Finalized, Aborted}
// transition, applying every SlashDirective and MetricsUpdate
// roundstate.Finalize returns and, on a successful finalize, running
// the emission distribution over the round's collected fees.
func (c *Core) Finalize(collectedFeesMicro *big.Int) (*roundstate.Outcome, *emission.Distribution, error) {
	rs, ok := c.CurrentRound()
	if !ok {
		return nil, nil, ErrNoActiveRound
	}

	nowUS := c.clock.NowUS()
	outcome, err := rs.Finalize(nowUS, int64(c.cfg.GraceUS), c.cfg.SlashInvalidBlockBPS)
	if err != nil {
		return nil, nil, err
	}

	var dist *emission.Distribution
	if outcome.Status == roundstate.Finalized {
		dist, err = c.distribute(rs, collectedFeesMicro)
		if err != nil {
			c.applyOutcome(outcome, nil)
			return outcome, nil, err
		}
	}
	c.applyOutcome(outcome, dist)
	return outcome, dist, nil
}

// distribute computes and applies the round's emission distribution
// across the primary and its shadows, using each participant's cached
// reputation score (from this round's scoreCandidates pass), effective
// bond, and observed uptime as the participation-score inputs.
func (c *Core) distribute(rs *roundstate.RoundState, collectedFeesMicro *big.Int) (*emission.Distribution, error) {
	participantIDs := append([]ids.ValidatorID{rs.Primary}, rs.Shadows...)
	participants := make([]emission.Participant, 0, len(participantIDs))

	c.mu.Lock()
	for _, v := range participantIDs {
		bond, _ := c.bonds.Get(v)
		telemetry := c.tsrc.GetTelemetry(v)
		rep := c.reputationBPS[v]
		score, err := emission.ParticipationScore(1, rep, bond.EffectiveMicro().Uint64(), telemetry.UptimeBPS)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		participants = append(participants, emission.Participant{ValidatorID: v, ParticipationScore: score})
	}
	c.mu.Unlock()

	dist, err := emission.Distribute(c.emission.SupplyMicro(), collectedFeesMicro, c.cfg.FeeCapBPS, participants)
	if err != nil {
		return nil, err
	}
	c.emission.Apply(dist)
	return dist, nil
}

// RunDeterminismBatch is the hook behind the DeterminismDigest outbound
// event: score batch against the pinned model and notify the event
// sink with the resulting cross-platform digest.
func (c *Core) RunDeterminismBatch(batch []determinism.LabeledFeatures) (*determinism.Report, error) {
	model, err := c.models.LoadModel()
	if err != nil {
		return nil, errors.Join(ErrNoModel, err)
	}
	report, err := determinism.RunBatch(model, batch)
	if err != nil {
		return nil, err
	}
	if c.events.OnDeterminismDigest != nil {
		roundID := uint64(0)
		if rs, ok := c.CurrentRound(); ok {
			roundID = rs.RoundID
		}
		c.events.OnDeterminismDigest(roundID, report.Digest)
	}
	return report, nil
}

// applyOutcome applies an outcome's slashes and metrics, then emits
// OnFinalize. outcome may be nil (e.g. TimeoutAcceptingBlock/Cancel
// called when no deadline/abort condition has fired yet).
func (c *Core) applyOutcome(outcome *roundstate.Outcome, dist *emission.Distribution) {
	if outcome == nil {
		return
	}

	rs, _ := c.CurrentRound()
	var roundID uint64
	if rs != nil {
		roundID = rs.RoundID
	}
	for _, d := range outcome.Slashes {
		c.applySlash(roundID, d)
	}
	c.applyMetrics(outcome.Metrics)

	if c.events.OnFinalize != nil {
		c.events.OnFinalize(outcome, dist)
	}
}

// applySlash converts a roundstate.SlashDirective into a bonding.Ledger
// mutation, the only place this module ever touches bond state outside
// an explicit Bond/Unbond call. Idempotent-slash collisions are logged,
// not treated as fatal: the directive's infraction was already applied
// once this round, which is the invariant, not an error.
func (c *Core) applySlash(roundID uint64, d roundstate.SlashDirective) {
	ev, err := c.bonds.Slash(roundID, d.ValidatorID, bonding.SlashReason(d.Reason), d.BPS)
	if err != nil {
		if !errors.Is(err, bonding.ErrAlreadySlashed) {
			c.log.Error("slash failed", corelog.ValidatorID("validator_id", d.ValidatorID), corelog.Reason(err.Error()))
		}
		return
	}
	if c.events.OnSlash != nil {
		c.events.OnSlash(ev)
	}
}

// applyMetrics commits a round's rounds_since_active resets/increments
// to Core's owned counter table.
func (c *Core) applyMetrics(m roundstate.MetricsUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range m.ResetRoundsSinceActive {
		c.roundsSinceActive[v] = 0
	}
	for _, v := range m.IncrementRoundsSinceActive {
		c.roundsSinceActive[v]++
	}
}
