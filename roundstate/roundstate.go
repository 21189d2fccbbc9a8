// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package roundstate implements the DLC round state machine: the
// explicit Open → AcceptingBlock → ShadowVerifying → {Finalized,
// Aborted} lifecycle, block acceptance rules, and shadow-verification
// merge/certificate assembly. It owns exactly one round's worth of
// mutable state; the core orchestrator drives the transitions and
// applies the SlashDirective/MetricsUpdate results this package
// returns, so that this package never mutates bonding or reputation
// state directly.
//
// Round certificates aggregate plain concatenated shadow Ed25519
// signatures rather than a threshold scheme — no threshold
// cryptography is required for this shadow-verification shape.
package roundstate

import (
	"errors"
	"sort"

	"github.com/ippan-network/dlc-core/fairness"
	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/hashtimer"
	"github.com/ippan-network/dlc-core/ids"
	"github.com/ippan-network/dlc-core/shadowset"
)

// Status is the round's lifecycle stage: transitions are monotonic in
// the order declared here.
type Status uint8

const (
	Open Status = iota + 1
	AcceptingBlock
	ShadowVerifying
	Finalized
	Aborted
)

func (s Status) String() string {
	switch s {
	case Open:
		return "Open"
	case AcceptingBlock:
		return "AcceptingBlock"
	case ShadowVerifying:
		return "ShadowVerifying"
	case Finalized:
		return "Finalized"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

var (
	// ErrWrongState is returned when an operation is attempted outside
	// the state it requires (e.g. SubmitBlock outside AcceptingBlock).
	ErrWrongState = errors.New("roundstate: operation invalid in current status")
	// ErrOutOfWindow is returned when a block's HashTimer timestamp
	// falls outside [start_us, end_us].
	ErrOutOfWindow = errors.New("roundstate: block timestamp out of round window")
	// ErrDuplicateProposal is returned when a block has already been
	// accepted this round.
	ErrDuplicateProposal = errors.New("roundstate: block already accepted this round")
	// ErrUnsignedBlock is returned when the candidate block's HashTimer
	// carries no signature.
	ErrUnsignedBlock = errors.New("roundstate: block hashtimer is unsigned")
	// ErrInvalidSignature is returned when the block's signature fails
	// to verify, or does not match the round's primary.
	ErrInvalidSignature = errors.New("roundstate: invalid or wrong-signer block signature")
	// ErrNotReady is returned by Finalize when neither "all shadows
	// reported" nor "grace period expired" holds yet.
	ErrNotReady = errors.New("roundstate: shadow verification not yet complete")
	// ErrNoCandidates is returned by OpenRound when there is no
	// eligible candidate to serve as primary.
	ErrNoCandidates = errors.New("roundstate: no eligible candidates")
	// ErrDoubleSign is returned by SubmitBlock when the primary
	// proposes a second, distinct block after one was already
	// accepted — a slashable double-sign.
	ErrDoubleSign = errors.New("roundstate: primary proposed a conflicting second block")
)

// Window is the round's hard temporal deadline.
type Window struct {
	StartUS int64
	EndUS   int64
}

// Block is the minimal structural shape of a proposed block the round
// state machine must reason about; transaction contents and payload
// commitments are opaque here (they belong to the VM/mempool layer),
// but the fields the acceptance rules inspect are explicit.
type Block struct {
	ID         [32]byte
	ProposerID ids.ValidatorID
	HashTimer  hashtimer.HashTimer
	StateRoot  [32]byte
}

// RoundCertificate is the terminal artifact of a Finalized round.
type RoundCertificate struct {
	RoundID     uint64
	BlockIDs    [][32]byte
	AggSig      []byte // concatenation of shadow signatures, in canonical shadow order
	ShadowCount int
}

// SlashReason mirrors bonding.SlashReason's values without importing
// bonding, keeping this package a leaf the orchestrator composes.
type SlashReason uint8

const (
	SlashReasonDoubleSign SlashReason = iota + 1
	SlashReasonInvalidBlock
)

// Candidate is a round-open input: a validator id paired with its
// D-GBDT score for this round; the weight used for selection is
// max(score, 1).
type Candidate struct {
	ValidatorID ids.ValidatorID
	Score       int64
}

// SlashDirective is a decision the round state machine has made but
// does not itself apply — bond mutations are reserved to the core, so
// Finalize returns these for the orchestrator to hand to
// bonding.Ledger.Slash.
type SlashDirective struct {
	ValidatorID ids.ValidatorID
	Reason      SlashReason
	BPS         uint32
}

// MetricsUpdate tells the orchestrator which validators' rounds_since_active
// counters reset to zero (participants) versus increment (everyone else
// in the eligible candidate pool).
type MetricsUpdate struct {
	ResetRoundsSinceActive     []ids.ValidatorID
	IncrementRoundsSinceActive []ids.ValidatorID
}

// Outcome is what Finalize (or an induced timeout/abort) produces: the
// terminal certificate (if any) plus the slash and metrics directives
// the orchestrator must apply.
type Outcome struct {
	Status      Status
	Certificate *RoundCertificate
	Slashes     []SlashDirective
	Metrics     MetricsUpdate
}

// RoundState is one round's mutable state machine instance.
type RoundState struct {
	RoundID   uint64
	Window    Window
	Seed      [32]byte
	Primary   ids.ValidatorID
	Shadows   []ids.ValidatorID // ordered ascending by validator_id
	HashTimer hashtimer.HashTimer
	Status    Status
	BlockIDs  [][32]byte

	primaryPubKey [32]byte
	candidatePool []ids.ValidatorID // the full eligible set this round was opened with
	acceptedBlock *Block
	shadowSet     *shadowset.Set
}

// OpenRound derives the round seed, selects the primary and shadow set
// by weighted fairness selection, and builds the round's HashTimer and
// window. Candidate filtering via bonding/reputation and D-GBDT scoring
// are the orchestrator's responsibility and are reflected here only in
// the already-scored eligible[] input, keeping this package free of a
// bonding/gbdt import dependency.
func OpenRound(
	parentRoundID uint64,
	parentHashTimerDigest [32]byte,
	eligible []Candidate,
	primaryPubKey [32]byte,
	shadowCount int,
	finalityMS uint32,
	nowUS int64,
) (*RoundState, error) {
	if len(eligible) == 0 {
		return nil, ErrNoCandidates
	}

	roundID := parentRoundID + 1

	seedEnc := fixedpoint.NewEncoder()
	seedEnc.PutBytes(parentHashTimerDigest[:])
	seedEnc.PutU64(roundID)
	seed, err := fixedpoint.Digest(seedEnc)
	if err != nil {
		return nil, err
	}

	weighted := make([]fairness.Candidate, len(eligible))
	pool := make([]ids.ValidatorID, len(eligible))
	for i, c := range eligible {
		w := c.Score
		if w < 1 {
			w = 1
		}
		weighted[i] = fairness.Candidate{ValidatorID: c.ValidatorID, Weight: w}
		pool[i] = c.ValidatorID
	}
	sort.Slice(pool, func(i, j int) bool { return ids.Less(pool[i], pool[j]) })

	primaryPicks := fairness.Select(seed, weighted, 1)
	primary := primaryPicks[0]

	remaining := make([]fairness.Candidate, 0, len(weighted)-1)
	for _, w := range weighted {
		if w.ValidatorID != primary {
			remaining = append(remaining, w)
		}
	}

	shadowSeedEnc := fixedpoint.NewEncoder()
	shadowSeedEnc.PutBytes(seed[:])
	shadowSeedEnc.PutBytes([]byte("shadow"))
	shadowSeed, err := fixedpoint.Digest(shadowSeedEnc)
	if err != nil {
		return nil, err
	}
	shadows := fairness.Select(shadowSeed, remaining, shadowCount)
	sort.Slice(shadows, func(i, j int) bool { return ids.Less(shadows[i], shadows[j]) })

	var zeroPayload [32]byte
	var nodeID [32]byte = primary
	ht, err := hashtimer.Derive(hashtimer.DomainRound, parentHashTimerDigest, zeroPayload, nodeID, roundID, nowUS)
	if err != nil {
		return nil, err
	}

	start := nowUS
	end := start + int64(finalityMS)*1000

	return &RoundState{
		RoundID:       roundID,
		Window:        Window{StartUS: start, EndUS: end},
		Seed:          seed,
		Primary:       primary,
		Shadows:       shadows,
		HashTimer:     ht,
		Status:        AcceptingBlock,
		primaryPubKey: primaryPubKey,
		candidatePool: pool,
		shadowSet:     shadowset.New(shadows),
	}, nil
}

// SubmitBlock applies the round's block-acceptance rules: the proposer
// must be the round's primary, the HashTimer must be signed and verify
// against the round's known primary public key, its timestamp must
// fall within the round window, and only the first accepted proposal
// is kept. Once a block has been accepted, whatever the round's status,
// a resubmission of the same block is rejected as ErrDuplicateProposal
// and a distinct block as ErrDoubleSign.
func (rs *RoundState) SubmitBlock(b Block) error {
	if rs.acceptedBlock == nil && rs.Status != AcceptingBlock {
		return ErrWrongState
	}
	if rs.acceptedBlock != nil {
		if rs.acceptedBlock.ID != b.ID {
			return ErrDoubleSign
		}
		return ErrDuplicateProposal
	}
	if b.ProposerID != rs.Primary {
		return ErrInvalidSignature
	}
	if !b.HashTimer.IsSigned() {
		return ErrUnsignedBlock
	}
	if b.HashTimer.PublicKey == nil || *b.HashTimer.PublicKey != rs.primaryPubKey {
		return ErrInvalidSignature
	}
	if err := b.HashTimer.Verify(); err != nil {
		return ErrInvalidSignature
	}
	if b.HashTimer.TimestampUS < rs.Window.StartUS || b.HashTimer.TimestampUS > rs.Window.EndUS {
		return ErrOutOfWindow
	}

	block := b
	rs.acceptedBlock = &block
	rs.BlockIDs = append(rs.BlockIDs, b.ID)
	rs.Status = ShadowVerifying
	return nil
}

// TimeoutAcceptingBlock aborts the round if no block has been accepted
// by the round's deadline. A bare timeout carries no slashing.
func (rs *RoundState) TimeoutAcceptingBlock(nowUS int64) *Outcome {
	if rs.Status != AcceptingBlock || nowUS < rs.Window.EndUS {
		return nil
	}
	rs.Status = Aborted
	return &Outcome{Status: Aborted, Metrics: rs.incrementAllMetrics()}
}

// Cancel aborts the round externally; this is only meaningful before
// the first block is accepted — once ShadowVerifying is entered it is
// a no-op.
func (rs *RoundState) Cancel() *Outcome {
	if rs.Status != Open && rs.Status != AcceptingBlock {
		return nil
	}
	rs.Status = Aborted
	return &Outcome{Status: Aborted, Metrics: rs.incrementAllMetrics()}
}

// ReportVerification records one shadow's independent re-execution
// result for the accepted block.
func (rs *RoundState) ReportVerification(shadowID ids.ValidatorID, result shadowset.VerificationResult, signature [64]byte) error {
	if rs.Status != ShadowVerifying {
		return ErrWrongState
	}
	rs.shadowSet.Record(shadowset.Report{
		ShadowID:  shadowID,
		Result:    result,
		Signature: signature,
		Present:   true,
	})
	return nil
}

// Finalize attempts the ShadowVerifying → {Finalized, Aborted}
// transition. It succeeds once either all shadows have reported or
// now_us has passed the round's grace deadline; otherwise it returns
// ErrNotReady. Slash and metrics directives are returned for the
// orchestrator to apply — this package never mutates bonding or
// reputation state directly.
func (rs *RoundState) Finalize(nowUS, graceUS int64, slashInvalidBlockBPS uint32) (*Outcome, error) {
	if rs.Status != ShadowVerifying {
		return nil, ErrWrongState
	}
	graceDeadline := rs.Window.EndUS + graceUS
	if !rs.shadowSet.AllReported() && nowUS < graceDeadline {
		return nil, ErrNotReady
	}

	outcome := rs.shadowSet.Resolve(rs.acceptedBlock.StateRoot)

	if !outcome.MajorityMatchesPrimary {
		rs.Status = Aborted
		return &Outcome{
			Status: Aborted,
			Slashes: []SlashDirective{
				{ValidatorID: rs.Primary, Reason: SlashReasonInvalidBlock, BPS: slashInvalidBlockBPS},
			},
			Metrics: rs.incrementAllMetrics(),
		}, nil
	}

	agg := make([]byte, 0, len(outcome.MatchingShadowIDs)*64)
	for _, sid := range outcome.MatchingShadowIDs {
		if sig, ok := rs.shadowSet.Signature(sid); ok {
			agg = append(agg, sig[:]...)
		}
	}

	cert := &RoundCertificate{
		RoundID:     rs.RoundID,
		BlockIDs:    rs.BlockIDs,
		AggSig:      agg,
		ShadowCount: len(outcome.MatchingShadowIDs),
	}

	var slashes []SlashDirective
	for _, sid := range outcome.MismatchingShadowIDs {
		slashes = append(slashes, SlashDirective{ValidatorID: sid, Reason: SlashReasonInvalidBlock, BPS: slashInvalidBlockBPS})
	}

	rs.Status = Finalized
	return &Outcome{
		Status:      Finalized,
		Certificate: cert,
		Slashes:     slashes,
		Metrics:     rs.finalizeMetrics(outcome),
	}, nil
}

// finalizeMetrics resets rounds_since_active for the primary and every
// shadow that actually reported this round (matching or not — they
// reported, so they were active) and increments it for every other
// eligible validator that sat this round out, including any shadow
// that was assigned but never reported (outcome.AbsentShadowIDs).
func (rs *RoundState) finalizeMetrics(outcome shadowset.Outcome) MetricsUpdate {
	participants := map[ids.ValidatorID]struct{}{rs.Primary: {}}
	for _, sid := range outcome.MatchingShadowIDs {
		participants[sid] = struct{}{}
	}
	for _, sid := range outcome.MismatchingShadowIDs {
		participants[sid] = struct{}{}
	}

	var reset, increment []ids.ValidatorID
	for _, v := range rs.candidatePool {
		if _, ok := participants[v]; ok {
			reset = append(reset, v)
		} else {
			increment = append(increment, v)
		}
	}
	return MetricsUpdate{ResetRoundsSinceActive: reset, IncrementRoundsSinceActive: increment}
}

// incrementAllMetrics increments rounds_since_active for the entire
// eligible pool (nobody participated: a timeout or external cancel).
func (rs *RoundState) incrementAllMetrics() MetricsUpdate {
	return MetricsUpdate{IncrementRoundsSinceActive: rs.candidatePool}
}

// AcceptedBlock returns the round's accepted block, if any.
func (rs *RoundState) AcceptedBlock() (Block, bool) {
	if rs.acceptedBlock == nil {
		return Block{}, false
	}
	return *rs.acceptedBlock, true
}

// ShadowStats exposes the round's shadow set for stats inspection.
func (rs *RoundState) ShadowStats() *shadowset.Set {
	return rs.shadowSet
}

// DoubleSignSlash builds the SlashDirective for this round's primary
// after SubmitBlock has returned ErrDoubleSign. bps is the configured
// slash_double_sign_bps.
func (rs *RoundState) DoubleSignSlash(bps uint32) SlashDirective {
	return SlashDirective{ValidatorID: rs.Primary, Reason: SlashReasonDoubleSign, BPS: bps}
}

