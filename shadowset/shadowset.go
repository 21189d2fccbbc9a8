// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shadowset implements the shadow verifier set: it records the
// reports shadows deliver for a round, detects inconsistency against
// the primary's state root, and keeps per-validator (verifications,
// inconsistencies) counters exposed through GetStats. Re-verification
// itself happens outside this package; the Verifier interface names
// that capability but this package defines no implementations of it.
package shadowset

import (
	"sort"
	"sync"

	"github.com/ippan-network/dlc-core/ids"
)

// VerificationResult is the outcome a shadow reports for a round's
// candidate block.
type VerificationResult struct {
	OK        bool
	StateRoot [32]byte
}

// Report pairs a shadow's result with its identity and signature, as
// delivered via the inbound report_verification interface.
type Report struct {
	ShadowID  ids.ValidatorID
	Result    VerificationResult
	Signature [64]byte
	Present   bool // false for a missing/timed-out report
}

// Verifier is the capability every round participant exposes: verify a
// block and return a VerificationResult. This package defines no
// implementations of it and does not call it.
type Verifier interface {
	Verify(payloadCommitment [32]byte) (VerificationResult, error)
}

// Stats are the per-validator (verifications, inconsistencies)
// counters that Resolve updates.
type Stats struct {
	Verifications   uint64
	Inconsistencies uint64
}

// Set tracks reports for the current round and stats for its shadows.
// roundstate creates a new Set for each round it opens; Reset clears
// only the per-round report buffer and keeps the stats.
type Set struct {
	mu       sync.Mutex
	reports  map[ids.ValidatorID]Report
	rolling  map[ids.ValidatorID]*Stats
	shadowIDs []ids.ValidatorID
}

// New creates a Set for the given ordered shadow set of a round.
func New(shadowIDs []ids.ValidatorID) *Set {
	ordered := make([]ids.ValidatorID, len(shadowIDs))
	copy(ordered, shadowIDs)
	sort.Slice(ordered, func(i, j int) bool { return ids.Less(ordered[i], ordered[j]) })
	return &Set{
		reports:   make(map[ids.ValidatorID]Report, len(ordered)),
		rolling:   make(map[ids.ValidatorID]*Stats),
		shadowIDs: ordered,
	}
}

// Record stores a shadow's report for the current round. Reports
// arriving after the grace deadline are simply never recorded by the
// caller; Record itself does not know about time.
func (s *Set) Record(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ShadowID] = r
}

// Outcome is the canonical-order merge of all reports: inconsistency if
// any two reports disagree on state_root or ok; if the primary's own
// state_root matches at least ceil(|shadows|/2)+1 reports, a
// certificate is assembled from those matching reports and
// mismatching shadows are penalized; otherwise the round aborts and
// the primary is penalized.
type Outcome struct {
	MajorityMatchesPrimary bool
	MatchingShadowIDs      []ids.ValidatorID // in canonical order
	MismatchingShadowIDs   []ids.ValidatorID // in canonical order
	AbsentShadowIDs        []ids.ValidatorID // in canonical order
}

// Resolve merges recorded reports (processed in ascending validator_id
// order regardless of arrival order) against the primary's own state
// root and updates rolling stats. A missing report counts as absent,
// never as matching.
func (s *Set) Resolve(primaryStateRoot [32]byte) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Outcome
	required := (len(s.shadowIDs)+1)/2 + 1

	matches := 0
	for _, sid := range s.shadowIDs {
		r, present := s.reports[sid]
		stats := s.statLocked(sid)
		if !present || !r.Present {
			out.AbsentShadowIDs = append(out.AbsentShadowIDs, sid)
			continue
		}
		stats.Verifications++
		if r.Result.OK && r.Result.StateRoot == primaryStateRoot {
			matches++
			out.MatchingShadowIDs = append(out.MatchingShadowIDs, sid)
		} else {
			stats.Inconsistencies++
			out.MismatchingShadowIDs = append(out.MismatchingShadowIDs, sid)
		}
	}

	out.MajorityMatchesPrimary = matches >= required
	return out
}

// Signature returns the recorded report's signature for shadowID, if
// any was recorded this round.
func (s *Set) Signature(shadowID ids.ValidatorID) ([64]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[shadowID]
	if !ok || !r.Present {
		return [64]byte{}, false
	}
	return r.Signature, true
}

// AllReported reports whether every shadow in this round's set has a
// recorded report, letting the caller finalize early without waiting
// for the grace deadline.
func (s *Set) AllReported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sid := range s.shadowIDs {
		r, ok := s.reports[sid]
		if !ok || !r.Present {
			return false
		}
	}
	return true
}

func (s *Set) statLocked(id ids.ValidatorID) *Stats {
	st, ok := s.rolling[id]
	if !ok {
		st = &Stats{}
		s.rolling[id] = st
	}
	return st
}

// GetStats exposes the ordered mapping validator_id -> (verifications,
// inconsistencies) with deterministic iteration.
func (s *Set) GetStats() []struct {
	ValidatorID ids.ValidatorID
	Stats       Stats
} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]ids.ValidatorID, 0, len(s.rolling))
	for id := range s.rolling {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ids.Less(ordered[i], ordered[j]) })

	out := make([]struct {
		ValidatorID ids.ValidatorID
		Stats       Stats
	}, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, struct {
			ValidatorID ids.ValidatorID
			Stats       Stats
		}{ValidatorID: id, Stats: *s.rolling[id]})
	}
	return out
}

// Reset clears the per-round report buffer (rolling stats persist
// across rounds).
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = make(map[ids.ValidatorID]Report, len(s.shadowIDs))
}
