// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashtimer implements the HashTimer temporal anchor: a
// microsecond-precision, optionally signed cryptographic time marker
// used for deterministic ordering and round boundaries. A single type
// carries optional signature fields so the same HashTimer can be used
// signed or unsigned depending on context.
package hashtimer

import (
	"bytes"
	"crypto/ed25519"
	"errors"

	"github.com/ippan-network/dlc-core/fixedpoint"
)

var (
	// ErrInvalidSignature is returned by Verify when a signed
	// HashTimer's Ed25519 signature does not verify.
	ErrInvalidSignature = errors.New("hashtimer: invalid signature")
	// ErrTimeSkew is returned when a derived timestamp differs from its
	// parent beyond the configured skew bound.
	ErrTimeSkew = errors.New("hashtimer: time skew exceeds bound")
	// ErrEncodingError wraps fixedpoint.ErrEncodingFailed for callers
	// that only import this package.
	ErrEncodingError = errors.New("hashtimer: encoding error")
)

// DomainTag distinguishes the derivation context (round seed, block
// proposal, per-tx ordering, ...) so the same inputs never collide
// across unrelated uses of derive().
type DomainTag uint8

const (
	DomainRound DomainTag = iota + 1
	DomainBlock
	DomainTransaction
)

// HashTimer is the (timestamp_us, entropy, optional signature) temporal
// anchor. Once constructed it is immutable.
type HashTimer struct {
	TimestampUS int64
	Entropy     [32]byte
	Signature   *[64]byte // nil if unsigned
	PublicKey   *[32]byte // nil if unsigned
}

// Derive builds an unsigned HashTimer: entropy = BLAKE3 of the
// canonical encoding (tagged, big-endian integers, length-prefixed
// bytes) of domain_tag, parent_digest, payload_commitment, node_id,
// nonce and time_us, in that order.
func Derive(domain DomainTag, parentDigest [32]byte, payloadCommitment [32]byte, nodeID [32]byte, nonce uint64, timeUS int64) (HashTimer, error) {
	enc := fixedpoint.NewEncoder()
	enc.PutU8(uint8(domain))
	enc.PutBytes(parentDigest[:])
	enc.PutBytes(payloadCommitment[:])
	enc.PutBytes(nodeID[:])
	enc.PutU64(nonce)
	enc.PutI64(timeUS)
	entropy, err := fixedpoint.Digest(enc)
	if err != nil {
		return HashTimer{}, errors.Join(ErrEncodingError, err)
	}
	return HashTimer{TimestampUS: timeUS, Entropy: entropy}, nil
}

// Sign attaches an Ed25519 signature over (timestamp_us, entropy) to an
// unsigned HashTimer and returns a new, signed HashTimer. The receiver
// is left unmodified.
func (h HashTimer) Sign(priv ed25519.PrivateKey) HashTimer {
	msg := signedMessage(h.TimestampUS, h.Entropy)
	sig := ed25519.Sign(priv, msg)

	out := h
	var sigArr [64]byte
	copy(sigArr[:], sig)
	out.Signature = &sigArr

	pub := priv.Public().(ed25519.PublicKey)
	var pubArr [32]byte
	copy(pubArr[:], pub)
	out.PublicKey = &pubArr
	return out
}

func signedMessage(timestampUS int64, entropy [32]byte) []byte {
	var buf bytes.Buffer
	var tb [8]byte
	// Big-endian to match the canonical encoding convention used
	// elsewhere; the exact byte layout only has to be self-consistent
	// between Sign and Verify.
	for i := 0; i < 8; i++ {
		tb[7-i] = byte(timestampUS >> (8 * i))
	}
	buf.Write(tb[:])
	buf.Write(entropy[:])
	return buf.Bytes()
}

// Verify succeeds trivially for an unsigned HashTimer; for a signed one
// it verifies the Ed25519 signature against the embedded public key.
func (h HashTimer) Verify() error {
	if h.Signature == nil && h.PublicKey == nil {
		return nil
	}
	if h.Signature == nil || h.PublicKey == nil {
		return ErrInvalidSignature
	}
	msg := signedMessage(h.TimestampUS, h.Entropy)
	if !ed25519.Verify(h.PublicKey[:], msg, h.Signature[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// IsSigned reports whether this HashTimer carries a signature.
func (h HashTimer) IsSigned() bool {
	return h.Signature != nil
}

// Digest returns BLAKE3(canonical_encode(self)), used as ordering key
// and selection seed. The signature fields are included when present.
func (h HashTimer) Digest() ([32]byte, error) {
	enc := fixedpoint.NewEncoder()
	enc.PutI64(h.TimestampUS)
	enc.PutBytes(h.Entropy[:])
	if h.Signature != nil {
		enc.PutU8(1)
		enc.PutBytes(h.Signature[:])
	} else {
		enc.PutU8(0)
	}
	if h.PublicKey != nil {
		enc.PutU8(1)
		enc.PutBytes(h.PublicKey[:])
	} else {
		enc.PutU8(0)
	}
	d, err := fixedpoint.Digest(enc)
	if err != nil {
		return [32]byte{}, errors.Join(ErrEncodingError, err)
	}
	return d, nil
}

// CheckSkew returns ErrTimeSkew if this HashTimer's timestamp differs
// from the parent's by more than maxSkewUS microseconds in either
// direction.
func (h HashTimer) CheckSkew(parentTimestampUS int64, maxSkewUS int64) error {
	delta := h.TimestampUS - parentTimestampUS
	if delta < 0 {
		delta = -delta
	}
	if delta > maxSkewUS {
		return ErrTimeSkew
	}
	return nil
}

// CompareForOrdering implements a strict total order: by (timestamp_us,
// digest()) lexicographically. It returns -1, 0, or 1 per the usual
// comparator convention. A non-nil error means a or b's digest could
// not be computed (canonical encoding failure); the caller must treat
// this as a fatal, non-defaulted error.
func CompareForOrdering(a, b HashTimer) (int, error) {
	if a.TimestampUS != b.TimestampUS {
		if a.TimestampUS < b.TimestampUS {
			return -1, nil
		}
		return 1, nil
	}
	da, err := a.Digest()
	if err != nil {
		return 0, err
	}
	db, err := b.Digest()
	if err != nil {
		return 0, err
	}
	return bytes.Compare(da[:], db[:]), nil
}
