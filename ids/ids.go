// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids defines the fixed-size content and validator identifiers
// shared across the DLC core. Every identifier — validator_id,
// block_id, model_id — is exactly 32 bytes, matching the BLAKE3
// digest/entropy width used throughout (HashTimer entropy derivation
// hashes the validator/node id in unchanged), so a plain fixed-array
// identifier with a hex String() is all this package needs.
package ids

import "encoding/hex"

// idLen is the width of every identifier in this module.
const idLen = 32

// ID is a generic 32-byte content identifier (block ids, model ids,
// digests).
type ID [idLen]byte

// ValidatorID identifies a validator/node. It is distinct from ID only
// by name, to keep call sites self-documenting.
type ValidatorID [idLen]byte

// Empty is the zero-valued ID, used as a genesis parent reference.
var Empty ID

func (id ID) String() string          { return hex.EncodeToString(id[:]) }
func (id ID) Bytes() []byte           { return id[:] }
func (v ValidatorID) String() string  { return hex.EncodeToString(v[:]) }
func (v ValidatorID) Bytes() []byte   { return v[:] }
func (v ValidatorID) AsID() ID        { return ID(v) }
func (id ID) AsValidatorID() ValidatorID { return ValidatorID(id) }

// Compare returns -1, 0, or 1 comparing a and b lexicographically,
// giving the module's canonical validator ordering.
func Compare(a, b ValidatorID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a sorts before b under Compare.
func Less(a, b ValidatorID) bool { return Compare(a, b) < 0 }
