// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package corelog narrows github.com/luxfi/log's Logger down to the
// handful of structured fields the consensus core actually emits
// (round_id, validator_id, status, reason): callers never import zap
// directly, they call the helpers here which build zap.Field values.
package corelog

import (
	"encoding/hex"
	"fmt"

	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// New returns a no-op logger (log.NewNoOpLogger) that discards every
// log line.
func New() log.Logger {
	return log.NewNoOpLogger()
}

// RoundID builds the round_id field shared by every round-lifecycle
// log line.
func RoundID(id uint64) zap.Field {
	return zap.Uint64("round_id", id)
}

// ValidatorID renders a 32-byte validator id as its hex string.
func ValidatorID(key string, id [32]byte) zap.Field {
	return zap.String(key, hex.EncodeToString(id[:]))
}

// Status builds the round status field from a fmt.Stringer-shaped
// status value.
func Status(s fmt.Stringer) zap.Field {
	return zap.Stringer("status", s)
}

// Reason builds a free-form reason field, used for abort/slash log
// lines where the triggering condition is human-meaningful.
func Reason(reason string) zap.Field {
	return zap.String("reason", reason)
}
