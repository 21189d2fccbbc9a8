// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint provides the scaled-integer arithmetic primitives
// shared by every deterministic hot-path component of the DLC core:
// saturating add/sub/mul, wide-intermediate mul-div, basis-point
// helpers, the canonical byte encoding hashed for HashTimer, round-seed
// and persisted-record digests, and the BLAKE3 digest helpers. Nothing
// in this package uses floating point.
package fixedpoint

import (
	"errors"
	"math/big"
	"math/bits"
)

// ErrArithmeticOverflow is returned by the mul-div helpers (and the BPS
// helpers built on them) when the divisor is zero, an unsigned input is
// negative, or the result cannot be represented without loss.
var ErrArithmeticOverflow = errors.New("fixedpoint: arithmetic overflow")

// BPSDenominator is the basis-point denominator: 10000 == 100%.
const BPSDenominator uint32 = 10000

// SaturatingAddI64 returns a+b, clamped to [math.MinInt64, math.MaxInt64].
func SaturatingAddI64(a, b int64) int64 {
	sum := a + b
	// Overflow iff operands share a sign and the result's sign differs.
	if (a > 0 && b > 0 && sum < 0) {
		return maxInt64
	}
	if (a < 0 && b < 0 && sum > 0) {
		return minInt64
	}
	return sum
}

// SaturatingSubI64 returns a-b, clamped to the int64 range.
func SaturatingSubI64(a, b int64) int64 {
	if b == minInt64 {
		// -b overflows; a - minInt64 == a + maxInt64 + 1, always saturates
		// to maxInt64 for any a >= 0, and for negative a is still large.
		if a >= 0 {
			return maxInt64
		}
		return SaturatingAddI64(a, maxInt64) + 1
	}
	return SaturatingAddI64(a, -b)
}

const (
	maxInt64 = int64(1<<63 - 1)
	minInt64 = -int64(1 << 63)
)

// MulI64Overflows reports whether a*b cannot be represented as an int64.
func MulI64Overflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	if (a == -1 && b == minInt64) || (b == -1 && a == minInt64) {
		return true
	}
	result := a * b
	return result/b != a
}

// SaturatingMulI64 returns a*b clamped to the int64 range.
func SaturatingMulI64(a, b int64) int64 {
	if !MulI64Overflows(a, b) {
		return a * b
	}
	neg := (a < 0) != (b < 0)
	if neg {
		return minInt64
	}
	return maxInt64
}

// MulDivI64 computes floor_toward_zero(a*b/d) using a 128-bit wide
// intermediate so a*b never overflows before the division. d must be
// non-zero. Returns ErrArithmeticOverflow if the final result does not
// fit in an int64.
func MulDivI64(a, b, d int64) (int64, error) {
	if d == 0 {
		return 0, ErrArithmeticOverflow
	}
	bigA := big.NewInt(a)
	bigB := big.NewInt(b)
	bigD := big.NewInt(d)

	prod := new(big.Int).Mul(bigA, bigB)
	quot := new(big.Int).Quo(prod, bigD) // Quo truncates toward zero.

	if !quot.IsInt64() {
		return 0, ErrArithmeticOverflow
	}
	return quot.Int64(), nil
}

// MulDivU128 computes floor(a*b/d) for unsigned 128-bit token-amount
// style arithmetic, using math/big as the wide intermediate. a, b, d
// are big.Int (non-negative) micro-unit amounts; d must be non-zero.
func MulDivU128(a, b, d *big.Int) (*big.Int, error) {
	if d.Sign() == 0 {
		return nil, ErrArithmeticOverflow
	}
	if a.Sign() < 0 || b.Sign() < 0 || d.Sign() < 0 {
		return nil, ErrArithmeticOverflow
	}
	prod := new(big.Int).Mul(a, b)
	return new(big.Int).Quo(prod, d), nil
}

// SaturatingAddU128 returns a+b saturated at the 128-bit unsigned max.
func SaturatingAddU128(a, b *big.Int) *big.Int {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(maxU128) > 0 {
		return new(big.Int).Set(maxU128)
	}
	return sum
}

// SaturatingSubU128 returns a-b, clamped at zero (amounts never go
// negative).
func SaturatingSubU128(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(a, b)
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}

var maxU128 = func() *big.Int {
	one := big.NewInt(1)
	shifted := new(big.Int).Lsh(one, 128)
	return shifted.Sub(shifted, one)
}()

// ApplyBPS computes x*bps/10000, truncated toward zero. x is an int64
// amount (e.g. a reward in micro-units, within int64 range); bps is a
// basis-point fraction in [0, 10000] for a cap/share but the function
// does not clamp bps itself, matching the source's "apply_bps" helper.
func ApplyBPS(x int64, bps uint32) (int64, error) {
	return MulDivI64(x, int64(bps), int64(BPSDenominator))
}

// ApplyBPSU128 is the token-amount (u128) variant of ApplyBPS.
func ApplyBPSU128(x *big.Int, bps uint32) (*big.Int, error) {
	return MulDivU128(x, big.NewInt(int64(bps)), big.NewInt(int64(BPSDenominator)))
}

// ILog2Floor returns floor(log2(x)) for x >= 1, and 0 for x == 0. The
// stake_log and stake_score features (§4.D, §4.H) call this as
// ILog2Floor(stake_micro + 1).
func ILog2Floor(x uint64) int64 {
	if x == 0 {
		return 0
	}
	return int64(bits.Len64(x) - 1)
}

// Clamp returns x clamped to [lo, hi].
func Clamp(x, lo, hi int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
