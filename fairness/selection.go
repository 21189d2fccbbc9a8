package fairness

import (
	"encoding/binary"
	"math/big"
	"sort"

	"github.com/ippan-network/dlc-core/fixedpoint"
	"github.com/ippan-network/dlc-core/ids"
)

// Candidate is one entry of the weighted selection input: a validator
// and its non-negative selection weight.
type Candidate struct {
	ValidatorID ids.ValidatorID
	Weight      int64
}

// Select runs a deterministic, without-replacement weighted selection
// algorithm: for i in 0..k, derive
// draw_i = BLAKE3(seed || i_le_u32) interpreted as u128, pick = draw_i
// mod total, walk candidates in canonical validator_id order
// accumulating weight, and pick the first whose cumulative sum exceeds
// pick. The picked validator's weight is then zeroed for subsequent
// draws. If total == 0 up front, candidates are returned in ascending
// validator_id order, first k; if the remaining total reaches zero
// mid-walk, the unpicked candidates fill the rest in ascending
// validator_id order. The result is always k distinct
// validator ids (or fewer if there are fewer than k candidates).
func Select(seed [32]byte, candidates []Candidate, k int) []ids.ValidatorID {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.Slice(ordered, func(i, j int) bool {
		return ids.Less(ordered[i].ValidatorID, ordered[j].ValidatorID)
	})

	if k > len(ordered) {
		k = len(ordered)
	}
	if k <= 0 {
		return nil
	}

	total := new(big.Int)
	for _, c := range ordered {
		total = fixedpoint.SaturatingAddU128(total, big.NewInt(c.Weight))
	}

	if total.Sign() == 0 {
		out := make([]ids.ValidatorID, 0, k)
		for i := 0; i < k; i++ {
			out = append(out, ordered[i].ValidatorID)
		}
		return out
	}

	weights := make([]int64, len(ordered))
	for i, c := range ordered {
		weights[i] = c.Weight
	}
	picked := make([]bool, len(ordered))

	out := make([]ids.ValidatorID, 0, k)
	for i := 0; i < k; i++ {
		if total.Sign() == 0 {
			// Every remaining weight is zero: fill the rest in ascending
			// validator_id order, as the up-front zero-total case does.
			for j := range ordered {
				if len(out) < k && !picked[j] {
					out = append(out, ordered[j].ValidatorID)
				}
			}
			break
		}
		draw := drawU128(seed, uint32(i))
		pick := new(big.Int).Mod(draw, total)

		cumulative := new(big.Int)
		chosen := -1
		for j, w := range weights {
			cumulative = fixedpoint.SaturatingAddU128(cumulative, big.NewInt(w))
			if cumulative.Cmp(pick) > 0 {
				chosen = j
				break
			}
		}
		if chosen == -1 {
			// Defensive fallback: with total > 0 and pick < total the
			// walk always finds a winner, so this is not reached.
			chosen = len(weights) - 1
		}

		picked[chosen] = true
		out = append(out, ordered[chosen].ValidatorID)
		total = fixedpoint.SaturatingSubU128(total, big.NewInt(weights[chosen]))
		weights[chosen] = 0
	}
	return out
}

// drawU128 computes BLAKE3(seed || i_le_u32) and returns its low 128
// bits as an unsigned integer, reading the 32-byte digest as a
// big-endian number (so the draw is the digest's last 16 bytes).
func drawU128(seed [32]byte, i uint32) *big.Int {
	var iBytes [4]byte
	binary.LittleEndian.PutUint32(iBytes[:], i)
	buf := make([]byte, 0, 36)
	buf = append(buf, seed[:]...)
	buf = append(buf, iBytes[:]...)
	digest := fixedpoint.DigestBytes(buf)
	return new(big.Int).SetBytes(digest[16:])
}
