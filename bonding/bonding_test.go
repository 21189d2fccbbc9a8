package bonding

import (
	"math/big"
	"testing"

	"github.com/ippan-network/dlc-core/ids"
	"github.com/stretchr/testify/require"
)

func vid(b byte) ids.ValidatorID {
	var v ids.ValidatorID
	v[0] = b
	return v
}

func TestBondActivatesAtMinimum(t *testing.T) {
	l := NewLedger(10)
	v := vid(1)

	b := l.Bond(v, big.NewInt(5_000_000), 1)
	require.False(t, b.Active, "below MIN_BOND")

	b = l.Bond(v, big.NewInt(6_000_000), 1)
	require.True(t, b.Active, "now at/above MIN_BOND")
	require.True(t, l.IsActive(v))
}

func TestSlashIsIdempotentPerRoundValidatorReason(t *testing.T) {
	l := NewLedger(10)
	v := vid(1)
	l.Bond(v, big.NewInt(100_000_000), 1)

	ev, err := l.Slash(5, v, SlashReasonDoubleSign, 5000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50_000_000), ev.SlashedNow)

	_, err = l.Slash(5, v, SlashReasonDoubleSign, 5000)
	require.ErrorIs(t, err, ErrAlreadySlashed)

	// A different reason in the same round is a distinct infraction.
	_, err = l.Slash(5, v, SlashReasonInvalidBlock, 1000)
	require.NoError(t, err)
}

func TestSlashBelowMinBondDeactivates(t *testing.T) {
	l := NewLedger(10)
	v := vid(1)
	l.Bond(v, big.NewInt(10_000_000), 1)
	require.True(t, l.IsActive(v))

	_, err := l.Slash(1, v, SlashReasonDoubleSign, 5000)
	require.NoError(t, err)
	require.False(t, l.IsActive(v))

	eff := l.EffectiveBond(v)
	require.Equal(t, big.NewInt(5_000_000), eff)
}

func TestSlashNeverExceedsAmount(t *testing.T) {
	l := NewLedger(10)
	v := vid(1)
	l.Bond(v, big.NewInt(10_000_000), 1)

	_, err := l.Slash(1, v, SlashReasonDoubleSign, 10000)
	require.NoError(t, err)
	b, ok := l.Get(v)
	require.True(t, ok)
	require.Equal(t, 0, b.SlashedMicro.Cmp(b.AmountMicro))
}

func TestUnbondDeactivatesImmediately(t *testing.T) {
	l := NewLedger(10)
	v := vid(1)
	l.Bond(v, big.NewInt(100_000_000), 1)
	require.True(t, l.IsActive(v))

	require.NoError(t, l.Unbond(v, 5))
	require.False(t, l.IsActive(v))
}

func TestUnbondUnknownValidator(t *testing.T) {
	l := NewLedger(10)
	require.ErrorIs(t, l.Unbond(vid(9), 1), ErrUnknownValidator)
}

func TestActiveValidatorsOrderedAndExcludesInactive(t *testing.T) {
	l := NewLedger(10)
	l.Bond(vid(3), big.NewInt(100_000_000), 1)
	l.Bond(vid(1), big.NewInt(100_000_000), 1)
	l.Bond(vid(2), big.NewInt(1), 1) // below MIN_BOND, stays inactive

	active := l.ActiveValidators()
	require.Equal(t, []ids.ValidatorID{vid(1), vid(3)}, active)
}
