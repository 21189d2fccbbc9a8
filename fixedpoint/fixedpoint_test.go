package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDivI64Truncation(t *testing.T) {
	got, err := MulDivI64(4_500_000_000, 1_000_000, 1_000_000)
	require.NoError(t, err)
	require.Equal(t, int64(4_500_000_000), got)

	got, err = MulDivI64(7, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), got, "truncation toward zero")

	got, err = MulDivI64(-7, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(-3), got, "truncation toward zero for negatives")
}

func TestMulDivI64ZeroDivisor(t *testing.T) {
	_, err := MulDivI64(1, 1, 0)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestSaturatingAddI64(t *testing.T) {
	require.Equal(t, maxInt64, SaturatingAddI64(maxInt64, 1))
	require.Equal(t, minInt64, SaturatingAddI64(minInt64, -1))
	require.Equal(t, int64(3), SaturatingAddI64(1, 2))
}

func TestSaturatingSubI64(t *testing.T) {
	require.Equal(t, int64(-1), SaturatingSubI64(1, 2))
	require.Equal(t, maxInt64, SaturatingSubI64(maxInt64, minInt64))
}

func TestApplyBPS(t *testing.T) {
	got, err := ApplyBPS(1_000_000, 5000)
	require.NoError(t, err)
	require.Equal(t, int64(500_000), got)
}

func TestApplyBPSU128(t *testing.T) {
	got, err := ApplyBPSU128(big.NewInt(200_000_000), 2500)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50_000_000), got)
}

func TestILog2Floor(t *testing.T) {
	require.Equal(t, int64(0), ILog2Floor(0))
	require.Equal(t, int64(0), ILog2Floor(1))
	require.Equal(t, int64(1), ILog2Floor(2))
	require.Equal(t, int64(1), ILog2Floor(3))
	require.Equal(t, int64(2), ILog2Floor(4))
	require.Equal(t, int64(10), ILog2Floor(1<<10))
}

func TestSaturatingU128(t *testing.T) {
	sum := SaturatingAddU128(maxU128, big.NewInt(1))
	require.Equal(t, maxU128, sum)

	diff := SaturatingSubU128(big.NewInt(1), big.NewInt(2))
	require.Equal(t, big.NewInt(0), diff)
}

func TestEncoderDeterministic(t *testing.T) {
	build := func() []byte {
		enc := NewEncoder()
		enc.PutU64(42).PutI64(-7).PutBytes([]byte("hello"))
		b, err := enc.Bytes()
		require.NoError(t, err)
		return b
	}
	a := build()
	b := build()
	require.Equal(t, a, b)
}

func TestEncoderStringMapSortsAndRejectsDuplicates(t *testing.T) {
	enc := NewEncoder()
	enc.PutStringMap([]StringMapEntry{
		{Key: "b", Value: []byte{1}},
		{Key: "a", Value: []byte{2}},
	})
	b1, err := enc.Bytes()
	require.NoError(t, err)

	enc2 := NewEncoder()
	enc2.PutStringMap([]StringMapEntry{
		{Key: "a", Value: []byte{2}},
		{Key: "b", Value: []byte{1}},
	})
	b2, err := enc2.Bytes()
	require.NoError(t, err)
	require.Equal(t, b1, b2, "map ordering is canonical regardless of input order")

	enc3 := NewEncoder()
	enc3.PutStringMap([]StringMapEntry{
		{Key: "a", Value: []byte{1}},
		{Key: "a", Value: []byte{2}},
	})
	_, err = enc3.Bytes()
	require.ErrorIs(t, err, ErrEncodingFailed)
}

func TestDigestIsDeterministicAcrossCalls(t *testing.T) {
	mk := func() [32]byte {
		enc := NewEncoder()
		enc.PutU64(1).PutBytes([]byte("round-1"))
		d, err := Digest(enc)
		require.NoError(t, err)
		return d
	}
	require.Equal(t, mk(), mk())
}

func TestDigestFailsRatherThanDefaulting(t *testing.T) {
	enc := NewEncoder()
	enc.PutStringMap([]StringMapEntry{{Key: "x"}, {Key: "x"}})
	_, err := Digest(enc)
	require.ErrorIs(t, err, ErrEncodingFailed)
}
