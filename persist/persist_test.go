package persist

import (
	"testing"

	"github.com/ippan-network/dlc-core/ids"
	"github.com/stretchr/testify/require"
)

func vidP(b byte) ids.ValidatorID {
	var v ids.ValidatorID
	v[0] = b
	return v
}

func TestRoundFinalizationRecordCanonicalBytesDeterministic(t *testing.T) {
	r := RoundFinalizationRecord{
		Round:        RoundWindow{RoundID: 7, StartUS: 1000, EndUS: 2000},
		Cert:         Certificate{RoundID: 7, BlockIDs: [][32]byte{{1}, {2}}, AggSig: []byte("sig")},
		OrderedTxIDs: [][32]byte{{9}},
		ForkDropIDs:  [][32]byte{{8}},
		StateRoot:    [32]byte{3},
	}
	a, err := r.CanonicalBytes()
	require.NoError(t, err)
	b, err := r.CanonicalBytes()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestRoundFinalizationRecordDigestChangesWithContent(t *testing.T) {
	base := RoundFinalizationRecord{Round: RoundWindow{RoundID: 1, StartUS: 0, EndUS: 100}}
	d1, err := base.Digest()
	require.NoError(t, err)

	base.Round.RoundID = 2
	d2, err := base.Digest()
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
}

func TestEmissionSnapshotCanonicalBytes(t *testing.T) {
	s := EmissionSnapshot{SupplyMicro: []byte{0x01, 0x02}, EmissionProgressBPS: 4200}
	b, err := s.CanonicalBytes()
	require.NoError(t, err)
	require.NotEmpty(t, b)
}

func TestBondSnapshotCanonicalBytesOrderIndependent(t *testing.T) {
	s1 := BondSnapshot{Entries: []BondEntry{
		{ValidatorID: vidP(2), AmountMicro: []byte{1}, Active: true},
		{ValidatorID: vidP(1), AmountMicro: []byte{2}, Active: false},
	}}
	s2 := BondSnapshot{Entries: []BondEntry{
		{ValidatorID: vidP(1), AmountMicro: []byte{2}, Active: false},
		{ValidatorID: vidP(2), AmountMicro: []byte{1}, Active: true},
	}}

	b1, err := s1.CanonicalBytes()
	require.NoError(t, err)
	b2, err := s2.CanonicalBytes()
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}
