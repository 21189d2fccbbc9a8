package core

import (
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/ippan-network/dlc-core/bonding"
	"github.com/ippan-network/dlc-core/config"
	"github.com/ippan-network/dlc-core/emission"
	"github.com/ippan-network/dlc-core/fairness"
	"github.com/ippan-network/dlc-core/gbdt"
	"github.com/ippan-network/dlc-core/hashtimer"
	"github.com/ippan-network/dlc-core/ids"
	"github.com/ippan-network/dlc-core/roundstate"
	"github.com/ippan-network/dlc-core/shadowset"
	"github.com/stretchr/testify/require"
)

func vidC(b byte) ids.ValidatorID {
	var v ids.ValidatorID
	v[0] = b
	return v
}

type fixedClock struct{ us int64 }

func (c *fixedClock) NowUS() int64 { return c.us }

type staticModel struct{ m *gbdt.Model }

func (s staticModel) LoadModel() (*gbdt.Model, error) { return s.m, nil }

type keyMap map[ids.ValidatorID][32]byte

func (k keyMap) PublicKey(v ids.ValidatorID) ([32]byte, bool) {
	pk, ok := k[v]
	return pk, ok
}

type noopSigVerifier struct{}

func (noopSigVerifier) VerifySignature(ids.ValidatorID, []byte, [64]byte) bool { return true }

type flatTelemetry map[ids.ValidatorID]fairness.Metrics

func (f flatTelemetry) GetTelemetry(v ids.ValidatorID) fairness.Metrics { return f[v] }

// passthroughModel always scores zero, keeping every candidate's
// reputation at the minimum (0 bps) so tests that want everyone
// eligible set MinReputationBPS to 0.
func passthroughModel(t *testing.T) *gbdt.Model {
	t.Helper()
	m, err := gbdt.Load([]byte(`{
		"scale": "1000000",
		"bias": "0",
		"post_scale": "1000000",
		"feature_arity": 7,
		"trees": [{"nodes": [{"leaf": "0"}]}]
	}`))
	require.NoError(t, err)
	return m
}

func newTestCore(t *testing.T, now int64) (*Core, []ids.ValidatorID, map[ids.ValidatorID]ed25519.PrivateKey) {
	t.Helper()
	cfg := config.Local()
	cfg.MinReputationBPS = 0

	bonds := bonding.NewLedger(10)
	keys := keyMap{}
	privs := map[ids.ValidatorID]ed25519.PrivateKey{}
	var validatorIDs []ids.ValidatorID
	for i := byte(1); i <= 5; i++ {
		v := vidC(i)
		bonds.Bond(v, big.NewInt(100_000_000), 0)
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		var pubArr [32]byte
		copy(pubArr[:], pub)
		keys[v] = pubArr
		privs[v] = priv
		validatorIDs = append(validatorIDs, v)
	}

	em := emission.NewLedger(big.NewInt(0))
	c := New(cfg, &fixedClock{us: now}, staticModel{m: passthroughModel(t)}, keys, noopSigVerifier{}, flatTelemetry{}, bonds, em, Events{})
	return c, validatorIDs, privs
}

func TestOpenRoundPicksPrimaryWithRegisteredKey(t *testing.T) {
	c, _, _ := newTestCore(t, 1_000_000)
	var parentDigest [32]byte
	rs, err := c.OpenRound(0, parentDigest)
	require.NoError(t, err)
	require.Equal(t, roundstate.AcceptingBlock, rs.Status)

	cur, ok := c.CurrentRound()
	require.True(t, ok)
	require.Equal(t, rs.RoundID, cur.RoundID)
}

func TestOpenRoundFailsWithNoBondedValidators(t *testing.T) {
	cfg := config.Local()
	bonds := bonding.NewLedger(10)
	em := emission.NewLedger(big.NewInt(0))
	c := New(cfg, &fixedClock{us: 0}, staticModel{m: passthroughModel(t)}, keyMap{}, noopSigVerifier{}, flatTelemetry{}, bonds, em, Events{})

	var parentDigest [32]byte
	_, err := c.OpenRound(0, parentDigest)
	require.ErrorIs(t, err, roundstate.ErrNoCandidates)
}

func TestFullRoundLifecycleFinalizesAndDistributesEmission(t *testing.T) {
	c, _, privs := newTestCore(t, 1_000_000)
	var parentDigest [32]byte
	rs, err := c.OpenRound(0, parentDigest)
	require.NoError(t, err)

	priv := privs[rs.Primary]
	ht, err := hashtimer.Derive(hashtimer.DomainBlock, rs.HashTimer.Entropy, [32]byte{}, [32]byte(rs.Primary), 1, rs.Window.StartUS+10)
	require.NoError(t, err)
	ht = ht.Sign(priv)
	block := roundstate.Block{ID: [32]byte{9}, ProposerID: rs.Primary, HashTimer: ht, StateRoot: [32]byte{7}}

	require.NoError(t, c.SubmitBlock(block))

	for _, sid := range rs.Shadows {
		require.NoError(t, c.ReportVerification(sid, shadowset.VerificationResult{OK: true, StateRoot: [32]byte{7}}, [64]byte{1}))
	}

	outcome, dist, err := c.Finalize(big.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, roundstate.Finalized, outcome.Status)
	require.NotNil(t, dist)
	require.Empty(t, outcome.Slashes)

	sum := new(big.Int)
	for _, s := range dist.Shares {
		sum.Add(sum, s.AmountMicro)
	}
	sum.Add(sum, dist.ExcessFeesMicro)
	sum.Add(sum, dist.RemainderMicro)
	want := new(big.Int).Add(dist.BaseRewardMicro, dist.CollectedFeesMicro)
	require.Equal(t, 0, sum.Cmp(want))
}

func TestSubmitBlockDoubleSignSlashesPrimary(t *testing.T) {
	c, _, privs := newTestCore(t, 1_000_000)
	var parentDigest [32]byte
	rs, err := c.OpenRound(0, parentDigest)
	require.NoError(t, err)

	priv := privs[rs.Primary]
	ht1, err := hashtimer.Derive(hashtimer.DomainBlock, rs.HashTimer.Entropy, [32]byte{}, [32]byte(rs.Primary), 1, rs.Window.StartUS+10)
	require.NoError(t, err)
	ht1 = ht1.Sign(priv)
	block1 := roundstate.Block{ID: [32]byte{1}, ProposerID: rs.Primary, HashTimer: ht1, StateRoot: [32]byte{1}}
	require.NoError(t, c.SubmitBlock(block1))

	ht2, err := hashtimer.Derive(hashtimer.DomainBlock, rs.HashTimer.Entropy, [32]byte{}, [32]byte(rs.Primary), 2, rs.Window.StartUS+20)
	require.NoError(t, err)
	ht2 = ht2.Sign(priv)
	block2 := roundstate.Block{ID: [32]byte{2}, ProposerID: rs.Primary, HashTimer: ht2, StateRoot: [32]byte{2}}
	err = c.SubmitBlock(block2)
	require.ErrorIs(t, err, roundstate.ErrDoubleSign)

	bond, ok := c.bonds.Get(rs.Primary)
	require.True(t, ok)
	require.True(t, bond.SlashedMicro.Sign() > 0)
}
