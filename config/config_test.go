package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestPresetsAreValid(t *testing.T) {
	require.NoError(t, Mainnet().Validate())
	require.NoError(t, Testnet().Validate())
	require.NoError(t, Local().Validate())
}

func TestValidateRejectsFinalityOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.FinalityMS = 50
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.FinalityMS = 300
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsShadowCountOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.ShadowCount = 2
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ShadowCount = 6
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBPSAboveTenThousand(t *testing.T) {
	cfg := Default()
	cfg.FeeCapBPS = 10001
	require.Error(t, cfg.Validate())
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shadow_count: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint8(5), cfg.ShadowCount)
	require.Equal(t, Default().FinalityMS, cfg.FinalityMS)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dlc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("finality_ms: 1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestMinBondMicroBigMatchesField(t *testing.T) {
	cfg := Default()
	require.Equal(t, uint64(cfg.MinBondMicroBig().Uint64()), cfg.MinBondMicro)
}
