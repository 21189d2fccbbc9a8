// Package config defines the consensus core's configuration surface:
// round timing, bonding and reputation thresholds, slashing
// percentages, and the supply cap. It provides named presets
// (Mainnet/Testnet/Local) plus YAML loading and bounds validation.
package config

import (
	"fmt"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of consensus configuration options.
type Config struct {
	FinalityMS           uint32 `yaml:"finality_ms"`
	ShadowCount          uint8  `yaml:"shadow_count"`
	MinBondMicro         uint64 `yaml:"min_bond_micro"`
	MinReputationBPS     uint16 `yaml:"min_reputation_bps"`
	FeeCapBPS            uint32 `yaml:"fee_cap_bps"`
	SlashDoubleSignBPS   uint32 `yaml:"slash_double_sign_bps"`
	SlashInvalidBlockBPS uint32 `yaml:"slash_invalid_block_bps"`
	GraceUS              uint32 `yaml:"grace_us"`
	MaxSupplyMicro       uint64 `yaml:"max_supply_micro"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		FinalityMS:           250,
		ShadowCount:          3,
		MinBondMicro:         10 * 1_000_000,
		MinReputationBPS:     5000,
		FeeCapBPS:            5000,
		SlashDoubleSignBPS:   5000,
		SlashInvalidBlockBPS: 1000,
		GraceUS:              50_000,
		MaxSupplyMicro:       21_000_000_000_000_000,
	}
}

// Mainnet returns the production configuration: full shadow redundancy
// and the slowest-but-safest finality window.
func Mainnet() Config {
	cfg := Default()
	cfg.FinalityMS = 250
	cfg.ShadowCount = 5
	return cfg
}

// Testnet relaxes finality for faster iteration while keeping
// production-shaped slashing and supply parameters.
func Testnet() Config {
	cfg := Default()
	cfg.FinalityMS = 150
	cfg.ShadowCount = 3
	return cfg
}

// Local is tuned for single-machine development: fastest finality,
// smallest shadow set, bond/reputation floors relaxed so a handful of
// local validators can bootstrap a round.
func Local() Config {
	cfg := Default()
	cfg.FinalityMS = 100
	cfg.ShadowCount = 3
	cfg.MinBondMicro = 1
	cfg.MinReputationBPS = 0
	return cfg
}

// Load reads a YAML configuration file, starting from Default so any
// field the file omits keeps its documented default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the documented bounds for each option.
func (c Config) Validate() error {
	if c.FinalityMS < 100 || c.FinalityMS > 250 {
		return fmt.Errorf("config: finality_ms must be in [100, 250], got %d", c.FinalityMS)
	}
	if c.ShadowCount < 3 || c.ShadowCount > 5 {
		return fmt.Errorf("config: shadow_count must be in [3, 5], got %d", c.ShadowCount)
	}
	if c.MinReputationBPS > 10000 {
		return fmt.Errorf("config: min_reputation_bps must be <= 10000, got %d", c.MinReputationBPS)
	}
	if c.FeeCapBPS > 10000 {
		return fmt.Errorf("config: fee_cap_bps must be <= 10000, got %d", c.FeeCapBPS)
	}
	if c.SlashDoubleSignBPS > 10000 {
		return fmt.Errorf("config: slash_double_sign_bps must be <= 10000, got %d", c.SlashDoubleSignBPS)
	}
	if c.SlashInvalidBlockBPS > 10000 {
		return fmt.Errorf("config: slash_invalid_block_bps must be <= 10000, got %d", c.SlashInvalidBlockBPS)
	}
	if c.MaxSupplyMicro == 0 {
		return fmt.Errorf("config: max_supply_micro must be non-zero")
	}
	return nil
}

// MinBondMicroBig returns MinBondMicro widened to *big.Int for use with
// the bonding and emission packages' u128-style arithmetic.
func (c Config) MinBondMicroBig() *big.Int {
	return new(big.Int).SetUint64(c.MinBondMicro)
}

// MaxSupplyMicroBig returns MaxSupplyMicro widened to *big.Int.
func (c Config) MaxSupplyMicroBig() *big.Int {
	return new(big.Int).SetUint64(c.MaxSupplyMicro)
}
