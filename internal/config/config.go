// Package config loads the marketd/marketctl process configuration: a TOML
// file in nhbchain's config.Load style (create-default-if-absent), then an
// environment-variable overlay in the shai repo's envconfig.Process style.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide settings marketd/marketctl need to boot: where
// to listen, how to reach storage, and GlobalConfig-shaped authority, fee
// and liquidity fields. cmd/marketd does not pass those fields to
// Engine.Configure, so they do not seed the store.
type Config struct {
	ListenAddress string `toml:"listen_address" envconfig:"LISTEN_ADDRESS"`
	MetricsAddress string `toml:"metrics_address" envconfig:"METRICS_ADDRESS"`
	LogLevel      string `toml:"log_level" envconfig:"LOG_LEVEL"`

	StoreBackend string `toml:"store_backend" envconfig:"STORE_BACKEND"` // "mem", "badger", or "postgres"
	BadgerDir    string `toml:"badger_dir" envconfig:"BADGER_DIR"`
	PostgresDSN  string `toml:"postgres_dsn" envconfig:"POSTGRES_DSN"`

	Authority      string `toml:"authority" envconfig:"AUTHORITY"`
	TeamWallet     string `toml:"team_wallet" envconfig:"TEAM_WALLET"`
	CollateralMint string `toml:"collateral_mint" envconfig:"COLLATERAL_MINT"`

	PlatformBuyBps  uint64 `toml:"platform_buy_bps" envconfig:"PLATFORM_BUY_BPS"`
	PlatformSellBps uint64 `toml:"platform_sell_bps" envconfig:"PLATFORM_SELL_BPS"`
	LPBuyBps        uint64 `toml:"lp_buy_bps" envconfig:"LP_BUY_BPS"`
	LPSellBps       uint64 `toml:"lp_sell_bps" envconfig:"LP_SELL_BPS"`

	InitialReservesB    uint64 `toml:"initial_reserves_b" envconfig:"INITIAL_RESERVES_B"`
	MinTradingLiquidity uint64 `toml:"min_trading_liquidity" envconfig:"MIN_TRADING_LIQUIDITY"`
	MinLPLiquidity      uint64 `toml:"min_lp_liquidity" envconfig:"MIN_LP_LIQUIDITY"`
	VaultMinBalance     uint64 `toml:"vault_min_balance" envconfig:"VAULT_MIN_BALANCE"`

	WhitelistEnabled bool `toml:"whitelist_enabled" envconfig:"WHITELIST_ENABLED"`
	InsuranceEnabled bool `toml:"insurance_enabled" envconfig:"INSURANCE_ENABLED"`
}

// defaults mirrors createDefault: a config usable out of the box in a local
// dev environment, with the in-memory store and fees disabled.
func defaults() *Config {
	return &Config{
		ListenAddress:  ":8090",
		MetricsAddress: ":9090",
		LogLevel:       "info",
		StoreBackend:   "mem",
		BadgerDir:      "./marketd-data",
		InitialReservesB:    100_000,
		MinTradingLiquidity: 1_000,
		MinLPLiquidity:      1_000,
		VaultMinBalance:     1_000,
	}
}

// TokenDecimalsDefault is a constant informing GlobalConfig.TokenDecimals;
// it is not itself configurable since the settlement ledger is fixed at
// 6-decimal collateral.
const TokenDecimalsDefault = 6

// Load reads path as TOML, writing out a fresh default file if it doesn't
// exist yet, then applies environment-variable overrides with the "MARKETD"
// prefix.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if err := envconfig.Process("marketd", cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create default %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode default %s: %w", path, err)
	}
	return nil
}
