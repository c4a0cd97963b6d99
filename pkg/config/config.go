package config

// Package config provides a reusable loader for the arbitrage engine's
// configuration files and environment variables.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"dexarb/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for one cmd/arbitraged process. It
// carries every setting the CLI needs to construct a concrete
// ChainClient/Signer, plus the catalogue/scanner/network tuning knobs.
type Config struct {
	Catalogue struct {
		MinPoolLiquidityReserve  uint64   `mapstructure:"min_pool_liquidity_reserve" json:"min_pool_liquidity_reserve"`
		MinDirectoryLiquidityUSD float64  `mapstructure:"min_directory_liquidity_usd" json:"min_directory_liquidity_usd"`
		RefreshMinIntervalMS     int      `mapstructure:"refresh_min_interval_ms" json:"refresh_min_interval_ms"`
		MaxConcurrentRefresh     int      `mapstructure:"max_concurrent_refresh" json:"max_concurrent_refresh"`
		MajorTokenWhitelist      []string `mapstructure:"major_token_whitelist" json:"major_token_whitelist"`
		DirectoryURLs            []string `mapstructure:"directory_urls" json:"directory_urls"`
		TopNPerDirectory         int      `mapstructure:"top_n_per_directory" json:"top_n_per_directory"`
		// ProgramKinds maps an on-chain program address to the PoolKind
		// name the codec should decode it as: one of ConstantProductA,
		// ConstantProductB, ConcentratedLiquidity, OrderBook.
		ProgramKinds map[string]string `mapstructure:"program_kinds" json:"program_kinds"`
		FallbackPools []struct {
			Address string `mapstructure:"address" json:"address"`
			Kind    string `mapstructure:"kind" json:"kind"`
		} `mapstructure:"fallback_pools" json:"fallback_pools"`
	} `mapstructure:"catalogue" json:"catalogue"`

	Scanner struct {
		ProbeLadderBaseUnits         []uint64 `mapstructure:"probe_ladder_base_units" json:"probe_ladder_base_units"`
		MinProfitThresholdBaseUnits  int64    `mapstructure:"min_profit_threshold_base_units" json:"min_profit_threshold_base_units"`
		ExecutionSlippageBps         int      `mapstructure:"execution_slippage_bps" json:"execution_slippage_bps"`
	} `mapstructure:"scanner" json:"scanner"`

	Network struct {
		BaseFee          uint64 `mapstructure:"base_fee" json:"base_fee"`
		PriorityFee      uint64 `mapstructure:"priority_fee" json:"priority_fee"`
		ComputeUnits     uint64 `mapstructure:"compute_units" json:"compute_units"`
		ComputeUnitPrice uint64 `mapstructure:"compute_unit_price" json:"compute_unit_price"`
		ATARent          uint64 `mapstructure:"ata_rent" json:"ata_rent"`
		ProtocolFee      uint64 `mapstructure:"protocol_fee" json:"protocol_fee"`
		SlippageBuffer   uint64 `mapstructure:"slippage_buffer" json:"slippage_buffer"`
	} `mapstructure:"network" json:"network"`

	Coordinator struct {
		IdleBackoffMS  int `mapstructure:"idle_backoff_ms" json:"idle_backoff_ms"`
		CycleCadenceMS int `mapstructure:"cycle_cadence_ms" json:"cycle_cadence_ms"`
	} `mapstructure:"coordinator" json:"coordinator"`

	RPC struct {
		PrimaryEndpoint  string   `mapstructure:"primary_endpoint" json:"primary_endpoint"`
		BackupEndpoints  []string `mapstructure:"backup_endpoints" json:"backup_endpoints"`
		WebsocketURL     string   `mapstructure:"websocket_url" json:"websocket_url"`
		RequestTimeoutMS int      `mapstructure:"request_timeout_ms" json:"request_timeout_ms"`
	} `mapstructure:"rpc" json:"rpc"`

	Wallet struct {
		KeyFilePath string `mapstructure:"key_file_path" json:"key_file_path"`
	} `mapstructure:"wallet" json:"wallet"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	StatusAPI struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"status_api" json:"status_api"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads config/default.yaml and merges an environment-specific
// overlay (config/<env>.yaml) on top, then applies environment variable
// overrides. The resulting configuration is stored in AppConfig and
// returned.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("ARB")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the ARB_ENV environment variable
// to select the overlay (e.g. "devnet", "mainnet").
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("ARB_ENV", ""))
}
