package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries every operator-tunable knob for the launchpad service.
// Amounts are decimal strings in base units (wei for ETH-side values).
type Config struct {
	ListenAddress       string  `toml:"ListenAddress"`
	DataDir             string  `toml:"DataDir"`
	Environment         string  `toml:"Environment"`
	Operator            string  `toml:"Operator"`
	FeeRecipient        string  `toml:"FeeRecipient"`
	EscrowVault         string  `toml:"EscrowVault"`
	FactoryAddress      string  `toml:"FactoryAddress"`
	FeeRate             uint64  `toml:"FeeRate"`
	CreationFee         string  `toml:"CreationFee"`
	MaxSupply           string  `toml:"MaxSupply"`
	PoolSupplyThreshold string  `toml:"PoolSupplyThreshold"`
	EscrowAllocation    string  `toml:"EscrowAllocation"`
	VirtualReserveETH   string  `toml:"VirtualReserveETH"`
	PokeMinInterval     int64   `toml:"PokeMinInterval"`
	RateLimitPerMinute  float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst      int     `toml:"RateLimitBurst"`
}

// Load reads the configuration from path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	for _, undecoded := range meta.Undecoded() {
		fmt.Fprintf(os.Stderr, "config: ignoring unknown key %q\n", undecoded.String())
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:       ":8546",
		DataDir:             "./data",
		Environment:         "dev",
		FeeRate:             100,
		CreationFee:         "1000000000000000",
		MaxSupply:           "1000000000000000000000000000",
		PoolSupplyThreshold: "700000000000000000000000000",
		EscrowAllocation:    "50000000000000000000000000",
		VirtualReserveETH:   "1000000000000000000",
		PokeMinInterval:     30,
		RateLimitPerMinute:  120,
		RateLimitBurst:      20,
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = def.DataDir
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = def.Environment
	}
	if cfg.FeeRate == 0 {
		cfg.FeeRate = def.FeeRate
	}
	if strings.TrimSpace(cfg.CreationFee) == "" {
		cfg.CreationFee = def.CreationFee
	}
	if strings.TrimSpace(cfg.MaxSupply) == "" {
		cfg.MaxSupply = def.MaxSupply
	}
	if strings.TrimSpace(cfg.PoolSupplyThreshold) == "" {
		cfg.PoolSupplyThreshold = def.PoolSupplyThreshold
	}
	if strings.TrimSpace(cfg.EscrowAllocation) == "" {
		cfg.EscrowAllocation = def.EscrowAllocation
	}
	if strings.TrimSpace(cfg.VirtualReserveETH) == "" {
		cfg.VirtualReserveETH = def.VirtualReserveETH
	}
	if cfg.PokeMinInterval == 0 {
		cfg.PokeMinInterval = def.PokeMinInterval
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = def.RateLimitPerMinute
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = def.RateLimitBurst
	}
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
