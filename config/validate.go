package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Validate checks address syntax and the supply-partition arithmetic before
// the engines are wired with the parsed values.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: not loaded")
	}
	for name, raw := range map[string]string{
		"Operator":       c.Operator,
		"FeeRecipient":   c.FeeRecipient,
		"EscrowVault":    c.EscrowVault,
		"FactoryAddress": c.FactoryAddress,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := ParseAddress(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	maxSupply, err := ParseAmount(c.MaxSupply)
	if err != nil {
		return fmt.Errorf("config: MaxSupply: %w", err)
	}
	threshold, err := ParseAmount(c.PoolSupplyThreshold)
	if err != nil {
		return fmt.Errorf("config: PoolSupplyThreshold: %w", err)
	}
	escrow, err := ParseAmount(c.EscrowAllocation)
	if err != nil {
		return fmt.Errorf("config: EscrowAllocation: %w", err)
	}
	if _, err := ParseAmount(c.VirtualReserveETH); err != nil {
		return fmt.Errorf("config: VirtualReserveETH: %w", err)
	}
	if _, err := ParseAmount(c.CreationFee); err != nil {
		return fmt.Errorf("config: CreationFee: %w", err)
	}
	if new(big.Int).Add(threshold, escrow).Cmp(maxSupply) > 0 {
		return fmt.Errorf("config: pool threshold plus escrow exceeds max supply")
	}
	if c.FeeRate >= 100_000 {
		return fmt.Errorf("config: FeeRate must be below the fee precision")
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	if len(decoded) != 20 {
		return addr, fmt.Errorf("invalid address %q: want 20 bytes, got %d", raw, len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// ParseAmount decodes a non-negative decimal base-unit amount.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}
