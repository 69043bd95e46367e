package curve

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FeePrecision is the fixed denominator applied to the multiplicative fee
// rate. A rate of 100 therefore charges 0.1% per trade.
const FeePrecision = 100_000

// All curve arithmetic runs on 256-bit unsigned integers with truncating
// division, mirroring the fixed-point semantics of the ledger the pricing
// rules were specified against.

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, errAmountOverflow
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, errAmountOverflow
	}
	return out, nil
}

// tradeFee computes amount*feeRate/FeePrecision, truncated toward zero.
func tradeFee(amount *big.Int, feeRate uint64) (*big.Int, error) {
	amt, err := toUint256(amount)
	if err != nil {
		return nil, err
	}
	fee := new(uint256.Int).Mul(amt, uint256.NewInt(feeRate))
	fee.Div(fee, uint256.NewInt(FeePrecision))
	return fee.ToBig(), nil
}

// buyAmountOut solves the constant-product invariant for the token output of
// a buy: reserveToken - K/(reserveETH + virtualReserveETH + netEth). K is
// held fixed across the trade; the caller reads it before any mutation.
func buyAmountOut(reserveToken, reserveETH, virtualReserveETH, netEth, invariantK *big.Int) (*big.Int, error) {
	rToken, err := toUint256(reserveToken)
	if err != nil {
		return nil, err
	}
	rETH, err := toUint256(reserveETH)
	if err != nil {
		return nil, err
	}
	vETH, err := toUint256(virtualReserveETH)
	if err != nil {
		return nil, err
	}
	net, err := toUint256(netEth)
	if err != nil {
		return nil, err
	}
	k, err := toUint256(invariantK)
	if err != nil {
		return nil, err
	}
	denom := new(uint256.Int).Add(rETH, vETH)
	denom.Add(denom, net)
	if denom.IsZero() {
		return nil, errInsufficientLiquidity
	}
	kept := new(uint256.Int).Div(k, denom)
	if kept.Cmp(rToken) >= 0 {
		return big.NewInt(0), nil
	}
	return new(uint256.Int).Sub(rToken, kept).ToBig(), nil
}

// sellEthOut solves the inverse invariant for the ETH output of a sell:
// reserveETH + virtualReserveETH - K/(reserveToken + tokenIn). The result is
// additionally capped by the real ETH reserve so the virtual offset can never
// be paid out.
func sellEthOut(reserveToken, reserveETH, virtualReserveETH, tokenIn, invariantK *big.Int) (*big.Int, error) {
	rToken, err := toUint256(reserveToken)
	if err != nil {
		return nil, err
	}
	rETH, err := toUint256(reserveETH)
	if err != nil {
		return nil, err
	}
	vETH, err := toUint256(virtualReserveETH)
	if err != nil {
		return nil, err
	}
	in, err := toUint256(tokenIn)
	if err != nil {
		return nil, err
	}
	k, err := toUint256(invariantK)
	if err != nil {
		return nil, err
	}
	newTokens := new(uint256.Int).Add(rToken, in)
	if newTokens.IsZero() {
		return nil, errInsufficientLiquidity
	}
	ethSide := new(uint256.Int).Add(rETH, vETH)
	kept := new(uint256.Int).Div(k, newTokens)
	if kept.Cmp(ethSide) >= 0 {
		return big.NewInt(0), nil
	}
	out := new(uint256.Int).Sub(ethSide, kept)
	if out.Cmp(rETH) > 0 {
		return nil, errInsufficientLiquidity
	}
	return out.ToBig(), nil
}

// spotPriceWei quotes the marginal price of one whole token (scaled by unit)
// in wei: (reserveETH + virtualReserveETH) * unit / reserveToken.
func spotPriceWei(reserveToken, reserveETH, virtualReserveETH, unit *big.Int) (*big.Int, error) {
	rToken, err := toUint256(reserveToken)
	if err != nil {
		return nil, err
	}
	if rToken.IsZero() {
		return nil, errInsufficientLiquidity
	}
	rETH, err := toUint256(reserveETH)
	if err != nil {
		return nil, err
	}
	vETH, err := toUint256(virtualReserveETH)
	if err != nil {
		return nil, err
	}
	scale, err := toUint256(unit)
	if err != nil {
		return nil, err
	}
	price := new(uint256.Int).Add(rETH, vETH)
	price.Mul(price, scale)
	price.Div(price, rToken)
	return price.ToBig(), nil
}
