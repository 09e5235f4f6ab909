// Package utils holds amount conversion and wire-form parsing helpers shared
// by the assembler, verifier, and settlement router.
package utils

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Shradhesh71/x402-sdk/types"
)

// ToBaseUnits scales a human decimal amount by 10^decimals and truncates
// toward zero. Lamports for decimals=9, USDC micro-units for decimals=6.
func ToBaseUnits(amount string, decimals int) (uint64, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, types.NewError(types.ErrInvalidAmount, "invalid amount %q: %v", amount, err)
	}
	if dec.IsNegative() {
		return 0, types.NewError(types.ErrInvalidAmount, "amount %q cannot be negative", amount)
	}

	scaled := dec.Shift(int32(decimals)).Truncate(0)
	if !scaled.BigInt().IsUint64() {
		return 0, types.NewError(types.ErrInvalidAmount, "amount %q overflows base units at %d decimals", amount, decimals)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits is the inverse scaling, exact under decimal arithmetic.
func FromBaseUnits(baseUnits uint64, decimals int) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(baseUnits), -int32(decimals)).String()
}

// BaseUnitsString parses a base-unit decimal string into an integer amount.
func BaseUnitsString(value string) (uint64, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 || !n.IsUint64() {
		return 0, types.NewError(types.ErrInvalidAmount, "invalid base-unit amount %q", value)
	}
	return n.Uint64(), nil
}
