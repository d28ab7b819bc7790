// Package money defines the fixed-point currency units used by every balance
// in the ledger. Cash, bank, stablecoin and treasury amounts are integer
// cents of CityCoin (CTC); the bitcity crypto asset is integer satoshis.
// Nothing in the engine ever stores a fractional unit.
package money

import "math"

const (
	// CentsPerCoin is the number of smallest units in one CTC.
	CentsPerCoin = int64(100)

	// SatoshisPerCoin is the number of smallest units in one bitcity coin.
	SatoshisPerCoin = int64(100_000_000)
)

// ToCents converts a human-entered decimal CTC amount to cents, rounding
// half-to-even so repeated conversions do not drift in one direction.
func ToCents(amount float64) int64 {
	return int64(math.RoundToEven(amount * float64(CentsPerCoin)))
}

// ToCoins converts cents back to a decimal CTC amount. Display only; the
// result must never be written back into a balance.
func ToCoins(cents int64) float64 {
	return float64(cents) / float64(CentsPerCoin)
}

// ToSatoshis converts a decimal bitcity quantity to satoshis.
func ToSatoshis(amount float64) int64 {
	return int64(math.RoundToEven(amount * float64(SatoshisPerCoin)))
}

// ToCrypto converts satoshis back to a decimal bitcity quantity.
func ToCrypto(satoshis int64) float64 {
	return float64(satoshis) / float64(SatoshisPerCoin)
}
