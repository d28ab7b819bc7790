// Package games holds the pure chance-game resolvers. Every resolver takes
// the stake in cents, a random source and the house fee, and returns what
// the player gets back. Resolvers never touch balances; the casino layer
// debits the stake, runs the resolver and credits the payout in one
// atomic mutation.
package games

import "errors"

var (
	ErrInvalidStake = errors.New("stake must be positive")
	ErrInvalidBet   = errors.New("unknown bet")
)

// payout is the standard settlement: stake times multiplier, shaved by the
// house fee, floored to whole cents.
func payout(stake int64, mult, fee float64) int64 {
	return int64(float64(stake) * mult * (1 - fee))
}
