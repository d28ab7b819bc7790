package games

import "citycoin/internal/rng"

type DuelResult struct {
	WinnerIsChallenger bool  `json:"winner_is_challenger"`
	Pot                int64 `json:"pot"`
	Payout             int64 `json:"payout"`
}

// Duel pits two equal stakes on a fair coin. The winner takes the pot less
// the house fee.
func Duel(stake int64, p rng.Provider, fee float64) (DuelResult, error) {
	if stake <= 0 {
		return DuelResult{}, ErrInvalidStake
	}
	res := DuelResult{
		WinnerIsChallenger: p.Intn(2) == 0,
		Pot:                2 * stake,
	}
	res.Payout = payout(2*stake, 1, fee)
	return res, nil
}
