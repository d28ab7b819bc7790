package games

import "citycoin/internal/rng"

type FlipResult struct {
	Guess  string `json:"guess"`
	Landed string `json:"landed"`
	Win    bool   `json:"win"`
	Payout int64  `json:"payout"`
}

// Flip is a fair coin. A correct call pays the stake back at 2 minus the
// house fee.
func Flip(stake int64, guess string, p rng.Provider, fee float64) (FlipResult, error) {
	if stake <= 0 {
		return FlipResult{}, ErrInvalidStake
	}
	if guess != "heads" && guess != "tails" {
		return FlipResult{}, ErrInvalidBet
	}

	landed := "heads"
	if p.Intn(2) == 1 {
		landed = "tails"
	}
	res := FlipResult{Guess: guess, Landed: landed, Win: landed == guess}
	if res.Win {
		res.Payout = int64(float64(stake) * (2 - fee))
	}
	return res, nil
}
