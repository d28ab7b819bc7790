package games

import "citycoin/internal/rng"

type DiceResult struct {
	Threshold int   `json:"threshold"`
	Roll      int   `json:"roll"`
	Win       bool  `json:"win"`
	Payout    int64 `json:"payout"`
}

// Dice rolls 0-99 against a win threshold the player picks between 1 and
// 99. Lower thresholds are longer odds and pay 100/threshold on a hit.
func Dice(stake int64, threshold int, p rng.Provider, fee float64) (DiceResult, error) {
	if stake <= 0 {
		return DiceResult{}, ErrInvalidStake
	}
	if threshold < 1 || threshold > 99 {
		return DiceResult{}, ErrInvalidBet
	}

	roll := p.Intn(100)
	res := DiceResult{Threshold: threshold, Roll: roll, Win: roll < threshold}
	if res.Win {
		ratio := 100.0 / float64(threshold)
		res.Payout = payout(stake, ratio, fee)
	}
	return res, nil
}
