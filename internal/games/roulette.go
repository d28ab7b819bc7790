package games

import (
	"strconv"

	"citycoin/internal/rng"
)

// wheelSequence is the physical European wheel order; spins index into it
// so the pocket distribution matches a real wheel.
var wheelSequence = []int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23, 10,
	5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true,
	16: true, 18: true, 19: true, 21: true, 23: true, 25: true, 27: true,
	30: true, 32: true, 34: true, 36: true,
}

func pocketColor(n int) string {
	switch {
	case n == 0:
		return "green"
	case redPockets[n]:
		return "red"
	default:
		return "black"
	}
}

type RouletteResult struct {
	Bet    string `json:"bet"`
	Pocket int    `json:"pocket"`
	Color  string `json:"color"`
	Win    bool   `json:"win"`
	Payout int64  `json:"payout"`
}

// Roulette takes a single bet: a straight number "0".."36", a color "red"
// or "black", or a parity "even"/"odd". Zero is green and neither even nor
// odd, so it only pays straight bets.
func Roulette(stake int64, bet string, p rng.Provider, fee float64) (RouletteResult, error) {
	if stake <= 0 {
		return RouletteResult{}, ErrInvalidStake
	}

	var (
		number  = -1
		isColor bool
		isEven  bool
		parity  bool
	)
	switch bet {
	case "red", "black":
		isColor = true
	case "even":
		parity, isEven = true, true
	case "odd":
		parity = true
	default:
		n, err := strconv.Atoi(bet)
		if err != nil || n < 0 || n > 36 {
			return RouletteResult{}, ErrInvalidBet
		}
		number = n
	}

	pocket := wheelSequence[p.Intn(len(wheelSequence))]
	res := RouletteResult{Bet: bet, Pocket: pocket, Color: pocketColor(pocket)}

	switch {
	case number >= 0:
		if pocket == number {
			res.Win = true
			res.Payout = payout(stake, 36, fee)
		}
	case isColor:
		if res.Color == bet {
			res.Win = true
			res.Payout = payout(stake, 2, fee)
		}
	case parity:
		if pocket != 0 && (pocket%2 == 0) == isEven {
			res.Win = true
			res.Payout = payout(stake, 2, fee)
		}
	}
	return res, nil
}
