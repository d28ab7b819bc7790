package games

import "citycoin/internal/rng"

type BaccaratBet string

const (
	BetPlayer BaccaratBet = "player"
	BetBanker BaccaratBet = "banker"
	BetTie    BaccaratBet = "tie"
)

// baccaratCommission is the house cut on winning banker bets, taken off the
// even-money payout alongside the table fee.
const baccaratCommission = 0.05

type BaccaratResult struct {
	Bet         BaccaratBet `json:"bet"`
	PlayerHand  []Card      `json:"player_hand"`
	BankerHand  []Card      `json:"banker_hand"`
	PlayerTotal int         `json:"player_total"`
	BankerTotal int         `json:"banker_total"`
	Winner      string      `json:"winner"`
	Win         bool        `json:"win"`
	Push        bool        `json:"push"`
	Payout      int64       `json:"payout"`
}

// baccaratValue counts aces as 1 and tens and faces as 0.
func baccaratValue(c Card) int {
	switch {
	case c.Rank == Ace:
		return 1
	case c.Rank >= 10:
		return 0
	default:
		return int(c.Rank)
	}
}

func baccaratTotal(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += baccaratValue(c)
	}
	return total % 10
}

// Baccarat deals by tableau rules. A natural 8 or 9 on either side stops
// the deal; otherwise the player draws on 5 or less and the banker follows
// the standard third-card table. Banker wins pay a commission. A tie
// pushes bets on either hand rather than losing them.
func Baccarat(stake int64, bet BaccaratBet, p rng.Provider, fee float64) (BaccaratResult, error) {
	if stake <= 0 {
		return BaccaratResult{}, ErrInvalidStake
	}
	if bet != BetPlayer && bet != BetBanker && bet != BetTie {
		return BaccaratResult{}, ErrInvalidBet
	}
	return resolveBaccarat(stake, bet, newShoe(p), fee)
}

func resolveBaccarat(stake int64, bet BaccaratBet, s *shoe, fee float64) (BaccaratResult, error) {
	res := BaccaratResult{
		Bet:        bet,
		PlayerHand: s.drawN(2),
		BankerHand: s.drawN(2),
	}

	pt := baccaratTotal(res.PlayerHand)
	bt := baccaratTotal(res.BankerHand)

	if pt < 8 && bt < 8 {
		playerThird := -1
		if pt <= 5 {
			c := s.draw()
			res.PlayerHand = append(res.PlayerHand, c)
			playerThird = baccaratValue(c)
			pt = baccaratTotal(res.PlayerHand)
		}
		if bankerDraws(bt, playerThird) {
			res.BankerHand = append(res.BankerHand, s.draw())
			bt = baccaratTotal(res.BankerHand)
		}
	}
	res.PlayerTotal = pt
	res.BankerTotal = bt

	switch {
	case pt > bt:
		res.Winner = "player"
	case bt > pt:
		res.Winner = "banker"
	default:
		res.Winner = "tie"
	}

	switch {
	case res.Winner == "tie" && bet == BetTie:
		res.Win = true
		res.Payout = payout(stake, 9, fee)
	case res.Winner == "tie":
		res.Push = true
		res.Payout = stake
	case string(bet) == res.Winner && bet == BetPlayer:
		res.Win = true
		res.Payout = payout(stake, 2, fee)
	case string(bet) == res.Winner && bet == BetBanker:
		res.Win = true
		res.Payout = int64(float64(stake) * 2 * (1 - fee - baccaratCommission))
	}
	return res, nil
}

// bankerDraws implements the banker's third-card table. playerThird is -1
// when the player stood pat, in which case the banker draws on 5 or less.
func bankerDraws(bankerTotal, playerThird int) bool {
	if playerThird < 0 {
		return bankerTotal <= 5
	}
	switch bankerTotal {
	case 0, 1, 2:
		return true
	case 3:
		return playerThird != 8
	case 4:
		return playerThird >= 2 && playerThird <= 7
	case 5:
		return playerThird >= 4 && playerThird <= 7
	case 6:
		return playerThird == 6 || playerThird == 7
	default:
		return false
	}
}
