package games

import "citycoin/internal/rng"

type BlackjackAction string

const (
	Hit    BlackjackAction = "hit"
	Stand  BlackjackAction = "stand"
	Double BlackjackAction = "double"
)

type BlackjackOutcome string

const (
	BJWin       BlackjackOutcome = "win"
	BJBlackjack BlackjackOutcome = "blackjack"
	BJLose      BlackjackOutcome = "lose"
	BJPush      BlackjackOutcome = "push"
)

type BlackjackResult struct {
	PlayerHand  []Card           `json:"player_hand"`
	DealerHand  []Card           `json:"dealer_hand"`
	PlayerTotal int              `json:"player_total"`
	DealerTotal int              `json:"dealer_total"`
	Doubled     bool             `json:"doubled"`
	TotalStake  int64            `json:"total_stake"`
	Outcome     BlackjackOutcome `json:"outcome"`
	Payout      int64            `json:"payout"`
}

// handTotal values aces at 11 and demotes them to 1 one at a time while the
// hand would bust.
func handTotal(hand []Card) int {
	total, aces := 0, 0
	for _, c := range hand {
		switch {
		case c.Rank == Ace:
			total += 11
			aces++
		case c.Rank >= Jack:
			total += 10
		default:
			total += int(c.Rank)
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func isNatural(hand []Card) bool {
	return len(hand) == 2 && handTotal(hand) == 21
}

// Blackjack plays one full hand. The player's decisions come in as an
// action list consumed in order; running out of actions stands. Double is
// only legal as the first action and raises TotalStake, which the caller
// must have debited up front or be prepared to debit.
//
// Wins pay 2x the total stake less the fee, naturals pay 2.5x the original
// stake, pushes refund the total stake.
func Blackjack(stake int64, actions []BlackjackAction, p rng.Provider, fee float64) (BlackjackResult, error) {
	if stake <= 0 {
		return BlackjackResult{}, ErrInvalidStake
	}
	return resolveBlackjack(stake, actions, newShoe(p), fee)
}

func resolveBlackjack(stake int64, actions []BlackjackAction, s *shoe, fee float64) (BlackjackResult, error) {
	res := BlackjackResult{
		PlayerHand: s.drawN(2),
		DealerHand: s.drawN(2),
		TotalStake: stake,
	}

	if isNatural(res.PlayerHand) || isNatural(res.DealerHand) {
		res.PlayerTotal = handTotal(res.PlayerHand)
		res.DealerTotal = handTotal(res.DealerHand)
		switch {
		case isNatural(res.PlayerHand) && isNatural(res.DealerHand):
			res.Outcome = BJPush
			res.Payout = res.TotalStake
		case isNatural(res.PlayerHand):
			res.Outcome = BJBlackjack
			res.Payout = payout(stake, 2.5, fee)
		default:
			res.Outcome = BJLose
		}
		return res, nil
	}

	for i := 0; ; i++ {
		action := Stand
		if i < len(actions) {
			action = actions[i]
		}
		if action == Double && (i != 0 || len(res.PlayerHand) != 2) {
			return BlackjackResult{}, ErrInvalidBet
		}

		if action == Double {
			res.Doubled = true
			res.TotalStake += stake
			res.PlayerHand = append(res.PlayerHand, s.draw())
			break
		}
		if action == Stand {
			break
		}
		res.PlayerHand = append(res.PlayerHand, s.draw())
		if handTotal(res.PlayerHand) > 21 {
			break
		}
	}
	res.PlayerTotal = handTotal(res.PlayerHand)
	if res.PlayerTotal > 21 {
		res.DealerTotal = handTotal(res.DealerHand)
		res.Outcome = BJLose
		return res, nil
	}

	for handTotal(res.DealerHand) < 17 {
		res.DealerHand = append(res.DealerHand, s.draw())
	}
	res.DealerTotal = handTotal(res.DealerHand)

	switch {
	case res.DealerTotal > 21 || res.PlayerTotal > res.DealerTotal:
		res.Outcome = BJWin
		res.Payout = payout(res.TotalStake, 2, fee)
	case res.PlayerTotal < res.DealerTotal:
		res.Outcome = BJLose
	default:
		res.Outcome = BJPush
		res.Payout = res.TotalStake
	}
	return res, nil
}
