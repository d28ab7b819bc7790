package games

import (
	"sort"

	"citycoin/internal/rng"
)

type PokerHand string

const (
	RoyalFlush    PokerHand = "royal_flush"
	StraightFlush PokerHand = "straight_flush"
	FourOfAKind   PokerHand = "four_of_a_kind"
	FullHouse     PokerHand = "full_house"
	Flush         PokerHand = "flush"
	Straight      PokerHand = "straight"
	ThreeOfAKind  PokerHand = "three_of_a_kind"
	TwoPair       PokerHand = "two_pair"
	JacksOrBetter PokerHand = "jacks_or_better"
	NoHand        PokerHand = "nothing"
)

// pokerPaytable is a standard 9/6 Jacks or Better schedule.
var pokerPaytable = map[PokerHand]int64{
	RoyalFlush:    800,
	StraightFlush: 50,
	FourOfAKind:   25,
	FullHouse:     9,
	Flush:         6,
	Straight:      4,
	ThreeOfAKind:  3,
	TwoPair:       2,
	JacksOrBetter: 1,
}

type VideoPokerResult struct {
	Dealt  []Card    `json:"dealt"`
	Final  []Card    `json:"final"`
	Hand   PokerHand `json:"hand"`
	Payout int64     `json:"payout"`
}

// VideoPoker deals five cards, redraws the positions not held, and pays by
// the paytable. holds marks which of the five dealt cards to keep.
func VideoPoker(stake int64, holds [5]bool, p rng.Provider, fee float64) (VideoPokerResult, error) {
	if stake <= 0 {
		return VideoPokerResult{}, ErrInvalidStake
	}
	return resolveVideoPoker(stake, holds, newShoe(p), fee)
}

func resolveVideoPoker(stake int64, holds [5]bool, s *shoe, fee float64) (VideoPokerResult, error) {
	dealt := s.drawN(5)
	final := make([]Card, 5)
	copy(final, dealt)
	for i, hold := range holds {
		if !hold {
			final[i] = s.draw()
		}
	}

	res := VideoPokerResult{Dealt: dealt, Final: final, Hand: EvaluatePokerHand(final)}
	if mult, ok := pokerPaytable[res.Hand]; ok {
		res.Payout = payout(stake, float64(mult+1), fee)
	}
	return res, nil
}

// EvaluatePokerHand classifies a five-card hand. The wheel (A-2-3-4-5)
// counts as a straight.
func EvaluatePokerHand(hand []Card) PokerHand {
	ranks := make([]int, len(hand))
	counts := make(map[int]int, 5)
	flush := true
	for i, c := range hand {
		ranks[i] = int(c.Rank)
		counts[int(c.Rank)]++
		if c.Suit != hand[0].Suit {
			flush = false
		}
	}
	sort.Ints(ranks)

	straight := true
	for i := 1; i < len(ranks); i++ {
		if ranks[i] != ranks[i-1]+1 {
			straight = false
			break
		}
	}
	wheel := !straight && ranks[0] == 2 && ranks[1] == 3 && ranks[2] == 4 && ranks[3] == 5 && ranks[4] == int(Ace)
	straight = straight || wheel

	var pairs, trips, quads int
	var pairHigh int
	for r, n := range counts {
		switch n {
		case 2:
			pairs++
			if r > pairHigh {
				pairHigh = r
			}
		case 3:
			trips++
		case 4:
			quads++
		}
	}

	switch {
	case straight && flush && ranks[0] == 10:
		return RoyalFlush
	case straight && flush:
		return StraightFlush
	case quads == 1:
		return FourOfAKind
	case trips == 1 && pairs == 1:
		return FullHouse
	case flush:
		return Flush
	case straight:
		return Straight
	case trips == 1:
		return ThreeOfAKind
	case pairs == 2:
		return TwoPair
	case pairs == 1 && pairHigh >= int(Jack):
		return JacksOrBetter
	default:
		return NoHand
	}
}
