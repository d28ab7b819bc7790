package games

import (
	"fmt"

	"citycoin/internal/rng"
)

type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

var suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Rank runs 2..14 with ace high. Games that treat aces specially adjust at
// evaluation time.
type Rank int

const (
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

// newDeck returns a 52-card deck shuffled with the given source.
func newDeck(p rng.Provider) []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suits {
		for r := Rank(2); r <= Ace; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	rng.Shuffle(p, len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// shoe deals cards off the top of a deck.
type shoe struct {
	cards []Card
	next  int
}

func newShoe(p rng.Provider) *shoe {
	return &shoe{cards: newDeck(p)}
}

func (s *shoe) draw() Card {
	c := s.cards[s.next]
	s.next++
	return c
}

func (s *shoe) drawN(n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = s.draw()
	}
	return out
}
