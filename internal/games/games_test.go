package games

import (
	"errors"
	"math"
	"testing"

	"citycoin/internal/config"
	"citycoin/internal/rng"
)

func stackedShoe(cards ...Card) *shoe {
	return &shoe{cards: cards}
}

func defaultTheftConfig() config.CasinoConfig {
	return config.DefaultConfig().Casino
}

func TestFlip(t *testing.T) {
	// 0.0 lands heads, 0.5 lands tails.
	res, err := Flip(10_000, "heads", rng.NewFixed(0.0), 0.01)
	if err != nil {
		t.Fatalf("Flip: %v", err)
	}
	if !res.Win || res.Payout != int64(float64(10_000)*(2-0.01)) {
		t.Fatalf("heads result = %+v, want winning payout", res)
	}

	res, err = Flip(10_000, "heads", rng.NewFixed(0.5), 0.01)
	if err != nil {
		t.Fatalf("Flip: %v", err)
	}
	if res.Win || res.Payout != 0 {
		t.Fatalf("tails result = %+v, want loss", res)
	}

	if _, err := Flip(0, "heads", rng.NewFixed(0.0), 0.01); !errors.Is(err, ErrInvalidStake) {
		t.Fatalf("zero stake err = %v", err)
	}
	if _, err := Flip(100, "side", rng.NewFixed(0.0), 0.01); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("bad guess err = %v", err)
	}
}

func TestDice(t *testing.T) {
	// 0.42 rolls 42, under the default threshold of 50.
	res, err := Dice(10_000, 50, rng.NewFixed(0.42), 0.01)
	if err != nil {
		t.Fatalf("Dice: %v", err)
	}
	if !res.Win {
		t.Fatalf("roll 42 under 50 should win: %+v", res)
	}
	if res.Payout != int64(float64(10_000)*2*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}

	// Long odds pay proportionally more.
	res, err = Dice(10_000, 10, rng.NewFixed(0.05), 0.01)
	if err != nil {
		t.Fatalf("Dice: %v", err)
	}
	if !res.Win || res.Payout != int64(float64(10_000)*10*0.99) {
		t.Fatalf("threshold 10 payout = %+v", res)
	}

	if _, err := Dice(100, 0, rng.NewFixed(0.0), 0); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("threshold 0 err = %v", err)
	}
	if _, err := Dice(100, 100, rng.NewFixed(0.0), 0); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("threshold 100 err = %v", err)
	}
}

func TestSports(t *testing.T) {
	// pHome for dragons-tigers is (1/1.8)/(1/1.8+1/2.2) ~ 0.55, so 0.1
	// picks the home side.
	res, err := Sports(10_000, "dragons-tigers", "Dragons", rng.NewFixed(0.1), 0.01)
	if err != nil {
		t.Fatalf("Sports: %v", err)
	}
	if !res.Win || res.Winner != "Dragons" {
		t.Fatalf("result = %+v, want Dragons win", res)
	}
	if res.Payout != int64(float64(10_000)*1.8*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}

	// 0.9 goes to the away side.
	res, err = Sports(10_000, "dragons-tigers", "Dragons", rng.NewFixed(0.9), 0.01)
	if err != nil {
		t.Fatalf("Sports: %v", err)
	}
	if res.Win || res.Winner != "Tigers" {
		t.Fatalf("result = %+v, want Tigers win, bet lost", res)
	}

	if _, err := Sports(100, "nope", "X", rng.NewFixed(0.0), 0); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("unknown match err = %v", err)
	}
	if _, err := Sports(100, "dragons-tigers", "Sharks", rng.NewFixed(0.0), 0); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("wrong team err = %v", err)
	}
}

func TestRouletteStraightNumber(t *testing.T) {
	// Index 0 of the wheel is pocket 0.
	res, err := Roulette(10_000, "0", rng.NewFixed(0.0), 0.01)
	if err != nil {
		t.Fatalf("Roulette: %v", err)
	}
	if !res.Win || res.Pocket != 0 || res.Color != "green" {
		t.Fatalf("result = %+v, want pocket 0 win", res)
	}
	if res.Payout != int64(float64(10_000)*36*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}
}

func TestRouletteZeroLosesOutsideBets(t *testing.T) {
	for _, bet := range []string{"red", "black", "even", "odd"} {
		res, err := Roulette(10_000, bet, rng.NewFixed(0.0), 0.01)
		if err != nil {
			t.Fatalf("Roulette(%s): %v", bet, err)
		}
		if res.Win {
			t.Fatalf("bet %s won on zero: %+v", bet, res)
		}
	}
}

func TestRouletteColorAndParity(t *testing.T) {
	// Index 1 of the wheel is pocket 32, a red even number.
	draw := 1.5 / 37 // maps to Intn(37) == 1
	res, err := Roulette(10_000, "red", rng.NewFixed(draw), 0.01)
	if err != nil {
		t.Fatalf("Roulette: %v", err)
	}
	if !res.Win || res.Pocket != 32 {
		t.Fatalf("red on 32 = %+v, want win", res)
	}
	res, _ = Roulette(10_000, "even", rng.NewFixed(draw), 0.01)
	if !res.Win {
		t.Fatalf("even on 32 = %+v, want win", res)
	}
	res, _ = Roulette(10_000, "odd", rng.NewFixed(draw), 0.01)
	if res.Win {
		t.Fatalf("odd on 32 = %+v, want loss", res)
	}
	if _, err := Roulette(100, "37", rng.NewFixed(0.0), 0); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("pocket 37 err = %v", err)
	}
}

func TestBlackjackNaturalPays(t *testing.T) {
	// Player A♠K♠, dealer 9♥9♦.
	s := stackedShoe(
		Card{Ace, Spades}, Card{King, Spades},
		Card{9, Hearts}, Card{9, Diamonds},
	)
	res, err := resolveBlackjack(10_000, nil, s, 0.01)
	if err != nil {
		t.Fatalf("blackjack: %v", err)
	}
	if res.Outcome != BJBlackjack {
		t.Fatalf("outcome = %s, want blackjack", res.Outcome)
	}
	if res.Payout != int64(float64(10_000)*2.5*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}
}

func TestBlackjackBothNaturalsPush(t *testing.T) {
	s := stackedShoe(
		Card{Ace, Spades}, Card{King, Spades},
		Card{Ace, Hearts}, Card{Queen, Diamonds},
	)
	res, err := resolveBlackjack(10_000, nil, s, 0.01)
	if err != nil {
		t.Fatalf("blackjack: %v", err)
	}
	if res.Outcome != BJPush || res.Payout != 10_000 {
		t.Fatalf("result = %+v, want push refunding stake", res)
	}
}

func TestBlackjackAceDemotion(t *testing.T) {
	// A+A+9 counts 11+1+9 = 21, not 31.
	if got := handTotal([]Card{{Ace, Spades}, {Ace, Hearts}, {9, Clubs}}); got != 21 {
		t.Fatalf("A A 9 = %d, want 21", got)
	}
	if got := handTotal([]Card{{Ace, Spades}, {King, Hearts}, {5, Clubs}, {9, Clubs}}); got != 15 {
		t.Fatalf("A K 5 9 = %d, want 15", got)
	}
}

func TestBlackjackHitBust(t *testing.T) {
	// Player 10+9 hits into a king and busts.
	s := stackedShoe(
		Card{10, Spades}, Card{9, Spades},
		Card{7, Hearts}, Card{10, Diamonds},
		Card{King, Clubs},
	)
	res, err := resolveBlackjack(10_000, []BlackjackAction{Hit}, s, 0.01)
	if err != nil {
		t.Fatalf("blackjack: %v", err)
	}
	if res.Outcome != BJLose || res.Payout != 0 {
		t.Fatalf("bust result = %+v, want loss", res)
	}
}

func TestBlackjackDouble(t *testing.T) {
	// Player 5+6 doubles into a king for 21; dealer 10+7 stands on 17.
	s := stackedShoe(
		Card{5, Spades}, Card{6, Spades},
		Card{10, Hearts}, Card{7, Diamonds},
		Card{King, Clubs},
	)
	res, err := resolveBlackjack(10_000, []BlackjackAction{Double}, s, 0.01)
	if err != nil {
		t.Fatalf("blackjack: %v", err)
	}
	if !res.Doubled || res.TotalStake != 20_000 {
		t.Fatalf("double state = %+v", res)
	}
	if res.Outcome != BJWin || res.Payout != int64(float64(20_000)*2*0.99) {
		t.Fatalf("double result = %+v", res)
	}

	// Double after a hit is illegal.
	s = stackedShoe(
		Card{2, Spades}, Card{3, Spades},
		Card{10, Hearts}, Card{7, Diamonds},
		Card{2, Clubs}, Card{2, Hearts},
	)
	if _, err := resolveBlackjack(10_000, []BlackjackAction{Hit, Double}, s, 0.01); !errors.Is(err, ErrInvalidBet) {
		t.Fatalf("late double err = %v", err)
	}
}

func TestBlackjackDealerDrawsTo17(t *testing.T) {
	// Player stands on 20; dealer 7+6 must draw, pulls a 9 for 22, bust.
	s := stackedShoe(
		Card{10, Spades}, Card{Queen, Spades},
		Card{7, Hearts}, Card{6, Diamonds},
		Card{9, Clubs},
	)
	res, err := resolveBlackjack(10_000, nil, s, 0.01)
	if err != nil {
		t.Fatalf("blackjack: %v", err)
	}
	if res.Outcome != BJWin || res.DealerTotal != 22 {
		t.Fatalf("result = %+v, want dealer bust", res)
	}
}

func TestBaccaratNaturalStopsDeal(t *testing.T) {
	// Player 4+4 = 8 natural; banker 2+3 = 5 takes no card.
	s := stackedShoe(
		Card{4, Spades}, Card{4, Hearts},
		Card{2, Diamonds}, Card{3, Clubs},
	)
	res, err := resolveBaccarat(10_000, BetPlayer, s, 0.01)
	if err != nil {
		t.Fatalf("baccarat: %v", err)
	}
	if len(res.PlayerHand) != 2 || len(res.BankerHand) != 2 {
		t.Fatalf("cards drawn past a natural: %+v", res)
	}
	if !res.Win || res.Payout != int64(float64(10_000)*2*0.99) {
		t.Fatalf("player natural result = %+v", res)
	}
}

func TestBaccaratBankerThirdCardTable(t *testing.T) {
	cases := []struct {
		banker      int
		playerThird int
		draws       bool
	}{
		{2, 0, true},
		{3, 8, false},
		{3, 7, true},
		{4, 1, false},
		{4, 2, true},
		{4, 7, true},
		{5, 3, false},
		{5, 4, true},
		{6, 5, false},
		{6, 6, true},
		{7, 6, false},
		{5, -1, true},
		{6, -1, false},
	}
	for _, tc := range cases {
		if got := bankerDraws(tc.banker, tc.playerThird); got != tc.draws {
			t.Fatalf("bankerDraws(%d, %d) = %v, want %v", tc.banker, tc.playerThird, got, tc.draws)
		}
	}
}

func TestBaccaratTiePushesHandBets(t *testing.T) {
	// Player 4+4, banker 5+3: both natural 8, a tie.
	s := stackedShoe(
		Card{4, Spades}, Card{4, Hearts},
		Card{5, Diamonds}, Card{3, Clubs},
	)
	res, err := resolveBaccarat(10_000, BetBanker, s, 0.01)
	if err != nil {
		t.Fatalf("baccarat: %v", err)
	}
	if !res.Push || res.Payout != 10_000 {
		t.Fatalf("banker bet on tie = %+v, want push", res)
	}

	s = stackedShoe(
		Card{4, Spades}, Card{4, Hearts},
		Card{5, Diamonds}, Card{3, Clubs},
	)
	res, err = resolveBaccarat(10_000, BetTie, s, 0.01)
	if err != nil {
		t.Fatalf("baccarat: %v", err)
	}
	if !res.Win || res.Payout != int64(float64(10_000)*9*0.99) {
		t.Fatalf("tie bet on tie = %+v", res)
	}
}

func TestBaccaratBankerCommission(t *testing.T) {
	// Banker 4+5 = 9 natural beats player 2+5 = 7.
	s := stackedShoe(
		Card{2, Spades}, Card{5, Hearts},
		Card{4, Diamonds}, Card{5, Clubs},
	)
	res, err := resolveBaccarat(10_000, BetBanker, s, 0.01)
	if err != nil {
		t.Fatalf("baccarat: %v", err)
	}
	// Even money less the fee and the 5% banker commission.
	if !res.Win || res.Payout != int64(float64(10_000)*2*(1-0.01-0.05)) {
		t.Fatalf("banker win = %+v", res)
	}
}

func TestVideoPokerHands(t *testing.T) {
	cases := []struct {
		hand []Card
		want PokerHand
	}{
		{[]Card{{10, Spades}, {Jack, Spades}, {Queen, Spades}, {King, Spades}, {Ace, Spades}}, RoyalFlush},
		{[]Card{{5, Hearts}, {6, Hearts}, {7, Hearts}, {8, Hearts}, {9, Hearts}}, StraightFlush},
		{[]Card{{Ace, Spades}, {2, Spades}, {3, Spades}, {4, Spades}, {5, Spades}}, StraightFlush},
		{[]Card{{9, Spades}, {9, Hearts}, {9, Diamonds}, {9, Clubs}, {2, Spades}}, FourOfAKind},
		{[]Card{{9, Spades}, {9, Hearts}, {9, Diamonds}, {2, Clubs}, {2, Spades}}, FullHouse},
		{[]Card{{2, Hearts}, {5, Hearts}, {9, Hearts}, {Jack, Hearts}, {King, Hearts}}, Flush},
		{[]Card{{Ace, Spades}, {2, Hearts}, {3, Diamonds}, {4, Clubs}, {5, Spades}}, Straight},
		{[]Card{{10, Spades}, {Jack, Hearts}, {Queen, Diamonds}, {King, Clubs}, {Ace, Spades}}, Straight},
		{[]Card{{7, Spades}, {7, Hearts}, {7, Diamonds}, {2, Clubs}, {9, Spades}}, ThreeOfAKind},
		{[]Card{{7, Spades}, {7, Hearts}, {9, Diamonds}, {9, Clubs}, {2, Spades}}, TwoPair},
		{[]Card{{Jack, Spades}, {Jack, Hearts}, {2, Diamonds}, {5, Clubs}, {9, Spades}}, JacksOrBetter},
		{[]Card{{10, Spades}, {10, Hearts}, {2, Diamonds}, {5, Clubs}, {9, Spades}}, NoHand},
		{[]Card{{2, Spades}, {5, Hearts}, {7, Diamonds}, {Jack, Clubs}, {King, Spades}}, NoHand},
	}
	for _, tc := range cases {
		if got := EvaluatePokerHand(tc.hand); got != tc.want {
			t.Fatalf("EvaluatePokerHand(%v) = %s, want %s", tc.hand, got, tc.want)
		}
	}
}

func TestVideoPokerRedraw(t *testing.T) {
	// Dealt a jacks pair plus junk; holding the pair and redrawing keeps
	// jacks-or-better at worst.
	s := stackedShoe(
		Card{Jack, Spades}, Card{Jack, Hearts}, Card{2, Diamonds}, Card{5, Clubs}, Card{9, Spades},
		Card{3, Hearts}, Card{4, Hearts}, Card{8, Clubs},
	)
	res, err := resolveVideoPoker(10_000, [5]bool{true, true, false, false, false}, s, 0.01)
	if err != nil {
		t.Fatalf("video poker: %v", err)
	}
	if res.Final[0].Rank != Jack || res.Final[1].Rank != Jack {
		t.Fatalf("held cards replaced: %+v", res.Final)
	}
	if res.Hand != JacksOrBetter {
		t.Fatalf("hand = %s, want jacks_or_better", res.Hand)
	}
	// Paytable 1 pays (1+1)x less fee.
	if res.Payout != int64(float64(10_000)*2*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}
}

func TestSlotsPaysLines(t *testing.T) {
	// All draws at 0.0 land on cherry everywhere: five triple lines.
	res, err := Slots(10_000, rng.NewFixed(0.0), 0.01)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(res.Lines) != 5 {
		t.Fatalf("lines = %d, want 5", len(res.Lines))
	}
	perLine := int64(float64(10_000) * 2 * 0.99)
	if res.Payout != 5*perLine {
		t.Fatalf("payout = %d, want %d", res.Payout, 5*perLine)
	}
}

func TestSlotsCheapPairPaysNothing(t *testing.T) {
	// floor(cherry value 2 / 3) is zero, so a cherry pair pays nothing and
	// must not appear as a winning line. Build a grid with exactly one
	// leading pair per row by alternating draws.
	seq := []float64{
		0.0, 0.0, 0.5, // cherry cherry grape-ish
		0.99, 0.5, 0.0,
		0.5, 0.99, 0.0,
	}
	res, err := Slots(10_000, rng.NewFixed(seq...), 0.01)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	for _, l := range res.Lines {
		if l.Payout <= 0 {
			t.Fatalf("zero-payout line reported: %+v", l)
		}
	}
}

func TestSlotsTrailingPairPays(t *testing.T) {
	// Top row cherry bell bell: the pair sits on the right end of the line
	// and pays a third of the bell value. The rest of the grid is mixed
	// fruit with no other winning line.
	seq := []float64{
		0.0, 0.85, 0.85, // cherry bell bell
		0.78, 0.6, 0.3, // grape orange lemon
		0.3, 0.78, 0.0, // lemon grape cherry
	}
	res, err := Slots(10_000, rng.NewFixed(seq...), 0.01)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(res.Lines) != 1 {
		t.Fatalf("lines = %+v, want one bell pair", res.Lines)
	}
	l := res.Lines[0]
	if l.Name != "top" || l.Symbol != "bell" || l.Matched != 2 {
		t.Fatalf("line = %+v", l)
	}
	if want := int64(float64(10_000) * 3 * 0.99); res.Payout != want {
		t.Fatalf("payout = %d, want %d", res.Payout, want)
	}
}

func TestTheft(t *testing.T) {
	cfg := defaultTheftConfig()

	// Poor thief robbing a rich victim gets the stacked bonuses.
	res, err := Theft(1_000, 1_000_000, cfg, rng.NewFixed(0.0, 0.0))
	if err != nil {
		t.Fatalf("theft: %v", err)
	}
	if math.Abs(res.Chance-0.70) > 1e-9 {
		t.Fatalf("chance = %v, want 0.70", res.Chance)
	}
	if !res.Success {
		t.Fatal("low roll should succeed")
	}
	if res.Amount != int64(float64(1_000_000)*cfg.TheftMinSharePct) {
		t.Fatalf("amount = %d", res.Amount)
	}

	// The haul caps out against whales.
	res, err = Theft(1_000, 100_000_000, cfg, rng.NewFixed(0.0, 0.99))
	if err != nil {
		t.Fatalf("theft: %v", err)
	}
	if res.Amount != cfg.TheftCap {
		t.Fatalf("amount = %d, want cap %d", res.Amount, cfg.TheftCap)
	}

	// Broke victims are not valid targets.
	if _, err := Theft(1_000, cfg.TheftMinTarget-1, cfg, rng.NewFixed(0.0)); !errors.Is(err, ErrTargetTooPoor) {
		t.Fatalf("poor target err = %v", err)
	}
}

func TestDuel(t *testing.T) {
	res, err := Duel(10_000, rng.NewFixed(0.0), 0.01)
	if err != nil {
		t.Fatalf("duel: %v", err)
	}
	if !res.WinnerIsChallenger {
		t.Fatal("draw 0 should favor the challenger")
	}
	if res.Payout != int64(float64(20_000)*0.99) {
		t.Fatalf("payout = %d", res.Payout)
	}

	res, _ = Duel(10_000, rng.NewFixed(0.5), 0.01)
	if res.WinnerIsChallenger {
		t.Fatal("draw 1 should favor the opponent")
	}
}
