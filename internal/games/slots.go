package games

import "citycoin/internal/rng"

// slotSymbol weights skew the reels toward cheap fruit; value is the
// three-in-a-row multiplier.
type slotSymbol struct {
	Name   string
	Weight int
	Value  int64
}

var slotSymbols = []slotSymbol{
	{"cherry", 30, 2},
	{"lemon", 25, 3},
	{"orange", 20, 4},
	{"grape", 15, 5},
	{"bell", 8, 10},
	{"star", 5, 15},
	{"diamond", 3, 25},
	{"jackpot", 1, 100},
}

var slotTotalWeight = func() int {
	t := 0
	for _, s := range slotSymbols {
		t += s.Weight
	}
	return t
}()

func drawSymbol(p rng.Provider) slotSymbol {
	n := p.Intn(slotTotalWeight)
	for _, s := range slotSymbols {
		n -= s.Weight
		if n < 0 {
			return s
		}
	}
	return slotSymbols[len(slotSymbols)-1]
}

type SlotLine struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Matched int    `json:"matched"`
	Payout  int64  `json:"payout"`
}

type SlotsResult struct {
	Grid   [3][3]string `json:"grid"`
	Lines  []SlotLine   `json:"lines,omitempty"`
	Payout int64        `json:"payout"`
}

// slotLines are the five paylines on the 3x3 grid: three rows and both
// diagonals, as (row, col) triples.
var slotLines = []struct {
	name  string
	cells [3][2]int
}{
	{"top", [3][2]int{{0, 0}, {0, 1}, {0, 2}}},
	{"middle", [3][2]int{{1, 0}, {1, 1}, {1, 2}}},
	{"bottom", [3][2]int{{2, 0}, {2, 1}, {2, 2}}},
	{"diag_down", [3][2]int{{0, 0}, {1, 1}, {2, 2}}},
	{"diag_up", [3][2]int{{2, 0}, {1, 1}, {0, 2}}},
}

// Slots spins a 3x3 grid of weighted symbols. Three matching symbols on a
// line pay the symbol's full value; an adjacent matching pair on either
// end pays a third of it. Line wins add up.
func Slots(stake int64, p rng.Provider, fee float64) (SlotsResult, error) {
	if stake <= 0 {
		return SlotsResult{}, ErrInvalidStake
	}

	var grid [3][3]slotSymbol
	var res SlotsResult
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			grid[r][c] = drawSymbol(p)
			res.Grid[r][c] = grid[r][c].Name
		}
	}

	for _, line := range slotLines {
		a := grid[line.cells[0][0]][line.cells[0][1]]
		b := grid[line.cells[1][0]][line.cells[1][1]]
		c := grid[line.cells[2][0]][line.cells[2][1]]

		switch {
		case a.Name == b.Name && b.Name == c.Name:
			win := payout(stake, float64(a.Value), fee)
			res.Lines = append(res.Lines, SlotLine{Name: line.name, Symbol: a.Name, Matched: 3, Payout: win})
			res.Payout += win
		case a.Name == b.Name:
			win := payout(stake, float64(a.Value/3), fee)
			if win > 0 {
				res.Lines = append(res.Lines, SlotLine{Name: line.name, Symbol: a.Name, Matched: 2, Payout: win})
				res.Payout += win
			}
		case b.Name == c.Name:
			win := payout(stake, float64(b.Value/3), fee)
			if win > 0 {
				res.Lines = append(res.Lines, SlotLine{Name: line.name, Symbol: b.Name, Matched: 2, Payout: win})
				res.Payout += win
			}
		}
	}
	return res, nil
}
