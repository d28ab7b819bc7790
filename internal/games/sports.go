package games

import "citycoin/internal/rng"

// Matchup is a fixed-odds two-team fixture. Win probabilities derive from
// the inverse odds, normalized, so longer odds really do hit less often.
type Matchup struct {
	ID       string  `json:"id"`
	Home     string  `json:"home"`
	Away     string  `json:"away"`
	HomeOdds float64 `json:"home_odds"`
	AwayOdds float64 `json:"away_odds"`
}

var Matchups = []Matchup{
	{ID: "dragons-tigers", Home: "Dragons", Away: "Tigers", HomeOdds: 1.8, AwayOdds: 2.2},
	{ID: "sharks-lions", Home: "Sharks", Away: "Lions", HomeOdds: 2.0, AwayOdds: 1.6},
	{ID: "eagles-wolves", Home: "Eagles", Away: "Wolves", HomeOdds: 1.7, AwayOdds: 2.1},
}

func MatchupByID(id string) (Matchup, bool) {
	for _, m := range Matchups {
		if m.ID == id {
			return m, true
		}
	}
	return Matchup{}, false
}

type SportsResult struct {
	Matchup Matchup `json:"matchup"`
	Pick    string  `json:"pick"`
	Winner  string  `json:"winner"`
	Win     bool    `json:"win"`
	Payout  int64   `json:"payout"`
}

// Sports settles a bet on one side of a matchup at that side's odds.
func Sports(stake int64, matchID, pick string, p rng.Provider, fee float64) (SportsResult, error) {
	if stake <= 0 {
		return SportsResult{}, ErrInvalidStake
	}
	m, ok := MatchupByID(matchID)
	if !ok {
		return SportsResult{}, ErrInvalidBet
	}
	if pick != m.Home && pick != m.Away {
		return SportsResult{}, ErrInvalidBet
	}

	pHome := 1 / m.HomeOdds
	pAway := 1 / m.AwayOdds
	winner := m.Home
	if p.Float64() >= pHome/(pHome+pAway) {
		winner = m.Away
	}

	res := SportsResult{Matchup: m, Pick: pick, Winner: winner, Win: winner == pick}
	if res.Win {
		odds := m.HomeOdds
		if pick == m.Away {
			odds = m.AwayOdds
		}
		res.Payout = payout(stake, odds, fee)
	}
	return res, nil
}
