package games

import (
	"errors"

	"citycoin/internal/config"
	"citycoin/internal/rng"
)

var ErrTargetTooPoor = errors.New("target does not carry enough cash")

type TheftResult struct {
	Success bool    `json:"success"`
	Chance  float64 `json:"chance"`
	Amount  int64   `json:"amount"`
}

// Theft rolls a robbery attempt. The base chance improves when the thief is
// much poorer than the victim; the haul is a random slice of the victim's
// carried cash, capped. Cooldowns and the attempt cost are enforced by the
// casino layer.
func Theft(thiefWealth, victimCash int64, cfg config.CasinoConfig, p rng.Provider) (TheftResult, error) {
	if victimCash < cfg.TheftMinTarget {
		return TheftResult{}, ErrTargetTooPoor
	}

	chance := cfg.TheftBaseChance
	if victimCash > 0 {
		ratio := float64(thiefWealth) / float64(victimCash)
		if ratio < 0.5 {
			chance += cfg.TheftPoorBonus
		}
		if ratio < 0.1 {
			chance += cfg.TheftDesperatePct
		}
	}
	if chance > 0.95 {
		chance = 0.95
	}

	res := TheftResult{Chance: chance}
	if p.Float64() >= chance {
		return res, nil
	}

	share := cfg.TheftMinSharePct + p.Float64()*(cfg.TheftMaxSharePct-cfg.TheftMinSharePct)
	amount := int64(float64(victimCash) * share)
	if amount > cfg.TheftCap {
		amount = cfg.TheftCap
	}
	if amount > victimCash {
		amount = victimCash
	}
	res.Success = true
	res.Amount = amount
	return res, nil
}
