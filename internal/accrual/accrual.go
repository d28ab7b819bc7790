// Package accrual settles time-based income and interest: bank interest,
// staking yield, node income, property rent and loan interest. Settlement is
// idempotent; each stream keeps its own clock and only whole elapsed days
// pay out, with the remainder carried to the next settlement.
package accrual

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/worldevent"
)

const day = 24 * time.Hour

// settingBankInterestPct lets operators override the bank rate at runtime
// without a redeploy.
const settingBankInterestPct = "bank_interest_pct"

// Report lists what one settlement credited and charged, all in cents
// except CryptoYield which is satoshis.
type Report struct {
	BankInterest int64 `json:"bank_interest"`
	StakingYield int64 `json:"staking_yield"`
	CryptoYield  int64 `json:"crypto_yield"`
	NodeIncome   int64 `json:"node_income"`
	Rent         int64 `json:"rent"`
	LoanInterest int64 `json:"loan_interest"`
}

func (r Report) Empty() bool {
	return r == Report{}
}

// periodsSince returns the whole days elapsed since t and the clock advanced
// by exactly that many days, so fractional days are never lost or double
// counted.
func periodsSince(t, now time.Time) (int64, time.Time) {
	if !now.After(t) {
		return 0, t
	}
	n := int64(now.Sub(t) / day)
	return n, t.Add(time.Duration(n) * day)
}

// Rates are the effective accrual rates for one settlement, after any
// runtime overrides.
type Rates struct {
	BankDaily        float64
	StakingDaily     float64
	CryptoDaily      float64
	LoanDaily        float64
	NodeDailyYield   int64
	NodeDailyCost    int64
	RentPerDayByProp map[string]int64
}

func RatesFrom(cfg config.Config) Rates {
	rents := make(map[string]int64, len(cfg.Properties))
	for _, p := range cfg.Properties {
		rents[p.ID] = p.RentPerDay
	}
	return Rates{
		BankDaily:        cfg.Economy.BankInterestDaily,
		StakingDaily:     cfg.Economy.StakingDailyYield,
		CryptoDaily:      cfg.Crypto.StakingDailyYield,
		LoanDaily:        cfg.Economy.LoanInterestDaily,
		NodeDailyYield:   cfg.Crypto.NodeDailyYield,
		NodeDailyCost:    cfg.Crypto.NodeDailyCost,
		RentPerDayByProp: rents,
	}
}

// ScaledBy applies a world event's multipliers and returns the adjusted
// rates. The receiver is not modified.
func (r Rates) ScaledBy(spec config.EventSpec) Rates {
	s := r
	s.BankDaily *= spec.BankRateMultiplier()
	s.LoanDaily *= spec.LoanRateMultiplier()
	s.StakingDaily *= spec.StakingMultiplier()
	s.CryptoDaily *= spec.StakingMultiplier()
	rm := spec.RentMultiplier()
	if rm != 1 && len(r.RentPerDayByProp) > 0 {
		s.RentPerDayByProp = make(map[string]int64, len(r.RentPerDayByProp))
		for id, v := range r.RentPerDayByProp {
			s.RentPerDayByProp[id] = int64(float64(v) * rm)
		}
	}
	return s
}

// Settle brings every accrual clock on a forward to now and returns what
// changed. The per-day amount is floored once and multiplied by the number
// of days, and interest pays into cash (the yielding balance stays fixed),
// so settling daily or after a week credits the same total.
func Settle(a *ledger.Account, r Rates, now time.Time) Report {
	var rep Report

	if n, t := periodsSince(a.BankAccruedAt, now); n > 0 {
		perDay := int64(float64(a.Bank) * r.BankDaily)
		rep.BankInterest = n * perDay
		a.Cash += rep.BankInterest
		a.BankAccruedAt = t
	} else {
		a.BankAccruedAt = t
	}

	if n, t := periodsSince(a.StakeAccruedAt, now); n > 0 {
		perDay := int64(float64(a.Staked) * r.StakingDaily)
		rep.StakingYield = n * perDay
		a.Cash += rep.StakingYield
		a.StakeAccruedAt = t
	} else {
		a.StakeAccruedAt = t
	}

	if n, t := periodsSince(a.CryptoAccruedAt, now); n > 0 {
		perDay := int64(float64(a.CryptoStaked) * r.CryptoDaily)
		rep.CryptoYield = n * perDay
		a.Crypto += rep.CryptoYield
		a.CryptoAccruedAt = t
	} else {
		a.CryptoAccruedAt = t
	}

	if n, t := periodsSince(a.NodesAccruedAt, now); n > 0 {
		perDay := (r.NodeDailyYield - r.NodeDailyCost) * int64(a.Nodes)
		rep.NodeIncome = n * perDay
		a.Cash += rep.NodeIncome
		a.NodesAccruedAt = t
	} else {
		a.NodesAccruedAt = t
	}

	if n, t := periodsSince(a.RentAccruedAt, now); n > 0 {
		var perDay int64
		for _, p := range a.Properties {
			perDay += r.RentPerDayByProp[p.ID]
		}
		rep.Rent = n * perDay
		a.Cash += rep.Rent
		a.RentAccruedAt = t
	} else {
		a.RentAccruedAt = t
	}

	if a.Loan != nil {
		if n, t := periodsSince(a.Loan.AccruedAt, now); n > 0 {
			perDay := int64(float64(a.Loan.Principal) * r.LoanDaily)
			rep.LoanInterest = n * perDay
			a.Loan.Interest += rep.LoanInterest
			a.Loan.AccruedAt = t
		} else {
			a.Loan.AccruedAt = t
		}
	}

	return rep
}

// EventSource yields the world event in effect at now, nil when none runs.
type EventSource interface {
	Current(ctx context.Context, now time.Time) (*worldevent.Active, error)
}

// Engine settles accruals against the store, one account mutation each.
type Engine struct {
	store  ledger.Store
	cfg    config.Config
	events EventSource
	logger *slog.Logger
}

func NewEngine(store ledger.Store, cfg config.Config, events EventSource, logger *slog.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, events: events, logger: logger}
}

// effectiveRates applies runtime setting overrides and the active world
// event on top of the static configuration.
func (e *Engine) effectiveRates(ctx context.Context, now time.Time) Rates {
	r := RatesFrom(e.cfg)
	if raw, ok, err := e.store.GetSetting(ctx, settingBankInterestPct); err == nil && ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			r.BankDaily = v
		}
	}
	if e.events != nil {
		if a, err := e.events.Current(ctx, now); err != nil {
			e.logger.Warn("event lookup failed, using base rates", "error", err)
		} else if a != nil {
			r = r.ScaledBy(a.Spec)
		}
	}
	return r
}

// SettleAccount settles one account and returns the report.
func (e *Engine) SettleAccount(ctx context.Context, accountID string, now time.Time) (Report, error) {
	rates := e.effectiveRates(ctx, now)
	var rep Report
	_, err := e.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
		rep = Settle(a, rates, now)
		return nil
	})
	return rep, err
}

// SettleAll sweeps every account. Used by the worker; per-account failures
// are logged and skipped so one bad row cannot stall the sweep.
func (e *Engine) SettleAll(ctx context.Context, now time.Time) error {
	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return err
	}
	rates := e.effectiveRates(ctx, now)
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := acct.ID
		_, err := e.store.Mutate(ctx, id, func(a *ledger.Account) error {
			rep := Settle(a, rates, now)
			if !rep.Empty() {
				e.logger.Debug("accruals settled", "account", id,
					"bank", rep.BankInterest, "rent", rep.Rent, "nodes", rep.NodeIncome)
			}
			return nil
		})
		if err != nil {
			e.logger.Warn("accrual settle failed", "account", id, "error", err)
		}
	}
	return nil
}
