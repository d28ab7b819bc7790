// Package economy implements the non-casino money operations: banking,
// loans, transfers, jobs, the stable-swap desk, bitcity trading and
// staking, mining nodes and real estate. Every operation settles pending
// accruals on the touched account first so balances are always current at
// the moment they change hands.
package economy

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"citycoin/internal/accrual"
	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/money"
	"citycoin/internal/worldevent"
)

var (
	ErrLoanOutstanding = errors.New("an active loan is outstanding")
	ErrNoLoan          = errors.New("no active loan")
	ErrLoanTooLarge    = errors.New("loan exceeds the allowed principal")
	ErrRepayTooLarge   = errors.New("repayment exceeds the outstanding balance")
	ErrUnknownJob      = errors.New("unknown job")
	ErrShiftCooldown   = errors.New("shift cooldown active")
	ErrShiftsExhausted = errors.New("no shifts left today")
	ErrUnknownProperty = errors.New("unknown property")
	ErrAlreadyOwned    = errors.New("property already owned")
	ErrNotOwned        = errors.New("property not owned")
	ErrNotSellable     = errors.New("the starter housing cannot be sold")
	ErrTooManyNodes    = errors.New("node limit reached")
	ErrSelfTransfer    = errors.New("cannot transfer to yourself")
)

// resaleRate is what property and node sales return of the purchase price.
const resaleRate = 0.8

type Service struct {
	store  ledger.Store
	cfg    config.Config
	events *worldevent.Engine
	logger *slog.Logger

	now func() time.Time
}

func NewService(store ledger.Store, cfg config.Config, events *worldevent.Engine, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) rates(ctx context.Context, now time.Time) accrual.Rates {
	r := accrual.RatesFrom(s.cfg)
	if raw, ok, err := s.store.GetSetting(ctx, "bank_interest_pct"); err == nil && ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			r.BankDaily = v
		}
	}
	if s.events != nil {
		if a, err := s.events.Current(ctx, now); err == nil && a != nil {
			r = r.ScaledBy(a.Spec)
		}
	}
	return r
}

// mutate wraps store.Mutate with an accrual settlement up front.
func (s *Service) mutate(ctx context.Context, id string, fn func(a *ledger.Account) error) (*ledger.Account, error) {
	now := s.now()
	rates := s.rates(ctx, now)
	return s.store.Mutate(ctx, id, func(a *ledger.Account) error {
		accrual.Settle(a, rates, now)
		return fn(a)
	})
}

// Open returns the account, creating it with the starting balance on first
// sight, with accruals settled.
func (s *Service) Open(ctx context.Context, id string) (*ledger.Account, error) {
	if _, err := s.store.GetOrCreateAccount(ctx, id, s.cfg.Economy.StartingCash); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(*ledger.Account) error { return nil })
}

func (s *Service) Deposit(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCash(amount); err != nil {
			return err
		}
		a.Bank += amount
		return nil
	})
}

func (s *Service) Withdraw(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitBank(amount); err != nil {
			return err
		}
		a.Cash += amount
		return nil
	})
}

// TakeLoan opens a loan and credits the principal as cash. One loan at a
// time, capped by configuration.
func (s *Service) TakeLoan(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	now := s.now()
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if amount <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Loan != nil {
			return ErrLoanOutstanding
		}
		if amount > s.cfg.Economy.MaxLoanPrincipal {
			return ErrLoanTooLarge
		}
		a.Loan = &ledger.Loan{Principal: amount, TakenAt: now, AccruedAt: now}
		a.Cash += amount
		return nil
	})
}

// RepayLoan pays down the loan from cash, interest before principal. Paying
// more than the outstanding balance is rejected; a cleared loan is removed.
func (s *Service) RepayLoan(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if amount <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Loan == nil {
			return ErrNoLoan
		}
		if amount > a.Loan.Outstanding() {
			return ErrRepayTooLarge
		}
		if err := a.DebitCash(amount); err != nil {
			return err
		}
		paid := amount
		if paid >= a.Loan.Interest {
			paid -= a.Loan.Interest
			a.Loan.Interest = 0
		} else {
			a.Loan.Interest -= paid
			paid = 0
		}
		a.Loan.Principal -= paid
		if a.Loan.Outstanding() == 0 {
			a.Loan = nil
		}
		return nil
	})
}

// Transfer moves cash between players. The fee comes out of the amount, so
// the recipient receives amount less fee.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if fromID == toID {
		return ErrSelfTransfer
	}
	if amount <= 0 {
		return ledger.ErrInvalidAmount
	}
	fee := int64(float64(amount) * s.cfg.Economy.TransferFeePct)
	err := s.store.MutatePair(ctx, fromID, toID, func(from, to *ledger.Account) error {
		if err := from.DebitCash(amount); err != nil {
			return err
		}
		return to.CreditCash(amount - fee)
	})
	if err != nil {
		return err
	}
	s.logger.Info("transfer", "from", fromID, "to", toID, "amount", amount, "fee", fee)
	return nil
}

// ShiftResult is one paid shift.
type ShiftResult struct {
	Job        config.Job `json:"job"`
	Pay        int64      `json:"pay"`
	Multiplier float64    `json:"multiplier"`
	ShiftsLeft int        `json:"shifts_left"`
}

// Work clocks one shift at a job. Switching jobs is free; shifts share a
// daily quota and a cooldown regardless of the job worked. Event
// multipliers move the pay.
func (s *Service) Work(ctx context.Context, id, jobID string) (ShiftResult, error) {
	job, ok := s.cfg.JobByID(jobID)
	if !ok {
		return ShiftResult{}, ErrUnknownJob
	}
	now := s.now()
	mult, err := s.events.JobPayMultiplier(ctx, jobID, now)
	if err != nil {
		return ShiftResult{}, err
	}

	var res ShiftResult
	_, err = s.mutate(ctx, id, func(a *ledger.Account) error {
		day := now.Format("2006-01-02")
		if a.ShiftDay != day {
			a.ShiftDay = day
			a.ShiftsToday = 0
		}
		if a.ShiftsToday >= s.cfg.Economy.JobMaxShiftsPerDay {
			return ErrShiftsExhausted
		}
		if now.Sub(a.LastShiftAt) < s.cfg.Economy.JobCooldown {
			return ErrShiftCooldown
		}
		pay := int64(float64(job.Salary) * mult)
		a.Cash += pay
		a.JobID = jobID
		a.ShiftsToday++
		a.LastShiftAt = now
		res = ShiftResult{
			Job:        job,
			Pay:        pay,
			Multiplier: mult,
			ShiftsLeft: s.cfg.Economy.JobMaxShiftsPerDay - a.ShiftsToday,
		}
		return nil
	})
	return res, err
}

// SwapToStable converts cash into the stable balance at the DEX spread.
func (s *Service) SwapToStable(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCash(amount); err != nil {
			return err
		}
		a.Stable += int64(float64(amount) * (1 - s.cfg.Crypto.DexSpreadPct))
		return nil
	})
}

// SwapFromStable converts the stable balance back into cash, paying the
// spread again.
func (s *Service) SwapFromStable(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if amount <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Stable < amount {
			return ledger.ErrInsufficientFunds
		}
		a.Stable -= amount
		a.Cash += int64(float64(amount) * (1 - s.cfg.Crypto.DexSpreadPct))
		return nil
	})
}

// Stake moves cash into the yield-bearing stake.
func (s *Service) Stake(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCash(amount); err != nil {
			return err
		}
		a.Staked += amount
		return nil
	})
}

func (s *Service) Unstake(ctx context.Context, id string, amount int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if amount <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Staked < amount {
			return ledger.ErrInsufficientFunds
		}
		a.Staked -= amount
		a.Cash += amount
		return nil
	})
}

// TradeResult reports a bitcity buy or sell.
type TradeResult struct {
	Price    int64 `json:"price"`
	Satoshis int64 `json:"satoshis"`
	Cents    int64 `json:"cents"`
	Fee      int64 `json:"fee"`
}

// BuyCrypto spends cash on bitcity at the current price. The trading fee
// comes off the cash side before conversion.
func (s *Service) BuyCrypto(ctx context.Context, id string, cents int64) (TradeResult, error) {
	price := s.events.CryptoPrice()
	var res TradeResult
	_, err := s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCash(cents); err != nil {
			return err
		}
		fee := int64(float64(cents) * s.cfg.Crypto.TradingFeePct)
		sats := money.ToSatoshis(float64(cents-fee) / float64(price))
		a.Crypto += sats
		res = TradeResult{Price: price, Satoshis: sats, Cents: cents, Fee: fee}
		return nil
	})
	return res, err
}

// SellCrypto converts bitcity back to cash at the current price less the
// trading fee.
func (s *Service) SellCrypto(ctx context.Context, id string, sats int64) (TradeResult, error) {
	price := s.events.CryptoPrice()
	var res TradeResult
	_, err := s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCrypto(sats); err != nil {
			return err
		}
		gross := sats * price / money.SatoshisPerCoin
		fee := int64(float64(gross) * s.cfg.Crypto.TradingFeePct)
		a.Cash += gross - fee
		res = TradeResult{Price: price, Satoshis: sats, Cents: gross - fee, Fee: fee}
		return nil
	})
	return res, err
}

func (s *Service) StakeCrypto(ctx context.Context, id string, sats int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if err := a.DebitCrypto(sats); err != nil {
			return err
		}
		a.CryptoStaked += sats
		return nil
	})
}

func (s *Service) UnstakeCrypto(ctx context.Context, id string, sats int64) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if sats <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.CryptoStaked < sats {
			return ledger.ErrInsufficientFunds
		}
		a.CryptoStaked -= sats
		a.Crypto += sats
		return nil
	})
}

// BuyNodes purchases mining nodes up to the configured limit.
func (s *Service) BuyNodes(ctx context.Context, id string, n int) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if n <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Nodes+n > s.cfg.Crypto.MaxNodes {
			return ErrTooManyNodes
		}
		if err := a.DebitCash(int64(n) * s.cfg.Crypto.NodePrice); err != nil {
			return err
		}
		a.Nodes += n
		return nil
	})
}

// SellNodes decommissions nodes at the resale rate.
func (s *Service) SellNodes(ctx context.Context, id string, n int) (*ledger.Account, error) {
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		if n <= 0 {
			return ledger.ErrInvalidAmount
		}
		if a.Nodes < n {
			return ledger.ErrInsufficientFunds
		}
		a.Nodes -= n
		a.Cash += int64(float64(int64(n)*s.cfg.Crypto.NodePrice) * resaleRate)
		return nil
	})
}

// BuyProperty purchases a catalog property. Each property can be held once
// per account; rent starts accruing from the purchase.
func (s *Service) BuyProperty(ctx context.Context, id, propertyID string) (*ledger.Account, error) {
	prop, ok := s.cfg.PropertyByID(propertyID)
	if !ok {
		return nil, ErrUnknownProperty
	}
	now := s.now()
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		for _, p := range a.Properties {
			if p.ID == propertyID {
				return ErrAlreadyOwned
			}
		}
		if prop.Price > 0 {
			if err := a.DebitCash(prop.Price); err != nil {
				return err
			}
		}
		a.Properties = append(a.Properties, ledger.OwnedProperty{ID: propertyID, PurchasedAt: now})
		return nil
	})
}

// SellProperty sells an owned property back at the resale rate. The free
// starter housing cannot be sold.
func (s *Service) SellProperty(ctx context.Context, id, propertyID string) (*ledger.Account, error) {
	prop, ok := s.cfg.PropertyByID(propertyID)
	if !ok {
		return nil, ErrUnknownProperty
	}
	if propertyID == ledger.DefaultPropertyID {
		return nil, ErrNotSellable
	}
	return s.mutate(ctx, id, func(a *ledger.Account) error {
		idx := -1
		for i, p := range a.Properties {
			if p.ID == propertyID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotOwned
		}
		a.Properties = append(a.Properties[:idx], a.Properties[idx+1:]...)
		a.Cash += int64(float64(prop.Price) * resaleRate)
		return nil
	})
}

// LeaderboardEntry ranks players by net worth at the current bitcity price.
type LeaderboardEntry struct {
	AccountID string `json:"account_id"`
	NetWorth  int64  `json:"net_worth"`
}

// Jobs lists the jobs accounts can work shifts at.
func (s *Service) Jobs() []config.Job {
	return s.cfg.Jobs
}

// Properties lists the real estate catalog.
func (s *Service) Properties() []config.Property {
	return s.cfg.Properties
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	price := s.events.CryptoPrice()
	entries := make([]LeaderboardEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, LeaderboardEntry{AccountID: a.ID, NetWorth: a.NetWorth(price)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].NetWorth > entries[j].NetWorth })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
