package accrual

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/worldevent"
)

func testRates() Rates {
	return RatesFrom(config.DefaultConfig())
}

func TestSettleWholeDaysOnly(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	a := ledger.NewAccount("u1", 0, now)
	a.Bank = 100_000

	rep := Settle(a, testRates(), now.Add(23*time.Hour))
	if rep.BankInterest != 0 {
		t.Fatalf("interest before a full day = %d, want 0", rep.BankInterest)
	}

	rep = Settle(a, testRates(), now.Add(25*time.Hour))
	want := int64(float64(100_000) * 0.003)
	if rep.BankInterest != want {
		t.Fatalf("interest after one day = %d, want %d", rep.BankInterest, want)
	}
	// Interest lands in cash; the savings balance itself does not grow.
	if a.Cash != want || a.Bank != 100_000 {
		t.Fatalf("cash = %d bank = %d after settle", a.Cash, a.Bank)
	}
	// The clock advanced exactly one day, so the leftover hour still counts
	// toward the next period.
	if !a.BankAccruedAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("accrued-at = %v, want %v", a.BankAccruedAt, now.Add(24*time.Hour))
	}
}

func TestSettleCatchUpMatchesDaily(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rates := testRates()

	daily := ledger.NewAccount("daily", 0, now)
	daily.Bank = 123_456
	daily.Nodes = 3
	daily.Properties = []ledger.OwnedProperty{{ID: "house"}}

	weekly := ledger.NewAccount("weekly", 0, now)
	weekly.Bank = 123_456
	weekly.Nodes = 3
	weekly.Properties = []ledger.OwnedProperty{{ID: "house"}}

	for i := 1; i <= 7; i++ {
		Settle(daily, rates, now.Add(time.Duration(i)*24*time.Hour))
	}
	Settle(weekly, rates, now.Add(7*24*time.Hour))

	// The cadence of settlement must not change what is paid: interest
	// credits cash off a fixed base, so seven daily settles equal one
	// catch-up to the cent.
	if daily.Cash != weekly.Cash {
		t.Fatalf("cash: daily %d vs weekly %d", daily.Cash, weekly.Cash)
	}
	if daily.Bank != weekly.Bank {
		t.Fatalf("bank: daily %d vs weekly %d", daily.Bank, weekly.Bank)
	}
}

func TestSettleIdempotent(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	a := ledger.NewAccount("u1", 0, now)
	a.Bank = 50_000
	a.Nodes = 2

	later := now.Add(48 * time.Hour)
	Settle(a, testRates(), later)
	cash, bank := a.Cash, a.Bank

	rep := Settle(a, testRates(), later)
	if !rep.Empty() {
		t.Fatalf("second settle at same instant paid out: %+v", rep)
	}
	if a.Cash != cash || a.Bank != bank {
		t.Fatalf("balances moved on repeat settle")
	}
}

func TestSettleLoanInterest(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	a := ledger.NewAccount("u1", 0, now)
	a.Loan = &ledger.Loan{Principal: 100_000, TakenAt: now, AccruedAt: now}

	rep := Settle(a, testRates(), now.Add(3*24*time.Hour))
	want := 3 * int64(float64(100_000)*0.01)
	if rep.LoanInterest != want {
		t.Fatalf("loan interest = %d, want %d", rep.LoanInterest, want)
	}
	if a.Loan.Interest != want || a.Loan.Principal != 100_000 {
		t.Fatalf("loan after settle = %+v", a.Loan)
	}
}

func TestSettleNodeIncomeNet(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cfg := config.DefaultConfig()
	a := ledger.NewAccount("u1", 0, now)
	a.Nodes = 4

	rep := Settle(a, RatesFrom(cfg), now.Add(24*time.Hour))
	want := (cfg.Crypto.NodeDailyYield - cfg.Crypto.NodeDailyCost) * 4
	if rep.NodeIncome != want {
		t.Fatalf("node income = %d, want %d", rep.NodeIncome, want)
	}
	if a.Cash != want {
		t.Fatalf("cash = %d, want %d", a.Cash, want)
	}
}

func TestEngineBankRateOverride(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := store.GetOrCreateAccount(ctx, "u1", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Mutate(ctx, "u1", func(a *ledger.Account) error {
		a.Bank = 100_000
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.SetSetting(ctx, "bank_interest_pct", "0.01"); err != nil {
		t.Fatalf("set setting: %v", err)
	}

	e := NewEngine(store, cfg, nil, logger)
	a, _ := store.GetAccount(ctx, "u1")
	rep, err := e.SettleAccount(ctx, "u1", a.BankAccruedAt.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if rep.BankInterest != 1_000 {
		t.Fatalf("interest with override = %d, want 1000", rep.BankInterest)
	}
}

func TestRatesScaledByEvent(t *testing.T) {
	base := testRates()
	spec := config.EventSpec{
		BankRateMult: 2,
		LoanRateMult: 1.5,
		StakingMult:  1.25,
		RentMult:     0.5,
	}
	scaled := base.ScaledBy(spec)

	if scaled.BankDaily != base.BankDaily*2 {
		t.Fatalf("bank = %v, want doubled", scaled.BankDaily)
	}
	if scaled.LoanDaily != base.LoanDaily*1.5 {
		t.Fatalf("loan = %v", scaled.LoanDaily)
	}
	if scaled.StakingDaily != base.StakingDaily*1.25 || scaled.CryptoDaily != base.CryptoDaily*1.25 {
		t.Fatalf("staking = %v crypto = %v", scaled.StakingDaily, scaled.CryptoDaily)
	}
	if want := int64(float64(base.RentPerDayByProp["house"]) * 0.5); scaled.RentPerDayByProp["house"] != want {
		t.Fatalf("house rent = %d, want %d", scaled.RentPerDayByProp["house"], want)
	}
	// The base map is untouched.
	if base.RentPerDayByProp["house"] != testRates().RentPerDayByProp["house"] {
		t.Fatalf("base rent mutated")
	}

	// An empty spec leaves everything alone.
	same := base.ScaledBy(config.EventSpec{})
	if same.BankDaily != base.BankDaily || same.RentPerDayByProp["house"] != base.RentPerDayByProp["house"] {
		t.Fatalf("empty event changed rates")
	}
}

type fixedEvents struct{ a *worldevent.Active }

func (f fixedEvents) Current(context.Context, time.Time) (*worldevent.Active, error) {
	return f.a, nil
}

func TestEngineEventScalesRates(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemStore()
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := store.GetOrCreateAccount(ctx, "u1", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Mutate(ctx, "u1", func(a *ledger.Account) error {
		a.Bank = 100_000
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	events := fixedEvents{a: &worldevent.Active{
		Spec:   config.EventSpec{Kind: "bull_run", BankRateMult: 2},
		EndsAt: now.Add(24 * time.Hour),
	}}
	e := NewEngine(store, cfg, events, logger)

	a, _ := store.GetAccount(ctx, "u1")
	rep, err := e.SettleAccount(ctx, "u1", a.BankAccruedAt.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := int64(float64(100_000) * (cfg.Economy.BankInterestDaily * 2))
	if rep.BankInterest != want {
		t.Fatalf("interest under event = %d, want %d", rep.BankInterest, want)
	}
}
