package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAccountDebitCredit(t *testing.T) {
	a := NewAccount("u1", 10_000, time.Now())

	if err := a.DebitCash(2_500); err != nil {
		t.Fatalf("DebitCash: %v", err)
	}
	if a.Cash != 7_500 {
		t.Fatalf("cash = %d, want 7500", a.Cash)
	}
	if err := a.DebitCash(8_000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraft err = %v, want ErrInsufficientFunds", err)
	}
	if err := a.DebitCash(0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero debit err = %v, want ErrInvalidAmount", err)
	}
	if err := a.DebitCash(-5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative debit err = %v, want ErrInvalidAmount", err)
	}
}

func TestNewAccountStarterHousing(t *testing.T) {
	a := NewAccount("u1", 0, time.Now())
	if len(a.Properties) != 1 || a.Properties[0].ID != DefaultPropertyID {
		t.Fatalf("properties = %+v, want the starter housing", a.Properties)
	}
}

func TestAccountAdjust(t *testing.T) {
	a := NewAccount("u1", 10_000, time.Now())

	if err := a.Adjust("cash", 5_000); err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if a.Cash != 15_000 {
		t.Fatalf("cash = %d, want 15000", a.Cash)
	}
	if err := a.Adjust("bank", 2_000); err != nil || a.Bank != 2_000 {
		t.Fatalf("bank adjust: err=%v bank=%d", err, a.Bank)
	}
	if err := a.Adjust("crypto", 100_000_000); err != nil || a.Crypto != 100_000_000 {
		t.Fatalf("crypto adjust: err=%v crypto=%d", err, a.Crypto)
	}
	if err := a.Adjust("cash", -15_000); err != nil || a.Cash != 0 {
		t.Fatalf("cash down to zero: err=%v cash=%d", err, a.Cash)
	}

	// Debits past zero are refused, not clamped.
	if err := a.Adjust("bank", -2_001); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("overdraw err = %v, want ErrInsufficientFunds", err)
	}
	if a.Bank != 2_000 {
		t.Fatalf("bank moved on refused adjust: %d", a.Bank)
	}
	if err := a.Adjust("treasury", 100); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("unknown field err = %v, want ErrUnknownField", err)
	}

	// The loss counter clamps at zero rather than failing.
	a.DailyLoss = 500
	if err := a.Adjust("daily_loss", -1_000); err != nil {
		t.Fatalf("daily_loss adjust: %v", err)
	}
	if a.DailyLoss != 0 {
		t.Fatalf("daily_loss = %d, want 0", a.DailyLoss)
	}
}

func TestRecordWagerWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAccount("u1", 0, now)

	a.RecordWager(1_000, -400, now)
	a.RecordWager(500, 200, now.Add(time.Hour))
	if a.LifetimeWagered != 1_500 {
		t.Fatalf("lifetime wagered = %d, want 1500", a.LifetimeWagered)
	}
	if got := a.LossInWindow(now.Add(2 * time.Hour)); got != 400 {
		t.Fatalf("loss in window = %d, want 400", got)
	}

	// The window rolls over after 24h and old losses stop counting.
	later := now.Add(25 * time.Hour)
	if got := a.LossInWindow(later); got != 0 {
		t.Fatalf("loss after rollover = %d, want 0", got)
	}
	a.RecordWager(1_000, -100, later)
	if got := a.LossInWindow(later); got != 100 {
		t.Fatalf("loss in new window = %d, want 100", got)
	}
}

func TestMutateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if _, err := s.GetOrCreateAccount(ctx, "u1", 1_000); err != nil {
		t.Fatalf("create: %v", err)
	}

	wantErr := errors.New("boom")
	_, err := s.Mutate(ctx, "u1", func(a *Account) error {
		if err := a.DebitCash(1_000); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want boom", err)
	}

	a, err := s.GetAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Cash != 1_000 {
		t.Fatalf("cash after failed mutate = %d, want 1000", a.Cash)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if _, err := s.GetOrCreateAccount(ctx, "u1", 1_000); err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	var okCount int64
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Mutate(ctx, "u1", func(a *Account) error {
				return a.DebitCash(100)
			})
			if err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	a, _ := s.GetAccount(ctx, "u1")
	if a.Cash < 0 {
		t.Fatalf("cash went negative: %d", a.Cash)
	}
	if okCount != 10 {
		t.Fatalf("successful debits = %d, want exactly 10", okCount)
	}
	if a.Cash != 0 {
		t.Fatalf("cash = %d, want 0", a.Cash)
	}
}

func TestMutatePairConserves(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.GetOrCreateAccount(ctx, "a", 5_000)
	s.GetOrCreateAccount(ctx, "b", 5_000)

	// Opposite-order transfers running together must not deadlock and must
	// conserve the total.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = "b", "a"
			}
			s.MutatePair(ctx, from, to, func(f, t *Account) error {
				if err := f.DebitCash(100); err != nil {
					return err
				}
				return t.CreditCash(100)
			})
		}(i)
	}
	wg.Wait()

	a, _ := s.GetAccount(ctx, "a")
	b, _ := s.GetAccount(ctx, "b")
	if a.Cash+b.Cash != 10_000 {
		t.Fatalf("total = %d, want 10000", a.Cash+b.Cash)
	}
}

func TestGuildNameUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	now := time.Now().UTC()

	g := &Guild{ID: "g1", Name: "Night Market", OwnerID: "u1", Members: []Member{{ID: "u1", Rank: RankLeader}}, CreatedAt: now}
	if err := s.CreateGuild(ctx, g); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &Guild{ID: "g2", Name: "night market", OwnerID: "u2", CreatedAt: now}
	if err := s.CreateGuild(ctx, dup); !errors.Is(err, ErrGuildExists) {
		t.Fatalf("dup err = %v, want ErrGuildExists", err)
	}
}

func TestMutateReturnsClone(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	s.GetOrCreateAccount(ctx, "u1", 1_000)

	got, err := s.Mutate(ctx, "u1", func(a *Account) error {
		a.Properties = append(a.Properties, OwnedProperty{ID: "studio"})
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	got.Properties[0].ID = "tampered"
	got.Cash = 999_999

	a, _ := s.GetAccount(ctx, "u1")
	if a.Cash != 1_000 || a.Properties[0].ID != "studio" {
		t.Fatalf("stored account mutated through returned copy: %+v", a)
	}
}
