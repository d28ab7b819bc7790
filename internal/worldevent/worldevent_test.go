package worldevent

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/rng"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCurrentRollsAndExpires(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Events.RollChance = 1.0
	store := ledger.NewMemStore()

	// First draw passes the roll check, second picks catalog index 0,
	// third sets the extra duration to zero.
	e := New(store, cfg, rng.NewFixed(0.0, 0.0, 0.0), testLogger())

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	a, err := e.Current(ctx, now)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if a == nil || a.Spec.Kind != cfg.Events.Catalog[0].Kind {
		t.Fatalf("active = %+v, want catalog[0]", a)
	}
	if !a.EndsAt.Equal(now.Add(cfg.Events.MinDuration)) {
		t.Fatalf("ends at %v, want %v", a.EndsAt, now.Add(cfg.Events.MinDuration))
	}

	// Still running an hour later.
	b, err := e.Current(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if b == nil || b.Spec.Kind != a.Spec.Kind {
		t.Fatalf("event changed mid-run: %+v", b)
	}
}

func TestCurrentNoRoll(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Events.RollChance = 0.25
	store := ledger.NewMemStore()
	e := New(store, cfg, rng.NewFixed(0.9), testLogger())

	a, err := e.Current(ctx, time.Now())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if a != nil {
		t.Fatalf("event started despite failed roll: %+v", a)
	}
}

func TestLoadRestoresState(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Events.RollChance = 1.0
	store := ledger.NewMemStore()

	e := New(store, cfg, rng.NewFixed(0.0, 0.0, 0.0), testLogger())
	now := time.Now().UTC().Truncate(time.Second)
	if _, err := e.Current(ctx, now); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if _, err := e.TickPrice(ctx, now); err != nil {
		t.Fatalf("TickPrice: %v", err)
	}
	price := e.CryptoPrice()

	e2 := New(store, cfg, rng.NewFixed(0.9), testLogger())
	if err := e2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e2.CryptoPrice() != price {
		t.Fatalf("restored price = %d, want %d", e2.CryptoPrice(), price)
	}
	a, err := e2.Current(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Current after load: %v", err)
	}
	if a == nil {
		t.Fatal("active event not restored")
	}
}

func TestTickPriceStaysInBand(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Crypto.StartPrice = cfg.Crypto.MinPrice
	store := ledger.NewMemStore()

	// Always draw the largest downward step.
	e := New(store, cfg, rng.NewFixed(0.0), testLogger())
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		p, err := e.TickPrice(ctx, now)
		if err != nil {
			t.Fatalf("TickPrice: %v", err)
		}
		if p < cfg.Crypto.MinPrice || p > cfg.Crypto.MaxPrice {
			t.Fatalf("price %d outside [%d, %d]", p, cfg.Crypto.MinPrice, cfg.Crypto.MaxPrice)
		}
	}
}

func TestTickPriceAppliesEventDrift(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	store := ledger.NewMemStore()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	// Draw 0.5 is a zero step, so only the event drift moves the price.
	e := New(store, cfg, rng.NewFixed(0.5), testLogger())
	e.current = &Active{
		Spec:      config.EventSpec{Kind: "bull_run", CryptoDriftMult: 1.03},
		StartedAt: now,
		EndsAt:    now.Add(24 * time.Hour),
	}

	p, err := e.TickPrice(ctx, now)
	if err != nil {
		t.Fatalf("TickPrice: %v", err)
	}
	want := int64(math.Round(float64(cfg.Crypto.StartPrice) * (1 + 0.0*cfg.Crypto.StepPct) * 1.03))
	if p != want {
		t.Fatalf("price = %d, want %d", p, want)
	}

	// Once the event is over the walk runs undriven again.
	p2, err := e.TickPrice(ctx, now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("TickPrice: %v", err)
	}
	if want2 := int64(math.Round(float64(p) * 1.0)); p2 != want2 {
		t.Fatalf("post-event price = %d, want %d", p2, want2)
	}
}
