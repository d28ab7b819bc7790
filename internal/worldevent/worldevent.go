// Package worldevent drives the city-wide economic events and the bitcity
// price walk. State persists through the settings table so restarts pick up
// the running event and last price.
package worldevent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/rng"
)

const (
	settingActiveEvent = "worldevent_active"
	settingCryptoPrice = "crypto_price_cents"
)

// Active is the event currently in effect, if any.
type Active struct {
	Spec      config.EventSpec `json:"spec"`
	StartedAt time.Time        `json:"started_at"`
	EndsAt    time.Time        `json:"ends_at"`
}

type Engine struct {
	store  ledger.Store
	events config.EventsConfig
	crypto config.CryptoConfig
	rand   rng.Provider
	logger *slog.Logger

	mu      sync.Mutex
	current *Active
	price   int64
}

func New(store ledger.Store, cfg config.Config, rand rng.Provider, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		events: cfg.Events,
		crypto: cfg.Crypto,
		rand:   rand,
		logger: logger,
		price:  cfg.Crypto.StartPrice,
	}
}

// Load restores persisted state. Missing keys mean a fresh deployment.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if raw, ok, err := e.store.GetSetting(ctx, settingActiveEvent); err != nil {
		return fmt.Errorf("load active event: %w", err)
	} else if ok && raw != "" {
		var a Active
		if err := json.Unmarshal([]byte(raw), &a); err == nil {
			e.current = &a
		}
	}
	if raw, ok, err := e.store.GetSetting(ctx, settingCryptoPrice); err != nil {
		return fmt.Errorf("load crypto price: %w", err)
	} else if ok {
		var p int64
		if _, err := fmt.Sscanf(raw, "%d", &p); err == nil && p > 0 {
			e.price = p
		}
	}
	return nil
}

// Current returns the event in effect at now. Expired events are retired
// lazily on query; when none is running a fresh roll may start one.
func (e *Engine) Current(ctx context.Context, now time.Time) (*Active, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && now.Before(e.current.EndsAt) {
		a := *e.current
		return &a, nil
	}
	if e.current != nil {
		e.logger.Info("world event ended", "kind", e.current.Spec.Kind)
		e.current = nil
		if err := e.persistEvent(ctx); err != nil {
			return nil, err
		}
	}

	if len(e.events.Catalog) == 0 || e.rand.Float64() >= e.events.RollChance {
		return nil, nil
	}
	spec := e.events.Catalog[e.rand.Intn(len(e.events.Catalog))]
	extra := time.Duration(e.rand.Float64() * float64(e.events.MaxExtra))
	e.current = &Active{
		Spec:      spec,
		StartedAt: now,
		EndsAt:    now.Add(e.events.MinDuration + extra),
	}
	if err := e.persistEvent(ctx); err != nil {
		return nil, err
	}
	e.logger.Info("world event started", "kind", spec.Kind, "ends_at", e.current.EndsAt)
	a := *e.current
	return &a, nil
}

func (e *Engine) persistEvent(ctx context.Context) error {
	if e.current == nil {
		return e.store.SetSetting(ctx, settingActiveEvent, "")
	}
	raw, err := json.Marshal(e.current)
	if err != nil {
		return err
	}
	return e.store.SetSetting(ctx, settingActiveEvent, string(raw))
}

// JobPayMultiplier is the event-adjusted salary multiplier for a job.
func (e *Engine) JobPayMultiplier(ctx context.Context, jobID string, now time.Time) (float64, error) {
	a, err := e.Current(ctx, now)
	if err != nil {
		return 1, err
	}
	if a == nil {
		return 1, nil
	}
	return a.Spec.JobPayMultiplier(jobID), nil
}

// LossCapMultiplier is the event-adjusted multiplier on the daily loss cap.
func (e *Engine) LossCapMultiplier(ctx context.Context, now time.Time) (float64, error) {
	a, err := e.Current(ctx, now)
	if err != nil {
		return 1, err
	}
	if a == nil {
		return 1, nil
	}
	return a.Spec.LossCapMultiplier(), nil
}

// CryptoPrice is the current bitcity price in cents per whole coin.
func (e *Engine) CryptoPrice() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.price
}

// TickPrice advances the random walk one step and persists the new price.
// The relative move is uniform in [-StepPct, +StepPct], biased by the
// running event's crypto drift, clamped to the configured band. The walk
// only reads the running event; starting one stays the job of Current.
func (e *Engine) TickPrice(ctx context.Context, now time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	drift := 1.0
	if e.current != nil && now.Before(e.current.EndsAt) {
		drift = e.current.Spec.CryptoDriftMultiplier()
	}
	step := (e.rand.Float64()*2 - 1) * e.crypto.StepPct
	next := int64(math.Round(float64(e.price) * (1 + step) * drift))
	if next < e.crypto.MinPrice {
		next = e.crypto.MinPrice
	}
	if next > e.crypto.MaxPrice {
		next = e.crypto.MaxPrice
	}
	e.price = next
	if err := e.store.SetSetting(ctx, settingCryptoPrice, fmt.Sprintf("%d", next)); err != nil {
		return next, err
	}
	return next, nil
}
