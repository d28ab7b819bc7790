package config

import "time"

// Config holds every gameplay tunable. One value is built at startup by
// DefaultConfig, optionally tweaked from the environment, and passed down
// read-only. Per-deployment overrides that must survive restarts go through
// the settings table instead (see ledger.Store).
type Config struct {
	Economy EconomyConfig
	Casino  CasinoConfig
	Crypto  CryptoConfig
	Guild   GuildConfig
	Events  EventsConfig

	Properties []Property
	Jobs       []Job
}

type EconomyConfig struct {
	StartingCash      int64 // cents, opening balance for new accounts
	BankInterestDaily float64
	StakingDailyYield float64
	LoanInterestDaily float64
	MaxLoanPrincipal  int64 // cents
	TransferFeePct    float64

	JobMaxShiftsPerDay int
	JobCooldown        time.Duration
}

type CasinoConfig struct {
	FeePct float64 // house edge applied to every payout

	DailyLossCap    int64 // cents, per rolling 24h window
	LossCapEnabled  bool
	TheftCost       int64 // cents
	TheftMinTarget  int64 // cents of cash the victim must hold
	TheftCap        int64 // cents, largest single haul
	TheftCooldown   time.Duration
	TheftBaseChance float64
	// Success bonuses when the thief is poorer than the victim.
	TheftPoorBonus    float64 // thief/victim wealth below 1/2
	TheftDesperatePct float64 // thief/victim wealth below 1/10
	TheftMinSharePct  float64 // haul range as a share of victim cash
	TheftMaxSharePct  float64

	VIPTiers []VIPTier
}

// VIPTier grants a payout bonus once lifetime wagered volume crosses
// Threshold. Tiers must be sorted by ascending Threshold.
type VIPTier struct {
	Name      string
	Threshold int64   // lifetime wagered cents
	Bonus     float64 // added to payouts, e.g. 0.01 for +1%
}

type CryptoConfig struct {
	StartPrice    int64 // cents per whole coin
	MinPrice      int64
	MaxPrice      int64
	StepPct       float64 // max relative move per price tick
	TradingFeePct float64
	DexSpreadPct  float64

	StakingDailyYield float64 // applied to staked satoshis, per day

	NodePrice      int64 // cents
	NodeDailyYield int64 // cents per node per day
	NodeDailyCost  int64 // cents per node per day
	MaxNodes       int
}

type GuildConfig struct {
	CreationCost   int64 // cents, founder's cash seeds the treasury
	WarDeclareCost int64 // cents, from the declaring treasury
	WarDuration    time.Duration
	AttackCost     int64 // cents per attack, from the attacker treasury

	// Power = Level*LevelWeight + Treasury/divisor. The defender divisor is
	// smaller, which models the defensive bonus.
	LevelWeight        float64
	AttackTreasuryDiv  int64
	DefenseTreasuryDiv int64
	PowerClampLow      float64 // floor on underdog success probability
	PowerClampHigh     float64
	FortifyPowerMult   float64 // multiplies defender power while fortify runs

	RaidStealPct     float64 // share of defender treasury taken by a raid
	SabotageXPPct    float64 // share of defender XP removed by sabotage
	CounterSpyCut    float64 // subtracted from espionage success probability
	GuardLootCut     float64 // share of raid loot kept home while guard runs
	DefenseCost      int64   // cents per typed defense
	DefenseDuration  time.Duration
	XPPerAttack      int64 // granted for any attack
	XPSuccessBonus   int64 // extra on a successful attack
	LevelXPThreshold int64 // XP per level, level n needs n*threshold total
}

type EventsConfig struct {
	RollChance  float64 // probability a new event starts when none is active
	MinDuration time.Duration
	MaxExtra    time.Duration // uniform extra on top of MinDuration
	Catalog     []EventSpec
}

// EventSpec describes one city-wide economic event. Multipliers default to 1
// when zero so the catalog only states what an event changes.
type EventSpec struct {
	Kind            string  `json:"kind"`
	Name            string  `json:"name"`
	JobPayMult      float64 `json:"job_pay_mult,omitempty"`
	LossCapMult     float64 `json:"loss_cap_mult,omitempty"`
	CryptoDriftMult float64 `json:"crypto_drift_mult,omitempty"`
	RentMult        float64 `json:"rent_mult,omitempty"`
	BankRateMult    float64 `json:"bank_rate_mult,omitempty"`
	LoanRateMult    float64 `json:"loan_rate_mult,omitempty"`
	StakingMult     float64 `json:"staking_mult,omitempty"`
	// JobPayOverride applies a per-job multiplier on top of JobPayMult,
	// keyed by job ID. Used by pandemic-style events.
	JobPayOverride map[string]float64 `json:"job_pay_override,omitempty"`
}

type Property struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`        // cents
	RentPerDay int64  `json:"rent_per_day"` // cents of income per day
}

type Job struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Salary int64  `json:"salary"` // cents per shift
}

func DefaultConfig() Config {
	return Config{
		Economy: EconomyConfig{
			StartingCash:       100_000, // 1000 CTC
			BankInterestDaily:  0.003,
			StakingDailyYield:  0.005,
			LoanInterestDaily:  0.01,
			MaxLoanPrincipal:   1_000_000, // 10000 CTC
			TransferFeePct:     0.01,
			JobMaxShiftsPerDay: 3,
			JobCooldown:        30 * time.Minute,
		},
		Casino: CasinoConfig{
			FeePct:            0.01,
			DailyLossCap:      200_000, // 2000 CTC
			LossCapEnabled:    true,
			TheftCost:         20_000, // 200 CTC
			TheftMinTarget:    10_000, // 100 CTC
			TheftCap:          500_000,
			TheftCooldown:     time.Hour,
			TheftBaseChance:   0.30,
			TheftPoorBonus:    0.20,
			TheftDesperatePct: 0.20,
			TheftMinSharePct:  0.05,
			TheftMaxSharePct:  0.15,
			VIPTiers: []VIPTier{
				{Name: "bronze", Threshold: 1_000_000, Bonus: 0.01},
				{Name: "silver", Threshold: 5_000_000, Bonus: 0.02},
				{Name: "gold", Threshold: 20_000_000, Bonus: 0.03},
				{Name: "diamond", Threshold: 100_000_000, Bonus: 0.05},
			},
		},
		Crypto: CryptoConfig{
			StartPrice:        2_500_000, // 25000 CTC per bitcity
			MinPrice:          100_000,
			MaxPrice:          25_000_000,
			StepPct:           0.04,
			TradingFeePct:     0.002,
			DexSpreadPct:      0.005,
			StakingDailyYield: 0.0045,
			NodePrice:         50_000,
			NodeDailyYield:    2_500,
			NodeDailyCost:     500,
			MaxNodes:          25,
		},
		Guild: GuildConfig{
			CreationCost:   500_000, // 5000 CTC
			WarDeclareCost: 100_000, // 1000 CTC
			WarDuration:    48 * time.Hour,
			AttackCost:     25_000, // 250 CTC

			LevelWeight:        10,
			AttackTreasuryDiv:  10_000,
			DefenseTreasuryDiv: 8_000,
			PowerClampLow:      0.15,
			PowerClampHigh:     0.85,
			FortifyPowerMult:   1.5,

			RaidStealPct:     0.10,
			SabotageXPPct:    0.20,
			CounterSpyCut:    0.35,
			GuardLootCut:     0.50,
			DefenseCost:      50_000, // 500 CTC
			DefenseDuration:  12 * time.Hour,
			XPPerAttack:      10,
			XPSuccessBonus:   15,
			LevelXPThreshold: 100,
		},
		Events: EventsConfig{
			RollChance:  0.25,
			MinDuration: 24 * time.Hour,
			MaxExtra:    48 * time.Hour,
			Catalog: []EventSpec{
				{Kind: "bull_run", Name: "Bull Run", JobPayMult: 1.2, LossCapMult: 1.2,
					CryptoDriftMult: 1.03, BankRateMult: 1.25, StakingMult: 1.25},
				{Kind: "crash", Name: "Market Crash", JobPayMult: 0.9, LossCapMult: 0.8,
					CryptoDriftMult: 0.96, BankRateMult: 0.8, LoanRateMult: 1.2},
				{Kind: "pandemic", Name: "Pandemic", LossCapMult: 1.0, RentMult: 0.9, JobPayOverride: map[string]float64{
					"medic":   1.5,
					"courier": 1.2,
					"trader":  0.8,
				}},
				{Kind: "police_controls", Name: "Police Controls", LossCapMult: 0.5},
				{Kind: "shortage", Name: "Supply Shortage", JobPayMult: 1.1, RentMult: 1.2},
			},
		},
		Properties: []Property{
			{ID: "shelter", Name: "Shelter", Price: 0, RentPerDay: 0},
			{ID: "studio", Name: "Studio", Price: 500_000, RentPerDay: 2_000},
			{ID: "apartment", Name: "Apartment", Price: 1_500_000, RentPerDay: 7_000},
			{ID: "house", Name: "House", Price: 4_000_000, RentPerDay: 20_000},
			{ID: "villa", Name: "Villa", Price: 12_000_000, RentPerDay: 65_000},
			{ID: "tower", Name: "Downtown Tower", Price: 50_000_000, RentPerDay: 300_000},
		},
		Jobs: []Job{
			{ID: "courier", Name: "Courier", Salary: 12_000},
			{ID: "merchant", Name: "Merchant", Salary: 15_000},
			{ID: "trader", Name: "Trader", Salary: 18_000},
			{ID: "medic", Name: "Medic", Salary: 25_000},
		},
	}
}

// PropertyByID returns the catalog entry for id, or false when unknown.
func (c Config) PropertyByID(id string) (Property, bool) {
	for _, p := range c.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return Property{}, false
}

// JobByID returns the job for id, or false when unknown.
func (c Config) JobByID(id string) (Job, bool) {
	for _, j := range c.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}

// TierFor returns the highest VIP tier whose threshold lifetimeWagered has
// crossed. The empty tier means no VIP status yet.
func (c CasinoConfig) TierFor(lifetimeWagered int64) VIPTier {
	var best VIPTier
	for _, t := range c.VIPTiers {
		if lifetimeWagered >= t.Threshold {
			best = t
		}
	}
	return best
}

// Mult treats a zero multiplier as "unchanged".
func mult(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// JobPayMultiplier resolves the effective salary multiplier for jobID under
// this event.
func (e EventSpec) JobPayMultiplier(jobID string) float64 {
	m := mult(e.JobPayMult)
	if o, ok := e.JobPayOverride[jobID]; ok {
		m *= o
	}
	return m
}

// LossCapMultiplier resolves the effective daily loss cap multiplier.
func (e EventSpec) LossCapMultiplier() float64 {
	return mult(e.LossCapMult)
}

// CryptoDriftMultiplier biases the daily crypto price walk.
func (e EventSpec) CryptoDriftMultiplier() float64 {
	return mult(e.CryptoDriftMult)
}

// RentMultiplier scales property rent income.
func (e EventSpec) RentMultiplier() float64 {
	return mult(e.RentMult)
}

// BankRateMultiplier scales the daily bank interest rate.
func (e EventSpec) BankRateMultiplier() float64 {
	return mult(e.BankRateMult)
}

// LoanRateMultiplier scales the daily loan interest rate.
func (e EventSpec) LoanRateMultiplier() float64 {
	return mult(e.LoanRateMult)
}

// StakingMultiplier scales stablecoin and crypto staking yields.
func (e EventSpec) StakingMultiplier() float64 {
	return mult(e.StakingMult)
}
