// Package ledger holds the persistent balances and the mutation primitives
// every other package goes through. All money is int64 cents, crypto is
// int64 satoshis. A Store serializes mutations per account, which is what
// keeps stakes from being spent twice under concurrent play.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrGuildNotFound     = errors.New("guild not found")
	ErrGuildExists       = errors.New("guild name already taken")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnknownField      = errors.New("unknown balance field")
)

// Loan is an outstanding debt. Interest accrues daily on the principal and
// repayments settle interest before principal.
type Loan struct {
	Principal int64     `json:"principal"`
	Interest  int64     `json:"interest"`
	TakenAt   time.Time `json:"taken_at"`
	AccruedAt time.Time `json:"accrued_at"`
}

func (l *Loan) Outstanding() int64 {
	return l.Principal + l.Interest
}

type OwnedProperty struct {
	ID          string    `json:"id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// Account is one player's full economic state. The accrual timestamps
// record when each passive stream was last settled; the accrual engine
// brings them forward idempotently.
type Account struct {
	ID string `json:"id"`

	Cash   int64 `json:"cash"`
	Bank   int64 `json:"bank"`
	Stable int64 `json:"stable"`
	Staked int64 `json:"staked"`

	Crypto       int64 `json:"crypto"`
	CryptoStaked int64 `json:"crypto_staked"`
	Nodes        int   `json:"nodes"`

	BankAccruedAt   time.Time `json:"bank_accrued_at"`
	StakeAccruedAt  time.Time `json:"stake_accrued_at"`
	CryptoAccruedAt time.Time `json:"crypto_accrued_at"`
	NodesAccruedAt  time.Time `json:"nodes_accrued_at"`
	RentAccruedAt   time.Time `json:"rent_accrued_at"`

	Loan       *Loan           `json:"loan,omitempty"`
	Properties []OwnedProperty `json:"properties,omitempty"`

	LifetimeWagered int64     `json:"lifetime_wagered"`
	DailyLoss       int64     `json:"daily_loss"`
	LossWindowStart time.Time `json:"loss_window_start"`

	JobID       string    `json:"job_id,omitempty"`
	ShiftDay    string    `json:"shift_day,omitempty"`
	ShiftsToday int       `json:"shifts_today"`
	LastShiftAt time.Time `json:"last_shift_at"`
	LastTheftAt time.Time `json:"last_theft_at"`

	GuildID string `json:"guild_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPropertyID is the free housing every account starts with. It
// carries no rent; upgrades come from the property catalog.
const DefaultPropertyID = "shelter"

// NewAccount returns a fresh account with every accrual clock set to now so
// no passive income predates the account.
func NewAccount(id string, startingCash int64, now time.Time) *Account {
	return &Account{
		ID:              id,
		Cash:            startingCash,
		Properties:      []OwnedProperty{{ID: DefaultPropertyID, PurchasedAt: now}},
		BankAccruedAt:   now,
		StakeAccruedAt:  now,
		CryptoAccruedAt: now,
		NodesAccruedAt:  now,
		RentAccruedAt:   now,
		LossWindowStart: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (a *Account) DebitCash(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Cash < amount {
		return ErrInsufficientFunds
	}
	a.Cash -= amount
	return nil
}

func (a *Account) CreditCash(amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	a.Cash += amount
	return nil
}

func (a *Account) DebitBank(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Bank < amount {
		return ErrInsufficientFunds
	}
	a.Bank -= amount
	return nil
}

func (a *Account) DebitCrypto(sats int64) error {
	if sats <= 0 {
		return ErrInvalidAmount
	}
	if a.Crypto < sats {
		return ErrInsufficientFunds
	}
	a.Crypto -= sats
	return nil
}

// Adjust moves one named balance field by delta, in cents (satoshis for
// the crypto fields). The operator surface for grants and corrections; a
// debit past zero is refused rather than clamped.
func (a *Account) Adjust(field string, delta int64) error {
	var target *int64
	switch field {
	case "cash":
		target = &a.Cash
	case "bank":
		target = &a.Bank
	case "stable":
		target = &a.Stable
	case "staked":
		target = &a.Staked
	case "crypto":
		target = &a.Crypto
	case "crypto_staked":
		target = &a.CryptoStaked
	case "daily_loss":
		// A counter, not a balance; corrections clamp at zero instead of
		// failing.
		a.DailyLoss += delta
		if a.DailyLoss < 0 {
			a.DailyLoss = 0
		}
		return nil
	default:
		return ErrUnknownField
	}
	if *target+delta < 0 {
		return ErrInsufficientFunds
	}
	*target += delta
	return nil
}

// NetWorth values cash, bank, stakes and crypto holdings at the given
// crypto price (cents per whole coin). Loans subtract.
func (a *Account) NetWorth(cryptoPrice int64) int64 {
	n := a.Cash + a.Bank + a.Stable + a.Staked
	n += (a.Crypto + a.CryptoStaked) * cryptoPrice / 100_000_000
	if a.Loan != nil {
		n -= a.Loan.Outstanding()
	}
	return n
}

// RecordWager folds a resolved wager into the VIP and loss-cap counters.
// Net is payout minus stake; a negative net counts toward the daily loss
// window, which rolls over after 24 hours.
func (a *Account) RecordWager(stake, net int64, now time.Time) {
	a.LifetimeWagered += stake
	if now.Sub(a.LossWindowStart) >= 24*time.Hour {
		a.LossWindowStart = now
		a.DailyLoss = 0
	}
	if net < 0 {
		a.DailyLoss += -net
	}
}

// LossInWindow reports the accumulated loss for the current 24h window.
func (a *Account) LossInWindow(now time.Time) int64 {
	if now.Sub(a.LossWindowStart) >= 24*time.Hour {
		return 0
	}
	return a.DailyLoss
}

// Guild member ranks.
const (
	RankLeader  = "leader"
	RankOfficer = "officer"
	RankMember  = "member"
)

type Member struct {
	ID   string `json:"id"`
	Rank string `json:"rank"`
}

// WarState mirrors one active conflict onto both guilds so pair uniqueness
// is checked locally. A guild may fight several wars at once, but never two
// against the same opponent.
type WarState struct {
	OpponentID string    `json:"opponent_id"`
	DeclaredAt time.Time `json:"declared_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Alliance statuses.
const (
	AlliancePending = "pending"
	AllianceActive  = "active"
)

type AllianceState struct {
	OpponentID string    `json:"opponent_id"`
	Status     string    `json:"status"`
	ProposedBy string    `json:"proposed_by"`
	ProposedAt time.Time `json:"proposed_at"`
}

type DefenseState struct {
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Guild struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	OwnerID   string          `json:"owner_id"`
	Members   []Member        `json:"members"`
	Treasury  int64           `json:"treasury"`
	Level     int             `json:"level"`
	XP        int64           `json:"xp"`
	Wins      int             `json:"wins"`
	Losses    int             `json:"losses"`
	Wars      []WarState      `json:"wars,omitempty"`
	Alliances []AllianceState `json:"alliances,omitempty"`
	Defense   *DefenseState   `json:"defense,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *Guild) HasMember(accountID string) bool {
	for _, m := range g.Members {
		if m.ID == accountID {
			return true
		}
	}
	return false
}

func (g *Guild) RemoveMember(accountID string) {
	out := g.Members[:0]
	for _, m := range g.Members {
		if m.ID != accountID {
			out = append(out, m)
		}
	}
	g.Members = out
}

// WarWith returns the still-running war against the opponent, nil if none.
func (g *Guild) WarWith(opponentID string, now time.Time) *WarState {
	for i := range g.Wars {
		w := &g.Wars[i]
		if w.OpponentID == opponentID && now.Before(w.ExpiresAt) {
			return w
		}
	}
	return nil
}

// PruneWars drops expired wars.
func (g *Guild) PruneWars(now time.Time) {
	out := g.Wars[:0]
	for _, w := range g.Wars {
		if now.Before(w.ExpiresAt) {
			out = append(out, w)
		}
	}
	g.Wars = out
	if len(g.Wars) == 0 {
		g.Wars = nil
	}
}

// AllianceWith returns the pending or active alliance with the opponent,
// nil if none.
func (g *Guild) AllianceWith(opponentID string) *AllianceState {
	for i := range g.Alliances {
		if g.Alliances[i].OpponentID == opponentID {
			return &g.Alliances[i]
		}
	}
	return nil
}

func (g *Guild) RemoveAlliance(opponentID string) {
	out := g.Alliances[:0]
	for _, al := range g.Alliances {
		if al.OpponentID != opponentID {
			out = append(out, al)
		}
	}
	g.Alliances = out
	if len(g.Alliances) == 0 {
		g.Alliances = nil
	}
}

// ActiveDefense returns the unexpired defense, nil otherwise.
func (g *Guild) ActiveDefense(now time.Time) *DefenseState {
	if g.Defense == nil || !now.Before(g.Defense.ExpiresAt) {
		return nil
	}
	return g.Defense
}

// Store is the persistence surface. Mutate runs fn with exclusive access to
// the account and commits only when fn returns nil, so fn can debit, fail,
// and leave no trace. MutatePair does the same for two accounts at once.
type Store interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetOrCreateAccount(ctx context.Context, id string, startingCash int64) (*Account, error)
	Mutate(ctx context.Context, id string, fn func(*Account) error) (*Account, error)
	MutatePair(ctx context.Context, idA, idB string, fn func(a, b *Account) error) error
	ListAccounts(ctx context.Context) ([]*Account, error)

	GetGuild(ctx context.Context, id string) (*Guild, error)
	CreateGuild(ctx context.Context, g *Guild) error
	MutateGuild(ctx context.Context, id string, fn func(*Guild) error) (*Guild, error)
	MutateGuildPair(ctx context.Context, idA, idB string, fn func(a, b *Guild) error) error
	ListGuilds(ctx context.Context) ([]*Guild, error)
	DeleteGuild(ctx context.Context, id string) error

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}
