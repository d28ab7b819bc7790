// Package guild manages player guilds and the conflicts between them. Wars
// are declared for a fixed window and fought through individual attacks
// whose odds come from guild power, with success clamped so no side is
// ever a sure thing.
package guild

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/rng"
)

var (
	ErrAlreadyMember  = errors.New("already in a guild")
	ErrNotMember      = errors.New("not a member of this guild")
	ErrNotOwner       = errors.New("only the guild leader can do that")
	ErrAlreadyAtWar   = errors.New("a war with this guild is already running")
	ErrNotAtWar       = errors.New("no active war with this guild")
	ErrSelfWar        = errors.New("a guild cannot target itself")
	ErrEmptyGuildName = errors.New("guild name required")
	ErrAllied         = errors.New("an alliance with this guild exists")
	ErrAllianceExists = errors.New("an alliance or proposal already exists")
	ErrNoProposal     = errors.New("no pending alliance proposal from them")
	ErrDefenseActive  = errors.New("a defense is already active")
	ErrUnknownAttack  = errors.New("unknown attack kind")
	ErrUnknownDefense = errors.New("unknown defense kind")
)

// Attack kinds.
const (
	AttackRaid      = "raid"
	AttackSabotage  = "sabotage"
	AttackEspionage = "espionage"
)

// Defense kinds.
const (
	DefenseFortify    = "fortify"
	DefenseCounterSpy = "counterspy"
	DefenseGuard      = "guard"
)

type Service struct {
	store  ledger.Store
	cfg    config.GuildConfig
	rand   rng.Provider
	logger *slog.Logger

	now func() time.Time
}

func NewService(store ledger.Store, cfg config.GuildConfig, rand rng.Provider, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		rand:   rand,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create founds a guild. The creation cost moves from the founder's cash
// into the new treasury and the founder becomes its leader.
func (s *Service) Create(ctx context.Context, ownerID, name string) (*ledger.Guild, error) {
	if name == "" {
		return nil, ErrEmptyGuildName
	}
	now := s.now()
	g := &ledger.Guild{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		Members:   []ledger.Member{{ID: ownerID, Rank: ledger.RankLeader}},
		Treasury:  s.cfg.CreationCost,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.store.Mutate(ctx, ownerID, func(a *ledger.Account) error {
		if a.GuildID != "" {
			return ErrAlreadyMember
		}
		if err := a.DebitCash(s.cfg.CreationCost); err != nil {
			return err
		}
		a.GuildID = g.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateGuild(ctx, g); err != nil {
		// Roll the founder back by hand; CreateGuild is outside the
		// account mutation.
		if _, rerr := s.store.Mutate(ctx, ownerID, func(a *ledger.Account) error {
			a.GuildID = ""
			a.Cash += s.cfg.CreationCost
			return nil
		}); rerr != nil {
			s.logger.Error("guild creation refund failed",
				"account", ownerID, "amount", s.cfg.CreationCost, "error", rerr)
		}
		return nil, err
	}
	s.logger.Info("guild created", "guild", g.ID, "name", name, "owner", ownerID)
	return g, nil
}

func (s *Service) Join(ctx context.Context, accountID, guildID string) error {
	_, err := s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
		if a.GuildID != "" {
			return ErrAlreadyMember
		}
		a.GuildID = guildID
		return nil
	})
	if err != nil {
		return err
	}
	_, err = s.store.MutateGuild(ctx, guildID, func(g *ledger.Guild) error {
		if !g.HasMember(accountID) {
			g.Members = append(g.Members, ledger.Member{ID: accountID, Rank: ledger.RankMember})
		}
		return nil
	})
	if err != nil {
		if _, rerr := s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
			a.GuildID = ""
			return nil
		}); rerr != nil {
			s.logger.Error("guild join rollback failed", "account", accountID, "error", rerr)
		}
	}
	return err
}

// Leave removes a member. The leader leaving disbands the guild and pays
// the treasury out to them; active wars block leaving on either path.
func (s *Service) Leave(ctx context.Context, accountID, guildID string) error {
	g, err := s.store.GetGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if !g.HasMember(accountID) {
		return ErrNotMember
	}
	now := s.now()
	g.PruneWars(now)
	if len(g.Wars) > 0 {
		return ErrAlreadyAtWar
	}

	if g.OwnerID == accountID {
		treasury := g.Treasury
		if err := s.store.DeleteGuild(ctx, guildID); err != nil {
			return err
		}
		for _, m := range g.Members {
			member := m.ID
			if _, merr := s.store.Mutate(ctx, member, func(a *ledger.Account) error {
				if a.GuildID == guildID {
					a.GuildID = ""
				}
				if member == accountID {
					a.Cash += treasury
				}
				return nil
			}); merr != nil {
				s.logger.Error("guild disband cleanup failed",
					"guild", guildID, "account", member, "error", merr)
			}
		}
		s.logger.Info("guild disbanded", "guild", guildID)
		return nil
	}

	if _, err := s.store.MutateGuild(ctx, guildID, func(g *ledger.Guild) error {
		g.RemoveMember(accountID)
		return nil
	}); err != nil {
		return err
	}
	_, err = s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
		if a.GuildID == guildID {
			a.GuildID = ""
		}
		return nil
	})
	return err
}

// Promote raises a member to officer. Leader only.
func (s *Service) Promote(ctx context.Context, ownerID, guildID, memberID string) error {
	_, err := s.store.MutateGuild(ctx, guildID, func(g *ledger.Guild) error {
		if g.OwnerID != ownerID {
			return ErrNotOwner
		}
		for i := range g.Members {
			if g.Members[i].ID == memberID {
				if g.Members[i].Rank == ledger.RankLeader {
					return ErrNotOwner
				}
				g.Members[i].Rank = ledger.RankOfficer
				return nil
			}
		}
		return ErrNotMember
	})
	return err
}

// DepositTreasury moves a member's cash into the guild treasury.
func (s *Service) DepositTreasury(ctx context.Context, accountID, guildID string, amount int64) error {
	g, err := s.store.GetGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if !g.HasMember(accountID) {
		return ErrNotMember
	}
	if _, err := s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
		return a.DebitCash(amount)
	}); err != nil {
		return err
	}
	_, err = s.store.MutateGuild(ctx, guildID, func(g *ledger.Guild) error {
		g.Treasury += amount
		return nil
	})
	if err != nil {
		s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
			a.Cash += amount
			return nil
		})
	}
	return err
}

// DeclareWar opens a fixed-duration conflict. The declaring guild pays the
// cost from its treasury; a pair can have only one running war, and allied
// guilds cannot fight.
func (s *Service) DeclareWar(ctx context.Context, attackerID, defenderID string) error {
	if attackerID == defenderID {
		return ErrSelfWar
	}
	now := s.now()
	expires := now.Add(s.cfg.WarDuration)
	err := s.store.MutateGuildPair(ctx, attackerID, defenderID, func(att, def *ledger.Guild) error {
		att.PruneWars(now)
		def.PruneWars(now)
		if att.WarWith(defenderID, now) != nil || def.WarWith(attackerID, now) != nil {
			return ErrAlreadyAtWar
		}
		if att.AllianceWith(defenderID) != nil {
			return ErrAllied
		}
		if att.Treasury < s.cfg.WarDeclareCost {
			return ledger.ErrInsufficientFunds
		}
		att.Treasury -= s.cfg.WarDeclareCost
		att.Wars = append(att.Wars, ledger.WarState{OpponentID: defenderID, DeclaredAt: now, ExpiresAt: expires})
		def.Wars = append(def.Wars, ledger.WarState{OpponentID: attackerID, DeclaredAt: now, ExpiresAt: expires})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("war declared", "attacker", attackerID, "defender", defenderID, "until", expires)
	return nil
}

// Intel is what a successful espionage run reveals.
type Intel struct {
	Treasury int64  `json:"treasury"`
	Level    int    `json:"level"`
	XP       int64  `json:"xp"`
	Members  int    `json:"members"`
	Defense  string `json:"defense,omitempty"`
}

// AttackResult reports one attack inside a war.
type AttackResult struct {
	Kind      string  `json:"kind"`
	Success   bool    `json:"success"`
	Chance    float64 `json:"chance"`
	Loot      int64   `json:"loot,omitempty"`
	XPRemoved int64   `json:"xp_removed,omitempty"`
	Intel     *Intel  `json:"intel,omitempty"`
	Proof     string  `json:"proof"`
}

// power scores a guild as level weight plus treasury weight. The divisor
// differs by side; the defender's is smaller.
func (s *Service) power(g *ledger.Guild, divisor int64) float64 {
	return float64(g.Level)*s.cfg.LevelWeight + float64(g.Treasury/divisor)
}

func (s *Service) clamp(p float64) float64 {
	if p < s.cfg.PowerClampLow {
		return s.cfg.PowerClampLow
	}
	if p > s.cfg.PowerClampHigh {
		return s.cfg.PowerClampHigh
	}
	return p
}

func (s *Service) applyLevel(g *ledger.Guild) {
	if g.XP < 0 {
		g.XP = 0
	}
	g.Level = 1 + int(g.XP/s.cfg.LevelXPThreshold)
}

// Attack fires one typed strike inside an active war. The attack cost
// leaves the attacker's treasury whether or not the strike lands.
func (s *Service) Attack(ctx context.Context, attackerID, defenderID, kind string) (AttackResult, error) {
	switch kind {
	case AttackRaid, AttackSabotage, AttackEspionage:
	default:
		return AttackResult{}, ErrUnknownAttack
	}
	if attackerID == defenderID {
		return AttackResult{}, ErrSelfWar
	}
	now := s.now()

	var out AttackResult
	err := s.store.MutateGuildPair(ctx, attackerID, defenderID, func(att, def *ledger.Guild) error {
		att.PruneWars(now)
		def.PruneWars(now)
		if att.WarWith(defenderID, now) == nil {
			return ErrNotAtWar
		}
		if att.Treasury < s.cfg.AttackCost {
			return ledger.ErrInsufficientFunds
		}
		att.Treasury -= s.cfg.AttackCost

		attPower := s.power(att, s.cfg.AttackTreasuryDiv)
		defPower := s.power(def, s.cfg.DefenseTreasuryDiv)
		defense := def.ActiveDefense(now)
		if defense != nil && defense.Kind == DefenseFortify {
			defPower *= s.cfg.FortifyPowerMult
		}

		p := 0.5
		if attPower+defPower > 0 {
			p = attPower / (attPower + defPower)
		}
		p = s.clamp(p)
		if kind == AttackEspionage && defense != nil && defense.Kind == DefenseCounterSpy {
			p -= s.cfg.CounterSpyCut
			if p < 0.01 {
				p = 0.01
			}
		}

		success := s.rand.Float64() < p
		out = AttackResult{
			Kind:    kind,
			Success: success,
			Chance:  p,
			Proof:   rng.Proof(att.ID, now.UnixMilli(), kind+":"+def.ID),
		}

		att.XP += s.cfg.XPPerAttack
		if success {
			att.XP += s.cfg.XPSuccessBonus
			att.Wins++
			def.Losses++
			switch kind {
			case AttackRaid:
				loot := int64(float64(def.Treasury) * s.cfg.RaidStealPct)
				if defense != nil && defense.Kind == DefenseGuard {
					loot -= int64(float64(loot) * s.cfg.GuardLootCut)
				}
				def.Treasury -= loot
				att.Treasury += loot
				out.Loot = loot
			case AttackSabotage:
				removed := int64(float64(def.XP) * s.cfg.SabotageXPPct)
				def.XP -= removed
				out.XPRemoved = removed
			case AttackEspionage:
				out.Intel = &Intel{
					Treasury: def.Treasury,
					Level:    def.Level,
					XP:       def.XP,
					Members:  len(def.Members),
				}
				if defense != nil {
					out.Intel.Defense = defense.Kind
				}
			}
		} else {
			att.Losses++
			def.Wins++
		}
		s.applyLevel(att)
		s.applyLevel(def)
		return nil
	})
	if err != nil {
		return AttackResult{}, err
	}

	s.logger.Info("guild attack", "attacker", attackerID, "defender", defenderID,
		"kind", kind, "success", out.Success, "chance", out.Chance)
	return out, nil
}

// Defend activates one typed, time-boxed defense. Only one runs at a time.
func (s *Service) Defend(ctx context.Context, guildID, kind string) error {
	switch kind {
	case DefenseFortify, DefenseCounterSpy, DefenseGuard:
	default:
		return ErrUnknownDefense
	}
	now := s.now()
	_, err := s.store.MutateGuild(ctx, guildID, func(g *ledger.Guild) error {
		if g.ActiveDefense(now) != nil {
			return ErrDefenseActive
		}
		if g.Treasury < s.cfg.DefenseCost {
			return ledger.ErrInsufficientFunds
		}
		g.Treasury -= s.cfg.DefenseCost
		g.Defense = &ledger.DefenseState{Kind: kind, ExpiresAt: now.Add(s.cfg.DefenseDuration)}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("guild defense raised", "guild", guildID, "kind", kind)
	return nil
}

// ProposeAlliance opens a pending alliance between two guilds. Rejected
// while a war or any existing alliance state links the pair.
func (s *Service) ProposeAlliance(ctx context.Context, proposerID, otherID string) error {
	if proposerID == otherID {
		return ErrSelfWar
	}
	now := s.now()
	err := s.store.MutateGuildPair(ctx, proposerID, otherID, func(a, b *ledger.Guild) error {
		a.PruneWars(now)
		b.PruneWars(now)
		if a.WarWith(otherID, now) != nil || b.WarWith(proposerID, now) != nil {
			return ErrAlreadyAtWar
		}
		if a.AllianceWith(otherID) != nil || b.AllianceWith(proposerID) != nil {
			return ErrAllianceExists
		}
		a.Alliances = append(a.Alliances, ledger.AllianceState{
			OpponentID: otherID, Status: ledger.AlliancePending, ProposedBy: proposerID, ProposedAt: now,
		})
		b.Alliances = append(b.Alliances, ledger.AllianceState{
			OpponentID: proposerID, Status: ledger.AlliancePending, ProposedBy: proposerID, ProposedAt: now,
		})
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("alliance proposed", "proposer", proposerID, "other", otherID)
	return nil
}

// AcceptAlliance flips a pending proposal to active. Only the guild that
// did not propose can accept.
func (s *Service) AcceptAlliance(ctx context.Context, accepterID, proposerID string) error {
	err := s.store.MutateGuildPair(ctx, accepterID, proposerID, func(acc, prop *ledger.Guild) error {
		al := acc.AllianceWith(proposerID)
		if al == nil || al.Status != ledger.AlliancePending || al.ProposedBy == acc.ID {
			return ErrNoProposal
		}
		al.Status = ledger.AllianceActive
		if mirror := prop.AllianceWith(accepterID); mirror != nil {
			mirror.Status = ledger.AllianceActive
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("alliance accepted", "accepter", accepterID, "proposer", proposerID)
	return nil
}
