// Package casino applies the wager policy around the pure game resolvers:
// stake debit, payout credit, the VIP payout bonus, the daily loss cap and
// the anti-theft rules. Every wager settles inside a single store mutation
// so a failed resolution never leaves a debited stake behind.
package casino

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"citycoin/internal/config"
	"citycoin/internal/games"
	"citycoin/internal/ledger"
	"citycoin/internal/rng"
	"citycoin/internal/worldevent"
)

var (
	ErrLossCapExceeded = errors.New("daily loss cap reached")
	ErrTheftCooldown   = errors.New("theft on cooldown")
	ErrSelfTarget      = errors.New("cannot target yourself")
)

type Service struct {
	store  ledger.Store
	cfg    config.Config
	rand   rng.Provider
	events *worldevent.Engine
	logger *slog.Logger

	now func() time.Time
}

func NewService(store ledger.Store, cfg config.Config, rand rng.Provider, events *worldevent.Engine, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		rand:   rand,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PlayResult is the common settlement envelope. Detail carries the
// game-specific outcome for the API layer.
type PlayResult struct {
	Game    string `json:"game"`
	Stake   int64  `json:"stake"`
	Payout  int64  `json:"payout"`
	Net     int64  `json:"net"`
	Balance int64  `json:"balance"`
	VIPTier string `json:"vip_tier,omitempty"`
	Proof   string `json:"proof"`
	Detail  any    `json:"detail"`
}

// vipBonus applies the player's tier bonus to a winning payout. Pushes and
// losses are untouched so the bonus never softens a loss.
func vipBonus(payout, totalStake int64, tier config.VIPTier) int64 {
	if payout <= totalStake || tier.Bonus <= 0 {
		return payout
	}
	return payout + int64(float64(payout)*tier.Bonus)
}

func (s *Service) checkLossCap(ctx context.Context, a *ledger.Account, stake int64, now time.Time) error {
	if !s.cfg.Casino.LossCapEnabled {
		return nil
	}
	mult, err := s.events.LossCapMultiplier(ctx, now)
	if err != nil {
		return err
	}
	cap := int64(float64(s.cfg.Casino.DailyLossCap) * mult)
	if a.LossInWindow(now)+stake > cap {
		return ErrLossCapExceeded
	}
	return nil
}

// outcome is implemented by every game resolution run through play. Extra
// stake raised during play (a blackjack double) is reported so the wager
// counters and the refund-on-push math stay honest.
type outcome struct {
	payout     int64
	totalStake int64
	summary    string
	detail     any
}

// play runs one wager: debit the stake, resolve, credit the payout, update
// the VIP and loss counters. All inside one mutation, so resolver errors
// roll the debit back.
func (s *Service) play(ctx context.Context, accountID, game string, stake int64, resolve func(fee float64, a *ledger.Account) (outcome, error)) (PlayResult, error) {
	if stake <= 0 {
		return PlayResult{}, games.ErrInvalidStake
	}
	now := s.now()

	var res PlayResult
	_, err := s.store.Mutate(ctx, accountID, func(a *ledger.Account) error {
		if err := s.checkLossCap(ctx, a, stake, now); err != nil {
			return err
		}
		tier := s.cfg.Casino.TierFor(a.LifetimeWagered)
		if err := a.DebitCash(stake); err != nil {
			return err
		}
		out, err := resolve(s.cfg.Casino.FeePct, a)
		if err != nil {
			return err
		}
		if out.totalStake == 0 {
			out.totalStake = stake
		}
		if extra := out.totalStake - stake; extra > 0 {
			if err := a.DebitCash(extra); err != nil {
				return err
			}
		}
		out.payout = vipBonus(out.payout, out.totalStake, tier)
		if err := a.CreditCash(out.payout); err != nil {
			return err
		}
		net := out.payout - out.totalStake
		a.RecordWager(out.totalStake, net, now)

		res = PlayResult{
			Game:    game,
			Stake:   out.totalStake,
			Payout:  out.payout,
			Net:     net,
			Balance: a.Cash,
			VIPTier: tier.Name,
			Proof:   rng.Proof(accountID, now.UnixMilli(), out.summary),
			Detail:  out.detail,
		}
		return nil
	})
	if err != nil {
		return PlayResult{}, err
	}
	s.logger.Info("wager settled", "game", game, "account", accountID,
		"stake", res.Stake, "payout", res.Payout)
	return res, nil
}

func (s *Service) PlayFlip(ctx context.Context, accountID string, stake int64, guess string) (PlayResult, error) {
	return s.play(ctx, accountID, "flip", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Flip(stake, guess, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "flip:" + r.Landed, detail: r}, nil
	})
}

func (s *Service) PlayDice(ctx context.Context, accountID string, stake int64, threshold int) (PlayResult, error) {
	return s.play(ctx, accountID, "dice", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Dice(stake, threshold, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "dice:" + strconv.Itoa(r.Roll), detail: r}, nil
	})
}

func (s *Service) PlaySports(ctx context.Context, accountID string, stake int64, matchID, pick string) (PlayResult, error) {
	return s.play(ctx, accountID, "sports", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Sports(stake, matchID, pick, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "sports:" + r.Winner, detail: r}, nil
	})
}

func (s *Service) PlayBlackjack(ctx context.Context, accountID string, stake int64, actions []games.BlackjackAction) (PlayResult, error) {
	return s.play(ctx, accountID, "blackjack", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Blackjack(stake, actions, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, totalStake: r.TotalStake, summary: "blackjack:" + string(r.Outcome), detail: r}, nil
	})
}

func (s *Service) PlayBaccarat(ctx context.Context, accountID string, stake int64, bet games.BaccaratBet) (PlayResult, error) {
	return s.play(ctx, accountID, "baccarat", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Baccarat(stake, bet, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "baccarat:" + r.Winner, detail: r}, nil
	})
}

func (s *Service) PlayVideoPoker(ctx context.Context, accountID string, stake int64, holds [5]bool) (PlayResult, error) {
	return s.play(ctx, accountID, "videopoker", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.VideoPoker(stake, holds, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "videopoker:" + string(r.Hand), detail: r}, nil
	})
}

func (s *Service) PlayRoulette(ctx context.Context, accountID string, stake int64, bet string) (PlayResult, error) {
	return s.play(ctx, accountID, "roulette", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Roulette(stake, bet, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "roulette:" + strconv.Itoa(r.Pocket), detail: r}, nil
	})
}

func (s *Service) PlaySlots(ctx context.Context, accountID string, stake int64) (PlayResult, error) {
	return s.play(ctx, accountID, "slots", stake, func(fee float64, _ *ledger.Account) (outcome, error) {
		r, err := games.Slots(stake, s.rand, fee)
		if err != nil {
			return outcome{}, err
		}
		return outcome{payout: r.Payout, summary: "slots", detail: r}, nil
	})
}

// Steal attempts a robbery. The attempt fee is spent win or lose; a hit
// moves a slice of the victim's carried cash into the thief's pocket, all
// in one pair mutation.
func (s *Service) Steal(ctx context.Context, thiefID, victimID string) (games.TheftResult, error) {
	if thiefID == victimID {
		return games.TheftResult{}, ErrSelfTarget
	}
	now := s.now()
	price := s.events.CryptoPrice()

	var res games.TheftResult
	err := s.store.MutatePair(ctx, thiefID, victimID, func(thief, victim *ledger.Account) error {
		if now.Sub(thief.LastTheftAt) < s.cfg.Casino.TheftCooldown {
			return ErrTheftCooldown
		}
		if err := thief.DebitCash(s.cfg.Casino.TheftCost); err != nil {
			return err
		}
		r, err := games.Theft(thief.NetWorth(price), victim.Cash, s.cfg.Casino, s.rand)
		if err != nil {
			return err
		}
		thief.LastTheftAt = now
		if r.Success {
			if err := victim.DebitCash(r.Amount); err != nil {
				return err
			}
			if err := thief.CreditCash(r.Amount); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		return games.TheftResult{}, err
	}
	s.logger.Info("theft attempted", "thief", thiefID, "victim", victimID,
		"success", res.Success, "amount", res.Amount)
	return res, nil
}

// DuelResult is the settled duel from the challenger's point of view.
type DuelResult struct {
	Challenger string `json:"challenger"`
	Opponent   string `json:"opponent"`
	WinnerID   string `json:"winner_id"`
	Stake      int64  `json:"stake"`
	Payout     int64  `json:"payout"`
	Proof      string `json:"proof"`
}

// Duel stakes both players equally and pays the pot to the coin's choice.
func (s *Service) Duel(ctx context.Context, challengerID, opponentID string, stake int64) (DuelResult, error) {
	if challengerID == opponentID {
		return DuelResult{}, ErrSelfTarget
	}
	if stake <= 0 {
		return DuelResult{}, games.ErrInvalidStake
	}
	now := s.now()

	var res DuelResult
	err := s.store.MutatePair(ctx, challengerID, opponentID, func(ch, op *ledger.Account) error {
		if err := s.checkLossCap(ctx, ch, stake, now); err != nil {
			return err
		}
		if err := s.checkLossCap(ctx, op, stake, now); err != nil {
			return err
		}
		if err := ch.DebitCash(stake); err != nil {
			return err
		}
		if err := op.DebitCash(stake); err != nil {
			return err
		}
		r, err := games.Duel(stake, s.rand, s.cfg.Casino.FeePct)
		if err != nil {
			return err
		}
		winner, loser := ch, op
		if !r.WinnerIsChallenger {
			winner, loser = op, ch
		}
		if err := winner.CreditCash(r.Payout); err != nil {
			return err
		}
		winner.RecordWager(stake, r.Payout-stake, now)
		loser.RecordWager(stake, -stake, now)

		res = DuelResult{
			Challenger: challengerID,
			Opponent:   opponentID,
			WinnerID:   winner.ID,
			Stake:      stake,
			Payout:     r.Payout,
			Proof:      rng.Proof(challengerID, now.UnixMilli(), "duel:"+winner.ID),
		}
		return nil
	})
	if err != nil {
		return DuelResult{}, err
	}
	s.logger.Info("duel settled", "challenger", challengerID, "opponent", opponentID, "winner", res.WinnerID)
	return res, nil
}

