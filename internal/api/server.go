// Package api exposes the city economy over HTTP. Identity comes from the
// X-Account-ID header; the chat gateway in front of this service owns real
// authentication, so the API trusts the header the way a backend trusts its
// own edge.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"citycoin/internal/casino"
	"citycoin/internal/economy"
	"citycoin/internal/games"
	"citycoin/internal/guild"
	"citycoin/internal/ledger"
	"citycoin/internal/worldevent"
)

type contextKey string

const accountContextKey contextKey = "account"

type Server struct {
	log     *slog.Logger
	economy *economy.Service
	casino  *casino.Service
	guilds  *guild.Service
	events  *worldevent.Engine
	store   ledger.Store
	mux     *chi.Mux
}

func New(logger *slog.Logger, econ *economy.Service, cas *casino.Service, guilds *guild.Service, events *worldevent.Engine, store ledger.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		economy: econ,
		casino:  cas,
		guilds:  guilds,
		events:  events,
		store:   store,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/events/current", s.handleCurrentEvent)
		r.Get("/crypto/price", s.handleCryptoPrice)
		r.Get("/jobs", s.handleJobsList)
		r.Get("/properties", s.handlePropertiesList)
		r.Get("/matchups", s.handleMatchups)
		r.Get("/guilds", s.handleGuildList)
		r.Get("/guilds/{id}", s.handleGuildGet)

		r.Group(func(r chi.Router) {
			r.Use(s.accountMiddleware)

			r.Post("/accounts/open", s.handleOpen)
			r.Get("/accounts/me", s.handleBalance)

			r.Post("/bank/deposit", s.handleDeposit)
			r.Post("/bank/withdraw", s.handleWithdraw)
			r.Post("/loans", s.handleTakeLoan)
			r.Post("/loans/repay", s.handleRepayLoan)
			r.Post("/transfers", s.handleTransfer)
			r.Post("/jobs/work", s.handleWork)

			r.Post("/dex/to-stable", s.handleSwapToStable)
			r.Post("/dex/from-stable", s.handleSwapFromStable)
			r.Post("/staking/stake", s.handleStake)
			r.Post("/staking/unstake", s.handleUnstake)

			r.Post("/crypto/buy", s.handleBuyCrypto)
			r.Post("/crypto/sell", s.handleSellCrypto)
			r.Post("/crypto/stake", s.handleStakeCrypto)
			r.Post("/crypto/unstake", s.handleUnstakeCrypto)
			r.Post("/nodes/buy", s.handleBuyNodes)
			r.Post("/nodes/sell", s.handleSellNodes)
			r.Post("/properties/buy", s.handleBuyProperty)
			r.Post("/properties/sell", s.handleSellProperty)

			r.Post("/casino/flip", s.handleFlip)
			r.Post("/casino/dice", s.handleDice)
			r.Post("/casino/sports", s.handleSports)
			r.Post("/casino/blackjack", s.handleBlackjack)
			r.Post("/casino/baccarat", s.handleBaccarat)
			r.Post("/casino/videopoker", s.handleVideoPoker)
			r.Post("/casino/roulette", s.handleRoulette)
			r.Post("/casino/slots", s.handleSlots)
			r.Post("/casino/steal", s.handleSteal)
			r.Post("/casino/duel", s.handleDuel)

			r.Post("/guilds", s.handleGuildCreate)
			r.Post("/guilds/{id}/join", s.handleGuildJoin)
			r.Post("/guilds/{id}/leave", s.handleGuildLeave)
			r.Post("/guilds/{id}/treasury", s.handleGuildTreasury)
			r.Post("/guilds/{id}/promote", s.handleGuildPromote)
			r.Post("/guilds/{id}/war", s.handleDeclareWar)
			r.Post("/guilds/{id}/attack", s.handleGuildAttack)
			r.Post("/guilds/{id}/defend", s.handleGuildDefend)
			r.Post("/guilds/{id}/alliance", s.handleProposeAlliance)
			r.Post("/guilds/{id}/alliance/accept", s.handleAcceptAlliance)
		})
	})
}

func (s *Server) accountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Account-ID"))
		if id == "" {
			writeError(w, http.StatusUnauthorized, "missing X-Account-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountID(ctx context.Context) string {
	id, _ := ctx.Value(accountContextKey).(string)
	return id
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	a, err := s.economy.Open(r.Context(), accountID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	a, err := s.economy.Open(r.Context(), accountID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   a,
		"net_worth": a.NetWorth(s.events.CryptoPrice()),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.economy.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleCurrentEvent(w http.ResponseWriter, r *http.Request) {
	a, err := s.events.Current(r.Context(), time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": a})
}

func (s *Server) handleCryptoPrice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"price_cents": s.events.CryptoPrice()})
}

func (s *Server) handleJobsList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.economy.Jobs()})
}

func (s *Server) handlePropertiesList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"properties": s.economy.Properties()})
}

func (s *Server) handleMatchups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"matchups": games.Matchups})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleAmountOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string, amount int64) (*ledger.Account, error)) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := op(r.Context(), accountID(r.Context()), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.Withdraw)
}

func (s *Server) handleTakeLoan(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.TakeLoan)
}

func (s *Server) handleRepayLoan(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.RepayLoan)
}

func (s *Server) handleSwapToStable(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.SwapToStable)
}

func (s *Server) handleSwapFromStable(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.SwapFromStable)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.Stake)
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.Unstake)
}

func (s *Server) handleStakeCrypto(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.StakeCrypto)
}

func (s *Server) handleUnstakeCrypto(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, s.economy.UnstakeCrypto)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		To     string `json:"to"`
		Amount int64  `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.economy.Transfer(r.Context(), accountID(r.Context()), strings.TrimSpace(in.To), in.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	var in struct {
		JobID string `json:"job_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.economy.Work(r.Context(), accountID(r.Context()), strings.TrimSpace(in.JobID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBuyCrypto(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.economy.BuyCrypto(r.Context(), accountID(r.Context()), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSellCrypto(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Satoshis int64 `json:"satoshis"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.economy.SellCrypto(r.Context(), accountID(r.Context()), in.Satoshis)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBuyNodes(w http.ResponseWriter, r *http.Request) {
	s.handleCountOp(w, r, s.economy.BuyNodes)
}

func (s *Server) handleSellNodes(w http.ResponseWriter, r *http.Request) {
	s.handleCountOp(w, r, s.economy.SellNodes)
}

func (s *Server) handleCountOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string, n int) (*ledger.Account, error)) {
	var in struct {
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := op(r.Context(), accountID(r.Context()), in.Count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleBuyProperty(w http.ResponseWriter, r *http.Request) {
	s.handlePropertyOp(w, r, s.economy.BuyProperty)
}

func (s *Server) handleSellProperty(w http.ResponseWriter, r *http.Request) {
	s.handlePropertyOp(w, r, s.economy.SellProperty)
}

func (s *Server) handlePropertyOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, propertyID string) (*ledger.Account, error)) {
	var in struct {
		PropertyID string `json:"property_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := op(r.Context(), accountID(r.Context()), strings.TrimSpace(in.PropertyID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake int64  `json:"stake"`
		Guess string `json:"guess"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlayFlip(r.Context(), accountID(r.Context()), in.Stake, in.Guess)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDice(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake     int64 `json:"stake"`
		Threshold int   `json:"threshold"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Threshold == 0 {
		in.Threshold = 50
	}
	res, err := s.casino.PlayDice(r.Context(), accountID(r.Context()), in.Stake, in.Threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSports(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake   int64  `json:"stake"`
		MatchID string `json:"match_id"`
		Pick    string `json:"pick"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlaySports(r.Context(), accountID(r.Context()), in.Stake, in.MatchID, in.Pick)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBlackjack(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake   int64    `json:"stake"`
		Actions []string `json:"actions"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	actions := make([]games.BlackjackAction, 0, len(in.Actions))
	for _, a := range in.Actions {
		actions = append(actions, games.BlackjackAction(a))
	}
	res, err := s.casino.PlayBlackjack(r.Context(), accountID(r.Context()), in.Stake, actions)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBaccarat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake int64  `json:"stake"`
		Bet   string `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlayBaccarat(r.Context(), accountID(r.Context()), in.Stake, games.BaccaratBet(in.Bet))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVideoPoker(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake int64   `json:"stake"`
		Holds [5]bool `json:"holds"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlayVideoPoker(r.Context(), accountID(r.Context()), in.Stake, in.Holds)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRoulette(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake int64  `json:"stake"`
		Bet   string `json:"bet"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlayRoulette(r.Context(), accountID(r.Context()), in.Stake, strings.TrimSpace(in.Bet))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Stake int64 `json:"stake"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.PlaySlots(r.Context(), accountID(r.Context()), in.Stake)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSteal(w http.ResponseWriter, r *http.Request) {
	var in struct {
		VictimID string `json:"victim_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.Steal(r.Context(), accountID(r.Context()), strings.TrimSpace(in.VictimID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDuel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OpponentID string `json:"opponent_id"`
		Stake      int64  `json:"stake"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.casino.Duel(r.Context(), accountID(r.Context()), strings.TrimSpace(in.OpponentID), in.Stake)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGuildCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.guilds.Create(r.Context(), accountID(r.Context()), strings.TrimSpace(in.Name))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGuildList(w http.ResponseWriter, r *http.Request) {
	gs, err := s.store.ListGuilds(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guilds": gs})
}

func (s *Server) handleGuildGet(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetGuild(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGuildJoin(w http.ResponseWriter, r *http.Request) {
	if err := s.guilds.Join(r.Context(), accountID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGuildLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.guilds.Leave(r.Context(), accountID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGuildTreasury(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.guilds.DepositTreasury(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), in.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// requireMember rejects guild actions from accounts outside the acting
// guild. Returns false after writing the response.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, guildID string) bool {
	g, err := s.store.GetGuild(r.Context(), guildID)
	if err != nil {
		writeDomainError(w, err)
		return false
	}
	if !g.HasMember(accountID(r.Context())) {
		writeDomainError(w, guild.ErrNotMember)
		return false
	}
	return true
}

func (s *Server) handleDeclareWar(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DefenderID string `json:"defender_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireMember(w, r, chi.URLParam(r, "id")) {
		return
	}
	if err := s.guilds.DeclareWar(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.DefenderID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGuildAttack(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DefenderID string `json:"defender_id"`
		Kind       string `json:"kind"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireMember(w, r, chi.URLParam(r, "id")) {
		return
	}
	out, err := s.guilds.Attack(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.DefenderID), strings.TrimSpace(in.Kind))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGuildDefend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Kind string `json:"kind"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireMember(w, r, chi.URLParam(r, "id")) {
		return
	}
	if err := s.guilds.Defend(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.Kind)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGuildPromote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MemberID string `json:"member_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.guilds.Promote(r.Context(), accountID(r.Context()), chi.URLParam(r, "id"), strings.TrimSpace(in.MemberID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleProposeAlliance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OtherID string `json:"other_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireMember(w, r, chi.URLParam(r, "id")) {
		return
	}
	if err := s.guilds.ProposeAlliance(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.OtherID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAcceptAlliance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OtherID string `json:"other_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireMember(w, r, chi.URLParam(r, "id")) {
		return
	}
	if err := s.guilds.AcceptAlliance(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(in.OtherID)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrGuildNotFound),
		errors.Is(err, economy.ErrUnknownJob), errors.Is(err, economy.ErrUnknownProperty):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, games.ErrInvalidStake), errors.Is(err, games.ErrInvalidBet),
		errors.Is(err, games.ErrTargetTooPoor),
		errors.Is(err, economy.ErrLoanTooLarge), errors.Is(err, economy.ErrNoLoan),
		errors.Is(err, economy.ErrRepayTooLarge), errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, economy.ErrNotOwned), errors.Is(err, economy.ErrSelfTransfer),
		errors.Is(err, economy.ErrNotSellable),
		errors.Is(err, casino.ErrSelfTarget),
		errors.Is(err, guild.ErrSelfWar), errors.Is(err, guild.ErrEmptyGuildName),
		errors.Is(err, guild.ErrUnknownAttack), errors.Is(err, guild.ErrUnknownDefense),
		errors.Is(err, guild.ErrNoProposal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrGuildExists), errors.Is(err, economy.ErrLoanOutstanding),
		errors.Is(err, economy.ErrAlreadyOwned), errors.Is(err, economy.ErrTooManyNodes),
		errors.Is(err, guild.ErrAlreadyMember), errors.Is(err, guild.ErrAlreadyAtWar),
		errors.Is(err, guild.ErrNotAtWar), errors.Is(err, guild.ErrAllied),
		errors.Is(err, guild.ErrAllianceExists), errors.Is(err, guild.ErrDefenseActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, guild.ErrNotMember), errors.Is(err, guild.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, casino.ErrLossCapExceeded), errors.Is(err, casino.ErrTheftCooldown),
		errors.Is(err, economy.ErrShiftCooldown), errors.Is(err, economy.ErrShiftsExhausted):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
