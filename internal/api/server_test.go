package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"citycoin/internal/casino"
	"citycoin/internal/config"
	"citycoin/internal/economy"
	"citycoin/internal/guild"
	"citycoin/internal/ledger"
	"citycoin/internal/rng"
	"citycoin/internal/worldevent"
)

func newTestServer(t *testing.T, draws ...float64) (*httptest.Server, *ledger.MemStore) {
	t.Helper()

	store := ledger.NewMemStore()
	cfg := config.DefaultConfig()
	cfg.Events.Catalog = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := worldevent.New(store, cfg, rng.NewCrypto(), logger)

	var rand rng.Provider = rng.NewCrypto()
	if len(draws) > 0 {
		rand = rng.NewFixed(draws...)
	}

	econ := economy.NewService(store, cfg, events, logger)
	cas := casino.NewService(store, cfg, rand, events, logger)
	guilds := guild.NewService(store, cfg.Guild, rand, logger)

	srv := New(logger, econ, cas, guilds, events, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, account string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		req.Header.Set("X-Account-ID", account)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestOpenAccountAndBalance(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open status = %d: %v", resp.StatusCode, body)
	}
	if got := body["cash"].(float64); int64(got) != config.DefaultConfig().Economy.StartingCash {
		t.Fatalf("starting cash = %v", got)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/v1/accounts/me", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance status = %d", resp.StatusCode)
	}
	if _, ok := body["net_worth"]; !ok {
		t.Fatalf("missing net_worth: %v", body)
	}
}

func TestMissingAccountHeader(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestBankDepositAndWithdraw(t *testing.T) {
	ts, _ := newTestServer(t)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/bank/deposit", "alice", map[string]any{"amount": 40_000})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deposit status = %d: %v", resp.StatusCode, body)
	}
	if got := int64(body["bank"].(float64)); got != 40_000 {
		t.Fatalf("bank = %d, want 40000", got)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/bank/withdraw", "alice", map[string]any{"amount": 1_000_000})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("over-withdraw status = %d: %v", resp.StatusCode, body)
	}
}

func TestRejectsUnknownFields(t *testing.T) {
	ts, _ := newTestServer(t)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)

	resp, _ := doJSON(t, ts, http.MethodPost, "/v1/bank/deposit", "alice", map[string]any{"amount": 100, "bogus": 1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFlipEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, 0.0)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/casino/flip", "alice", map[string]any{"stake": 10_000, "guess": "heads"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("flip status = %d: %v", resp.StatusCode, body)
	}
	wantPayout := int64(float64(10_000) * (2 - 0.01))
	if got := int64(body["payout"].(float64)); got != wantPayout {
		t.Fatalf("payout = %d, want %d", got, wantPayout)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/casino/flip", "alice", map[string]any{"stake": 10_000, "guess": "edge"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad guess status = %d: %v", resp.StatusCode, body)
	}
}

func TestTransferEndpoint(t *testing.T) {
	ts, store := newTestServer(t)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "bob", nil)

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/transfers", "alice", map[string]any{"to": "bob", "amount": 10_000})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transfer status = %d: %v", resp.StatusCode, body)
	}

	bob, err := store.GetAccount(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	fee := int64(float64(10_000) * config.DefaultConfig().Economy.TransferFeePct)
	want := config.DefaultConfig().Economy.StartingCash + 10_000 - fee
	if bob.Cash != want {
		t.Fatalf("bob cash = %d, want %d", bob.Cash, want)
	}
}

func TestGuildCreateAndFetch(t *testing.T) {
	ts, store := newTestServer(t)
	doJSON(t, ts, http.MethodPost, "/v1/accounts/open", "alice", nil)
	store.Mutate(context.Background(), "alice", func(a *ledger.Account) error {
		a.Cash += 1_000_000
		return nil
	})

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/guilds", "alice", map[string]any{"name": "Night Market"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatalf("no guild id in %v", body)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/v1/guilds/"+id, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d: %v", resp.StatusCode, body)
	}
	if body["name"] != "Night Market" {
		t.Fatalf("name = %v", body["name"])
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds", "alice", map[string]any{"name": "Second"})
	if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusConflict {
		t.Fatalf("second guild status = %d: %v", resp.StatusCode, body)
	}
}

func TestGuildWarFlow(t *testing.T) {
	ts, store := newTestServer(t, 0.0)
	for _, who := range []string{"alice", "bob", "eve"} {
		doJSON(t, ts, http.MethodPost, "/v1/accounts/open", who, nil)
		store.Mutate(context.Background(), who, func(a *ledger.Account) error {
			a.Cash += 1_000_000
			return nil
		})
	}
	_, body := doJSON(t, ts, http.MethodPost, "/v1/guilds", "alice", map[string]any{"name": "Alpha"})
	ga, _ := body["id"].(string)
	_, body = doJSON(t, ts, http.MethodPost, "/v1/guilds", "bob", map[string]any{"name": "Beta"})
	gb, _ := body["id"].(string)
	if ga == "" || gb == "" {
		t.Fatalf("guild ids: %q %q", ga, gb)
	}

	// Outsiders cannot act for a guild they are not in.
	resp, _ := doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/war", "eve", map[string]any{"defender_id": gb})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("outsider war status = %d", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/war", "alice", map[string]any{"defender_id": gb})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("declare status = %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+gb+"/defend", "bob", map[string]any{"kind": "fortify"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("defend status = %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/attack", "alice",
		map[string]any{"defender_id": gb, "kind": "raid"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("attack status = %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("attack body = %v", body)
	}
	if loot := body["loot"].(float64); loot <= 0 {
		t.Fatalf("loot = %v", loot)
	}

	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/attack", "alice",
		map[string]any{"defender_id": gb, "kind": "seance"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d: %v", resp.StatusCode, body)
	}
}

func TestGuildAllianceFlow(t *testing.T) {
	ts, store := newTestServer(t, 0.0)
	for _, who := range []string{"alice", "bob"} {
		doJSON(t, ts, http.MethodPost, "/v1/accounts/open", who, nil)
		store.Mutate(context.Background(), who, func(a *ledger.Account) error {
			a.Cash += 1_000_000
			return nil
		})
	}
	_, body := doJSON(t, ts, http.MethodPost, "/v1/guilds", "alice", map[string]any{"name": "Alpha"})
	ga, _ := body["id"].(string)
	_, body = doJSON(t, ts, http.MethodPost, "/v1/guilds", "bob", map[string]any{"name": "Beta"})
	gb, _ := body["id"].(string)

	resp, body := doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/alliance", "alice", map[string]any{"other_id": gb})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("propose status = %d: %v", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+gb+"/alliance/accept", "bob", map[string]any{"other_id": ga})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status = %d: %v", resp.StatusCode, body)
	}

	// Allies cannot declare war on each other.
	resp, body = doJSON(t, ts, http.MethodPost, "/v1/guilds/"+ga+"/war", "alice", map[string]any{"defender_id": gb})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("war on ally status = %d: %v", resp.StatusCode, body)
	}
}

func TestGuildNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/v1/guilds/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		doJSON(t, ts, http.MethodPost, "/v1/accounts/open", fmt.Sprintf("p%d", i), nil)
	}

	resp, body := doJSON(t, ts, http.MethodGet, "/v1/leaderboard?limit=2", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	entries, ok := body["entries"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("entries = %v", body["entries"])
	}
}

func TestCatalogEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/v1/jobs", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["jobs"].([]any)) == 0 {
		t.Fatalf("jobs: %d %v", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts, http.MethodGet, "/v1/properties", "", nil)
	if resp.StatusCode != http.StatusOK || len(body["properties"].([]any)) == 0 {
		t.Fatalf("properties: %d %v", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts, http.MethodGet, "/v1/crypto/price", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("price: %d %v", resp.StatusCode, body)
	}
	if got := int64(body["price_cents"].(float64)); got != config.DefaultConfig().Crypto.StartPrice {
		t.Fatalf("price = %d", got)
	}
}
