package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) OpenAccount(ctx context.Context, accountID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/accounts/open", accountID, nil, &out)
	return out, err
}

func (c *Client) Balance(ctx context.Context, accountID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/accounts/me", accountID, nil, &out)
	return out, err
}

func (c *Client) Deposit(ctx context.Context, accountID string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/bank/deposit", accountID, map[string]any{"amount": amount})
}

func (c *Client) Withdraw(ctx context.Context, accountID string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/bank/withdraw", accountID, map[string]any{"amount": amount})
}

func (c *Client) TakeLoan(ctx context.Context, accountID string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/loans", accountID, map[string]any{"amount": amount})
}

func (c *Client) RepayLoan(ctx context.Context, accountID string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/loans/repay", accountID, map[string]any{"amount": amount})
}

func (c *Client) Transfer(ctx context.Context, accountID, to string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/transfers", accountID, map[string]any{"to": to, "amount": amount})
}

func (c *Client) ListJobs(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/jobs", "", nil, &out)
	return out, err
}

func (c *Client) Work(ctx context.Context, accountID, jobID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/jobs/work", accountID, map[string]any{"job_id": jobID})
}

func (c *Client) ListProperties(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/properties", "", nil, &out)
	return out, err
}

func (c *Client) BuyProperty(ctx context.Context, accountID, propertyID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/properties/buy", accountID, map[string]any{"property_id": propertyID})
}

func (c *Client) SellProperty(ctx context.Context, accountID, propertyID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/properties/sell", accountID, map[string]any{"property_id": propertyID})
}

func (c *Client) CryptoPrice(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/crypto/price", "", nil, &out)
	return out, err
}

func (c *Client) BuyCrypto(ctx context.Context, accountID string, cents int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/crypto/buy", accountID, map[string]any{"amount": cents})
}

func (c *Client) SellCrypto(ctx context.Context, accountID string, satoshis int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/crypto/sell", accountID, map[string]any{"satoshis": satoshis})
}

func (c *Client) CurrentEvent(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/events/current", "", nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, limit int) (map[string]any, error) {
	path := "/v1/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("/v1/leaderboard?limit=%d", limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, "", nil, &out)
	return out, err
}

func (c *Client) PlayCasino(ctx context.Context, accountID, game string, body map[string]any) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/casino/"+url.PathEscape(game), accountID, body)
}

func (c *Client) Steal(ctx context.Context, accountID, victimID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/casino/steal", accountID, map[string]any{"victim_id": victimID})
}

func (c *Client) Duel(ctx context.Context, accountID, opponentID string, stake int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/casino/duel", accountID, map[string]any{"opponent_id": opponentID, "stake": stake})
}

func (c *Client) ListGuilds(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/guilds", "", nil, &out)
	return out, err
}

func (c *Client) GuildDetail(ctx context.Context, guildID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/guilds/"+url.PathEscape(guildID), "", nil, &out)
	return out, err
}

func (c *Client) CreateGuild(ctx context.Context, accountID, name string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds", accountID, map[string]any{"name": name})
}

func (c *Client) JoinGuild(ctx context.Context, accountID, guildID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/join", accountID, map[string]any{})
}

func (c *Client) LeaveGuild(ctx context.Context, accountID, guildID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/leave", accountID, map[string]any{})
}

func (c *Client) GuildDeposit(ctx context.Context, accountID, guildID string, amount int64) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/treasury", accountID, map[string]any{"amount": amount})
}

func (c *Client) DeclareWar(ctx context.Context, accountID, guildID, defenderID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/war", accountID, map[string]any{
		"defender_id": defenderID,
	})
}

func (c *Client) AttackGuild(ctx context.Context, accountID, guildID, defenderID, kind string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/attack", accountID, map[string]any{
		"defender_id": defenderID,
		"kind":        kind,
	})
}

func (c *Client) DefendGuild(ctx context.Context, accountID, guildID, kind string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/defend", accountID, map[string]any{"kind": kind})
}

func (c *Client) ProposeAlliance(ctx context.Context, accountID, guildID, otherID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/alliance", accountID, map[string]any{"other_id": otherID})
}

func (c *Client) AcceptAlliance(ctx context.Context, accountID, guildID, otherID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/alliance/accept", accountID, map[string]any{"other_id": otherID})
}

func (c *Client) PromoteMember(ctx context.Context, accountID, guildID, memberID string) (map[string]any, error) {
	return c.Do(ctx, http.MethodPost, "/v1/guilds/"+url.PathEscape(guildID)+"/promote", accountID, map[string]any{"member_id": memberID})
}

func (c *Client) Do(ctx context.Context, method, path, accountID string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accountID, body, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accountID string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accountID != "" {
		req.Header.Set("X-Account-ID", accountID)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
