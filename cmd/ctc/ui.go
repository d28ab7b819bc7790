package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"citycoin/internal/config"
	"citycoin/internal/ledger"
	"citycoin/internal/money"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type balancePayload struct {
	Account  ledger.Account `json:"account"`
	NetWorth int64          `json:"net_worth"`
}

type jobsPayload struct {
	Jobs []config.Job `json:"jobs"`
}

type propertiesPayload struct {
	Properties []config.Property `json:"properties"`
}

type leaderboardPayload struct {
	Entries []leaderboardEntry `json:"entries"`
}

type leaderboardEntry struct {
	AccountID string `json:"account_id"`
	NetWorth  int64  `json:"net_worth"`
}

type guildsPayload struct {
	Guilds []ledger.Guild `json:"guilds"`
}

type playPayload struct {
	Game    string `json:"game"`
	Stake   int64  `json:"stake"`
	Payout  int64  `json:"payout"`
	Net     int64  `json:"net"`
	Balance int64  `json:"balance"`
	VIPTier string `json:"vip_tier"`
	Proof   string `json:"proof"`
	Detail  any    `json:"detail"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func renderBalance(raw map[string]any) error {
	out, err := decodeInto[balancePayload](raw)
	if err != nil {
		return err
	}
	a := out.Account
	accent.Printf("\n== ACCOUNT %s ==\n", a.ID)
	fmt.Printf("Cash:        %s CTC\n", formatCents(a.Cash))
	fmt.Printf("Bank:        %s CTC\n", formatCents(a.Bank))
	fmt.Printf("StableCTC:   %s CTC\n", formatCents(a.Stable))
	fmt.Printf("Staked:      %s CTC\n", formatCents(a.Staked))
	fmt.Printf("Bitcity:     %s BTC\n", formatSatoshis(a.Crypto))
	fmt.Printf("BTC staked:  %s BTC\n", formatSatoshis(a.CryptoStaked))
	fmt.Printf("Nodes:       %d\n", a.Nodes)
	if a.Loan != nil {
		fmt.Printf("Loan:        %s CTC outstanding\n", colorizeCents(-a.Loan.Outstanding()))
	}
	if len(a.Properties) > 0 {
		ids := make([]string, 0, len(a.Properties))
		for _, p := range a.Properties {
			ids = append(ids, p.ID)
		}
		fmt.Printf("Properties:  %s\n", strings.Join(ids, ", "))
	}
	if a.GuildID != "" {
		fmt.Printf("Guild:       %s\n", a.GuildID)
	}
	fmt.Printf("Net Worth:   %s CTC\n", formatCents(out.NetWorth))
	fmt.Println()
	return nil
}

func renderJobs(raw map[string]any) error {
	out, err := decodeInto[jobsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== JOBS ==")
	fmt.Printf("%-12s %-20s %12s\n", "ID", "NAME", "SALARY")
	for _, j := range out.Jobs {
		fmt.Printf("%-12s %-20s %12s\n", j.ID, truncate(j.Name, 20), formatCents(j.Salary))
	}
	fmt.Println()
	return nil
}

func renderProperties(raw map[string]any) error {
	out, err := decodeInto[propertiesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== REAL ESTATE ==")
	fmt.Printf("%-12s %-24s %14s %12s\n", "ID", "NAME", "PRICE", "RENT/DAY")
	for _, p := range out.Properties {
		fmt.Printf("%-12s %-24s %14s %12s\n",
			p.ID,
			truncate(p.Name, 24),
			formatCents(p.Price),
			formatCents(p.RentPerDay),
		)
	}
	fmt.Println()
	return nil
}

func renderLeaderboard(raw map[string]any) error {
	out, err := decodeInto[leaderboardPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LEADERBOARD ==")
	if len(out.Entries) == 0 {
		printInfo("No accounts yet.")
		return nil
	}
	fmt.Printf("%-6s %-24s %16s\n", "RANK", "ACCOUNT", "NET WORTH")
	for i, e := range out.Entries {
		fmt.Printf("%-6d %-24s %16s\n", i+1, truncate(e.AccountID, 24), formatCents(e.NetWorth))
	}
	fmt.Println()
	return nil
}

func renderGuilds(raw map[string]any) error {
	out, err := decodeInto[guildsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== GUILDS ==")
	if len(out.Guilds) == 0 {
		printInfo("No guilds founded yet.")
		return nil
	}
	fmt.Printf("%-36s %-20s %5s %8s %14s %6s %6s %5s\n", "ID", "NAME", "LVL", "MEMBERS", "TREASURY", "WINS", "LOSSES", "WARS")
	for _, g := range out.Guilds {
		fmt.Printf("%-36s %-20s %5d %8d %14s %6d %6d %5d\n",
			g.ID,
			truncate(g.Name, 20),
			g.Level,
			len(g.Members),
			formatCents(g.Treasury),
			g.Wins,
			g.Losses,
			len(g.Wars),
		)
	}
	fmt.Println()
	return nil
}

func renderPlay(raw map[string]any) error {
	out, err := decodeInto[playPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(out.Game))
	fmt.Printf("Stake:   %s CTC\n", formatCents(out.Stake))
	fmt.Printf("Payout:  %s CTC\n", formatCents(out.Payout))
	fmt.Printf("Net:     %s CTC\n", colorizeCents(out.Net))
	fmt.Printf("Balance: %s CTC\n", formatCents(out.Balance))
	if out.VIPTier != "" {
		fmt.Printf("VIP:     %s\n", out.VIPTier)
	}
	fmt.Printf("Proof:   %s\n", out.Proof)
	if out.Detail != nil {
		detail, err := json.MarshalIndent(out.Detail, "", "  ")
		if err == nil {
			fmt.Printf("Detail:  %s\n", string(detail))
		}
	}
	fmt.Println()
	return nil
}

func renderJSON(raw map[string]any) error {
	body, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeCents(v int64) string {
	text := formatCents(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / money.CentsPerCoin
	frac := v % money.CentsPerCoin
	return fmt.Sprintf("%s%s.%02d", sign, comma(whole), frac)
}

func formatSatoshis(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / money.SatoshisPerCoin
	frac := v % money.SatoshisPerCoin
	return fmt.Sprintf("%s%s.%08d", sign, comma(whole), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
