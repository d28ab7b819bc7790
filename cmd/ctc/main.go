package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"citycoin/internal/accrual"
	cl "citycoin/internal/cli"
	"citycoin/internal/config"
	"citycoin/internal/db"
	"citycoin/internal/ledger"
	"citycoin/internal/money"
	"citycoin/internal/rng"
	"citycoin/internal/syncq"
	"citycoin/internal/worldevent"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "ctc",
		Short:        "CityCoin economy client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newDashCmd(&apiBase),
		newSendCmd(&apiBase),
		newBankCmd(&apiBase),
		newLoanCmd(&apiBase),
		newJobsCmd(&apiBase),
		newWorkCmd(&apiBase),
		newPropertyCmd(&apiBase),
		newCryptoCmd(&apiBase),
		newCasinoCmd(&apiBase),
		newGuildCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newEventCmd(&apiBase),
		newSyncCmd(&apiBase),
		newAdminCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

// parseAmount reads a CTC amount like "12.50" into cents.
func parseAmount(text string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	return money.ToCents(v), nil
}

// queueOnOffline parks a failed write in the sync queue when the API is
// unreachable. API-rejected writes are not queued; replaying them would
// fail the same way.
func queueOnOffline(err error, method, path string, body map[string]any) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if qErr := syncq.Push(syncq.Command{Method: method, Path: path, Body: body}); qErr != nil {
		return errors.Join(err, qErr)
	}
	printWarn(fmt.Sprintf("API unreachable. Queued %s %s for `ctc sync`.", method, path))
	return nil
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Pick the account to act as and open it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := promptRequired("Account ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if _, err := client.OpenAccount(ctx, accountID); err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{AccountID: accountID, APIBaseURL: *apiBase}); err != nil {
				return err
			}
			printSuccess("Session saved.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your balances and net worth",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Balance(ctx, sess.AccountID)
			if err != nil {
				return err
			}
			return renderBalance(out)
		},
	}
}

func newSendCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "send <account> <amount>",
		Short: "Transfer cash to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			body := map[string]any{"to": args[0], "amount": amount}
			if _, err := newClient(apiBase).Transfer(ctx, sess.AccountID, args[0], amount); err != nil {
				return queueOnOffline(err, "POST", "/v1/transfers", body)
			}
			printSuccess(fmt.Sprintf("Sent %s CTC to %s.", formatCents(amount), args[0]))
			return nil
		},
	}
}

func newBankCmd(apiBase *string) *cobra.Command {
	bank := &cobra.Command{
		Use:   "bank",
		Short: "Bank deposits and withdrawals",
	}
	bank.AddCommand(
		newAmountCmd(apiBase, "deposit <amount>", "Move cash into the bank", "/v1/bank/deposit"),
		newAmountCmd(apiBase, "withdraw <amount>", "Move bank balance back to cash", "/v1/bank/withdraw"),
	)
	return bank
}

func newLoanCmd(apiBase *string) *cobra.Command {
	loan := &cobra.Command{
		Use:   "loan",
		Short: "Borrow from and repay the city bank",
	}
	loan.AddCommand(
		newAmountCmd(apiBase, "take <amount>", "Take out a loan", "/v1/loans"),
		newAmountCmd(apiBase, "repay <amount>", "Repay an outstanding loan", "/v1/loans/repay"),
	)
	return loan
}

// newAmountCmd covers the operations whose request is just an amount.
func newAmountCmd(apiBase *string, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			body := map[string]any{"amount": amount}
			out, err := newClient(apiBase).Do(ctx, "POST", path, sess.AccountID, body)
			if err != nil {
				return queueOnOffline(err, "POST", path, body)
			}
			return renderJSON(out)
		},
	}
}

func newJobsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List city jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ListJobs(ctx)
			if err != nil {
				return err
			}
			return renderJobs(out)
		},
	}
}

func newWorkCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "work <job>",
		Short: "Clock one shift at a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Work(ctx, sess.AccountID, args[0])
			if err != nil {
				return err
			}
			return renderJSON(out)
		},
	}
}

func newPropertyCmd(apiBase *string) *cobra.Command {
	property := &cobra.Command{
		Use:     "property",
		Short:   "Real estate commands",
		Aliases: []string{"prop"},
	}
	property.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the property catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).ListProperties(ctx)
				if err != nil {
					return err
				}
				return renderProperties(out)
			},
		},
		newPropertyOpCmd(apiBase, "buy <property>", "Buy a property", "/v1/properties/buy"),
		newPropertyOpCmd(apiBase, "sell <property>", "Sell an owned property", "/v1/properties/sell"),
	)
	return property
}

func newPropertyOpCmd(apiBase *string, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			body := map[string]any{"property_id": args[0]}
			out, err := newClient(apiBase).Do(ctx, "POST", path, sess.AccountID, body)
			if err != nil {
				return queueOnOffline(err, "POST", path, body)
			}
			return renderJSON(out)
		},
	}
}

func newCryptoCmd(apiBase *string) *cobra.Command {
	crypto := &cobra.Command{
		Use:   "crypto",
		Short: "Bitcity trading",
	}
	crypto.AddCommand(
		&cobra.Command{
			Use:   "price",
			Short: "Show the current bitcity price",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).CryptoPrice(ctx)
				if err != nil {
					return err
				}
				price, _ := decodeInto[struct {
					PriceCents int64 `json:"price_cents"`
				}](out)
				fmt.Printf("Bitcity: %s CTC per coin\n", formatCents(price.PriceCents))
				return nil
			},
		},
		&cobra.Command{
			Use:   "buy <amount>",
			Short: "Spend CTC on bitcity",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).BuyCrypto(ctx, sess.AccountID, amount)
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
		&cobra.Command{
			Use:   "sell <coins>",
			Short: "Sell bitcity for CTC",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				coins, err := strconv.ParseFloat(args[0], 64)
				if err != nil || coins <= 0 {
					return fmt.Errorf("invalid coin amount %q", args[0])
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).SellCrypto(ctx, sess.AccountID, money.ToSatoshis(coins))
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
	)
	return crypto
}

func newCasinoCmd(apiBase *string) *cobra.Command {
	casino := &cobra.Command{
		Use:   "casino",
		Short: "Casino games",
	}

	play := func(game string, body func(args []string) (map[string]any, error), argCount int, use, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.MinimumNArgs(argCount),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				payload, err := body(args)
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).PlayCasino(ctx, sess.AccountID, game, payload)
				if err != nil {
					return err
				}
				return renderPlay(out)
			},
		}
	}

	casino.AddCommand(
		play("flip", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"stake": stake, "guess": strings.ToLower(args[1])}, nil
		}, 2, "flip <stake> <heads|tails>", "Call a coin flip"),
		play("dice", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			threshold := 50
			if len(args) > 1 {
				threshold, err = strconv.Atoi(args[1])
				if err != nil {
					return nil, fmt.Errorf("invalid threshold %q", args[1])
				}
			}
			return map[string]any{"stake": stake, "threshold": threshold}, nil
		}, 1, "dice <stake> [threshold]", "Roll under the threshold to win"),
		play("slots", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"stake": stake}, nil
		}, 1, "slots <stake>", "Spin the slot machine"),
		play("roulette", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"stake": stake, "bet": strings.ToLower(args[1])}, nil
		}, 2, "roulette <stake> <bet>", "Bet a number, color, or parity"),
		play("blackjack", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			actions := make([]string, 0, len(args)-1)
			for _, a := range args[1:] {
				actions = append(actions, strings.ToLower(a))
			}
			return map[string]any{"stake": stake, "actions": actions}, nil
		}, 1, "blackjack <stake> [hit|stand|double ...]", "Play a hand of blackjack"),
		play("baccarat", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"stake": stake, "bet": strings.ToLower(args[1])}, nil
		}, 2, "baccarat <stake> <player|banker|tie>", "Bet a baccarat coup"),
		play("videopoker", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			var holds [5]bool
			for _, a := range args[1:] {
				i, err := strconv.Atoi(a)
				if err != nil || i < 1 || i > 5 {
					return nil, fmt.Errorf("hold positions are 1-5, got %q", a)
				}
				holds[i-1] = true
			}
			return map[string]any{"stake": stake, "holds": holds}, nil
		}, 1, "videopoker <stake> [hold positions...]", "Jacks-or-better video poker"),
		play("sports", func(args []string) (map[string]any, error) {
			stake, err := parseAmount(args[0])
			if err != nil {
				return nil, err
			}
			return map[string]any{"stake": stake, "match_id": args[1], "pick": strings.ToLower(args[2])}, nil
		}, 3, "sports <stake> <match> <home|away>", "Bet on a city league matchup"),
	)

	casino.AddCommand(
		&cobra.Command{
			Use:   "steal <victim>",
			Short: "Attempt a theft",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).Steal(ctx, sess.AccountID, args[0])
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
		&cobra.Command{
			Use:   "duel <opponent> <stake>",
			Short: "Challenge another account to a duel",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				stake, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).Duel(ctx, sess.AccountID, args[0], stake)
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
	)
	return casino
}

func newGuildCmd(apiBase *string) *cobra.Command {
	guild := &cobra.Command{
		Use:   "guild",
		Short: "Guild commands",
	}
	guild.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List guilds",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).ListGuilds(ctx)
				if err != nil {
					return err
				}
				return renderGuilds(out)
			},
		},
		&cobra.Command{
			Use:   "show <guild>",
			Short: "Show one guild",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).GuildDetail(ctx, args[0])
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Found a guild",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				out, err := newClient(apiBase).CreateGuild(ctx, sess.AccountID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return renderJSON(out)
			},
		},
		newGuildOpCmd(apiBase, "join <guild>", "Join a guild", func(c *cl.Client, ctx context.Context, account, guildID string, _ []string) (map[string]any, error) {
			return c.JoinGuild(ctx, account, guildID)
		}),
		newGuildOpCmd(apiBase, "leave <guild>", "Leave a guild", func(c *cl.Client, ctx context.Context, account, guildID string, _ []string) (map[string]any, error) {
			return c.LeaveGuild(ctx, account, guildID)
		}),
		&cobra.Command{
			Use:   "deposit <guild> <amount>",
			Short: "Deposit cash into the guild treasury",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := requireSession()
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				if _, err := newClient(apiBase).GuildDeposit(ctx, sess.AccountID, args[0], amount); err != nil {
					return err
				}
				printSuccess("Treasury deposit complete.")
				return nil
			},
		},
		newGuildOpCmd(apiBase, "promote <guild> <member>", "Promote a member to officer", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: ctc guild promote <guild> <member>")
			}
			return c.PromoteMember(ctx, account, guildID, rest[0])
		}),
		newGuildOpCmd(apiBase, "war <guild> <defender>", "Declare war on another guild", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: ctc guild war <guild> <defender>")
			}
			return c.DeclareWar(ctx, account, guildID, rest[0])
		}),
		newGuildOpCmd(apiBase, "attack <guild> <defender> <raid|sabotage|espionage>", "Launch an attack in an active war", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 2 {
				return nil, fmt.Errorf("usage: ctc guild attack <guild> <defender> <kind>")
			}
			return c.AttackGuild(ctx, account, guildID, rest[0], rest[1])
		}),
		newGuildOpCmd(apiBase, "defend <guild> <fortify|counterspy|guard>", "Raise a timed defense", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: ctc guild defend <guild> <kind>")
			}
			return c.DefendGuild(ctx, account, guildID, rest[0])
		}),
		newGuildOpCmd(apiBase, "ally <guild> <other>", "Propose an alliance", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: ctc guild ally <guild> <other>")
			}
			return c.ProposeAlliance(ctx, account, guildID, rest[0])
		}),
		newGuildOpCmd(apiBase, "accept <guild> <other>", "Accept a pending alliance", func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error) {
			if len(rest) != 1 {
				return nil, fmt.Errorf("usage: ctc guild accept <guild> <other>")
			}
			return c.AcceptAlliance(ctx, account, guildID, rest[0])
		}),
	)
	return guild
}

func newGuildOpCmd(apiBase *string, use, short string, fn func(c *cl.Client, ctx context.Context, account, guildID string, rest []string) (map[string]any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := fn(newClient(apiBase), ctx, sess.AccountID, args[0], args[1:])
			if err != nil {
				return err
			}
			return renderJSON(out)
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Short:   "Show the net worth leaderboard",
		Aliases: []string{"lb"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, 20)
			if err != nil {
				return err
			}
			return renderLeaderboard(out)
		},
	}
}

func newEventCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "event",
		Short: "Show the active city event",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).CurrentEvent(ctx)
			if err != nil {
				return err
			}
			if out["event"] == nil {
				printInfo("No event is running.")
				return nil
			}
			return renderJSON(out)
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay writes queued while the API was unreachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				if _, err := client.Do(ctx, q.Method, q.Path, sess.AccountID, q.Body); err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Replay failed for %s %s (queued %s ago): %v",
						q.Method, q.Path, q.Age(time.Now().UTC()).Round(time.Second), err))
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands that talk to the database directly",
	}
	admin.AddCommand(
		&cobra.Command{
			Use:   "set-bank-rate <daily-pct>",
			Short: "Override the daily bank interest rate",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rate, err := strconv.ParseFloat(args[0], 64)
				if err != nil || rate < 0 {
					return fmt.Errorf("invalid rate %q", args[0])
				}
				return withAdminStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
					if err := store.SetSetting(ctx, "bank_interest_pct", strconv.FormatFloat(rate, 'f', -1, 64)); err != nil {
						return err
					}
					printSuccess(fmt.Sprintf("Bank rate set to %s per day.", args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "adjust <id> <field> <delta>",
			Short: "Move one balance field by a signed amount of cents",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				delta, err := strconv.ParseInt(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid delta %q", args[2])
				}
				return withAdminStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
					a, err := store.Mutate(ctx, args[0], func(a *ledger.Account) error {
						return a.Adjust(args[1], delta)
					})
					if err != nil {
						return err
					}
					printSuccess(fmt.Sprintf("Adjusted %s.%s by %d; cash is now %s CTC.",
						args[0], args[1], delta, formatCents(a.Cash)))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "account <id>",
			Short: "Dump one account record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAdminStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
					a, err := store.GetAccount(ctx, args[0])
					if err != nil {
						return err
					}
					body, err := json.MarshalIndent(a, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(body))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "settle",
			Short: "Run one passive income settlement pass",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAdminStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
					logger := slog.New(slog.NewTextHandler(io.Discard, nil))
					events := worldevent.New(store, config.DefaultConfig(), rng.NewCrypto(), logger)
					if err := events.Load(ctx); err != nil {
						return err
					}
					settler := accrual.NewEngine(store, config.DefaultConfig(), events, logger)
					if err := settler.SettleAll(ctx, time.Now().UTC()); err != nil {
						return err
					}
					printSuccess("Settlement pass complete.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "price-tick",
			Short: "Force one crypto price tick",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAdminStore(cmd.Context(), func(ctx context.Context, store *db.Store) error {
					logger := slog.New(slog.NewTextHandler(io.Discard, nil))
					events := worldevent.New(store, config.DefaultConfig(), rng.NewCrypto(), logger)
					if err := events.Load(ctx); err != nil {
						return err
					}
					price, err := events.TickPrice(ctx, time.Now().UTC())
					if err != nil {
						return err
					}
					printSuccess(fmt.Sprintf("Bitcity price: %s CTC per coin.", formatCents(price)))
					return nil
				})
			},
		},
	)
	return admin
}

func withAdminStore(ctx context.Context, fn func(ctx context.Context, store *db.Store) error) error {
	cfg, err := config.LoadAdminFromEnv()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	pool, err := db.Connect(runCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(runCtx, db.NewStore(pool))
}
