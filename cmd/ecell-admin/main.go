package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cl "github.com/SrishantKumar/E-Cell-Trading/internal/cli"
	"github.com/SrishantKumar/E-Cell-Trading/internal/config"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "ecell",
		Short:        "E-Cell trading game console",
		SilenceUsage: true,
	}

	root.AddCommand(
		newJoinCmd(cfg),
		newLeaveCmd(cfg),
		newMeCmd(cfg),
		newMarketCmd(cfg),
		newStatusCmd(cfg),
		newLeaderboardCmd(cfg),
		newNewsCmd(cfg),
		newBuyCmd(cfg),
		newSellCmd(cfg),
		newSabotageCmd(cfg),
		newAdminCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		printError(fmt.Sprintf("error: %v", err))
		os.Exit(1)
	}
}

func newClient(cfg config.CLIConfig) *cl.Client {
	return cl.NewClient(cfg.APIBaseURL, cfg.AdminSecret)
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newJoinCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "join [team name]",
		Short: "Join the game as a new team",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if name == "" {
				var err error
				name, err = promptRequired("Team name")
				if err != nil {
					return err
				}
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Join(ctx, name)
			if err != nil {
				return err
			}
			teamID, _ := out.Team["id"].(string)
			if err := cl.SaveSession(cl.Session{Token: out.Token, TeamID: teamID, Name: name}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Joined as %q. Session saved.", name))
			return nil
		},
	}
}

func newLeaveCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Revoke the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err == nil {
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				if err := newClient(cfg).Leave(ctx, session.Token); err != nil {
					printWarn(fmt.Sprintf("server revoke failed: %v", err))
				}
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared.")
			return nil
		},
	}
}

func newMeCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your team's cash, shares and net worth",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Me(ctx, session.Token)
			if err != nil {
				return err
			}
			printTeam(out)
			return nil
		},
	}
}

func newMarketCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show the current market snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Market(ctx)
			if err != nil {
				return err
			}
			printMarket(out)
			return nil
		},
	}
}

func newStatusCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status and countdowns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).State(ctx)
			if err != nil {
				return err
			}
			printStatus(out)
			return nil
		},
	}
}

func newLeaderboardCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb", "players"},
		Short:   "Show all teams ranked by net worth",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).Players(ctx)
			if err != nil {
				return err
			}
			printLeaderboard(out)
			return nil
		},
	}
}

func newNewsCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Show the latest market news",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(cfg).LatestNews(ctx)
			if err != nil {
				return err
			}
			printNews(out)
			return nil
		},
	}
}

func newBuyCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <quantity>",
		Short: "Buy shares at the current price",
		Args:  cobra.ExactArgs(1),
		RunE:  tradeRunE(cfg, "buy"),
	}
}

func newSellCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <quantity>",
		Short: "Sell shares at the current price",
		Args:  cobra.ExactArgs(1),
		RunE:  tradeRunE(cfg, "sell"),
	}
}

func tradeRunE(cfg config.CLIConfig, side string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || qty <= 0 {
			return fmt.Errorf("quantity must be a positive whole number")
		}
		session, err := cl.LoadSession()
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext(cmd)
		defer cancel()
		client := newClient(cfg)

		var out map[string]any
		if side == "buy" {
			out, err = client.Buy(ctx, session.Token, qty)
		} else {
			out, err = client.Sell(ctx, session.Token, qty)
		}
		if err != nil {
			return err
		}
		verb := "Bought"
		if side == "sell" {
			verb = "Sold"
		}
		printSuccess(fmt.Sprintf("%s %d shares at %v", verb, qty, out["price"]))
		printTeam(out)
		return nil
	}
}

func newSabotageCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sabotage <target team id>",
		Short: "Freeze another team's trading for a while",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cl.LoadSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(cfg).Sabotage(ctx, session.Token, args[0]); err != nil {
				return err
			}
			printSuccess("Sabotage landed.")
			return nil
		},
	}
}

func newAdminCmd(cfg config.CLIConfig) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Session control (requires ECELL_ADMIN_SECRET)",
	}

	simple := func(use, short string, call func(context.Context, *cl.Client) (map[string]any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := cmdContext(cmd)
				defer cancel()
				out, err := call(ctx, newClient(cfg))
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("%s: ok", use))
				printJSON(out)
				return nil
			},
		}
	}

	admin.AddCommand(
		simple("start", "Start or resume the session", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminStart(ctx)
		}),
		simple("pause", "Pause the session", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminPause(ctx)
		}),
		simple("reset", "Wipe all teams and restore lobby defaults", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminReset(ctx)
		}),
		simple("advance-round", "Start the next round", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminAdvanceRound(ctx)
		}),
		simple("crash", "Force a five-tick market crash", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminCrash(ctx)
		}),
		simple("stimulus", "Give every team a cash stimulus", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminStimulus(ctx)
		}),
		simple("tick", "Run one market tick manually", func(ctx context.Context, c *cl.Client) (map[string]any, error) {
			return c.AdminTick(ctx)
		}),
		newAdminTrendCmd(cfg),
		newAdminNewsCmd(cfg),
	)
	return admin
}

func newAdminTrendCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "trend <bull|bear|crash|spike>",
		Short: "Set the market trend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(cfg).AdminTrend(ctx, strings.ToLower(args[0])); err != nil {
				return err
			}
			printSuccess("Trend updated.")
			return nil
		},
	}
}

func newAdminNewsCmd(cfg config.CLIConfig) *cobra.Command {
	var effect string
	cmd := &cobra.Command{
		Use:   "news <headline>",
		Short: "Broadcast a news item to all players",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			headline := strings.Join(args, " ")
			out, err := newClient(cfg).AdminNews(ctx, headline, strings.ToUpper(effect))
			if err != nil {
				return err
			}
			printSuccess("News broadcast.")
			printJSON(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&effect, "effect", "e", "NEUTRAL", "news effect: BOOST, DROP or NEUTRAL")
	return cmd
}
