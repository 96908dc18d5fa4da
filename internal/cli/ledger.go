package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Madhuiit/dcl/internal/export"
	"github.com/Madhuiit/dcl/internal/ledger"
	"github.com/Madhuiit/dcl/internal/model"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(sellCmd)
	rootCmd.AddCommand(unsellCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)

	resetCmd.Flags().Bool("yes", false, "Confirm wiping every sale")
	exportCmd.Flags().String("xlsx", "", "Write the Excel report to this path instead of printing JSON")
}

// --- read commands ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show team budgets, rosters and bidding power",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(_ context.Context, e *ledger.Engine) error {
			v := e.View()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TEAM\tPOINTS\tPLAYERS\tBIDDING POWER")
			for _, t := range v.Teams {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t.Name, t.Points, len(t.Players), t.MaxBid)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nunsold: %d of %d players\nhistory: %s\n",
				len(v.Ledger.UnsoldPlayerIDs), len(v.Ledger.Players), v.History)
			return nil
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Pick a random unsold player for the spotlight",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(_ context.Context, e *ledger.Engine) error {
			p, ok := e.NextUnsoldPlayer()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "All players have been sold.")
				return nil
			}
			return printJSON(cmd, p)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search unsold players by name or id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(_ context.Context, e *ledger.Engine) error {
			for _, p := range e.SearchUnsold(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", p.ID, p.PlayerName)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the roster export as JSON or write the Excel report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("xlsx")
		return withEngine(cmd, func(_ context.Context, e *ledger.Engine) error {
			p := e.ExportProjection()
			if path == "" {
				return printJSON(cmd, p)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := export.Write(f, p); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		})
	},
}

// --- mutations ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reload the catalog and clear every sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("reset discards every sale; rerun with --yes to confirm")
		}
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Auction has been reset.")
			return nil
		})
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell PLAYER_ID TEAM POINTS",
	Short: "Sell a player to a team",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePlayerID(args[0])
		if err != nil {
			return err
		}
		points, err := parsePoints(args[2])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.Sell(ctx, id, args[1], points); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Player %d sold to %s for %d points.\n", id, args[1], points)
			return nil
		})
	},
}

var unsellCmd = &cobra.Command{
	Use:   "unsell PLAYER_ID TEAM",
	Short: "Return a sold player to the pool and refund the team",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePlayerID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.Unsell(ctx, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Player %d returned to the pool.\n", id)
			return nil
		})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer PLAYER_ID FROM_TEAM TO_TEAM POINTS",
	Short: "Move a sold player to another team at a new price",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePlayerID(args[0])
		if err != nil {
			return err
		}
		points, err := parsePoints(args[3])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.TransferSale(ctx, id, args[1], args[2], points); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Player %d transferred from %s to %s for %d points.\n", id, args[1], args[2], points)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit PLAYER_ID TEAM POINTS",
	Short: "Change the price of a completed sale",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePlayerID(args[0])
		if err != nil {
			return err
		}
		points, err := parsePoints(args[2])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.EditSaleAmount(ctx, id, args[1], points); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Player %d now costs %s %d points.\n", id, args[1], points)
			return nil
		})
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the most recent sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e *ledger.Engine) error {
			if err := e.Undo(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Last sale undone.")
			return nil
		})
	},
}

// --- helpers ---

func parsePlayerID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: player id %q is not a number", model.ErrValidation, s)
	}
	return id, nil
}

func parsePoints(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: points %q is not a number", model.ErrValidation, s)
	}
	return n, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
