// Package cli implements auctionctl, the operator command line for the
// auction ledger. Every command builds the same store and engine stack as
// the HTTP server. Against a live deployment's backend, enable
// DISTRIBUTED_LOCK on both sides: mutations then serialize on the shared
// lock and the server reloads the snapshot before serving reads.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Madhuiit/dcl/internal/bootstrap"
	"github.com/Madhuiit/dcl/internal/config"
	"github.com/Madhuiit/dcl/internal/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "auctionctl",
	Short: "Operate the DCL auction ledger from the terminal",
	Long: `auctionctl drives the auction ledger directly against the configured
store. Configuration is read from the environment and an optional .env file,
exactly as the server reads it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file (missing files are ignored)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// withEngine loads configuration, builds the ledger stack and hands the
// engine to fn. Resources are released when fn returns.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *ledger.Engine) error) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.Build(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app.Engine)
}
