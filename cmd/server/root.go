package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"studio-portal/internal/config"
	"studio-portal/internal/logging"
	"studio-portal/internal/storage"
)

// commandContext carries the resolved configuration shared by subcommands.
type commandContext struct {
	addrFlag string
	dbFlag   string

	cfg    config.Config
	logger *slog.Logger
}

// load parses the environment, applies flag overrides and installs the
// default logger.
func (c *commandContext) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = c.addrFlag
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = c.dbFlag
	}
	c.cfg = cfg
	c.logger = logging.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(c.logger)
	return nil
}

func (c *commandContext) openDB(ctx context.Context) (*storage.DB, error) {
	return storage.InitDB(ctx, c.cfg.DBPath)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "studio-portal",
		Short:         "Client portal for a photography studio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.addrFlag, "addr", "", "Listen address (overrides PORTAL_ADDR)")
	rootCmd.PersistentFlags().StringVar(&ctx.dbFlag, "db", "", "SQLite database path (overrides PORTAL_DB_PATH)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))
	rootCmd.AddCommand(newOverviewCommand(ctx))
	rootCmd.AddCommand(newInquiriesCommand(ctx))
	rootCmd.AddCommand(newHashPasswordCommand())

	return rootCmd
}
