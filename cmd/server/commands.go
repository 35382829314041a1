package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studio-portal/internal/admin"
	"studio-portal/internal/auth"
	"studio-portal/internal/seed"
	"studio-portal/internal/workflow"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", ctx.cfg.DBPath)
			return nil
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load users, clients, occasions and sessions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open fixtures: %w", err)
			}
			defer f.Close()

			fx, err := seed.Parse(f)
			if err != nil {
				return err
			}

			db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			rep, err := seed.Apply(cmd.Context(), db, workflow.NewStudio(db, workflow.WithLogger(ctx.logger)), fx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d occasions, %d users, %d clients, %d sessions (%d existing users skipped)\n",
				rep.Occasions, rep.Users, rep.Clients, rep.Sessions, rep.Skipped)
			return nil
		},
	}
}

func newOverviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Print session statistics and the project table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			ov, err := admin.Build(cmd.Context(), db, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOverview(ov))
			return nil
		},
	}
}

func newInquiriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inquiries",
		Short: "List contact requests from the landing page, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			inquiries, err := db.ListInquiries(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInquiries(inquiries))
			return nil
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
