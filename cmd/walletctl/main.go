// Command walletctl runs operator tasks against the wallet database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ayo6706/multicurrency-wallet/internal/app"
	"github.com/ayo6706/multicurrency-wallet/internal/config"
	"github.com/ayo6706/multicurrency-wallet/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	databaseURL string
	timeout     time.Duration
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "walletctl",
		Short: "Operator tool for the multi-currency wallet",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := app.NewLogger(os.Getenv("LOG_LEVEL"))
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Command timeout")

	rootCmd.AddCommand(migrateCmd(), transfersCmd(), reconcileCmd(), claimsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.MigrateUp(databaseURL)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.MigrateDown(databaseURL, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, dirty, err := db.MigrationVersion(databaseURL)
			if err != nil {
				return err
			}
			fmt.Printf("version: %d dirty: %v\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func transfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Transfer operations",
	}

	var limit, offset int
	failed := &cobra.Command{
		Use:   "failed",
		Short: "List transfers awaiting manual review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, c *app.Components) error {
				transfers, err := c.Services.Transfers.ListFailedTransfers(ctx, limit, offset)
				if err != nil {
					return err
				}
				return printJSON(transfers)
			})
		},
	}
	failed.Flags().IntVar(&limit, "limit", 50, "Page size")
	failed.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(failed)
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check balances against the mutation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, c *app.Components) error {
				report, err := c.Reconciliation.Run(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(report); err != nil {
					return err
				}
				if !report.Healthy() {
					return fmt.Errorf("reconciliation FAILED: %d drifted balances, %d negative balances",
						len(report.DriftedBalances), report.NegativeBalances)
				}
				fmt.Println("reconciliation PASSED")
				return nil
			})
		},
	}
}

func claimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Claim link operations",
	}

	var batch int32
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel expired claim links and queue their transfers for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(func(ctx context.Context, c *app.Components) error {
				n, err := c.Services.Claims.SweepExpired(ctx, batch)
				if err != nil {
					return err
				}
				fmt.Printf("expired claims: %d\n", n)
				return nil
			})
		},
	}
	sweep.Flags().Int32Var(&batch, "batch", 100, "Maximum claims to expire")

	cmd.AddCommand(sweep)
	return cmd
}

func withComponents(fn func(ctx context.Context, c *app.Components) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
