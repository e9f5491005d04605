package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/txn2/analytics-gateway/internal/server"
	"github.com/txn2/analytics-gateway/pkg/database/migrate"
	"github.com/txn2/analytics-gateway/pkg/platform"
)

const configFlag = "config"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "analytics-gateway",
		Short:         "Read-only HTTP gateway to the Trino analytics engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(configFlag, "", "Path to configuration file")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "analytics-gateway version %s\n", server.Version)
			return err
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := platform.NewLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := platform.New(ctx, platform.WithConfig(cfg), platform.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("creating platform: %w", err)
			}
			defer func() {
				if err := p.Close(); err != nil {
					logger.Warn("closing platform", "error", err)
				}
			}()

			return server.New(p).Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB, _ []string) error {
				if err := migrate.Run(db); err != nil {
					return err
				}
				return printVersion(cmd, db)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB, _ []string) error {
				if err := migrate.Down(db); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "all migrations rolled back")
				return err
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply (N > 0) or roll back (N < 0) N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withDB(func(cmd *cobra.Command, db *sql.DB, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				if err := migrate.Steps(db, n); err != nil {
					return err
				}
				return printVersion(cmd, db)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  withDB(func(cmd *cobra.Command, db *sql.DB, _ []string) error { return printVersion(cmd, db) }),
		},
	)
	return cmd
}

// openDB opens the audit database. Replaced in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func withDB(fn func(cmd *cobra.Command, db *sql.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is not configured")
		}
		db, err := openDB(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = db.Close() }()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		return fn(cmd, db, args)
	}
}

func printVersion(cmd *cobra.Command, db *sql.DB) error {
	v, dirty, err := migrate.Version(db)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", v, dirty)
	return err
}

func loadConfig(cmd *cobra.Command) (*platform.Config, error) {
	path, _ := cmd.Flags().GetString(configFlag)
	if path == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
