package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/spf13/cobra"

	"github.com/conduit-lang/lifecycle/internal/cli/config"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check database connectivity using the configured URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		url := config.GetDatabaseURL(cfg)
		if url == "" {
			return fmt.Errorf("no database URL configured (set database.url in lifecycle.yml or DATABASE_URL)")
		}

		driver := "pgx"
		if cfg.Database.Dialect == "sqlite" {
			driver = "sqlite3"
		}

		db, err := sql.Open(driver, url)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}

		fmt.Println("Database connection OK.")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbPingCmd)
}
