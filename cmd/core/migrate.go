package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/sqlstore"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateDownCmd.Flags().Bool("yes", false, "Confirm dropping every ledger table")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or upgrade the schema (idempotent)",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Drop every ledger table",
	RunE:  runMigrateDown,
}

func requireSQL() error {
	if cfg.Store.Backend != config.BackendSQL {
		return fmt.Errorf("migrate: store.backend is %q, only sql has a schema", cfg.Store.Backend)
	}
	return prepareSQLite(cfg.Store.Database)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	if err := requireSQL(); err != nil {
		return err
	}
	version, err := sqlstore.EnsureSchema(cfg.Store.Database)
	if err != nil {
		return err
	}
	log.Info("Schema up to date", zap.String("driver", cfg.Store.Database.Driver), zap.Uint("version", version))
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return errors.New("migrate down drops all data, re-run with --yes")
	}
	if err := requireSQL(); err != nil {
		return err
	}
	if err := sqlstore.DropSchema(cfg.Store.Database); err != nil {
		return err
	}
	log.Info("Schema dropped", zap.String("driver", cfg.Store.Database.Driver))
	return nil
}
