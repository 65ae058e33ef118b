package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/config"
	"github.com/iliyamo/points-ledger/internal/database"
	"github.com/iliyamo/points-ledger/internal/logger"
	"github.com/iliyamo/points-ledger/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "pointsctl",
	Short: "Operate the points ledger store",
	Long: `pointsctl works directly against the store configured by DB_DRIVER and
the DB_* variables (a .env file in the working directory is honored).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the accounts, ledger_entries and tokens tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

// openDB connects to the configured store and applies the schema.
func openDB(ctx context.Context) (*sqlx.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.Open(config.LoadDatabase())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// newService builds the points core over db with the configured policy.
func newService(db *sqlx.DB) (*service.Service, error) {
	zl, err := logger.New(logger.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	p := config.LoadPoints()
	return service.NewFromDB(db, service.Options{
		BaseGrant:  p.BaseGrant,
		MaxBatch:   p.MaxBatch,
		CodeLength: p.CodeLength,
		CodeFormat: p.CodeFormat,
		Logger:     zl.With(zap.String("cmd", "pointsctl")),
	}), nil
}
