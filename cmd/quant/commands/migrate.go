package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/pkg/config"
	"github.com/lalith1997/quantscreen/pkg/database"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 생성",
	Long: `PostgreSQL 스키마(market, engine)를 생성합니다.
모든 구문은 IF NOT EXISTS 이므로 반복 실행해도 안전합니다.

Example:
  go run ./cmd/quant migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info("Schema migrated")
	PrintSuccess("Schema is up to date")
	return nil
}
