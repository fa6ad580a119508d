package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	snapshotSource string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "QuantScreen - 펀더멘털 스크리너 & 백테스터",
	Long: `QuantScreen Unified CLI

Point-in-time 펀더멘털 지표, 기술적 지표, 스크리너, 백테스트.
데이터 소스는 PostgreSQL(DATABASE_URL) 또는 JSON 스냅샷(--snapshot).

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant screen presets
  go run ./cmd/quant screen run --preset magic_formula --snapshot data/us.json
  go run ./cmd/quant backtest run --file strategies/value.yaml
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&snapshotSource, "snapshot", "", "JSON 스냅샷 경로 또는 http(s) URL (기본: SNAPSHOT_PATH, 없으면 PostgreSQL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
