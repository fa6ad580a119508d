package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/pkg/config"
	"github.com/lalith1997/quantscreen/pkg/database"
	"github.com/lalith1997/quantscreen/pkg/redis"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "인프라 상태 확인",
	Long: `설정과 인프라 연결 상태를 확인합니다.

이 명령어는:
- config 로드
- PostgreSQL 연결 + Health Check + Connection Pool 통계
- Redis 연결
- 최근 데이터 품질 리포트

Example:
  go run ./cmd/quant status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== QuantScreen Status ===")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	if cfg.Scheduler.SnapshotPath != "" {
		fmt.Printf("   Snapshot: %s\n", cfg.Scheduler.SnapshotPath)
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	checkDatabase(ctx, cfg)
	checkRedis(ctx, cfg)
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) {
	fmt.Println("🐘 PostgreSQL")
	if cfg.Database.URL == "" {
		fmt.Println("   not configured (snapshot mode only)")
		fmt.Println()
		return
	}
	fmt.Printf("   URL: %s\n", maskPassword(cfg.Database.URL))

	db, err := database.New(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect: %v\n\n", err)
		return
	}
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("❌ Health check failed: %v\n\n", err)
		return
	}
	fmt.Printf("✅ Healthy (response %v)\n", status.ResponseTime)
	fmt.Printf("   Connections: %d total / %d acquired / %d idle / %d max\n",
		status.Stats.TotalConns, status.Stats.AcquiredConns, status.Stats.IdleConns, status.Stats.MaxConns)

	report, err := quality.NewRepository(db.Pool).GetLatest(ctx)
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		fmt.Println("   Quality: no report yet")
	case err != nil:
		fmt.Printf("   Quality: unavailable (%v)\n", err)
	default:
		mark := "✅"
		if !report.Passed {
			mark = "⚠️ "
		}
		fmt.Printf("   Quality: %s %s score %.2f (%d/%d companies complete)\n",
			mark, report.Date.Format(dateLayout), report.Score, report.ValidCompanies, report.TotalCompanies)
	}
	fmt.Println()
}

func checkRedis(ctx context.Context, cfg *config.Config) {
	fmt.Println("🧰 Redis")
	if !cfg.Redis.Enabled {
		fmt.Println("   disabled (metric cache and shared rate limit off)")
		fmt.Println()
		return
	}

	client, err := redis.New(ctx, cfg)
	if err != nil {
		fmt.Printf("❌ %v\n\n", err)
		return
	}
	defer client.Close()
	fmt.Printf("✅ Connected (%s:%s db %d)\n\n", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)
}

// maskPassword hides the password in a database URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
