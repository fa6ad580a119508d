package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/api"
	"github.com/lalith1997/quantscreen/internal/api/handlers"
	"github.com/lalith1997/quantscreen/internal/backtest"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/internal/selection"
	"github.com/lalith1997/quantscreen/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/screener/presets            - 프리셋 목록
  GET  /api/screener/metrics            - 지표 카탈로그
  POST /api/screener/run                - 스크린 실행
  POST /api/screener/presets/{id}/run   - 프리셋 실행
  GET  /api/screener/runs/{id}          - 저장된 스크린 결과 (DB)
  POST /api/backtest/run                - 백테스트 실행 (YAML 또는 JSON)
  GET  /api/backtest/runs               - 최근 백테스트 (DB)
  GET  /api/backtest/runs/{id}          - 저장된 백테스트 (DB)
  GET  /api/indicators                  - 지표 종류
  GET  /api/indicators/{company}/{kind} - 기술적 지표 시계열
  GET  /api/data/quality                - 데이터 품질 리포트
  GET  /api/data/universe               - Universe 조회

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080 --snapshot data/us.json`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== QuantScreen API Server ===")

	a, err := newApp(cmd.Context(), appOptions{wantDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"database": a.db != nil,
		"redis":    a.redis.Enabled(),
	}).Info("Initializing API server")

	// Optional persistence
	var (
		runRepo      *selection.Repository
		backtestRepo *backtest.Repository
		qualityRepo  *quality.Repository
		universeRepo *s1_universe.Repository
	)
	if a.db != nil {
		runRepo = selection.NewRepository(a.db.Pool)
		backtestRepo = backtest.NewRepository(a.db.Pool)
		qualityRepo = quality.NewRepository(a.db.Pool)
		universeRepo = s1_universe.NewRepository(a.db.Pool)
	}

	screener := handlers.NewScreenerHandler(selection.NewService(a.provider, a.opts, log), runRepo, log)
	if a.redis.Enabled() {
		screener.WithCache(redis.NewCache(a.redis, "quantscreen"))
	}

	// Handlers
	h := api.Handlers{
		Screener:  screener,
		Backtest:  handlers.NewBacktestHandler(backtest.NewEngine(a.provider, a.opts, log), backtestRepo, log),
		Indicator: handlers.NewIndicatorHandler(a.provider, cfg.Engine.PriceLookbackDays, log),
		Data: handlers.NewDataHandler(
			a.provider,
			quality.NewQualityGate(a.provider, quality.DefaultConfig(), log),
			qualityRepo,
			universeRepo,
			log,
		),
	}

	limit := api.RateLimit{PerSecond: cfg.API.RateLimit, Burst: cfg.API.RateBurst}
	if a.redis.Enabled() {
		limit.Shared = redis.NewRateLimiter(a.redis, "quantscreen")
	}

	router := api.NewRouter(h, limit, log)
	server := api.New(cfg, log, router)

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
