package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/internal/scheduler"
	"github.com/lalith1997/quantscreen/internal/scheduler/jobs"
	"github.com/lalith1997/quantscreen/internal/selection"
)

// screenRunRetention is how long stored screen runs are kept
const screenRunRetention = 90 * 24 * time.Hour

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run nightly_presets`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- universe_snapshot: 평일 18:00 (품질 검증 + Universe 스냅샷)
- nightly_presets: SCREEN_NIGHTLY_CRON (기본 평일 18:30, 프리셋 스크린 저장)
- snapshot_import: SNAPSHOT_PATH 설정 시 평일 17:00 (스냅샷 → PostgreSQL)
- screen_run_retention: 매주 일요일 03:00 (90일 지난 스크린 결과 삭제)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== QuantScreen Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	stats := sched.GetJobStats()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %-22s %s\n", jobName, stats[jobName].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	// run once without retries
	a, sched, err := initScheduler(cmd, scheduler.WithRetry(0, 0))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	result, err := sched.RunNow(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %s: %s", jobName, result.Duration.Round(time.Millisecond), result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// entries only get a next run time once cron is running
	sched.Start()
	defer sched.Stop()

	stats := sched.GetJobStats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, jobName := range names {
		stat := stats[jobName]
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.NextRun != nil {
			fmt.Printf("   Next Run: %s\n", stat.NextRun.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// initScheduler registers every job the configured data source supports.
// Jobs that persist results are registered only with PostgreSQL.
func initScheduler(cmd *cobra.Command, opts ...scheduler.Option) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), appOptions{wantDB: true})
	if err != nil {
		return nil, nil, err
	}
	cfg, log := a.cfg, a.log

	sched := scheduler.New(log, opts...)

	var (
		runStore  jobs.RunStore
		reports   jobs.ReportStore
		universes jobs.UniverseStore
	)
	if a.db != nil {
		runStore = selection.NewRepository(a.db.Pool)
		reports = quality.NewRepository(a.db.Pool)
		universes = s1_universe.NewRepository(a.db.Pool)
	}

	register := func(job scheduler.Job) error {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return err
		}
		return nil
	}

	gate := quality.NewQualityGate(a.provider, quality.DefaultConfig(), log)
	builder := s1_universe.NewBuilder(a.provider, s1_universe.Policy{}, log)
	if err := register(jobs.NewUniverseJob(gate, reports, builder, universes, log)); err != nil {
		return nil, nil, err
	}

	svc := selection.NewService(a.provider, a.opts, log)
	if err := register(jobs.NewNightlyPresetsJob(svc, runStore, cfg.Scheduler.NightlyPresets, cfg.Scheduler.NightlyCron, log)); err != nil {
		return nil, nil, err
	}

	if a.db != nil {
		if cfg.Scheduler.SnapshotPath != "" {
			importJob := jobs.NewSnapshotImportJob(cfg.Scheduler.SnapshotPath, s0_data.NewRepository(a.db.Pool), "0 0 17 * * 1-5", log).
				WithDownloader(a.http)
			if err := register(importJob); err != nil {
				return nil, nil, err
			}
		}
		if err := register(jobs.NewRetentionJob(selection.NewRepository(a.db.Pool), screenRunRetention, log)); err != nil {
			return nil, nil, err
		}
	}

	return a, sched, nil
}
