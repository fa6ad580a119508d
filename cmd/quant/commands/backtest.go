package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/backtest"
	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스팅 프레임워크",
	Long: `스크린을 과거 기간에 대해 point-in-time으로 시뮬레이션합니다.

백테스팅은 다음을 계산합니다:
- 수익률 (Total return, CAGR)
- 리스크 지표 (Volatility, Sharpe, Sortino, MDD, VaR/CVaR)
- 승률, 리밸런싱 기록
- 벤치마크 대비 연도별 초과수익

Example:
  go run ./cmd/quant backtest run --file strategies/magic_formula.yaml
  go run ./cmd/quant backtest show 3f1c...`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `YAML 정의 파일로 백테스트를 실행합니다.
Ctrl+C로 중단하면 그 시점까지의 부분 결과(partial)를 출력합니다.

Example:
  go run ./cmd/quant backtest run --file strategies/value.yaml
  go run ./cmd/quant backtest run --file strategies/value.yaml --out result.json --save`,
		RunE: runBacktest,
	}

	backtestShowCmd = &cobra.Command{
		Use:   "show [id]",
		Short: "저장된 백테스트 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  showBacktest,
	}

	backtestListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 백테스트 목록",
		RunE:  listBacktests,
	}

	// Flags
	backtestFile  string
	backtestOut   string
	backtestSave  bool
	backtestLimit int
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestShowCmd)
	backtestCmd.AddCommand(backtestListCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestFile, "file", "", "백테스트 YAML 파일 (필수)")
	backtestRunCmd.Flags().StringVar(&backtestOut, "out", "", "JSON 결과 파일 ('-' = stdout)")
	backtestRunCmd.Flags().BoolVar(&backtestSave, "save", false, "결과를 PostgreSQL에 저장")
	backtestRunCmd.MarkFlagRequired("file")

	backtestListCmd.Flags().IntVar(&backtestLimit, "limit", 20, "조회 개수")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, _, err := strategyconfig.LoadBacktest(backtestFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{needDB: backtestSave})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.RiskFreeRate == 0 {
		cfg.RiskFreeRate = a.cfg.Engine.RiskFreeRate
	}
	for _, w := range strategyconfig.Warn(cfg) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	PrintHeader("Backtest")
	PrintKeyValue("Screen", cfg.Screen.Name, 12)
	PrintKeyValue("Period", cfg.PeriodStart.Format(dateLayout)+" ~ "+cfg.PeriodEnd.Format(dateLayout), 12)
	PrintKeyValue("Rebalance", string(cfg.RebalanceFrequency), 12)
	PrintKeyValue("Sizing", string(cfg.PositionSizing), 12)
	PrintKeyValue("Capital", formatNumber(cfg.StartingCapital), 12)
	PrintKeyValue("Commission", fmt.Sprintf("%.3f%%", cfg.CommissionRate*100), 12)
	fmt.Println()
	fmt.Println("🚀 Starting backtest... (Ctrl+C returns a partial result)")

	engine := backtest.NewEngine(a.provider, a.opts, a.log)
	result, err := engine.Run(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if backtestSave {
		// the run context may already be cancelled for a partial result
		if err := backtest.NewRepository(a.db.Pool).SaveResult(cmd.Context(), result); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		defer PrintSuccess("Saved backtest " + result.ID)
	}

	if backtestOut != "" {
		if err := writeJSON(backtestOut, result); err != nil {
			return err
		}
		if backtestOut == "-" {
			return nil
		}
	}
	printBacktestResult(result)
	return nil
}

func showBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := backtest.NewRepository(a.db.Pool).GetResult(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get backtest %s: %w", args[0], err)
	}
	printBacktestResult(result)
	return nil
}

func listBacktests(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := backtest.NewRepository(a.db.Pool).ListRecent(cmd.Context(), backtestLimit)
	if err != nil {
		return err
	}

	widths := []int{36, 10, 8, 20}
	PrintTableHeader([]string{"ID", "CAGR", "Partial", "Created"}, widths)
	for _, r := range runs {
		PrintTableRow([]string{r.ID, formatPct(r.CAGR), fmt.Sprintf("%v", r.Partial), r.CreatedAt.Format("2006-01-02 15:04")}, widths)
	}
	return nil
}

func printBacktestResult(result *contracts.BacktestResult) {
	s := result.Summary

	fmt.Println()
	if result.Partial {
		PrintWarning("Backtest interrupted: partial result")
	} else {
		PrintSuccess("Backtest Completed")
	}
	PrintDoubleSeparator()

	// Summary
	fmt.Println("📊 Summary")
	PrintKeyValue("ID", result.ID, 16)
	PrintKeyValue("Trading days", fmt.Sprintf("%d (%.1f years)", s.TradingDays, s.Years), 16)
	PrintKeyValue("Rebalances", fmt.Sprintf("%d", len(result.Rebalances)), 16)
	fmt.Println()

	// Performance
	fmt.Println("💰 Performance")
	PrintKeyValue("Start value", formatNumber(s.StartValue), 16)
	PrintKeyValue("End value", formatNumber(s.EndValue), 16)
	PrintKeyValue("Total return", formatPct(s.TotalReturn), 16)
	PrintKeyValue("CAGR", formatPct(s.CAGR), 16)
	PrintKeyValue("Volatility", fmt.Sprintf("%.2f%%", s.Volatility*100), 16)
	fmt.Println()

	// Risk Metrics
	fmt.Println("📉 Risk Metrics")
	PrintKeyValue("Sharpe", fmt.Sprintf("%.2f", s.Sharpe), 16)
	PrintKeyValue("Sortino", fmt.Sprintf("%.2f", s.Sortino), 16)
	PrintKeyValue("Max drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100), 16)
	PrintKeyValue("Win rate", fmt.Sprintf("%.1f%%", s.WinRate*100), 16)
	PrintKeyValue("VaR / CVaR 95", fmt.Sprintf("%.2f%% / %.2f%%", s.VaR95*100, s.CVaR95*100), 16)
	if b := result.Benchmark; b != nil {
		PrintKeyValue("Benchmark CAGR", formatPct(b.CAGR), 16)
	}
	fmt.Println()

	// Yearly table
	if len(result.Yearly) > 0 {
		fmt.Println("📅 Yearly Returns")
		widths := []int{6, 12, 12, 12}
		PrintTableHeader([]string{"Year", "Strategy", "Benchmark", "Excess"}, widths)
		for _, y := range result.Yearly {
			PrintTableRow([]string{
				fmt.Sprintf("%d", y.Year),
				formatPct(y.StrategyReturn),
				pctOrDash(y.BenchmarkReturn),
				pctOrDash(y.ExcessReturn),
			}, widths)
		}
		fmt.Println()
	}

	if len(result.Warnings) > 0 {
		fmt.Println("⚠️  Warnings")
		for _, w := range result.Warnings {
			fmt.Printf("   %s [%s] %s\n", w.Date.Format(dateLayout), w.Kind, w.Message)
		}
		fmt.Println()
	}
}

func pctOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatPct(*v)
}
