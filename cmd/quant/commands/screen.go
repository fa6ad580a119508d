package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/selection"
	"github.com/lalith1997/quantscreen/internal/strategyconfig"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "스크리너 실행",
	Long: `펀더멘털 스크린을 특정 기준일(as-of) 기준으로 실행합니다.

Subcommands:
  run      - 프리셋 또는 YAML 스크린 실행
  presets  - 내장 프리셋 목록
  metrics  - 필터에 사용 가능한 지표 목록

Example:
  go run ./cmd/quant screen run --preset magic_formula --as-of 2024-06-28
  go run ./cmd/quant screen run --file screens/quality.yaml --limit 20 --save`,
}

var (
	screenRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스크린 실행",
		RunE:  runScreen,
	}

	screenPresetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "내장 프리셋 목록",
		RunE:  listPresets,
	}

	// presetsCmd is the top-level shortcut for "screen presets"
	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "내장 프리셋 목록 (screen presets)",
		RunE:  listPresets,
	}

	screenMetricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "지표 카탈로그",
		RunE:  listMetrics,
	}

	// Flags
	screenPreset string
	screenFile   string
	screenAsOf   string
	screenLimit  int
	screenSave   bool
	screenOut    string
)

func init() {
	rootCmd.AddCommand(screenCmd, presetsCmd)
	screenCmd.AddCommand(screenRunCmd)
	screenCmd.AddCommand(screenPresetsCmd)
	screenCmd.AddCommand(screenMetricsCmd)

	screenRunCmd.Flags().StringVar(&screenPreset, "preset", "", "프리셋 ID")
	screenRunCmd.Flags().StringVar(&screenFile, "file", "", "스크린 YAML 파일")
	screenRunCmd.Flags().StringVar(&screenAsOf, "as-of", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	screenRunCmd.Flags().IntVar(&screenLimit, "limit", 0, "결과 수 (0 = 스크린 기본값)")
	screenRunCmd.Flags().BoolVar(&screenSave, "save", false, "결과를 PostgreSQL에 저장")
	screenRunCmd.Flags().StringVar(&screenOut, "out", "", "JSON 결과 파일 ('-' = stdout)")
	screenRunCmd.MarkFlagsMutuallyExclusive("preset", "file")
	screenRunCmd.MarkFlagsOneRequired("preset", "file")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asOf, err := parseAsOf(screenAsOf)
	if err != nil {
		return err
	}

	var (
		screen contracts.Screen
		name   string
	)
	if screenPreset != "" {
		s, ok := selection.LookupPreset(screenPreset)
		if !ok {
			return fmt.Errorf("unknown preset %q (available: %s)", screenPreset, presetIDs())
		}
		screen, name = s, screenPreset
	} else {
		s, _, err := strategyconfig.LoadScreen(screenFile)
		if err != nil {
			return err
		}
		screen, name = *s, s.Name
		if name == "" {
			name = screenFile
		}
	}
	if screenLimit > 0 {
		screen.Limit = screenLimit
	}

	a, err := newApp(ctx, appOptions{needDB: screenSave})
	if err != nil {
		return err
	}
	defer a.Close()

	svc := selection.NewService(a.provider, a.opts, a.log)
	resp, err := svc.Run(ctx, screen, asOf)
	if err != nil {
		return fmt.Errorf("screen failed: %w", err)
	}

	if screenSave {
		id, err := selection.NewRepository(a.db.Pool).SaveRun(ctx, name, resp)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		defer PrintSuccess(fmt.Sprintf("Saved run %s", id))
	}

	if screenOut != "" {
		return writeJSON(screenOut, resp)
	}
	printScreenResponse(name, screen, resp)
	return nil
}

func printScreenResponse(name string, screen contracts.Screen, resp *contracts.ScreenerResponse) {
	PrintHeader(fmt.Sprintf("Screen: %s (as of %s)", name, resp.AsOf.Format(dateLayout)))
	for _, f := range resp.FiltersApplied {
		fmt.Printf("  • %s\n", f)
	}
	fmt.Printf("  Qualified: %d  Shown: %d  Omitted: %d  (%d ms)\n",
		resp.TotalCount, len(resp.Results), len(resp.Omitted), resp.ExecutionTimeMS)
	fmt.Println()

	sortBy := screen.WithDefaults().SortBy
	widths := []int{5, 8, 28, 22, 16, 14}
	PrintTableHeader([]string{"Rank", "Ticker", "Name", "Sector", "Market Cap", sortBy}, widths)
	for _, r := range resp.Results {
		sortValue := "-"
		if r.Metrics != nil {
			sortValue = r.Metrics.Get(sortBy).String()
		}
		PrintTableRow([]string{
			fmt.Sprintf("%d", r.Rank),
			r.Company,
			truncate(r.Name, widths[2]),
			truncate(r.Sector, widths[3]),
			formatOptional(r.MarketCap, "%.0f"),
			sortValue,
		}, widths)
	}

	if len(resp.Omitted) > 0 && verbose {
		fmt.Println()
		fmt.Println("Omitted:")
		for _, o := range resp.Omitted {
			fmt.Printf("  - %s: %s\n", o.Company, o.Reason)
		}
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	PrintHeader("Built-in Presets")
	for _, p := range selection.Presets() {
		fmt.Printf("📋 %s: %s\n", p.ID, p.Screen.Name)
		fmt.Printf("   %s\n", p.Screen.Description)
		for _, line := range p.Screen.Describe() {
			fmt.Printf("   • %s\n", line)
		}
		fmt.Println()
	}
	return nil
}

func listMetrics(cmd *cobra.Command, args []string) error {
	PrintHeader("Metric Catalog")
	widths := []int{32, 14}
	PrintTableHeader([]string{"Metric", "Category"}, widths)
	for _, m := range contracts.Catalog() {
		PrintTableRow([]string{m.Name, string(m.Category)}, widths)
	}
	return nil
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// presetIDs lists preset IDs for help and validation messages
func presetIDs() string {
	ps := selection.Presets()
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return strings.Join(ids, ", ")
}
