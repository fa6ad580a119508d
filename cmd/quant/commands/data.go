package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "데이터 관리",
	Long: `시장 데이터를 적재하고 검증합니다.

Subcommands:
  import    - 스냅샷 → PostgreSQL 적재
  check     - 데이터 품질 검증 (Quality Gate)
  universe  - 투자 가능 Universe 생성

Example:
  go run ./cmd/quant data import --snapshot ./data/snapshot.json
  go run ./cmd/quant data check --as-of 2024-06-28 --save
  go run ./cmd/quant data universe --as-of 2024-06-28`,
}

var (
	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "스냅샷을 PostgreSQL로 적재",
		RunE:  runDataImport,
	}

	dataCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "데이터 품질 검증",
		RunE:  runDataCheck,
	}

	dataUniverseCmd = &cobra.Command{
		Use:   "universe",
		Short: "Universe 생성",
		RunE:  runDataUniverse,
	}
)

var (
	dataDate string
	dataSave bool
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataImportCmd, dataCheckCmd, dataUniverseCmd)

	for _, c := range []*cobra.Command{dataCheckCmd, dataUniverseCmd} {
		c.Flags().StringVar(&dataDate, "as-of", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
		c.Flags().BoolVar(&dataSave, "save", false, "결과를 PostgreSQL에 저장")
	}
}

func runDataImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	mem, ok := a.provider.(*s0_data.MemoryProvider)
	if !ok {
		return fmt.Errorf("import needs a snapshot source: pass --snapshot or set SNAPSHOT_PATH")
	}

	snap := mem.Snapshot()
	if err := s0_data.NewRepository(a.db.Pool).Import(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Imported %d companies, %d fundamentals, %d price bars",
		len(snap.Companies), len(snap.Fundamentals), len(snap.Prices)))
	return nil
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	date, err := parseAsOf(dataDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{needDB: dataSave})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := quality.NewQualityGate(a.provider, quality.DefaultConfig(), a.log).Check(ctx, date)
	if err != nil {
		return fmt.Errorf("quality check: %w", err)
	}

	PrintHeader(fmt.Sprintf("Data Quality %s", date.Format(dateLayout)))
	PrintKeyValue("Companies", fmt.Sprintf("%d / %d complete", report.ValidCompanies, report.TotalCompanies), 12)
	PrintKeyValue("Score", fmt.Sprintf("%.2f", report.Score), 12)

	keys := make([]string, 0, len(report.Coverage))
	for k := range report.Coverage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	PrintSeparator()
	for _, k := range keys {
		PrintKeyValue(k, fmt.Sprintf("%.1f%%", report.Coverage[k]*100), 12)
	}
	PrintSeparator()

	for _, f := range report.Failures {
		PrintWarning(f)
	}
	if report.Passed {
		PrintSuccess("Quality gate passed")
	} else {
		PrintWarning("Quality gate failed")
	}

	if dataSave {
		if err := quality.NewRepository(a.db.Pool).SaveReport(ctx, report); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		PrintSuccess("Report saved")
	}
	return nil
}

func runDataUniverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	asOf, err := parseAsOf(dataDate)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{needDB: dataSave})
	if err != nil {
		return err
	}
	defer a.Close()

	universe, err := s1_universe.NewBuilder(a.provider, s1_universe.Policy{}, a.log).Build(ctx, asOf)
	if err != nil {
		return fmt.Errorf("build universe: %w", err)
	}

	PrintHeader(fmt.Sprintf("Universe %s", asOf.Format(dateLayout)))
	widths := []int{12, 30, 20}
	PrintTableHeader([]string{"ID", "Name", "Sector"}, widths)
	for _, c := range universe.Companies {
		PrintTableRow([]string{c.ID, truncate(c.Name, 30), c.Sector}, widths)
	}
	PrintSeparator()
	fmt.Printf("Included %d of %d (excluded %d)\n", len(universe.Companies), universe.TotalCount, len(universe.Excluded))

	if dataSave {
		if err := s1_universe.NewRepository(a.db.Pool).SaveUniverse(ctx, universe); err != nil {
			return fmt.Errorf("save universe: %w", err)
		}
		PrintSuccess("Universe saved")
	}
	return nil
}
