package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lalith1997/quantscreen/internal/technical"
)

// indicatorCmd represents the indicator command
var indicatorCmd = &cobra.Command{
	Use:   "indicator [kind] [company]",
	Short: "기술적 지표 계산",
	Long: `종목의 가격 데이터로 기술적 지표 시계열을 계산합니다.

Kinds: sma, ema, rsi, macd, bollinger, atr, adx, ichimoku,
       stochastic, williams_r, obv, roc, volatility, support_resistance

Example:
  go run ./cmd/quant indicator rsi AAPL --as-of 2024-06-28
  go run ./cmd/quant indicator macd MSFT --fast 12 --slow 26 --signal 9 --tail 5`,
	Args: cobra.ExactArgs(2),
	RunE: runIndicator,
}

var (
	indicatorFrom   string
	indicatorAsOf   string
	indicatorTail   int
	indicatorOut    string
	indicatorParams technical.Params
)

func init() {
	rootCmd.AddCommand(indicatorCmd)

	indicatorCmd.Flags().StringVar(&indicatorFrom, "from", "", "시작일 (YYYY-MM-DD, 기본: as-of - ENGINE_PRICE_LOOKBACK_DAYS)")
	indicatorCmd.Flags().StringVar(&indicatorAsOf, "as-of", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	indicatorCmd.Flags().IntVar(&indicatorTail, "tail", 10, "출력할 마지막 값 개수 (0 = 전체)")
	indicatorCmd.Flags().StringVar(&indicatorOut, "out", "", "JSON 결과 파일 ('-' = stdout)")
	indicatorCmd.Flags().IntVar(&indicatorParams.Period, "period", 0, "기간")
	indicatorCmd.Flags().IntVar(&indicatorParams.Fast, "fast", 0, "MACD fast")
	indicatorCmd.Flags().IntVar(&indicatorParams.Slow, "slow", 0, "MACD slow")
	indicatorCmd.Flags().IntVar(&indicatorParams.Signal, "signal", 0, "MACD signal / stochastic %D")
	indicatorCmd.Flags().Float64Var(&indicatorParams.StdDev, "stddev", 0, "Bollinger band width")
}

func runIndicator(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind, company := technical.Kind(strings.ToLower(args[0])), args[1]

	asOf, err := parseAsOf(indicatorAsOf)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	from := asOf.AddDate(0, 0, -a.cfg.Engine.PriceLookbackDays)
	if indicatorFrom != "" {
		if from, err = time.Parse(dateLayout, indicatorFrom); err != nil {
			return fmt.Errorf("invalid --from %q", indicatorFrom)
		}
	}

	points, err := technical.FromProvider(ctx, a.provider, technical.Request{
		Company: company,
		Kind:    kind,
		Params:  indicatorParams,
		From:    from,
		AsOf:    asOf,
	})
	if err != nil {
		return err
	}

	if indicatorOut != "" {
		return writeJSON(indicatorOut, points)
	}

	PrintHeader(fmt.Sprintf("%s %s (%s ~ %s)", strings.ToUpper(string(kind)), company, from.Format(dateLayout), asOf.Format(dateLayout)))
	if len(points) == 0 {
		PrintWarning("Not enough bars for the warm-up window")
		return nil
	}
	if indicatorTail > 0 && len(points) > indicatorTail {
		points = points[len(points)-indicatorTail:]
	}
	for _, p := range points {
		fmt.Printf("  %s  %12.4f", p.Date.Format(dateLayout), p.Value)
		keys := make([]string, 0, len(p.Lines))
		for k := range p.Lines {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s=%.4f", k, p.Lines[k])
		}
		if p.Projected {
			fmt.Print("  (projected)")
		}
		fmt.Println()
	}
	return nil
}
