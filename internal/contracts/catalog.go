package contracts

import "sort"

// Metric names
const (
	// Market
	MetricPrice           = "price"
	MetricMarketCap       = "market_cap"
	MetricEnterpriseValue = "enterprise_value"

	// Valuation
	MetricPE            = "pe_ratio"
	MetricPB            = "pb_ratio"
	MetricPS            = "ps_ratio"
	MetricEVEBITDA      = "ev_ebitda"
	MetricEVEBIT        = "ev_ebit"
	MetricEVSales       = "ev_sales"
	MetricPriceToFCF    = "price_to_fcf"
	MetricDividendYield = "dividend_yield"

	// Magic Formula / Acquirer's Multiple
	MetricEarningsYield     = "earnings_yield"
	MetricReturnOnCapital   = "return_on_capital"
	MetricAcquirersMultiple = "acquirers_multiple"
	MetricMagicFormulaScore = "magic_formula_score"
	MetricMagicFormulaRank  = "magic_formula_rank"

	// Profitability
	MetricROE             = "roe"
	MetricROA             = "roa"
	MetricGrossMargin     = "gross_margin"
	MetricOperatingMargin = "operating_margin"
	MetricNetMargin       = "net_margin"
	MetricFCFMargin       = "fcf_margin"

	// Liquidity / leverage
	MetricCurrentRatio     = "current_ratio"
	MetricQuickRatio       = "quick_ratio"
	MetricCashRatio        = "cash_ratio"
	MetricDebtToEquity     = "debt_to_equity"
	MetricDebtToAssets     = "debt_to_assets"
	MetricInterestCoverage = "interest_coverage"

	// Efficiency
	MetricAssetTurnover       = "asset_turnover"
	MetricInventoryTurnover   = "inventory_turnover"
	MetricReceivablesTurnover = "receivables_turnover"

	// Growth
	MetricRevenueGrowth   = "revenue_growth"
	MetricNetIncomeGrowth = "net_income_growth"
	MetricEPSGrowth       = "eps_growth"

	// Piotroski
	MetricFScore           = "f_score"
	MetricFROAPositive     = "f_roa_positive"
	MetricFCFOPositive     = "f_cfo_positive"
	MetricFROAImproving    = "f_roa_improving"
	MetricFAccruals        = "f_accruals"
	MetricFLeverageDown    = "f_leverage_down"
	MetricFCurrentRatioUp  = "f_current_ratio_up"
	MetricFNoDilution      = "f_no_dilution"
	MetricFGrossMarginUp   = "f_gross_margin_up"
	MetricFAssetTurnoverUp = "f_asset_turnover_up"

	// Altman / Beneish / Sloan
	MetricZScore       = "z_score"
	MetricZDistress    = "z_distress"
	MetricMScore       = "m_score"
	MetricMScoreFlag   = "m_score_flag"
	MetricAccrualRatio = "accrual_ratio"
	MetricAccrualFlag  = "accrual_flag"

	// Attributes
	MetricSector   = "sector"
	MetricIndustry = "industry"

	// Technical snapshot
	MetricRSI14         = "rsi_14"
	MetricSMA50         = "sma_50"
	MetricSMA200        = "sma_200"
	MetricPriceToSMA200 = "price_to_sma_200"
	MetricMACDHistogram = "macd_histogram"
	MetricATR14         = "atr_14"
	MetricADX14         = "adx_14"
	MetricBollingerPctB = "bollinger_pct_b"
	MetricVolatility63  = "volatility_63d"
	MetricMomentum12M   = "momentum_12m"
)

// MetricCategory groups metrics for display and validation
type MetricCategory string

const (
	CategoryMarket        MetricCategory = "market"
	CategoryValuation     MetricCategory = "valuation"
	CategoryProfitability MetricCategory = "profitability"
	CategoryLiquidity     MetricCategory = "liquidity"
	CategoryEfficiency    MetricCategory = "efficiency"
	CategoryGrowth        MetricCategory = "growth"
	CategoryComposite     MetricCategory = "composite"
	CategoryAttribute     MetricCategory = "attribute"
	CategoryTechnical     MetricCategory = "technical"
	CategoryRanking       MetricCategory = "ranking"
)

// MetricInfo describes one catalog entry
type MetricInfo struct {
	Name     string         `json:"name"`
	Category MetricCategory `json:"category"`
	Kind     ValueKind      `json:"kind"`
}

// catalog is the closed set of metric names a Filter may reference
var catalog = map[string]MetricInfo{}

func register(cat MetricCategory, kind ValueKind, names ...string) {
	for _, n := range names {
		catalog[n] = MetricInfo{Name: n, Category: cat, Kind: kind}
	}
}

func init() {
	register(CategoryMarket, KindNumber, MetricPrice, MetricMarketCap, MetricEnterpriseValue)
	register(CategoryValuation, KindNumber,
		MetricPE, MetricPB, MetricPS, MetricEVEBITDA, MetricEVEBIT, MetricEVSales,
		MetricPriceToFCF, MetricDividendYield, MetricEarningsYield, MetricAcquirersMultiple)
	register(CategoryProfitability, KindNumber,
		MetricROE, MetricROA, MetricGrossMargin, MetricOperatingMargin, MetricNetMargin,
		MetricFCFMargin, MetricReturnOnCapital)
	register(CategoryLiquidity, KindNumber,
		MetricCurrentRatio, MetricQuickRatio, MetricCashRatio, MetricDebtToEquity,
		MetricDebtToAssets, MetricInterestCoverage)
	register(CategoryEfficiency, KindNumber,
		MetricAssetTurnover, MetricInventoryTurnover, MetricReceivablesTurnover)
	register(CategoryGrowth, KindNumber, MetricRevenueGrowth, MetricNetIncomeGrowth, MetricEPSGrowth)
	register(CategoryComposite, KindNumber, MetricFScore, MetricZScore, MetricMScore, MetricAccrualRatio)
	register(CategoryComposite, KindFlag,
		MetricFROAPositive, MetricFCFOPositive, MetricFROAImproving, MetricFAccruals,
		MetricFLeverageDown, MetricFCurrentRatioUp, MetricFNoDilution, MetricFGrossMarginUp,
		MetricFAssetTurnoverUp, MetricZDistress, MetricMScoreFlag, MetricAccrualFlag)
	register(CategoryAttribute, KindText, MetricSector, MetricIndustry)
	register(CategoryTechnical, KindNumber,
		MetricRSI14, MetricSMA50, MetricSMA200, MetricPriceToSMA200, MetricMACDHistogram,
		MetricATR14, MetricADX14, MetricBollingerPctB, MetricVolatility63, MetricMomentum12M)
	register(CategoryRanking, KindNumber, MetricMagicFormulaScore, MetricMagicFormulaRank)
}

// LookupMetric returns catalog information for name
func LookupMetric(name string) (MetricInfo, bool) {
	info, ok := catalog[name]
	return info, ok
}

// KnownMetric reports whether name is in the catalog
func KnownMetric(name string) bool {
	_, ok := catalog[name]
	return ok
}

// Catalog returns every metric sorted by category then name
func Catalog() []MetricInfo {
	out := make([]MetricInfo, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}
