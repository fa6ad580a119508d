package contracts

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Company identifies one listed company in a universe snapshot
type Company struct {
	ID       string `json:"id"` // ticker
	Name     string `json:"name"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// PeriodType is the reporting period of a FundamentalRecord
type PeriodType string

const (
	PeriodQ1 PeriodType = "Q1"
	PeriodQ2 PeriodType = "Q2"
	PeriodQ3 PeriodType = "Q3"
	PeriodQ4 PeriodType = "Q4"
	PeriodFY PeriodType = "FY"
)

// IsQuarter reports whether the period covers a single quarter
func (p PeriodType) IsQuarter() bool {
	switch p {
	case PeriodQ1, PeriodQ2, PeriodQ3, PeriodQ4:
		return true
	}
	return false
}

// Valid reports whether p is a known period type
func (p PeriodType) Valid() bool {
	return p == PeriodFY || p.IsQuarter()
}

// FundamentalRecord holds one company's statements for one reporting period.
// ⭐ SSOT: records are immutable once ingested; a new period is a new record
type FundamentalRecord struct {
	Company    string     `json:"company"`
	PeriodEnd  time.Time  `json:"period_end"`
	PeriodType PeriodType `json:"period_type"`
	FiledAt    *time.Time `json:"filed_at,omitempty"` // availability date, if known

	// Income statement
	Revenue          decimal.NullDecimal `json:"revenue"`
	CostOfRevenue    decimal.NullDecimal `json:"cost_of_revenue"`
	GrossProfit      decimal.NullDecimal `json:"gross_profit"`
	OperatingIncome  decimal.NullDecimal `json:"operating_income"`
	EBIT             decimal.NullDecimal `json:"ebit"`
	EBITDA           decimal.NullDecimal `json:"ebitda"`
	NetIncome        decimal.NullDecimal `json:"net_income"`
	InterestExpense  decimal.NullDecimal `json:"interest_expense"`
	IncomeTax        decimal.NullDecimal `json:"income_tax"`
	EPS              decimal.NullDecimal `json:"eps"`
	SGAExpense       decimal.NullDecimal `json:"sga_expense"`
	DepreciationAmor decimal.NullDecimal `json:"depreciation_amortization"`

	// Balance sheet
	TotalAssets        decimal.NullDecimal `json:"total_assets"`
	CurrentAssets      decimal.NullDecimal `json:"current_assets"`
	TotalLiabilities   decimal.NullDecimal `json:"total_liabilities"`
	CurrentLiabilities decimal.NullDecimal `json:"current_liabilities"`
	Cash               decimal.NullDecimal `json:"cash"`
	Receivables        decimal.NullDecimal `json:"receivables"`
	Inventory          decimal.NullDecimal `json:"inventory"`
	PPENet             decimal.NullDecimal `json:"ppe_net"`
	Intangibles        decimal.NullDecimal `json:"intangibles"`
	Goodwill           decimal.NullDecimal `json:"goodwill"`
	TotalDebt          decimal.NullDecimal `json:"total_debt"`
	LongTermDebt       decimal.NullDecimal `json:"long_term_debt"`
	ShortTermDebt      decimal.NullDecimal `json:"short_term_debt"`
	IncomeTaxPayable   decimal.NullDecimal `json:"income_tax_payable"`
	PreferredStock     decimal.NullDecimal `json:"preferred_stock"`
	MinorityInterest   decimal.NullDecimal `json:"minority_interest"`
	TotalEquity        decimal.NullDecimal `json:"total_equity"`
	RetainedEarnings   decimal.NullDecimal `json:"retained_earnings"`
	SharesOutstanding  decimal.NullDecimal `json:"shares_outstanding"`

	// Cash flow
	OperatingCashFlow decimal.NullDecimal `json:"operating_cash_flow"`
	Capex             decimal.NullDecimal `json:"capex"`
	FreeCashFlow      decimal.NullDecimal `json:"free_cash_flow"`
	DividendsPaid     decimal.NullDecimal `json:"dividends_paid"`
}

// Key returns the uniqueness key (company, period_end, period_type)
func (r *FundamentalRecord) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Company, r.PeriodEnd.Format("2006-01-02"), r.PeriodType)
}

// AvailableAt returns the first date the record may be used
func (r *FundamentalRecord) AvailableAt() time.Time {
	if r.FiledAt != nil {
		return *r.FiledAt
	}
	return r.PeriodEnd
}

// ValidateHistory checks period types and the uniqueness invariant
func ValidateHistory(history []FundamentalRecord) error {
	seen := make(map[string]struct{}, len(history))
	for i := range history {
		rec := &history[i]
		if !rec.PeriodType.Valid() {
			return fmt.Errorf("record %d: unknown period type %q", i, rec.PeriodType)
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate fundamental record %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// SortHistory orders records by period end, then period type
func SortHistory(history []FundamentalRecord) {
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].PeriodEnd.Equal(history[j].PeriodEnd) {
			return history[i].PeriodEnd.Before(history[j].PeriodEnd)
		}
		return history[i].PeriodType < history[j].PeriodType
	})
}

// PriceBar is one trading day of OHLCV data
type PriceBar struct {
	Company       string          `json:"company"`
	Date          time.Time       `json:"date"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	AdjustedClose decimal.Decimal `json:"adjusted_close"`
	Volume        int64           `json:"volume"`
}

// TotalReturnPrice returns the adjusted close, or the close when no adjustment is present
func (b *PriceBar) TotalReturnPrice() float64 {
	if b.AdjustedClose.IsPositive() {
		return b.AdjustedClose.InexactFloat64()
	}
	return b.Close.InexactFloat64()
}

// BarsUntil returns the prefix of date-ordered bars on or before asOf
func BarsUntil(bars []PriceBar, asOf time.Time) []PriceBar {
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(asOf)
	})
	return bars[:idx]
}

// Num converts a nullable decimal into a float pointer (nil when null)
func Num(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

// Dec builds a valid NullDecimal from a float
func Dec(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}
