package s2_metrics

// Piotroski F-Score

// PiotroskiTests holds the nine F-Score sub-tests
type PiotroskiTests struct {
	ROAPositive     bool
	CFOPositive     bool
	ROAImproving    bool
	Accruals        bool // CFO > net income
	LeverageDown    bool
	CurrentRatioUp  bool
	NoDilution      bool
	GrossMarginUp   bool
	AssetTurnoverUp bool
}

// Score counts passed sub-tests (0-9)
func (p PiotroskiTests) Score() int {
	score := 0
	for _, ok := range []bool{
		p.ROAPositive, p.CFOPositive, p.ROAImproving, p.Accruals,
		p.LeverageDown, p.CurrentRatioUp, p.NoDilution,
		p.GrossMarginUp, p.AssetTurnoverUp,
	} {
		if ok {
			score++
		}
	}
	return score
}

// gt reports a > b; a missing operand fails the test
func gt(a, b *float64) bool {
	return a != nil && b != nil && *a > *b
}

func piotroski(in *inputs) PiotroskiTests {
	cur, prior := in.cur, in.prior
	if prior == nil {
		prior = &statement{}
	}
	zero := 0.0

	roaCur := divPos(cur.netIncome, cur.totalAssets)
	roaPrior := divPos(prior.netIncome, prior.totalAssets)

	levCur := divPos(first(cur.longTermDebt, totalDebtOf(cur)), cur.totalAssets)
	levPrior := divPos(first(prior.longTermDebt, totalDebtOf(prior)), prior.totalAssets)

	crCur := divPos(cur.currentAssets, cur.currentLiabilities)
	crPrior := divPos(prior.currentAssets, prior.currentLiabilities)

	gmCur := divPos(grossProfitOf(cur), cur.revenue)
	gmPrior := divPos(grossProfitOf(prior), prior.revenue)

	atCur := divPos(cur.revenue, cur.totalAssets)
	atPrior := divPos(prior.revenue, prior.totalAssets)

	return PiotroskiTests{
		ROAPositive:     gt(roaCur, &zero),
		CFOPositive:     gt(cur.cfo, &zero),
		ROAImproving:    gt(roaCur, roaPrior),
		Accruals:        gt(cur.cfo, cur.netIncome),
		LeverageDown:    gt(levPrior, levCur),
		CurrentRatioUp:  gt(crCur, crPrior),
		NoDilution:      cur.shares != nil && prior.shares != nil && *cur.shares <= *prior.shares,
		GrossMarginUp:   gt(gmCur, gmPrior),
		AssetTurnoverUp: gt(atCur, atPrior),
	}
}

// Altman Z-Score

// Zone is an Altman Z-Score classification
type Zone string

const (
	ZoneSafe     Zone = "safe"
	ZoneGrey     Zone = "grey"
	ZoneDistress Zone = "distress"
)

// Z-Score band boundaries
const (
	ZSafeAbove     = 2.99
	ZDistressBelow = 1.81
)

// ClassifyZ maps a Z-Score to exactly one zone:
// z > 2.99 safe, 1.81 <= z <= 2.99 grey, otherwise distress (NaN included).
func ClassifyZ(z float64) Zone {
	switch {
	case z > ZSafeAbove:
		return ZoneSafe
	case z >= ZDistressBelow:
		return ZoneGrey
	}
	return ZoneDistress
}

// altmanZ = 1.2·WC/TA + 1.4·RE/TA + 3.3·EBIT/TA + 0.6·MVE/TL + 1.0·Sales/TA.
// Requires positive total assets; a missing component contributes zero.
func altmanZ(in *inputs) *float64 {
	s := in.cur
	if s.totalAssets == nil || *s.totalAssets <= 0 {
		return nil
	}
	ta := *s.totalAssets

	a := or0(workingCapitalOf(s)) / ta
	b := or0(s.retainedEarnings) / ta
	c := or0(ebitOf(s)) / ta
	d := or0(divPos(in.marketCap(), s.totalLiabilities))
	e := or0(s.revenue) / ta

	return ptr(1.2*a + 1.4*b + 3.3*c + 0.6*d + 1.0*e)
}

// Beneish M-Score

// MScoreThreshold flags elevated manipulation risk when exceeded
const MScoreThreshold = -1.78

// neutral returns v, or 1.0 when the index cannot be formed inside available periods
func neutral(v *float64) float64 {
	if v == nil {
		return 1.0
	}
	return *v
}

// beneishM combines eight year-over-year indices. Null when either period is
// missing or revenue is not positive in both; an index whose component ratio
// is missing within an available period is neutral (1.0).
func beneishM(in *inputs) *float64 {
	cur, prior := in.cur, in.prior
	if prior == nil {
		return nil
	}
	if cur.revenue == nil || prior.revenue == nil || *cur.revenue <= 0 || *prior.revenue <= 0 {
		return nil
	}

	// DSRI: receivables / sales
	dsri := div(divPos(cur.receivables, cur.revenue), divPos(prior.receivables, prior.revenue))

	// GMI: prior gross margin / current gross margin
	gmi := div(divPos(grossProfitOf(prior), prior.revenue), divPos(grossProfitOf(cur), cur.revenue))

	// AQI: non-current, non-PPE asset share
	assetQuality := func(s *statement) *float64 {
		if s.totalAssets == nil || *s.totalAssets <= 0 || s.currentAssets == nil || s.ppe == nil {
			return nil
		}
		return ptr(1 - (*s.currentAssets+*s.ppe) / *s.totalAssets)
	}
	aqi := div(assetQuality(cur), assetQuality(prior))

	// SGI
	sgi := div(cur.revenue, prior.revenue)

	// DEPI: prior depreciation rate / current depreciation rate
	depRate := func(s *statement) *float64 {
		return divPos(s.depreciation, add(s.depreciation, s.ppe))
	}
	depi := div(depRate(prior), depRate(cur))

	// SGAI: SG&A / sales
	sgai := div(divPos(cur.sga, cur.revenue), divPos(prior.sga, prior.revenue))

	// TATA: (net income − CFO) / total assets
	tata := divPos(sub(cur.netIncome, cur.cfo), cur.totalAssets)

	// LVGI: total liabilities / total assets
	lvgi := div(divPos(cur.totalLiabilities, cur.totalAssets), divPos(prior.totalLiabilities, prior.totalAssets))

	tataV := 0.0
	if tata != nil {
		tataV = *tata
	}

	m := -4.84 +
		0.920*neutral(dsri) +
		0.528*neutral(gmi) +
		0.404*neutral(aqi) +
		0.892*neutral(sgi) +
		0.115*neutral(depi) -
		0.172*neutral(sgai) +
		4.679*tataV -
		0.327*neutral(lvgi)
	return ptr(m)
}

// Sloan accrual ratio

// AccrualBand classifies an accrual ratio
type AccrualBand string

const (
	AccrualHighQuality AccrualBand = "high_quality"
	AccrualNormal      AccrualBand = "normal"
	AccrualRedFlag     AccrualBand = "red_flag"
)

// AccrualRedFlagAbove is the upper band boundary; the lower is its negation
const AccrualRedFlagAbove = 0.10

// ClassifyAccruals maps an accrual ratio to its band:
// below −0.10 high quality, above +0.10 red flag, otherwise normal.
func ClassifyAccruals(r float64) AccrualBand {
	switch {
	case r < -AccrualRedFlagAbove:
		return AccrualHighQuality
	case r > AccrualRedFlagAbove:
		return AccrualRedFlag
	}
	return AccrualNormal
}

// accrualRatio = (NetIncome − CFO) / average total assets.
// Without CFO it falls back to the balance-sheet method:
// ((ΔCA − ΔCash) − (ΔCL − ΔSTD − ΔTaxPayable) − D&A) / average total assets.
func accrualRatio(in *inputs) *float64 {
	cur, prior := in.cur, in.prior
	var priorTA *float64
	if prior != nil {
		priorTA = prior.totalAssets
	}
	avgTA := avg2(cur.totalAssets, priorTA)
	if avgTA == nil || *avgTA <= 0 {
		return nil
	}

	if cur.netIncome != nil && cur.cfo != nil {
		return ptr((*cur.netIncome - *cur.cfo) / *avgTA)
	}

	if prior == nil {
		return nil
	}
	dCA := sub(cur.currentAssets, prior.currentAssets)
	dCL := sub(cur.currentLiabilities, prior.currentLiabilities)
	if dCA == nil || dCL == nil {
		return nil
	}
	dCash := or0(cur.cash) - or0(prior.cash)
	dSTD := or0(cur.shortTermDebt) - or0(prior.shortTermDebt)
	dTax := or0(cur.taxPayable) - or0(prior.taxPayable)

	accruals := (*dCA - dCash) - (*dCL - dSTD - dTax) - or0(cur.depreciation)
	return ptr(accruals / *avgTA)
}
