package technical

import (
	"context"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Request names one indicator series over a company's bars in [From, AsOf]
type Request struct {
	Company string
	Kind    Kind
	Params  Params
	From    time.Time
	AsOf    time.Time
}

// FromProvider fetches the company's bars and computes the requested series.
// A company without bars in range is a MissingDataError.
func FromProvider(ctx context.Context, provider contracts.DataProvider, req Request) ([]Point, error) {
	bars, err := provider.FetchPrices(ctx, req.Company, req.From, req.AsOf)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, &contracts.MissingDataError{Company: req.Company, Reason: "no price bars in range"}
	}

	seq, err := Compute(req.Kind, bars, req.Params)
	if err != nil {
		return nil, err
	}
	points := Collect(seq)
	if points == nil {
		points = []Point{}
	}
	return points, nil
}
