package pricing

import "math"

// Engine computes deterministic cost breakdowns. It carries no mutable state
// and is safe for concurrent use.
type Engine struct {
	rates Rates
}

func NewEngine(rates Rates) *Engine {
	return &Engine{rates: rates}
}

// Breakdown prices a request of the given service type over the given
// distance. Distance at or under the included allowance incurs no distance fee.
func (e *Engine) Breakdown(serviceType string, distanceKm float64) Breakdown {
	extra := distanceKm - e.rates.IncludedKm
	if extra < 0 {
		extra = 0
	}
	distanceFee := int64(math.Round(extra * float64(e.rates.PerKm)))
	serviceFee := e.rates.ServiceFees[serviceType]

	return Breakdown{
		BaseFee:     e.rates.BaseFee,
		DistanceFee: distanceFee,
		ServiceFee:  serviceFee,
		Total:       e.rates.BaseFee + serviceFee + distanceFee,
		Currency:    e.rates.Currency,
	}
}
