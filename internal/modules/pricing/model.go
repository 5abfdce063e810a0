// Package pricing computes the cost breakdown of a service request.
package pricing

// Rates holds the pricing parameters. All amounts are minor currency units.
type Rates struct {
	// BaseFee covers the first IncludedKm of travel.
	BaseFee    int64
	PerKm      int64
	IncludedKm float64
	// ServiceFees is keyed by service type. An unknown type yields a zero
	// service fee rather than an error; callers validate types upstream.
	ServiceFees map[string]int64
	Currency    string
}

// Breakdown is the itemised cost of a request.
type Breakdown struct {
	BaseFee     int64  `json:"base_fee"`
	DistanceFee int64  `json:"distance_fee"`
	ServiceFee  int64  `json:"service_fee"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// DefaultRates returns the standard rate card.
func DefaultRates() Rates {
	return Rates{
		BaseFee:    2000,
		PerKm:      500,
		IncludedKm: 5,
		ServiceFees: map[string]int64{
			"towing":  5000,
			"battery": 1500,
			"tire":    1000,
			"fuel":    800,
			"lockout": 1200,
		},
		Currency: "NGN",
	}
}
