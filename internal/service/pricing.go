package service

import "github.com/jetvision/broker-backend/internal/models"

// ProposalTotal computes the client-facing total from a selected quote's base
// amount plus the agent commission and operating cost, both flat amounts.
// No rounding beyond display formatting.
func ProposalTotal(base, commission, cost float64) float64 {
	return base + commission + cost
}

// PercentOf converts a percentage of the base amount into a flat amount.
func PercentOf(base, percent float64) float64 {
	return base * percent / 100
}

// DisplayCurrency is the currency proposals render in.
func DisplayCurrency(fr models.FlightRequest) string {
	if fr.AvinodeBestQuoteCurrency != "" {
		return fr.AvinodeBestQuoteCurrency
	}
	return "USD"
}
