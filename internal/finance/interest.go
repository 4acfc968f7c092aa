// internal/finance/interest.go
package finance

import "math"

const (
	// DefaultCompoundingPerYear is used when a caller passes a non-positive frequency.
	DefaultCompoundingPerYear = 12
	// DefaultAccrualDays is used by SavingsInterest when days is zero.
	DefaultAccrualDays = 30
	daysPerYear        = 365
)

// CompoundInterest returns the final amount P(1+r/n)^(nt), with the annual
// rate given in percent.
func CompoundInterest(principal, annualRatePct, years float64, perYear int) float64 {
	if perYear <= 0 {
		perYear = DefaultCompoundingPerYear
	}
	n := float64(perYear)
	return principal * math.Pow(1+annualRatePct/100/n, n*years)
}

// SavingsInterest accrues simple daily interest on a balance.
func SavingsInterest(balance, annualRatePct float64, days int) float64 {
	if days == 0 {
		days = DefaultAccrualDays
	}
	return balance * (annualRatePct / 100 / daysPerYear) * float64(days)
}
