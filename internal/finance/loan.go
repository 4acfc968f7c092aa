// internal/finance/loan.go
package finance

import "math"

// Installment is one row of an amortization schedule.
type Installment struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// LoanPayment returns the fixed monthly payment of an annuity loan. A zero
// rate spreads the principal evenly; a non-positive term yields 0.
func LoanPayment(principal, annualRatePct float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	n := float64(termMonths)
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / n
	}
	factor := math.Pow(1+r, n)
	return principal * r * factor / (factor - 1)
}

// AmortizationSchedule splits every monthly payment into interest and
// principal. The last balance is clamped to zero to absorb rounding drift.
func AmortizationSchedule(principal, annualRatePct float64, termMonths int) []Installment {
	if termMonths <= 0 {
		return nil
	}

	payment := LoanPayment(principal, annualRatePct, termMonths)
	r := annualRatePct / 100 / 12
	balance := principal

	schedule := make([]Installment, 0, termMonths)
	for month := 1; month <= termMonths; month++ {
		interest := balance * r
		paid := payment - interest
		balance -= paid
		if month == termMonths || math.Abs(balance) < 1e-6 {
			balance = 0
		}
		schedule = append(schedule, Installment{
			Month:     month,
			Payment:   payment,
			Principal: paid,
			Interest:  interest,
			Balance:   balance,
		})
	}
	return schedule
}
