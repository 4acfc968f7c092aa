// internal/finance/shu.go
package finance

import (
	"fmt"
	"math"

	"sinoman/internal/apperr"
)

// RulesTolerance is how far the distribution percentages may drift from 100.
const RulesTolerance = 0.01

// maxTenureYears caps the tenure used for membership points.
const maxTenureYears = 10

// DistributionRules splits the SHU pool into four sub-pools, in percent.
type DistributionRules struct {
	SavingsPercentage         float64 `json:"savings_percentage"`
	TransactionPercentage     float64 `json:"transaction_percentage"`
	EqualPercentage           float64 `json:"equal_percentage"`
	MembershipBonusPercentage float64 `json:"membership_bonus_percentage"`
}

func (r DistributionRules) percentages() map[string]float64 {
	return map[string]float64{
		"savings_percentage":          r.SavingsPercentage,
		"transaction_percentage":      r.TransactionPercentage,
		"equal_percentage":            r.EqualPercentage,
		"membership_bonus_percentage": r.MembershipBonusPercentage,
	}
}

func (r DistributionRules) total() float64 {
	return r.SavingsPercentage + r.TransactionPercentage + r.EqualPercentage + r.MembershipBonusPercentage
}

// MemberContribution is one member's input to an SHU run.
type MemberContribution struct {
	MemberID          string  `json:"member_id"`
	FullName          string  `json:"full_name"`
	SavingsBalance    float64 `json:"savings_balance"`
	TransactionVolume float64 `json:"transaction_volume"`
	MembershipYears   float64 `json:"membership_years"`
	MembershipType    string  `json:"membership_type"`
}

// SHUConfig is the input of DistributeSHU.
type SHUConfig struct {
	TotalSHU          float64              `json:"total_shu"`
	Members           []MemberContribution `json:"members"`
	DistributionRules DistributionRules    `json:"distribution_rules"`
}

// MemberShare is one member's computed share.
type MemberShare struct {
	MemberID         string  `json:"member_id"`
	FullName         string  `json:"full_name"`
	SavingsSHU       float64 `json:"savings_shu"`
	TransactionSHU   float64 `json:"transaction_shu"`
	EqualSHU         float64 `json:"equal_shu"`
	MembershipBonus  float64 `json:"membership_bonus"`
	MembershipPoints float64 `json:"membership_points"`
	TotalSHU         float64 `json:"total_shu"`
}

// SHUSummary aggregates a run. Undistributed is non-zero only when a
// sub-pool had nothing to be weighted by.
type SHUSummary struct {
	TotalMembers        int     `json:"total_members"`
	TotalSHU            float64 `json:"total_shu"`
	SavingsPool         float64 `json:"savings_pool"`
	TransactionPool     float64 `json:"transaction_pool"`
	EqualPool           float64 `json:"equal_pool"`
	MembershipBonusPool float64 `json:"membership_bonus_pool"`
	TotalSavings        float64 `json:"total_savings"`
	TotalTransactions   float64 `json:"total_transactions"`
	TotalPoints         float64 `json:"total_points"`
	Distributed         float64 `json:"distributed"`
	Undistributed       float64 `json:"undistributed"`
	AverageSHUPerMember float64 `json:"average_shu_per_member"`
}

// SHUResult is the output of DistributeSHU.
type SHUResult struct {
	Breakdown []MemberShare `json:"breakdown"`
	Summary   SHUSummary    `json:"summary"`
}

// TypeMultiplier weights membership points by membership type. Unknown
// types count as regular.
func TypeMultiplier(membershipType string) float64 {
	switch membershipType {
	case "premium":
		return 1.2
	case "investor":
		return 1.5
	default:
		return 1.0
	}
}

// MembershipPoints is the tenure and type score the bonus pool is split by.
func MembershipPoints(years float64, membershipType string) float64 {
	if years < 0 {
		years = 0
	}
	return (1 + math.Min(years, maxTenureYears)*0.1) * TypeMultiplier(membershipType)
}

// DistributeSHU splits the cooperative's residual earnings across members.
// Rules that do not sum to 100 are a caller error and fail the whole run, as
// do negative or non-finite amounts and percentages.
func DistributeSHU(cfg SHUConfig) (*SHUResult, error) {
	const op = "finance.DistributeSHU"

	for name, pct := range cfg.DistributionRules.percentages() {
		if !validAmount(pct) {
			return nil, &apperr.Error{
				Kind:    apperr.KindPrecondition,
				Op:      op,
				Field:   "distribution_rules." + name,
				Message: fmt.Sprintf("percentage must be a finite non-negative number, got %v", pct),
			}
		}
	}
	if total := cfg.DistributionRules.total(); math.Abs(total-100) > RulesTolerance {
		return nil, apperr.New(apperr.KindPrecondition, op,
			fmt.Sprintf("distribution percentages must sum to 100, got %.2f", total))
	}
	if !validAmount(cfg.TotalSHU) {
		return nil, apperr.Validation(op, "total_shu", "must be a non-negative amount")
	}

	var totalSavings, totalTransactions, totalPoints float64
	points := make([]float64, len(cfg.Members))
	for i, m := range cfg.Members {
		if !validAmount(m.SavingsBalance) || !validAmount(m.TransactionVolume) || !validAmount(m.MembershipYears) {
			return nil, apperr.Validation(op, "members", "member %s has a negative or non-finite amount", m.MemberID)
		}
		totalSavings += m.SavingsBalance
		totalTransactions += m.TransactionVolume
		points[i] = MembershipPoints(m.MembershipYears, m.MembershipType)
		totalPoints += points[i]
	}

	rules := cfg.DistributionRules
	summary := SHUSummary{
		TotalMembers:        len(cfg.Members),
		TotalSHU:            cfg.TotalSHU,
		SavingsPool:         cfg.TotalSHU * rules.SavingsPercentage / 100,
		TransactionPool:     cfg.TotalSHU * rules.TransactionPercentage / 100,
		EqualPool:           cfg.TotalSHU * rules.EqualPercentage / 100,
		MembershipBonusPool: cfg.TotalSHU * rules.MembershipBonusPercentage / 100,
		TotalSavings:        totalSavings,
		TotalTransactions:   totalTransactions,
		TotalPoints:         totalPoints,
	}

	breakdown := make([]MemberShare, 0, len(cfg.Members))
	for i, m := range cfg.Members {
		share := MemberShare{
			MemberID:         m.MemberID,
			FullName:         m.FullName,
			SavingsSHU:       proportion(summary.SavingsPool, m.SavingsBalance, totalSavings),
			TransactionSHU:   proportion(summary.TransactionPool, m.TransactionVolume, totalTransactions),
			EqualSHU:         summary.EqualPool / float64(len(cfg.Members)),
			MembershipBonus:  proportion(summary.MembershipBonusPool, points[i], totalPoints),
			MembershipPoints: points[i],
		}
		share.TotalSHU = share.SavingsSHU + share.TransactionSHU + share.EqualSHU + share.MembershipBonus
		summary.Distributed += share.TotalSHU
		breakdown = append(breakdown, share)
	}

	summary.Undistributed = cfg.TotalSHU - summary.Distributed
	if math.Abs(summary.Undistributed) < 1e-6 {
		summary.Undistributed = 0
	}
	if len(cfg.Members) > 0 {
		summary.AverageSHUPerMember = summary.Distributed / float64(len(cfg.Members))
	}

	return &SHUResult{Breakdown: breakdown, Summary: summary}, nil
}

// validAmount rejects negatives, NaN and infinities.
func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func proportion(pool, part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return pool * part / whole
}
