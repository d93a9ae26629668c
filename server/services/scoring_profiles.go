package services

import (
	"math"
	"strings"
)

// AccountWeights are the rule weights of the account scorer. Thresholds are
// not scaled by profiles except where noted.
type AccountWeights struct {
	BaseScore           int
	SalaryTransfer      int
	TravelOftenGlobal   int
	Young               int
	DailySpend          int
	IntentCategoryHit   int
	PrioritySavings     int
	PriorityStarter     int
	PriorityTravel      int
	PriorityCashback    int
	PrioritySalary      int
	HighRateBonus       int
	YoungAgeMax         int
	DailySpendThreshold int
	HighRateThreshold   float64
}

// CardWeights are the rule weights of the card scorer.
type CardWeights struct {
	BaseScore                 int
	CategoryHit               int
	PriorityCashback          int
	PriorityTravel            int
	PriorityStarter           int
	PrioritySavings           int
	PriorityAnnualFee         int
	TravelOften               int
	DailySpend                int
	LowAnnualFeeBonus         int
	HighAnnualFeePenalty      int
	DailySpendThreshold       int
	HighAnnualFeeThresholdWon int
}

func balancedAccountWeights() AccountWeights {
	return AccountWeights{
		BaseScore:           45,
		SalaryTransfer:      30,
		TravelOftenGlobal:   28,
		Young:               18,
		DailySpend:          10,
		IntentCategoryHit:   6,
		PrioritySavings:     34,
		PriorityStarter:     24,
		PriorityTravel:      22,
		PriorityCashback:    14,
		PrioritySalary:      30,
		HighRateBonus:       8,
		YoungAgeMax:         34,
		DailySpendThreshold: 100,
		HighRateThreshold:   3.5,
	}
}

func balancedCardWeights() CardWeights {
	return CardWeights{
		BaseScore:                 45,
		CategoryHit:               9,
		PriorityCashback:          24,
		PriorityTravel:            22,
		PriorityStarter:           24,
		PrioritySavings:           14,
		PriorityAnnualFee:         26,
		TravelOften:               28,
		DailySpend:                10,
		LowAnnualFeeBonus:         8,
		HighAnnualFeePenalty:      6,
		DailySpendThreshold:       80,
		HighAnnualFeeThresholdWon: 20000,
	}
}

// scaleWeight multiplies a weight by a profile factor, rounding to the nearest
// integer with a floor of 1.
func scaleWeight(value int, factor float64) int {
	scaled := int(math.Round(float64(value) * factor))
	if scaled < 1 {
		return 1
	}
	return scaled
}

// ResolveAccountWeights applies the named profile to the balanced account
// weights. The base score and age cutoff stay fixed across profiles.
func ResolveAccountWeights(profile string) AccountWeights {
	weights := balancedAccountWeights()

	var (
		salaryTransfer, travelOften, young, dailySpend, intentHit float64
		priorities, highRate                                      float64
	)
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "conservative":
		salaryTransfer, travelOften, young, dailySpend, intentHit = 0.90, 0.85, 0.90, 0.85, 0.80
		priorities, highRate = 0.85, 0.85
	case "aggressive":
		salaryTransfer, travelOften, young, dailySpend, intentHit = 1.15, 1.20, 1.10, 1.15, 1.20
		priorities, highRate = 1.20, 1.20
	default:
		return weights
	}

	weights.SalaryTransfer = scaleWeight(weights.SalaryTransfer, salaryTransfer)
	weights.TravelOftenGlobal = scaleWeight(weights.TravelOftenGlobal, travelOften)
	weights.Young = scaleWeight(weights.Young, young)
	weights.DailySpend = scaleWeight(weights.DailySpend, dailySpend)
	weights.IntentCategoryHit = scaleWeight(weights.IntentCategoryHit, intentHit)
	weights.PrioritySavings = scaleWeight(weights.PrioritySavings, priorities)
	weights.PriorityStarter = scaleWeight(weights.PriorityStarter, priorities)
	weights.PriorityTravel = scaleWeight(weights.PriorityTravel, priorities)
	weights.PriorityCashback = scaleWeight(weights.PriorityCashback, priorities)
	weights.PrioritySalary = scaleWeight(weights.PrioritySalary, priorities)
	weights.HighRateBonus = scaleWeight(weights.HighRateBonus, highRate)
	return weights
}

// ResolveCardWeights applies the named profile to the balanced card weights.
func ResolveCardWeights(profile string) CardWeights {
	weights := balancedCardWeights()

	var common, lowFeeBonus, highFeePenalty, threshold float64
	switch strings.ToLower(strings.TrimSpace(profile)) {
	case "conservative":
		common, lowFeeBonus, highFeePenalty, threshold = 0.85, 0.90, 1.20, 0.90
	case "aggressive":
		common, lowFeeBonus, highFeePenalty, threshold = 1.20, 1.15, 0.80, 1.20
	default:
		return weights
	}

	weights.CategoryHit = scaleWeight(weights.CategoryHit, common)
	weights.PriorityCashback = scaleWeight(weights.PriorityCashback, common)
	weights.PriorityTravel = scaleWeight(weights.PriorityTravel, common)
	weights.PriorityStarter = scaleWeight(weights.PriorityStarter, common)
	weights.PrioritySavings = scaleWeight(weights.PrioritySavings, common)
	weights.PriorityAnnualFee = scaleWeight(weights.PriorityAnnualFee, common)
	weights.TravelOften = scaleWeight(weights.TravelOften, common)
	weights.DailySpend = scaleWeight(weights.DailySpend, common)
	weights.LowAnnualFeeBonus = scaleWeight(weights.LowAnnualFeeBonus, lowFeeBonus)
	weights.HighAnnualFeePenalty = scaleWeight(weights.HighAnnualFeePenalty, highFeePenalty)
	weights.HighAnnualFeeThresholdWon = scaleWeight(weights.HighAnnualFeeThresholdWon, threshold)
	return weights
}
