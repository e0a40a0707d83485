package processors

import (
	"math"

	"github.com/username/etfolio/backend/src/models"
)

// ProjectGrowth runs the closed-form monthly-compounding projection.
//
// The annual rate is converted to an effective monthly rate
// r = (1 + pct/100)^(1/12) - 1, then every month the value compounds and the
// contribution is added. One sample is recorded per completed year, plus the
// starting value, giving retirementAge - currentAge + 1 samples. The input is
// assumed validated; the math has no error states.
func ProjectGrowth(in models.ProjectionInput) *models.ProjectionResult {
	years := in.RetirementAge - in.CurrentAge
	monthlyRate := math.Pow(1+in.AnnualReturnPct/100, 1.0/12) - 1

	result := &models.ProjectionResult{
		Ages:   make([]int, 0, years+1),
		Values: make([]float64, 0, years+1),
	}

	value := in.InitialAmount
	result.Ages = append(result.Ages, in.CurrentAge)
	result.Values = append(result.Values, value)

	for month := 1; month <= years*12; month++ {
		value = value*(1+monthlyRate) + in.MonthlyContribution
		if month%12 == 0 {
			result.Ages = append(result.Ages, in.CurrentAge+month/12)
			result.Values = append(result.Values, value)
		}
	}

	result.FinalValue = value
	// Simple (non-compounded) estimate of monthly income if the final
	// balance were withdrawn at the stated annual yield.
	result.MonthlyPassiveIncome = value * in.AnnualReturnPct / 100 / 12

	return result
}
