package models

import "errors"

// ProjectionInput holds the user-entered parameters for the compound-growth
// retirement projection.
type ProjectionInput struct {
	CurrentAge          int     `json:"current_age"`
	RetirementAge       int     `json:"retirement_age"`
	InitialAmount       float64 `json:"initial_amount"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	AnnualReturnPct     float64 `json:"annual_return_pct"`
}

var (
	ErrAgeRange       = errors.New("retirement age must not be below current age")
	ErrNegativeAge    = errors.New("ages must be non-negative")
	ErrNegativeAmount = errors.New("amounts must be non-negative")
	ErrNegativeReturn = errors.New("annual return must be non-negative")
)

// Validate checks the range constraints. All projection math assumes a
// validated input and has no error states of its own.
func (in ProjectionInput) Validate() error {
	if in.CurrentAge < 0 || in.RetirementAge < 0 {
		return ErrNegativeAge
	}
	if in.RetirementAge < in.CurrentAge {
		return ErrAgeRange
	}
	if in.InitialAmount < 0 || in.MonthlyContribution < 0 {
		return ErrNegativeAmount
	}
	if in.AnnualReturnPct < 0 {
		return ErrNegativeReturn
	}
	return nil
}

// ProjectionResult is the yearly cumulative value series, one entry per year
// from current age to retirement age inclusive.
type ProjectionResult struct {
	Ages                 []int     `json:"ages"`
	Values               []float64 `json:"values"`
	FinalValue           float64   `json:"final_value"`
	MonthlyPassiveIncome float64   `json:"monthly_passive_income"`
}
