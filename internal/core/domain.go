// Package core holds the shared data model for retirement projections:
// clients, scenarios, income sources, conversion schedules, and the
// per-year output record. All money values are decimals; percent-valued
// inputs (5 meaning 5%) are converted to fractions through the Rate
// helpers at the point of use.
package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	Single           FilingStatus = "Single"
	MarriedJoint     FilingStatus = "Married Filing Jointly"
	MarriedSeparate  FilingStatus = "Married Filing Separately"
	HeadOfHousehold  FilingStatus = "Head of Household"
	QualifyingWidow  FilingStatus = "Qualifying Widow(er)"
)

const (
	Qualified      IncomeType = "Qualified"
	Roth           IncomeType = "Roth"
	NonQualified   IncomeType = "Non-Qualified"
	Annuity        IncomeType = "Annuity"
	SocialSecurity IncomeType = "social_security"
	Pension        IncomeType = "pension"
	Wages          IncomeType = "wages"
	OtherIncome    IncomeType = "other"
)

const (
	OwnerPrimary Owner = "primary"
	OwnerSpouse  Owner = "spouse"
)

const (
	AdjustIncrease AdjustDirection = "increase"
	AdjustDecrease AdjustDirection = "decrease"

	AdjustPercentage AdjustType = "percentage"
	AdjustAmount     AdjustType = "amount"
)

// DefaultMedicareAge is the age Medicare premiums start when the
// scenario does not override it.
const DefaultMedicareAge = 65

type (
	FilingStatus    string
	IncomeType      string
	Owner           string
	AdjustDirection string
	AdjustType      string

	// Spouse carries the demographic fields needed for spouse age math.
	Spouse struct {
		Birthdate    Date `json:"birthdate"`
		MortalityAge int  `json:"mortality_age,omitempty"`
	}

	// Client identifies the primary person: filing status, state, and the
	// dates that drive age computations. Ages are integer years at the
	// end of the projection year.
	Client struct {
		Birthdate    Date         `json:"birthdate"`
		Gender       string       `json:"gender,omitempty"`
		TaxStatus    FilingStatus `json:"tax_status"`
		State        string       `json:"state"`
		MortalityAge int          `json:"mortality_age,omitempty"`
		Spouse       *Spouse      `json:"spouse,omitempty"`
	}

	// SSAdjustment models a one-time, persistent change to Social
	// Security benefits starting at ReductionYear. Amount is a percent
	// for type "percentage" and annual dollars for type "amount".
	SSAdjustment struct {
		ReductionYear int             `json:"reduction_year"`
		Direction     AdjustDirection `json:"direction"`
		Type          AdjustType      `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
	}

	// Schedule is a Roth conversion plan: AnnualAmount transferred from
	// tax-deferred accounts in each of Duration years starting at
	// StartYear.
	Schedule struct {
		StartYear    int             `json:"start_year"`
		Duration     int             `json:"duration"`
		AnnualAmount decimal.Decimal `json:"annual_amount"`
	}

	// Scenario holds the projection controls. Inflation rates are
	// percent-valued as entered by the advisor.
	Scenario struct {
		StartYear              int             `json:"start_year"`
		RetirementYear         int             `json:"retirement_year,omitempty"`
		RetirementAge          int             `json:"retirement_age"`
		SpouseRetirementAge    int             `json:"spouse_retirement_age,omitempty"`
		MortalityAge           int             `json:"mortality_age,omitempty"`
		SpouseMortalityAge     int             `json:"spouse_mortality_age,omitempty"`
		MedicareAge            int             `json:"medicare_age,omitempty"`
		ApplyStandardDeduction bool            `json:"apply_standard_deduction"`
		CustomAnnualDeduction  decimal.Decimal `json:"custom_annual_deduction,omitempty"`
		TaxExemptInterest      decimal.Decimal `json:"tax_exempt_interest,omitempty"`
		SeedMAGI               decimal.Decimal `json:"seed_magi,omitempty"`
		PartBInflationRate     decimal.Decimal `json:"part_b_inflation_rate,omitempty"`
		PartDInflationRate     decimal.Decimal `json:"part_d_inflation_rate,omitempty"`
		SSAdjustment           *SSAdjustment   `json:"ss_adjustment,omitempty"`
		RothConversionStart    int             `json:"roth_conversion_start_year,omitempty"`
		RothConversionDuration int             `json:"roth_conversion_duration,omitempty"`
		RothConversionAnnual   decimal.Decimal `json:"roth_conversion_annual_amount,omitempty"`
		PrimaryState           string          `json:"primary_state,omitempty"`
		WidowYears             int             `json:"widow_years,omitempty"`
	}
)

var (
	ErrMissingBirthdate  = errors.New("client birthdate is required")
	ErrFutureBirthdate   = errors.New("birthdate is after the projection start")
	ErrRetirementAge     = errors.New("retirement age exceeds mortality age")
	ErrNegativeBalance   = errors.New("asset balance is negative")
	ErrNegativeAmount    = errors.New("monetary amount is negative")
	ErrUnknownIncomeType = errors.New("unknown income type")
	ErrNoSpouse          = errors.New("asset owned by spouse but client has no spouse")
	ErrBadExclusionRatio = errors.New("exclusion ratio must be between 0 and 1")
)

// MedicareAgeOrDefault returns the configured Medicare start age, or 65.
func (s Scenario) MedicareAgeOrDefault() int {
	if s.MedicareAge > 0 {
		return s.MedicareAge
	}
	return DefaultMedicareAge
}

// ConversionSchedule returns the Roth conversion schedule configured on
// the scenario, or a zero schedule when conversions are disabled.
func (s Scenario) ConversionSchedule() Schedule {
	if s.RothConversionStart == 0 || s.RothConversionDuration <= 0 {
		return Schedule{}
	}
	return Schedule{
		StartYear:    s.RothConversionStart,
		Duration:     s.RothConversionDuration,
		AnnualAmount: s.RothConversionAnnual,
	}
}

// Zero reports whether the schedule converts nothing.
func (sc Schedule) Zero() bool {
	return sc.Duration <= 0 || !sc.AnnualAmount.IsPositive()
}

// EndYear returns the first year after the conversion window.
func (sc Schedule) EndYear() int {
	return sc.StartYear + sc.Duration
}

// Covers reports whether year falls inside the conversion window.
func (sc Schedule) Covers(year int) bool {
	return !sc.Zero() && year >= sc.StartYear && year < sc.EndYear()
}

func (c Client) Validate(startYear int) error {
	if c.Birthdate.IsZero() {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingBirthdate)
	}
	if c.Birthdate.Year() > startYear {
		return fmt.Errorf("%w: %w", ErrValidation, ErrFutureBirthdate)
	}
	switch c.TaxStatus {
	case Single, MarriedJoint, MarriedSeparate, HeadOfHousehold, QualifyingWidow:
	default:
		return fmt.Errorf("%w: unknown tax status %q", ErrValidation, c.TaxStatus)
	}
	if c.Spouse != nil {
		if c.Spouse.Birthdate.IsZero() {
			return fmt.Errorf("%w: spouse %w", ErrValidation, ErrMissingBirthdate)
		}
		if c.Spouse.Birthdate.Year() > startYear {
			return fmt.Errorf("%w: spouse %w", ErrValidation, ErrFutureBirthdate)
		}
	}
	return nil
}

func (s Scenario) Validate(c Client) error {
	if s.StartYear <= 0 {
		return fmt.Errorf("%w: start year is required", ErrValidation)
	}
	mortality := s.MortalityAge
	if mortality == 0 {
		mortality = c.MortalityAge
	}
	if s.RetirementAge > 0 && mortality > 0 && s.RetirementAge > mortality {
		return fmt.Errorf("%w: %w", ErrValidation, ErrRetirementAge)
	}
	if s.RothConversionDuration < 0 {
		return fmt.Errorf("%w: conversion duration is negative", ErrValidation)
	}
	if s.RothConversionAnnual.IsNegative() {
		return fmt.Errorf("%w: conversion amount %w", ErrValidation, ErrNegativeAmount)
	}
	if s.SSAdjustment != nil {
		switch s.SSAdjustment.Direction {
		case AdjustIncrease, AdjustDecrease:
		default:
			return fmt.Errorf("%w: unknown adjustment direction %q", ErrValidation, s.SSAdjustment.Direction)
		}
		switch s.SSAdjustment.Type {
		case AdjustPercentage, AdjustAmount:
		default:
			return fmt.Errorf("%w: unknown adjustment type %q", ErrValidation, s.SSAdjustment.Type)
		}
	}
	return nil
}
