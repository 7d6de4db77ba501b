package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// maxWindowAge stands in for an open-ended withdrawal window when
// age_to_end_withdrawal is not supplied.
const maxWindowAge = 120

// Asset is a unified income source record. The income type discriminates
// between balance-bearing investments (Qualified, Roth, Non-Qualified,
// Annuity) and pure income streams (social security, pension, wages).
// Rate-valued fields are percent as entered; use the *Rate methods for
// fractions.
type Asset struct {
	Name                string          `json:"income_name,omitempty"`
	Type                IncomeType      `json:"income_type"`
	Owner               Owner           `json:"owned_by,omitempty"`
	Balance             decimal.Decimal `json:"current_asset_balance,omitempty"`
	MonthlyAmount       decimal.Decimal `json:"monthly_amount,omitempty"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution,omitempty"`
	AgeToBegin          int             `json:"age_to_begin_withdrawal,omitempty"`
	AgeToEnd            int             `json:"age_to_end_withdrawal,omitempty"`
	RateOfReturn        decimal.Decimal `json:"rate_of_return,omitempty"`
	COLA                decimal.Decimal `json:"cola,omitempty"`
	ExclusionRatio      decimal.Decimal `json:"exclusion_ratio,omitempty"`
	MaxToConvert        decimal.Decimal `json:"max_to_convert,omitempty"`
	IsContributing      bool            `json:"is_contributing,omitempty"`
	EmployerMatch       decimal.Decimal `json:"employer_match,omitempty"`
	AgeLastContribution int             `json:"age_last_contribution,omitempty"`
}

// OwnerOrPrimary defaults missing ownership to the primary client.
func (a Asset) OwnerOrPrimary() Owner {
	if a.Owner == OwnerSpouse {
		return OwnerSpouse
	}
	return OwnerPrimary
}

// Label names the asset in year-record keys: the configured income name,
// lowercased with spaces collapsed, falling back to the income type.
func (a Asset) Label() string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		name = string(a.Type)
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// EndAge returns the last age of the withdrawal window, open-ended when
// unset.
func (a Asset) EndAge() int {
	if a.AgeToEnd <= 0 {
		return maxWindowAge
	}
	return a.AgeToEnd
}

// ActiveAt reports whether the owner's age falls inside the asset's
// begin/end window.
func (a Asset) ActiveAt(age int) bool {
	return age >= a.AgeToBegin && age <= a.EndAge()
}

// IsTaxDeferred reports whether withdrawals are ordinary income and the
// account is subject to RMDs.
func (a Asset) IsTaxDeferred() bool { return a.Type == Qualified }

// IsTaxFree reports whether withdrawals are excluded from taxable income.
func (a Asset) IsTaxFree() bool { return a.Type == Roth }

func (a Asset) IsAnnuity() bool        { return a.Type == Annuity }
func (a Asset) IsSocialSecurity() bool { return a.Type == SocialSecurity }

// HasBalance reports whether the asset carries an account balance, as
// opposed to a pure income stream.
func (a Asset) HasBalance() bool {
	switch a.Type {
	case Qualified, Roth, NonQualified, Annuity:
		return true
	}
	return false
}

// ReturnRate returns the annual growth rate as a fraction.
func (a Asset) ReturnRate() decimal.Decimal { return Rate(a.RateOfReturn) }

// COLARate returns the cost-of-living adjustment as a fraction.
func (a Asset) COLARate() decimal.Decimal { return Rate(a.COLA) }

// MatchRate returns the employer match as a fraction of the employee
// contribution.
func (a Asset) MatchRate() decimal.Decimal { return Rate(a.EmployerMatch) }

// ConversionCap returns the most that may ever be converted out of this
// asset: max_to_convert when set, otherwise the full balance.
func (a Asset) ConversionCap() decimal.Decimal {
	if a.MaxToConvert.IsPositive() {
		return decimal.Min(a.MaxToConvert, a.Balance)
	}
	return a.Balance
}

func (a Asset) Validate(hasSpouse bool) error {
	switch a.Type {
	case Qualified, Roth, NonQualified, Annuity, SocialSecurity, Pension, Wages, OtherIncome:
	default:
		return fmt.Errorf("%w: %w %q", ErrValidation, ErrUnknownIncomeType, a.Type)
	}
	if a.OwnerOrPrimary() == OwnerSpouse && !hasSpouse {
		return fmt.Errorf("%w: %s: %w", ErrValidation, a.Label(), ErrNoSpouse)
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("%w: %s: %w", ErrValidation, a.Label(), ErrNegativeBalance)
	}
	for _, amt := range []decimal.Decimal{a.MonthlyAmount, a.MonthlyContribution, a.MaxToConvert} {
		if amt.IsNegative() {
			return fmt.Errorf("%w: %s: %w", ErrValidation, a.Label(), ErrNegativeAmount)
		}
	}
	if a.ExclusionRatio.IsNegative() || a.ExclusionRatio.GreaterThan(one) {
		return fmt.Errorf("%w: %s: %w", ErrValidation, a.Label(), ErrBadExclusionRatio)
	}
	if a.AgeToEnd > 0 && a.AgeToEnd < a.AgeToBegin {
		return fmt.Errorf("%w: %s: withdrawal window ends before it begins", ErrValidation, a.Label())
	}
	return nil
}

// ValidateAssets runs per-asset validation over an input list.
func ValidateAssets(assets []Asset, hasSpouse bool) error {
	for i := range assets {
		if err := assets[i].Validate(hasSpouse); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
	}
	return nil
}
