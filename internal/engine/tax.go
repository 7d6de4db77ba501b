package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

var (
	half        = decimal.NewFromFloat(0.5)
	eightyFive  = decimal.NewFromFloat(0.85)
	topBoundary = decimal.NewFromInt(999999999)
)

// computeTaxes fills in taxable Social Security, AGI, MAGI, the taxable
// income after deductions, and federal and state tax for the year.
func (p *projection) computeTaxes(yr *yearState) error {
	ssGross := yr.ssPrimary.Add(yr.ssSpouse)

	taxableSS, err := p.taxableSocialSecurity(yr, ssGross)
	if err != nil {
		return err
	}
	yr.taxableSS = taxableSS

	yr.agi = yr.ordinaryIncome.Add(taxableSS)
	yr.magi = yr.agi.Add(p.in.Scenario.TaxExemptInterest)

	deduction, err := p.deduction(yr)
	if err != nil {
		return err
	}

	// Negative AGI is reported raw but clamped for tax purposes.
	agiForTax := yr.agi
	if agiForTax.IsNegative() {
		agiForTax = decimal.Zero
	}
	yr.taxableIncome = agiForTax.Sub(deduction)
	if yr.taxableIncome.IsNegative() {
		yr.taxableIncome = decimal.Zero
	}

	tax, bracket, err := p.federalTax(yr.year, yr.status, yr.taxableIncome)
	if err != nil {
		return err
	}
	yr.federalTax = tax
	yr.taxBracket = bracket

	stateTax, err := p.stateTax(yr)
	if err != nil {
		return err
	}
	yr.stateTax = stateTax
	return nil
}

// taxableSocialSecurity applies the two-tier provisional income formula.
// Below the base threshold nothing is taxable; between the thresholds up
// to half the benefit phases in; above the upper threshold taxation is
// capped at 85% of the benefit.
func (p *projection) taxableSocialSecurity(yr *yearState, ssGross decimal.Decimal) (decimal.Decimal, error) {
	if !ssGross.IsPositive() {
		return decimal.Zero, nil
	}
	thresholds, err := p.e.tables.SocialSecurityThresholds(yr.year, yr.status)
	if err != nil {
		return decimal.Decimal{}, err
	}

	provisional := yr.ordinaryIncome.Add(half.Mul(ssGross)).Add(p.in.Scenario.TaxExemptInterest)
	lower, upper := thresholds.Base, thresholds.Additional

	switch {
	case provisional.LessThanOrEqual(lower):
		return decimal.Zero, nil
	case provisional.LessThanOrEqual(upper):
		return decimal.Min(
			half.Mul(ssGross),
			half.Mul(provisional.Sub(lower)),
		), nil
	default:
		middleTier := decimal.Min(half.Mul(ssGross), half.Mul(upper.Sub(lower)))
		return decimal.Min(
			eightyFive.Mul(ssGross),
			eightyFive.Mul(provisional.Sub(upper)).Add(middleTier),
		), nil
	}
}

// deduction resolves this year's deduction: the standard deduction plus
// the age-65 additional amount per qualifying filer, or the scenario's
// custom amount.
func (p *projection) deduction(yr *yearState) (decimal.Decimal, error) {
	if !p.in.Scenario.ApplyStandardDeduction {
		return p.in.Scenario.CustomAnnualDeduction, nil
	}
	d, err := p.e.tables.StandardDeduction(yr.year, yr.status)
	if err != nil {
		return decimal.Decimal{}, err
	}

	// Count filers covered by this return: both spouses on a joint
	// return, the primary alone otherwise, and whichever of the couple
	// survives once the other has died.
	over65 := 0
	joint := yr.status == core.MarriedJoint || yr.status == core.QualifyingWidow
	switch {
	case yr.primaryAlive && yr.spouseAlive:
		if yr.primaryAge >= 65 {
			over65++
		}
		if joint && yr.spouseAge >= 65 {
			over65++
		}
	case yr.primaryAlive:
		if yr.primaryAge >= 65 {
			over65++
		}
	case yr.spouseAlive:
		if yr.spouseAge >= 65 {
			over65++
		}
	}
	return d.Base.Add(d.AdditionalOver65.Mul(decimal.NewFromInt(int64(over65)))), nil
}

// federalTax walks the marginal brackets and reports the highest bracket
// touched as a percent string.
func (p *projection) federalTax(year int, status core.FilingStatus, taxable decimal.Decimal) (decimal.Decimal, string, error) {
	brackets, err := p.e.tables.FederalBrackets(year, status)
	if err != nil {
		return decimal.Decimal{}, "", err
	}

	if !taxable.IsPositive() {
		return decimal.Zero, "0%", nil
	}

	tax := decimal.Zero
	marginal := brackets[0].Rate
	for _, b := range brackets {
		if taxable.LessThanOrEqual(b.Min) {
			break
		}
		cap := b.Max
		if cap.GreaterThanOrEqual(topBoundary) || taxable.LessThan(cap) {
			cap = taxable
		}
		tax = tax.Add(cap.Sub(b.Min).Mul(b.Rate))
		marginal = b.Rate

		if taxable.LessThanOrEqual(b.Max) {
			break
		}
	}
	return tax, formatBracket(marginal), nil
}

func formatBracket(rate decimal.Decimal) string {
	return fmt.Sprintf("%d%%", rate.Mul(decimal.NewFromInt(100)).IntPart())
}

// stateTax applies the flat state rate to the state-taxable base:
// wages and taxable investment income always; retirement income unless
// the state exempts it; taxable Social Security only where the state
// taxes benefits.
func (p *projection) stateTax(yr *yearState) (decimal.Decimal, error) {
	info, err := p.e.tables.State(yr.year, p.state)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if info.Rate.IsZero() {
		return decimal.Zero, nil
	}

	base := yr.wageIncome.Add(yr.nonQualIncome)
	if !info.RetirementExempt {
		base = base.Add(yr.retirementIncome)
	}
	if info.SSTaxed {
		base = base.Add(yr.taxableSS)
	}
	if !base.IsPositive() {
		return decimal.Zero, nil
	}
	return base.Mul(info.Rate), nil
}
