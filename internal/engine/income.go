package engine

import (
	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

// streamIncome realises one year of a pure income stream: Social
// Security, pension, wages, or other recurring income. Streams carry no
// balance; the gross is the COLA-compounded annual amount inside the age
// window, zero outside it or after the owner's death.
func (p *projection) streamIncome(yr *yearState, s *source) {
	if !yr.ownerAlive(s.owner) {
		yr.gross[s.label] = decimal.Zero
		return
	}
	age := yr.ownerAge(s.owner)
	if !s.asset.ActiveAt(age) {
		yr.gross[s.label] = decimal.Zero
		return
	}

	gross := core.Annual(s.asset.MonthlyAmount).Mul(core.Compound(s.asset.COLARate(), p.colaYears(s, yr)))

	if s.asset.IsSocialSecurity() {
		gross = p.applySSAdjustment(gross, yr.year)
		if s.owner == core.OwnerSpouse {
			yr.ssSpouse = yr.ssSpouse.Add(gross)
		} else {
			yr.ssPrimary = yr.ssPrimary.Add(gross)
		}
	} else {
		yr.ordinaryIncome = yr.ordinaryIncome.Add(gross)
		switch s.asset.Type {
		case core.Pension:
			yr.retirementIncome = yr.retirementIncome.Add(gross)
		default:
			yr.wageIncome = yr.wageIncome.Add(gross)
		}
	}

	yr.gross[s.label] = yr.gross[s.label].Add(gross)
	yr.grossIncome = yr.grossIncome.Add(gross)
}

// applySSAdjustment applies the scenario's benefit change policy from its
// reduction year onward. Percentage amounts scale the benefit; dollar
// amounts shift the annual benefit. Benefits never go below zero.
func (p *projection) applySSAdjustment(gross decimal.Decimal, year int) decimal.Decimal {
	adj := p.in.Scenario.SSAdjustment
	if adj == nil || year < adj.ReductionYear {
		return gross
	}

	var delta decimal.Decimal
	switch adj.Type {
	case core.AdjustPercentage:
		delta = gross.Mul(core.Rate(adj.Amount))
	case core.AdjustAmount:
		delta = adj.Amount
	default:
		return gross
	}

	if adj.Direction == core.AdjustDecrease {
		delta = delta.Neg()
	}
	adjusted := gross.Add(delta)
	if adjusted.IsNegative() {
		return decimal.Zero
	}
	return adjusted
}
