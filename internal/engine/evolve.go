package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

// evolveYear advances every source through one year: growth,
// contributions, voluntary withdrawals, Roth conversions, and finally RMD
// enforcement. Conversions and RMDs run as cross-source passes because
// conversion quota is allocated across accounts and RMD top-ups must see
// what was already distributed.
func (p *projection) evolveYear(yr *yearState) error {
	withdrawn := map[*source]decimal.Decimal{}

	for _, s := range p.sources {
		if !s.asset.HasBalance() {
			p.streamIncome(yr, s)
			continue
		}

		s.priorEnd = s.balance

		// Growth.
		s.balance = s.balance.Mul(core.Compound(s.asset.ReturnRate(), 1))
		if err := core.CheckBalance(s.label, s.balance); err != nil {
			return err
		}

		alive := yr.ownerAlive(s.owner)
		age := yr.ownerAge(s.owner)

		// Contributions while working.
		if alive && s.asset.IsContributing && !p.retired(s.owner, yr) && p.withinContributionWindow(s, age) {
			monthly := s.asset.MonthlyContribution
			match := monthly.Mul(s.asset.MatchRate())
			s.balance = s.balance.Add(core.Annual(monthly.Add(match)))
		}

		// Voluntary withdrawal.
		took := decimal.Zero
		if alive && p.retired(s.owner, yr) && s.asset.ActiveAt(age) {
			target := core.Annual(s.asset.MonthlyAmount).Mul(core.Compound(s.asset.COLARate(), p.colaYears(s, yr)))
			took = decimal.Min(target, s.balance)
			s.balance = s.balance.Sub(took)
		}
		withdrawn[s] = took
		p.recordDistribution(yr, s, took)
	}

	if p.in.Schedule.Covers(yr.year) && yr.primaryAlive {
		p.convert(yr)
	}

	p.enforceRMDs(yr, withdrawn)

	for _, s := range p.sources {
		if s.asset.HasBalance() {
			yr.balances[s.label] = s.balance
		}
		if _, ok := yr.gross[s.label]; !ok {
			yr.gross[s.label] = decimal.Zero
		}
	}
	return nil
}

// recordDistribution books a withdrawal as that source's gross and routes
// it into the right taxable bucket.
func (p *projection) recordDistribution(yr *yearState, s *source, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	yr.gross[s.label] = yr.gross[s.label].Add(amount)
	yr.grossIncome = yr.grossIncome.Add(amount)

	switch {
	case s.asset.IsTaxDeferred():
		yr.ordinaryIncome = yr.ordinaryIncome.Add(amount)
		yr.retirementIncome = yr.retirementIncome.Add(amount)
	case s.asset.IsTaxFree():
		// Roth distributions are never taxable.
	case s.asset.IsAnnuity():
		taxable := amount.Mul(decimal.NewFromInt(1).Sub(s.asset.ExclusionRatio))
		yr.ordinaryIncome = yr.ordinaryIncome.Add(taxable)
		yr.retirementIncome = yr.retirementIncome.Add(taxable)
	default: // Non-Qualified: ordinary treatment until a basis field exists.
		yr.ordinaryIncome = yr.ordinaryIncome.Add(amount)
		yr.nonQualIncome = yr.nonQualIncome.Add(amount)
	}
}

// convert allocates this year's conversion quota across primary-owned
// qualified accounts in descending balance order. Converted amounts move
// to the Roth destination and enter ordinary income, but never count
// toward the RMD requirement.
func (p *projection) convert(yr *yearState) {
	quota := p.in.Schedule.AnnualAmount
	if !quota.IsPositive() {
		return
	}

	eligible := make([]*source, 0, len(p.sources))
	for _, s := range p.sources {
		if s.asset.IsTaxDeferred() && s.owner == core.OwnerPrimary && s.balance.IsPositive() {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].balance.GreaterThan(eligible[j].balance)
	})

	for _, s := range eligible {
		if !quota.IsPositive() {
			break
		}
		amount := decimal.Min(quota, s.balance, s.convertRemaining)
		if !amount.IsPositive() {
			continue
		}
		s.balance = s.balance.Sub(amount)
		s.convertRemaining = s.convertRemaining.Sub(amount)
		p.rothDest.balance = p.rothDest.balance.Add(amount)
		quota = quota.Sub(amount)

		yr.conversion = yr.conversion.Add(amount)
		yr.ordinaryIncome = yr.ordinaryIncome.Add(amount)
		yr.retirementIncome = yr.retirementIncome.Add(amount)
	}
}

// enforceRMDs tops up each tax-deferred account to its required minimum.
// The requirement is prior-year-end balance over the age divisor;
// voluntary withdrawals count toward it, conversions do not. The reported
// amount is the statutory requirement even when the balance cannot fully
// cover it.
func (p *projection) enforceRMDs(yr *yearState, withdrawn map[*source]decimal.Decimal) {
	for _, s := range p.sources {
		if !s.asset.IsTaxDeferred() || !yr.ownerAlive(s.owner) {
			continue
		}
		age := yr.ownerAge(s.owner)
		if age < RMDStartAge || !s.priorEnd.IsPositive() {
			continue
		}
		divisor, ok := p.e.tables.RMDDivisor(age)
		if !ok {
			continue
		}

		required := s.priorEnd.Div(divisor)
		yr.rmdAmount = yr.rmdAmount.Add(required)

		shortfall := required.Sub(withdrawn[s])
		if !shortfall.IsPositive() {
			continue
		}
		topUp := decimal.Min(shortfall, s.balance)
		if !topUp.IsPositive() {
			continue
		}
		s.balance = s.balance.Sub(topUp)
		p.recordDistribution(yr, s, topUp)
	}
}

// retired reports whether an owner has reached retirement this year,
// either by the scenario's retirement year or by age.
func (p *projection) retired(owner core.Owner, yr *yearState) bool {
	sc := p.in.Scenario
	if sc.RetirementYear > 0 && yr.year >= sc.RetirementYear {
		return true
	}
	retireAge := sc.RetirementAge
	if owner == core.OwnerSpouse && sc.SpouseRetirementAge > 0 {
		retireAge = sc.SpouseRetirementAge
	}
	if retireAge > 0 {
		return yr.ownerAge(owner) >= retireAge
	}
	return sc.RetirementYear == 0
}

// withinContributionWindow caps contributions at age_last_contribution
// when configured.
func (p *projection) withinContributionWindow(s *source, age int) bool {
	return s.asset.AgeLastContribution == 0 || age <= s.asset.AgeLastContribution
}

// colaYears counts years since a source's payout window opened, for COLA
// compounding. Age-gated sources count from the begin age; ungated
// sources count from the projection start.
func (p *projection) colaYears(s *source, yr *yearState) int {
	years := 0
	if s.asset.AgeToBegin > 0 {
		years = yr.ownerAge(s.owner) - s.asset.AgeToBegin
	} else {
		years = yr.year - p.startYear
	}
	if years < 0 {
		return 0
	}
	return years
}
