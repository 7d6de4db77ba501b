package engine

import (
	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

// computeMedicare fills in Part B/D premiums and the IRMAA surcharge.
// Premiums start at the scenario's Medicare age and are charged per
// living covered person, independent of the year's filing status: a
// surviving spouse filing Single still pays premiums. The IRMAA tier is
// driven by MAGI from two years prior.
func (p *projection) computeMedicare(yr *yearState) error {
	medicareAge := p.in.Scenario.MedicareAgeOrDefault()

	persons := 0
	if yr.primaryAlive && yr.primaryAge >= medicareAge {
		persons++
	}
	if p.in.Client.Spouse != nil && yr.spouseAlive && yr.spouseAge >= medicareAge {
		persons++
	}
	if persons == 0 {
		return nil
	}

	rates, err := p.e.tables.MedicareBase(yr.year)
	if err != nil {
		return err
	}

	// Base premiums inflate from the start year at the scenario's rates.
	elapsed := yr.year - p.startYear
	partBMonthly := rates.PartB.Mul(core.Compound(core.Rate(p.in.Scenario.PartBInflationRate), elapsed))
	partDMonthly := rates.PartD.Mul(core.Compound(core.Rate(p.in.Scenario.PartDInflationRate), elapsed))

	tiers, err := p.e.tables.IRMAATiers(yr.year, yr.status)
	if err != nil {
		return err
	}

	lookback := p.lookbackMAGI(yr)
	surchargeB, surchargeD := decimal.Zero, decimal.Zero
	for i := len(tiers) - 1; i >= 0; i-- {
		if lookback.GreaterThan(tiers[i].Floor) {
			surchargeB = tiers[i].PartB
			surchargeD = tiers[i].PartD
			yr.irmaaBracket = i + 1
			break
		}
	}

	people := decimal.NewFromInt(int64(persons))
	annual := func(monthly decimal.Decimal) decimal.Decimal {
		return core.Annual(monthly).Mul(people)
	}

	yr.partB = annual(partBMonthly)
	yr.partD = annual(partDMonthly)
	yr.irmaaSurcharge = annual(surchargeB.Add(surchargeD))
	yr.totalMedicare = yr.partB.Add(yr.partD).Add(yr.irmaaSurcharge)
	return nil
}
