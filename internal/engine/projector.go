package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
	"retirecast/internal/log"
)

// syntheticRothLabel names the Roth destination account created when a
// conversion schedule is active but the inputs carry no Roth asset.
const syntheticRothLabel = "roth_conversion"

// source is the working copy of one asset: the immutable input record
// plus the evolving balance state. The projector never mutates Inputs.
type source struct {
	asset    core.Asset
	label    string
	owner    core.Owner
	balance  decimal.Decimal
	priorEnd decimal.Decimal

	// convertRemaining tracks the unconsumed max_to_convert quota.
	convertRemaining decimal.Decimal
}

type projection struct {
	e  *Engine
	in Inputs

	sources  []*source
	rothDest *source

	startYear    int
	terminalYear int
	primaryMort  int
	spouseMort   int
	widowYears   int
	state        string

	// magi holds full-precision MAGI per projected year for the two-year
	// IRMAA lookback.
	magi []decimal.Decimal
}

func newProjection(e *Engine, in Inputs) *projection {
	p := &projection{
		e:         e,
		in:        in,
		startYear: in.Scenario.StartYear,
	}

	p.primaryMort = firstPositive(in.Scenario.MortalityAge, in.Client.MortalityAge, defaultMortalityAge)
	if in.Client.Spouse != nil {
		p.spouseMort = firstPositive(in.Scenario.SpouseMortalityAge, in.Client.Spouse.MortalityAge, defaultMortalityAge)
	}
	p.widowYears = in.Scenario.WidowYears

	p.state = in.Client.State
	if in.Scenario.PrimaryState != "" {
		p.state = in.Scenario.PrimaryState
	}

	primarySpan := p.primaryMort - in.Client.Birthdate.AgeIn(p.startYear)
	span := primarySpan
	if in.Client.Spouse != nil {
		spouseSpan := p.spouseMort - in.Client.Spouse.Birthdate.AgeIn(p.startYear)
		if spouseSpan > span {
			span = spouseSpan
		}
	}
	if span < 0 {
		span = 0
	}
	p.terminalYear = p.startYear + span

	p.buildSources()
	return p
}

// buildSources copies the asset list into working state, ordered for the
// year loop: wages and pensions first, then Social Security, then
// Qualified, Roth, Non-Qualified, and annuities last.
func (p *projection) buildSources() {
	rank := func(t core.IncomeType) int {
		switch t {
		case core.Wages, core.Pension, core.OtherIncome:
			return 0
		case core.SocialSecurity:
			return 1
		case core.Qualified:
			return 2
		case core.Roth:
			return 3
		case core.NonQualified:
			return 4
		default: // Annuity
			return 5
		}
	}

	for i := range p.in.Assets {
		a := p.in.Assets[i]
		p.sources = append(p.sources, &source{
			asset:            a,
			label:            a.Label(),
			owner:            a.OwnerOrPrimary(),
			balance:          a.Balance,
			priorEnd:         a.Balance,
			convertRemaining: a.ConversionCap(),
		})
	}
	sort.SliceStable(p.sources, func(i, j int) bool {
		return rank(p.sources[i].asset.Type) < rank(p.sources[j].asset.Type)
	})

	if !p.in.Schedule.Zero() {
		p.ensureRothDestination()
	}
}

// ensureRothDestination picks the largest primary-owned Roth account as
// the conversion target, creating one when the inputs have none. A
// created account grows at the rate of the largest qualified source so
// converted dollars keep compounding.
func (p *projection) ensureRothDestination() {
	for _, s := range p.sources {
		if s.asset.IsTaxFree() && s.owner == core.OwnerPrimary {
			if p.rothDest == nil || s.balance.GreaterThan(p.rothDest.balance) {
				p.rothDest = s
			}
		}
	}
	if p.rothDest != nil {
		return
	}

	rate := decimal.Zero
	best := decimal.Zero
	for _, s := range p.sources {
		if s.asset.IsTaxDeferred() && s.owner == core.OwnerPrimary && s.balance.GreaterThan(best) {
			best = s.balance
			rate = s.asset.RateOfReturn
		}
	}
	dest := &source{
		asset: core.Asset{
			Name:         "Roth Conversion",
			Type:         core.Roth,
			Owner:        core.OwnerPrimary,
			RateOfReturn: rate,
		},
		label: syntheticRothLabel,
		owner: core.OwnerPrimary,
	}
	p.rothDest = dest
	p.sources = append(p.sources, dest)
}

func (p *projection) run() ([]core.YearRecord, error) {
	records := make([]core.YearRecord, 0, p.terminalYear-p.startYear+1)

	for year := p.startYear; year <= p.terminalYear; year++ {
		rec, err := p.projectYear(year)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	p.e.logger.Debug("projection complete",
		log.FieldStartYear, p.startYear,
		"years", len(records))
	return records, nil
}

func (p *projection) projectYear(year int) (core.YearRecord, error) {
	primaryAge := p.in.Client.Birthdate.AgeIn(year)
	primaryAlive := primaryAge <= p.primaryMort

	spouseAge := 0
	spouseAlive := false
	if p.in.Client.Spouse != nil {
		spouseAge = p.in.Client.Spouse.Birthdate.AgeIn(year)
		spouseAlive = spouseAge <= p.spouseMort
	}

	status := p.filingStatus(year, primaryAlive, spouseAlive)

	yr := &yearState{
		year:         year,
		primaryAge:   primaryAge,
		spouseAge:    spouseAge,
		primaryAlive: primaryAlive,
		spouseAlive:  spouseAlive,
		status:       status,
		gross:        map[string]decimal.Decimal{},
		balances:     map[string]decimal.Decimal{},
	}

	if err := p.evolveYear(yr); err != nil {
		return core.YearRecord{}, err
	}
	if err := p.computeTaxes(yr); err != nil {
		return core.YearRecord{}, err
	}
	if err := p.computeMedicare(yr); err != nil {
		return core.YearRecord{}, err
	}

	p.magi = append(p.magi, yr.magi)
	return p.assembleRecord(yr), nil
}

// filingStatus applies the survivor transition: a married couple files
// jointly while both are alive, then Qualifying Widow(er) for the
// configured window, then Single.
func (p *projection) filingStatus(year int, primaryAlive, spouseAlive bool) core.FilingStatus {
	base := p.in.Client.TaxStatus
	if p.in.Client.Spouse == nil {
		return base
	}
	if base != core.MarriedJoint && base != core.MarriedSeparate {
		return base
	}
	if primaryAlive && spouseAlive {
		return base
	}
	if !primaryAlive && !spouseAlive {
		return base
	}
	if base == core.MarriedSeparate {
		return core.Single
	}

	deathYear := p.firstDeathYear()
	if p.widowYears > 0 && year < deathYear+p.widowYears {
		return core.QualifyingWidow
	}
	return core.Single
}

// firstDeathYear is the first projected year in which only one of the
// couple is alive.
func (p *projection) firstDeathYear() int {
	primaryDeath := p.in.Client.Birthdate.Year() + p.primaryMort + 1
	spouseDeath := primaryDeath
	if p.in.Client.Spouse != nil {
		spouseDeath = p.in.Client.Spouse.Birthdate.Year() + p.spouseMort + 1
	}
	if spouseDeath < primaryDeath {
		return spouseDeath
	}
	return primaryDeath
}

func (p *projection) assembleRecord(yr *yearState) core.YearRecord {
	rec := core.YearRecord{
		Year:         yr.year,
		Age:          yr.primaryAge,
		FilingStatus: yr.status,

		GrossIncome:     core.RoundCents(yr.grossIncome),
		SSPrimaryGross:  core.RoundCents(yr.ssPrimary),
		SSSpouseGross:   core.RoundCents(yr.ssSpouse),
		SSITaxed:        core.RoundCents(yr.taxableSS),
		AGI:             core.RoundCents(yr.agi),
		MAGI:            core.RoundCents(yr.magi),
		TaxableIncome:   core.RoundCents(yr.taxableIncome),
		FederalTax:      core.RoundCents(yr.federalTax),
		StateTax:        core.RoundCents(yr.stateTax),
		TaxBracket:      yr.taxBracket,
		RMDAmount:       core.RoundCents(yr.rmdAmount),
		RothConversion:  core.RoundCents(yr.conversion),
		PartB:           core.RoundCents(yr.partB),
		PartD:           core.RoundCents(yr.partD),
		IRMAASurcharge:  core.RoundCents(yr.irmaaSurcharge),
		IRMAABracket:    yr.irmaaBracket,
		TotalMedicare:   core.RoundCents(yr.totalMedicare),
		RemainingIncome: core.RoundCents(yr.grossIncome.Sub(yr.federalTax).Sub(yr.stateTax).Sub(yr.totalMedicare)),

		Gross:    map[string]decimal.Decimal{},
		Balances: map[string]decimal.Decimal{},
	}
	if yr.spouseAlive {
		rec.SpouseAge = yr.spouseAge
	}
	for label, amount := range yr.gross {
		rec.Gross[label] = core.RoundCents(amount)
	}
	for label, balance := range yr.balances {
		rec.Balances[label] = core.RoundCents(balance)
	}
	return rec
}

// lookbackMAGI returns magi(year−2). The first two projected years fall
// back to the scenario's seeded MAGI history, or to the start year's own
// MAGI when no seed is supplied.
func (p *projection) lookbackMAGI(yr *yearState) decimal.Decimal {
	idx := yr.year - 2 - p.startYear
	if idx >= 0 && idx < len(p.magi) {
		return p.magi[idx]
	}
	if p.in.Scenario.SeedMAGI.IsPositive() {
		return p.in.Scenario.SeedMAGI
	}
	if len(p.magi) > 0 {
		return p.magi[0]
	}
	return yr.magi
}

// yearState accumulates one year's figures before record assembly. All
// amounts are full precision.
type yearState struct {
	year         int
	primaryAge   int
	spouseAge    int
	primaryAlive bool
	spouseAlive  bool
	status       core.FilingStatus

	gross    map[string]decimal.Decimal
	balances map[string]decimal.Decimal

	grossIncome decimal.Decimal
	ssPrimary   decimal.Decimal
	ssSpouse    decimal.Decimal

	// ordinaryIncome is OI: every taxable dollar except Social Security.
	ordinaryIncome   decimal.Decimal
	retirementIncome decimal.Decimal
	wageIncome       decimal.Decimal
	nonQualIncome    decimal.Decimal

	rmdAmount  decimal.Decimal
	conversion decimal.Decimal

	taxableSS     decimal.Decimal
	agi           decimal.Decimal
	magi          decimal.Decimal
	taxableIncome decimal.Decimal
	federalTax    decimal.Decimal
	stateTax      decimal.Decimal
	taxBracket    string

	partB          decimal.Decimal
	partD          decimal.Decimal
	irmaaSurcharge decimal.Decimal
	irmaaBracket   int
	totalMedicare  decimal.Decimal
}

// ownerAlive reports whether a source's owner is alive this year.
func (yr *yearState) ownerAlive(owner core.Owner) bool {
	if owner == core.OwnerSpouse {
		return yr.spouseAlive
	}
	return yr.primaryAlive
}

// ownerAge returns the source owner's age this year.
func (yr *yearState) ownerAge(owner core.Owner) int {
	if owner == core.OwnerSpouse {
		return yr.spouseAge
	}
	return yr.primaryAge
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
