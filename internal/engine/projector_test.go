package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
	"retirecast/internal/taxdata"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	tables, err := taxdata.Embedded()
	if err != nil {
		t.Fatalf("load tables: %v", err)
	}
	return New(tables, nil)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func singleClient(birthYear int, state string) core.Client {
	return core.Client{
		Birthdate: core.NewDate(birthYear, 1, 15),
		TaxStatus: core.Single,
		State:     state,
	}
}

func TestProjectValidationFailsFast(t *testing.T) {
	e := testEngine(t)

	_, err := e.Project(Inputs{
		Client:   core.Client{TaxStatus: core.Single},
		Scenario: core.Scenario{StartYear: 2025},
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

// Wages in a no-income-tax state: state tax is zero throughout and
// federal tax matches a hand bracket walk on wages minus the standard
// deduction.
func TestProjectWagesNoTaxState(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1975, "TX"),
		Scenario: core.Scenario{
			StartYear:              2025,
			RetirementYear:         2035,
			MortalityAge:           60,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{{
			Name:          "Salary",
			Type:          core.Wages,
			MonthlyAmount: dec("4166.67"),
			AgeToBegin:    50,
			AgeToEnd:      59,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(records) != 11 {
		t.Fatalf("got %d records, want 11", len(records))
	}

	first := records[0]
	if !first.StateTax.IsZero() {
		t.Errorf("state tax = %s, want 0", first.StateTax)
	}
	// 50 000.04 gross − 15 000 deduction; 10% to 11 925 then 12%.
	if !first.FederalTax.Equal(dec("3961.50")) {
		t.Errorf("federal tax = %s, want 3961.50", first.FederalTax)
	}
	if first.TaxBracket != "12%" {
		t.Errorf("tax bracket = %q, want 12%%", first.TaxBracket)
	}

	for _, rec := range records {
		if !rec.StateTax.IsZero() {
			t.Errorf("year %d: state tax = %s, want 0", rec.Year, rec.StateTax)
		}
	}
}

// A retirement funded entirely by Roth and modest Social Security owes no
// federal tax, no IRMAA, and no RMDs.
func TestProjectPureRothRetirement(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1958, "CA"),
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           85,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{
			{
				Name:          "Roth IRA",
				Type:          core.Roth,
				Balance:       dec("500000"),
				MonthlyAmount: dec("2000"),
				AgeToBegin:    67,
				RateOfReturn:  dec("4"),
			},
			{
				Name:          "Social Security",
				Type:          core.SocialSecurity,
				MonthlyAmount: dec("2000"),
				AgeToBegin:    67,
				COLA:          dec("2"),
			},
		},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	for _, rec := range records {
		if !rec.FederalTax.IsZero() {
			t.Errorf("year %d: federal tax = %s, want 0", rec.Year, rec.FederalTax)
		}
		if !rec.IRMAASurcharge.IsZero() {
			t.Errorf("year %d: IRMAA = %s, want 0", rec.Year, rec.IRMAASurcharge)
		}
		if !rec.RMDAmount.IsZero() {
			t.Errorf("year %d: RMD = %s, want 0", rec.Year, rec.RMDAmount)
		}
		if !rec.TotalMedicare.IsPositive() {
			t.Errorf("year %d: expected Medicare premiums past 65", rec.Year)
		}
	}
}

// An RMD is forced at 73 even though the voluntary withdrawal window has
// not opened, and the distribution is taxed as ordinary income.
func TestProjectForcedRMD(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1952, "TX"),
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           75,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{{
			Name:          "Traditional IRA",
			Type:          core.Qualified,
			Balance:       dec("1000000"),
			MonthlyAmount: dec("3000"),
			AgeToBegin:    80,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	first := records[0]
	if !first.RMDAmount.Equal(dec("37735.85")) {
		t.Errorf("2025 RMD = %s, want 37735.85", first.RMDAmount)
	}
	if !first.Balances["traditional_ira"].Equal(dec("962264.15")) {
		t.Errorf("2025 balance = %s, want 962264.15", first.Balances["traditional_ira"])
	}
	if !first.AGI.Equal(dec("37735.85")) {
		t.Errorf("2025 AGI = %s, want 37735.85", first.AGI)
	}
	if !first.FederalTax.IsPositive() {
		t.Error("RMD should produce federal tax")
	}
}

// Seeded MAGI history drives the IRMAA tier for the first two years; once
// the lookback window reaches projected MAGI the surcharge drops away.
func TestProjectIRMAALookback(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: core.Client{
			Birthdate: core.NewDate(1959, 3, 1),
			TaxStatus: core.MarriedJoint,
			State:     "FL",
			Spouse:    &core.Spouse{Birthdate: core.NewDate(1959, 7, 1)},
		},
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           80,
			SpouseMortalityAge:     80,
			ApplyStandardDeduction: true,
			SeedMAGI:               dec("300000"),
		},
		Assets: []core.Asset{{
			Name:          "Pension",
			Type:          core.Pension,
			MonthlyAmount: dec("3000"),
			AgeToBegin:    65,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	first := records[0]
	if first.IRMAABracket < 2 {
		t.Errorf("2025 IRMAA bracket = %d, want >= 2", first.IRMAABracket)
	}
	if !first.IRMAASurcharge.IsPositive() {
		t.Error("2025 IRMAA surcharge should be positive")
	}

	third := records[2]
	if third.IRMAABracket != 0 {
		t.Errorf("2027 IRMAA bracket = %d, want 0", third.IRMAABracket)
	}
	if !third.IRMAASurcharge.IsZero() {
		t.Errorf("2027 IRMAA surcharge = %s, want 0", third.IRMAASurcharge)
	}
}

// Taxable Social Security is zero below the lower threshold, phases in
// linearly between thresholds, and caps at 85% of the benefit.
func TestProjectProvisionalIncomeKink(t *testing.T) {
	e := testEngine(t)

	cases := []struct {
		otherAnnual string
		wantTaxable string
	}{
		{"0", "0"},
		{"10000", "0"},
		{"15000", "1000"},
		{"20000", "3500"},
		{"25000", "7050"},
		{"30000", "11300"},
		{"35000", "15550"},
		{"40000", "19800"},
		{"100000", "20400"},
	}

	for _, tc := range cases {
		t.Run("other="+tc.otherAnnual, func(t *testing.T) {
			monthly := dec(tc.otherAnnual).Div(decimal.NewFromInt(12))
			in := Inputs{
				Client: singleClient(1957, "TX"),
				Scenario: core.Scenario{
					StartYear:              2025,
					MortalityAge:           68,
					ApplyStandardDeduction: true,
				},
				Assets: []core.Asset{
					{
						Name:          "Social Security",
						Type:          core.SocialSecurity,
						MonthlyAmount: dec("2000"),
						AgeToBegin:    65,
					},
					{
						Name:          "Consulting",
						Type:          core.OtherIncome,
						MonthlyAmount: monthly,
						AgeToBegin:    65,
					},
				},
			}

			records, err := e.Project(in)
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			got := records[0].SSITaxed
			if !got.Equal(dec(tc.wantTaxable)) {
				t.Errorf("taxable SS = %s, want %s", got, tc.wantTaxable)
			}
		})
	}
}

func TestProjectGrossIncomeSumsSources(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1957, "CA"),
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           80,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{
			{Name: "SS", Type: core.SocialSecurity, MonthlyAmount: dec("1800"), AgeToBegin: 67, COLA: dec("2")},
			{Name: "401k", Type: core.Qualified, Balance: dec("800000"), MonthlyAmount: dec("2500"), AgeToBegin: 65, RateOfReturn: dec("5"), COLA: dec("2")},
			{Name: "Brokerage", Type: core.NonQualified, Balance: dec("200000"), MonthlyAmount: dec("1000"), AgeToBegin: 65, RateOfReturn: dec("4")},
		},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	tolerance := dec("0.05")
	for _, rec := range records {
		sum := decimal.Zero
		for _, g := range rec.Gross {
			sum = sum.Add(g)
		}
		if sum.Sub(rec.GrossIncome).Abs().GreaterThan(tolerance) {
			t.Errorf("year %d: source sum %s != gross income %s", rec.Year, sum, rec.GrossIncome)
		}
		for label, b := range rec.Balances {
			if b.IsNegative() {
				t.Errorf("year %d: %s balance %s is negative", rec.Year, label, b)
			}
		}
	}
}

// With zero return and no flows the balance never moves.
func TestProjectGrowthIdempotentAtZeroReturn(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1985, "TX"),
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           50,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{{
			Name:       "Frozen",
			Type:       core.NonQualified,
			Balance:    dec("123456.78"),
			AgeToBegin: 60,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	for _, rec := range records {
		if !rec.Balances["frozen"].Equal(dec("123456.78")) {
			t.Fatalf("year %d: balance %s moved", rec.Year, rec.Balances["frozen"])
		}
	}
}

// Doubling the SS benefit doubles the gross in every projected year.
func TestProjectSSColaAdditivity(t *testing.T) {
	e := testEngine(t)

	build := func(monthly string) Inputs {
		return Inputs{
			Client: singleClient(1957, "TX"),
			Scenario: core.Scenario{
				StartYear:              2025,
				MortalityAge:           80,
				ApplyStandardDeduction: true,
			},
			Assets: []core.Asset{{
				Name:          "SS",
				Type:          core.SocialSecurity,
				MonthlyAmount: dec(monthly),
				AgeToBegin:    67,
				COLA:          dec("2"),
			}},
		}
	}

	base, err := e.Project(build("1500"))
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	doubled, err := e.Project(build("3000"))
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	// Per-year records round to cents, so doubling can differ by one
	// cent from the doubled rounded base.
	tolerance := dec("0.01")
	for i := range base {
		want := base[i].SSPrimaryGross.Mul(decimal.NewFromInt(2))
		if doubled[i].SSPrimaryGross.Sub(want).Abs().GreaterThan(tolerance) {
			t.Errorf("year %d: doubled SS = %s, want %s", doubled[i].Year, doubled[i].SSPrimaryGross, want)
		}
	}
}

// Projections are deterministic: repeated runs are identical.
func TestProjectDeterministic(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: singleClient(1960, "NY"),
		Scenario: core.Scenario{
			StartYear:              2025,
			MortalityAge:           90,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{
			{Name: "401k", Type: core.Qualified, Balance: dec("600000"), MonthlyAmount: dec("2000"), AgeToBegin: 67, RateOfReturn: dec("6")},
			{Name: "SS", Type: core.SocialSecurity, MonthlyAmount: dec("2200"), AgeToBegin: 67, COLA: dec("2")},
		},
	}

	first, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	second, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	for i := range first {
		if !first[i].AGI.Equal(second[i].AGI) || !first[i].FederalTax.Equal(second[i].FederalTax) {
			t.Fatalf("year %d differs between runs", first[i].Year)
		}
		for label, b := range first[i].Balances {
			if !second[i].Balances[label].Equal(b) {
				t.Fatalf("year %d: balance %s differs", first[i].Year, label)
			}
		}
	}
}

// A survivor transitions to Qualifying Widow(er) for the configured
// window and then to Single.
func TestProjectSurvivorFilingTransition(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: core.Client{
			Birthdate:    core.NewDate(1955, 5, 1),
			TaxStatus:    core.MarriedJoint,
			State:        "TX",
			MortalityAge: 72, // dies after 2027
			Spouse:       &core.Spouse{Birthdate: core.NewDate(1958, 5, 1), MortalityAge: 85},
		},
		Scenario: core.Scenario{
			StartYear:              2025,
			ApplyStandardDeduction: true,
			WidowYears:             2,
		},
		Assets: []core.Asset{{
			Name:          "Spouse SS",
			Type:          core.SocialSecurity,
			Owner:         core.OwnerSpouse,
			MonthlyAmount: dec("1500"),
			AgeToBegin:    67,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	byYear := map[int]core.YearRecord{}
	for _, rec := range records {
		byYear[rec.Year] = rec
	}

	if got := byYear[2027].FilingStatus; got != core.MarriedJoint {
		t.Errorf("2027 status = %q, want MFJ", got)
	}
	if got := byYear[2028].FilingStatus; got != core.QualifyingWidow {
		t.Errorf("2028 status = %q, want QW", got)
	}
	if got := byYear[2029].FilingStatus; got != core.QualifyingWidow {
		t.Errorf("2029 status = %q, want QW", got)
	}
	if got := byYear[2030].FilingStatus; got != core.Single {
		t.Errorf("2030 status = %q, want Single", got)
	}
}

// Medicare premiums follow who is alive and past the Medicare age, not
// the filing status: a surviving spouse keeps paying one premium after
// the transition to Single.
func TestProjectSurvivorMedicare(t *testing.T) {
	e := testEngine(t)

	in := Inputs{
		Client: core.Client{
			Birthdate:    core.NewDate(1955, 5, 1),
			TaxStatus:    core.MarriedJoint,
			State:        "TX",
			MortalityAge: 72, // dies after 2027
			Spouse:       &core.Spouse{Birthdate: core.NewDate(1958, 5, 1), MortalityAge: 85},
		},
		Scenario: core.Scenario{
			StartYear:              2025,
			ApplyStandardDeduction: true,
		},
		Assets: []core.Asset{{
			Name:          "Spouse SS",
			Type:          core.SocialSecurity,
			Owner:         core.OwnerSpouse,
			MonthlyAmount: dec("1500"),
			AgeToBegin:    67,
		}},
	}

	records, err := e.Project(in)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	byYear := map[int]core.YearRecord{}
	for _, rec := range records {
		byYear[rec.Year] = rec
	}

	// Both 65+ and alive through 2027: 185 x 12 x 2.
	for year := 2025; year <= 2027; year++ {
		if !byYear[year].PartB.Equal(dec("4440")) {
			t.Errorf("year %d: Part B = %s, want 4440", year, byYear[year].PartB)
		}
	}
	// Surviving spouse alone, filing Single: 185 x 12.
	for year := 2028; year <= 2030; year++ {
		if !byYear[year].PartB.Equal(dec("2220")) {
			t.Errorf("year %d: Part B = %s, want 2220", year, byYear[year].PartB)
		}
	}
}
