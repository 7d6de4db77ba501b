package taxdata

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

func mustLoad(t *testing.T) *Tables {
	t.Helper()
	tables, err := Embedded()
	if err != nil {
		t.Fatalf("load embedded tables: %v", err)
	}
	return tables
}

func TestFederalBrackets(t *testing.T) {
	tables := mustLoad(t)

	brackets, err := tables.FederalBrackets(2025, core.Single)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(brackets) != 7 {
		t.Fatalf("got %d brackets, want 7", len(brackets))
	}
	if !brackets[0].Rate.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("first rate = %s, want 0.10", brackets[0].Rate)
	}
	if !brackets[0].Max.Equal(decimal.NewFromInt(11925)) {
		t.Errorf("first cap = %s, want 11925", brackets[0].Max)
	}
	if !brackets[6].Rate.Equal(decimal.NewFromFloat(0.37)) {
		t.Errorf("top rate = %s, want 0.37", brackets[6].Rate)
	}

	mfj, err := tables.FederalBrackets(2025, core.MarriedJoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mfj[0].Max.Equal(decimal.NewFromInt(23850)) {
		t.Errorf("MFJ first cap = %s, want 23850", mfj[0].Max)
	}
}

func TestYearFallback(t *testing.T) {
	tables := mustLoad(t)

	// 2030 has no table of its own; the most recent prior year serves.
	if _, err := tables.FederalBrackets(2030, core.Single); err != nil {
		t.Fatalf("fallback year failed: %v", err)
	}

	_, err := tables.FederalBrackets(1990, core.Single)
	if !errors.Is(err, core.ErrConfig) {
		t.Fatalf("got %v, want ErrConfig for pre-data year", err)
	}
}

func TestStandardDeduction(t *testing.T) {
	tables := mustLoad(t)

	tests := []struct {
		status core.FilingStatus
		want   int64
	}{
		{core.Single, 15000},
		{core.MarriedJoint, 30000},
		{core.MarriedSeparate, 15000},
		{core.HeadOfHousehold, 22500},
		{core.QualifyingWidow, 30000},
	}
	for _, tt := range tests {
		d, err := tables.StandardDeduction(2025, tt.status)
		if err != nil {
			t.Fatalf("%s: %v", tt.status, err)
		}
		if !d.Base.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("%s deduction = %s, want %d", tt.status, d.Base, tt.want)
		}
	}
}

func TestSocialSecurityThresholds(t *testing.T) {
	tables := mustLoad(t)

	single, err := tables.SocialSecurityThresholds(2025, core.Single)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !single.Base.Equal(decimal.NewFromInt(25000)) || !single.Additional.Equal(decimal.NewFromInt(34000)) {
		t.Errorf("Single thresholds = %s/%s, want 25000/34000", single.Base, single.Additional)
	}

	mfs, err := tables.SocialSecurityThresholds(2025, core.MarriedSeparate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mfs.Base.IsZero() || !mfs.Additional.IsZero() {
		t.Errorf("MFS thresholds = %s/%s, want 0/0", mfs.Base, mfs.Additional)
	}
}

func TestIRMAATiers(t *testing.T) {
	tables := mustLoad(t)

	tiers, err := tables.IRMAATiers(2025, core.Single)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiers) != 5 {
		t.Fatalf("got %d tiers, want 5", len(tiers))
	}
	if !tiers[0].Floor.Equal(decimal.NewFromInt(106000)) {
		t.Errorf("first floor = %s, want 106000", tiers[0].Floor)
	}
	if !tiers[0].PartB.Equal(decimal.NewFromFloat(71.90)) {
		t.Errorf("first Part B surcharge = %s, want 71.90", tiers[0].PartB)
	}
	for i := 1; i < len(tiers); i++ {
		if !tiers[i].Floor.GreaterThan(tiers[i-1].Floor) {
			t.Fatalf("tiers not sorted at %d", i)
		}
	}

	// Head of Household shares the Single thresholds.
	hoh, err := tables.IRMAATiers(2025, core.HeadOfHousehold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hoh[0].Floor.Equal(tiers[0].Floor) {
		t.Errorf("HoH floor = %s, want %s", hoh[0].Floor, tiers[0].Floor)
	}
}

func TestMedicareBase(t *testing.T) {
	tables := mustLoad(t)

	rates, err := tables.MedicareBase(2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rates.PartB.Equal(decimal.NewFromInt(185)) {
		t.Errorf("Part B = %s, want 185", rates.PartB)
	}
	if !rates.PartD.Equal(decimal.NewFromInt(71)) {
		t.Errorf("Part D = %s, want 71", rates.PartD)
	}
}

func TestState(t *testing.T) {
	tables := mustLoad(t)

	tx, err := tables.State(2025, "TX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.Rate.IsZero() {
		t.Errorf("TX rate = %s, want 0", tx.Rate)
	}

	il, err := tables.State(2025, "il")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !il.RetirementExempt {
		t.Error("IL should exempt retirement income")
	}
	if il.Rate.IsZero() {
		t.Error("IL rate should be non-zero")
	}

	unknown, err := tables.State(2025, "ZZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !unknown.Rate.IsZero() || !unknown.RetirementExempt {
		t.Errorf("unknown state should be zero-tax, got %+v", unknown)
	}
}

func TestRMDDivisor(t *testing.T) {
	tables := mustLoad(t)

	tests := []struct {
		age  int
		want string
		ok   bool
	}{
		{73, "26.5", true},
		{80, "20.2", true},
		{115, "1.9", true},
		{72, "27.4", true},
		{116, "1.8", true},
		{120, "2.0", true},
		// Ages past the table keep the final divisor.
		{121, "2.0", true},
		{130, "2.0", true},
		// Ages before RMDs start have no divisor.
		{70, "", false},
	}
	for _, tt := range tests {
		d, ok := tables.RMDDivisor(tt.age)
		if ok != tt.ok {
			t.Errorf("RMDDivisor(%d) ok = %v, want %v", tt.age, ok, tt.ok)
			continue
		}
		if ok && !d.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("RMDDivisor(%d) = %s, want %s", tt.age, d, tt.want)
		}
	}
}
