// Package taxdata serves the read-only tax tables the projection engine
// consumes: federal brackets, standard deductions, Social Security
// provisional-income thresholds, IRMAA tiers, Medicare base premiums,
// state tax rates, and the RMD Uniform Lifetime Table. Tables ship
// embedded as per-year CSV files and can be overridden from a directory
// on disk for annual updates without a rebuild.
package taxdata

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
)

//go:embed data/*.csv
var dataFS embed.FS

// Bracket is one marginal federal tax band. Max of the top band is the
// 999999999 sentinel meaning unbounded.
type Bracket struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	Rate decimal.Decimal
}

// Deduction is the standard deduction plus the extra amount per filer
// aged 65 or older.
type Deduction struct {
	Base             decimal.Decimal
	AdditionalOver65 decimal.Decimal
}

// SSThresholds holds the provisional-income thresholds that gate Social
// Security taxation. Both are zero for Married Filing Separately.
type SSThresholds struct {
	Base       decimal.Decimal
	Additional decimal.Decimal
}

// IRMAATier is one IRMAA surcharge band: the monthly Part B and Part D
// surcharges owed when MAGI exceeds Floor.
type IRMAATier struct {
	Floor decimal.Decimal
	PartB decimal.Decimal
	PartD decimal.Decimal
}

// MedicareRates are the monthly base premiums per covered person.
type MedicareRates struct {
	PartB decimal.Decimal
	PartD decimal.Decimal
}

// StateInfo is one state's flat-tax treatment of retirement income.
type StateInfo struct {
	Name             string
	Code             string
	Rate             decimal.Decimal
	RetirementExempt bool
	SSTaxed          bool
}

type tableKey struct {
	year   int
	status string
}

// Tables is the loaded, immutable tax dataset. Lookups resolve a missing
// year to the most recent prior year on file and fail with a config
// error when no prior year exists.
type Tables struct {
	federal    map[tableKey][]Bracket
	deductions map[tableKey]Deduction
	ss         map[tableKey]SSThresholds
	irmaa      map[tableKey][]IRMAATier
	medicare   map[int]MedicareRates
	states     map[tableKey]StateInfo
	rmd        map[int]decimal.Decimal
	rmdMaxAge  int

	years map[string][]int
}

// Embedded loads the tables compiled into the binary.
func Embedded() (*Tables, error) {
	sub, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded tax data: %w", err)
	}
	return Load(sub)
}

// LoadDir loads tables from CSV files in a directory, for deployments
// that update tax data without rebuilding.
func LoadDir(path string) (*Tables, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: tax data directory: %v", core.ErrConfig, err)
	}
	return Load(os.DirFS(path))
}

// Load parses every recognized CSV in fsys.
func Load(fsys fs.FS) (*Tables, error) {
	t := &Tables{
		federal:    map[tableKey][]Bracket{},
		deductions: map[tableKey]Deduction{},
		ss:         map[tableKey]SSThresholds{},
		irmaa:      map[tableKey][]IRMAATier{},
		medicare:   map[int]MedicareRates{},
		states:     map[tableKey]StateInfo{},
		rmd:        map[int]decimal.Decimal{},
		years:      map[string][]int{},
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read tax data: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		if err := t.loadFile(fsys, e.Name()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrConfig, e.Name(), err)
		}
	}
	for _, ys := range t.years {
		sort.Ints(ys)
	}
	if len(t.rmd) == 0 {
		return nil, fmt.Errorf("%w: RMD table missing", core.ErrConfig)
	}
	return t, nil
}

func (t *Tables) loadFile(fsys fs.FS, name string) error {
	kind, year := splitName(name)
	rows, err := readCSV(fsys, name)
	if err != nil {
		return err
	}
	switch kind {
	case "federal_tax_brackets":
		return t.loadFederal(year, rows)
	case "standard_deductions":
		return t.loadDeductions(year, rows)
	case "social_security_thresholds":
		return t.loadSS(year, rows)
	case "irmaa_thresholds":
		return t.loadIRMAA(year, rows)
	case "medicare_base_rates":
		return t.loadMedicare(year, rows)
	case "state_tax_rates":
		return t.loadStates(year, rows)
	case "rmd_uniform_lifetime":
		return t.loadRMD(rows)
	}
	return nil
}

// splitName separates "federal_tax_brackets_2025" into the dataset kind
// and the trailing year. Files without a year suffix return year 0.
func splitName(name string) (string, int) {
	stem := strings.TrimSuffix(name, ".csv")
	if i := strings.LastIndex(stem, "_"); i >= 0 {
		if year, err := strconv.Atoi(stem[i+1:]); err == nil && year >= 1000 {
			return stem[:i], year
		}
	}
	return stem, 0
}

func readCSV(fsys fs.FS, name string) ([]map[string]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no data rows")
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (t *Tables) loadFederal(year int, rows []map[string]string) error {
	for _, row := range rows {
		key := tableKey{year, normalizeStatus(row["filing_status"])}
		b := Bracket{}
		var err error
		if b.Min, err = decimal.NewFromString(row["min_income"]); err != nil {
			return err
		}
		if b.Max, err = decimal.NewFromString(row["max_income"]); err != nil {
			return err
		}
		if b.Rate, err = decimal.NewFromString(row["tax_rate"]); err != nil {
			return err
		}
		t.federal[key] = append(t.federal[key], b)
	}
	for key := range t.federal {
		brackets := t.federal[key]
		sort.Slice(brackets, func(i, j int) bool { return brackets[i].Min.LessThan(brackets[j].Min) })
	}
	t.addYear("federal", year)
	return nil
}

func (t *Tables) loadDeductions(year int, rows []map[string]string) error {
	for _, row := range rows {
		key := tableKey{year, normalizeStatus(row["filing_status"])}
		d := Deduction{}
		var err error
		if d.Base, err = decimal.NewFromString(row["deduction_amount"]); err != nil {
			return err
		}
		if extra := row["additional_over_65"]; extra != "" {
			if d.AdditionalOver65, err = decimal.NewFromString(extra); err != nil {
				return err
			}
		}
		t.deductions[key] = d
	}
	t.addYear("deductions", year)
	return nil
}

func (t *Tables) loadSS(year int, rows []map[string]string) error {
	for _, row := range rows {
		key := tableKey{year, normalizeStatus(row["filing_status"])}
		s := SSThresholds{}
		var err error
		if s.Base, err = decimal.NewFromString(row["base_threshold"]); err != nil {
			return err
		}
		if s.Additional, err = decimal.NewFromString(row["additional_threshold"]); err != nil {
			return err
		}
		t.ss[key] = s
	}
	t.addYear("ss", year)
	return nil
}

func (t *Tables) loadIRMAA(year int, rows []map[string]string) error {
	for _, row := range rows {
		key := tableKey{year, normalizeStatus(row["filing_status"])}
		tier := IRMAATier{}
		var err error
		if tier.Floor, err = decimal.NewFromString(row["magi_threshold"]); err != nil {
			return err
		}
		if tier.PartB, err = decimal.NewFromString(row["part_b_surcharge"]); err != nil {
			return err
		}
		if tier.PartD, err = decimal.NewFromString(row["part_d_surcharge"]); err != nil {
			return err
		}
		t.irmaa[key] = append(t.irmaa[key], tier)
	}
	for key := range t.irmaa {
		tiers := t.irmaa[key]
		sort.Slice(tiers, func(i, j int) bool { return tiers[i].Floor.LessThan(tiers[j].Floor) })
	}
	t.addYear("irmaa", year)
	return nil
}

func (t *Tables) loadMedicare(year int, rows []map[string]string) error {
	rates := t.medicare[year]
	for _, row := range rows {
		rate, err := decimal.NewFromString(row["monthly_rate"])
		if err != nil {
			return err
		}
		switch strings.ToLower(strings.ReplaceAll(row["coverage_type"], " ", "_")) {
		case "part_b":
			rates.PartB = rate
		case "part_d":
			rates.PartD = rate
		}
	}
	t.medicare[year] = rates
	t.addYear("medicare", year)
	return nil
}

func (t *Tables) loadStates(year int, rows []map[string]string) error {
	for _, row := range rows {
		rate, err := decimal.NewFromString(row["income_tax_rate"])
		if err != nil {
			return err
		}
		info := StateInfo{
			Name:             row["state"],
			Code:             strings.ToUpper(row["state_code"]),
			Rate:             rate,
			RetirementExempt: strings.EqualFold(row["retirement_income_exempt"], "true"),
			SSTaxed:          strings.EqualFold(row["ss_taxed"], "true"),
		}
		t.states[tableKey{year, info.Code}] = info
	}
	t.addYear("states", year)
	return nil
}

func (t *Tables) loadRMD(rows []map[string]string) error {
	for _, row := range rows {
		age, err := strconv.Atoi(row["age"])
		if err != nil {
			return err
		}
		divisor, err := decimal.NewFromString(row["divisor"])
		if err != nil {
			return err
		}
		t.rmd[age] = divisor
		if age > t.rmdMaxAge {
			t.rmdMaxAge = age
		}
	}
	return nil
}

func (t *Tables) addYear(dataset string, year int) {
	for _, y := range t.years[dataset] {
		if y == year {
			return
		}
	}
	t.years[dataset] = append(t.years[dataset], year)
}

// resolveYear returns the most recent year on file not after the
// requested year.
func (t *Tables) resolveYear(dataset string, year int) (int, error) {
	best := -1
	for _, y := range t.years[dataset] {
		if y <= year && y > best {
			best = y
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("%w: no %s table for year %d or earlier", core.ErrConfig, dataset, year)
	}
	return best, nil
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FederalBrackets returns the ordered marginal bands for a year and
// filing status.
func (t *Tables) FederalBrackets(year int, status core.FilingStatus) ([]Bracket, error) {
	y, err := t.resolveYear("federal", year)
	if err != nil {
		return nil, err
	}
	brackets, ok := t.federal[tableKey{y, normalizeStatus(string(status))}]
	if !ok {
		return nil, fmt.Errorf("%w: no federal brackets for %q in %d", core.ErrConfig, status, y)
	}
	return brackets, nil
}

// StandardDeduction returns the deduction row for a year and status.
func (t *Tables) StandardDeduction(year int, status core.FilingStatus) (Deduction, error) {
	y, err := t.resolveYear("deductions", year)
	if err != nil {
		return Deduction{}, err
	}
	d, ok := t.deductions[tableKey{y, normalizeStatus(string(status))}]
	if !ok {
		return Deduction{}, fmt.Errorf("%w: no standard deduction for %q in %d", core.ErrConfig, status, y)
	}
	return d, nil
}

// SocialSecurityThresholds returns the provisional-income thresholds for
// a year and status.
func (t *Tables) SocialSecurityThresholds(year int, status core.FilingStatus) (SSThresholds, error) {
	y, err := t.resolveYear("ss", year)
	if err != nil {
		return SSThresholds{}, err
	}
	s, ok := t.ss[tableKey{y, normalizeStatus(string(status))}]
	if !ok {
		return SSThresholds{}, fmt.Errorf("%w: no social security thresholds for %q in %d", core.ErrConfig, status, y)
	}
	return s, nil
}

// IRMAATiers returns the surcharge bands, ordered by ascending MAGI
// floor, for a year and status.
func (t *Tables) IRMAATiers(year int, status core.FilingStatus) ([]IRMAATier, error) {
	y, err := t.resolveYear("irmaa", year)
	if err != nil {
		return nil, err
	}
	tiers, ok := t.irmaa[tableKey{y, normalizeStatus(string(status))}]
	if !ok {
		return nil, fmt.Errorf("%w: no IRMAA tiers for %q in %d", core.ErrConfig, status, y)
	}
	return tiers, nil
}

// MedicareBase returns the monthly base premiums for a year.
func (t *Tables) MedicareBase(year int) (MedicareRates, error) {
	y, err := t.resolveYear("medicare", year)
	if err != nil {
		return MedicareRates{}, err
	}
	return t.medicare[y], nil
}

// State returns the tax treatment for a state code. Unknown states get a
// zero-tax table.
func (t *Tables) State(year int, code string) (StateInfo, error) {
	y, err := t.resolveYear("states", year)
	if err != nil {
		return StateInfo{}, err
	}
	info, ok := t.states[tableKey{y, strings.ToUpper(code)}]
	if !ok {
		return StateInfo{Code: strings.ToUpper(code), RetirementExempt: true}, nil
	}
	return info, nil
}

// RMDDivisor returns the Uniform Lifetime divisor for an age. Ages past
// the end of the table keep the final divisor; ages below the table
// return false.
func (t *Tables) RMDDivisor(age int) (decimal.Decimal, bool) {
	if d, ok := t.rmd[age]; ok {
		return d, true
	}
	if age > t.rmdMaxAge {
		d, ok := t.rmd[t.rmdMaxAge]
		return d, ok
	}
	return decimal.Decimal{}, false
}
