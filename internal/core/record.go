package core

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// YearRecord is one projected calendar year. Monetary fields are rounded
// to cents when the record is assembled; internal engine state keeps full
// precision. Gross and Balances carry per-asset detail keyed by asset
// label and flatten into gross_<label> / balance_<label> keys on marshal.
type YearRecord struct {
	Year      int `json:"year"`
	Age       int `json:"primary_age"`
	SpouseAge int `json:"spouse_age,omitempty"`

	GrossIncome     decimal.Decimal `json:"gross_income"`
	SSPrimaryGross  decimal.Decimal `json:"ss_income_primary_gross"`
	SSSpouseGross   decimal.Decimal `json:"ss_income_spouse_gross"`
	SSITaxed        decimal.Decimal `json:"ssi_taxed"`
	AGI             decimal.Decimal `json:"agi"`
	MAGI            decimal.Decimal `json:"magi"`
	TaxableIncome   decimal.Decimal `json:"taxable_income"`
	FederalTax      decimal.Decimal `json:"federal_tax"`
	StateTax        decimal.Decimal `json:"state_tax"`
	TaxBracket      string          `json:"tax_bracket"`
	RMDAmount       decimal.Decimal `json:"rmd_amount"`
	RothConversion  decimal.Decimal `json:"roth_conversion"`
	PartB           decimal.Decimal `json:"part_b"`
	PartD           decimal.Decimal `json:"part_d"`
	IRMAASurcharge  decimal.Decimal `json:"irmaa_surcharge"`
	IRMAABracket    int             `json:"irmaa_bracket_number"`
	TotalMedicare   decimal.Decimal `json:"total_medicare"`
	RemainingIncome decimal.Decimal `json:"remaining_income"`

	FilingStatus FilingStatus `json:"filing_status"`

	Gross    map[string]decimal.Decimal `json:"-"`
	Balances map[string]decimal.Decimal `json:"-"`
}

// TotalBalance sums the end-of-year balances across all assets.
func (r YearRecord) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Balances {
		total = total.Add(b)
	}
	return total
}

func (r YearRecord) MarshalJSON() ([]byte, error) {
	type plain YearRecord
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	for _, kv := range []struct {
		prefix string
		m      map[string]decimal.Decimal
	}{
		{"gross_", r.Gross},
		{"balance_", r.Balances},
	} {
		for label, amount := range kv.m {
			raw, err := json.Marshal(amount)
			if err != nil {
				return nil, err
			}
			flat[kv.prefix+label] = raw
		}
	}
	return marshalOrdered(flat)
}

// marshalOrdered emits map keys sorted so record output is byte-stable
// across runs.
func marshalOrdered(m map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	return append(buf, '}'), nil
}
