// Package conversion layers Roth conversion analysis on top of the
// projection engine: the overlay runs baseline and conversion projections
// and compares them, and the optimizer searches schedule candidates for
// the best-scoring plan.
package conversion

import (
	"fmt"

	"github.com/shopspring/decimal"

	"retirecast/internal/core"
	"retirecast/internal/engine"
)

// Metrics are the lifetime aggregates of one projected sequence.
type Metrics struct {
	LifetimeFederalTax  decimal.Decimal `json:"lifetime_federal_tax"`
	LifetimeMedicare    decimal.Decimal `json:"lifetime_medicare"`
	LifetimeRMDs        decimal.Decimal `json:"lifetime_rmds"`
	TerminalRothBalance decimal.Decimal `json:"terminal_roth_balance"`
	TerminalTotalAssets decimal.Decimal `json:"terminal_total_assets"`
	CumulativeNetIncome decimal.Decimal `json:"cumulative_net_income"`
}

// Delta is a conversion-minus-baseline difference with the percent
// change relative to baseline.
type Delta struct {
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Comparison summarises the two runs side by side.
type Comparison struct {
	Baseline    Metrics          `json:"baseline"`
	Conversion  Metrics          `json:"conversion"`
	Differences map[string]Delta `json:"differences"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// Result bundles the baseline and conversion sequences with the executed
// schedule. Schedule carries the amount actually applied after any
// eligibility clamp.
type Result struct {
	Baseline   []core.YearRecord `json:"baseline"`
	Conversion []core.YearRecord `json:"conversion"`
	Comparison Comparison        `json:"comparison"`
	Schedule   core.Schedule     `json:"schedule"`
}

// Run projects the baseline and the conversion variant on independent
// working copies and compares them. A schedule exceeding total
// eligibility is clamped to the cap and flagged in the comparison
// warnings rather than failing the run.
func Run(e *engine.Engine, in engine.Inputs, schedule core.Schedule) (*Result, error) {
	baselineIn := in
	baselineIn.Schedule = core.Schedule{}
	baseline, err := e.Project(baselineIn)
	if err != nil {
		return nil, fmt.Errorf("baseline projection: %w", err)
	}

	var warnings []string
	schedule, warning := clampToEligibility(schedule, in.Assets)
	if warning != "" {
		warnings = append(warnings, warning)
	}

	conversionIn := in
	conversionIn.Schedule = schedule
	converted, err := e.Project(conversionIn)
	if err != nil {
		return nil, fmt.Errorf("conversion projection: %w", err)
	}

	rothLabels := rothLabelSet(in.Assets)
	baseMetrics := summarize(baseline, rothLabels)
	convMetrics := summarize(converted, rothLabels)

	return &Result{
		Baseline:   baseline,
		Conversion: converted,
		Schedule:   schedule,
		Comparison: Comparison{
			Baseline:    baseMetrics,
			Conversion:  convMetrics,
			Differences: diff(baseMetrics, convMetrics),
			Warnings:    warnings,
		},
	}, nil
}

// TotalEligible sums the conversion capacity of primary-owned
// tax-deferred assets.
func TotalEligible(assets []core.Asset) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assets {
		if a.IsTaxDeferred() && a.OwnerOrPrimary() == core.OwnerPrimary {
			total = total.Add(a.ConversionCap())
		}
	}
	return total
}

// clampToEligibility reduces the annual amount so the scheduled total
// never exceeds what the assets can supply.
func clampToEligibility(schedule core.Schedule, assets []core.Asset) (core.Schedule, string) {
	if schedule.Zero() {
		return schedule, ""
	}
	eligible := TotalEligible(assets)
	scheduled := schedule.AnnualAmount.Mul(decimal.NewFromInt(int64(schedule.Duration)))
	if scheduled.LessThanOrEqual(eligible) {
		return schedule, ""
	}

	clamped := schedule
	clamped.AnnualAmount = eligible.Div(decimal.NewFromInt(int64(schedule.Duration)))
	return clamped, fmt.Sprintf(
		"scheduled conversions of %s exceed eligible balance of %s; annual amount reduced to %s",
		scheduled.StringFixed(2), eligible.StringFixed(2), clamped.AnnualAmount.StringFixed(2))
}

// rothLabelSet collects the record labels whose balances are tax-free,
// including the synthetic destination a conversion run may create.
func rothLabelSet(assets []core.Asset) map[string]bool {
	labels := map[string]bool{"roth_conversion": true}
	for _, a := range assets {
		if a.IsTaxFree() {
			labels[a.Label()] = true
		}
	}
	return labels
}

func summarize(records []core.YearRecord, rothLabels map[string]bool) Metrics {
	m := Metrics{
		LifetimeFederalTax:  decimal.Zero,
		LifetimeMedicare:    decimal.Zero,
		LifetimeRMDs:        decimal.Zero,
		TerminalRothBalance: decimal.Zero,
		TerminalTotalAssets: decimal.Zero,
		CumulativeNetIncome: decimal.Zero,
	}
	for _, rec := range records {
		m.LifetimeFederalTax = m.LifetimeFederalTax.Add(rec.FederalTax)
		m.LifetimeMedicare = m.LifetimeMedicare.Add(rec.TotalMedicare)
		m.LifetimeRMDs = m.LifetimeRMDs.Add(rec.RMDAmount)
		m.CumulativeNetIncome = m.CumulativeNetIncome.Add(rec.RemainingIncome)
	}
	if len(records) > 0 {
		terminal := records[len(records)-1]
		m.TerminalTotalAssets = terminal.TotalBalance()
		for label, balance := range terminal.Balances {
			if rothLabels[label] {
				m.TerminalRothBalance = m.TerminalRothBalance.Add(balance)
			}
		}
	}
	return m
}

func diff(baseline, conversion Metrics) map[string]Delta {
	return map[string]Delta{
		"lifetime_federal_tax":  delta(baseline.LifetimeFederalTax, conversion.LifetimeFederalTax),
		"lifetime_medicare":     delta(baseline.LifetimeMedicare, conversion.LifetimeMedicare),
		"lifetime_rmds":         delta(baseline.LifetimeRMDs, conversion.LifetimeRMDs),
		"terminal_roth_balance": delta(baseline.TerminalRothBalance, conversion.TerminalRothBalance),
		"terminal_total_assets": delta(baseline.TerminalTotalAssets, conversion.TerminalTotalAssets),
		"cumulative_net_income": delta(baseline.CumulativeNetIncome, conversion.CumulativeNetIncome),
	}
}

func delta(base, conv decimal.Decimal) Delta {
	d := Delta{Amount: conv.Sub(base)}
	if !base.IsZero() {
		d.Percent = d.Amount.Div(base.Abs()).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return d
}
