// Package engine implements the year-by-year retirement projection: income
// realisation, balance evolution, RMD enforcement, Social Security
// taxation, federal and state tax, and Medicare premiums with IRMAA
// surcharges. A projection is a pure function of its inputs and the loaded
// tax tables; identical inputs produce identical output.
package engine

import (
	"fmt"

	"retirecast/internal/core"
	"retirecast/internal/log"
	"retirecast/internal/taxdata"
)

// RMDStartAge is the first age at which tax-deferred accounts owe a
// required minimum distribution under current law.
const RMDStartAge = 73

// defaultMortalityAge applies when neither scenario nor client set one.
const defaultMortalityAge = 90

// Inputs is everything a single projection run consumes. Schedule is the
// Roth conversion plan; a zero schedule projects the baseline.
type Inputs struct {
	Client   core.Client   `json:"client"`
	Scenario core.Scenario `json:"scenario"`
	Assets   []core.Asset  `json:"assets"`
	Schedule core.Schedule `json:"conversion_schedule"`
}

// Engine runs projections against a loaded tax dataset.
type Engine struct {
	tables *taxdata.Tables
	logger *log.Logger
}

func New(tables *taxdata.Tables, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	return &Engine{tables: tables, logger: logger.WithComponent(log.ComponentEngine)}
}

// Tables exposes the dataset the engine was built with.
func (e *Engine) Tables() *taxdata.Tables { return e.tables }

// Project validates the inputs and runs the full year loop, returning one
// record per projected year from the scenario start through the terminal
// mortality year.
func (e *Engine) Project(in Inputs) ([]core.YearRecord, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	p := newProjection(e, in)
	return p.run()
}

// Validate checks the full input graph before any year is projected.
func Validate(in Inputs) error {
	if err := in.Client.Validate(in.Scenario.StartYear); err != nil {
		return err
	}
	if err := in.Scenario.Validate(in.Client); err != nil {
		return err
	}
	if err := core.ValidateAssets(in.Assets, in.Client.Spouse != nil); err != nil {
		return err
	}
	if in.Schedule.Duration < 0 {
		return fmt.Errorf("%w: conversion duration is negative", core.ErrValidation)
	}
	if in.Schedule.AnnualAmount.IsNegative() {
		return fmt.Errorf("%w: conversion amount %w", core.ErrValidation, core.ErrNegativeAmount)
	}
	return nil
}
