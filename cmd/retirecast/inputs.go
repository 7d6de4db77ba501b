package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"retirecast/internal/core"
	"retirecast/internal/engine"
	"retirecast/internal/taxdata"
)

// inputFlags are the shared input-file flags of project and submit.
type inputFlags struct {
	clientPath   string
	scenarioPath string
	assetsPath   string
	tablesDir    string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.clientPath, "client", "", "path to the client JSON file")
	flags.StringVar(&f.scenarioPath, "scenario", "", "path to the scenario JSON file")
	flags.StringVar(&f.assetsPath, "assets", "", "path to the assets JSON file")
	flags.StringVar(&f.tablesDir, "tables", "", "directory of tax table CSVs (default: embedded dataset)")
}

// loadInputs reads the three input files into a projection input set.
func (f *inputFlags) loadInputs() (engine.Inputs, error) {
	var in engine.Inputs

	if err := readJSON(f.clientPath, "client", &in.Client); err != nil {
		return in, err
	}
	if err := readJSON(f.scenarioPath, "scenario", &in.Scenario); err != nil {
		return in, err
	}
	if err := readJSON(f.assetsPath, "assets", &in.Assets); err != nil {
		return in, err
	}
	in.Schedule = in.Scenario.ConversionSchedule()

	return in, nil
}

// loadTables loads the tax dataset, embedded unless a directory override
// is given.
func (f *inputFlags) loadTables() (*taxdata.Tables, error) {
	if f.tablesDir != "" {
		return taxdata.LoadDir(f.tablesDir)
	}
	return taxdata.Embedded()
}

func readJSON(path, what string, dst any) error {
	if path == "" {
		return fmt.Errorf("%w: --%s file is required", core.ErrValidation, what)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s file: %v", core.ErrValidation, what, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: parse %s file %s: %v", core.ErrValidation, what, path, err)
	}
	return nil
}

// parseSchedule parses a "start,duration,amount" conversion flag.
func parseSchedule(s string) (core.Schedule, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return core.Schedule{}, fmt.Errorf("%w: conversion schedule must be start,duration,amount", core.ErrValidation)
	}

	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return core.Schedule{}, fmt.Errorf("%w: conversion start year %q", core.ErrValidation, parts[0])
	}
	duration, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return core.Schedule{}, fmt.Errorf("%w: conversion duration %q", core.ErrValidation, parts[1])
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
	if err != nil {
		return core.Schedule{}, fmt.Errorf("%w: conversion amount %q", core.ErrValidation, parts[2])
	}

	return core.Schedule{StartYear: start, Duration: duration, AnnualAmount: amount}, nil
}

// writeResult emits the result JSON to stdout or the given file.
func writeResult(outPath string, result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write result file: %w", err)
	}
	return nil
}
