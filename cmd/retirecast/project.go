package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"retirecast/internal/conversion"
	"retirecast/internal/core"
	"retirecast/internal/engine"
)

func newProjectCmd() *cobra.Command {
	var (
		inputs      inputFlags
		convertFlag string
		optimize    bool
		parallelism int
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Run a projection and print the year-by-year records",
		Long: `project runs the full year loop for the given client, scenario, and
assets and prints one record per year as JSON.

With --convert start,duration,amount it additionally runs the schedule as
a Roth conversion overlay and prints baseline, conversion, and the metric
deltas. With --optimize it grid-searches conversion schedules and prints
the best-scoring one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := inputs.loadTables()
			if err != nil {
				return err
			}
			in, err := inputs.loadInputs()
			if err != nil {
				return err
			}

			eng := engine.New(tables, nil)

			switch {
			case optimize && convertFlag != "":
				return fmt.Errorf("%w: --convert and --optimize are mutually exclusive", core.ErrValidation)

			case optimize:
				opt := conversion.NewOptimizer(eng, conversion.DefaultWeights(), parallelism, nil)
				best, err := opt.Optimize(cmd.Context(), in)
				if err != nil {
					return err
				}
				return writeResult(outPath, best)

			case convertFlag != "":
				schedule, err := parseSchedule(convertFlag)
				if err != nil {
					return err
				}
				result, err := conversion.Run(eng, in, schedule)
				if err != nil {
					return err
				}
				return writeResult(outPath, result)

			default:
				records, err := eng.Project(in)
				if err != nil {
					return err
				}
				return writeResult(outPath, struct {
					Records []core.YearRecord `json:"records"`
				}{Records: records})
			}
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&convertFlag, "convert", "", "Roth conversion overlay as start,duration,amount")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "grid-search conversion schedules for the best score")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "optimizer worker pool size (0 = all CPUs)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the result to this file instead of stdout")

	return cmd
}
