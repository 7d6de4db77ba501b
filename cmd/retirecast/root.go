package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "retirecast",
		Short: "Retirement scenario projection engine",
		Long: `retirecast projects retirement scenarios year by year: income streams,
account evolution, required minimum distributions, federal and state tax,
and Medicare premiums with IRMAA surcharges. It can overlay a Roth
conversion schedule against the baseline or grid-search for the best one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newProjectCmd())
	root.AddCommand(newSubmitCmd())

	return root
}
