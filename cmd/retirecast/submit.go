package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"retirecast/internal/amqp"
	"retirecast/internal/config"
	"retirecast/internal/core"
	"retirecast/internal/engine"
	"retirecast/internal/storage"
)

func newSubmitCmd() *cobra.Command {
	var (
		inputs      inputFlags
		kind        string
		convertFlag string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a projection job and queue it for the worker",
		Long: `submit validates the inputs, stores them as a job in the SQLite job
store, and publishes the job ID to the work queue. The worker picks it up,
runs it, and writes the result back onto the job row.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch kind {
			case amqp.KindProject, amqp.KindConvert, amqp.KindOptimize:
			default:
				return fmt.Errorf("%w: unknown job kind %q", core.ErrValidation, kind)
			}

			in, err := inputs.loadInputs()
			if err != nil {
				return err
			}
			if kind == amqp.KindConvert && convertFlag != "" {
				in.Schedule, err = parseSchedule(convertFlag)
				if err != nil {
					return err
				}
			}
			if err := engine.Validate(in); err != nil {
				return err
			}

			payload, err := json.Marshal(in)
			if err != nil {
				return fmt.Errorf("encode job payload: %w", err)
			}

			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("%w: %v", core.ErrConfig, err)
			}

			repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrConfig, err)
			}
			defer repo.Close()

			id, err := repo.CreateJob(cmd.Context(), kind, payload)
			if err != nil {
				return err
			}

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("%w: %v", core.ErrConfig, err)
			}
			defer client.Close()

			if err := client.PublishJob(cmd.Context(), id, kind); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %d queued (%s)\n", id, kind)
			return nil
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", amqp.KindProject, "job kind: project, convert, or optimize")
	cmd.Flags().StringVar(&convertFlag, "convert", "", "Roth conversion schedule as start,duration,amount (kind=convert)")

	return cmd
}
