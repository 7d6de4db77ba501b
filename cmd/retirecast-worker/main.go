package main

import (
	"context"
	"os"
	"time"

	"retirecast/internal/amqp"
	"retirecast/internal/cli"
	"retirecast/internal/conversion"
	"retirecast/internal/engine"
	"retirecast/internal/taxdata"
	"retirecast/internal/worker"
)

// recoverBatchSize bounds how many stuck pending jobs the worker replays
// at startup.
const recoverBatchSize = 100

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting retirecast-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// Load the tax dataset, embedded unless a directory override is given
	tables, err := loadTables(cfg.TaxDataDir)
	if err != nil {
		logger.Error("Failed to load tax tables", "error", err, "dir", cfg.TaxDataDir)
		os.Exit(1)
	}

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	eng := engine.New(tables, nil)
	optimizer := conversion.NewOptimizer(eng, conversion.DefaultWeights(), cfg.OptimizerParallelism, nil)
	jobWorker := worker.NewJobWorker(sqliteRepo, eng, optimizer, cfg.JobTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, replay jobs whose queue message was lost
	logger.Info("Performing startup recovery check...")
	if err := jobWorker.RecoverPendingJobs(ctx, recoverBatchSize); err != nil {
		logger.Error("Failed startup recovery check", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		handler := func(msg *amqp.JobMessage) error {
			return jobWorker.HandleJobMessage(ctx, msg)
		}
		if err := amqpClient.ConsumeJobs(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		cancel()
		amqpClient.Close()
	})
	cli.WaitForShutdown(shutdownCtx, done)
}

func loadTables(dir string) (*taxdata.Tables, error) {
	if dir != "" {
		return taxdata.LoadDir(dir)
	}
	return taxdata.Embedded()
}
