package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"retirecast/internal/amqp"
	"retirecast/internal/conversion"
	"retirecast/internal/core"
	"retirecast/internal/engine"
	"retirecast/internal/storage"
)

// JobWorker executes projection jobs pulled from the queue. The queue
// message carries only the job ID; the inputs come from the job store and
// the result goes back into it.
type JobWorker struct {
	storage   *storage.SQLiteRepository
	engine    *engine.Engine
	optimizer *conversion.Optimizer
	timeout   time.Duration
}

func NewJobWorker(storage *storage.SQLiteRepository, eng *engine.Engine, optimizer *conversion.Optimizer, timeout time.Duration) *JobWorker {
	return &JobWorker{
		storage:   storage,
		engine:    eng,
		optimizer: optimizer,
		timeout:   timeout,
	}
}

// projectResult wraps the projection records for storage.
type projectResult struct {
	Records []core.YearRecord `json:"records"`
}

// optimizeResult stores the winning candidate and its overlay without the
// full evaluated grid.
type optimizeResult struct {
	Candidate conversion.Candidate `json:"candidate"`
	Result    *conversion.Result   `json:"result"`
	Evaluated int                  `json:"evaluated"`
}

// HandleJobMessage processes a single job message from AMQP. Job-level
// failures (bad inputs, numeric overflow) are recorded on the job and
// consume the message; only storage errors propagate to the consumer.
func (w *JobWorker) HandleJobMessage(ctx context.Context, msg *amqp.JobMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	slog.InfoContext(ctx, "Processing job",
		"job_id", msg.JobID,
		"kind", msg.Kind)

	job, err := w.storage.GetJob(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("get job from storage: %w", err)
	}
	if job.Status != storage.StatusPending {
		slog.WarnContext(ctx, "Skipping job not in pending status",
			"job_id", job.ID,
			"status", job.Status)
		return nil
	}

	return w.runJob(ctx, job)
}

// RecoverPendingJobs processes jobs stuck in pending status at worker
// startup. This covers queue messages lost while the worker was down.
func (w *JobWorker) RecoverPendingJobs(ctx context.Context, limit int) error {
	pending, err := w.storage.ListPendingJobs(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending jobs found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending jobs on startup, processing...",
		"count", len(pending))

	for i := range pending {
		jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.runJob(jobCtx, &pending[i])
		cancel()
		if err != nil {
			slog.ErrorContext(ctx, "Failed to recover job",
				"job_id", pending[i].ID,
				"error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

func (w *JobWorker) runJob(ctx context.Context, job *storage.Job) error {
	if err := w.storage.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	var in engine.Inputs
	if err := json.Unmarshal(job.Payload, &in); err != nil {
		return w.fail(ctx, job.ID, fmt.Errorf("decode job payload: %w", err))
	}

	result, err := w.execute(ctx, job.Kind, in)
	if err != nil {
		return w.fail(ctx, job.ID, err)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return w.fail(ctx, job.ID, fmt.Errorf("encode job result: %w", err))
	}

	if err := w.storage.MarkDone(ctx, job.ID, body); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}

	return nil
}

func (w *JobWorker) execute(ctx context.Context, kind string, in engine.Inputs) (any, error) {
	switch kind {
	case amqp.KindProject:
		records, err := w.engine.Project(in)
		if err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
		return projectResult{Records: records}, nil

	case amqp.KindConvert:
		res, err := conversion.Run(w.engine, in, in.Schedule)
		if err != nil {
			return nil, fmt.Errorf("conversion overlay: %w", err)
		}
		return res, nil

	case amqp.KindOptimize:
		best, err := w.optimizer.Optimize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("optimize: %w", err)
		}
		return optimizeResult{
			Candidate: best.Candidate,
			Result:    best.Result,
			Evaluated: len(best.Evaluated),
		}, nil

	default:
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
}

// fail records the job failure. The message is consumed either way, so a
// storage error here is the only thing worth propagating.
func (w *JobWorker) fail(ctx context.Context, id int64, jobErr error) error {
	if err := w.storage.MarkFailed(ctx, id, jobErr.Error()); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}
