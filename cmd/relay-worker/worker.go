// Package main provides the relay worker: it registers rule schedules,
// subscribes to the run queue and executes automation runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/otelhelper"
	"github.com/relaycrm/relay/pkg/persistence"
	"github.com/relaycrm/relay/pkg/queue"
	"github.com/relaycrm/relay/pkg/registry"
	"github.com/relaycrm/relay/pkg/scheduler"
	"github.com/relaycrm/relay/pkg/workflow"
)

type Worker struct {
	workerID    string
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
	registry    *registry.Registry
	concurrency int
	runTimeout  time.Duration
}

func NewWorker(
	workerID string,
	logger *slog.Logger,
	p persistence.Persistence,
	q queue.Queue,
	reg *registry.Registry,
	concurrency int,
	runTimeout time.Duration,
) *Worker {
	return &Worker{
		workerID:    workerID,
		logger:      logger,
		persistence: p,
		queue:       q,
		registry:    reg,
		concurrency: concurrency,
		runTimeout:  runTimeout,
	}
}

// Start registers cron schedules for enabled rules, subscribes the run
// handler and blocks until the process receives a shutdown signal.
func (w *Worker) Start(ctx context.Context) error {
	tracer, err := otelhelper.NewTracer(ctx, "relay-worker")
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	executor := workflow.NewExecutor(w.logger, w.registry, tracer)
	runner := workflow.NewRunner(w.logger, w.persistence, executor, tracer, w.runTimeout)

	err = w.queue.RegisterWorker(ctx, events.QueueAutomationRuns, queue.WorkerOptions{
		Concurrency: w.concurrency,
	}, w.handleJob(runner))
	if err != nil {
		return fmt.Errorf("failed to register run worker: %w", err)
	}

	// Schedules publish from this process, so they are registered after the
	// worker subscription is live.
	sched := scheduler.NewScheduler(w.logger, w.persistence, w.queue)

	err = sched.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	w.logger.InfoContext(ctx, "Relay worker started", "queue", events.QueueAutomationRuns)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		w.logger.InfoContext(ctx, "Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	return nil
}

// handleJob decodes a run job and executes it. Only infrastructure failures
// (undecodable payload aside, which is dropped) return an error for
// redelivery; business failures are already recorded on the run row.
func (w *Worker) handleJob(runner *workflow.Runner) queue.Handler {
	return func(ctx context.Context, payload []byte) error {
		var job events.RunJob

		err := json.Unmarshal(payload, &job)
		if err != nil {
			// Redelivery cannot fix a malformed payload.
			w.logger.ErrorContext(ctx, "Dropping undecodable run job", "error", err)

			return nil
		}

		_, err = runner.Run(ctx, job.RuleID, job.TenantID, job.TriggerData)

		return err
	}
}
