// Package queue provides the durable job queue abstraction used by the
// automation engine: immediate jobs, named cron schedules and bounded worker
// pools, with at-least-once delivery.
package queue

import "context"

// DefaultWorkerConcurrency bounds how many jobs one worker registration
// processes simultaneously.
const DefaultWorkerConcurrency = 3

// Handler processes one delivered job payload. Returning an error nacks the
// message so the transport redelivers it.
type Handler func(ctx context.Context, payload []byte) error

// WorkerOptions configures a worker registration.
type WorkerOptions struct {
	Concurrency int
}

// Queue is the narrow contract the engine needs from job-queue
// infrastructure.
type Queue interface {
	// Enqueue publishes an immediate job to the named queue.
	Enqueue(ctx context.Context, queueName string, payload any) error

	// Schedule registers a named cron schedule that enqueues the payload to
	// the named queue on every fire. Registering an existing schedule name
	// replaces the previous registration.
	Schedule(ctx context.Context, scheduleName, cronExpr, queueName string, payload any) error

	// Unschedule removes a named cron schedule. Removing an unknown name is
	// not an error.
	Unschedule(ctx context.Context, scheduleName string) error

	// RegisterWorker subscribes a handler to the named queue with bounded
	// local concurrency.
	RegisterWorker(ctx context.Context, queueName string, opts WorkerOptions, handler Handler) error

	Close() error
}
