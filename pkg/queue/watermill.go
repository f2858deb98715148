package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/robfig/cron/v3"
)

// WatermillQueue implements Queue on a watermill publisher/subscriber pair.
// Durability comes from the transport (kafka in production, gochannel in
// tests); named cron schedules run in-process via robfig/cron and publish to
// the same transport, so scheduled and immediate jobs share one delivery
// path.
type WatermillQueue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	schedules map[string]cron.EntryID
}

// NewWatermillQueue wires a queue on top of an existing pub/sub channel and
// starts the cron runner.
func NewWatermillQueue(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillQueue {
	q := &WatermillQueue{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "queue"),
		cron:       cron.New(),
		schedules:  make(map[string]cron.EntryID),
	}

	q.cron.Start()

	return q
}

// Enqueue publishes an immediate job.
func (q *WatermillQueue) Enqueue(_ context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)

	err = q.publisher.Publish(queueName, msg)
	if err != nil {
		return fmt.Errorf("failed to publish job to %s: %w", queueName, err)
	}

	return nil
}

// Schedule registers a named cron schedule. An existing registration with the
// same name is replaced, which makes redundant reconcile calls safe.
func (q *WatermillQueue) Schedule(ctx context.Context, scheduleName, cronExpr, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule payload: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if entryID, exists := q.schedules[scheduleName]; exists {
		q.cron.Remove(entryID)
		delete(q.schedules, scheduleName)
	}

	entryID, err := q.cron.AddFunc(cronExpr, func() {
		msg := message.NewMessage(watermill.NewUUID(), body)

		err := q.publisher.Publish(queueName, msg)
		if err != nil {
			q.logger.Error("Failed to publish scheduled job",
				"schedule", scheduleName, "queue", queueName, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for schedule %s: %w", cronExpr, scheduleName, err)
	}

	q.schedules[scheduleName] = entryID

	q.logger.InfoContext(ctx, "Registered schedule",
		"schedule", scheduleName, "cron", cronExpr, "queue", queueName)

	return nil
}

// Unschedule removes a named cron schedule, tolerating unknown names.
func (q *WatermillQueue) Unschedule(ctx context.Context, scheduleName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entryID, exists := q.schedules[scheduleName]
	if !exists {
		return nil
	}

	q.cron.Remove(entryID)
	delete(q.schedules, scheduleName)

	q.logger.InfoContext(ctx, "Removed schedule", "schedule", scheduleName)

	return nil
}

// ScheduledNames returns the currently registered schedule names.
func (q *WatermillQueue) ScheduledNames() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	names := make([]string, 0, len(q.schedules))
	for name := range q.schedules {
		names = append(names, name)
	}

	return names
}

// RegisterWorker subscribes a handler to the named queue. Jobs are processed
// concurrently up to opts.Concurrency; a handler error nacks the message so
// the transport redelivers it (at-least-once).
func (q *WatermillQueue) RegisterWorker(ctx context.Context, queueName string, opts WorkerOptions, handler Handler) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultWorkerConcurrency
	}

	messages, err := q.subscriber.Subscribe(ctx, queueName)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queueName, err)
	}

	slots := make(chan struct{}, concurrency)

	go func() {
		for msg := range messages {
			slots <- struct{}{}

			go func(msg *message.Message) {
				defer func() { <-slots }()

				err := handler(ctx, msg.Payload)
				if err != nil {
					q.logger.Error("Job handler failed, message will be redelivered",
						"queue", queueName, "message_id", msg.UUID, "error", err)
					msg.Nack()

					return
				}

				msg.Ack()
			}(msg)
		}
	}()

	q.logger.InfoContext(ctx, "Registered worker", "queue", queueName, "concurrency", concurrency)

	return nil
}

// Close stops the cron runner and the underlying pub/sub channel.
func (q *WatermillQueue) Close() error {
	q.cron.Stop()

	err := q.publisher.Close()
	if err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}

	err = q.subscriber.Close()
	if err != nil {
		return fmt.Errorf("failed to close subscriber: %w", err)
	}

	return nil
}
