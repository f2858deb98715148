package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycrm/relay/pkg/events"
	"github.com/relaycrm/relay/pkg/queue/gochannel"
)

func newTestQueue(t *testing.T) *WatermillQueue {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	q := NewWatermillQueue(pub, sub, logger)
	t.Cleanup(func() {
		_ = q.Close()
	})

	return q
}

func TestEnqueueDeliversToWorker(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	received := make(chan events.RunJob, 1)

	err := q.RegisterWorker(ctx, "test.queue", WorkerOptions{Concurrency: 1}, func(_ context.Context, payload []byte) error {
		var job events.RunJob

		err := json.Unmarshal(payload, &job)
		if err != nil {
			return err
		}

		received <- job

		return nil
	})
	require.NoError(t, err)

	job := events.RunJob{RuleID: "r1", TenantID: "t1", TriggerData: map[string]any{"k": "v"}}
	require.NoError(t, q.Enqueue(ctx, "test.queue", job))

	select {
	case got := <-received:
		assert.Equal(t, job, got)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not receive the job")
	}
}

func TestHandlerErrorTriggersRedelivery(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	deliveries := make(chan struct{}, 4)
	failures := 0

	err := q.RegisterWorker(ctx, "test.retry", WorkerOptions{Concurrency: 1}, func(_ context.Context, _ []byte) error {
		deliveries <- struct{}{}

		if failures == 0 {
			failures++

			return assert.AnError
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, q.Enqueue(ctx, "test.retry", events.RunJob{RuleID: "r1"}))

	for range 2 {
		select {
		case <-deliveries:
		case <-time.After(2 * time.Second):
			t.Fatal("expected the nacked job to be redelivered")
		}
	}
}

func TestScheduleBookkeeping(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	err := q.Schedule(ctx, "rule-schedule-r1", "0 9 * * *", "test.queue", events.RunJob{RuleID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-schedule-r1"}, q.ScheduledNames())

	// Re-registering the same name replaces the entry.
	err = q.Schedule(ctx, "rule-schedule-r1", "0 10 * * *", "test.queue", events.RunJob{RuleID: "r1"})
	require.NoError(t, err)
	assert.Len(t, q.ScheduledNames(), 1)

	require.NoError(t, q.Unschedule(ctx, "rule-schedule-r1"))
	assert.Empty(t, q.ScheduledNames())

	// Unknown names are tolerated.
	require.NoError(t, q.Unschedule(ctx, "rule-schedule-ghost"))
}

func TestScheduleRejectsInvalidCron(t *testing.T) {
	q := newTestQueue(t)

	err := q.Schedule(context.Background(), "rule-schedule-r1", "not a cron", "test.queue", events.RunJob{RuleID: "r1"})
	require.Error(t, err)
	assert.Empty(t, q.ScheduledNames())
}
