package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/relaycrm/relay/pkg/queue"
	"github.com/relaycrm/relay/pkg/queue/gochannel"
	"github.com/relaycrm/relay/pkg/queue/kafka"
)

// NewQueue creates the job queue for the given transport provider. Kafka is
// the production transport; gochannel keeps everything in-process for local
// development and tests.
func NewQueue(provider, serviceName string, logger *slog.Logger) (queue.Queue, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka channel: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub, logger), nil
	case "gochannel", "memory":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel channel: %w", err)
		}

		return queue.NewWatermillQueue(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", provider)
	}
}
