// Package admin bootstraps the topics the engine consumes and produces.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicSpec sizes a topic at creation. Existing topics are left untouched.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// EnsureTopics creates any missing topic.
func EnsureTopics(ctx context.Context, brokers []string, logger *slog.Logger, specs ...TopicSpec) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("create kafka admin client: %w", err)
	}
	defer client.Close()
	adm := kadm.NewClient(client)

	for _, spec := range specs {
		partitions := spec.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		rf := spec.ReplicationFactor
		if rf <= 0 {
			rf = 1
		}
		resp, err := adm.CreateTopics(ctx, partitions, rf, nil, spec.Name)
		if err != nil {
			return fmt.Errorf("create topic %s: %w", spec.Name, err)
		}
		for _, r := range resp.Sorted() {
			switch {
			case r.Err == nil:
				logger.InfoContext(ctx, "kafka topic created", "topic", r.Topic, "partitions", partitions)
			case errors.Is(r.Err, kerr.TopicAlreadyExists):
			default:
				return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
			}
		}
	}
	return nil
}
