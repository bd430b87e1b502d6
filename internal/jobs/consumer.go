package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"legalmind/pkg/logger"
)

// Handler processes one document job.
type Handler func(ctx context.Context, job DocumentJob) error

// Consumer pulls document processing jobs and hands them to a Handler.
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a Consumer in the given consumer group.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader: reader,
		logger: log,
	}
}

// Start consumes jobs until ctx is canceled. Offsets are committed after the
// handler returns regardless of its error, so a poisonous document cannot
// wedge the partition; its failure is recorded on the document itself.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping document job consumer...")
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() == nil {
						c.logger.WithError(err).Error("Error fetching message from Kafka")
					}
					continue
				}

				if err := c.handle(ctx, msg, handler); err != nil {
					c.logger.WithError(err).WithPayload(map[string]interface{}{
						"topic":     msg.Topic,
						"partition": msg.Partition,
						"offset":    msg.Offset,
					}).Error("Error handling document job")
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.WithError(err).Error("Failed to commit Kafka message")
				}
			}
		}
	}()
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler Handler) error {
	var job DocumentJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return fmt.Errorf("failed to decode document job: %w", err)
	}
	return handler(ctx, job)
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
