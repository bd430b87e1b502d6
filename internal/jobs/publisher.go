package jobs

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"legalmind/pkg/logger"
)

// DocumentJob asks a worker to run the processing pipeline for one document.
type DocumentJob struct {
	DocumentID uint `json:"document_id"`
}

// Publisher enqueues document processing jobs.
type Publisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

// NewPublisher creates a Publisher for the given topic.
func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &Publisher{
		writer: writer,
		logger: log,
	}
}

// PublishDocument enqueues a job for one document. The document id is the
// message key, so all jobs for a document land on one partition and at most
// one is in flight at a time.
func (p *Publisher) PublishDocument(ctx context.Context, documentID uint) error {
	msgBytes, err := json.Marshal(DocumentJob{DocumentID: documentID})
	if err != nil {
		p.logger.WithError(err).Error("Failed to marshal document job")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(documentID), 10)),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(err).WithPayload(map[string]interface{}{
			"topic":       p.writer.Topic,
			"document_id": documentID,
		}).Error("Failed to write document job to Kafka")
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
