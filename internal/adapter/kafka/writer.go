package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/water-accounting-dashboard/internal/config"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

// batchSize bounds the number of messages per WriteMessages call.
const batchSize = 500

// Writer publishes normalized snapshot records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    batchSize,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes every record of ds, keyed by subbasin ID so records of
// one subbasin land on the same partition.
func (w *Writer) Publish(ctx context.Context, ds *pipeline.Dataset) error {
	if ds == nil || len(ds.Records) == 0 {
		return nil
	}
	for start := 0; start < len(ds.Records); start += batchSize {
		end := min(start+batchSize, len(ds.Records))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(ds.ID, ds.LoadedAt, ds.Records[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write records %d-%d: %w", start, end, err)
		}
	}
	w.logger.Info("dataset published", "dataset_id", ds.ID, "records", len(ds.Records), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Record into a Kafka message.
func serializeToMessage(datasetID string, loadedAt time.Time, rec domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize water record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source_type", Value: []byte(rec.SourceType)},
			{Key: "dataset_id", Value: []byte(datasetID)},
			{Key: "loaded_at", Value: []byte(loadedAt.Format(time.RFC3339))},
		},
	}, nil
}
