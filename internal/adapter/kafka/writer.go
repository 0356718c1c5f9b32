package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-classifier/internal/config"
	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces prediction messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes predictions to the sink topic in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, predictions []domain.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(predictions))
	for i := range predictions {
		msg, err := serializeToMessage(predictions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Prediction into a Kafka message keyed by its ID.
func serializeToMessage(p domain.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model", Value: []byte(p.Model)},
			{Key: "category", Value: []byte(p.Category)},
			{Key: "predicted_at", Value: []byte(p.PredictedAt.Format(time.RFC3339))},
		},
	}, nil
}
