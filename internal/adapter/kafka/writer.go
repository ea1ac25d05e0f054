package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/emissions-impact-etl/internal/config"
	"github.com/couchcryptid/emissions-impact-etl/internal/domain"
	"github.com/couchcryptid/emissions-impact-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes derived records to a Kafka topic, one message per record.
// It implements pipeline.Loader.
type Writer struct {
	writer   messageWriter
	attempts int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, cfg.KafkaPublishAttempts, logger, metrics)
}

func newWriter(w messageWriter, attempts int, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	if attempts < 1 {
		attempts = 1
	}
	return &Writer{writer: w, attempts: attempts, logger: logger, metrics: metrics}
}

// Load serializes every record of the dataset and publishes them in a single
// WriteMessages call, retrying with exponential backoff. An empty dataset
// publishes nothing.
func (w *Writer) Load(ctx context.Context, ds domain.Dataset) error {
	if len(ds.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Records))
	for i := range ds.Records {
		msg, err := serializeToMessage(ds, ds.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if err = w.writer.WriteMessages(ctx, msgs...); err == nil {
			w.metrics.RecordsPublished.Add(float64(len(msgs)))
			w.logger.Info("records published", "run_id", ds.RunID, "count", len(msgs))
			return nil
		}
		if attempt == w.attempts || ctx.Err() != nil {
			break
		}
		w.logger.Warn("publish failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		w.metrics.PublishRetries.Inc()
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("publish %d records: %w", len(msgs), err)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey identifies a record across runs: year, classification and
// source line.
func MessageKey(r domain.DerivedRecord) string {
	return strconv.Itoa(r.Year) + "|" + r.Classification + "|" + strconv.Itoa(r.Line)
}

// serializeToMessage marshals a DerivedRecord into a Kafka message.
func serializeToMessage(ds domain.Dataset, r domain.DerivedRecord) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize derived record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(r)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(ds.RunID)},
			{Key: "generated_at", Value: []byte(ds.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
