package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Linger is the time to wait before sending a batch.
	Linger time.Duration
	// Compression is one of lz4, snappy, gzip, zstd or empty for none.
	Compression string
	MaxRetries  int
}

// Kafka publishes events to a topic, keyed by sending application and
// control id so retransmissions land on the same partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewKafka creates a Kafka publisher.
func NewKafka(cfg KafkaConfig, logger zerolog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("forward: kafka needs brokers and a topic")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(cfg.Linger),
		kgo.DefaultProduceTopic(cfg.Topic),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, kgo.RecordRetries(cfg.MaxRetries))
	}
	switch cfg.Compression {
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("forward: create kafka client: %w", err)
	}
	return &Kafka{
		client: client,
		topic:  cfg.Topic,
		logger: logger.With().Str("component", "forward-kafka").Logger(),
		tracer: otel.Tracer("hl7engine/forward"),
	}, nil
}

// Publish produces e and waits for the broker acknowledgment.
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	ctx, span := k.tracer.Start(ctx, "kafka.publish", trace.WithAttributes(
		attribute.String("topic", k.topic),
		attribute.String("hl7.control_id", e.ControlID),
	))
	defer span.End()

	rec, err := kafkaRecord(ctx, k.topic, e)
	if err != nil {
		return err
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		span.RecordError(err)
		k.logger.Error().Err(err).Str("control_id", e.ControlID).Msg("produce failed")
		return fmt.Errorf("forward: kafka produce: %w", err)
	}
	k.logger.Debug().Str("control_id", e.ControlID).Int32("partition", rec.Partition).Int64("offset", rec.Offset).Msg("event produced")
	return nil
}

// Close flushes buffered records and closes the client.
func (k *Kafka) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := k.client.Flush(ctx); err != nil {
		k.logger.Warn().Err(err).Msg("flush on close")
	}
	k.client.Close()
	return nil
}

func kafkaRecord(ctx context.Context, topic string, e Event) (*kgo.Record, error) {
	body, err := e.Marshal()
	if err != nil {
		return nil, fmt.Errorf("forward: encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(e.Key()),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "hl7-message-type", Value: []byte(e.MessageType + "^" + e.TriggerEvent)},
			{Key: "hl7-version", Value: []byte(e.Version)},
		},
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{
			Key:   "traceparent",
			Value: []byte(fmt.Sprintf("00-%s-%s-%02x", sc.TraceID(), sc.SpanID(), byte(sc.TraceFlags()))),
		})
	}
	return rec, nil
}
