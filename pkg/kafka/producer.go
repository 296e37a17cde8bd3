package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Producer wraps Kafka writer.
type Producer struct {
	writer *kafka.Writer
	comp   string
	topic  string
}

// Topic is the default topic set via WithTopic.
func (p *Producer) Topic() string { return p.topic }

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   cfg.BatchBytes,
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}

	producerMetrics.register()
	return &Producer{writer: writer, comp: cfg.Compression, topic: cfg.Topic}, nil
}

// Publish writes one message to topic. []byte and string values are sent
// raw, anything else as JSON.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	v, err := encodeValue(value)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: v, Time: start})
	producerMetrics.observe(topic, p.comp, len(v), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

func encodeValue(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kafka encode %T: %w", value, err)
	}
	return b, nil
}

// Close flushes pending async writes and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func parseCompression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none", "":
		return 0
	default:
		return kafka.Snappy
	}
}

// producerStats is registered on first NewProducer so that importing the
// package alone adds nothing to the default registry.
type producerStats struct {
	once    sync.Once
	msgs    *prometheus.CounterVec
	errs    *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var producerMetrics producerStats

func (m *producerStats) register() {
	m.once.Do(func() {
		m.msgs = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "astro_kafka_producer_messages_total",
			Help: "Messages handed to the Kafka writer, by result.",
		}, []string{"topic", "compression", "result"})
		m.errs = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "astro_kafka_producer_errors_total",
			Help: "Failed Kafka writes.",
		}, []string{"topic"})
		m.bytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "astro_kafka_producer_bytes_total",
			Help: "Uncompressed payload bytes written.",
		}, []string{"topic", "compression"})
		m.latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "astro_kafka_producer_publish_seconds",
			Help:    "WriteMessages latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
	})
}

func (m *producerStats) observe(topic, comp string, size int, dur time.Duration, err error) {
	if m.msgs == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		m.errs.WithLabelValues(topic).Inc()
	}
	m.msgs.WithLabelValues(topic, comp, result).Inc()
	m.bytes.WithLabelValues(topic, comp).Add(float64(size))
	m.latency.WithLabelValues(topic).Observe(dur.Seconds())
}
