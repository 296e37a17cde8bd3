package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(WithTopic("astro.overlay.events"))
	require.Error(t, err)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithTopic("astro.overlay.events"),
		WithCompression("zstd"),
		WithHashByKey(true),
		WithMaxAttempts(5),
		WithBatching(1, 0),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "astro.overlay.events", p.Topic())
	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, 5, p.writer.MaxAttempts)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, 1, p.writer.BatchSize)
	assert.Equal(t, time.Second, p.writer.BatchTimeout)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
	assert.Equal(t, kafka.Snappy, parseCompression("brotli"))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"rows": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":2}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}
