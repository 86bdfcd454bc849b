//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/water-accounting-dashboard/internal/config"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

const testTopic = "test-water-records"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("water-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

type publishedMessage struct {
	Record  domain.Record
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.Record
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal record")
	return publishedMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestSnapshotPublishedToKafka loads the fixture files and verifies every
// record reaches the topic with its snapshot headers.
func TestSnapshotPublishedToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	schemas, err := domain.DefaultSchemas()
	require.NoError(t, err)
	fixtures := filepath.Join("..", "pipeline", "testdata")
	paths := map[string]string{}
	for _, name := range []string{"dam", "groundwater", "transfer", "wastewater"} {
		paths[name] = filepath.Join(fixtures, name+".csv")
	}
	loader := pipeline.NewLoader(schemas, paths, discardLogger())
	p := pipeline.New(loader, discardLogger(), observability.NewMetricsForTesting(), time.Minute,
		pipeline.WithPublisher(writer))

	ds, err := p.Reload(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, ds.Records)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	counts := map[domain.SourceType]int{}
	total := 0.0
	for range ds.Records {
		pm := readPublished(ctx, t, consumer)
		counts[pm.Record.SourceType]++
		total += pm.Record.ExtractionMCM

		assert.Equal(t, pm.Record.ID, pm.Key)
		assert.Equal(t, ds.ID, pm.Headers["dataset_id"])
		assert.Equal(t, string(pm.Record.SourceType), pm.Headers["source_type"])
		_, err := time.Parse(time.RFC3339, pm.Headers["loaded_at"])
		assert.NoError(t, err, "invalid loaded_at format")
	}

	assert.Equal(t, 2, counts[domain.Surface])
	assert.Equal(t, 3, counts[domain.Transfer])
	assert.Equal(t, 4, counts[domain.Groundwater])
	assert.Equal(t, 1, counts[domain.Wastewater])
	assert.InDelta(t, 182.0, total, 1e-9)
}
