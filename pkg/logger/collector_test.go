package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestLogCollectorFoldsDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "tradescore.logs",
		Publisher:      pub,
	})
	defer c.Close()

	fields := map[string]interface{}{"pair": "BTC/USDT"}
	c.AddLog("error", "candle fetch failed", fields, "provider.go:10")
	c.AddLog("error", "candle fetch failed", fields, "provider.go:10")
	c.AddLog("error", "publish failed", nil, "pipeline.go:42")
	c.Flush()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "tradescore.logs", pub.topic)
	require.Len(t, pub.batches[0], 2)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 2, counts["candle fetch failed"])
	assert.Equal(t, 1, counts["publish failed"])
}

func TestLoggerErrorFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Publisher: pub})
	l.Error("score failed", String("pair", "ETH/USDT"))
	l.Warn("ignored by collector")
	l.collector.Flush()
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, "ETH/USDT", pub.batches[0][0].Fields["pair"])
}
