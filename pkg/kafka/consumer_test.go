package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	SetConsumerMetricsRegisterer(prometheus.NewRegistry())
	base := []ConsumerOption{WithConsumerBrokers([]string{"localhost:9092"})}
	c, err := NewConsumer(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestPartitionLockConcurrentAccess(t *testing.T) {
	c := newTestConsumer(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p < 200; p++ {
				c.partitionLock("heliowatch.readings", p)
			}
		}()
	}
	wg.Wait()

	first := c.partitionLock("heliowatch.readings", 7)
	assert.Same(t, first, c.partitionLock("heliowatch.readings", 7))
	assert.NotSame(t, first, c.partitionLock("heliowatch.readings", 8))
	assert.NotSame(t, first, c.partitionLock("heliowatch.risk", 7))
}

func TestStopClosesQueueAfterProducersExit(t *testing.T) {
	c := newTestConsumer(t, WithConsumerBufferSize(64), WithConsumerWorkers(2))

	// drain the queue like Start's workers would
	for i := 0; i < 2; i++ {
		c.workerWg.Add(1)
		go c.worker()
	}

	// producers push like read loops until shutdown tells them to stop
	for g := 0; g < 4; g++ {
		c.readerWg.Add(1)
		go func() {
			defer c.readerWg.Done()
			for {
				if !c.enqueue(&envelope{topic: "heliowatch.readings"}) {
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min := 50 * time.Millisecond
	max := 2 * time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}
