package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	removed int
	delay   time.Duration
	calls   atomic.Int32
}

func (c *fakeCleaner) Cleanup() int {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return c.removed
}

func TestJanitor_RunOnce(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	j := NewJanitor(&fakeCleaner{removed: 7}, time.Second, m, nil)

	removed, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, removed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.EntriesRemovedTotal))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessTimestamp), 0.0)
}

func TestJanitor_RunOnceTimesOut(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())
	c := &fakeCleaner{removed: 3, delay: 200 * time.Millisecond}
	j := NewJanitor(c, 10*time.Millisecond, m, nil)

	_, err := j.RunOnce(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EntriesRemovedTotal))

	removed, err := j.RunOnce(context.Background())
	require.NoError(t, err, "overlapping run is skipped, not failed")
	assert.Equal(t, 0, removed)
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestJanitor_Schedule(t *testing.T) {
	j := NewJanitor(&fakeCleaner{}, time.Second, nil, nil)

	c, err := j.Schedule(context.Background(), "*/5 * * * *", time.UTC)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	_, err = j.Schedule(context.Background(), "whenever", nil)
	assert.Error(t, err)
}
