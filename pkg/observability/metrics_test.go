package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "smartmind")

	// Act
	m.Increment("command_count", "AddNodeCommand")
	m.Increment("command_count", "AddNodeCommand")
	StartTimer(m, "command_duration", "AddNodeCommand").Stop()
	m.ObserveHTTP("GET", "/api/mindmap", 200, 3*time.Millisecond)

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(m.counts.WithLabelValues("command_count", "AddNodeCommand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/mindmap", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.durations))
}

type fakeCloudWatch struct {
	calls [][]int
	err   error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.calls = append(f.calls, []int{len(in.MetricData)})
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestCloudWatchMetrics_FlushBatches(t *testing.T) {
	// Arrange
	api := &fakeCloudWatch{}
	m := NewCloudWatchMetrics("SmartMind", api)
	for i := 0; i < 1500; i++ {
		m.Increment("command_count", "AddNodeCommand")
	}

	// Act
	err := m.Flush(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1000}, {500}}, api.calls)
	assert.Equal(t, 0, m.Pending())
}

func TestCloudWatchMetrics_FlushError(t *testing.T) {
	api := &fakeCloudWatch{err: errors.New("throttled")}
	m := NewCloudWatchMetrics("SmartMind", api)
	m.Observe("command_duration", "MoveNodeCommand", time.Second)

	err := m.Flush(context.Background())

	assert.ErrorContains(t, err, "throttled")
	assert.Equal(t, 0, m.Pending())
}

func TestCloudWatchMetrics_EmptyFlushSendsNothing(t *testing.T) {
	api := &fakeCloudWatch{}

	require.NoError(t, NewCloudWatchMetrics("SmartMind", api).Flush(context.Background()))

	assert.Empty(t, api.calls)
}

type countingRecorder struct{ observed, incremented int }

func (c *countingRecorder) Observe(string, string, time.Duration) { c.observed++ }
func (c *countingRecorder) Increment(string, string)              { c.incremented++ }

func TestFanout(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	f := Fanout{a, b}

	f.Increment("x", "y")
	StartTimer(f, "x", "y").Stop()

	assert.Equal(t, 1, a.incremented)
	assert.Equal(t, 1, b.observed)
}

func TestTracer_UntracedContextRunsFunction(t *testing.T) {
	called := false
	boom := errors.New("boom")

	err := NewTracer("smartmind").TraceFunction(context.Background(), "op", func(context.Context) error {
		called = true
		return boom
	})

	assert.True(t, called)
	assert.ErrorIs(t, err, boom)
}
