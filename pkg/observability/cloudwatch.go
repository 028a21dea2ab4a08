package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxDatumsPerPut is the PutMetricData limit
const maxDatumsPerPut = 1000

// CloudWatchAPI is the part of the CloudWatch client used here
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics buffers measurements and ships them on Flush
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

// NewCloudWatchMetrics creates a buffered CloudWatch recorder
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI) *CloudWatchMetrics {
	return &CloudWatchMetrics{namespace: namespace, client: client, now: time.Now}
}

// Observe implements Recorder
func (m *CloudWatchMetrics) Observe(metric, label string, d time.Duration) {
	m.add(metric, label, float64(d.Milliseconds()), types.StandardUnitMilliseconds)
}

// Increment implements Recorder
func (m *CloudWatchMetrics) Increment(metric, label string) {
	m.add(metric, label, 1, types.StandardUnitCount)
}

func (m *CloudWatchMetrics) add(metric, label string, value float64, unit types.StandardUnit) {
	datum := types.MetricDatum{
		MetricName: aws.String(metric),
		Dimensions: []types.Dimension{
			{Name: aws.String("Name"), Value: aws.String(label)},
		},
		Value:     aws.Float64(value),
		Unit:      unit,
		Timestamp: aws.Time(m.now()),
	}
	m.mu.Lock()
	m.pending = append(m.pending, datum)
	m.mu.Unlock()
}

// Pending returns the number of buffered datums
func (m *CloudWatchMetrics) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush sends everything buffered. Datums of a failed batch are dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for start := 0; start < len(batch); start += maxDatumsPerPut {
		end := start + maxDatumsPerPut
		if end > len(batch) {
			end = len(batch)
		}
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more
func (m *CloudWatchMetrics) Run(ctx context.Context, every time.Duration, onError func(error)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := m.Flush(context.Background()); err != nil && onError != nil {
				onError(err)
			}
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
