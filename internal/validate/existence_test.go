package validate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idrcli/awsidr/internal/alarm"
)

type fakeMetricLister struct {
	mu sync.Mutex

	seriesFn    func(namespace, metricName, region string) ([]cwtypes.Metric, error)
	namespaceFn func(namespace, region string) ([]cwtypes.Metric, error)

	namespaceCalls int
}

func (f *fakeMetricLister) ListMetricSeries(ctx context.Context, namespace, metricName string, dims []cwtypes.DimensionFilter, region string) ([]cwtypes.Metric, error) {
	return f.seriesFn(namespace, metricName, region)
}

func (f *fakeMetricLister) ListMetricsByNamespace(ctx context.Context, namespace, region string) ([]cwtypes.Metric, error) {
	f.mu.Lock()
	f.namespaceCalls++
	f.mu.Unlock()
	return f.namespaceFn(namespace, region)
}

type fakePrereq struct {
	result bool
	calls  int
}

func (f *fakePrereq) Check(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	f.calls++
	return f.result
}

func someMetric() []cwtypes.Metric {
	return []cwtypes.Metric{{MetricName: aws.String("whatever")}}
}

func tableConfig() alarm.Configuration {
	return alarm.Configuration{
		AlarmName: "IDR-dynamodb-replication-latency-orders",
		Resource: alarm.ResourceArn{
			Type:   alarm.ServiceDynamoDB,
			ARN:    "arn:aws:dynamodb:us-east-1:123456789012:table/orders",
			Region: "us-east-1",
			Name:   "orders",
		},
		Payload: alarm.Payload{
			AlarmName:          "IDR-dynamodb-replication-latency-orders",
			Namespace:          "AWS/DynamoDB",
			MetricName:         "ReplicationLatency",
			Dimensions:         []alarm.Dimension{{Name: "TableName", Value: "orders"}},
			Statistic:          "Average",
			Period:             300,
			EvaluationPeriods:  3,
			Threshold:          180000,
			ComparisonOperator: "GreaterThanThreshold",
		},
	}
}

func TestExistingMetricPassesWithoutConditionalCheck(t *testing.T) {
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		return someMetric(), nil
	}}
	prereq := &fakePrereq{}
	v := NewValidator(cw, prereq, discardLogger())

	assert.True(t, v.ShouldCreate(context.Background(), tableConfig(), alarm.MetricConditional))
	assert.Equal(t, 0, prereq.calls)
}

func TestMissingConditionalMetricFallsBackToPrerequisite(t *testing.T) {
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		return nil, nil
	}}

	confirmed := &fakePrereq{result: true}
	v := NewValidator(cw, confirmed, discardLogger())
	assert.True(t, v.ShouldCreate(context.Background(), tableConfig(), alarm.MetricConditional))
	assert.Equal(t, 1, confirmed.calls)

	denied := &fakePrereq{result: false}
	v = NewValidator(cw, denied, discardLogger())
	assert.False(t, v.ShouldCreate(context.Background(), tableConfig(), alarm.MetricConditional))
}

func TestMissingNativeMetricIsRejected(t *testing.T) {
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		return nil, nil
	}}
	prereq := &fakePrereq{result: true}
	v := NewValidator(cw, prereq, discardLogger())

	assert.False(t, v.ShouldCreate(context.Background(), tableConfig(), alarm.MetricNative))
	assert.Equal(t, 0, prereq.calls, "native metrics never consult the conditional checker")
}

func TestProbeFailureFailsClosed(t *testing.T) {
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		return nil, errors.New("throttled")
	}}
	v := NewValidator(cw, &fakePrereq{result: true}, discardLogger())

	assert.False(t, v.ShouldCreate(context.Background(), tableConfig(), alarm.MetricConditional))
}

func TestEdgeConfigurationProbesMetricRegion(t *testing.T) {
	var probedRegion string
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		probedRegion = region
		return someMetric(), nil
	}}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())

	cfg := tableConfig()
	cfg.MetricRegion = "eu-west-1"
	require.True(t, v.ShouldCreate(context.Background(), cfg, alarm.MetricNative))
	assert.Equal(t, "eu-west-1", probedRegion)
}

func TestMetricMathPayloadProbesFirstStatQuery(t *testing.T) {
	var probed string
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		probed = namespace + "/" + metricName
		return someMetric(), nil
	}}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())

	cfg := tableConfig()
	cfg.Payload.Namespace = ""
	cfg.Payload.MetricName = ""
	cfg.Payload.Dimensions = nil
	cfg.Payload.Metrics = []alarm.MetricQuery{
		{ID: "rate", Expression: "100 * errors / invocations"},
		{ID: "errors", MetricStat: &alarm.MetricStat{
			Metric: alarm.Metric{Namespace: "AWS/Lambda", MetricName: "Errors"},
			Period: 60, Stat: "Sum",
		}},
	}
	require.True(t, v.ShouldCreate(context.Background(), cfg, alarm.MetricNative))
	assert.Equal(t, "AWS/Lambda/Errors", probed)
}

func TestContainerInsightsNamespaceGate(t *testing.T) {
	cw := &fakeMetricLister{
		seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
			return someMetric(), nil
		},
		namespaceFn: func(namespace, region string) ([]cwtypes.Metric, error) {
			return nil, nil
		},
	}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())

	cfg := tableConfig()
	cfg.Payload.Namespace = "ECS/ContainerInsights"
	cfg.Payload.MetricName = "CpuUtilized"
	assert.False(t, v.ShouldCreate(context.Background(), cfg, alarm.MetricNative),
		"empty Container Insights namespace blocks the alarm even if a series would match")
}

func TestNamespaceAvailabilityIsMemoizedIncludingFailures(t *testing.T) {
	cw := &fakeMetricLister{
		namespaceFn: func(namespace, region string) ([]cwtypes.Metric, error) {
			return nil, errors.New("denied")
		},
	}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())

	assert.Empty(t, v.NamespacesAvailable(context.Background(), alarm.ServiceECS, "us-east-1"))
	assert.Empty(t, v.NamespacesAvailable(context.Background(), alarm.ServiceECS, "us-east-1"))
	assert.Equal(t, 1, cw.namespaceCalls, "a failed probe is cached, not retried")
}

func TestNamespacesAvailablePerService(t *testing.T) {
	cw := &fakeMetricLister{
		namespaceFn: func(namespace, region string) ([]cwtypes.Metric, error) {
			if namespace == "ContainerInsights" {
				return someMetric(), nil
			}
			return nil, nil
		},
	}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())

	assert.Equal(t, []string{"ContainerInsights"},
		v.NamespacesAvailable(context.Background(), alarm.ServiceEKS, "us-east-1"))
	assert.Empty(t, v.NamespacesAvailable(context.Background(), alarm.ServiceECS, "us-east-1"))
}

func TestFilterConfigurationsSkipsNonNativeAndForeignTemplates(t *testing.T) {
	cw := &fakeMetricLister{seriesFn: func(namespace, metricName, region string) ([]cwtypes.Metric, error) {
		return someMetric(), nil
	}}
	v := NewValidator(cw, &fakePrereq{}, discardLogger())
	b := alarm.NewBuilder(discardLogger())

	res := alarm.ResourceArn{
		Type:   alarm.ServiceDynamoDB,
		ARN:    "arn:aws:dynamodb:us-east-1:123456789012:table/orders",
		Region: "us-east-1",
		Name:   "orders",
	}
	tmpls := []alarm.Template{
		{
			Name:        "dynamodb-system-errors",
			ServiceType: alarm.ServiceDynamoDB,
			MetricType:  alarm.MetricNative,
			Configuration: alarm.Payload{
				AlarmName: "IDR-dynamodb-system-errors", Namespace: "AWS/DynamoDB",
				MetricName: "SystemErrors", EvaluationPeriods: 5,
				ComparisonOperator: "GreaterThanThreshold",
			},
		},
		{
			Name:        "dynamodb-custom",
			ServiceType: alarm.ServiceDynamoDB,
			MetricType:  alarm.MetricNonNative,
			Configuration: alarm.Payload{
				AlarmName: "IDR-dynamodb-custom", Namespace: "Custom", MetricName: "X",
			},
		},
		{
			Name:        "rds-cpu-utilization",
			ServiceType: alarm.ServiceRDS,
			MetricType:  alarm.MetricNative,
			Configuration: alarm.Payload{
				AlarmName: "IDR-rds-cpu-utilization", Namespace: "AWS/RDS", MetricName: "CPUUtilization",
			},
		},
	}

	out, err := v.FilterConfigurations(context.Background(), b, res, tmpls)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "IDR-dynamodb-system-errors-orders", out[0].AlarmName)
}
