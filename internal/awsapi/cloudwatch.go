package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Lambda invocation probing defaults. Edge functions publish Invocations to
// whichever region served the request, so the probe window stays short.
const (
	DefaultInvocationLookback = 5 * time.Minute
	invocationMetricPeriod    = 60
)

// CloudWatchAPI is the slice of the CloudWatch API used by the metric and
// alarm accessors.
type CloudWatchAPI interface {
	ListMetrics(ctx context.Context, params *cloudwatch.ListMetricsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.ListMetricsOutput, error)
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
	DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
	PutMetricAlarm(ctx context.Context, params *cloudwatch.PutMetricAlarmInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricAlarmOutput, error)
}

// CloudWatchAccessor provides metric probes and alarm CRUD across regions.
// Regional clients are created lazily and cached.
type CloudWatchAccessor struct {
	log       *slog.Logger
	newClient func(region string) CloudWatchAPI

	mu      sync.Mutex
	clients map[string]CloudWatchAPI
}

func NewCloudWatchAccessor(sess *Session, log *slog.Logger) *CloudWatchAccessor {
	return &CloudWatchAccessor{
		log: log,
		newClient: func(region string) CloudWatchAPI {
			return cloudwatch.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]CloudWatchAPI),
	}
}

// NewCloudWatchAccessorWithFactory is the injection point for tests.
func NewCloudWatchAccessorWithFactory(factory func(region string) CloudWatchAPI, log *slog.Logger) *CloudWatchAccessor {
	return &CloudWatchAccessor{log: log, newClient: factory, clients: make(map[string]CloudWatchAPI)}
}

func (a *CloudWatchAccessor) client(region string) CloudWatchAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// ListMetricsByNamespace lists every metric in a namespace. Used for
// Container Insights namespace existence checks.
func (a *CloudWatchAccessor) ListMetricsByNamespace(ctx context.Context, namespace, region string) ([]cwtypes.Metric, error) {
	return a.listMetrics(ctx, &cloudwatch.ListMetricsInput{Namespace: aws.String(namespace)}, region)
}

// ListMetricSeries lists the series matching (namespace, metric, dimensions).
func (a *CloudWatchAccessor) ListMetricSeries(ctx context.Context, namespace, metricName string, dims []cwtypes.DimensionFilter, region string) ([]cwtypes.Metric, error) {
	input := &cloudwatch.ListMetricsInput{
		Namespace:  aws.String(namespace),
		MetricName: aws.String(metricName),
		Dimensions: dims,
	}
	return a.listMetrics(ctx, input, region)
}

func (a *CloudWatchAccessor) listMetrics(ctx context.Context, input *cloudwatch.ListMetricsInput, region string) ([]cwtypes.Metric, error) {
	var metrics []cwtypes.Metric

	paginator := cloudwatch.NewListMetricsPaginator(a.client(region), input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list metrics in %s: %w", region, err)
		}
		metrics = append(metrics, page.Metrics...)
	}
	return metrics, nil
}

// LambdaInvocationSum sums the AWS/Lambda Invocations metric for the given
// dimension value over the lookback window. dimensionValue is the raw
// function name, or "us-east-1.<name>" for edge functions.
func (a *CloudWatchAccessor) LambdaInvocationSum(ctx context.Context, dimensionValue, region string, lookback time.Duration) (float64, error) {
	end := time.Now().UTC()
	start := end.Add(-lookback)

	out, err := a.client(region).GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
		MetricDataQueries: []cwtypes.MetricDataQuery{
			{
				Id: aws.String("invocations"),
				MetricStat: &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String("AWS/Lambda"),
						MetricName: aws.String("Invocations"),
						Dimensions: []cwtypes.Dimension{
							{Name: aws.String("FunctionName"), Value: aws.String(dimensionValue)},
						},
					},
					Period: aws.Int32(invocationMetricPeriod),
					Stat:   aws.String("Sum"),
				},
			},
		},
		StartTime: aws.Time(start),
		EndTime:   aws.Time(end),
	})
	if err != nil {
		return 0, fmt.Errorf("get invocation metric data in %s: %w", region, err)
	}

	sum := 0.0
	for _, res := range out.MetricDataResults {
		for _, v := range res.Values {
			sum += v
		}
	}
	return sum, nil
}

// ListAlarmsByPrefix lists alarms whose names start with prefix.
func (a *CloudWatchAccessor) ListAlarmsByPrefix(ctx context.Context, prefix, region string) ([]cwtypes.MetricAlarm, error) {
	var alarms []cwtypes.MetricAlarm

	paginator := cloudwatch.NewDescribeAlarmsPaginator(a.client(region), &cloudwatch.DescribeAlarmsInput{
		AlarmNamePrefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe alarms by prefix in %s: %w", region, err)
		}
		alarms = append(alarms, page.MetricAlarms...)
	}

	a.log.Info("Found alarms by prefix", "prefix", prefix, "region", region, "count", len(alarms))
	return alarms, nil
}

// AlarmByName fetches a single alarm by exact name, or nil when absent.
func (a *CloudWatchAccessor) AlarmByName(ctx context.Context, name, region string) (*cwtypes.MetricAlarm, error) {
	out, err := a.client(region).DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
		AlarmNames: []string{name},
	})
	if err != nil {
		return nil, fmt.Errorf("describe alarm %s in %s: %w", name, region, err)
	}
	if len(out.MetricAlarms) == 0 {
		return nil, nil
	}
	return &out.MetricAlarms[0], nil
}

// CreateAlarm creates or updates a metric alarm in the given region.
func (a *CloudWatchAccessor) CreateAlarm(ctx context.Context, input *cloudwatch.PutMetricAlarmInput, region string) error {
	if _, err := a.client(region).PutMetricAlarm(ctx, input); err != nil {
		return fmt.Errorf("put metric alarm %s in %s: %w", aws.ToString(input.AlarmName), region, err)
	}
	return nil
}
