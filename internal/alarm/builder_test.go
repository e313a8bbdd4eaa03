package alarm

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func throttlesTemplate() Template {
	return Template{
		Name:        "lambda-throttles",
		ServiceType: ServiceLambda,
		MetricType:  MetricNative,
		Configuration: Payload{
			AlarmName:          "IDR-lambda-throttles",
			AlarmDescription:   "Function invocations are being throttled",
			Namespace:          "AWS/Lambda",
			MetricName:         "Throttles",
			Dimensions:         []Dimension{{Name: "FunctionName", Value: ""}},
			Statistic:          "Sum",
			Period:             60,
			EvaluationPeriods:  5,
			DatapointsToAlarm:  3,
			ComparisonOperator: "GreaterThanThreshold",
			TreatMissingData:   "notBreaching",
		},
	}
}

func lambdaResource(name string) ResourceArn {
	return ResourceArn{
		Type:   ServiceLambda,
		ARN:    "arn:aws:lambda:us-east-1:123456789012:function:" + name,
		Region: "us-east-1",
		Name:   name,
	}
}

func TestBuildFillsDimensionsAndName(t *testing.T) {
	b := NewBuilder(discardLogger())

	cfg, err := b.Build(throttlesTemplate(), lambdaResource("viewer-request"))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "IDR-lambda-throttles-viewer-request", cfg.AlarmName)
	assert.Equal(t, cfg.AlarmName, cfg.Payload.AlarmName)
	assert.Equal(t, "viewer-request", cfg.Payload.Dimensions[0].Value)
	assert.False(t, cfg.IsLambdaEdge)
}

func TestBuildFillsMetricMathDimensions(t *testing.T) {
	tmpl := Template{
		Name:        "lambda-error-rate",
		ServiceType: ServiceLambda,
		MetricType:  MetricNative,
		Configuration: Payload{
			AlarmName: "IDR-lambda-error-rate",
			Metrics: []MetricQuery{
				{ID: "rate", Expression: "100 * errors / invocations"},
				{ID: "errors", MetricStat: &MetricStat{
					Metric: Metric{
						Namespace:  "AWS/Lambda",
						MetricName: "Errors",
						Dimensions: []Dimension{{Name: "FunctionName", Value: ""}},
					},
					Period: 60,
					Stat:   "Sum",
				}},
			},
			EvaluationPeriods:  5,
			Threshold:          5,
			ComparisonOperator: "GreaterThanThreshold",
		},
	}
	b := NewBuilder(discardLogger())

	cfg, err := b.Build(tmpl, lambdaResource("viewer-request"))
	require.NoError(t, err)
	assert.Equal(t, "viewer-request", cfg.Payload.Metrics[1].MetricStat.Metric.Dimensions[0].Value)

	// A second build from the same template must not see the first fill.
	again, err := b.Build(tmpl, lambdaResource("origin-response"))
	require.NoError(t, err)
	assert.Equal(t, "origin-response", again.Payload.Metrics[1].MetricStat.Metric.Dimensions[0].Value)
	assert.Equal(t, "", tmpl.Configuration.Metrics[1].MetricStat.Metric.Dimensions[0].Value)
}

func TestBuildSkipsForeignServiceType(t *testing.T) {
	b := NewBuilder(discardLogger())

	cfg, err := b.Build(throttlesTemplate(), ResourceArn{
		Type: ServiceDynamoDB, ARN: "arn:aws:dynamodb:us-east-1:123456789012:table/orders", Name: "orders",
	})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestBuildRejectsNamelessResource(t *testing.T) {
	b := NewBuilder(discardLogger())

	_, err := b.Build(throttlesTemplate(), ResourceArn{
		Type: ServiceLambda, ARN: "arn:aws:lambda:us-east-1:123456789012:function:x",
	})
	assert.Error(t, err)
}

func TestBuildSanitizesResourceName(t *testing.T) {
	b := NewBuilder(discardLogger())

	cfg, err := b.Build(throttlesTemplate(), ResourceArn{
		Type: ServiceLambda,
		ARN:  "arn:aws:lambda:us-east-1:123456789012:function:team:alias",
		Name: "team:alias",
	})
	require.NoError(t, err)
	assert.Equal(t, "IDR-lambda-throttles-team-alias", cfg.AlarmName)
}

func TestBuiltPayloadGolden(t *testing.T) {
	b := NewBuilder(discardLogger())

	cfg, err := b.Build(throttlesTemplate(), lambdaResource("viewer-request"))
	require.NoError(t, err)

	g := goldie.New(t)
	g.AssertJson(t, "lambda-throttles-payload", cfg.Payload)
}
