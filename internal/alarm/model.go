// Package alarm defines the alarm template and configuration model shared by
// the creation, validation, and edge-expansion workflows.
package alarm

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricClassification says whether a template's metric is always emitted
// for the resource type, emitted only under certain resource configurations,
// or never emitted by the provider.
type MetricClassification string

const (
	MetricNative      MetricClassification = "NATIVE"
	MetricConditional MetricClassification = "CONDITIONAL"
	MetricNonNative   MetricClassification = "NON-NATIVE"
)

// ResourceArn identifies a discovered resource and the region context an
// alarm or metric check applies in. Values are copied, never mutated, when
// the region context changes.
type ResourceArn struct {
	Type   string `json:"type" yaml:"type"`
	ARN    string `json:"arn" yaml:"arn"`
	Region string `json:"region" yaml:"region"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// WithRegion returns a copy bound to the given region.
func (r ResourceArn) WithRegion(region string) ResourceArn {
	r.Region = region
	return r
}

// Dimension is a CloudWatch metric dimension.
type Dimension struct {
	Name  string `json:"Name" yaml:"Name"`
	Value string `json:"Value" yaml:"Value"`
}

// Metric names a metric series.
type Metric struct {
	Namespace  string      `json:"Namespace" yaml:"Namespace"`
	MetricName string      `json:"MetricName" yaml:"MetricName"`
	Dimensions []Dimension `json:"Dimensions,omitempty" yaml:"Dimensions,omitempty"`
}

// MetricStat pairs a metric with its aggregation.
type MetricStat struct {
	Metric Metric `json:"Metric" yaml:"Metric"`
	Period int32  `json:"Period" yaml:"Period"`
	Stat   string `json:"Stat" yaml:"Stat"`
}

// MetricQuery is one entry of a metric-math alarm definition.
type MetricQuery struct {
	ID         string      `json:"Id" yaml:"Id"`
	Expression string      `json:"Expression,omitempty" yaml:"Expression,omitempty"`
	Label      string      `json:"Label,omitempty" yaml:"Label,omitempty"`
	MetricStat *MetricStat `json:"MetricStat,omitempty" yaml:"MetricStat,omitempty"`
	ReturnData *bool       `json:"ReturnData,omitempty" yaml:"ReturnData,omitempty"`
}

// Payload is the alarm definition in CloudWatch's parameter shape. Either
// the plain Namespace/MetricName/Dimensions form or the metric-math Metrics
// form is populated, never both.
type Payload struct {
	AlarmName          string        `json:"AlarmName" yaml:"AlarmName"`
	AlarmDescription   string        `json:"AlarmDescription,omitempty" yaml:"AlarmDescription,omitempty"`
	Namespace          string        `json:"Namespace,omitempty" yaml:"Namespace,omitempty"`
	MetricName         string        `json:"MetricName,omitempty" yaml:"MetricName,omitempty"`
	Dimensions         []Dimension   `json:"Dimensions,omitempty" yaml:"Dimensions,omitempty"`
	Metrics            []MetricQuery `json:"Metrics,omitempty" yaml:"Metrics,omitempty"`
	Statistic          string        `json:"Statistic,omitempty" yaml:"Statistic,omitempty"`
	Period             int32         `json:"Period,omitempty" yaml:"Period,omitempty"`
	EvaluationPeriods  int32         `json:"EvaluationPeriods" yaml:"EvaluationPeriods"`
	DatapointsToAlarm  int32         `json:"DatapointsToAlarm,omitempty" yaml:"DatapointsToAlarm,omitempty"`
	Threshold          float64       `json:"Threshold" yaml:"Threshold"`
	ComparisonOperator string        `json:"ComparisonOperator" yaml:"ComparisonOperator"`
	TreatMissingData   string        `json:"TreatMissingData,omitempty" yaml:"TreatMissingData,omitempty"`
}

// Clone deep-copies the payload so per-region rewrites cannot leak into the
// shared template.
func (p Payload) Clone() Payload {
	out := p
	out.Dimensions = append([]Dimension(nil), p.Dimensions...)
	out.Metrics = make([]MetricQuery, len(p.Metrics))
	for i, q := range p.Metrics {
		cq := q
		if q.MetricStat != nil {
			ms := *q.MetricStat
			ms.Metric.Dimensions = append([]Dimension(nil), q.MetricStat.Metric.Dimensions...)
			cq.MetricStat = &ms
		}
		if q.ReturnData != nil {
			rd := *q.ReturnData
			cq.ReturnData = &rd
		}
		out.Metrics[i] = cq
	}
	return out
}

// ToPutMetricAlarmInput converts the payload to the CloudWatch API shape.
func (p Payload) ToPutMetricAlarmInput() *cloudwatch.PutMetricAlarmInput {
	input := &cloudwatch.PutMetricAlarmInput{
		AlarmName:          aws.String(p.AlarmName),
		EvaluationPeriods:  aws.Int32(p.EvaluationPeriods),
		Threshold:          aws.Float64(p.Threshold),
		ComparisonOperator: cwtypes.ComparisonOperator(p.ComparisonOperator),
	}
	if p.AlarmDescription != "" {
		input.AlarmDescription = aws.String(p.AlarmDescription)
	}
	if p.DatapointsToAlarm > 0 {
		input.DatapointsToAlarm = aws.Int32(p.DatapointsToAlarm)
	}
	if p.TreatMissingData != "" {
		input.TreatMissingData = aws.String(p.TreatMissingData)
	}

	if len(p.Metrics) > 0 {
		for _, q := range p.Metrics {
			mq := cwtypes.MetricDataQuery{
				Id:         aws.String(q.ID),
				ReturnData: q.ReturnData,
			}
			if q.Expression != "" {
				mq.Expression = aws.String(q.Expression)
			}
			if q.Label != "" {
				mq.Label = aws.String(q.Label)
			}
			if q.MetricStat != nil {
				mq.MetricStat = &cwtypes.MetricStat{
					Metric: &cwtypes.Metric{
						Namespace:  aws.String(q.MetricStat.Metric.Namespace),
						MetricName: aws.String(q.MetricStat.Metric.MetricName),
						Dimensions: toCWDimensions(q.MetricStat.Metric.Dimensions),
					},
					Period: aws.Int32(q.MetricStat.Period),
					Stat:   aws.String(q.MetricStat.Stat),
				}
			}
			input.Metrics = append(input.Metrics, mq)
		}
		return input
	}

	input.Namespace = aws.String(p.Namespace)
	input.MetricName = aws.String(p.MetricName)
	input.Dimensions = toCWDimensions(p.Dimensions)
	if p.Statistic != "" {
		input.Statistic = cwtypes.Statistic(p.Statistic)
	}
	if p.Period > 0 {
		input.Period = aws.Int32(p.Period)
	}
	return input
}

func toCWDimensions(dims []Dimension) []cwtypes.Dimension {
	out := make([]cwtypes.Dimension, len(dims))
	for i, d := range dims {
		out[i] = cwtypes.Dimension{Name: aws.String(d.Name), Value: aws.String(d.Value)}
	}
	return out
}

// Template is a declarative alarm fragment from the catalog. Configuration
// is read-only; builders clone it before instantiation.
type Template struct {
	Name          string               `json:"name" yaml:"name"`
	ServiceType   string               `json:"serviceType" yaml:"serviceType"`
	MetricType    MetricClassification `json:"metricType" yaml:"metricType"`
	Configuration Payload              `json:"configuration" yaml:"configuration"`
}

// Configuration is a template instantiated against a specific resource,
// ready for alarm creation. Edge configurations carry the region whose
// metrics back the alarm.
type Configuration struct {
	AlarmName    string      `json:"alarmName" yaml:"alarmName"`
	Resource     ResourceArn `json:"resource" yaml:"resource"`
	Payload      Payload     `json:"payload" yaml:"payload"`
	IsLambdaEdge bool        `json:"isLambdaEdge,omitempty" yaml:"isLambdaEdge,omitempty"`
	MetricRegion string      `json:"metricRegion,omitempty" yaml:"metricRegion,omitempty"`
}
