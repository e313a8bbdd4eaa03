// Package validate decides which alarm templates can actually be created
// for a resource: whether the metric exists, whether a conditional metric's
// prerequisite configuration is present, and whether Container Insights
// namespaces are populated.
package validate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/keyspaces"
	kstypes "github.com/aws/aws-sdk-go-v2/service/keyspaces/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/idrcli/awsidr/internal/alarm"
	"github.com/idrcli/awsidr/internal/arn"
)

const pendingConfirmationARN = "PendingConfirmation"

// Accessor slices the conditional checks depend on.
type (
	SNSReader interface {
		Subscriptions(ctx context.Context, topicARN, region string) ([]snstypes.Subscription, error)
		SubscriptionAttributes(ctx context.Context, subscriptionARN, region string) (map[string]string, error)
	}
	LambdaReader interface {
		FunctionConfiguration(ctx context.Context, functionName, region string) (*lambda.GetFunctionConfigurationOutput, error)
	}
	DynamoReader interface {
		Table(ctx context.Context, tableName, region string) (*ddbtypes.TableDescription, error)
	}
	KeyspaceReader interface {
		Keyspace(ctx context.Context, keyspaceName, region string) (*keyspaces.GetKeyspaceOutput, error)
	}
	RDSReader interface {
		DBInstances(ctx context.Context, instanceID, region string) ([]rdstypes.DBInstance, error)
	}
	S3Reader interface {
		BucketMetricsConfigurations(ctx context.Context, bucket, region string) ([]s3types.MetricsConfiguration, error)
	}
)

// ConditionalChecker decides whether a conditional metric's prerequisite
// resource configuration exists. Every check fails closed: lookup errors,
// unknown services, and unknown metrics all answer false, so a template is
// only created when the prerequisite is positively confirmed.
type ConditionalChecker struct {
	sns       SNSReader
	lambda    LambdaReader
	dynamo    DynamoReader
	keyspaces KeyspaceReader
	rds       RDSReader
	s3        S3Reader
	log       *slog.Logger
}

func NewConditionalChecker(sns SNSReader, lam LambdaReader, dynamo DynamoReader, ks KeyspaceReader, rds RDSReader, s3 S3Reader, log *slog.Logger) *ConditionalChecker {
	return &ConditionalChecker{
		sns:       sns,
		lambda:    lam,
		dynamo:    dynamo,
		keyspaces: ks,
		rds:       rds,
		s3:        s3,
		log:       log,
	}
}

// Check reports whether the resource is configured to emit the metric.
func (c *ConditionalChecker) Check(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	switch res.Type {
	case alarm.ServiceSNS:
		return c.checkSNS(ctx, res, metricName)
	case alarm.ServiceLambda:
		return c.checkLambda(ctx, res, metricName)
	case alarm.ServiceDynamoDB:
		return c.checkDynamoDB(ctx, res, metricName)
	case alarm.ServiceCassandra:
		return c.checkKeyspaces(ctx, res, metricName)
	case alarm.ServiceRDS:
		return c.checkRDS(ctx, res, metricName)
	case alarm.ServiceS3:
		return c.checkS3(ctx, res, metricName)
	default:
		c.log.Debug("No conditional rule for service", "service", res.Type, "metric", metricName)
		return false
	}
}

// checkSNS maps DLQ-redrive metrics to a RedrivePolicy attribute and
// filter-out metrics to a FilterPolicy attribute on any confirmed
// subscription of the topic.
func (c *ConditionalChecker) checkSNS(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	var attribute string
	switch {
	case strings.Contains(metricName, "RedrivenToDlq"):
		attribute = "RedrivePolicy"
	case strings.Contains(metricName, "FilteredOut"):
		attribute = "FilterPolicy"
	default:
		c.log.Debug("No conditional rule for SNS metric", "metric", metricName)
		return false
	}

	subs, err := c.sns.Subscriptions(ctx, res.ARN, res.Region)
	if err != nil {
		c.log.Warn("Listing topic subscriptions failed", "topic", res.ARN, "error", err)
		return false
	}

	for _, sub := range subs {
		subARN := aws.ToString(sub.SubscriptionArn)
		if subARN == "" || subARN == pendingConfirmationARN {
			continue
		}
		attrs, err := c.sns.SubscriptionAttributes(ctx, subARN, res.Region)
		if err != nil {
			c.log.Warn("Fetching subscription attributes failed", "subscription", subARN, "error", err)
			continue
		}
		if attrs[attribute] != "" {
			return true
		}
	}
	return false
}

// checkLambda confirms a dead-letter target. The lookup goes to the ARN's
// region: an edge function's configuration lives where it was deployed,
// never in the region whose metrics the alarm watches.
func (c *ConditionalChecker) checkLambda(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	if metricName != "DeadLetterErrors" {
		c.log.Debug("No conditional rule for Lambda metric", "metric", metricName)
		return false
	}

	parsed, err := arn.Parse(arn.NormalizeLambda(res.ARN))
	if err != nil {
		c.log.Warn("Unparseable function ARN", "arn", res.ARN, "error", err)
		return false
	}

	cfg, err := c.lambda.FunctionConfiguration(ctx, parsed.LambdaFunctionName(), parsed.Region)
	if err != nil {
		c.log.Warn("Fetching function configuration failed", "function", res.ARN, "error", err)
		return false
	}
	return cfg.DeadLetterConfig != nil && aws.ToString(cfg.DeadLetterConfig.TargetArn) != ""
}

func (c *ConditionalChecker) checkDynamoDB(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	if metricName != "ReplicationLatency" {
		c.log.Debug("No conditional rule for DynamoDB metric", "metric", metricName)
		return false
	}

	parsed, err := arn.Parse(res.ARN)
	if err != nil {
		c.log.Warn("Unparseable table ARN", "arn", res.ARN, "error", err)
		return false
	}

	table, err := c.dynamo.Table(ctx, parsed.DynamoTableName(), res.Region)
	if err != nil {
		c.log.Warn("Describing table failed", "table", res.ARN, "error", err)
		return false
	}
	return table != nil && aws.ToString(table.GlobalTableVersion) != ""
}

func (c *ConditionalChecker) checkKeyspaces(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	if metricName != "ReplicationLatency" {
		c.log.Debug("No conditional rule for Keyspaces metric", "metric", metricName)
		return false
	}

	parsed, err := arn.Parse(res.ARN)
	if err != nil {
		c.log.Warn("Unparseable keyspace ARN", "arn", res.ARN, "error", err)
		return false
	}
	name, err := parsed.KeyspaceName()
	if err != nil {
		c.log.Warn("Keyspace name unavailable", "arn", res.ARN, "error", err)
		return false
	}

	ks, err := c.keyspaces.Keyspace(ctx, name, res.Region)
	if err != nil {
		c.log.Warn("Fetching keyspace failed", "keyspace", name, "error", err)
		return false
	}
	return ks.ReplicationStrategy == kstypes.RsMultiRegion && len(ks.ReplicationRegions) > 1
}

func (c *ConditionalChecker) checkRDS(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	if metricName != "ReplicaLag" {
		c.log.Debug("No conditional rule for RDS metric", "metric", metricName)
		return false
	}

	parsed, err := arn.Parse(res.ARN)
	if err != nil {
		c.log.Warn("Unparseable DB instance ARN", "arn", res.ARN, "error", err)
		return false
	}

	instances, err := c.rds.DBInstances(ctx, parsed.RDSInstanceID(), res.Region)
	if err != nil {
		c.log.Warn("Describing DB instance failed", "instance", res.ARN, "error", err)
		return false
	}
	for _, inst := range instances {
		if aws.ToString(inst.ReadReplicaSourceDBInstanceIdentifier) != "" {
			return true
		}
	}
	return false
}

// checkS3 requires at least one request-metrics configuration on the
// bucket. AWS/S3 request metrics are only published for buckets that opted
// in, regardless of which metric the template names.
func (c *ConditionalChecker) checkS3(ctx context.Context, res alarm.ResourceArn, metricName string) bool {
	parsed, err := arn.Parse(res.ARN)
	if err != nil {
		c.log.Warn("Unparseable bucket ARN", "arn", res.ARN, "error", err)
		return false
	}

	configs, err := c.s3.BucketMetricsConfigurations(ctx, parsed.BucketName(), res.Region)
	if err != nil {
		c.log.Warn("Listing bucket metrics configurations failed", "bucket", res.ARN, "error", err)
		return false
	}
	return len(configs) > 0
}
