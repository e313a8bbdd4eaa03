package validate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/keyspaces"
	kstypes "github.com/aws/aws-sdk-go-v2/service/keyspaces/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"

	"github.com/idrcli/awsidr/internal/alarm"
)

type fakeSNS struct {
	subs    []snstypes.Subscription
	subsErr error
	attrs   map[string]map[string]string
}

func (f *fakeSNS) Subscriptions(ctx context.Context, topicARN, region string) ([]snstypes.Subscription, error) {
	return f.subs, f.subsErr
}

func (f *fakeSNS) SubscriptionAttributes(ctx context.Context, subscriptionARN, region string) (map[string]string, error) {
	attrs, ok := f.attrs[subscriptionARN]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return attrs, nil
}

type fakeLambda struct {
	out        *lambda.GetFunctionConfigurationOutput
	err        error
	lastRegion string
	lastName   string
}

func (f *fakeLambda) FunctionConfiguration(ctx context.Context, functionName, region string) (*lambda.GetFunctionConfigurationOutput, error) {
	f.lastName = functionName
	f.lastRegion = region
	return f.out, f.err
}

type fakeDynamo struct {
	table *ddbtypes.TableDescription
	err   error
}

func (f *fakeDynamo) Table(ctx context.Context, tableName, region string) (*ddbtypes.TableDescription, error) {
	return f.table, f.err
}

type fakeKeyspaces struct {
	out   *keyspaces.GetKeyspaceOutput
	err   error
	calls int
}

func (f *fakeKeyspaces) Keyspace(ctx context.Context, keyspaceName, region string) (*keyspaces.GetKeyspaceOutput, error) {
	f.calls++
	return f.out, f.err
}

type fakeRDS struct {
	instances []rdstypes.DBInstance
	err       error
}

func (f *fakeRDS) DBInstances(ctx context.Context, instanceID, region string) ([]rdstypes.DBInstance, error) {
	return f.instances, f.err
}

type fakeS3 struct {
	configs []s3types.MetricsConfiguration
	err     error
}

func (f *fakeS3) BucketMetricsConfigurations(ctx context.Context, bucket, region string) ([]s3types.MetricsConfiguration, error) {
	return f.configs, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newChecker(sns *fakeSNS, lam *fakeLambda, dyn *fakeDynamo, ks *fakeKeyspaces, rds *fakeRDS, s3 *fakeS3) *ConditionalChecker {
	if sns == nil {
		sns = &fakeSNS{}
	}
	if lam == nil {
		lam = &fakeLambda{}
	}
	if dyn == nil {
		dyn = &fakeDynamo{}
	}
	if ks == nil {
		ks = &fakeKeyspaces{}
	}
	if rds == nil {
		rds = &fakeRDS{}
	}
	if s3 == nil {
		s3 = &fakeS3{}
	}
	return NewConditionalChecker(sns, lam, dyn, ks, rds, s3, discardLogger())
}

func TestSNSRedriveRequiresRedrivePolicy(t *testing.T) {
	topic := alarm.ResourceArn{
		Type:   alarm.ServiceSNS,
		ARN:    "arn:aws:sns:us-east-1:123456789012:orders",
		Region: "us-east-1",
	}
	sns := &fakeSNS{
		subs: []snstypes.Subscription{
			{SubscriptionArn: aws.String("PendingConfirmation")},
			{SubscriptionArn: aws.String("arn:aws:sns:us-east-1:123456789012:orders:sub-1")},
			{SubscriptionArn: aws.String("arn:aws:sns:us-east-1:123456789012:orders:sub-2")},
		},
		attrs: map[string]map[string]string{
			"arn:aws:sns:us-east-1:123456789012:orders:sub-1": {},
			"arn:aws:sns:us-east-1:123456789012:orders:sub-2": {"RedrivePolicy": `{"deadLetterTargetArn":"arn:aws:sqs:us-east-1:123456789012:dlq"}`},
		},
	}
	c := newChecker(sns, nil, nil, nil, nil, nil)

	assert.True(t, c.Check(context.Background(), topic, "NumberOfNotificationsRedrivenToDlq"))
	assert.False(t, c.Check(context.Background(), topic, "NumberOfNotificationsFilteredOut"),
		"no subscription carries a FilterPolicy")
	assert.False(t, c.Check(context.Background(), topic, "NumberOfNotificationsFailed"),
		"no rule for this metric")
}

func TestSNSListFailureFailsClosed(t *testing.T) {
	topic := alarm.ResourceArn{Type: alarm.ServiceSNS, ARN: "arn:aws:sns:us-east-1:123456789012:orders", Region: "us-east-1"}
	c := newChecker(&fakeSNS{subsErr: errors.New("denied")}, nil, nil, nil, nil, nil)

	assert.False(t, c.Check(context.Background(), topic, "NumberOfNotificationsRedrivenToDlq"))
}

func TestLambdaDeadLetterLooksUpHomeRegion(t *testing.T) {
	lam := &fakeLambda{out: &lambda.GetFunctionConfigurationOutput{
		DeadLetterConfig: &lambdatypes.DeadLetterConfig{
			TargetArn: aws.String("arn:aws:sqs:us-east-1:123456789012:dlq"),
		},
	}}
	c := newChecker(nil, lam, nil, nil, nil, nil)

	// Edge alarm context: the resource carries the metric region, but the
	// function lives in the ARN's region.
	res := alarm.ResourceArn{
		Type:   alarm.ServiceLambda,
		ARN:    "arn:aws:lambda:us-east-1:123456789012:function:viewer-request:3",
		Region: "eu-west-1",
	}
	assert.True(t, c.Check(context.Background(), res, "DeadLetterErrors"))
	assert.Equal(t, "us-east-1", lam.lastRegion)
	assert.Equal(t, "viewer-request", lam.lastName)
}

func TestLambdaWithoutDeadLetterTargetFails(t *testing.T) {
	lam := &fakeLambda{out: &lambda.GetFunctionConfigurationOutput{}}
	c := newChecker(nil, lam, nil, nil, nil, nil)

	res := alarm.ResourceArn{
		Type:   alarm.ServiceLambda,
		ARN:    "arn:aws:lambda:us-east-1:123456789012:function:viewer-request",
		Region: "us-east-1",
	}
	assert.False(t, c.Check(context.Background(), res, "DeadLetterErrors"))
	assert.False(t, c.Check(context.Background(), res, "Errors"), "no rule for this metric")
}

func TestDynamoDBReplicationRequiresGlobalTable(t *testing.T) {
	res := alarm.ResourceArn{
		Type:   alarm.ServiceDynamoDB,
		ARN:    "arn:aws:dynamodb:us-east-1:123456789012:table/orders",
		Region: "us-east-1",
	}

	global := newChecker(nil, nil, &fakeDynamo{table: &ddbtypes.TableDescription{
		GlobalTableVersion: aws.String("2019.11.21"),
	}}, nil, nil, nil)
	assert.True(t, global.Check(context.Background(), res, "ReplicationLatency"))

	regional := newChecker(nil, nil, &fakeDynamo{table: &ddbtypes.TableDescription{}}, nil, nil, nil)
	assert.False(t, regional.Check(context.Background(), res, "ReplicationLatency"))
}

func TestKeyspacesReplicationRequiresMultiRegion(t *testing.T) {
	res := alarm.ResourceArn{
		Type:   alarm.ServiceCassandra,
		ARN:    "arn:aws:cassandra:us-east-1:123456789012:/keyspace/orders/",
		Region: "us-east-1",
	}

	multi := newChecker(nil, nil, nil, &fakeKeyspaces{out: &keyspaces.GetKeyspaceOutput{
		ReplicationStrategy: kstypes.RsMultiRegion,
		ReplicationRegions:  []string{"us-east-1", "eu-west-1"},
	}}, nil, nil)
	assert.True(t, multi.Check(context.Background(), res, "ReplicationLatency"))

	single := newChecker(nil, nil, nil, &fakeKeyspaces{out: &keyspaces.GetKeyspaceOutput{
		ReplicationStrategy: kstypes.RsSingleRegion,
	}}, nil, nil)
	assert.False(t, single.Check(context.Background(), res, "ReplicationLatency"))
}

func TestKeyspacesPlaceholderARNFailsWithoutLookup(t *testing.T) {
	ks := &fakeKeyspaces{out: &keyspaces.GetKeyspaceOutput{
		ReplicationStrategy: kstypes.RsMultiRegion,
		ReplicationRegions:  []string{"us-east-1", "eu-west-1"},
	}}
	c := newChecker(nil, nil, nil, ks, nil, nil)

	res := alarm.ResourceArn{
		Type:   alarm.ServiceCassandra,
		ARN:    "arn:aws:cassandra:us-east-1:123456789012:/keyspace/",
		Region: "us-east-1",
	}
	assert.False(t, c.Check(context.Background(), res, "ReplicationLatency"))
	assert.Equal(t, 0, ks.calls)
}

func TestRDSReplicaLagRequiresReplicaSource(t *testing.T) {
	res := alarm.ResourceArn{
		Type:   alarm.ServiceRDS,
		ARN:    "arn:aws:rds:us-east-1:123456789012:db:orders-replica",
		Region: "us-east-1",
	}

	replica := newChecker(nil, nil, nil, nil, &fakeRDS{instances: []rdstypes.DBInstance{
		{ReadReplicaSourceDBInstanceIdentifier: aws.String("orders-primary")},
	}}, nil)
	assert.True(t, replica.Check(context.Background(), res, "ReplicaLag"))

	primary := newChecker(nil, nil, nil, nil, &fakeRDS{instances: []rdstypes.DBInstance{{}}}, nil)
	assert.False(t, primary.Check(context.Background(), res, "ReplicaLag"))
}

func TestS3RequestMetricsRequireConfiguration(t *testing.T) {
	res := alarm.ResourceArn{
		Type:   alarm.ServiceS3,
		ARN:    "arn:aws:s3:::assets-bucket",
		Region: "us-east-1",
	}

	enabled := newChecker(nil, nil, nil, nil, nil, &fakeS3{configs: []s3types.MetricsConfiguration{
		{Id: aws.String("EntireBucket")},
	}})
	assert.True(t, enabled.Check(context.Background(), res, "TotalRequestLatency"))

	disabled := newChecker(nil, nil, nil, nil, nil, &fakeS3{})
	assert.False(t, disabled.Check(context.Background(), res, "TotalRequestLatency"))

	failing := newChecker(nil, nil, nil, nil, nil, &fakeS3{err: errors.New("denied")})
	assert.False(t, failing.Check(context.Background(), res, "TotalRequestLatency"))
}

func TestUnknownServiceFailsClosed(t *testing.T) {
	c := newChecker(nil, nil, nil, nil, nil, nil)
	res := alarm.ResourceArn{Type: "sqs", ARN: "arn:aws:sqs:us-east-1:123456789012:queue", Region: "us-east-1"}

	assert.False(t, c.Check(context.Background(), res, "ApproximateAgeOfOldestMessage"))
}
