package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the slice of the DynamoDB API used by conditional validation.
type DynamoDBAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoDBAccessor provides table lookups across regions.
type DynamoDBAccessor struct {
	log       *slog.Logger
	newClient func(region string) DynamoDBAPI

	mu      sync.Mutex
	clients map[string]DynamoDBAPI
}

func NewDynamoDBAccessor(sess *Session, log *slog.Logger) *DynamoDBAccessor {
	return &DynamoDBAccessor{
		log: log,
		newClient: func(region string) DynamoDBAPI {
			return dynamodb.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]DynamoDBAPI),
	}
}

// NewDynamoDBAccessorWithFactory is the injection point for tests.
func NewDynamoDBAccessorWithFactory(factory func(region string) DynamoDBAPI, log *slog.Logger) *DynamoDBAccessor {
	return &DynamoDBAccessor{log: log, newClient: factory, clients: make(map[string]DynamoDBAPI)}
}

func (a *DynamoDBAccessor) client(region string) DynamoDBAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// Table describes a DynamoDB table.
func (a *DynamoDBAccessor) Table(ctx context.Context, tableName, region string) (*ddbtypes.TableDescription, error) {
	out, err := a.client(region).DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("describe table %s in %s: %w", tableName, region, err)
	}
	return out.Table, nil
}
