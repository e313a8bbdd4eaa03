package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
)

// RDSAPI is the slice of the RDS API used by conditional validation.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// RDSAccessor provides DB instance lookups across regions.
type RDSAccessor struct {
	log       *slog.Logger
	newClient func(region string) RDSAPI

	mu      sync.Mutex
	clients map[string]RDSAPI
}

func NewRDSAccessor(sess *Session, log *slog.Logger) *RDSAccessor {
	return &RDSAccessor{
		log: log,
		newClient: func(region string) RDSAPI {
			return rds.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]RDSAPI),
	}
}

// NewRDSAccessorWithFactory is the injection point for tests.
func NewRDSAccessorWithFactory(factory func(region string) RDSAPI, log *slog.Logger) *RDSAccessor {
	return &RDSAccessor{log: log, newClient: factory, clients: make(map[string]RDSAPI)}
}

func (a *RDSAccessor) client(region string) RDSAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// DBInstances describes the instances matching the given identifier.
func (a *RDSAccessor) DBInstances(ctx context.Context, instanceID, region string) ([]rdstypes.DBInstance, error) {
	out, err := a.client(region).DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(instanceID),
	})
	if err != nil {
		return nil, fmt.Errorf("describe db instances %s in %s: %w", instanceID, region, err)
	}
	return out.DBInstances, nil
}
