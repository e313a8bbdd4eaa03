package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/keyspaces"
)

// KeyspacesAPI is the slice of the Keyspaces API used by conditional
// validation.
type KeyspacesAPI interface {
	GetKeyspace(ctx context.Context, params *keyspaces.GetKeyspaceInput, optFns ...func(*keyspaces.Options)) (*keyspaces.GetKeyspaceOutput, error)
}

// KeyspacesAccessor provides keyspace lookups across regions.
type KeyspacesAccessor struct {
	log       *slog.Logger
	newClient func(region string) KeyspacesAPI

	mu      sync.Mutex
	clients map[string]KeyspacesAPI
}

func NewKeyspacesAccessor(sess *Session, log *slog.Logger) *KeyspacesAccessor {
	return &KeyspacesAccessor{
		log: log,
		newClient: func(region string) KeyspacesAPI {
			return keyspaces.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]KeyspacesAPI),
	}
}

// NewKeyspacesAccessorWithFactory is the injection point for tests.
func NewKeyspacesAccessorWithFactory(factory func(region string) KeyspacesAPI, log *slog.Logger) *KeyspacesAccessor {
	return &KeyspacesAccessor{log: log, newClient: factory, clients: make(map[string]KeyspacesAPI)}
}

func (a *KeyspacesAccessor) client(region string) KeyspacesAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// Keyspace fetches keyspace details, including replication configuration.
func (a *KeyspacesAccessor) Keyspace(ctx context.Context, keyspaceName, region string) (*keyspaces.GetKeyspaceOutput, error) {
	out, err := a.client(region).GetKeyspace(ctx, &keyspaces.GetKeyspaceInput{
		KeyspaceName: aws.String(keyspaceName),
	})
	if err != nil {
		return nil, fmt.Errorf("get keyspace %s in %s: %w", keyspaceName, region, err)
	}
	return out, nil
}
