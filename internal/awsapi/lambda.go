package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// LambdaAPI is the slice of the Lambda API used by conditional validation.
type LambdaAPI interface {
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
}

// LambdaAccessor provides Lambda configuration lookups across regions.
type LambdaAccessor struct {
	log       *slog.Logger
	newClient func(region string) LambdaAPI

	mu      sync.Mutex
	clients map[string]LambdaAPI
}

func NewLambdaAccessor(sess *Session, log *slog.Logger) *LambdaAccessor {
	return &LambdaAccessor{
		log: log,
		newClient: func(region string) LambdaAPI {
			return lambda.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]LambdaAPI),
	}
}

// NewLambdaAccessorWithFactory is the injection point for tests.
func NewLambdaAccessorWithFactory(factory func(region string) LambdaAPI, log *slog.Logger) *LambdaAccessor {
	return &LambdaAccessor{log: log, newClient: factory, clients: make(map[string]LambdaAPI)}
}

func (a *LambdaAccessor) client(region string) LambdaAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// FunctionConfiguration fetches a function's configuration from the given
// region. For edge functions callers must pass the ARN's region, not the
// metric region; the function only exists where it was deployed.
func (a *LambdaAccessor) FunctionConfiguration(ctx context.Context, functionName, region string) (*lambda.GetFunctionConfigurationOutput, error) {
	out, err := a.client(region).GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		return nil, fmt.Errorf("get function configuration %s in %s: %w", functionName, region, err)
	}
	return out, nil
}
