// Package awsapi holds the thin AWS accessors the alarm workflows depend on.
// Each accessor wraps one service client, caches regional copies, and leaves
// retry policy to the SDK retryer configured on the shared session.
package awsapi

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/idrcli/awsidr/internal/version"
)

// maxAPIAttempts is the retry budget for transient provider errors.
// Exhausted retries surface to callers as a single failure; the feasibility
// layers degrade gracefully instead of propagating.
const maxAPIAttempts = 5

// Session encapsulates AWS SDK configuration: credential resolution, region
// handling, retry policy, and middleware injection.
type Session struct {
	Config aws.Config
	STS    *sts.Client
}

// NewSession initializes an authenticated session rooted in the given region.
func NewSession(ctx context.Context, region, profile string) (*Session, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAPIAttempts)
		}),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	// Local endpoint override, used for mocking/testing.
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// Inject a User-Agent suffix so support engineers can attribute API
	// traffic to the CLI.
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("AwsidrUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				req.Header.Set("User-Agent", fmt.Sprintf("%s %s/%s", ua, version.AppName, version.Current))
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	return &Session{
		Config: cfg,
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// VerifyIdentity validates the session credentials and returns the canonical
// account ID.
func (s *Session) VerifyIdentity(ctx context.Context) (string, error) {
	result, err := s.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return *result.Account, nil
}

// ConfigForRegion returns a regional configuration copy. Accessors use this
// to build per-region clients for cross-region resources.
func (s *Session) ConfigForRegion(region string) aws.Config {
	cfg := s.Config.Copy()
	cfg.Region = region
	return cfg
}
