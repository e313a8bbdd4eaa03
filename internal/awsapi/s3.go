package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// GlobalRegion is the pseudo-region resource discovery assigns to S3
// buckets. It must be resolved to the bucket's real region before any
// regional API call.
const GlobalRegion = "global"

// S3API is the slice of the S3 API used by conditional validation.
type S3API interface {
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	ListBucketMetricsConfigurations(ctx context.Context, params *s3.ListBucketMetricsConfigurationsInput, optFns ...func(*s3.Options)) (*s3.ListBucketMetricsConfigurationsOutput, error)
}

// S3Accessor provides bucket lookups across regions.
type S3Accessor struct {
	log       *slog.Logger
	newClient func(region string) S3API

	mu      sync.Mutex
	clients map[string]S3API
}

func NewS3Accessor(sess *Session, log *slog.Logger) *S3Accessor {
	return &S3Accessor{
		log: log,
		newClient: func(region string) S3API {
			return s3.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]S3API),
	}
}

// NewS3AccessorWithFactory is the injection point for tests.
func NewS3AccessorWithFactory(factory func(region string) S3API, log *slog.Logger) *S3Accessor {
	return &S3Accessor{log: log, newClient: factory, clients: make(map[string]S3API)}
}

func (a *S3Accessor) client(region string) S3API {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// BucketLocation returns the bucket's home region. GetBucketLocation
// reports an empty LocationConstraint for us-east-1 buckets.
func (a *S3Accessor) BucketLocation(ctx context.Context, bucket string) (string, error) {
	out, err := a.client(USEast1).GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", fmt.Errorf("get bucket location %s: %w", bucket, err)
	}
	if out.LocationConstraint == "" {
		return USEast1, nil
	}
	return string(out.LocationConstraint), nil
}

// BucketMetricsConfigurations lists the bucket's request-metrics
// configurations. A "global" region is resolved via BucketLocation first.
func (a *S3Accessor) BucketMetricsConfigurations(ctx context.Context, bucket, region string) ([]s3types.MetricsConfiguration, error) {
	if region == GlobalRegion {
		resolved, err := a.BucketLocation(ctx, bucket)
		if err != nil {
			return nil, err
		}
		region = resolved
	}

	var configs []s3types.MetricsConfiguration
	var token *string
	for {
		out, err := a.client(region).ListBucketMetricsConfigurations(ctx, &s3.ListBucketMetricsConfigurationsInput{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list bucket metrics configurations %s in %s: %w", bucket, region, err)
		}
		configs = append(configs, out.MetricsConfigurationList...)
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}
	return configs, nil
}
