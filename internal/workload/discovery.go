// Package workload ties the pieces together: it discovers a workload's
// tagged resources, drives alarm creation and ingestion, and files the
// onboarding support case.
package workload

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/idrcli/awsidr/internal/alarm"
	"github.com/idrcli/awsidr/internal/arn"
	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/pool"
)

// TagReader lists resource ARNs by tag in one region.
type TagReader interface {
	ResourceARNsByTag(ctx context.Context, key, value, region string) ([]string, error)
}

// RegionLister enumerates the regions enabled for the account.
type RegionLister interface {
	Regions(ctx context.Context) ([]string, error)
}

// BucketLocator resolves an S3 bucket's home region.
type BucketLocator interface {
	BucketLocation(ctx context.Context, bucket string) (string, error)
}

// Discoverer finds a workload's resources by tag across every enabled
// region.
type Discoverer struct {
	tagging TagReader
	regions RegionLister
	buckets BucketLocator
	log     *slog.Logger
}

func NewDiscoverer(tagging TagReader, regions RegionLister, buckets BucketLocator, log *slog.Logger) *Discoverer {
	return &Discoverer{tagging: tagging, regions: regions, buckets: buckets, log: log}
}

// Discover fans the tag query out across regions and returns the typed,
// deduplicated resource list sorted by ARN. Regions that fail to answer are
// skipped; resources of services the catalog cannot alarm on are dropped.
func (d *Discoverer) Discover(ctx context.Context, tagKey, tagValue string) ([]alarm.ResourceArn, error) {
	regions, err := d.regions.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions for discovery: %w", err)
	}

	var mu sync.Mutex
	seen := make(map[string]alarm.ResourceArn)

	p := pool.New(ctx, pool.MaxParallelWorkers)
	for _, r := range regions {
		region := r
		p.Submit(func(ctx context.Context) error {
			arns, err := d.tagging.ResourceARNsByTag(ctx, tagKey, tagValue, region)
			if err != nil {
				d.log.Warn("Tag discovery failed in region, skipping", "region", region, "error", err)
				return err
			}
			for _, raw := range arns {
				res, ok := d.resourceFor(ctx, raw)
				if !ok {
					continue
				}
				mu.Lock()
				seen[res.ARN] = res
				mu.Unlock()
			}
			return nil
		})
	}
	p.Join()

	out := make([]alarm.ResourceArn, 0, len(seen))
	for _, res := range seen {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ARN < out[j].ARN })

	d.log.Info("Discovered workload resources", "tag", tagKey+"="+tagValue, "count", len(out))
	return out, nil
}

func (d *Discoverer) resourceFor(ctx context.Context, raw string) (alarm.ResourceArn, bool) {
	parsed, err := arn.Parse(raw)
	if err != nil {
		d.log.Debug("Skipping unparseable ARN", "arn", raw, "error", err)
		return alarm.ResourceArn{}, false
	}
	serviceType, ok := alarm.ServiceTypeForARN(parsed)
	if !ok {
		d.log.Debug("Skipping resource with no alarm templates", "arn", raw, "service", parsed.Service)
		return alarm.ResourceArn{}, false
	}

	name, ok := resourceName(parsed, serviceType)
	if !ok {
		d.log.Debug("Skipping resource with no usable name", "arn", raw)
		return alarm.ResourceArn{}, false
	}

	region := parsed.Region
	if region == "" && serviceType == alarm.ServiceS3 {
		region = d.bucketRegion(ctx, name)
	}

	return alarm.ResourceArn{
		Type:   serviceType,
		ARN:    arn.NormalizeLambda(raw),
		Region: region,
		Name:   name,
	}, true
}

// bucketRegion resolves a bucket's home region up front so later metric
// probes hit the right endpoint. Unresolvable buckets keep the global
// pseudo-region and are resolved again at use time.
func (d *Discoverer) bucketRegion(ctx context.Context, bucket string) string {
	region, err := d.buckets.BucketLocation(ctx, bucket)
	if err != nil {
		d.log.Warn("Bucket region lookup failed, keeping global", "bucket", bucket, "error", err)
		return awsapi.GlobalRegion
	}
	return region
}

func resourceName(a arn.ARN, serviceType string) (string, bool) {
	switch serviceType {
	case alarm.ServiceLambda:
		return a.LambdaFunctionName(), true
	case alarm.ServiceSNS:
		return a.Resource, a.Resource != ""
	case alarm.ServiceDynamoDB:
		return a.DynamoTableName(), a.DynamoTableName() != ""
	case alarm.ServiceCassandra:
		name, err := a.KeyspaceName()
		return name, err == nil
	case alarm.ServiceRDS:
		return a.RDSInstanceID(), a.RDSInstanceID() != ""
	case alarm.ServiceS3:
		return a.BucketName(), a.BucketName() != ""
	case alarm.ServiceECS, alarm.ServiceEKS:
		name := clusterName(a.Resource)
		return name, name != ""
	default:
		return "", false
	}
}

func clusterName(resource string) string {
	for i := len(resource) - 1; i >= 0; i-- {
		if resource[i] == '/' {
			return resource[i+1:]
		}
	}
	return resource
}
