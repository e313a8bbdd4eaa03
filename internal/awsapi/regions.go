package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// USEast1 is the home region for global services: CloudFront, Lambda@Edge
// deployment, and the Support API.
const USEast1 = "us-east-1"

// EC2RegionsAPI is the slice of the EC2 API the directory needs.
type EC2RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// RegionDirectory lists valid AWS regions, memoized for the process lifetime.
// Region discovery backs both input validation and the Lambda@Edge metric
// scan, so the API is only hit once per run.
type RegionDirectory struct {
	api EC2RegionsAPI
	log *slog.Logger

	once    sync.Once
	regions []string
	loadErr error
}

// NewRegionDirectory builds a directory over the session's home region.
func NewRegionDirectory(sess *Session, log *slog.Logger) *RegionDirectory {
	return &RegionDirectory{
		api: ec2.NewFromConfig(sess.ConfigForRegion(USEast1)),
		log: log,
	}
}

// NewRegionDirectoryWithAPI is the injection point for tests.
func NewRegionDirectoryWithAPI(api EC2RegionsAPI, log *slog.Logger) *RegionDirectory {
	return &RegionDirectory{api: api, log: log}
}

// Regions returns all available region names. The first call queries EC2;
// later calls return the memoized result.
func (d *RegionDirectory) Regions(ctx context.Context) ([]string, error) {
	d.once.Do(func() {
		out, err := d.api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
		if err != nil {
			d.loadErr = fmt.Errorf("describe regions: %w", err)
			return
		}
		for _, r := range out.Regions {
			if r.RegionName != nil {
				d.regions = append(d.regions, *r.RegionName)
			}
		}
		d.log.Debug("Region directory loaded", "count", len(d.regions))
	})
	return d.regions, d.loadErr
}
