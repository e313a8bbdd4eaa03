package awsapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
)

// CloudFrontAPI is the slice of the CloudFront API used by edge detection.
type CloudFrontAPI interface {
	ListDistributions(ctx context.Context, params *cloudfront.ListDistributionsInput, optFns ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error)
	GetDistribution(ctx context.Context, params *cloudfront.GetDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionOutput, error)
}

// CloudFrontAccessor provides data access to CloudFront distributions.
// CloudFront is a global service; clients are pinned to us-east-1.
type CloudFrontAccessor struct {
	api CloudFrontAPI
	log *slog.Logger
}

func NewCloudFrontAccessor(sess *Session, log *slog.Logger) *CloudFrontAccessor {
	return &CloudFrontAccessor{
		api: cloudfront.NewFromConfig(sess.ConfigForRegion(USEast1)),
		log: log,
	}
}

// NewCloudFrontAccessorWithAPI is the injection point for tests.
func NewCloudFrontAccessorWithAPI(api CloudFrontAPI, log *slog.Logger) *CloudFrontAccessor {
	return &CloudFrontAccessor{api: api, log: log}
}

// ListDistributionIDs returns the IDs of every distribution in the account.
func (a *CloudFrontAccessor) ListDistributionIDs(ctx context.Context) ([]string, error) {
	var ids []string

	paginator := cloudfront.NewListDistributionsPaginator(a.api, &cloudfront.ListDistributionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list distributions: %w", err)
		}
		if page.DistributionList == nil {
			continue
		}
		for _, d := range page.DistributionList.Items {
			if d.Id != nil {
				ids = append(ids, *d.Id)
			}
		}
	}

	a.log.Info("Found CloudFront distributions", "count", len(ids))
	return ids, nil
}

// DistributionConfig fetches a distribution's configuration. Returns
// (nil, nil) when the distribution no longer exists; deletions racing the
// list call are expected, not errors.
func (a *CloudFrontAccessor) DistributionConfig(ctx context.Context, distID string) (*cftypes.DistributionConfig, error) {
	out, err := a.api.GetDistribution(ctx, &cloudfront.GetDistributionInput{Id: aws.String(distID)})
	if err != nil {
		var notFound *cftypes.NoSuchDistribution
		if errors.As(err, &notFound) {
			a.log.Warn("CloudFront distribution not found", "id", distID)
			return nil, nil
		}
		return nil, fmt.Errorf("get distribution %s: %w", distID, err)
	}
	if out.Distribution == nil {
		return nil, nil
	}
	return out.Distribution.DistributionConfig, nil
}
