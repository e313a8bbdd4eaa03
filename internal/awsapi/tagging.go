package awsapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	taggingtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
)

// TaggingAPI is the slice of the Resource Groups Tagging API used by
// workload discovery.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

// TaggingAccessor discovers resource ARNs by tag across regions.
type TaggingAccessor struct {
	log       *slog.Logger
	newClient func(region string) TaggingAPI

	mu      sync.Mutex
	clients map[string]TaggingAPI
}

func NewTaggingAccessor(sess *Session, log *slog.Logger) *TaggingAccessor {
	return &TaggingAccessor{
		log: log,
		newClient: func(region string) TaggingAPI {
			return resourcegroupstaggingapi.NewFromConfig(sess.ConfigForRegion(region))
		},
		clients: make(map[string]TaggingAPI),
	}
}

// NewTaggingAccessorWithFactory is the injection point for tests.
func NewTaggingAccessorWithFactory(factory func(region string) TaggingAPI, log *slog.Logger) *TaggingAccessor {
	return &TaggingAccessor{log: log, newClient: factory, clients: make(map[string]TaggingAPI)}
}

func (a *TaggingAccessor) client(region string) TaggingAPI {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[region]; ok {
		return c
	}
	c := a.newClient(region)
	a.clients[region] = c
	return c
}

// ResourceARNsByTag returns every resource ARN in the region carrying the
// given tag key/value.
func (a *TaggingAccessor) ResourceARNsByTag(ctx context.Context, key, value, region string) ([]string, error) {
	var arns []string

	paginator := resourcegroupstaggingapi.NewGetResourcesPaginator(a.client(region), &resourcegroupstaggingapi.GetResourcesInput{
		TagFilters: []taggingtypes.TagFilter{
			{Key: aws.String(key), Values: []string{value}},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("get resources by tag %s=%s in %s: %w", key, value, region, err)
		}
		for _, m := range page.ResourceTagMappingList {
			if m.ResourceARN != nil {
				arns = append(arns, *m.ResourceARN)
			}
		}
	}

	a.log.Info("Discovered tagged resources", "tag", key+"="+value, "region", region, "count", len(arns))
	return arns, nil
}
