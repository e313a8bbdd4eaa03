// Package edge detects Lambda@Edge functions via their CloudFront
// associations and routes their alarms to the regions where replica
// metrics actually appear.
package edge

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/idrcli/awsidr/internal/arn"
	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/pool"
)

// DistributionLister is the CloudFront slice the association cache uses.
type DistributionLister interface {
	ListDistributionIDs(ctx context.Context) ([]string, error)
	DistributionConfig(ctx context.Context, distID string) (*cftypes.DistributionConfig, error)
}

// loadState tracks the cache's one-shot load. loadFailed is permanent for
// the process: lookups after a failed load answer false instead of
// retrying a denied API.
type loadState int

const (
	notLoaded loadState = iota
	loadComplete
	loadFailed
)

// AssociationCache maps normalized Lambda function ARNs to the CloudFront
// distributions referencing them. The cache loads lazily on first query and
// exactly once per process.
type AssociationCache struct {
	cf  DistributionLister
	log *slog.Logger

	once  sync.Once
	state loadState

	mu    sync.Mutex
	assoc map[string]map[string]struct{}
}

func NewAssociationCache(cf DistributionLister, log *slog.Logger) *AssociationCache {
	return &AssociationCache{
		cf:    cf,
		log:   log,
		assoc: make(map[string]map[string]struct{}),
	}
}

// IsEdgeFunction reports whether the function ARN is associated with any
// CloudFront distribution. Non-Lambda ARNs short-circuit without touching
// the cache.
func (c *AssociationCache) IsEdgeFunction(ctx context.Context, functionARN string) bool {
	if !strings.HasPrefix(functionARN, "arn:aws:lambda:") {
		return false
	}
	c.once.Do(func() { c.load(ctx) })
	if c.state != loadComplete {
		return false
	}
	_, ok := c.assoc[arn.NormalizeLambda(functionARN)]
	return ok
}

// AssociatedDistributions returns the sorted distribution IDs referencing
// the function, or nil when it has none.
func (c *AssociationCache) AssociatedDistributions(ctx context.Context, functionARN string) []string {
	if !c.IsEdgeFunction(ctx, functionARN) {
		return nil
	}
	ids := make([]string, 0, len(c.assoc[arn.NormalizeLambda(functionARN)]))
	for id := range c.assoc[arn.NormalizeLambda(functionARN)] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *AssociationCache) load(ctx context.Context) {
	ids, err := c.cf.ListDistributionIDs(ctx)
	if err != nil {
		if awsapi.IsAccessDenied(err) {
			c.log.Warn("CloudFront access denied, Lambda@Edge detection disabled for this run", "error", err)
		} else {
			c.log.Warn("Listing CloudFront distributions failed, Lambda@Edge detection disabled for this run", "error", err)
		}
		c.state = loadFailed
		return
	}

	p := pool.New(ctx, pool.MaxParallelWorkers)
	for _, id := range ids {
		distID := id
		p.Submit(func(ctx context.Context) error {
			cfg, err := c.cf.DistributionConfig(ctx, distID)
			if err != nil {
				c.log.Warn("Skipping distribution with unreadable config", "distribution_id", distID, "error", err)
				return err
			}
			if cfg != nil {
				c.insert(distID, cfg)
			}
			return nil
		})
	}
	p.Join()

	c.state = loadComplete
	c.log.Info("Loaded Lambda@Edge association cache",
		"distributions", len(ids), "edge_functions", len(c.assoc))
}

func (c *AssociationCache) insert(distID string, cfg *cftypes.DistributionConfig) {
	var arns []string
	if cfg.DefaultCacheBehavior != nil {
		arns = append(arns, associationARNs(cfg.DefaultCacheBehavior.LambdaFunctionAssociations)...)
	}
	if cfg.CacheBehaviors != nil {
		for _, b := range cfg.CacheBehaviors.Items {
			arns = append(arns, associationARNs(b.LambdaFunctionAssociations)...)
		}
	}
	if len(arns) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range arns {
		key := arn.NormalizeLambda(a)
		if c.assoc[key] == nil {
			c.assoc[key] = make(map[string]struct{})
		}
		c.assoc[key][distID] = struct{}{}
	}
}

func associationARNs(assoc *cftypes.LambdaFunctionAssociations) []string {
	if assoc == nil {
		return nil
	}
	var out []string
	for _, item := range assoc.Items {
		if item.LambdaFunctionARN != nil {
			out = append(out, *item.LambdaFunctionARN)
		}
	}
	return out
}
