package edge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/pool"
)

// InvocationProber is the CloudWatch slice the scanner uses.
type InvocationProber interface {
	LambdaInvocationSum(ctx context.Context, dimensionValue, region string, lookback time.Duration) (float64, error)
}

// RegionLister enumerates the regions enabled for the account.
type RegionLister interface {
	Regions(ctx context.Context) ([]string, error)
}

// EdgeDimensionValue is the FunctionName dimension value Lambda@Edge
// replicas report under. CloudWatch uses the home-region prefix in every
// region the replica runs in, not the region's own name.
func EdgeDimensionValue(functionName string) string {
	return awsapi.USEast1 + "." + functionName
}

// RegionScanner finds the regions where an edge function's replicas have
// recently been invoked.
type RegionScanner struct {
	cw       InvocationProber
	regions  RegionLister
	log      *slog.Logger
	lookback time.Duration
}

func NewRegionScanner(cw InvocationProber, regions RegionLister, log *slog.Logger) *RegionScanner {
	return &RegionScanner{
		cw:       cw,
		regions:  regions,
		log:      log,
		lookback: awsapi.DefaultInvocationLookback,
	}
}

// WithLookback overrides the invocation lookback window.
func (s *RegionScanner) WithLookback(d time.Duration) *RegionScanner {
	s.lookback = d
	return s
}

// FindRegionsWithMetrics probes every enabled region in parallel and
// returns, sorted, those with a nonzero invocation sum over the lookback
// window. A region whose probe fails is treated as having no metrics.
func (s *RegionScanner) FindRegionsWithMetrics(ctx context.Context, functionName string) ([]string, error) {
	regions, err := s.regions.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions for edge metric scan: %w", err)
	}

	dimValue := EdgeDimensionValue(functionName)

	var mu sync.Mutex
	var active []string

	p := pool.New(ctx, pool.MaxParallelWorkers)
	for _, r := range regions {
		region := r
		p.Submit(func(ctx context.Context) error {
			sum, err := s.cw.LambdaInvocationSum(ctx, dimValue, region, s.lookback)
			if err != nil {
				s.log.Debug("Edge metric probe failed, excluding region",
					"function", functionName, "region", region, "error", err)
				return nil
			}
			if sum > 0 {
				mu.Lock()
				active = append(active, region)
				mu.Unlock()
			}
			return nil
		})
	}
	p.Join()

	sort.Strings(active)
	s.log.Info("Scanned regions for edge invocations",
		"function", functionName, "probed", len(regions), "active", len(active))
	return active, nil
}
