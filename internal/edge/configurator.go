package edge

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/idrcli/awsidr/internal/alarm"
	"github.com/idrcli/awsidr/internal/arn"
)

const functionNameDimension = "FunctionName"

// AssociationChecker answers whether a function ARN is a Lambda@Edge
// function.
type AssociationChecker interface {
	IsEdgeFunction(ctx context.Context, functionARN string) bool
}

// MetricRegionFinder locates the regions whose metrics back an edge
// function.
type MetricRegionFinder interface {
	FindRegionsWithMetrics(ctx context.Context, functionName string) ([]string, error)
}

// Configurator expands alarm configurations for Lambda@Edge functions into
// one configuration per region where replica metrics exist. Ordinary
// functions pass through untouched.
type Configurator struct {
	cache   AssociationChecker
	scanner MetricRegionFinder
	log     *slog.Logger
}

func NewConfigurator(cache AssociationChecker, scanner MetricRegionFinder, log *slog.Logger) *Configurator {
	return &Configurator{cache: cache, scanner: scanner, log: log}
}

// IsEdgeFunction reports whether the ARN belongs to a function associated
// with a CloudFront distribution, so callers can route edge resources past
// the single-region validation path before expanding.
func (c *Configurator) IsEdgeFunction(ctx context.Context, functionARN string) bool {
	return c.cache.IsEdgeFunction(ctx, functionARN)
}

// Expand returns the region-specific configurations for an edge function,
// or the input unchanged when the resource is not associated with any
// CloudFront distribution. cachedRegions, when non-empty, bypasses the
// metric scan so re-runs target the same regions as the first pass.
// An edge function with no active regions yields nothing: there is no
// metric anywhere for an alarm to watch.
func (c *Configurator) Expand(ctx context.Context, cfg alarm.Configuration, cachedRegions []string) ([]alarm.Configuration, error) {
	if !c.cache.IsEdgeFunction(ctx, cfg.Resource.ARN) {
		return []alarm.Configuration{cfg}, nil
	}

	parsed, err := arn.Parse(arn.NormalizeLambda(cfg.Resource.ARN))
	if err != nil {
		return nil, err
	}
	functionName := parsed.LambdaFunctionName()

	regions := cachedRegions
	if len(regions) == 0 {
		regions, err = c.scanner.FindRegionsWithMetrics(ctx, functionName)
		if err != nil {
			return nil, err
		}
	}
	if len(regions) == 0 {
		c.log.Warn("Edge function has no regions with recent invocations, skipping alarm",
			"function", functionName, "alarm", cfg.AlarmName)
		return nil, nil
	}

	return c.expandForRegions(cfg, functionName, regions), nil
}

func (c *Configurator) expandForRegions(cfg alarm.Configuration, functionName string, regions []string) []alarm.Configuration {
	dimValue := EdgeDimensionValue(functionName)

	out := make([]alarm.Configuration, 0, len(regions))
	for _, region := range regions {
		rc := cfg
		rc.Payload = cfg.Payload.Clone()
		rc.AlarmName = cfg.AlarmName + "-" + region
		rc.Payload.AlarmName = rc.AlarmName
		rewriteFunctionDimensions(&rc.Payload, dimValue)
		rc.IsLambdaEdge = true
		rc.MetricRegion = region
		out = append(out, rc)
	}
	return out
}

// rewriteFunctionDimensions points every FunctionName dimension at the
// edge replica's dimension value, in both the plain and metric-math forms.
func rewriteFunctionDimensions(p *alarm.Payload, dimValue string) {
	setFunctionDimension(p.Dimensions, dimValue)
	for _, q := range p.Metrics {
		if q.MetricStat != nil {
			setFunctionDimension(q.MetricStat.Metric.Dimensions, dimValue)
		}
	}
}

func setFunctionDimension(dims []alarm.Dimension, dimValue string) {
	for i := range dims {
		if dims[i].Name == functionNameDimension {
			dims[i].Value = dimValue
		}
	}
}

// ExtractRegionsFromAlarmNames recovers the region set an edge alarm group
// was created for by matching each name's trailing "-<region>" suffix
// against the valid region list. Used when re-ingesting alarms that were
// created by an earlier run.
func ExtractRegionsFromAlarmNames(names, validRegions []string) []string {
	found := make(map[string]struct{})
	for _, n := range names {
		for _, r := range validRegions {
			if strings.HasSuffix(n, "-"+r) {
				found[r] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(found))
	for r := range found {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
