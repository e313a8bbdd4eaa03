package validate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/idrcli/awsidr/internal/alarm"
)

// containerInsightsNamespaces maps container service types to the
// namespaces Container Insights publishes into when enabled.
var containerInsightsNamespaces = map[string][]string{
	alarm.ServiceECS: {"ECS/ContainerInsights"},
	alarm.ServiceEKS: {"ContainerInsights", "ContainerInsights/Prometheus"},
}

// MetricLister is the CloudWatch slice the validator probes with.
type MetricLister interface {
	ListMetricSeries(ctx context.Context, namespace, metricName string, dims []cwtypes.DimensionFilter, region string) ([]cwtypes.Metric, error)
	ListMetricsByNamespace(ctx context.Context, namespace, region string) ([]cwtypes.Metric, error)
}

// PrerequisiteChecker answers whether a conditional metric's prerequisite
// configuration exists on the resource.
type PrerequisiteChecker interface {
	Check(ctx context.Context, res alarm.ResourceArn, metricName string) bool
}

// Validator decides whether an instantiated alarm configuration should be
// created. A metric that is already being published passes directly; a
// conditional metric with no data yet passes when its prerequisite is
// confirmed; everything else, including any lookup failure, is rejected.
type Validator struct {
	cw          MetricLister
	conditional PrerequisiteChecker
	log         *slog.Logger

	mu          sync.Mutex
	nsAvailable map[string]bool
}

func NewValidator(cw MetricLister, conditional PrerequisiteChecker, log *slog.Logger) *Validator {
	return &Validator{
		cw:          cw,
		conditional: conditional,
		log:         log,
		nsAvailable: make(map[string]bool),
	}
}

// ShouldCreate reports whether an alarm for cfg would watch a metric that
// exists or is expected to appear.
func (v *Validator) ShouldCreate(ctx context.Context, cfg alarm.Configuration, classification alarm.MetricClassification) bool {
	namespace, metricName, dims := primaryMetric(cfg.Payload)
	if namespace == "" || metricName == "" {
		v.log.Warn("Alarm configuration names no metric", "alarm", cfg.AlarmName)
		return false
	}

	region := cfg.Resource.Region
	if cfg.MetricRegion != "" {
		region = cfg.MetricRegion
	}

	// Container Insights namespaces only exist once the feature is enabled
	// on the cluster; probing a specific series in an absent namespace is
	// pointless.
	if isContainerInsightsNamespace(namespace) && !v.namespacePopulated(ctx, namespace, region) {
		v.log.Info("Container Insights namespace not populated, skipping alarm",
			"namespace", namespace, "region", region, "alarm", cfg.AlarmName)
		return false
	}

	series, err := v.cw.ListMetricSeries(ctx, namespace, metricName, dims, region)
	if err != nil {
		v.log.Warn("Metric existence probe failed",
			"namespace", namespace, "metric", metricName, "region", region, "error", err)
		return false
	}
	if len(series) > 0 {
		return true
	}

	if classification == alarm.MetricConditional {
		return v.conditional.Check(ctx, cfg.Resource, metricName)
	}
	return false
}

// FilterConfigurations builds every applicable template against the
// resource and keeps the configurations whose metrics pass validation.
func (v *Validator) FilterConfigurations(ctx context.Context, b *alarm.Builder, res alarm.ResourceArn, tmpls []alarm.Template) ([]alarm.Configuration, error) {
	var out []alarm.Configuration
	for _, tmpl := range tmpls {
		if tmpl.MetricType == alarm.MetricNonNative {
			v.log.Debug("Skipping non-native template", "template", tmpl.Name, "resource", res.ARN)
			continue
		}
		cfg, err := b.Build(tmpl, res)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			continue
		}
		if !v.ShouldCreate(ctx, *cfg, tmpl.MetricType) {
			v.log.Info("Metric unavailable for resource, skipping alarm",
				"template", tmpl.Name, "resource", res.ARN)
			continue
		}
		out = append(out, *cfg)
	}
	return out, nil
}

// NamespacesAvailable returns the Container Insights namespaces populated
// for the service type in the region.
func (v *Validator) NamespacesAvailable(ctx context.Context, serviceType, region string) []string {
	var out []string
	for _, ns := range containerInsightsNamespaces[serviceType] {
		if v.namespacePopulated(ctx, ns, region) {
			out = append(out, ns)
		}
	}
	return out
}

// namespacePopulated memoizes per (namespace, region). A failed listing is
// cached as unavailable rather than retried.
func (v *Validator) namespacePopulated(ctx context.Context, namespace, region string) bool {
	key := namespace + ":" + region

	v.mu.Lock()
	if populated, ok := v.nsAvailable[key]; ok {
		v.mu.Unlock()
		return populated
	}
	v.mu.Unlock()

	populated := false
	metrics, err := v.cw.ListMetricsByNamespace(ctx, namespace, region)
	if err != nil {
		v.log.Warn("Namespace availability probe failed",
			"namespace", namespace, "region", region, "error", err)
	} else {
		populated = len(metrics) > 0
	}

	v.mu.Lock()
	v.nsAvailable[key] = populated
	v.mu.Unlock()
	return populated
}

func isContainerInsightsNamespace(namespace string) bool {
	for _, list := range containerInsightsNamespaces {
		for _, ns := range list {
			if ns == namespace {
				return true
			}
		}
	}
	return false
}

// primaryMetric extracts the series a configuration alarms on. For
// metric-math payloads that is the first query carrying a MetricStat.
func primaryMetric(p alarm.Payload) (namespace, metricName string, dims []cwtypes.DimensionFilter) {
	if p.Namespace != "" && p.MetricName != "" {
		return p.Namespace, p.MetricName, toDimensionFilters(p.Dimensions)
	}
	for _, q := range p.Metrics {
		if q.MetricStat != nil {
			m := q.MetricStat.Metric
			return m.Namespace, m.MetricName, toDimensionFilters(m.Dimensions)
		}
	}
	return "", "", nil
}

func toDimensionFilters(dims []alarm.Dimension) []cwtypes.DimensionFilter {
	out := make([]cwtypes.DimensionFilter, len(dims))
	for i, d := range dims {
		out[i] = cwtypes.DimensionFilter{Name: aws.String(d.Name), Value: aws.String(d.Value)}
	}
	return out
}
