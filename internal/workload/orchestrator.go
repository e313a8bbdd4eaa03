package workload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/idrcli/awsidr/internal/alarm"
	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/edge"
	"github.com/idrcli/awsidr/internal/session"
)

// AlarmPrefix is the shared name prefix of every alarm this tool manages.
const AlarmPrefix = "IDR-"

// AlarmWriter is the CloudWatch slice the orchestrator writes and reads
// alarms with.
type AlarmWriter interface {
	CreateAlarm(ctx context.Context, input *cloudwatch.PutMetricAlarmInput, region string) error
	ListAlarmsByPrefix(ctx context.Context, prefix, region string) ([]cwtypes.MetricAlarm, error)
}

// ConfigurationFilter builds and validates the alarm configurations a
// resource should get.
type ConfigurationFilter interface {
	FilterConfigurations(ctx context.Context, b *alarm.Builder, res alarm.ResourceArn, tmpls []alarm.Template) ([]alarm.Configuration, error)
	ShouldCreate(ctx context.Context, cfg alarm.Configuration, classification alarm.MetricClassification) bool
}

// EdgeExpander detects Lambda@Edge functions and multiplies their
// configurations across their metric regions.
type EdgeExpander interface {
	IsEdgeFunction(ctx context.Context, functionARN string) bool
	Expand(ctx context.Context, cfg alarm.Configuration, cachedRegions []string) ([]alarm.Configuration, error)
}

// Orchestrator runs the alarm-creation and ingestion workflows against the
// resources recorded in a session.
type Orchestrator struct {
	catalog   *alarm.Catalog
	builder   *alarm.Builder
	validator ConfigurationFilter
	edge      EdgeExpander
	cw        AlarmWriter
	regions   RegionLister
	log       *slog.Logger
}

func NewOrchestrator(catalog *alarm.Catalog, builder *alarm.Builder, validator ConfigurationFilter, expander EdgeExpander, cw AlarmWriter, regions RegionLister, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		builder:   builder,
		validator: validator,
		edge:      expander,
		cw:        cw,
		regions:   regions,
		log:       log,
	}
}

// CreateAlarms walks the session's resources, validates each applicable
// template, and creates the resulting alarms. Lambda functions associated
// with a CloudFront distribution take the edge path: their replica metrics
// live under the us-east-1.<name> dimension in the regions CloudFront ran
// them, so the single-region existence probe would never find them and they
// route through the region scan instead. Created alarms and edge region
// choices are recorded in the session as they happen so an interrupted run
// resumes cleanly.
func (o *Orchestrator) CreateAlarms(ctx context.Context, state *session.State) (int, error) {
	created := 0
	for _, res := range state.Resources {
		tmpls := o.catalog.ForServiceType(res.Type)
		if len(tmpls) == 0 {
			continue
		}

		var cfgs []alarm.Configuration
		if res.Type == alarm.ServiceLambda && o.edge.IsEdgeFunction(ctx, res.ARN) {
			cfgs = o.edgeConfigurations(ctx, res, tmpls, state.CachedEdgeRegions(res.ARN))
		} else {
			var err error
			cfgs, err = o.validator.FilterConfigurations(ctx, o.builder, res, tmpls)
			if err != nil {
				return created, err
			}
		}

		var edgeRegions []string
		seenRegion := make(map[string]struct{})
		for _, cfg := range cfgs {
			region := alarmRegion(cfg)
			if err := o.cw.CreateAlarm(ctx, cfg.Payload.ToPutMetricAlarmInput(), region); err != nil {
				return created, fmt.Errorf("create alarm %s: %w", cfg.AlarmName, err)
			}
			created++
			state.RecordAlarm(session.AlarmRecord{
				Name:        cfg.AlarmName,
				Region:      region,
				ResourceARN: res.ARN,
				CreatedAt:   time.Now().UTC(),
			})
			if cfg.IsLambdaEdge {
				if _, ok := seenRegion[cfg.MetricRegion]; !ok {
					seenRegion[cfg.MetricRegion] = struct{}{}
					edgeRegions = append(edgeRegions, cfg.MetricRegion)
				}
			}
		}
		if len(edgeRegions) > 0 {
			state.SetEdgeRegions(res.ARN, edgeRegions)
		}
	}

	o.log.Info("Alarm creation finished", "workload", state.WorkloadName, "created", created)
	return created, nil
}

// edgeConfigurations builds and expands the templates for a Lambda@Edge
// function. The region scan's nonzero invocations are the existence
// evidence for native metrics, so those skip the per-series probe that
// only sees the plain FunctionName dimension. Conditional metrics still go
// through validation so their prerequisite checks apply to the expanded,
// region-scoped configuration. A template that fails to build or expand is
// skipped; it never aborts the rest of the batch.
func (o *Orchestrator) edgeConfigurations(ctx context.Context, res alarm.ResourceArn, tmpls []alarm.Template, cachedRegions []string) []alarm.Configuration {
	var out []alarm.Configuration
	for _, tmpl := range tmpls {
		if tmpl.MetricType == alarm.MetricNonNative {
			continue
		}
		cfg, err := o.builder.Build(tmpl, res)
		if err != nil {
			o.log.Warn("Skipping template for edge function",
				"template", tmpl.Name, "resource", res.ARN, "error", err)
			continue
		}
		if cfg == nil {
			continue
		}
		expanded, err := o.edge.Expand(ctx, *cfg, cachedRegions)
		if err != nil {
			o.log.Warn("Edge expansion failed, skipping alarm",
				"template", tmpl.Name, "resource", res.ARN, "error", err)
			continue
		}
		for _, e := range expanded {
			if tmpl.MetricType == alarm.MetricConditional && !o.validator.ShouldCreate(ctx, e, tmpl.MetricType) {
				o.log.Info("Conditional metric prerequisite missing, skipping alarm",
					"template", tmpl.Name, "resource", res.ARN, "region", e.MetricRegion)
				continue
			}
			out = append(out, e)
		}
	}
	return out
}

// alarmRegion picks where an alarm must live: the metric region for edge
// alarms, otherwise the resource's region. The global pseudo-region falls
// back to us-east-1.
func alarmRegion(cfg alarm.Configuration) string {
	if cfg.MetricRegion != "" {
		return cfg.MetricRegion
	}
	if cfg.Resource.Region == "" || cfg.Resource.Region == awsapi.GlobalRegion {
		return awsapi.USEast1
	}
	return cfg.Resource.Region
}

// IngestAlarms records every existing IDR-prefixed alarm into the session
// and recovers, per edge function, the regions its alarms were created in,
// so later runs target the same set without re-scanning metrics.
func (o *Orchestrator) IngestAlarms(ctx context.Context, state *session.State) (int, error) {
	regions, err := o.regions.Regions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list regions for alarm ingestion: %w", err)
	}

	found := 0
	for _, region := range regions {
		alarms, err := o.cw.ListAlarmsByPrefix(ctx, AlarmPrefix, region)
		if err != nil {
			o.log.Warn("Alarm listing failed in region, skipping", "region", region, "error", err)
			continue
		}
		for _, a := range alarms {
			state.RecordAlarm(session.AlarmRecord{
				Name:      aws.ToString(a.AlarmName),
				Region:    region,
				CreatedAt: aws.ToTime(a.AlarmConfigurationUpdatedTimestamp),
			})
			found++
		}
	}

	for _, res := range state.Resources {
		if res.Type != alarm.ServiceLambda {
			continue
		}
		// A built alarm name is "<template alarm name>-<resource name>",
		// with a further "-<region>" suffix for edge alarms. Matching the
		// fully assembled base keeps a function named "fn" from claiming
		// the alarms of "my-fn".
		var names []string
		for _, tmpl := range o.catalog.ForServiceType(alarm.ServiceLambda) {
			base := tmpl.Configuration.AlarmName + "-" + alarm.ResourceNameSegment(res.Name)
			for _, rec := range state.Alarms {
				if rec.Name == base || strings.HasPrefix(rec.Name, base+"-") {
					names = append(names, rec.Name)
				}
			}
		}
		if edgeRegions := edge.ExtractRegionsFromAlarmNames(names, regions); len(edgeRegions) > 0 {
			state.SetEdgeRegions(res.ARN, edgeRegions)
		}
	}

	o.log.Info("Alarm ingestion finished", "workload", state.WorkloadName, "found", found)
	return found, nil
}
