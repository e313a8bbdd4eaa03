package alarm

import (
	"fmt"
	"log/slog"
	"strings"
)

// Builder instantiates catalog templates against discovered resources.
type Builder struct {
	log *slog.Logger
}

func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// Build fills a template with the resource's identity: the resource name is
// substituted into every empty dimension value, in both the plain and the
// metric-math form, and the alarm name gains a resource suffix so alarms for
// different resources never collide. Returns nil when the template does not
// apply to the resource's type.
func (b *Builder) Build(tmpl Template, res ResourceArn) (*Configuration, error) {
	if tmpl.ServiceType != res.Type {
		return nil, nil
	}
	if res.Name == "" {
		return nil, fmt.Errorf("resource %s has no name to alarm on", res.ARN)
	}

	payload := tmpl.Configuration.Clone()
	payload.AlarmName = fmt.Sprintf("%s-%s", tmpl.Configuration.AlarmName, sanitizeNamePart(res.Name))
	fillDimensions(payload.Dimensions, res.Name)
	for _, q := range payload.Metrics {
		if q.MetricStat != nil {
			fillDimensions(q.MetricStat.Metric.Dimensions, res.Name)
		}
	}

	b.log.Debug("Built alarm configuration",
		"template", tmpl.Name, "resource", res.ARN, "alarm_name", payload.AlarmName)

	return &Configuration{
		AlarmName: payload.AlarmName,
		Resource:  res,
		Payload:   payload,
	}, nil
}

func fillDimensions(dims []Dimension, value string) {
	for i := range dims {
		if dims[i].Value == "" {
			dims[i].Value = value
		}
	}
}

// ResourceNameSegment returns the sanitized form of a resource name as it
// appears inside built alarm names.
func ResourceNameSegment(name string) string {
	return sanitizeNamePart(name)
}

// sanitizeNamePart keeps alarm names within CloudWatch's accepted charset.
func sanitizeNamePart(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, name)
}
