package alarm

import "github.com/idrcli/awsidr/internal/arn"

// Resource type identifiers. These are the serviceType keys of the template
// catalog and the dispatch keys of conditional metric validation.
const (
	ServiceLambda    = "lambda"
	ServiceSNS       = "sns"
	ServiceDynamoDB  = "dynamodb"
	ServiceCassandra = "cassandra"
	ServiceRDS       = "rds"
	ServiceS3        = "s3"
	ServiceECS       = "ecs"
	ServiceEKS       = "eks"
)

// ServiceTypeForARN maps a parsed ARN to its resource type, or false for
// services the catalog has no templates for.
func ServiceTypeForARN(a arn.ARN) (string, bool) {
	switch a.Service {
	case "lambda", "sns", "dynamodb", "cassandra", "rds", "s3", "ecs", "eks":
		return a.Service, true
	default:
		return "", false
	}
}
