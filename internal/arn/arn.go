// Package arn wraps the SDK ARN parser with the resource-segment handling the
// alarm workflows need: Lambda version/alias suffixes, Keyspaces resource
// paths, and the service identifiers used for validation dispatch.
package arn

import (
	"fmt"
	"strings"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"
)

// lambdaARNMinFields is the field count of a versioned Lambda ARN
// (arn:aws:lambda:region:account:function:name:version).
const lambdaARNMinFields = 8

// ARN is a decomposed Amazon Resource Name.
type ARN struct {
	Partition string
	Service   string
	Region    string
	AccountID string
	Resource  string
}

// Parse decomposes an ARN string. The Resource field keeps the raw resource
// segment, including any Lambda version suffix or Keyspaces path.
func Parse(s string) (ARN, error) {
	parsed, err := awsarn.Parse(s)
	if err != nil {
		return ARN{}, fmt.Errorf("parse arn %q: %w", s, err)
	}
	return ARN{
		Partition: parsed.Partition,
		Service:   parsed.Service,
		Region:    parsed.Region,
		AccountID: parsed.AccountID,
		Resource:  parsed.Resource,
	}, nil
}

// NormalizeLambda strips a trailing numeric version segment from a Lambda
// ARN. CloudFront stores versioned Lambda@Edge ARNs; association lookups use
// the unversioned form as the cache key. Idempotent: a second application is
// a no-op.
func NormalizeLambda(functionARN string) string {
	parts := strings.Split(functionARN, ":")
	if len(parts) >= lambdaARNMinFields && isDigits(parts[len(parts)-1]) {
		return strings.Join(parts[:len(parts)-1], ":")
	}
	return functionARN
}

// LambdaFunctionName extracts the bare function name from a Lambda ARN
// resource segment, tolerating "function:name", "function:name:version" and
// a plain "name".
func (a ARN) LambdaFunctionName() string {
	res := strings.TrimPrefix(a.Resource, "function:")
	if i := strings.Index(res, ":"); i >= 0 {
		res = res[:i]
	}
	return res
}

// KeyspaceName extracts the keyspace name from a Keyspaces ARN resource
// segment of form "keyspace/<name>" or "keyspace/<name>/table/<table>".
// An empty name, or the literal "keyspace" placeholder, is rejected.
func (a ARN) KeyspaceName() (string, error) {
	res := strings.TrimPrefix(a.Resource, "/")
	if i := strings.Index(res, "/"); i >= 0 {
		res = res[i+1:]
	}
	res = strings.TrimRight(res, "/")
	if i := strings.Index(res, "/"); i >= 0 {
		res = res[:i]
	}
	if res == "" || res == "keyspace" {
		return "", fmt.Errorf("invalid keyspace name in arn resource %q", a.Resource)
	}
	return res, nil
}

// DynamoTableName extracts the table name from "table/<name>".
func (a ARN) DynamoTableName() string {
	if i := strings.LastIndex(a.Resource, "/"); i >= 0 {
		return a.Resource[i+1:]
	}
	return a.Resource
}

// RDSInstanceID extracts the instance identifier from "db:<identifier>".
func (a ARN) RDSInstanceID() string {
	if i := strings.LastIndex(a.Resource, ":"); i >= 0 {
		return a.Resource[i+1:]
	}
	return a.Resource
}

// BucketName returns the S3 bucket name. S3 ARNs carry the bucket directly
// in the resource segment.
func (a ARN) BucketName() string {
	return a.Resource
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
