package arn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLambdaStripsVersion(t *testing.T) {
	versioned := "arn:aws:lambda:us-east-1:111122223333:function:my-fn:3"
	base := "arn:aws:lambda:us-east-1:111122223333:function:my-fn"

	assert.Equal(t, base, NormalizeLambda(versioned))
}

func TestNormalizeLambdaIdempotent(t *testing.T) {
	cases := []string{
		"arn:aws:lambda:us-east-1:111122223333:function:my-fn:3",
		"arn:aws:lambda:us-east-1:111122223333:function:my-fn",
		"arn:aws:lambda:eu-west-1:111122223333:function:fn-42:107",
	}
	for _, c := range cases {
		once := NormalizeLambda(c)
		assert.Equal(t, once, NormalizeLambda(once), "normalize must be idempotent for %s", c)
	}
}

func TestNormalizeLambdaLeavesAliasesAlone(t *testing.T) {
	// Alias suffixes are not numeric and must survive.
	aliased := "arn:aws:lambda:us-east-1:111122223333:function:my-fn:PROD"
	assert.Equal(t, aliased, NormalizeLambda(aliased))

	// Function names ending in digits but without a version field.
	short := "arn:aws:lambda:us-east-1:111122223333:function:fn7"
	assert.Equal(t, short, NormalizeLambda(short))
}

func TestLambdaFunctionName(t *testing.T) {
	a, err := Parse("arn:aws:lambda:us-east-1:111122223333:function:my-fn:3")
	require.NoError(t, err)
	assert.Equal(t, "my-fn", a.LambdaFunctionName())

	a, err = Parse("arn:aws:lambda:us-east-1:111122223333:function:my-fn")
	require.NoError(t, err)
	assert.Equal(t, "my-fn", a.LambdaFunctionName())
}

func TestKeyspaceName(t *testing.T) {
	a, err := Parse("arn:aws:cassandra:us-east-1:111122223333:/keyspace/orders/")
	require.NoError(t, err)
	name, err := a.KeyspaceName()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)

	a, err = Parse("arn:aws:cassandra:us-east-1:111122223333:/keyspace/orders/table/items")
	require.NoError(t, err)
	name, err = a.KeyspaceName()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)
}

func TestKeyspaceNameRejectsPlaceholder(t *testing.T) {
	a, err := Parse("arn:aws:cassandra:us-east-1:111122223333:/keyspace/")
	require.NoError(t, err)
	_, err = a.KeyspaceName()
	assert.Error(t, err)
}

func TestServiceResourceHelpers(t *testing.T) {
	a, err := Parse("arn:aws:dynamodb:us-east-1:111122223333:table/orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", a.DynamoTableName())

	a, err = Parse("arn:aws:rds:us-east-1:111122223333:db:replica-1")
	require.NoError(t, err)
	assert.Equal(t, "replica-1", a.RDSInstanceID())

	a, err = Parse("arn:aws:s3:::my-bucket")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", a.BucketName())
}
