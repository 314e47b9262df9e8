package preflight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	out   *secretsmanager.DescribeSecretOutput
	err   error
	calls []string
}

func (f *fakeSecrets) DescribeSecret(_ context.Context, in *secretsmanager.DescribeSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	f.calls = append(f.calls, aws.ToString(in.SecretId))
	return f.out, f.err
}

type fakeTables struct {
	out   *dynamodb.DescribeTableOutput
	err   error
	calls []string
}

func (f *fakeTables) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.calls = append(f.calls, aws.ToString(in.TableName))
	return f.out, f.err
}

func tableNotFound() error {
	return &dbtypes.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
}

func check(t *testing.T, r Report, name string) Check {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "missing check", "no %s check in %+v", name, r.Checks)
	return Check{}
}

func TestRun_AllPass(t *testing.T) {
	secrets := &fakeSecrets{out: &secretsmanager.DescribeSecretOutput{
		ARN: aws.String("arn:aws:secretsmanager:us-west-2:123456789012:secret:random-notion/notion-api-AbCdEf"),
	}}
	tables := &fakeTables{err: tableNotFound()}
	c := &Checker{Secrets: secrets, Tables: tables}

	report := c.Run(context.Background(), Target{SecretID: "random-notion/notion-api", TableName: "random-notion-cache"})

	assert.True(t, report.OK())
	assert.Empty(t, report.Failures())
	assert.Equal(t, []string{"random-notion/notion-api"}, secrets.calls)
	assert.Equal(t, []string{"random-notion-cache"}, tables.calls)
	assert.Equal(t, StatusPass, check(t, report, CheckSecret).Status)
	assert.Equal(t, StatusPass, check(t, report, CheckTable).Status)
}

func TestRun_Skips(t *testing.T) {
	secrets := &fakeSecrets{}
	tables := &fakeTables{}
	c := &Checker{Secrets: secrets, Tables: tables}

	report := c.Run(context.Background(), Target{})

	assert.True(t, report.OK())
	assert.Empty(t, secrets.calls)
	assert.Empty(t, tables.calls)
	assert.Equal(t, StatusSkip, check(t, report, CheckSecret).Status)
	assert.Equal(t, StatusSkip, check(t, report, CheckTable).Status)
}

func TestRun_SecretFailures(t *testing.T) {
	deleted := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		out    *secretsmanager.DescribeSecretOutput
		err    error
		detail string
	}{
		{
			name:   "not found",
			err:    &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "Secrets Manager can't find the specified secret."},
			detail: "not found",
		},
		{
			name:   "access denied",
			err:    &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"},
			detail: "access denied: not authorized",
		},
		{
			name:   "transport error",
			err:    errors.New("dial tcp: i/o timeout"),
			detail: "i/o timeout",
		},
		{
			name:   "scheduled for deletion",
			out:    &secretsmanager.DescribeSecretOutput{ARN: aws.String("arn"), DeletedDate: &deleted},
			detail: "scheduled for deletion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Checker{Secrets: &fakeSecrets{out: tt.out, err: tt.err}}
			report := c.Run(context.Background(), Target{SecretID: "random-notion/notion-api"})

			assert.False(t, report.OK())
			got := check(t, report, CheckSecret)
			assert.Equal(t, StatusFail, got.Status)
			assert.Contains(t, got.Detail, tt.detail)
			assert.Len(t, report.Failures(), 1)
		})
	}
}

func TestRun_TableExists(t *testing.T) {
	tables := &fakeTables{out: &dynamodb.DescribeTableOutput{
		Table: &dbtypes.TableDescription{TableStatus: dbtypes.TableStatusActive},
	}}
	c := &Checker{Tables: tables}

	report := c.Run(context.Background(), Target{TableName: "random-notion-cache"})

	assert.False(t, report.OK())
	got := check(t, report, CheckTable)
	assert.Equal(t, StatusFail, got.Status)
	assert.Contains(t, got.Detail, "already exists (ACTIVE)")
}

func TestRun_TableError(t *testing.T) {
	c := &Checker{Tables: &fakeTables{err: &smithy.GenericAPIError{Code: "UnrecognizedClientException", Message: "bad token"}}}

	report := c.Run(context.Background(), Target{TableName: "random-notion-cache"})

	got := check(t, report, CheckTable)
	assert.Equal(t, StatusFail, got.Status)
	assert.Contains(t, got.Detail, "UnrecognizedClientException: bad token")
}

func TestNewFromConfig(t *testing.T) {
	c := NewFromConfig(aws.Config{Region: "us-east-1"}, "us-west-2")

	secrets, ok := c.Secrets.(*secretsmanager.Client)
	require.True(t, ok)
	assert.Equal(t, "us-west-2", secrets.Options().Region)

	tables, ok := c.Tables.(*dynamodb.Client)
	require.True(t, ok)
	assert.Equal(t, "us-east-1", tables.Options().Region)
}
