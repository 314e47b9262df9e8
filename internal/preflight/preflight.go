// Package preflight checks an AWS account before the stack is deployed.
//
// Two things break a RandomNotion deployment after CloudFormation has already
// started: a missing Notion API secret, and a fixed cache table name that is
// already taken. Both are cheap to check up front.
package preflight

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
)

// SecretsAPI is the part of the Secrets Manager client the checker uses.
type SecretsAPI interface {
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// TablesAPI is the part of the DynamoDB client the checker uses.
type TablesAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Status is the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Check is one preflight result.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the results of a preflight run.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c)
		}
	}
	return out
}

// Target describes what the stack expects to find, or not find, in the account.
type Target struct {
	// SecretID is the name or ARN of the Notion API secret. Empty skips the check.
	SecretID string
	// TableName is a fixed cache table name. Empty means CloudFormation
	// generates one and the check is skipped.
	TableName string
}

// Check names.
const (
	CheckSecret = "secret"
	CheckTable  = "table"
)

// Checker runs preflight checks against AWS.
type Checker struct {
	Secrets SecretsAPI
	Tables  TablesAPI
}

// NewFromConfig creates a Checker from an AWS config. Secrets are looked up
// in secretRegion, which may differ from the stack's region.
func NewFromConfig(cfg aws.Config, secretRegion string) *Checker {
	return &Checker{
		Secrets: secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			if secretRegion != "" {
				o.Region = secretRegion
			}
		}),
		Tables: dynamodb.NewFromConfig(cfg),
	}
}

// Load creates a Checker from the default AWS credential chain.
func Load(ctx context.Context, region, secretRegion string) (*Checker, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewFromConfig(cfg, secretRegion), nil
}

// Run performs every check and returns the report. Check failures are
// reported, not returned as errors.
func (c *Checker) Run(ctx context.Context, target Target) Report {
	report := Report{Checks: []Check{
		c.checkSecret(ctx, target.SecretID),
		c.checkTable(ctx, target.TableName),
	}}
	for _, check := range report.Checks {
		log.WithFields(log.Fields{
			"check":  check.Name,
			"status": check.Status,
		}).Debug(check.Detail)
	}
	return report
}

func (c *Checker) checkSecret(ctx context.Context, id string) Check {
	check := Check{Name: CheckSecret}
	if id == "" || c.Secrets == nil {
		check.Status = StatusSkip
		check.Detail = "no secret configured"
		return check
	}

	out, err := c.Secrets.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{SecretId: aws.String(id)})
	if err != nil {
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("describe secret %s: %s", id, describeError(err))
		return check
	}
	if out.DeletedDate != nil {
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("secret %s is scheduled for deletion", id)
		return check
	}

	check.Status = StatusPass
	check.Detail = fmt.Sprintf("secret %s exists", aws.ToString(out.ARN))
	return check
}

func (c *Checker) checkTable(ctx context.Context, name string) Check {
	check := Check{Name: CheckTable}
	if name == "" || c.Tables == nil {
		check.Status = StatusSkip
		check.Detail = "table name is generated"
		return check
	}

	out, err := c.Tables.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	var notFound *dbtypes.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		check.Status = StatusPass
		check.Detail = fmt.Sprintf("table name %s is available", name)
	case err != nil:
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("describe table %s: %s", name, describeError(err))
	default:
		status := ""
		if out.Table != nil {
			status = string(out.Table.TableStatus)
		}
		check.Status = StatusFail
		check.Detail = fmt.Sprintf("table %s already exists (%s)", name, status)
	}
	return check
}

// describeError renders an AWS error by its API code when it has one.
func describeError(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ResourceNotFoundException":
			return "not found"
		case "AccessDeniedException", "AccessDenied":
			return "access denied: " + ae.ErrorMessage()
		}
		return ae.ErrorCode() + ": " + ae.ErrorMessage()
	}
	return err.Error()
}
