package stack

import (
	"fmt"

	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
)

// The Notion API token lives in a secret created outside the stack.
const (
	DefaultSecretName   = "random-notion/notion-api"
	DefaultSecretRegion = "us-west-2"
)

// SecretReadActions are granted by GrantSecretRead.
var SecretReadActions = []string{
	"secretsmanager:DescribeSecret",
	"secretsmanager:GetSecretValue",
}

// DefaultSecretArn matches the Notion API secret in the current account.
// Secrets Manager appends six random characters to the name.
func DefaultSecretArn() intrinsics.Sub {
	return SecretArnFromName(DefaultSecretName, DefaultSecretRegion)
}

// SecretArnFromName matches a secret by name in region.
func SecretArnFromName(name, region string) intrinsics.Sub {
	return intrinsics.Sub{String: fmt.Sprintf(
		"arn:${AWS::Partition}:secretsmanager:%s:${AWS::AccountId}:secret:%s-??????", region, name)}
}

// SecretProps identifies the secret by ARN, or by name and region.
// Empty fields fall back to the Notion API secret.
type SecretProps struct {
	Arn    string
	Name   string
	Region string
}

// ARN returns the configured ARN or a pattern matching the named secret.
func (p SecretProps) ARN() any {
	if p.Arn != "" {
		return p.Arn
	}
	name, region := p.Name, p.Region
	if name == "" {
		name = DefaultSecretName
	}
	if region == "" {
		region = DefaultSecretRegion
	}
	return SecretArnFromName(name, region)
}

// GrantSecretRead allows role to read the secret identified by arn.
func GrantSecretRead(arn any, role *ExecutionRole) {
	role.AddToPolicy(intrinsics.Allow(SecretReadActions, arn))
}
