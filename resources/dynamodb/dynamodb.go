// Package dynamodb contains AWS::DynamoDB resource types.
package dynamodb

// Table represents an AWS::DynamoDB::Table resource.
type Table struct {
	AttributeDefinitions             []Table_AttributeDefinition             `json:"AttributeDefinitions,omitempty"`
	BillingMode                      any                                     `json:"BillingMode,omitempty"`
	KeySchema                        []Table_KeySchema                       `json:"KeySchema"`
	PointInTimeRecoverySpecification *Table_PointInTimeRecoverySpecification `json:"PointInTimeRecoverySpecification,omitempty"`
	TableName                        any                                     `json:"TableName,omitempty"`
	Tags                             []any                                   `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Table) ResourceType() string {
	return "AWS::DynamoDB::Table"
}

// Table_AttributeDefinition declares the type of a key attribute.
type Table_AttributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

// Table_KeySchema names a key attribute and its role (HASH or RANGE).
type Table_KeySchema struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

// Table_PointInTimeRecoverySpecification toggles continuous backups.
type Table_PointInTimeRecoverySpecification struct {
	PointInTimeRecoveryEnabled bool `json:"PointInTimeRecoveryEnabled"`
}

// Attribute and key type values.
const (
	AttributeTypeString = "S"
	KeyTypeHash         = "HASH"
	BillingModeOnDemand = "PAY_PER_REQUEST"
)
