package stack

import (
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
	"github.com/jeffrosenberg/random-notion-infra/resources/dynamodb"
)

// PartitionKey is the cache table's hash key.
const PartitionKey = "database_id"

// TableReadWriteActions are granted by GrantReadWrite.
var TableReadWriteActions = []string{
	"dynamodb:BatchGetItem",
	"dynamodb:BatchWriteItem",
	"dynamodb:ConditionCheckItem",
	"dynamodb:DeleteItem",
	"dynamodb:DescribeTable",
	"dynamodb:GetItem",
	"dynamodb:PutItem",
	"dynamodb:Query",
	"dynamodb:Scan",
	"dynamodb:UpdateItem",
}

// TableProps configures the cache table.
type TableProps struct {
	// TableName fixes the physical name; empty lets CloudFormation pick one.
	TableName           string
	PointInTimeRecovery bool
}

// CacheTable is the DynamoDB table the handler caches Notion pages in.
type CacheTable struct {
	ID    string
	Props TableProps
}

// NewCacheTable declares the cache table. It is retained when the stack is
// deleted.
func NewCacheTable(s *Stack, id string, props TableProps) *CacheTable {
	t := &CacheTable{ID: id, Props: props}

	s.add(func(b *template.Builder) error {
		table := dynamodb.Table{
			AttributeDefinitions: []dynamodb.Table_AttributeDefinition{
				{AttributeName: PartitionKey, AttributeType: dynamodb.AttributeTypeString},
			},
			KeySchema: []dynamodb.Table_KeySchema{
				{AttributeName: PartitionKey, KeyType: dynamodb.KeyTypeHash},
			},
			BillingMode: dynamodb.BillingModeOnDemand,
		}
		if props.TableName != "" {
			table.TableName = props.TableName
		}
		if props.PointInTimeRecovery {
			table.PointInTimeRecoverySpecification = &dynamodb.Table_PointInTimeRecoverySpecification{
				PointInTimeRecoveryEnabled: true,
			}
		}
		return b.AddResource(t.ID, table, template.Retain())
	})
	return t
}

// Name returns the table name.
func (t *CacheTable) Name() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: t.ID}
}

// Arn returns the table ARN.
func (t *CacheTable) Arn() intrinsics.GetAtt {
	return intrinsics.GetAtt{LogicalName: t.ID, Attribute: "Arn"}
}

// GrantReadWrite allows role to read and write items in table.
func GrantReadWrite(table *CacheTable, role *ExecutionRole) {
	role.AddToPolicy(intrinsics.Allow(TableReadWriteActions, table.Arn()))
}
