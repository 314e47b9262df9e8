// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds the mapping lookup and IAM policy types used by the stack.
//
// Core intrinsic functions:
//
//	Ref{"RandomNotionCache"} → {"Ref": "RandomNotionCache"}
//	Sub{"/aws/lambda/${RandomNotionFunction}"} → {"Fn::Sub": "/aws/lambda/${RandomNotionFunction}"}
//	Join{"", []any{"integrations/", Ref{"Integration"}}} → {"Fn::Join": ["", [...]]}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_PARTITION, AWS_URL_SUFFIX, etc.
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// SubWithMap is Fn::Sub with a variable map.
	SubWithMap = intrinsics.SubWithMap

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// FindInMap represents a CloudFormation Fn::FindInMap intrinsic function.
	FindInMap = intrinsics.FindInMap
)

// Mapping represents a CloudFormation Mappings table.
// It maps a top-level key to a second-level key to values.
//
//	var Layers = Mapping{
//	    "us-west-2": {"Arn": "arn:aws:lambda:us-west-2:580247275435:layer:LambdaInsightsExtension:14"},
//	}
type Mapping map[string]map[string]any
