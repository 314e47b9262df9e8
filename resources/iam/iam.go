// Package iam contains AWS::IAM resource types.
package iam

// Role represents an AWS::IAM::Role resource.
type Role struct {
	AssumeRolePolicyDocument any   `json:"AssumeRolePolicyDocument"`
	Description              any   `json:"Description,omitempty"`
	ManagedPolicyArns        []any `json:"ManagedPolicyArns,omitempty"`
	Path                     any   `json:"Path,omitempty"`
	Policies                 []any `json:"Policies,omitempty"`
	RoleName                 any   `json:"RoleName,omitempty"`
	Tags                     []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Policy represents an AWS::IAM::Policy resource attached to roles.
type Policy struct {
	PolicyDocument any   `json:"PolicyDocument"`
	PolicyName     any   `json:"PolicyName"`
	Roles          []any `json:"Roles,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Policy) ResourceType() string {
	return "AWS::IAM::Policy"
}
