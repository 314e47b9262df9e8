package stack

import (
	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
	"github.com/jeffrosenberg/random-notion-infra/resources/iam"
)

// Managed policies attached to the execution role.
const (
	BasicExecutionPolicy = "service-role/AWSLambdaBasicExecutionRole"
	XRayWritePolicy      = "AWSXRayDaemonWriteAccess"
	InsightsPolicy       = "CloudWatchLambdaInsightsExecutionRolePolicy"
)

// ExecutionRole is the IAM role the function runs as. Grants accumulate in
// an inline default policy that is only emitted when it has statements.
type ExecutionRole struct {
	ID         string
	managed    []string
	statements []any
}

// NewExecutionRole declares the execution role for a function resolved to cfg.
func NewExecutionRole(s *Stack, id string, cfg function.Config) *ExecutionRole {
	r := &ExecutionRole{ID: id, managed: []string{BasicExecutionPolicy}}
	if cfg.Tracing == function.Active || cfg.Tracing == function.PassThrough {
		r.managed = append(r.managed, XRayWritePolicy)
	}
	if cfg.InsightsEnabled() {
		r.managed = append(r.managed, InsightsPolicy)
	}

	s.add(func(b *template.Builder) error {
		arns := make([]any, len(r.managed))
		for i, name := range r.managed {
			arns[i] = intrinsics.ManagedPolicyArn(name)
		}
		role := iam.Role{
			AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(intrinsics.PolicyStatement{
				Effect:    "Allow",
				Principal: intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
				Action:    "sts:AssumeRole",
			}),
			ManagedPolicyArns: arns,
		}
		if err := b.AddResource(r.ID, role); err != nil {
			return err
		}
		if !r.HasPolicy() {
			return nil
		}
		return b.AddResource(r.PolicyID(), iam.Policy{
			PolicyName:     r.PolicyID(),
			PolicyDocument: intrinsics.NewPolicyDocument(r.statements...),
			Roles:          []any{r.Ref()},
		})
	})
	return r
}

// Ref returns the role name.
func (r *ExecutionRole) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: r.ID}
}

// Arn returns the role ARN.
func (r *ExecutionRole) Arn() intrinsics.GetAtt {
	return intrinsics.GetAtt{LogicalName: r.ID, Attribute: "Arn"}
}

// PolicyID is the logical ID of the inline default policy.
func (r *ExecutionRole) PolicyID() string {
	return r.ID + "DefaultPolicy"
}

// ManagedPolicies returns the names of the attached managed policies.
func (r *ExecutionRole) ManagedPolicies() []string {
	return append([]string(nil), r.managed...)
}

// AddToPolicy appends a statement to the default policy.
func (r *ExecutionRole) AddToPolicy(stmt intrinsics.PolicyStatement) {
	r.statements = append(r.statements, stmt)
}

// HasPolicy reports whether the default policy has any statements.
func (r *ExecutionRole) HasPolicy() bool {
	return len(r.statements) > 0
}
