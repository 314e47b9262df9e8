package stack

import (
	"fmt"

	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
	"github.com/jeffrosenberg/random-notion-infra/resources/lambda"
	"github.com/jeffrosenberg/random-notion-infra/resources/logs"
)

// Code locates the function bundle in S3.
type Code struct {
	Bucket any
	Key    any
}

// CodeFromParameters reads the bundle location from template parameters.
func CodeFromParameters(bucketParam, keyParam string) Code {
	return Code{
		Bucket: intrinsics.Ref{LogicalName: bucketParam},
		Key:    intrinsics.Ref{LogicalName: keyParam},
	}
}

// Function is the deployed Lambda function and its log group.
type Function struct {
	ID     string
	Config function.Config
	Role   *ExecutionRole

	env map[string]any
}

// NewFunction declares a function resolved to cfg, running as role, with
// code at code.
func NewFunction(s *Stack, id string, cfg function.Config, role *ExecutionRole, code Code) (*Function, error) {
	if cfg.IsZero() {
		return nil, ErrMissingFunction
	}

	var mapping intrinsics.Mapping
	if cfg.InsightsEnabled() {
		m, err := InsightsLayerMapping(cfg.InsightsVersion, cfg.Architecture)
		if err != nil {
			return nil, err
		}
		mapping = m
	}

	f := &Function{ID: id, Config: cfg, Role: role, env: make(map[string]any)}
	for k, v := range cfg.Environment {
		f.env[k] = v
	}

	s.add(func(b *template.Builder) error {
		fn := lambda.Function{
			Code:          &lambda.Function_Code{S3Bucket: code.Bucket, S3Key: code.Key},
			Handler:       cfg.Handler,
			Runtime:       cfg.Runtime,
			Architectures: []any{cfg.Architecture},
			MemorySize:    cfg.MemorySize,
			Timeout:       cfg.TimeoutSeconds(),
			Role:          role.Arn(),
		}
		if cfg.Description != "" {
			fn.Description = cfg.Description
		}
		if len(f.env) > 0 {
			fn.Environment = &lambda.Function_Environment{Variables: f.env}
		}
		if cfg.Tracing != function.Disabled {
			fn.TracingConfig = &lambda.Function_TracingConfig{Mode: string(cfg.Tracing)}
		}
		if mapping != nil {
			b.AddMapping(InsightsMapping, mapping)
			fn.Layers = []any{insightsLayer()}
		}

		var opts []template.Option
		if role.HasPolicy() {
			opts = append(opts, template.DependsOn(role.PolicyID()))
		}
		if err := b.AddResource(f.ID, fn, opts...); err != nil {
			return err
		}

		group := logs.LogGroup{
			LogGroupName:    intrinsics.Sub{String: "/aws/lambda/${" + f.ID + "}"},
			RetentionInDays: cfg.LogRetention,
		}
		return b.AddResource(f.LogGroupID(), group, template.Retain())
	})
	return f, nil
}

// Name returns the function name.
func (f *Function) Name() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: f.ID}
}

// Arn returns the function ARN.
func (f *Function) Arn() intrinsics.GetAtt {
	return intrinsics.GetAtt{LogicalName: f.ID, Attribute: "Arn"}
}

// LogGroupID is the logical ID of the function's log group.
func (f *Function) LogGroupID() string {
	return f.ID + "LogGroup"
}

// AddEnvironment sets an environment variable resolved at deploy time.
// Variables from the function configuration cannot be replaced.
func (f *Function) AddEnvironment(key string, value any) error {
	if _, ok := f.Config.Environment[key]; ok {
		return fmt.Errorf("environment variable %s is already set by the function configuration", key)
	}
	f.env[key] = value
	return nil
}
