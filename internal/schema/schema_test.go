package schema

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

func TestValidateTemplate_Stack(t *testing.T) {
	for _, variant := range []stack.Variant{stack.VariantBasic, stack.VariantCached, stack.VariantFull} {
		t.Run(string(variant), func(t *testing.T) {
			cfg, err := function.Builder{}.Build(function.Options{
				Entry:        "../go/cmd/lambda",
				Timeout:      30 * time.Second,
				LogRetention: 30,
			})
			require.NoError(t, err)

			tmpl, err := stack.Synthesize(stack.Props{Function: cfg, Variant: variant})
			require.NoError(t, err)

			result := ValidateTemplate(tmpl, Options{Strict: true})
			assert.True(t, result.Valid, "errors: %v", result.Errors)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidateTemplate_Errors(t *testing.T) {
	tmpl := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Fn": {
				Type:       "AWS::Lambda::Function",
				Properties: map[string]any{"Code": map[string]any{}, "Timeout": "thirty"},
			},
			"Logs": {
				Type:       "AWS::Logs::LogGroup",
				Properties: map[string]any{"RetentionInDays": float64(42)},
			},
			"Bad": {Type: "Lambda::Function"},
		},
	}

	result := ValidateTemplate(tmpl, Options{})
	assert.False(t, result.Valid)

	var msgs []string
	for _, e := range result.Errors {
		msgs = append(msgs, e.String())
	}
	assert.Equal(t, []string{
		"Bad.Type: invalid resource type format: Lambda::Function",
		"Fn.Role: missing required property",
		"Fn.Timeout: expected type Integer",
		fmt.Sprintf(`Logs.RetentionInDays: value "42" not in allowed values: %v`, retentionValues),
	}, msgs)
}

func TestValidateTemplate_Intrinsics(t *testing.T) {
	tmpl := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Route": {
				Type: "AWS::ApiGatewayV2::Route",
				Properties: map[string]any{
					"ApiId":    map[string]any{"Ref": "Api"},
					"RouteKey": "GET /",
					"Target":   map[string]any{"Fn::Join": []any{"", []any{"integrations/", map[string]any{"Ref": "Integration"}}}},
				},
			},
		},
	}

	result := ValidateTemplate(tmpl, Options{})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateTemplate_UnknownTypes(t *testing.T) {
	tmpl := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Bucket": {Type: "AWS::S3::Bucket"},
			"Custom": {Type: "Custom::Seed"},
			"Table": {
				Type:       "AWS::DynamoDB::Table",
				Properties: map[string]any{"KeySchema": []any{}, "StreamSpecification": map[string]any{}},
			},
		},
	}

	result := ValidateTemplate(tmpl, Options{Strict: true})
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 3)
	assert.Equal(t, "Bucket.Type: no offline schema for AWS::S3::Bucket", result.Warnings[0].String())
	assert.Equal(t, "Custom.Type: no offline schema for Custom::Seed", result.Warnings[1].String())
	assert.Equal(t, "Table.StreamSpecification: unknown property", result.Warnings[2].String())

	lenient := ValidateTemplate(tmpl, Options{})
	assert.Len(t, lenient.Warnings, 2)
}

func TestIsValidType(t *testing.T) {
	tests := []struct {
		value    any
		typ      string
		expected bool
	}{
		{"x", "String", true},
		{1, "String", false},
		{30, "Integer", true},
		{float64(30), "Integer", true},
		{30.5, "Integer", false},
		{true, "Boolean", true},
		{[]any{}, "List", true},
		{map[string]any{}, "Map", true},
		{"x", "Json", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, isValidType(tt.value, tt.typ), "%v as %s", tt.value, tt.typ)
	}
}
