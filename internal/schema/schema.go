// Package schema checks resources against the CloudFormation schemas of the
// types the stack uses, without network access or cfn-lint.
package schema

import (
	"fmt"
	"sort"
	"strings"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/resources/dynamodb"
	"github.com/jeffrosenberg/random-notion-infra/resources/logs"
)

// Options configures schema validation.
type Options struct {
	// Strict reports unknown properties as warnings.
	Strict bool
}

// Error is a schema violation on one resource property.
type Error struct {
	Resource string
	Property string
	Message  string
}

func (e Error) String() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Resource, e.Property, e.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Error
	Warnings []Error
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
}

var retentionValues = func() []string {
	out := make([]string, len(logs.RetentionDays))
	for i, d := range logs.RetentionDays {
		out[i] = fmt.Sprint(d)
	}
	return out
}()

var resourceSchemas = map[string]ResourceSchema{
	"AWS::Lambda::Function": {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"Architectures": {Type: "List"},
			"Code":          {Type: "Map"},
			"Description":   {Type: "String"},
			"Environment":   {Type: "Map"},
			"FunctionName":  {Type: "String"},
			"Handler":       {Type: "String"},
			"Layers":        {Type: "List"},
			"MemorySize":    {Type: "Integer"},
			"Role":          {Type: "String"},
			"Runtime":       {Type: "String"},
			"Tags":          {Type: "List"},
			"Timeout":       {Type: "Integer"},
			"TracingConfig": {Type: "Map"},
		},
	},
	"AWS::Lambda::Permission": {
		Required: []string{"Action", "FunctionName", "Principal"},
		Properties: map[string]PropertySchema{
			"Action":       {Type: "String"},
			"FunctionName": {Type: "String"},
			"Principal":    {Type: "String"},
			"SourceArn":    {Type: "String"},
		},
	},
	"AWS::IAM::Role": {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": {Type: "Json"},
			"Description":              {Type: "String"},
			"ManagedPolicyArns":        {Type: "List"},
			"Path":                     {Type: "String"},
			"Policies":                 {Type: "List"},
			"RoleName":                 {Type: "String"},
			"Tags":                     {Type: "List"},
		},
	},
	"AWS::IAM::Policy": {
		Required: []string{"PolicyDocument", "PolicyName"},
		Properties: map[string]PropertySchema{
			"PolicyDocument": {Type: "Json"},
			"PolicyName":     {Type: "String"},
			"Roles":          {Type: "List"},
		},
	},
	"AWS::Logs::LogGroup": {
		Properties: map[string]PropertySchema{
			"LogGroupName":    {Type: "String"},
			"RetentionInDays": {Type: "Integer", AllowedValues: retentionValues},
		},
	},
	"AWS::DynamoDB::Table": {
		Required: []string{"KeySchema"},
		Properties: map[string]PropertySchema{
			"AttributeDefinitions":             {Type: "List"},
			"BillingMode":                      {Type: "String", AllowedValues: []string{dynamodb.BillingModeOnDemand, "PROVISIONED"}},
			"KeySchema":                        {Type: "List"},
			"PointInTimeRecoverySpecification": {Type: "Map"},
			"TableName":                        {Type: "String"},
			"Tags":                             {Type: "List"},
		},
	},
	"AWS::ApiGatewayV2::Api": {
		Properties: map[string]PropertySchema{
			"Description":  {Type: "String"},
			"Name":         {Type: "String"},
			"ProtocolType": {Type: "String", AllowedValues: []string{"HTTP", "WEBSOCKET"}},
		},
	},
	"AWS::ApiGatewayV2::Integration": {
		Required: []string{"ApiId", "IntegrationType"},
		Properties: map[string]PropertySchema{
			"ApiId":                {Type: "String"},
			"IntegrationType":      {Type: "String", AllowedValues: []string{"AWS", "AWS_PROXY", "HTTP", "HTTP_PROXY", "MOCK"}},
			"IntegrationUri":       {Type: "String"},
			"PayloadFormatVersion": {Type: "String", AllowedValues: []string{"1.0", "2.0"}},
		},
	},
	"AWS::ApiGatewayV2::Route": {
		Required: []string{"ApiId", "RouteKey"},
		Properties: map[string]PropertySchema{
			"ApiId":             {Type: "String"},
			"AuthorizationType": {Type: "String", AllowedValues: []string{"NONE", "AWS_IAM", "CUSTOM", "JWT"}},
			"RouteKey":          {Type: "String"},
			"Target":            {Type: "String"},
		},
	},
	"AWS::ApiGatewayV2::Stage": {
		Required: []string{"ApiId", "StageName"},
		Properties: map[string]PropertySchema{
			"ApiId":      {Type: "String"},
			"AutoDeploy": {Type: "Boolean"},
			"StageName":  {Type: "String"},
		},
	},
}

// ValidateTemplate validates every resource in the template.
func ValidateTemplate(t *infra.Template, opts Options) *Result {
	result := &Result{Valid: true}

	names := make([]string, 0, len(t.Resources))
	for name := range t.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs, warnings := validateResource(name, t.Resources[name], opts)
		result.Errors = append(result.Errors, errs...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// validateResource validates a single resource.
func validateResource(name string, resource infra.ResourceDef, opts Options) ([]Error, []Error) {
	var errs, warnings []Error

	if !isValidResourceType(resource.Type) {
		errs = append(errs, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
		return errs, warnings
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		// Unknown types are left to cfn-lint.
		warnings = append(warnings, Error{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("no offline schema for %s", resource.Type),
		})
		return errs, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errs = append(errs, Error{
				Resource: name,
				Property: required,
				Message:  "missing required property",
			})
		}
	}

	props := make([]string, 0, len(resource.Properties))
	for p := range resource.Properties {
		props = append(props, p)
	}
	sort.Strings(props)

	for _, propName := range props {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Error{
					Resource: name,
					Property: propName,
					Message:  "unknown property",
				})
			}
			continue
		}
		errs = append(errs, validateProperty(name, propName, resource.Properties[propName], propSchema)...)
	}

	return errs, warnings
}

// isValidResourceType checks for the AWS::Service::Resource or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	return len(parts) == 3 && parts[0] == "AWS" && parts[1] != "" && parts[2] != ""
}

// validateProperty validates a property value against its schema.
func validateProperty(resource, property string, value any, schema PropertySchema) []Error {
	if isIntrinsic(value) {
		return nil
	}

	var errs []Error
	if !isValidType(value, schema.Type) {
		errs = append(errs, Error{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
		return errs
	}

	if len(schema.AllowedValues) > 0 {
		strVal := fmt.Sprint(value)
		found := false
		for _, allowed := range schema.AllowedValues {
			if strVal == allowed {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, Error{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
			})
		}
	}

	return errs
}

// isIntrinsic reports whether value is a single-key Ref or Fn:: object.
func isIntrinsic(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		return key == "Ref" || strings.HasPrefix(key, "Fn::")
	}
	return false
}

// isValidType checks if a value matches the expected type.
func isValidType(value any, expectedType string) bool {
	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		switch n := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == float64(int64(n))
		}
		return false
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
