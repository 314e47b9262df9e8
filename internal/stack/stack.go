// Package stack wires the RandomNotion resources into a CloudFormation stack.
//
// Every construct takes its dependencies as constructor arguments; there is
// no global app or stack registry. New assembles the three variants:
//
//	basic   function behind an HTTP API
//	cached  basic plus a DynamoDB cache table
//	full    cached plus read access to the Notion API secret
package stack

import (
	"errors"
	"fmt"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

// Variant selects which optional resources the stack provisions.
type Variant string

const (
	VariantBasic  Variant = "basic"
	VariantCached Variant = "cached"
	VariantFull   Variant = "full"

	DefaultVariant = VariantFull
)

// Variants lists the known variants in order of increasing scope.
var Variants = []Variant{VariantBasic, VariantCached, VariantFull}

// Logical IDs and template parameters.
const (
	DefaultName = "RandomNotion"

	FunctionID = "RandomNotionFunction"
	RoleID     = "RandomNotionFunctionServiceRole"
	TableID    = "RandomNotionCache"
	ApiID      = "RandomNotionApi"

	AssetBucketParam = "AssetBucket"
	AssetKeyParam    = "AssetKey"

	// CacheTableEnv carries the table name to the handler.
	CacheTableEnv = "CACHE_TABLE_NAME"
)

var (
	ErrUnknownVariant  = errors.New("unknown stack variant")
	ErrMissingFunction = errors.New("function configuration is required")
	ErrReservedEnv     = errors.New("environment variable is reserved for the stack")
)

// ParseVariant converts a name to a Variant. The empty string selects
// DefaultVariant.
func ParseVariant(name string) (Variant, error) {
	if name == "" {
		return DefaultVariant, nil
	}
	for _, v := range Variants {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected basic, cached or full)", ErrUnknownVariant, name)
}

// HasTable reports whether the variant provisions the cache table.
func (v Variant) HasTable() bool {
	return v == VariantCached || v == VariantFull
}

// HasSecret reports whether the variant grants access to the secret.
func (v Variant) HasSecret() bool {
	return v == VariantFull
}

// CodeLocation holds the default values of the asset parameters.
type CodeLocation struct {
	Bucket string
	Key    string
}

// Props configures New.
type Props struct {
	Name        string
	Description string
	Variant     Variant
	Function    function.Config
	Table       TableProps
	Secret      SecretProps
	Code        CodeLocation
}

// Stack is a set of constructs rendered into one template.
type Stack struct {
	Name        string
	Description string
	Variant     Variant

	Role     *ExecutionRole
	Function *Function
	Table    *CacheTable
	API      *HttpAPI

	parts []func(b *template.Builder) error
}

// NewEmpty creates a stack with no constructs.
func NewEmpty(name, description string) *Stack {
	return &Stack{Name: name, Description: description}
}

// add registers a rendering step. Steps run in registration order each time
// the template is synthesized, so grants made after construction are seen.
func (s *Stack) add(part func(b *template.Builder) error) {
	s.parts = append(s.parts, part)
}

// AddParameter declares a string template parameter.
func (s *Stack) AddParameter(name, description, def string) {
	s.add(func(b *template.Builder) error {
		p := infra.Parameter{Type: "String", Description: description}
		if def != "" {
			p.Default = def
		}
		return b.AddParameter(name, p)
	})
}

// AddOutput declares a template output.
func (s *Stack) AddOutput(name, description string, value any) {
	s.add(func(b *template.Builder) error {
		b.AddOutput(name, infra.Output{Description: description, Value: value})
		return nil
	})
}

// Template synthesizes the stack.
func (s *Stack) Template() (*infra.Template, error) {
	b := template.NewBuilder(s.Description)
	for _, part := range s.parts {
		if err := part(b); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// New assembles the RandomNotion stack for props.Variant.
func New(props Props) (*Stack, error) {
	if props.Function.IsZero() {
		return nil, ErrMissingFunction
	}
	variant, err := ParseVariant(string(props.Variant))
	if err != nil {
		return nil, err
	}
	if _, ok := props.Function.Environment[CacheTableEnv]; ok {
		return nil, fmt.Errorf("%w: %s", ErrReservedEnv, CacheTableEnv)
	}

	name := props.Name
	if name == "" {
		name = DefaultName
	}
	description := props.Description
	if description == "" {
		description = fmt.Sprintf("%s (%s)", name, variant)
	}

	s := NewEmpty(name, description)
	s.Variant = variant

	s.AddParameter(AssetBucketParam, "S3 bucket holding the function bundle", props.Code.Bucket)
	s.AddParameter(AssetKeyParam, "S3 key of the function bundle", props.Code.Key)

	s.Role = NewExecutionRole(s, RoleID, props.Function)

	s.Function, err = NewFunction(s, FunctionID, props.Function, s.Role, CodeFromParameters(AssetBucketParam, AssetKeyParam))
	if err != nil {
		return nil, err
	}

	if variant.HasTable() {
		s.Table = NewCacheTable(s, TableID, props.Table)
		GrantReadWrite(s.Table, s.Role)
		if err := s.Function.AddEnvironment(CacheTableEnv, s.Table.Name()); err != nil {
			return nil, err
		}
		s.AddOutput("CacheTableName", "Name of the cache table", s.Table.Name())
	}

	if variant.HasSecret() {
		GrantSecretRead(props.Secret.ARN(), s.Role)
	}

	s.API = NewHttpAPI(s, ApiID, name)
	if _, err := s.API.AddRoute(s, "GET", "/", s.Function); err != nil {
		return nil, err
	}

	s.AddOutput("ApiUrl", "Invoke URL of the HTTP API", s.API.URL())
	s.AddOutput("FunctionName", "Name of the Lambda function", s.Function.Name())

	return s, nil
}

// Synthesize is New followed by Template.
func Synthesize(props Props) (*infra.Template, error) {
	s, err := New(props)
	if err != nil {
		return nil, err
	}
	return s.Template()
}
