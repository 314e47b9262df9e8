package linter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

func synthStack(t *testing.T, mutate func(*function.Options)) *infra.Template {
	t.Helper()
	opts := function.Options{
		Entry:        "../go/cmd/lambda",
		Timeout:      30 * time.Second,
		LogRetention: 30,
	}
	if mutate != nil {
		mutate(&opts)
	}
	cfg, err := function.Builder{}.Build(opts)
	require.NoError(t, err)

	tmpl, err := stack.Synthesize(stack.Props{Function: cfg, Variant: stack.VariantFull})
	require.NoError(t, err)
	return tmpl
}

func ruleIDs(issues []Issue) []string {
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.Rule)
	}
	return ids
}

func TestLint_DefaultStack(t *testing.T) {
	result := Lint(synthStack(t, nil), Options{})

	assert.True(t, result.Success)
	// Only the point-in-time recovery note is expected.
	assert.Equal(t, []string{"RN005"}, ruleIDs(result.Issues))
	assert.Equal(t, SeverityInfo, result.Issues[0].Severity)
	assert.Equal(t, stack.TableID, result.Issues[0].Resource)
}

func TestLint_StackOverrides(t *testing.T) {
	tmpl := synthStack(t, func(o *function.Options) {
		o.Tracing = function.Disabled
		o.Timeout = 60 * time.Second
		o.LogRetention = 0
	})

	result := Lint(tmpl, Options{DisabledRules: []string{"RN005"}})
	assert.False(t, result.Success)
	assert.ElementsMatch(t, []string{"RN001", "RN003"}, ruleIDs(result.Issues)[:2])
	assert.Contains(t, ruleIDs(result.Issues), "RN002")
}

func TestTracingNotActive(t *testing.T) {
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Active":  {Type: "AWS::Lambda::Function", Properties: map[string]any{"TracingConfig": map[string]any{"Mode": "Active"}}},
		"Pass":    {Type: "AWS::Lambda::Function", Properties: map[string]any{"TracingConfig": map[string]any{"Mode": "PassThrough"}}},
		"Missing": {Type: "AWS::Lambda::Function"},
	}}

	issues := TracingNotActive{}.Check(tmpl)
	require.Len(t, issues, 2)
	assert.Equal(t, "Missing", issues[0].Resource)
	assert.Contains(t, issues[0].Message, "unset")
	assert.Equal(t, "Pass", issues[1].Resource)
	assert.Contains(t, issues[1].Message, "PassThrough")
}

func TestMissingLogRetention(t *testing.T) {
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Fn":          {Type: "AWS::Lambda::Function"},
		"Orphan":      {Type: "AWS::Lambda::Function"},
		"FnLogGroup":  {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"LogGroupName": map[string]any{"Fn::Sub": "/aws/lambda/${Fn}"}}},
		"KeptForever": {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": 30}},
	}}

	issues := MissingLogRetention{}.Check(tmpl)
	require.Len(t, issues, 2)
	assert.Equal(t, "FnLogGroup", issues[0].Resource)
	assert.Equal(t, "Orphan", issues[1].Resource)
}

func TestApiTimeout(t *testing.T) {
	integration := func(fn string) infra.ResourceDef {
		return infra.ResourceDef{
			Type: "AWS::ApiGatewayV2::Integration",
			Properties: map[string]any{
				"IntegrationUri": map[string]any{"Fn::GetAtt": []any{fn, "Arn"}},
			},
		}
	}
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Slow":            {Type: "AWS::Lambda::Function", Properties: map[string]any{"Timeout": float64(60)}},
		"Fast":            {Type: "AWS::Lambda::Function", Properties: map[string]any{"Timeout": 30}},
		"Batch":           {Type: "AWS::Lambda::Function", Properties: map[string]any{"Timeout": 900}},
		"SlowIntegration": integration("Slow"),
		"FastIntegration": integration("Fast"),
	}}

	issues := ApiTimeout{}.Check(tmpl)
	require.Len(t, issues, 1)
	assert.Equal(t, "Slow", issues[0].Resource)
	assert.Equal(t, SeverityError, issues[0].Severity)

	assert.Empty(t, ApiTimeout{MaxSeconds: 60}.Check(tmpl))
	assert.Len(t, ApiTimeout{MaxSeconds: 10}.Check(tmpl), 2)
}

func TestWildcardResource(t *testing.T) {
	doc := func(resource any) map[string]any {
		return map[string]any{
			"Version": "2012-10-17",
			"Statement": []any{
				map[string]any{"Effect": "Allow", "Action": "dynamodb:GetItem", "Resource": resource},
			},
		}
	}
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Scoped":   {Type: "AWS::IAM::Policy", Properties: map[string]any{"PolicyDocument": doc("arn:aws:dynamodb:us-west-2:1:table/x")}},
		"Wildcard": {Type: "AWS::IAM::Policy", Properties: map[string]any{"PolicyDocument": doc("*")}},
		"Listed":   {Type: "AWS::IAM::Policy", Properties: map[string]any{"PolicyDocument": doc([]any{"a", "*"})}},
		"Inline": {Type: "AWS::IAM::Role", Properties: map[string]any{
			"Policies": []any{map[string]any{"PolicyName": "p", "PolicyDocument": doc("*")}},
		}},
	}}

	issues := WildcardResource{}.Check(tmpl)
	var names []string
	for _, issue := range issues {
		names = append(names, issue.Resource)
	}
	assert.Equal(t, []string{"Inline", "Listed", "Wildcard"}, names)
}

func TestTableRules(t *testing.T) {
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Protected": {
			Type:           "AWS::DynamoDB::Table",
			DeletionPolicy: "Retain",
			Properties: map[string]any{
				"PointInTimeRecoverySpecification": map[string]any{"PointInTimeRecoveryEnabled": true},
			},
		},
		"Bare": {Type: "AWS::DynamoDB::Table"},
	}}

	pitr := TableWithoutPITR{}.Check(tmpl)
	require.Len(t, pitr, 1)
	assert.Equal(t, "Bare", pitr[0].Resource)

	retain := TableNotRetained{}.Check(tmpl)
	require.Len(t, retain, 1)
	assert.Equal(t, "Bare", retain[0].Resource)
}

func TestRouteWithoutTarget(t *testing.T) {
	tmpl := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Targeted": {Type: "AWS::ApiGatewayV2::Route", Properties: map[string]any{
			"RouteKey": "GET /",
			"Target":   map[string]any{"Fn::Join": []any{"", []any{"integrations/", map[string]any{"Ref": "I"}}}},
		}},
		"Empty":   {Type: "AWS::ApiGatewayV2::Route", Properties: map[string]any{"RouteKey": "POST /", "Target": ""}},
		"Missing": {Type: "AWS::ApiGatewayV2::Route", Properties: map[string]any{"RouteKey": "GET /items"}},
	}}

	issues := RouteWithoutTarget{}.Check(tmpl)
	require.Len(t, issues, 2)
	assert.Equal(t, "Empty", issues[0].Resource)
	assert.Contains(t, issues[0].Message, "POST /")
	assert.Equal(t, "Missing", issues[1].Resource)
}

func TestGetRules(t *testing.T) {
	assert.Len(t, getRules(Options{}), len(AllRules()))

	rules := getRules(Options{EnabledRules: []string{"RN001", "RN003"}, DisabledRules: []string{"RN001"}})
	require.Len(t, rules, 1)
	assert.Equal(t, "RN003", rules[0].ID())

	rules = getRules(Options{EnabledRules: []string{"RN003"}, MaxTimeoutSeconds: 10})
	assert.Equal(t, 10, rules[0].(ApiTimeout).MaxSeconds)
}

func TestAllRules_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range AllRules() {
		assert.False(t, seen[r.ID()], "duplicate rule ID %s", r.ID())
		assert.NotEmpty(t, r.Description())
		seen[r.ID()] = true
	}
}

func TestResult_ToLintResult(t *testing.T) {
	result := Result{
		Success: false,
		Issues:  []Issue{{Rule: "RN003", Resource: "Fn", Message: "too slow", Severity: SeverityError}},
	}

	out := result.ToLintResult()
	assert.False(t, out.Success)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "error", out.Issues[0].Severity)
	assert.Equal(t, "RN003", out.Issues[0].Rule)
}
