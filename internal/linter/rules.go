// Package linter provides lint rules for synthesized RandomNotion stacks.
//
// Rules inspect the final CloudFormation template rather than Go source, so
// they see exactly what will be deployed.
//
// Rules:
//
//	RN001: Lambda functions should have active X-Ray tracing
//	RN002: Lambda logs should be kept in a log group with a retention period
//	RN003: Functions behind the HTTP API must time out within the integration limit
//	RN004: IAM statements should not grant access to every resource
//	RN005: Tables should enable point-in-time recovery
//	RN006: Routes must target an integration
//	RN007: Tables should be retained when the stack is deleted
package linter

import (
	"fmt"
	"sort"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
	"github.com/jeffrosenberg/random-notion-infra/resources/apigatewayv2"
	"github.com/jeffrosenberg/random-notion-infra/resources/dynamodb"
	"github.com/jeffrosenberg/random-notion-infra/resources/iam"
	"github.com/jeffrosenberg/random-notion-infra/resources/lambda"
	"github.com/jeffrosenberg/random-notion-infra/resources/logs"
)

// Rule is the interface for lint rules.
type Rule interface {
	ID() string
	Description() string
	Check(t *infra.Template) []Issue
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		TracingNotActive{},
		MissingLogRetention{},
		ApiTimeout{MaxSeconds: DefaultMaxTimeoutSeconds},
		WildcardResource{},
		TableWithoutPITR{},
		RouteWithoutTarget{},
		TableNotRetained{},
	}
}

// DefaultMaxTimeoutSeconds is the HTTP API integration timeout.
const DefaultMaxTimeoutSeconds = 30

var (
	typeFunction    = lambda.Function{}.ResourceType()
	typeLogGroup    = logs.LogGroup{}.ResourceType()
	typeIntegration = apigatewayv2.Integration{}.ResourceType()
	typeRoute       = apigatewayv2.Route{}.ResourceType()
	typeTable       = dynamodb.Table{}.ResourceType()
	typeRole        = iam.Role{}.ResourceType()
	typePolicy      = iam.Policy{}.ResourceType()
)

// TracingNotActive flags functions without active X-Ray tracing.
type TracingNotActive struct{}

func (r TracingNotActive) ID() string { return "RN001" }
func (r TracingNotActive) Description() string {
	return "Lambda functions should have active X-Ray tracing"
}

func (r TracingNotActive) Check(t *infra.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typeFunction) {
		mode, _ := lookup(t.Resources[name].Properties, "TracingConfig", "Mode").(string)
		if mode == "Active" {
			continue
		}
		if mode == "" {
			mode = "unset"
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  fmt.Sprintf("tracing mode is %s, want Active", mode),
			Severity: SeverityWarning,
		})
	}
	return issues
}

// MissingLogRetention flags log groups that keep logs forever and
// functions whose logs have no managed log group.
type MissingLogRetention struct{}

func (r MissingLogRetention) ID() string { return "RN002" }
func (r MissingLogRetention) Description() string {
	return "Lambda logs should be kept in a log group with a retention period"
}

func (r MissingLogRetention) Check(t *infra.Template) []Issue {
	var issues []Issue
	covered := make(map[string]bool)
	for _, name := range ofType(t, typeLogGroup) {
		props := t.Resources[name].Properties
		for _, ref := range template.References(props["LogGroupName"]) {
			covered[ref] = true
		}
		if days, ok := number(props["RetentionInDays"]); !ok || days <= 0 {
			issues = append(issues, Issue{
				Rule:     r.ID(),
				Resource: name,
				Message:  "log group has no retention period",
				Severity: SeverityWarning,
			})
		}
	}
	for _, name := range ofType(t, typeFunction) {
		if covered[name] {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  "function has no log group in the stack; logs are retained forever",
			Severity: SeverityWarning,
		})
	}
	return issues
}

// ApiTimeout flags functions behind an HTTP API integration whose timeout
// exceeds the integration limit. The API would give up before the function.
type ApiTimeout struct {
	MaxSeconds int
}

func (r ApiTimeout) ID() string { return "RN003" }
func (r ApiTimeout) Description() string {
	return "Functions behind the HTTP API must time out within the integration limit"
}

func (r ApiTimeout) Check(t *infra.Template) []Issue {
	limit := r.MaxSeconds
	if limit <= 0 {
		limit = DefaultMaxTimeoutSeconds
	}

	integrated := make(map[string]bool)
	for _, name := range ofType(t, typeIntegration) {
		for _, ref := range template.References(t.Resources[name].Properties["IntegrationUri"]) {
			integrated[ref] = true
		}
	}

	var issues []Issue
	for _, name := range ofType(t, typeFunction) {
		if !integrated[name] {
			continue
		}
		timeout, ok := number(t.Resources[name].Properties["Timeout"])
		if !ok || timeout <= float64(limit) {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  fmt.Sprintf("timeout %.0fs exceeds the %ds HTTP API integration limit", timeout, limit),
			Severity: SeverityError,
		})
	}
	return issues
}

// WildcardResource flags Allow statements on Resource "*".
type WildcardResource struct{}

func (r WildcardResource) ID() string { return "RN004" }
func (r WildcardResource) Description() string {
	return "IAM statements should not grant access to every resource"
}

func (r WildcardResource) Check(t *infra.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typePolicy, typeRole) {
		props := t.Resources[name].Properties
		docs := []any{props["PolicyDocument"]}
		if policies, ok := props["Policies"].([]any); ok {
			for _, p := range policies {
				docs = append(docs, lookup(p, "PolicyDocument"))
			}
		}
		for _, doc := range docs {
			for _, stmt := range statements(doc) {
				if effect, _ := stmt["Effect"].(string); effect != "Allow" || !hasWildcard(stmt["Resource"]) {
					continue
				}
				issues = append(issues, Issue{
					Rule:     r.ID(),
					Resource: name,
					Message:  fmt.Sprintf("statement allows %v on every resource", stmt["Action"]),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return issues
}

// TableWithoutPITR notes tables without point-in-time recovery.
type TableWithoutPITR struct{}

func (r TableWithoutPITR) ID() string { return "RN005" }
func (r TableWithoutPITR) Description() string {
	return "Tables should enable point-in-time recovery"
}

func (r TableWithoutPITR) Check(t *infra.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typeTable) {
		enabled, _ := lookup(t.Resources[name].Properties,
			"PointInTimeRecoverySpecification", "PointInTimeRecoveryEnabled").(bool)
		if enabled {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  "point-in-time recovery is disabled",
			Severity: SeverityInfo,
		})
	}
	return issues
}

// RouteWithoutTarget flags routes that would never reach a function.
type RouteWithoutTarget struct{}

func (r RouteWithoutTarget) ID() string { return "RN006" }
func (r RouteWithoutTarget) Description() string {
	return "Routes must target an integration"
}

func (r RouteWithoutTarget) Check(t *infra.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typeRoute) {
		target := t.Resources[name].Properties["Target"]
		if s, isString := target.(string); target != nil && (!isString || s != "") {
			continue
		}
		key, _ := t.Resources[name].Properties["RouteKey"].(string)
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  fmt.Sprintf("route %q has no integration target", key),
			Severity: SeverityError,
		})
	}
	return issues
}

// TableNotRetained flags tables that are deleted along with the stack.
type TableNotRetained struct{}

func (r TableNotRetained) ID() string { return "RN007" }
func (r TableNotRetained) Description() string {
	return "Tables should be retained when the stack is deleted"
}

func (r TableNotRetained) Check(t *infra.Template) []Issue {
	var issues []Issue
	for _, name := range ofType(t, typeTable) {
		if t.Resources[name].DeletionPolicy == "Retain" {
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.ID(),
			Resource: name,
			Message:  "cached data is deleted with the stack; set DeletionPolicy Retain",
			Severity: SeverityWarning,
		})
	}
	return issues
}

// ofType returns the sorted names of resources with one of the given types.
func ofType(t *infra.Template, types ...string) []string {
	var names []string
	for name, res := range t.Resources {
		for _, typ := range types {
			if res.Type == typ {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// lookup walks nested maps by key and returns nil when a step is missing.
func lookup(v any, keys ...string) any {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[k]
	}
	return v
}

// number accepts the numeric types a template may hold before and after
// JSON normalization.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// statements returns the statements of a policy document.
func statements(doc any) []map[string]any {
	var out []map[string]any
	switch s := lookup(doc, "Statement").(type) {
	case []any:
		for _, item := range s {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	case map[string]any:
		out = append(out, s)
	}
	return out
}

func hasWildcard(resource any) bool {
	switch r := resource.(type) {
	case string:
		return r == "*"
	case []any:
		for _, item := range r {
			if s, ok := item.(string); ok && s == "*" {
				return true
			}
		}
	}
	return false
}
