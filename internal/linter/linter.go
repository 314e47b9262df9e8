package linter

import (
	"sort"

	infra "github.com/jeffrosenberg/random-notion-infra"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single finding against a template resource.
type Issue struct {
	Rule     string
	Resource string
	Message  string
	Severity Severity
}

// Result contains the outcome of linting.
type Result struct {
	Success bool
	Issues  []Issue
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// Rules to skip, applied after EnabledRules.
	DisabledRules []string
	// MaxTimeoutSeconds for the ApiTimeout rule.
	MaxTimeoutSeconds int
}

// Lint runs the selected rules against a template.
// Success is false only when an error-level issue is found.
func Lint(t *infra.Template, opts Options) Result {
	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(t)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Resource != issues[j].Resource {
			return issues[i].Resource < issues[j].Resource
		}
		return issues[i].Rule < issues[j].Rule
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}
}

// ToLintResult converts a Result to the CLI's JSON shape.
func (r Result) ToLintResult() infra.LintResult {
	out := infra.LintResult{Success: r.Success}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, infra.LintIssue{
			Resource: issue.Resource,
			Severity: string(issue.Severity),
			Message:  issue.Message,
			Rule:     issue.Rule,
		})
	}
	return out
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	if opts.MaxTimeoutSeconds > 0 {
		for i, r := range all {
			if at, ok := r.(ApiTimeout); ok {
				at.MaxSeconds = opts.MaxTimeoutSeconds
				all[i] = at
			}
		}
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}
	disabled := make(map[string]bool)
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if len(enabled) > 0 && !enabled[r.ID()] {
			continue
		}
		if disabled[r.ID()] {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
