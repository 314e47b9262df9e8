// Package validation runs the offline schema check and cfn-lint-go over
// synthesized templates.
//
// Templates are written to a temporary YAML file and linted with the
// cfn-lint-go library, so no external cfn-lint binary is required.
package validation

import (
	"fmt"
	"os"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/schema"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Options configures template validation.
type Options struct {
	// IgnoreRules lists cfn-lint rule IDs whose matches are dropped.
	IgnoreRules []string
	// WarningsAsErrors fails validation on warnings as well as errors.
	WarningsAsErrors bool
}

// Validate lints a synthesized template and summarizes the result.
func Validate(t *infra.Template, opts Options) (*infra.ValidateResult, error) {
	data, err := template.ToYAML(t)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	f, err := os.CreateTemp("", "random-notion-*.yaml")
	if err != nil {
		return nil, fmt.Errorf("creating temp template: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing temp template: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing temp template: %w", err)
	}

	cfn, err := RunCfnLint(f.Name(), opts.IgnoreRules...)
	if err != nil {
		return nil, err
	}

	offline := schema.ValidateTemplate(t, schema.Options{})
	result := &infra.ValidateResult{Resources: len(t.Resources)}
	for _, e := range offline.Errors {
		result.Errors = append(result.Errors, "schema: "+e.String())
	}
	for _, w := range offline.Warnings {
		result.Warnings = append(result.Warnings, "schema: "+w.String())
	}
	result.Errors = append(result.Errors, cfn.Errors...)
	result.Warnings = append(result.Warnings, cfn.Warnings...)
	result.Success = len(result.Errors) == 0
	if opts.WarningsAsErrors && len(result.Warnings) > 0 {
		result.Success = false
	}
	return result, nil
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string, ignore ...string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	return categorize(matches, ignore), nil
}

// categorize sorts matches into errors, warnings and informational notes.
func categorize(matches []lint.Match, ignore []string) *CfnLintResult {
	skip := make(map[string]bool, len(ignore))
	for _, id := range ignore {
		skip[id] = true
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}
	for _, match := range matches {
		if skip[match.Rule.ID] {
			continue
		}
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Passed if no errors (warnings are acceptable)
	result.Passed = len(result.Errors) == 0
	return result
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}
