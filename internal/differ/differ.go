// Package differ provides semantic comparison of CloudFormation templates.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores array element order in comparisons
	IgnoreOrder bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    infra.TemplateDiff
	Summary infra.DiffSummary
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0
}

// Compare compares two CloudFormation templates and returns differences.
// Both templates are normalized through JSON first, so a YAML file and the
// JSON it was generated from compare equal.
func Compare(template1, template2 *infra.Template, opts Options) (*Result, error) {
	t1, err := normalizeTemplate(template1)
	if err != nil {
		return nil, err
	}
	t2, err := normalizeTemplate(template2)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	res1 := t1.Resources
	res2 := t2.Resources

	// Find added resources (in template2 but not in template1)
	for name, def := range res2 {
		if _, exists := res1[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, infra.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find removed resources (in template1 but not in template2)
	for name, def := range res1 {
		if _, exists := res2[name]; !exists {
			result.Diff.Removed = append(result.Diff.Removed, infra.DiffEntry{
				Resource: name,
				Type:     def.Type,
			})
		}
	}

	// Find modified resources
	for name, def1 := range res1 {
		if def2, exists := res2[name]; exists {
			changes := compareResources(def1, def2, opts)
			if len(changes) > 0 {
				result.Diff.Modified = append(result.Diff.Modified, infra.DiffEntry{
					Resource: name,
					Type:     def1.Type,
					Changes:  changes,
				})
			}
		}
	}

	result.Diff.Sections = compareSections(t1, t2, opts)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = infra.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
		Sections: len(result.Diff.Sections),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed +
		result.Summary.Modified + result.Summary.Sections

	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}

	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}

	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*infra.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	t, err := template.FromJSON(data)
	if err == nil {
		return t, nil
	}
	t, err = template.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
	}
	return t, nil
}

// normalizeTemplate round-trips t through JSON so numbers and nested values
// have the same Go types regardless of the source format.
func normalizeTemplate(t *infra.Template) (*infra.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out infra.Template
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// compareResources compares two resource definitions and returns changes.
func compareResources(def1, def2 infra.ResourceDef, opts Options) []string {
	var changes []string

	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s", def1.Type, def2.Type))
	}

	changes = append(changes, compareValues("Properties", toAny(def1.Properties), toAny(def2.Properties), opts)...)

	deps1, deps2 := append([]string(nil), def1.DependsOn...), append([]string(nil), def2.DependsOn...)
	sort.Strings(deps1)
	sort.Strings(deps2)
	if !reflect.DeepEqual(deps1, deps2) {
		changes = append(changes, "DependsOn changed")
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %q → %q", def1.DeletionPolicy, def2.DeletionPolicy))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %q → %q", def1.UpdateReplacePolicy, def2.UpdateReplacePolicy))
	}

	return changes
}

// compareSections compares Parameters, Mappings and Outputs.
func compareSections(t1, t2 *infra.Template, opts Options) []string {
	var changes []string
	sections := []struct {
		name string
		a, b any
	}{
		{"Parameters", toAny(t1.Parameters), toAny(t2.Parameters)},
		{"Mappings", toAny(t1.Mappings), toAny(t2.Mappings)},
		{"Outputs", toAny(t1.Outputs), toAny(t2.Outputs)},
	}
	for _, s := range sections {
		changes = append(changes, compareValues(s.name, s.a, s.b, opts)...)
	}
	if t1.Description != t2.Description {
		changes = append(changes, "Description modified")
	}
	return changes
}

// compareValues recursively compares two values and reports changed paths.
// Maps are descended into; any other difference is reported at its path.
func compareValues(path string, a, b any, opts Options) []string {
	ma, aIsMap := a.(map[string]any)
	mb, bIsMap := b.(map[string]any)
	if !aIsMap || !bIsMap {
		if deepEqual(a, b, opts) {
			return nil
		}
		switch {
		case a == nil:
			return []string{path + " added"}
		case b == nil:
			return []string{path + " removed"}
		}
		return []string{path + " modified"}
	}

	var changes []string
	keys := make(map[string]bool)
	for k := range ma {
		keys[k] = true
	}
	for k := range mb {
		keys[k] = true
	}
	for k := range keys {
		va, inA := ma[k]
		vb, inB := mb[k]
		sub := path + "." + k
		switch {
		case !inA:
			changes = append(changes, sub+" added")
		case !inB:
			changes = append(changes, sub+" removed")
		default:
			changes = append(changes, compareValues(sub, va, vb, opts)...)
		}
	}

	sort.Strings(changes)
	return changes
}

// toAny converts a typed section to plain maps; empty sections become nil.
func toAny(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	if m, ok := out.(map[string]any); ok && len(m) == 0 {
		return nil
	}
	return out
}

// deepEqual compares two values deeply, optionally ignoring order.
func deepEqual(a, b any, opts Options) bool {
	if opts.IgnoreOrder {
		a = normalizeValue(a)
		b = normalizeValue(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalizeValue sorts every slice by the canonical JSON encoding of its
// elements.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		result := make([]any, len(val))
		for i, elem := range val {
			result[i] = normalizeValue(elem)
		}
		sort.SliceStable(result, func(i, j int) bool {
			return canonical(result[i]) < canonical(result[j])
		})
		return result
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = normalizeValue(v)
		}
		return result
	default:
		return v
	}
}

func canonical(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// sortEntries sorts diff entries by resource name.
func sortEntries(entries []infra.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}

// Format renders a result as human-readable text.
func Format(r *Result) string {
	if r.Empty() {
		return "No differences\n"
	}
	var sb strings.Builder
	for _, e := range r.Diff.Added {
		fmt.Fprintf(&sb, "+ %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range r.Diff.Removed {
		fmt.Fprintf(&sb, "- %s (%s)\n", e.Resource, e.Type)
	}
	for _, e := range r.Diff.Modified {
		fmt.Fprintf(&sb, "~ %s (%s)\n", e.Resource, e.Type)
		for _, c := range e.Changes {
			fmt.Fprintf(&sb, "    %s\n", c)
		}
	}
	for _, c := range r.Diff.Sections {
		fmt.Fprintf(&sb, "~ %s\n", c)
	}
	fmt.Fprintf(&sb, "\n%d added, %d removed, %d modified, %d section changes\n",
		r.Summary.Added, r.Summary.Removed, r.Summary.Modified, r.Summary.Sections)
	return sb.String()
}
