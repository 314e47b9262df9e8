package differ

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	infra "github.com/jeffrosenberg/random-notion-infra"
)

func TestCompare(t *testing.T) {
	t1 := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Function": {Type: "AWS::Lambda::Function", Properties: map[string]any{"Timeout": 30}},
			"Table":    {Type: "AWS::DynamoDB::Table", Properties: map[string]any{"BillingMode": "PAY_PER_REQUEST"}},
		},
	}

	t2 := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Function": {Type: "AWS::Lambda::Function", Properties: map[string]any{"Timeout": 60}},
			"Logs":     {Type: "AWS::Logs::LogGroup", Properties: map[string]any{"RetentionInDays": 30}},
		},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if len(result.Diff.Removed) != 1 || result.Diff.Removed[0].Resource != "Table" {
		t.Errorf("Removed = %+v, want Table", result.Diff.Removed)
	}
	if len(result.Diff.Added) != 1 || result.Diff.Added[0].Resource != "Logs" {
		t.Errorf("Added = %+v, want Logs", result.Diff.Added)
	}
	if len(result.Diff.Modified) != 1 || result.Diff.Modified[0].Resource != "Function" {
		t.Fatalf("Modified = %+v, want Function", result.Diff.Modified)
	}
	if got := result.Diff.Modified[0].Changes; len(got) != 1 || got[0] != "Properties.Timeout modified" {
		t.Errorf("Changes = %v, want [Properties.Timeout modified]", got)
	}
	if result.Summary.Total != 3 {
		t.Errorf("Summary.Total = %d, want 3", result.Summary.Total)
	}
}

func TestCompareIdentical(t *testing.T) {
	template := &infra.Template{
		Resources: map[string]infra.ResourceDef{
			"Table": {Type: "AWS::DynamoDB::Table", Properties: map[string]any{"BillingMode": "PAY_PER_REQUEST"}},
		},
	}

	result, err := Compare(template, template, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !result.Empty() {
		t.Errorf("Summary.Total = %d, want 0 for identical templates", result.Summary.Total)
	}
}

func TestCompareNestedPaths(t *testing.T) {
	env := func(v any) map[string]any {
		return map[string]any{"Environment": map[string]any{"Variables": map[string]any{"CACHE_TABLE_NAME": v}}}
	}
	t1 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Function": {Type: "AWS::Lambda::Function", Properties: env(map[string]any{"Ref": "Table"})},
	}}
	t2 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Function": {Type: "AWS::Lambda::Function", Properties: env("fixed-name")},
	}}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	changes := result.Diff.Modified[0].Changes
	if len(changes) != 1 || changes[0] != "Properties.Environment.Variables.CACHE_TABLE_NAME modified" {
		t.Errorf("Changes = %v", changes)
	}
}

func TestCompareIgnoreOrder(t *testing.T) {
	t1 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Role": {Type: "AWS::IAM::Role", Properties: map[string]any{"ManagedPolicyArns": []any{"a", "b"}}},
	}}
	t2 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Role": {Type: "AWS::IAM::Role", Properties: map[string]any{"ManagedPolicyArns": []any{"b", "a"}}},
	}}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Summary.Modified != 1 {
		t.Errorf("Modified = %d, want 1 when order matters", result.Summary.Modified)
	}

	result, err = Compare(t1, t2, Options{IgnoreOrder: true})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !result.Empty() {
		t.Errorf("Summary.Total = %d, want 0 when ignoring order", result.Summary.Total)
	}
}

func TestCompareSections(t *testing.T) {
	t1 := &infra.Template{
		Parameters: map[string]infra.Parameter{"AssetBucket": {Type: "String"}},
		Resources:  map[string]infra.ResourceDef{},
		Outputs:    map[string]infra.Output{"ApiUrl": {Value: "a"}},
	}
	t2 := &infra.Template{
		Parameters: map[string]infra.Parameter{"AssetBucket": {Type: "String", Default: "bucket"}},
		Resources:  map[string]infra.ResourceDef{},
		Outputs:    map[string]infra.Output{"ApiUrl": {Value: "a"}, "CacheTableName": {Value: "t"}},
	}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	want := []string{"Parameters.AssetBucket.Default added", "Outputs.CacheTableName added"}
	if len(result.Diff.Sections) != len(want) {
		t.Fatalf("Sections = %v, want %v", result.Diff.Sections, want)
	}
	for i := range want {
		if result.Diff.Sections[i] != want[i] {
			t.Errorf("Sections[%d] = %q, want %q", i, result.Diff.Sections[i], want[i])
		}
	}
	if result.Summary.Total != 2 {
		t.Errorf("Summary.Total = %d, want 2", result.Summary.Total)
	}
}

func TestCompareDependsOnAndPolicies(t *testing.T) {
	t1 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Table": {Type: "AWS::DynamoDB::Table", DependsOn: []string{"A", "B"}},
	}}
	t2 := &infra.Template{Resources: map[string]infra.ResourceDef{
		"Table": {Type: "AWS::DynamoDB::Table", DependsOn: []string{"B", "A"}, DeletionPolicy: "Retain"},
	}}

	result, err := Compare(t1, t2, Options{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	changes := result.Diff.Modified[0].Changes
	if len(changes) != 1 || !strings.HasPrefix(changes[0], "DeletionPolicy changed") {
		t.Errorf("Changes = %v, want only the DeletionPolicy change", changes)
	}
}

func TestCompareFiles_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "template.json")
	yamlPath := filepath.Join(dir, "template.yaml")

	jsonData := `{"AWSTemplateFormatVersion":"2010-09-09","Resources":{"Logs":{"Type":"AWS::Logs::LogGroup","Properties":{"RetentionInDays":30}}}}`
	yamlData := "AWSTemplateFormatVersion: \"2010-09-09\"\nResources:\n  Logs:\n    Type: AWS::Logs::LogGroup\n    Properties:\n      RetentionInDays: 30\n"

	if err := os.WriteFile(jsonPath, []byte(jsonData), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CompareFiles(jsonPath, yamlPath, Options{})
	if err != nil {
		t.Fatalf("CompareFiles() error = %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected no differences, got %+v", result.Diff)
	}
}

func TestLoadTemplate_Missing(t *testing.T) {
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormat(t *testing.T) {
	if got := Format(&Result{}); got != "No differences\n" {
		t.Errorf("Format(empty) = %q", got)
	}

	r := &Result{
		Diff: infra.TemplateDiff{
			Added:    []infra.DiffEntry{{Resource: "Table", Type: "AWS::DynamoDB::Table"}},
			Modified: []infra.DiffEntry{{Resource: "Function", Type: "AWS::Lambda::Function", Changes: []string{"Properties.Timeout modified"}}},
		},
		Summary: infra.DiffSummary{Added: 1, Modified: 1, Total: 2},
	}
	out := Format(r)
	for _, want := range []string{"+ Table", "~ Function", "Properties.Timeout modified", "1 added"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}
