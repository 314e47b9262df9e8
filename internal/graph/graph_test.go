package graph

import (
	"strings"
	"testing"

	infra "github.com/jeffrosenberg/random-notion-infra"
)

func testTemplate() *infra.Template {
	return &infra.Template{
		Parameters: map[string]infra.Parameter{
			"AssetBucket": {Type: "String"},
		},
		Resources: map[string]infra.ResourceDef{
			"Role": {Type: "AWS::IAM::Role"},
			"Policy": {
				Type:       "AWS::IAM::Policy",
				Properties: map[string]any{"Roles": []any{map[string]any{"Ref": "Role"}}},
			},
			"Table": {Type: "AWS::DynamoDB::Table"},
			"Function": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Role": map[string]any{"Fn::GetAtt": []any{"Role", "Arn"}},
					"Code": map[string]any{"S3Bucket": map[string]any{"Ref": "AssetBucket"}},
					"Environment": map[string]any{"Variables": map[string]any{
						"CACHE_TABLE_NAME": map[string]any{"Ref": "Table"},
					}},
				},
				DependsOn: []string{"Policy"},
			},
		},
	}
}

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	gen := &Generator{}
	var sb strings.Builder
	if err := gen.Generate(testTemplate(), &sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := sb.String()

	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	for _, name := range []string{"Role", "Policy", "Table", "Function"} {
		if !strings.Contains(output, name) {
			t.Errorf("expected %s node", name)
		}
	}
	if !strings.Contains(output, "AWS::Lambda::Function") {
		t.Error("expected resource type in label")
	}
	if strings.Contains(output, "AssetBucket") {
		t.Error("parameters should be excluded by default")
	}
}

func TestGenerator_Generate_EdgeStyles(t *testing.T) {
	output, err := (&Generator{}).GenerateString(testTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "blue") {
		t.Error("expected GetAtt edge to be blue")
	}
	if !strings.Contains(output, "dashed") {
		t.Error("expected DependsOn edge to be dashed")
	}
}

func TestGenerator_Generate_WithParameters(t *testing.T) {
	gen := &Generator{IncludeParameters: true}
	output, err := gen.GenerateString(testTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "AssetBucket") {
		t.Error("expected parameter node")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected parameter node to be an ellipse")
	}
}

func TestGenerator_Generate_Mermaid(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}
	output, err := gen.GenerateString(testTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("mermaid output should not contain DOT syntax")
	}
}

func TestGenerator_Generate_Clustered(t *testing.T) {
	gen := &Generator{ClusterByType: true}
	output, err := gen.GenerateString(testTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(output, "cluster_IAM") {
		t.Error("expected IAM cluster for Role and Policy")
	}
	if strings.Contains(output, "cluster_Lambda") {
		t.Error("single resources should not be clustered")
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	gen := &Generator{ClusterByType: true, IncludeParameters: true}
	first, err := gen.GenerateString(testTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := gen.GenerateString(testTemplate())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next != first {
			t.Fatal("graph output is not stable")
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatDOT, false},
		{"dot", FormatDOT, false},
		{"mermaid", FormatMermaid, false},
		{"svg", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestService(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AWS::Lambda::Function", "Lambda"},
		{"AWS::ApiGatewayV2::Route", "ApiGatewayV2"},
		{"Custom::Thing", "Other"},
	}
	for _, tt := range tests {
		if got := Service(tt.input); got != tt.want {
			t.Errorf("Service(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
