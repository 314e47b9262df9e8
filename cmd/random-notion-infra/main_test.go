package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/config"
	"github.com/jeffrosenberg/random-notion-infra/internal/preflight"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

const testConfig = `stack:
  name: RandomNotion
  variant: full
function:
  entry: ./go/cmd/lambda
  timeout: %s
  stampRevision: false
`

// writeConfig writes a config file with the given function timeout.
func writeConfig(t *testing.T, timeout string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "randomnotion.yaml")
	data := strings.Replace(testConfig, "%s", timeout, 1)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func exitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "random-notion-infra "), out)
}

func TestSynthCmd_JSON(t *testing.T) {
	cfg := writeConfig(t, "30s")

	out, err := run(t, "-c", cfg, "synth", "--no-bundle")
	require.NoError(t, err)

	var tmpl infra.Template
	require.NoError(t, json.Unmarshal([]byte(out), &tmpl))
	assert.Contains(t, tmpl.Resources, stack.FunctionID)
	assert.Contains(t, tmpl.Resources, stack.TableID)
	assert.Equal(t, "AWS::Lambda::Function", tmpl.Resources[stack.FunctionID].Type)
}

func TestSynthCmd_VariantToFile(t *testing.T) {
	cfg := writeConfig(t, "30s")
	outFile := filepath.Join(t.TempDir(), "template.yaml")

	out, err := run(t, "-c", cfg, "--variant", "basic", "synth", "--no-bundle", "-f", "yaml", "-o", outFile)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), stack.FunctionID)
	assert.NotContains(t, string(data), stack.TableID)
	assert.NotContains(t, string(data), "CACHE_TABLE_NAME")
}

func TestSynthCmd_ResultFormatFailure(t *testing.T) {
	cfg := writeConfig(t, "20m")

	out, err := run(t, "-c", cfg, "synth", "--no-bundle", "-f", "result")
	assert.Equal(t, 1, exitCode(err))

	var result infra.BuildResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "timeout")
}

func TestSynthCmd_UnknownFormat(t *testing.T) {
	cfg := writeConfig(t, "30s")
	_, err := run(t, "-c", cfg, "synth", "--no-bundle", "-f", "toml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestListCmd(t *testing.T) {
	cfg := writeConfig(t, "30s")

	out, err := run(t, "-c", cfg, "list", "-f", "json")
	require.NoError(t, err)

	var result infra.ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	position := make(map[string]int)
	for i, r := range result.Resources {
		position[r.Name] = i
	}
	require.Contains(t, position, stack.FunctionID)
	require.Contains(t, position, stack.RoleID)
	assert.Less(t, position[stack.RoleID], position[stack.FunctionID])
	assert.Less(t, position[stack.TableID], position[stack.RoleID+"DefaultPolicy"])
}

func TestGraphCmd(t *testing.T) {
	cfg := writeConfig(t, "30s")

	out, err := run(t, "-c", cfg, "graph")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, stack.FunctionID)

	_, err = run(t, "-c", cfg, "graph", "-f", "svg")
	assert.Error(t, err)
}

func TestLintCmd(t *testing.T) {
	out, err := run(t, "-c", writeConfig(t, "30s"), "lint")
	require.NoError(t, err)
	assert.Contains(t, out, "RN005")

	out, err = run(t, "-c", writeConfig(t, "30s"), "lint", "--disable", "RN005")
	require.NoError(t, err)
	assert.Contains(t, out, "No issues found.")

	out, err = run(t, "-c", writeConfig(t, "1m"), "lint", "-f", "json")
	assert.Equal(t, 2, exitCode(err))

	var result infra.LintResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Success)
}

func TestDiffCmd(t *testing.T) {
	cfg := writeConfig(t, "30s")
	deployed := filepath.Join(t.TempDir(), "deployed.json")
	_, err := run(t, "-c", cfg, "synth", "--no-bundle", "-o", deployed)
	require.NoError(t, err)

	out, err := run(t, "-c", cfg, "diff", deployed, "--exit-code")
	require.NoError(t, err)
	assert.Equal(t, "No differences\n", out)

	out, err = run(t, "-c", cfg, "--variant", "basic", "diff", deployed, "--exit-code")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "- "+stack.TableID)

	out, err = run(t, "diff", deployed, deployed, "-f", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Summary"`)
}

func TestConfigCmd(t *testing.T) {
	cfg := writeConfig(t, "30s")

	out, err := run(t, "-c", cfg, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+cfg)
	assert.Contains(t, out, "variant: full")

	out, err = run(t, "-c", cfg, "config", "--resolved")
	require.NoError(t, err)
	assert.Contains(t, out, "handler: bootstrap")
	assert.Contains(t, out, "tracing: Active")
}

func TestRootCmd_InvalidFlags(t *testing.T) {
	cfg := writeConfig(t, "30s")

	_, err := run(t, "-c", cfg, "--variant", "huge", "list")
	assert.ErrorIs(t, err, stack.ErrUnknownVariant)

	_, err = run(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "log-level")

	_, err = run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "config")
	assert.Error(t, err)
}

type fakePreflight struct {
	target preflight.Target
	report preflight.Report
}

func (f *fakePreflight) Run(_ context.Context, target preflight.Target) preflight.Report {
	f.target = target
	return f.report
}

func TestRunPreflight(t *testing.T) {
	cfg := config.Default()
	cfg.Table.Name = "random-notion-cache"

	fake := &fakePreflight{report: preflight.Report{Checks: []preflight.Check{
		{Name: preflight.CheckSecret, Status: preflight.StatusPass, Detail: "ok"},
		{Name: preflight.CheckTable, Status: preflight.StatusFail, Detail: "table random-notion-cache already exists"},
	}}}

	var out bytes.Buffer
	err := runPreflight(context.Background(), &out, cfg, fake, "text")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, err.Error(), "1 check(s)")
	assert.Equal(t, preflight.Target{SecretID: stack.DefaultSecretName, TableName: "random-notion-cache"}, fake.target)
	assert.Contains(t, out.String(), "already exists")
}

func TestPreflightTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Stack.Variant = "basic"
	cfg.Table.Name = "random-notion-cache"

	target, err := preflightTarget(cfg)
	require.NoError(t, err)
	assert.Equal(t, preflight.Target{}, target)

	cfg.Stack.Variant = "full"
	cfg.Secret.Arn = "arn:aws:secretsmanager:us-west-2:123456789012:secret:random-notion/notion-api-AbCdEf"
	target, err = preflightTarget(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Secret.Arn, target.SecretID)
	assert.Equal(t, "random-notion-cache", target.TableName)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())
	assert.Equal(t, "preflight failed", (&exitError{code: 1, msg: "preflight failed"}).Error())
}
