// Package config loads the random-notion-infra settings.
//
// Settings are layered, lowest priority first:
//  1. Defaults (Default)
//  2. The YAML file (randomnotion.yaml)
//  3. RANDOM_NOTION_* environment variables
//  4. Command-line flags, applied by the CLI
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "randomnotion.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RANDOM_NOTION_"

// Config is the complete tool configuration.
type Config struct {
	Stack    StackConfig    `yaml:"stack"`
	Function FunctionConfig `yaml:"function"`
	Table    TableConfig    `yaml:"table"`
	Secret   SecretConfig   `yaml:"secret"`
	Assets   AssetsConfig   `yaml:"assets"`
	Local    LocalConfig    `yaml:"local"`

	// path is the file the config was read from, if any.
	path string
}

// StackConfig selects the stack variant.
type StackConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Variant     string `yaml:"variant"`
	// Region is used by preflight checks; templates stay region-agnostic.
	Region string `yaml:"region,omitempty"`
}

// FunctionConfig mirrors function.Options.
type FunctionConfig struct {
	Entry           string            `yaml:"entry"`
	ModFile         string            `yaml:"modFile,omitempty"`
	Handler         string            `yaml:"handler,omitempty"`
	Runtime         string            `yaml:"runtime,omitempty"`
	Architecture    string            `yaml:"architecture,omitempty"`
	Description     string            `yaml:"description,omitempty"`
	Timeout         time.Duration     `yaml:"timeout"`
	MemorySize      int               `yaml:"memorySize,omitempty"`
	Environment     map[string]string `yaml:"environment,omitempty"`
	BuildFlags      []string          `yaml:"buildFlags,omitempty"`
	LogRetention    int               `yaml:"logRetention,omitempty"`
	Tracing         string            `yaml:"tracing,omitempty"`
	InsightsVersion string            `yaml:"insightsVersion,omitempty"`
	DisableInsights bool              `yaml:"disableInsights,omitempty"`
	StampRevision   bool              `yaml:"stampRevision"`
}

// TableConfig configures the cache table.
type TableConfig struct {
	Name                string `yaml:"name,omitempty"`
	PointInTimeRecovery bool   `yaml:"pointInTimeRecovery,omitempty"`
}

// SecretConfig identifies the Notion API secret.
type SecretConfig struct {
	Arn    string `yaml:"arn,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Region string `yaml:"region,omitempty"`
}

// AssetsConfig locates function bundles.
type AssetsConfig struct {
	Bucket string `yaml:"bucket,omitempty"`
	OutDir string `yaml:"outDir"`
}

// LocalConfig configures the local gateway.
type LocalConfig struct {
	Addr           string `yaml:"addr"`
	InvokeEndpoint string `yaml:"invokeEndpoint"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stack: StackConfig{
			Name:    stack.DefaultName,
			Variant: string(stack.DefaultVariant),
		},
		Function: FunctionConfig{
			Entry:         "../go/cmd/lambda",
			ModFile:       "../go/go.mod",
			Timeout:       30 * time.Second,
			LogRetention:  30,
			StampRevision: true,
		},
		Secret: SecretConfig{
			Name:   stack.DefaultSecretName,
			Region: stack.DefaultSecretRegion,
		},
		Assets: AssetsConfig{
			OutDir: ".build",
		},
		Local: LocalConfig{
			Addr:           "127.0.0.1:3000",
			InvokeEndpoint: "http://127.0.0.1:8080",
		},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path reads DefaultFile if it exists. Relative paths in
// the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg.path = path
		cfg.resolvePaths(filepath.Dir(path))
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	resolve(&c.Function.Entry)
	resolve(&c.Function.ModFile)
	resolve(&c.Assets.OutDir)
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// ApplyEnv applies RANDOM_NOTION_* overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("STACK_NAME", &c.Stack.Name)
	str("VARIANT", &c.Stack.Variant)
	str("REGION", &c.Stack.Region)
	str("ENTRY", &c.Function.Entry)
	str("MOD_FILE", &c.Function.ModFile)
	str("ARCHITECTURE", &c.Function.Architecture)
	str("TRACING", &c.Function.Tracing)
	str("INSIGHTS_VERSION", &c.Function.InsightsVersion)
	str("TABLE_NAME", &c.Table.Name)
	str("SECRET_ARN", &c.Secret.Arn)
	str("ASSET_BUCKET", &c.Assets.Bucket)
	str("OUT_DIR", &c.Assets.OutDir)
	str("INVOKE_ENDPOINT", &c.Local.InvokeEndpoint)

	if v := getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Function.Timeout = d
	}
	if v := getenv(EnvPrefix + "MEMORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMEMORY_SIZE: %w", EnvPrefix, err)
		}
		c.Function.MemorySize = n
	}
	if v := getenv(EnvPrefix + "STAMP_REVISION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTAMP_REVISION: %w", EnvPrefix, err)
		}
		c.Function.StampRevision = b
	}
	if c.Stack.Region == "" {
		c.Stack.Region = getenv("AWS_REGION")
	}
	return nil
}

// Validate checks settings that do not depend on the function build.
func (c *Config) Validate() error {
	if _, err := stack.ParseVariant(c.Stack.Variant); err != nil {
		return err
	}
	if c.Stack.Name == "" {
		return errors.New("stack name must not be empty")
	}
	return nil
}

// FunctionOptions converts the function section to builder options.
func (c *Config) FunctionOptions() function.Options {
	f := c.Function
	return function.Options{
		Entry:           f.Entry,
		ModFile:         f.ModFile,
		Handler:         f.Handler,
		Runtime:         f.Runtime,
		Architecture:    f.Architecture,
		Description:     f.Description,
		Timeout:         f.Timeout,
		MemorySize:      f.MemorySize,
		Environment:     f.Environment,
		BuildFlags:      f.BuildFlags,
		LogRetention:    f.LogRetention,
		Tracing:         function.Tracing(f.Tracing),
		InsightsVersion: f.InsightsVersion,
		DisableInsights: f.DisableInsights,
		StampRevision:   f.StampRevision,
	}
}

// StackProps returns the stack properties for a resolved function. key is
// the asset key of the bundle, "" when none was built.
func (c *Config) StackProps(fn function.Config, key string) (stack.Props, error) {
	variant, err := stack.ParseVariant(c.Stack.Variant)
	if err != nil {
		return stack.Props{}, err
	}
	return stack.Props{
		Name:        c.Stack.Name,
		Description: c.Stack.Description,
		Variant:     variant,
		Function:    fn,
		Table: stack.TableProps{
			TableName:           c.Table.Name,
			PointInTimeRecovery: c.Table.PointInTimeRecovery,
		},
		Secret: stack.SecretProps{
			Arn:    c.Secret.Arn,
			Name:   c.Secret.Name,
			Region: c.Secret.Region,
		},
		Code: stack.CodeLocation{Bucket: c.Assets.Bucket, Key: key},
	}, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
