// Package function resolves the deployment configuration of the RandomNotion
// Lambda handler.
//
// A Config is built by merging organization defaults (active tracing, the
// Lambda Insights extension) with caller Options, and optionally stamping the
// handler with the current source revision:
//
//	cfg, err := function.Build(function.Options{
//	    Entry:         "../go/cmd/lambda",
//	    Timeout:       30 * time.Second,
//	    StampRevision: true,
//	})
//
// Options fields that are set always win over the defaults.
package function

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/jeffrosenberg/random-notion-infra/resources/logs"
)

// Tracing is the X-Ray tracing mode of the function.
type Tracing string

const (
	Active      Tracing = "Active"
	PassThrough Tracing = "PassThrough"
	// Disabled omits the tracing configuration altogether.
	Disabled Tracing = "Disabled"
)

// Supported architectures.
const (
	ArchX86_64 = "x86_64"
	ArchARM64  = "arm64"
)

// Defaults applied when the corresponding Options field is zero.
const (
	DefaultInsightsVersion = "1.0.98.0"
	DefaultRuntime         = "provided.al2023"
	DefaultArchitecture    = ArchX86_64
	DefaultMemorySize      = 128
	DefaultHandler         = "bootstrap"

	// MaxTimeout is the longest timeout Lambda accepts.
	MaxTimeout = 15 * time.Minute
)

var (
	ErrMissingEntry   = errors.New("function entry is required")
	ErrMissingTimeout = errors.New("function timeout is required")
	ErrRevision       = errors.New("unable to resolve source revision")
	ErrInvalidOption  = errors.New("invalid function option")
)

// Options are the caller-supplied deployment settings. Zero fields fall back
// to Defaults.
type Options struct {
	// Entry is the directory of the handler's main package.
	Entry string
	// ModFile is the go.mod the handler is built against. Empty means the
	// toolchain runs inside Entry.
	ModFile      string
	Handler      string
	Runtime      string
	Architecture string
	Description  string
	Timeout      time.Duration
	MemorySize   int
	Environment  map[string]string
	BuildFlags   []string
	// LogRetention is the log retention in days; 0 keeps logs forever.
	LogRetention    int
	Tracing         Tracing
	InsightsVersion string
	DisableInsights bool
	// StampRevision embeds the current source revision as main.CommitID.
	StampRevision bool
}

// Defaults returns the default options: active tracing, the Lambda Insights
// extension, and a custom Go runtime on x86_64.
func Defaults() Options {
	return Options{
		Handler:         DefaultHandler,
		Runtime:         DefaultRuntime,
		Architecture:    DefaultArchitecture,
		MemorySize:      DefaultMemorySize,
		Tracing:         Active,
		InsightsVersion: DefaultInsightsVersion,
	}
}

// Config is a resolved deployment configuration. It shares no maps or slices
// with the Options it was built from.
type Config struct {
	Entry           string            `json:"entry" yaml:"entry"`
	ModFile         string            `json:"modFile,omitempty" yaml:"modFile,omitempty"`
	Handler         string            `json:"handler" yaml:"handler"`
	Runtime         string            `json:"runtime" yaml:"runtime"`
	Architecture    string            `json:"architecture" yaml:"architecture"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	Timeout         time.Duration     `json:"timeout" yaml:"timeout"`
	MemorySize      int               `json:"memorySize" yaml:"memorySize"`
	Environment     map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	BuildFlags      []string          `json:"buildFlags,omitempty" yaml:"buildFlags,omitempty"`
	LogRetention    int               `json:"logRetention,omitempty" yaml:"logRetention,omitempty"`
	Tracing         Tracing           `json:"tracing" yaml:"tracing"`
	InsightsVersion string            `json:"insightsVersion,omitempty" yaml:"insightsVersion,omitempty"`
	Revision        string            `json:"revision,omitempty" yaml:"revision,omitempty"`
}

// IsZero reports whether c is the zero Config.
func (c Config) IsZero() bool {
	return c.Entry == "" && c.Timeout == 0 && c.Revision == ""
}

// InsightsEnabled reports whether the Lambda Insights extension is attached.
func (c Config) InsightsEnabled() bool {
	return c.InsightsVersion != ""
}

// TimeoutSeconds returns the timeout rounded up to whole seconds.
func (c Config) TimeoutSeconds() int {
	return int(math.Ceil(c.Timeout.Seconds()))
}

var commitIDFlag = regexp.MustCompile(`-X[= ]?\s*main\.CommitID=([^\s"']*)`)

// pinnedRevision returns the last main.CommitID value set in flags.
func pinnedRevision(flags []string) (string, bool) {
	var rev string
	found := false
	for _, f := range flags {
		for _, m := range commitIDFlag.FindAllStringSubmatch(f, -1) {
			rev, found = m[1], true
		}
	}
	return rev, found
}

// RevisionFlag returns the build flag that embeds rev as main.CommitID.
func RevisionFlag(rev string) string {
	return fmt.Sprintf(`-ldflags "-X main.CommitID=%s"`, rev)
}

// Builder resolves Options into a Config.
type Builder struct {
	// Revisions is queried once per Build when StampRevision is set.
	// Nil means git in the entry directory.
	Revisions RevisionSource
}

// Build resolves base with a git revision source rooted at base.Entry.
func Build(base Options) (Config, error) {
	return Builder{}.Build(base)
}

// Build validates base, resolves the revision when requested and merges
// the defaults with base. A revision failure is fatal: the zero Config is
// returned with an error wrapping ErrRevision. When base.BuildFlags already
// set main.CommitID, that value is the revision and no source is queried.
func (b Builder) Build(base Options) (Config, error) {
	if base.Entry == "" {
		return Config{}, ErrMissingEntry
	}
	if base.Timeout <= 0 {
		return Config{}, ErrMissingTimeout
	}

	var computed []string
	var revision string
	pinned, isPinned := pinnedRevision(base.BuildFlags)
	if isPinned && pinned == "" {
		return Config{}, fmt.Errorf("%w: empty main.CommitID in build flags", ErrInvalidOption)
	}
	switch {
	case isPinned:
		// A CommitID in the caller's flags wins over the stamped one.
		revision = pinned
	case base.StampRevision:
		src := b.Revisions
		if src == nil {
			src = GitRevision{Dir: base.Entry}
		}
		rev, err := src.Revision()
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrRevision, err)
		}
		if rev == "" {
			return Config{}, fmt.Errorf("%w: empty revision", ErrRevision)
		}
		revision = rev
		computed = append(computed, RevisionFlag(rev))
	}

	cfg := merge(Defaults(), computed, base)
	cfg.Revision = revision

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// merge layers defaults < computed flags < base.
func merge(defaults Options, computed []string, base Options) Config {
	cfg := Config{
		Entry:           base.Entry,
		ModFile:         base.ModFile,
		Handler:         firstNonZero(base.Handler, defaults.Handler),
		Runtime:         firstNonZero(base.Runtime, defaults.Runtime),
		Architecture:    firstNonZero(base.Architecture, defaults.Architecture),
		Description:     firstNonZero(base.Description, defaults.Description),
		Timeout:         firstNonZero(base.Timeout, defaults.Timeout),
		MemorySize:      firstNonZero(base.MemorySize, defaults.MemorySize),
		LogRetention:    firstNonZero(base.LogRetention, defaults.LogRetention),
		Tracing:         firstNonZero(base.Tracing, defaults.Tracing),
		InsightsVersion: firstNonZero(base.InsightsVersion, defaults.InsightsVersion),
		Environment:     mergeEnv(defaults.Environment, base.Environment),
		BuildFlags:      mergeFlags(defaults.BuildFlags, computed, base.BuildFlags),
	}
	if base.DisableInsights {
		cfg.InsightsVersion = ""
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Tracing {
	case Active, PassThrough, Disabled:
	default:
		return fmt.Errorf("%w: tracing mode %q", ErrInvalidOption, c.Tracing)
	}
	switch c.Architecture {
	case ArchX86_64, ArchARM64:
	default:
		return fmt.Errorf("%w: architecture %q", ErrInvalidOption, c.Architecture)
	}
	if c.Timeout > MaxTimeout {
		return fmt.Errorf("%w: timeout %s exceeds %s", ErrInvalidOption, c.Timeout, MaxTimeout)
	}
	if c.MemorySize < 128 || c.MemorySize > 10240 {
		return fmt.Errorf("%w: memory size %d MB outside 128-10240", ErrInvalidOption, c.MemorySize)
	}
	if c.LogRetention != 0 && !logs.ValidRetention(c.LogRetention) {
		return fmt.Errorf("%w: log retention of %d days", ErrInvalidOption, c.LogRetention)
	}
	return nil
}

func firstNonZero[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}

// mergeEnv merges environment maps; later maps win per key.
func mergeEnv(layers ...map[string]string) map[string]string {
	var env map[string]string
	for _, layer := range layers {
		for k, v := range layer {
			if env == nil {
				env = make(map[string]string)
			}
			env[k] = v
		}
	}
	return env
}

// mergeFlags concatenates flag lists in order, dropping exact duplicates.
func mergeFlags(layers ...[]string) []string {
	var flags []string
	seen := make(map[string]bool)
	for _, layer := range layers {
		for _, f := range layer {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			flags = append(flags, f)
		}
	}
	return flags
}

// EnvironmentKeys returns the environment variable names in sorted order.
func (c Config) EnvironmentKeys() []string {
	keys := make([]string, 0, len(c.Environment))
	for k := range c.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
