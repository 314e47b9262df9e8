// Package bundle compiles the Lambda handler described by a resolved
// function.Config and packages it as a deployment zip.
package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	log "github.com/sirupsen/logrus"

	"github.com/jeffrosenberg/random-notion-infra/internal/function"
)

// BinaryName is the executable name the provided runtimes start.
const BinaryName = "bootstrap"

// LambdaTags are always passed to go build. lambda.norpc drops the legacy RPC
// runtime, which provided runtimes do not use.
var LambdaTags = []string{"lambda.norpc"}

// ErrBuild is returned when the Go toolchain fails.
var ErrBuild = errors.New("go build failed")

// Asset is a packaged function bundle.
type Asset struct {
	// Path is the local zip file.
	Path string `json:"path"`
	// Hash is the hex SHA-256 of the zip.
	Hash string `json:"hash"`
	// Key is the content-addressed S3 key.
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// Runner executes a command in dir with env appended to the process
// environment and returns its combined output.
type Runner func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Bundler builds function bundles into OutDir.
type Bundler struct {
	OutDir string
	// GoBin is the go executable; empty means look it up.
	GoBin string
	Run   Runner
}

// New creates a Bundler writing to outDir.
func New(outDir string) *Bundler {
	return &Bundler{OutDir: outDir, Run: ExecRunner}
}

// Bundle compiles cfg's entry for Linux and zips the binary. Any toolchain
// failure is returned as ErrBuild with the compiler output.
func (b *Bundler) Bundle(ctx context.Context, cfg function.Config) (Asset, error) {
	dir, pkg, err := WorkDir(cfg)
	if err != nil {
		return Asset{}, err
	}

	buildDir, err := filepath.Abs(filepath.Join(b.OutDir, "build"))
	if err != nil {
		return Asset{}, err
	}
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return Asset{}, fmt.Errorf("creating build directory: %w", err)
	}
	binPath := filepath.Join(buildDir, BinaryName)

	args, err := BuildArgs(cfg, binPath, pkg)
	if err != nil {
		return Asset{}, err
	}
	env, err := BuildEnv(cfg)
	if err != nil {
		return Asset{}, err
	}

	goBin := b.GoBin
	if goBin == "" {
		goBin = findGoBinary()
	}
	run := b.Run
	if run == nil {
		run = ExecRunner
	}

	logger := log.WithFields(log.Fields{
		"entry":        cfg.Entry,
		"architecture": cfg.Architecture,
		"revision":     cfg.Revision,
	})
	logger.WithField("args", strings.Join(args, " ")).Debug("Running go build")

	if output, err := run(ctx, dir, env, goBin, args...); err != nil {
		return Asset{}, fmt.Errorf("%w: %v\n%s", ErrBuild, err, output)
	}

	zipPath := filepath.Join(b.OutDir, "bundle.zip")
	hash, size, err := Zip(binPath, zipPath)
	if err != nil {
		return Asset{}, fmt.Errorf("packaging %s: %w", binPath, err)
	}

	final := filepath.Join(b.OutDir, hash+".zip")
	if err := os.Rename(zipPath, final); err != nil {
		return Asset{}, fmt.Errorf("renaming bundle: %w", err)
	}

	asset := Asset{Path: final, Hash: hash, Key: AssetKey(hash), Size: size}
	logger.WithFields(log.Fields{"path": asset.Path, "size": asset.Size}).Info("Bundled function")
	return asset, nil
}

// AssetKey is the S3 key of a bundle with the given hash.
func AssetKey(hash string) string {
	return "assets/" + hash + ".zip"
}

// WorkDir returns the directory go build runs in and the package it builds.
// With a ModFile the build runs in the module root and the package is Entry
// relative to it; otherwise it runs in Entry.
func WorkDir(cfg function.Config) (dir, pkg string, err error) {
	if cfg.Entry == "" {
		return "", "", function.ErrMissingEntry
	}
	if cfg.ModFile == "" {
		return cfg.Entry, ".", nil
	}

	modDir := filepath.Dir(cfg.ModFile)
	rel, err := filepath.Rel(modDir, cfg.Entry)
	if err != nil {
		return "", "", fmt.Errorf("resolving entry %s against %s: %w", cfg.Entry, cfg.ModFile, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("entry %s is outside the module at %s", cfg.Entry, modDir)
	}
	if rel == "." {
		return modDir, ".", nil
	}
	return modDir, "./" + filepath.ToSlash(rel), nil
}

// BuildArgs returns the go build arguments for cfg. Every build flag is
// shell-split; all -ldflags values are joined into one flag since go build
// keeps only the last, and likewise for -tags.
func BuildArgs(cfg function.Config, output, pkg string) ([]string, error) {
	var ldflags, other []string
	tags := append([]string(nil), LambdaTags...)

	for _, flag := range cfg.BuildFlags {
		tokens, err := shlex.Split(flag)
		if err != nil {
			return nil, fmt.Errorf("parsing build flag %q: %w", flag, err)
		}
		for i := 0; i < len(tokens); i++ {
			tok := tokens[i]
			name, value, hasValue := strings.Cut(tok, "=")
			switch name {
			case "-ldflags", "--ldflags", "-tags", "--tags":
				if !hasValue {
					if i+1 >= len(tokens) {
						return nil, fmt.Errorf("build flag %s needs a value", name)
					}
					i++
					value = tokens[i]
				}
				if strings.HasSuffix(name, "ldflags") {
					ldflags = append(ldflags, value)
				} else {
					tags = appendTags(tags, value)
				}
			case "-o":
				return nil, errors.New("build flag -o is not allowed")
			default:
				other = append(other, tok)
			}
		}
	}

	args := []string{"build", "-tags", strings.Join(tags, ",")}
	args = append(args, other...)
	if len(ldflags) > 0 {
		args = append(args, "-ldflags", strings.Join(ldflags, " "))
	}
	return append(args, "-o", output, pkg), nil
}

func appendTags(tags []string, value string) []string {
	for _, tag := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		dup := false
		for _, t := range tags {
			if t == tag {
				dup = true
				break
			}
		}
		if !dup {
			tags = append(tags, tag)
		}
	}
	return tags
}

// BuildEnv returns the cross-compilation environment for cfg.
func BuildEnv(cfg function.Config) ([]string, error) {
	var goarch string
	switch cfg.Architecture {
	case function.ArchX86_64, "":
		goarch = "amd64"
	case function.ArchARM64:
		goarch = "arm64"
	default:
		return nil, fmt.Errorf("unsupported architecture %q", cfg.Architecture)
	}
	return []string{"GOOS=linux", "GOARCH=" + goarch, "CGO_ENABLED=0"}, nil
}

// findGoBinary locates the Go executable.
func findGoBinary() string {
	if path, err := exec.LookPath("go"); err == nil {
		return path
	}
	if root := os.Getenv("GOROOT"); root != "" {
		p := filepath.Join(root, "bin", "go")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range []string{"/usr/local/go/bin/go", "/opt/homebrew/bin/go", "/usr/bin/go"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "go"
}
