package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/bundle"
	"github.com/jeffrosenberg/random-notion-infra/internal/config"
	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

// app holds the global flags and the configuration they select.
type app struct {
	configPath string
	logLevel   string
	variant    string
	noRevision bool

	cfg *config.Config
}

// config loads the configuration once and applies global flag overrides.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.variant != "" {
		cfg.Stack.Variant = a.variant
	}
	if a.noRevision {
		cfg.Function.StampRevision = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// reload drops the cached configuration so the next call reads it again.
func (a *app) reload() {
	a.cfg = nil
}

// synthesized is the result of a synthesis run.
type synthesized struct {
	Function function.Config
	Template *infra.Template
	Asset    *bundle.Asset
}

// synthesize resolves the function, optionally bundles it, and builds the
// stack template.
func (a *app) synthesize(ctx context.Context, withBundle bool) (*synthesized, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	fn, err := function.Build(cfg.FunctionOptions())
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"entry":    fn.Entry,
		"revision": fn.Revision,
		"tracing":  fn.Tracing,
		"env":      fn.EnvironmentKeys(),
	}).Debug("resolved function")

	out := &synthesized{Function: fn}
	key := ""
	if withBundle {
		asset, err := bundle.New(cfg.Assets.OutDir).Bundle(ctx, fn)
		if err != nil {
			return nil, err
		}
		out.Asset = &asset
		key = asset.Key
	}

	props, err := cfg.StackProps(fn, key)
	if err != nil {
		return nil, err
	}
	out.Template, err = stack.Synthesize(props)
	if err != nil {
		return nil, fmt.Errorf("synthesizing stack: %w", err)
	}
	return out, nil
}
