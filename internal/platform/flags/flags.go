// Package flags serves feature flags from a YAML file that can be reloaded
// while the process runs.
package flags

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"ipvcore/pkg/requestcontext"
)

// File is the YAML layout. FeatureSets override Features for requests that
// name the set.
type File struct {
	Features    map[string]bool            `yaml:"features"`
	FeatureSets map[string]map[string]bool `yaml:"featureSets"`
}

// Provider answers flag lookups from the latest loaded file.
type Provider struct {
	path    string
	current atomic.Pointer[File]
	logger  *slog.Logger
}

// Option configures the Provider.
type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Load reads path once. An empty path yields a provider with no flags.
func Load(path string, opts ...Option) (*Provider, error) {
	p := &Provider{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.current.Store(&File{})
	if path == "" {
		return p, nil
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// FromFile builds a provider over fixed values. Used by tests.
func FromFile(f File) *Provider {
	p := &Provider{logger: slog.Default()}
	p.current.Store(&f)
	return p
}

// Path is the watched file.
func (p *Provider) Path() string { return p.path }

// Reload re-reads the file. On error the previous flags stay in effect.
func (p *Provider) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read feature flags: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse feature flags: %w", err)
	}
	p.current.Store(&f)
	p.logger.Info("feature flags loaded", "path", p.path, "features", len(f.Features), "feature_sets", len(f.FeatureSets))
	return nil
}

// Enabled resolves name for the request's feature set, then the base
// features, then def.
func (p *Provider) Enabled(ctx context.Context, name string, def bool) bool {
	f := p.current.Load()
	if set := requestcontext.FeatureSet(ctx); set != "" {
		if v, ok := f.FeatureSets[set][name]; ok {
			return v
		}
	}
	if v, ok := f.Features[name]; ok {
		return v
	}
	return def
}

// IsEnabled treats unknown flags as enabled, so a journey keeps its primary
// route unless a flag explicitly turns it off.
func (p *Provider) IsEnabled(ctx context.Context, name string) bool {
	return p.Enabled(ctx, name, true)
}
