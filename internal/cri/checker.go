package cri

import (
	"context"

	id "ipvcore/pkg/domain"
)

// FlagSource answers feature flags that are not issuer ids.
type FlagSource interface {
	IsEnabled(ctx context.Context, feature string) bool
}

// Checker resolves journey map conditions. A name that matches a configured
// issuer is answered by the registry, unless the flag source disables it for
// this request; anything else goes to the flag source.
type Checker struct {
	registry *Registry
	flags    FlagSource
}

func NewChecker(registry *Registry, flags FlagSource) *Checker {
	return &Checker{registry: registry, flags: flags}
}

func (c *Checker) IsEnabled(ctx context.Context, feature string) bool {
	if c.registry != nil && c.registry.Has(id.CriID(feature)) {
		if !c.registry.Enabled(id.CriID(feature)) {
			return false
		}
	}
	if c.flags == nil {
		return true
	}
	return c.flags.IsEnabled(ctx, feature)
}
