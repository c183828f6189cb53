// Package cimit scores contra-indicators against a configured threshold and
// selects the mitigation journey for a breach.
package cimit

import (
	"log/slog"
	"strings"

	"ipvcore/internal/evidence/models"
	journey "ipvcore/internal/journey/models"
)

// Policy evaluates a user's CIs. It is immutable once built; reloads build a
// new Policy.
type Policy struct {
	cfg    *Config
	logger *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the logger used for routing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// New builds a Policy. A nil config falls back to DefaultConfig.
func New(cfg *Config, opts ...Option) *Policy {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Policy{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Threshold returns the configured breach threshold.
func (p *Policy) Threshold() int {
	return p.cfg.Threshold
}

// Score sums the detected score of every distinct CI code, adding the checked
// score of mitigated ones. Unconfigured codes contribute nothing.
func (p *Policy) Score(cis []models.ContraIndicator) int {
	total := 0
	for _, ci := range latestByCode(cis) {
		cfg, ok := p.cfg.ContraIndicators[ci.Code]
		if !ok {
			continue
		}
		total += cfg.DetectedScore
		if ci.IsMitigated() {
			total += cfg.CheckedScore
		}
	}
	return total
}

// IsBreachingThreshold reports whether the score exceeds the threshold.
// A score equal to the threshold is not a breach.
func (p *Policy) IsBreachingThreshold(cis []models.ContraIndicator) bool {
	return p.Score(cis) > p.cfg.Threshold
}

// MitigationDestination returns the route of the first CI, in store order,
// that has a configured route and no completed mitigation.
func (p *Policy) MitigationDestination(cis []models.ContraIndicator) (string, bool) {
	for _, ci := range latestByCode(cis) {
		if ci.IsMitigated() {
			continue
		}
		if route, ok := p.route(ci); ok {
			return route.Event, true
		}
	}
	return "", false
}

// MitigationJourneyStep returns the route of the first unmitigated CI whose
// mitigation would bring the score back within the threshold. Used when a
// returning user's stored CIs already breach.
func (p *Policy) MitigationJourneyStep(cis []models.ContraIndicator) (string, bool) {
	current := latestByCode(cis)
	score := p.Score(cis)
	for _, ci := range current {
		cfg, ok := p.cfg.ContraIndicators[ci.Code]
		if !ok || len(cfg.Mitigations) == 0 || ci.IsMitigated() {
			continue
		}
		if score+cfg.CheckedScore > p.cfg.Threshold {
			continue
		}
		route, ok := p.route(ci)
		if !ok {
			p.logger.Info("no mitigation route for document", "ci", ci.Code, "document", documentType(ci.Document))
			return "", false
		}
		return route.Event, true
	}
	return "", false
}

// BreachOutcome is the journey event for a breach: the mitigation step when
// one exists, otherwise fail-with-ci.
func (p *Policy) BreachOutcome(cis []models.ContraIndicator) string {
	if event, ok := p.MitigationJourneyStep(cis); ok {
		return event
	}
	return journey.EventFailWithCI
}

func (p *Policy) route(ci models.ContraIndicator) (MitigationRoute, bool) {
	cfg, ok := p.cfg.ContraIndicators[ci.Code]
	if !ok {
		return MitigationRoute{}, false
	}
	doc := documentType(ci.Document)
	for _, r := range cfg.Mitigations {
		if r.Document == "" || r.Document == doc {
			return r, true
		}
	}
	return MitigationRoute{}, false
}

// documentType strips the identifier from a document reference
// ("drivingPermit/GB/DVLA/123" -> "drivingPermit").
func documentType(document string) string {
	if document == "" {
		return ""
	}
	head, _, _ := strings.Cut(document, "/")
	return head
}

// latestByCode collapses repeated codes to the most recently issued entry,
// keeping first-seen order.
func latestByCode(cis []models.ContraIndicator) []models.ContraIndicator {
	index := make(map[string]int, len(cis))
	out := make([]models.ContraIndicator, 0, len(cis))
	for _, ci := range cis {
		if i, ok := index[ci.Code]; ok {
			if ci.IssuanceDate.After(out[i].IssuanceDate) {
				out[i] = ci
			}
			continue
		}
		index[ci.Code] = len(out)
		out = append(out, ci)
	}
	return out
}
