// Package cri holds the credential issuer registry and the OAuth client used
// to collect credentials from issuers.
package cri

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ipvcore/internal/evidence/vc"
	id "ipvcore/pkg/domain"
)

// ErrUnknownCri is returned for ids that are not in the registry.
var ErrUnknownCri = errors.New("unknown credential issuer")

// Config describes one credential issuer.
type Config struct {
	ID            id.CriID `yaml:"-"`
	Enabled       bool     `yaml:"enabled"`
	ComponentID   string   `yaml:"componentId"`
	ClientID      string   `yaml:"clientId"`
	AuthorizeURL  string   `yaml:"authorizeUrl"`
	TokenURL      string   `yaml:"tokenUrl"`
	CredentialURL string   `yaml:"credentialUrl"`
	// SigningKey is the PEM encoded P-256 key the issuer signs credentials with.
	SigningKey string `yaml:"signingKey"`
	// Async issuers answer the credential request with a pending status and
	// deliver the credential later over the queue.
	Async bool `yaml:"async"`

	publicKey *ecdsa.PublicKey
}

// Issuer is the validator view of the config.
func (c *Config) Issuer() vc.Issuer {
	return vc.Issuer{CriID: c.ID, Issuer: c.ComponentID, PublicKey: c.publicKey}
}

func (c *Config) validate() error {
	if c.ComponentID == "" {
		return errors.New("componentId is required")
	}
	if c.ClientID == "" {
		return errors.New("clientId is required")
	}
	for name, raw := range map[string]string{
		"authorizeUrl":  c.AuthorizeURL,
		"tokenUrl":      c.TokenURL,
		"credentialUrl": c.CredentialURL,
	} {
		if u, err := url.Parse(raw); err != nil || !u.IsAbs() {
			return fmt.Errorf("%s must be an absolute url", name)
		}
	}
	key, err := parsePublicKey(c.SigningKey)
	if err != nil {
		return fmt.Errorf("signingKey: %w", err)
	}
	c.publicKey = key
	return nil
}

func parsePublicKey(data string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("expected an EC public key, got %T", pub)
	}
	return key, nil
}

// Registry is the loaded set of issuers, keyed by id.
type Registry struct {
	cris map[id.CriID]*Config
}

type rawRegistry struct {
	CredentialIssuers map[string]*Config `yaml:"credentialIssuers"`
}

// ParseRegistry decodes and validates the issuer file. Disabled issuers must
// still be well formed so they can be switched on without a deploy.
func ParseRegistry(data []byte) (*Registry, error) {
	var raw rawRegistry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cri config: %w", err)
	}
	r := &Registry{cris: make(map[id.CriID]*Config, len(raw.CredentialIssuers))}
	for name, cfg := range raw.CredentialIssuers {
		if cfg == nil {
			return nil, fmt.Errorf("invalid cri config: %s is empty", name)
		}
		cfg.ID = id.CriID(name)
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("invalid cri config: %s: %w", name, err)
		}
		r.cris[cfg.ID] = cfg
	}
	return r, nil
}

// LoadRegistry reads the issuer file and returns it with the SHA-256 of the
// raw bytes for startup logging.
func LoadRegistry(path string) (*Registry, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read cri config: %w", err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, "", err
	}
	h := sha256.Sum256(data)
	return r, "sha256:" + hex.EncodeToString(h[:]), nil
}

// Get returns the config of a known issuer, enabled or not.
func (r *Registry) Get(criID id.CriID) (*Config, error) {
	cfg, ok := r.cris[criID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCri, criID)
	}
	return cfg, nil
}

// Has reports whether criID names a configured issuer.
func (r *Registry) Has(criID id.CriID) bool {
	_, ok := r.cris[criID]
	return ok
}

// Enabled reports whether criID is configured and switched on.
func (r *Registry) Enabled(criID id.CriID) bool {
	cfg, ok := r.cris[criID]
	return ok && cfg.Enabled
}

// IDs lists the configured issuers in name order.
func (r *Registry) IDs() []id.CriID {
	out := make([]id.CriID, 0, len(r.cris))
	for criID := range r.cris {
		out = append(out, criID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Issuer returns the validator view of a configured issuer.
func (r *Registry) Issuer(criID id.CriID) (vc.Issuer, error) {
	cfg, err := r.Get(criID)
	if err != nil {
		return vc.Issuer{}, err
	}
	return cfg.Issuer(), nil
}
