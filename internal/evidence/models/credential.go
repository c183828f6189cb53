package models

import (
	"encoding/json"
	"strings"
	"time"

	id "ipvcore/pkg/domain"
)

// VerifiableCredential is a signed claim set from a CRI after signature and
// subject checks have passed. Never mutated in place once stored.
type VerifiableCredential struct {
	CriID     id.CriID
	UserID    id.UserID
	Issuer    string
	Raw       string // compact JWS as received
	Claims    VcClaim
	Vot       Vot // operational credentials only
	NotBefore time.Time
	ExpiresAt time.Time
	StoredAt  time.Time
}

// VcClaim is the "vc" claim of the JWT.
type VcClaim struct {
	Type              []string          `json:"type,omitempty"`
	Evidence          []EvidenceItem    `json:"evidence,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// CredentialSubject carries the identity attributes used for correlation.
// Document blocks are kept opaque.
type CredentialSubject struct {
	Name          []Name            `json:"name,omitempty"`
	BirthDate     []BirthDate       `json:"birthDate,omitempty"`
	Address       []json.RawMessage `json:"address,omitempty"`
	Passport      []json.RawMessage `json:"passport,omitempty"`
	DrivingPermit []json.RawMessage `json:"drivingPermit,omitempty"`
}

// Name is one name of the subject.
type Name struct {
	NameParts []NamePart `json:"nameParts"`
}

// NamePart is a typed piece of a name (GivenName, FamilyName).
type NamePart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// BirthDate is an ISO-8601 date.
type BirthDate struct {
	Value string `json:"value"`
}

// FullName joins the parts of a name, normalised for comparison.
func (n Name) FullName() string {
	parts := make([]string, 0, len(n.NameParts))
	for _, p := range n.NameParts {
		if v := strings.TrimSpace(p.Value); v != "" {
			parts = append(parts, strings.ToUpper(v))
		}
	}
	return strings.Join(parts, " ")
}

// HasEvidence reports whether the credential carries any evidence items.
func (vc VerifiableCredential) HasEvidence() bool {
	return len(vc.Claims.Evidence) > 0
}

// IsOperational reports whether the credential asserts its own vot.
func (vc VerifiableCredential) IsOperational() bool {
	return vc.Vot != "" && vc.Vot.ProfileType() == ProfileTypeOperational
}

// IsExpired reports whether the credential carries an expiry in the past.
func (vc VerifiableCredential) IsExpired(now time.Time) bool {
	return !vc.ExpiresAt.IsZero() && now.After(vc.ExpiresAt)
}

// Txns returns the transaction ids of every evidence item.
func (vc VerifiableCredential) Txns() []string {
	var txns []string
	for _, e := range vc.Claims.Evidence {
		if e.Txn != "" {
			txns = append(txns, e.Txn)
		}
	}
	return txns
}

// CIs returns the contra-indicator codes raised in the evidence block.
func (vc VerifiableCredential) CIs() []string {
	var codes []string
	for _, e := range vc.Claims.Evidence {
		codes = append(codes, e.CI...)
	}
	return codes
}

// VcStatus is the per-VC success snapshot kept on the session.
type VcStatus struct {
	CriID        id.CriID `json:"criId"`
	Issuer       string   `json:"issuer"`
	IsSuccessful bool     `json:"isSuccessful"`
}

// CredentialStatus is the response status of a CRI credential endpoint.
type CredentialStatus string

const (
	CredentialStatusCreated CredentialStatus = "Created"
	CredentialStatusPending CredentialStatus = "Pending"
)

// CredentialResponse is what a CRI credential endpoint returns after decoding.
type CredentialResponse struct {
	UserID  id.UserID
	Status  CredentialStatus
	RawJWTs []string
}
