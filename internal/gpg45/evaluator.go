// Package gpg45 turns raw evidence into GPG45 scores and matches them against
// accepted profiles. Everything here is pure: no I/O, no side effects.
package gpg45

import (
	"errors"
	"fmt"

	"ipvcore/internal/evidence/models"
	journey "ipvcore/internal/journey/models"
)

// ErrUnknownEvidenceType is returned for evidence items whose score fields do
// not match any category. Such items are never skipped.
var ErrUnknownEvidenceType = errors.New("unknown evidence type")

// ErrPolicyNotConfigured is returned when CI scoring is requested without a policy.
var ErrPolicyNotConfigured = errors.New("contra-indicator policy not configured")

// CiPolicy is the subset of the CI policy evaluator used for the stored-CI check.
type CiPolicy interface {
	IsBreachingThreshold(cis []models.ContraIndicator) bool
	MitigationDestination(cis []models.ContraIndicator) (string, bool)
}

// BuildScore keeps the maximum value per category across every evidence item of
// every credential. Credentials without an evidence block contribute nothing.
func BuildScore(vcs []models.VerifiableCredential) (models.Scores, error) {
	var scores models.Scores
	for _, vc := range vcs {
		for i, item := range vc.Claims.Evidence {
			category := item.Category()
			if category == models.CategoryUnknown {
				return models.Scores{}, fmt.Errorf("credential from %s evidence[%d]: %w", vc.CriID, i, ErrUnknownEvidenceType)
			}
			apply(&scores, category, item)
		}
	}
	return scores, nil
}

func apply(scores *models.Scores, category models.EvidenceCategory, item models.EvidenceItem) {
	switch category {
	case models.CategoryEvidence, models.CategoryEvidenceWithActivity:
		scores.Strength = max(scores.Strength, item.StrengthScore.Value())
		scores.Validity = max(scores.Validity, item.ValidityScore.Value())
		scores.Activity = max(scores.Activity, item.ActivityHistoryScore.Value())
	case models.CategoryFraud, models.CategoryFraudWithActivity:
		scores.Fraud = max(scores.Fraud, item.IdentityFraudScore.Value())
		scores.Activity = max(scores.Activity, item.ActivityHistoryScore.Value())
	case models.CategoryVerification:
		scores.Verification = max(scores.Verification, item.VerificationScore.Value())
	case models.CategoryActivity:
		scores.Activity = max(scores.Activity, item.ActivityHistoryScore.Value())
	}
}

// GetFirstMatchingProfile returns the first profile, in caller order, whose every
// threshold is met by scores.
func GetFirstMatchingProfile(scores models.Scores, profiles []models.Profile) (models.Profile, bool) {
	for _, p := range profiles {
		if scores.Satisfies(p.Thresholds) {
			return p, true
		}
	}
	return models.Profile{}, false
}

// GetJourneyResponseForStoredCis is the short-circuit run before profile
// matching. A returned event is authoritative and profile matching is skipped.
func GetJourneyResponseForStoredCis(cis []models.ContraIndicator, policy CiPolicy) (string, bool, error) {
	if policy == nil {
		return "", false, ErrPolicyNotConfigured
	}
	if !policy.IsBreachingThreshold(cis) {
		return "", false, nil
	}
	if event, ok := policy.MitigationDestination(cis); ok {
		return event, true, nil
	}
	return journey.EventPyiNoMatch, true, nil
}

// IsSuccessful reports whether every evidence item of vc carries a passing
// score for its category. Credentials with no evidence block are successful.
func IsSuccessful(vc models.VerifiableCredential) (bool, error) {
	for i, item := range vc.Claims.Evidence {
		ok, err := itemSuccessful(item)
		if err != nil {
			return false, fmt.Errorf("credential from %s evidence[%d]: %w", vc.CriID, i, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func itemSuccessful(item models.EvidenceItem) (bool, error) {
	switch item.Category() {
	case models.CategoryEvidence, models.CategoryEvidenceWithActivity:
		return item.ValidityScore.Value() != 0, nil
	case models.CategoryFraud, models.CategoryFraudWithActivity:
		return item.IdentityFraudScore.Value() != 0, nil
	case models.CategoryVerification:
		return item.VerificationScore.Value() != 0, nil
	case models.CategoryActivity:
		return item.ActivityHistoryScore.Value() != 0, nil
	default:
		return false, ErrUnknownEvidenceType
	}
}

// FailedCredentialEvent returns the journey event for the first unsuccessful
// credential: a failed knowledge-based check routes to the KBV failure page,
// anything else to no-match.
func FailedCredentialEvent(vcs []models.VerifiableCredential) (string, bool, error) {
	for _, vc := range vcs {
		ok, err := IsSuccessful(vc)
		if err != nil {
			return "", false, err
		}
		if ok {
			continue
		}
		if isVerificationOnly(vc) {
			return journey.EventPyiKbvFail, true, nil
		}
		return journey.EventPyiNoMatch, true, nil
	}
	return "", false, nil
}

func isVerificationOnly(vc models.VerifiableCredential) bool {
	if !vc.HasEvidence() {
		return false
	}
	for _, item := range vc.Claims.Evidence {
		if item.Category() != models.CategoryVerification {
			return false
		}
	}
	return true
}

// ScoresFor is a convenience wrapper used by the reuse path: it builds scores
// and matches them against the profiles of a GPG45 vot in one call.
func ScoresFor(vcs []models.VerifiableCredential, vot models.Vot) (models.Scores, models.Profile, bool, error) {
	scores, err := BuildScore(vcs)
	if err != nil {
		return models.Scores{}, models.Profile{}, false, err
	}
	profile, ok := GetFirstMatchingProfile(scores, vot.Profiles())
	return scores, profile, ok, nil
}

// Statuses snapshots the success of every credential, in input order.
func Statuses(vcs []models.VerifiableCredential) ([]models.VcStatus, error) {
	out := make([]models.VcStatus, 0, len(vcs))
	for _, vc := range vcs {
		ok, err := IsSuccessful(vc)
		if err != nil {
			return nil, err
		}
		out = append(out, models.VcStatus{CriID: vc.CriID, Issuer: vc.Issuer, IsSuccessful: ok})
	}
	return out, nil
}
