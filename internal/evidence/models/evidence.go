package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Score is a GPG45 score as issued by a CRI. Some issuers send numbers as JSON
// strings ("activityHistoryScore": "1"); both forms decode.
type Score int

// UnmarshalJSON accepts a JSON number or a numeric string.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("score %q is not numeric: %w", str, err)
		}
		*s = Score(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Score(n)
	return nil
}

// EvidenceItem is one entry of a VC's evidence block. Exactly one category of
// score is expected; absent scores are nil.
type EvidenceItem struct {
	Type                 string          `json:"type,omitempty"`
	Txn                  string          `json:"txn,omitempty"`
	StrengthScore        *Score          `json:"strengthScore,omitempty"`
	ValidityScore        *Score          `json:"validityScore,omitempty"`
	ActivityHistoryScore *Score          `json:"activityHistoryScore,omitempty"`
	IdentityFraudScore   *Score          `json:"identityFraudScore,omitempty"`
	VerificationScore    *Score          `json:"verificationScore,omitempty"`
	CI                   []string        `json:"ci,omitempty"`
	CheckDetails         json.RawMessage `json:"checkDetails,omitempty"`
	FailedCheckDetails   json.RawMessage `json:"failedCheckDetails,omitempty"`
}

// EvidenceCategory is the GPG45 classification of an evidence item.
type EvidenceCategory string

const (
	CategoryEvidence             EvidenceCategory = "EVIDENCE"
	CategoryEvidenceWithActivity EvidenceCategory = "EVIDENCE_WITH_ACTIVITY"
	CategoryActivity             EvidenceCategory = "ACTIVITY"
	CategoryFraud                EvidenceCategory = "IDENTITY_FRAUD"
	CategoryFraudWithActivity    EvidenceCategory = "IDENTITY_FRAUD_WITH_ACTIVITY"
	CategoryVerification         EvidenceCategory = "VERIFICATION"
	CategoryUnknown              EvidenceCategory = ""
)

// Category classifies the item by the set of score fields present.
// Returns CategoryUnknown when the combination is not recognised.
func (e EvidenceItem) Category() EvidenceCategory {
	hasStrength := e.StrengthScore != nil
	hasValidity := e.ValidityScore != nil
	hasActivity := e.ActivityHistoryScore != nil
	hasFraud := e.IdentityFraudScore != nil
	hasVerification := e.VerificationScore != nil

	switch {
	case hasStrength && hasValidity && !hasFraud && !hasVerification:
		if hasActivity {
			return CategoryEvidenceWithActivity
		}
		return CategoryEvidence
	case hasFraud && !hasStrength && !hasValidity && !hasVerification:
		if hasActivity {
			return CategoryFraudWithActivity
		}
		return CategoryFraud
	case hasVerification && !hasStrength && !hasValidity && !hasFraud && !hasActivity:
		return CategoryVerification
	case hasActivity && !hasStrength && !hasValidity && !hasFraud && !hasVerification:
		return CategoryActivity
	default:
		return CategoryUnknown
	}
}

// Value returns the score or zero when absent.
func (s *Score) Value() int {
	if s == nil {
		return 0
	}
	return int(*s)
}
