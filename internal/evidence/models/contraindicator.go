package models

import "time"

// ContraIndicator is a risk signal held by the central CI store. This service
// only reads and aggregates them.
type ContraIndicator struct {
	Code                  string       `json:"code"`
	IssuanceDate          time.Time    `json:"issuanceDate"`
	Document              string       `json:"document,omitempty"`
	Txn                   []string     `json:"txn,omitempty"`
	Mitigations           []Mitigation `json:"mitigation,omitempty"`
	IncompleteMitigations []Mitigation `json:"incompleteMitigation,omitempty"`
}

// Mitigation records a completed (or in-progress) remediation of a CI.
type Mitigation struct {
	Code string `json:"code"`
}

// IsMitigated reports whether at least one mitigation has completed.
func (ci ContraIndicator) IsMitigated() bool {
	return len(ci.Mitigations) > 0
}
