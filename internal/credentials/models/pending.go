// Package models holds the records of credentials that arrive outside the
// browser redirect.
package models

import (
	"time"

	id "ipvcore/pkg/domain"
)

// AsyncStatus is the lifecycle of a pending async CRI response.
type AsyncStatus string

const (
	AsyncStatusPending  AsyncStatus = "PENDING"
	AsyncStatusComplete AsyncStatus = "COMPLETE"
	AsyncStatusError    AsyncStatus = "ERROR"
)

// PendingResponse tracks an issuer that answered "pending" and will deliver
// the credential over the queue. One record per {user, CRI}.
type PendingResponse struct {
	UserID     id.UserID
	CriID      id.CriID
	Status     AsyncStatus
	OAuthState string
	JourneyID  string
	ErrorCode  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AsyncMessage is one credential delivery from an async issuer, decoded from
// the queue payload.
type AsyncMessage struct {
	// ID identifies the message in the transport and is what failures are
	// reported against.
	ID               string    `json:"-"`
	UserID           id.UserID `json:"sub"`
	CriID            id.CriID  `json:"criId"`
	State            string    `json:"state"`
	JourneyID        string    `json:"govuk_signin_journey_id,omitempty"`
	Credentials      []string  `json:"https://vocab.account.gov.uk/v1/credentialJWT,omitempty"`
	Error            string    `json:"error,omitempty"`
	ErrorDescription string    `json:"error_description,omitempty"`
}

// IsError reports whether the issuer sent an error instead of credentials.
func (m AsyncMessage) IsError() bool {
	return m.Error != ""
}
